package devserver

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/flitsinc/devserve/internal/api"
	"github.com/flitsinc/devserve/internal/journal"
)

// loggingMiddleware prints one line per request and records it in the
// journal. Dev console traffic is logged but not journaled.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		elapsed := time.Since(start)

		status := sw.statusCode()
		if !s.cfg.Quiet {
			s.logger.Printf("%s %s %d %s %s", r.Method, r.URL.Path, status, humanize.Bytes(uint64(sw.bytes)), elapsed)
		}
		if strings.HasPrefix(r.URL.Path, api.Prefix) {
			return
		}
		_, err := s.journal.Record(context.WithoutCancel(r.Context()), journal.Entry{
			Method:     r.Method,
			Path:       r.URL.Path,
			Status:     status,
			Bytes:      sw.bytes,
			Duration:   elapsed,
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		})
		if err != nil {
			s.logger.Printf("journal: %v", err)
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusWriter) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 && (code >= 200 || code == http.StatusSwitchingProtocols) {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("%T does not support hijacking", w.ResponseWriter)
	}
	return hj.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
