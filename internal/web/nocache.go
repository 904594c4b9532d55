package web

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
)

// NoCacheHeaders is applied to every response passing through NoCache.
var NoCacheHeaders = map[string]string{
	"Cache-Control": "no-cache, no-store, must-revalidate",
	"Pragma":        "no-cache",
	"Expires":       "0",
}

// NoCache marks every response from next as non-cacheable. The headers are
// set up front and again when the header block is flushed, since
// http.FileServer drops Cache-Control from the error responses it writes.
func NoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := w.(*noCacheWriter); ok {
			next.ServeHTTP(w, r)
			return
		}
		setNoCache(w.Header())
		next.ServeHTTP(&noCacheWriter{ResponseWriter: w}, r)
	})
}

func setNoCache(h http.Header) {
	for k, v := range NoCacheHeaders {
		h.Set(k, v)
	}
}

type noCacheWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *noCacheWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		// 1xx responses are interim; the final header block follows.
		if code >= 200 || code == http.StatusSwitchingProtocols {
			w.wroteHeader = true
		}
		setNoCache(w.Header())
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *noCacheWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(p)
}

func (w *noCacheWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *noCacheWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("%T does not support hijacking", w.ResponseWriter)
	}
	return hj.Hijack()
}

func (w *noCacheWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
