package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/flitsinc/devserve/internal/journal"
)

// Prefix is reserved for the dev console; everything else is served from disk.
const Prefix = "/__devserve/"

type Server struct {
	Journal   *journal.Journal
	StartedAt time.Time
	Info      DiagnosticsInfo
	// State reports the lifecycle state of the owning server.
	State func() string
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(Prefix+"health", s.handleHealth)
	mux.HandleFunc(Prefix+"diagnostics", s.handleDiagnostics)
	mux.HandleFunc(Prefix+"requests", s.handleRequests)
	mux.HandleFunc(Prefix+"ws", s.handleStreamWS)
	mux.HandleFunc(Prefix, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errNotFound(r.URL.Path))
	})

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	if s.Journal == nil {
		writeError(w, http.StatusNotFound, errNotFound("journal"))
		return
	}
	q := r.URL.Query()
	items, err := s.Journal.List(r.Context(), journal.ListOptions{
		Limit:  parseInt(q.Get("limit"), 50),
		Path:   q.Get("path"),
		Status: parseInt(q.Get("status"), 0),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if items == nil {
		items = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, items)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

type notFoundError struct {
	msg string
}

func (e notFoundError) Error() string { return e.msg }

func errNotFound(target string) error {
	return notFoundError{msg: target + " not found"}
}
