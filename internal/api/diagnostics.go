package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
)

type DiagnosticsInfo struct {
	InstanceID  string `json:"instance_id"`
	Addr        string `json:"addr"`
	URL         string `json:"url"`
	Dir         string `json:"dir"`
	JournalPath string `json:"journal_path"`
}

type DiagnosticsResponse struct {
	Time          time.Time       `json:"time"`
	StartedAt     time.Time       `json:"started_at"`
	StartedAgo    string          `json:"started_ago"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	GoVersion     string          `json:"go_version"`
	State         string          `json:"state"`
	Info          DiagnosticsInfo `json:"info"`
	Journal       map[string]any  `json:"journal"`
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	now := time.Now().UTC()
	started := s.StartedAt
	if started.IsZero() {
		started = now
	}
	resp := DiagnosticsResponse{
		Time:          now,
		StartedAt:     started,
		StartedAgo:    humanize.Time(started),
		UptimeSeconds: int64(now.Sub(started).Seconds()),
		GoVersion:     runtime.Version(),
		Info:          s.Info,
		Journal:       map[string]any{},
	}
	if s.State != nil {
		resp.State = s.State()
	}
	if s.Journal != nil {
		resp.Journal["subscribers"] = s.Journal.SubscriberCount()
		if n, err := s.Journal.Count(r.Context()); err == nil {
			resp.Journal["entries"] = n
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
