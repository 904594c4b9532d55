package journal

import "time"

// Entry is one served request.
type Entry struct {
	ID         string        `json:"id"`
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	Status     int           `json:"status"`
	Bytes      int64         `json:"bytes"`
	Duration   time.Duration `json:"duration_ns"`
	RemoteAddr string        `json:"remote_addr,omitempty"`
	UserAgent  string        `json:"user_agent,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

type ListOptions struct {
	Limit  int
	Path   string
	Status int
}
