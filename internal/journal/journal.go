package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Journal stores served requests and fans them out to live subscribers.
type Journal struct {
	db *sql.DB
	// Limit caps the number of stored rows; zero keeps everything.
	Limit int

	mu   sync.RWMutex
	subs map[string]chan Entry
}

func New(db *sql.DB) *Journal {
	return &Journal{db: db, subs: map[string]chan Entry{}}
}

func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	if strings.TrimSpace(e.Method) == "" {
		return Entry{}, fmt.Errorf("method is required")
	}
	if e.Path == "" {
		return Entry{}, fmt.Errorf("path is required")
	}
	e.ID = ulid.Make().String()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO requests (id, method, path, status, bytes, duration_ns, remote_addr, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Method, e.Path, e.Status, e.Bytes, int64(e.Duration), nullString(e.RemoteAddr), nullString(e.UserAgent), e.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Entry{}, fmt.Errorf("insert request: %w", err)
	}

	if j.Limit > 0 {
		if err := j.Prune(ctx, j.Limit); err != nil {
			return Entry{}, err
		}
	}

	j.broadcast(e)
	return e, nil
}

// List returns entries newest first.
func (j *Journal) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	var where []string
	var args []any
	if opts.Path != "" {
		where = append(where, "path = ?")
		args = append(args, opts.Path)
	}
	if opts.Status != 0 {
		where = append(where, "status = ?")
		args = append(args, opts.Status)
	}
	query := `SELECT id, method, path, status, bytes, duration_ns, remote_addr, user_agent, created_at FROM requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var durationNS int64
		var remoteAddr, userAgent sql.NullString
		var createdAtStr string
		if err := rows.Scan(&e.ID, &e.Method, &e.Path, &e.Status, &e.Bytes, &durationNS, &remoteAddr, &userAgent, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		e.Duration = time.Duration(durationNS)
		e.RemoteAddr = remoteAddr.String
		e.UserAgent = userAgent.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return out, nil
}

// Prune deletes all but the newest keep entries.
func (j *Journal) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := j.db.ExecContext(ctx, `DELETE FROM requests WHERE id NOT IN (SELECT id FROM requests ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return fmt.Errorf("prune requests: %w", err)
	}
	return nil
}

func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM requests`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return n, nil
}

// Subscribe delivers entries recorded after the call until ctx is done.
func (j *Journal) Subscribe(ctx context.Context) <-chan Entry {
	ch := make(chan Entry, 64)
	id := ulid.Make().String()

	j.mu.Lock()
	j.subs[id] = ch
	j.mu.Unlock()

	go func() {
		<-ctx.Done()
		j.mu.Lock()
		delete(j.subs, id)
		j.mu.Unlock()
		close(ch)
	}()

	return ch
}

func (j *Journal) SubscriberCount() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.subs)
}

func (j *Journal) broadcast(e Entry) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	for _, ch := range j.subs {
		select {
		case ch <- e:
		default:
			// Drop if subscriber is slow.
		}
	}
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
