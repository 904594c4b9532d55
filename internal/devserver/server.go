// Package devserver runs the development file server: one listener, the
// cache-suppressing static handler, and a context-driven run loop.
package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flitsinc/devserve/internal/api"
	"github.com/flitsinc/devserve/internal/browser"
	"github.com/flitsinc/devserve/internal/config"
	"github.com/flitsinc/devserve/internal/journal"
	"github.com/flitsinc/devserve/internal/web"
)

type State int32

const (
	Unbound State = iota
	Serving
	Stopped
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Serving:
		return "serving"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

var (
	ErrAlreadyBound = errors.New("devserver: already bound")
	ErrRunning      = errors.New("devserver: already running")
	ErrStopped      = errors.New("devserver: stopped")
)

// BindError reports that the configured address could not be bound.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string { return fmt.Sprintf("listen %s: %v", e.Addr, e.Err) }

func (e *BindError) Unwrap() error { return e.Err }

type Option func(*Server)

// WithStdout sets where the banner and farewell lines go.
func WithStdout(w io.Writer) Option {
	return func(s *Server) { s.out = w }
}

func WithBrowser(open browser.Opener) Option {
	return func(s *Server) { s.open = open }
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

type Server struct {
	cfg    config.Config
	id     string
	out    io.Writer
	logger *log.Logger
	open   browser.Opener

	db      *sql.DB
	journal *journal.Journal
	console *api.Server
	handler http.Handler

	mu         sync.Mutex
	state      State
	running    bool
	listener   net.Listener
	httpServer *http.Server
}

func New(cfg config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		id:     newInstanceID(),
		out:    os.Stdout,
		logger: log.Default(),
		open:   browser.Noop,
	}
	if cfg.OpenBrowser {
		s.open = browser.Open
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return nil, err
	}
	s.db = db
	s.journal = journal.New(db)
	s.journal.Limit = cfg.JournalLimit

	s.console = &api.Server{
		Journal: s.journal,
		Info: api.DiagnosticsInfo{
			InstanceID:  s.id,
			Addr:        cfg.Addr,
			Dir:         cfg.Dir,
			JournalPath: cfg.JournalPath,
		},
		State: func() string { return s.State().String() },
	}
	site := &web.Server{Dir: cfg.Dir}

	mux := http.NewServeMux()
	mux.Handle(api.Prefix, s.console.Handler())
	mux.Handle("/", site.Handler())
	s.handler = web.NoCache(s.loggingMiddleware(mux))

	return s, nil
}

func newInstanceID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (s *Server) ID() string { return s.id }

func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Journal() *journal.Journal { return s.journal }

func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Addr is the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// URL is the root URL a browser should open.
func (s *Server) URL() string {
	return rootURL(s.Addr(), s.cfg.Port())
}

func rootURL(addr net.Addr, fallbackPort string) string {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return fmt.Sprintf("http://localhost:%d/", tcp.Port)
	}
	return "http://localhost:" + fallbackPort + "/"
}

// Listen binds the configured address on all interfaces.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Serving:
		return ErrAlreadyBound
	case Stopped:
		return ErrStopped
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return &BindError{Addr: s.cfg.Addr, Err: err}
	}
	s.listener = ln
	s.state = Serving
	s.console.StartedAt = time.Now().UTC()
	s.console.Info.Addr = ln.Addr().String()
	s.console.Info.URL = rootURL(ln.Addr(), s.cfg.Port())
	return nil
}

// Run binds if needed, announces the server, opens the browser and serves
// until ctx is cancelled or serving fails. Cancellation is an orderly stop
// and returns nil.
func (s *Server) Run(ctx context.Context) error {
	if s.State() == Unbound {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.running {
		s.mu.Unlock()
		return ErrRunning
	}
	s.running = true
	ln := s.listener
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ErrorLog:          s.logger,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}
	s.httpServer = httpServer
	s.mu.Unlock()

	url := s.URL()
	s.printBanner(url)
	if err := s.open(url); err != nil {
		s.logger.Printf("open browser: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		s.printFarewell()
		s.shutdown(httpServer)
		<-errCh
		return nil
	case err := <-errCh:
		s.shutdown(httpServer)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}

func (s *Server) shutdown(httpServer *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		s.logger.Printf("server shutdown error: %v", err)
	}
	_ = httpServer.Close()
	s.release()
}

// Close releases the listener and journal without serving. It is safe to
// call after Run has returned.
func (s *Server) Close() error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()
	if httpServer != nil {
		_ = httpServer.Close()
	}
	s.release()
	return nil
}

func (s *Server) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
	s.state = Stopped
}
