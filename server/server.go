// Package server implements the accept-and-dispatch half of the HTTP/1.x
// core: a single listener spawns one worker per connection, and each
// worker runs a keep-alive loop, grounded in
// original_source/src/http/server/mod.rs's Server trait.
package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/arnesen/httpcore/internal/httpx"
	"github.com/arnesen/httpcore/internal/netx"
	"github.com/arnesen/httpcore/internal/perf"
)

// Handler processes one parsed request and populates the response. It is
// the Go analogue of the Rust Server trait's handle_request.
type Handler interface {
	HandleRequest(req *httpx.Request, resp *httpx.Response)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(req *httpx.Request, resp *httpx.Response)

func (f HandlerFunc) HandleRequest(req *httpx.Request, resp *httpx.Response) {
	f(req, resp)
}

// Config is the server's bind and resource configuration (spec.md §6).
type Config struct {
	BindAddress string

	Handler Handler

	// Logger defaults to a no-op logger when nil.
	Logger *zap.SugaredLogger
	// Clock defaults to clockwork.NewRealClock() when nil.
	Clock clockwork.Clock

	Limits httpx.ParseLimits

	// PerfSampleCapacity bounds the perf-sample channel; 0 uses a
	// reasonable default.
	PerfSampleCapacity int
}

func (c *Config) setDefaults() {
	if c.Logger == nil {
		c.Logger = zap.NewNop().Sugar()
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Limits == (httpx.ParseLimits{}) {
		c.Limits = httpx.DefaultParseLimits
	}
	if c.PerfSampleCapacity == 0 {
		c.PerfSampleCapacity = 1024
	}
}

// Server binds a listener and dispatches accepted connections to workers.
type Server struct {
	cfg     Config
	sampler *perf.Sampler
}

// New constructs a Server from cfg, filling unset ambient fields with
// defaults.
func New(cfg Config) *Server {
	cfg.setDefaults()
	return &Server{
		cfg:     cfg,
		sampler: perf.NewSampler(cfg.PerfSampleCapacity, cfg.Clock, cfg.Logger),
	}
}

// ServeForever binds cfg.BindAddress and accepts connections until the
// listener fails fatally or ctx is cancelled, spawning one goroutine per
// connection (spec.md §4.9, §5).
func (s *Server) ServeForever(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.BindAddress)
	if err != nil {
		s.cfg.Logger.Errorf("server: bind %s failed: %v", s.cfg.BindAddress, err)
		return err
	}
	defer ln.Close()
	s.cfg.Logger.Infof("server: listening on %s", s.cfg.BindAddress)

	go s.sampler.Run(ctx)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		tAccept := s.cfg.Clock.Now().UnixNano()
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			if isTransientAcceptError(err) {
				s.cfg.Logger.Warnf("server: accept: transient error, continuing: %v", err)
				continue
			}
			s.cfg.Logger.Errorf("server: accept: fatal error: %v", err)
			return err
		}
		go s.serveConnection(ctx, conn, tAccept)
	}
}

// ServeOnce binds cfg.BindAddress, optionally applies an accept deadline
// derived from timeoutMs, and serves exactly one connection to
// completion, ignoring further timeouts once accepted (spec.md §4.9).
func (s *Server) ServeOnce(ctx context.Context, retryAccept bool, timeoutMs int) error {
	ln, err := net.Listen("tcp", s.cfg.BindAddress)
	if err != nil {
		s.cfg.Logger.Errorf("server: bind %s failed: %v", s.cfg.BindAddress, err)
		return err
	}
	defer ln.Close()

	for {
		if timeoutMs > 0 {
			if tl, ok := ln.(interface{ SetDeadline(time.Time) error }); ok {
				_ = tl.SetDeadline(s.cfg.Clock.Now().Add(time.Duration(timeoutMs) * time.Millisecond))
			}
		}

		tAccept := s.cfg.Clock.Now().UnixNano()
		conn, err := ln.Accept()
		if err != nil {
			s.cfg.Logger.Warnf("server: accept failed: %v", err)
			if retryAccept {
				continue
			}
			return err
		}

		s.serveConnection(ctx, conn, tAccept)
		return nil
	}
}

// isTransientAcceptError classifies accept() failures per spec.md §4.9:
// a net.Error reporting Temporary() (deprecated but still populated by
// the stdlib for the transient conditions it covers: ECONNABORTED,
// EMFILE, ENFILE and similar) should not stop the accept loop.
func isTransientAcceptError(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		//lint:ignore SA1019 Temporary is deprecated but still the
		// clearest transient-vs-fatal signal net.Listener.Accept gives us.
		return ne.Temporary()
	}
	return false
}
