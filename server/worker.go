package server

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/arnesen/httpcore/internal/httpx"
	"github.com/arnesen/httpcore/internal/netx"
	"github.com/arnesen/httpcore/internal/perf"
)

// serveConnection runs the keep-alive loop for one accepted connection,
// grounded in original_source/src/http/server/mod.rs's per-connection
// Thread::spawn body: parse a request, hand it to the handler, finalize
// the response, and repeat until close_connection or an I/O error.
func (s *Server) serveConnection(ctx context.Context, conn net.Conn, tAccept int64) {
	defer conn.Close()

	stream := netx.NewBufferedStream(conn)
	first := true

	for {
		tWorkerStart := s.cfg.Clock.Now().UnixNano()
		if !first {
			// Subsequent requests on this connection have no spawn time
			// distinct from "worker started" — matching the original's
			// time_start = time_spawned = time_request_made reassignment
			// for non-first iterations.
			tAccept = tWorkerStart
		}

		if !first {
			if done := s.peekConnectionClosed(stream); done {
				return
			}
		}

		req, parseErr := httpx.ParseRequest(ctx, stream, s.cfg.Limits, conn.RemoteAddr().String())
		tRequestParsed := s.cfg.Clock.Now().UnixNano()

		resp := httpx.NewResponse(stream, s.cfg.Clock)
		tResponseInitialized := s.cfg.Clock.Now().UnixNano()

		closeConnection := true
		if req != nil {
			closeConnection = req.CloseConnection
		}

		var perr *httpx.ParseError
		switch {
		case parseErr == nil:
			if s.cfg.Handler != nil {
				s.cfg.Handler.HandleRequest(req, resp)
			}
			if err := resp.TryWriteHeaders(); err != nil {
				s.cfg.Logger.Errorf("server: worker: writing headers failed: %v", err)
				return
			}

		case errors.As(parseErr, &perr):
			resp.Status = perr.Status
			resp.Header.Set("Content-Length", "0")
			if err := resp.TryWriteHeaders(); err != nil {
				s.cfg.Logger.Errorf("server: worker: writing error headers failed: %v", err)
				return
			}
			closeConnection = true

		default:
			if errors.Is(parseErr, io.EOF) {
				s.cfg.Logger.Debugf("server: worker: connection closed by peer")
			} else {
				s.cfg.Logger.Warnf("server: worker: request read failed: %v", parseErr)
			}
			return
		}

		if resp.ForceClose() {
			closeConnection = true
		}

		if err := resp.FinishResponse(); err != nil {
			s.cfg.Logger.Errorf("server: worker: finishing response failed: %v", err)
			return
		}
		tResponseFinished := s.cfg.Clock.Now().UnixNano()

		s.sampler.TrySend(perf.Sample{
			TAccept:              tAccept,
			TWorkerStart:         tWorkerStart,
			TRequestParsed:       tRequestParsed,
			TResponseInitialized: tResponseInitialized,
			TResponseFinished:    tResponseFinished,
		})

		if closeConnection {
			return
		}
		first = false
	}
}

// peekConnectionClosed detects whether the peer closed the connection
// before sending another request, without consuming the byte that would
// start the next request's method token.
func (s *Server) peekConnectionClosed(stream *netx.BufferedStream) bool {
	_, err := stream.Peek(1)
	return err != nil
}
