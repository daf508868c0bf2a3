package server

import (
	"context"
	"log/slog"
	"net"
)

// serveTCP runs the accept loop for one bound listener. Each accepted
// connection is answered by its own goroutine so a slow peer never blocks
// the loop. The loop exits when the context is cancelled or after
// errorThreshold consecutive accept failures.
func (s *Server) serveTCP(ctx context.Context, ln net.Listener) {
	addr := ln.Addr().String()
	defer ln.Close()

	// Closing the listener is the only way to unblock a pending Accept. The
	// done channel releases the watcher when the loop exits on its own.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
		case <-done:
		}
	}()

	var connections uint64
	var errs breaker

	for {
		conn, err := ln.Accept()
		if ctx.Err() != nil {
			if conn != nil {
				_ = conn.Close()
			}
			s.logger.Debug("TCP listener shut down", slog.String("listener", addr))
			return
		}
		if err != nil {
			s.logger.Warn("Error while accepting from TCP socket",
				slog.String("listener", addr),
				slog.String("error", err.Error()),
			)
			s.metrics.RecordReceiveError("tcp")
			if errs.Failure() {
				s.logger.Error("TCP socket closed due to too many consecutive errors",
					slog.String("listener", addr),
				)
				s.metrics.RecordLoopTerminated("tcp")
				return
			}
			continue
		}

		errs.Success()
		connections++
		s.metrics.RecordConnectionAccepted(addr)
		s.logger.Info("TCP listener accepted connection",
			slog.String("listener", addr),
			slog.String("remote", conn.RemoteAddr().String()),
			slog.Uint64("connection_number", connections),
		)

		go s.respondTCP(conn, addr, connections)
	}
}

// respondTCP answers a single accepted connection: it writes the full
// fixed-size response buffer, then half-closes the stream so the peer sees a
// clean EOF. Write failures are logged and the connection abandoned; nothing
// is ever read from the peer.
func (s *Server) respondTCP(conn net.Conn, listener string, connectionNumber uint64) {
	defer conn.Close()

	remote := conn.RemoteAddr()
	if _, err := conn.Write(tcpResponse(remote, connectionNumber)); err != nil {
		s.logger.Warn("TCP socket failed to respond",
			slog.String("listener", listener),
			slog.String("remote", remote.String()),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordSendError("tcp")
		return
	}

	s.logger.Debug("TCP socket responded",
		slog.String("listener", listener),
		slog.String("remote", remote.String()),
		slog.Uint64("connection_number", connectionNumber),
	)
	s.metrics.RecordReplySent("tcp")

	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
}
