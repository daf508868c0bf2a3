package server

import (
	"context"
	"log/slog"
	"net"
)

// serveUDP runs the receive loop for one bound socket. Unlike TCP, each
// datagram is answered synchronously within the loop iteration; there is a
// single writer per socket, so packet numbers match receipt order. Receive
// failures follow the same breaker policy as the TCP accept loop.
func (s *Server) serveUDP(ctx context.Context, conn net.PacketConn) {
	addr := conn.LocalAddr().String()
	defer conn.Close()

	// Closing the socket is the only way to unblock a pending ReadFrom. The
	// done channel releases the watcher when the loop exits on its own.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	buf := make([]byte, udpBufferSize)
	reply := make([]byte, udpBufferSize)

	var packets uint64
	var errs breaker

	for {
		n, remote, err := conn.ReadFrom(buf)
		if ctx.Err() != nil {
			s.logger.Debug("UDP socket shut down", slog.String("socket", addr))
			return
		}
		if err != nil {
			s.logger.Warn("Error while receiving from UDP socket",
				slog.String("socket", addr),
				slog.String("error", err.Error()),
			)
			s.metrics.RecordReceiveError("udp")
			if errs.Failure() {
				s.logger.Error("UDP socket closed due to too many consecutive errors",
					slog.String("socket", addr),
				)
				s.metrics.RecordLoopTerminated("udp")
				return
			}
			continue
		}

		errs.Success()
		packets++
		s.metrics.RecordPacketReceived(addr)
		s.logger.Info("UDP socket received datagram",
			slog.String("socket", addr),
			slog.String("remote", remote.String()),
			slog.Int("bytes", n),
			slog.Uint64("packet_number", packets),
		)

		out := udpResponse(reply, remote, n, packets)
		sent, err := conn.WriteTo(out, remote)
		switch {
		case err != nil:
			s.logger.Warn("UDP socket failed to respond",
				slog.String("socket", addr),
				slog.String("remote", remote.String()),
				slog.String("error", err.Error()),
			)
			s.metrics.RecordSendError("udp")
		case sent != len(out):
			s.logger.Warn("UDP reply was sent short",
				slog.String("socket", addr),
				slog.String("remote", remote.String()),
				slog.Int("intended", len(out)),
				slog.Int("sent", sent),
			)
		default:
			s.logger.Debug("UDP socket responded",
				slog.String("socket", addr),
				slog.String("remote", remote.String()),
				slog.Uint64("packet_number", packets),
			)
			s.metrics.RecordReplySent("udp")
		}
	}
}
