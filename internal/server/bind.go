package server

import (
	"context"
	"log/slog"
	"net"
	"net/netip"
)

// bindTCP binds a listener for each configured TCP address. Addresses that
// fail to bind are reported and skipped; the result may be empty.
func (s *Server) bindTCP(ctx context.Context, addrs []netip.AddrPort) []net.Listener {
	var lc net.ListenConfig

	listeners := make([]net.Listener, 0, len(addrs))
	for _, ap := range addrs {
		s.logger.Debug("Binding TCP socket", slog.String("address", ap.String()))

		ln, err := lc.Listen(ctx, "tcp", ap.String())
		if err != nil {
			s.logger.Error("Failed to bind TCP socket",
				slog.String("address", ap.String()),
				slog.String("error", err.Error()),
			)
			s.metrics.RecordBindFailure("tcp")
			continue
		}

		s.logger.Debug("Successfully bound TCP socket", slog.String("address", ln.Addr().String()))
		listeners = append(listeners, ln)
	}

	return listeners
}

// bindUDP binds a socket for each configured UDP address, with the same
// skip-on-failure policy as bindTCP.
func (s *Server) bindUDP(ctx context.Context, addrs []netip.AddrPort) []net.PacketConn {
	var lc net.ListenConfig

	conns := make([]net.PacketConn, 0, len(addrs))
	for _, ap := range addrs {
		s.logger.Debug("Binding UDP socket", slog.String("address", ap.String()))

		conn, err := lc.ListenPacket(ctx, "udp", ap.String())
		if err != nil {
			s.logger.Error("Failed to bind UDP socket",
				slog.String("address", ap.String()),
				slog.String("error", err.Error()),
			)
			s.metrics.RecordBindFailure("udp")
			continue
		}

		s.logger.Debug("Successfully bound UDP socket", slog.String("address", conn.LocalAddr().String()))
		conns = append(conns, conn)
	}

	return conns
}
