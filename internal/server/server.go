package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ThomasMiz/whereyoufrom/internal/metrics"
)

// ErrNoListeners is returned by Run when not a single configured address of
// either transport could be bound. It is the only fatal bind condition.
var ErrNoListeners = errors.New("no TCP nor UDP sockets could be bound")

// Options configures the responder core. An empty address list means the
// transport is disabled; the caller is responsible for substituting the
// wildcard defaults when a transport was left unspecified.
type Options struct {
	TCP []netip.AddrPort
	UDP []netip.AddrPort
}

// Server binds the configured addresses and runs one transport loop per
// bound socket. Loops own their sockets and counters exclusively; the only
// shared state is the bound-address snapshot kept for the monitoring server.
type Server struct {
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu        sync.RWMutex
	tcpBound  []string
	udpBound  []string
	startTime time.Time
}

// New creates a server. The metrics set must be non-nil; tests pass one
// backed by a private registry.
func New(opts Options, logger *slog.Logger, m *metrics.Metrics) *Server {
	return &Server{
		opts:    opts,
		logger:  logger,
		metrics: m,
	}
}

// Run binds every configured address, serves until ctx is cancelled, and
// returns once every transport loop has wound down. A loop that tears itself
// down via the error threshold does not stop the others. Run returns
// ErrNoListeners when nothing at all could be bound.
func (s *Server) Run(ctx context.Context) error {
	tcpListeners := s.bindTCP(ctx, s.opts.TCP)
	udpConns := s.bindUDP(ctx, s.opts.UDP)

	if len(tcpListeners) == 0 && len(udpConns) == 0 {
		return ErrNoListeners
	}

	if len(s.opts.TCP) > 0 && len(tcpListeners) == 0 {
		s.logger.Warn("No TCP sockets were bound")
	}
	if len(s.opts.UDP) > 0 && len(udpConns) == 0 {
		s.logger.Warn("No UDP sockets were bound")
	}

	s.recordBound(tcpListeners, udpConns)

	var group errgroup.Group
	for _, ln := range tcpListeners {
		ln := ln
		group.Go(func() error {
			s.serveTCP(ctx, ln)
			return nil
		})
	}
	for _, conn := range udpConns {
		conn := conn
		group.Go(func() error {
			s.serveUDP(ctx, conn)
			return nil
		})
	}

	// Keep serving until cancelled even if every loop has torn itself down.
	group.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Received break signal, shutting down")
		return nil
	})

	return group.Wait()
}

// recordBound snapshots the live listener addresses for the monitoring
// endpoints and the bound-listener gauges.
func (s *Server) recordBound(tcpListeners []net.Listener, udpConns []net.PacketConn) {
	tcp := make([]string, 0, len(tcpListeners))
	for _, ln := range tcpListeners {
		tcp = append(tcp, ln.Addr().String())
	}
	udp := make([]string, 0, len(udpConns))
	for _, conn := range udpConns {
		udp = append(udp, conn.LocalAddr().String())
	}

	s.mu.Lock()
	s.tcpBound = tcp
	s.udpBound = udp
	s.startTime = time.Now()
	s.mu.Unlock()

	s.metrics.ListenersBound.WithLabelValues("tcp").Set(float64(len(tcp)))
	s.metrics.ListenersBound.WithLabelValues("udp").Set(float64(len(udp)))
}

// BoundAddresses returns the live TCP and UDP listener addresses. Both are
// empty until Run has finished binding.
func (s *Server) BoundAddresses() (tcp, udp []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.tcpBound...), append([]string{}, s.udpBound...)
}

// StartTime returns when Run finished binding, or the zero time before that.
func (s *Server) StartTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startTime
}
