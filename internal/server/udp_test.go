package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime"
	"testing"
	"time"
)

func TestServeUDPResponds(t *testing.T) {
	s := newTestServer(Options{})

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.serveUDP(ctx, pc)
		close(done)
	}()

	conn, err := net.Dial("udp", pc.LocalAddr().String())
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	payloads := []string{"ping", "hello"}
	buf := make([]byte, udpBufferSize)
	for i, payload := range payloads {
		if _, err := conn.Write([]byte(payload)); err != nil {
			t.Fatalf("Datagram %d send failed: %v", i+1, err)
		}

		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("Datagram %d reply read failed: %v", i+1, err)
		}

		want := fmt.Sprintf("you: %s | bytes: %d | packet_number: %d", conn.LocalAddr(), len(payload), i+1)
		if string(buf[:n]) != want {
			t.Errorf("Datagram %d: expected reply %q, got %q", i+1, want, buf[:n])
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("serveUDP did not return after cancellation")
	}
}

// scriptedPacketConn serves a fixed sequence of receive results and records
// every reply attempt. Reading past the end of the script panics, failing
// the test. An optional writes script decides each send's result in order;
// past its end, sends succeed in full.
type scriptedPacketConn struct {
	script []func(b []byte) (int, net.Addr, error)
	writes []func(b []byte) (int, error)
	next   int
	wnext  int
	sent   [][]byte
	sentTo []net.Addr
	addr   net.Addr
}

func (c *scriptedPacketConn) ReadFrom(b []byte) (int, net.Addr, error) {
	step := c.script[c.next]
	c.next++
	return step(b)
}

func (c *scriptedPacketConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	out := append([]byte{}, b...)
	c.sent = append(c.sent, out)
	c.sentTo = append(c.sentTo, addr)
	if c.wnext < len(c.writes) {
		step := c.writes[c.wnext]
		c.wnext++
		return step(b)
	}
	return len(b), nil
}

func (c *scriptedPacketConn) Close() error                       { return nil }
func (c *scriptedPacketConn) LocalAddr() net.Addr                { return c.addr }
func (c *scriptedPacketConn) SetDeadline(t time.Time) error      { return nil }
func (c *scriptedPacketConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *scriptedPacketConn) SetWriteDeadline(t time.Time) error { return nil }

func receiveError(b []byte) (int, net.Addr, error) {
	return 0, nil, errors.New("synthetic receive failure")
}

func sendShort(b []byte) (int, error) {
	return len(b) - 1, nil
}

func sendError(b []byte) (int, error) {
	return 0, errors.New("synthetic send failure")
}

func receiveFrom(remote net.Addr, payload string) func(b []byte) (int, net.Addr, error) {
	return func(b []byte) (int, net.Addr, error) {
		return copy(b, payload), remote, nil
	}
}

func TestServeUDPErrorThreshold(t *testing.T) {
	s := newTestServer(Options{})

	pc := &scriptedPacketConn{
		addr: &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1},
	}
	for i := 0; i < errorThreshold; i++ {
		pc.script = append(pc.script, receiveError)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.serveUDP(ctx, pc)

	if pc.next != errorThreshold {
		t.Errorf("Expected loop to stop after %d consecutive failures, saw %d reads", errorThreshold, pc.next)
	}
	if len(pc.sent) != 0 {
		t.Errorf("Expected no replies from a failing socket, got %d", len(pc.sent))
	}
}

func TestServeUDPShortSendContinues(t *testing.T) {
	s := newTestServer(Options{})

	remote := &net.UDPAddr{IP: net.IPv4(203, 0, 113, 5), Port: 40000}
	pc := &scriptedPacketConn{
		addr:   &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 6969},
		writes: []func(b []byte) (int, error){sendShort},
	}

	// A reply sent short, a normal exchange, then a full failure streak. The
	// short send must not count toward the teardown threshold, so the loop
	// has to survive all errorThreshold receive failures at the end.
	pc.script = append(pc.script, receiveFrom(remote, "ping"))
	pc.script = append(pc.script, receiveFrom(remote, "hey"))
	for i := 0; i < errorThreshold; i++ {
		pc.script = append(pc.script, receiveError)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.serveUDP(ctx, pc)

	if pc.next != len(pc.script) {
		t.Fatalf("Expected the loop to consume the whole script (%d reads), saw %d", len(pc.script), pc.next)
	}

	wantReplies := []string{
		"you: 203.0.113.5:40000 | bytes: 4 | packet_number: 1",
		"you: 203.0.113.5:40000 | bytes: 3 | packet_number: 2",
	}
	if len(pc.sent) != len(wantReplies) {
		t.Fatalf("Expected %d reply attempts, got %d", len(wantReplies), len(pc.sent))
	}
	for i, want := range wantReplies {
		if string(pc.sent[i]) != want {
			t.Errorf("Reply %d: expected %q, got %q", i+1, want, pc.sent[i])
		}
	}
}

func TestServeUDPSendErrorContinues(t *testing.T) {
	s := newTestServer(Options{})

	remote := &net.UDPAddr{IP: net.IPv4(203, 0, 113, 5), Port: 40000}
	pc := &scriptedPacketConn{
		addr:   &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 6969},
		writes: []func(b []byte) (int, error){sendError},
	}

	// A failed reply is abandoned, never retried and never counted toward
	// the teardown threshold; the next datagram still gets packet number 2.
	pc.script = append(pc.script, receiveFrom(remote, "ping"))
	pc.script = append(pc.script, receiveFrom(remote, "hey"))
	for i := 0; i < errorThreshold; i++ {
		pc.script = append(pc.script, receiveError)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.serveUDP(ctx, pc)

	if pc.next != len(pc.script) {
		t.Fatalf("Expected the loop to consume the whole script (%d reads), saw %d", len(pc.script), pc.next)
	}

	if len(pc.sent) != 2 {
		t.Fatalf("Expected 2 reply attempts, got %d", len(pc.sent))
	}
	want := "you: 203.0.113.5:40000 | bytes: 3 | packet_number: 2"
	if string(pc.sent[1]) != want {
		t.Errorf("Second reply: expected %q, got %q", want, pc.sent[1])
	}
}

func TestServeUDPWatcherReleasedAfterTeardown(t *testing.T) {
	s := newTestServer(Options{})
	before := runtime.NumGoroutine()

	pc := &scriptedPacketConn{
		addr: &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1},
	}
	for i := 0; i < errorThreshold; i++ {
		pc.script = append(pc.script, receiveError)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The context stays live; the watcher must still wind down with the loop.
	s.serveUDP(ctx, pc)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("Expected the watcher goroutine to exit with the loop, still %d goroutines above baseline",
		runtime.NumGoroutine()-before)
}

func TestServeUDPCountersAcrossErrors(t *testing.T) {
	s := newTestServer(Options{})

	remote := &net.UDPAddr{IP: net.IPv4(203, 0, 113, 5), Port: 40000}
	pc := &scriptedPacketConn{
		addr: &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 6969},
	}

	// A receive, a near-threshold failure streak that a success resets,
	// then a full streak that tears the loop down. Packet numbers must
	// count successes only.
	pc.script = append(pc.script, receiveFrom(remote, "ping"))
	for i := 0; i < errorThreshold-1; i++ {
		pc.script = append(pc.script, receiveError)
	}
	pc.script = append(pc.script, receiveFrom(remote, "hey"))
	for i := 0; i < errorThreshold; i++ {
		pc.script = append(pc.script, receiveError)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.serveUDP(ctx, pc)

	if pc.next != len(pc.script) {
		t.Fatalf("Expected the loop to consume the whole script (%d reads), saw %d", len(pc.script), pc.next)
	}

	wantReplies := []string{
		"you: 203.0.113.5:40000 | bytes: 4 | packet_number: 1",
		"you: 203.0.113.5:40000 | bytes: 3 | packet_number: 2",
	}
	if len(pc.sent) != len(wantReplies) {
		t.Fatalf("Expected %d replies, got %d", len(wantReplies), len(pc.sent))
	}
	for i, want := range wantReplies {
		if string(pc.sent[i]) != want {
			t.Errorf("Reply %d: expected %q, got %q", i+1, want, pc.sent[i])
		}
		if pc.sentTo[i].String() != remote.String() {
			t.Errorf("Reply %d sent to %s, expected %s", i+1, pc.sentTo[i], remote)
		}
	}
}
