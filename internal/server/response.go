package server

import (
	"fmt"
	"net"
)

const (
	// tcpResponseSize is the fixed size of every TCP reply. The formatted
	// text is written at the start and the remainder stays zero.
	tcpResponseSize = 256

	// udpBufferSize bounds both received datagrams and replies.
	udpBufferSize = 1400
)

// boundedWriter is an io.Writer over a fixed-capacity buffer. Writes past
// capacity are silently discarded, so formatting can never fail or panic on
// overlong input.
type boundedWriter struct {
	buf []byte
	n   int
}

func (w *boundedWriter) Write(p []byte) (int, error) {
	c := copy(w.buf[w.n:], p)
	w.n += c
	// Claim the full length so fmt keeps formatting past capacity.
	return len(p), nil
}

// Bytes returns the written prefix of the buffer.
func (w *boundedWriter) Bytes() []byte {
	return w.buf[:w.n]
}

// tcpResponse formats the fixed-size reply sent on every accepted
// connection: the text left-justified, the rest zero-padded.
func tcpResponse(remote net.Addr, connectionNumber uint64) []byte {
	buf := make([]byte, tcpResponseSize)
	w := &boundedWriter{buf: buf}
	fmt.Fprintf(w, "you: %s | connection_number: %d", remote, connectionNumber)
	return buf
}

// udpResponse formats a datagram reply into buf and returns the written
// prefix, which is what actually goes on the wire.
func udpResponse(buf []byte, remote net.Addr, received int, packetNumber uint64) []byte {
	w := &boundedWriter{buf: buf}
	fmt.Fprintf(w, "you: %s | bytes: %d | packet_number: %d", remote, received, packetNumber)
	return w.Bytes()
}
