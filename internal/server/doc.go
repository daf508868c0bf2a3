// Package server implements the responder core: binding the configured TCP
// and UDP addresses, running one transport loop per bound socket, formatting
// the bounded "you: ..." replies, and tearing everything down when the
// process context is cancelled. It also hosts the optional monitoring HTTP
// server.
package server
