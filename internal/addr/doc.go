// Package addr resolves listen-address tokens from the command line or the
// configuration file into socket addresses. It handles default ports, the
// wildcard defaults used when a transport is left unspecified, and the "-"
// sentinel that disables a transport.
package addr
