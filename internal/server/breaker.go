package server

// errorThreshold is the number of consecutive accept/receive failures after
// which a transport loop tears itself down.
const errorThreshold = 10

// breaker is the consecutive-failure circuit breaker shared by both
// transport loops. It is owned by a single loop and never accessed
// concurrently.
type breaker struct {
	consecutive int
}

// Success resets the failure streak.
func (b *breaker) Success() {
	b.consecutive = 0
}

// Failure records one failed operation and reports whether the threshold
// has been reached, meaning the loop must stop.
func (b *breaker) Failure() bool {
	b.consecutive++
	return b.consecutive >= errorThreshold
}
