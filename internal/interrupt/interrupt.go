// Package interrupt provides a scoped "interrupts disabled" critical
// section primitive, used around two operations: the context
// provider's process-table snapshot, and synchronous disk sector writes
// during FileResource.Sync. There is no real interrupt controller in
// user-space Go; the primitive is implemented as a process-wide mutex,
// which gives the same guarantee needed here — that no other critical
// section interleaves with this one — without claiming to model
// hardware IRQ masking.
package interrupt

import "sync"

var mu sync.Mutex

// Token is returned by Disable and must be passed to its Enable method
// on every exit path of the critical section it guards, matching §5's
// "scoped acquisition" discipline: a disable-interrupts primitive
// returns a token, and the critical section must re-enable via that
// token on every exit, including error paths.
type Token struct {
	enabled bool
}

// Disable begins a critical section, blocking until any other
// in-progress critical section has re-enabled. Callers must defer
// Enable on the returned token.
func Disable() *Token {
	mu.Lock()
	return &Token{enabled: false}
}

// Enable ends the critical section started by the Token's Disable
// call. It is safe to call more than once; only the first call has an
// effect, so a deferred Enable after an explicit early Enable is a
// no-op rather than a double-unlock panic.
func (t *Token) Enable() {
	if t.enabled {
		return
	}
	t.enabled = true
	mu.Unlock()
}

// Guarded runs fn with interrupts disabled, re-enabling them
// unconditionally afterward (including on panic), for the common case
// where the critical section is a single straight-line function body.
func Guarded(fn func()) {
	tok := Disable()
	defer tok.Enable()
	fn()
}
