package sequence

import "sync/atomic"

// Nonce owns one account's outgoing transaction sequence.
// The ledger rejects any submission whose nonce is not exactly the
// account's expected next value, so there is exactly one Nonce per
// account and every submission goes through it.
type Nonce struct {
	next atomic.Uint64
}

// New creates a nonce owner starting from a given value.
// On fresh start → the account's current transaction count.
func New(start uint64) *Nonce {
	n := &Nonce{}
	n.next.Store(start)
	return n
}

// Current returns the value to stamp on the next submission.
func (n *Nonce) Current() uint64 {
	return n.next.Load()
}

// Advance moves past an accepted submission and returns the new
// current value. Called exactly once per accepted submission, never
// on rejection.
func (n *Nonce) Advance() uint64 {
	return n.next.Add(1)
}

// Reset sets the nonce to a specific value.
// This is ONLY used after re-reading the account state from the
// ledger, e.g. on startup.
func (n *Nonce) Reset(v uint64) {
	n.next.Store(v)
}
