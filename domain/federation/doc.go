// Package federation holds the pure domain model of a service
// federation negotiation: services and their lifecycle, provider
// bids, requirement and endpoint wire formats, and deterministic
// winner selection.
//
// Nothing in this package talks to the ledger. The same inputs give
// the same outputs on every domain, which is what lets two untrusted
// peers converge on identical decisions by reading the same chain.
package federation
