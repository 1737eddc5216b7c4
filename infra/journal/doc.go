// Package journal is the domain's durable local memory, backed by
// pebble. It remembers which ledger events were already folded (so
// overlapping poll windows never double-count) and keeps an outbox
// of recorded negotiation steps with a NEW/SENT/ACKED lifecycle for
// the exporter job.
//
// Nothing here mirrors mutable ledger state — that is always
// re-fetched from the chain.
package journal
