// Package events polls the chain for Federation contract events and
// yields them as an ordered, duplicate-tolerant sequence.
//
// Repeated polls with overlapping block ranges WILL redeliver —
// consumers key their processing on the emitting transaction hash or
// on the monotonic counters embedded in the payloads.
package events
