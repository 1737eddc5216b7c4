// Package service orchestrates a federation negotiation end to end —
// announcement, bidding, winner selection, deployment, and the VXLAN
// data plane between the two domains.
//
// It provides the consumer and provider state machines, decoupled
// from the ledger transport and the HTTP surface.
package service
