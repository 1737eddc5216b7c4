package federation

import (
	"fmt"
	"time"
)

// ServiceState is the on-ledger lifecycle position of a service.
// The numeric values are fixed by the smart contract.
type ServiceState uint8

const (
	Open     ServiceState = 0
	Closed   ServiceState = 1
	Deployed ServiceState = 2
)

func (s ServiceState) String() string {
	switch s {
	case Open:
		return "open"
	case Closed:
		return "closed"
	case Deployed:
		return "deployed"
	default:
		return "unknown"
	}
}

// CanTransition reports whether moving from s to next is a legal
// lifecycle step. The only legal path is Open -> Closed -> Deployed;
// nothing is reversible and nothing skips.
func (s ServiceState) CanTransition(next ServiceState) bool {
	switch {
	case s == Open && next == Closed:
		return true
	case s == Closed && next == Deployed:
		return true
	default:
		return false
	}
}

// Service is one federation negotiation instance.
type Service struct {
	ID               string
	Requirements     Requirements
	State            ServiceState
	ConsumerEndpoint Endpoint
	ProviderEndpoint Endpoint

	// FederatedHost is set only after the winning provider confirms
	// deployment.
	FederatedHost string
}

// ServiceInfo is the endpoint view returned by the ledger. The
// consumer and provider sides see different halves: a provider is
// never handed consumer-only fields and vice versa.
type ServiceInfo struct {
	ID            string
	Endpoint      Endpoint
	FederatedHost string
}

// NewServiceID generates a service identifier the way announcements
// are keyed on chain: a time-based token that fits in bytes32.
func NewServiceID(now time.Time) string {
	return fmt.Sprintf("service%d", now.Unix())
}
