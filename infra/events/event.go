package events

import "github.com/ethereum/go-ethereum/common"

// Kind is the closed set of Federation contract events. Handling is
// exhaustive: decode fails loudly on anything outside this set.
type Kind uint8

const (
	KindOperatorRegistered Kind = iota
	KindOperatorRemoved
	KindServiceAnnouncement
	KindNewBid
	KindAnnouncementClosed
	KindServiceDeployed
)

// contractName maps a kind to the event name in the contract ABI.
func (k Kind) contractName() string {
	switch k {
	case KindOperatorRegistered:
		return "OperatorRegistered"
	case KindOperatorRemoved:
		return "OperatorRemoved"
	case KindServiceAnnouncement:
		return "ServiceAnnouncement"
	case KindNewBid:
		return "NewBid"
	case KindAnnouncementClosed:
		return "ServiceAnnouncementClosed"
	case KindServiceDeployed:
		return "ServiceDeployedEvent"
	default:
		return ""
	}
}

func (k Kind) String() string {
	if n := k.contractName(); n != "" {
		return n
	}
	return "UnknownEvent"
}

// Event is one decoded contract emission. Kind-specific payload
// fields are zero unless named for the kind:
//
//	ServiceAnnouncement → ServiceID, Requirements
//	NewBid              → ServiceID, MaxBidIndex
//	AnnouncementClosed  → ServiceID
//	ServiceDeployed     → ServiceID
//	Operator*           → Operator
type Event struct {
	Kind     Kind
	TxHash   common.Hash
	Block    uint64
	LogIndex uint

	ServiceID    string
	Requirements string
	MaxBidIndex  uint64
	Operator     string
}
