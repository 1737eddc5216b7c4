package service

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"fedra/domain/federation"
	"fedra/infra/events"
)

// Ledger is the slice of the contract client the orchestrators need.
// *ledger.Client satisfies it.
type Ledger interface {
	AnnounceService(ctx context.Context, req federation.Requirements, ep federation.Endpoint, serviceID string) (common.Hash, error)
	PlaceBid(ctx context.Context, serviceID string, price uint64, ep federation.Endpoint) (common.Hash, error)
	ChooseProvider(ctx context.Context, serviceID string, bidIndex uint64) (common.Hash, error)
	ConfirmDeployed(ctx context.Context, serviceID, federatedHost string) (common.Hash, error)

	ServiceState(ctx context.Context, serviceID string) (federation.ServiceState, error)
	Bid(ctx context.Context, serviceID string, index uint64) (federation.Bid, error)
	ServiceInfo(ctx context.Context, serviceID string, asProvider bool) (federation.ServiceInfo, error)
	IsWinner(ctx context.Context, serviceID string) (bool, error)

	Account() common.Address
}

// EventSource delivers contract events over block windows.
// *events.Cursor satisfies it.
type EventSource interface {
	Poll(ctx context.Context, kind events.Kind, opts events.PollOptions) ([]events.Event, error)
}
