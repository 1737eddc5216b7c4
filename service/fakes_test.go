package service

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"fedra/deploy"
	"fedra/domain/federation"
	"fedra/infra/events"
)

// fakeLedger scripts the contract client with per-method funcs.
// Unset methods succeed with zero values.
type fakeLedger struct {
	announce func(serviceID string, req federation.Requirements, ep federation.Endpoint) error
	placeBid func(serviceID string, price uint64) error
	choose   func(serviceID string, bidIndex uint64) error
	confirm  func(serviceID, host string) error

	state    func(serviceID string) (federation.ServiceState, error)
	bid      func(serviceID string, index uint64) (federation.Bid, error)
	info     func(serviceID string, asProvider bool) (federation.ServiceInfo, error)
	isWinner func(serviceID string) (bool, error)
}

func (f *fakeLedger) AnnounceService(_ context.Context, req federation.Requirements, ep federation.Endpoint, serviceID string) (common.Hash, error) {
	if f.announce != nil {
		return common.Hash{}, f.announce(serviceID, req, ep)
	}
	return common.Hash{}, nil
}

func (f *fakeLedger) PlaceBid(_ context.Context, serviceID string, price uint64, _ federation.Endpoint) (common.Hash, error) {
	if f.placeBid != nil {
		return common.Hash{}, f.placeBid(serviceID, price)
	}
	return common.Hash{}, nil
}

func (f *fakeLedger) ChooseProvider(_ context.Context, serviceID string, bidIndex uint64) (common.Hash, error) {
	if f.choose != nil {
		return common.Hash{}, f.choose(serviceID, bidIndex)
	}
	return common.Hash{}, nil
}

func (f *fakeLedger) ConfirmDeployed(_ context.Context, serviceID, host string) (common.Hash, error) {
	if f.confirm != nil {
		return common.Hash{}, f.confirm(serviceID, host)
	}
	return common.Hash{}, nil
}

func (f *fakeLedger) ServiceState(_ context.Context, serviceID string) (federation.ServiceState, error) {
	if f.state != nil {
		return f.state(serviceID)
	}
	return federation.Open, nil
}

func (f *fakeLedger) Bid(_ context.Context, serviceID string, index uint64) (federation.Bid, error) {
	if f.bid != nil {
		return f.bid(serviceID, index)
	}
	return federation.Bid{ServiceID: serviceID, Index: index}, nil
}

func (f *fakeLedger) ServiceInfo(_ context.Context, serviceID string, asProvider bool) (federation.ServiceInfo, error) {
	if f.info != nil {
		return f.info(serviceID, asProvider)
	}
	return federation.ServiceInfo{ID: serviceID}, nil
}

func (f *fakeLedger) IsWinner(_ context.Context, serviceID string) (bool, error) {
	if f.isWinner != nil {
		return f.isWinner(serviceID)
	}
	return false, nil
}

func (f *fakeLedger) Account() common.Address { return common.Address{} }

// fakeEvents answers polls through a hook. Announce runs before the
// first poll on the same goroutine, so hooks can close over state the
// ledger fake captured.
type fakeEvents struct {
	poll func(kind events.Kind) ([]events.Event, error)
}

func (f *fakeEvents) Poll(_ context.Context, kind events.Kind, _ events.PollOptions) ([]events.Event, error) {
	if f.poll == nil {
		return nil, nil
	}
	return f.poll(kind)
}

type fakeDeployer struct {
	calls int
	host  string
	err   error
	last  deploy.Descriptor
}

func (f *fakeDeployer) Deploy(_ context.Context, d deploy.Descriptor) (string, error) {
	f.calls++
	f.last = d
	if f.err != nil {
		return "", f.err
	}
	return f.host, nil
}

func (f *fakeDeployer) Teardown(context.Context, string) error { return nil }

type fakeTunneler struct {
	established int
	last        deploy.Tunnel
	err         error
}

func (f *fakeTunneler) Establish(_ context.Context, t deploy.Tunnel) error {
	f.established++
	f.last = t
	return f.err
}

func (f *fakeTunneler) Teardown(context.Context, deploy.Tunnel) error { return nil }
