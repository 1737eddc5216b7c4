package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fedra/deploy"
	"fedra/domain/federation"
	"fedra/infra/events"
)

// ConsumerConfig parameterizes one consumer-side negotiation.
type ConsumerConfig struct {
	Requirements federation.Requirements
	Endpoint     federation.Endpoint // announced so providers can reach us

	DomainID  int    // picks our slice of the federation subnet
	Interface string // local NIC carrying the VXLAN leg

	// Quorum is how many bids to collect before closing the
	// announcement. Zero means accept the first bid.
	Quorum uint64

	Backoff   Backoff
	ExportDir string // "" disables the CSV dump

	// Lookback widens each event poll so bids mined between polls are
	// not missed. Zero falls back to 20 blocks.
	Lookback uint64
}

func (c ConsumerConfig) lookback() uint64 {
	if c.Lookback == 0 {
		return 20
	}
	return c.Lookback
}

func (c ConsumerConfig) quorum() uint64 {
	if c.Quorum == 0 {
		return 1
	}
	return c.Quorum
}

// ConsumerResult is the outcome of a completed negotiation.
type ConsumerResult struct {
	ServiceID        string
	Winner           federation.Bid
	FederatedHost    string
	ProviderEndpoint federation.Endpoint
	CSVPath          string
}

// Consumer drives the announcing side of a federation: it announces a
// need, collects bids, closes the auction on the cheapest one, waits
// for the winner to deploy, then wires the data plane towards it.
type Consumer struct {
	ledger   Ledger
	events   EventSource
	tunnel   deploy.Tunneler
	sessions *Sessions
	rec      *Recorder
	logger   *zap.Logger
	cfg      ConsumerConfig
}

func NewConsumer(l Ledger, ev EventSource, tun deploy.Tunneler, sessions *Sessions, rec *Recorder, cfg ConsumerConfig, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		ledger:   l,
		events:   ev,
		tunnel:   tun,
		sessions: sessions,
		rec:      rec,
		logger:   logger.With(zap.String("component", "consumer")),
		cfg:      cfg,
	}
}

// Run executes one full negotiation. The returned error carries the
// step it happened in; a nil error means the service is deployed in
// the winning domain and the overlay towards it is up.
func (c *Consumer) Run(ctx context.Context) (ConsumerResult, error) {
	var res ConsumerResult

	if err := c.cfg.Requirements.Validate(); err != nil {
		return res, step("validate_requirements", err)
	}
	if err := c.cfg.Endpoint.Validate(); err != nil {
		return res, step("validate_endpoint", err)
	}

	serviceID := federation.NewServiceID(time.Now())
	res.ServiceID = serviceID

	// ----- announce -----

	if _, err := c.ledger.AnnounceService(ctx, c.cfg.Requirements, c.cfg.Endpoint, serviceID); err != nil {
		return res, step("announce_service", err)
	}
	c.sessions.Add(serviceID)
	c.rec.Mark(serviceID, "service_announced")
	c.logger.Info("service announced",
		zap.String("service_id", serviceID),
		zap.String("requirements", c.cfg.Requirements.String()))

	// ----- collect bids -----

	var bidCount uint64
	marked := false
	err := pollUntil(ctx, c.cfg.Backoff, func(ctx context.Context) (bool, error) {
		evs, err := c.events.Poll(ctx, events.KindNewBid, events.PollOptions{LastNBlocks: c.cfg.lookback()})
		if err != nil {
			return false, err
		}
		for _, ev := range evs {
			if ev.ServiceID != serviceID {
				continue
			}
			// Redelivered windows only ever raise the count.
			if ev.MaxBidIndex > bidCount {
				bidCount = ev.MaxBidIndex
			}
		}
		if bidCount > 0 && !marked {
			marked = true
			c.rec.Mark(serviceID, "bid_offer_received")
		}
		return bidCount >= c.cfg.quorum(), nil
	})
	if err != nil {
		c.sessions.Remove(serviceID)
		return res, step("await_bids", err)
	}

	bids := make([]federation.Bid, 0, bidCount)
	for i := uint64(0); i < bidCount; i++ {
		b, err := c.ledger.Bid(ctx, serviceID, i)
		if err != nil {
			c.sessions.Remove(serviceID)
			return res, step("fetch_bids", err)
		}
		bids = append(bids, b)
	}

	// ----- choose -----

	winner, err := federation.SelectWinner(bids)
	if err != nil {
		c.sessions.Remove(serviceID)
		return res, step("select_winner", err)
	}
	res.Winner = winner

	// Closing the auction is submitted exactly once; a rejection here
	// means the auction state moved under us and must be inspected,
	// not re-bid.
	if _, err := c.ledger.ChooseProvider(ctx, serviceID, winner.Index); err != nil {
		c.sessions.Remove(serviceID)
		return res, step("choose_provider", err)
	}
	c.rec.Mark(serviceID, "winner_chosen")
	c.logger.Info("provider chosen",
		zap.String("service_id", serviceID),
		zap.String("provider", winner.Provider),
		zap.Uint64("price", winner.Price),
		zap.Uint64("bid_index", winner.Index))

	// ----- await deployment -----

	err = pollUntil(ctx, c.cfg.Backoff, func(ctx context.Context) (bool, error) {
		st, err := c.ledger.ServiceState(ctx, serviceID)
		if err != nil {
			return false, err
		}
		return st == federation.Deployed, nil
	})
	if err != nil {
		c.sessions.Remove(serviceID)
		return res, step("await_deployment", err)
	}
	c.rec.Mark(serviceID, "confirm_deployment_received")

	info, err := c.ledger.ServiceInfo(ctx, serviceID, false)
	if err != nil {
		c.sessions.Remove(serviceID)
		return res, step("fetch_deployed_info", err)
	}
	res.FederatedHost = info.FederatedHost
	res.ProviderEndpoint = info.Endpoint

	// ----- data plane -----

	if c.tunnel != nil {
		tun, err := c.tunnelFor(info.Endpoint)
		if err != nil {
			return res, step("plan_tunnel", err)
		}
		if err := c.tunnel.Establish(ctx, tun); err != nil {
			return res, step("establish_tunnel", err)
		}
		c.rec.Mark(serviceID, "vxlan_established")
	}

	if c.cfg.ExportDir != "" {
		path, err := c.rec.ExportCSV(c.cfg.ExportDir)
		if err != nil {
			c.logger.Warn("csv export failed", zap.Error(err))
		} else {
			res.CSVPath = path
		}
	}

	c.logger.Info("negotiation complete",
		zap.String("service_id", serviceID),
		zap.String("federated_host", res.FederatedHost))
	return res, nil
}

// tunnelFor plans our leg of the overlay towards the provider: same
// VXLAN id and port as announced by the remote, our own per-domain
// slice of the federation subnet.
func (c *Consumer) tunnelFor(remote federation.Endpoint) (deploy.Tunnel, error) {
	slice, err := federation.SubnetForDomain(remote.FederationNet, c.cfg.DomainID, 24)
	if err != nil {
		return deploy.Tunnel{}, err
	}
	return deploy.Tunnel{
		LocalIP:     c.cfg.Endpoint.IPAddress,
		RemoteIP:    remote.IPAddress,
		Interface:   c.cfg.Interface,
		VXLANID:     remote.VXLANID,
		VXLANPort:   remote.VXLANPort,
		Subnet:      remote.FederationNet,
		IPRange:     slice,
		NetworkName: "federation-net",
	}, nil
}
