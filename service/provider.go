package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"fedra/deploy"
	"fedra/domain/federation"
	"fedra/infra/events"
	"fedra/infra/journal"
	"fedra/infra/ledger"
)

// ProviderConfig parameterizes the bidding side.
type ProviderConfig struct {
	Capability federation.Capability
	Price      uint64
	Endpoint   federation.Endpoint // announced with the bid

	DomainID  int
	Interface string

	Image       string // overrides the requested service type as the workload image
	NetworkName string // docker network the workload attaches to

	Backoff   Backoff
	ExportDir string
	Lookback  uint64
}

func (c ProviderConfig) lookback() uint64 {
	if c.Lookback == 0 {
		return 20
	}
	return c.Lookback
}

func (c ProviderConfig) networkName() string {
	if c.NetworkName == "" {
		return "federation-net"
	}
	return c.NetworkName
}

// ProviderResult is the outcome of one negotiation from the bidding
// side. Won=false with a nil error is the normal losing outcome.
type ProviderResult struct {
	ServiceID     string
	Won           bool
	FederatedHost string
	CSVPath       string
}

// Provider drives the bidding side: it watches for announcements it
// can serve, bids, and — only if chosen — wires the overlay, deploys
// the workload, and confirms on the ledger.
type Provider struct {
	ledger   Ledger
	events   EventSource
	deployer deploy.Deployer
	tunnel   deploy.Tunneler
	journal  *journal.Journal
	sessions *Sessions
	rec      *Recorder
	logger   *zap.Logger
	cfg      ProviderConfig

	seen map[string]struct{} // fallback dedupe when no journal is set
}

func NewProvider(l Ledger, ev EventSource, d deploy.Deployer, tun deploy.Tunneler, j *journal.Journal, sessions *Sessions, rec *Recorder, cfg ProviderConfig, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		ledger:   l,
		events:   ev,
		deployer: d,
		tunnel:   tun,
		journal:  j,
		sessions: sessions,
		rec:      rec,
		logger:   logger.With(zap.String("component", "provider")),
		cfg:      cfg,
		seen:     make(map[string]struct{}),
	}
}

// Run handles one negotiation to completion: waits for a serviceable
// announcement, bids, and follows the auction to its outcome.
func (p *Provider) Run(ctx context.Context) (ProviderResult, error) {
	var res ProviderResult

	if err := p.cfg.Endpoint.Validate(); err != nil {
		return res, step("validate_endpoint", err)
	}

	// ----- watch for an announcement we can serve -----

	var (
		serviceID string
		req       federation.Requirements
	)
	err := pollUntil(ctx, p.cfg.Backoff, func(ctx context.Context) (bool, error) {
		evs, err := p.events.Poll(ctx, events.KindServiceAnnouncement, events.PollOptions{LastNBlocks: p.cfg.lookback()})
		if err != nil {
			return false, err
		}
		for _, ev := range evs {
			dup, err := p.isSeen(ev.TxHash.Hex())
			if err != nil {
				return false, err
			}
			if dup {
				continue
			}

			r, err := federation.ParseRequirements(ev.Requirements)
			if err != nil {
				p.logger.Warn("skipping malformed announcement",
					zap.String("tx", ev.TxHash.Hex()), zap.Error(err))
				if err := p.markSeen(ev.TxHash.Hex()); err != nil {
					return false, err
				}
				continue
			}
			st, err := p.ledger.ServiceState(ctx, ev.ServiceID)
			if err != nil && !errors.Is(err, ledger.ErrNotFound) {
				// Not marked seen: the next window re-evaluates it.
				return false, err
			}

			// The verdict is final; the event is settled either way.
			if err := p.markSeen(ev.TxHash.Hex()); err != nil {
				return false, err
			}
			if errors.Is(err, ledger.ErrNotFound) || st != federation.Open {
				continue
			}
			if !p.cfg.Capability.Satisfies(r) {
				p.logger.Info("announcement outside capability",
					zap.String("service_id", ev.ServiceID),
					zap.String("requirements", ev.Requirements))
				continue
			}

			serviceID, req = ev.ServiceID, r
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return res, step("await_announcement", err)
	}
	res.ServiceID = serviceID
	p.rec.Mark(serviceID, "announce_received")

	// ----- bid -----

	if _, err := p.ledger.PlaceBid(ctx, serviceID, p.cfg.Price, p.cfg.Endpoint); err != nil {
		return res, step("place_bid", err)
	}
	p.sessions.Add(serviceID)
	p.rec.Mark(serviceID, "bid_offer_sent")
	p.logger.Info("bid placed",
		zap.String("service_id", serviceID),
		zap.Uint64("price", p.cfg.Price))

	// ----- follow the auction -----

	err = pollUntil(ctx, p.cfg.Backoff, func(ctx context.Context) (bool, error) {
		st, err := p.ledger.ServiceState(ctx, serviceID)
		if err != nil {
			return false, err
		}
		return st != federation.Open, nil
	})
	if err != nil {
		p.sessions.Remove(serviceID)
		return res, step("await_close", err)
	}

	won, err := p.ledger.IsWinner(ctx, serviceID)
	if err != nil {
		p.sessions.Remove(serviceID)
		return res, step("check_winner", err)
	}
	if !won {
		p.rec.Mark(serviceID, "other_provider_chosen")
		p.sessions.Remove(serviceID)
		p.exportCSV(&res)
		p.logger.Info("lost the auction", zap.String("service_id", serviceID))
		return res, nil
	}
	p.rec.Mark(serviceID, "winner_received")

	// ----- deploy and confirm -----

	info, err := p.ledger.ServiceInfo(ctx, serviceID, true)
	if err != nil {
		return res, step("fetch_service_info", err)
	}

	if p.tunnel != nil {
		tun, err := p.tunnelFor(info.Endpoint)
		if err != nil {
			return res, step("plan_tunnel", err)
		}
		if err := p.tunnel.Establish(ctx, tun); err != nil {
			return res, step("establish_tunnel", err)
		}
	}

	p.rec.Mark(serviceID, "deployment_start")
	image := p.cfg.Image
	if image == "" {
		image = req.ServiceType
	}
	host, err := p.deployer.Deploy(ctx, deploy.Descriptor{
		Name:     serviceID,
		Image:    image,
		Replicas: req.Replicas,
		Network:  p.cfg.networkName(),
	})
	if err != nil {
		return res, step("deploy", err)
	}
	p.rec.Mark(serviceID, "deployment_finished")
	res.FederatedHost = host

	if _, err := p.ledger.ConfirmDeployed(ctx, serviceID, host); err != nil {
		return res, step("confirm_deployed", err)
	}
	p.rec.Mark(serviceID, "confirm_deployment_sent")
	res.Won = true

	p.exportCSV(&res)
	p.logger.Info("service deployed and confirmed",
		zap.String("service_id", serviceID),
		zap.String("federated_host", host))
	return res, nil
}

func (p *Provider) tunnelFor(remote federation.Endpoint) (deploy.Tunnel, error) {
	slice, err := federation.SubnetForDomain(remote.FederationNet, p.cfg.DomainID, 24)
	if err != nil {
		return deploy.Tunnel{}, err
	}
	return deploy.Tunnel{
		LocalIP:     p.cfg.Endpoint.IPAddress,
		RemoteIP:    remote.IPAddress,
		Interface:   p.cfg.Interface,
		VXLANID:     remote.VXLANID,
		VXLANPort:   remote.VXLANPort,
		Subnet:      remote.FederationNet,
		IPRange:     slice,
		NetworkName: p.cfg.networkName(),
	}, nil
}

func (p *Provider) isSeen(tx string) (bool, error) {
	if p.journal != nil {
		return p.journal.Seen(tx)
	}
	_, ok := p.seen[tx]
	return ok, nil
}

func (p *Provider) markSeen(tx string) error {
	if p.journal != nil {
		return p.journal.MarkSeen(tx)
	}
	p.seen[tx] = struct{}{}
	return nil
}

func (p *Provider) exportCSV(res *ProviderResult) {
	if p.cfg.ExportDir == "" {
		return
	}
	path, err := p.rec.ExportCSV(p.cfg.ExportDir)
	if err != nil {
		p.logger.Warn("csv export failed", zap.Error(err))
		return
	}
	res.CSVPath = path
}
