package events

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"fedra/infra/ledger"
)

// ChainReader is the slice of the node API the cursor needs.
// *ethclient.Client satisfies it.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// PollOptions selects the block window of one poll.
// Zero value means "from the latest block onward".
type PollOptions struct {
	// FromBlock polls from an absolute block number when non-zero.
	FromBlock uint64
	// LastNBlocks looks back a fixed distance from the head when
	// non-zero. Takes precedence over FromBlock.
	LastNBlocks uint64
}

// Cursor polls the contract's event log over block ranges.
type Cursor struct {
	chain  ChainReader
	abi    abi.ABI
	addr   common.Address
	logger *zap.Logger
}

func New(chain ChainReader, contract common.Address, logger *zap.Logger) (*Cursor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	parsed, err := ledger.FederationABI()
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %v", err)
	}
	return &Cursor{
		chain:  chain,
		abi:    parsed,
		addr:   contract,
		logger: logger.With(zap.String("component", "events")),
	}, nil
}

// Poll returns all events of one kind in the window, in ledger order
// (ascending block, then log position within the block). Overlapping
// windows redeliver; callers fold idempotently.
func (c *Cursor) Poll(ctx context.Context, kind Kind, opts PollOptions) ([]Event, error) {
	name := kind.contractName()
	if name == "" {
		return nil, fmt.Errorf("unknown event kind %d", kind)
	}

	head, err := c.chain.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("head block: %w: %v", ledger.ErrUnavailable, err)
	}

	from := head
	switch {
	case opts.LastNBlocks > 0:
		if opts.LastNBlocks < head {
			from = head - opts.LastNBlocks
		} else {
			from = 0
		}
	case opts.FromBlock > 0:
		from = opts.FromBlock
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		Addresses: []common.Address{c.addr},
		Topics:    [][]common.Hash{{c.abi.Events[name].ID}},
	}
	logs, err := c.chain.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w: %v", name, ledger.ErrUnavailable, err)
	}

	out := make([]Event, 0, len(logs))
	for _, lg := range logs {
		ev, err := c.decode(kind, lg)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Block != out[j].Block {
			return out[i].Block < out[j].Block
		}
		return out[i].LogIndex < out[j].LogIndex
	})
	return out, nil
}

func (c *Cursor) decode(kind Kind, lg types.Log) (Event, error) {
	name := kind.contractName()
	vals, err := c.abi.Unpack(name, lg.Data)
	if err != nil {
		return Event{}, fmt.Errorf("decode %s in tx %s: %v", name, lg.TxHash.Hex(), err)
	}

	ev := Event{
		Kind:     kind,
		TxHash:   lg.TxHash,
		Block:    lg.BlockNumber,
		LogIndex: lg.Index,
	}

	switch kind {
	case KindOperatorRegistered, KindOperatorRemoved:
		addr, ok := vals[0].(common.Address)
		if !ok {
			return Event{}, fmt.Errorf("decode %s: unexpected payload shape", name)
		}
		ev.Operator = addr.Hex()

	case KindServiceAnnouncement:
		req, ok1 := vals[0].([]byte)
		id, ok2 := vals[1].([32]byte)
		if !ok1 || !ok2 {
			return Event{}, fmt.Errorf("decode %s: unexpected payload shape", name)
		}
		ev.Requirements = ledger.TrimBytes(req)
		ev.ServiceID = ledger.FromBytes32(id)

	case KindNewBid:
		id, ok1 := vals[0].([32]byte)
		max, ok2 := vals[1].(*big.Int)
		if !ok1 || !ok2 {
			return Event{}, fmt.Errorf("decode %s: unexpected payload shape", name)
		}
		ev.ServiceID = ledger.FromBytes32(id)
		ev.MaxBidIndex = max.Uint64()

	case KindAnnouncementClosed, KindServiceDeployed:
		id, ok := vals[0].([32]byte)
		if !ok {
			return Event{}, fmt.Errorf("decode %s: unexpected payload shape", name)
		}
		ev.ServiceID = ledger.FromBytes32(id)

	default:
		return Event{}, fmt.Errorf("unknown event kind %d", kind)
	}
	return ev, nil
}
