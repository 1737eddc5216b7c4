package federation

import "errors"

// ErrNoBids is returned by SelectWinner when the bid set is empty.
var ErrNoBids = errors.New("no bids to select from")

// Bid is a provider's priced offer against an open service.
// Bids are immutable once recorded; Index is assigned by the ledger
// in submission order, zero-based.
type Bid struct {
	ServiceID string
	Index     uint64
	Provider  string
	Price     uint64
	Endpoint  Endpoint
}

// SelectWinner picks the winning bid: strictly lowest price, ties
// broken by the earliest bid index. It is a pure function of the bid
// set — re-running it on the same set always returns the same bid.
func SelectWinner(bids []Bid) (Bid, error) {
	if len(bids) == 0 {
		return Bid{}, ErrNoBids
	}

	best := bids[0]
	for _, b := range bids[1:] {
		if b.Price < best.Price {
			best = b
			continue
		}
		if b.Price == best.Price && b.Index < best.Index {
			best = b
		}
	}
	return best, nil
}
