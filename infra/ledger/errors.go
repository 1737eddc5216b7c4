package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable marks connectivity or timeout failures talking
	// to the ledger node. Fatal to the in-flight step.
	ErrUnavailable = errors.New("ledger unavailable")

	// ErrRejected marks submissions the ledger refused: nonce
	// conflicts, illegal state transitions, unauthorized callers.
	// Never blindly retried — a blind retry risks double submission.
	ErrRejected = errors.New("ledger rejected submission")

	// ErrNotFound marks queries for services or bids that do not
	// exist on the ledger.
	ErrNotFound = errors.New("not found on ledger")
)

// rejectionMarkers are the node error fragments that mean the
// transaction itself was refused, as opposed to the node being
// unreachable.
var rejectionMarkers = []string{
	"nonce too low",
	"nonce too high",
	"invalid nonce",
	"replacement transaction underpriced",
	"already known",
	"execution reverted",
	"insufficient funds",
	"intrinsic gas too low",
}

func classifySubmit(method string, err error) error {
	msg := strings.ToLower(err.Error())
	for _, marker := range rejectionMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%s: %w: %v", method, ErrRejected, err)
		}
	}
	return fmt.Errorf("%s: %w: %v", method, ErrUnavailable, err)
}

func classifyQuery(method string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %v", method, ErrUnavailable, err)
	}
	if strings.Contains(strings.ToLower(err.Error()), "execution reverted") {
		return fmt.Errorf("%s: %w: %v", method, ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w: %v", method, ErrUnavailable, err)
}
