package service

import (
	"errors"
	"fmt"
)

var (
	// ErrDeadline reports that a wait on the ledger outlived its
	// budget without observing the expected state or event.
	ErrDeadline = errors.New("negotiation deadline exceeded")

	// ErrSessionActive reports that the domain still owns live
	// federation sessions and must not leave the federation.
	ErrSessionActive = errors.New("federation sessions still active")
)

// StepError pins a failure to the negotiation step it happened in, so
// a half-finished run is diagnosable from the error alone.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// step wraps err with the originating step name. nil passes through.
func step(name string, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Step: name, Err: err}
}
