package journal

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"fedra/infra/sequence"
)

// -------------------- State --------------------

type StepState uint8

const (
	StateNew StepState = iota
	StateSent
	StateAcked
)

func (s StepState) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Record --------------------

// StepRecord is one timestamped step of a negotiation run, queued
// for export.
type StepRecord struct {
	Seq       uint64    `json:"seq"`
	RunID     string    `json:"run_id"`
	Role      string    `json:"role"`
	ServiceID string    `json:"service_id"`
	Step      string    `json:"step"`
	OffsetSec float64   `json:"offset_sec"`
	At        int64     `json:"at"`
	State     StepState `json:"state"`
}

// -------------------- Journal --------------------

type Journal struct {
	db  *pebble.DB
	seq *sequence.Nonce
}

func Open(dir string) (*Journal, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // we WANT durability
	})
	if err != nil {
		return nil, err
	}

	j := &Journal{db: db, seq: sequence.New(0)}
	if err := j.recoverSeq(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// recoverSeq walks the step keyspace so restarts keep appending
// after the last written record.
func (j *Journal) recoverSeq() error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("step/"),
		UpperBound: []byte("step/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	var max uint64
	for iter.First(); iter.Valid(); iter.Next() {
		var rec StepRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return fmt.Errorf("corrupt step record at %q: %v", iter.Key(), err)
		}
		if rec.Seq > max {
			max = rec.Seq
		}
	}
	if err := iter.Error(); err != nil {
		return err
	}
	j.seq.Reset(max)
	return nil
}

// -------------------- Seen markers --------------------

// MarkSeen records that the event emitted by tx was folded.
func (j *Journal) MarkSeen(tx string) error {
	return j.db.Set(seenKey(tx), []byte{1}, pebble.Sync)
}

// Seen reports whether the event emitted by tx was already folded.
func (j *Journal) Seen(tx string) (bool, error) {
	_, closer, err := j.db.Get(seenKey(tx))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_ = closer.Close()
	return true, nil
}

// -------------------- Step outbox --------------------

// AppendStep queues a step record for export and returns its
// assigned sequence.
func (j *Journal) AppendStep(rec StepRecord) (uint64, error) {
	rec.Seq = j.seq.Advance()
	rec.State = StateNew

	val, err := json.Marshal(rec)
	if err != nil {
		return 0, err
	}
	if err := j.db.Set(stepKey(rec.Seq), val, pebble.Sync); err != nil {
		return 0, err
	}
	return rec.Seq, nil
}

// MarkSent flags a record as handed to the export sink.
func (j *Journal) MarkSent(seq uint64) error {
	return j.setState(seq, StateSent)
}

// MarkAcked flags a record as accepted by the export sink.
func (j *Journal) MarkAcked(seq uint64) error {
	return j.setState(seq, StateAcked)
}

func (j *Journal) setState(seq uint64, state StepState) error {
	rec, err := j.getStep(seq)
	if err != nil {
		return err
	}
	rec.State = state
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return j.db.Set(stepKey(seq), val, pebble.Sync)
}

func (j *Journal) getStep(seq uint64) (StepRecord, error) {
	val, closer, err := j.db.Get(stepKey(seq))
	if err != nil {
		return StepRecord{}, err
	}
	defer closer.Close()

	var rec StepRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return StepRecord{}, err
	}
	return rec, nil
}

// ScanPending iterates all records not yet acked, in sequence order.
// This is used by the exporter.
func (j *Journal) ScanPending(fn func(rec StepRecord) error) error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("step/"),
		UpperBound: []byte("step/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var rec StepRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return fmt.Errorf("corrupt step record at %q: %v", iter.Key(), err)
		}
		if rec.State == StateAcked {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// -------------------- Keys --------------------

func stepKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("step/%020d", seq))
}

func seenKey(tx string) []byte {
	return []byte("seen/" + tx)
}
