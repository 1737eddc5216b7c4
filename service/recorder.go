package service

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fedra/infra/journal"
)

type mark struct {
	step   string
	offset float64
}

// Recorder timestamps the steps of one negotiation run, relative to
// the moment the run started. Every mark is mirrored into the journal
// outbox for export; the in-memory copy feeds the CSV dump.
type Recorder struct {
	mu      sync.Mutex
	runID   string
	role    string
	start   time.Time
	journal *journal.Journal
	logger  *zap.Logger
	marks   []mark
}

// NewRecorder starts the clock. journal may be nil when no outbox is
// configured.
func NewRecorder(role string, j *journal.Journal, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		runID:   uuid.NewString(),
		role:    role,
		start:   time.Now(),
		journal: j,
		logger:  logger.With(zap.String("component", "recorder")),
	}
}

func (r *Recorder) RunID() string { return r.runID }

// Mark records one step. Journal failures are logged and swallowed:
// bookkeeping must never abort a negotiation.
func (r *Recorder) Mark(serviceID, step string) {
	now := time.Now()
	offset := now.Sub(r.start).Seconds()

	r.mu.Lock()
	r.marks = append(r.marks, mark{step: step, offset: offset})
	r.mu.Unlock()

	r.logger.Info("step",
		zap.String("run_id", r.runID),
		zap.String("service_id", serviceID),
		zap.String("step", step),
		zap.Float64("offset_sec", offset))

	if r.journal == nil {
		return
	}
	_, err := r.journal.AppendStep(journal.StepRecord{
		RunID:     r.runID,
		Role:      r.role,
		ServiceID: serviceID,
		Step:      step,
		OffsetSec: offset,
		At:        now.Unix(),
	})
	if err != nil {
		r.logger.Warn("journal append failed", zap.String("step", step), zap.Error(err))
	}
}

// ExportCSV dumps the run's steps under dir as
// federation_events_<role>_test_<n>.csv, picking the first free n so
// consecutive runs on the same host line up side by side.
func (r *Recorder) ExportCSV(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	var path string
	for n := 1; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("federation_events_%s_test_%d.csv", r.role, n))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			path = candidate
			break
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"step", "timestamp"}); err != nil {
		return "", err
	}

	r.mu.Lock()
	marks := append([]mark(nil), r.marks...)
	r.mu.Unlock()

	for _, m := range marks {
		if err := w.Write([]string{m.step, strconv.FormatFloat(m.offset, 'f', 4, 64)}); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}
