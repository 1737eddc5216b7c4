// Package exporter drains the step-record outbox to Kafka so the
// negotiation timelines of every domain can be collected in one
// place.
package exporter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"fedra/infra/journal"
)

// Exporter replays pending journal records into a Kafka topic.
// Records survive restarts: anything not ACKED is resent, and
// consumers dedupe on (run_id, seq).
type Exporter struct {
	journal  *journal.Journal
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	logger   *zap.Logger
}

func New(j *journal.Journal, brokers []string, topic string, logger *zap.Logger) (*Exporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Exporter{
		journal:  j,
		producer: producer,
		topic:    topic,
		interval: 250 * time.Millisecond,
		logger:   logger.With(zap.String("component", "exporter")),
	}, nil
}

// Run drains the outbox on a ticker until the context is cancelled.
func (e *Exporter) Run(ctx context.Context) {
	e.logger.Info("exporter started", zap.String("topic", e.topic))

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.drainOnce()
		}
	}
}

func (e *Exporter) drainOnce() {
	err := e.journal.ScanPending(func(rec journal.StepRecord) error {
		if err := e.journal.MarkSent(rec.Seq); err != nil {
			return err
		}

		payload, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		msg := &sarama.ProducerMessage{
			Topic: e.topic,
			Key:   sarama.StringEncoder(rec.RunID),
			Value: sarama.ByteEncoder(payload),
		}
		if _, _, err := e.producer.SendMessage(msg); err != nil {
			// Stays SENT; the next tick retries it.
			e.logger.Warn("publish failed", zap.Uint64("seq", rec.Seq), zap.Error(err))
			return nil
		}

		return e.journal.MarkAcked(rec.Seq)
	})
	if err != nil {
		e.logger.Warn("outbox scan failed", zap.Error(err))
	}
}

func (e *Exporter) Close() error {
	return e.producer.Close()
}
