package exporter

import (
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"fedra/infra/journal"
)

type fakeProducer struct {
	sarama.SyncProducer
	sent []*sarama.ProducerMessage
	fail bool
}

func (f *fakeProducer) SendMessage(m *sarama.ProducerMessage) (int32, int64, error) {
	if f.fail {
		return 0, 0, errors.New("broker down")
	}
	f.sent = append(f.sent, m)
	return 0, 0, nil
}

func (f *fakeProducer) Close() error { return nil }

func testExporter(t *testing.T, fail bool) (*Exporter, *journal.Journal, *fakeProducer) {
	t.Helper()
	j, err := journal.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })

	p := &fakeProducer{fail: fail}
	return &Exporter{
		journal:  j,
		producer: p,
		topic:    "federation.steps",
		interval: time.Millisecond,
		logger:   zap.NewNop(),
	}, j, p
}

func appendStep(t *testing.T, j *journal.Journal, step string) uint64 {
	t.Helper()
	seq, err := j.AppendStep(journal.StepRecord{
		RunID: "run-1", Role: "consumer", ServiceID: "service1",
		Step: step, At: time.Now().Unix(),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return seq
}

func TestDrainPublishesAndAcks(t *testing.T) {
	e, j, p := testExporter(t, false)
	appendStep(t, j, "service_announced")
	appendStep(t, j, "winner_chosen")

	e.drainOnce()

	if len(p.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(p.sent))
	}
	if p.sent[0].Topic != "federation.steps" {
		t.Errorf("topic: got %q", p.sent[0].Topic)
	}

	// Everything acked: a second drain publishes nothing.
	e.drainOnce()
	if len(p.sent) != 2 {
		t.Errorf("acked records republished: %d messages", len(p.sent))
	}
}

func TestDrainRetriesAfterBrokerFailure(t *testing.T) {
	e, j, p := testExporter(t, true)
	appendStep(t, j, "service_announced")

	e.drainOnce()
	if len(p.sent) != 0 {
		t.Fatal("nothing should be recorded as sent while the broker is down")
	}

	p.fail = false
	e.drainOnce()
	if len(p.sent) != 1 {
		t.Fatalf("expected the record to be resent, got %d messages", len(p.sent))
	}
}
