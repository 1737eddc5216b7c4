// fedtail tails the federation step topic and prints one line per
// negotiation step, across every domain publishing to the cluster.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/segmentio/kafka-go"

	"fedra/infra/journal"
)

func main() {
	brokers := flag.String("brokers", "localhost:9092", "comma-separated Kafka brokers")
	topic := flag.String("topic", "federation.steps", "step topic")
	group := flag.String("group", "fedtail", "consumer group id")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: strings.Split(*brokers, ","),
		Topic:   *topic,
		GroupID: *group,
	})
	defer r.Close()

	for {
		msg, err := r.ReadMessage(ctx)
		if errors.Is(err, context.Canceled) {
			return
		}
		if err != nil {
			log.Fatalf("read: %v", err)
		}

		var rec journal.StepRecord
		if err := json.Unmarshal(msg.Value, &rec); err != nil {
			log.Printf("skipping undecodable record at offset %d: %v", msg.Offset, err)
			continue
		}
		fmt.Printf("%-10s %-22s %-32s %8.3fs run=%s\n",
			rec.Role, rec.ServiceID, rec.Step, rec.OffsetSec, rec.RunID)
	}
}
