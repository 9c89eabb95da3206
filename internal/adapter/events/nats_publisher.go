package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/oldiebutgoldie/marketplace/internal/core/domain"
)

const streamName = "MARKET_EVENTS"

// NATSPublisher delivers post-commit events to the notification sink
// through a persistent JetStream stream.
type NATSPublisher struct {
	js jetstream.JetStream
}

func NewNATSPublisher(nc *nats.Conn) (*NATSPublisher, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        streamName,
		Description: "Marketplace trade and inventory events",
		Subjects:    []string{"trade.events.>", "inventory.events.>"},
		Storage:     jetstream.FileStorage,
		MaxAge:      24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return &NATSPublisher{js: js}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, evt domain.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if _, err := p.js.Publish(ctx, subjectFor(evt.Type), payload); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	return nil
}

// subjectFor maps "trade.created" to "trade.events.created" and so on.
func subjectFor(typ domain.EventType) string {
	parts := strings.SplitN(string(typ), ".", 2)
	if len(parts) != 2 {
		return "marketplace.events." + string(typ)
	}
	return parts[0] + ".events." + parts[1]
}
