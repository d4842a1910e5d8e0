package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/EvanJ0hnson/Carty/internal/cart/domain"
	"github.com/EvanJ0hnson/Carty/pkg/contracts"
	"github.com/EvanJ0hnson/Carty/pkg/kafka"
	"github.com/EvanJ0hnson/Carty/pkg/logging"
)

// Publisher emits cart events to Kafka. Publishing is best effort: a broker
// failure is logged and the cart keeps working.
type Publisher struct {
	writer *kafkago.Writer
}

// NewPublisher returns nil when the client has no brokers configured, so
// callers can wire it unconditionally.
func NewPublisher(client *kafka.Client, topic string) *Publisher {
	if !client.Enabled() {
		return nil
	}
	if topic == "" {
		topic = kafka.DefaultTopic
	}
	return &Publisher{writer: client.NewWriter(topic)}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Mutation emits one of the cart.item_* events after a successful dispatch.
func (p *Publisher) Mutation(eventType, widgetID string, itemID domain.ItemID) {
	p.publish(contracts.Event{
		EventID:   uuid.NewString(),
		WidgetID:  widgetID,
		ItemID:    string(itemID),
		CreatedAt: time.Now().UTC(),
		Type:      eventType,
	})
}

// StateSynced emits the post-sync snapshot marker with the line count.
func (p *Publisher) StateSynced(widgetID string, lines int) {
	p.publish(contracts.Event{
		EventID:   uuid.NewString(),
		WidgetID:  widgetID,
		CreatedAt: time.Now().UTC(),
		Type:      contracts.EventStateSynced,
		Payload:   map[string]any{"lines": lines},
	})
}

func (p *Publisher) publish(evt contracts.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := kafka.PublishJSON(ctx, p.writer, evt.WidgetID, evt); err != nil {
		logging.Log(logging.Fields{
			Component: "sync",
			WidgetID:  evt.WidgetID,
			Action:    evt.Type,
			Status:    "publish_failed",
			Message:   err.Error(),
		})
	}
}
