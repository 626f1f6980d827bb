package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
)

// PubSubDispatcher publishes mail jobs to a Pub/Sub topic.
type PubSubDispatcher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubDispatcher constructs a Pub/Sub backed mail dispatcher.
func NewPubSubDispatcher(topic *pubsub.Topic) (*PubSubDispatcher, error) {
	if topic == nil {
		return nil, errors.New("pubsub mail dispatcher: topic is required")
	}
	return &PubSubDispatcher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// DispatchMail enqueues a mail job message on the configured topic.
func (d *PubSubDispatcher) DispatchMail(ctx context.Context, message MailJobMessage) (string, error) {
	if d == nil || d.topic == nil {
		return "", errors.New("pubsub mail dispatcher: not initialised")
	}
	if strings.TrimSpace(string(message.Kind)) == "" {
		return "", errors.New("pubsub mail dispatcher: kind is required")
	}
	if strings.TrimSpace(message.OrderID) == "" {
		return "", errors.New("pubsub mail dispatcher: order id is required")
	}

	data, err := d.marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal mail job: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "kind", string(message.Kind))
	setAttr(attrs, "orderId", message.OrderID)
	setAttr(attrs, "orderNumber", message.OrderNumber)
	setAttr(attrs, "userId", message.UserID)

	result := d.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish mail job: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}

var _ Dispatcher = (*PubSubDispatcher)(nil)
