// Package redis publishes room events on Redis pub/sub channels.
package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mcoot/roomhost/internal/events"
)

// Publisher sends each event to the channel <namespace>.<type>
type Publisher struct {
	client    goredis.UniversalClient
	namespace string
}

// NewPublisher creates a Redis publisher on an existing client
func NewPublisher(client goredis.UniversalClient, namespace string) *Publisher {
	if namespace == "" {
		namespace = events.DefaultNamespace
	}
	return &Publisher{client: client, namespace: namespace}
}

// Ensure Publisher implements events.Publisher
var _ events.Publisher = (*Publisher)(nil)

func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	data, err := event.Encode()
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, event.Subject(p.namespace), data).Err()
}
