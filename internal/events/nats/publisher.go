// Package nats publishes room events to a NATS subject per event type.
package nats

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/mcoot/roomhost/internal/events"
)

// Conn is the part of *nats.Conn the publisher needs
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher sends each event to the subject <namespace>.<type>
type Publisher struct {
	conn      Conn
	namespace string
}

// Connect dials the NATS server and returns a publisher with its connection
func Connect(url, namespace string) (*Publisher, *nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("roomhost"))
	if err != nil {
		return nil, nil, err
	}
	return NewPublisher(nc, namespace), nc, nil
}

// NewPublisher creates a NATS publisher on an existing connection
func NewPublisher(conn Conn, namespace string) *Publisher {
	if namespace == "" {
		namespace = events.DefaultNamespace
	}
	return &Publisher{conn: conn, namespace: namespace}
}

// Ensure Publisher implements events.Publisher
var _ events.Publisher = (*Publisher)(nil)

func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := event.Encode()
	if err != nil {
		return err
	}
	return p.conn.Publish(event.Subject(p.namespace), data)
}
