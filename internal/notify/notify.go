// Package notify publishes events generated by fired triggers to a message bus.
package notify

import "context"

// DefaultSubject is used when an action does not name one.
const DefaultSubject = "alerts.events"

// Publisher sends a JSON encoded payload to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close() error
}

// NoopPublisher is a Publisher that does nothing (used when NATS is not configured).
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, subject string, payload any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}
