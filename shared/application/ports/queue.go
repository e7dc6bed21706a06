package ports

import "context"

// QueueMessage is one outgoing job. The adapter JSON-encodes Body and copies
// ID to the broker message id, generating one when ID is empty.
type QueueMessage struct {
	Target  string // queue name
	ID      string
	Headers map[string]string
	Body    interface{}
}

// Queue is the publishing side of the download queue.
type Queue interface {
	Publish(ctx context.Context, message *QueueMessage) error

	// PublishBatch stops at the first failure.
	PublishBatch(ctx context.Context, messages []*QueueMessage) error

	Close() error
}
