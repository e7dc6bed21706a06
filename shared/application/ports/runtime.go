package ports

import (
	"context"
	"encoding/json"
	"time"
)

type RuntimeRequest struct {
	ID          string            `json:"id"`
	Source      string            `json:"source"`
	Type        string            `json:"type"`
	Payload     json.RawMessage   `json:"payload"`
	Metadata    map[string]string `json:"metadata"`
	Timestamp   time.Time         `json:"timestamp"`
	Redelivered bool              `json:"redelivered"`
}

func (r *RuntimeRequest) Unmarshal(v interface{}) error {
	return json.Unmarshal(r.Payload, v)
}

// RuntimeResponse tells the runtime how the message ended. Retryable only
// matters when Success is false: the message is requeued if set and
// dropped otherwise.
type RuntimeResponse struct {
	Success   bool            `json:"success"`
	Retryable bool            `json:"retryable"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Handler processes one message.
type Handler interface {
	Handle(ctx context.Context, req RuntimeRequest) (RuntimeResponse, error)
}

// Runtime delivers messages to a Handler until ctx is cancelled or Stop is
// called. Start blocks and returns nil on either; a non-nil error means the
// transport was lost for good and the process should exit with a failure.
type Runtime interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
