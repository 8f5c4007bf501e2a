package queue

import (
	"context"
	"encoding/json"

	"github.com/paceml-cloud/paceml/internal/models"
	"gorm.io/datatypes"
)

// Message is the wire payload published by the dispatcher and consumed
// by workers. MessageID makes each delivery distinguishable on the
// broker even when the same job is re-enqueued.
type Message struct {
	MessageID string            `json:"message_id"`
	Type      models.StageType  `json:"type"`
	JobID     int64             `json:"job_id"`
	DatasetID int64             `json:"dataset_id"`
	VersionID int64             `json:"version_id"`
	ProjectID int64             `json:"project_id"`
	UserID    int64             `json:"user_id"`
	Options   datatypes.JSONMap `json:"options,omitempty"`
}

func (m *Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func Unmarshal(data []byte) (*Message, error) {
	msg := &Message{}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, err
	}
	if _, err := models.ParseStageType(msg.Type.String()); err != nil {
		return nil, err
	}
	return msg, nil
}

// Delivery is one received message plus the raw payload the broker
// needs back to acknowledge it.
type Delivery struct {
	Message *Message
	Payload []byte
}

// Queue is a durable job queue with manual acknowledgement.
// A delivery that is never acked is redelivered after a crash, giving
// at-least-once processing; consumers must tolerate duplicates.
type Queue interface {
	Publish(ctx context.Context, msg *Message) error
	// Receive blocks until a message is available or the context is
	// cancelled.
	Receive(ctx context.Context) (*Delivery, error)
	Ack(ctx context.Context, d *Delivery) error
}

// Recoverer is implemented by queues that park in-flight deliveries
// somewhere survivable; Recover requeues them at worker startup.
type Recoverer interface {
	Recover(ctx context.Context) (int, error)
}
