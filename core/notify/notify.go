// Package notify publishes change notifications after successful create,
// update and delete operations.
package notify

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/segmentio/kafka-go"

	"github.com/relabs-tech/adminkit/core"
	"github.com/relabs-tech/adminkit/core/logger"
)

// Notification describes one committed change to a model item
type Notification struct {
	Identity  string                 `json:"identity"`
	Operation core.Operation         `json:"operation"`
	PK        string                 `json:"pk"`
	Item      map[string]interface{} `json:"item,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
}

// Notifier receives notifications after the change has been committed.
// Implementations must not block the request for long; delivery failures
// are logged, never surfaced to the API client.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes every notification to the request logger. It is the
// default notifier.
type LogNotifier struct{}

// Notify implements Notifier
func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	logger.FromContext(ctx).Infof("notification: %s %s %s", n.Operation, n.Identity, n.PK)
	return nil
}

// KafkaNotifier publishes notifications to a Kafka topic. The message key
// is identity/pk so changes to one item stay in one partition.
type KafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier returns a KafkaNotifier publishing to topic via the
// given brokers
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaNotifier{writer: writer}
}

// Notify implements Notifier
func (k *KafkaNotifier) Notify(ctx context.Context, n Notification) error {
	value, err := json.Marshal(n)
	if err != nil {
		return err
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.Identity + "/" + n.PK),
		Value: value,
	})
	if err != nil {
		logger.FromContext(ctx).WithError(err).Errorf("Error 3301: could not publish notification for %s %s", n.Identity, n.PK)
	}
	return err
}

// Close closes the underlying writer
func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
