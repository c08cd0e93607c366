package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"printshop/internal/models"
	"printshop/pkg/rabbitmq"
)

// Publisher publishes raw messages onto a named queue.
type Publisher interface {
	Publish(queue string, body []byte) error
}

// Notifier delivers one notification.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// QueueNotifier hands notifications to a worker through RabbitMQ so request
// handlers never wait on SMTP.
type QueueNotifier struct {
	publisher Publisher
}

// NewQueueNotifier creates a new QueueNotifier.
func NewQueueNotifier(publisher Publisher) *QueueNotifier {
	return &QueueNotifier{publisher: publisher}
}

// Notify enqueues n on the notifications queue.
func (q *QueueNotifier) Notify(ctx context.Context, n models.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return q.publisher.Publish(rabbitmq.QueueNotifications, body)
}

// Consumer turns queued notification jobs into deliveries.
type Consumer struct {
	notifier Notifier
	timeout  time.Duration
}

// NewConsumer creates a consumer that delivers through notifier, bounding
// each delivery by timeout.
func NewConsumer(notifier Notifier, timeout time.Duration) *Consumer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Consumer{notifier: notifier, timeout: timeout}
}

// Handle processes one queued job. Jobs that can never be delivered are
// discarded; delivery failures are returned so the job is retried once.
func (c *Consumer) Handle(body []byte) error {
	var n models.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return fmt.Errorf("undecodable notification: %v: %w", err, rabbitmq.ErrDiscard)
	}
	if n.To == "" {
		return fmt.Errorf("notification for order %s has no recipient: %w", n.OrderID, rabbitmq.ErrDiscard)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.notifier.Notify(ctx, n); err != nil {
		return fmt.Errorf("failed to deliver %s for order %s: %w", n.Kind, n.OrderID, err)
	}
	log.Printf("Delivered %s notification for order %s", n.Kind, n.OrderID)
	return nil
}

// LogNotifier only logs notifications. It is used when SMTP is not configured.
type LogNotifier struct{}

// Notify logs n.
func (LogNotifier) Notify(ctx context.Context, n models.Notification) error {
	log.Printf("Email not sent (SMTP not configured): %s for order %s to %s", n.Kind, n.OrderID, n.To)
	return nil
}
