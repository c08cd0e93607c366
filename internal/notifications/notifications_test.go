package notifications_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"printshop/internal/models"
	"printshop/internal/notifications"
	"printshop/pkg/mailer"
	"printshop/pkg/rabbitmq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// MockSender is a mock implementation of notifications.Sender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(msg mailer.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

// MockNotifier is a mock implementation of notifications.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type capturePublisher struct {
	mu     sync.Mutex
	queue  string
	bodies [][]byte
}

func (p *capturePublisher) Publish(queue string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = queue
	p.bodies = append(p.bodies, body)
	return nil
}

func newNotifier(t *testing.T, sender notifications.Sender) *notifications.EmailNotifier {
	t.Helper()
	n, err := notifications.NewEmailNotifier(sender, "https://shop.example.com/")
	require.NoError(t, err)
	return n
}

func TestEmailNotifier_Render(t *testing.T) {
	e := newNotifier(t, nil)

	tests := []struct {
		name     string
		n        models.Notification
		subject  string
		contains []string
	}{
		{
			name: "order confirmation",
			n: models.Notification{
				To: "ada@example.com", Kind: models.NotifyOrderConfirmation, OrderID: "order_1",
				Status: models.StatusPending, TotalAmount: "37.97",
				OrderedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			},
			subject:  "Order Confirmation - Order #order_1",
			contains: []string{"$37.97", "Mar 1, 2026", "https://shop.example.com/orders/order_1"},
		},
		{
			name:     "status update with tracking",
			n:        models.Notification{Kind: models.NotifyStatusUpdate, OrderID: "order_2", Status: models.StatusShipped, TrackingNumber: "TRK1"},
			subject:  "Order Update - Order #order_2",
			contains: []string{"Your order has been shipped", "TRK1"},
		},
		{
			name:     "tracking defaults carrier",
			n:        models.Notification{Kind: models.NotifyTracking, OrderID: "order_3", TrackingNumber: "TRK9"},
			subject:  "Your Order Has Shipped - Tracking #TRK9",
			contains: []string{"Standard Shipping", "/orders/order_3/tracking"},
		},
		{
			name:     "custom escapes and breaks lines",
			n:        models.Notification{Kind: models.NotifyCustom, OrderID: "order_4", Subject: "Proof ready", Message: "line one\n<b>two</b>"},
			subject:  "Proof ready",
			contains: []string{"line one<br>&lt;b&gt;two&lt;/b&gt;", "Related Order:</strong> order_4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := e.Render(tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.subject, msg.Subject)
			for _, s := range tt.contains {
				assert.Contains(t, msg.HTML, s)
			}
		})
	}

	_, err := e.Render(models.Notification{Kind: "sms"})
	assert.Error(t, err)
}

func TestEmailNotifier_Notify(t *testing.T) {
	sender := new(MockSender)
	e := newNotifier(t, sender)

	sender.On("Send", mock.MatchedBy(func(m mailer.Message) bool { return m.To == "ada@example.com" })).Return(nil).Once()
	err := e.Notify(context.Background(), models.Notification{To: "ada@example.com", Kind: models.NotifyCustom, Subject: "Hi"})
	assert.NoError(t, err)

	sender.On("Send", mock.Anything).Return(errors.New("smtp down")).Once()
	err = e.Notify(context.Background(), models.Notification{To: "b@example.com", Kind: models.NotifyCustom, Subject: "Hi"})
	assert.EqualError(t, err, "smtp down")
	sender.AssertExpectations(t)
}

func TestEmailNotifier_NotifyHonoursDeadline(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything).After(time.Second).Return(nil)
	e := newNotifier(t, sender)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := e.Notify(ctx, models.Notification{To: "a@example.com", Kind: models.NotifyCustom})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueNotifierAndConsumer(t *testing.T) {
	publisher := &capturePublisher{}
	n := models.Notification{To: "ada@example.com", Kind: models.NotifyStatusUpdate, OrderID: "order_1", Status: models.StatusPrinting}

	require.NoError(t, notifications.NewQueueNotifier(publisher).Notify(context.Background(), n))
	require.Len(t, publisher.bodies, 1)
	assert.Equal(t, rabbitmq.QueueNotifications, publisher.queue)

	downstream := new(MockNotifier)
	consumer := notifications.NewConsumer(downstream, time.Second)

	downstream.On("Notify", mock.Anything, mock.MatchedBy(func(got models.Notification) bool {
		return got.To == n.To && got.OrderID == n.OrderID && got.Status == n.Status
	})).Return(nil).Once()
	assert.NoError(t, consumer.Handle(publisher.bodies[0]))

	downstream.On("Notify", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()
	err := consumer.Handle(publisher.bodies[0])
	assert.Error(t, err)
	assert.NotErrorIs(t, err, rabbitmq.ErrDiscard, "delivery failures are retried")
	downstream.AssertExpectations(t)
}

func TestConsumer_DiscardsUndeliverableJobs(t *testing.T) {
	consumer := notifications.NewConsumer(new(MockNotifier), 0)

	assert.ErrorIs(t, consumer.Handle([]byte("not json")), rabbitmq.ErrDiscard)

	body, err := json.Marshal(models.Notification{Kind: models.NotifyCustom, OrderID: "order_1"})
	require.NoError(t, err)
	assert.ErrorIs(t, consumer.Handle(body), rabbitmq.ErrDiscard)
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, notifications.LogNotifier{}.Notify(context.Background(), models.Notification{Kind: models.NotifyTracking}))
}
