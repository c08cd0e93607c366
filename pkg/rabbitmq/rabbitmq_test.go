package rabbitmq_test

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"testing"

	"printshop/pkg/rabbitmq"

	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// fakeAcknowledger records how a delivery was settled.
type fakeAcknowledger struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func TestHandleDelivery(t *testing.T) {
	tests := []struct {
		name        string
		handlerErr  error
		redelivered bool
		acked       bool
		requeued    bool
	}{
		{name: "success acks", handlerErr: nil, acked: true},
		{name: "discard drops", handlerErr: fmt.Errorf("bad json: %w", rabbitmq.ErrDiscard)},
		{name: "failure requeues", handlerErr: errors.New("smtp down"), requeued: true},
		{name: "failed redelivery drops", handlerErr: errors.New("smtp down"), redelivered: true},
		{name: "redelivery success acks", handlerErr: nil, redelivered: true, acked: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAcknowledger{}
			var got []byte
			rabbitmq.HandleDelivery(amqp.Delivery{Acknowledger: ack, DeliveryTag: 7, Redelivered: tt.redelivered, Body: []byte(`{"a":1}`)}, func(body []byte) error {
				got = body
				return tt.handlerErr
			})

			assert.Equal(t, `{"a":1}`, string(got))
			assert.Equal(t, tt.acked, ack.acked)
			assert.Equal(t, !tt.acked, ack.nacked)
			assert.Equal(t, tt.requeued, ack.requeued)
		})
	}
}

func TestPublishWithoutChannel(t *testing.T) {
	client := &rabbitmq.Client{}
	assert.Error(t, client.Publish(rabbitmq.QueueOrderEvents, []byte("{}")))
	assert.Error(t, client.Consume(rabbitmq.QueueNotifications, func([]byte) error { return nil }))
	assert.NoError(t, client.Close())
}
