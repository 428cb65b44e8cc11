package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBookingEvent(t *testing.T) {
	msg := kafka.Message{Value: []byte(`{"type":"booking_created","booking_id":42,"field_id":7,"booking_date":"2024-05-01","occurred_at":"2024-05-01T03:00:00Z"}`)}

	event, err := DecodeBookingEvent(msg)
	require.NoError(t, err)
	assert.Equal(t, EventBookingCreated, event.Type)
	assert.Equal(t, int64(42), event.BookingID)
	assert.Equal(t, "2024-05-01", event.BookingDate)
	assert.Equal(t, time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC), event.OccurredAt)
	assert.Equal(t, "booking-42", event.Key())
}

func TestDecodeBookingEvent_Invalid(t *testing.T) {
	_, err := DecodeBookingEvent(kafka.Message{Value: []byte(`not json`)})
	assert.Error(t, err)

	_, err = DecodeBookingEvent(kafka.Message{Value: []byte(`{"booking_id":1}`)})
	assert.EqualError(t, err, "decode booking event: missing type")
}

func TestProducerAndConsumerClose(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, zerolog.Nop())
	assert.NoError(t, p.Close())

	var c *Consumer
	assert.NoError(t, c.Close())
}

func TestRetrying_CancelledContextStopsBackoff(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, zerolog.Nop())
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Retrying(3).Publish(ctx, "bookings", "booking-1", BookingEvent{Type: EventBookingCreated, BookingID: 1})
	assert.Error(t, err)
}
