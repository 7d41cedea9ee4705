package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"marketplace-orders/internal/core"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_LineItemRemoved(t *testing.T) {
	w := &recordingWriter{}
	p := NewPublisher(w, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	order := &core.Order{
		ID:              17,
		UserID:          42,
		ItemTotal:       decimal.RequireFromString("10.00"),
		AdjustmentTotal: decimal.RequireFromString("8.00"),
	}
	require.NoError(t, p.PublishLineItemRemoved(context.Background(), order, 12))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "17", string(msg.Key))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, string(EventTypeLineItemRemoved), string(msg.Headers[0].Value))

	var event OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, EventTypeLineItemRemoved, event.Type)
	assert.Equal(t, int64(12), event.LineItemID)
	assert.Equal(t, int64(42), event.UserID)
	assert.True(t, event.AdjustmentTotal.Equal(order.AdjustmentTotal))
	assert.Equal(t, fixed, event.Timestamp)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, event.ID, string(msg.Headers[1].Value))
}

func TestKafkaPublisher_WriteFailure(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker unavailable")}
	p := NewPublisher(w, nil)

	err := p.PublishOrderRecalculated(context.Background(), &core.Order{ID: 3})
	assert.ErrorContains(t, err, "broker unavailable")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
