package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/tribe-origin-map/internal/config"
	"github.com/couchcryptid/tribe-origin-map/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (r *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingWriter) Close() error {
	r.closed = true
	return nil
}

func testEvent() domain.SelectionEvent {
	return domain.SelectionEvent{
		ID:               "sel-1",
		Tribe:            "Tayal-A",
		Found:            true,
		SecondaryMarkers: 2,
		Origins:          []string{"Origin-1", "Origin-2"},
		Overlays:         []string{"Tayal-A 區域"},
		SelectedAt:       time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC),
	}
}

func TestSerializeToMessage(t *testing.T) {
	event := testEvent()

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("Tayal-A"), msg.Key)
	assert.Contains(t, string(msg.Value), `"tribe":"Tayal-A"`)
	assert.Contains(t, string(msg.Value), `"secondary_markers":2`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte(selectionEventType), msg.Headers[0].Value)
	assert.Equal(t, "selected_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(event.SelectedAt.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestWriter_Publish(t *testing.T) {
	rec := &recordingWriter{}
	w := &Writer{writer: rec, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, w.Publish(context.Background(), testEvent()))
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, []byte("Tayal-A"), rec.msgs[0].Key)

	require.NoError(t, w.Close())
	assert.True(t, rec.closed)
}

func TestWriter_PublishError(t *testing.T) {
	rec := &recordingWriter{err: errors.New("broker down")}
	w := &Writer{writer: rec, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := w.Publish(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNewWriter_UsesSelectionTopic(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaSelectionTopic: "tribe-selections"}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	kw, ok := w.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.Equal(t, "tribe-selections", kw.Topic)
}
