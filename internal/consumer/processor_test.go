package consumer

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestProcessorCommitsOnSuccess(t *testing.T) {
	payload := []byte(`{"activity_id":"abc"}`)
	msg := record("activity_events", 10, 42, payload, "activity.created", "user-1")

	reader := &stubReader{messages: []kafka.Message{msg}}
	handler := &stubHandler{}

	err := NewProcessor(reader, handler, WithLogger(quietLogger())).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, "activity.created", handler.last.EventType)
	require.Equal(t, "user-1", handler.last.UserID)
	require.Equal(t, "activity_events-value", handler.last.SchemaSubject)
	require.Equal(t, 42, handler.last.SchemaID)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	msg := record("goal_events", 20, 99, []byte(`{"goal_id":"def"}`), "goal.updated", "user-2")

	reader := &stubReader{messages: []kafka.Message{msg}}
	handler := &stubHandler{err: errors.New("boom")}
	failures := eventsCounter.WithLabelValues("goal_events", "goal.updated", resultHandlerError)
	before := testutil.ToFloat64(failures)

	err := NewProcessor(reader, handler, WithLogger(quietLogger())).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
	require.InDelta(t, before+1, testutil.ToFloat64(failures), 0.0001)
}

func TestProcessorCommitsUndecodableRecords(t *testing.T) {
	tooShort := kafka.Message{Topic: "checkin_events", Value: []byte{0, 1}}
	noHeader := record("checkin_events", 2, 1, []byte(`{}`), "", "")
	noHeader.Headers = nil
	badJSON := record("checkin_events", 3, 1, []byte(`{oops`), "checkin.upserted", "u")

	reader := &stubReader{messages: []kafka.Message{tooShort, noHeader, badJSON}}
	handler := &stubHandler{}
	reasons := []string{"short_record", "missing_event_type", "invalid_json"}
	before := make(map[string]float64, len(reasons))
	for _, reason := range reasons {
		before[reason] = testutil.ToFloat64(decodeErrorCounter.WithLabelValues("checkin_events", reason))
	}

	err := NewProcessor(reader, handler, WithLogger(quietLogger())).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Zero(t, handler.calls)
	require.Equal(t, 3, reader.commitCalls)
	for _, reason := range reasons {
		require.InDelta(t, before[reason]+1, testutil.ToFloat64(decodeErrorCounter.WithLabelValues("checkin_events", reason)), 0.0001, reason)
	}
}

func TestDecodeRejectsUnknownMagicByte(t *testing.T) {
	msg := record("activity_events", 1, 3, []byte(`{}`), "activity.created", "u")
	msg.Value[0] = 1

	_, err := decodeMessage(msg)
	require.ErrorIs(t, err, errMagicByte)
	require.Equal(t, "magic_byte", decodeReason(err))
}

func TestProcessorRetriesFetchErrors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	reader := &failingReader{err: errors.New("broker unavailable")}
	err := NewProcessor(reader, &stubHandler{}, WithLogger(quietLogger())).Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, reader.calls)
}

func TestProcessorStopsWhenContextIsDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewProcessor(&stubReader{}, &stubHandler{}).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func record(topic string, offset int64, schemaID uint32, payload []byte, eventType, userID string) kafka.Message {
	value := make([]byte, 5+len(payload))
	binary.BigEndian.PutUint32(value[1:5], schemaID)
	copy(value[5:], payload)

	return kafka.Message{
		Topic:  topic,
		Offset: offset,
		Time:   time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC),
		Value:  value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "user_id", Value: []byte(userID)},
			{Key: "schema_subject", Value: []byte(topic + "-value")},
		},
	}
}

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return log.NewEntry(logger)
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

type failingReader struct {
	err   error
	calls int
}

func (r *failingReader) FetchMessage(context.Context) (kafka.Message, error) {
	r.calls++
	return kafka.Message{}, r.err
}

func (r *failingReader) CommitMessages(context.Context, ...kafka.Message) error { return nil }

func (r *failingReader) Close() error { return nil }

type stubHandler struct {
	calls int
	err   error
	last  Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}
