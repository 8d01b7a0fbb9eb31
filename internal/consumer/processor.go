// Package consumer reads change events back off Kafka and records them in the event log.
package consumer

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

const (
	fetchRetryDelay = time.Second
	// 0x00 magic byte followed by a big-endian uint32 schema id
	wireHeaderLen = 5
)

var (
	errShortRecord      = errors.New("record shorter than the wire header")
	errMagicByte        = errors.New("unknown magic byte")
	errMissingEventType = errors.New("missing event_type header")
	errInvalidJSON      = errors.New("payload is not valid JSON")
)

// Reader is the subset of *kafka.Reader the processor drives.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded change events.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is a decoded change event together with its Kafka coordinates.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	EventType     string
	UserID        string
	SchemaSubject string
	SchemaID      int
	Payload       json.RawMessage
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *log.Entry) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// Processor fetches records, decodes them and hands them to a Handler.
// A record is committed once handled or once it proves undecodable; handler failures stay uncommitted.
type Processor struct {
	reader  Reader
	handler Handler
	logger  *log.Entry
}

// NewProcessor constructs a Processor.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		logger:  log.WithField("component", "consumer"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run blocks until ctx is cancelled or the reader reports cancellation.
func (p *Processor) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		record, err := p.reader.FetchMessage(ctx)
		if errors.Is(err, context.Canceled) {
			return err
		}
		if err != nil {
			p.logger.Errorf("fetch error: %v", err)
			if !sleep(ctx, fetchRetryDelay) {
				break
			}
			continue
		}
		p.process(ctx, record)
	}
	return ctx.Err()
}

func (p *Processor) process(ctx context.Context, record kafka.Message) {
	logger := p.logger.WithFields(log.Fields{
		"topic":     record.Topic,
		"partition": record.Partition,
		"offset":    record.Offset,
	})

	msg, err := decodeMessage(record)
	if err != nil {
		logger.Warnf("dropping undecodable record: %v", err)
		recordDecodeError(record.Topic, err)
		p.commit(ctx, logger, record)
		return
	}

	if err := p.handler.Handle(ctx, msg); err != nil {
		logger.WithField("event_type", msg.EventType).Errorf("handler error: %v", err)
		recordResult(msg, resultHandlerError)
		return
	}
	if p.commit(ctx, logger, record) {
		recordResult(msg, resultHandled)
	}
}

func (p *Processor) commit(ctx context.Context, logger *log.Entry, record kafka.Message) bool {
	if err := p.reader.CommitMessages(ctx, record); err != nil {
		logger.Errorf("commit error: %v", err)
		return false
	}
	return true
}

func decodeMessage(record kafka.Message) (Message, error) {
	if len(record.Value) < wireHeaderLen {
		return Message{}, errShortRecord
	}
	if record.Value[0] != 0 {
		return Message{}, errMagicByte
	}

	headers := make(map[string]string, len(record.Headers))
	for _, h := range record.Headers {
		headers[h.Key] = string(h.Value)
	}
	eventType := headers["event_type"]
	if eventType == "" {
		return Message{}, errMissingEventType
	}

	payload := json.RawMessage(append([]byte(nil), record.Value[wireHeaderLen:]...))
	if !json.Valid(payload) {
		return Message{}, errInvalidJSON
	}

	return Message{
		Topic:         record.Topic,
		Partition:     record.Partition,
		Offset:        record.Offset,
		Timestamp:     record.Time,
		EventType:     eventType,
		UserID:        headers["user_id"],
		SchemaSubject: headers["schema_subject"],
		SchemaID:      int(binary.BigEndian.Uint32(record.Value[1:wireHeaderLen])),
		Payload:       payload,
	}, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
