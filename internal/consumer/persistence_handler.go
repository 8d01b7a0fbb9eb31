package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const insertEventLog = `INSERT INTO event_log
        (event_type, user_id, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
    VALUES ($1, NULLIF($2::text, '')::uuid, $3, $4, $5, $6, $7, $8, $9)
    ON CONFLICT (topic, partition, record_offset) DO NOTHING`

// PersistenceHandler appends consumed change events to event_log.
type PersistenceHandler struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPersistenceHandler(pool *pgxpool.Pool) *PersistenceHandler {
	return &PersistenceHandler{pool: pool, now: time.Now}
}

// Handle stores msg once per (topic, partition, offset); redeliveries are no-ops.
func (h *PersistenceHandler) Handle(ctx context.Context, msg Message) error {
	receivedAt := msg.Timestamp
	if receivedAt.IsZero() {
		receivedAt = h.now().UTC()
	}

	if _, err := h.pool.Exec(ctx, insertEventLog,
		msg.EventType, msg.UserID, msg.SchemaID, msg.SchemaSubject,
		msg.Topic, msg.Partition, msg.Offset, msg.Payload, receivedAt,
	); err != nil {
		return fmt.Errorf("append %s at %s/%d/%d: %w", msg.EventType, msg.Topic, msg.Partition, msg.Offset, err)
	}
	return nil
}
