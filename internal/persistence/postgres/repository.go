// Package postgres implements the domain repositories on PostgreSQL with a transactional outbox.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/healthtracker/internal/domain"
	"example.com/healthtracker/internal/events"
)

// Repository provides Postgres-backed persistence for every ledger plus outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var (
	_ domain.ActivityRepository = (*Repository)(nil)
	_ domain.GoalRepository     = (*Repository)(nil)
	_ domain.CheckinRepository  = (*Repository)(nil)
	_ domain.UserRepository     = (*Repository)(nil)
)

// ownerTx runs fn in a transaction scoped to userID so row-level security policies apply.
func (r *Repository) ownerTx(ctx context.Context, userID string, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.user_id', $1, true)", userID); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, userID, aggregateID, eventType string, occurredAt time.Time, payload any) error {
	route, err := events.RouteFor(eventType)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	dedupeKey := fmt.Sprintf("%s:%s:%d", aggregateID, eventType, occurredAt.UnixNano())

	const stmt = `INSERT INTO outbox (user_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		userID,
		route.AggregateType,
		aggregateID,
		eventType,
		route.Topic,
		route.SchemaSubject,
		userID,
		body,
		dedupeKey,
	)
	return err
}

// validID filters out ids Postgres would reject as malformed uuids; such ids can never match a row.
func validID(ids ...string) bool {
	for _, id := range ids {
		if uuid.Validate(id) != nil {
			return false
		}
	}
	return true
}

// localtimePath is where the process zone is linked when TZ is unset.
var localtimePath = "/etc/localtime"

// zoneName maps loc to a zone Postgres understands, so daily buckets match the windows
// computed in Go. Local resolves the way the Go runtime does (TZ, then /etc/localtime);
// zones without an IANA name fall back to their current UTC offset.
func zoneName(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	name := loc.String()
	if loc != time.Local && name != "Local" {
		if _, err := time.LoadLocation(name); err == nil && name != "" {
			return name
		}
		return posixOffset(loc)
	}

	if tz, ok := os.LookupEnv("TZ"); ok {
		tz = strings.TrimPrefix(tz, ":")
		if tz == "" || tz == "UTC" {
			return "UTC"
		}
		if _, err := time.LoadLocation(tz); err == nil && tz != "Local" {
			return tz
		}
	}
	if target, err := os.Readlink(localtimePath); err == nil {
		if _, name, found := strings.Cut(target, "zoneinfo/"); found {
			if _, err := time.LoadLocation(name); err == nil {
				return name
			}
		}
	}
	return posixOffset(loc)
}

// posixOffset renders loc's current offset as a POSIX zone; POSIX counts west as positive.
func posixOffset(loc *time.Location) string {
	_, offset := time.Now().In(loc).Zone()
	sign := '-'
	if offset < 0 {
		sign, offset = '+', -offset
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, offset/3600, offset%3600/60)
}
