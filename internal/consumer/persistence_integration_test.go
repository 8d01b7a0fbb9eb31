//go:build integration

package consumer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestPersistenceHandlerStoresEventOnce(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	handler := NewPersistenceHandler(pool)

	userID := uuid.NewString()
	msg := Message{
		EventType:     "checkin.upserted",
		UserID:        userID,
		SchemaID:      42,
		SchemaSubject: "checkin_events-value",
		Topic:         "checkin_events",
		Partition:     0,
		Offset:        5,
		Payload:       json.RawMessage(`{"checkin_id":"c1","user_id":"` + userID + `"}`),
		Timestamp:     time.Now().UTC(),
	}

	require.NoError(t, handler.Handle(ctx, msg))
	// redelivery of the same offset is a no-op
	require.NoError(t, handler.Handle(ctx, msg))

	var (
		count   int
		subject string
		stored  string
	)
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*), MAX(schema_subject), MAX(payload::text) FROM event_log WHERE user_id = $1`, userID,
	).Scan(&count, &subject, &stored))
	require.Equal(t, 1, count)
	require.Equal(t, "checkin_events-value", subject)
	require.JSONEq(t, string(msg.Payload), stored)

	anonymous := msg
	anonymous.UserID = ""
	anonymous.Offset = 6
	require.NoError(t, handler.Handle(ctx, anonymous))
}

func setupPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("healthtracker"),
		postgrescontainer.WithUsername("tracker"),
		postgrescontainer.WithPassword("tracker"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	var pool *pgxpool.Pool
	require.Eventually(t, func() bool {
		pool, err = pgxpool.New(ctx, connStr)
		if err != nil {
			return false
		}
		if pool.Ping(ctx) != nil {
			pool.Close()
			return false
		}
		return true
	}, 30*time.Second, time.Second)
	t.Cleanup(pool.Close)

	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	contents, err := os.ReadFile(filepath.Join(filepath.Dir(file), "../../db/postgres/migrations/0001_init.up.sql"))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(contents))
	require.NoError(t, err)
	return pool
}
