//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/healthtracker/internal/domain"
)

func TestRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)
	repo := NewRepository(pool)

	now := time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC)
	alice := newUser(t, ctx, repo, "alice", now)
	bob := newUser(t, ctx, repo, "bob", now)

	t.Run("duplicate users", func(t *testing.T) {
		dup := alice
		dup.ID = uuid.NewString()
		dup.Username = "someone-else"
		require.ErrorIs(t, repo.CreateUser(ctx, dup), domain.ErrDuplicateUser)

		taken, err := repo.UsernameTaken(ctx, "alice", bob.ID)
		require.NoError(t, err)
		require.True(t, taken)
		taken, err = repo.UsernameTaken(ctx, "alice", alice.ID)
		require.NoError(t, err)
		require.False(t, taken)

		bob.Username = "alice"
		require.ErrorIs(t, repo.UpdateUser(ctx, bob), domain.ErrUsernameTaken)
		bob.Username = "bob"
	})

	steps := 4000
	activity := domain.Activity{
		ID:        uuid.NewString(),
		UserID:    alice.ID,
		Kind:      domain.ActivityWalk,
		Title:     "morning walk",
		StartedAt: now,
		Steps:     &steps,
		Source:    "manual",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.CreateActivity(ctx, activity))

	t.Run("activities are scoped to their owner", func(t *testing.T) {
		stored, err := repo.GetActivity(ctx, alice.ID, activity.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		require.Equal(t, domain.ActivityWalk, stored.Kind)
		require.Equal(t, 4000, *stored.Steps)

		other, err := repo.GetActivity(ctx, bob.ID, activity.ID)
		require.NoError(t, err)
		require.Nil(t, other)

		require.ErrorIs(t, repo.DeleteActivity(ctx, bob.ID, activity.ID), domain.ErrActivityNotFound)

		missing, err := repo.GetActivity(ctx, alice.ID, "not-a-uuid")
		require.NoError(t, err)
		require.Nil(t, missing)
	})

	t.Run("list and aggregate", func(t *testing.T) {
		items, total, err := repo.ListActivities(ctx, alice.ID, domain.ActivityQuery{Limit: 10})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Len(t, items, 1)

		items, total, err = repo.ListActivities(ctx, alice.ID, domain.ActivityQuery{Kind: domain.ActivityRun, Limit: 10})
		require.NoError(t, err)
		require.Zero(t, total)
		require.Empty(t, items)

		totals, err := repo.SumActivities(ctx, alice.ID, now.Add(-time.Hour), now.Add(time.Hour))
		require.NoError(t, err)
		require.Equal(t, 1, totals.Activities)
		require.EqualValues(t, 4000, totals.Steps)

		summary, err := repo.SummarizeActivities(ctx, alice.ID, now.Add(-24*time.Hour), now.Add(time.Hour), time.UTC)
		require.NoError(t, err)
		require.Equal(t, []domain.TypeCount{{Kind: domain.ActivityWalk, Count: 1}}, summary.ByType)
		require.Len(t, summary.Daily, 1)
		require.Equal(t, "2024-03-13", summary.Daily[0].Date)
	})

	goal := domain.Goal{
		ID:          uuid.NewString(),
		UserID:      alice.ID,
		Kind:        domain.GoalSteps,
		TargetValue: 10000,
		Period:      domain.PeriodDaily,
		StartDate:   now,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, repo.CreateGoal(ctx, goal))

	t.Run("check-ins upsert per day", func(t *testing.T) {
		day := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)
		first, err := repo.UpsertCheckin(ctx, domain.Checkin{
			ID: uuid.NewString(), UserID: alice.ID, GoalID: goal.ID, Day: day, Value: 100, CreatedAt: now, UpdatedAt: now,
		})
		require.NoError(t, err)

		second, err := repo.UpsertCheckin(ctx, domain.Checkin{
			ID: uuid.NewString(), UserID: alice.ID, GoalID: goal.ID, Day: day, Value: 250, CreatedAt: now, UpdatedAt: now.Add(time.Minute),
		})
		require.NoError(t, err)
		require.Equal(t, first.ID, second.ID)
		require.Equal(t, 250.0, second.Value)

		sum, err := repo.SumCheckins(ctx, alice.ID, goal.ID, day, day.Add(24*time.Hour))
		require.NoError(t, err)
		require.Equal(t, 250.0, sum)

		_, err = repo.UpsertCheckin(ctx, domain.Checkin{
			ID: uuid.NewString(), UserID: alice.ID, GoalID: uuid.NewString(), Day: day, Value: 1, CreatedAt: now, UpdatedAt: now,
		})
		require.ErrorIs(t, err, domain.ErrGoalNotFound)
	})

	t.Run("deleting a goal removes its check-ins", func(t *testing.T) {
		require.NoError(t, repo.DeleteGoal(ctx, alice.ID, goal.ID))
		items, err := repo.ListCheckins(ctx, alice.ID, goal.ID, 30)
		require.NoError(t, err)
		require.Empty(t, items)
	})

	t.Run("writes are mirrored to the outbox", func(t *testing.T) {
		var count int
		require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE user_id=$1`, alice.ID).Scan(&count))
		// activity created, goal created, two check-in upserts, goal deleted
		require.Equal(t, 5, count)
	})
}

func newUser(t *testing.T, ctx context.Context, repo *Repository, name string, now time.Time) domain.User {
	t.Helper()
	u := domain.User{
		ID:           uuid.NewString(),
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.CreateUser(ctx, u))
	return u
}

func startPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
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
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	contents, err := os.ReadFile(resolvePath(t, "../../../db/postgres/migrations/0001_init.up.sql"))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(contents))
	require.NoError(t, err)
	return pool
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
