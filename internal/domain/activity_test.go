package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/healthtracker/internal/domain"
	"example.com/healthtracker/internal/persistence/memory"
)

func ptr[T any](v T) *T { return &v }

func newLedger(t *testing.T) (*domain.ActivityLedger, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return domain.NewActivityLedger(store, time.UTC), store
}

func TestRecordDerivesDurationFromEnd(t *testing.T) {
	ledger, _ := newLedger(t)

	activity, err := ledger.Record(context.Background(), "user-a", domain.ActivityFields{
		ActivityType: ptr("run"),
		StartedAt:    ptr("2024-06-12T07:00:00Z"),
		EndedAt:      ptr("2024-06-12T07:10:00Z"),
	})
	require.NoError(t, err)
	require.NotNil(t, activity.DurationMinutes)
	assert.Equal(t, 10, *activity.DurationMinutes)
	assert.Equal(t, "manual", activity.Source)
	assert.Equal(t, domain.ActivityRun, activity.Kind)
}

func TestRecordKeepsExplicitDuration(t *testing.T) {
	ledger, _ := newLedger(t)

	activity, err := ledger.Record(context.Background(), "user-a", domain.ActivityFields{
		ActivityType:    ptr("Cycle"),
		StartedAt:       ptr("2024-06-12T07:00"),
		EndedAt:         ptr("2024-06-12T08:00"),
		DurationMinutes: ptr(45),
		Source:          ptr("garmin"),
	})
	require.NoError(t, err)
	assert.Equal(t, 45, *activity.DurationMinutes)
	assert.Equal(t, "garmin", activity.Source)
	assert.Equal(t, domain.ActivityCycle, activity.Kind)
}

func TestRecordValidation(t *testing.T) {
	ledger, _ := newLedger(t)

	cases := map[string]domain.ActivityFields{
		"missing kind":     {StartedAt: ptr("2024-06-12")},
		"unknown kind":     {ActivityType: ptr("skydiving"), StartedAt: ptr("2024-06-12")},
		"missing start":    {ActivityType: ptr("run")},
		"garbage start":    {ActivityType: ptr("run"), StartedAt: ptr("yesterday")},
		"end before start": {ActivityType: ptr("run"), StartedAt: ptr("2024-06-12T10:00:00Z"), EndedAt: ptr("2024-06-12T09:59:00Z")},
		"negative steps":   {ActivityType: ptr("walk"), StartedAt: ptr("2024-06-12"), Steps: ptr(-1)},
		"negative km":      {ActivityType: ptr("walk"), StartedAt: ptr("2024-06-12"), DistanceKm: ptr(-0.5)},
		"negative kcal":    {ActivityType: ptr("walk"), StartedAt: ptr("2024-06-12"), CaloriesBurned: ptr(-10.0)},
		"negative minutes": {ActivityType: ptr("walk"), StartedAt: ptr("2024-06-12"), DurationMinutes: ptr(-3)},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ledger.Record(context.Background(), "user-a", fields)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
		})
	}
}

func TestEqualStartAndEndIsValid(t *testing.T) {
	ledger, _ := newLedger(t)
	activity, err := ledger.Record(context.Background(), "user-a", domain.ActivityFields{
		ActivityType: ptr("yoga"),
		StartedAt:    ptr("2024-06-12T10:00:00Z"),
		EndedAt:      ptr("2024-06-12T10:00:00Z"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, *activity.DurationMinutes)
}

func TestListPagingAndFilters(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		kind := "run"
		if i%5 == 0 {
			kind = "swim"
		}
		_, err := ledger.Record(ctx, "user-a", domain.ActivityFields{
			ActivityType: ptr(kind),
			StartedAt:    ptr(fmt.Sprintf("2024-06-%02dT08:00:00Z", i+1)),
		})
		require.NoError(t, err)
	}
	_, err := ledger.Record(ctx, "user-b", domain.ActivityFields{ActivityType: ptr("run"), StartedAt: ptr("2024-06-01")})
	require.NoError(t, err)

	page, err := ledger.List(ctx, "user-a", domain.ActivityListParams{Page: "abc", Limit: "-4"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.Limit)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 20)
	assert.Equal(t, "2024-06-25", page.Items[0].StartedAt.Format(time.DateOnly), "newest first by default")

	page, err = ledger.List(ctx, "user-a", domain.ActivityListParams{Page: "2", Limit: "20", Sort: "asc"})
	require.NoError(t, err)
	require.Len(t, page.Items, 5)
	assert.Equal(t, "2024-06-21", page.Items[0].StartedAt.Format(time.DateOnly))

	page, err = ledger.List(ctx, "user-a", domain.ActivityListParams{Limit: "5000"})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Limit)
	assert.Len(t, page.Items, 25)

	page, err = ledger.List(ctx, "user-a", domain.ActivityListParams{ActivityType: "swim"})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)

	page, err = ledger.List(ctx, "user-a", domain.ActivityListParams{From: "2024-06-10", To: "2024-06-12"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total, "bare to date includes the whole day")

	page, err = ledger.List(ctx, "user-a", domain.ActivityListParams{ActivityType: "parkour"})
	require.NoError(t, err)
	assert.Zero(t, page.Total, "unknown kind matches nothing")
	assert.Empty(t, page.Items)

	page, err = ledger.List(ctx, "user-a", domain.ActivityListParams{From: "yesterday", To: "12/06/2024"})
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total, "unparseable bounds are ignored")
}

func TestListFallsBackOnOverflowingPage(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	_, err := ledger.Record(ctx, "user-a", domain.ActivityFields{ActivityType: ptr("walk"), StartedAt: ptr("2024-06-01")})
	require.NoError(t, err)

	for _, raw := range []string{"9223372036854775807", "461168601842738791"} {
		page, err := ledger.List(ctx, "user-a", domain.ActivityListParams{Page: raw})
		require.NoError(t, err, raw)
		assert.Equal(t, 1, page.Page, raw)
		assert.Len(t, page.Items, 1, raw)
	}
}

func TestUpdateRevalidatesDates(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	activity, err := ledger.Record(ctx, "user-a", domain.ActivityFields{
		ActivityType: ptr("walk"),
		StartedAt:    ptr("2024-06-12T08:00:00Z"),
		EndedAt:      ptr("2024-06-12T08:30:00Z"),
	})
	require.NoError(t, err)

	_, err = ledger.Update(ctx, "user-a", activity.ID, domain.ActivityFields{StartedAt: ptr("2024-06-12T09:00:00Z")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	updated, err := ledger.Update(ctx, "user-a", activity.ID, domain.ActivityFields{
		EndedAt: ptr("2024-06-12T09:00:00Z"),
		Title:   ptr("  evening walk "),
	})
	require.NoError(t, err)
	assert.Equal(t, 60, *updated.DurationMinutes)
	assert.Equal(t, "evening walk", updated.Title)
	assert.Equal(t, "user-a", updated.UserID)

	stored, err := ledger.Get(ctx, "user-a", activity.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, *stored.DurationMinutes)
}

func TestCrossOwnerAccessIsNotFound(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	activity, err := ledger.Record(ctx, "user-a", domain.ActivityFields{ActivityType: ptr("run"), StartedAt: ptr("2024-06-12")})
	require.NoError(t, err)

	_, err = ledger.Get(ctx, "user-b", activity.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = ledger.Update(ctx, "user-b", activity.ID, domain.ActivityFields{Title: ptr("mine now")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, ledger.Delete(ctx, "user-b", activity.ID), domain.ErrNotFound)

	require.NoError(t, ledger.Delete(ctx, "user-a", activity.ID))
	_, err = ledger.Get(ctx, "user-a", activity.ID)
	assert.ErrorIs(t, err, domain.ErrActivityNotFound)
}
