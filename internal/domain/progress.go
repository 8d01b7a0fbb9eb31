package domain

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultProgressConcurrency = 4

// Totals are the summed activity fields over a window.
type Totals struct {
	Activities      int
	Steps           int64
	CaloriesBurned  float64
	DistanceKm      float64
	DurationMinutes int64
}

// Add folds one activity into the totals; absent fields count as zero.
func (t *Totals) Add(a Activity) {
	t.Activities++
	if a.Steps != nil {
		t.Steps += int64(*a.Steps)
	}
	if a.CaloriesBurned != nil {
		t.CaloriesBurned += *a.CaloriesBurned
	}
	if a.DistanceKm != nil {
		t.DistanceKm += *a.DistanceKm
	}
	if a.DurationMinutes != nil {
		t.DurationMinutes += int64(*a.DurationMinutes)
	}
}

// Field selects the aggregate a goal of the given kind is measured against.
func (t Totals) Field(kind GoalKind) (float64, error) {
	switch kind {
	case GoalSteps:
		return float64(t.Steps), nil
	case GoalCalories:
		return t.CaloriesBurned, nil
	case GoalDistance:
		return t.DistanceKm, nil
	case GoalDuration:
		return float64(t.DurationMinutes), nil
	case GoalWorkouts:
		return float64(t.Activities), nil
	}
	return 0, fmt.Errorf("unhandled goal kind %q", kind)
}

// Window is a closed [From, To] time range.
type Window struct {
	From time.Time
	To   time.Time
}

// PeriodWindow returns the current window for period: today, the week since Monday or the
// month since the 1st, each starting at 00:00 in loc and ending at now.
func PeriodWindow(period Period, now time.Time, loc *time.Location) (Window, error) {
	today := StartOfDay(now, loc)
	switch period {
	case PeriodDaily:
		return Window{From: today, To: now}, nil
	case PeriodWeekly:
		sinceMonday := (int(today.Weekday()) + 6) % 7
		return Window{From: today.AddDate(0, 0, -sinceMonday), To: now}, nil
	case PeriodMonthly:
		y, m, _ := today.Date()
		return Window{From: time.Date(y, m, 1, 0, 0, 0, 0, loc), To: now}, nil
	}
	return Window{}, fmt.Errorf("unhandled period %q", period)
}

// ProgressRecord is the derived progress of one active goal.
type ProgressRecord struct {
	Goal          Goal
	Window        Window
	ActivityValue float64
	CheckinValue  float64
	CurrentValue  float64
	Percent       float64
}

// Percent is current/target as a percentage clamped to [0, 100]; 0 when target is 0.
func Percent(current, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return max(0, min(100, current/target*100))
}

// ProgressEngine computes live progress for a user's active goals. It never writes.
type ProgressEngine struct {
	goals       GoalRepository
	activities  ActivityRepository
	checkins    CheckinRepository
	loc         *time.Location
	now         func() time.Time
	concurrency int
}

// NewProgressEngine constructs a ProgressEngine.
func NewProgressEngine(goals GoalRepository, activities ActivityRepository, checkins CheckinRepository, loc *time.Location) *ProgressEngine {
	if loc == nil {
		loc = time.Local
	}
	return &ProgressEngine{
		goals:       goals,
		activities:  activities,
		checkins:    checkins,
		loc:         loc,
		now:         time.Now,
		concurrency: defaultProgressConcurrency,
	}
}

// WithClock overrides the engine's notion of now.
func (e *ProgressEngine) WithClock(now func() time.Time) *ProgressEngine {
	e.now = now
	return e
}

// Progress returns one record per active goal, in registry order (newest first).
// The value is the activity aggregate for the goal kind plus the goal's own check-ins in the window.
func (e *ProgressEngine) Progress(ctx context.Context, userID string) ([]ProgressRecord, error) {
	active := true
	goals, err := e.goals.ListGoals(ctx, userID, &active)
	if err != nil {
		return nil, err
	}

	now := e.now()
	records := make([]ProgressRecord, len(goals))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, goal := range goals {
		g.Go(func() error {
			record, err := e.evaluate(gctx, userID, goal, now)
			if err != nil {
				return fmt.Errorf("goal %s: %w", goal.ID, err)
			}
			records[i] = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func (e *ProgressEngine) evaluate(ctx context.Context, userID string, goal Goal, now time.Time) (ProgressRecord, error) {
	window, err := PeriodWindow(goal.Period, now, e.loc)
	if err != nil {
		return ProgressRecord{}, err
	}

	totals, err := e.activities.SumActivities(ctx, userID, window.From, window.To)
	if err != nil {
		return ProgressRecord{}, err
	}
	activityValue, err := totals.Field(goal.Kind)
	if err != nil {
		return ProgressRecord{}, err
	}

	checkinValue, err := e.checkins.SumCheckins(ctx, userID, goal.ID, window.From, window.To)
	if err != nil {
		return ProgressRecord{}, err
	}

	current := activityValue + checkinValue
	return ProgressRecord{
		Goal:          goal,
		Window:        window,
		ActivityValue: activityValue,
		CheckinValue:  checkinValue,
		CurrentValue:  current,
		Percent:       Percent(current, goal.TargetValue),
	}, nil
}
