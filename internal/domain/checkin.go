package domain

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	defaultCheckinLimit = 30
	maxCheckinLimit     = 200
)

// Checkin is a manual progress sample for one goal on one local calendar day.
type Checkin struct {
	ID        string
	UserID    string
	GoalID    string
	Day       time.Time
	Value     float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CheckinInput is the upsert payload. A nil Date means today.
type CheckinInput struct {
	Date  *string
	Value *float64
}

// CheckinRepository captures persistence operations for check-ins.
// UpsertCheckin keeps the existing row id when (user, goal, day) is already present and
// returns the stored row. It may report ErrCheckinConflict when it lost an insert race.
type CheckinRepository interface {
	UpsertCheckin(ctx context.Context, checkin Checkin) (*Checkin, error)
	ListCheckins(ctx context.Context, userID, goalID string, limit int) ([]Checkin, error)
	DeleteCheckin(ctx context.Context, userID, goalID, checkinID string) error
	SumCheckins(ctx context.Context, userID, goalID string, from, to time.Time) (float64, error)
}

// CheckinLedger orchestrates check-in workflows.
type CheckinLedger struct {
	repo  CheckinRepository
	goals GoalRepository
	loc   *time.Location
	now   func() time.Time
}

// NewCheckinLedger constructs a CheckinLedger.
func NewCheckinLedger(repo CheckinRepository, goals GoalRepository, loc *time.Location) *CheckinLedger {
	if loc == nil {
		loc = time.Local
	}
	return &CheckinLedger{repo: repo, goals: goals, loc: loc, now: time.Now}
}

// WithClock overrides the CheckinLedger's notion of now.
func (l *CheckinLedger) WithClock(now func() time.Time) *CheckinLedger {
	l.now = now
	return l
}

// Upsert creates or overwrites the check-in for (userID, goalID, day).
func (l *CheckinLedger) Upsert(ctx context.Context, userID, goalID string, in CheckinInput) (*Checkin, error) {
	if in.Value == nil {
		return nil, invalidf("value is required")
	}
	if math.IsNaN(*in.Value) || math.IsInf(*in.Value, 0) {
		return nil, invalidf("value must be a finite number")
	}
	if *in.Value < 0 {
		return nil, invalidf("value must be non-negative")
	}
	if err := l.ownedGoal(ctx, userID, goalID); err != nil {
		return nil, err
	}

	day := l.now()
	if in.Date != nil && strings.TrimSpace(*in.Date) != "" {
		parsed, err := parseTimestamp(*in.Date, l.loc)
		if err != nil {
			return nil, invalidf("invalid date")
		}
		day = parsed
	}

	now := l.now().UTC()
	checkin := Checkin{
		ID:        uuid.NewString(),
		UserID:    userID,
		GoalID:    goalID,
		Day:       StartOfDay(day, l.loc),
		Value:     *in.Value,
		CreatedAt: now,
		UpdatedAt: now,
	}

	stored, err := l.repo.UpsertCheckin(ctx, checkin)
	if errors.Is(err, ErrConflict) {
		// the racing insert now exists, so a second attempt takes the update path
		log.Debugf("check-in upsert conflict for goal %s day %s, retrying", goalID, checkin.Day.Format(time.DateOnly))
		stored, err = l.repo.UpsertCheckin(ctx, checkin)
	}
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// List returns the most recent check-ins for an owned goal, newest day first.
// Missing or malformed limits use 30; the result is clamped to [1, 200].
func (l *CheckinLedger) List(ctx context.Context, userID, goalID, rawLimit string) ([]Checkin, error) {
	if err := l.ownedGoal(ctx, userID, goalID); err != nil {
		return nil, err
	}

	limit := defaultCheckinLimit
	if n, err := strconv.Atoi(strings.TrimSpace(rawLimit)); err == nil {
		limit = min(maxCheckinLimit, max(1, n))
	}

	items, err := l.repo.ListCheckins(ctx, userID, goalID, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Checkin{}
	}
	return items, nil
}

// Delete removes a check-in scoped to both the owner and the goal.
func (l *CheckinLedger) Delete(ctx context.Context, userID, goalID, checkinID string) error {
	if err := l.ownedGoal(ctx, userID, goalID); err != nil {
		return err
	}
	return l.repo.DeleteCheckin(ctx, userID, goalID, checkinID)
}

func (l *CheckinLedger) ownedGoal(ctx context.Context, userID, goalID string) error {
	goal, err := l.goals.GetGoal(ctx, userID, goalID)
	if err != nil {
		return err
	}
	if goal == nil {
		return ErrGoalNotFound
	}
	return nil
}
