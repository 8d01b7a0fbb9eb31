package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Goal is a periodic target declared by a user.
type Goal struct {
	ID          string
	UserID      string
	Kind        GoalKind
	TargetValue float64
	Unit        string
	Period      Period
	StartDate   time.Time
	EndDate     *time.Time
	IsActive    bool
	Title       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GoalFields carries a create or partial-update payload. An empty EndDate on update clears it.
type GoalFields struct {
	GoalType    *string
	TargetValue *float64
	Unit        *string
	Period      *string
	StartDate   *string
	EndDate     *string
	IsActive    *bool
	Title       *string
}

// GoalRepository captures persistence operations for goals.
// ListGoals returns newest first; a nil active filter returns every goal.
type GoalRepository interface {
	CreateGoal(ctx context.Context, goal Goal) error
	GetGoal(ctx context.Context, userID, goalID string) (*Goal, error)
	ListGoals(ctx context.Context, userID string, active *bool) ([]Goal, error)
	UpdateGoal(ctx context.Context, goal Goal) error
	DeleteGoal(ctx context.Context, userID, goalID string) error
}

// GoalRegistry orchestrates goal workflows.
type GoalRegistry struct {
	repo GoalRepository
	loc  *time.Location
	now  func() time.Time
}

// NewGoalRegistry constructs a GoalRegistry.
func NewGoalRegistry(repo GoalRepository, loc *time.Location) *GoalRegistry {
	if loc == nil {
		loc = time.Local
	}
	return &GoalRegistry{repo: repo, loc: loc, now: time.Now}
}

// WithClock overrides the GoalRegistry's notion of now.
func (r *GoalRegistry) WithClock(now func() time.Time) *GoalRegistry {
	r.now = now
	return r
}

// Create requires goalType, targetValue and period. Goals start active.
func (r *GoalRegistry) Create(ctx context.Context, userID string, fields GoalFields) (*Goal, error) {
	if fields.GoalType == nil || strings.TrimSpace(*fields.GoalType) == "" {
		return nil, invalidf("goalType is required")
	}
	if fields.TargetValue == nil {
		return nil, invalidf("targetValue is required")
	}
	if fields.Period == nil || strings.TrimSpace(*fields.Period) == "" {
		return nil, invalidf("period is required")
	}

	now := r.now().UTC()
	goal := Goal{
		ID:        uuid.NewString(),
		UserID:    userID,
		StartDate: now,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.apply(&goal, fields); err != nil {
		return nil, err
	}

	if err := r.repo.CreateGoal(ctx, goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

// List returns the owner's goals, optionally filtered on the active flag.
func (r *GoalRegistry) List(ctx context.Context, userID string, active *bool) ([]Goal, error) {
	goals, err := r.repo.ListGoals(ctx, userID, active)
	if err != nil {
		return nil, err
	}
	if goals == nil {
		goals = []Goal{}
	}
	return goals, nil
}

// Get fetches one goal owned by userID.
func (r *GoalRegistry) Get(ctx context.Context, userID, goalID string) (*Goal, error) {
	goal, err := r.repo.GetGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, ErrGoalNotFound
	}
	return goal, nil
}

// Update applies a partial update, including deactivation.
func (r *GoalRegistry) Update(ctx context.Context, userID, goalID string, fields GoalFields) (*Goal, error) {
	goal, err := r.Get(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	if err := r.apply(goal, fields); err != nil {
		return nil, err
	}
	goal.UpdatedAt = r.now().UTC()

	if err := r.repo.UpdateGoal(ctx, *goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// Delete removes an owned goal together with its check-ins.
func (r *GoalRegistry) Delete(ctx context.Context, userID, goalID string) error {
	return r.repo.DeleteGoal(ctx, userID, goalID)
}

func (r *GoalRegistry) apply(g *Goal, f GoalFields) error {
	if f.GoalType != nil {
		kind, err := ParseGoalKind(*f.GoalType)
		if err != nil {
			return err
		}
		g.Kind = kind
	}
	if f.Period != nil {
		period, err := ParsePeriod(*f.Period)
		if err != nil {
			return err
		}
		g.Period = period
	}
	if f.TargetValue != nil {
		if *f.TargetValue < 0 {
			return invalidf("targetValue must be non-negative")
		}
		g.TargetValue = *f.TargetValue
	}
	if f.Unit != nil {
		g.Unit = strings.TrimSpace(*f.Unit)
	}
	if f.Title != nil {
		g.Title = strings.TrimSpace(*f.Title)
	}
	if f.IsActive != nil {
		g.IsActive = *f.IsActive
	}
	if f.StartDate != nil && strings.TrimSpace(*f.StartDate) != "" {
		start, err := parseTimestamp(*f.StartDate, r.loc)
		if err != nil {
			return invalidf("invalid startDate")
		}
		g.StartDate = start.UTC()
	}
	if f.EndDate != nil {
		if strings.TrimSpace(*f.EndDate) == "" {
			g.EndDate = nil
		} else {
			end, err := parseTimestamp(*f.EndDate, r.loc)
			if err != nil {
				return invalidf("invalid endDate")
			}
			end = end.UTC()
			g.EndDate = &end
		}
	}
	if g.EndDate != nil && g.EndDate.Before(g.StartDate) {
		return invalidf("endDate must be on or after startDate")
	}
	return nil
}
