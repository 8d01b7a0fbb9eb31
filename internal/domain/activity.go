// Package domain defines the business logic for the healthtracker ledgers and the progress engine.
package domain

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
	defaultSource   = "manual"
)

// Activity is one completed exercise event owned by a single user.
type Activity struct {
	ID              string
	UserID          string
	Kind            ActivityKind
	Title           string
	Notes           string
	StartedAt       time.Time
	EndedAt         *time.Time
	DurationMinutes *int
	DistanceKm      *float64
	Steps           *int
	CaloriesBurned  *float64
	Source          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ActivityFields carries a create or partial-update payload; nil means "not supplied".
// An empty EndedAt on update clears the stored end timestamp.
type ActivityFields struct {
	ActivityType    *string
	Title           *string
	Notes           *string
	StartedAt       *string
	EndedAt         *string
	DurationMinutes *int
	DistanceKm      *float64
	Steps           *int
	CaloriesBurned  *float64
	Source          *string
}

// ActivityListParams are the raw list filters as received from the client.
type ActivityListParams struct {
	ActivityType string
	From         string
	To           string
	Page         string
	Limit        string
	Sort         string
}

// ActivityQuery is the normalised store query.
type ActivityQuery struct {
	Kind      ActivityKind
	From      *time.Time
	To        *time.Time
	Offset    int
	Limit     int
	Ascending bool
}

// ActivityPage is one page of a list result.
type ActivityPage struct {
	Items      []Activity
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// ActivityRepository captures persistence operations for activities.
// Get returns (nil, nil) when the activity is absent or belongs to another user.
type ActivityRepository interface {
	CreateActivity(ctx context.Context, activity Activity) error
	GetActivity(ctx context.Context, userID, activityID string) (*Activity, error)
	ListActivities(ctx context.Context, userID string, query ActivityQuery) ([]Activity, int, error)
	UpdateActivity(ctx context.Context, activity Activity) error
	DeleteActivity(ctx context.Context, userID, activityID string) error
	SumActivities(ctx context.Context, userID string, from, to time.Time) (Totals, error)
	SummarizeActivities(ctx context.Context, userID string, from, to time.Time, loc *time.Location) (ActivitySummary, error)
}

// ActivityLedger orchestrates activity workflows.
type ActivityLedger struct {
	repo ActivityRepository
	loc  *time.Location
	now  func() time.Time
}

// NewActivityLedger constructs an ActivityLedger. A nil loc means time.Local.
func NewActivityLedger(repo ActivityRepository, loc *time.Location) *ActivityLedger {
	if loc == nil {
		loc = time.Local
	}
	return &ActivityLedger{repo: repo, loc: loc, now: time.Now}
}

// WithClock overrides the ActivityLedger's notion of now.
func (l *ActivityLedger) WithClock(now func() time.Time) *ActivityLedger {
	l.now = now
	return l
}

// Record validates and stores a new activity for userID.
func (l *ActivityLedger) Record(ctx context.Context, userID string, fields ActivityFields) (*Activity, error) {
	if fields.ActivityType == nil {
		return nil, invalidf("activityType is required")
	}
	if fields.StartedAt == nil || strings.TrimSpace(*fields.StartedAt) == "" {
		return nil, invalidf("startedAt is required")
	}

	now := l.now().UTC()
	activity := Activity{
		ID:        uuid.NewString(),
		UserID:    userID,
		Source:    defaultSource,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.apply(&activity, fields); err != nil {
		return nil, err
	}

	if err := l.repo.CreateActivity(ctx, activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

// Get fetches one activity owned by userID.
func (l *ActivityLedger) Get(ctx context.Context, userID, activityID string) (*Activity, error) {
	activity, err := l.repo.GetActivity(ctx, userID, activityID)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, ErrActivityNotFound
	}
	return activity, nil
}

// List returns a page of the owner's activities. Malformed paging values fall back to defaults;
// an unknown activityType matches nothing and an unparseable from/to is ignored.
func (l *ActivityLedger) List(ctx context.Context, userID string, params ActivityListParams) (*ActivityPage, error) {
	page := parsePositive(params.Page, defaultPage)
	limit := parsePositive(params.Limit, defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	// offset must stay representable
	if page > math.MaxInt/limit {
		page = defaultPage
	}

	query := ActivityQuery{
		Offset:    (page - 1) * limit,
		Limit:     limit,
		Ascending: strings.EqualFold(strings.TrimSpace(params.Sort), "asc"),
	}
	if strings.TrimSpace(params.ActivityType) != "" {
		kind, err := ParseActivityKind(params.ActivityType)
		if err != nil {
			return newActivityPage([]Activity{}, 0, page, limit), nil
		}
		query.Kind = kind
	}
	if strings.TrimSpace(params.From) != "" {
		if from, err := parseTimestamp(params.From, l.loc); err == nil {
			query.From = &from
		}
	}
	if strings.TrimSpace(params.To) != "" {
		if to, err := parseUpperBound(params.To, l.loc); err == nil {
			query.To = &to
		}
	}

	items, total, err := l.repo.ListActivities(ctx, userID, query)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Activity{}
	}
	return newActivityPage(items, total, page, limit), nil
}

func newActivityPage(items []Activity, total, page, limit int) *ActivityPage {
	return &ActivityPage{
		Items:      items,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}
}

// Update applies a partial update; ownership never changes.
func (l *ActivityLedger) Update(ctx context.Context, userID, activityID string, fields ActivityFields) (*Activity, error) {
	activity, err := l.Get(ctx, userID, activityID)
	if err != nil {
		return nil, err
	}
	if err := l.apply(activity, fields); err != nil {
		return nil, err
	}
	activity.UpdatedAt = l.now().UTC()

	if err := l.repo.UpdateActivity(ctx, *activity); err != nil {
		return nil, err
	}
	return activity, nil
}

// Delete hard-deletes an owned activity.
func (l *ActivityLedger) Delete(ctx context.Context, userID, activityID string) error {
	return l.repo.DeleteActivity(ctx, userID, activityID)
}

func (l *ActivityLedger) apply(a *Activity, f ActivityFields) error {
	if f.ActivityType != nil {
		kind, err := ParseActivityKind(*f.ActivityType)
		if err != nil {
			return err
		}
		a.Kind = kind
	}
	if f.Title != nil {
		a.Title = strings.TrimSpace(*f.Title)
	}
	if f.Notes != nil {
		a.Notes = strings.TrimSpace(*f.Notes)
	}
	if f.Source != nil && strings.TrimSpace(*f.Source) != "" {
		a.Source = strings.TrimSpace(*f.Source)
	}

	if f.StartedAt != nil {
		started, err := parseTimestamp(*f.StartedAt, l.loc)
		if err != nil {
			return invalidf("invalid startedAt")
		}
		a.StartedAt = started.UTC()
	}
	if f.EndedAt != nil {
		if strings.TrimSpace(*f.EndedAt) == "" {
			a.EndedAt = nil
		} else {
			ended, err := parseTimestamp(*f.EndedAt, l.loc)
			if err != nil {
				return invalidf("invalid endedAt")
			}
			ended = ended.UTC()
			a.EndedAt = &ended
		}
	}
	if a.EndedAt != nil && a.EndedAt.Before(a.StartedAt) {
		return invalidf("endedAt must be on or after startedAt")
	}

	if f.DistanceKm != nil {
		if *f.DistanceKm < 0 {
			return invalidf("distanceKm must be non-negative")
		}
		a.DistanceKm = f.DistanceKm
	}
	if f.Steps != nil {
		if *f.Steps < 0 {
			return invalidf("steps must be non-negative")
		}
		a.Steps = f.Steps
	}
	if f.CaloriesBurned != nil {
		if *f.CaloriesBurned < 0 {
			return invalidf("caloriesBurned must be non-negative")
		}
		a.CaloriesBurned = f.CaloriesBurned
	}

	switch {
	case f.DurationMinutes != nil:
		if *f.DurationMinutes < 0 {
			return invalidf("durationMinutes must be non-negative")
		}
		a.DurationMinutes = f.DurationMinutes
	case a.EndedAt != nil && (a.DurationMinutes == nil || f.StartedAt != nil || f.EndedAt != nil):
		derived := int(math.Round(a.EndedAt.Sub(a.StartedAt).Minutes()))
		a.DurationMinutes = &derived
	}
	return nil
}

func parsePositive(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
