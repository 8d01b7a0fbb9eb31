package domain

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"
)

const defaultSummaryWindow = 7 * 24 * time.Hour

// TypeCount is the number of activities of one kind.
type TypeCount struct {
	Kind  ActivityKind
	Count int
}

// DailyTotals are the totals of one local calendar day, keyed YYYY-MM-DD.
type DailyTotals struct {
	Date string
	Totals
}

// ActivitySummary is the grouped aggregation the store returns for a window.
type ActivitySummary struct {
	Totals Totals
	ByType []TypeCount
	Daily  []DailyTotals
}

// Summary is the stats response for a window.
type Summary struct {
	Window Window
	ActivitySummary
}

// StatsService produces activity summaries.
type StatsService struct {
	activities ActivityRepository
	loc        *time.Location
	now        func() time.Time
}

// NewStatsService constructs a StatsService.
func NewStatsService(activities ActivityRepository, loc *time.Location) *StatsService {
	if loc == nil {
		loc = time.Local
	}
	return &StatsService{activities: activities, loc: loc, now: time.Now}
}

// WithClock overrides the StatsService's notion of now.
func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	s.now = now
	return s
}

// Summary aggregates the owner's activities in [from, to]. Missing or unparsable bounds
// default to the last seven days.
func (s *StatsService) Summary(ctx context.Context, userID, rawFrom, rawTo string) (*Summary, error) {
	now := s.now()
	window := Window{From: now.Add(-defaultSummaryWindow), To: now}
	if strings.TrimSpace(rawFrom) != "" {
		if from, err := parseTimestamp(rawFrom, s.loc); err == nil {
			window.From = from
		}
	}
	if strings.TrimSpace(rawTo) != "" {
		if to, err := parseUpperBound(rawTo, s.loc); err == nil {
			window.To = to
		}
	}

	summary, err := s.activities.SummarizeActivities(ctx, userID, window.From, window.To, s.loc)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(summary.ByType, func(a, b TypeCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Kind, b.Kind)
	})
	slices.SortFunc(summary.Daily, func(a, b DailyTotals) int {
		return cmp.Compare(a.Date, b.Date)
	})
	if summary.ByType == nil {
		summary.ByType = []TypeCount{}
	}
	if summary.Daily == nil {
		summary.Daily = []DailyTotals{}
	}

	return &Summary{Window: window, ActivitySummary: summary}, nil
}
