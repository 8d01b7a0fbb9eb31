// Package memory provides an in-process store for local development and tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"example.com/healthtracker/internal/domain"
)

// Store implements every domain repository on maps guarded by one RWMutex.
type Store struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	activities map[string]domain.Activity
	goals      map[string]domain.Goal
	checkins   map[string]domain.Checkin
	checkinKey map[string]string
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		users:      make(map[string]domain.User),
		activities: make(map[string]domain.Activity),
		goals:      make(map[string]domain.Goal),
		checkins:   make(map[string]domain.Checkin),
		checkinKey: make(map[string]string),
	}
}

var (
	_ domain.ActivityRepository = (*Store)(nil)
	_ domain.GoalRepository     = (*Store)(nil)
	_ domain.CheckinRepository  = (*Store)(nil)
	_ domain.UserRepository     = (*Store)(nil)
)

// CreateUser implements domain.UserRepository.
func (s *Store) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return domain.ErrDuplicateUser
		}
	}
	s.users[user.ID] = user
	return nil
}

// GetUser implements domain.UserRepository.
func (s *Store) GetUser(_ context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// GetUserByEmail implements domain.UserRepository.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

// UsernameTaken implements domain.UserRepository.
func (s *Store) UsernameTaken(_ context.Context, username, exceptUserID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username && u.ID != exceptUserID {
			return true, nil
		}
	}
	return false, nil
}

// UpdateUser implements domain.UserRepository.
func (s *Store) UpdateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	for _, u := range s.users {
		if u.Username == user.Username && u.ID != user.ID {
			return domain.ErrUsernameTaken
		}
	}
	s.users[user.ID] = user
	return nil
}

// CreateActivity implements domain.ActivityRepository.
func (s *Store) CreateActivity(_ context.Context, activity domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities[activity.ID] = cloneActivity(activity)
	return nil
}

// GetActivity implements domain.ActivityRepository.
func (s *Store) GetActivity(_ context.Context, userID, activityID string) (*domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.activities[activityID]
	if !ok || a.UserID != userID {
		return nil, nil
	}
	a = cloneActivity(a)
	return &a, nil
}

// ListActivities implements domain.ActivityRepository.
func (s *Store) ListActivities(_ context.Context, userID string, q domain.ActivityQuery) ([]domain.Activity, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.Activity
	for _, a := range s.activities {
		if a.UserID != userID {
			continue
		}
		if q.Kind != "" && a.Kind != q.Kind {
			continue
		}
		if q.From != nil && a.StartedAt.Before(*q.From) {
			continue
		}
		if q.To != nil && a.StartedAt.After(*q.To) {
			continue
		}
		matched = append(matched, cloneActivity(a))
	}

	slices.SortFunc(matched, func(a, b domain.Activity) int {
		c := a.StartedAt.Compare(b.StartedAt)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if !q.Ascending {
			c = -c
		}
		return c
	})

	total := len(matched)
	if q.Offset >= total {
		return []domain.Activity{}, total, nil
	}
	end := min(total, q.Offset+q.Limit)
	return matched[q.Offset:end], total, nil
}

// UpdateActivity implements domain.ActivityRepository.
func (s *Store) UpdateActivity(_ context.Context, activity domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.activities[activity.ID]
	if !ok || existing.UserID != activity.UserID {
		return domain.ErrActivityNotFound
	}
	s.activities[activity.ID] = cloneActivity(activity)
	return nil
}

// DeleteActivity implements domain.ActivityRepository.
func (s *Store) DeleteActivity(_ context.Context, userID, activityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.activities[activityID]
	if !ok || existing.UserID != userID {
		return domain.ErrActivityNotFound
	}
	delete(s.activities, activityID)
	return nil
}

// SumActivities implements domain.ActivityRepository.
func (s *Store) SumActivities(_ context.Context, userID string, from, to time.Time) (domain.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var totals domain.Totals
	for _, a := range s.activities {
		if a.UserID == userID && inWindow(a.StartedAt, from, to) {
			totals.Add(a)
		}
	}
	return totals, nil
}

// SummarizeActivities implements domain.ActivityRepository.
func (s *Store) SummarizeActivities(_ context.Context, userID string, from, to time.Time, loc *time.Location) (domain.ActivitySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var summary domain.ActivitySummary
	byType := make(map[domain.ActivityKind]int)
	daily := make(map[string]*domain.DailyTotals)
	for _, a := range s.activities {
		if a.UserID != userID || !inWindow(a.StartedAt, from, to) {
			continue
		}
		summary.Totals.Add(a)
		byType[a.Kind]++

		key := a.StartedAt.In(loc).Format(time.DateOnly)
		bucket, ok := daily[key]
		if !ok {
			bucket = &domain.DailyTotals{Date: key}
			daily[key] = bucket
		}
		bucket.Add(a)
	}
	for kind, count := range byType {
		summary.ByType = append(summary.ByType, domain.TypeCount{Kind: kind, Count: count})
	}
	for _, bucket := range daily {
		summary.Daily = append(summary.Daily, *bucket)
	}
	return summary, nil
}

// CreateGoal implements domain.GoalRepository.
func (s *Store) CreateGoal(_ context.Context, goal domain.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[goal.ID] = cloneGoal(goal)
	return nil
}

// GetGoal implements domain.GoalRepository.
func (s *Store) GetGoal(_ context.Context, userID, goalID string) (*domain.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.goals[goalID]
	if !ok || g.UserID != userID {
		return nil, nil
	}
	g = cloneGoal(g)
	return &g, nil
}

// ListGoals implements domain.GoalRepository.
func (s *Store) ListGoals(_ context.Context, userID string, active *bool) ([]domain.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var goals []domain.Goal
	for _, g := range s.goals {
		if g.UserID != userID {
			continue
		}
		if active != nil && g.IsActive != *active {
			continue
		}
		goals = append(goals, cloneGoal(g))
	}
	slices.SortFunc(goals, func(a, b domain.Goal) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return goals, nil
}

// UpdateGoal implements domain.GoalRepository.
func (s *Store) UpdateGoal(_ context.Context, goal domain.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.goals[goal.ID]
	if !ok || existing.UserID != goal.UserID {
		return domain.ErrGoalNotFound
	}
	s.goals[goal.ID] = cloneGoal(goal)
	return nil
}

// DeleteGoal implements domain.GoalRepository. The goal's check-ins go with it.
func (s *Store) DeleteGoal(_ context.Context, userID, goalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.goals[goalID]
	if !ok || existing.UserID != userID {
		return domain.ErrGoalNotFound
	}
	delete(s.goals, goalID)
	for id, c := range s.checkins {
		if c.GoalID == goalID {
			delete(s.checkins, id)
			delete(s.checkinKey, dayKey(c.UserID, c.GoalID, c.Day))
		}
	}
	return nil
}

// UpsertCheckin implements domain.CheckinRepository.
func (s *Store) UpsertCheckin(_ context.Context, checkin domain.Checkin) (*domain.Checkin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(checkin.UserID, checkin.GoalID, checkin.Day)
	if id, ok := s.checkinKey[key]; ok {
		existing := s.checkins[id]
		existing.Value = checkin.Value
		existing.UpdatedAt = checkin.UpdatedAt
		s.checkins[id] = existing
		return &existing, nil
	}
	s.checkins[checkin.ID] = checkin
	s.checkinKey[key] = checkin.ID
	return &checkin, nil
}

// ListCheckins implements domain.CheckinRepository.
func (s *Store) ListCheckins(_ context.Context, userID, goalID string, limit int) ([]domain.Checkin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []domain.Checkin
	for _, c := range s.checkins {
		if c.UserID == userID && c.GoalID == goalID {
			items = append(items, c)
		}
	}
	slices.SortFunc(items, func(a, b domain.Checkin) int {
		return b.Day.Compare(a.Day)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// DeleteCheckin implements domain.CheckinRepository.
func (s *Store) DeleteCheckin(_ context.Context, userID, goalID, checkinID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.checkins[checkinID]
	if !ok || c.UserID != userID || c.GoalID != goalID {
		return domain.ErrCheckinNotFound
	}
	delete(s.checkins, checkinID)
	delete(s.checkinKey, dayKey(c.UserID, c.GoalID, c.Day))
	return nil
}

// SumCheckins implements domain.CheckinRepository.
func (s *Store) SumCheckins(_ context.Context, userID, goalID string, from, to time.Time) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum float64
	for _, c := range s.checkins {
		if c.UserID == userID && c.GoalID == goalID && inWindow(c.Day, from, to) {
			sum += c.Value
		}
	}
	return sum, nil
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

func dayKey(userID, goalID string, day time.Time) string {
	return strings.Join([]string{userID, goalID, fmt.Sprint(day.Unix())}, "|")
}

func cloneActivity(a domain.Activity) domain.Activity {
	a.EndedAt = clonePtr(a.EndedAt)
	a.DurationMinutes = clonePtr(a.DurationMinutes)
	a.DistanceKm = clonePtr(a.DistanceKm)
	a.Steps = clonePtr(a.Steps)
	a.CaloriesBurned = clonePtr(a.CaloriesBurned)
	return a
}

func cloneGoal(g domain.Goal) domain.Goal {
	g.EndDate = clonePtr(g.EndDate)
	return g
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
