package api

import (
	"time"

	"example.com/healthtracker/internal/domain"
)

// ActivityView is the wire shape of an activity.
type ActivityView struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	ActivityType    string     `json:"activityType"`
	Title           string     `json:"title"`
	Notes           string     `json:"notes"`
	StartedAt       time.Time  `json:"startedAt"`
	EndedAt         *time.Time `json:"endedAt"`
	DurationMinutes *int       `json:"durationMinutes"`
	DistanceKm      *float64   `json:"distanceKm"`
	Steps           *int       `json:"steps"`
	CaloriesBurned  *float64   `json:"caloriesBurned"`
	Source          string     `json:"source"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// ActivityRequest is the create and update payload for activities. Omitted fields stay unchanged.
type ActivityRequest struct {
	ActivityType    *string  `json:"activityType"`
	Title           *string  `json:"title"`
	Notes           *string  `json:"notes"`
	StartedAt       *string  `json:"startedAt"`
	EndedAt         *string  `json:"endedAt"`
	DurationMinutes *int     `json:"durationMinutes"`
	DistanceKm      *float64 `json:"distanceKm"`
	Steps           *int     `json:"steps"`
	CaloriesBurned  *float64 `json:"caloriesBurned"`
	Source          *string  `json:"source"`
}

func (r ActivityRequest) fields() domain.ActivityFields {
	return domain.ActivityFields(r)
}

// ListActivitiesResponse packages one page of activities.
type ListActivitiesResponse struct {
	Items      []ActivityView `json:"items"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	Total      int            `json:"total"`
	TotalPages int            `json:"totalPages"`
}

// GoalView is the wire shape of a goal.
type GoalView struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	GoalType    string     `json:"goalType"`
	TargetValue float64    `json:"targetValue"`
	Unit        string     `json:"unit"`
	Period      string     `json:"period"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	IsActive    bool       `json:"isActive"`
	Title       string     `json:"title"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// GoalRequest is the create and update payload for goals. A userId in the body is ignored.
type GoalRequest struct {
	GoalType    *string  `json:"goalType"`
	TargetValue *float64 `json:"targetValue"`
	Unit        *string  `json:"unit"`
	Period      *string  `json:"period"`
	StartDate   *string  `json:"startDate"`
	EndDate     *string  `json:"endDate"`
	IsActive    *bool    `json:"isActive"`
	Title       *string  `json:"title"`
}

func (r GoalRequest) fields() domain.GoalFields {
	return domain.GoalFields(r)
}

// CheckinView is the wire shape of a check-in; date is the local start of day.
type CheckinView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	GoalID    string    `json:"goalId"`
	Date      time.Time `json:"date"`
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RangeView is a closed time window.
type RangeView struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ProgressView is one goal's live progress.
type ProgressView struct {
	Goal          GoalView  `json:"goal"`
	PeriodRange   RangeView `json:"periodRange"`
	ActivityValue float64   `json:"activityValue"`
	CheckinValue  float64   `json:"checkinValue"`
	CurrentValue  float64   `json:"currentValue"`
	Percent       float64   `json:"percent"`
}

// TotalsView are summed activity metrics.
type TotalsView struct {
	Activities      int     `json:"activities"`
	Steps           int64   `json:"steps"`
	CaloriesBurned  float64 `json:"caloriesBurned"`
	DistanceKm      float64 `json:"distanceKm"`
	DurationMinutes int64   `json:"durationMinutes"`
}

// TypeCountView counts activities of one kind.
type TypeCountView struct {
	ActivityType string `json:"activityType"`
	Count        int    `json:"count"`
}

// DailyView is one local calendar day of totals.
type DailyView struct {
	Date string `json:"date"`
	TotalsView
}

// SummaryView is the stats summary response.
type SummaryView struct {
	Range  RangeView       `json:"range"`
	Totals TotalsView      `json:"totals"`
	ByType []TypeCountView `json:"byType"`
	Daily  []DailyView     `json:"daily"`
}

// UserView is the public shape of a user; the password hash is never serialised.
type UserView struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	ProfilePicture string     `json:"profilePicture"`
	DateOfBirth    *time.Time `json:"dateOfBirth"`
	Gender         string     `json:"gender"`
	HeightCm       *float64   `json:"heightCm"`
	WeightKg       *float64   `json:"weightKg"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	User  UserView `json:"user"`
	Token string   `json:"token"`
}

func toActivityView(a domain.Activity) ActivityView {
	return ActivityView{
		ID:              a.ID,
		UserID:          a.UserID,
		ActivityType:    string(a.Kind),
		Title:           a.Title,
		Notes:           a.Notes,
		StartedAt:       a.StartedAt,
		EndedAt:         a.EndedAt,
		DurationMinutes: a.DurationMinutes,
		DistanceKm:      a.DistanceKm,
		Steps:           a.Steps,
		CaloriesBurned:  a.CaloriesBurned,
		Source:          a.Source,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func toGoalView(g domain.Goal) GoalView {
	return GoalView{
		ID:          g.ID,
		UserID:      g.UserID,
		GoalType:    string(g.Kind),
		TargetValue: g.TargetValue,
		Unit:        g.Unit,
		Period:      string(g.Period),
		StartDate:   g.StartDate,
		EndDate:     g.EndDate,
		IsActive:    g.IsActive,
		Title:       g.Title,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

func toCheckinView(c domain.Checkin, loc *time.Location) CheckinView {
	return CheckinView{
		ID:        c.ID,
		UserID:    c.UserID,
		GoalID:    c.GoalID,
		Date:      c.Day.In(loc),
		Value:     c.Value,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toTotalsView(t domain.Totals) TotalsView {
	return TotalsView{
		Activities:      t.Activities,
		Steps:           t.Steps,
		CaloriesBurned:  t.CaloriesBurned,
		DistanceKm:      t.DistanceKm,
		DurationMinutes: t.DurationMinutes,
	}
}

func toUserView(u domain.User) UserView {
	return UserView{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		ProfilePicture: u.ProfilePicture,
		DateOfBirth:    u.DateOfBirth,
		Gender:         u.Gender,
		HeightCm:       u.HeightCm,
		WeightKg:       u.WeightKg,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}
