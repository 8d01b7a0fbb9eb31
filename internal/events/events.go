// Package events defines the change-event payloads published through the outbox.
package events

import (
	"fmt"
	"time"
)

// Event types written to the outbox.
const (
	ActivityCreated = "activity.created"
	ActivityUpdated = "activity.updated"
	ActivityDeleted = "activity.deleted"
	GoalCreated     = "goal.created"
	GoalUpdated     = "goal.updated"
	GoalDeleted     = "goal.deleted"
	CheckinUpserted = "checkin.upserted"
	CheckinDeleted  = "checkin.deleted"
)

// Route describes where an event type is published.
type Route struct {
	AggregateType string
	Topic         string
	SchemaSubject string
}

var routes = map[string]Route{
	ActivityCreated: activityRoute,
	ActivityUpdated: activityRoute,
	ActivityDeleted: activityRoute,
	GoalCreated:     goalRoute,
	GoalUpdated:     goalRoute,
	GoalDeleted:     goalRoute,
	CheckinUpserted: checkinRoute,
	CheckinDeleted:  checkinRoute,
}

var (
	activityRoute = Route{AggregateType: "activity", Topic: "activity_events", SchemaSubject: "activity_events-value"}
	goalRoute     = Route{AggregateType: "goal", Topic: "goal_events", SchemaSubject: "goal_events-value"}
	checkinRoute  = Route{AggregateType: "checkin", Topic: "checkin_events", SchemaSubject: "checkin_events-value"}
)

// RouteFor returns the routing metadata for eventType.
func RouteFor(eventType string) (Route, error) {
	route, ok := routes[eventType]
	if !ok {
		return Route{}, fmt.Errorf("unknown event type: %s", eventType)
	}
	return route, nil
}

// ActivityChanged is emitted on every activity write. Deletions carry only ids.
type ActivityChanged struct {
	ActivityID      string     `json:"activity_id"`
	UserID          string     `json:"user_id"`
	ActivityType    string     `json:"activity_type,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	DistanceKm      *float64   `json:"distance_km,omitempty"`
	Steps           *int       `json:"steps,omitempty"`
	CaloriesBurned  *float64   `json:"calories_burned,omitempty"`
	Source          string     `json:"source,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
}

// GoalChanged is emitted on every goal write.
type GoalChanged struct {
	GoalID      string    `json:"goal_id"`
	UserID      string    `json:"user_id"`
	GoalType    string    `json:"goal_type,omitempty"`
	TargetValue *float64  `json:"target_value,omitempty"`
	Period      string    `json:"period,omitempty"`
	IsActive    *bool     `json:"is_active,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// CheckinChanged is emitted when a check-in is upserted or deleted.
type CheckinChanged struct {
	CheckinID  string    `json:"checkin_id"`
	GoalID     string    `json:"goal_id"`
	UserID     string    `json:"user_id"`
	Day        string    `json:"day,omitempty"`
	Value      *float64  `json:"value,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
