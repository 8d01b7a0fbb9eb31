package domain

import "strings"

// ActivityKind enumerates the workout categories an activity may carry.
type ActivityKind string

const (
	ActivityWorkout  ActivityKind = "workout"
	ActivityWalk     ActivityKind = "walk"
	ActivityRun      ActivityKind = "run"
	ActivityCycle    ActivityKind = "cycle"
	ActivitySwim     ActivityKind = "swim"
	ActivityStrength ActivityKind = "strength"
	ActivityYoga     ActivityKind = "yoga"
	ActivitySport    ActivityKind = "sport"
	ActivitySteps    ActivityKind = "steps"
	ActivityOther    ActivityKind = "other"
)

// ActivityKinds lists every kind in declaration order.
func ActivityKinds() []ActivityKind {
	return []ActivityKind{
		ActivityWorkout, ActivityWalk, ActivityRun, ActivityCycle, ActivitySwim,
		ActivityStrength, ActivityYoga, ActivitySport, ActivitySteps, ActivityOther,
	}
}

func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityWorkout, ActivityWalk, ActivityRun, ActivityCycle, ActivitySwim,
		ActivityStrength, ActivityYoga, ActivitySport, ActivitySteps, ActivityOther:
		return true
	}
	return false
}

// ParseActivityKind normalises case and whitespace before validating.
func ParseActivityKind(raw string) (ActivityKind, error) {
	k := ActivityKind(strings.ToLower(strings.TrimSpace(raw)))
	if k == "" {
		return "", invalidf("activityType is required")
	}
	if !k.Valid() {
		return "", invalidf("invalid activityType %q", raw)
	}
	return k, nil
}

// GoalKind selects which activity aggregate a goal is measured against.
type GoalKind string

const (
	GoalSteps    GoalKind = "steps"
	GoalCalories GoalKind = "calories"
	GoalWorkouts GoalKind = "workouts"
	GoalDistance GoalKind = "distance"
	GoalDuration GoalKind = "duration"
)

func (k GoalKind) Valid() bool {
	switch k {
	case GoalSteps, GoalCalories, GoalWorkouts, GoalDistance, GoalDuration:
		return true
	}
	return false
}

func ParseGoalKind(raw string) (GoalKind, error) {
	k := GoalKind(strings.ToLower(strings.TrimSpace(raw)))
	if k == "" {
		return "", invalidf("goalType is required")
	}
	if !k.Valid() {
		return "", invalidf("invalid goalType %q", raw)
	}
	return k, nil
}

// Period is the recurring window a goal resets on.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

func (p Period) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

func ParsePeriod(raw string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(raw)))
	if p == "" {
		return "", invalidf("period is required")
	}
	if !p.Valid() {
		return "", invalidf("invalid period %q", raw)
	}
	return p, nil
}
