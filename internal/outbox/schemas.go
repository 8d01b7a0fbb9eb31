package outbox

// schemaCatalog maps a registry subject to the JSON schema its payloads satisfy.
// Deletions carry only identifiers, so just ids and occurred_at are required.
var schemaCatalog = map[string]string{
	"activity_events-value": activityEventsSchema,
	"goal_events-value":     goalEventsSchema,
	"checkin_events-value":  checkinEventsSchema,
}

const activityEventsSchema = `{
  "type": "object",
  "title": "ActivityChanged",
  "properties": {
    "activity_id": {"type": "string"},
    "user_id": {"type": "string"},
    "activity_type": {"type": "string"},
    "started_at": {"type": "string", "format": "date-time"},
    "ended_at": {"type": "string", "format": "date-time"},
    "duration_minutes": {"type": "integer"},
    "distance_km": {"type": "number"},
    "steps": {"type": "integer"},
    "calories_burned": {"type": "number"},
    "source": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["activity_id", "user_id", "occurred_at"],
  "additionalProperties": false
}`

const goalEventsSchema = `{
  "type": "object",
  "title": "GoalChanged",
  "properties": {
    "goal_id": {"type": "string"},
    "user_id": {"type": "string"},
    "goal_type": {"type": "string"},
    "target_value": {"type": "number"},
    "period": {"type": "string"},
    "is_active": {"type": "boolean"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["goal_id", "user_id", "occurred_at"],
  "additionalProperties": false
}`

const checkinEventsSchema = `{
  "type": "object",
  "title": "CheckinChanged",
  "properties": {
    "checkin_id": {"type": "string"},
    "goal_id": {"type": "string"},
    "user_id": {"type": "string"},
    "day": {"type": "string"},
    "value": {"type": "number"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["checkin_id", "goal_id", "user_id", "occurred_at"],
  "additionalProperties": false
}`
