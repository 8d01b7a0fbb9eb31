package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"example.com/healthtracker/internal/domain"
)

// fieldAlias pairs a wire field name with the name a dashboard client renders.
type fieldAlias struct {
	wire string
	ui   string
}

// presentationFields is the single wire<->presentation rename table for activities.
var presentationFields = []fieldAlias{
	{wire: "activityType", ui: "type"},
	{wire: "durationMinutes", ui: "duration"},
	{wire: "caloriesBurned", ui: "calories"},
	{wire: "distanceKm", ui: "distance"},
	{wire: "startedAt", ui: "date"},
}

// presentationKinds renames the activity kinds that dashboards label differently.
// Kinds missing from the table keep their wire name on both sides.
var presentationKinds = map[domain.ActivityKind]string{
	domain.ActivityWalk:     "walking",
	domain.ActivityRun:      "running",
	domain.ActivityCycle:    "cycling",
	domain.ActivitySwim:     "swimming",
	domain.ActivityStrength: "gym",
}

var presentationKindsReverse = func() map[string]domain.ActivityKind {
	out := make(map[string]domain.ActivityKind, len(presentationKinds))
	for kind, label := range presentationKinds {
		out[label] = kind
	}
	return out
}()

// toPresentation renames wire fields and kind values to their presentation form.
func toPresentation(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	for _, f := range presentationFields {
		v, ok := out[f.wire]
		if !ok {
			continue
		}
		delete(out, f.wire)
		if f.wire == "activityType" {
			if s, isString := v.(string); isString {
				if label, found := presentationKinds[domain.ActivityKind(s)]; found {
					v = label
				}
			}
		}
		out[f.ui] = v
	}
	return out
}

// fromPresentation is the inverse of toPresentation.
func fromPresentation(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	for _, f := range presentationFields {
		v, ok := out[f.ui]
		if !ok {
			continue
		}
		delete(out, f.ui)
		if f.wire == "activityType" {
			if s, isString := v.(string); isString {
				if kind, found := presentationKindsReverse[s]; found {
					v = string(kind)
				}
			}
		}
		out[f.wire] = v
	}
	return out
}

func wantsPresentation(r *http.Request) bool {
	return r.URL.Query().Get("view") == "ui"
}

// decodeActivity reads an activity body, accepting the presentation shape when ?view=ui is set.
func decodeActivity(w http.ResponseWriter, r *http.Request, dst *ActivityRequest) error {
	if !wantsPresentation(r) {
		return decodeJSON(w, r, dst)
	}
	var doc map[string]any
	if err := decodeJSON(w, r, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	raw, err := json.Marshal(fromPresentation(doc))
	if err != nil {
		return errBadBody
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(dst); err != nil {
		return errBadBody
	}
	return nil
}

// presentActivity converts a view to its presentation document.
func presentActivity(view ActivityView) (map[string]any, error) {
	raw, err := json.Marshal(view)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return toPresentation(doc), nil
}

func writeActivity(w http.ResponseWriter, r *http.Request, status int, a domain.Activity) {
	view := toActivityView(a)
	if !wantsPresentation(r) {
		writeJSON(w, status, view)
		return
	}
	doc, err := presentActivity(view)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, status, doc)
}
