package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

type goalsResponse struct {
	Items []GoalView `json:"items"`
}

func (h *Handler) listGoals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	defer cancel()

	// Any isActive value other than "true" selects inactive goals.
	var active *bool
	if q := r.URL.Query(); q.Has("isActive") {
		v := q.Get("isActive") == "true"
		active = &v
	}

	goals, err := h.svc.Goals.List(ctx, userID, active)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	resp := goalsResponse{Items: make([]GoalView, 0, len(goals))}
	for _, g := range goals {
		resp.Items = append(resp.Items, toGoalView(g))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) createGoal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	defer cancel()

	var req GoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	goal, err := h.svc.Goals.Create(ctx, userID, req.fields())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalView(*goal))
}

func (h *Handler) getGoal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	defer cancel()

	goal, err := h.svc.Goals.Get(ctx, userID, mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalView(*goal))
}

func (h *Handler) updateGoal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	defer cancel()

	var req GoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	goal, err := h.svc.Goals.Update(ctx, userID, mux.Vars(r)["id"], req.fields())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalView(*goal))
}

func (h *Handler) deleteGoal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	defer cancel()

	id := mux.Vars(r)["id"]
	if err := h.svc.Goals.Delete(ctx, userID, id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Goal deleted", ID: id})
}
