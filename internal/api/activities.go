package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"example.com/healthtracker/internal/domain"
)

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	defer cancel()

	q := r.URL.Query()
	page, err := h.svc.Activities.List(ctx, userID, domain.ActivityListParams{
		ActivityType: q.Get("activityType"),
		From:         q.Get("from"),
		To:           q.Get("to"),
		Page:         q.Get("page"),
		Limit:        q.Get("limit"),
		Sort:         q.Get("sort"),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := ListActivitiesResponse{
		Items:      make([]ActivityView, 0, len(page.Items)),
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	}
	for _, a := range page.Items {
		resp.Items = append(resp.Items, toActivityView(a))
	}
	if !wantsPresentation(r) {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	items := make([]map[string]any, 0, len(resp.Items))
	for _, view := range resp.Items {
		doc, err := presentActivity(view)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		items = append(items, doc)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":      items,
		"page":       resp.Page,
		"limit":      resp.Limit,
		"total":      resp.Total,
		"totalPages": resp.TotalPages,
	})
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	defer cancel()

	var req ActivityRequest
	if err := decodeActivity(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	activity, err := h.svc.Activities.Record(ctx, userID, req.fields())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeActivity(w, r, http.StatusCreated, *activity)
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	defer cancel()

	activity, err := h.svc.Activities.Get(ctx, userID, mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeActivity(w, r, http.StatusOK, *activity)
}

func (h *Handler) updateActivity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	defer cancel()

	var req ActivityRequest
	if err := decodeActivity(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	activity, err := h.svc.Activities.Update(ctx, userID, mux.Vars(r)["id"], req.fields())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeActivity(w, r, http.StatusOK, *activity)
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	defer cancel()

	id := mux.Vars(r)["id"]
	if err := h.svc.Activities.Delete(ctx, userID, id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Activity deleted", ID: id})
}
