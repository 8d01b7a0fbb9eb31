package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"example.com/healthtracker/internal/domain"
)

// flexFloat accepts a JSON number or a numeric string. NaN and infinities are rejected.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("value %q is not a finite number", s)
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// CheckinRequest is the upsert payload; date defaults to today.
type CheckinRequest struct {
	Date  *string    `json:"date"`
	Value *flexFloat `json:"value"`
}

func (c CheckinRequest) input() domain.CheckinInput {
	in := domain.CheckinInput{Date: c.Date}
	if c.Value != nil {
		v := float64(*c.Value)
		in.Value = &v
	}
	return in
}

type checkinsResponse struct {
	Items []CheckinView `json:"items"`
}

func (h *Handler) listCheckins(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	defer cancel()

	items, err := h.svc.Checkins.List(ctx, userID, mux.Vars(r)["id"], r.URL.Query().Get("limit"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	resp := checkinsResponse{Items: make([]CheckinView, 0, len(items))}
	for _, c := range items {
		resp.Items = append(resp.Items, toCheckinView(c, h.loc))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) upsertCheckin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	defer cancel()

	var req CheckinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	checkin, err := h.svc.Checkins.Upsert(ctx, userID, mux.Vars(r)["id"], req.input())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCheckinView(*checkin, h.loc))
}

func (h *Handler) deleteCheckin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	defer cancel()

	vars := mux.Vars(r)
	if err := h.svc.Checkins.Delete(ctx, userID, vars["id"], vars["checkinId"]); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Check-in deleted", ID: vars["checkinId"]})
}
