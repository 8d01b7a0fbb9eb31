package api

import (
	"net/http"

	"example.com/healthtracker/internal/domain"
)

// ProfileRequest lists the profile fields a user may edit. Email and password are not among them.
type ProfileRequest struct {
	Username       *string  `json:"username"`
	FirstName      *string  `json:"firstName"`
	LastName       *string  `json:"lastName"`
	ProfilePicture *string  `json:"profilePicture"`
	DateOfBirth    *string  `json:"dateOfBirth"`
	Gender         *string  `json:"gender"`
	HeightCm       *float64 `json:"heightCm"`
	WeightKg       *float64 `json:"weightKg"`
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	defer cancel()

	user, err := h.svc.Profiles.Get(ctx, userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	defer cancel()

	var req ProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	user, err := h.svc.Profiles.Update(ctx, userID, domain.ProfileFields(req))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}
