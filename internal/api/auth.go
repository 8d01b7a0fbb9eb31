package api

import (
	"net/http"

	"example.com/healthtracker/internal/domain"
)

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// LoginRequest authenticates by email.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storeContext(r)
	defer cancel()

	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	session, err := h.svc.Identity.Register(ctx, domain.RegisterInput(req))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{User: toUserView(session.User), Token: session.Token})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storeContext(r)
	defer cancel()

	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	session, err := h.svc.Identity.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{User: toUserView(session.User), Token: session.Token})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	defer cancel()

	user, err := h.svc.Identity.Me(ctx, userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}
