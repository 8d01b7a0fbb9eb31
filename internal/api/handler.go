// Package api exposes the healthtracker REST endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"example.com/healthtracker/internal/auth"
	"example.com/healthtracker/internal/domain"
)

const maxBodyBytes = 1 << 20

// PublicPaths are reachable without a bearer token.
var PublicPaths = []string{"/auth/register", "/auth/login", "/healthz"}

// Services bundles the domain services the handlers delegate to.
type Services struct {
	Identity   *domain.IdentityService
	Profiles   *domain.ProfileService
	Activities *domain.ActivityLedger
	Goals      *domain.GoalRegistry
	Checkins   *domain.CheckinLedger
	Progress   *domain.ProgressEngine
	Stats      *domain.StatsService
}

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	svc          Services
	loc          *time.Location
	storeTimeout time.Duration
	authThrottle []mux.MiddlewareFunc
}

// NewHandler builds a Handler. Every request context is bounded by storeTimeout before it
// reaches a service.
func NewHandler(svc Services, loc *time.Location, storeTimeout time.Duration) *Handler {
	if loc == nil {
		loc = time.Local
	}
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &Handler{svc: svc, loc: loc, storeTimeout: storeTimeout}
}

// ThrottleAuth installs middleware, typically a rate limiter, on the register and login routes.
func (h *Handler) ThrottleAuth(mws ...mux.MiddlewareFunc) {
	h.authThrottle = append(h.authThrottle, mws...)
}

// RegisterRoutes wires endpoints to the router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	})

	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)

	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/me", h.me).Methods(http.MethodGet)
	public := authRouter.NewRoute().Subrouter()
	public.HandleFunc("/register", h.register).Methods(http.MethodPost)
	public.HandleFunc("/login", h.login).Methods(http.MethodPost)
	public.Use(h.authThrottle...)

	r.HandleFunc("/activities", h.listActivities).Methods(http.MethodGet)
	r.HandleFunc("/activities", h.createActivity).Methods(http.MethodPost)
	r.HandleFunc("/activities/{id}", h.getActivity).Methods(http.MethodGet)
	r.HandleFunc("/activities/{id}", h.updateActivity).Methods(http.MethodPatch, http.MethodPut)
	r.HandleFunc("/activities/{id}", h.deleteActivity).Methods(http.MethodDelete)

	r.HandleFunc("/goals", h.listGoals).Methods(http.MethodGet)
	r.HandleFunc("/goals", h.createGoal).Methods(http.MethodPost)
	r.HandleFunc("/goals/{id}", h.getGoal).Methods(http.MethodGet)
	r.HandleFunc("/goals/{id}", h.updateGoal).Methods(http.MethodPatch, http.MethodPut)
	r.HandleFunc("/goals/{id}", h.deleteGoal).Methods(http.MethodDelete)

	r.HandleFunc("/goals/{id}/checkins", h.listCheckins).Methods(http.MethodGet)
	r.HandleFunc("/goals/{id}/checkins", h.upsertCheckin).Methods(http.MethodPost)
	r.HandleFunc("/goals/{id}/checkins/{checkinId}", h.deleteCheckin).Methods(http.MethodDelete)

	r.HandleFunc("/stats/summary", h.statsSummary).Methods(http.MethodGet)
	r.HandleFunc("/stats/goals-progress", h.goalsProgress).Methods(http.MethodGet)

	r.HandleFunc("/profile", h.getProfile).Methods(http.MethodGet)
	r.HandleFunc("/profile", h.updateProfile).Methods(http.MethodPatch, http.MethodPut)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// caller resolves the authenticated owner and a store-bounded context.
// It writes a 401 and returns ok=false when the request carries no identity.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (ctx context.Context, cancel context.CancelFunc, userID string, ok bool) {
	userID, ok = auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no token provided")
		return nil, nil, "", false
	}
	ctx, cancel = context.WithTimeout(r.Context(), h.storeTimeout)
	return ctx, cancel, userID, true
}

func (h *Handler) storeContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.storeTimeout)
}

var errBadBody = errors.New("invalid request body")

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		log.Debugf("decode %s %s: %v", r.Method, r.URL.Path, err)
		return errBadBody
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("encode response: %v", err)
	}
}

type messageResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
