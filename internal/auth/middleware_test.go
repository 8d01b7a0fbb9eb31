package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		_, _ = w.Write([]byte(userID))
	})
}

func TestMiddlewareAcceptsBearer(t *testing.T) {
	svc := newTestService(time.Now())
	token, err := svc.Issue("user-42")
	require.NoError(t, err)

	mw := NewMiddleware(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/activities", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	mw.Wrap(echoUser()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-42", rec.Body.String())
}

func TestMiddlewareRejects(t *testing.T) {
	svc := newTestService(time.Now())
	mw := NewMiddleware(svc, nil)

	cases := map[string]struct {
		header  string
		message string
	}{
		"missing":    {header: "", message: "no token provided"},
		"bad scheme": {header: "Basic abc", message: "invalid token"},
		"garbage":    {header: "Bearer nope", message: "invalid token"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/goals", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			mw.Wrap(echoUser()).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "unauthorized", body["type"])
			assert.Equal(t, tc.message, body["message"])
		})
	}
}

func TestMiddlewareSkipsPublicPaths(t *testing.T) {
	mw := NewMiddleware(newTestService(time.Now()), PublicPaths("/auth/login", "/healthz"))

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/auth/login", nil),
		httptest.NewRequest(http.MethodGet, "/healthz", nil),
		httptest.NewRequest(http.MethodOptions, "/activities", nil),
	} {
		rec := httptest.NewRecorder()
		mw.Wrap(echoUser()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, req.URL.Path)
	}
}
