package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"musicstream/core/auth"
	"musicstream/core/catalog"
	"musicstream/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", catalog.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"credentials", catalog.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"forbidden", catalog.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"track not found", catalog.ErrTrackNotFound, http.StatusNotFound, "TRACK_NOT_FOUND"},
		{"not found", catalog.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"duplicate email", catalog.ErrDuplicateEmail, http.StatusConflict, "DUPLICATE_EMAIL"},
		{"not connected", db.ErrNotConnected, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"},
		{"exhausted", db.ErrConnectionExhausted, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"},
		{"unknown", assert.AnError, http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body errorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestHealthHandlerDegraded(t *testing.T) {
	h := NewAPIHandler(nil, db.NewManager("testdb"), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.HealthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		API      string            `json:"api"`
		Database db.HealthSnapshot `json:"database"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "healthy", body.API)
	assert.Equal(t, db.StatusDisconnected, body.Database.Status)
}

func TestDBTestHandlerReacquireFails(t *testing.T) {
	// No candidates means re-acquisition cannot succeed.
	h := NewAPIHandler(nil, db.NewManager("testdb"), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/db-test", nil)
	rec := httptest.NewRecorder()
	h.DBTestHandler(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "failed", body.Status)
}

func TestAuthMiddleware(t *testing.T) {
	auth.Configure("test-secret", time.Hour)
	h := NewAPIHandler(nil, db.NewManager("testdb"), nil, nil)

	var gotUserID string
	protected := h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		id, err := GetUserIDFromContext(r.Context())
		require.NoError(t, err)
		gotUserID = id
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.token", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	token, err := auth.GenerateToken("user-42")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-42", gotUserID)
}
