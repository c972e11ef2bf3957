package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gatherly-app/gatherly-backend/internal/identity"
	"github.com/gatherly-app/gatherly-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wireHandlers points the package globals at a sqlmock-backed store for the
// duration of one test.
func wireHandlers(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.NewStore(db)
	InitStore(st)
	InitIdentity(identity.NewSeededGenerator(st, 1), identity.NewResolver(st))
	return mock
}

func TestCheckHandleAvailabilityInvalidHandle(t *testing.T) {
	wireHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/check-handle",
		strings.NewReader(`{"handle":"a!"}`))
	rec := httptest.NewRecorder()

	CheckHandleAvailability(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success   bool     `json:"success"`
		Available bool     `json:"available"`
		Valid     bool     `json:"valid"`
		Errors    []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.False(t, body.Valid)
	assert.False(t, body.Available)
	assert.Len(t, body.Errors, 2, "short and illegal should both be reported")
}

func TestCheckHandleAvailabilityTaken(t *testing.T) {
	mock := wireHandlers(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("swift_otter42").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/check-handle",
		strings.NewReader(`{"handle":"Swift_Otter42"}`))
	rec := httptest.NewRecorder()

	CheckHandleAvailability(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Available bool `json:"available"`
		Valid     bool `json:"valid"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Valid)
	assert.False(t, body.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveDisplayBatchRequiresIDs(t *testing.T) {
	wireHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/identity/display/batch",
		strings.NewReader(`{"user_ids":[]}`))
	rec := httptest.NewRecorder()

	ResolveDisplayBatch(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolveDisplayBatchDegradesOnStoreFailure(t *testing.T) {
	mock := wireHandlers(t)

	mock.ExpectQuery(`SELECT(.|\n)+FROM profiles WHERE user_id = ANY`).
		WillReturnError(assert.AnError)

	req := httptest.NewRequest(http.MethodPost, "/api/identity/display/batch",
		strings.NewReader(`{"user_ids":["a","b"]}`))
	rec := httptest.NewRecorder()

	ResolveDisplayBatch(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Data    map[string]struct {
			DisplayName string `json:"display_name"`
			IsAnonymous bool   `json:"is_anonymous"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	for _, info := range body.Data {
		assert.Equal(t, identity.AnonymousFallback, info.DisplayName)
		assert.True(t, info.IsAnonymous)
	}
}
