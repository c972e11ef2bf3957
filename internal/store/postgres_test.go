package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gatherly-app/gatherly-backend/internal/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestIsHandleTaken(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("swift_otter42").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := s.IsHandleTaken(context.Background(), "swift_otter42")
	require.NoError(t, err)
	assert.True(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfileMissingReturnsNil(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT(.|\n)+FROM profiles WHERE user_id`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	p, err := s.GetProfile(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func profileRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"user_id", "created_at", "updated_at",
		"username", "display_name", "first_name", "last_name",
		"anonymous_handle", "anonymous_display_name",
		"is_anonymous", "can_reveal_identity", "real_name_visibility",
		"avatar_url", "is_active", "password_hash",
	}).AddRow(
		"u1", now, now,
		"jane_doe", nil, nil, nil,
		"swift_otter42", "Swift Otter 42",
		true, false, false,
		nil, true, "argon2-hash",
	)
}

func TestGetProfile(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT(.|\n)+FROM profiles WHERE user_id`).
		WithArgs("u1").
		WillReturnRows(profileRows())

	p, err := s.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "jane_doe", p.Username)
	assert.Equal(t, "swift_otter42", p.AnonymousHandle)
	assert.Empty(t, p.DisplayName, "NULL columns map to empty strings")
	assert.True(t, p.IsAnonymous)
	assert.Equal(t, "argon2-hash", p.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfilesBatch(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT(.|\n)+FROM profiles WHERE user_id = ANY`).
		WithArgs(pq.Array([]string{"u1", "missing"})).
		WillReturnRows(profileRows())

	out, err := s.GetProfiles(context.Background(), []string{"u1", "missing"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(t, out, "u1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfilesEmptyInputSkipsQuery(t *testing.T) {
	s, mock := newMockStore(t)

	out, err := s.GetProfiles(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetConsentRecordMissingReturnsNil(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT(.|\n)+FROM consent_records WHERE user_id`).
		WithArgs("u1", "analytics").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	r, err := s.GetConsentRecord(context.Background(), "u1", "analytics")
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetConsentRecord(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now()
	expires := now.AddDate(0, 0, 30)
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "category", "purpose", "granted",
		"granted_at", "revoked_at", "expires_at",
		"legal_basis", "data_categories", "processing_activities",
		"retention_period_days", "created_at", "updated_at",
	}).AddRow(
		"rec-1", "u1", "analytics", "Product analytics", true,
		now, nil, expires,
		"consent", "{usage_data}", "{aggregation}",
		int64(365), now, now,
	)

	mock.ExpectQuery(`SELECT(.|\n)+FROM consent_records WHERE user_id`).
		WithArgs("u1", "analytics").
		WillReturnRows(rows)

	r, err := s.GetConsentRecord(context.Background(), "u1", "analytics")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.True(t, r.Granted)
	require.NotNil(t, r.GrantedAt)
	assert.Nil(t, r.RevokedAt)
	require.NotNil(t, r.ExpiresAt)
	assert.Equal(t, []string{"usage_data"}, r.DataCategories)
	require.NotNil(t, r.RetentionPeriodDays)
	assert.Equal(t, 365, *r.RetentionPeriodDays)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertConsentRecord(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now()
	record := &models.ConsentRecord{
		ID:                   "rec-1",
		UserID:               "u1",
		Category:             "analytics",
		Purpose:              "Product analytics",
		Granted:              true,
		GrantedAt:            &now,
		LegalBasis:           models.LegalBasisConsent,
		DataCategories:       []string{"usage_data"},
		ProcessingActivities: []string{"aggregation"},
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	mock.ExpectExec(`INSERT INTO consent_records(.|\n)+ON CONFLICT \(user_id, category\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpsertConsentRecord(context.Background(), record)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveConsentTemplates(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{
		"category", "name", "purpose", "legal_basis",
		"data_categories", "processing_activities",
		"required", "default_granted", "expires_after_days", "retention_period_days", "is_active",
	}).AddRow(
		"analytics", "Analytics", "Product analytics", "consent",
		"{usage_data}", "{aggregation}",
		false, false, int64(365), nil, true,
	).AddRow(
		"essential", "Essential", "Core platform functionality", "contract",
		"{account_data}", "{operation}",
		true, true, nil, nil, true,
	)

	mock.ExpectQuery(`SELECT(.|\n)+FROM consent_templates WHERE is_active`).
		WillReturnRows(rows)

	templates, err := s.ListActiveConsentTemplates(context.Background())
	require.NoError(t, err)
	require.Len(t, templates, 2)

	assert.Equal(t, "analytics", templates[0].Category)
	require.NotNil(t, templates[0].ExpiresAfterDays)
	assert.Equal(t, 365, *templates[0].ExpiresAfterDays)
	assert.Nil(t, templates[1].ExpiresAfterDays)
	assert.True(t, templates[1].Required)
	assert.NoError(t, mock.ExpectationsWereMet())
}
