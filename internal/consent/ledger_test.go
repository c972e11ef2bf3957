package consent

import (
	"context"
	"testing"
	"time"

	"github.com/gatherly-app/gatherly-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory consent store keyed by (user, category).
type memStore struct {
	records   map[string]*models.ConsentRecord
	templates map[string]*models.ConsentTemplate
}

func newMemStore(templates ...*models.ConsentTemplate) *memStore {
	s := &memStore{
		records:   map[string]*models.ConsentRecord{},
		templates: map[string]*models.ConsentTemplate{},
	}
	for _, t := range templates {
		s.templates[t.Category] = t
	}
	return s
}

func recordKey(userID, category string) string {
	return userID + "/" + category
}

func (s *memStore) GetConsentRecord(_ context.Context, userID, category string) (*models.ConsentRecord, error) {
	r, ok := s.records[recordKey(userID, category)]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) ListConsentRecords(_ context.Context, userID string) ([]models.ConsentRecord, error) {
	var out []models.ConsentRecord
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *memStore) UpsertConsentRecord(_ context.Context, record *models.ConsentRecord) error {
	cp := *record
	s.records[recordKey(record.UserID, record.Category)] = &cp
	return nil
}

func (s *memStore) GetConsentTemplate(_ context.Context, category string) (*models.ConsentTemplate, error) {
	t, ok := s.templates[category]
	if !ok {
		return nil, nil
	}
	return t, nil
}

func (s *memStore) ListActiveConsentTemplates(_ context.Context) ([]models.ConsentTemplate, error) {
	var out []models.ConsentTemplate
	for _, t := range s.templates {
		if t.IsActive {
			out = append(out, *t)
		}
	}
	return out, nil
}

func intPtr(v int) *int { return &v }

func analyticsTemplate() *models.ConsentTemplate {
	return &models.ConsentTemplate{
		Category:             "analytics",
		Name:                 "Analytics",
		Purpose:              "Product analytics",
		LegalBasis:           models.LegalBasisConsent,
		DataCategories:       []string{"usage_data"},
		ProcessingActivities: []string{"aggregation"},
		ExpiresAfterDays:     intPtr(30),
		IsActive:             true,
	}
}

func essentialTemplate() *models.ConsentTemplate {
	return &models.ConsentTemplate{
		Category:   "essential",
		Name:       "Essential",
		Purpose:    "Core platform functionality",
		LegalBasis: models.LegalBasisContract,
		Required:   true,
		IsActive:   true,
	}
}

func termsTemplate() *models.ConsentTemplate {
	return &models.ConsentTemplate{
		Category:   "terms_of_service",
		Name:       "Terms of Service",
		Purpose:    "Agreement to the terms",
		LegalBasis: models.LegalBasisContract,
		Required:   true,
		IsActive:   true,
	}
}

// fixedClock returns a settable now func.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

func TestUpdateGrantSeedsFromTemplate(t *testing.T) {
	store := newMemStore(analyticsTemplate())
	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ledger := NewLedgerWithClock(store, clock.now)

	record, err := ledger.Update(context.Background(), "u1", "analytics", true, "")
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "u1", record.UserID)
	assert.Equal(t, "Product analytics", record.Purpose)
	assert.Equal(t, models.LegalBasisConsent, record.LegalBasis)
	assert.Equal(t, []string{"usage_data"}, record.DataCategories)
	assert.True(t, record.Granted)
	require.NotNil(t, record.GrantedAt)
	assert.Equal(t, clock.t, *record.GrantedAt)
	assert.Nil(t, record.RevokedAt)
	require.NotNil(t, record.ExpiresAt)
	assert.Equal(t, clock.t.AddDate(0, 0, 30), *record.ExpiresAt)
}

func TestUpdateGrantWithoutExpiryTemplate(t *testing.T) {
	store := newMemStore(essentialTemplate())
	ledger := NewLedger(store)

	record, err := ledger.Update(context.Background(), "u1", "essential", true, "")
	require.NoError(t, err)
	assert.Nil(t, record.ExpiresAt)
}

func TestUpdateUnknownCategory(t *testing.T) {
	ledger := NewLedger(newMemStore())

	_, err := ledger.Update(context.Background(), "u1", "telepathy", true, "")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestUpdateInactiveTemplateRejected(t *testing.T) {
	tmpl := analyticsTemplate()
	tmpl.IsActive = false
	ledger := NewLedger(newMemStore(tmpl))

	_, err := ledger.Update(context.Background(), "u1", "analytics", true, "")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestUpdatePurposeOverride(t *testing.T) {
	ledger := NewLedger(newMemStore(analyticsTemplate()))

	record, err := ledger.Update(context.Background(), "u1", "analytics", true, "Custom purpose")
	require.NoError(t, err)
	assert.Equal(t, "Custom purpose", record.Purpose)
}

func TestRevokeLeavesExpiryUntouched(t *testing.T) {
	store := newMemStore(analyticsTemplate())
	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ledger := NewLedgerWithClock(store, clock.now)

	granted, err := ledger.Update(context.Background(), "u1", "analytics", true, "")
	require.NoError(t, err)
	originalExpiry := *granted.ExpiresAt

	clock.t = clock.t.Add(48 * time.Hour)
	revoked, err := ledger.Update(context.Background(), "u1", "analytics", false, "")
	require.NoError(t, err)

	assert.False(t, revoked.Granted)
	require.NotNil(t, revoked.RevokedAt)
	assert.Equal(t, clock.t, *revoked.RevokedAt)
	require.NotNil(t, revoked.ExpiresAt)
	assert.Equal(t, originalExpiry, *revoked.ExpiresAt)
	assert.Equal(t, granted.ID, revoked.ID, "revoke must update the same record, not create a second one")
}

func TestRegrantRecomputesExpiry(t *testing.T) {
	store := newMemStore(analyticsTemplate())
	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ledger := NewLedgerWithClock(store, clock.now)

	_, err := ledger.Update(context.Background(), "u1", "analytics", true, "")
	require.NoError(t, err)
	_, err = ledger.Update(context.Background(), "u1", "analytics", false, "")
	require.NoError(t, err)

	clock.t = clock.t.AddDate(0, 0, 10)
	regranted, err := ledger.Update(context.Background(), "u1", "analytics", true, "")
	require.NoError(t, err)

	assert.Nil(t, regranted.RevokedAt)
	require.NotNil(t, regranted.ExpiresAt)
	assert.Equal(t, clock.t.AddDate(0, 0, 30), *regranted.ExpiresAt)
}

func TestHas(t *testing.T) {
	store := newMemStore(analyticsTemplate())
	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ledger := NewLedgerWithClock(store, clock.now)

	has, err := ledger.Has(context.Background(), "u1", "analytics")
	require.NoError(t, err)
	assert.False(t, has, "no record yet")

	_, err = ledger.Update(context.Background(), "u1", "analytics", true, "")
	require.NoError(t, err)

	has, err = ledger.Has(context.Background(), "u1", "analytics")
	require.NoError(t, err)
	assert.True(t, has)

	_, err = ledger.Update(context.Background(), "u1", "analytics", false, "")
	require.NoError(t, err)

	has, err = ledger.Has(context.Background(), "u1", "analytics")
	require.NoError(t, err)
	assert.False(t, has, "revoked")
}

func TestHasExpiry(t *testing.T) {
	store := newMemStore(analyticsTemplate())
	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ledger := NewLedgerWithClock(store, clock.now)

	_, err := ledger.Update(context.Background(), "u1", "analytics", true, "")
	require.NoError(t, err)

	clock.t = clock.t.AddDate(0, 0, 29)
	has, err := ledger.Has(context.Background(), "u1", "analytics")
	require.NoError(t, err)
	assert.True(t, has, "one day before expiry")

	clock.t = clock.t.AddDate(0, 0, 1)
	has, err = ledger.Has(context.Background(), "u1", "analytics")
	require.NoError(t, err)
	assert.False(t, has, "expired exactly at the boundary")
}

func TestSummaryFreshUser(t *testing.T) {
	store := newMemStore(essentialTemplate(), termsTemplate(), analyticsTemplate())
	ledger := NewLedger(store)

	summary, err := ledger.Summary(context.Background(), "fresh")
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalCategories)
	assert.Equal(t, 0, summary.GrantedCategories)
	assert.Equal(t, 2, summary.RequiredCategories)
	assert.ElementsMatch(t, []string{"essential", "terms_of_service"}, summary.MissingRequiredConsents)
}

func TestSummaryClassification(t *testing.T) {
	store := newMemStore(essentialTemplate(), termsTemplate(), analyticsTemplate())
	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ledger := NewLedgerWithClock(store, clock.now)

	ctx := context.Background()
	_, err := ledger.Update(ctx, "u1", "essential", true, "")
	require.NoError(t, err)
	_, err = ledger.Update(ctx, "u1", "terms_of_service", false, "")
	require.NoError(t, err)
	_, err = ledger.Update(ctx, "u1", "analytics", true, "")
	require.NoError(t, err)

	// Let analytics expire.
	clock.t = clock.t.AddDate(0, 0, 31)

	summary, err := ledger.Summary(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalCategories)
	assert.Equal(t, 1, summary.GrantedCategories)
	assert.Equal(t, 1, summary.RevokedCategories)
	assert.Equal(t, 1, summary.ExpiredCategories)
	assert.Equal(t, 2, summary.RequiredCategories)
	assert.ElementsMatch(t, []string{"terms_of_service"}, summary.MissingRequiredConsents)
}

func TestRevokeAll(t *testing.T) {
	store := newMemStore(essentialTemplate(), termsTemplate(), analyticsTemplate())
	ledger := NewLedger(store)

	ctx := context.Background()
	for _, cat := range []string{"essential", "terms_of_service", "analytics"} {
		_, err := ledger.Update(ctx, "u1", cat, true, "")
		require.NoError(t, err)
	}
	_, err := ledger.Update(ctx, "u1", "analytics", false, "")
	require.NoError(t, err)

	revoked, err := ledger.RevokeAll(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, revoked, "already-revoked records are skipped")

	for _, cat := range []string{"essential", "terms_of_service", "analytics"} {
		has, err := ledger.Has(ctx, "u1", cat)
		require.NoError(t, err)
		assert.False(t, has)
	}
}

func TestRecordsSortedNewestFirst(t *testing.T) {
	store := newMemStore(essentialTemplate(), analyticsTemplate())
	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ledger := NewLedgerWithClock(store, clock.now)

	ctx := context.Background()
	_, err := ledger.Update(ctx, "u1", "essential", true, "")
	require.NoError(t, err)

	clock.t = clock.t.Add(time.Hour)
	_, err = ledger.Update(ctx, "u1", "analytics", true, "")
	require.NoError(t, err)

	records, err := ledger.Records(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "analytics", records[0].Category)
	assert.Equal(t, "essential", records[1].Category)
}
