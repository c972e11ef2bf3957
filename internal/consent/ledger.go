package consent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gatherly-app/gatherly-backend/internal/models"
	"github.com/google/uuid"
)

// ErrUnknownCategory is returned when no active template defines the
// requested consent category.
var ErrUnknownCategory = errors.New("unknown consent category")

// Store is the persistence surface the ledger needs. One record per
// (user, category); records are upserted, never deleted.
type Store interface {
	GetConsentRecord(ctx context.Context, userID, category string) (*models.ConsentRecord, error)
	ListConsentRecords(ctx context.Context, userID string) ([]models.ConsentRecord, error)
	UpsertConsentRecord(ctx context.Context, record *models.ConsentRecord) error
	GetConsentTemplate(ctx context.Context, category string) (*models.ConsentTemplate, error)
	ListActiveConsentTemplates(ctx context.Context) ([]models.ConsentTemplate, error)
}

// Summary classifies every active consent category for a user.
type Summary struct {
	TotalCategories         int      `json:"total_categories"`
	GrantedCategories       int      `json:"granted_categories"`
	RevokedCategories       int      `json:"revoked_categories"`
	ExpiredCategories       int      `json:"expired_categories"`
	RequiredCategories      int      `json:"required_categories"`
	MissingRequiredConsents []string `json:"missing_required_consents"`
}

// Ledger tracks per-category consent grants and revocations. The acting user
// id is always an explicit parameter; the ledger never reads ambient session
// state. The clock is injectable for expiry tests.
type Ledger struct {
	store Store
	now   func() time.Time
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// NewLedgerWithClock is NewLedger with a fixed clock, for tests.
func NewLedgerWithClock(store Store, now func() time.Time) *Ledger {
	return &Ledger{store: store, now: now}
}

// Records returns all consent records for a user, newest first.
func (l *Ledger) Records(ctx context.Context, userID string) ([]models.ConsentRecord, error) {
	records, err := l.store.ListConsentRecords(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load consent records: %w", err)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
	return records, nil
}

// Update upserts the (user, category) record. A first-time grant or revoke
// creates the record seeded from the category's template. Granting computes a
// fresh expiry when the template defines one; revoking sets RevokedAt and
// leaves any prior expiry untouched.
func (l *Ledger) Update(ctx context.Context, userID, category string, granted bool, purpose string) (*models.ConsentRecord, error) {
	template, err := l.store.GetConsentTemplate(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to load consent template: %w", err)
	}
	if template == nil || !template.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	now := l.now()

	record, err := l.store.GetConsentRecord(ctx, userID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to load consent record: %w", err)
	}

	if record == nil {
		record = &models.ConsentRecord{
			ID:                   uuid.New().String(),
			UserID:               userID,
			Category:             category,
			Purpose:              template.Purpose,
			LegalBasis:           template.LegalBasis,
			DataCategories:       template.DataCategories,
			ProcessingActivities: template.ProcessingActivities,
			RetentionPeriodDays:  template.RetentionPeriodDays,
			CreatedAt:            now,
		}
	}
	if purpose != "" {
		record.Purpose = purpose
	}

	record.Granted = granted
	record.UpdatedAt = now
	if granted {
		record.GrantedAt = &now
		record.RevokedAt = nil
		record.ExpiresAt = nil
		if template.ExpiresAfterDays != nil {
			expires := now.AddDate(0, 0, *template.ExpiresAfterDays)
			record.ExpiresAt = &expires
		}
	} else {
		record.RevokedAt = &now
	}

	if err := l.store.UpsertConsentRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save consent record: %w", err)
	}
	return record, nil
}

// Has reports whether the user currently holds a valid grant for the
// category: a record exists, is granted, and has not expired.
func (l *Ledger) Has(ctx context.Context, userID, category string) (bool, error) {
	record, err := l.store.GetConsentRecord(ctx, userID, category)
	if err != nil {
		return false, fmt.Errorf("failed to load consent record: %w", err)
	}
	return l.isCurrentlyGranted(record), nil
}

// Summary walks all active templates and classifies each by the matching
// record's state.
func (l *Ledger) Summary(ctx context.Context, userID string) (*Summary, error) {
	templates, err := l.store.ListActiveConsentTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load consent templates: %w", err)
	}
	records, err := l.store.ListConsentRecords(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load consent records: %w", err)
	}

	byCategory := make(map[string]*models.ConsentRecord, len(records))
	for i := range records {
		byCategory[records[i].Category] = &records[i]
	}

	summary := &Summary{
		TotalCategories:         len(templates),
		MissingRequiredConsents: []string{},
	}

	for _, t := range templates {
		if t.Required {
			summary.RequiredCategories++
		}

		record := byCategory[t.Category]
		switch {
		case record == nil:
			if t.Required {
				summary.MissingRequiredConsents = append(summary.MissingRequiredConsents, t.Category)
			}
		case l.isCurrentlyGranted(record):
			summary.GrantedCategories++
		case record.Granted:
			// Granted on paper but past its expiry.
			summary.ExpiredCategories++
			if t.Required {
				summary.MissingRequiredConsents = append(summary.MissingRequiredConsents, t.Category)
			}
		default:
			summary.RevokedCategories++
			if t.Required {
				summary.MissingRequiredConsents = append(summary.MissingRequiredConsents, t.Category)
			}
		}
	}

	return summary, nil
}

// RevokeAll revokes every currently-granted record for the user. Each record
// is a single-row upsert, so atomicity is per category.
func (l *Ledger) RevokeAll(ctx context.Context, userID string) (int, error) {
	records, err := l.store.ListConsentRecords(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load consent records: %w", err)
	}

	now := l.now()
	revoked := 0
	for i := range records {
		record := &records[i]
		if !record.Granted {
			continue
		}
		record.Granted = false
		record.RevokedAt = &now
		record.UpdatedAt = now
		if err := l.store.UpsertConsentRecord(ctx, record); err != nil {
			return revoked, fmt.Errorf("failed to revoke consent for %s: %w", record.Category, err)
		}
		revoked++
	}
	return revoked, nil
}

func (l *Ledger) isCurrentlyGranted(record *models.ConsentRecord) bool {
	if record == nil || !record.Granted {
		return false
	}
	if record.ExpiresAt != nil && !record.ExpiresAt.After(l.now()) {
		return false
	}
	return true
}
