package store

import (
	"context"
	"database/sql"

	"github.com/gatherly-app/gatherly-backend/internal/models"
	"github.com/lib/pq"
)

// Store wraps the PostgreSQL connection for profile and consent persistence.
// It implements identity.HandleStore, identity.ProfileStore and consent.Store
// so the core packages stay substitutable with in-memory fakes in tests.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const profileColumns = `
	user_id, created_at, updated_at,
	username, display_name, first_name, last_name,
	anonymous_handle, anonymous_display_name,
	is_anonymous, can_reveal_identity, real_name_visibility,
	avatar_url, is_active, password_hash
`

func scanProfile(row interface{ Scan(...interface{}) error }) (*models.Profile, error) {
	var p models.Profile
	var username, displayName, firstName, lastName sql.NullString
	var anonDisplay, avatarURL sql.NullString

	err := row.Scan(
		&p.UserID, &p.CreatedAt, &p.UpdatedAt,
		&username, &displayName, &firstName, &lastName,
		&p.AnonymousHandle, &anonDisplay,
		&p.IsAnonymous, &p.CanRevealIdentity, &p.RealNameVisibility,
		&avatarURL, &p.IsActive, &p.PasswordHash,
	)
	if err != nil {
		return nil, err
	}

	p.Username = username.String
	p.DisplayName = displayName.String
	p.FirstName = firstName.String
	p.LastName = lastName.String
	p.AnonymousDisplayName = anonDisplay.String
	p.AvatarURL = avatarURL.String
	return &p, nil
}

// IsHandleTaken reports whether any profile already uses the handle as either
// its username or its anonymous handle (case-insensitive).
func (s *Store) IsHandleTaken(ctx context.Context, handle string) (bool, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM profiles
			WHERE LOWER(username) = LOWER($1) OR LOWER(anonymous_handle) = LOWER($1)
		)
	`, handle).Scan(&taken)
	return taken, err
}

// GetProfile returns the active profile for a user id, or nil when missing.
func (s *Store) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles WHERE user_id = $1 AND is_active = TRUE
	`, userID)

	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// GetProfiles returns active profiles for a batch of user ids, keyed by id.
// Missing ids are simply absent from the result.
func (s *Store) GetProfiles(ctx context.Context, userIDs []string) (map[string]*models.Profile, error) {
	out := make(map[string]*models.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles WHERE user_id = ANY($1) AND is_active = TRUE
	`, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out[p.UserID] = p
	}
	return out, rows.Err()
}

// GetProfileByLogin finds an active profile by username or anonymous handle.
func (s *Store) GetProfileByLogin(ctx context.Context, login string) (*models.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE (LOWER(username) = LOWER($1) OR LOWER(anonymous_handle) = LOWER($1)) AND is_active = TRUE
	`, login)

	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// CreateProfile inserts a new anonymous-first profile row.
func (s *Store) CreateProfile(ctx context.Context, p *models.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (
			user_id, created_at, updated_at,
			username, anonymous_handle, anonymous_display_name,
			is_anonymous, can_reveal_identity, real_name_visibility,
			is_active, password_hash
		) VALUES ($1, NOW(), NOW(), $2, $3, $4, $5, $6, $7, TRUE, $8)
	`, p.UserID, nullable(p.Username), p.AnonymousHandle, nullable(p.AnonymousDisplayName),
		p.IsAnonymous, p.CanRevealIdentity, p.RealNameVisibility, p.PasswordHash)
	return err
}

// UpdateProfileSettings updates the owner-controlled identity fields.
func (s *Store) UpdateProfileSettings(ctx context.Context, p *models.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET
			display_name = $2, first_name = $3, last_name = $4,
			is_anonymous = $5, can_reveal_identity = $6, real_name_visibility = $7,
			updated_at = NOW()
		WHERE user_id = $1
	`, p.UserID, nullable(p.DisplayName), nullable(p.FirstName), nullable(p.LastName),
		p.IsAnonymous, p.CanRevealIdentity, p.RealNameVisibility)
	return err
}

// SetAnonymousHandle swaps a user's anonymous identity for a regenerated one.
func (s *Store) SetAnonymousHandle(ctx context.Context, userID, handle, displayName string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET anonymous_handle = $2, anonymous_display_name = $3, updated_at = NOW()
		WHERE user_id = $1
	`, userID, handle, nullable(displayName))
	return err
}

// SetRecoveryEmail stores the encrypted recovery email. The plaintext never
// touches the database.
func (s *Store) SetRecoveryEmail(ctx context.Context, userID, encrypted string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET recovery_email_encrypted = $2, updated_at = NOW() WHERE user_id = $1
	`, userID, encrypted)
	return err
}

// SetAvatarURL stores the uploaded avatar location.
func (s *Store) SetAvatarURL(ctx context.Context, userID, url string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET avatar_url = $2, updated_at = NOW() WHERE user_id = $1
	`, userID, url)
	return err
}

// --- Consent persistence ---

const consentColumns = `
	id, user_id, category, purpose, granted,
	granted_at, revoked_at, expires_at,
	legal_basis, data_categories, processing_activities,
	retention_period_days, created_at, updated_at
`

func scanConsentRecord(row interface{ Scan(...interface{}) error }) (*models.ConsentRecord, error) {
	var r models.ConsentRecord
	var retention sql.NullInt64

	err := row.Scan(
		&r.ID, &r.UserID, &r.Category, &r.Purpose, &r.Granted,
		&r.GrantedAt, &r.RevokedAt, &r.ExpiresAt,
		&r.LegalBasis, pq.Array(&r.DataCategories), pq.Array(&r.ProcessingActivities),
		&retention, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if retention.Valid {
		days := int(retention.Int64)
		r.RetentionPeriodDays = &days
	}
	return &r, nil
}

// GetConsentRecord returns the record for (user, category), or nil when the
// user has never granted or revoked that category.
func (s *Store) GetConsentRecord(ctx context.Context, userID, category string) (*models.ConsentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+consentColumns+`
		FROM consent_records WHERE user_id = $1 AND category = $2
	`, userID, category)

	r, err := scanConsentRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// ListConsentRecords returns all of a user's consent records, newest first.
func (s *Store) ListConsentRecords(ctx context.Context, userID string) ([]models.ConsentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+consentColumns+`
		FROM consent_records WHERE user_id = $1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ConsentRecord
	for rows.Next() {
		r, err := scanConsentRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// UpsertConsentRecord inserts or updates the single row keyed by
// (user_id, category). The unique index makes the upsert atomic at the
// storage layer; concurrent updates for the same category are last-write-wins.
func (s *Store) UpsertConsentRecord(ctx context.Context, record *models.ConsentRecord) error {
	var retention interface{}
	if record.RetentionPeriodDays != nil {
		retention = *record.RetentionPeriodDays
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consent_records (
			id, user_id, category, purpose, granted,
			granted_at, revoked_at, expires_at,
			legal_basis, data_categories, processing_activities,
			retention_period_days, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id, category) DO UPDATE SET
			purpose = EXCLUDED.purpose,
			granted = EXCLUDED.granted,
			granted_at = EXCLUDED.granted_at,
			revoked_at = EXCLUDED.revoked_at,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`, record.ID, record.UserID, record.Category, record.Purpose, record.Granted,
		record.GrantedAt, record.RevokedAt, record.ExpiresAt,
		record.LegalBasis, pq.Array(record.DataCategories), pq.Array(record.ProcessingActivities),
		retention, record.CreatedAt, record.UpdatedAt)
	return err
}

func scanConsentTemplate(row interface{ Scan(...interface{}) error }) (*models.ConsentTemplate, error) {
	var t models.ConsentTemplate
	var expires, retention sql.NullInt64

	err := row.Scan(
		&t.Category, &t.Name, &t.Purpose, &t.LegalBasis,
		pq.Array(&t.DataCategories), pq.Array(&t.ProcessingActivities),
		&t.Required, &t.DefaultGranted, &expires, &retention, &t.IsActive,
	)
	if err != nil {
		return nil, err
	}
	if expires.Valid {
		days := int(expires.Int64)
		t.ExpiresAfterDays = &days
	}
	if retention.Valid {
		days := int(retention.Int64)
		t.RetentionPeriodDays = &days
	}
	return &t, nil
}

const consentTemplateColumns = `
	category, name, purpose, legal_basis,
	data_categories, processing_activities,
	required, default_granted, expires_after_days, retention_period_days, is_active
`

// GetConsentTemplate returns the template for a category, or nil when none exists.
func (s *Store) GetConsentTemplate(ctx context.Context, category string) (*models.ConsentTemplate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+consentTemplateColumns+`
		FROM consent_templates WHERE category = $1
	`, category)

	t, err := scanConsentTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// ListActiveConsentTemplates returns all templates currently in force.
func (s *Store) ListActiveConsentTemplates(ctx context.Context) ([]models.ConsentTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+consentTemplateColumns+`
		FROM consent_templates WHERE is_active = TRUE
		ORDER BY category
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []models.ConsentTemplate
	for rows.Next() {
		t, err := scanConsentTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// ListActiveRetentionPolicies returns the active data-retention policies.
func (s *Store) ListActiveRetentionPolicies(ctx context.Context) ([]models.DataRetentionPolicy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, retention_days, auto_delete, is_active
		FROM data_retention_policies WHERE is_active = TRUE
		ORDER BY category
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []models.DataRetentionPolicy
	for rows.Next() {
		var p models.DataRetentionPolicy
		if err := rows.Scan(&p.Category, &p.RetentionDays, &p.AutoDelete, &p.IsActive); err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// nullable maps "" to NULL for optional text columns.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
