package database

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/lib/pq"
)

var PostgresDB *sql.DB

// ConnectPostgres connects to PostgreSQL database
func ConnectPostgres(postgresURI string) error {
	var err error

	PostgresDB, err = sql.Open("postgres", postgresURI)
	if err != nil {
		return err
	}

	// Set connection pool settings
	PostgresDB.SetMaxOpenConns(25)
	PostgresDB.SetMaxIdleConns(5)
	PostgresDB.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	if err = PostgresDB.Ping(); err != nil {
		return err
	}

	log.Println("✅ Connected to PostgreSQL")

	// Initialize tables
	if err = InitPostgresTables(); err != nil {
		return err
	}

	return nil
}

// InitPostgresTables creates all necessary tables if they don't exist
func InitPostgresTables() error {
	queries := []string{
		// Profiles table (anonymous-first: real-name fields optional, never hard-deleted)
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			username VARCHAR(20) UNIQUE,
			display_name VARCHAR(100),
			first_name VARCHAR(100),
			last_name VARCHAR(100),
			anonymous_handle VARCHAR(20) NOT NULL UNIQUE,
			anonymous_display_name VARCHAR(100),
			is_anonymous BOOLEAN NOT NULL DEFAULT TRUE,
			can_reveal_identity BOOLEAN NOT NULL DEFAULT FALSE,
			real_name_visibility BOOLEAN NOT NULL DEFAULT FALSE,
			avatar_url TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			password_hash VARCHAR(255) NOT NULL,
			recovery_email_encrypted TEXT
		)`,

		// Consent records: exactly one row per (user, category), upserted in place
		`CREATE TABLE IF NOT EXISTS consent_records (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
			category VARCHAR(50) NOT NULL,
			purpose TEXT NOT NULL DEFAULT '',
			granted BOOLEAN NOT NULL DEFAULT FALSE,
			granted_at TIMESTAMP,
			revoked_at TIMESTAMP,
			expires_at TIMESTAMP,
			legal_basis VARCHAR(50) NOT NULL DEFAULT 'consent',
			data_categories TEXT[] NOT NULL DEFAULT '{}',
			processing_activities TEXT[] NOT NULL DEFAULT '{}',
			retention_period_days INTEGER,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE(user_id, category)
		)`,

		// Consent templates (system-defined, read-only to users)
		`CREATE TABLE IF NOT EXISTS consent_templates (
			category VARCHAR(50) PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			purpose TEXT NOT NULL,
			legal_basis VARCHAR(50) NOT NULL DEFAULT 'consent',
			data_categories TEXT[] NOT NULL DEFAULT '{}',
			processing_activities TEXT[] NOT NULL DEFAULT '{}',
			required BOOLEAN NOT NULL DEFAULT FALSE,
			default_granted BOOLEAN NOT NULL DEFAULT FALSE,
			expires_after_days INTEGER,
			retention_period_days INTEGER,
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,

		// Data retention policies (informational compliance metadata)
		`CREATE TABLE IF NOT EXISTS data_retention_policies (
			category VARCHAR(50) PRIMARY KEY,
			retention_days INTEGER NOT NULL,
			auto_delete BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,

		// Groups table (public community groups)
		`CREATE TABLE IF NOT EXISTS groups (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			name VARCHAR(255) NOT NULL,
			slug VARCHAR(255) NOT NULL UNIQUE,
			description TEXT,
			created_by UUID NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
			is_public BOOLEAN NOT NULL DEFAULT TRUE,
			member_count INTEGER NOT NULL DEFAULT 1
		)`,

		// Group members table (many-to-many relationship)
		`CREATE TABLE IF NOT EXISTS group_members (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			group_id UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
			role VARCHAR(20) NOT NULL DEFAULT 'member',
			joined_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE(group_id, user_id)
		)`,

		// Events table
		`CREATE TABLE IF NOT EXISTS events (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			title VARCHAR(255) NOT NULL,
			description TEXT,
			location VARCHAR(255),
			starts_at TIMESTAMP NOT NULL,
			ends_at TIMESTAMP NOT NULL,
			capacity INTEGER NOT NULL DEFAULT 0,
			created_by UUID NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
			is_cancelled BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		// Bookings table (one seat per user per event)
		`CREATE TABLE IF NOT EXISTS bookings (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
			status VARCHAR(20) NOT NULL DEFAULT 'confirmed',
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			cancelled_at TIMESTAMP,
			UNIQUE(event_id, user_id)
		)`,

		// Create indexes for better performance
		`CREATE INDEX IF NOT EXISTS idx_profiles_username_lower ON profiles(LOWER(username))`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_handle_lower ON profiles(LOWER(anonymous_handle))`,
		`CREATE INDEX IF NOT EXISTS idx_consent_records_user_id ON consent_records(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_consent_records_category ON consent_records(category)`,
		`CREATE INDEX IF NOT EXISTS idx_groups_created_by ON groups(created_by)`,
		`CREATE INDEX IF NOT EXISTS idx_groups_is_public ON groups(is_public)`,
		`CREATE INDEX IF NOT EXISTS idx_group_members_group_id ON group_members(group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_group_members_user_id ON group_members(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_starts_at ON events(starts_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_created_by ON events(created_by)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_event_id ON bookings(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user_id ON bookings(user_id)`,
	}

	for _, query := range queries {
		if _, err := PostgresDB.Exec(query); err != nil {
			return err
		}
	}

	if err := seedConsentDefaults(); err != nil {
		return err
	}

	log.Println("✅ PostgreSQL tables initialized")
	return nil
}

// seedConsentDefaults inserts the system consent templates and retention
// policies. Existing rows are left untouched so operators can tune them.
func seedConsentDefaults() error {
	seeds := []string{
		`INSERT INTO consent_templates (category, name, purpose, legal_basis, data_categories, processing_activities, required, default_granted, expires_after_days, retention_period_days)
		 VALUES ('essential', 'Essential Services', 'Account management, security, and core platform functionality', 'contract',
		         '{account,security}', '{authentication,session_management}', TRUE, TRUE, NULL, 365)
		 ON CONFLICT (category) DO NOTHING`,
		`INSERT INTO consent_templates (category, name, purpose, legal_basis, data_categories, processing_activities, required, default_granted, expires_after_days, retention_period_days)
		 VALUES ('terms_of_service', 'Terms of Service', 'Acceptance of the platform terms of service', 'contract',
		         '{account}', '{terms_acceptance}', TRUE, FALSE, NULL, 365)
		 ON CONFLICT (category) DO NOTHING`,
		`INSERT INTO consent_templates (category, name, purpose, legal_basis, data_categories, processing_activities, required, default_granted, expires_after_days, retention_period_days)
		 VALUES ('analytics', 'Usage Analytics', 'Anonymous usage statistics to improve the platform', 'consent',
		         '{usage}', '{analytics,aggregation}', FALSE, FALSE, 365, 90)
		 ON CONFLICT (category) DO NOTHING`,
		`INSERT INTO consent_templates (category, name, purpose, legal_basis, data_categories, processing_activities, required, default_granted, expires_after_days, retention_period_days)
		 VALUES ('marketing', 'Marketing Communications', 'Product news and community highlights by email', 'consent',
		         '{contact}', '{email_marketing}', FALSE, FALSE, 365, 30)
		 ON CONFLICT (category) DO NOTHING`,
		`INSERT INTO consent_templates (category, name, purpose, legal_basis, data_categories, processing_activities, required, default_granted, expires_after_days, retention_period_days)
		 VALUES ('news_personalization', 'News Personalization', 'Tailor the news feed to followed sources', 'consent',
		         '{preferences}', '{feed_personalization}', FALSE, FALSE, 180, 30)
		 ON CONFLICT (category) DO NOTHING`,

		`INSERT INTO data_retention_policies (category, retention_days, auto_delete)
		 VALUES ('essential', 365, FALSE) ON CONFLICT (category) DO NOTHING`,
		`INSERT INTO data_retention_policies (category, retention_days, auto_delete)
		 VALUES ('analytics', 90, TRUE) ON CONFLICT (category) DO NOTHING`,
		`INSERT INTO data_retention_policies (category, retention_days, auto_delete)
		 VALUES ('marketing', 30, TRUE) ON CONFLICT (category) DO NOTHING`,
		`INSERT INTO data_retention_policies (category, retention_days, auto_delete)
		 VALUES ('news_personalization', 30, TRUE) ON CONFLICT (category) DO NOTHING`,
	}

	for _, query := range seeds {
		if _, err := PostgresDB.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// DisconnectPostgres closes the PostgreSQL connection
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}
