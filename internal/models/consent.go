package models

import (
	"time"
)

// Legal bases a consent record can rest on.
const (
	LegalBasisConsent            = "consent"
	LegalBasisLegitimateInterest = "legitimate_interest"
	LegalBasisContract           = "contract"
	LegalBasisLegalObligation    = "legal_obligation"
)

// ConsentRecord is one row per (user, category) in `consent_records`.
// Records are never deleted: revocation sets RevokedAt and flips Granted.
type ConsentRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Category  string    `json:"category"`
	Purpose   string    `json:"purpose"`
	Granted   bool      `json:"granted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	GrantedAt *time.Time `json:"granted_at,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	LegalBasis           string   `json:"legal_basis"`
	DataCategories       []string `json:"data_categories"`
	ProcessingActivities []string `json:"processing_activities"`

	RetentionPeriodDays *int `json:"retention_period_days,omitempty"`
}

// ConsentTemplate is the system-defined policy for a category. Templates are
// read-only to users and seed new ConsentRecords on first grant/revoke.
type ConsentTemplate struct {
	Category             string   `json:"category"`
	Name                 string   `json:"name"`
	Purpose              string   `json:"purpose"`
	LegalBasis           string   `json:"legal_basis"`
	DataCategories       []string `json:"data_categories"`
	ProcessingActivities []string `json:"processing_activities"`
	Required             bool     `json:"required"`
	DefaultGranted       bool     `json:"default_granted"`
	ExpiresAfterDays     *int     `json:"expires_after_days,omitempty"`
	RetentionPeriodDays  *int     `json:"retention_period_days,omitempty"`
	IsActive             bool     `json:"is_active"`
}

// DataRetentionPolicy is informational compliance metadata per category.
type DataRetentionPolicy struct {
	Category      string `json:"category"`
	RetentionDays int    `json:"retention_days"`
	AutoDelete    bool   `json:"auto_delete"`
	IsActive      bool   `json:"is_active"`
}
