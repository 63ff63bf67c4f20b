package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	ItemTypeViolation   = "violation"
	ItemTypeApplication = "application"
	ItemTypeComplaint   = "complaint"
)

const (
	CorrectionStatusPending  = "pending"
	CorrectionStatusApproved = "approved"
	CorrectionStatusRejected = "rejected"
)

// Why an AI-generated note needed correcting.
const (
	ErrorCategoryTooVague               = "too_vague"
	ErrorCategoryWrongSeverity          = "wrong_severity"
	ErrorCategoryMissingContext         = "missing_context"
	ErrorCategoryStaleTreatedAsActive   = "stale_treated_as_active"
	ErrorCategoryWrongAgencyExplanation = "wrong_agency_explanation"
	ErrorCategoryMissingNote            = "missing_note"
	ErrorCategoryFactualError           = "factual_error"
	ErrorCategoryToneStyle              = "tone_style"
	ErrorCategoryKnowledgeGap           = "knowledge_gap"
	ErrorCategoryOther                  = "other"
)

var ErrorCategories = []string{
	ErrorCategoryTooVague,
	ErrorCategoryWrongSeverity,
	ErrorCategoryMissingContext,
	ErrorCategoryStaleTreatedAsActive,
	ErrorCategoryWrongAgencyExplanation,
	ErrorCategoryMissingNote,
	ErrorCategoryFactualError,
	ErrorCategoryToneStyle,
	ErrorCategoryKnowledgeGap,
	ErrorCategoryOther,
}

var ItemTypes = []string{ItemTypeViolation, ItemTypeApplication, ItemTypeComplaint}

// Correction is one human edit to an AI-generated report note. Immutable after
// creation except for the review fields.
type Correction struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ReportID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"report_id"`
	ItemType       string     `gorm:"not null;index" json:"item_type"`
	ItemIdentifier string     `gorm:"not null" json:"item_identifier"`
	Agency         string     `gorm:"not null;index" json:"agency"`
	OriginalNote   *string    `json:"original_note,omitempty"`
	EditedNote     string     `gorm:"not null" json:"edited_note"`
	ErrorCategory  string     `gorm:"not null;index" json:"error_category"`
	Status         string     `gorm:"not null;default:pending;index" json:"status"`
	CreatedAt      time.Time  `gorm:"not null;default:now()" json:"created_at"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	ReviewerID     *uuid.UUID `gorm:"type:uuid" json:"reviewer_id,omitempty"`
}

func (Correction) TableName() string { return "correction" }
