package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	KnowledgeTypeViolationGuide      = "violation_guide"
	KnowledgeTypeAgencyExplainer     = "agency_explainer"
	KnowledgeTypeRegulationReference = "regulation_reference"
)

const (
	CandidatePriorityCritical = "critical"
	CandidatePriorityHigh     = "high"
	CandidatePriorityMedium   = "medium"
)

const (
	CandidateStatusDetected = "detected"
	CandidateStatusDrafted  = "drafted"
	CandidateStatusApproved = "approved"
	CandidateStatusActive   = "active"
	CandidateStatusRejected = "rejected"
)

// KnowledgeCandidate is a detected systemic gap in generation knowledge,
// awaiting reference authoring and human review.
type KnowledgeCandidate struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title          string         `gorm:"not null" json:"title"`
	KnowledgeType  string         `gorm:"not null" json:"knowledge_type"`
	Agency         string         `gorm:"not null;index" json:"agency"`
	ViolationTypes datatypes.JSON `gorm:"type:jsonb" json:"violation_types"`
	TriggerReason  string         `gorm:"not null" json:"trigger_reason"`
	// At most 20 contributing correction IDs, kept for traceability.
	SourceEditIDs datatypes.JSON `gorm:"type:jsonb" json:"source_edit_ids"`
	DemandScore   int            `gorm:"not null" json:"demand_score"`
	Priority      string         `gorm:"not null" json:"priority"`
	Status        string         `gorm:"not null;default:detected;index" json:"status"`
	// agency + sorted violation types; the storage-level backstop against
	// duplicate candidates from concurrent detection runs.
	DedupKey  string    `gorm:"not null;uniqueIndex" json:"dedup_key"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (KnowledgeCandidate) TableName() string { return "knowledge_candidate" }
