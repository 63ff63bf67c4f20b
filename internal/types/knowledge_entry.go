package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EntryStatusDraft    = "draft"
	EntryStatusApproved = "approved"
	EntryStatusRejected = "rejected"
)

// KnowledgeEntry is the authored reference document produced to close a
// candidate gap. Only approved entries are eligible for prompt injection.
type KnowledgeEntry struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CandidateID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"candidate_id"`
	Title          string         `gorm:"not null" json:"title"`
	Content        string         `gorm:"not null" json:"content"`
	Agency         string         `gorm:"not null;index" json:"agency"`
	ViolationTypes datatypes.JSON `gorm:"type:jsonb" json:"violation_types"`
	WordCount      int            `gorm:"not null" json:"word_count"`
	Status         string         `gorm:"not null;default:draft;index" json:"status"`
	UsageCount     int            `gorm:"not null;default:0" json:"usage_count"`
	ApprovedBy     *uuid.UUID     `gorm:"type:uuid" json:"approved_by,omitempty"`
	ApprovedAt     *time.Time     `json:"approved_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (KnowledgeEntry) TableName() string { return "knowledge_entry" }
