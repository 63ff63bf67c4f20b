package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Report rows are written by the report-generation pipeline. This service
// only reads them: the line-item notes and the violation/application/
// complaint payloads are the denominator source for accuracy aggregation.
type Report struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Address          string         `gorm:"not null" json:"address"`
	ViolationsData   datatypes.JSON `gorm:"type:jsonb" json:"violations_data"`
	ApplicationsData datatypes.JSON `gorm:"type:jsonb" json:"applications_data"`
	ComplaintsData   datatypes.JSON `gorm:"type:jsonb" json:"complaints_data"`
	// Map of "<item_type>:<item_identifier>" to the AI-generated note text.
	LineItemNotes datatypes.JSON `gorm:"type:jsonb" json:"line_item_notes"`
	Status        string         `gorm:"not null;default:draft" json:"status"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Report) TableName() string { return "report" }
