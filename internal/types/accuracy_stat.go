package types

import (
	"time"

	"github.com/google/uuid"
)

// AgencyUnknown tags generated notes whose owning agency could not be
// recovered from the report payload.
const AgencyUnknown = "UNKNOWN"

// AccuracyStat holds the recomputed edit-rate for one
// (agency, item type, violation type) segment. One row per segment; every
// recomputation is a full upsert.
type AccuracyStat struct {
	ID                  uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Agency              string    `gorm:"not null;uniqueIndex:idx_accuracy_stat_segment" json:"agency"`
	ItemType            string    `gorm:"not null;uniqueIndex:idx_accuracy_stat_segment" json:"item_type"`
	ViolationType       string    `gorm:"not null;uniqueIndex:idx_accuracy_stat_segment" json:"violation_type"`
	TotalNotesGenerated int       `gorm:"not null" json:"total_notes_generated"`
	TotalEdits          int       `gorm:"not null" json:"total_edits"`
	// Fraction of generated notes that were corrected, clamped to [0,1],
	// rounded to 3 decimals.
	EditRate float64 `gorm:"not null" json:"edit_rate"`
	// True when the generation-volume denominator could not be reconstructed
	// and the edit count was used in its place.
	DenominatorEstimated bool      `gorm:"not null;default:false" json:"denominator_estimated"`
	TopErrorCategory     string    `gorm:"not null" json:"top_error_category"`
	LastUpdated          time.Time `gorm:"not null;default:now()" json:"last_updated"`
}

func (AccuracyStat) TableName() string { return "accuracy_stat" }
