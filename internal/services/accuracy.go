package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/rowanlane/diligence-backend/internal/logger"
	"github.com/rowanlane/diligence-backend/internal/repos"
	"github.com/rowanlane/diligence-backend/internal/types"
)

// AccuracyRefreshResult summarizes one full recomputation pass.
type AccuracyRefreshResult struct {
	StatsUpdated        int                  `json:"stats_updated"`
	TotalEditsProcessed int                  `json:"total_edits_processed"`
	GapDetection        *GapDetectionSummary `json:"gap_detection,omitempty"`
}

type AccuracyService interface {
	Recompute(ctx context.Context, skipGapDetection bool) (*AccuracyRefreshResult, error)
	ListStats(ctx context.Context) ([]*types.AccuracyStat, error)
}

type accuracyService struct {
	db          *gorm.DB
	log         *logger.Logger
	corrections repos.CorrectionRepo
	reports     repos.ReportRepo
	stats       repos.AccuracyStatRepo
	gaps        GapDetectionService
}

func NewAccuracyService(
	db *gorm.DB,
	baseLog *logger.Logger,
	corrections repos.CorrectionRepo,
	reports repos.ReportRepo,
	stats repos.AccuracyStatRepo,
	gaps GapDetectionService,
) AccuracyService {
	return &accuracyService{
		db:          db,
		log:         baseLog.With("service", "AccuracyService"),
		corrections: corrections,
		reports:     reports,
		stats:       stats,
		gaps:        gaps,
	}
}

// segmentKey identifies one accuracy segment.
type segmentKey struct {
	Agency        string
	ItemType      string
	ViolationType string
}

// volumeKey identifies a generation-volume bucket. Denominators are tracked
// per (agency, item type): the note text a violation type would be classified
// from is not retained once a report ships, so volume cannot be split finer.
type volumeKey struct {
	Agency   string
	ItemType string
}

// Report payload shapes, decoded only for the fields the aggregator needs.
type reportViolation struct {
	ViolationNumber string `json:"violation_number"`
	Agency          string `json:"agency"`
}

type reportApplication struct {
	Source string `json:"source"`
	ID     string `json:"id"`
	Agency string `json:"agency"`
}

type reportComplaint struct {
	ComplaintNumber string `json:"complaint_number"`
	Agency          string `json:"agency"`
}

func decodeItems[T any](raw []byte) []T {
	if len(raw) == 0 {
		return nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

// itemAgencyIndex maps "<item_type>:<item_identifier>" to the owning agency
// for every line item in the report payloads.
func itemAgencyIndex(report *types.Report) map[string]string {
	index := make(map[string]string)

	for _, v := range decodeItems[reportViolation](report.ViolationsData) {
		if v.ViolationNumber != "" && v.Agency != "" {
			index[types.ItemTypeViolation+":"+v.ViolationNumber] = v.Agency
		}
	}
	for _, a := range decodeItems[reportApplication](report.ApplicationsData) {
		if a.ID == "" || a.Agency == "" {
			continue
		}
		identifier := a.ID
		if a.Source != "" {
			identifier = a.Source + "-" + a.ID
		}
		index[types.ItemTypeApplication+":"+identifier] = a.Agency
	}
	for _, c := range decodeItems[reportComplaint](report.ComplaintsData) {
		if c.ComplaintNumber != "" && c.Agency != "" {
			index[types.ItemTypeComplaint+":"+c.ComplaintNumber] = c.Agency
		}
	}
	return index
}

// splitNoteKey splits a "<item_type>:<item_identifier>" line-item-notes key.
// Identifiers may themselves contain colons, so only the first one splits.
func splitNoteKey(key string) (itemType, identifier string, ok bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			if i == 0 || i == len(key)-1 {
				return "", "", false
			}
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}

// generationVolume reconstructs how many notes were generated per
// (agency, item type) bucket across all shipped reports.
func generationVolume(reports []*types.Report) map[volumeKey]int {
	volume := make(map[volumeKey]int)
	for _, report := range reports {
		if len(report.LineItemNotes) == 0 {
			continue
		}
		var notes map[string]string
		if err := json.Unmarshal(report.LineItemNotes, &notes); err != nil {
			continue
		}

		agencies := itemAgencyIndex(report)
		for key, note := range notes {
			if note == "" {
				continue
			}
			itemType, _, ok := splitNoteKey(key)
			if !ok {
				continue
			}
			agency := agencies[key]
			if agency == "" {
				agency = types.AgencyUnknown
			}
			volume[volumeKey{Agency: agency, ItemType: itemType}]++
		}
	}
	return volume
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// topCategory picks the most frequent error category, breaking count ties
// lexicographically so recomputation is deterministic.
func topCategory(counts map[string]int) string {
	best := ""
	bestCount := -1
	for category, count := range counts {
		if count > bestCount || (count == bestCount && category < best) {
			best = category
			bestCount = count
		}
	}
	return best
}

func (s *accuracyService) Recompute(ctx context.Context, skipGapDetection bool) (*AccuracyRefreshResult, error) {
	var (
		approved []*types.Correction
		reports  []*types.Report
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		approved, err = s.corrections.ListApproved(gctx, nil)
		if err != nil {
			return fmt.Errorf("list approved corrections: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		reports, err = s.reports.ListWithNotes(gctx, nil)
		if err != nil {
			return fmt.Errorf("list reports: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	volume := generationVolume(reports)

	edits := make(map[segmentKey]int)
	categories := make(map[segmentKey]map[string]int)
	for _, c := range approved {
		agency := c.Agency
		if agency == "" {
			agency = types.AgencyUnknown
		}
		original := ""
		if c.OriginalNote != nil {
			original = *c.OriginalNote
		}
		key := segmentKey{
			Agency:        agency,
			ItemType:      c.ItemType,
			ViolationType: ClassifyViolationType(c.ItemIdentifier, original+" "+c.EditedNote),
		}
		edits[key]++
		if categories[key] == nil {
			categories[key] = make(map[string]int)
		}
		categories[key][c.ErrorCategory]++
	}

	keys := make([]segmentKey, 0, len(edits))
	for key := range edits {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Agency != keys[j].Agency {
			return keys[i].Agency < keys[j].Agency
		}
		if keys[i].ItemType != keys[j].ItemType {
			return keys[i].ItemType < keys[j].ItemType
		}
		return keys[i].ViolationType < keys[j].ViolationType
	})

	now := time.Now().UTC()
	updated := 0
	for _, key := range keys {
		editCount := edits[key]
		generated := volume[volumeKey{Agency: key.Agency, ItemType: key.ItemType}]
		estimated := false
		if generated <= 0 {
			generated = editCount
			estimated = true
		}

		rate := float64(editCount) / float64(generated)
		if rate < 0 {
			rate = 0
		}
		if rate > 1 {
			rate = 1
		}

		stat := &types.AccuracyStat{
			Agency:               key.Agency,
			ItemType:             key.ItemType,
			ViolationType:        key.ViolationType,
			TotalNotesGenerated:  generated,
			TotalEdits:           editCount,
			EditRate:             round3(rate),
			DenominatorEstimated: estimated,
			TopErrorCategory:     topCategory(categories[key]),
			LastUpdated:          now,
		}
		if err := s.stats.Upsert(ctx, nil, stat); err != nil {
			s.log.Error("Accuracy stat upsert failed",
				"agency", key.Agency,
				"item_type", key.ItemType,
				"violation_type", key.ViolationType,
				"error", err.Error(),
			)
			continue
		}
		updated++
	}

	result := &AccuracyRefreshResult{
		StatsUpdated:        updated,
		TotalEditsProcessed: len(approved),
	}

	if !skipGapDetection {
		summary, err := s.gaps.DetectGaps(ctx)
		if err != nil {
			// Detection rides along with the refresh; its failure must not
			// invalidate the stats that already landed.
			s.log.Warn("Gap detection after refresh failed", "error", err.Error())
		} else {
			result.GapDetection = summary
		}
	}

	s.log.Info("Accuracy refresh complete",
		"stats_updated", updated,
		"edits_processed", len(approved),
		"skip_gap_detection", skipGapDetection,
	)
	return result, nil
}

func (s *accuracyService) ListStats(ctx context.Context) ([]*types.AccuracyStat, error) {
	return s.stats.ListAll(ctx, nil)
}
