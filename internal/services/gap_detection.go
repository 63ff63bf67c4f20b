package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rowanlane/diligence-backend/internal/logger"
	"github.com/rowanlane/diligence-backend/internal/repos"
	"github.com/rowanlane/diligence-backend/internal/types"
)

// detectionWindowDays bounds how far back a detection run looks.
const detectionWindowDays = 30

// highEditRateFloor is the accuracy-derived eligibility signal: segments
// whose edit rate exceeds this qualify a group even below its volume
// threshold.
const highEditRateFloor = 0.4

// maxSourceEditIDs caps traceability references per candidate.
const maxSourceEditIDs = 20

// Categories with a standing volume threshold. Everything else is only
// eligible through the high-edit-rate signal.
var gapVolumeThresholds = map[string]int{
	types.ErrorCategoryKnowledgeGap:           3,
	types.ErrorCategoryWrongAgencyExplanation: 5,
	types.ErrorCategoryFactualError:           3,
}

var gapActionPhrases = map[string]string{
	types.ErrorCategoryKnowledgeGap:           "Assessment Guide",
	types.ErrorCategoryWrongAgencyExplanation: "Agency Explanation Reference",
	types.ErrorCategoryFactualError:           "Regulation Fact Sheet",
	types.ErrorCategoryTooVague:               "Specificity Guide",
	types.ErrorCategoryMissingContext:         "Context Guidelines",
}

const gapActionPhraseDefault = "Reference Guide"

// GapDetectionSummary is the result of one detection run. Candidates holds
// only the newly created records.
type GapDetectionSummary struct {
	EditsInWindow     int                        `json:"edits_in_window"`
	CandidatesCreated int                        `json:"candidates_created"`
	Candidates        []*types.KnowledgeCandidate `json:"candidates"`
}

type GapDetectionService interface {
	DetectGaps(ctx context.Context) (*GapDetectionSummary, error)
	ListCandidates(ctx context.Context, status string) ([]*types.KnowledgeCandidate, error)
}

type gapDetectionService struct {
	db          *gorm.DB
	log         *logger.Logger
	corrections repos.CorrectionRepo
	stats       repos.AccuracyStatRepo
	candidates  repos.KnowledgeCandidateRepo
}

func NewGapDetectionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	corrections repos.CorrectionRepo,
	stats repos.AccuracyStatRepo,
	candidates repos.KnowledgeCandidateRepo,
) GapDetectionService {
	return &gapDetectionService{
		db:          db,
		log:         baseLog.With("service", "GapDetectionService"),
		corrections: corrections,
		stats:       stats,
		candidates:  candidates,
	}
}

type gapGroupKey struct {
	Agency        string
	ErrorCategory string
	ViolationType string
}

type gapGroup struct {
	Key         gapGroupKey
	Corrections []*types.Correction
}

// candidateDedupKey is agency plus the sorted-unique violation types, so two
// groups covering the same types in different order collapse to one key.
func candidateDedupKey(agency string, violationTypes []string) string {
	unique := make([]string, 0, len(violationTypes))
	seen := make(map[string]bool, len(violationTypes))
	for _, vt := range violationTypes {
		if vt == "" || seen[vt] {
			continue
		}
		seen[vt] = true
		unique = append(unique, vt)
	}
	sort.Strings(unique)
	return agency + "|" + strings.Join(unique, ",")
}

// titleCaseType renders a violation type for display: underscores become
// spaces and each word is capitalized ("fire_safety" -> "Fire Safety").
func titleCaseType(violationType string) string {
	words := strings.Split(strings.ReplaceAll(violationType, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func candidateTitle(agency string, violationTypes []string, errorCategory string) string {
	displayed := make([]string, 0, len(violationTypes))
	for _, vt := range violationTypes {
		displayed = append(displayed, titleCaseType(vt))
	}
	phrase, ok := gapActionPhrases[errorCategory]
	if !ok {
		phrase = gapActionPhraseDefault
	}
	return fmt.Sprintf("%s %s %s", agency, strings.Join(displayed, " & "), phrase)
}

func candidateKnowledgeType(errorCategory string) string {
	switch errorCategory {
	case types.ErrorCategoryWrongAgencyExplanation:
		return types.KnowledgeTypeAgencyExplainer
	case types.ErrorCategoryFactualError:
		return types.KnowledgeTypeRegulationReference
	default:
		return types.KnowledgeTypeViolationGuide
	}
}

func candidatePriority(groupCount, totalEditsInWindow int) string {
	rate := 0.0
	if totalEditsInWindow > 0 {
		rate = float64(groupCount) / float64(totalEditsInWindow)
	}
	switch {
	case rate > 0.5 || groupCount >= 10:
		return types.CandidatePriorityCritical
	case rate > 0.4 || groupCount >= 7:
		return types.CandidatePriorityHigh
	default:
		return types.CandidatePriorityMedium
	}
}

func (s *gapDetectionService) DetectGaps(ctx context.Context) (*GapDetectionSummary, error) {
	since := time.Now().UTC().AddDate(0, 0, -detectionWindowDays)
	recent, err := s.corrections.ListApprovedSince(ctx, nil, since)
	if err != nil {
		return nil, fmt.Errorf("list recent corrections: %w", err)
	}
	if len(recent) == 0 {
		return &GapDetectionSummary{Candidates: []*types.KnowledgeCandidate{}}, nil
	}

	groups := make(map[gapGroupKey]*gapGroup)
	for _, c := range recent {
		agency := c.Agency
		if agency == "" {
			agency = types.AgencyUnknown
		}
		original := ""
		if c.OriginalNote != nil {
			original = *c.OriginalNote
		}
		key := gapGroupKey{
			Agency:        agency,
			ErrorCategory: c.ErrorCategory,
			ViolationType: ClassifyViolationType(c.ItemIdentifier, original+" "+c.EditedNote),
		}
		if groups[key] == nil {
			groups[key] = &gapGroup{Key: key}
		}
		groups[key].Corrections = append(groups[key].Corrections, c)
	}

	// High-edit-rate segments from the last aggregation, keyed by
	// agency|violationType.
	highRateStats, err := s.stats.ListByMinEditRate(ctx, nil, highEditRateFloor)
	if err != nil {
		return nil, fmt.Errorf("list high edit-rate stats: %w", err)
	}
	highRate := make(map[string]bool, len(highRateStats))
	for _, stat := range highRateStats {
		highRate[stat.Agency+"|"+stat.ViolationType] = true
	}

	// Dedup set read fresh from storage for this run, then grown on each
	// insert so a single run never emits the same key twice.
	existing, err := s.candidates.ListByStatuses(ctx, nil, []string{
		types.CandidateStatusDetected,
		types.CandidateStatusDrafted,
		types.CandidateStatusApproved,
		types.CandidateStatusActive,
	})
	if err != nil {
		return nil, fmt.Errorf("list existing candidates: %w", err)
	}
	taken := make(map[string]bool, len(existing))
	for _, candidate := range existing {
		taken[candidate.DedupKey] = true
	}

	keys := make([]gapGroupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Agency != keys[j].Agency {
			return keys[i].Agency < keys[j].Agency
		}
		if keys[i].ErrorCategory != keys[j].ErrorCategory {
			return keys[i].ErrorCategory < keys[j].ErrorCategory
		}
		return keys[i].ViolationType < keys[j].ViolationType
	})

	var created []*types.KnowledgeCandidate
	for _, key := range keys {
		group := groups[key]
		count := len(group.Corrections)

		threshold, hasThreshold := gapVolumeThresholds[key.ErrorCategory]
		meetsThreshold := hasThreshold && count >= threshold
		if !meetsThreshold && !highRate[key.Agency+"|"+key.ViolationType] {
			continue
		}

		violationTypes := []string{key.ViolationType}
		dedupKey := candidateDedupKey(key.Agency, violationTypes)
		if taken[dedupKey] {
			continue
		}

		sourceIDs := make([]uuid.UUID, 0, maxSourceEditIDs)
		for _, c := range group.Corrections {
			if len(sourceIDs) == maxSourceEditIDs {
				break
			}
			sourceIDs = append(sourceIDs, c.ID)
		}
		sourceJSON, err := json.Marshal(sourceIDs)
		if err != nil {
			return nil, fmt.Errorf("marshal source edit ids: %w", err)
		}
		typesJSON, err := json.Marshal(violationTypes)
		if err != nil {
			return nil, fmt.Errorf("marshal violation types: %w", err)
		}

		candidate := &types.KnowledgeCandidate{
			ID:             uuid.New(),
			Title:          candidateTitle(key.Agency, violationTypes, key.ErrorCategory),
			KnowledgeType:  candidateKnowledgeType(key.ErrorCategory),
			Agency:         key.Agency,
			ViolationTypes: datatypes.JSON(typesJSON),
			TriggerReason: fmt.Sprintf("%d corrections in the last %d days, dominant category %s",
				count, detectionWindowDays, key.ErrorCategory),
			SourceEditIDs: datatypes.JSON(sourceJSON),
			DemandScore:   count,
			Priority:      candidatePriority(count, len(recent)),
			Status:        types.CandidateStatusDetected,
			DedupKey:      dedupKey,
		}

		if _, err := s.candidates.Create(ctx, nil, candidate); err != nil {
			return nil, fmt.Errorf("create candidate %q: %w", candidate.Title, err)
		}
		taken[dedupKey] = true
		created = append(created, candidate)

		s.log.Info("Knowledge gap detected",
			"agency", key.Agency,
			"violation_type", key.ViolationType,
			"error_category", key.ErrorCategory,
			"count", count,
			"priority", candidate.Priority,
		)
	}

	if created == nil {
		created = []*types.KnowledgeCandidate{}
	}
	return &GapDetectionSummary{
		EditsInWindow:     len(recent),
		CandidatesCreated: len(created),
		Candidates:        created,
	}, nil
}

func (s *gapDetectionService) ListCandidates(ctx context.Context, status string) ([]*types.KnowledgeCandidate, error) {
	return s.candidates.List(ctx, nil, status)
}
