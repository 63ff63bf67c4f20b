package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/rowanlane/diligence-backend/internal/logger"
	"github.com/rowanlane/diligence-backend/internal/repos"
	"github.com/rowanlane/diligence-backend/internal/types"
)

const (
	fewShotFetchLimit    = 200
	fewShotMinGroupSize  = 3
	fewShotPerCategory   = 3
	fewShotGlobalCap     = 15
	knowledgeFetchLimit  = 20
	knowledgeMatchLimit  = 5
	knowledgeFallbackTop = 3
	confidenceFlagFloor  = 0.3
	needsReviewFloor     = 0.5
)

// ConfidenceFlag warns the generation pipeline about a segment whose notes
// are being corrected often.
type ConfidenceFlag struct {
	Agency          string `json:"agency"`
	ViolationType   string `json:"violation_type"`
	EditRatePercent int    `json:"edit_rate_percent"`
	TopError        string `json:"top_error"`
	NeedsReview     bool   `json:"needs_review"`
}

type PromptContextMeta struct {
	ExampleCount   int `json:"example_count"`
	KnowledgeCount int `json:"knowledge_count"`
	FlagCount      int `json:"flag_count"`
}

type PromptContext struct {
	FewShotExamples  []string          `json:"few_shot_examples"`
	KnowledgeContext []string          `json:"knowledge_context"`
	ConfidenceFlags  []ConfidenceFlag  `json:"confidence_flags"`
	Meta             PromptContextMeta `json:"meta"`
}

type PromptContextService interface {
	BuildContext(ctx context.Context, agencies []string, violationTypes []string) (*PromptContext, error)
}

type promptContextService struct {
	db          *gorm.DB
	log         *logger.Logger
	corrections repos.CorrectionRepo
	stats       repos.AccuracyStatRepo
	entries     repos.KnowledgeEntryRepo
}

func NewPromptContextService(
	db *gorm.DB,
	baseLog *logger.Logger,
	corrections repos.CorrectionRepo,
	stats repos.AccuracyStatRepo,
	entries repos.KnowledgeEntryRepo,
) PromptContextService {
	return &promptContextService{
		db:          db,
		log:         baseLog.With("service", "PromptContextService"),
		corrections: corrections,
		stats:       stats,
		entries:     entries,
	}
}

func renderFewShotExample(c *types.Correction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s\n", c.ErrorCategory, c.Agency, c.ItemType)
	if c.OriginalNote != nil && *c.OriginalNote != "" {
		fmt.Fprintf(&b, "Original: %s\n", *c.OriginalNote)
	} else {
		b.WriteString("Original: (no note generated)\n")
	}
	fmt.Fprintf(&b, "Corrected: %s", c.EditedNote)
	return b.String()
}

// pickDiverse selects up to max corrections from a group, taking one per
// distinct agency before allowing repeats. Input order is preserved within
// each pass, so recency wins inside an agency.
func pickDiverse(group []*types.Correction, max int) []*types.Correction {
	var picked []*types.Correction
	used := make(map[*types.Correction]bool)
	seenAgency := make(map[string]bool)

	for _, c := range group {
		if len(picked) == max {
			return picked
		}
		if seenAgency[c.Agency] {
			continue
		}
		seenAgency[c.Agency] = true
		used[c] = true
		picked = append(picked, c)
	}
	for _, c := range group {
		if len(picked) == max {
			break
		}
		if used[c] {
			continue
		}
		picked = append(picked, c)
	}
	return picked
}

func (s *promptContextService) buildFewShot(ctx context.Context, highEditCategories map[string]bool) ([]string, error) {
	recent, err := s.corrections.ListRecentApproved(ctx, nil, fewShotFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent corrections: %w", err)
	}

	byCategory := make(map[string][]*types.Correction)
	for _, c := range recent {
		byCategory[c.ErrorCategory] = append(byCategory[c.ErrorCategory], c)
	}

	var categories []string
	for category, group := range byCategory {
		if len(group) >= fewShotMinGroupSize {
			categories = append(categories, category)
		}
	}
	sort.Slice(categories, func(i, j int) bool {
		hi, hj := highEditCategories[categories[i]], highEditCategories[categories[j]]
		if hi != hj {
			return hi
		}
		si, sj := len(byCategory[categories[i]]), len(byCategory[categories[j]])
		if si != sj {
			return si > sj
		}
		return categories[i] < categories[j]
	})

	examples := []string{}
	for _, category := range categories {
		remaining := fewShotGlobalCap - len(examples)
		if remaining <= 0 {
			break
		}
		take := fewShotPerCategory
		if take > remaining {
			take = remaining
		}
		for _, c := range pickDiverse(byCategory[category], take) {
			examples = append(examples, renderFewShotExample(c))
		}
	}
	return examples, nil
}

func renderKnowledgeEntry(entry *types.KnowledgeEntry) string {
	return fmt.Sprintf("%s (%s)\n%s", entry.Title, entry.Agency, entry.Content)
}

func entryMatches(entry *types.KnowledgeEntry, agencies map[string]bool, violationTypes map[string]bool) bool {
	if agencies[entry.Agency] {
		return true
	}
	for _, vt := range decodeViolationTypes(entry.ViolationTypes) {
		if violationTypes[vt] {
			return true
		}
	}
	return false
}

func (s *promptContextService) buildKnowledge(ctx context.Context, agencies []string, violationTypes []string) ([]string, error) {
	active, err := s.entries.ListApprovedByUsage(ctx, nil, knowledgeFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("list approved entries: %w", err)
	}

	var selected []*types.KnowledgeEntry
	if len(agencies) > 0 {
		agencySet := make(map[string]bool, len(agencies))
		for _, a := range agencies {
			agencySet[a] = true
		}
		typeSet := make(map[string]bool, len(violationTypes))
		for _, vt := range violationTypes {
			typeSet[vt] = true
		}
		for _, entry := range active {
			if len(selected) == knowledgeMatchLimit {
				break
			}
			if entryMatches(entry, agencySet, typeSet) {
				selected = append(selected, entry)
			}
		}
		if len(selected) == 0 {
			// Nothing matched the targeted agencies; a little general
			// reference beats none.
			for _, entry := range active {
				if len(selected) == knowledgeFallbackTop {
					break
				}
				selected = append(selected, entry)
			}
		}
	} else {
		for _, entry := range active {
			if len(selected) == knowledgeMatchLimit {
				break
			}
			selected = append(selected, entry)
		}
	}

	rendered := []string{}
	for _, entry := range selected {
		if err := s.entries.IncrementUsage(ctx, nil, entry.ID); err != nil {
			s.log.Warn("Usage count increment failed",
				"entry_id", entry.ID.String(),
				"error", err.Error(),
			)
		}
		rendered = append(rendered, renderKnowledgeEntry(entry))
	}
	return rendered, nil
}

func (s *promptContextService) BuildContext(ctx context.Context, agencies []string, violationTypes []string) (*PromptContext, error) {
	stats, err := s.stats.ListAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list accuracy stats: %w", err)
	}

	flags := []ConfidenceFlag{}
	highEditCategories := make(map[string]bool)
	for _, stat := range stats {
		if stat.EditRate > highEditRateFloor && stat.TopErrorCategory != "" {
			highEditCategories[stat.TopErrorCategory] = true
		}
		if stat.EditRate > confidenceFlagFloor {
			flags = append(flags, ConfidenceFlag{
				Agency:          stat.Agency,
				ViolationType:   stat.ViolationType,
				EditRatePercent: int(math.Round(stat.EditRate * 100)),
				TopError:        stat.TopErrorCategory,
				NeedsReview:     stat.EditRate > needsReviewFloor,
			})
		}
	}

	examples, err := s.buildFewShot(ctx, highEditCategories)
	if err != nil {
		return nil, err
	}

	knowledge, err := s.buildKnowledge(ctx, agencies, violationTypes)
	if err != nil {
		return nil, err
	}

	return &PromptContext{
		FewShotExamples:  examples,
		KnowledgeContext: knowledge,
		ConfidenceFlags:  flags,
		Meta: PromptContextMeta{
			ExampleCount:   len(examples),
			KnowledgeCount: len(knowledge),
			FlagCount:      len(flags),
		},
	}, nil
}
