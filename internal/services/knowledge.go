package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rowanlane/diligence-backend/internal/logger"
	"github.com/rowanlane/diligence-backend/internal/repos"
	"github.com/rowanlane/diligence-backend/internal/types"
)

// Exemplar fetch/keep sizes for synthesis.
const (
	synthesisFetchLimit = 50
	synthesisKeepLimit  = 15
)

const synthesisSystemPrompt = "You are a senior NYC real-estate compliance analyst writing internal " +
	"reference material for report writers. Write in a factual, neutral voice. " +
	"Do not use headings, bullet points, or any structured markup. Produce " +
	"plain prose of 300 to 600 words."

type KnowledgeService interface {
	GenerateEntry(ctx context.Context, candidateID uuid.UUID) (*types.KnowledgeEntry, error)
	ReviewEntry(ctx context.Context, entryID uuid.UUID, approve bool, reviewerID uuid.UUID) (*types.KnowledgeEntry, error)
	ListEntries(ctx context.Context, status string) ([]*types.KnowledgeEntry, error)
}

type knowledgeService struct {
	db          *gorm.DB
	log         *logger.Logger
	corrections repos.CorrectionRepo
	candidates  repos.KnowledgeCandidateRepo
	entries     repos.KnowledgeEntryRepo
	ai          AIClient
}

func NewKnowledgeService(
	db *gorm.DB,
	baseLog *logger.Logger,
	corrections repos.CorrectionRepo,
	candidates repos.KnowledgeCandidateRepo,
	entries repos.KnowledgeEntryRepo,
	ai AIClient,
) KnowledgeService {
	return &knowledgeService{
		db:          db,
		log:         baseLog.With("service", "KnowledgeService"),
		corrections: corrections,
		candidates:  candidates,
		entries:     entries,
		ai:          ai,
	}
}

func decodeViolationTypes(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var violationTypes []string
	if err := json.Unmarshal(raw, &violationTypes); err != nil {
		return nil
	}
	return violationTypes
}

// filterExemplars keeps corrections whose identifier or note text mentions any
// keyword of the candidate's violation types. An empty result falls back to
// the unfiltered set: a detected gap always has some evidence behind it.
func filterExemplars(corrections []*types.Correction, violationTypes []string) []*types.Correction {
	var keywords []string
	for _, vt := range violationTypes {
		keywords = append(keywords, violationTypeKeywords(vt)...)
	}
	if len(keywords) == 0 {
		return corrections
	}

	var matched []*types.Correction
	for _, c := range corrections {
		text := strings.ToLower(c.ItemIdentifier + " " + c.EditedNote)
		if c.OriginalNote != nil {
			text += " " + strings.ToLower(*c.OriginalNote)
		}
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				matched = append(matched, c)
				break
			}
		}
	}
	if len(matched) == 0 {
		return corrections
	}
	return matched
}

func renderExemplar(index int, c *types.Correction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Example %d (%s %s, %s):\n", index, c.Agency, c.ItemType, c.ErrorCategory)
	if c.OriginalNote != nil && *c.OriginalNote != "" {
		fmt.Fprintf(&b, "Original note: %s\n", *c.OriginalNote)
	} else {
		b.WriteString("Original note: (none generated)\n")
	}
	fmt.Fprintf(&b, "Analyst correction: %s", c.EditedNote)
	return b.String()
}

func synthesisUserPrompt(candidate *types.KnowledgeCandidate, violationTypes []string, exemplars []*types.Correction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a reference document titled %q for the agency %s", candidate.Title, candidate.Agency)
	if len(violationTypes) > 0 {
		fmt.Fprintf(&b, ", covering these violation types: %s", strings.Join(violationTypes, ", "))
	}
	b.WriteString(".\n\nCover: what these violations mean, what determines their severity, ")
	b.WriteString("the typical penalty range, what they imply for buyers and lenders, ")
	b.WriteString("common misconceptions evidenced by the corrections below, and the ")
	b.WriteString("applicable regulations.\n\n")
	fmt.Fprintf(&b, "It was flagged because: %s.\n\n", candidate.TriggerReason)
	b.WriteString("Analyst corrections to learn from:\n\n")
	for i, c := range exemplars {
		b.WriteString(renderExemplar(i+1, c))
		b.WriteString("\n\n")
	}
	return b.String()
}

func (s *knowledgeService) GenerateEntry(ctx context.Context, candidateID uuid.UUID) (*types.KnowledgeEntry, error) {
	candidate, err := s.candidates.GetByID(ctx, nil, candidateID)
	if err != nil {
		return nil, fmt.Errorf("load candidate: %w", err)
	}
	if candidate == nil {
		return nil, ErrCandidateNotFound
	}

	recent, err := s.corrections.ListApprovedByAgency(ctx, nil, candidate.Agency, synthesisFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("load exemplar corrections: %w", err)
	}
	if len(recent) == 0 {
		return nil, ErrNoExemplars
	}

	violationTypes := decodeViolationTypes(candidate.ViolationTypes)
	exemplars := filterExemplars(recent, violationTypes)
	if len(exemplars) > synthesisKeepLimit {
		exemplars = exemplars[:synthesisKeepLimit]
	}

	content, err := s.ai.GenerateText(ctx, synthesisSystemPrompt, synthesisUserPrompt(candidate, violationTypes, exemplars))
	if err != nil {
		// Nothing has been persisted; the candidate stays detected and the
		// operation can simply be retried.
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	entry := &types.KnowledgeEntry{
		ID:             uuid.New(),
		CandidateID:    candidate.ID,
		Title:          candidate.Title,
		Content:        content,
		Agency:         candidate.Agency,
		ViolationTypes: candidate.ViolationTypes,
		WordCount:      len(strings.Fields(content)),
		Status:         types.EntryStatusDraft,
	}
	if _, err := s.entries.Create(ctx, nil, entry); err != nil {
		return nil, fmt.Errorf("persist knowledge entry: %w", err)
	}

	if err := s.candidates.UpdateFields(ctx, nil, candidate.ID, map[string]interface{}{
		"status":     types.CandidateStatusDrafted,
		"updated_at": time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("mark candidate drafted: %w", err)
	}

	s.log.Info("Knowledge entry drafted",
		"candidate_id", candidate.ID.String(),
		"entry_id", entry.ID.String(),
		"word_count", entry.WordCount,
		"exemplars", len(exemplars),
	)
	return entry, nil
}

func (s *knowledgeService) ReviewEntry(ctx context.Context, entryID uuid.UUID, approve bool, reviewerID uuid.UUID) (*types.KnowledgeEntry, error) {
	entry, err := s.entries.GetByID(ctx, nil, entryID)
	if err != nil {
		return nil, fmt.Errorf("load entry: %w", err)
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}
	if entry.Status != types.EntryStatusDraft {
		return nil, ErrAlreadyReviewed
	}

	now := time.Now().UTC()
	if approve {
		if err := s.entries.UpdateFields(ctx, nil, entry.ID, map[string]interface{}{
			"status":      types.EntryStatusApproved,
			"approved_by": reviewerID,
			"approved_at": now,
			"updated_at":  now,
		}); err != nil {
			return nil, fmt.Errorf("approve entry: %w", err)
		}
		entry.Status = types.EntryStatusApproved
		entry.ApprovedBy = &reviewerID
		entry.ApprovedAt = &now
	} else {
		if err := s.entries.UpdateFields(ctx, nil, entry.ID, map[string]interface{}{
			"status":     types.EntryStatusRejected,
			"updated_at": now,
		}); err != nil {
			return nil, fmt.Errorf("reject entry: %w", err)
		}
		entry.Status = types.EntryStatusRejected
	}

	candidateFields := map[string]interface{}{
		"status":     types.CandidateStatusRejected,
		"updated_at": now,
		// A rejected candidate releases its dedup key so the gap can be
		// re-detected later if corrections keep coming.
		"dedup_key": "retired:" + entry.CandidateID.String(),
	}
	if approve {
		// The approved entry is immediately eligible for prompt injection,
		// which closes the loop for its candidate.
		candidateFields = map[string]interface{}{
			"status":     types.CandidateStatusActive,
			"updated_at": now,
		}
	}
	if err := s.candidates.UpdateFields(ctx, nil, entry.CandidateID, candidateFields); err != nil {
		return nil, fmt.Errorf("update candidate status: %w", err)
	}

	return entry, nil
}

func (s *knowledgeService) ListEntries(ctx context.Context, status string) ([]*types.KnowledgeEntry, error) {
	return s.entries.List(ctx, nil, status)
}
