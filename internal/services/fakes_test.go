package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rowanlane/diligence-backend/internal/logger"
	"github.com/rowanlane/diligence-backend/internal/types"
)

func testLogger() *logger.Logger {
	log, err := logger.New("test")
	if err != nil {
		panic(err)
	}
	return log
}

// ---- corrections ----

type fakeCorrectionRepo struct {
	corrections []*types.Correction
	createErr   error
	listErr     error
}

func sortByCreatedDesc(in []*types.Correction) []*types.Correction {
	out := make([]*types.Correction, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (f *fakeCorrectionRepo) Create(ctx context.Context, tx *gorm.DB, corrections []*types.Correction) ([]*types.Correction, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.corrections = append(f.corrections, corrections...)
	return corrections, nil
}

func (f *fakeCorrectionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Correction, error) {
	for _, c := range f.corrections {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCorrectionRepo) ListByReportID(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) ([]*types.Correction, error) {
	var out []*types.Correction
	for _, c := range sortByCreatedDesc(f.corrections) {
		if c.ReportID == reportID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCorrectionRepo) ListApproved(ctx context.Context, tx *gorm.DB) ([]*types.Correction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*types.Correction
	for _, c := range sortByCreatedDesc(f.corrections) {
		if c.Status == types.CorrectionStatusApproved {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCorrectionRepo) ListApprovedSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.Correction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*types.Correction
	for _, c := range sortByCreatedDesc(f.corrections) {
		if c.Status == types.CorrectionStatusApproved && !c.CreatedAt.Before(since) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCorrectionRepo) ListApprovedByAgency(ctx context.Context, tx *gorm.DB, agency string, limit int) ([]*types.Correction, error) {
	var out []*types.Correction
	for _, c := range sortByCreatedDesc(f.corrections) {
		if c.Status == types.CorrectionStatusApproved && c.Agency == agency {
			out = append(out, c)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeCorrectionRepo) ListRecentApproved(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Correction, error) {
	var out []*types.Correction
	for _, c := range sortByCreatedDesc(f.corrections) {
		if c.Status == types.CorrectionStatusApproved {
			out = append(out, c)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeCorrectionRepo) UpdateReview(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string, reviewerID uuid.UUID, reviewedAt time.Time) error {
	for _, c := range f.corrections {
		if c.ID == id {
			c.Status = status
			c.ReviewerID = &reviewerID
			c.ReviewedAt = &reviewedAt
			return nil
		}
	}
	return fmt.Errorf("correction %s not found", id)
}

// ---- reports ----

type fakeReportRepo struct {
	reports []*types.Report
	listErr error
}

func (f *fakeReportRepo) ListWithNotes(ctx context.Context, tx *gorm.DB) ([]*types.Report, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.reports, nil
}

// ---- accuracy stats ----

type fakeAccuracyStatRepo struct {
	stats     []*types.AccuracyStat
	upsertErr map[string]error
}

func statKey(s *types.AccuracyStat) string {
	return s.Agency + "|" + s.ItemType + "|" + s.ViolationType
}

func (f *fakeAccuracyStatRepo) Upsert(ctx context.Context, tx *gorm.DB, stat *types.AccuracyStat) error {
	if err := f.upsertErr[statKey(stat)]; err != nil {
		return err
	}
	for i, existing := range f.stats {
		if statKey(existing) == statKey(stat) {
			f.stats[i] = stat
			return nil
		}
	}
	f.stats = append(f.stats, stat)
	return nil
}

func (f *fakeAccuracyStatRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.AccuracyStat, error) {
	out := make([]*types.AccuracyStat, len(f.stats))
	copy(out, f.stats)
	sort.SliceStable(out, func(i, j int) bool { return out[i].EditRate > out[j].EditRate })
	return out, nil
}

func (f *fakeAccuracyStatRepo) ListByMinEditRate(ctx context.Context, tx *gorm.DB, minRate float64) ([]*types.AccuracyStat, error) {
	var out []*types.AccuracyStat
	for _, s := range f.stats {
		if s.EditRate > minRate {
			out = append(out, s)
		}
	}
	return out, nil
}

// ---- knowledge candidates ----

type fakeCandidateRepo struct {
	candidates []*types.KnowledgeCandidate
	createErr  error
}

func (f *fakeCandidateRepo) Create(ctx context.Context, tx *gorm.DB, candidate *types.KnowledgeCandidate) (*types.KnowledgeCandidate, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.candidates {
		if existing.DedupKey == candidate.DedupKey {
			return nil, fmt.Errorf("duplicate dedup key %q", candidate.DedupKey)
		}
	}
	f.candidates = append(f.candidates, candidate)
	return candidate, nil
}

func (f *fakeCandidateRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.KnowledgeCandidate, error) {
	for _, c := range f.candidates {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCandidateRepo) List(ctx context.Context, tx *gorm.DB, status string) ([]*types.KnowledgeCandidate, error) {
	var out []*types.KnowledgeCandidate
	for _, c := range f.candidates {
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DemandScore > out[j].DemandScore })
	return out, nil
}

func (f *fakeCandidateRepo) ListByStatuses(ctx context.Context, tx *gorm.DB, statuses []string) ([]*types.KnowledgeCandidate, error) {
	wanted := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}
	var out []*types.KnowledgeCandidate
	for _, c := range f.candidates {
		if wanted[c.Status] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCandidateRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	for _, c := range f.candidates {
		if c.ID == id {
			if status, ok := fields["status"].(string); ok {
				c.Status = status
			}
			if dedupKey, ok := fields["dedup_key"].(string); ok {
				c.DedupKey = dedupKey
			}
			return nil
		}
	}
	return fmt.Errorf("candidate %s not found", id)
}

// ---- knowledge entries ----

type fakeEntryRepo struct {
	entries      []*types.KnowledgeEntry
	createErr    error
	incrementErr error
	increments   map[uuid.UUID]int
}

func (f *fakeEntryRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.KnowledgeEntry) (*types.KnowledgeEntry, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeEntryRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.KnowledgeEntry, error) {
	for _, e := range f.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeEntryRepo) List(ctx context.Context, tx *gorm.DB, status string) ([]*types.KnowledgeEntry, error) {
	var out []*types.KnowledgeEntry
	for _, e := range f.entries {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEntryRepo) ListApprovedByUsage(ctx context.Context, tx *gorm.DB, limit int) ([]*types.KnowledgeEntry, error) {
	var out []*types.KnowledgeEntry
	for _, e := range f.entries {
		if e.Status == types.EntryStatusApproved {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UsageCount > out[j].UsageCount })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeEntryRepo) IncrementUsage(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if f.incrementErr != nil {
		return f.incrementErr
	}
	if f.increments == nil {
		f.increments = make(map[uuid.UUID]int)
	}
	f.increments[id]++
	for _, e := range f.entries {
		if e.ID == id {
			e.UsageCount++
		}
	}
	return nil
}

func (f *fakeEntryRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	for _, e := range f.entries {
		if e.ID == id {
			if status, ok := fields["status"].(string); ok {
				e.Status = status
			}
			if approvedBy, ok := fields["approved_by"].(uuid.UUID); ok {
				e.ApprovedBy = &approvedBy
			}
			if approvedAt, ok := fields["approved_at"].(time.Time); ok {
				e.ApprovedAt = &approvedAt
			}
			return nil
		}
	}
	return fmt.Errorf("entry %s not found", id)
}

// ---- ai client ----

type fakeAIClient struct {
	text    string
	textErr error
	calls   int

	lastSystem string
	lastUser   string
}

func (f *fakeAIClient) GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error) {
	f.calls++
	return map[string]any{}, nil
}

func (f *fakeAIClient) GenerateText(ctx context.Context, system string, user string) (string, error) {
	f.calls++
	f.lastSystem = system
	f.lastUser = user
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.text, nil
}

// ---- builders ----

type correctionSeed struct {
	agency     string
	category   string
	identifier string
	itemType   string
	original   string
	edited     string
	status     string
	createdAt  time.Time
	reportID   uuid.UUID
}

func buildCorrection(seed correctionSeed) *types.Correction {
	if seed.itemType == "" {
		seed.itemType = types.ItemTypeViolation
	}
	if seed.status == "" {
		seed.status = types.CorrectionStatusApproved
	}
	if seed.edited == "" {
		seed.edited = "corrected note text"
	}
	if seed.createdAt.IsZero() {
		seed.createdAt = time.Now().UTC()
	}
	var original *string
	if seed.original != "" {
		original = &seed.original
	}
	return &types.Correction{
		ID:             uuid.New(),
		ReportID:       seed.reportID,
		ItemType:       seed.itemType,
		ItemIdentifier: seed.identifier,
		Agency:         seed.agency,
		OriginalNote:   original,
		EditedNote:     seed.edited,
		ErrorCategory:  seed.category,
		Status:         seed.status,
		CreatedAt:      seed.createdAt,
	}
}
