package services

import (
	"context"
	"strings"
	"testing"

	"github.com/rowanlane/diligence-backend/internal/types"
)

func newGapService(corrections *fakeCorrectionRepo, stats *fakeAccuracyStatRepo, candidates *fakeCandidateRepo) GapDetectionService {
	return NewGapDetectionService(nil, testLogger(), corrections, stats, candidates)
}

func addCorrections(repo *fakeCorrectionRepo, n int, seed correctionSeed) {
	for i := 0; i < n; i++ {
		repo.corrections = append(repo.corrections, buildCorrection(seed))
	}
}

func TestDetectGaps_EmptyWindowIsNoOp(t *testing.T) {
	svc := newGapService(&fakeCorrectionRepo{}, &fakeAccuracyStatRepo{}, &fakeCandidateRepo{})

	summary, err := svc.DetectGaps(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.CandidatesCreated != 0 || len(summary.Candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", summary.CandidatesCreated)
	}
}

func TestDetectGaps_ThresholdMet(t *testing.T) {
	corrections := &fakeCorrectionRepo{}
	addCorrections(corrections, 3, correctionSeed{
		agency:   "DOB",
		category: types.ErrorCategoryKnowledgeGap,
		edited:   "elevator inspection overdue, device must be recertified",
	})
	candidates := &fakeCandidateRepo{}
	svc := newGapService(corrections, &fakeAccuracyStatRepo{}, candidates)

	summary, err := svc.DetectGaps(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.CandidatesCreated != 1 {
		t.Fatalf("expected 1 candidate, got %d", summary.CandidatesCreated)
	}
	created := summary.Candidates[0]
	if created.DemandScore != 3 {
		t.Fatalf("expected demand score 3, got %d", created.DemandScore)
	}
	if created.Status != types.CandidateStatusDetected {
		t.Fatalf("expected detected status, got %q", created.Status)
	}
	if created.KnowledgeType != types.KnowledgeTypeViolationGuide {
		t.Fatalf("expected violation_guide, got %q", created.KnowledgeType)
	}
}

func TestDetectGaps_BelowThresholdCreatesNothing(t *testing.T) {
	corrections := &fakeCorrectionRepo{}
	addCorrections(corrections, 2, correctionSeed{
		agency:   "DOB",
		category: types.ErrorCategoryKnowledgeGap,
		edited:   "elevator inspection overdue",
	})
	svc := newGapService(corrections, &fakeAccuracyStatRepo{}, &fakeCandidateRepo{})

	summary, err := svc.DetectGaps(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.CandidatesCreated != 0 {
		t.Fatalf("expected no candidates below threshold, got %d", summary.CandidatesCreated)
	}
}

func TestDetectGaps_HighEditRateSignalQualifiesThresholdlessCategory(t *testing.T) {
	corrections := &fakeCorrectionRepo{}
	// too_vague has no standing threshold; only the accuracy signal can
	// qualify it.
	addCorrections(corrections, 2, correctionSeed{
		agency:   "HPD",
		category: types.ErrorCategoryTooVague,
		edited:   "boiler registration lapsed in 2023",
	})
	stats := &fakeAccuracyStatRepo{stats: []*types.AccuracyStat{
		{Agency: "HPD", ItemType: types.ItemTypeViolation, ViolationType: "boiler", EditRate: 0.5},
	}}
	svc := newGapService(corrections, stats, &fakeCandidateRepo{})

	summary, err := svc.DetectGaps(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.CandidatesCreated != 1 {
		t.Fatalf("expected edit-rate signal to qualify the group, got %d candidates", summary.CandidatesCreated)
	}
}

func TestDetectGaps_Idempotent(t *testing.T) {
	corrections := &fakeCorrectionRepo{}
	addCorrections(corrections, 4, correctionSeed{
		agency:   "ECB",
		category: types.ErrorCategoryFactualError,
		edited:   "facade filing deadline misstated",
	})
	candidates := &fakeCandidateRepo{}
	svc := newGapService(corrections, &fakeAccuracyStatRepo{}, candidates)

	first, err := svc.DetectGaps(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.CandidatesCreated != 1 {
		t.Fatalf("expected 1 candidate on first run, got %d", first.CandidatesCreated)
	}

	second, err := svc.DetectGaps(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.CandidatesCreated != 0 {
		t.Fatalf("expected idempotent second run, got %d new candidates", second.CandidatesCreated)
	}
}

func TestDetectGaps_PriorityBoundaries(t *testing.T) {
	t.Run("count 10 is critical regardless of rate", func(t *testing.T) {
		corrections := &fakeCorrectionRepo{}
		addCorrections(corrections, 10, correctionSeed{
			agency:   "DOB",
			category: types.ErrorCategoryKnowledgeGap,
			edited:   "elevator device out of service",
		})
		// Dilute the window so the group rate is well under 0.5.
		addCorrections(corrections, 30, correctionSeed{
			agency:   "DOT",
			category: types.ErrorCategoryOther,
			edited:   "sidewalk note reworded",
		})
		svc := newGapService(corrections, &fakeAccuracyStatRepo{}, &fakeCandidateRepo{})

		summary, err := svc.DetectGaps(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.CandidatesCreated != 1 {
			t.Fatalf("expected 1 candidate, got %d", summary.CandidatesCreated)
		}
		if got := summary.Candidates[0].Priority; got != types.CandidatePriorityCritical {
			t.Fatalf("expected critical, got %q", got)
		}
	})

	t.Run("count 7 with low rate is high", func(t *testing.T) {
		corrections := &fakeCorrectionRepo{}
		addCorrections(corrections, 7, correctionSeed{
			agency:   "DOB",
			category: types.ErrorCategoryKnowledgeGap,
			edited:   "elevator device out of service",
		})
		// 7/18 = 0.389, under both rate cutoffs.
		addCorrections(corrections, 11, correctionSeed{
			agency:   "DOT",
			category: types.ErrorCategoryOther,
			edited:   "sidewalk note reworded",
		})
		svc := newGapService(corrections, &fakeAccuracyStatRepo{}, &fakeCandidateRepo{})

		summary, err := svc.DetectGaps(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.CandidatesCreated != 1 {
			t.Fatalf("expected 1 candidate, got %d", summary.CandidatesCreated)
		}
		if got := summary.Candidates[0].Priority; got != types.CandidatePriorityHigh {
			t.Fatalf("expected high, got %q", got)
		}
	})

	t.Run("count 3 with low rate is medium", func(t *testing.T) {
		corrections := &fakeCorrectionRepo{}
		addCorrections(corrections, 3, correctionSeed{
			agency:   "DOB",
			category: types.ErrorCategoryKnowledgeGap,
			edited:   "elevator device out of service",
		})
		// 3/8 = 0.375.
		addCorrections(corrections, 5, correctionSeed{
			agency:   "DOT",
			category: types.ErrorCategoryOther,
			edited:   "sidewalk note reworded",
		})
		svc := newGapService(corrections, &fakeAccuracyStatRepo{}, &fakeCandidateRepo{})

		summary, err := svc.DetectGaps(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.CandidatesCreated != 1 {
			t.Fatalf("expected 1 candidate, got %d", summary.CandidatesCreated)
		}
		if got := summary.Candidates[0].Priority; got != types.CandidatePriorityMedium {
			t.Fatalf("expected medium, got %q", got)
		}
	})
}

func TestDetectGaps_DedupAgainstExistingCandidate(t *testing.T) {
	corrections := &fakeCorrectionRepo{}
	addCorrections(corrections, 5, correctionSeed{
		agency:   "FDNY",
		category: types.ErrorCategoryKnowledgeGap,
		edited:   "sprinkler pressure test overdue",
	})
	candidates := &fakeCandidateRepo{candidates: []*types.KnowledgeCandidate{
		{Status: types.CandidateStatusActive, DedupKey: candidateDedupKey("FDNY", []string{"sprinkler"})},
	}}
	svc := newGapService(corrections, &fakeAccuracyStatRepo{}, candidates)

	summary, err := svc.DetectGaps(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.CandidatesCreated != 0 {
		t.Fatalf("expected dedup to suppress the candidate, got %d", summary.CandidatesCreated)
	}
}

func TestDetectGaps_RejectedCandidateDoesNotBlock(t *testing.T) {
	corrections := &fakeCorrectionRepo{}
	addCorrections(corrections, 5, correctionSeed{
		agency:   "FDNY",
		category: types.ErrorCategoryKnowledgeGap,
		edited:   "sprinkler pressure test overdue",
	})
	// Rejection releases the dedup key, so the stored row carries a retired
	// key and must not suppress re-detection.
	candidates := &fakeCandidateRepo{candidates: []*types.KnowledgeCandidate{
		{Status: types.CandidateStatusRejected, DedupKey: "retired:previous"},
	}}
	svc := newGapService(corrections, &fakeAccuracyStatRepo{}, candidates)

	summary, err := svc.DetectGaps(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.CandidatesCreated != 1 {
		t.Fatalf("expected rejected candidates to be ignored by dedup, got %d", summary.CandidatesCreated)
	}
}

func TestDetectGaps_EndToEndAgencyExplainer(t *testing.T) {
	corrections := &fakeCorrectionRepo{}
	addCorrections(corrections, 5, correctionSeed{
		agency:   "HPD",
		category: types.ErrorCategoryWrongAgencyExplanation,
		edited:   "elevator violations for multiple dwellings are issued by HPD, not DOB",
	})
	svc := newGapService(corrections, &fakeAccuracyStatRepo{}, &fakeCandidateRepo{})

	summary, err := svc.DetectGaps(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.CandidatesCreated != 1 {
		t.Fatalf("expected 1 candidate, got %d", summary.CandidatesCreated)
	}
	created := summary.Candidates[0]
	if created.KnowledgeType != types.KnowledgeTypeAgencyExplainer {
		t.Fatalf("expected agency_explainer, got %q", created.KnowledgeType)
	}
	if !strings.Contains(created.Title, "HPD Elevator Agency Explanation Reference") {
		t.Fatalf("unexpected title %q", created.Title)
	}
	// The whole window is this one group, so rate 1.0 forces critical.
	if created.Priority != types.CandidatePriorityCritical {
		t.Fatalf("expected critical, got %q", created.Priority)
	}
	if len(created.SourceEditIDs) == 0 {
		t.Fatalf("expected source edit ids to be recorded")
	}
}

func TestCandidateDedupKey_OrderInsensitive(t *testing.T) {
	a := candidateDedupKey("DOB", []string{"elevator", "facade"})
	b := candidateDedupKey("DOB", []string{"facade", "elevator", "facade"})
	if a != b {
		t.Fatalf("expected identical keys, got %q vs %q", a, b)
	}
}

func TestDetectGaps_SourceEditIDsCapped(t *testing.T) {
	corrections := &fakeCorrectionRepo{}
	addCorrections(corrections, 25, correctionSeed{
		agency:   "DEP",
		category: types.ErrorCategoryKnowledgeGap,
		edited:   "water supply backflow device missing",
	})
	svc := newGapService(corrections, &fakeAccuracyStatRepo{}, &fakeCandidateRepo{})

	summary, err := svc.DetectGaps(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.CandidatesCreated != 1 {
		t.Fatalf("expected 1 candidate, got %d", summary.CandidatesCreated)
	}
	created := summary.Candidates[0]
	if created.DemandScore != 25 {
		t.Fatalf("expected demand score 25, got %d", created.DemandScore)
	}
	ids := decodeViolationTypes(created.SourceEditIDs)
	if len(ids) != maxSourceEditIDs {
		t.Fatalf("expected %d source edit ids, got %d", maxSourceEditIDs, len(ids))
	}
}
