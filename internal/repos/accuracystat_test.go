package repos

import (
	"context"
	"testing"
	"time"

	"github.com/rowanlane/diligence-backend/internal/repos/testutil"
	"github.com/rowanlane/diligence-backend/internal/types"
)

func TestAccuracyStatRepo_UpsertIsIdempotentPerSegment(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewAccuracyStatRepo(db, testutil.Logger(t))
	ctx := context.Background()

	first := &types.AccuracyStat{
		Agency:              "DOB",
		ItemType:            types.ItemTypeViolation,
		ViolationType:       "elevator",
		TotalNotesGenerated: 10,
		TotalEdits:          2,
		EditRate:            0.2,
		TopErrorCategory:    types.ErrorCategoryTooVague,
		LastUpdated:         time.Now().UTC(),
	}
	if err := repo.Upsert(ctx, tx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := &types.AccuracyStat{
		Agency:               "DOB",
		ItemType:             types.ItemTypeViolation,
		ViolationType:        "elevator",
		TotalNotesGenerated:  12,
		TotalEdits:           6,
		EditRate:             0.5,
		DenominatorEstimated: false,
		TopErrorCategory:     types.ErrorCategoryFactualError,
		LastUpdated:          time.Now().UTC(),
	}
	if err := repo.Upsert(ctx, tx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	all, err := repo.ListAll(ctx, tx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one row per segment, got %d", len(all))
	}
	if all[0].TotalEdits != 6 || all[0].TopErrorCategory != types.ErrorCategoryFactualError {
		t.Fatalf("expected updated values, got %+v", all[0])
	}
}

func TestAccuracyStatRepo_ListByMinEditRate(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewAccuracyStatRepo(db, testutil.Logger(t))
	ctx := context.Background()

	rows := []*types.AccuracyStat{
		{Agency: "DOB", ItemType: types.ItemTypeViolation, ViolationType: "elevator", EditRate: 0.5, TotalNotesGenerated: 10, TotalEdits: 5, TopErrorCategory: "too_vague", LastUpdated: time.Now().UTC()},
		{Agency: "HPD", ItemType: types.ItemTypeViolation, ViolationType: "boiler", EditRate: 0.3, TotalNotesGenerated: 10, TotalEdits: 3, TopErrorCategory: "too_vague", LastUpdated: time.Now().UTC()},
		{Agency: "FDNY", ItemType: types.ItemTypeViolation, ViolationType: "sprinkler", EditRate: 0.4, TotalNotesGenerated: 10, TotalEdits: 4, TopErrorCategory: "too_vague", LastUpdated: time.Now().UTC()},
	}
	for _, row := range rows {
		if err := repo.Upsert(ctx, tx, row); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	got, err := repo.ListByMinEditRate(ctx, tx, 0.4)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// Strictly greater than the floor: the 0.4 row is excluded.
	if len(got) != 1 || got[0].Agency != "DOB" {
		t.Fatalf("expected only the DOB row, got %d", len(got))
	}
}
