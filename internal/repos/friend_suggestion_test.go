package repos

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/funlynk/funlynk-backend/internal/repos/testutil"
	"github.com/funlynk/funlynk-backend/internal/types"
)

func TestFriendSuggestionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewFriendSuggestionRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	expires := now.Add(7 * 24 * time.Hour)

	owner := testutil.SeedUser(t, ctx, tx, testutil.UniqueEmail(t, "owner"))
	first := testutil.SeedUser(t, ctx, tx, testutil.UniqueEmail(t, "first"))
	second := testutil.SeedUser(t, ctx, tx, testutil.UniqueEmail(t, "second"))
	inactive := testutil.SeedInactiveUser(t, ctx, tx, testutil.UniqueEmail(t, "inactive"))

	reasons, _ := json.Marshal([]string{"5 mutual connections"})
	suggestion := &types.FriendSuggestion{
		UserID:             owner.ID,
		SuggestedUserID:    first.ID,
		SuggestionType:     types.SuggestionTypeMutualFriends,
		ConfidenceScore:    0.9,
		SuggestionReasons:  datatypes.JSON(reasons),
		MutualFriendsCount: 5,
		ExpiresAt:          &expires,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := repo.Upsert(ctx, tx, suggestion); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// refresh for the same pair updates score without adding a row
	refreshed := &types.FriendSuggestion{
		UserID:             owner.ID,
		SuggestedUserID:    first.ID,
		SuggestionType:     types.SuggestionTypeMutualFriends,
		ConfidenceScore:    0.95,
		SuggestionReasons:  datatypes.JSON(reasons),
		MutualFriendsCount: 6,
		ExpiresAt:          &expires,
		CreatedAt:          now,
		UpdatedAt:          now.Add(time.Minute),
	}
	if err := repo.Upsert(ctx, tx, refreshed); err != nil {
		t.Fatalf("Upsert refresh: %v", err)
	}
	got, err := repo.GetByPair(ctx, tx, owner.ID, first.ID)
	if err != nil {
		t.Fatalf("GetByPair: %v", err)
	}
	if got.ConfidenceScore != 0.95 || got.MutualFriendsCount != 6 {
		t.Fatalf("Upsert refresh: score=%v mutuals=%d", got.ConfidenceScore, got.MutualFriendsCount)
	}

	testutil.SeedSuggestion(t, ctx, tx, owner.ID, second.ID, 0.4, expires)
	testutil.SeedSuggestion(t, ctx, tx, owner.ID, inactive.ID, 0.99, expires)
	stale := testutil.SeedUser(t, ctx, tx, testutil.UniqueEmail(t, "stale"))
	testutil.SeedSuggestion(t, ctx, tx, owner.ID, stale.ID, 0.7, now.Add(-time.Hour))

	active, err := repo.ActiveForUser(ctx, tx, owner.ID, now, 10)
	if err != nil {
		t.Fatalf("ActiveForUser: %v", err)
	}
	// inactive suggested user and expired row are filtered; order is by score
	if len(active) != 2 {
		t.Fatalf("ActiveForUser: expected 2, got %d", len(active))
	}
	if active[0].SuggestedUserID != first.ID || active[1].SuggestedUserID != second.ID {
		t.Fatalf("ActiveForUser: wrong order")
	}

	if limited, _ := repo.ActiveForUser(ctx, tx, owner.ID, now, 1); len(limited) != 1 {
		t.Fatalf("ActiveForUser: limit not applied")
	}

	dismissed, err := repo.Dismiss(ctx, tx, owner.ID, second.ID, now)
	if err != nil || !dismissed {
		t.Fatalf("Dismiss: err=%v dismissed=%v", err, dismissed)
	}
	// second dismiss is a no-op
	if dismissed, _ = repo.Dismiss(ctx, tx, owner.ID, second.ID, now.Add(time.Minute)); dismissed {
		t.Fatalf("Dismiss: expected no-op on already dismissed row")
	}
	row, _ := repo.GetByPair(ctx, tx, owner.ID, second.ID)
	if !row.IsDismissed || row.DismissedAt == nil {
		t.Fatalf("Dismiss: flag or timestamp not set")
	}

	if marked, err := repo.MarkContacted(ctx, tx, owner.ID, first.ID, now); err != nil || !marked {
		t.Fatalf("MarkContacted: err=%v marked=%v", err, marked)
	}
	if marked, err := repo.MarkFollowed(ctx, tx, owner.ID, first.ID, now); err != nil || !marked {
		t.Fatalf("MarkFollowed: err=%v marked=%v", err, marked)
	}

	// upsert refresh must not regress interaction flags
	if err := repo.Upsert(ctx, tx, refreshed); err != nil {
		t.Fatalf("Upsert after interactions: %v", err)
	}
	row, _ = repo.GetByPair(ctx, tx, owner.ID, first.ID)
	if !row.IsContacted || !row.IsFollowed {
		t.Fatalf("Upsert must preserve interaction flags")
	}

	stats, err := repo.StatsForUser(ctx, tx, owner.ID, now)
	if err != nil {
		t.Fatalf("StatsForUser: %v", err)
	}
	if stats.Total != 4 || stats.Dismissed != 1 || stats.Contacted != 1 || stats.Followed != 1 {
		t.Fatalf("StatsForUser: %+v", stats)
	}
	if stats.HighConfidence != 2 {
		t.Fatalf("StatsForUser: high confidence expected 2, got %d", stats.HighConfidence)
	}

	deleted, err := repo.DeleteExpired(ctx, tx, now)
	if err != nil || deleted != 1 {
		t.Fatalf("DeleteExpired: err=%v deleted=%d", err, deleted)
	}

	deleted, err = repo.DeleteDismissedBefore(ctx, tx, now.Add(time.Hour))
	if err != nil || deleted != 1 {
		t.Fatalf("DeleteDismissedBefore: err=%v deleted=%d", err, deleted)
	}

	affected, err := repo.BulkDismiss(ctx, tx, owner.ID, now)
	if err != nil {
		t.Fatalf("BulkDismiss: %v", err)
	}
	// first and the inactive-user row were still undismissed
	if affected != 2 {
		t.Fatalf("BulkDismiss: expected 2 affected, got %d", affected)
	}
}

func TestFriendSuggestionRepoNeverExpiring(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewFriendSuggestionRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	owner := testutil.SeedUser(t, ctx, tx, testutil.UniqueEmail(t, "owner"))
	pinned := testutil.SeedUser(t, ctx, tx, testutil.UniqueEmail(t, "pinned"))

	reasons, _ := json.Marshal([]string{"shared interests"})
	suggestion := &types.FriendSuggestion{
		UserID:            owner.ID,
		SuggestedUserID:   pinned.ID,
		SuggestionType:    types.SuggestionTypeSharedInterests,
		ConfidenceScore:   0.6,
		SuggestionReasons: datatypes.JSON(reasons),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := repo.Upsert(ctx, tx, suggestion); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// a row with no expiry stays active indefinitely
	active, err := repo.ActiveForUser(ctx, tx, owner.ID, now.AddDate(1, 0, 0), 10)
	if err != nil {
		t.Fatalf("ActiveForUser: %v", err)
	}
	if len(active) != 1 || active[0].SuggestedUserID != pinned.ID {
		t.Fatalf("ActiveForUser: expected the never-expiring row, got %d rows", len(active))
	}

	stats, err := repo.StatsForUser(ctx, tx, owner.ID, now.AddDate(1, 0, 0))
	if err != nil {
		t.Fatalf("StatsForUser: %v", err)
	}
	if stats.Total != 1 || stats.Active != 1 {
		t.Fatalf("StatsForUser: %+v", stats)
	}

	// GC keys off expires_at and must leave it alone
	deleted, err := repo.DeleteExpired(ctx, tx, now.AddDate(1, 0, 0))
	if err != nil || deleted != 0 {
		t.Fatalf("DeleteExpired: err=%v deleted=%d", err, deleted)
	}
}
