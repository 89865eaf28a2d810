package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/funlynk/funlynk-backend/internal/repos/testutil"
	"github.com/funlynk/funlynk-backend/internal/types"
)

func TestSuggestionInteractionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewSuggestionInteractionRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	user := testutil.SeedUser(t, ctx, tx, testutil.UniqueEmail(t, "viewer"))

	appendRow := func(action, reason string, at time.Time) {
		t.Helper()
		row := &types.SuggestionInteraction{
			UserID:           user.ID,
			SuggestedUserID:  uuid.New(),
			Action:           action,
			SuggestionReason: reason,
			CreatedAt:        at,
		}
		if err := repo.Append(ctx, tx, row); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	appendRow(types.InteractionViewed, string(types.ReasonMutualConnections), now.Add(-time.Hour))
	appendRow(types.InteractionViewed, string(types.ReasonMutualConnections), now.Add(-time.Hour))
	appendRow(types.InteractionFollowed, string(types.ReasonMutualConnections), now.Add(-time.Hour))
	appendRow(types.InteractionDismissed, string(types.ReasonSharedInterests), now.Add(-time.Hour))
	// outside the window
	appendRow(types.InteractionViewed, string(types.ReasonSharedInterests), now.Add(-60*24*time.Hour))

	rows, err := repo.AggregateSince(ctx, tx, user.ID, now.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("AggregateSince: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("AggregateSince: expected 3 cells, got %d", len(rows))
	}

	byCell := map[string]int{}
	for _, r := range rows {
		byCell[r.SuggestionReason+"/"+r.Action] = r.Total
	}
	if byCell["mutual_connections/viewed"] != 2 {
		t.Fatalf("AggregateSince: viewed mutuals=%d", byCell["mutual_connections/viewed"])
	}
	if byCell["mutual_connections/followed"] != 1 || byCell["shared_interests/dismissed"] != 1 {
		t.Fatalf("AggregateSince: %v", byCell)
	}
}
