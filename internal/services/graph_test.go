package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/funlynk/funlynk-backend/internal/apierr"
	"github.com/funlynk/funlynk-backend/internal/cache"
	"github.com/funlynk/funlynk-backend/internal/repos"
	"github.com/funlynk/funlynk-backend/internal/repos/testutil"
)

// exercises the real graph service against the sqlite-backed repos
func TestGraphService(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	userRepo := repos.NewUserRepo(db, log)
	followRepo := repos.NewUserFollowRepo(db, log)
	interestRepo := repos.NewUserInterestRepo(db, log)
	attendeeRepo := repos.NewEventAttendeeRepo(db, log)

	fc := newFakeCache()
	svc := NewGraphService(db, testLogger(), fc, userRepo, followRepo, interestRepo, attendeeRepo)

	alice := testutil.SeedUser(t, ctx, db, testutil.UniqueEmail(t, "graph-alice"))
	bob := testutil.SeedUser(t, ctx, db, testutil.UniqueEmail(t, "graph-bob"))
	carol := testutil.SeedUser(t, ctx, db, testutil.UniqueEmail(t, "graph-carol"))
	dave := testutil.SeedUser(t, ctx, db, testutil.UniqueEmail(t, "graph-dave"))

	testutil.SeedFollow(t, ctx, db, alice.ID, carol.ID)
	testutil.SeedFollow(t, ctx, db, alice.ID, dave.ID)
	testutil.SeedFollow(t, ctx, db, bob.ID, carol.ID)

	testutil.SeedInterests(t, ctx, db, alice.ID, "hiking", "jazz", "chess")
	testutil.SeedInterests(t, ctx, db, bob.ID, "jazz", "chess")

	if _, err := svc.GetUser(ctx, uuid.New()); !apierr.IsNotFound(err) {
		t.Fatalf("unknown user error = %v", err)
	}
	got, err := svc.GetUser(ctx, alice.ID)
	if err != nil || got.ID != alice.ID {
		t.Fatalf("GetUser = %v, %v", got, err)
	}

	following, err := svc.FollowingIDs(ctx, alice.ID)
	if err != nil || len(following) != 2 {
		t.Fatalf("FollowingIDs = %v, %v", following, err)
	}
	followers, err := svc.FollowerIDs(ctx, carol.ID)
	if err != nil || len(followers) != 2 {
		t.Fatalf("FollowerIDs = %v, %v", followers, err)
	}

	mutual, err := svc.MutualConnectionIDs(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("MutualConnectionIDs: %v", err)
	}
	if len(mutual) != 1 || mutual[0] != carol.ID {
		t.Fatalf("mutual = %v, want just carol", mutual)
	}
	// cached under both orderings so either user's invalidation clears it
	for _, key := range []string{cache.MutualKey(alice.ID, bob.ID), cache.MutualKey(bob.ID, alice.ID)} {
		if _, ok := fc.entries[key]; !ok {
			t.Fatalf("mutual result not cached under %q", key)
		}
	}
	reversed, err := svc.MutualConnectionIDs(ctx, bob.ID, alice.ID)
	if err != nil || len(reversed) != 1 || reversed[0] != carol.ID {
		t.Fatalf("reversed mutual = %v, %v", reversed, err)
	}

	names, err := svc.InterestNames(ctx, alice.ID)
	if err != nil || len(names) != 3 {
		t.Fatalf("InterestNames = %v, %v", names, err)
	}
	common, err := svc.CommonInterests(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("CommonInterests: %v", err)
	}
	if len(common) != 2 {
		t.Fatalf("common interests = %v, want chess and jazz", common)
	}

	// no city or state on record means no location candidates at all
	nearby, err := svc.SameLocationUsers(ctx, alice.ID, nil)
	if err != nil || len(nearby) != 0 {
		t.Fatalf("SameLocationUsers = %v, %v", nearby, err)
	}

	users, err := svc.UsersByIDs(ctx, []uuid.UUID{carol.ID, dave.ID})
	if err != nil || len(users) != 2 {
		t.Fatalf("UsersByIDs = %v, %v", users, err)
	}
}
