package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/funlynk/funlynk-backend/internal/repos/testutil"
	"github.com/funlynk/funlynk-backend/internal/types"
)

func TestEventAttendeeRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewEventAttendeeRepo(db, testutil.Logger(t))

	host := testutil.SeedUser(t, ctx, tx, testutil.UniqueEmail(t, "host"))
	regular := testutil.SeedUser(t, ctx, tx, testutil.UniqueEmail(t, "regular"))
	oneoff := testutil.SeedUser(t, ctx, tx, testutil.UniqueEmail(t, "oneoff"))
	decliner := testutil.SeedUser(t, ctx, tx, testutil.UniqueEmail(t, "decliner"))

	concert, picnic, meetup := uuid.New(), uuid.New(), uuid.New()

	testutil.SeedAttendance(t, ctx, tx, concert, host.ID, types.AttendeeStatusAttending)
	testutil.SeedAttendance(t, ctx, tx, picnic, host.ID, types.AttendeeStatusAttending)
	testutil.SeedAttendance(t, ctx, tx, meetup, host.ID, types.AttendeeStatusAttending)

	testutil.SeedAttendance(t, ctx, tx, concert, regular.ID, types.AttendeeStatusAttending)
	testutil.SeedAttendance(t, ctx, tx, picnic, regular.ID, types.AttendeeStatusAttending)
	testutil.SeedAttendance(t, ctx, tx, meetup, oneoff.ID, types.AttendeeStatusAttending)
	// declined rows never count as shared attendance
	testutil.SeedAttendance(t, ctx, tx, concert, decliner.ID, types.AttendeeStatusDeclined)

	counts, err := repo.SharedAttendanceCounts(ctx, tx, host.ID, 2, nil)
	if err != nil {
		t.Fatalf("SharedAttendanceCounts: %v", err)
	}
	if counts[regular.ID] != 2 {
		t.Fatalf("SharedAttendanceCounts: regular expected 2, got %d", counts[regular.ID])
	}
	if _, ok := counts[oneoff.ID]; ok {
		t.Fatalf("SharedAttendanceCounts: below-threshold user must not appear")
	}
	if _, ok := counts[decliner.ID]; ok {
		t.Fatalf("SharedAttendanceCounts: declined attendance must not count")
	}

	counts, err = repo.SharedAttendanceCounts(ctx, tx, host.ID, 1, []uuid.UUID{regular.ID})
	if err != nil {
		t.Fatalf("SharedAttendanceCounts excluded: %v", err)
	}
	if _, ok := counts[regular.ID]; ok {
		t.Fatalf("SharedAttendanceCounts: excluded id must not appear")
	}
	if counts[oneoff.ID] != 1 {
		t.Fatalf("SharedAttendanceCounts: oneoff expected 1, got %d", counts[oneoff.ID])
	}

	shared, err := repo.SharedEventIDs(ctx, tx, host.ID, regular.ID)
	if err != nil {
		t.Fatalf("SharedEventIDs: %v", err)
	}
	if len(shared) != 2 {
		t.Fatalf("SharedEventIDs: expected 2, got %d", len(shared))
	}
}
