package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funlynk/funlynk-backend/internal/types"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     email,
		FirstName: "A",
		LastName:  "B",
		IsActive:  true,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedUserInCity(tb testing.TB, ctx context.Context, tx *gorm.DB, email, city, state string) *types.User {
	tb.Helper()
	u := SeedUser(tb, ctx, tx, email)
	if err := tx.WithContext(ctx).Model(u).Updates(map[string]interface{}{"city": city, "state": state}).Error; err != nil {
		tb.Fatalf("seed user location: %v", err)
	}
	u.City, u.State = city, state
	return u
}

func SeedInactiveUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := SeedUser(tb, ctx, tx, email)
	if err := tx.WithContext(ctx).Model(u).Update("is_active", false).Error; err != nil {
		tb.Fatalf("seed inactive user: %v", err)
	}
	u.IsActive = false
	return u
}

func SeedFollow(tb testing.TB, ctx context.Context, tx *gorm.DB, followerID, followingID uuid.UUID) *types.UserFollow {
	tb.Helper()
	f := &types.UserFollow{
		ID:          uuid.New(),
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed follow: %v", err)
	}
	return f
}

func SeedFollowAt(tb testing.TB, ctx context.Context, tx *gorm.DB, followerID, followingID uuid.UUID, at time.Time) *types.UserFollow {
	tb.Helper()
	f := &types.UserFollow{
		ID:          uuid.New(),
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   at,
	}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed follow: %v", err)
	}
	return f
}

func SeedInterests(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, names ...string) {
	tb.Helper()
	for _, name := range names {
		i := &types.UserInterest{
			ID:           uuid.New(),
			UserID:       userID,
			InterestName: name,
		}
		if err := tx.WithContext(ctx).Create(i).Error; err != nil {
			tb.Fatalf("seed interest %q: %v", name, err)
		}
	}
}

func SeedActivity(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, likes, comments int, at time.Time) *types.ActivityFeed {
	tb.Helper()
	a := &types.ActivityFeed{
		ID:            uuid.New(),
		UserID:        userID,
		Type:          "post_created",
		SubjectKind:   types.SubjectKindUser,
		LikesCount:    likes,
		CommentsCount: comments,
		CreatedAt:     at,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed activity: %v", err)
	}
	return a
}

func SeedAttendance(tb testing.TB, ctx context.Context, tx *gorm.DB, eventID, userID uuid.UUID, status string) *types.EventAttendee {
	tb.Helper()
	ea := &types.EventAttendee{
		ID:      uuid.New(),
		EventID: eventID,
		UserID:  userID,
		Status:  status,
	}
	if err := tx.WithContext(ctx).Create(ea).Error; err != nil {
		tb.Fatalf("seed attendance: %v", err)
	}
	return ea
}

func SeedSuggestion(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, suggestedID uuid.UUID, score float64, expiresAt time.Time) *types.FriendSuggestion {
	tb.Helper()
	s := &types.FriendSuggestion{
		ID:              uuid.New(),
		UserID:          userID,
		SuggestedUserID: suggestedID,
		SuggestionType:  types.SuggestionTypeMutualFriends,
		ConfidenceScore: score,
		ExpiresAt:       &expiresAt,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed suggestion: %v", err)
	}
	return s
}

// UniqueEmail derives a per-test unique address so suites sharing the db do
// not collide on the email unique index.
func UniqueEmail(tb testing.TB, tag string) string {
	tb.Helper()
	return fmt.Sprintf("%s-%s@example.com", tag, uuid.New().String()[:8])
}
