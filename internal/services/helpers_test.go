package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funlynk/funlynk-backend/internal/apierr"
	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/repos"
	"github.com/funlynk/funlynk-backend/internal/types"
)

func testLogger() *logger.Logger {
	log, err := logger.New("test")
	if err != nil {
		panic(err)
	}
	return log
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// fakeCache is an in-memory Cache with prefix invalidation, mirroring the
// redis-backed implementation closely enough for service tests.
type fakeCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (fc *fakeCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	raw, ok := fc.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (fc *fakeCache) Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.entries[key] = raw
	return nil
}

func (fc *fakeCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.invalidated = append(fc.invalidated, prefix)
	for key := range fc.entries {
		if strings.HasPrefix(key, prefix) {
			delete(fc.entries, key)
		}
	}
	return nil
}

func (fc *fakeCache) Close() error { return nil }

func (fc *fakeCache) wasInvalidated(prefix string) bool {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	for _, p := range fc.invalidated {
		if p == prefix {
			return true
		}
	}
	return false
}

// fakeGraph is a GraphService over plain maps. Zero-value fields behave as
// empty result sets; per-signal errors simulate collaborator failures.
type fakeGraph struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*types.User
	following map[uuid.UUID][]uuid.UUID
	interests map[uuid.UUID][]string
	locations map[uuid.UUID]map[uuid.UUID]int
	events    map[uuid.UUID]map[uuid.UUID]int

	interestsErr error
	eventsErr    error
	mutualErr    error

	followingCalls int
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		users:     map[uuid.UUID]*types.User{},
		following: map[uuid.UUID][]uuid.UUID{},
		interests: map[uuid.UUID][]string{},
		locations: map[uuid.UUID]map[uuid.UUID]int{},
		events:    map[uuid.UUID]map[uuid.UUID]int{},
	}
}

func (fg *fakeGraph) addUser(name string) *types.User {
	u := &types.User{ID: uuid.New(), Email: name + "@example.com", FirstName: name, IsActive: true}
	fg.users[u.ID] = u
	return u
}

func (fg *fakeGraph) follow(follower, following uuid.UUID) {
	fg.following[follower] = append(fg.following[follower], following)
}

func (fg *fakeGraph) GetUser(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	if u, ok := fg.users[userID]; ok {
		return u, nil
	}
	return nil, apierr.NotFound("user %s not found", userID)
}

func (fg *fakeGraph) FollowingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if _, err := fg.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	fg.mu.Lock()
	fg.followingCalls++
	fg.mu.Unlock()
	return fg.following[userID], nil
}

func (fg *fakeGraph) FollowerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if _, err := fg.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	var followers []uuid.UUID
	for follower, followees := range fg.following {
		for _, id := range followees {
			if id == userID {
				followers = append(followers, follower)
			}
		}
	}
	sort.Slice(followers, func(i, j int) bool { return followers[i].String() < followers[j].String() })
	return followers, nil
}

func (fg *fakeGraph) MutualConnectionIDs(ctx context.Context, a, b uuid.UUID) ([]uuid.UUID, error) {
	if fg.mutualErr != nil {
		return nil, fg.mutualErr
	}
	aSet := map[uuid.UUID]struct{}{}
	for _, id := range fg.following[a] {
		aSet[id] = struct{}{}
	}
	var mutual []uuid.UUID
	for _, id := range fg.following[b] {
		if id == a || id == b {
			continue
		}
		if _, ok := aSet[id]; ok {
			mutual = append(mutual, id)
		}
	}
	sort.Slice(mutual, func(i, j int) bool { return mutual[i].String() < mutual[j].String() })
	return mutual, nil
}

func (fg *fakeGraph) MutualConnectionCount(ctx context.Context, userID uuid.UUID) (int, error) {
	counts, _ := fg.MutualCandidates(ctx, userID, nil)
	return len(counts), nil
}

func (fg *fakeGraph) SecondDegreeReach(ctx context.Context, userID uuid.UUID) (int, error) {
	direct := map[uuid.UUID]struct{}{}
	for _, id := range fg.following[userID] {
		direct[id] = struct{}{}
	}
	reach := map[uuid.UUID]struct{}{}
	for followee := range direct {
		for _, id := range fg.following[followee] {
			if id == userID {
				continue
			}
			if _, ok := direct[id]; ok {
				continue
			}
			reach[id] = struct{}{}
		}
	}
	return len(reach), nil
}

func (fg *fakeGraph) MutualCandidates(ctx context.Context, userID uuid.UUID, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	exclude := map[uuid.UUID]struct{}{userID: {}}
	for _, id := range excludeIDs {
		exclude[id] = struct{}{}
	}
	counts := map[uuid.UUID]int{}
	for _, followee := range fg.following[userID] {
		for _, id := range fg.following[followee] {
			if _, skip := exclude[id]; skip {
				continue
			}
			counts[id]++
		}
	}
	return counts, nil
}

func filterExcluded(src map[uuid.UUID]int, userID uuid.UUID, excludeIDs []uuid.UUID) map[uuid.UUID]int {
	exclude := map[uuid.UUID]struct{}{userID: {}}
	for _, id := range excludeIDs {
		exclude[id] = struct{}{}
	}
	out := map[uuid.UUID]int{}
	for id, count := range src {
		if _, skip := exclude[id]; !skip {
			out[id] = count
		}
	}
	return out
}

func (fg *fakeGraph) SharedInterestUsers(ctx context.Context, userID uuid.UUID, minShared int, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	if fg.interestsErr != nil {
		return nil, fg.interestsErr
	}
	mine := map[string]struct{}{}
	for _, name := range fg.interests[userID] {
		mine[name] = struct{}{}
	}
	counts := map[uuid.UUID]int{}
	for other, names := range fg.interests {
		if other == userID {
			continue
		}
		shared := 0
		for _, name := range names {
			if _, ok := mine[name]; ok {
				shared++
			}
		}
		if shared >= minShared {
			counts[other] = shared
		}
	}
	return filterExcluded(counts, userID, excludeIDs), nil
}

func (fg *fakeGraph) SameLocationUsers(ctx context.Context, userID uuid.UUID, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	return filterExcluded(fg.locations[userID], userID, excludeIDs), nil
}

func (fg *fakeGraph) SharedEventAttendanceUsers(ctx context.Context, userID uuid.UUID, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	if fg.eventsErr != nil {
		return nil, fg.eventsErr
	}
	return filterExcluded(fg.events[userID], userID, excludeIDs), nil
}

func (fg *fakeGraph) InterestNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if fg.interestsErr != nil {
		return nil, fg.interestsErr
	}
	return fg.interests[userID], nil
}

func (fg *fakeGraph) CommonInterests(ctx context.Context, userID, otherID uuid.UUID) ([]string, error) {
	mine := map[string]struct{}{}
	for _, name := range fg.interests[userID] {
		mine[name] = struct{}{}
	}
	var common []string
	for _, name := range fg.interests[otherID] {
		if _, ok := mine[name]; ok {
			common = append(common, name)
		}
	}
	sort.Strings(common)
	return common, nil
}

func (fg *fakeGraph) ActiveUserCount(ctx context.Context) (int64, error) {
	count := int64(0)
	for _, u := range fg.users {
		if u.IsActive {
			count++
		}
	}
	return count, nil
}

func (fg *fakeGraph) UsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*types.User, error) {
	var users []*types.User
	for _, id := range ids {
		if u, ok := fg.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

// fakeFollowRepo covers only the methods the services under test reach;
// everything else panics via the embedded nil interface.
type fakeFollowRepo struct {
	repos.UserFollowRepo
	following       map[uuid.UUID][]uuid.UUID
	edges           map[pair]bool
	createdSince    []*types.UserFollow
	newFollowers    map[uuid.UUID]int
	followerCounts  map[uuid.UUID]int
	edgesAmong      int64
	createdByWindow map[string]int64
	followingCalls  int
}

func (fr *fakeFollowRepo) Exists(ctx context.Context, tx *gorm.DB, followerID, followingID uuid.UUID) (bool, error) {
	return fr.edges[pair{followerID, followingID}], nil
}

func (fr *fakeFollowRepo) Create(ctx context.Context, tx *gorm.DB, followerID, followingID uuid.UUID, at time.Time) (bool, error) {
	if fr.edges == nil {
		fr.edges = map[pair]bool{}
	}
	key := pair{followerID, followingID}
	if fr.edges[key] {
		return false, nil
	}
	fr.edges[key] = true
	return true, nil
}

func (fr *fakeFollowRepo) Delete(ctx context.Context, tx *gorm.DB, followerID, followingID uuid.UUID) error {
	delete(fr.edges, pair{followerID, followingID})
	return nil
}

func (fr *fakeFollowRepo) FollowingIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error) {
	fr.followingCalls++
	return fr.following[userID], nil
}

func (fr *fakeFollowRepo) CreatedSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.UserFollow, error) {
	var out []*types.UserFollow
	for _, e := range fr.createdSince {
		if !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (fr *fakeFollowRepo) NewFollowerCounts(ctx context.Context, tx *gorm.DB, since time.Time, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	exclude := map[uuid.UUID]struct{}{}
	for _, id := range excludeIDs {
		exclude[id] = struct{}{}
	}
	out := map[uuid.UUID]int{}
	for id, count := range fr.newFollowers {
		if _, skip := exclude[id]; !skip {
			out[id] = count
		}
	}
	return out, nil
}

func (fr *fakeFollowRepo) FollowerCounts(ctx context.Context, tx *gorm.DB) (map[uuid.UUID]int, error) {
	return fr.followerCounts, nil
}

func (fr *fakeFollowRepo) CountEdgesAmong(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (int64, error) {
	return fr.edgesAmong, nil
}

func (fr *fakeFollowRepo) CountCreatedBetween(ctx context.Context, tx *gorm.DB, followerID uuid.UUID, from, to time.Time) (int64, error) {
	return fr.createdByWindow[from.Format("2006-01")], nil
}

// fakeActivityRepo serves the engagement aggregates.
type fakeActivityRepo struct {
	repos.ActivityFeedRepo
	totals       map[uuid.UUID]repos.EngagementTotals
	countByUser  map[uuid.UUID]int64
	appended     []*types.ActivityFeed
	totalsSince  time.Time
}

func (ar *fakeActivityRepo) Append(ctx context.Context, tx *gorm.DB, entry *types.ActivityFeed) error {
	ar.appended = append(ar.appended, entry)
	return nil
}

func (ar *fakeActivityRepo) TotalsForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) (repos.EngagementTotals, error) {
	return ar.totals[userID], nil
}

func (ar *fakeActivityRepo) TotalsByUser(ctx context.Context, tx *gorm.DB, since time.Time) (map[uuid.UUID]repos.EngagementTotals, error) {
	ar.totalsSince = since
	return ar.totals, nil
}

func (ar *fakeActivityRepo) CountByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID, since time.Time) (map[uuid.UUID]int64, error) {
	out := map[uuid.UUID]int64{}
	for _, id := range userIDs {
		if c, ok := ar.countByUser[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

// fakeInterestRepo serves community interest annotation.
type fakeInterestRepo struct {
	repos.UserInterestRepo
	topShared []string
}

func (ir *fakeInterestRepo) TopSharedAmong(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID, minCount, limit int) ([]string, error) {
	return ir.topShared, nil
}

type pair struct{ userID, suggestedID uuid.UUID }

// fakeSuggestionRepo keeps suggestion rows in a map keyed by pair.
type fakeSuggestionRepo struct {
	repos.FriendSuggestionRepo
	mu   sync.Mutex
	rows map[pair]*types.FriendSuggestion
}

func newFakeSuggestionRepo() *fakeSuggestionRepo {
	return &fakeSuggestionRepo{rows: map[pair]*types.FriendSuggestion{}}
}

func (sr *fakeSuggestionRepo) Upsert(ctx context.Context, tx *gorm.DB, s *types.FriendSuggestion) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	key := pair{s.UserID, s.SuggestedUserID}
	if existing, ok := sr.rows[key]; ok {
		existing.SuggestionType = s.SuggestionType
		existing.ConfidenceScore = s.ConfidenceScore
		existing.SuggestionReasons = s.SuggestionReasons
		existing.MutualConnections = s.MutualConnections
		existing.MutualFriendsCount = s.MutualFriendsCount
		existing.SharedInterestsCount = s.SharedInterestsCount
		existing.SharedEventsCount = s.SharedEventsCount
		existing.ExpiresAt = s.ExpiresAt
		existing.UpdatedAt = s.UpdatedAt
		return nil
	}
	clone := *s
	sr.rows[key] = &clone
	return nil
}

func (sr *fakeSuggestionRepo) GetByPair(ctx context.Context, tx *gorm.DB, userID, suggestedUserID uuid.UUID) (*types.FriendSuggestion, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if s, ok := sr.rows[pair{userID, suggestedUserID}]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (sr *fakeSuggestionRepo) Dismiss(ctx context.Context, tx *gorm.DB, userID, suggestedUserID uuid.UUID, at time.Time) (bool, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	s, ok := sr.rows[pair{userID, suggestedUserID}]
	if !ok || s.IsDismissed {
		return false, nil
	}
	s.IsDismissed = true
	s.DismissedAt = &at
	return true, nil
}

func (sr *fakeSuggestionRepo) MarkContacted(ctx context.Context, tx *gorm.DB, userID, suggestedUserID uuid.UUID, at time.Time) (bool, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	s, ok := sr.rows[pair{userID, suggestedUserID}]
	if !ok || s.IsContacted {
		return false, nil
	}
	s.IsContacted = true
	s.ContactedAt = &at
	return true, nil
}

func (sr *fakeSuggestionRepo) MarkFollowed(ctx context.Context, tx *gorm.DB, userID, suggestedUserID uuid.UUID, at time.Time) (bool, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	s, ok := sr.rows[pair{userID, suggestedUserID}]
	if !ok || s.IsFollowed {
		return false, nil
	}
	s.IsFollowed = true
	s.FollowedAt = &at
	return true, nil
}

func (sr *fakeSuggestionRepo) DeleteExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	var deleted int64
	for key, s := range sr.rows {
		if s.IsExpired(now) {
			delete(sr.rows, key)
			deleted++
		}
	}
	return deleted, nil
}

func (sr *fakeSuggestionRepo) DeleteDismissedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	var deleted int64
	for key, s := range sr.rows {
		if s.IsDismissed && s.DismissedAt != nil && s.DismissedAt.Before(cutoff) {
			delete(sr.rows, key)
			deleted++
		}
	}
	return deleted, nil
}

// fakeInteractionRepo is the append-only interaction log.
type fakeInteractionRepo struct {
	repos.SuggestionInteractionRepo
	rows []*types.SuggestionInteraction
}

func (ir *fakeInteractionRepo) Append(ctx context.Context, tx *gorm.DB, row *types.SuggestionInteraction) error {
	ir.rows = append(ir.rows, row)
	return nil
}

func (ir *fakeInteractionRepo) AggregateSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]repos.InteractionCount, error) {
	cells := map[[2]string]int{}
	for _, r := range ir.rows {
		if r.UserID != userID || r.CreatedAt.Before(since) {
			continue
		}
		cells[[2]string{r.SuggestionReason, r.Action}]++
	}
	var out []repos.InteractionCount
	for key, total := range cells {
		out = append(out, repos.InteractionCount{SuggestionReason: key[0], Action: key[1], Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SuggestionReason != out[j].SuggestionReason {
			return out[i].SuggestionReason < out[j].SuggestionReason
		}
		return out[i].Action < out[j].Action
	})
	return out, nil
}

// nopActivityLog satisfies ActivityLogService without touching storage.
type nopActivityLog struct {
	errors   []error
	activity []string
}

func (nl *nopActivityLog) LogError(ctx context.Context, err error, context map[string]interface{}) {
	nl.errors = append(nl.errors, err)
}

func (nl *nopActivityLog) LogActivity(ctx context.Context, userID uuid.UUID, action string, subjectKind types.SubjectKind, subjectID *uuid.UUID, context map[string]interface{}) {
	nl.activity = append(nl.activity, action)
}
