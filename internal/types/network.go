package types

import "github.com/google/uuid"

// NetworkMetrics is the per-user network snapshot. Computed on demand,
// cached whole, never persisted.
type NetworkMetrics struct {
	FollowingCount       int     `json:"following_count"`
	FollowersCount       int     `json:"followers_count"`
	MutualConnections    int     `json:"mutual_connections"`
	NetworkReach         int     `json:"network_reach"`
	InfluenceScore       float64 `json:"influence_score"`
	EngagementRate       float64 `json:"engagement_rate"`
	ConnectionGrowthRate float64 `json:"connection_growth_rate"`
	NewConnectionsMonth  int     `json:"new_connections_this_month"`
	NetworkDensity       float64 `json:"network_density"`
	CentralityScore      float64 `json:"centrality_score"`
}

// PathResult is the outcome of a shortest-path search. Length is the edge
// count; Users carries the enriched path in order.
type PathResult struct {
	Path   []uuid.UUID `json:"path"`
	Length int         `json:"length"`
	Users  []*User     `json:"users,omitempty"`
}

type Community struct {
	ID              int      `json:"id"`
	Name            string   `json:"name"`
	Size            int      `json:"size"`
	Members         []*User  `json:"members"`
	CommonInterests []string `json:"common_interests"`
	ActivityLevel   float64  `json:"activity_level"`
	CohesionScore   float64  `json:"cohesion_score"`
}

type InfluenceRanking struct {
	Rank           int       `json:"rank"`
	UserID         uuid.UUID `json:"user_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	AvatarURL      string    `json:"avatar_url"`
	FollowersCount int       `json:"followers_count"`
	ActivityCount  int       `json:"activities_count"`
	TotalLikes     int       `json:"total_likes"`
	TotalComments  int       `json:"total_comments"`
	InfluenceScore float64   `json:"influence_score"`
}

// TrendingUser is one row of the recent-follower-gain leaderboard.
type TrendingUser struct {
	User         *User   `json:"user"`
	NewFollowers int     `json:"new_followers"`
	TrendScore   float64 `json:"trend_score"`
}

type GrowthTrend struct {
	Period             string  `json:"period"`
	NewConnections     int     `json:"new_connections"`
	ActiveUsers        int     `json:"active_users"`
	GrowthRate         float64 `json:"growth_rate"`
	ConnectionsPerUser float64 `json:"connections_per_user"`
}

type GrowthTrendReport struct {
	Trends  []GrowthTrend      `json:"trends"`
	Summary GrowthTrendSummary `json:"summary"`
}

type GrowthTrendSummary struct {
	TotalNewConnections int     `json:"total_new_connections"`
	AverageGrowthRate   float64 `json:"average_growth_rate"`
	PeakPeriod          string  `json:"peak_period,omitempty"`
	TotalActiveUsers    int     `json:"total_active_users"`
}
