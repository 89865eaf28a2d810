package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/funlynk/funlynk-backend/internal/apierr"
	"github.com/funlynk/funlynk-backend/internal/services"
)

// SocialGraphHandler exposes the read side of the graph: per-user metrics,
// mutual connections, shortest paths, communities and the network roll-ups.
type SocialGraphHandler struct {
	graphService     services.GraphService
	metricsService   services.NetworkMetricsService
	pathFinder       services.PathFinderService
	communityService services.CommunityService
	analyticsService services.NetworkAnalyticsService
}

func NewSocialGraphHandler(
	graphService services.GraphService,
	metricsService services.NetworkMetricsService,
	pathFinder services.PathFinderService,
	communityService services.CommunityService,
	analyticsService services.NetworkAnalyticsService,
) *SocialGraphHandler {
	return &SocialGraphHandler{
		graphService:     graphService,
		metricsService:   metricsService,
		pathFinder:       pathFinder,
		communityService: communityService,
		analyticsService: analyticsService,
	}
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apierr.InvalidArgument("invalid %s: %q", name, c.Param(name))
	}
	return id, nil
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func (sh *SocialGraphHandler) GetNetworkMetrics(c *gin.Context) {
	userID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	metrics, err := sh.metricsService.GetNetworkMetrics(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"metrics": metrics})
}

func (sh *SocialGraphHandler) GetMutualConnections(c *gin.Context) {
	userID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	otherID, err := pathUUID(c, "other")
	if err != nil {
		RespondError(c, err)
		return
	}

	ids, err := sh.graphService.MutualConnectionIDs(c.Request.Context(), userID, otherID)
	if err != nil {
		RespondError(c, err)
		return
	}
	users, err := sh.graphService.UsersByIDs(c.Request.Context(), ids)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"mutual_connections": users, "count": len(users)})
}

func (sh *SocialGraphHandler) GetShortestPath(c *gin.Context) {
	from, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	to, err := pathUUID(c, "other")
	if err != nil {
		RespondError(c, err)
		return
	}

	result, err := sh.pathFinder.ShortestPath(c.Request.Context(), from, to, queryInt(c, "max_depth", 0))
	if err != nil {
		RespondError(c, err)
		return
	}
	if result == nil {
		RespondOK(c, gin.H{"found": false})
		return
	}
	RespondOK(c, gin.H{"found": true, "path": result})
}

func (sh *SocialGraphHandler) GetCommunities(c *gin.Context) {
	userID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}

	communities, err := sh.communityService.DetectCommunities(
		c.Request.Context(), userID,
		queryInt(c, "min_size", 0),
		queryInt(c, "max_communities", 0),
	)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"communities": communities, "count": len(communities)})
}

func (sh *SocialGraphHandler) GetInfluenceRankings(c *gin.Context) {
	rankings, err := sh.analyticsService.GetInfluenceRankings(
		c.Request.Context(),
		c.Query("timeframe"),
		queryInt(c, "limit", 0),
	)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"rankings": rankings})
}

func (sh *SocialGraphHandler) GetGrowthTrends(c *gin.Context) {
	report, err := sh.analyticsService.GetNetworkGrowthTrends(
		c.Request.Context(),
		c.Query("timeframe"),
		queryInt(c, "periods", 0),
	)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, report)
}
