package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/funlynk/funlynk-backend/internal/handlers"
	"github.com/funlynk/funlynk-backend/internal/middleware"
)

type RouterConfig struct {
	SocialGraphHandler *handlers.SocialGraphHandler
	SuggestionHandler  *handlers.SuggestionHandler
	FollowHandler      *handlers.FollowHandler
	IdentityMiddleware *middleware.IdentityMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-User-ID"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.IdentityMiddleware.RequireIdentity())

	// Graph reads
	api.GET("/users/:id/network-metrics", cfg.SocialGraphHandler.GetNetworkMetrics)
	api.GET("/users/:id/mutual/:other", cfg.SocialGraphHandler.GetMutualConnections)
	api.GET("/users/:id/path/:other", cfg.SocialGraphHandler.GetShortestPath)
	api.GET("/users/:id/communities", cfg.SocialGraphHandler.GetCommunities)
	api.GET("/analytics/influence", cfg.SocialGraphHandler.GetInfluenceRankings)
	api.GET("/analytics/growth", cfg.SocialGraphHandler.GetGrowthTrends)

	// Follow edges
	api.POST("/follow", cfg.FollowHandler.Follow)
	api.DELETE("/follow/:id", cfg.FollowHandler.Unfollow)
	api.GET("/follow/:id", cfg.FollowHandler.IsFollowing)

	// Suggestions
	api.GET("/suggestions", cfg.SuggestionHandler.GetSuggestions)
	api.GET("/suggestions/people-you-may-know", cfg.SuggestionHandler.GetPeopleYouMayKnow)
	api.GET("/suggestions/trending", cfg.SuggestionHandler.GetTrendingUsers)
	api.GET("/suggestions/active", cfg.SuggestionHandler.GetActiveSuggestions)
	api.POST("/suggestions/refresh", cfg.SuggestionHandler.RefreshSuggestions)
	api.POST("/suggestions/dismiss-all", cfg.SuggestionHandler.BulkDismiss)
	api.POST("/suggestions/:id/dismiss", cfg.SuggestionHandler.DismissSuggestion)
	api.POST("/suggestions/:id/contacted", cfg.SuggestionHandler.MarkContacted)
	api.POST("/suggestions/:id/followed", cfg.SuggestionHandler.MarkFollowed)
	api.POST("/suggestions/:id/interactions", cfg.SuggestionHandler.RecordInteraction)
	api.GET("/suggestions/analytics", cfg.SuggestionHandler.GetAnalytics)
	api.GET("/suggestions/stats", cfg.SuggestionHandler.GetStats)

	return router
}
