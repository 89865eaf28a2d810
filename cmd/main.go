package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/funlynk/funlynk-backend/internal/cache"
	"github.com/funlynk/funlynk-backend/internal/db"
	"github.com/funlynk/funlynk-backend/internal/handlers"
	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/maintenance"
	"github.com/funlynk/funlynk-backend/internal/middleware"
	"github.com/funlynk/funlynk-backend/internal/repos"
	"github.com/funlynk/funlynk-backend/internal/server"
	"github.com/funlynk/funlynk-backend/internal/services"
	"github.com/funlynk/funlynk-backend/internal/utils"
)

func main() {
	// Env
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, relying on process environment")
	}

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Cache
	log.Info("Setting up cache from main...")
	cacheService, err := cache.NewRedis(log)
	if err != nil {
		log.Error("Redis init failed", "error", err)
		os.Exit(1)
	}
	defer cacheService.Close()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	followRepo := repos.NewUserFollowRepo(thePG, log)
	interestRepo := repos.NewUserInterestRepo(thePG, log)
	activityRepo := repos.NewActivityFeedRepo(thePG, log)
	attendeeRepo := repos.NewEventAttendeeRepo(thePG, log)
	suggestionRepo := repos.NewFriendSuggestionRepo(thePG, log)
	interactionRepo := repos.NewSuggestionInteractionRepo(thePG, log)

	// Scoring
	weights, err := services.LoadScoreWeights(log)
	if err != nil {
		log.Error("Could not load score weights", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up Services from main...")
	activityLog := services.NewActivityLogService(thePG, log, activityRepo, nil)
	graphService := services.NewGraphService(thePG, log, cacheService, userRepo, followRepo, interestRepo, attendeeRepo)
	metricsService := services.NewNetworkMetricsService(thePG, log, cacheService, graphService, followRepo, activityRepo, weights, nil)
	pathFinder := services.NewPathFinderService(thePG, log, cacheService, graphService, followRepo)
	communityService := services.NewCommunityService(thePG, log, cacheService, graphService, followRepo, interestRepo, activityRepo, nil)
	analyticsService := services.NewNetworkAnalyticsService(thePG, log, cacheService, graphService, followRepo, activityRepo, nil)
	suggestionService := services.NewSuggestionService(thePG, log, cacheService, graphService, followRepo, suggestionRepo, interactionRepo, activityLog, weights, nil)
	followService := services.NewFollowService(thePG, log, cacheService, graphService, followRepo, suggestionRepo, activityLog, nil)
	maintenanceService := services.NewMaintenanceService(thePG, log, suggestionRepo, nil)

	// Maintenance
	scheduler := maintenance.NewScheduler(log, maintenanceService)
	if err := scheduler.Start(utils.GetEnv("CLEANUP_CRON_SPEC", "", log)); err != nil {
		log.Error("Could not start maintenance scheduler", "error", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	// Handlers
	log.Info("Setting up handlers from main...")
	socialGraphHandler := handlers.NewSocialGraphHandler(graphService, metricsService, pathFinder, communityService, analyticsService)
	suggestionHandler := handlers.NewSuggestionHandler(suggestionService)
	followHandler := handlers.NewFollowHandler(followService)

	// Middleware
	identityMiddleware := middleware.NewIdentityMiddleware(log)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		SocialGraphHandler: socialGraphHandler,
		SuggestionHandler:  suggestionHandler,
		FollowHandler:      followHandler,
		IdentityMiddleware: identityMiddleware,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
