package main

import (
	"fmt"
	"os"

	"github.com/rowanlane/diligence-backend/internal/db"
	"github.com/rowanlane/diligence-backend/internal/handlers"
	"github.com/rowanlane/diligence-backend/internal/logger"
	"github.com/rowanlane/diligence-backend/internal/repos"
	"github.com/rowanlane/diligence-backend/internal/server"
	"github.com/rowanlane/diligence-backend/internal/services"
	"github.com/rowanlane/diligence-backend/internal/utils"
)

func main() {
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

	// Repos
	log.Info("Setting up Repos from main...")
	correctionRepo := repos.NewCorrectionRepo(thePG, log)
	reportRepo := repos.NewReportRepo(thePG, log)
	accuracyStatRepo := repos.NewAccuracyStatRepo(thePG, log)
	candidateRepo := repos.NewKnowledgeCandidateRepo(thePG, log)
	entryRepo := repos.NewKnowledgeEntryRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	openaiClient, err := services.NewOpenAIClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}
	correctionService := services.NewCorrectionService(thePG, log, correctionRepo)
	gapService := services.NewGapDetectionService(thePG, log, correctionRepo, accuracyStatRepo, candidateRepo)
	accuracyService := services.NewAccuracyService(thePG, log, correctionRepo, reportRepo, accuracyStatRepo, gapService)
	knowledgeService := services.NewKnowledgeService(thePG, log, correctionRepo, candidateRepo, entryRepo, openaiClient)
	promptContextService := services.NewPromptContextService(thePG, log, correctionRepo, accuracyStatRepo, entryRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	correctionHandler := handlers.NewCorrectionHandler(log, correctionService)
	learningHandler := handlers.NewLearningHandler(log, accuracyService, gapService, knowledgeService, promptContextService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		CorrectionHandler: correctionHandler,
		LearningHandler:   learningHandler,
		CORSAllowOrigins:  utils.GetEnv("CORS_ALLOW_ORIGINS", "", log),
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
