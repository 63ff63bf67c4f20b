package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rowanlane/diligence-backend/internal/handlers"
)

type RouterConfig struct {
	CorrectionHandler *handlers.CorrectionHandler
	LearningHandler   *handlers.LearningHandler
	// Comma-separated origin list; defaults to local dev origins.
	CORSAllowOrigins string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := []string{
		"http://localhost:80",
		"http://localhost:3000",
		"http://localhost:5174",
	}
	if cfg.CORSAllowOrigins != "" {
		origins = origins[:0]
		for _, origin := range strings.Split(cfg.CORSAllowOrigins, ",") {
			if o := strings.TrimSpace(origin); o != "" {
				origins = append(origins, o)
			}
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Corrections
		api.POST("/corrections", cfg.CorrectionHandler.Create)
		api.POST("/corrections/batch", cfg.CorrectionHandler.CreateBatch)
		api.POST("/corrections/:id/review", cfg.CorrectionHandler.Review)
		api.GET("/reports/:id/corrections", cfg.CorrectionHandler.ListByReport)

		// Learning loop
		api.POST("/learning/refresh-accuracy", cfg.LearningHandler.RefreshAccuracy)
		api.POST("/learning/detect-gaps", cfg.LearningHandler.DetectGaps)
		api.POST("/learning/knowledge/generate", cfg.LearningHandler.GenerateEntry)
		api.POST("/learning/knowledge/:id/review", cfg.LearningHandler.ReviewEntry)
		api.POST("/learning/examples", cfg.LearningHandler.LearningExamples)
		api.GET("/learning/accuracy", cfg.LearningHandler.ListAccuracy)
		api.GET("/learning/candidates", cfg.LearningHandler.ListCandidates)
		api.GET("/learning/entries", cfg.LearningHandler.ListEntries)
	}

	return router
}
