package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/echodraft/echodraft-backend/internal/handlers"
)

type RouterConfig struct {
	EditsHandler   *handlers.EditsHandler
	ProfileHandler *handlers.ProfileHandler
	JobsHandler    *handlers.JobsHandler
	AllowOrigins   []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-User-ID"},
		AllowCredentials: true,
	}))

	router.GET("/healthz", handlers.HealthCheck)
	router.GET("/metrics", handlers.Metrics)

	api := router.Group("/api")
	{
		api.POST("/content/:id/edit", cfg.EditsHandler.SaveEdit)
		api.GET("/edits", cfg.EditsHandler.ListRecent)

		api.GET("/profile", cfg.ProfileHandler.GetProfile)
		api.PUT("/profile/overrides", cfg.ProfileHandler.SetOverrides)
		api.GET("/profile/versions", cfg.ProfileHandler.ListVersions)
		api.GET("/profile/evolution", cfg.ProfileHandler.GetEvolution)

		api.GET("/jobs", cfg.JobsHandler.ListJobs)
		api.GET("/jobs/:id", cfg.JobsHandler.GetJobByID)
		api.POST("/jobs/:id/restart", cfg.JobsHandler.RestartJob)
	}

	return router
}
