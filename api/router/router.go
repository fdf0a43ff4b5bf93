package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"newspilot/api/handlers"
	"newspilot/api/middleware"
	"newspilot/autopilot"
	"newspilot/db"
	"newspilot/discovery"
	"newspilot/executor"
	"newspilot/metrics"
	"newspilot/repositories"
)

// Deps carries the wired services the routes close over.
type Deps struct {
	Discovery   *discovery.Service
	Autopilot   *autopilot.Scheduler
	Executor    *executor.Executor
	Suggestions *repositories.SuggestionRepository
	Settings    *repositories.SettingsRepository
}

func New(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogging())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "mongo": "down", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.Global.GetStats())
	})

	// v1 routes
	api := r.Group("/api/v1")
	{
		api.POST("/discovery/run", handlers.RunDiscoveryHandler(deps.Discovery))
		api.POST("/autopilot/run", handlers.RunAutopilotHandler(deps.Autopilot))
		api.GET("/suggestions", handlers.ListSuggestionsHandler(deps.Suggestions))
		api.PATCH("/suggestions/:id", handlers.UpdateSuggestionHandler(deps.Suggestions))
		api.POST("/suggestions/process", handlers.ProcessBatchHandler(deps.Executor))
		api.GET("/settings/autopilot", handlers.GetAutopilotSettingsHandler(deps.Settings))
		api.PUT("/settings/autopilot", handlers.PutAutopilotSettingsHandler(deps.Settings))
		api.GET("/settings/social-bot", handlers.GetSocialBotSettingsHandler(deps.Settings))
		api.PUT("/settings/social-bot", handlers.PutSocialBotSettingsHandler(deps.Settings))
	}

	return r
}
