package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"newspilot/autopilot"
	"newspilot/discovery"
	"newspilot/executor"
	"newspilot/models"
	"newspilot/repositories"
)

type runDiscoveryRequest struct {
	MaxAgeDays int      `json:"max_age_days"`
	Categories []string `json:"categories"`
}

// RunDiscoveryHandler triggers one synchronous discovery run and returns
// the accepted suggestions.
func RunDiscoveryHandler(svc *discovery.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req runDiscoveryRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		for _, cat := range req.Categories {
			if !models.IsCategory(cat) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + cat})
				return
			}
		}
		suggestions, err := svc.Run(c.Request.Context(), discovery.Params{
			MaxAgeDays: req.MaxAgeDays,
			Categories: req.Categories,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(suggestions), "suggestions": suggestions})
	}
}

type runAutopilotRequest struct {
	Mode       string `json:"mode"`
	Credential string `json:"credential"`
}

// RunAutopilotHandler invokes one scheduler decision. The credential comes
// from the X-Autopilot-Secret header; X-Cron-Trigger marks the trusted
// cron identity.
func RunAutopilotHandler(sched *autopilot.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req runAutopilotRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		mode, err := autopilot.ParseMode(req.Mode)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		credential := c.GetHeader("X-Autopilot-Secret")
		if credential == "" {
			credential = req.Credential
		}
		outcome := sched.Run(c.Request.Context(), autopilot.Command{
			Mode:        mode,
			Credential:  credential,
			CronTrigger: c.GetHeader("X-Cron-Trigger") == "true",
		})
		switch {
		case outcome.Reason == autopilot.ReasonUnauthorized:
			c.JSON(http.StatusUnauthorized, outcome)
		case outcome.Kind == autopilot.OutcomeError:
			c.JSON(http.StatusInternalServerError, outcome)
		default:
			c.JSON(http.StatusOK, outcome)
		}
	}
}

// ListSuggestionsHandler lists suggestions with optional category and
// status filters.
func ListSuggestionsHandler(repo *repositories.SuggestionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		category := c.Query("category")
		if category != "" && !models.IsCategory(category) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + category})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		items, err := repo.List(c.Request.Context(), category, c.Query("status"), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if items == nil {
			items = []models.Suggestion{}
		}
		c.JSON(http.StatusOK, items)
	}
}

type updateSuggestionRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateSuggestionHandler moves a pending suggestion to processed or
// ignored. Terminal suggestions return 409.
func UpdateSuggestionHandler(repo *repositories.SuggestionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var req updateSuggestionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := repo.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
			if errors.Is(err, repositories.ErrInvalidTransition) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id.Hex(), "status": req.Status})
	}
}

// GetAutopilotSettingsHandler returns the batch-processing settings record.
func GetAutopilotSettingsHandler(repo *repositories.SettingsRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := repo.GetAutopilot(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

// PutAutopilotSettingsHandler replaces the batch-processing settings record.
func PutAutopilotSettingsHandler(repo *repositories.SettingsRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var s models.AutopilotSettings
		if err := c.ShouldBindJSON(&s); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := repo.PutAutopilot(c.Request.Context(), s); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

// GetSocialBotSettingsHandler returns the scheduler settings record.
func GetSocialBotSettingsHandler(repo *repositories.SettingsRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := repo.GetSocialBot(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

// PutSocialBotSettingsHandler replaces the scheduler settings record.
// Target categories outside the taxonomy are rejected.
func PutSocialBotSettingsHandler(repo *repositories.SettingsRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var s models.SocialBotSettings
		if err := c.ShouldBindJSON(&s); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		for _, cat := range s.TargetCategories {
			if !models.IsCategory(cat) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + cat})
				return
			}
		}
		if err := repo.PutSocialBot(c.Request.Context(), s); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

type processBatchRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// ProcessBatchHandler fans a batch of suggestion IDs out to the content
// generator.
func ProcessBatchHandler(exec *executor.Executor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req processBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ids := make([]primitive.ObjectID, 0, len(req.IDs))
		for _, raw := range req.IDs {
			id, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id: " + raw})
				return
			}
			ids = append(ids, id)
		}
		res, err := exec.ProcessBatch(c.Request.Context(), ids)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
