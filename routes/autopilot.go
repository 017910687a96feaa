package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"stekfinder-autopilot/internal/config"
	"stekfinder-autopilot/internal/content"
	"stekfinder-autopilot/middleware"
	"stekfinder-autopilot/models"
	"stekfinder-autopilot/services"
	"stekfinder-autopilot/utils"
)

const adminListLimit = 100

// SetupAutopilotRoutes registers the admin surface: post listing and stats,
// on-demand generation, moderation actions, and social configuration.
func SetupAutopilotRoutes(router *gin.Engine, cfg *config.Config, store *services.PostStore, pilot *services.Autopilot) {
	admin := router.Group("/admin/autopilot")
	admin.Use(middleware.SharedSecret(cfg.AdminPassword))

	// -------------------------
	// Dashboard: posts + stats + platform status
	// -------------------------
	admin.GET("", func(c *gin.Context) {
		ctx := c.Request.Context()

		posts, err := store.List(ctx, adminListLimit)
		if err != nil {
			utils.RespondWithInternalError(c, "Posts ophalen mislukt", gin.H{"error": err.Error()})
			return
		}

		stats, err := store.Stats(ctx)
		if err != nil {
			utils.RespondWithInternalError(c, "Statistieken ophalen mislukt", gin.H{"error": err.Error()})
			return
		}

		socialCfg, err := store.LoadSocialConfig(ctx)
		if err != nil {
			utils.RespondWithInternalError(c, "Configuratie ophalen mislukt", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"posts": posts,
			"stats": stats,
			"platforms": gin.H{
				"facebook":       socialCfg.FacebookConfigured(),
				"instagram":      socialCfg.InstagramConfigured(),
				"autoApprove":    socialCfg.AutoApprove,
				"postingEnabled": socialCfg.PostingEnabled,
			},
			"contentTypes": content.Catalog,
		})
	})

	// -------------------------
	// On-demand generation
	// -------------------------
	admin.POST("", func(c *gin.Context) {
		var req struct {
			Action       string `json:"action" binding:"required"`
			Type         string `json:"type,omitempty"`
			CustomPrompt string `json:"custom_prompt,omitempty"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Ongeldige request data", gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), generateJobTimeout)
		defer cancel()

		switch req.Action {
		case "generate_week":
			report, err := pilot.GenerateWeekBatch(ctx)
			if err != nil {
				utils.RespondWithInternalError(c, "Generatie mislukt", gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"generated": report.Generated, "posts": report.Posts})

		case "generate_single":
			typeKey := req.Type
			if typeKey == "" {
				typeKey = content.Catalog[0].Key
			}
			post, err := pilot.GenerateSingle(ctx, typeKey, req.CustomPrompt)
			if err != nil {
				utils.RespondWithInternalError(c, "Generatie mislukt", gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"post": post})

		default:
			utils.RespondWithBadRequest(c, "Ongeldige actie", nil)
		}
	})

	// -------------------------
	// Moderation actions
	// -------------------------
	admin.PATCH("", func(c *gin.Context) {
		var req struct {
			ID      string             `json:"id,omitempty"`
			Action  string             `json:"action" binding:"required"`
			Updates *models.PostUpdate `json:"updates,omitempty"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Ongeldige request data", gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()

		// approve_all is the only action without a post id.
		if req.Action == "approve_all" {
			approved, err := store.ApproveAll(ctx)
			if err != nil {
				utils.RespondWithInternalError(c, "Goedkeuren mislukt", gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"ok": true, "approved": approved})
			return
		}

		if req.ID == "" {
			utils.RespondWithBadRequest(c, "Post ID is verplicht", nil)
			return
		}
		postID, err := primitive.ObjectIDFromHex(req.ID)
		if err != nil {
			utils.RespondWithBadRequest(c, "Ongeldig post ID", nil)
			return
		}

		switch req.Action {
		case "approve":
			err = store.Approve(ctx, postID)
		case "reject":
			err = store.Reject(ctx, postID)
		case "edit":
			if req.Updates == nil {
				utils.RespondWithBadRequest(c, "Updates zijn verplicht", nil)
				return
			}
			err = store.Edit(ctx, postID, *req.Updates)
		case "reschedule":
			if req.Updates == nil || req.Updates.ScheduledFor.IsZero() {
				utils.RespondWithBadRequest(c, "scheduled_for is verplicht", nil)
				return
			}
			err = store.Reschedule(ctx, postID, req.Updates.ScheduledFor)
		case "delete":
			err = store.Delete(ctx, postID)
		default:
			utils.RespondWithBadRequest(c, "Ongeldige actie", nil)
			return
		}

		if err != nil {
			respondStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// -------------------------
	// Social configuration (partial update, upsert)
	// -------------------------
	admin.PUT("/config", func(c *gin.Context) {
		var req struct {
			FacebookPageID      *string `json:"facebook_page_id"`
			FacebookAccessToken *string `json:"facebook_access_token"`
			InstagramAccountID  *string `json:"instagram_account_id"`
			AutoApprove         *bool   `json:"auto_approve"`
			PostingEnabled      *bool   `json:"posting_enabled"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Ongeldige request data", gin.H{"error": err.Error()})
			return
		}

		update := bson.M{}
		if req.FacebookPageID != nil {
			update["facebook_page_id"] = *req.FacebookPageID
		}
		if req.FacebookAccessToken != nil {
			update["facebook_access_token"] = *req.FacebookAccessToken
		}
		if req.InstagramAccountID != nil {
			update["instagram_account_id"] = *req.InstagramAccountID
		}
		if req.AutoApprove != nil {
			update["auto_approve"] = *req.AutoApprove
		}
		if req.PostingEnabled != nil {
			update["posting_enabled"] = *req.PostingEnabled
		}

		if err := store.SaveSocialConfig(c.Request.Context(), update); err != nil {
			utils.RespondWithInternalError(c, "Configuratie opslaan mislukt", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
}

func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		utils.RespondWithNotFound(c, "Post niet gevonden")
	case errors.Is(err, models.ErrInvalidTransition):
		utils.RespondWithBadRequest(c, "Actie niet toegestaan in huidige status", gin.H{"error": err.Error()})
	default:
		utils.RespondWithInternalError(c, "Actie mislukt", gin.H{"error": err.Error()})
	}
}
