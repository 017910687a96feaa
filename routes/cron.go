package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stekfinder-autopilot/internal/config"
	"stekfinder-autopilot/middleware"
	"stekfinder-autopilot/services"
	"stekfinder-autopilot/utils"
)

// Job runs are bounded; generation calls Gemini seven times with pauses, so
// give the weekly job generous headroom.
const (
	generateJobTimeout = 10 * time.Minute
	publishJobTimeout  = 5 * time.Minute
)

// SetupCronRoutes registers the externally time-triggered entry points. Both
// verify the cron secret before doing any work.
func SetupCronRoutes(router *gin.Engine, cfg *config.Config, pilot *services.Autopilot) {
	cron := router.Group("/cron")
	cron.Use(middleware.SharedSecret(cfg.CronSecret))

	// Weekly content generation — external cron hits this Monday 06:00 UTC.
	cron.POST("/generate", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), generateJobTimeout)
		defer cancel()

		report, err := pilot.RunWeeklyGenerate(ctx)
		if err != nil {
			utils.RespondWithInternalError(c, "Generatie mislukt", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ok":        true,
			"generated": report.Generated,
		})
	})

	// Daily publishing — external cron hits this daily 09:00 UTC.
	cron.POST("/post", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), publishJobTimeout)
		defer cancel()

		report, err := pilot.RunDailyPublish(ctx)
		if err != nil {
			utils.RespondWithInternalError(c, "Publiceren mislukt", gin.H{"error": err.Error()})
			return
		}

		if report.Disabled {
			c.JSON(http.StatusOK, gin.H{
				"ok":      true,
				"message": "Posting is uitgeschakeld",
				"posted":  0,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ok":      true,
			"posted":  report.Posted,
			"results": report.Outcomes,
		})
	})
}
