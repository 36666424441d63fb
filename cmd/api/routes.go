package main

import (
	"database/sql"
	"net/http"
	"time"

	"recording-pipeline/internal/auth"
	"recording-pipeline/internal/calls"
	"recording-pipeline/internal/config"
	"recording-pipeline/internal/httpapi"
	"recording-pipeline/internal/pbx"
	"recording-pipeline/internal/recording"
	"recording-pipeline/internal/transcription"
	"recording-pipeline/pkg/utils"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, cfg config.Config, db *sql.DB, authManager *auth.Manager) {
	recordings := recording.NewService(&recording.PostgresRepo{DB: db})

	h := httpapi.Handlers{
		Recordings: recordings,
		Callbacks:  transcription.NewProcessor(cfg.Callback.Secret, transcription.NewPostgresStore(db)),
		Calls:      &calls.PostgresRepo{DB: db},
		Accounts:   &pbx.PostgresRepo{DB: db},
	}

	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// PBX system endpoints, authenticated by shared API key.
	pbxGroup := r.Group("/pbx", httpapi.RequireAPIKey(cfg.PBX.APIKey))
	{
		pbxGroup.POST("/recordings", h.IngestRecording)
	}

	// Transcription provider callback (public route; the handler verifies the
	// HMAC signature before reading the payload).
	r.POST("/webhooks/transcription", h.TranscriptionCallback)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(authManager))
	{
		v1.GET("/recordings/:id", h.GetRecording)
		v1.GET("/calls/:id/recordings", h.ListCallRecordings)
	}
}
