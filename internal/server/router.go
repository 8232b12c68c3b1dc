package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/huddlehq/huddle/config"
)

// NewRouter wires the sync endpoint behind permissive CORS (the mobile and
// web clients call this cross-origin; preflights answer 204 with no body)
// and optional bearer auth. Health stays open.
func NewRouter(cfg *config.Config, h *SyncHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	v1.Use(Auth(cfg))
	{
		v1.POST("/sync", h.Sync)
		v1.GET("/teams/:platform/:teamId", h.TeamState)
	}

	return r
}
