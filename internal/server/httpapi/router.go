// Package httpapi exposes the sync push endpoint over HTTP.
package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opentutorials-org/otu-sync/internal/config"
	"github.com/opentutorials-org/otu-sync/internal/service"
)

// NewRouter builds the gin engine with logging, recovery, CORS and auth.
func NewRouter(log *zap.Logger, rt config.RuntimeConfig, auth TokenVerifier, push service.Pusher) *gin.Engine {
	r := gin.New()
	r.Use(Recover(log))
	r.Use(RequestLogger(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-User-ID"},
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := NewPushHandler(push, rt, log)
	pushGroup := r.Group("/sync")
	pushGroup.Use(Authenticate(auth, rt, log))
	pushGroup.POST("/push", h.Push)
	return r
}
