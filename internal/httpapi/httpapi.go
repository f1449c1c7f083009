// Package httpapi serves the stateless monitoring surface: health check,
// tier status snapshots and the websocket upgrade endpoint.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/twsarcade/lotto/internal/game"
	"github.com/twsarcade/lotto/internal/gateway"
)

// statusHistoryLen bounds the history slice returned by /api/status.
const statusHistoryLen = 20

// NewRouter builds the gin router for the lotto server.
func NewRouter(manager *game.Manager, gw *gateway.Gateway, log *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "online",
			"players": gw.Online(),
			"message": "TWS Lotto Server",
		})
	})

	r.GET("/api/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"players": gw.Online(),
			"tiers":   manager.AllTierInfo(),
			"history": manager.History().Recent(statusHistoryLen),
		})
	})

	r.GET("/ws", gin.WrapF(gw.HandleWS))

	return r
}
