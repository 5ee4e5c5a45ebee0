// Package handler wires the snack subsystem's HTTP and websocket surface
// onto gin.
package handler

import (
	"snackbox/backend/internal/alerts"
	"snackbox/backend/internal/lifecycle"
	"snackbox/backend/internal/matching"
	"snackbox/backend/internal/snackhub"
	"snackbox/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// Handler carries every service the routes need.
type Handler struct {
	Storage   storage.Storage
	Lifecycle *lifecycle.Service
	Finder    *matching.Finder
	Hub       *snackhub.Hub
	Alerts    *alerts.Notifier

	jwtSecret []byte
}

// NewHandler creates the handler.
func NewHandler(s storage.Storage, lc *lifecycle.Service, f *matching.Finder, hub *snackhub.Hub, n *alerts.Notifier, jwtSecret string) *Handler {
	return &Handler{
		Storage:   s,
		Lifecycle: lc,
		Finder:    f,
		Hub:       hub,
		Alerts:    n,
		jwtSecret: []byte(jwtSecret),
	}
}

// RegisterRoutes mounts the snack API and the realtime endpoint.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws/snack", h.ServeWebSocket)

	api := r.Group("/api/snack", h.AuthRequired())
	{
		api.POST("/request", h.CreateRequest)
		api.DELETE("/request/:id", h.CancelRequest)
		api.GET("/match-status", h.MatchStatus)
		api.POST("/rate", h.Rate)
		api.POST("/report", h.Report)
		api.POST("/block", h.Block)
		api.GET("/session/:id/messages", h.GetMessages)
		api.POST("/session/:id/message", h.SendMessage)
		api.POST("/session/:id/extend", h.ExtendSession)
	}
}
