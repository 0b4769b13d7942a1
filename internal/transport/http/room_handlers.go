package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-server/internal/core"
)

// RoomHandlers provides HTTP handlers for room probing endpoints. Room ids
// are opaque, URL-derived tokens; the server never generates them.
type RoomHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub *core.Hub, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{hub: hub, log: logger}
}

// RoomExistsResponse answers a room existence probe.
type RoomExistsResponse struct {
	Exists bool `json:"exists"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CheckRoom reports whether a room is currently live. Clients use it before
// attempting to join a scanned or shared room id.
// GET /api/rooms/:roomID
func (h *RoomHandlers) CheckRoom(c *gin.Context) {
	roomID := c.Param("roomID")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "room id is required"})
		return
	}

	exists, err := h.hub.RoomExists(c.Request.Context(), roomID)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomID).Msg("room existence query failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, RoomExistsResponse{Exists: exists})
}
