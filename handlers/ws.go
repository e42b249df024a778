package handlers

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
)

type WSHandler struct {
	M *melody.Melody
}

func NewWSHandler() *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 1024 * 1024

	// Keep-alive so cloud proxies don't drop idle event channels
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleConnect(func(s *melody.Session) {
		eventID, _ := s.Get("event_id")
		log.Printf("✅ Client connected to event: %v", eventID)
	})

	m.HandleDisconnect(func(s *melody.Session) {
		eventID, _ := s.Get("event_id")
		log.Printf("🔌 Client disconnected from event: %v", eventID)
	})

	m.HandleError(func(s *melody.Session, err error) {
		log.Printf("❌ WebSocket Error: %v", err)
	})

	return &WSHandler{M: m}
}

// HandleWS upgrades the request and subscribes the client to one event.
// The event id rides along as a session key so BroadcastUpdate can filter.
func (h *WSHandler) HandleWS(c *gin.Context) {
	eventID := c.Param("id")

	err := h.M.HandleRequestWithKeys(c.Writer, c.Request, map[string]interface{}{
		"event_id": eventID,
	})
	if err != nil {
		log.Printf("❌ Failed to upgrade websocket: %v", err)
	}
}

// BroadcastUpdate signals every client watching this event.
func (h *WSHandler) BroadcastUpdate(eventID string, updateType string, userWhoUpdated string) {
	msg := []byte(`{"type": "` + updateType + `", "user": "` + userWhoUpdated + `"}`)

	err := h.M.BroadcastFilter(msg, func(q *melody.Session) bool {
		id, exists := q.Get("event_id")
		return exists && id == eventID
	})

	if err != nil {
		log.Printf("⚠️ Error broadcasting to event %s: %v", eventID, err)
	}
}
