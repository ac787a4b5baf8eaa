package fiber

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	aggdomain "pulsetrack-api/internal/aggregate/core/domain"
	"pulsetrack-api/internal/realtime"
)

type SocketHandler struct {
	hub *realtime.Hub
}

func NewSocketHandler(hub *realtime.Hub) *SocketHandler {
	return &SocketHandler{hub: hub}
}

// Upgrade gates websocket routes; plain HTTP requests get 426.
func (h *SocketHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve returns the websocket handler. The client id comes from the path when
// present, otherwise one is assigned. site_id arrives as a query parameter and
// defaults to the first configured site.
func (h *SocketHandler) Serve(defaultSiteID int64) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		clientID := conn.Params("client_id")
		if clientID == "" {
			clientID = uuid.New().String()
		}

		siteID := defaultSiteID
		if raw := conn.Query("site_id"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				_ = conn.WriteJSON(map[string]string{
					"type":  "error",
					"error": "invalid 'site_id' parameter",
				})
				_ = conn.Close()
				return
			}
			siteID = parsed
		}

		sub := h.hub.Subscribe(clientID, siteID)

		var once sync.Once
		closeConn := func() {
			once.Do(func() {
				h.hub.Unsubscribe(sub)
				_ = conn.Close()
			})
		}
		defer closeConn()

		welcome := map[string]any{
			"type":      "connection",
			"client_id": clientID,
			"site_id":   siteID,
			"timestamp": time.Now().Unix(),
		}
		if err := conn.WriteJSON(welcome); err != nil {
			return
		}
		_ = conn.WriteJSON(realtime.Update{
			Type:      "analytics_update",
			SiteID:    siteID,
			Data:      []aggdomain.ClickPoint{},
			Timestamp: time.Now().Unix(),
		})

		go func() {
			defer closeConn()
			for u := range sub.Updates {
				if err := conn.WriteJSON(u); err != nil {
					logrus.Debugf("ws: write to client %s failed: %v", clientID, err)
					return
				}
			}
		}()

		// Inbound frames are not part of the protocol; reading until error
		// just detects disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}
