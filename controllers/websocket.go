package controllers

import (
	"sata_school_go/config"
	"sata_school_go/middleware"
	"sata_school_go/services/websocket"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
)

// WebSocketController upgrades the two realtime endpoints: the back-office
// dashboard feed and the gate scan bridge. Browsers cannot set an
// Authorization header on a websocket handshake, so both take the JWT as a
// query parameter.
type WebSocketController struct {
	hub    *websocket.Hub
	bridge *websocket.Bridge
}

func NewWebSocketController(hub *websocket.Hub, bridge *websocket.Bridge) *WebSocketController {
	return &WebSocketController{hub: hub, bridge: bridge}
}

func (wsc *WebSocketController) validateToken(tokenString string) (*middleware.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &middleware.Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*middleware.Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrInvalidKey
	}
	return claims, nil
}

func closeWith(c *fiberws.Conn, reason string) {
	c.WriteMessage(fiberws.CloseMessage, []byte(reason))
	c.Close()
}

// DashboardHandler streams scan events and notifications to back-office
// dashboards. ws://<host>/ws/dashboard?token=JWT
func (wsc *WebSocketController) DashboardHandler() fiber.Handler {
	return fiberws.New(func(c *fiberws.Conn) {
		defer func() {
			if r := recover(); r != nil {
				logrus.Errorf("dashboard websocket panic: %v", r)
			}
		}()

		claims, err := wsc.validateToken(c.Query("token"))
		if err != nil {
			closeWith(c, "Invalid token")
			return
		}
		switch claims.Kind {
		case middleware.ActorAdmin, middleware.ActorStaff, middleware.ActorTeacher:
		default:
			closeWith(c, "Forbidden")
			return
		}

		logrus.WithFields(logrus.Fields{
			"school_id": claims.SchoolID,
			"kind":      claims.Kind,
		}).Info("dashboard websocket connected")
		wsc.hub.ServeDashboard(c, claims.SchoolID)
	})
}

// GateHandler accepts scan frames from a gate device.
// ws://<host>/ws/gate?token=GATE_JWT
func (wsc *WebSocketController) GateHandler() fiber.Handler {
	return fiberws.New(func(c *fiberws.Conn) {
		defer func() {
			if r := recover(); r != nil {
				logrus.Errorf("gate websocket panic: %v", r)
			}
		}()

		claims, err := wsc.validateToken(c.Query("token"))
		if err != nil {
			closeWith(c, "Invalid token")
			return
		}
		if claims.Kind != middleware.ActorGate {
			closeWith(c, "Gate token required")
			return
		}

		logrus.WithField("school_id", claims.SchoolID).Info("gate websocket connected")
		wsc.bridge.ServeGate(c, claims.SchoolID)
	})
}

// RequireUpgrade guards the websocket routes against plain HTTP requests
func RequireUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
			"error": "WebSocket upgrade required",
		})
	}
}

// GetStats reports live connection counts
func (wsc *WebSocketController) GetStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"connected_clients": wsc.hub.ClientCount(),
		"status":            "active",
	})
}
