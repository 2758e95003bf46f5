package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/smartpark/internal/middleware"
	"github.com/iliyamo/smartpark/internal/realtime"
	"github.com/iliyamo/smartpark/internal/utils"
)

// RealtimeHandler upgrades /ws connections and serves presence reads.
type RealtimeHandler struct {
	Hub       *realtime.Hub
	JWTSecret string
	Logger    *zap.Logger

	upgrader websocket.Upgrader
}

// NewRealtimeHandler accepts websocket handshakes from origins.  An empty
// list accepts any origin; native apps send none.
func NewRealtimeHandler(hub *realtime.Hub, jwtSecret string, origins []string, logger *zap.Logger) *RealtimeHandler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(strings.ToLower(o), "/")] = true
	}
	return &RealtimeHandler{
		Hub:       hub,
		JWTSecret: jwtSecret,
		Logger:    logger.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if len(allowed) == 0 || origin == "" {
					return true
				}
				return allowed[strings.ToLower(origin)]
			},
		},
	}
}

// Connect handles GET /ws?role=driver|guard.  Guards must present a GUARD
// token when auth is enabled; drivers never need one.  The current
// occupancy snapshot is the first frame on the new connection.
func (h *RealtimeHandler) Connect(c echo.Context) error {
	role, ok := realtime.ParseRole(c.QueryParam("role"))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be driver or guard"})
	}
	if role == realtime.RoleGuard && h.JWTSecret != "" {
		raw := middleware.BearerToken(c)
		if raw == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
		}
		claims, err := utils.ParseAccessToken(h.JWTSecret, raw)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}
		if claims.Role != utils.RoleGuard {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.Logger.Debug("upgrade failed", zap.String("remote", c.RealIP()), zap.Error(err))
		return nil
	}
	h.Hub.Attach(conn, role)
	return nil
}

// Presence handles GET /v1/presence: the registry as name -> identity.
func (h *RealtimeHandler) Presence(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"identities":  h.Hub.Presence(),
		"connections": h.Hub.ClientCount(),
	})
}
