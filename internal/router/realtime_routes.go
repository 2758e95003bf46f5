package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smartpark/internal/handler"
	"github.com/iliyamo/smartpark/internal/middleware"
	"github.com/iliyamo/smartpark/internal/utils"
)

// RealtimeRoutes are the handlers and options behind the live endpoints.
type RealtimeRoutes struct {
	Realtime  *handler.RealtimeHandler
	Occupancy *handler.OccupancyHandler
	Plazas    *handler.PlazaHandler
	Guard     *handler.GuardHandler

	// JWTSecret enables token checks on guard and sensor endpoints.
	JWTSecret string
	// LegacyOccupancy keeps the unauthenticated POST /actualizar used by
	// the camera analyser.
	LegacyOccupancy bool
	RateLimit       echo.MiddlewareFunc
}

// RegisterRealtime mounts the websocket endpoint, occupancy, presence,
// plazas and the guard session exchange.
func RegisterRealtime(e *echo.Echo, r RealtimeRoutes) {
	r.RateLimit = orPass(r.RateLimit)

	// Guard role checks for /ws happen inside the handler because drivers
	// connect without a token.
	e.GET("/ws", r.Realtime.Connect)

	if r.LegacyOccupancy {
		e.POST("/actualizar", r.Occupancy.Update, r.RateLimit)
	}

	v1 := e.Group("/v1")
	v1.GET("/occupancy", r.Occupancy.Current)
	v1.POST("/occupancy", r.Occupancy.Update,
		append(middleware.Protect(r.JWTSecret, utils.RoleSensor, utils.RoleGuard), r.RateLimit)...)
	v1.GET("/presence", r.Realtime.Presence, middleware.Protect(r.JWTSecret, utils.RoleGuard)...)
	v1.GET("/plazas", r.Plazas.List)
	v1.GET("/plazas/:id", r.Plazas.Get)
	v1.POST("/guard/session", r.Guard.CreateSession, r.RateLimit)
}
