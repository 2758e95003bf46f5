package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smartpark/internal/handler"
)

// APIRoutes are the handlers behind the app-facing /api endpoints.
type APIRoutes struct {
	Payments *handler.PaymentHandler
	Receipts *handler.ReceiptHandler
	Contact  *handler.ContactHandler

	// RateLimit guards every write; Cache fronts the receipt listing.
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// RegisterAPI mounts payments, receipts and the contact form under /api.
// These endpoints are public; the mobile app calls them without a session.
func RegisterAPI(e *echo.Echo, r APIRoutes) {
	r.RateLimit, r.Cache = orPass(r.RateLimit), orPass(r.Cache)

	g := e.Group("/api")
	g.POST("/pagos", r.Payments.Pay, r.RateLimit)
	g.POST("/enviar-recibo", r.Receipts.Send, r.RateLimit)
	g.GET("/datos-recibo", r.Receipts.Latest)
	g.GET("/recibos", r.Receipts.List, r.Cache)
	g.GET("/verificar-recibo", r.Receipts.Exists)
	g.POST("/contact", r.Contact.Create, r.RateLimit)
}
