package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smartpark/internal/model"
	"github.com/iliyamo/smartpark/internal/receipt"
	"github.com/iliyamo/smartpark/internal/repository"
	"github.com/iliyamo/smartpark/internal/service"
)

// ReceiptHandler serves receipt delivery and lookups.
type ReceiptHandler struct {
	Receipts *service.ReceiptService
	Now      func() time.Time
}

func (h *ReceiptHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type sendReceiptRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Plates string `json:"plates"`
	Model  string `json:"model"`
	Plaza  string `json:"plaza"`
	Cajon  string `json:"cajon"`
}

// Send handles POST /api/enviar-recibo: render, archive and email the
// receipt.
func (h *ReceiptHandler) Send(c echo.Context) error {
	var req sendReceiptRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	rec, err := h.Receipts.Send(c.Request().Context(), receipt.Details{
		Name: req.Name, Email: req.Email, Plate: req.Plates, Model: req.Model, Plaza: req.Plaza, Spot: req.Cajon,
	})
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error()})
		}
		c.Logger().Errorf("send receipt: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not send the receipt"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Recibo enviado por correo correctamente",
		"receipt": rec.Number,
	})
}

// receiptView is the shape the apps read from datos-recibo.
type receiptView struct {
	Number    string    `json:"number"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Plates    string    `json:"plates"`
	Model     string    `json:"model"`
	Plaza     string    `json:"plaza"`
	Cajon     string    `json:"cajon"`
	Fecha     time.Time `json:"fecha"`
	Total     string    `json:"total"`
	ExpiresAt time.Time `json:"expires_at"`
	DaysLeft  int       `json:"days_left"`
	Expired   bool      `json:"expired"`
}

func viewOf(r *model.Receipt, now time.Time) receiptView {
	days, expired := r.Remaining(now)
	return receiptView{
		Number:    r.Number,
		Name:      r.Name,
		Email:     r.Email,
		Plates:    r.Plate,
		Model:     r.Model,
		Plaza:     r.Plaza,
		Cajon:     r.Spot,
		Fecha:     r.PaidAt,
		Total:     receipt.FormatMoney(r.TotalCents),
		ExpiresAt: r.ExpiresAt(),
		DaysLeft:  days,
		Expired:   expired,
	}
}

// Latest handles GET /api/datos-recibo?email=.
func (h *ReceiptHandler) Latest(c echo.Context) error {
	rec, err := h.Receipts.Latest(c.Request().Context(), c.QueryParam("email"))
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no receipt found for that email"})
	case err != nil:
		c.Logger().Errorf("latest receipt: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, viewOf(rec, h.now()))
}

// List handles GET /api/recibos: every receipt, newest first.
func (h *ReceiptHandler) List(c echo.Context) error {
	recs, err := h.Receipts.List(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("list receipts: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, recs)
}

// Exists handles GET /api/verificar-recibo?email=.  A missing email or an
// unreachable archive both answer {"exists": false}.
func (h *ReceiptHandler) Exists(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return c.JSON(http.StatusOK, echo.Map{"exists": false})
	}
	ok, err := h.Receipts.Exists(c.Request().Context(), email)
	if err != nil {
		c.Logger().Warnf("receipt exists: %v", err)
		return c.JSON(http.StatusOK, echo.Map{"exists": false})
	}
	return c.JSON(http.StatusOK, echo.Map{"exists": ok})
}
