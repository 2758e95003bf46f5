package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smartpark/internal/payment"
	"github.com/iliyamo/smartpark/internal/receipt"
	"github.com/iliyamo/smartpark/internal/service"
)

// PaymentHandler serves the rental checkout.
type PaymentHandler struct {
	Payments *service.PaymentService
}

type payRequest struct {
	PaymentMethodID string `json:"paymentMethodId"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Plates          string `json:"plates"`
	Model           string `json:"model"`
	Plaza           string `json:"plaza"`
	Cajon           string `json:"cajon"`
}

// Pay handles POST /api/pagos.  On success the card was charged the
// receipt total and the receipt is stored.
//
//	200 paid
//	400 missing/invalid field or rejected charge parameters
//	402 card declined or charge not completed
//	503 payments not configured
//	500 provider or storage failure
func (h *PaymentHandler) Pay(c echo.Context) error {
	var req payRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	rec, err := h.Payments.Checkout(c.Request().Context(), service.CheckoutRequest{
		PaymentMethodID: req.PaymentMethodID,
		Name:            req.Name,
		Email:           req.Email,
		Plate:           req.Plates,
		Model:           req.Model,
		Plaza:           req.Plaza,
		Spot:            req.Cajon,
	})
	if err != nil {
		return paymentError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Pago realizado exitosamente",
		"receipt": rec.Number,
		"total":   receipt.FormatMoney(rec.TotalCents),
	})
}

func paymentError(c echo.Context, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error()})
	case errors.Is(err, payment.ErrCardDeclined):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": err.Error()})
	case errors.Is(err, payment.ErrNotSucceeded):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment did not complete"})
	case errors.Is(err, payment.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, payment.ErrNotConfigured):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "payments are not available"})
	case errors.Is(err, payment.ErrProvider):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment provider error"})
	default:
		c.Logger().Errorf("checkout: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not complete payment"})
	}
}
