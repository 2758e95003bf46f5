package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smartpark/internal/model"
	"github.com/iliyamo/smartpark/internal/service"
)

// ContactHandler stores contact form messages.
type ContactHandler struct {
	Contacts *service.ContactService
}

// Create handles POST /api/contact with {name, email, phone, message}.
func (h *ContactHandler) Create(c echo.Context) error {
	var body struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Message string `json:"message"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	m := &model.ContactMessage{Name: body.Name, Email: body.Email, Phone: body.Phone, Message: body.Message}
	if err := h.Contacts.Submit(c.Request().Context(), m); err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error()})
		}
		c.Logger().Errorf("contact: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not send the message"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Mensaje enviado exitosamente"})
}
