package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/smartpark/internal/utils"
)

// GuardHandler exchanges the booth passcode for a GUARD access token.
type GuardHandler struct {
	PasscodeHash string // bcrypt hash from GUARD_PASSCODE_HASH
	JWTSecret    string
	AccessTTLMin int
	Logger       *zap.Logger
}

type guardSessionRequest struct {
	Passcode string `json:"passcode"`
	// Booth names the guard station; it becomes the token subject.
	Booth string `json:"booth"`
}

// CreateSession handles POST /v1/guard/session.  It returns 404 when auth
// is disabled, 400 without a passcode and 401 on a mismatch.
func (h *GuardHandler) CreateSession(c echo.Context) error {
	if h.JWTSecret == "" || h.PasscodeHash == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "guard sessions are not enabled"})
	}
	var req guardSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Passcode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passcode is required"})
	}
	if !utils.VerifyPasscode(h.PasscodeHash, req.Passcode) {
		h.Logger.Info("guard passcode rejected", zap.String("remote", c.RealIP()))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid passcode"})
	}

	booth := strings.TrimSpace(req.Booth)
	if booth == "" {
		booth = "caseta"
	}
	tok, err := utils.NewAccessToken(h.JWTSecret, booth, utils.RoleGuard, h.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue token"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"access_token": tok.Token,
		"token_type":   "Bearer",
		"expires_at":   tok.Exp,
		"role":         utils.RoleGuard,
	})
}
