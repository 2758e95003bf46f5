package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smartpark/internal/model"
	"github.com/iliyamo/smartpark/internal/realtime"
)

// PlazaHandler serves the plaza catalog.
type PlazaHandler struct {
	Plazas []model.Plaza
	Hub    *realtime.Hub
}

// List handles GET /v1/plazas.  Live plazas report availability from the
// current occupancy snapshot once one has arrived.
func (h *PlazaHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.withLive(h.Plazas))
}

// Get handles GET /v1/plazas/:id.
func (h *PlazaHandler) Get(c echo.Context) error {
	id := c.Param("id")
	for _, p := range h.Plazas {
		if p.ID == id {
			return c.JSON(http.StatusOK, h.withLive([]model.Plaza{p})[0])
		}
	}
	return c.JSON(http.StatusNotFound, echo.Map{"error": "plaza not found"})
}

func (h *PlazaHandler) withLive(in []model.Plaza) []model.Plaza {
	out := make([]model.Plaza, len(in))
	copy(out, in)
	if h.Hub == nil {
		return out
	}
	snap := h.Hub.CurrentSnapshot()
	if len(snap) == 0 {
		return out
	}
	for i := range out {
		if out[i].Live {
			out[i].Available = len(snap) - snap.Occupied()
		}
	}
	return out
}
