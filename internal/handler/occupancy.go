package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smartpark/internal/realtime"
)

// maxSnapshotBytes bounds an occupancy update body.
const maxSnapshotBytes = 1 << 20

// OccupancyHandler exposes the occupancy board over HTTP.  Updates come
// from the lot camera analyser; reads serve clients that poll.
type OccupancyHandler struct {
	Hub *realtime.Hub
}

func NewOccupancyHandler(hub *realtime.Hub) *OccupancyHandler {
	return &OccupancyHandler{Hub: hub}
}

// Update handles POST /actualizar and POST /v1/occupancy.  The body is a
// JSON array of spot statuses that replaces the previous snapshot and is
// pushed to every connected client.  Duplicate spot ids are rejected.
func (h *OccupancyHandler) Update(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxSnapshotBytes+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body) > maxSnapshotBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "snapshot too large"})
	}
	var snap realtime.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil || snap == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "body must be an array of {id, occupied}"})
	}
	if err := snap.Validate(); err != nil {
		if errors.Is(err, realtime.ErrDuplicateSpot) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid snapshot"})
	}
	h.Hub.UpdateSnapshot(snap)
	return c.JSON(http.StatusOK, echo.Map{
		"spots":    len(snap),
		"occupied": snap.Occupied(),
	})
}

// Current handles GET /v1/occupancy.
func (h *OccupancyHandler) Current(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Hub.CurrentSnapshot())
}
