package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-fare-settlement/internal/repository"
)

// StationHandler serves the stations of a train. Position is the fare
// coordinate and is unique per train; a duplicate surfaces as 409.
type StationHandler struct {
	Trains   *repository.TrainRepo
	Stations *repository.StationRepo
}

func NewStationHandler(t *repository.TrainRepo, s *repository.StationRepo) *StationHandler {
	return &StationHandler{Trains: t, Stations: s}
}

// List returns the train's active stations ordered by position.
func (h *StationHandler) List(c echo.Context) error {
	trainID, err := pathID(c, "train_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid train id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Trains.GetByID(ctx, trainID); err != nil {
		return writeError(c, err)
	}
	stations, err := h.Stations.ListByTrain(ctx, trainID)
	if err != nil {
		return writeError(c, err)
	}
	admin := isAdmin(c)
	items := make([]echo.Map, 0, len(stations))
	for _, s := range stations {
		items = append(items, viewStation(s, admin))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get returns one station of the train.
func (h *StationHandler) Get(c echo.Context) error {
	trainID, err := pathID(c, "train_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid train id"})
	}
	stationID, err := pathID(c, "station_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid station id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Stations.Get(ctx, trainID, stationID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewStation(s, isAdmin(c)))
}

type stationCreateReq struct {
	Name     string `json:"name"`
	Position *int64 `json:"position"`
}

// Create adds a station to the train. Admin only.
func (h *StationHandler) Create(c echo.Context) error {
	trainID, err := pathID(c, "train_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid train id"})
	}
	var req stationCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Position == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and position are required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Trains.GetByID(ctx, trainID); err != nil {
		return writeError(c, err)
	}
	s, err := h.Stations.Create(ctx, trainID, name, *req.Position)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, viewStation(s, true))
}

type stationUpdateReq struct {
	Name     *string `json:"name"`
	Position *int64  `json:"position"`
}

// Update handles PUT and PATCH for a station. Admin only.
func (h *StationHandler) Update(c echo.Context) error {
	trainID, err := pathID(c, "train_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid train id"})
	}
	stationID, err := pathID(c, "station_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid station id"})
	}
	var req stationUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if c.Request().Method == http.MethodPut && (req.Name == nil || req.Position == nil) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and position are required"})
	}

	var patch repository.StationPatch
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
		}
		patch.Name = &name
	}
	patch.Position = req.Position
	if patch.Name == nil && patch.Position == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Stations.Update(ctx, trainID, stationID, patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewStation(s, true))
}

// HardDelete removes a station. Admin only.
func (h *StationHandler) HardDelete(c echo.Context) error {
	return h.delete(c, false)
}

// SoftDelete flags a station. Admin only.
func (h *StationHandler) SoftDelete(c echo.Context) error {
	return h.delete(c, true)
}

func (h *StationHandler) delete(c echo.Context, soft bool) error {
	trainID, err := pathID(c, "train_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid train id"})
	}
	stationID, err := pathID(c, "station_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid station id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Stations.Get(ctx, trainID, stationID); err != nil {
		return writeError(c, err)
	}
	if soft {
		err = h.Stations.SoftDelete(ctx, trainID, stationID)
	} else {
		err = h.Stations.HardDelete(ctx, trainID, stationID)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
