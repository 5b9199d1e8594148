package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-fare-settlement/internal/fare"
	"github.com/iliyamo/train-fare-settlement/internal/repository"
)

// TravelHandler serves the trips of a train. The fare (total) is always
// derived from the two stations' positions; clients never supply it.
type TravelHandler struct {
	Trains   *repository.TrainRepo
	Stations *repository.StationRepo
	Travels  *repository.TravelRepo
}

func NewTravelHandler(t *repository.TrainRepo, s *repository.StationRepo, tr *repository.TravelRepo) *TravelHandler {
	return &TravelHandler{Trains: t, Stations: s, Travels: tr}
}

// List returns the train's active travels.
func (h *TravelHandler) List(c echo.Context) error {
	trainID, err := pathID(c, "train_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid train id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Trains.GetByID(ctx, trainID); err != nil {
		return writeError(c, err)
	}
	travels, err := h.Travels.ListByTrain(ctx, trainID)
	if err != nil {
		return writeError(c, err)
	}
	admin := isAdmin(c)
	items := make([]echo.Map, 0, len(travels))
	for _, t := range travels {
		items = append(items, viewTravel(t, admin))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get returns one travel of the train.
func (h *TravelHandler) Get(c echo.Context) error {
	trainID, err := pathID(c, "train_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid train id"})
	}
	travelID, err := pathID(c, "travel_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid travel id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Travels.Get(ctx, trainID, travelID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewTravel(t, isAdmin(c)))
}

type travelReq struct {
	DepartureID *uint64 `json:"departure_id"`
	ArrivalID   *uint64 `json:"arrival_id"`
}

// Create adds a travel with its fare computed from the endpoint
// stations. Both stations must belong to the train. Admin only.
func (h *TravelHandler) Create(c echo.Context) error {
	trainID, err := pathID(c, "train_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid train id"})
	}
	var req travelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.DepartureID == nil || req.ArrivalID == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "departure_id and arrival_id are required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Trains.GetByID(ctx, trainID); err != nil {
		return writeError(c, err)
	}
	departure, err := h.Stations.Get(ctx, trainID, *req.DepartureID)
	if err != nil {
		return writeError(c, err)
	}
	arrival, err := h.Stations.Get(ctx, trainID, *req.ArrivalID)
	if err != nil {
		return writeError(c, err)
	}

	total := fare.Calculate(departure.Position, arrival.Position)
	t, err := h.Travels.Create(ctx, trainID, departure.ID, arrival.ID, total)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, viewTravel(t, true))
}

// Update handles PUT and PATCH. PUT replaces both endpoints and always
// reprices; PATCH takes a subset and reprices only when an endpoint
// changes. Admin only.
func (h *TravelHandler) Update(c echo.Context) error {
	trainID, err := pathID(c, "train_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid train id"})
	}
	travelID, err := pathID(c, "travel_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid travel id"})
	}
	var req travelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if c.Request().Method == http.MethodPut && (req.DepartureID == nil || req.ArrivalID == nil) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "departure_id and arrival_id are required"})
	}
	if req.DepartureID == nil && req.ArrivalID == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	current, err := h.Travels.Get(ctx, trainID, travelID)
	if err != nil {
		return writeError(c, err)
	}
	departureID := current.DepartureID
	arrivalID := current.ArrivalID
	if req.DepartureID != nil {
		departureID = *req.DepartureID
	}
	if req.ArrivalID != nil {
		arrivalID = *req.ArrivalID
	}

	// PUT always reprices from the current station positions; PATCH only
	// when an endpoint actually changes.
	total := current.Total
	if c.Request().Method == http.MethodPut ||
		departureID != current.DepartureID || arrivalID != current.ArrivalID {
		departure, err := h.Stations.Get(ctx, trainID, departureID)
		if err != nil {
			return writeError(c, err)
		}
		arrival, err := h.Stations.Get(ctx, trainID, arrivalID)
		if err != nil {
			return writeError(c, err)
		}
		total = fare.Calculate(departure.Position, arrival.Position)
	}

	t, err := h.Travels.Update(ctx, trainID, travelID, departureID, arrivalID, total)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewTravel(t, true))
}

// HardDelete removes a travel. Admin only.
func (h *TravelHandler) HardDelete(c echo.Context) error {
	return h.delete(c, false)
}

// SoftDelete flags a travel. Admin only.
func (h *TravelHandler) SoftDelete(c echo.Context) error {
	return h.delete(c, true)
}

func (h *TravelHandler) delete(c echo.Context, soft bool) error {
	trainID, err := pathID(c, "train_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid train id"})
	}
	travelID, err := pathID(c, "travel_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid travel id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Travels.Get(ctx, trainID, travelID); err != nil {
		return writeError(c, err)
	}
	if soft {
		err = h.Travels.SoftDelete(ctx, trainID, travelID)
	} else {
		err = h.Travels.HardDelete(ctx, trainID, travelID)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
