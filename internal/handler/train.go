package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-fare-settlement/internal/model"
	"github.com/iliyamo/train-fare-settlement/internal/repository"
)

// TrainHandler serves the train catalog. Reads are open to every
// authenticated role; mutations are admin only and deletes cascade to
// the train's stations and travels in the same mode.
type TrainHandler struct {
	Trains   *repository.TrainRepo
	Stations *repository.StationRepo
	Travels  *repository.TravelRepo
}

func NewTrainHandler(t *repository.TrainRepo, s *repository.StationRepo, tr *repository.TravelRepo) *TrainHandler {
	return &TrainHandler{Trains: t, Stations: s, Travels: tr}
}

func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == model.RoleAdmin
}

// List returns all active trains.
func (h *TrainHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	trains, err := h.Trains.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	admin := isAdmin(c)
	items := make([]echo.Map, 0, len(trains))
	for _, t := range trains {
		items = append(items, viewTrain(t, admin))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get returns one train.
func (h *TrainHandler) Get(c echo.Context) error {
	trainID, err := pathID(c, "train_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid train id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Trains.GetByID(ctx, trainID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewTrain(t, isAdmin(c)))
}

type trainReq struct {
	Name string `json:"name"`
}

// Create adds a train. Admin only.
func (h *TrainHandler) Create(c echo.Context) error {
	var req trainReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Trains.Create(ctx, name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, viewTrain(t, true))
}

// Update renames a train. Admin only.
func (h *TrainHandler) Update(c echo.Context) error {
	trainID, err := pathID(c, "train_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid train id"})
	}
	var req trainReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Trains.Rename(ctx, trainID, name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewTrain(t, true))
}

// HardDelete removes the train and its stations and travels. Admin only.
func (h *TrainHandler) HardDelete(c echo.Context) error {
	return h.delete(c, false)
}

// SoftDelete flags the train and its stations and travels. Admin only.
func (h *TrainHandler) SoftDelete(c echo.Context) error {
	return h.delete(c, true)
}

func (h *TrainHandler) delete(c echo.Context, soft bool) error {
	trainID, err := pathID(c, "train_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid train id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Trains.GetByID(ctx, trainID); err != nil {
		return writeError(c, err)
	}
	if soft {
		if err := h.Travels.SoftDeleteByTrain(ctx, trainID); err != nil {
			return writeError(c, err)
		}
		if err := h.Stations.SoftDeleteByTrain(ctx, trainID); err != nil {
			return writeError(c, err)
		}
		if err := h.Trains.SoftDelete(ctx, trainID); err != nil {
			return writeError(c, err)
		}
	} else {
		if err := h.Travels.HardDeleteByTrain(ctx, trainID); err != nil {
			return writeError(c, err)
		}
		if err := h.Stations.HardDeleteByTrain(ctx, trainID); err != nil {
			return writeError(c, err)
		}
		if err := h.Trains.HardDelete(ctx, trainID); err != nil {
			return writeError(c, err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}
