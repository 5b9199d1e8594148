package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-fare-settlement/internal/model"
)

// Role projection: admins see the bookkeeping columns (created_at,
// updated_at, is_deleted) on every entity, plain users only the core
// fields. Each viewX builds the user view and adminFields widens it.

func adminFields(m echo.Map, createdAt, updatedAt time.Time, isDeleted bool) echo.Map {
	m["created_at"] = createdAt
	m["updated_at"] = updatedAt
	m["is_deleted"] = isDeleted
	return m
}

func viewUser(u model.User, admin bool) echo.Map {
	m := echo.Map{
		"id":         u.ID,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"role":       u.Role,
	}
	if admin {
		return adminFields(m, u.CreatedAt, u.UpdatedAt, u.IsDeleted)
	}
	return m
}

func viewBalance(b model.Balance, admin bool) echo.Map {
	m := echo.Map{
		"id":      b.ID,
		"user_id": b.UserID,
		"total":   b.Total,
	}
	if admin {
		return adminFields(m, b.CreatedAt, b.UpdatedAt, b.IsDeleted)
	}
	return m
}

func viewTransaction(t model.Transaction, admin bool) echo.Map {
	m := echo.Map{
		"id":         t.ID,
		"user_id":    t.UserID,
		"balance_id": t.BalanceID,
		"type":       t.Type,
		"amount":     t.Amount,
	}
	if admin {
		return adminFields(m, t.CreatedAt, t.UpdatedAt, t.IsDeleted)
	}
	return m
}

func viewTrain(t model.Train, admin bool) echo.Map {
	m := echo.Map{
		"id":   t.ID,
		"name": t.Name,
	}
	if admin {
		return adminFields(m, t.CreatedAt, t.UpdatedAt, t.IsDeleted)
	}
	return m
}

func viewStation(s model.Station, admin bool) echo.Map {
	m := echo.Map{
		"id":       s.ID,
		"train_id": s.TrainID,
		"name":     s.Name,
		"position": s.Position,
	}
	if admin {
		return adminFields(m, s.CreatedAt, s.UpdatedAt, s.IsDeleted)
	}
	return m
}

func viewTravel(t model.Travel, admin bool) echo.Map {
	m := echo.Map{
		"id":           t.ID,
		"train_id":     t.TrainID,
		"departure_id": t.DepartureID,
		"arrival_id":   t.ArrivalID,
		"total":        t.Total,
	}
	if admin {
		return adminFields(m, t.CreatedAt, t.UpdatedAt, t.IsDeleted)
	}
	return m
}

func viewPayment(p model.Payment, admin bool) echo.Map {
	m := echo.Map{
		"id":        p.ID,
		"user_id":   p.UserID,
		"travel_id": p.TravelID,
		"amount":    p.Amount,
	}
	if admin {
		return adminFields(m, p.CreatedAt, p.UpdatedAt, p.IsDeleted)
	}
	return m
}
