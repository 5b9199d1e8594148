package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Travel is a trip between two stations of the same train. Total is the
// derived fare, computed from the station positions at create/update time
// and never supplied by clients.
type Travel struct {
	ID          uint64          // travels.id
	TrainID     uint64          // travels.train_id
	DepartureID uint64          // travels.departure_id (stations.id)
	ArrivalID   uint64          // travels.arrival_id (stations.id)
	Total       decimal.Decimal // travels.total, derived fare
	IsDeleted   bool            // travels.is_deleted
	CreatedAt   time.Time       // travels.created_at
	UpdatedAt   time.Time       // travels.updated_at
}
