package model

import "time"

// Train represents a row in the `trains` table. Stations and travels
// belong to exactly one train and are cascaded on train deletion.
type Train struct {
	ID        uint64    // trains.id
	Name      string    // trains.name
	IsDeleted bool      // trains.is_deleted
	CreatedAt time.Time // trains.created_at
	UpdatedAt time.Time // trains.updated_at
}

// Station represents a stop along a train's route. Position is the
// ordering coordinate used by the fare calculator; it is unique per train
// so that fares are well defined.
type Station struct {
	ID        uint64    // stations.id
	TrainID   uint64    // stations.train_id
	Name      string    // stations.name
	Position  int64     // stations.position
	IsDeleted bool      // stations.is_deleted
	CreatedAt time.Time // stations.created_at
	UpdatedAt time.Time // stations.updated_at
}
