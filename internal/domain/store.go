package domain

import "context"

// CityBatch accumulates upserts that are applied together on Commit.
type CityBatch interface {
	// Set enqueues a full overwrite of the record's document.
	Set(rec CityRecord)

	// Commit applies every enqueued write.
	Commit(ctx context.Context) error
}

// CityStore opens write batches against the city collection.
type CityStore interface {
	NewBatch() CityBatch
}
