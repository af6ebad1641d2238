package domain

import "time"

// Announcement tells downstream consumers that a city is pending discovery.
type Announcement struct {
	DocID       string    `json:"doc_id"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	Collection  string    `json:"collection"`
	RunID       string    `json:"run_id"`
	AnnouncedAt time.Time `json:"announced_at"`
}

// NewAnnouncement stamps a committed record with the run that wrote it.
func NewAnnouncement(rec CityRecord, collection, runID string) Announcement {
	return Announcement{
		DocID:       rec.DocID,
		Name:        rec.Name,
		Status:      rec.Status,
		Collection:  collection,
		RunID:       runID,
		AnnouncedAt: clock.Now().UTC(),
	}
}
