package domain

import (
	"strings"
	"time"
)

// StatusPending is the initial status of every seeded city.
const StatusPending = "pending"

// StateSuffix is appended to each display name.
const StateSuffix = ", CA"

// CityRecord is the document written for one city.
type CityRecord struct {
	DocID       string     `json:"doc_id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	LastScanned *time.Time `json:"last_scanned"`
}

// DocID derives the document key for a city display name.
func DocID(city string) string {
	id := strings.ToLower(city)
	id = strings.ReplaceAll(id, " ", "_")
	return strings.ReplaceAll(id, "-", "_")
}

// NewCityRecord builds the pending record for a city display name.
func NewCityRecord(city string) CityRecord {
	return CityRecord{
		DocID:  DocID(city),
		Name:   city + StateSuffix,
		Status: StatusPending,
	}
}
