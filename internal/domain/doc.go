// Package domain models the California incorporated city list and the
// records seeded from it.
//
// # Data Source
//
// The California Open Data portal publishes the incorporated cities as a CSV
// export (see config.DefaultCSVURL). The only column the import depends on is
// "CITY"; every other column (county, incorporation date, ...) is ignored. The
// export has been observed with a UTF-8 byte order mark, so the first header
// is stripped of one before lookup.
//
// # Document Keys
//
// Each city maps to one document keyed by [DocID]: the display name lowercased
// with spaces and hyphens replaced by underscores, e.g.
//
//	"Rancho Cucamonga"       →  "rancho_cucamonga"
//	"Cathedral City"         →  "cathedral_city"
//	"La Cañada Flintridge"   →  "la_cañada_flintridge"
//
// The key is deterministic, so re-running the import overwrites the same
// documents instead of creating new ones. Two names that differ only in case,
// or only by space versus hyphen, collide; the import does not detect this but
// cmd/validate reports it.
//
// # Record Lifecycle
//
// Every import writes {name: "<City>, CA", status: "pending", last_scanned: null}
// as a full overwrite. The discovery process owns later transitions of status
// and last_scanned; re-importing resets them.
package domain
