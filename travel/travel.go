// Package travel serves per-character travel history: the solar systems a
// character has visited, with visit counts and timestamps.
package travel

import "context"

// Position is a system's location in the universe map.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// VisitedSystem is one solar system in a character's travel history.
type VisitedSystem struct {
	SystemID        int64    `json:"system_id"`
	SystemName      string   `json:"system_name"`
	SecurityStatus  float64  `json:"security_status"`
	SecurityClass   string   `json:"security_class"`
	FirstVisited    string   `json:"first_visited"`
	LastVisited     string   `json:"last_visited"`
	VisitCount      int      `json:"visit_count"`
	Position        Position `json:"position"`
	ConstellationID int64    `json:"constellation_id"`
	RegionID        int64    `json:"region_id"`
}

// History is a character's full travel record.
type History struct {
	Systems     []VisitedSystem `json:"systems"`
	TotalCount  int             `json:"total_count"`
	LastUpdated string          `json:"last_updated"`
}

// Source yields travel history for a character. Histories are keyed by the
// character owner hash, which is stable per character across logins.
type Source interface {
	VisitedSystems(ctx context.Context, ownerHash string) (History, error)
}
