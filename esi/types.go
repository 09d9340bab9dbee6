package esi

import "time"

// Character is the public character sheet.
type Character struct {
	Name           string  `json:"name"`
	CorporationID  int64   `json:"corporation_id"`
	AllianceID     int64   `json:"alliance_id,omitempty"`
	Birthday       string  `json:"birthday,omitempty"`
	Gender         string  `json:"gender,omitempty"`
	RaceID         int64   `json:"race_id,omitempty"`
	BloodlineID    int64   `json:"bloodline_id,omitempty"`
	SecurityStatus float64 `json:"security_status,omitempty"`
	Description    string  `json:"description,omitempty"`
}

// Corporation is the public corporation sheet.
type Corporation struct {
	Name        string `json:"name"`
	Ticker      string `json:"ticker"`
	MemberCount int64  `json:"member_count"`
	AllianceID  int64  `json:"alliance_id,omitempty"`
	CEOID       int64  `json:"ceo_id,omitempty"`
}

// Alliance is the public alliance sheet.
type Alliance struct {
	Name   string `json:"name"`
	Ticker string `json:"ticker"`
}

// Ship is the character's current ship.
type Ship struct {
	ShipItemID int64  `json:"ship_item_id"`
	ShipName   string `json:"ship_name"`
	ShipTypeID int64  `json:"ship_type_id"`
}

// Type is a universe inventory type, used here to resolve ship type names.
type Type struct {
	TypeID      int64  `json:"type_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	GroupID     int64  `json:"group_id,omitempty"`
}

// Online is the character's online status.
type Online struct {
	Online     bool   `json:"online"`
	LastLogin  string `json:"last_login,omitempty"`
	LastLogout string `json:"last_logout,omitempty"`
	Logins     int64  `json:"logins,omitempty"`
}

// Location is where the character currently is. StationID and StructureID are
// set only when docked in one.
type Location struct {
	SolarSystemID int64 `json:"solar_system_id"`
	StationID     int64 `json:"station_id,omitempty"`
	StructureID   int64 `json:"structure_id,omitempty"`
}

// Position is a point in a solar system.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// SolarSystem is the public solar system record.
type SolarSystem struct {
	SystemID        int64     `json:"system_id"`
	Name            string    `json:"name"`
	SecurityStatus  float64   `json:"security_status"`
	SecurityClass   string    `json:"security_class,omitempty"`
	ConstellationID int64     `json:"constellation_id"`
	Position        *Position `json:"position,omitempty"`
}

// Station is a public NPC station record.
type Station struct {
	StationID int64  `json:"station_id"`
	Name      string `json:"name"`
	SystemID  int64  `json:"system_id"`
	TypeID    int64  `json:"type_id,omitempty"`
}

// Structure is a player-owned structure. Reading one requires docking access,
// so the lookup is authenticated.
type Structure struct {
	Name          string `json:"name"`
	SolarSystemID int64  `json:"solar_system_id"`
	TypeID        int64  `json:"type_id,omitempty"`
	OwnerID       int64  `json:"owner_id,omitempty"`
}

// Skill is one trained skill.
type Skill struct {
	SkillID            int64 `json:"skill_id"`
	ActiveSkillLevel   int   `json:"active_skill_level"`
	TrainedSkillLevel  int   `json:"trained_skill_level"`
	SkillpointsInSkill int64 `json:"skillpoints_in_skill"`
}

// Skills is the character's full skill sheet.
type Skills struct {
	Skills        []Skill `json:"skills"`
	TotalSP       int64   `json:"total_sp"`
	UnallocatedSP int64   `json:"unallocated_sp"`
}

// SkillQueueEntry is one entry in the character's training queue.
type SkillQueueEntry struct {
	SkillID         int64      `json:"skill_id"`
	FinishedLevel   int        `json:"finished_level"`
	QueuePosition   int        `json:"queue_position"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	FinishDate      *time.Time `json:"finish_date,omitempty"`
	LevelStartSP    int64      `json:"level_start_sp,omitempty"`
	LevelEndSP      int64      `json:"level_end_sp,omitempty"`
	TrainingStartSP int64      `json:"training_start_sp,omitempty"`
}

// Name resolves an id to its name and category, from the batched names lookup.
type Name struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Name     string `json:"name"`
}
