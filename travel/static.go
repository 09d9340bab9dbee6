package travel

import "context"

// StaticSource serves a fixed trade-hub itinerary to every character. It
// stands in until a real movement tracker feeds this data.
type StaticSource struct{}

// NewStaticSource creates a StaticSource.
func NewStaticSource() *StaticSource {
	return &StaticSource{}
}

// VisitedSystems implements Source. The owner hash is accepted but unused;
// every character sees the same itinerary.
func (s *StaticSource) VisitedSystems(_ context.Context, _ string) (History, error) {
	return History{
		Systems: []VisitedSystem{
			{
				SystemID:        1,
				SystemName:      "Jita",
				SecurityStatus:  0.9,
				SecurityClass:   "A",
				FirstVisited:    "2024-01-15T10:30:00Z",
				LastVisited:     "2024-01-20T14:22:00Z",
				VisitCount:      15,
				Position:        Position{X: -1.3e17, Y: 6.1e16, Z: 1.5e17},
				ConstellationID: 20000020,
				RegionID:        10000002,
			},
			{
				SystemID:        2,
				SystemName:      "Amarr",
				SecurityStatus:  0.9,
				SecurityClass:   "A",
				FirstVisited:    "2024-01-16T08:15:00Z",
				LastVisited:     "2024-01-19T16:45:00Z",
				VisitCount:      8,
				Position:        Position{X: 1.1e17, Y: 1.2e17, Z: -1.1e17},
				ConstellationID: 20000020,
				RegionID:        10000043,
			},
			{
				SystemID:        3,
				SystemName:      "Dodixie",
				SecurityStatus:  0.8,
				SecurityClass:   "B",
				FirstVisited:    "2024-01-17T12:00:00Z",
				LastVisited:     "2024-01-18T09:30:00Z",
				VisitCount:      3,
				Position:        Position{X: 1.7e17, Y: 1.1e17, Z: -1.1e17},
				ConstellationID: 20000020,
				RegionID:        10000032,
			},
			{
				SystemID:        4,
				SystemName:      "Rens",
				SecurityStatus:  0.8,
				SecurityClass:   "B",
				FirstVisited:    "2024-01-18T14:20:00Z",
				LastVisited:     "2024-01-20T11:10:00Z",
				VisitCount:      5,
				Position:        Position{X: 1.2e17, Y: 1.3e17, Z: -1.0e17},
				ConstellationID: 20000020,
				RegionID:        10000030,
			},
			{
				SystemID:        5,
				SystemName:      "Hek",
				SecurityStatus:  0.7,
				SecurityClass:   "C",
				FirstVisited:    "2024-01-19T16:00:00Z",
				LastVisited:     "2024-01-20T13:25:00Z",
				VisitCount:      2,
				Position:        Position{X: 1.4e17, Y: 1.0e17, Z: -1.2e17},
				ConstellationID: 20000020,
				RegionID:        10000042,
			},
		},
		TotalCount:  5,
		LastUpdated: "2024-01-20T13:25:00Z",
	}, nil
}
