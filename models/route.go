package models

import "time"

// RouteSegment is one mode-homogeneous leg of an itinerary.
// Polyline starts at From and ends at To within projection tolerance.
type RouteSegment struct {
	ID              string        `json:"id"`
	Mode            TransportMode `json:"mode"`
	From            NamedPoint    `json:"from"`
	To              NamedPoint    `json:"to"`
	DurationMinutes int           `json:"duration_minutes"`
	DistanceMeters  float64       `json:"distance_meters"`
	CostBs          float64       `json:"cost_bs"`
	LineLabel       string        `json:"line_label,omitempty"`
	Color           string        `json:"color,omitempty"`
	Instructions    string        `json:"instructions"`
	Polyline        []Coordinate  `json:"polyline"`
}

// RouteOption is a complete itinerary. Segments are contiguous: each
// segment's To coincides with the next segment's From.
type RouteOption struct {
	ID                   string         `json:"id"`
	Segments             []RouteSegment `json:"segments"`
	TotalDurationMinutes int            `json:"total_duration_minutes"`
	TotalCostBs          float64        `json:"total_cost_bs"`
	TotalDistanceMeters  float64        `json:"total_distance_meters"`
	TransferCount        int            `json:"transfer_count"`
	Recommended          bool           `json:"recommended"`
	DepartureTime        time.Time      `json:"departure_time"`
	ArrivalTime          time.Time      `json:"arrival_time"`
}
