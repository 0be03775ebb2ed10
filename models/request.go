package models

// PlanRequest asks for itineraries between two coordinates.
type PlanRequest struct {
	Origin          Coordinate `json:"origin"`
	Destination     Coordinate `json:"destination"`
	OriginName      string     `json:"origin_name,omitempty"`
	DestinationName string     `json:"destination_name,omitempty"`
}

// StartNavigationRequest submits the itinerary the rider accepted.
type StartNavigationRequest struct {
	Route RouteOption `json:"route"`
}

// PositionFixRequest carries one live position fix into a session.
type PositionFixRequest struct {
	Position Coordinate `json:"position"`
	Accuracy float64    `json:"accuracy_meters,omitempty"`
}
