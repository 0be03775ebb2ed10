package models

// Station is a named point on a cable-car line. Order is the authoritative
// position of the station along the line; array position carries no meaning.
type Station struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Order int     `json:"order"`
}

func (s Station) Coordinate() Coordinate {
	return Coordinate{Lat: s.Lat, Lng: s.Lng}
}

// MinibusLine is a fixed route approximated by an ordered polyline.
// Array order is the travel direction.
type MinibusLine struct {
	ID           string       `json:"id"`
	LineCode     string       `json:"line_code"`
	OperatorName string       `json:"operator_name"`
	RouteName    string       `json:"route_name"`
	Polyline     []Coordinate `json:"polyline"`
}

// CableCarLine is a sequence of discrete stations ordered by Station.Order.
type CableCarLine struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
	Stations []Station `json:"stations"`
}

// StationsInOrder returns the stations sorted ascending by Order without
// mutating the line.
func (l CableCarLine) StationsInOrder() []Station {
	out := make([]Station, len(l.Stations))
	copy(out, l.Stations)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Order > out[j].Order; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// TransitNetwork is the read-only network handed to every planning call.
// The planner never mutates it.
type TransitNetwork struct {
	MinibusLines  []MinibusLine  `json:"minibus_lines"`
	CableCarLines []CableCarLine `json:"cablecar_lines"`
}
