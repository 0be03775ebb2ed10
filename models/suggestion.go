package models

type SuggestionKind string

const (
	SuggestionMinibusStop     SuggestionKind = "minibus_stop"
	SuggestionCableCarStation SuggestionKind = "cablecar_station"
	SuggestionZone            SuggestionKind = "zone"
	SuggestionPlace           SuggestionKind = "place"
)

// Suggestion is one ranked candidate for a free-text location query.
type Suggestion struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Detail string         `json:"detail,omitempty"`
	Kind   SuggestionKind `json:"kind"`
	Lat    float64        `json:"lat"`
	Lng    float64        `json:"lng"`
}
