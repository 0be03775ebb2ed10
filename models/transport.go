package models

type TransportMode string

const (
	ModeWalk     TransportMode = "walk"
	ModeMinibus  TransportMode = "minibus"
	ModeCableCar TransportMode = "cablecar"
	ModeUnknown  TransportMode = "unknown"
)
