package models

import "time"

// InstructionKind distinguishes the turn-by-turn entries generated for a
// route when navigation starts.
type InstructionKind string

const (
	InstructionStart  InstructionKind = "start"
	InstructionWalk   InstructionKind = "walk"
	InstructionBoard  InstructionKind = "board"
	InstructionRide   InstructionKind = "ride"
	InstructionExit   InstructionKind = "exit"
	InstructionArrive InstructionKind = "arrive"
)

// Instruction is one turn-by-turn entry. SegmentIndex points at the segment
// the instruction belongs to so segment advancement can move the active
// instruction forward.
type Instruction struct {
	Kind         InstructionKind `json:"kind"`
	Text         string          `json:"text"`
	SegmentIndex int             `json:"segment_index"`
}

// NavigationState is the progress record for an active itinerary. It is
// mutated only by the navigation session that owns it.
type NavigationState struct {
	SessionID               string        `json:"session_id"`
	IsActive                bool          `json:"is_active"`
	IsPaused                bool          `json:"is_paused"`
	Arrived                 bool          `json:"arrived"`
	CurrentSegmentIndex     int           `json:"current_segment_index"`
	CurrentInstructionIndex int           `json:"current_instruction_index"`
	CompletedSegmentIDs     []string      `json:"completed_segment_ids"`
	Instructions            []Instruction `json:"instructions"`
	StartedAt               time.Time     `json:"started_at"`
	EstimatedArrival        time.Time     `json:"estimated_arrival"`
	RemainingDurationMin    int           `json:"remaining_duration_minutes"`
	RemainingDistanceMeters float64       `json:"remaining_distance_meters"`
}

// SegmentCompleted reports whether the segment id is already in the
// completed set.
func (s *NavigationState) SegmentCompleted(id string) bool {
	for _, done := range s.CompletedSegmentIDs {
		if done == id {
			return true
		}
	}
	return false
}
