package services

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pachaqtec/transit-planner/geomath"
	"github.com/pachaqtec/transit-planner/metrics"
	"github.com/pachaqtec/transit-planner/models"
)

const (
	// arrivalThresholdMeters is how close a fix must be to the current
	// segment's endpoint for the segment to count as completed.
	arrivalThresholdMeters = 50.0
	// etaPaceMetersPerMin is the flat pace used to recompute remaining
	// duration from remaining distance. It is an approximation, not a
	// mode-aware recomputation.
	etaPaceMetersPerMin = 50.0
	// recomputeInterval re-derives remaining distance from the last fix
	// even when no new fix arrives.
	recomputeInterval = 3 * time.Second
)

// ErrEmptyRoute is returned when navigation is started on a route without
// segments.
var ErrEmptyRoute = errors.New("route has no segments")

type navEventKind int

const (
	eventPosition navEventKind = iota
	eventPause
	eventResume
	eventExit
	eventState
)

type navEvent struct {
	kind     navEventKind
	position models.Coordinate
	reply    chan models.NavigationState
}

// NavigationSession tracks one rider through one itinerary. All state
// transitions run on a single goroutine consuming the session's event
// queue, so position fixes and user commands can never interleave.
type NavigationSession struct {
	ID    string
	route models.RouteOption

	events chan navEvent
	done   chan struct{}

	// finalState is written by the event loop before done is closed and
	// read only after done is observed closed.
	finalState models.NavigationState

	state   models.NavigationState
	lastFix *models.Coordinate

	logger  *logrus.Logger
	metrics *metrics.Collector
}

// NavigationService owns the active sessions. Starting a new session or
// exiting one releases the old event queue so stale fixes can never reach a
// discarded state.
type NavigationService struct {
	mu       sync.Mutex
	sessions map[string]*NavigationSession

	logger  *logrus.Logger
	metrics *metrics.Collector
}

func NewNavigationService(logger *logrus.Logger, collector *metrics.Collector) *NavigationService {
	return &NavigationService{
		sessions: make(map[string]*NavigationSession),
		logger:   logger,
		metrics:  collector,
	}
}

// Start accepts a chosen itinerary and begins tracking it.
func (ns *NavigationService) Start(route models.RouteOption) (*NavigationSession, error) {
	if len(route.Segments) == 0 {
		return nil, ErrEmptyRoute
	}

	now := time.Now()
	session := &NavigationSession{
		ID:      uuid.NewString(),
		route:   route,
		events:  make(chan navEvent),
		done:    make(chan struct{}),
		logger:  ns.logger,
		metrics: ns.metrics,
		state: models.NavigationState{
			IsActive:                true,
			CurrentSegmentIndex:     0,
			CurrentInstructionIndex: 0,
			CompletedSegmentIDs:     []string{},
			Instructions:            buildInstructions(route),
			StartedAt:               now,
			EstimatedArrival:        now.Add(time.Duration(route.TotalDurationMinutes) * time.Minute),
			RemainingDurationMin:    route.TotalDurationMinutes,
			RemainingDistanceMeters: route.TotalDistanceMeters,
		},
	}
	session.state.SessionID = session.ID

	ns.mu.Lock()
	ns.sessions[session.ID] = session
	ns.mu.Unlock()

	if ns.metrics != nil {
		ns.metrics.ActiveSessions.Inc()
	}
	if ns.logger != nil {
		ns.logger.WithFields(logrus.Fields{
			"session_id": session.ID,
			"route_id":   route.ID,
			"segments":   len(route.Segments),
		}).Info("Navigation session started")
	}

	go session.run()
	return session, nil
}

// Get returns an active session by id.
func (ns *NavigationService) Get(id string) (*NavigationSession, bool) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	s, ok := ns.sessions[id]
	return s, ok
}

// Exit terminates a session and forgets it.
func (ns *NavigationService) Exit(id string) (models.NavigationState, bool) {
	ns.mu.Lock()
	session, ok := ns.sessions[id]
	if ok {
		delete(ns.sessions, id)
	}
	ns.mu.Unlock()

	if !ok {
		return models.NavigationState{}, false
	}

	state := session.Exit()
	if ns.metrics != nil {
		ns.metrics.ActiveSessions.Dec()
	}
	if ns.logger != nil {
		ns.logger.WithField("session_id", id).Info("Navigation session exited")
	}
	return state, true
}

// StopAll exits every active session; used on shutdown.
func (ns *NavigationService) StopAll() {
	ns.mu.Lock()
	ids := make([]string, 0, len(ns.sessions))
	for id := range ns.sessions {
		ids = append(ids, id)
	}
	ns.mu.Unlock()

	for _, id := range ids {
		ns.Exit(id)
	}
}

// OnPositionFix feeds a live fix into the session and returns the updated
// state. Fixes are ignored while paused and after exit.
func (s *NavigationSession) OnPositionFix(position models.Coordinate) models.NavigationState {
	return s.send(navEvent{kind: eventPosition, position: position})
}

func (s *NavigationSession) Pause() models.NavigationState {
	return s.send(navEvent{kind: eventPause})
}

func (s *NavigationSession) Resume() models.NavigationState {
	return s.send(navEvent{kind: eventResume})
}

// Exit stops the event loop. Safe to call more than once.
func (s *NavigationSession) Exit() models.NavigationState {
	return s.send(navEvent{kind: eventExit})
}

// State returns a snapshot of the current navigation state.
func (s *NavigationSession) State() models.NavigationState {
	return s.send(navEvent{kind: eventState})
}

func (s *NavigationSession) send(ev navEvent) models.NavigationState {
	ev.reply = make(chan models.NavigationState, 1)
	select {
	case s.events <- ev:
		select {
		case state := <-ev.reply:
			return state
		case <-s.done:
			return s.finalState
		}
	case <-s.done:
		return s.finalState
	}
}

func (s *NavigationSession) run() {
	ticker := time.NewTicker(recomputeInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-s.events:
			if ev.kind == eventExit {
				s.state.IsActive = false
				s.state.IsPaused = false
				s.finalState = s.snapshot()
				ev.reply <- s.finalState
				close(s.done)
				return
			}
			s.handleEvent(ev)
			ev.reply <- s.snapshot()

		case <-ticker.C:
			// Defensive recompute so remaining distance tracks the last
			// known position even when the stream goes quiet. Never
			// advances segments on its own.
			if s.state.IsActive && !s.state.IsPaused && !s.state.Arrived && s.lastFix != nil {
				s.recomputeRemaining(*s.lastFix)
			}
		}
	}
}

func (s *NavigationSession) handleEvent(ev navEvent) {
	switch ev.kind {
	case eventPosition:
		if !s.state.IsActive || s.state.IsPaused || s.state.Arrived {
			return
		}
		fix := ev.position
		s.lastFix = &fix
		s.processFix(fix)
	case eventPause:
		if s.state.IsActive && !s.state.Arrived {
			s.state.IsPaused = true
		}
	case eventResume:
		s.state.IsPaused = false
	case eventState:
		// Snapshot only.
	}
}

func (s *NavigationSession) processFix(position models.Coordinate) {
	if s.metrics != nil {
		s.metrics.PositionFixes.Inc()
	}

	current := s.route.Segments[s.state.CurrentSegmentIndex]
	if geomath.Distance(position, current.To.Coordinate()) < arrivalThresholdMeters &&
		!s.state.SegmentCompleted(current.ID) {
		s.state.CompletedSegmentIDs = append(s.state.CompletedSegmentIDs, current.ID)
		if s.metrics != nil {
			s.metrics.SegmentsDone.Inc()
		}

		// Advance, clamped to the final segment.
		if s.state.CurrentSegmentIndex < len(s.route.Segments)-1 {
			s.state.CurrentSegmentIndex++
		}
		s.state.CurrentInstructionIndex = firstInstructionFor(s.state.Instructions, s.state.CurrentSegmentIndex, s.state.CurrentInstructionIndex)

		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"session_id": s.ID,
				"segment":    current.ID,
				"index":      s.state.CurrentSegmentIndex,
			}).Debug("Segment completed")
		}
	}

	s.recomputeRemaining(position)

	if len(s.state.CompletedSegmentIDs) == len(s.route.Segments) {
		s.state.Arrived = true
		s.state.IsActive = false
		s.state.RemainingDurationMin = 0
		s.state.RemainingDistanceMeters = 0
		s.state.EstimatedArrival = time.Now()
		s.state.CurrentInstructionIndex = len(s.state.Instructions) - 1
	}
}

func (s *NavigationSession) recomputeRemaining(position models.Coordinate) {
	current := s.route.Segments[s.state.CurrentSegmentIndex]

	remaining := geomath.Distance(position, current.From.Coordinate())
	for i := s.state.CurrentSegmentIndex; i < len(s.route.Segments); i++ {
		remaining += s.route.Segments[i].DistanceMeters
	}

	s.state.RemainingDistanceMeters = remaining
	s.state.RemainingDurationMin = int(math.Ceil(remaining / etaPaceMetersPerMin))
	s.state.EstimatedArrival = time.Now().Add(time.Duration(s.state.RemainingDurationMin) * time.Minute)
}

func (s *NavigationSession) snapshot() models.NavigationState {
	state := s.state
	state.CompletedSegmentIDs = append([]string(nil), s.state.CompletedSegmentIDs...)
	return state
}

// firstInstructionFor finds the first still-pending instruction that
// references the segment index, never moving backwards.
func firstInstructionFor(instructions []models.Instruction, segmentIndex, currentIndex int) int {
	for i, ins := range instructions {
		if ins.SegmentIndex == segmentIndex && i > currentIndex {
			return i
		}
	}
	return currentIndex
}

// buildInstructions expands a route into its turn-by-turn list, produced
// once when navigation starts. Walk segments yield one entry; ride segments
// yield board, ride and exit entries. A synthetic start entry precedes the
// first segment and a synthetic arrive entry follows the last.
func buildInstructions(route models.RouteOption) []models.Instruction {
	out := []models.Instruction{{
		Kind:         models.InstructionStart,
		Text:         fmt.Sprintf("Start at %s", route.Segments[0].From.Name),
		SegmentIndex: 0,
	}}

	for i, seg := range route.Segments {
		switch seg.Mode {
		case models.ModeWalk:
			out = append(out, models.Instruction{
				Kind:         models.InstructionWalk,
				Text:         seg.Instructions,
				SegmentIndex: i,
			})
		default:
			out = append(out,
				models.Instruction{
					Kind:         models.InstructionBoard,
					Text:         fmt.Sprintf("Board %s at %s", seg.LineLabel, seg.From.Name),
					SegmentIndex: i,
				},
				models.Instruction{
					Kind:         models.InstructionRide,
					Text:         seg.Instructions,
					SegmentIndex: i,
				},
				models.Instruction{
					Kind:         models.InstructionExit,
					Text:         fmt.Sprintf("Get off at %s", seg.To.Name),
					SegmentIndex: i,
				},
			)
		}
	}

	last := len(route.Segments) - 1
	out = append(out, models.Instruction{
		Kind:         models.InstructionArrive,
		Text:         fmt.Sprintf("You have arrived at %s", route.Segments[last].To.Name),
		SegmentIndex: last,
	})
	return out
}
