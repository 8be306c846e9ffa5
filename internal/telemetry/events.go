// Package telemetry carries the events the exploration core emits. The core only
// writes events; sinks decide what happens to them.
package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/sgexplore/internal/geometry"
	"github.com/xkilldash9x/sgexplore/internal/sgraph"
)

// EventType names the kind of payload an Event carries.
type EventType string

const (
	EventTaskUtilities   EventType = "task_utilities"
	EventFrontierSamples EventType = "frontier_samples"
	EventShortcutCheck   EventType = "shortcut_check"
	EventMissionView     EventType = "mission_view"
)

// AllEventTypes lists every type, in a fixed order.
func AllEventTypes() []EventType {
	return []EventType{EventTaskUtilities, EventFrontierSamples, EventShortcutCheck, EventMissionView}
}

// Event is the envelope handed to sinks.
type Event struct {
	ID        string
	Timestamp time.Time
	Type      EventType
	Payload   any
}

// TaskUtility is the allocator's score for one candidate task.
type TaskUtility struct {
	TaskID    uuid.UUID     `json:"task_id"`
	Target    sgraph.NodeID `json:"target"`
	Objective string        `json:"objective"`
	Reward    float64       `json:"reward"`
	Distance  float64       `json:"distance"`
	Utility   float64       `json:"utility"`
}

// TaskUtilities is emitted once per allocation decision. Distance and Utility may
// be +Inf, so this payload is logged rather than persisted.
type TaskUtilities struct {
	Agent     string        `json:"agent"`
	Utilities []TaskUtility `json:"utilities"`
	Selected  uuid.UUID     `json:"selected"`
}

// FrontierSamples reports one sampling pass, including the obstacles that rejected
// directions.
type FrontierSamples struct {
	Agent      string           `json:"agent"`
	Origin     geometry.Point   `json:"origin"`
	Sampler    string           `json:"sampler"`
	Accepted   []geometry.Point `json:"accepted"`
	Collisions []geometry.Point `json:"collisions"`
	Exhausted  bool             `json:"exhausted"`
}

// ShortcutCandidate is one waypoint considered for a shortcut edge.
type ShortcutCandidate struct {
	Waypoint sgraph.NodeID  `json:"waypoint"`
	Free     bool           `json:"free"`
	Obstacle geometry.Point `json:"obstacle"`
	Added    bool           `json:"added"`
}

// ShortcutCheck reports a shortcut search from the agent's current waypoint.
type ShortcutCheck struct {
	Agent      string              `json:"agent"`
	From       sgraph.NodeID       `json:"from"`
	Candidates []ShortcutCandidate `json:"candidates"`
}

// AgentView is the state of one agent inside a mission view.
type AgentView struct {
	ID                string         `json:"id"`
	Position          geometry.Point `json:"position"`
	Heading           float64        `json:"heading"`
	Waypoint          string         `json:"waypoint"`
	Task              string         `json:"task,omitempty"`
	PlanLength        int            `json:"plan_length"`
	Capabilities      string         `json:"capabilities"`
	BootstrapComplete bool           `json:"bootstrap_complete"`
}

// MissionView is a snapshot of the graph and agents after a tick.
type MissionView struct {
	MissionID uuid.UUID       `json:"mission_id"`
	Tick      int             `json:"tick"`
	Final     bool            `json:"final"`
	Graph     sgraph.Snapshot `json:"graph"`
	Agents    []AgentView     `json:"agents"`
}

// Sink receives events. Emit must not fail the caller; implementations log their
// own delivery problems.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}

// Multi fans one event out to several sinks in order.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, ev)
		}
	}
}

// OrNop returns s, or a Nop sink when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}
