package sgraph

import (
	"fmt"
	"strings"
)

// NodeKind is the closed set of node types. World objects occupy a contiguous range
// so IsWorldObject stays a range check.
type NodeKind uint8

const (
	KindInvalid NodeKind = iota
	KindWaypoint
	KindFrontier
	KindUnknownVictim
	KindMobileVictim
	KindImmobileVictim
	KindHotspot
	KindDoor
)

var nodeKindNames = [...]string{
	KindInvalid:        "invalid",
	KindWaypoint:       "waypoint",
	KindFrontier:       "frontier",
	KindUnknownVictim:  "unknown_victim",
	KindMobileVictim:   "mobile_victim",
	KindImmobileVictim: "immobile_victim",
	KindHotspot:        "hotspot",
	KindDoor:           "door",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", k)
}

// IsWorldObject reports whether k is one of the perceived object subkinds.
func (k NodeKind) IsWorldObject() bool {
	return k >= KindUnknownVictim && k <= KindDoor
}

// ParseNodeKind resolves a kind from its string name.
func ParseNodeKind(s string) (NodeKind, error) {
	for k, name := range nodeKindNames {
		if k != int(KindInvalid) && strings.EqualFold(name, s) {
			return NodeKind(k), nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown node kind %q", s)
}

// BehaviorKind is the action an edge asks an agent to perform.
type BehaviorKind uint8

const (
	BehaviorInvalid BehaviorKind = iota
	BehaviorGoto
	BehaviorExplore
	BehaviorAssess
)

var behaviorNames = [...]string{
	BehaviorInvalid: "invalid",
	BehaviorGoto:    "goto",
	BehaviorExplore: "explore",
	BehaviorAssess:  "assess",
}

func (b BehaviorKind) String() string {
	if int(b) < len(behaviorNames) {
		return behaviorNames[b]
	}
	return fmt.Sprintf("BehaviorKind(%d)", b)
}

// RequiredCapabilities is declared per behavior, never per edge.
func (b BehaviorKind) RequiredCapabilities() Capabilities {
	switch b {
	case BehaviorGoto:
		return NewCapabilities(CanMove)
	case BehaviorExplore:
		return NewCapabilities(CanMove, CanExplore)
	case BehaviorAssess:
		return NewCapabilities(CanAssess)
	}
	return 0
}

// Capability tags what an agent is able to do.
type Capability uint8

const (
	CanMove Capability = iota
	CanExplore
	CanAssess
)

var capabilityNames = [...]string{
	CanMove:    "can_move",
	CanExplore: "can_explore",
	CanAssess:  "can_assess",
}

func (c Capability) String() string {
	if int(c) < len(capabilityNames) {
		return capabilityNames[c]
	}
	return fmt.Sprintf("Capability(%d)", c)
}

// ParseCapability resolves a capability from its string name.
func ParseCapability(s string) (Capability, error) {
	for c, name := range capabilityNames {
		if strings.EqualFold(name, s) {
			return Capability(c), nil
		}
	}
	return 0, fmt.Errorf("unknown capability %q", s)
}

// Capabilities is a set of Capability values.
type Capabilities uint8

// NewCapabilities builds a set from individual capabilities.
func NewCapabilities(caps ...Capability) Capabilities {
	var s Capabilities
	for _, c := range caps {
		s |= 1 << c
	}
	return s
}

// AllCapabilities is the set an unrestricted agent carries.
func AllCapabilities() Capabilities {
	return NewCapabilities(CanMove, CanExplore, CanAssess)
}

// Has reports whether c is in the set.
func (s Capabilities) Has(c Capability) bool { return s&(1<<c) != 0 }

// Contains reports whether every capability in other is also in s.
func (s Capabilities) Contains(other Capabilities) bool { return s&other == other }

func (s Capabilities) String() string {
	var names []string
	for c := range capabilityNames {
		if s.Has(Capability(c)) {
			names = append(names, capabilityNames[c])
		}
	}
	return "{" + strings.Join(names, ",") + "}"
}

// Objective is the mission goal a task contributes to. Each carries a fixed reward.
type Objective uint8

const (
	ObjectiveInvalid Objective = iota
	ObjectiveExploreAllFrontiers
	ObjectiveAssessAllVictims
	ObjectiveGuideMobileVictims
	ObjectiveReportImmobileVictims
	ObjectiveInspectHotspots
	ObjectivePassDoors
)

var objectives = [...]struct {
	name   string
	reward float64
}{
	ObjectiveInvalid:               {"invalid", 0},
	ObjectiveExploreAllFrontiers:   {"explore_all_frontiers", 1},
	ObjectiveAssessAllVictims:      {"assess_all_victims", 10},
	ObjectiveGuideMobileVictims:    {"guide_mobile_victims", 5},
	ObjectiveReportImmobileVictims: {"report_immobile_victims", 5},
	ObjectiveInspectHotspots:       {"inspect_hotspots", 2},
	ObjectivePassDoors:             {"pass_doors", 2},
}

func (o Objective) String() string {
	if int(o) < len(objectives) {
		return objectives[o].name
	}
	return fmt.Sprintf("Objective(%d)", o)
}

// Reward is the utility numerator used by task allocation.
func (o Objective) Reward() float64 {
	if int(o) < len(objectives) {
		return objectives[o].reward
	}
	return 0
}

// ParseObjective resolves an objective from its string name.
func ParseObjective(s string) (Objective, error) {
	for o, def := range objectives {
		if o != int(ObjectiveInvalid) && strings.EqualFold(def.name, s) {
			return Objective(o), nil
		}
	}
	return ObjectiveInvalid, fmt.Errorf("unknown objective %q", s)
}
