package sgraph

// Affordance says which behavior a node kind affords and which objective the
// resulting task serves.
type Affordance struct {
	Kind      NodeKind
	Behavior  BehaviorKind
	Objective Objective
}

// AffordanceTable is consulted whenever a node is created.
type AffordanceTable []Affordance

// DefaultAffordances returns the standard search and rescue table.
func DefaultAffordances() AffordanceTable {
	return AffordanceTable{
		{KindFrontier, BehaviorExplore, ObjectiveExploreAllFrontiers},
		{KindUnknownVictim, BehaviorAssess, ObjectiveAssessAllVictims},
		{KindMobileVictim, BehaviorGoto, ObjectiveGuideMobileVictims},
		{KindImmobileVictim, BehaviorGoto, ObjectiveReportImmobileVictims},
		{KindHotspot, BehaviorGoto, ObjectiveInspectHotspots},
		{KindDoor, BehaviorGoto, ObjectivePassDoors},
	}
}

// For returns the entries that apply to kind, in table order.
func (t AffordanceTable) For(kind NodeKind) []Affordance {
	var out []Affordance
	for _, a := range t {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// Affords reports whether some entry for kind uses behavior b.
func (t AffordanceTable) Affords(kind NodeKind, b BehaviorKind) bool {
	for _, a := range t {
		if a.Kind == kind && a.Behavior == b {
			return true
		}
	}
	return false
}
