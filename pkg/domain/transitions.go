package domain

import "sort"

// lifecycleMachine is the static status graph of one lifecycle entity type.
type lifecycleMachine struct {
	entity    EntityType
	label     string
	initial   string
	removed   string
	protected map[string]struct{}
	edges     map[string][]string
}

var lifecycleMachines = map[EntityType]lifecycleMachine{
	EntityStorePlan: {
		entity:    EntityStorePlan,
		label:     "store plan",
		initial:   string(PlanStatusDraft),
		removed:   string(PlanStatusCancelled),
		protected: toSet(string(PlanStatusApproved), string(PlanStatusInProgress)),
		edges: map[string][]string{
			string(PlanStatusDraft):      {string(PlanStatusSubmitted), string(PlanStatusCancelled)},
			string(PlanStatusSubmitted):  {string(PlanStatusPending), string(PlanStatusDraft), string(PlanStatusRejected), string(PlanStatusCancelled)},
			string(PlanStatusPending):    {string(PlanStatusApproved), string(PlanStatusRejected), string(PlanStatusCancelled)},
			string(PlanStatusApproved):   {string(PlanStatusInProgress), string(PlanStatusCancelled)},
			string(PlanStatusInProgress): {string(PlanStatusCompleted), string(PlanStatusCancelled)},
			// administrative reopen of a rejected plan
			string(PlanStatusRejected):  {string(PlanStatusDraft)},
			string(PlanStatusCompleted): nil,
			string(PlanStatusCancelled): nil,
		},
	},
	EntityCandidateLocation: {
		entity:    EntityCandidateLocation,
		label:     "candidate location",
		initial:   string(LocationStatusPending),
		removed:   string(LocationStatusRejected),
		protected: toSet(string(LocationStatusContracted)),
		edges: map[string][]string{
			string(LocationStatusPending):     {string(LocationStatusFollowing), string(LocationStatusRejected)},
			string(LocationStatusFollowing):   {string(LocationStatusNegotiating), string(LocationStatusPending), string(LocationStatusRejected)},
			string(LocationStatusNegotiating): {string(LocationStatusContracted), string(LocationStatusFollowing), string(LocationStatusRejected)},
			string(LocationStatusContracted):  nil,
			string(LocationStatusRejected):    nil,
		},
	},
	EntityStoreFile: {
		entity:    EntityStoreFile,
		label:     "store file",
		initial:   string(StoreFileStatusPreparing),
		removed:   string(StoreFileStatusCancelled),
		protected: toSet(),
		edges: map[string][]string{
			string(StoreFileStatusPreparing):    {string(StoreFileStatusConstructing), string(StoreFileStatusCancelled)},
			string(StoreFileStatusConstructing): {string(StoreFileStatusOperating), string(StoreFileStatusPreparing), string(StoreFileStatusCancelled)},
			string(StoreFileStatusOperating):    {string(StoreFileStatusSuspended), string(StoreFileStatusClosed)},
			string(StoreFileStatusSuspended):    {string(StoreFileStatusOperating), string(StoreFileStatusClosed)},
			string(StoreFileStatusClosed):       nil,
			string(StoreFileStatusCancelled):    nil,
		},
	},
	EntityFollowUp: {
		entity:    EntityFollowUp,
		label:     "follow-up",
		initial:   string(FollowUpStatusPending),
		removed:   string(FollowUpStatusCancelled),
		protected: toSet(),
		edges: map[string][]string{
			string(FollowUpStatusPending):    {string(FollowUpStatusInProgress), string(FollowUpStatusCompleted), string(FollowUpStatusCancelled)},
			string(FollowUpStatusInProgress): {string(FollowUpStatusCompleted), string(FollowUpStatusCancelled)},
			string(FollowUpStatusCompleted):  nil,
			string(FollowUpStatusCancelled):  nil,
		},
	},
}

// IsValidTransition reports whether the table for entity has an edge from -> to.
// Unknown entity types and unknown states yield false.
func IsValidTransition(entity EntityType, from, to string) bool {
	machine, ok := lifecycleMachines[entity]
	if !ok {
		return false
	}
	if _, known := machine.edges[to]; !known {
		return false
	}
	for _, next := range machine.edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from the given status, sorted.
func NextStatuses(entity EntityType, from string) []string {
	machine, ok := lifecycleMachines[entity]
	if !ok {
		return nil
	}
	out := append([]string(nil), machine.edges[from]...)
	sort.Strings(out)
	return out
}

// IsKnownStatus reports whether status is a member of the entity's enum.
func IsKnownStatus(entity EntityType, status string) bool {
	machine, ok := lifecycleMachines[entity]
	if !ok {
		return false
	}
	_, known := machine.edges[status]
	return known
}

// IsTerminal reports whether status has no outgoing edges.
func IsTerminal(entity EntityType, status string) bool {
	machine, ok := lifecycleMachines[entity]
	if !ok {
		return false
	}
	edges, known := machine.edges[status]
	return known && len(edges) == 0
}

// IsProtected reports whether status blocks deletion of the entity.
func IsProtected(entity EntityType, status string) bool {
	machine, ok := lifecycleMachines[entity]
	if !ok {
		return false
	}
	_, protected := machine.protected[status]
	return protected
}

// InitialStatus returns the status new records of entity are seeded with.
func InitialStatus(entity EntityType) string {
	return lifecycleMachines[entity].initial
}

// RemovedStatus returns the terminal status used by soft deletion.
func RemovedStatus(entity EntityType) string {
	return lifecycleMachines[entity].removed
}

// EntityLabel returns a human-readable label for entity.
func EntityLabel(entity EntityType) string {
	if machine, ok := lifecycleMachines[entity]; ok {
		return machine.label
	}
	return string(entity)
}

// GuardStatusChange rejects a write that moves status along an edge missing from
// the table. Writes that leave status untouched always pass.
func GuardStatusChange(entity EntityType, id, before, after string) error {
	if before == after {
		return nil
	}
	if !IsValidTransition(entity, before, after) {
		return NewInvalidTransitionError(entity, id, before, after)
	}
	return nil
}

func toSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
