package domain

import (
	"errors"
	"testing"
)

var lifecycleEntities = []EntityType{EntityStorePlan, EntityCandidateLocation, EntityStoreFile, EntityFollowUp}

func TestIsValidTransitionForwardProgress(t *testing.T) {
	cases := []struct {
		entity EntityType
		path   []string
	}{
		{EntityStorePlan, []string{"DRAFT", "SUBMITTED", "PENDING", "APPROVED", "IN_PROGRESS", "COMPLETED"}},
		{EntityCandidateLocation, []string{"PENDING", "FOLLOWING", "NEGOTIATING", "CONTRACTED"}},
		{EntityStoreFile, []string{"PREPARING", "CONSTRUCTING", "OPERATING", "SUSPENDED", "OPERATING", "CLOSED"}},
		{EntityFollowUp, []string{"PENDING", "IN_PROGRESS", "COMPLETED"}},
	}
	for _, tc := range cases {
		for i := 0; i+1 < len(tc.path); i++ {
			if !IsValidTransition(tc.entity, tc.path[i], tc.path[i+1]) {
				t.Fatalf("%s: expected %s -> %s to be valid", tc.entity, tc.path[i], tc.path[i+1])
			}
		}
	}
}

func TestIsValidTransitionRejectsShortcutsAndUnknowns(t *testing.T) {
	cases := []struct {
		entity   EntityType
		from, to string
	}{
		{EntityStorePlan, "DRAFT", "APPROVED"},
		{EntityStorePlan, "DRAFT", "DRAFT"},
		{EntityStorePlan, "COMPLETED", "CANCELLED"},
		{EntityStorePlan, "DRAFT", "BOGUS"},
		{EntityStorePlan, "BOGUS", "DRAFT"},
		{EntityCandidateLocation, "PENDING", "CONTRACTED"},
		{EntityCandidateLocation, "CONTRACTED", "REJECTED"},
		{EntityStoreFile, "OPERATING", "CANCELLED"},
		{EntityFollowUp, "COMPLETED", "PENDING"},
		{EntityRegion, "A", "B"},
		{EntityType("unknown"), "DRAFT", "SUBMITTED"},
	}
	for _, tc := range cases {
		if IsValidTransition(tc.entity, tc.from, tc.to) {
			t.Fatalf("%s: expected %s -> %s to be invalid", tc.entity, tc.from, tc.to)
		}
	}
}

func TestTerminalStatusesHaveNoOutgoingEdges(t *testing.T) {
	for _, entity := range lifecycleEntities {
		machine := lifecycleMachines[entity]
		for from := range machine.edges {
			terminal := IsTerminal(entity, from)
			if terminal != (len(machine.edges[from]) == 0) {
				t.Fatalf("%s: IsTerminal(%s)=%v disagrees with the edge list", entity, from, terminal)
			}
			if !terminal {
				continue
			}
			for to := range machine.edges {
				if IsValidTransition(entity, from, to) {
					t.Fatalf("%s: terminal %s must not reach %s", entity, from, to)
				}
			}
		}
	}
}

func TestTableIsClosedOverItsStates(t *testing.T) {
	for _, entity := range lifecycleEntities {
		machine := lifecycleMachines[entity]
		if !IsKnownStatus(entity, machine.initial) {
			t.Fatalf("%s: initial status %s not in table", entity, machine.initial)
		}
		if !IsTerminal(entity, machine.removed) {
			t.Fatalf("%s: removed status %s must be terminal", entity, machine.removed)
		}
		for from, targets := range machine.edges {
			for _, to := range targets {
				if !IsKnownStatus(entity, to) {
					t.Fatalf("%s: edge %s -> %s points outside the table", entity, from, to)
				}
			}
		}
		for status := range machine.protected {
			if !IsKnownStatus(entity, status) {
				t.Fatalf("%s: protected status %s not in table", entity, status)
			}
		}
	}
}

func TestRemovedStatusReachableFromInitial(t *testing.T) {
	for _, entity := range lifecycleEntities {
		if !IsValidTransition(entity, InitialStatus(entity), RemovedStatus(entity)) {
			t.Fatalf("%s: %s should be reachable from %s", entity, RemovedStatus(entity), InitialStatus(entity))
		}
	}
}

func TestProtectedStatuses(t *testing.T) {
	if !IsProtected(EntityStorePlan, string(PlanStatusApproved)) || !IsProtected(EntityStorePlan, string(PlanStatusInProgress)) {
		t.Fatalf("approved and in-progress plans must be protected")
	}
	if IsProtected(EntityStorePlan, string(PlanStatusDraft)) {
		t.Fatalf("draft plans must not be protected")
	}
	if !IsProtected(EntityCandidateLocation, string(LocationStatusContracted)) {
		t.Fatalf("contracted locations must be protected")
	}
	if IsProtected(EntityStoreFile, string(StoreFileStatusOperating)) {
		t.Fatalf("store files have no protected statuses")
	}
}

func TestNextStatusesSorted(t *testing.T) {
	got := NextStatuses(EntityStorePlan, string(PlanStatusSubmitted))
	want := []string{"CANCELLED", "DRAFT", "PENDING", "REJECTED"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if NextStatuses(EntityType("nope"), "DRAFT") != nil {
		t.Fatalf("unknown entity should have no next statuses")
	}
}

func TestGuardStatusChange(t *testing.T) {
	if err := GuardStatusChange(EntityStorePlan, "p1", "DRAFT", "DRAFT"); err != nil {
		t.Fatalf("unchanged status should pass: %v", err)
	}
	if err := GuardStatusChange(EntityStorePlan, "p1", "DRAFT", "SUBMITTED"); err != nil {
		t.Fatalf("valid edge should pass: %v", err)
	}
	err := GuardStatusChange(EntityStorePlan, "p1", "DRAFT", "APPROVED")
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
	var bad *BadRequestError
	if !errors.As(err, &bad) || bad.From != "DRAFT" || bad.To != "APPROVED" {
		t.Fatalf("expected error naming both states, got %#v", err)
	}
}
