package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"expansioncore/pkg/domain"
)

func TestContractedLocationIncrementsPlanOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.walkPlan(t, f.plan(t).ID, domain.PlanStatusSubmitted, domain.PlanStatusPending, domain.PlanStatusApproved, domain.PlanStatusInProgress)
	location := f.location(t, &plan.ID, "8 Market Street")
	negotiating := f.walkLocation(t, location.ID, domain.LocationStatusFollowing, domain.LocationStatusNegotiating)
	observed := negotiating.UpdatedAt

	contracted, err := f.svc.ChangeLocationStatus(ctx, location.ID, StatusChange{To: string(domain.LocationStatusContracted), ExpectedLastModifiedAt: &observed}, operator)
	if err != nil {
		t.Fatalf("contract: %v", err)
	}
	if contracted.Status != domain.LocationStatusContracted {
		t.Fatalf("expected CONTRACTED, got %s", contracted.Status)
	}

	// a retry carrying the old stamp fails before any side effect runs
	_, err = f.svc.ChangeLocationStatus(ctx, location.ID, StatusChange{To: string(domain.LocationStatusContracted), ExpectedLastModifiedAt: &observed}, operator)
	requireKind(t, err, domain.ErrConflict)

	got, err := f.store.GetStorePlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if got.CompletedCount != 1 {
		t.Fatalf("expected completed count 1, got %d", got.CompletedCount)
	}
	if !got.UpdatedAt.After(plan.UpdatedAt) {
		t.Fatalf("increment must advance the plan stamp")
	}
}

func TestContractedLocationWithoutPlanHasNoEffect(t *testing.T) {
	f := newFixture(t)
	location := f.location(t, nil, "9 Market Street")
	contracted := f.walkLocation(t, location.ID, domain.LocationStatusFollowing, domain.LocationStatusNegotiating, domain.LocationStatusContracted)
	if contracted.Status != domain.LocationStatusContracted {
		t.Fatalf("expected CONTRACTED, got %s", contracted.Status)
	}
}

func TestFollowingLocationOpensSiteVisit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	location := f.location(t, nil, "3 Bridge Lane")
	f.walkLocation(t, location.ID, domain.LocationStatusFollowing)

	followUps, err := f.store.ListFollowUps(ctx)
	if err != nil {
		t.Fatalf("list follow-ups: %v", err)
	}
	if len(followUps) != 1 {
		t.Fatalf("expected one follow-up, got %d", len(followUps))
	}
	fu := followUps[0]
	if fu.LocationID != location.ID || fu.Type != domain.FollowUpTypeSiteVisit || fu.Title != SiteVisitTitle ||
		fu.Status != domain.FollowUpStatusPending || fu.AssigneeID != operator {
		t.Fatalf("unexpected follow-up %+v", fu)
	}
	if fu.DueAt == nil || !fu.DueAt.Equal(fixedNow.Add(SiteVisitDueWithin)) {
		t.Fatalf("unexpected due date %v", fu.DueAt)
	}

	// NEGOTIATING -> FOLLOWING is not PENDING -> FOLLOWING
	f.walkLocation(t, location.ID, domain.LocationStatusNegotiating, domain.LocationStatusFollowing)
	if followUps, _ = f.store.ListFollowUps(ctx); len(followUps) != 1 {
		t.Fatalf("only PENDING -> FOLLOWING opens a follow-up, got %d", len(followUps))
	}
}

func TestSideEffectFailureKeepsCommittedTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	boom := errors.New("counter unavailable")
	faulty := &faultyStore{PersistentStore: f.store, incrementErr: boom}
	svc := NewService(faulty, WithClock(ClockFunc(func() time.Time { return fixedNow })))

	plan := f.walkPlan(t, f.plan(t).ID, domain.PlanStatusSubmitted, domain.PlanStatusPending, domain.PlanStatusApproved)
	location := f.location(t, &plan.ID, "12 Quay Street")
	f.walkLocation(t, location.ID, domain.LocationStatusFollowing, domain.LocationStatusNegotiating)

	updated, err := svc.ChangeLocationStatus(ctx, location.ID, StatusChange{To: string(domain.LocationStatusContracted)}, operator)
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "side effect increment_plan_completed_count") {
		t.Fatalf("expected wrapped side effect error, got %v", err)
	}
	if updated.Status != domain.LocationStatusContracted {
		t.Fatalf("committed record must be returned, got %s", updated.Status)
	}
	stored, _ := f.store.GetCandidateLocation(ctx, location.ID)
	if stored.Status != domain.LocationStatusContracted {
		t.Fatalf("transition must stay committed, got %s", stored.Status)
	}
}

func TestSideEffectMatching(t *testing.T) {
	effect := sideEffect{entity: domain.EntityCandidateLocation, from: "PENDING", to: "FOLLOWING"}
	cases := []struct {
		ev   transitionEvent
		want bool
	}{
		{transitionEvent{entity: domain.EntityCandidateLocation, from: "PENDING", to: "FOLLOWING"}, true},
		{transitionEvent{entity: domain.EntityCandidateLocation, from: "NEGOTIATING", to: "FOLLOWING"}, false},
		{transitionEvent{entity: domain.EntityStorePlan, from: "PENDING", to: "FOLLOWING"}, false},
	}
	for _, tc := range cases {
		if got := effect.matches(tc.ev); got != tc.want {
			t.Fatalf("matches(%+v) = %v, want %v", tc.ev, got, tc.want)
		}
	}
	anySource := sideEffect{entity: domain.EntityCandidateLocation, to: "CONTRACTED"}
	if !anySource.matches(transitionEvent{entity: domain.EntityCandidateLocation, from: "NEGOTIATING", to: "CONTRACTED"}) {
		t.Fatalf("empty from must match any source status")
	}
}
