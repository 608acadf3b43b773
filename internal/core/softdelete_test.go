package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"expansioncore/pkg/domain"
)

func TestDeleteWithoutDependentsRemovesRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.plan(t)

	ok, err := f.svc.CanHardDelete(ctx, domain.EntityStorePlan, plan.ID)
	if err != nil || !ok {
		t.Fatalf("expected hard delete to be allowed, got %v %v", ok, err)
	}
	outcome, err := f.svc.DeleteStorePlan(ctx, plan.ID, operator)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if outcome != DeleteHard {
		t.Fatalf("expected hard delete, got %s", outcome)
	}
	_, err = f.store.GetStorePlan(ctx, plan.ID)
	requireKind(t, err, domain.ErrNotFound)
}

func TestDeleteKeepsRecordChangedAfterRead(t *testing.T) {
	cases := []struct {
		name       string
		interleave func(t *testing.T, f fixture, planID string) func()
		wantStatus domain.PlanStatus
	}{
		{
			name: "moved to protected status",
			interleave: func(t *testing.T, f fixture, planID string) func() {
				return func() { f.walkPlan(t, planID, domain.PlanStatusApproved) }
			},
			wantStatus: domain.PlanStatusApproved,
		},
		{
			name: "dependent attached",
			interleave: func(t *testing.T, f fixture, planID string) func() {
				return func() { f.location(t, &planID, "9 Harbour Road") }
			},
			wantStatus: domain.PlanStatusPending,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			plan := f.plan(t)
			f.walkPlan(t, plan.ID, domain.PlanStatusSubmitted, domain.PlanStatusPending)

			racing := &racingStore{PersistentStore: f.store, interleave: tc.interleave(t, f, plan.ID)}
			svc := NewService(racing, WithClock(ClockFunc(func() time.Time { return fixedNow })))
			outcome, err := svc.DeleteStorePlan(ctx, plan.ID, operator)
			requireKind(t, err, domain.ErrConflict)
			if outcome != "" {
				t.Fatalf("expected no outcome, got %s", outcome)
			}
			got, err := f.store.GetStorePlan(ctx, plan.ID)
			if err != nil {
				t.Fatalf("plan must survive: %v", err)
			}
			if got.Status != tc.wantStatus {
				t.Fatalf("expected %s, got %s", tc.wantStatus, got.Status)
			}
		})
	}
}

func TestDeleteWithDependentsSoftDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.plan(t)
	f.location(t, &plan.ID, "5 Castle Street")

	ok, err := f.svc.CanHardDelete(ctx, domain.EntityStorePlan, plan.ID)
	if err != nil || ok {
		t.Fatalf("expected hard delete to be refused, got %v %v", ok, err)
	}
	outcome, err := f.svc.DeleteStorePlan(ctx, plan.ID, operator)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if outcome != DeleteSoft {
		t.Fatalf("expected soft delete, got %s", outcome)
	}
	got, err := f.store.GetStorePlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("soft-deleted plan must stay retrievable: %v", err)
	}
	if got.Status != domain.PlanStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", got.Status)
	}
	if !strings.Contains(got.Notes, domain.SoftDeleteMarker) || !strings.Contains(got.Notes, operator) {
		t.Fatalf("expected soft delete note, got %q", got.Notes)
	}
	if !got.UpdatedAt.After(plan.UpdatedAt) {
		t.Fatalf("soft delete must advance the stamp")
	}
}

func TestDeleteIgnoresInactiveDependents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.plan(t)
	location := f.location(t, &plan.ID, "6 Castle Street")
	f.walkLocation(t, location.ID, domain.LocationStatusRejected)

	outcome, err := f.svc.DeleteStorePlan(ctx, plan.ID, operator)
	if err != nil || outcome != DeleteHard {
		t.Fatalf("rejected locations must not block hard delete, got %s %v", outcome, err)
	}
}

func TestDeleteProtectedStatusIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.walkPlan(t, f.plan(t).ID, domain.PlanStatusSubmitted, domain.PlanStatusPending, domain.PlanStatusApproved)

	_, err := f.svc.DeleteStorePlan(ctx, plan.ID, operator)
	requireKind(t, err, domain.ErrForbidden)
	got, _ := f.store.GetStorePlan(ctx, plan.ID)
	if got.Status != domain.PlanStatusApproved || !got.UpdatedAt.Equal(plan.UpdatedAt) {
		t.Fatalf("forbidden delete must not touch the plan: %+v", got)
	}

	location := f.location(t, nil, "7 Castle Street")
	f.walkLocation(t, location.ID, domain.LocationStatusFollowing, domain.LocationStatusNegotiating, domain.LocationStatusContracted)
	_, err = f.svc.DeleteCandidateLocation(ctx, location.ID, operator)
	requireKind(t, err, domain.ErrForbidden)
}

func TestDeleteTerminalWithDependentsIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	file := f.storeFile(t, nil)
	if _, err := f.svc.AddAsset(ctx, domain.Asset{StoreFileID: file.ID, Name: "Till", Value: 1200}, operator); err != nil {
		t.Fatalf("add asset: %v", err)
	}
	for _, to := range []domain.StoreFileStatus{domain.StoreFileStatusConstructing, domain.StoreFileStatusOperating, domain.StoreFileStatusClosed} {
		if _, err := f.svc.ChangeStoreFileStatus(ctx, file.ID, StatusChange{To: string(to)}, operator); err != nil {
			t.Fatalf("-> %s: %v", to, err)
		}
	}
	_, err := f.svc.DeleteStoreFile(ctx, file.ID, operator)
	requireKind(t, err, domain.ErrForbidden)
	if !strings.Contains(err.Error(), "CLOSED to CANCELLED") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestDeleteStoreFileWithPaymentsSoftDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	file := f.storeFile(t, nil)
	if _, err := f.svc.AddPaymentItem(ctx, domain.PaymentItem{StoreFileID: file.ID, Description: "Deposit", Amount: 5000}, operator); err != nil {
		t.Fatalf("add payment: %v", err)
	}
	outcome, err := f.svc.Delete(ctx, domain.EntityStoreFile, file.ID, operator)
	if err != nil || outcome != DeleteSoft {
		t.Fatalf("expected soft delete, got %s %v", outcome, err)
	}
	got, _ := f.store.GetStoreFile(ctx, file.ID)
	if got.Status != domain.StoreFileStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", got.Status)
	}

	_, err = f.svc.AddPaymentItem(ctx, domain.PaymentItem{StoreFileID: file.ID, Description: "Late fee"}, operator)
	requireKind(t, err, domain.ErrForbidden)
}

func TestDeleteLocationWithOpenFollowUps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	location := f.location(t, nil, "10 Castle Street")
	f.walkLocation(t, location.ID, domain.LocationStatusFollowing)

	outcome, err := f.svc.DeleteCandidateLocation(ctx, location.ID, operator)
	if err != nil || outcome != DeleteSoft {
		t.Fatalf("open site visit must force a soft delete, got %s %v", outcome, err)
	}
	got, _ := f.store.GetCandidateLocation(ctx, location.ID)
	if got.Status != domain.LocationStatusRejected || !strings.Contains(got.Notes, domain.SoftDeleteMarker) {
		t.Fatalf("unexpected location after delete: %+v", got)
	}
}

func TestDeleteDispatchAndMissingRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Delete(ctx, domain.EntityFollowUp, "missing", operator)
	requireKind(t, err, domain.ErrNotFound)
	_, err = f.svc.Delete(ctx, domain.EntityAsset, "a1", operator)
	requireKind(t, err, domain.ErrBadRequest)
	_, err = f.svc.CanHardDelete(ctx, domain.EntityRegion, f.regionID)
	requireKind(t, err, domain.ErrBadRequest)
}
