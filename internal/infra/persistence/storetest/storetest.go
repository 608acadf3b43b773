// Package storetest holds the behavioural suite every domain.PersistentStore
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"expansioncore/pkg/domain"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) domain.PersistentStore

type clockSetter interface {
	SetNowFunc(func() time.Time)
}

// steppingClock returns a clock that advances one second per reading.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

// Run executes the suite against stores produced by open.
func Run(t *testing.T, open Factory) {
	t.Helper()
	cases := []struct {
		name string
		fn   func(t *testing.T, ctx context.Context, store domain.PersistentStore)
	}{
		{"create and get", testCreateAndGet},
		{"create rejects duplicates and unknown statuses", testCreateRejects},
		{"conditional update", testConditionalUpdate},
		{"update guards transitions", testUpdateGuardsTransitions},
		{"update keeps identity", testUpdateKeepsIdentity},
		{"delete", testDelete},
		{"delete is conditional", testDeleteIsConditional},
		{"list ordering", testListOrdering},
		{"count dependents", testCountDependents},
		{"increment counter", testIncrementCounter},
		{"sequences", testSequences},
		{"concurrent updates", testConcurrentUpdates},
		{"nested values", testNestedValues},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := open(t)
			t.Cleanup(func() { _ = store.Close() })
			if c, ok := store.(clockSetter); ok {
				c.SetNowFunc(steppingClock(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)))
			}
			tc.fn(t, context.Background(), store)
		})
	}
}

func draftPlan(name string) domain.StorePlan {
	return domain.StorePlan{
		Name:         name,
		Year:         2026,
		Quarter:      1,
		RegionID:     "region-1",
		EntityID:     "entity-1",
		StoreType:    "FLAGSHIP",
		PlannedCount: 3,
		Status:       domain.PlanStatusDraft,
		CreatedBy:    "op-1",
	}
}

func testCreateAndGet(t *testing.T, ctx context.Context, store domain.PersistentStore) {
	created, err := store.CreateStorePlan(ctx, draftPlan("Spring"))
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() || !created.UpdatedAt.Equal(created.CreatedAt) {
		t.Fatalf("expected id and stamps to be assigned: %#v", created.Base)
	}
	got, err := store.GetStorePlan(ctx, created.ID)
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if got.Name != "Spring" || got.PlannedCount != 3 || got.Status != domain.PlanStatusDraft {
		t.Fatalf("unexpected plan %#v", got)
	}
	if !got.UpdatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("stamp changed across read: %v vs %v", got.UpdatedAt, created.UpdatedAt)
	}
	if _, err := store.GetStorePlan(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	region, err := store.CreateRegion(ctx, domain.Region{Code: "R1", Name: "North", Active: true})
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	if got, err := store.GetRegion(ctx, region.ID); err != nil || got.Code != "R1" {
		t.Fatalf("get region: %#v %v", got, err)
	}
	entity, err := store.CreateBusinessEntity(ctx, domain.BusinessEntity{Code: "E1", Name: "Acme"})
	if err != nil {
		t.Fatalf("create entity: %v", err)
	}
	if got, err := store.GetBusinessEntity(ctx, entity.ID); err != nil || got.Name != "Acme" {
		t.Fatalf("get entity: %#v %v", got, err)
	}
	if _, err := store.GetBusinessEntity(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func testCreateRejects(t *testing.T, ctx context.Context, store domain.PersistentStore) {
	plan := draftPlan("Dup")
	plan.ID = "plan-fixed"
	if _, err := store.CreateStorePlan(ctx, plan); err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if _, err := store.CreateStorePlan(ctx, plan); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}
	bad := draftPlan("Bad")
	bad.Status = "BOGUS"
	if _, err := store.CreateStorePlan(ctx, bad); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected bad request on unknown status, got %v", err)
	}
}

func testConditionalUpdate(t *testing.T, ctx context.Context, store domain.PersistentStore) {
	plan, err := store.CreateStorePlan(ctx, draftPlan("CAS"))
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	updated, err := store.UpdateStorePlan(ctx, plan.ID, plan.UpdatedAt, func(p *domain.StorePlan) error {
		p.Status = domain.PlanStatusSubmitted
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.UpdatedAt.After(plan.UpdatedAt) {
		t.Fatalf("stamp must advance: %v -> %v", plan.UpdatedAt, updated.UpdatedAt)
	}

	_, err = store.UpdateStorePlan(ctx, plan.ID, plan.UpdatedAt, func(p *domain.StorePlan) error {
		p.Status = domain.PlanStatusCancelled
		return nil
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for stale stamp, got %v", err)
	}
	got, err := store.GetStorePlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.PlanStatusSubmitted || !got.UpdatedAt.Equal(updated.UpdatedAt) {
		t.Fatalf("stale write must leave record untouched: %#v", got)
	}

	boom := errors.New("boom")
	_, err = store.UpdateStorePlan(ctx, plan.ID, got.UpdatedAt, func(p *domain.StorePlan) error {
		p.Name = "changed"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutator error, got %v", err)
	}
	if again, _ := store.GetStorePlan(ctx, plan.ID); again.Name != "CAS" {
		t.Fatalf("failed mutator must not persist: %#v", again)
	}

	if _, err := store.UpdateStorePlan(ctx, "missing", time.Now(), func(*domain.StorePlan) error { return nil }); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func testUpdateGuardsTransitions(t *testing.T, ctx context.Context, store domain.PersistentStore) {
	plan, err := store.CreateStorePlan(ctx, draftPlan("Guard"))
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	_, err = store.UpdateStorePlan(ctx, plan.ID, plan.UpdatedAt, func(p *domain.StorePlan) error {
		p.Status = domain.PlanStatusApproved
		return nil
	})
	if !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected bad request for DRAFT -> APPROVED, got %v", err)
	}
	got, _ := store.GetStorePlan(ctx, plan.ID)
	if got.Status != domain.PlanStatusDraft || !got.UpdatedAt.Equal(plan.UpdatedAt) {
		t.Fatalf("rejected transition must not persist: %#v", got)
	}

	loc, err := store.CreateCandidateLocation(ctx, domain.CandidateLocation{Name: "Corner", Status: domain.LocationStatusPending})
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	_, err = store.UpdateCandidateLocation(ctx, loc.ID, loc.UpdatedAt, func(l *domain.CandidateLocation) error {
		l.Status = domain.LocationStatusContracted
		return nil
	})
	if !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected bad request for PENDING -> CONTRACTED, got %v", err)
	}
}

func testUpdateKeepsIdentity(t *testing.T, ctx context.Context, store domain.PersistentStore) {
	file, err := store.CreateStoreFile(ctx, domain.StoreFile{Name: "Store", Status: domain.StoreFileStatusPreparing})
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	updated, err := store.UpdateStoreFile(ctx, file.ID, file.UpdatedAt, func(f *domain.StoreFile) error {
		f.ID = "hijack"
		f.CreatedAt = time.Time{}
		f.Name = "Renamed"
		return nil
	})
	if err != nil {
		t.Fatalf("update file: %v", err)
	}
	if updated.ID != file.ID || !updated.CreatedAt.Equal(file.CreatedAt) || updated.Name != "Renamed" {
		t.Fatalf("identity must be preserved: %#v", updated.Base)
	}
	if _, err := store.GetStoreFile(ctx, "hijack"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("mutated id must not create a record, got %v", err)
	}
}

func testDelete(t *testing.T, ctx context.Context, store domain.PersistentStore) {
	followUp, err := store.CreateFollowUp(ctx, domain.FollowUpRecord{LocationID: "loc-1", Title: "Visit", Type: domain.FollowUpTypeSiteVisit, Status: domain.FollowUpStatusPending})
	if err != nil {
		t.Fatalf("create follow-up: %v", err)
	}
	if err := store.DeleteFollowUp(ctx, followUp.ID, followUp.UpdatedAt); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetFollowUp(ctx, followUp.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := store.DeleteFollowUp(ctx, followUp.ID, followUp.UpdatedAt); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	plan, err := store.CreateStorePlan(ctx, draftPlan("Gone"))
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if err := store.DeleteStorePlan(ctx, plan.ID, plan.UpdatedAt); err != nil {
		t.Fatalf("delete plan: %v", err)
	}
	plans, err := store.ListStorePlans(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(plans) != 0 {
		t.Fatalf("expected no plans, got %d", len(plans))
	}
	if err := store.DeleteCandidateLocation(ctx, "missing", time.Time{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.DeleteStoreFile(ctx, "missing", time.Time{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func testDeleteIsConditional(t *testing.T, ctx context.Context, store domain.PersistentStore) {
	plan, err := store.CreateStorePlan(ctx, draftPlan("Raced"))
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	moved, err := store.UpdateStorePlan(ctx, plan.ID, plan.UpdatedAt, func(p *domain.StorePlan) error {
		p.Status = domain.PlanStatusSubmitted
		return nil
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := store.DeleteStorePlan(ctx, plan.ID, plan.UpdatedAt); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for superseded stamp, got %v", err)
	}
	if got, err := store.GetStorePlan(ctx, plan.ID); err != nil || got.Status != domain.PlanStatusSubmitted {
		t.Fatalf("plan must survive a stale delete, got %#v %v", got, err)
	}

	planID := moved.ID
	location, err := store.CreateCandidateLocation(ctx, domain.CandidateLocation{Name: "Late", PlanID: &planID, Status: domain.LocationStatusPending})
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	if err := store.DeleteStorePlan(ctx, moved.ID, moved.UpdatedAt); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict while a location is attached, got %v", err)
	}
	if _, err := store.GetStorePlan(ctx, moved.ID); err != nil {
		t.Fatalf("plan with dependents must survive: %v", err)
	}
	if _, err := store.UpdateCandidateLocation(ctx, location.ID, location.UpdatedAt, func(l *domain.CandidateLocation) error {
		l.Status = domain.LocationStatusRejected
		return nil
	}); err != nil {
		t.Fatalf("reject location: %v", err)
	}
	if err := store.DeleteStorePlan(ctx, moved.ID, moved.UpdatedAt); err != nil {
		t.Fatalf("rejected locations must not block delete: %v", err)
	}

	file, err := store.CreateStoreFile(ctx, domain.StoreFile{Name: "Owned", Status: domain.StoreFileStatusPreparing})
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	if _, err := store.CreateAsset(ctx, domain.Asset{StoreFileID: file.ID, Name: "fridge", Value: 3}); err != nil {
		t.Fatalf("create asset: %v", err)
	}
	if err := store.DeleteStoreFile(ctx, file.ID, file.UpdatedAt); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict while an asset is attached, got %v", err)
	}
}

func testListOrdering(t *testing.T, ctx context.Context, store domain.PersistentStore) {
	for _, name := range []string{"first", "second", "third"} {
		if _, err := store.CreateCandidateLocation(ctx, domain.CandidateLocation{Name: name, Status: domain.LocationStatusPending}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	locations, err := store.ListCandidateLocations(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(locations) != 3 {
		t.Fatalf("expected 3 locations, got %d", len(locations))
	}
	if _, ok := any(store).(clockSetter); ok {
		for i, want := range []string{"first", "second", "third"} {
			if locations[i].Name != want {
				t.Fatalf("position %d: expected %s, got %s", i, want, locations[i].Name)
			}
		}
	}
	for _, status := range []domain.FollowUpStatus{domain.FollowUpStatusPending, domain.FollowUpStatusCompleted} {
		if _, err := store.CreateFollowUp(ctx, domain.FollowUpRecord{LocationID: "l", Title: "t", Status: status}); err != nil {
			t.Fatalf("create follow-up: %v", err)
		}
	}
	followUps, err := store.ListFollowUps(ctx)
	if err != nil || len(followUps) != 2 {
		t.Fatalf("list follow-ups: %d %v", len(followUps), err)
	}
	if files, err := store.ListStoreFiles(ctx); err != nil || len(files) != 0 {
		t.Fatalf("expected empty store file list, got %d %v", len(files), err)
	}
}

func testCountDependents(t *testing.T, ctx context.Context, store domain.PersistentStore) {
	plan, err := store.CreateStorePlan(ctx, draftPlan("Parent"))
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	planID := plan.ID
	for _, status := range []domain.LocationStatus{domain.LocationStatusPending, domain.LocationStatusRejected} {
		if _, err := store.CreateCandidateLocation(ctx, domain.CandidateLocation{Name: string(status), PlanID: &planID, Status: status}); err != nil {
			t.Fatalf("create location: %v", err)
		}
	}
	count, err := store.CountDependents(ctx, domain.EntityStorePlan, planID, domain.DependentActiveLocations)
	if err != nil || count != 1 {
		t.Fatalf("expected 1 active location, got %d %v", count, err)
	}

	loc, err := store.CreateCandidateLocation(ctx, domain.CandidateLocation{Name: "Followed", Status: domain.LocationStatusPending})
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	for _, status := range []domain.FollowUpStatus{domain.FollowUpStatusPending, domain.FollowUpStatusInProgress, domain.FollowUpStatusCompleted, domain.FollowUpStatusCancelled} {
		if _, err := store.CreateFollowUp(ctx, domain.FollowUpRecord{LocationID: loc.ID, Title: "t", Status: status}); err != nil {
			t.Fatalf("create follow-up: %v", err)
		}
	}
	count, err = store.CountDependents(ctx, domain.EntityCandidateLocation, loc.ID, domain.DependentActiveFollowUps)
	if err != nil || count != 2 {
		t.Fatalf("expected 2 active follow-ups, got %d %v", count, err)
	}

	file, err := store.CreateStoreFile(ctx, domain.StoreFile{Name: "Owner", Status: domain.StoreFileStatusPreparing})
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	if _, err := store.CreatePaymentItem(ctx, domain.PaymentItem{StoreFileID: file.ID, Description: "deposit", Amount: 10}); err != nil {
		t.Fatalf("create payment: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := store.CreateAsset(ctx, domain.Asset{StoreFileID: file.ID, Name: "oven", Value: 5}); err != nil {
			t.Fatalf("create asset: %v", err)
		}
	}
	if n, err := store.CountDependents(ctx, domain.EntityStoreFile, file.ID, domain.DependentPaymentItems); err != nil || n != 1 {
		t.Fatalf("expected 1 payment item, got %d %v", n, err)
	}
	if n, err := store.CountDependents(ctx, domain.EntityStoreFile, file.ID, domain.DependentAssets); err != nil || n != 2 {
		t.Fatalf("expected 2 assets, got %d %v", n, err)
	}
	if n, err := store.CountDependents(ctx, domain.EntityStoreFile, "other", domain.DependentAssets); err != nil || n != 0 {
		t.Fatalf("expected 0 assets for unrelated parent, got %d %v", n, err)
	}
	if _, err := store.CountDependents(ctx, domain.EntityStoreFile, file.ID, domain.DependentActiveLocations); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected bad request for mismatched kind, got %v", err)
	}
}

func testIncrementCounter(t *testing.T, ctx context.Context, store domain.PersistentStore) {
	plan, err := store.CreateStorePlan(ctx, draftPlan("Counter"))
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.IncrementCounter(ctx, domain.EntityStorePlan, plan.ID, domain.CounterCompletedCount, 1); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	got, err := store.GetStorePlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CompletedCount != 2 {
		t.Fatalf("expected completed count 2, got %d", got.CompletedCount)
	}
	if !got.UpdatedAt.After(plan.UpdatedAt) {
		t.Fatalf("increment must advance the stamp")
	}
	if _, err := store.UpdateStorePlan(ctx, plan.ID, plan.UpdatedAt, func(*domain.StorePlan) error { return nil }); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("update with pre-increment stamp must conflict, got %v", err)
	}
	updated, err := store.UpdateStorePlan(ctx, plan.ID, got.UpdatedAt, func(p *domain.StorePlan) error {
		p.Notes = "kept"
		return nil
	})
	if err != nil || updated.CompletedCount != 2 {
		t.Fatalf("update must keep counter: %d %v", updated.CompletedCount, err)
	}
	if err := store.IncrementCounter(ctx, domain.EntityStorePlan, "missing", domain.CounterCompletedCount, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.IncrementCounter(ctx, domain.EntityStoreFile, plan.ID, domain.CounterCompletedCount, 1); !errors.Is(err, domain.ErrBadRequest) {
		t.Fatalf("expected bad request for unsupported counter, got %v", err)
	}
}

func testSequences(t *testing.T, ctx context.Context, store domain.PersistentStore) {
	for want := int64(1); want <= 3; want++ {
		got, err := store.NextSequence(ctx, "plan-20260101")
		if err != nil {
			t.Fatalf("next sequence: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
	if got, err := store.NextSequence(ctx, "loc-20260101"); err != nil || got != 1 {
		t.Fatalf("sequences must be independent: %d %v", got, err)
	}
}

func testConcurrentUpdates(t *testing.T, ctx context.Context, store domain.PersistentStore) {
	loc, err := store.CreateCandidateLocation(ctx, domain.CandidateLocation{Name: "Race", Status: domain.LocationStatusPending})
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.UpdateCandidateLocation(ctx, loc.ID, loc.UpdatedAt, func(l *domain.CandidateLocation) error {
				l.Status = domain.LocationStatusFollowing
				return nil
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if successes != 1 || conflicts != writers-1 {
		t.Fatalf("expected exactly one winner, got %d successes and %d conflicts", successes, conflicts)
	}
}

func testNestedValues(t *testing.T, ctx context.Context, store domain.PersistentStore) {
	planID := "plan-9"
	loc, err := store.CreateCandidateLocation(ctx, domain.CandidateLocation{
		Name:   "Tagged",
		PlanID: &planID,
		Tags:   []string{"corner", "metro"},
		Status: domain.LocationStatusPending,
	})
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	got, err := store.GetCandidateLocation(ctx, loc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PlanID == nil || *got.PlanID != planID || len(got.Tags) != 2 {
		t.Fatalf("nested values lost: %#v", got)
	}
	got.Tags[0] = "mutated"
	again, _ := store.GetCandidateLocation(ctx, loc.ID)
	if again.Tags[0] != "corner" {
		t.Fatalf("returned values must not alias stored state")
	}

	opened := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	file, err := store.CreateStoreFile(ctx, domain.StoreFile{
		Name:        "Docs",
		Status:      domain.StoreFileStatusPreparing,
		OpenedAt:    &opened,
		Attachments: []domain.Attachment{{ID: "a1", Name: "lease.pdf", Key: "store-files/x/a1-lease.pdf", Size: 42}},
	})
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	fetched, err := store.GetStoreFile(ctx, file.ID)
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if fetched.OpenedAt == nil || !fetched.OpenedAt.Equal(opened) || len(fetched.Attachments) != 1 || fetched.Attachments[0].Size != 42 {
		t.Fatalf("store file values lost: %#v", fetched)
	}
}
