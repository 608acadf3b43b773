package core

import (
	"context"
	"testing"

	"expansioncore/pkg/domain"
)

func TestCreateStorePlanSeedsStateAndCode(t *testing.T) {
	f := newFixture(t)
	first := f.plan(t)
	second := f.plan(t, func(p *domain.StorePlan) { p.Quarter = 2 })

	if first.Status != domain.PlanStatusDraft || first.CreatedBy != operator {
		t.Fatalf("unexpected plan %+v", first)
	}
	if first.Code != "PLAN-20260314-0001" || second.Code != "PLAN-20260314-0002" {
		t.Fatalf("unexpected codes %s %s", first.Code, second.Code)
	}
	if first.UpdatedAt.IsZero() || !first.UpdatedAt.Equal(first.CreatedAt) {
		t.Fatalf("stamp must be seeded at creation: %+v", first.Base)
	}

	explicit := f.plan(t, func(p *domain.StorePlan) {
		p.Quarter = 3
		p.Code = "CUSTOM-1"
		p.Status = domain.PlanStatusApproved
		p.CompletedCount = 9
	})
	if explicit.Code != "CUSTOM-1" || explicit.Status != domain.PlanStatusDraft || explicit.CompletedCount != 0 {
		t.Fatalf("caller-supplied state must be ignored: %+v", explicit)
	}
}

func TestCreateStorePlanRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := f.plan(t, func(p *domain.StorePlan) { p.Code = "PLAN-A" })

	dup := domain.StorePlan{Year: 2026, Quarter: 1, RegionID: f.regionID, EntityID: f.entityID, StoreType: "FLAGSHIP"}
	_, err := f.svc.CreateStorePlan(ctx, dup, operator)
	requireKind(t, err, domain.ErrConflict)

	otherType := dup
	otherType.StoreType = "EXPRESS"
	otherType.Code = "PLAN-A"
	_, err = f.svc.CreateStorePlan(ctx, otherType, operator)
	requireKind(t, err, domain.ErrConflict)

	f.walkPlan(t, existing.ID, domain.PlanStatusCancelled)
	if _, err := f.svc.CreateStorePlan(ctx, dup, operator); err != nil {
		t.Fatalf("a cancelled plan must not block its key: %v", err)
	}
}

func TestCreateStorePlanValidatesReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inactive, err := f.store.CreateRegion(ctx, domain.Region{Code: "WEST", Name: "West"})
	if err != nil {
		t.Fatalf("seed region: %v", err)
	}

	cases := []struct {
		name   string
		plan   domain.StorePlan
		target error
	}{
		{"missing region", domain.StorePlan{RegionID: "nope", EntityID: f.entityID}, domain.ErrNotFound},
		{"inactive region", domain.StorePlan{RegionID: inactive.ID, EntityID: f.entityID}, domain.ErrNotFound},
		{"missing entity", domain.StorePlan{RegionID: f.regionID, EntityID: "nope"}, domain.ErrNotFound},
		{"negative count", domain.StorePlan{RegionID: f.regionID, EntityID: f.entityID, PlannedCount: -1}, domain.ErrBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateStorePlan(ctx, tc.plan, operator)
			requireKind(t, err, tc.target)
		})
	}
}

func TestCreateCandidateLocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.plan(t)
	location := f.location(t, &plan.ID, "1  High   Street")
	if location.Code != "LOC-20260314-0001" || location.Status != domain.LocationStatusPending {
		t.Fatalf("unexpected location %+v", location)
	}

	_, err := f.svc.CreateCandidateLocation(ctx, domain.CandidateLocation{RegionID: f.regionID, Address: "1 high street"}, operator)
	requireKind(t, err, domain.ErrConflict)

	_, err = f.svc.CreateCandidateLocation(ctx, domain.CandidateLocation{RegionID: f.regionID, Address: "2 High Street", PlanID: ptr("missing")}, operator)
	requireKind(t, err, domain.ErrNotFound)

	f.walkPlan(t, plan.ID, domain.PlanStatusCancelled)
	_, err = f.svc.CreateCandidateLocation(ctx, domain.CandidateLocation{RegionID: f.regionID, Address: "3 High Street", PlanID: &plan.ID}, operator)
	requireKind(t, err, domain.ErrForbidden)

	unlinked, err := f.svc.CreateCandidateLocation(ctx, domain.CandidateLocation{
		RegionID: f.regionID, Address: "4 High Street", PlanID: ptr(""), Tags: []string{" corner ", "corner", ""},
	}, operator)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if unlinked.PlanID != nil || len(unlinked.Tags) != 1 || unlinked.Tags[0] != "corner" {
		t.Fatalf("unexpected location %+v", unlinked)
	}
}

func TestCreateStoreFileRequiresContractedLocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	location := f.location(t, nil, "20 Station Road")
	file := domain.StoreFile{Name: "Station", RegionID: f.regionID, EntityID: f.entityID, LocationID: &location.ID}

	_, err := f.svc.CreateStoreFile(ctx, file, operator)
	requireKind(t, err, domain.ErrBadRequest)

	f.walkLocation(t, location.ID, domain.LocationStatusFollowing, domain.LocationStatusNegotiating, domain.LocationStatusContracted)
	created, err := f.svc.CreateStoreFile(ctx, file, operator)
	if err != nil {
		t.Fatalf("create store file: %v", err)
	}
	if created.Code != "SF-20260314-0001" || created.Status != domain.StoreFileStatusPreparing {
		t.Fatalf("unexpected store file %+v", created)
	}

	_, err = f.svc.CreateStoreFile(ctx, file, operator)
	requireKind(t, err, domain.ErrConflict)

	if _, err := f.svc.ChangeStoreFileStatus(ctx, created.ID, StatusChange{To: string(domain.StoreFileStatusCancelled)}, operator); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.svc.CreateStoreFile(ctx, file, operator); err != nil {
		t.Fatalf("a cancelled store file must release its location: %v", err)
	}
}

func TestCreateFollowUpAndDependents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	location := f.location(t, nil, "30 Mill Lane")

	followUp, err := f.svc.CreateFollowUp(ctx, domain.FollowUpRecord{LocationID: location.ID, Title: "Measure frontage", Status: domain.FollowUpStatusCompleted}, "op-2")
	if err != nil {
		t.Fatalf("create follow-up: %v", err)
	}
	if followUp.Status != domain.FollowUpStatusPending || followUp.Type != domain.FollowUpTypeOther || followUp.AssigneeID != "op-2" {
		t.Fatalf("unexpected follow-up %+v", followUp)
	}

	_, err = f.svc.CreateFollowUp(ctx, domain.FollowUpRecord{LocationID: "missing"}, operator)
	requireKind(t, err, domain.ErrNotFound)

	f.walkLocation(t, location.ID, domain.LocationStatusRejected)
	_, err = f.svc.CreateFollowUp(ctx, domain.FollowUpRecord{LocationID: location.ID}, operator)
	requireKind(t, err, domain.ErrForbidden)

	_, err = f.svc.AddAsset(ctx, domain.Asset{StoreFileID: "missing"}, operator)
	requireKind(t, err, domain.ErrNotFound)
}

func TestCreateReferenceData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	region, err := f.svc.CreateRegion(ctx, domain.Region{Code: "NORTH", Name: "North", Active: true}, operator)
	if err != nil || region.ID == "" {
		t.Fatalf("create region: %+v %v", region, err)
	}
	entity, err := f.svc.CreateBusinessEntity(ctx, domain.BusinessEntity{Code: "SUB", Name: "Subsidiary", Active: true}, operator)
	if err != nil || entity.ID == "" {
		t.Fatalf("create entity: %+v %v", entity, err)
	}
}
