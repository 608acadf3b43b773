package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"expansioncore/internal/infra/persistence/memory"
	"expansioncore/pkg/domain"
)

const operator = "op-1"

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	store    *memory.Store
	regionID string
	entityID string
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	store := memory.NewStore()
	var mu sync.Mutex
	storeNow := fixedNow
	store.SetNowFunc(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		storeNow = storeNow.Add(time.Second)
		return storeNow
	})
	opts = append([]Option{WithClock(ClockFunc(func() time.Time { return fixedNow }))}, opts...)
	svc := NewService(store, opts...)

	ctx := context.Background()
	region, err := store.CreateRegion(ctx, domain.Region{Code: "EAST", Name: "East", Active: true})
	if err != nil {
		t.Fatalf("seed region: %v", err)
	}
	entity, err := store.CreateBusinessEntity(ctx, domain.BusinessEntity{Code: "ACME", Name: "Acme Retail", Active: true})
	if err != nil {
		t.Fatalf("seed entity: %v", err)
	}
	return fixture{svc: svc, store: store, regionID: region.ID, entityID: entity.ID}
}

func (f fixture) plan(t *testing.T, mutate ...func(*domain.StorePlan)) domain.StorePlan {
	t.Helper()
	plan := domain.StorePlan{
		Name:         "Q1 expansion",
		Year:         2026,
		Quarter:      1,
		RegionID:     f.regionID,
		EntityID:     f.entityID,
		StoreType:    "FLAGSHIP",
		PlannedCount: 5,
	}
	for _, m := range mutate {
		m(&plan)
	}
	created, err := f.svc.CreateStorePlan(context.Background(), plan, operator)
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	return created
}

func (f fixture) location(t *testing.T, planID *string, address string) domain.CandidateLocation {
	t.Helper()
	created, err := f.svc.CreateCandidateLocation(context.Background(), domain.CandidateLocation{
		Name:     "Site " + address,
		Address:  address,
		RegionID: f.regionID,
		PlanID:   planID,
	}, operator)
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	return created
}

func (f fixture) storeFile(t *testing.T, locationID *string) domain.StoreFile {
	t.Helper()
	created, err := f.svc.CreateStoreFile(context.Background(), domain.StoreFile{
		Name:       "Store",
		StoreType:  "FLAGSHIP",
		RegionID:   f.regionID,
		EntityID:   f.entityID,
		LocationID: locationID,
	}, operator)
	if err != nil {
		t.Fatalf("create store file: %v", err)
	}
	return created
}

// walkPlan moves a plan through the given statuses.
func (f fixture) walkPlan(t *testing.T, id string, statuses ...domain.PlanStatus) domain.StorePlan {
	t.Helper()
	var plan domain.StorePlan
	for _, to := range statuses {
		var err error
		plan, err = f.svc.ChangePlanStatus(context.Background(), id, StatusChange{To: string(to)}, operator)
		if err != nil {
			t.Fatalf("plan -> %s: %v", to, err)
		}
	}
	return plan
}

func (f fixture) walkLocation(t *testing.T, id string, statuses ...domain.LocationStatus) domain.CandidateLocation {
	t.Helper()
	var location domain.CandidateLocation
	for _, to := range statuses {
		var err error
		location, err = f.svc.ChangeLocationStatus(context.Background(), id, StatusChange{To: string(to)}, operator)
		if err != nil {
			t.Fatalf("location -> %s: %v", to, err)
		}
	}
	return location
}

func ptr[T any](v T) *T { return &v }

func requireKind(t *testing.T, err error, sentinel error) {
	t.Helper()
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected %v, got %v", sentinel, err)
	}
}

// faultyStore wraps a store and fails selected calls.
type faultyStore struct {
	domain.PersistentStore
	incrementErr  error
	followUpErr   error
	updateFileErr error
}

func (s *faultyStore) IncrementCounter(ctx context.Context, entity domain.EntityType, id string, field domain.CounterField, amount int) error {
	if s.incrementErr != nil {
		return s.incrementErr
	}
	return s.PersistentStore.IncrementCounter(ctx, entity, id, field, amount)
}

func (s *faultyStore) CreateFollowUp(ctx context.Context, followUp domain.FollowUpRecord) (domain.FollowUpRecord, error) {
	if s.followUpErr != nil {
		return domain.FollowUpRecord{}, s.followUpErr
	}
	return s.PersistentStore.CreateFollowUp(ctx, followUp)
}

func (s *faultyStore) UpdateStoreFile(ctx context.Context, id string, observed time.Time, mutator func(*domain.StoreFile) error) (domain.StoreFile, error) {
	if s.updateFileErr != nil {
		return domain.StoreFile{}, s.updateFileErr
	}
	return s.PersistentStore.UpdateStoreFile(ctx, id, observed, mutator)
}

// racingStore runs interleave once, just before the first dependent count
// returns, to simulate a writer landing between read and delete.
type racingStore struct {
	domain.PersistentStore
	once       sync.Once
	interleave func()
}

func (s *racingStore) CountDependents(ctx context.Context, entity domain.EntityType, id string, kind domain.DependentKind) (int, error) {
	n, err := s.PersistentStore.CountDependents(ctx, entity, id, kind)
	s.once.Do(s.interleave)
	return n, err
}
