// Package memory provides an in-memory implementation of the persistence
// collaborator used for tests, the CLI's snapshot mode and ephemeral environments.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"expansioncore/pkg/domain"

	"github.com/google/uuid"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type memoryState struct {
	plans     map[string]domain.StorePlan
	locations map[string]domain.CandidateLocation
	files     map[string]domain.StoreFile
	followUps map[string]domain.FollowUpRecord
	regions   map[string]domain.Region
	entities  map[string]domain.BusinessEntity
	payments  map[string]domain.PaymentItem
	assets    map[string]domain.Asset
	sequences map[string]int64
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Plans            map[string]domain.StorePlan         `json:"plans"`
	Locations        map[string]domain.CandidateLocation `json:"locations"`
	StoreFiles       map[string]domain.StoreFile         `json:"store_files"`
	FollowUps        map[string]domain.FollowUpRecord    `json:"follow_ups"`
	Regions          map[string]domain.Region            `json:"regions"`
	BusinessEntities map[string]domain.BusinessEntity    `json:"business_entities"`
	PaymentItems     map[string]domain.PaymentItem       `json:"payment_items"`
	Assets           map[string]domain.Asset             `json:"assets"`
	Sequences        map[string]int64                    `json:"sequences"`
}

func newMemoryState() memoryState {
	return memoryState{
		plans:     make(map[string]domain.StorePlan),
		locations: make(map[string]domain.CandidateLocation),
		files:     make(map[string]domain.StoreFile),
		followUps: make(map[string]domain.FollowUpRecord),
		regions:   make(map[string]domain.Region),
		entities:  make(map[string]domain.BusinessEntity),
		payments:  make(map[string]domain.PaymentItem),
		assets:    make(map[string]domain.Asset),
		sequences: make(map[string]int64),
	}
}

func cloneMap[T any](in map[string]T, clone func(T) T) map[string]T {
	out := make(map[string]T, len(in))
	for k, v := range in {
		out[k] = clone(v)
	}
	return out
}

func identity[T any](v T) T { return v }

func snapshotFromMemoryState(state memoryState) Snapshot {
	return Snapshot{
		Plans:            cloneMap(state.plans, identity[domain.StorePlan]),
		Locations:        cloneMap(state.locations, cloneLocation),
		StoreFiles:       cloneMap(state.files, cloneStoreFile),
		FollowUps:        cloneMap(state.followUps, cloneFollowUp),
		Regions:          cloneMap(state.regions, identity[domain.Region]),
		BusinessEntities: cloneMap(state.entities, identity[domain.BusinessEntity]),
		PaymentItems:     cloneMap(state.payments, identity[domain.PaymentItem]),
		Assets:           cloneMap(state.assets, identity[domain.Asset]),
		Sequences:        cloneMap(state.sequences, identity[int64]),
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	return memoryState{
		plans:     cloneMap(s.Plans, identity[domain.StorePlan]),
		locations: cloneMap(s.Locations, cloneLocation),
		files:     cloneMap(s.StoreFiles, cloneStoreFile),
		followUps: cloneMap(s.FollowUps, cloneFollowUp),
		regions:   cloneMap(s.Regions, identity[domain.Region]),
		entities:  cloneMap(s.BusinessEntities, identity[domain.BusinessEntity]),
		payments:  cloneMap(s.PaymentItems, identity[domain.PaymentItem]),
		assets:    cloneMap(s.Assets, identity[domain.Asset]),
		sequences: cloneMap(s.Sequences, identity[int64]),
	}
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTimePtr(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneLocation(l domain.CandidateLocation) domain.CandidateLocation {
	cp := l
	cp.PlanID = cloneStringPtr(l.PlanID)
	cp.Tags = append([]string(nil), l.Tags...)
	return cp
}

func cloneStoreFile(f domain.StoreFile) domain.StoreFile {
	cp := f
	cp.LocationID = cloneStringPtr(f.LocationID)
	cp.OpenedAt = cloneTimePtr(f.OpenedAt)
	cp.Tags = append([]string(nil), f.Tags...)
	cp.Attachments = append([]domain.Attachment(nil), f.Attachments...)
	return cp
}

func cloneFollowUp(f domain.FollowUpRecord) domain.FollowUpRecord {
	cp := f
	cp.DueAt = cloneTimePtr(f.DueAt)
	return cp
}

// Store keeps all records in process memory. A single mutex serialises writes,
// which makes every conditional update atomic.
type Store struct {
	mu    sync.RWMutex
	state memoryState
	nowFn func() time.Time
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the clock used to stamp writes.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

func (s *Store) now() time.Time {
	return s.nowFn().UTC().Round(0)
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// WriteSnapshot encodes the current state as JSON.
func (s *Store) WriteSnapshot(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.ExportState()); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot replaces the current state with a JSON snapshot.
func (s *Store) ReadSnapshot(r io.Reader) error {
	var snapshot Snapshot
	if err := json.NewDecoder(r).Decode(&snapshot); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	s.ImportState(snapshot)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// record describes how the generic helpers reach the shared fields of T.
type record[T any] struct {
	entity domain.EntityType
	rows   func(*memoryState) map[string]T
	base   func(*T) *domain.Base
	status func(*T) string
	clone  func(T) T
}

var (
	planRecord = record[domain.StorePlan]{
		entity: domain.EntityStorePlan,
		rows:   func(s *memoryState) map[string]domain.StorePlan { return s.plans },
		base:   func(p *domain.StorePlan) *domain.Base { return &p.Base },
		status: func(p *domain.StorePlan) string { return string(p.Status) },
		clone:  identity[domain.StorePlan],
	}
	locationRecord = record[domain.CandidateLocation]{
		entity: domain.EntityCandidateLocation,
		rows:   func(s *memoryState) map[string]domain.CandidateLocation { return s.locations },
		base:   func(l *domain.CandidateLocation) *domain.Base { return &l.Base },
		status: func(l *domain.CandidateLocation) string { return string(l.Status) },
		clone:  cloneLocation,
	}
	fileRecord = record[domain.StoreFile]{
		entity: domain.EntityStoreFile,
		rows:   func(s *memoryState) map[string]domain.StoreFile { return s.files },
		base:   func(f *domain.StoreFile) *domain.Base { return &f.Base },
		status: func(f *domain.StoreFile) string { return string(f.Status) },
		clone:  cloneStoreFile,
	}
	followUpRecord = record[domain.FollowUpRecord]{
		entity: domain.EntityFollowUp,
		rows:   func(s *memoryState) map[string]domain.FollowUpRecord { return s.followUps },
		base:   func(f *domain.FollowUpRecord) *domain.Base { return &f.Base },
		status: func(f *domain.FollowUpRecord) string { return string(f.Status) },
		clone:  cloneFollowUp,
	}
	regionRecord = record[domain.Region]{
		entity: domain.EntityRegion,
		rows:   func(s *memoryState) map[string]domain.Region { return s.regions },
		base:   func(r *domain.Region) *domain.Base { return &r.Base },
		clone:  identity[domain.Region],
	}
	businessEntityRecord = record[domain.BusinessEntity]{
		entity: domain.EntityBusinessEntity,
		rows:   func(s *memoryState) map[string]domain.BusinessEntity { return s.entities },
		base:   func(e *domain.BusinessEntity) *domain.Base { return &e.Base },
		clone:  identity[domain.BusinessEntity],
	}
	paymentRecord = record[domain.PaymentItem]{
		entity: domain.EntityPaymentItem,
		rows:   func(s *memoryState) map[string]domain.PaymentItem { return s.payments },
		base:   func(p *domain.PaymentItem) *domain.Base { return &p.Base },
		clone:  identity[domain.PaymentItem],
	}
	assetRecord = record[domain.Asset]{
		entity: domain.EntityAsset,
		rows:   func(s *memoryState) map[string]domain.Asset { return s.assets },
		base:   func(a *domain.Asset) *domain.Base { return &a.Base },
		clone:  identity[domain.Asset],
	}
)

func create[T any](s *Store, r record[T], v T) (T, error) {
	var zero T
	if r.status != nil {
		if status := r.status(&v); !domain.IsKnownStatus(r.entity, status) {
			return zero, domain.NewBadRequestError("%s status %q is not a known status", domain.EntityLabel(r.entity), status)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := r.rows(&s.state)
	base := r.base(&v)
	if base.ID == "" {
		base.ID = uuid.NewString()
	}
	if _, exists := rows[base.ID]; exists {
		return zero, domain.NewDuplicateError(r.entity, base.ID, "id already exists")
	}
	now := s.now()
	base.CreatedAt = now
	base.UpdatedAt = now
	rows[base.ID] = r.clone(v)
	return r.clone(v), nil
}

func get[T any](s *Store, r record[T], id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := r.rows(&s.state)[id]
	if !ok {
		var zero T
		return zero, domain.NewNotFoundError(r.entity, id)
	}
	return r.clone(v), nil
}

func list[T any](s *Store, r record[T]) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := r.rows(&s.state)
	out := make([]T, 0, len(rows))
	for _, v := range rows {
		out = append(out, r.clone(v))
	}
	sort.Slice(out, func(i, j int) bool {
		bi, bj := r.base(&out[i]), r.base(&out[j])
		if bi.CreatedAt.Equal(bj.CreatedAt) {
			return bi.ID < bj.ID
		}
		return bi.CreatedAt.Before(bj.CreatedAt)
	})
	return out
}

// update applies mutator when the stored stamp still equals observed. The
// comparison, the status guard and the write all happen under the write lock.
func update[T any](s *Store, r record[T], id string, observed time.Time, mutator func(*T) error) (T, error) {
	var zero T
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := r.rows(&s.state)
	current, ok := rows[id]
	if !ok {
		return zero, domain.NewNotFoundError(r.entity, id)
	}
	before := r.base(&current)
	if !before.UpdatedAt.Equal(observed) {
		return zero, domain.NewStaleWriteError(r.entity, id, observed, before.UpdatedAt)
	}
	next := r.clone(current)
	if err := mutator(&next); err != nil {
		return zero, err
	}
	if r.status != nil {
		if err := domain.GuardStatusChange(r.entity, id, r.status(&current), r.status(&next)); err != nil {
			return zero, err
		}
	}
	after := r.base(&next)
	after.ID = id
	after.CreatedAt = before.CreatedAt
	after.UpdatedAt = domain.NextStamp(before.UpdatedAt, s.now())
	rows[id] = r.clone(next)
	return r.clone(next), nil
}

func remove[T any](s *Store, r record[T], id string, observed time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := r.rows(&s.state)
	current, ok := rows[id]
	if !ok {
		return domain.NewNotFoundError(r.entity, id)
	}
	if stored := r.base(&current).UpdatedAt; !stored.Equal(observed) {
		return domain.NewStaleWriteError(r.entity, id, observed, stored)
	}
	// Attaching a child does not advance the parent's stamp.
	for _, kind := range domain.DependentKindsFor(r.entity) {
		spec, _ := domain.DependentSpecFor(kind)
		if s.dependentsLocked(kind, spec, id) > 0 {
			return domain.NewDependentsAttachedError(r.entity, id)
		}
	}
	delete(rows, id)
	return nil
}

// CreateStorePlan stores a new plan.
func (s *Store) CreateStorePlan(_ context.Context, plan domain.StorePlan) (domain.StorePlan, error) {
	return create(s, planRecord, plan)
}

// GetStorePlan retrieves a plan by ID.
func (s *Store) GetStorePlan(_ context.Context, id string) (domain.StorePlan, error) {
	return get(s, planRecord, id)
}

// ListStorePlans returns all plans ordered by creation.
func (s *Store) ListStorePlans(_ context.Context) ([]domain.StorePlan, error) {
	return list(s, planRecord), nil
}

// UpdateStorePlan conditionally mutates a plan.
func (s *Store) UpdateStorePlan(_ context.Context, id string, observed time.Time, mutator func(*domain.StorePlan) error) (domain.StorePlan, error) {
	return update(s, planRecord, id, observed, mutator)
}

// DeleteStorePlan removes a plan.
func (s *Store) DeleteStorePlan(_ context.Context, id string, observed time.Time) error {
	return remove(s, planRecord, id, observed)
}

// CreateCandidateLocation stores a new location.
func (s *Store) CreateCandidateLocation(_ context.Context, location domain.CandidateLocation) (domain.CandidateLocation, error) {
	return create(s, locationRecord, location)
}

// GetCandidateLocation retrieves a location by ID.
func (s *Store) GetCandidateLocation(_ context.Context, id string) (domain.CandidateLocation, error) {
	return get(s, locationRecord, id)
}

// ListCandidateLocations returns all locations ordered by creation.
func (s *Store) ListCandidateLocations(_ context.Context) ([]domain.CandidateLocation, error) {
	return list(s, locationRecord), nil
}

// UpdateCandidateLocation conditionally mutates a location.
func (s *Store) UpdateCandidateLocation(_ context.Context, id string, observed time.Time, mutator func(*domain.CandidateLocation) error) (domain.CandidateLocation, error) {
	return update(s, locationRecord, id, observed, mutator)
}

// DeleteCandidateLocation removes a location.
func (s *Store) DeleteCandidateLocation(_ context.Context, id string, observed time.Time) error {
	return remove(s, locationRecord, id, observed)
}

// CreateStoreFile stores a new store file.
func (s *Store) CreateStoreFile(_ context.Context, file domain.StoreFile) (domain.StoreFile, error) {
	return create(s, fileRecord, file)
}

// GetStoreFile retrieves a store file by ID.
func (s *Store) GetStoreFile(_ context.Context, id string) (domain.StoreFile, error) {
	return get(s, fileRecord, id)
}

// ListStoreFiles returns all store files ordered by creation.
func (s *Store) ListStoreFiles(_ context.Context) ([]domain.StoreFile, error) {
	return list(s, fileRecord), nil
}

// UpdateStoreFile conditionally mutates a store file.
func (s *Store) UpdateStoreFile(_ context.Context, id string, observed time.Time, mutator func(*domain.StoreFile) error) (domain.StoreFile, error) {
	return update(s, fileRecord, id, observed, mutator)
}

// DeleteStoreFile removes a store file.
func (s *Store) DeleteStoreFile(_ context.Context, id string, observed time.Time) error {
	return remove(s, fileRecord, id, observed)
}

// CreateFollowUp stores a new follow-up record.
func (s *Store) CreateFollowUp(_ context.Context, followUp domain.FollowUpRecord) (domain.FollowUpRecord, error) {
	return create(s, followUpRecord, followUp)
}

// GetFollowUp retrieves a follow-up by ID.
func (s *Store) GetFollowUp(_ context.Context, id string) (domain.FollowUpRecord, error) {
	return get(s, followUpRecord, id)
}

// ListFollowUps returns all follow-ups ordered by creation.
func (s *Store) ListFollowUps(_ context.Context) ([]domain.FollowUpRecord, error) {
	return list(s, followUpRecord), nil
}

// UpdateFollowUp conditionally mutates a follow-up.
func (s *Store) UpdateFollowUp(_ context.Context, id string, observed time.Time, mutator func(*domain.FollowUpRecord) error) (domain.FollowUpRecord, error) {
	return update(s, followUpRecord, id, observed, mutator)
}

// DeleteFollowUp removes a follow-up.
func (s *Store) DeleteFollowUp(_ context.Context, id string, observed time.Time) error {
	return remove(s, followUpRecord, id, observed)
}

// CreateRegion stores region reference data.
func (s *Store) CreateRegion(_ context.Context, region domain.Region) (domain.Region, error) {
	return create(s, regionRecord, region)
}

// GetRegion retrieves a region by ID.
func (s *Store) GetRegion(_ context.Context, id string) (domain.Region, error) {
	return get(s, regionRecord, id)
}

// CreateBusinessEntity stores business entity reference data.
func (s *Store) CreateBusinessEntity(_ context.Context, entity domain.BusinessEntity) (domain.BusinessEntity, error) {
	return create(s, businessEntityRecord, entity)
}

// GetBusinessEntity retrieves a business entity by ID.
func (s *Store) GetBusinessEntity(_ context.Context, id string) (domain.BusinessEntity, error) {
	return get(s, businessEntityRecord, id)
}

// CreatePaymentItem stores a payment item.
func (s *Store) CreatePaymentItem(_ context.Context, item domain.PaymentItem) (domain.PaymentItem, error) {
	return create(s, paymentRecord, item)
}

// CreateAsset stores an asset.
func (s *Store) CreateAsset(_ context.Context, asset domain.Asset) (domain.Asset, error) {
	return create(s, assetRecord, asset)
}

// CountDependents counts live children of kind pointing at id.
func (s *Store) CountDependents(_ context.Context, entity domain.EntityType, id string, kind domain.DependentKind) (int, error) {
	spec, ok := domain.DependentSpecFor(kind)
	if !ok || spec.Parent != entity {
		return 0, domain.NewBadRequestError("dependent kind %q does not apply to %s", kind, domain.EntityLabel(entity))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dependentsLocked(kind, spec, id), nil
}

// dependentsLocked counts live dependents of id. Callers hold s.mu.
func (s *Store) dependentsLocked(kind domain.DependentKind, spec domain.DependentSpec, id string) int {
	count := 0
	switch kind {
	case domain.DependentActiveLocations:
		for _, l := range s.state.locations {
			if l.PlanID != nil && *l.PlanID == id && spec.Counts(string(l.Status)) {
				count++
			}
		}
	case domain.DependentActiveFollowUps:
		for _, f := range s.state.followUps {
			if f.LocationID == id && spec.Counts(string(f.Status)) {
				count++
			}
		}
	case domain.DependentPaymentItems:
		for _, p := range s.state.payments {
			if p.StoreFileID == id {
				count++
			}
		}
	case domain.DependentAssets:
		for _, a := range s.state.assets {
			if a.StoreFileID == id {
				count++
			}
		}
	}
	return count
}

// IncrementCounter adds amount to a plan counter and advances the plan stamp.
func (s *Store) IncrementCounter(_ context.Context, entity domain.EntityType, id string, field domain.CounterField, amount int) error {
	if entity != domain.EntityStorePlan || field != domain.CounterCompletedCount {
		return domain.NewBadRequestError("counter %s is not maintained on %s", field, domain.EntityLabel(entity))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, ok := s.state.plans[id]
	if !ok {
		return domain.NewNotFoundError(entity, id)
	}
	plan.CompletedCount += amount
	plan.UpdatedAt = domain.NextStamp(plan.UpdatedAt, s.now())
	s.state.plans[id] = plan
	return nil
}

// NextSequence returns the next value of the named sequence.
func (s *Store) NextSequence(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.sequences[name]++
	return s.state.sequences[name], nil
}
