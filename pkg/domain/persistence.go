package domain

import (
	"context"
	"time"
)

// PersistentStore is the persistence collaborator of the lifecycle service.
//
// Update methods are conditional: the mutator runs only when the stored
// UpdatedAt equals observed, and the check and the write happen atomically.
// A mismatch yields a ConflictError and leaves the record untouched. Every
// successful write advances UpdatedAt (see NextStamp). Stores also reject
// mutators that move Status along an edge missing from the transition table.
//
// Delete methods are conditional in the same way and additionally refuse to
// remove a record that still has live dependents (see DependentKindsFor).
// Both refusals are ConflictErrors.
type PersistentStore interface {
	CreateStorePlan(ctx context.Context, plan StorePlan) (StorePlan, error)
	GetStorePlan(ctx context.Context, id string) (StorePlan, error)
	ListStorePlans(ctx context.Context) ([]StorePlan, error)
	UpdateStorePlan(ctx context.Context, id string, observed time.Time, mutator func(*StorePlan) error) (StorePlan, error)
	DeleteStorePlan(ctx context.Context, id string, observed time.Time) error

	CreateCandidateLocation(ctx context.Context, location CandidateLocation) (CandidateLocation, error)
	GetCandidateLocation(ctx context.Context, id string) (CandidateLocation, error)
	ListCandidateLocations(ctx context.Context) ([]CandidateLocation, error)
	UpdateCandidateLocation(ctx context.Context, id string, observed time.Time, mutator func(*CandidateLocation) error) (CandidateLocation, error)
	DeleteCandidateLocation(ctx context.Context, id string, observed time.Time) error

	CreateStoreFile(ctx context.Context, file StoreFile) (StoreFile, error)
	GetStoreFile(ctx context.Context, id string) (StoreFile, error)
	ListStoreFiles(ctx context.Context) ([]StoreFile, error)
	UpdateStoreFile(ctx context.Context, id string, observed time.Time, mutator func(*StoreFile) error) (StoreFile, error)
	DeleteStoreFile(ctx context.Context, id string, observed time.Time) error

	CreateFollowUp(ctx context.Context, followUp FollowUpRecord) (FollowUpRecord, error)
	GetFollowUp(ctx context.Context, id string) (FollowUpRecord, error)
	ListFollowUps(ctx context.Context) ([]FollowUpRecord, error)
	UpdateFollowUp(ctx context.Context, id string, observed time.Time, mutator func(*FollowUpRecord) error) (FollowUpRecord, error)
	DeleteFollowUp(ctx context.Context, id string, observed time.Time) error

	CreateRegion(ctx context.Context, region Region) (Region, error)
	GetRegion(ctx context.Context, id string) (Region, error)
	CreateBusinessEntity(ctx context.Context, entity BusinessEntity) (BusinessEntity, error)
	GetBusinessEntity(ctx context.Context, id string) (BusinessEntity, error)
	CreatePaymentItem(ctx context.Context, item PaymentItem) (PaymentItem, error)
	CreateAsset(ctx context.Context, asset Asset) (Asset, error)

	// CountDependents counts live children of kind pointing at the parent id.
	CountDependents(ctx context.Context, entity EntityType, id string, kind DependentKind) (int, error)
	// IncrementCounter atomically adds amount to a counter on the record and
	// advances its stamp.
	IncrementCounter(ctx context.Context, entity EntityType, id string, field CounterField, amount int) error
	// NextSequence returns the next value (starting at 1) of the named sequence.
	NextSequence(ctx context.Context, name string) (int64, error)

	Close() error
}
