package domain

// DependentKind names a class of child records that blocks hard deletion.
type DependentKind string

// Dependent kinds counted by the persistence layer.
const (
	DependentActiveLocations DependentKind = "active_locations"
	DependentActiveFollowUps DependentKind = "active_follow_ups"
	DependentPaymentItems    DependentKind = "payment_items"
	DependentAssets          DependentKind = "assets"
)

// DependentSpec describes how a dependent kind is resolved: the child entity type,
// the parent entity type it points at, and the child statuses that do not count.
type DependentSpec struct {
	Parent   EntityType
	Child    EntityType
	Inactive []string
}

var dependentSpecs = map[DependentKind]DependentSpec{
	DependentActiveLocations: {
		Parent:   EntityStorePlan,
		Child:    EntityCandidateLocation,
		Inactive: []string{string(LocationStatusRejected)},
	},
	DependentActiveFollowUps: {
		Parent:   EntityCandidateLocation,
		Child:    EntityFollowUp,
		Inactive: []string{string(FollowUpStatusCompleted), string(FollowUpStatusCancelled)},
	},
	DependentPaymentItems: {Parent: EntityStoreFile, Child: EntityPaymentItem},
	DependentAssets:       {Parent: EntityStoreFile, Child: EntityAsset},
}

// DependentSpecFor returns the resolution rule for kind.
func DependentSpecFor(kind DependentKind) (DependentSpec, bool) {
	spec, ok := dependentSpecs[kind]
	return spec, ok
}

// Counts reports whether a child in status counts as a live dependent.
func (s DependentSpec) Counts(status string) bool {
	for _, inactive := range s.Inactive {
		if inactive == status {
			return false
		}
	}
	return true
}

// DependentKindsFor lists the dependent kinds that block hard deletion of entity.
func DependentKindsFor(entity EntityType) []DependentKind {
	switch entity {
	case EntityStorePlan:
		return []DependentKind{DependentActiveLocations}
	case EntityCandidateLocation:
		return []DependentKind{DependentActiveFollowUps}
	case EntityStoreFile:
		return []DependentKind{DependentPaymentItems, DependentAssets}
	default:
		return nil
	}
}

// CounterField names an integer counter maintained atomically by the store.
type CounterField string

// Counter fields.
const (
	CounterCompletedCount CounterField = "completed_count"
)
