package core

import (
	"context"
	"strings"
	"time"

	"expansioncore/pkg/domain"
)

// StatusChange requests a status transition. ExpectedLastModifiedAt, when set,
// must equal the stored stamp or the change fails with a conflict.
type StatusChange struct {
	To                     string
	ExpectedLastModifiedAt *time.Time
	Reason                 string
	Comments               string
}

// lifecycle binds the generic algorithms to one entity type's store methods
// and fields.
type lifecycle[T any] struct {
	entity    domain.EntityType
	get       func(context.Context, string) (T, error)
	update    func(context.Context, string, time.Time, func(*T) error) (T, error)
	remove    func(context.Context, string, time.Time) error
	base      func(*T) *domain.Base
	status    func(*T) string
	setStatus func(*T, string)
	notes     func(*T) *string
	// entered runs inside the conditional write after the status changed.
	entered func(v *T, to string, at time.Time)
}

func planLifecycle(store domain.PersistentStore) lifecycle[domain.StorePlan] {
	return lifecycle[domain.StorePlan]{
		entity:    domain.EntityStorePlan,
		get:       store.GetStorePlan,
		update:    store.UpdateStorePlan,
		remove:    store.DeleteStorePlan,
		base:      func(p *domain.StorePlan) *domain.Base { return &p.Base },
		status:    func(p *domain.StorePlan) string { return string(p.Status) },
		setStatus: func(p *domain.StorePlan, to string) { p.Status = domain.PlanStatus(to) },
		notes:     func(p *domain.StorePlan) *string { return &p.Notes },
	}
}

func locationLifecycle(store domain.PersistentStore) lifecycle[domain.CandidateLocation] {
	return lifecycle[domain.CandidateLocation]{
		entity:    domain.EntityCandidateLocation,
		get:       store.GetCandidateLocation,
		update:    store.UpdateCandidateLocation,
		remove:    store.DeleteCandidateLocation,
		base:      func(l *domain.CandidateLocation) *domain.Base { return &l.Base },
		status:    func(l *domain.CandidateLocation) string { return string(l.Status) },
		setStatus: func(l *domain.CandidateLocation, to string) { l.Status = domain.LocationStatus(to) },
		notes:     func(l *domain.CandidateLocation) *string { return &l.Notes },
	}
}

func storeFileLifecycle(store domain.PersistentStore) lifecycle[domain.StoreFile] {
	return lifecycle[domain.StoreFile]{
		entity:    domain.EntityStoreFile,
		get:       store.GetStoreFile,
		update:    store.UpdateStoreFile,
		remove:    store.DeleteStoreFile,
		base:      func(f *domain.StoreFile) *domain.Base { return &f.Base },
		status:    func(f *domain.StoreFile) string { return string(f.Status) },
		setStatus: func(f *domain.StoreFile, to string) { f.Status = domain.StoreFileStatus(to) },
		notes:     func(f *domain.StoreFile) *string { return &f.Notes },
		entered: func(f *domain.StoreFile, to string, at time.Time) {
			if to == string(domain.StoreFileStatusOperating) && f.OpenedAt == nil {
				opened := at
				f.OpenedAt = &opened
			}
		},
	}
}

func followUpLifecycle(store domain.PersistentStore) lifecycle[domain.FollowUpRecord] {
	return lifecycle[domain.FollowUpRecord]{
		entity:    domain.EntityFollowUp,
		get:       store.GetFollowUp,
		update:    store.UpdateFollowUp,
		remove:    store.DeleteFollowUp,
		base:      func(f *domain.FollowUpRecord) *domain.Base { return &f.Base },
		status:    func(f *domain.FollowUpRecord) string { return string(f.Status) },
		setStatus: func(f *domain.FollowUpRecord, to string) { f.Status = domain.FollowUpStatus(to) },
		notes:     func(f *domain.FollowUpRecord) *string { return &f.Notes },
	}
}

// changeStatus runs fetch, concurrency check, transition check, conditional
// write and side effects, in that order.
func changeStatus[T any](ctx context.Context, s *Service, lc lifecycle[T], id string, change StatusChange, operatorID string) (T, error) {
	var zero T
	to := strings.TrimSpace(change.To)
	if to == "" {
		return zero, domain.NewBadRequestError("target status is required for %s %s", domain.EntityLabel(lc.entity), id)
	}

	current, err := lc.get(ctx, id)
	if err != nil {
		return zero, err
	}
	observed := lc.base(&current).LastModifiedAt()
	if err := domain.CheckConcurrency(lc.entity, id, observed, change.ExpectedLastModifiedAt); err != nil {
		return zero, err
	}
	from := lc.status(&current)
	if !domain.IsValidTransition(lc.entity, from, to) {
		return zero, domain.NewInvalidTransitionError(lc.entity, id, from, to)
	}

	at := s.now()
	note := domain.StatusNote(from, to, operatorID, change.Reason, change.Comments, at)
	updated, err := lc.update(ctx, id, observed, func(v *T) error {
		lc.setStatus(v, to)
		notes := lc.notes(v)
		*notes = domain.AppendNote(*notes, note)
		if lc.entered != nil {
			lc.entered(v, to, at)
		}
		return nil
	})
	if err != nil {
		return zero, err
	}
	s.logger.Info("status changed", "entity", lc.entity, "id", id, "from", from, "to", to, "operator", operatorID)

	event := transitionEvent{entity: lc.entity, id: id, from: from, to: to, operatorID: operatorID, record: updated}
	if err := s.dispatchSideEffects(ctx, event); err != nil {
		return updated, err
	}
	return updated, nil
}

// ChangePlanStatus moves a store plan along its transition table.
func (s *Service) ChangePlanStatus(ctx context.Context, id string, change StatusChange, operatorID string) (plan domain.StorePlan, err error) {
	ctx, finish := s.begin(ctx, opChangePlanStatus, operatorID)
	defer func() { finish(id, err) }()
	return changeStatus(ctx, s, planLifecycle(s.store), id, change, operatorID)
}

// ChangeLocationStatus moves a candidate location along its transition table.
// Entering CONTRACTED increments the parent plan's completed count and
// PENDING -> FOLLOWING opens a site-visit follow-up.
func (s *Service) ChangeLocationStatus(ctx context.Context, id string, change StatusChange, operatorID string) (location domain.CandidateLocation, err error) {
	ctx, finish := s.begin(ctx, opChangeLocationStatus, operatorID)
	defer func() { finish(id, err) }()
	return changeStatus(ctx, s, locationLifecycle(s.store), id, change, operatorID)
}

// ChangeStoreFileStatus moves a store file along its transition table. The
// first move into OPERATING stamps OpenedAt.
func (s *Service) ChangeStoreFileStatus(ctx context.Context, id string, change StatusChange, operatorID string) (file domain.StoreFile, err error) {
	ctx, finish := s.begin(ctx, opChangeStoreFileStatus, operatorID)
	defer func() { finish(id, err) }()
	return changeStatus(ctx, s, storeFileLifecycle(s.store), id, change, operatorID)
}

// ChangeFollowUpStatus moves a follow-up along its transition table.
func (s *Service) ChangeFollowUpStatus(ctx context.Context, id string, change StatusChange, operatorID string) (followUp domain.FollowUpRecord, err error) {
	ctx, finish := s.begin(ctx, opChangeFollowUpStatus, operatorID)
	defer func() { finish(id, err) }()
	return changeStatus(ctx, s, followUpLifecycle(s.store), id, change, operatorID)
}

// ChangeStatus dispatches a status change by entity type and discards the
// updated record.
func (s *Service) ChangeStatus(ctx context.Context, entity domain.EntityType, id string, change StatusChange, operatorID string) error {
	var err error
	switch entity {
	case domain.EntityStorePlan:
		_, err = s.ChangePlanStatus(ctx, id, change, operatorID)
	case domain.EntityCandidateLocation:
		_, err = s.ChangeLocationStatus(ctx, id, change, operatorID)
	case domain.EntityStoreFile:
		_, err = s.ChangeStoreFileStatus(ctx, id, change, operatorID)
	case domain.EntityFollowUp:
		_, err = s.ChangeFollowUpStatus(ctx, id, change, operatorID)
	default:
		err = unsupportedEntity(entity)
	}
	return err
}

func unsupportedEntity(entity domain.EntityType) error {
	return domain.NewBadRequestError("%s is not a lifecycle entity", entity)
}
