package core

import (
	"context"
	"fmt"

	"expansioncore/pkg/domain"
)

// DeleteOutcome reports how a delete request was carried out.
type DeleteOutcome string

// Delete outcomes.
const (
	DeleteHard DeleteOutcome = "hard"
	DeleteSoft DeleteOutcome = "soft"
)

// canHardDelete holds when the status is not protected and nothing depends on
// the record.
func canHardDelete(entity domain.EntityType, status string, dependents int) bool {
	return dependents == 0 && !domain.IsProtected(entity, status)
}

// CanHardDelete reports whether a delete request for the record would remove
// it physically.
func (s *Service) CanHardDelete(ctx context.Context, entity domain.EntityType, id string) (bool, error) {
	status, err := s.currentStatus(ctx, entity, id)
	if err != nil {
		return false, err
	}
	dependents, err := s.countDependents(ctx, entity, id)
	if err != nil {
		return false, err
	}
	return canHardDelete(entity, status, dependents), nil
}

func (s *Service) currentStatus(ctx context.Context, entity domain.EntityType, id string) (string, error) {
	switch entity {
	case domain.EntityStorePlan:
		v, err := s.store.GetStorePlan(ctx, id)
		return string(v.Status), err
	case domain.EntityCandidateLocation:
		v, err := s.store.GetCandidateLocation(ctx, id)
		return string(v.Status), err
	case domain.EntityStoreFile:
		v, err := s.store.GetStoreFile(ctx, id)
		return string(v.Status), err
	case domain.EntityFollowUp:
		v, err := s.store.GetFollowUp(ctx, id)
		return string(v.Status), err
	default:
		return "", unsupportedEntity(entity)
	}
}

func (s *Service) countDependents(ctx context.Context, entity domain.EntityType, id string) (int, error) {
	total := 0
	for _, kind := range domain.DependentKindsFor(entity) {
		n, err := s.store.CountDependents(ctx, entity, id, kind)
		if err != nil {
			return 0, fmt.Errorf("count %s of %s %s: %w", kind, domain.EntityLabel(entity), id, err)
		}
		total += n
	}
	return total, nil
}

// deleteRecord rejects protected records, removes records without
// dependents and otherwise moves the record to its removed status.
func deleteRecord[T any](ctx context.Context, s *Service, lc lifecycle[T], id, operatorID string) (DeleteOutcome, error) {
	current, err := lc.get(ctx, id)
	if err != nil {
		return "", err
	}
	status := lc.status(&current)
	observed := lc.base(&current).LastModifiedAt()
	if domain.IsProtected(lc.entity, status) {
		return "", domain.NewForbiddenError(lc.entity, id, fmt.Sprintf("cannot be deleted in status %s", status))
	}
	dependents, err := s.countDependents(ctx, lc.entity, id)
	if err != nil {
		return "", err
	}
	if canHardDelete(lc.entity, status, dependents) {
		// Conditional on the stamp and on dependents at write time.
		if err := lc.remove(ctx, id, observed); err != nil {
			return "", err
		}
		s.logger.Info("record deleted", "entity", lc.entity, "id", id, "operator", operatorID)
		return DeleteHard, nil
	}

	removed := domain.RemovedStatus(lc.entity)
	if !domain.IsValidTransition(lc.entity, status, removed) {
		return "", domain.NewForbiddenError(lc.entity, id,
			fmt.Sprintf("has %d dependent records and cannot move from %s to %s", dependents, status, removed))
	}
	at := s.now()
	note := domain.SoftDeleteNote(status, removed, operatorID, at)
	updated, err := lc.update(ctx, id, observed, func(v *T) error {
		lc.setStatus(v, removed)
		notes := lc.notes(v)
		*notes = domain.AppendNote(*notes, note)
		return nil
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("record soft deleted", "entity", lc.entity, "id", id, "from", status, "to", removed, "dependents", dependents, "operator", operatorID)

	event := transitionEvent{entity: lc.entity, id: id, from: status, to: removed, operatorID: operatorID, record: updated}
	if err := s.dispatchSideEffects(ctx, event); err != nil {
		return DeleteSoft, err
	}
	return DeleteSoft, nil
}

// DeleteStorePlan deletes a plan, or cancels it when candidate locations are
// still attached.
func (s *Service) DeleteStorePlan(ctx context.Context, id, operatorID string) (outcome DeleteOutcome, err error) {
	ctx, finish := s.begin(ctx, opDeleteStorePlan, operatorID)
	defer func() { finish(id, err) }()
	return deleteRecord(ctx, s, planLifecycle(s.store), id, operatorID)
}

// DeleteCandidateLocation deletes a location, or rejects it when follow-ups
// are still open.
func (s *Service) DeleteCandidateLocation(ctx context.Context, id, operatorID string) (outcome DeleteOutcome, err error) {
	ctx, finish := s.begin(ctx, opDeleteCandidateLocation, operatorID)
	defer func() { finish(id, err) }()
	return deleteRecord(ctx, s, locationLifecycle(s.store), id, operatorID)
}

// DeleteStoreFile deletes a store file, or cancels it when payment items or
// assets reference it.
func (s *Service) DeleteStoreFile(ctx context.Context, id, operatorID string) (outcome DeleteOutcome, err error) {
	ctx, finish := s.begin(ctx, opDeleteStoreFile, operatorID)
	defer func() { finish(id, err) }()
	return deleteRecord(ctx, s, storeFileLifecycle(s.store), id, operatorID)
}

// DeleteFollowUp removes a follow-up. Follow-ups have no dependents.
func (s *Service) DeleteFollowUp(ctx context.Context, id, operatorID string) (outcome DeleteOutcome, err error) {
	ctx, finish := s.begin(ctx, opDeleteFollowUp, operatorID)
	defer func() { finish(id, err) }()
	return deleteRecord(ctx, s, followUpLifecycle(s.store), id, operatorID)
}

// Delete dispatches a delete request by entity type.
func (s *Service) Delete(ctx context.Context, entity domain.EntityType, id, operatorID string) (DeleteOutcome, error) {
	switch entity {
	case domain.EntityStorePlan:
		return s.DeleteStorePlan(ctx, id, operatorID)
	case domain.EntityCandidateLocation:
		return s.DeleteCandidateLocation(ctx, id, operatorID)
	case domain.EntityStoreFile:
		return s.DeleteStoreFile(ctx, id, operatorID)
	case domain.EntityFollowUp:
		return s.DeleteFollowUp(ctx, id, operatorID)
	default:
		return "", unsupportedEntity(entity)
	}
}
