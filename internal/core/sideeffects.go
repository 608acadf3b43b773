package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expansioncore/pkg/domain"
)

// Template of the follow-up opened when a location starts being followed.
const (
	SiteVisitTitle     = "Initial site visit"
	SiteVisitDueWithin = 7 * 24 * time.Hour
)

// transitionEvent describes a committed status change.
type transitionEvent struct {
	entity     domain.EntityType
	id         string
	from       string
	to         string
	operatorID string
	record     any
}

// sideEffect fires when a committed transition of entity lands on to. An empty
// from matches any source status.
type sideEffect struct {
	name   string
	entity domain.EntityType
	from   string
	to     string
	apply  func(ctx context.Context, s *Service, ev transitionEvent) error
}

func (e sideEffect) matches(ev transitionEvent) bool {
	if e.entity != ev.entity || e.to != ev.to {
		return false
	}
	return e.from == "" || e.from == ev.from
}

var defaultSideEffects = []sideEffect{
	{
		name:   "increment_plan_completed_count",
		entity: domain.EntityCandidateLocation,
		to:     string(domain.LocationStatusContracted),
		apply:  incrementPlanCompletedCount,
	},
	{
		name:   "open_site_visit_follow_up",
		entity: domain.EntityCandidateLocation,
		from:   string(domain.LocationStatusPending),
		to:     string(domain.LocationStatusFollowing),
		apply:  openSiteVisitFollowUp,
	},
}

// dispatchSideEffects runs every matching effect. Failures do not undo the
// committed transition; they are logged and returned together.
func (s *Service) dispatchSideEffects(ctx context.Context, ev transitionEvent) error {
	var errs []error
	for _, effect := range s.effects {
		if !effect.matches(ev) {
			continue
		}
		if err := effect.apply(ctx, s, ev); err != nil {
			s.logger.Error("side effect failed", "effect", effect.name, "entity", ev.entity, "id", ev.id, "to", ev.to, "error", err)
			errs = append(errs, fmt.Errorf("side effect %s: %w", effect.name, err))
			continue
		}
		s.logger.Debug("side effect applied", "effect", effect.name, "entity", ev.entity, "id", ev.id)
	}
	return errors.Join(errs...)
}

func incrementPlanCompletedCount(ctx context.Context, s *Service, ev transitionEvent) error {
	location, ok := ev.record.(domain.CandidateLocation)
	if !ok || location.PlanID == nil || *location.PlanID == "" {
		return nil
	}
	return s.store.IncrementCounter(ctx, domain.EntityStorePlan, *location.PlanID, domain.CounterCompletedCount, 1)
}

func openSiteVisitFollowUp(ctx context.Context, s *Service, ev transitionEvent) error {
	due := s.now().Add(SiteVisitDueWithin)
	_, err := s.store.CreateFollowUp(ctx, domain.FollowUpRecord{
		LocationID: ev.id,
		Type:       domain.FollowUpTypeSiteVisit,
		Title:      SiteVisitTitle,
		AssigneeID: ev.operatorID,
		DueAt:      &due,
		Status:     domain.FollowUpStatusPending,
	})
	return err
}
