package core

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"expansioncore/pkg/domain"
)

// BatchAction is the closed set of actions a batch can apply.
type BatchAction string

// Batch actions.
const (
	BatchDelete       BatchAction = "delete"
	BatchChangeStatus BatchAction = "change_status"
	BatchApprove      BatchAction = "approve"
	BatchReject       BatchAction = "reject"
	BatchCancel       BatchAction = "cancel"
	BatchReplaceTags  BatchAction = "replace_tags"
)

// BatchActions lists every action in declaration order.
var BatchActions = []BatchAction{BatchDelete, BatchChangeStatus, BatchApprove, BatchReject, BatchCancel, BatchReplaceTags}

// BatchPayload carries the action arguments. Status is required by
// change_status and Tags (possibly empty) by replace_tags.
type BatchPayload struct {
	Status string   `json:"status,omitempty"`
	Reason string   `json:"reason,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// BatchRequest applies one action to an ordered list of ids.
type BatchRequest struct {
	Entity  domain.EntityType `json:"entity"`
	IDs     []string          `json:"ids"`
	Action  BatchAction       `json:"action"`
	Payload *BatchPayload     `json:"payload,omitempty"`
}

// BatchItemOutcome is the result for one id.
type BatchItemOutcome struct {
	ID      string           `json:"id"`
	Success bool             `json:"success"`
	Deleted DeleteOutcome    `json:"deleted,omitempty"`
	Kind    domain.ErrorKind `json:"kind,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// BatchResult summarizes a sweep. Errors holds one "<id>: <message>" entry per
// failed item, in request order.
type BatchResult struct {
	SuccessCount int                `json:"success_count"`
	FailureCount int                `json:"failure_count"`
	Errors       []string           `json:"errors"`
	Outcomes     []BatchItemOutcome `json:"outcomes"`
}

// LifecycleOperations is the part of the lifecycle manager a batch drives.
type LifecycleOperations interface {
	ChangeStatus(ctx context.Context, entity domain.EntityType, id string, change StatusChange, operatorID string) error
	Delete(ctx context.Context, entity domain.EntityType, id, operatorID string) (DeleteOutcome, error)
	ReplaceTags(ctx context.Context, entity domain.EntityType, id string, tags []string, operatorID string) error
}

// BatchExecutor applies a request item by item. A failing item never stops the
// sweep and applied items are never rolled back.
type BatchExecutor struct {
	ops         LifecycleOperations
	concurrency int
	onItem      func(ctx context.Context, entity domain.EntityType, action BatchAction, success bool)
}

// NewBatchExecutor returns an executor running up to concurrency items at once.
func NewBatchExecutor(ops LifecycleOperations, concurrency int) *BatchExecutor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchExecutor{ops: ops, concurrency: concurrency}
}

// targetStatus resolves the status a transition action moves entity to.
func targetStatus(entity domain.EntityType, action BatchAction, payload *BatchPayload) (string, error) {
	switch action {
	case BatchChangeStatus:
		if payload == nil || payload.Status == "" {
			return "", domain.NewBadRequestError("batch action %s requires a target status", action)
		}
		if !domain.IsKnownStatus(entity, payload.Status) {
			return "", domain.NewBadRequestError("%q is not a %s status", payload.Status, domain.EntityLabel(entity))
		}
		return payload.Status, nil
	case BatchApprove:
		if entity == domain.EntityStorePlan {
			return string(domain.PlanStatusApproved), nil
		}
	case BatchReject:
		switch entity {
		case domain.EntityStorePlan:
			return string(domain.PlanStatusRejected), nil
		case domain.EntityCandidateLocation:
			return string(domain.LocationStatusRejected), nil
		}
	case BatchCancel:
		switch entity {
		case domain.EntityStorePlan:
			return string(domain.PlanStatusCancelled), nil
		case domain.EntityStoreFile:
			return string(domain.StoreFileStatusCancelled), nil
		case domain.EntityFollowUp:
			return string(domain.FollowUpStatusCancelled), nil
		}
	}
	return "", domain.NewBadRequestError("batch action %s is not supported for %s", action, domain.EntityLabel(entity))
}

// Validate rejects requests that cannot apply to any item.
func (r BatchRequest) Validate() error {
	switch r.Entity {
	case domain.EntityStorePlan, domain.EntityCandidateLocation, domain.EntityStoreFile, domain.EntityFollowUp:
	default:
		return unsupportedEntity(r.Entity)
	}
	switch r.Action {
	case BatchDelete:
		return nil
	case BatchReplaceTags:
		if r.Entity != domain.EntityCandidateLocation && r.Entity != domain.EntityStoreFile {
			return domain.NewBadRequestError("batch action %s is not supported for %s", r.Action, domain.EntityLabel(r.Entity))
		}
		if r.Payload == nil || r.Payload.Tags == nil {
			return domain.NewBadRequestError("batch action %s requires tags", r.Action)
		}
		return nil
	case BatchChangeStatus, BatchApprove, BatchReject, BatchCancel:
		_, err := targetStatus(r.Entity, r.Action, r.Payload)
		return err
	default:
		return domain.NewBadRequestError("unknown batch action %q", r.Action)
	}
}

// uniqueIDs drops repeated ids, keeping the first occurrence.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Execute runs the request. Item failures are reported in the result, never as
// the returned error. The returned error is a validation error (nothing ran) or
// the context error, in which case untried ids are absent from the result.
func (e *BatchExecutor) Execute(ctx context.Context, req BatchRequest, operatorID string) (BatchResult, error) {
	result := BatchResult{Errors: []string{}, Outcomes: []BatchItemOutcome{}}
	if err := req.Validate(); err != nil {
		return result, err
	}
	ids := uniqueIDs(req.IDs)
	outcomes := make([]*BatchItemOutcome, len(ids))

	if e.concurrency == 1 {
		for i, id := range ids {
			if ctx.Err() != nil {
				break
			}
			outcome := e.apply(ctx, req, id, operatorID)
			outcomes[i] = &outcome
		}
	} else {
		var g errgroup.Group
		g.SetLimit(e.concurrency)
		for i, id := range ids {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				outcome := e.apply(ctx, req, id, operatorID)
				outcomes[i] = &outcome
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, outcome := range outcomes {
		if outcome == nil {
			continue
		}
		result.Outcomes = append(result.Outcomes, *outcome)
		if outcome.Success {
			result.SuccessCount++
			continue
		}
		result.FailureCount++
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", outcome.ID, outcome.Error))
	}
	return result, ctx.Err()
}

func (e *BatchExecutor) apply(ctx context.Context, req BatchRequest, id, operatorID string) BatchItemOutcome {
	outcome := BatchItemOutcome{ID: id}
	var err error
	switch req.Action {
	case BatchDelete:
		outcome.Deleted, err = e.ops.Delete(ctx, req.Entity, id, operatorID)
	case BatchReplaceTags:
		err = e.ops.ReplaceTags(ctx, req.Entity, id, req.Payload.Tags, operatorID)
	case BatchChangeStatus, BatchApprove, BatchReject, BatchCancel:
		var to string
		if to, err = targetStatus(req.Entity, req.Action, req.Payload); err == nil {
			change := StatusChange{To: to}
			if req.Payload != nil {
				change.Reason = req.Payload.Reason
			}
			err = e.ops.ChangeStatus(ctx, req.Entity, id, change, operatorID)
		}
	}
	if err != nil {
		outcome.Kind = domain.KindOf(err)
		outcome.Error = err.Error()
	} else {
		outcome.Success = true
	}
	if e.onItem != nil {
		e.onItem(ctx, req.Entity, req.Action, outcome.Success)
	}
	return outcome
}

// ExecuteBatch runs a batch through the service's own lifecycle operations.
func (s *Service) ExecuteBatch(ctx context.Context, req BatchRequest, operatorID string) (result BatchResult, err error) {
	ctx, finish := s.begin(ctx, opBatchExecute, operatorID)
	defer func() { finish(string(req.Entity)+"/"+string(req.Action), err) }()

	executor := NewBatchExecutor(s, s.batchConcurrency)
	if recorder, ok := s.metrics.(BatchMetricsRecorder); ok {
		executor.onItem = recorder.ObserveBatchItem
	}
	result, err = executor.Execute(ctx, req, operatorID)
	if err == nil {
		s.logger.Info("batch completed", "entity", req.Entity, "action", req.Action,
			"success", result.SuccessCount, "failure", result.FailureCount, "operator", operatorID)
	}
	return result, err
}

var _ LifecycleOperations = (*Service)(nil)
