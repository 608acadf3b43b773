package core

import (
	"context"
	"log/slog"
	"time"

	"expansioncore/pkg/domain"
)

// Logger is the structured logging surface used by the service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NewSlogLogger adapts a slog.Logger. A nil logger discards everything.
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return l
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// MetricsRecorder receives one observation per service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// BatchMetricsRecorder is implemented by recorders that also count batch items.
type BatchMetricsRecorder interface {
	ObserveBatchItem(ctx context.Context, entity domain.EntityType, action BatchAction, success bool)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended exactly once with the operation result.
type TraceSpan interface {
	End(err error)
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// AuditStatus is the outcome recorded in an audit entry.
type AuditStatus string

// Audit outcomes.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditAction classifies what an operation did to its entity.
type AuditAction string

// Audit actions.
const (
	ActionCreate       AuditAction = "create"
	ActionChangeStatus AuditAction = "change_status"
	ActionDelete       AuditAction = "delete"
	ActionUpdate       AuditAction = "update"
	ActionAttach       AuditAction = "attach"
	ActionBatch        AuditAction = "batch"
)

// AuditEntry describes one completed service operation.
type AuditEntry struct {
	Operation string
	Entity    domain.EntityType
	Action    AuditAction
	EntityID  string
	Operator  string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder persists or forwards audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type operationMeta struct {
	entity domain.EntityType
	action AuditAction
}

// Operation names reported to metrics, spans and audit entries.
const (
	opCreateStorePlan         = "create_store_plan"
	opCreateCandidateLocation = "create_candidate_location"
	opCreateStoreFile         = "create_store_file"
	opCreateFollowUp          = "create_follow_up"
	opCreateRegion            = "create_region"
	opCreateBusinessEntity    = "create_business_entity"
	opAddPaymentItem          = "add_payment_item"
	opAddAsset                = "add_asset"

	opChangePlanStatus      = "change_store_plan_status"
	opChangeLocationStatus  = "change_candidate_location_status"
	opChangeStoreFileStatus = "change_store_file_status"
	opChangeFollowUpStatus  = "change_follow_up_status"

	opDeleteStorePlan         = "delete_store_plan"
	opDeleteCandidateLocation = "delete_candidate_location"
	opDeleteStoreFile         = "delete_store_file"
	opDeleteFollowUp          = "delete_follow_up"

	opReplaceLocationTags  = "replace_candidate_location_tags"
	opReplaceStoreFileTags = "replace_store_file_tags"
	opAttachDocument       = "attach_store_file_document"

	opBatchExecute = "batch_execute"
)

var operationCatalog = map[string]operationMeta{
	opCreateStorePlan:         {domain.EntityStorePlan, ActionCreate},
	opCreateCandidateLocation: {domain.EntityCandidateLocation, ActionCreate},
	opCreateStoreFile:         {domain.EntityStoreFile, ActionCreate},
	opCreateFollowUp:          {domain.EntityFollowUp, ActionCreate},
	opCreateRegion:            {domain.EntityRegion, ActionCreate},
	opCreateBusinessEntity:    {domain.EntityBusinessEntity, ActionCreate},
	opAddPaymentItem:          {domain.EntityPaymentItem, ActionCreate},
	opAddAsset:                {domain.EntityAsset, ActionCreate},
	opChangePlanStatus:        {domain.EntityStorePlan, ActionChangeStatus},
	opChangeLocationStatus:    {domain.EntityCandidateLocation, ActionChangeStatus},
	opChangeStoreFileStatus:   {domain.EntityStoreFile, ActionChangeStatus},
	opChangeFollowUpStatus:    {domain.EntityFollowUp, ActionChangeStatus},
	opDeleteStorePlan:         {domain.EntityStorePlan, ActionDelete},
	opDeleteCandidateLocation: {domain.EntityCandidateLocation, ActionDelete},
	opDeleteStoreFile:         {domain.EntityStoreFile, ActionDelete},
	opDeleteFollowUp:          {domain.EntityFollowUp, ActionDelete},
	opReplaceLocationTags:     {domain.EntityCandidateLocation, ActionUpdate},
	opReplaceStoreFileTags:    {domain.EntityStoreFile, ActionUpdate},
	opAttachDocument:          {domain.EntityStoreFile, ActionAttach},
	opBatchExecute:            {"", ActionBatch},
}

// begin opens a span for op and returns the function that closes it. The
// closer records metrics, the audit entry and a log line.
func (s *Service) begin(ctx context.Context, op, operatorID string) (context.Context, func(entityID string, err error)) {
	started := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	return ctx, func(entityID string, err error) {
		duration := s.clock.Now().Sub(started)
		span.End(err)
		s.metrics.Observe(ctx, op, err == nil, duration)
		if err != nil {
			s.recordAudit(ctx, op, entityID, operatorID, AuditStatusError, err, duration)
			s.logger.Warn("operation failed", "operation", op, "id", entityID, "operator", operatorID, "kind", domain.KindOf(err), "error", err)
			return
		}
		s.recordAudit(ctx, op, entityID, operatorID, AuditStatusSuccess, nil, duration)
		s.logger.Debug("operation completed", "operation", op, "id", entityID, "operator", operatorID, "duration", duration)
	}
}

func (s *Service) recordAudit(ctx context.Context, op, entityID, operatorID string, status AuditStatus, err error, duration time.Duration) {
	meta, ok := operationCatalog[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Operator:  operatorID,
		Status:    status,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}
