// Package core implements the store-expansion lifecycle engine: status
// transitions, soft deletion, cross-entity side effects and batch sweeps over
// a domain.PersistentStore.
package core

import (
	"time"

	"expansioncore/internal/blob"
	"expansioncore/pkg/domain"
)

// Service orchestrates lifecycle operations against the persistence collaborator.
type Service struct {
	store            domain.PersistentStore
	blobs            blob.Store
	logger           Logger
	clock            Clock
	metrics          MetricsRecorder
	tracer           Tracer
	audit            AuditRecorder
	batchConcurrency int
	effects          []sideEffect
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for audit notes, codes and due dates.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMetricsRecorder sets the operation metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer sets the span factory.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithBlobStore enables store-file attachments.
func WithBlobStore(store blob.Store) Option {
	return func(s *Service) { s.blobs = store }
}

// WithBatchConcurrency bounds how many batch items run at once. Values below 2
// keep batches sequential.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n < 1 {
			n = 1
		}
		s.batchConcurrency = n
	}
}

// NewService constructs a service backed by store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:            store,
		logger:           noopLogger{},
		clock:            systemClock{},
		metrics:          noopMetricsRecorder{},
		tracer:           noopTracer{},
		audit:            noopAuditRecorder{},
		batchConcurrency: 1,
		effects:          defaultSideEffects,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the persistence collaborator.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}
