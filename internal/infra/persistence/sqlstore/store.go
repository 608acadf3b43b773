// Package sqlstore implements the persistence contract on database/sql. Records are
// kept as JSON payloads next to the columns the store needs to query on (status,
// parent, stamp), so the sqlite and postgres backends share one implementation.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"expansioncore/pkg/domain"

	"github.com/google/uuid"
)

var _ domain.PersistentStore = (*Store)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a SQL-backed domain.PersistentStore.
type Store struct {
	db      *sql.DB
	dialect Dialect
	nowFn   func() time.Time
}

// New applies the dialect's schema to db and returns a store using it.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlstore: nil db")
	}
	for _, stmt := range SplitStatements(dialect.DDL) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("apply %s ddl: %w", dialect.Name, err)
		}
	}
	return &Store{
		db:      db,
		dialect: dialect,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// DB exposes the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect reports the SQL dialect in use.
func (s *Store) Dialect() Dialect { return s.dialect }

// SetNowFunc overrides the clock used to stamp writes.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		s.nowFn = fn
	}
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) now() time.Time {
	return s.nowFn().UTC().Round(0)
}

func (s *Store) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func stampOf(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// codec describes how the generic helpers reach the indexed fields of T.
type codec[T any] struct {
	entity  domain.EntityType
	base    func(*T) *domain.Base
	status  func(*T) string
	parent  func(*T) string
	counter func(*T, domain.CounterField) *int
}

func optional(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

var counterFields = map[domain.EntityType][]domain.CounterField{
	domain.EntityStorePlan: {domain.CounterCompletedCount},
}

var (
	planCodec = codec[domain.StorePlan]{
		entity: domain.EntityStorePlan,
		base:   func(p *domain.StorePlan) *domain.Base { return &p.Base },
		status: func(p *domain.StorePlan) string { return string(p.Status) },
		counter: func(p *domain.StorePlan, field domain.CounterField) *int {
			if field == domain.CounterCompletedCount {
				return &p.CompletedCount
			}
			return nil
		},
	}
	locationCodec = codec[domain.CandidateLocation]{
		entity: domain.EntityCandidateLocation,
		base:   func(l *domain.CandidateLocation) *domain.Base { return &l.Base },
		status: func(l *domain.CandidateLocation) string { return string(l.Status) },
		parent: func(l *domain.CandidateLocation) string { return optional(l.PlanID) },
	}
	fileCodec = codec[domain.StoreFile]{
		entity: domain.EntityStoreFile,
		base:   func(f *domain.StoreFile) *domain.Base { return &f.Base },
		status: func(f *domain.StoreFile) string { return string(f.Status) },
		parent: func(f *domain.StoreFile) string { return optional(f.LocationID) },
	}
	followUpCodec = codec[domain.FollowUpRecord]{
		entity: domain.EntityFollowUp,
		base:   func(f *domain.FollowUpRecord) *domain.Base { return &f.Base },
		status: func(f *domain.FollowUpRecord) string { return string(f.Status) },
		parent: func(f *domain.FollowUpRecord) string { return f.LocationID },
	}
	regionCodec = codec[domain.Region]{
		entity: domain.EntityRegion,
		base:   func(r *domain.Region) *domain.Base { return &r.Base },
	}
	businessEntityCodec = codec[domain.BusinessEntity]{
		entity: domain.EntityBusinessEntity,
		base:   func(e *domain.BusinessEntity) *domain.Base { return &e.Base },
	}
	paymentCodec = codec[domain.PaymentItem]{
		entity: domain.EntityPaymentItem,
		base:   func(p *domain.PaymentItem) *domain.Base { return &p.Base },
		parent: func(p *domain.PaymentItem) string { return p.StoreFileID },
	}
	assetCodec = codec[domain.Asset]{
		entity: domain.EntityAsset,
		base:   func(a *domain.Asset) *domain.Base { return &a.Base },
		parent: func(a *domain.Asset) string { return a.StoreFileID },
	}
)

func (c codec[T]) statusOf(v *T) string {
	if c.status == nil {
		return ""
	}
	return c.status(v)
}

func (c codec[T]) parentOf(v *T) string {
	if c.parent == nil {
		return ""
	}
	return c.parent(v)
}

func (c codec[T]) decode(payload []byte, createdAt, updatedAt int64) (T, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", c.entity, err)
	}
	base := c.base(&v)
	base.CreatedAt = stampOf(createdAt)
	base.UpdatedAt = stampOf(updatedAt)
	return v, nil
}

func (s *Store) writeCounters(ctx context.Context, q querier, entity domain.EntityType, id string, value func(domain.CounterField) int) error {
	query := s.dialect.Rebind(`INSERT INTO counters (kind, id, field, value) VALUES (?, ?, ?, ?)
ON CONFLICT (kind, id, field) DO UPDATE SET value = excluded.value`)
	for _, field := range counterFields[entity] {
		if _, err := q.ExecContext(ctx, query, string(entity), id, string(field), value(field)); err != nil {
			return fmt.Errorf("write %s counter %s: %w", entity, field, err)
		}
	}
	return nil
}

func (s *Store) loadCounters(ctx context.Context, q querier, entity domain.EntityType) (map[string]map[domain.CounterField]int, error) {
	if len(counterFields[entity]) == 0 {
		return nil, nil
	}
	rows, err := q.QueryContext(ctx, s.dialect.Rebind(`SELECT id, field, value FROM counters WHERE kind = ?`), string(entity))
	if err != nil {
		return nil, fmt.Errorf("load %s counters: %w", entity, err)
	}
	defer func() { _ = rows.Close() }()
	out := make(map[string]map[domain.CounterField]int)
	for rows.Next() {
		var id, field string
		var value int64
		if err := rows.Scan(&id, &field, &value); err != nil {
			return nil, fmt.Errorf("scan %s counter: %w", entity, err)
		}
		if out[id] == nil {
			out[id] = make(map[domain.CounterField]int)
		}
		out[id][domain.CounterField(field)] = int(value)
	}
	return out, rows.Err()
}

func (s *Store) loadRecordCounters(ctx context.Context, q querier, entity domain.EntityType, id string) (map[domain.CounterField]int, error) {
	if len(counterFields[entity]) == 0 {
		return nil, nil
	}
	rows, err := q.QueryContext(ctx, s.dialect.Rebind(`SELECT field, value FROM counters WHERE kind = ? AND id = ?`), string(entity), id)
	if err != nil {
		return nil, fmt.Errorf("load %s counters: %w", entity, err)
	}
	defer func() { _ = rows.Close() }()
	out := make(map[domain.CounterField]int)
	for rows.Next() {
		var field string
		var value int64
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("scan %s counter: %w", entity, err)
		}
		out[domain.CounterField(field)] = int(value)
	}
	return out, rows.Err()
}

func applyCounters[T any](c codec[T], v *T, values map[domain.CounterField]int) {
	if c.counter == nil {
		return
	}
	for field, value := range values {
		if p := c.counter(v, field); p != nil {
			*p = value
		}
	}
}

func (c codec[T]) counterValue(v *T) func(domain.CounterField) int {
	return func(field domain.CounterField) int {
		if c.counter == nil {
			return 0
		}
		if p := c.counter(v, field); p != nil {
			return *p
		}
		return 0
	}
}

func create[T any](ctx context.Context, s *Store, c codec[T], v T) (T, error) {
	var zero T
	if c.status != nil {
		if status := c.status(&v); !domain.IsKnownStatus(c.entity, status) {
			return zero, domain.NewBadRequestError("%s status %q is not a known status", domain.EntityLabel(c.entity), status)
		}
	}
	base := c.base(&v)
	if base.ID == "" {
		base.ID = uuid.NewString()
	}
	now := s.now()
	base.CreatedAt = now
	base.UpdatedAt = now
	payload, err := json.Marshal(v)
	if err != nil {
		return zero, fmt.Errorf("encode %s: %w", c.entity, err)
	}
	err = s.withTx(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, s.dialect.Rebind(`INSERT INTO records (kind, id, parent_id, status, created_at, updated_at, payload)
VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT (kind, id) DO NOTHING`),
			string(c.entity), base.ID, c.parentOf(&v), c.statusOf(&v), now.UnixNano(), now.UnixNano(), string(payload))
		if err != nil {
			return fmt.Errorf("insert %s: %w", c.entity, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("insert %s: %w", c.entity, err)
		} else if n == 0 {
			return domain.NewDuplicateError(c.entity, base.ID, "id already exists")
		}
		return s.writeCounters(ctx, q, c.entity, base.ID, c.counterValue(&v))
	})
	if err != nil {
		return zero, err
	}
	return v, nil
}

func getWith[T any](ctx context.Context, s *Store, q querier, c codec[T], id string) (T, error) {
	var zero T
	var payload []byte
	var createdAt, updatedAt int64
	err := q.QueryRowContext(ctx, s.dialect.Rebind(`SELECT payload, created_at, updated_at FROM records WHERE kind = ? AND id = ?`),
		string(c.entity), id).Scan(&payload, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, domain.NewNotFoundError(c.entity, id)
	}
	if err != nil {
		return zero, fmt.Errorf("select %s %s: %w", c.entity, id, err)
	}
	v, err := c.decode(payload, createdAt, updatedAt)
	if err != nil {
		return zero, err
	}
	counters, err := s.loadRecordCounters(ctx, q, c.entity, id)
	if err != nil {
		return zero, err
	}
	applyCounters(c, &v, counters)
	return v, nil
}

func get[T any](ctx context.Context, s *Store, c codec[T], id string) (T, error) {
	return getWith(ctx, s, s.db, c, id)
}

func list[T any](ctx context.Context, s *Store, c codec[T]) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`SELECT payload, created_at, updated_at FROM records WHERE kind = ?`), string(c.entity))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.entity, err)
	}
	out := make([]T, 0)
	for rows.Next() {
		var payload []byte
		var createdAt, updatedAt int64
		if err := rows.Scan(&payload, &createdAt, &updatedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan %s: %w", c.entity, err)
		}
		v, err := c.decode(payload, createdAt, updatedAt)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("list %s: %w", c.entity, err)
	}
	_ = rows.Close()

	counters, err := s.loadCounters(ctx, s.db, c.entity)
	if err != nil {
		return nil, err
	}
	for i := range out {
		applyCounters(c, &out[i], counters[c.base(&out[i]).ID])
	}
	sort.Slice(out, func(i, j int) bool {
		bi, bj := c.base(&out[i]), c.base(&out[j])
		if bi.CreatedAt.Equal(bj.CreatedAt) {
			return bi.ID < bj.ID
		}
		return bi.CreatedAt.Before(bj.CreatedAt)
	})
	return out, nil
}

// update applies mutator inside a transaction and writes back only while the
// stored stamp still equals observed.
func update[T any](ctx context.Context, s *Store, c codec[T], id string, observed time.Time, mutator func(*T) error) (T, error) {
	var zero T
	var result T
	err := s.withTx(ctx, func(q querier) error {
		current, err := getWith(ctx, s, q, c, id)
		if err != nil {
			return err
		}
		before := *c.base(&current)
		if !before.UpdatedAt.Equal(observed) {
			return domain.NewStaleWriteError(c.entity, id, observed, before.UpdatedAt)
		}
		next, err := c.decodeCopy(current)
		if err != nil {
			return err
		}
		if err := mutator(&next); err != nil {
			return err
		}
		if c.status != nil {
			if err := domain.GuardStatusChange(c.entity, id, c.status(&current), c.status(&next)); err != nil {
				return err
			}
		}
		after := c.base(&next)
		after.ID = id
		after.CreatedAt = before.CreatedAt
		after.UpdatedAt = domain.NextStamp(before.UpdatedAt, s.now())
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode %s: %w", c.entity, err)
		}
		res, err := q.ExecContext(ctx, s.dialect.Rebind(`UPDATE records SET payload = ?, status = ?, parent_id = ?, updated_at = ?
WHERE kind = ? AND id = ? AND updated_at = ?`),
			string(payload), c.statusOf(&next), c.parentOf(&next), after.UpdatedAt.UnixNano(),
			string(c.entity), id, before.UpdatedAt.UnixNano())
		if err != nil {
			return fmt.Errorf("update %s %s: %w", c.entity, id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update %s %s: %w", c.entity, id, err)
		}
		if n == 0 {
			return domain.NewStaleWriteError(c.entity, id, observed, time.Time{})
		}
		if err := s.writeCounters(ctx, q, c.entity, id, c.counterValue(&next)); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return zero, err
	}
	return result, nil
}

// decodeCopy deep-copies v through its JSON form so the mutator cannot alias
// slices of the snapshot used for the status guard.
func (c codec[T]) decodeCopy(v T) (T, error) {
	var out T
	raw, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("copy %s: %w", c.entity, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("copy %s: %w", c.entity, err)
	}
	*c.base(&out) = *c.base(&v)
	return out, nil
}

// remove deletes the record only while its stamp still equals observed and
// no live dependent points at it, both checked by the DELETE itself.
func remove[T any](ctx context.Context, s *Store, c codec[T], id string, observed time.Time) error {
	query, args := deleteStatement(c.entity, id, observed)
	return s.withTx(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, s.dialect.Rebind(query), args...)
		if err != nil {
			return fmt.Errorf("delete %s %s: %w", c.entity, id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete %s %s: %w", c.entity, id, err)
		}
		if n == 0 {
			return s.explainMissedDelete(ctx, q, c.entity, id, observed)
		}
		if _, err := q.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM counters WHERE kind = ? AND id = ?`), string(c.entity), id); err != nil {
			return fmt.Errorf("delete %s counters: %w", c.entity, err)
		}
		return nil
	})
}

func deleteStatement(entity domain.EntityType, id string, observed time.Time) (string, []any) {
	var b strings.Builder
	b.WriteString(`DELETE FROM records WHERE kind = ? AND id = ? AND updated_at = ?`)
	args := []any{string(entity), id, observed.UnixNano()}
	for _, kind := range domain.DependentKindsFor(entity) {
		spec, _ := domain.DependentSpecFor(kind)
		b.WriteString(` AND NOT EXISTS (SELECT 1 FROM records d WHERE d.kind = ? AND d.parent_id = ?`)
		args = append(args, string(spec.Child), id)
		if len(spec.Inactive) > 0 {
			b.WriteString(` AND d.status NOT IN (?` + strings.Repeat(`, ?`, len(spec.Inactive)-1) + `)`)
			for _, status := range spec.Inactive {
				args = append(args, status)
			}
		}
		b.WriteString(`)`)
	}
	return b.String(), args
}

// explainMissedDelete maps a DELETE that matched nothing to the reason it
// missed.
func (s *Store) explainMissedDelete(ctx context.Context, q querier, entity domain.EntityType, id string, observed time.Time) error {
	var stamp int64
	err := q.QueryRowContext(ctx, s.dialect.Rebind(`SELECT updated_at FROM records WHERE kind = ? AND id = ?`), string(entity), id).Scan(&stamp)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewNotFoundError(entity, id)
	}
	if err != nil {
		return fmt.Errorf("select %s %s: %w", entity, id, err)
	}
	if stored := time.Unix(0, stamp).UTC(); !stored.Equal(observed) {
		return domain.NewStaleWriteError(entity, id, observed, stored)
	}
	return domain.NewDependentsAttachedError(entity, id)
}

// CreateStorePlan inserts a new plan.
func (s *Store) CreateStorePlan(ctx context.Context, plan domain.StorePlan) (domain.StorePlan, error) {
	return create(ctx, s, planCodec, plan)
}

// GetStorePlan retrieves a plan by ID.
func (s *Store) GetStorePlan(ctx context.Context, id string) (domain.StorePlan, error) {
	return get(ctx, s, planCodec, id)
}

// ListStorePlans returns all plans ordered by creation.
func (s *Store) ListStorePlans(ctx context.Context) ([]domain.StorePlan, error) {
	return list(ctx, s, planCodec)
}

// UpdateStorePlan conditionally mutates a plan.
func (s *Store) UpdateStorePlan(ctx context.Context, id string, observed time.Time, mutator func(*domain.StorePlan) error) (domain.StorePlan, error) {
	return update(ctx, s, planCodec, id, observed, mutator)
}

// DeleteStorePlan removes a plan.
func (s *Store) DeleteStorePlan(ctx context.Context, id string, observed time.Time) error {
	return remove(ctx, s, planCodec, id, observed)
}

// CreateCandidateLocation inserts a new location.
func (s *Store) CreateCandidateLocation(ctx context.Context, location domain.CandidateLocation) (domain.CandidateLocation, error) {
	return create(ctx, s, locationCodec, location)
}

// GetCandidateLocation retrieves a location by ID.
func (s *Store) GetCandidateLocation(ctx context.Context, id string) (domain.CandidateLocation, error) {
	return get(ctx, s, locationCodec, id)
}

// ListCandidateLocations returns all locations ordered by creation.
func (s *Store) ListCandidateLocations(ctx context.Context) ([]domain.CandidateLocation, error) {
	return list(ctx, s, locationCodec)
}

// UpdateCandidateLocation conditionally mutates a location.
func (s *Store) UpdateCandidateLocation(ctx context.Context, id string, observed time.Time, mutator func(*domain.CandidateLocation) error) (domain.CandidateLocation, error) {
	return update(ctx, s, locationCodec, id, observed, mutator)
}

// DeleteCandidateLocation removes a location.
func (s *Store) DeleteCandidateLocation(ctx context.Context, id string, observed time.Time) error {
	return remove(ctx, s, locationCodec, id, observed)
}

// CreateStoreFile inserts a new store file.
func (s *Store) CreateStoreFile(ctx context.Context, file domain.StoreFile) (domain.StoreFile, error) {
	return create(ctx, s, fileCodec, file)
}

// GetStoreFile retrieves a store file by ID.
func (s *Store) GetStoreFile(ctx context.Context, id string) (domain.StoreFile, error) {
	return get(ctx, s, fileCodec, id)
}

// ListStoreFiles returns all store files ordered by creation.
func (s *Store) ListStoreFiles(ctx context.Context) ([]domain.StoreFile, error) {
	return list(ctx, s, fileCodec)
}

// UpdateStoreFile conditionally mutates a store file.
func (s *Store) UpdateStoreFile(ctx context.Context, id string, observed time.Time, mutator func(*domain.StoreFile) error) (domain.StoreFile, error) {
	return update(ctx, s, fileCodec, id, observed, mutator)
}

// DeleteStoreFile removes a store file.
func (s *Store) DeleteStoreFile(ctx context.Context, id string, observed time.Time) error {
	return remove(ctx, s, fileCodec, id, observed)
}

// CreateFollowUp inserts a new follow-up.
func (s *Store) CreateFollowUp(ctx context.Context, followUp domain.FollowUpRecord) (domain.FollowUpRecord, error) {
	return create(ctx, s, followUpCodec, followUp)
}

// GetFollowUp retrieves a follow-up by ID.
func (s *Store) GetFollowUp(ctx context.Context, id string) (domain.FollowUpRecord, error) {
	return get(ctx, s, followUpCodec, id)
}

// ListFollowUps returns all follow-ups ordered by creation.
func (s *Store) ListFollowUps(ctx context.Context) ([]domain.FollowUpRecord, error) {
	return list(ctx, s, followUpCodec)
}

// UpdateFollowUp conditionally mutates a follow-up.
func (s *Store) UpdateFollowUp(ctx context.Context, id string, observed time.Time, mutator func(*domain.FollowUpRecord) error) (domain.FollowUpRecord, error) {
	return update(ctx, s, followUpCodec, id, observed, mutator)
}

// DeleteFollowUp removes a follow-up.
func (s *Store) DeleteFollowUp(ctx context.Context, id string, observed time.Time) error {
	return remove(ctx, s, followUpCodec, id, observed)
}

// CreateRegion inserts region reference data.
func (s *Store) CreateRegion(ctx context.Context, region domain.Region) (domain.Region, error) {
	return create(ctx, s, regionCodec, region)
}

// GetRegion retrieves a region by ID.
func (s *Store) GetRegion(ctx context.Context, id string) (domain.Region, error) {
	return get(ctx, s, regionCodec, id)
}

// CreateBusinessEntity inserts business entity reference data.
func (s *Store) CreateBusinessEntity(ctx context.Context, entity domain.BusinessEntity) (domain.BusinessEntity, error) {
	return create(ctx, s, businessEntityCodec, entity)
}

// GetBusinessEntity retrieves a business entity by ID.
func (s *Store) GetBusinessEntity(ctx context.Context, id string) (domain.BusinessEntity, error) {
	return get(ctx, s, businessEntityCodec, id)
}

// CreatePaymentItem inserts a payment item.
func (s *Store) CreatePaymentItem(ctx context.Context, item domain.PaymentItem) (domain.PaymentItem, error) {
	return create(ctx, s, paymentCodec, item)
}

// CreateAsset inserts an asset.
func (s *Store) CreateAsset(ctx context.Context, asset domain.Asset) (domain.Asset, error) {
	return create(ctx, s, assetCodec, asset)
}

// CountDependents counts live children of kind pointing at id.
func (s *Store) CountDependents(ctx context.Context, entity domain.EntityType, id string, kind domain.DependentKind) (int, error) {
	spec, ok := domain.DependentSpecFor(kind)
	if !ok || spec.Parent != entity {
		return 0, domain.NewBadRequestError("dependent kind %q does not apply to %s", kind, domain.EntityLabel(entity))
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`SELECT status FROM records WHERE kind = ? AND parent_id = ?`), string(spec.Child), id)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	defer func() { _ = rows.Close() }()
	count := 0
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return 0, fmt.Errorf("count %s: %w", kind, err)
		}
		if spec.Counts(status) {
			count++
		}
	}
	return count, rows.Err()
}

// IncrementCounter adds amount to a counter and advances the record stamp in
// one transaction.
func (s *Store) IncrementCounter(ctx context.Context, entity domain.EntityType, id string, field domain.CounterField, amount int) error {
	supported := false
	for _, f := range counterFields[entity] {
		if f == field {
			supported = true
		}
	}
	if !supported {
		return domain.NewBadRequestError("counter %s is not maintained on %s", field, domain.EntityLabel(entity))
	}
	now := s.now().UnixNano()
	return s.withTx(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, s.dialect.Rebind(`UPDATE records SET updated_at = CASE WHEN updated_at >= ? THEN updated_at + 1 ELSE ? END
WHERE kind = ? AND id = ?`), now, now, string(entity), id)
		if err != nil {
			return fmt.Errorf("stamp %s %s: %w", entity, id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("stamp %s %s: %w", entity, id, err)
		}
		if n == 0 {
			return domain.NewNotFoundError(entity, id)
		}
		if _, err := q.ExecContext(ctx, s.dialect.Rebind(`INSERT INTO counters (kind, id, field, value) VALUES (?, ?, ?, ?)
ON CONFLICT (kind, id, field) DO UPDATE SET value = counters.value + excluded.value`),
			string(entity), id, string(field), amount); err != nil {
			return fmt.Errorf("increment %s %s: %w", entity, field, err)
		}
		return nil
	})
}

// NextSequence returns the next value of the named sequence.
func (s *Store) NextSequence(ctx context.Context, name string) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`INSERT INTO sequences (name, value) VALUES (?, 1)
ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1 RETURNING value`), name).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", name, err)
	}
	return value, nil
}
