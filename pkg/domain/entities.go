// Package domain defines the store-expansion records, their status machines,
// and the persistence contract consumed by the lifecycle service.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in persistence buckets and errors.
const (
	// EntityStorePlan identifies a store-opening plan.
	EntityStorePlan EntityType = "store_plan"
	// EntityStoreFile identifies an operational store file.
	EntityStoreFile EntityType = "store_file"
	// EntityCandidateLocation identifies a candidate real-estate location.
	EntityCandidateLocation EntityType = "candidate_location"
	// EntityFollowUp identifies a follow-up task attached to a candidate location.
	EntityFollowUp EntityType = "follow_up"
	// EntityRegion identifies a region reference record.
	EntityRegion EntityType = "region"
	// EntityBusinessEntity identifies a legal/business entity reference record.
	EntityBusinessEntity EntityType = "business_entity"
	// EntityPaymentItem identifies a payment item owned by a store file.
	EntityPaymentItem EntityType = "payment_item"
	// EntityAsset identifies an asset owned by a store file.
	EntityAsset EntityType = "asset"
)

// Base contains common fields for all domain records. UpdatedAt is the
// optimistic-concurrency stamp: it advances on every committed write.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LastModifiedAt returns the concurrency stamp of the record.
func (b Base) LastModifiedAt() time.Time { return b.UpdatedAt }

// StorePlan is a periodic store-opening plan for a region and business entity.
type StorePlan struct {
	Base
	Code           string     `json:"code"`
	Name           string     `json:"name"`
	Year           int        `json:"year"`
	Quarter        int        `json:"quarter"`
	RegionID       string     `json:"region_id"`
	EntityID       string     `json:"entity_id"`
	StoreType      string     `json:"store_type"`
	PlannedCount   int        `json:"planned_count"`
	CompletedCount int        `json:"completed_count"`
	Budget         float64    `json:"budget"`
	Status         PlanStatus `json:"status"`
	CreatedBy      string     `json:"created_by"`
	Notes          string     `json:"notes"`
}

// CandidateLocation is a real-estate site evaluated for a future store.
type CandidateLocation struct {
	Base
	Code       string         `json:"code"`
	Name       string         `json:"name"`
	Address    string         `json:"address"`
	RegionID   string         `json:"region_id"`
	PlanID     *string        `json:"plan_id"`
	Area       float64        `json:"area"`
	Rent       float64        `json:"rent"`
	Score      float64        `json:"score"`
	Tags       []string       `json:"tags"`
	AssigneeID string         `json:"assignee_id"`
	Status     LocationStatus `json:"status"`
	CreatedBy  string         `json:"created_by"`
	Notes      string         `json:"notes"`
}

// Attachment references a document stored in the blob store.
type Attachment struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Key         string    `json:"key"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size_bytes"`
	UploadedBy  string    `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// StoreFile is the operational record of a store from preparation to closure.
type StoreFile struct {
	Base
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	StoreType   string          `json:"store_type"`
	RegionID    string          `json:"region_id"`
	EntityID    string          `json:"entity_id"`
	LocationID  *string         `json:"location_id"`
	Tags        []string        `json:"tags"`
	Attachments []Attachment    `json:"attachments"`
	OpenedAt    *time.Time      `json:"opened_at,omitempty"`
	Status      StoreFileStatus `json:"status"`
	CreatedBy   string          `json:"created_by"`
	Notes       string          `json:"notes"`
}

// FollowUpRecord is a task tracking work on a candidate location.
type FollowUpRecord struct {
	Base
	LocationID string         `json:"location_id"`
	Type       FollowUpType   `json:"type"`
	Title      string         `json:"title"`
	AssigneeID string         `json:"assignee_id"`
	DueAt      *time.Time     `json:"due_at,omitempty"`
	Status     FollowUpStatus `json:"status"`
	Notes      string         `json:"notes"`
}

// Region is reference data grouping plans, locations and stores.
type Region struct {
	Base
	Code   string `json:"code"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// BusinessEntity is the legal entity operating stores.
type BusinessEntity struct {
	Base
	Code   string `json:"code"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// PaymentItem is a payable recorded against a store file.
type PaymentItem struct {
	Base
	StoreFileID string  `json:"store_file_id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// Asset is equipment or property recorded against a store file.
type Asset struct {
	Base
	StoreFileID string  `json:"store_file_id"`
	Name        string  `json:"name"`
	Value       float64 `json:"value"`
}
