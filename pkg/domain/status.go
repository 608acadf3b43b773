package domain

// PlanStatus enumerates store plan workflow states.
type PlanStatus string

// Store plan statuses.
const (
	PlanStatusDraft      PlanStatus = "DRAFT"
	PlanStatusSubmitted  PlanStatus = "SUBMITTED"
	PlanStatusPending    PlanStatus = "PENDING"
	PlanStatusApproved   PlanStatus = "APPROVED"
	PlanStatusInProgress PlanStatus = "IN_PROGRESS"
	PlanStatusCompleted  PlanStatus = "COMPLETED"
	PlanStatusCancelled  PlanStatus = "CANCELLED"
	PlanStatusRejected   PlanStatus = "REJECTED"
)

// LocationStatus enumerates candidate location acquisition states.
type LocationStatus string

// Candidate location statuses.
const (
	LocationStatusPending     LocationStatus = "PENDING"
	LocationStatusFollowing   LocationStatus = "FOLLOWING"
	LocationStatusNegotiating LocationStatus = "NEGOTIATING"
	LocationStatusContracted  LocationStatus = "CONTRACTED"
	LocationStatusRejected    LocationStatus = "REJECTED"
)

// StoreFileStatus enumerates store file operational states.
type StoreFileStatus string

// Store file statuses.
const (
	StoreFileStatusPreparing    StoreFileStatus = "PREPARING"
	StoreFileStatusConstructing StoreFileStatus = "CONSTRUCTING"
	StoreFileStatusOperating    StoreFileStatus = "OPERATING"
	StoreFileStatusSuspended    StoreFileStatus = "SUSPENDED"
	StoreFileStatusClosed       StoreFileStatus = "CLOSED"
	StoreFileStatusCancelled    StoreFileStatus = "CANCELLED"
)

// FollowUpStatus enumerates follow-up task states.
type FollowUpStatus string

// Follow-up statuses.
const (
	FollowUpStatusPending    FollowUpStatus = "PENDING"
	FollowUpStatusInProgress FollowUpStatus = "IN_PROGRESS"
	FollowUpStatusCompleted  FollowUpStatus = "COMPLETED"
	FollowUpStatusCancelled  FollowUpStatus = "CANCELLED"
)

// FollowUpType classifies follow-up tasks.
type FollowUpType string

// Follow-up task types.
const (
	FollowUpTypeSiteVisit   FollowUpType = "SITE_VISIT"
	FollowUpTypeNegotiation FollowUpType = "NEGOTIATION"
	FollowUpTypeSurvey      FollowUpType = "SURVEY"
	FollowUpTypeOther       FollowUpType = "OTHER"
)
