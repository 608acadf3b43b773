package core

import (
	"context"
	"strings"

	"expansioncore/pkg/domain"
)

// CreateStorePlan validates references and the (year, quarter, region, entity,
// store type) key, seeds DRAFT and generates a code when none is given.
func (s *Service) CreateStorePlan(ctx context.Context, plan domain.StorePlan, creatorID string) (created domain.StorePlan, err error) {
	ctx, finish := s.begin(ctx, opCreateStorePlan, creatorID)
	defer func() { finish(created.ID, err) }()

	if plan.PlannedCount < 0 {
		return domain.StorePlan{}, domain.NewBadRequestError("planned count must not be negative, got %d", plan.PlannedCount)
	}
	if err := s.requireActiveRegion(ctx, plan.RegionID); err != nil {
		return domain.StorePlan{}, err
	}
	if err := s.requireActiveBusinessEntity(ctx, plan.EntityID); err != nil {
		return domain.StorePlan{}, err
	}
	existing, err := s.store.ListStorePlans(ctx)
	if err != nil {
		return domain.StorePlan{}, err
	}
	plan.Code = strings.TrimSpace(plan.Code)
	for _, other := range existing {
		if plan.Code != "" && other.Code == plan.Code {
			return domain.StorePlan{}, domain.NewDuplicateError(domain.EntityStorePlan, other.ID, "code "+plan.Code+" is already used")
		}
		if !planIsActive(other.Status) {
			continue
		}
		if other.Year == plan.Year && other.Quarter == plan.Quarter && other.RegionID == plan.RegionID &&
			other.EntityID == plan.EntityID && other.StoreType == plan.StoreType {
			return domain.StorePlan{}, domain.NewDuplicateError(domain.EntityStorePlan, other.ID, "an active plan already covers this period, region, entity and store type")
		}
	}
	if plan.Code == "" {
		if plan.Code, err = s.nextCode(ctx, PlanCodePrefix); err != nil {
			return domain.StorePlan{}, err
		}
	}
	plan.ID = ""
	plan.Status = domain.PlanStatus(domain.InitialStatus(domain.EntityStorePlan))
	plan.CompletedCount = 0
	plan.CreatedBy = creatorID
	return s.store.CreateStorePlan(ctx, plan)
}

// CreateCandidateLocation validates the region and optional parent plan and
// rejects a second active location at the same address.
func (s *Service) CreateCandidateLocation(ctx context.Context, location domain.CandidateLocation, creatorID string) (created domain.CandidateLocation, err error) {
	ctx, finish := s.begin(ctx, opCreateCandidateLocation, creatorID)
	defer func() { finish(created.ID, err) }()

	if err := s.requireActiveRegion(ctx, location.RegionID); err != nil {
		return domain.CandidateLocation{}, err
	}
	if location.PlanID != nil && *location.PlanID == "" {
		location.PlanID = nil
	}
	if location.PlanID != nil {
		plan, err := s.store.GetStorePlan(ctx, *location.PlanID)
		if err != nil {
			return domain.CandidateLocation{}, err
		}
		if domain.IsTerminal(domain.EntityStorePlan, string(plan.Status)) {
			return domain.CandidateLocation{}, domain.NewForbiddenError(domain.EntityStorePlan, plan.ID, "cannot take new locations in status "+string(plan.Status))
		}
	}
	existing, err := s.store.ListCandidateLocations(ctx)
	if err != nil {
		return domain.CandidateLocation{}, err
	}
	location.Code = strings.TrimSpace(location.Code)
	address := normalizeAddress(location.Address)
	for _, other := range existing {
		if location.Code != "" && other.Code == location.Code {
			return domain.CandidateLocation{}, domain.NewDuplicateError(domain.EntityCandidateLocation, other.ID, "code "+location.Code+" is already used")
		}
		if other.Status != domain.LocationStatusRejected && address != "" && normalizeAddress(other.Address) == address {
			return domain.CandidateLocation{}, domain.NewDuplicateError(domain.EntityCandidateLocation, other.ID, "an active location already exists at this address")
		}
	}
	if location.Code == "" {
		if location.Code, err = s.nextCode(ctx, LocationCodePrefix); err != nil {
			return domain.CandidateLocation{}, err
		}
	}
	location.ID = ""
	location.Tags = normalizeTags(location.Tags)
	location.Status = domain.LocationStatus(domain.InitialStatus(domain.EntityCandidateLocation))
	location.CreatedBy = creatorID
	return s.store.CreateCandidateLocation(ctx, location)
}

// CreateStoreFile validates references. A linked location must be CONTRACTED
// and not already used by another store file that is still live.
func (s *Service) CreateStoreFile(ctx context.Context, file domain.StoreFile, creatorID string) (created domain.StoreFile, err error) {
	ctx, finish := s.begin(ctx, opCreateStoreFile, creatorID)
	defer func() { finish(created.ID, err) }()

	if err := s.requireActiveRegion(ctx, file.RegionID); err != nil {
		return domain.StoreFile{}, err
	}
	if err := s.requireActiveBusinessEntity(ctx, file.EntityID); err != nil {
		return domain.StoreFile{}, err
	}
	if file.LocationID != nil && *file.LocationID == "" {
		file.LocationID = nil
	}
	if file.LocationID != nil {
		location, err := s.store.GetCandidateLocation(ctx, *file.LocationID)
		if err != nil {
			return domain.StoreFile{}, err
		}
		if location.Status != domain.LocationStatusContracted {
			return domain.StoreFile{}, domain.NewBadRequestError("candidate location %s is %s, only CONTRACTED locations can open a store file", location.ID, location.Status)
		}
	}
	existing, err := s.store.ListStoreFiles(ctx)
	if err != nil {
		return domain.StoreFile{}, err
	}
	file.Code = strings.TrimSpace(file.Code)
	for _, other := range existing {
		if file.Code != "" && other.Code == file.Code {
			return domain.StoreFile{}, domain.NewDuplicateError(domain.EntityStoreFile, other.ID, "code "+file.Code+" is already used")
		}
		if file.LocationID != nil && other.LocationID != nil && *other.LocationID == *file.LocationID &&
			other.Status != domain.StoreFileStatusCancelled {
			return domain.StoreFile{}, domain.NewDuplicateError(domain.EntityStoreFile, other.ID, "candidate location "+*file.LocationID+" is already used by another store file")
		}
	}
	if file.Code == "" {
		if file.Code, err = s.nextCode(ctx, StoreFileCodePrefix); err != nil {
			return domain.StoreFile{}, err
		}
	}
	file.ID = ""
	file.Tags = normalizeTags(file.Tags)
	file.Attachments = nil
	file.OpenedAt = nil
	file.Status = domain.StoreFileStatus(domain.InitialStatus(domain.EntityStoreFile))
	file.CreatedBy = creatorID
	return s.store.CreateStoreFile(ctx, file)
}

// CreateFollowUp opens a task on a location that is still in play.
func (s *Service) CreateFollowUp(ctx context.Context, followUp domain.FollowUpRecord, creatorID string) (created domain.FollowUpRecord, err error) {
	ctx, finish := s.begin(ctx, opCreateFollowUp, creatorID)
	defer func() { finish(created.ID, err) }()

	location, err := s.store.GetCandidateLocation(ctx, followUp.LocationID)
	if err != nil {
		return domain.FollowUpRecord{}, err
	}
	if domain.IsTerminal(domain.EntityCandidateLocation, string(location.Status)) {
		return domain.FollowUpRecord{}, domain.NewForbiddenError(domain.EntityCandidateLocation, location.ID, "cannot take follow-ups in status "+string(location.Status))
	}
	if followUp.Type == "" {
		followUp.Type = domain.FollowUpTypeOther
	}
	if followUp.AssigneeID == "" {
		followUp.AssigneeID = creatorID
	}
	followUp.ID = ""
	followUp.Status = domain.FollowUpStatus(domain.InitialStatus(domain.EntityFollowUp))
	return s.store.CreateFollowUp(ctx, followUp)
}

// AddPaymentItem records a payable against a live store file.
func (s *Service) AddPaymentItem(ctx context.Context, item domain.PaymentItem, operatorID string) (created domain.PaymentItem, err error) {
	ctx, finish := s.begin(ctx, opAddPaymentItem, operatorID)
	defer func() { finish(created.ID, err) }()

	if err := s.requireLiveStoreFile(ctx, item.StoreFileID); err != nil {
		return domain.PaymentItem{}, err
	}
	item.ID = ""
	return s.store.CreatePaymentItem(ctx, item)
}

// AddAsset records an asset against a live store file.
func (s *Service) AddAsset(ctx context.Context, asset domain.Asset, operatorID string) (created domain.Asset, err error) {
	ctx, finish := s.begin(ctx, opAddAsset, operatorID)
	defer func() { finish(created.ID, err) }()

	if err := s.requireLiveStoreFile(ctx, asset.StoreFileID); err != nil {
		return domain.Asset{}, err
	}
	asset.ID = ""
	return s.store.CreateAsset(ctx, asset)
}

// CreateRegion seeds region reference data.
func (s *Service) CreateRegion(ctx context.Context, region domain.Region, operatorID string) (created domain.Region, err error) {
	ctx, finish := s.begin(ctx, opCreateRegion, operatorID)
	defer func() { finish(created.ID, err) }()
	return s.store.CreateRegion(ctx, region)
}

// CreateBusinessEntity seeds business entity reference data.
func (s *Service) CreateBusinessEntity(ctx context.Context, entity domain.BusinessEntity, operatorID string) (created domain.BusinessEntity, err error) {
	ctx, finish := s.begin(ctx, opCreateBusinessEntity, operatorID)
	defer func() { finish(created.ID, err) }()
	return s.store.CreateBusinessEntity(ctx, entity)
}

// Inactive reference data is reported as missing.
func (s *Service) requireActiveRegion(ctx context.Context, id string) error {
	region, err := s.store.GetRegion(ctx, id)
	if err != nil {
		return err
	}
	if !region.Active {
		return domain.NewNotFoundError(domain.EntityRegion, id)
	}
	return nil
}

func (s *Service) requireActiveBusinessEntity(ctx context.Context, id string) error {
	entity, err := s.store.GetBusinessEntity(ctx, id)
	if err != nil {
		return err
	}
	if !entity.Active {
		return domain.NewNotFoundError(domain.EntityBusinessEntity, id)
	}
	return nil
}

func (s *Service) requireLiveStoreFile(ctx context.Context, id string) error {
	file, err := s.store.GetStoreFile(ctx, id)
	if err != nil {
		return err
	}
	if domain.IsTerminal(domain.EntityStoreFile, string(file.Status)) {
		return domain.NewForbiddenError(domain.EntityStoreFile, id, "cannot be changed in status "+string(file.Status))
	}
	return nil
}

func planIsActive(status domain.PlanStatus) bool {
	return status != domain.PlanStatusCancelled && status != domain.PlanStatusRejected
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}
