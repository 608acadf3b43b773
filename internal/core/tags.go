package core

import (
	"context"
	"strings"
	"time"

	"expansioncore/pkg/domain"
)

// normalizeTags trims tags, drops blanks and duplicates, and keeps order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func replaceTags[T any](ctx context.Context, lc lifecycle[T], tagsOf func(*T) *[]string, id string, tags []string, expected *time.Time) (T, error) {
	var zero T
	current, err := lc.get(ctx, id)
	if err != nil {
		return zero, err
	}
	observed := lc.base(&current).LastModifiedAt()
	if err := domain.CheckConcurrency(lc.entity, id, observed, expected); err != nil {
		return zero, err
	}
	if status := lc.status(&current); domain.IsTerminal(lc.entity, status) {
		return zero, domain.NewForbiddenError(lc.entity, id, "tags cannot be edited in status "+status)
	}
	normalized := normalizeTags(tags)
	return lc.update(ctx, id, observed, func(v *T) error {
		*tagsOf(v) = normalized
		return nil
	})
}

// ReplaceLocationTags overwrites the tag set of a candidate location.
func (s *Service) ReplaceLocationTags(ctx context.Context, id string, tags []string, expected *time.Time, operatorID string) (location domain.CandidateLocation, err error) {
	ctx, finish := s.begin(ctx, opReplaceLocationTags, operatorID)
	defer func() { finish(id, err) }()
	return replaceTags(ctx, locationLifecycle(s.store), func(l *domain.CandidateLocation) *[]string { return &l.Tags }, id, tags, expected)
}

// ReplaceStoreFileTags overwrites the tag set of a store file.
func (s *Service) ReplaceStoreFileTags(ctx context.Context, id string, tags []string, expected *time.Time, operatorID string) (file domain.StoreFile, err error) {
	ctx, finish := s.begin(ctx, opReplaceStoreFileTags, operatorID)
	defer func() { finish(id, err) }()
	return replaceTags(ctx, storeFileLifecycle(s.store), func(f *domain.StoreFile) *[]string { return &f.Tags }, id, tags, expected)
}

// ReplaceTags dispatches a tag replacement by entity type.
func (s *Service) ReplaceTags(ctx context.Context, entity domain.EntityType, id string, tags []string, operatorID string) error {
	var err error
	switch entity {
	case domain.EntityCandidateLocation:
		_, err = s.ReplaceLocationTags(ctx, id, tags, nil, operatorID)
	case domain.EntityStoreFile:
		_, err = s.ReplaceStoreFileTags(ctx, id, tags, nil, operatorID)
	default:
		err = domain.NewBadRequestError("%s has no tags", domain.EntityLabel(entity))
	}
	return err
}
