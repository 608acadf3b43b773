package core

import (
	"context"
	"fmt"
)

// Code prefixes for generated business codes.
const (
	PlanCodePrefix      = "PLAN"
	LocationCodePrefix  = "LOC"
	StoreFileCodePrefix = "SF"
)

// nextCode returns PREFIX-YYYYMMDD-NNNN. The sequence restarts every day.
func (s *Service) nextCode(ctx context.Context, prefix string) (string, error) {
	day := s.now().Format("20060102")
	n, err := s.store.NextSequence(ctx, prefix+"-"+day)
	if err != nil {
		return "", fmt.Errorf("generate %s code: %w", prefix, err)
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, day, n), nil
}
