package orders

import (
	"context"
	"fmt"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*WorkOrder, error)
	GetByFolio(ctx context.Context, folio string) (*WorkOrder, error)
	List(ctx context.Context, filter ListFilter) ([]WorkOrder, int, error)
}

// Service exposes read access to work orders for the billing flow.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get returns an order with its concepts.
func (s *Service) Get(ctx context.Context, id int64) (*WorkOrder, error) {
	return s.repo.Get(ctx, id)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]WorkOrder, int, error) {
	return s.repo.List(ctx, filter)
}

// Children lists the split children spawned from the given root order.
func (s *Service) Children(ctx context.Context, rootID int64) ([]WorkOrder, error) {
	if _, err := s.repo.Get(ctx, rootID); err != nil {
		return nil, fmt.Errorf("get root order: %w", err)
	}
	children, _, err := s.repo.List(ctx, ListFilter{ParentOTID: &rootID, Limit: 200})
	return children, err
}
