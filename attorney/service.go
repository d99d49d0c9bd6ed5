package attorney

import "context"

// DirectoryReader abstracts repository operations for the service.
type DirectoryReader interface {
	GetByID(ctx context.Context, id string) (Profile, error)
	List(ctx context.Context, limit int) ([]Profile, error)
	CandidatePool(ctx context.Context, q Querier, filter PoolFilter) ([]Profile, error)
}

// Service exposes directory-level attorney operations.
type Service struct {
	repo DirectoryReader
}

// NewService builds a Service using the provided repository.
func NewService(repo DirectoryReader) *Service {
	return &Service{repo: repo}
}

// GetByID returns the attorney profile for the given identifier.
func (s *Service) GetByID(ctx context.Context, id string) (Profile, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns up to limit attorney profiles.
func (s *Service) List(ctx context.Context, limit int) ([]Profile, error) {
	return s.repo.List(ctx, limit)
}

// Candidates returns the verified, accepting attorneys matching the filter.
func (s *Service) Candidates(ctx context.Context, filter PoolFilter) ([]Profile, error) {
	return s.repo.CandidatePool(ctx, nil, filter)
}
