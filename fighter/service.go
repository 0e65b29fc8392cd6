package fighter

import "context"

// DirectoryReader abstracts repository operations for the service.
type DirectoryReader interface {
	GetByID(ctx context.Context, id string) (Account, error)
	GetByName(ctx context.Context, displayName string) (Account, error)
}

// Service exposes fighter-directory operations to the rest of the engine.
type Service struct {
	repo DirectoryReader
}

func NewService(repo DirectoryReader) *Service {
	return &Service{repo: repo}
}

// Get returns the fighter account for the given identifier.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByName returns the fighter account with the exact display name.
func (s *Service) GetByName(ctx context.Context, displayName string) (Account, error) {
	return s.repo.GetByName(ctx, displayName)
}
