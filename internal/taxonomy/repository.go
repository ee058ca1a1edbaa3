package taxonomy

import (
	"context"
	"sync"
)

// StaticRepository serves the built-in industry templates and holds
// organization overrides in memory. It backs deployments without an
// external taxonomy store and is handy in tests.
type StaticRepository struct {
	mu        sync.RWMutex
	templates map[string]*Data
	overrides map[string]*Data
}

// NewStaticRepository creates a repository preloaded with the built-in
// industry templates.
func NewStaticRepository() *StaticRepository {
	return &StaticRepository{
		templates: IndustryTemplates(),
		overrides: make(map[string]*Data),
	}
}

// SetOverride installs or replaces the override for an organization.
func (r *StaticRepository) SetOverride(orgID string, d *Data) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[orgID] = d
}

// IndustryTemplate implements Repository.
func (r *StaticRepository) IndustryTemplate(_ context.Context, industry string) (*Data, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates[industry], nil
}

// OrganizationOverride implements Repository.
func (r *StaticRepository) OrganizationOverride(_ context.Context, orgID string) (*Data, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.overrides[orgID], nil
}

var _ Repository = (*StaticRepository)(nil)
