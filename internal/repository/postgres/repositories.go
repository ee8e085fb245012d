package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Profiles     *UserProfileRepository
	Tenants      *TenantRepository
	Registry     *PermissionRegistryRepository
	Designations *DesignationRepository
	Groups       *PermissionGroupRepository
	Overrides    *OverrideRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Profiles:     NewUserProfileRepository(pool),
		Tenants:      NewTenantRepository(pool),
		Registry:     NewPermissionRegistryRepository(pool),
		Designations: NewDesignationRepository(pool),
		Groups:       NewPermissionGroupRepository(pool),
		Overrides:    NewOverrideRepository(pool),
	}
}
