package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	"github.com/Reportify/teleopsold-sub002/internal/repository"
)

// rbacFixture is an in-memory source of truth shared by the repository mocks below. The mocks
// deliberately skip tenant filtering on joins so the engine's own checks are exercised.

type basePermissionRow struct {
	designationID string
	permissionID  string
	level         domain.PermissionLevel
}

type groupPermissionRow struct {
	groupID      string
	permissionID string
	level        domain.PermissionLevel
}

type rbacFixture struct {
	permissions            map[string]domain.PermissionRegistryEntry
	profiles               map[string]domain.TenantUserProfile
	designations           map[string]domain.Designation
	basePermissions        []basePermissionRow
	designationAssignments []domain.UserDesignationAssignment
	groups                 map[string]domain.PermissionGroup
	groupPermissions       []groupPermissionRow
	groupAssignments       []domain.UserPermissionGroupAssignment
	overrides              []domain.UserPermissionOverride
	tenants                map[string]domain.Tenant
	vendorLinks            []domain.VendorRelationship

	listErr error
	reads   int
}

func newRBACFixture() *rbacFixture {
	return &rbacFixture{
		permissions:  make(map[string]domain.PermissionRegistryEntry),
		profiles:     make(map[string]domain.TenantUserProfile),
		designations: make(map[string]domain.Designation),
		groups:       make(map[string]domain.PermissionGroup),
		tenants:      make(map[string]domain.Tenant),
	}
}

func permissionID(tenantID, code string) string {
	return tenantID + ":" + code
}

func (f *rbacFixture) addPermission(tenantID, code string, active bool) string {
	id := permissionID(tenantID, code)
	f.permissions[id] = domain.PermissionRegistryEntry{
		ID:        id,
		TenantID:  tenantID,
		Code:      code,
		Name:      code,
		Category:  "operations",
		RiskLevel: domain.RiskMedium,
		Effect:    domain.EffectAllow,
		IsActive:  active,
	}
	return id
}

func (f *rbacFixture) addProfile(tenantID, profileID string) domain.TenantUserProfile {
	profile := domain.TenantUserProfile{
		ID:          profileID,
		TenantID:    tenantID,
		UserID:      "user-" + profileID,
		DisplayName: profileID,
		IsActive:    true,
	}
	f.profiles[profileID] = profile
	return profile
}

func (f *rbacFixture) addDesignation(tenantID, id string, administrator bool) {
	f.designations[id] = domain.Designation{
		ID:                        id,
		TenantID:                  tenantID,
		Name:                      id,
		Code:                      id,
		IsSystemAdministratorRole: administrator,
		IsActive:                  true,
	}
}

func (f *rbacFixture) designationGrants(designationID, permissionID string, level domain.PermissionLevel) {
	f.basePermissions = append(f.basePermissions, basePermissionRow{designationID, permissionID, level})
}

func (f *rbacFixture) assignDesignation(profileID, designationID string, from time.Time, to *time.Time) {
	f.designationAssignments = append(f.designationAssignments, domain.UserDesignationAssignment{
		ID:            "da-" + profileID + "-" + designationID,
		UserProfileID: profileID,
		DesignationID: designationID,
		EffectiveFrom: from,
		EffectiveTo:   to,
		Status:        domain.AssignmentActive,
		IsActive:      true,
	})
}

func (f *rbacFixture) addGroup(tenantID, id string) {
	f.groups[id] = domain.PermissionGroup{ID: id, TenantID: tenantID, Name: id, Code: id, IsActive: true}
}

func (f *rbacFixture) groupGrants(groupID, permissionID string, level domain.PermissionLevel) {
	f.groupPermissions = append(f.groupPermissions, groupPermissionRow{groupID, permissionID, level})
}

func (f *rbacFixture) enrol(profileID, groupID string, expiresAt *time.Time) {
	f.groupAssignments = append(f.groupAssignments, domain.UserPermissionGroupAssignment{
		ID:            "ga-" + profileID + "-" + groupID,
		UserProfileID: profileID,
		GroupID:       groupID,
		IsActive:      true,
		ExpiresAt:     expiresAt,
	})
}

func (f *rbacFixture) override(profileID, permissionID string, level domain.PermissionLevel, reason string) {
	f.overrides = append(f.overrides, domain.UserPermissionOverride{
		ID:            "ov-" + profileID + "-" + permissionID,
		UserProfileID: profileID,
		PermissionID:  permissionID,
		Level:         level,
		Reason:        reason,
		IsActive:      true,
	})
}

func (f *rbacFixture) permissionRef(id string) *domain.PermissionRegistryEntry {
	entry, ok := f.permissions[id]
	if !ok {
		return nil
	}
	return &entry
}

func (f *rbacFixture) service() *RBACService {
	return NewRBACService(
		&profileRepoMock{f: f},
		&registryRepoMock{f: f},
		&designationRepoMock{f: f},
		&groupRepoMock{f: f},
		&overrideRepoMock{f: f},
	).WithTenantRepository(&tenantRepoMock{f: f}).WithClock(fixedClock)
}

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func day(offset int) time.Time {
	return testNow.AddDate(0, 0, offset)
}

func dayPtr(offset int) *time.Time {
	t := day(offset)
	return &t
}

type profileRepoMock struct{ f *rbacFixture }

func (m *profileRepoMock) GetByID(_ context.Context, tenantID, profileID string) (*domain.TenantUserProfile, error) {
	profile, ok := m.f.profiles[profileID]
	if !ok || profile.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	return &profile, nil
}

type registryRepoMock struct {
	f         *rbacFixture
	setActive []string
}

func (m *registryRepoMock) Create(_ context.Context, entry domain.PermissionRegistryEntry) error {
	m.f.permissions[entry.ID] = entry
	return nil
}

func (m *registryRepoMock) GetByCode(_ context.Context, tenantID, code string) (*domain.PermissionRegistryEntry, error) {
	entry, ok := m.f.permissions[permissionID(tenantID, code)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &entry, nil
}

func (m *registryRepoMock) ListActiveByTenant(_ context.Context, tenantID string) ([]domain.PermissionRegistryEntry, error) {
	m.f.reads++
	if m.f.listErr != nil {
		return nil, m.f.listErr
	}
	entries := make([]domain.PermissionRegistryEntry, 0)
	for _, entry := range m.f.permissions {
		if entry.TenantID == tenantID && entry.IsActive {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (m *registryRepoMock) SetActive(_ context.Context, tenantID, code string, active bool) error {
	id := permissionID(tenantID, code)
	entry, ok := m.f.permissions[id]
	if !ok {
		return repository.ErrNotFound
	}
	entry.IsActive = active
	m.f.permissions[id] = entry
	m.setActive = append(m.setActive, code)
	return nil
}

type designationRepoMock struct{ f *rbacFixture }

func (m *designationRepoMock) GetByID(_ context.Context, tenantID, designationID string) (*domain.Designation, error) {
	designation, ok := m.f.designations[designationID]
	if !ok || designation.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	return &designation, nil
}

func (m *designationRepoMock) ListAssignmentsByProfile(_ context.Context, profileID string) ([]domain.UserDesignationAssignment, error) {
	m.f.reads++
	if m.f.listErr != nil {
		return nil, m.f.listErr
	}
	out := make([]domain.UserDesignationAssignment, 0)
	for _, assignment := range m.f.designationAssignments {
		if assignment.UserProfileID != profileID {
			continue
		}
		if designation, ok := m.f.designations[assignment.DesignationID]; ok {
			assignment.Designation = &designation
		}
		out = append(out, assignment)
	}
	return out, nil
}

func (m *designationRepoMock) ListBasePermissions(_ context.Context, _ string, designationIDs []string) ([]domain.DesignationBasePermission, error) {
	wanted := make(map[string]struct{}, len(designationIDs))
	for _, id := range designationIDs {
		wanted[id] = struct{}{}
	}
	out := make([]domain.DesignationBasePermission, 0)
	for _, row := range m.f.basePermissions {
		if _, ok := wanted[row.designationID]; !ok {
			continue
		}
		out = append(out, domain.DesignationBasePermission{
			DesignationID:   row.designationID,
			DesignationName: m.f.designations[row.designationID].Name,
			PermissionID:    row.permissionID,
			Permission:      m.f.permissionRef(row.permissionID),
			Level:           row.level,
		})
	}
	return out, nil
}

func (m *designationRepoMock) CreateAssignment(_ context.Context, assignment domain.UserDesignationAssignment) error {
	assignment.Designation = nil
	m.f.designationAssignments = append(m.f.designationAssignments, assignment)
	return nil
}

func (m *designationRepoMock) DeactivateAssignment(_ context.Context, profileID, assignmentID string) error {
	for i, assignment := range m.f.designationAssignments {
		if assignment.ID == assignmentID && assignment.UserProfileID == profileID && assignment.IsActive {
			m.f.designationAssignments[i].IsActive = false
			m.f.designationAssignments[i].Status = domain.AssignmentInactive
			return nil
		}
	}
	return repository.ErrNotFound
}

type groupRepoMock struct{ f *rbacFixture }

func (m *groupRepoMock) GetByID(_ context.Context, tenantID, groupID string) (*domain.PermissionGroup, error) {
	group, ok := m.f.groups[groupID]
	if !ok || group.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	return &group, nil
}

func (m *groupRepoMock) ListAssignmentsByProfile(_ context.Context, profileID string) ([]domain.UserPermissionGroupAssignment, error) {
	out := make([]domain.UserPermissionGroupAssignment, 0)
	for _, assignment := range m.f.groupAssignments {
		if assignment.UserProfileID != profileID {
			continue
		}
		if group, ok := m.f.groups[assignment.GroupID]; ok {
			assignment.Group = &group
		}
		out = append(out, assignment)
	}
	return out, nil
}

func (m *groupRepoMock) ListGroupPermissions(_ context.Context, _ string, groupIDs []string) ([]domain.PermissionGroupPermission, error) {
	wanted := make(map[string]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		wanted[id] = struct{}{}
	}
	out := make([]domain.PermissionGroupPermission, 0)
	for _, row := range m.f.groupPermissions {
		if _, ok := wanted[row.groupID]; !ok {
			continue
		}
		out = append(out, domain.PermissionGroupPermission{
			GroupID:      row.groupID,
			GroupName:    m.f.groups[row.groupID].Name,
			PermissionID: row.permissionID,
			Permission:   m.f.permissionRef(row.permissionID),
			Level:        row.level,
		})
	}
	return out, nil
}

func (m *groupRepoMock) CreateAssignment(_ context.Context, assignment domain.UserPermissionGroupAssignment) error {
	for _, existing := range m.f.groupAssignments {
		if existing.IsActive && existing.UserProfileID == assignment.UserProfileID && existing.GroupID == assignment.GroupID {
			return repository.ErrConflict
		}
	}
	assignment.Group = nil
	m.f.groupAssignments = append(m.f.groupAssignments, assignment)
	return nil
}

func (m *groupRepoMock) DeactivateAssignment(_ context.Context, profileID, groupID string) error {
	for i, assignment := range m.f.groupAssignments {
		if assignment.GroupID == groupID && assignment.UserProfileID == profileID && assignment.IsActive {
			m.f.groupAssignments[i].IsActive = false
			return nil
		}
	}
	return repository.ErrNotFound
}

type overrideRepoMock struct{ f *rbacFixture }

func (m *overrideRepoMock) ListByProfile(_ context.Context, _ string, profileID string) ([]domain.UserPermissionOverride, error) {
	out := make([]domain.UserPermissionOverride, 0)
	for _, override := range m.f.overrides {
		if override.UserProfileID != profileID {
			continue
		}
		override.Permission = m.f.permissionRef(override.PermissionID)
		out = append(out, override)
	}
	return out, nil
}

func (m *overrideRepoMock) Upsert(_ context.Context, override domain.UserPermissionOverride) error {
	override.Permission = nil
	for i, existing := range m.f.overrides {
		if existing.UserProfileID == override.UserProfileID && existing.PermissionID == override.PermissionID {
			m.f.overrides[i] = override
			return nil
		}
	}
	m.f.overrides = append(m.f.overrides, override)
	return nil
}

func (m *overrideRepoMock) Deactivate(_ context.Context, profileID, permissionID string) error {
	for i, override := range m.f.overrides {
		if override.UserProfileID == profileID && override.PermissionID == permissionID && override.IsActive {
			m.f.overrides[i].IsActive = false
			return nil
		}
	}
	return repository.ErrNotFound
}

type tenantRepoMock struct{ f *rbacFixture }

func (m *tenantRepoMock) GetByID(_ context.Context, tenantID string) (*domain.Tenant, error) {
	tenant, ok := m.f.tenants[tenantID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &tenant, nil
}

func (m *tenantRepoMock) ListVendorClients(_ context.Context, vendorTenantID string) ([]domain.VendorRelationship, error) {
	out := make([]domain.VendorRelationship, 0)
	for _, link := range m.f.vendorLinks {
		if link.VendorTenantID == vendorTenantID {
			out = append(out, link)
		}
	}
	return out, nil
}

// permissionCacheMock stores serialized maps so cached reads never alias engine state.
type permissionCacheMock struct {
	entries        map[string][]byte
	ttls           map[string]time.Duration
	getErr         error
	setErr         error
	invalidateErr  error
	sets           int
	invalidated    []string
	tenantsDropped []string
}

func newPermissionCacheMock() *permissionCacheMock {
	return &permissionCacheMock{
		entries: make(map[string][]byte),
		ttls:    make(map[string]time.Duration),
	}
}

func (m *permissionCacheMock) Get(_ context.Context, tenantID, profileID string) (*domain.EffectivePermissions, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	raw, ok := m.entries[tenantID+"/"+profileID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	var out domain.EffectivePermissions
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *permissionCacheMock) Set(_ context.Context, permissions domain.EffectivePermissions, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	raw, err := json.Marshal(permissions)
	if err != nil {
		return err
	}
	key := permissions.TenantID + "/" + permissions.UserProfileID
	m.entries[key] = raw
	m.ttls[key] = ttl
	m.sets++
	return nil
}

func (m *permissionCacheMock) Invalidate(_ context.Context, tenantID, profileID string) error {
	if m.invalidateErr != nil {
		return m.invalidateErr
	}
	key := tenantID + "/" + profileID
	delete(m.entries, key)
	m.invalidated = append(m.invalidated, key)
	return nil
}

func (m *permissionCacheMock) InvalidateTenant(_ context.Context, tenantID string) error {
	if m.invalidateErr != nil {
		return m.invalidateErr
	}
	prefix := tenantID + "/"
	for key := range m.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(m.entries, key)
		}
	}
	m.tenantsDropped = append(m.tenantsDropped, tenantID)
	return nil
}

type resolutionMetricsMock struct {
	hits        int
	misses      int
	errors      map[string]int
	resolutions int
	admin       int
}

func (m *resolutionMetricsMock) IncCacheHit()  { m.hits++ }
func (m *resolutionMetricsMock) IncCacheMiss() { m.misses++ }

func (m *resolutionMetricsMock) IncCacheError(operation string) {
	if m.errors == nil {
		m.errors = make(map[string]int)
	}
	m.errors[operation]++
}

func (m *resolutionMetricsMock) ObserveResolution(administrator bool, _ time.Duration) {
	m.resolutions++
	if administrator {
		m.admin++
	}
}

type eventPublisherMock struct {
	events []domain.PermissionsInvalidatedEvent
	err    error
}

func (m *eventPublisherMock) PublishPermissionsInvalidated(_ context.Context, event domain.PermissionsInvalidatedEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}
