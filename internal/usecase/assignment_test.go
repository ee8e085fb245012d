package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
)

type assignmentHarness struct {
	f         *rbacFixture
	svc       *AssignmentService
	cache     *permissionCacheMock
	publisher *eventPublisherMock
	registry  *registryRepoMock
	actor     domain.TenantUserProfile
	target    domain.TenantUserProfile
}

func newAssignmentHarness(t *testing.T) *assignmentHarness {
	t.Helper()

	f := newRBACFixture()
	actor := f.addProfile(tenantA, "manager")
	target := f.addProfile(tenantA, "engineer-1")
	f.addProfile(tenantB, "outsider")

	manage := f.addPermission(tenantA, PermissionRBACManage, true)
	f.addPermission(tenantA, "site.read", true)
	f.addPermission(tenantA, "site.delete", false)
	f.addPermission(tenantA, "team.read", true)
	f.addPermission(tenantB, "site.update", true)
	f.override(actor.ID, manage, domain.PermissionGranted, "access administrator")

	cache := newPermissionCacheMock()
	publisher := &eventPublisherMock{}
	registry := &registryRepoMock{f: f}

	rbac := NewRBACService(
		&profileRepoMock{f: f},
		registry,
		&designationRepoMock{f: f},
		&groupRepoMock{f: f},
		&overrideRepoMock{f: f},
	).WithPermissionCache(cache, 0).WithClock(fixedClock)

	svc := NewAssignmentService(rbac, registry, &designationRepoMock{f: f}, &groupRepoMock{f: f}, &overrideRepoMock{f: f}).
		WithEventPublisher(publisher).
		WithClock(fixedClock)

	return &assignmentHarness{
		f:         f,
		svc:       svc,
		cache:     cache,
		publisher: publisher,
		registry:  registry,
		actor:     actor,
		target:    target,
	}
}

func TestAssignDesignationGrantsAndRefreshes(t *testing.T) {
	h := newAssignmentHarness(t)
	h.f.addDesignation(tenantA, "site-engineer", false)
	h.f.designationGrants("site-engineer", permissionID(tenantA, "site.read"), domain.PermissionGranted)

	// Prime a stale cached map for the target.
	if _, err := h.svc.rbac.GetEffectivePermissions(context.Background(), h.target, false); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	resolved, err := h.svc.AssignDesignation(context.Background(), h.actor, AssignDesignationInput{
		ProfileID:     h.target.ID,
		DesignationID: "site-engineer",
		IsPrimary:     true,
	})
	if err != nil {
		t.Fatalf("AssignDesignation returned error: %v", err)
	}
	if !resolved.Permissions.Has("site.read") {
		t.Fatalf("expected refreshed map to include site.read, got %+v", resolved.Permissions)
	}
	if resolved.Metadata.FromCache {
		t.Fatal("mutation should return a freshly computed map")
	}

	cached, err := h.svc.rbac.GetEffectivePermissions(context.Background(), h.target, false)
	if err != nil {
		t.Fatalf("read after mutation: %v", err)
	}
	if !cached.Metadata.FromCache || !cached.Permissions.Has("site.read") {
		t.Fatalf("expected cache repopulated with new grant, got %+v", cached)
	}

	if len(h.publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(h.publisher.events))
	}
	event := h.publisher.events[0]
	if event.Scope != domain.InvalidationScopeProfile || event.UserProfileID != h.target.ID || event.ChangedBy != h.actor.ID {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.EventID == "" || !event.OccurredAt.Equal(testNow) {
		t.Fatalf("event should carry id and timestamp: %+v", event)
	}
	if len(h.cache.invalidated) != 1 || h.cache.invalidated[0] != tenantA+"/"+h.target.ID {
		t.Fatalf("expected target invalidated, got %v", h.cache.invalidated)
	}
}

func TestAssignDesignationRejectsForeignDesignation(t *testing.T) {
	h := newAssignmentHarness(t)
	h.f.addDesignation(tenantB, "b-engineer", false)

	_, err := h.svc.AssignDesignation(context.Background(), h.actor, AssignDesignationInput{
		ProfileID:     h.target.ID,
		DesignationID: "b-engineer",
	})
	if !errors.Is(err, ErrDesignationNotFound) {
		t.Fatalf("expected ErrDesignationNotFound, got %v", err)
	}
	if len(h.publisher.events) != 0 {
		t.Fatal("failed mutation must not publish")
	}
}

func TestAssignDesignationRejectsInvertedWindow(t *testing.T) {
	h := newAssignmentHarness(t)
	h.f.addDesignation(tenantA, "site-engineer", false)

	_, err := h.svc.AssignDesignation(context.Background(), h.actor, AssignDesignationInput{
		ProfileID:     h.target.ID,
		DesignationID: "site-engineer",
		EffectiveFrom: day(5),
		EffectiveTo:   dayPtr(1),
	})
	if !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestMutationsRequireManagePermission(t *testing.T) {
	h := newAssignmentHarness(t)

	_, err := h.svc.SetOverride(context.Background(), h.target, SetOverrideInput{
		ProfileID:      h.target.ID,
		PermissionCode: "site.read",
		Level:          domain.PermissionGranted,
		Reason:         "self service",
	})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	if err := h.svc.SetPermissionActive(context.Background(), h.target, "site.read", false); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestMutationsCannotReachOtherTenants(t *testing.T) {
	h := newAssignmentHarness(t)

	_, err := h.svc.SetOverride(context.Background(), h.actor, SetOverrideInput{
		ProfileID:      "outsider",
		PermissionCode: "site.read",
		Level:          domain.PermissionGranted,
		Reason:         "cross tenant",
	})
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	_, err = h.svc.SetOverride(context.Background(), h.actor, SetOverrideInput{
		ProfileID:      h.target.ID,
		PermissionCode: "site.update",
		Level:          domain.PermissionGranted,
		Reason:         "foreign code",
	})
	if !errors.Is(err, ErrPermissionNotFound) {
		t.Fatalf("expected ErrPermissionNotFound, got %v", err)
	}
}

func TestSetOverrideValidation(t *testing.T) {
	h := newAssignmentHarness(t)

	cases := []struct {
		name  string
		input SetOverrideInput
		want  error
	}{
		{
			name:  "invalid level",
			input: SetOverrideInput{ProfileID: h.target.ID, PermissionCode: "site.read", Level: "maybe", Reason: "x"},
			want:  ErrInvalidPermissionLevel,
		},
		{
			name:  "missing reason",
			input: SetOverrideInput{ProfileID: h.target.ID, PermissionCode: "site.read", Level: domain.PermissionGranted},
			want:  ErrReasonRequired,
		},
		{
			name:  "inactive permission",
			input: SetOverrideInput{ProfileID: h.target.ID, PermissionCode: "site.delete", Level: domain.PermissionGranted, Reason: "x"},
			want:  ErrPermissionInactive,
		},
		{
			name:  "unknown permission",
			input: SetOverrideInput{ProfileID: h.target.ID, PermissionCode: "site.nuke", Level: domain.PermissionGranted, Reason: "x"},
			want:  ErrPermissionNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.svc.SetOverride(context.Background(), h.actor, tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSetAndClearOverride(t *testing.T) {
	h := newAssignmentHarness(t)
	h.f.addDesignation(tenantA, "team-lead", false)
	h.f.designationGrants("team-lead", permissionID(tenantA, "team.read"), domain.PermissionGranted)
	h.f.assignDesignation(h.target.ID, "team-lead", day(-10), nil)

	denied, err := h.svc.SetOverride(context.Background(), h.actor, SetOverrideInput{
		ProfileID:      h.target.ID,
		PermissionCode: "team.read",
		Level:          domain.PermissionDenied,
		Reason:         "under investigation",
	})
	if err != nil {
		t.Fatalf("SetOverride returned error: %v", err)
	}
	if denied.Permissions.Has("team.read") {
		t.Fatal("override denial should take effect immediately")
	}

	restored, err := h.svc.ClearOverride(context.Background(), h.actor, h.target.ID, "team.read")
	if err != nil {
		t.Fatalf("ClearOverride returned error: %v", err)
	}
	if !restored.Permissions.Has("team.read") {
		t.Fatal("clearing the override should restore the designation grant")
	}

	if _, err := h.svc.ClearOverride(context.Background(), h.actor, h.target.ID, "team.read"); !errors.Is(err, ErrOverrideNotFound) {
		t.Fatalf("expected ErrOverrideNotFound, got %v", err)
	}
	if len(h.publisher.events) != 2 {
		t.Fatalf("expected two events, got %d", len(h.publisher.events))
	}
}

func TestGroupEnrolmentLifecycle(t *testing.T) {
	h := newAssignmentHarness(t)
	h.f.addGroup(tenantA, "field-ops")
	h.f.groupGrants("field-ops", permissionID(tenantA, "site.read"), domain.PermissionGranted)

	enrolled, err := h.svc.EnrollInGroup(context.Background(), h.actor, EnrollInGroupInput{
		ProfileID: h.target.ID,
		GroupID:   "field-ops",
	})
	if err != nil {
		t.Fatalf("EnrollInGroup returned error: %v", err)
	}
	if !enrolled.Permissions.Has("site.read") || enrolled.Metadata.GroupCount != 1 {
		t.Fatalf("expected group grant, got %+v", enrolled)
	}

	if _, err := h.svc.EnrollInGroup(context.Background(), h.actor, EnrollInGroupInput{ProfileID: h.target.ID, GroupID: "field-ops"}); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("expected ErrAlreadyEnrolled, got %v", err)
	}

	removed, err := h.svc.RemoveFromGroup(context.Background(), h.actor, h.target.ID, "field-ops")
	if err != nil {
		t.Fatalf("RemoveFromGroup returned error: %v", err)
	}
	if removed.Permissions.Has("site.read") {
		t.Fatal("group removal should drop the grant")
	}

	if _, err := h.svc.EnrollInGroup(context.Background(), h.actor, EnrollInGroupInput{ProfileID: h.target.ID, GroupID: "ghost"}); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestReEnrolAfterExpiry(t *testing.T) {
	h := newAssignmentHarness(t)
	h.f.addGroup(tenantA, "night-shift")
	h.f.groupGrants("night-shift", permissionID(tenantA, "team.read"), domain.PermissionGranted)
	h.f.enrol(h.target.ID, "night-shift", dayPtr(-2))

	enrolled, err := h.svc.EnrollInGroup(context.Background(), h.actor, EnrollInGroupInput{
		ProfileID: h.target.ID,
		GroupID:   "night-shift",
	})
	if err != nil {
		t.Fatalf("re-enrolment after expiry returned error: %v", err)
	}
	if !enrolled.Permissions.Has("team.read") || enrolled.Metadata.GroupCount != 1 {
		t.Fatalf("expected the renewed enrolment to grant team.read, got %+v", enrolled)
	}

	active := 0
	for _, assignment := range h.f.groupAssignments {
		if assignment.GroupID == "night-shift" && assignment.IsActive {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("expected the lapsed row retired and one active enrolment, got %d", active)
	}

	if _, err := h.svc.EnrollInGroup(context.Background(), h.actor, EnrollInGroupInput{ProfileID: h.target.ID, GroupID: "night-shift"}); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("a live enrolment must still conflict, got %v", err)
	}
}

func TestRevokeDesignation(t *testing.T) {
	h := newAssignmentHarness(t)
	h.f.addDesignation(tenantA, "site-engineer", false)
	h.f.designationGrants("site-engineer", permissionID(tenantA, "site.read"), domain.PermissionGranted)
	h.f.assignDesignation(h.target.ID, "site-engineer", day(-10), nil)
	assignmentID := h.f.designationAssignments[len(h.f.designationAssignments)-1].ID

	resolved, err := h.svc.RevokeDesignation(context.Background(), h.actor, h.target.ID, assignmentID)
	if err != nil {
		t.Fatalf("RevokeDesignation returned error: %v", err)
	}
	if resolved.Permissions.Has("site.read") {
		t.Fatal("revoked designation should no longer grant site.read")
	}

	if _, err := h.svc.RevokeDesignation(context.Background(), h.actor, h.target.ID, assignmentID); !errors.Is(err, ErrAssignmentNotFound) {
		t.Fatalf("expected ErrAssignmentNotFound, got %v", err)
	}
}

func TestSetPermissionActiveInvalidatesTenant(t *testing.T) {
	h := newAssignmentHarness(t)

	if err := h.svc.SetPermissionActive(context.Background(), h.actor, "site.delete", true); err != nil {
		t.Fatalf("SetPermissionActive returned error: %v", err)
	}
	if !h.f.permissions[permissionID(tenantA, "site.delete")].IsActive {
		t.Fatal("expected site.delete activated")
	}
	if len(h.cache.tenantsDropped) != 1 || h.cache.tenantsDropped[0] != tenantA {
		t.Fatalf("expected tenant cache dropped, got %v", h.cache.tenantsDropped)
	}
	if len(h.publisher.events) != 1 || h.publisher.events[0].Scope != domain.InvalidationScopeTenant {
		t.Fatalf("expected tenant scoped event, got %+v", h.publisher.events)
	}
	if h.publisher.events[0].Reason != "permission_activated" {
		t.Fatalf("unexpected reason %q", h.publisher.events[0].Reason)
	}
}

func TestMutationSurvivesCacheAndBusFailures(t *testing.T) {
	h := newAssignmentHarness(t)
	h.f.addDesignation(tenantA, "site-engineer", false)
	h.f.designationGrants("site-engineer", permissionID(tenantA, "site.read"), domain.PermissionGranted)

	// Warm the actor's map before breaking the cache so authorization still resolves.
	if _, err := h.svc.rbac.GetEffectivePermissions(context.Background(), h.actor, false); err != nil {
		t.Fatalf("warm actor: %v", err)
	}
	h.cache.invalidateErr = errors.New("redis unavailable")
	h.publisher.err = errors.New("kafka unavailable")

	resolved, err := h.svc.AssignDesignation(context.Background(), h.actor, AssignDesignationInput{
		ProfileID:     h.target.ID,
		DesignationID: "site-engineer",
	})
	if err != nil {
		t.Fatalf("mutation should succeed despite cache and bus failures: %v", err)
	}
	if !resolved.Permissions.Has("site.read") {
		t.Fatal("force refresh should reflect the new assignment")
	}
}

func TestInvalidateProfilePublishesProfileEvent(t *testing.T) {
	h := newAssignmentHarness(t)

	if _, err := h.svc.InvalidateProfile(context.Background(), h.actor, h.target.ID); err != nil {
		t.Fatalf("InvalidateProfile returned error: %v", err)
	}
	if len(h.cache.invalidated) != 1 {
		t.Fatalf("expected one profile invalidation, got %v", h.cache.invalidated)
	}
	if len(h.publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(h.publisher.events))
	}
	event := h.publisher.events[0]
	if event.Scope != domain.InvalidationScopeProfile || event.UserProfileID != h.target.ID || event.Reason != "manual_invalidation" {
		t.Fatalf("unexpected event %+v", event)
	}

	if _, err := h.svc.InvalidateProfile(context.Background(), h.target, h.actor.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for unprivileged actor, got %v", err)
	}
}
