package usecase

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
)

type featureCatalogFile struct {
	Features []domain.Feature `yaml:"features"`
}

// LoadFeatureCatalog reads a YAML feature catalogue of the form
//
//	features:
//	  - code: site_management
//	    resource_type: site
//	    required_permissions: [site.read]
//	    api_endpoints: ["GET /api/v1/sites/{id}"]
func LoadFeatureCatalog(path string) ([]domain.Feature, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feature catalog: %w", err)
	}

	var file featureCatalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse feature catalog: %w", err)
	}
	if len(file.Features) == 0 {
		return nil, fmt.Errorf("%w: catalog %s defines no features", ErrInvalidFeature, path)
	}
	return file.Features, nil
}

// DefaultFeatures returns the built-in catalogue for the telecom operations domain.
func DefaultFeatures() []domain.Feature {
	return []domain.Feature{
		{
			Code:                "site_view",
			Name:                "Site directory",
			ResourceType:        "site",
			Actions:             []string{"read"},
			RequiredPermissions: []string{"site.read"},
			APIEndpoints:        []string{"GET /api/v1/sites", "GET /api/v1/sites/{id}"},
			UIComponents:        []string{"SiteList", "SiteDetail"},
		},
		{
			Code:                "site_management",
			Name:                "Site management",
			ResourceType:        "site",
			Actions:             []string{"create", "update"},
			RequiredPermissions: []string{"site.create", "site.update"},
			APIEndpoints:        []string{"POST /api/v1/sites", "PUT /api/v1/sites/{id}", "PATCH /api/v1/sites/{id}"},
			UIComponents:        []string{"SiteForm"},
		},
		{
			Code:                "site_decommission",
			Name:                "Site decommissioning",
			ResourceType:        "site",
			Actions:             []string{"delete"},
			RequiredPermissions: []string{"site.delete"},
			APIEndpoints:        []string{"DELETE /api/v1/sites/{id}"},
			UIComponents:        []string{"SiteDeleteButton"},
		},
		{
			Code:                "task_view",
			Name:                "Task board",
			ResourceType:        "task",
			Actions:             []string{"read"},
			RequiredPermissions: []string{"task.read"},
			APIEndpoints:        []string{"GET /api/v1/tasks", "GET /api/v1/tasks/{id}"},
			UIComponents:        []string{"TaskBoard", "TaskDetail"},
		},
		{
			Code:                "task_management",
			Name:                "Task management",
			ResourceType:        "task",
			Actions:             []string{"create", "update", "assign"},
			RequiredPermissions: []string{"task.create", "task.update", "task.assign"},
			APIEndpoints: []string{
				"POST /api/v1/tasks",
				"PUT /api/v1/tasks/{id}",
				"POST /api/v1/tasks/{id}/assign",
			},
			UIComponents: []string{"TaskForm", "TaskAssignDialog"},
		},
		{
			Code:                "project_view",
			Name:                "Projects",
			ResourceType:        "project",
			Actions:             []string{"read"},
			RequiredPermissions: []string{"project.read"},
			APIEndpoints:        []string{"GET /api/v1/projects", "GET /api/v1/projects/{id}"},
			UIComponents:        []string{"ProjectList"},
		},
		{
			Code:                "project_management",
			Name:                "Project management",
			ResourceType:        "project",
			Actions:             []string{"create", "update", "delete"},
			RequiredPermissions: []string{"project.manage"},
			APIEndpoints: []string{
				"POST /api/v1/projects",
				"PUT /api/v1/projects/{id}",
				"DELETE /api/v1/projects/{id}",
			},
			UIComponents: []string{"ProjectForm"},
		},
		{
			Code:                "equipment_inventory",
			Name:                "Equipment inventory",
			ResourceType:        "equipment",
			Actions:             []string{"read", "update"},
			RequiredPermissions: []string{"equipment.read", "equipment.manage"},
			APIEndpoints:        []string{"/api/v1/equipment", "/api/v1/equipment/{id}"},
			UIComponents:        []string{"EquipmentInventory"},
		},
		{
			Code:                "team_view",
			Name:                "Teams",
			ResourceType:        "team",
			Actions:             []string{"read"},
			RequiredPermissions: []string{"team.read"},
			APIEndpoints:        []string{"GET /api/v1/teams", "GET /api/v1/teams/{id}"},
			UIComponents:        []string{"TeamList"},
		},
		{
			Code:                "team_management",
			Name:                "Team management",
			ResourceType:        "team",
			Actions:             []string{"create", "update", "delete"},
			RequiredPermissions: []string{"team.manage"},
			APIEndpoints: []string{
				"POST /api/v1/teams",
				"PUT /api/v1/teams/{id}",
				"DELETE /api/v1/teams/{id}",
				"POST /api/v1/teams/{id}/members",
			},
			UIComponents: []string{"TeamForm", "TeamMembers"},
		},
		{
			Code:                "user_administration",
			Name:                "User administration",
			ResourceType:        "user",
			Actions:             []string{"read", "create", "update"},
			RequiredPermissions: []string{"user.read", "user.manage"},
			APIEndpoints:        []string{"GET /api/v1/users", "GET /api/v1/users/{id}", "POST /api/v1/users", "PUT /api/v1/users/{id}"},
			UIComponents:        []string{"UserDirectory", "UserForm"},
		},
		{
			Code:                "designation_management",
			Name:                "Designations",
			ResourceType:        "designation",
			Actions:             []string{"read", "update"},
			RequiredPermissions: []string{"designation.read", "designation.manage"},
			APIEndpoints:        []string{"/api/v1/designations", "/api/v1/designations/{id}"},
			UIComponents:        []string{"DesignationMatrix"},
		},
		{
			Code:                "reporting",
			Name:                "Reports",
			ResourceType:        "report",
			Actions:             []string{"read", "export"},
			RequiredPermissions: []string{"report.view", "report.export"},
			APIEndpoints:        []string{"GET /api/v1/reports", "GET /api/v1/reports/{id}/export"},
			UIComponents:        []string{"ReportDashboard"},
		},
		{
			Code:                "access_audit",
			Name:                "Access audit",
			ResourceType:        "rbac",
			Actions:             []string{"read"},
			RequiredPermissions: []string{PermissionRBACAudit},
			APIEndpoints: []string{
				"GET /api/v1/rbac/profiles/{profileID}/explain",
				"GET /api/v1/rbac/vendor-clients",
			},
			UIComponents: []string{"PermissionExplainer", "VendorClientList"},
		},
		{
			Code:                "access_management",
			Name:                "Access management",
			ResourceType:        "rbac",
			Actions:             []string{"update"},
			RequiredPermissions: []string{PermissionRBACManage},
			APIEndpoints: []string{
				"POST /api/v1/rbac/profiles/{profileID}/overrides",
				"DELETE /api/v1/rbac/profiles/{profileID}/overrides/{permissionCode}",
				"POST /api/v1/rbac/profiles/{profileID}/invalidate",
				"POST /api/v1/rbac/profiles/{profileID}/designations",
				"DELETE /api/v1/rbac/profiles/{profileID}/designations/{assignmentID}",
				"POST /api/v1/rbac/profiles/{profileID}/groups",
				"DELETE /api/v1/rbac/profiles/{profileID}/groups/{groupID}",
				"PATCH /api/v1/rbac/permissions/{permissionCode}",
			},
			UIComponents: []string{"OverrideEditor", "DesignationAssignment", "GroupEnrolment"},
		},
	}
}
