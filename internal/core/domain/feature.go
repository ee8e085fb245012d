package domain

// Feature binds permission codes to a product capability, the API endpoints that implement it
// and the frontend components that expose it.
type Feature struct {
	Code                string   `yaml:"code" json:"code"`
	Name                string   `yaml:"name" json:"name"`
	Description         string   `yaml:"description,omitempty" json:"description,omitempty"`
	ResourceType        string   `yaml:"resource_type" json:"resource_type"`
	Actions             []string `yaml:"actions" json:"actions"`
	RequiredPermissions []string `yaml:"required_permissions" json:"required_permissions"`
	APIEndpoints        []string `yaml:"api_endpoints,omitempty" json:"api_endpoints,omitempty"`
	UIComponents        []string `yaml:"ui_components,omitempty" json:"ui_components,omitempty"`
}
