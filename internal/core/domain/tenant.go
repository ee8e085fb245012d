package domain

import "time"

// TenantType enumerates the organisational tiers of the platform.
type TenantType string

const (
	TenantTypeCorporate TenantType = "Corporate"
	TenantTypeCircle    TenantType = "Circle"
	TenantTypeVendor    TenantType = "Vendor"
)

// Valid reports whether the tenant type is one of the known tiers.
func (t TenantType) Valid() bool {
	switch t {
	case TenantTypeCorporate, TenantTypeCircle, TenantTypeVendor:
		return true
	}
	return false
}

// Tenant is an organisation unit. Corporate tenants parent Circle tenants; vendor tenants are
// linked to clients through VendorRelationship rows instead of the tree.
type Tenant struct {
	ID             string
	Name           string
	Type           TenantType
	ParentTenantID *string
	IsActive       bool
	CreatedAt      time.Time
}

// VendorRelationshipStatus captures the lifecycle of a vendor engagement.
type VendorRelationshipStatus string

const (
	VendorRelationshipActive    VendorRelationshipStatus = "Active"
	VendorRelationshipSuspended VendorRelationshipStatus = "Suspended"
	VendorRelationshipEnded     VendorRelationshipStatus = "Terminated"
)

// VendorRelationship links a vendor tenant to a client tenant. It never carries permissions:
// vendor staff are authorised through their own profile in the vendor tenant.
type VendorRelationship struct {
	VendorTenantID string
	ClientTenantID string
	Status         VendorRelationshipStatus
	StartedAt      time.Time
}

// TenantUserProfile is the authorisation identity of a user inside one tenant.
type TenantUserProfile struct {
	ID          string
	TenantID    string
	UserID      string
	DisplayName string
	Email       *string
	IsActive    bool
}
