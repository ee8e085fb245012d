// Package docs holds the OpenAPI description served at /docs.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Service health check",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}}}
            }
        },
        "/readyz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Service readiness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ReadyResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handlers.ReadyResponse"}}
                }
            }
        },
        "/api/v1/rbac/me/permissions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["RBAC"],
                "summary": "Caller's effective permissions",
                "parameters": [
                    {"$ref": "#/parameters/Authorization"},
                    {"type": "boolean", "description": "Force recomputation", "name": "refresh", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.PermissionsResponse"}},
                    "401": {"$ref": "#/responses/Error"}
                }
            }
        },
        "/api/v1/rbac/me/features": {
            "get": {
                "produces": ["application/json"],
                "tags": ["RBAC"],
                "summary": "Caller's accessible features",
                "parameters": [{"$ref": "#/parameters/Authorization"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.FeaturesResponse"}},
                    "401": {"$ref": "#/responses/Error"}
                }
            }
        },
        "/api/v1/rbac/vendor-clients": {
            "get": {
                "produces": ["application/json"],
                "tags": ["RBAC"],
                "summary": "Client tenants of the caller's vendor tenant",
                "parameters": [{"$ref": "#/parameters/Authorization"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.VendorClientsResponse"}},
                    "403": {"$ref": "#/responses/Denied"}
                }
            }
        },
        "/api/v1/rbac/profiles/{profileID}/explain": {
            "get": {
                "produces": ["application/json"],
                "tags": ["RBAC"],
                "summary": "Explain a profile's permissions",
                "parameters": [{"$ref": "#/parameters/Authorization"}, {"$ref": "#/parameters/ProfileID"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "403": {"$ref": "#/responses/Denied"},
                    "404": {"$ref": "#/responses/Error"}
                }
            }
        },
        "/api/v1/rbac/profiles/{profileID}/overrides": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["RBAC"],
                "summary": "Grant or deny one permission to a profile",
                "parameters": [
                    {"$ref": "#/parameters/Authorization"},
                    {"$ref": "#/parameters/ProfileID"},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SetOverrideRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.PermissionsResponse"}},
                    "400": {"$ref": "#/responses/Error"},
                    "403": {"$ref": "#/responses/Denied"},
                    "404": {"$ref": "#/responses/Error"}
                }
            }
        },
        "/api/v1/rbac/profiles/{profileID}/overrides/{permissionCode}": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["RBAC"],
                "summary": "Remove a permission override",
                "parameters": [
                    {"$ref": "#/parameters/Authorization"},
                    {"$ref": "#/parameters/ProfileID"},
                    {"$ref": "#/parameters/PermissionCode"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.PermissionsResponse"}},
                    "403": {"$ref": "#/responses/Denied"},
                    "404": {"$ref": "#/responses/Error"}
                }
            }
        },
        "/api/v1/rbac/profiles/{profileID}/designations": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["RBAC"],
                "summary": "Assign a designation to a profile",
                "parameters": [
                    {"$ref": "#/parameters/Authorization"},
                    {"$ref": "#/parameters/ProfileID"},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.AssignDesignationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.PermissionsResponse"}},
                    "400": {"$ref": "#/responses/Error"},
                    "403": {"$ref": "#/responses/Denied"},
                    "404": {"$ref": "#/responses/Error"}
                }
            }
        },
        "/api/v1/rbac/profiles/{profileID}/designations/{assignmentID}": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["RBAC"],
                "summary": "Revoke a designation assignment",
                "parameters": [
                    {"$ref": "#/parameters/Authorization"},
                    {"$ref": "#/parameters/ProfileID"},
                    {"type": "string", "name": "assignmentID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.PermissionsResponse"}},
                    "403": {"$ref": "#/responses/Denied"},
                    "404": {"$ref": "#/responses/Error"}
                }
            }
        },
        "/api/v1/rbac/profiles/{profileID}/groups": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["RBAC"],
                "summary": "Enrol a profile in a permission group",
                "parameters": [
                    {"$ref": "#/parameters/Authorization"},
                    {"$ref": "#/parameters/ProfileID"},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.EnrollGroupRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.PermissionsResponse"}},
                    "400": {"$ref": "#/responses/Error"},
                    "403": {"$ref": "#/responses/Denied"},
                    "404": {"$ref": "#/responses/Error"}
                }
            }
        },
        "/api/v1/rbac/profiles/{profileID}/groups/{groupID}": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["RBAC"],
                "summary": "Remove a profile from a permission group",
                "parameters": [
                    {"$ref": "#/parameters/Authorization"},
                    {"$ref": "#/parameters/ProfileID"},
                    {"type": "string", "name": "groupID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.PermissionsResponse"}},
                    "403": {"$ref": "#/responses/Denied"},
                    "404": {"$ref": "#/responses/Error"}
                }
            }
        },
        "/api/v1/rbac/profiles/{profileID}/invalidate": {
            "post": {
                "produces": ["application/json"],
                "tags": ["RBAC"],
                "summary": "Drop a profile's cached permissions",
                "parameters": [{"$ref": "#/parameters/Authorization"}, {"$ref": "#/parameters/ProfileID"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.PermissionsResponse"}},
                    "403": {"$ref": "#/responses/Denied"},
                    "404": {"$ref": "#/responses/Error"}
                }
            }
        },
        "/api/v1/rbac/permissions/{permissionCode}": {
            "patch": {
                "consumes": ["application/json"],
                "tags": ["RBAC"],
                "summary": "Activate or deactivate a permission for the caller's tenant",
                "parameters": [
                    {"$ref": "#/parameters/Authorization"},
                    {"$ref": "#/parameters/PermissionCode"},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.PermissionActivationRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"$ref": "#/responses/Error"},
                    "403": {"$ref": "#/responses/Denied"},
                    "404": {"$ref": "#/responses/Error"}
                }
            }
        }
    },
    "parameters": {
        "Authorization": {"type": "string", "description": "Bearer access token", "name": "Authorization", "in": "header", "required": true},
        "ProfileID": {"type": "string", "description": "Tenant user profile ID", "name": "profileID", "in": "path", "required": true},
        "PermissionCode": {"type": "string", "description": "Permission code", "name": "permissionCode", "in": "path", "required": true}
    },
    "responses": {
        "Error": {"description": "Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
        "Denied": {"description": "Forbidden", "schema": {"$ref": "#/definitions/middleware.PermissionDeniedResponse"}}
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "trace_id": {"type": "string"}}
        },
        "middleware.PermissionDeniedResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "required_permissions": {"type": "array", "items": {"type": "string"}},
                "trace_id": {"type": "string"}
            }
        },
        "handlers.HealthResponse": {
            "type": "object",
            "properties": {"status": {"type": "string"}, "started_at": {"type": "string"}, "timestamp": {"type": "string"}}
        },
        "handlers.ReadyResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "checks": {"type": "object", "additionalProperties": {"type": "string"}},
                "timestamp": {"type": "string"}
            }
        },
        "domain.PermissionEntry": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "level": {"type": "string", "enum": ["granted", "denied"]},
                "source": {"type": "string", "enum": ["designation", "group", "override", "administrator"]},
                "risk_level": {"type": "string"},
                "category": {"type": "string"}
            }
        },
        "domain.ResolutionMetadata": {
            "type": "object",
            "properties": {
                "designation_count": {"type": "integer"},
                "group_count": {"type": "integer"},
                "override_count": {"type": "integer"},
                "is_administrator": {"type": "boolean"},
                "resolved_at": {"type": "string"},
                "from_cache": {"type": "boolean"}
            }
        },
        "handlers.PermissionsResponse": {
            "type": "object",
            "properties": {
                "tenant_id": {"type": "string"},
                "user_profile_id": {"type": "string"},
                "permissions": {"type": "object", "additionalProperties": {"$ref": "#/definitions/domain.PermissionEntry"}},
                "granted": {"type": "array", "items": {"type": "string"}},
                "metadata": {"$ref": "#/definitions/domain.ResolutionMetadata"}
            }
        },
        "handlers.FeaturesResponse": {
            "type": "object",
            "properties": {"features": {"type": "array", "items": {"type": "object"}}}
        },
        "handlers.VendorClientsResponse": {
            "type": "object",
            "properties": {
                "vendor_tenant_id": {"type": "string"},
                "clients": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {"client_tenant_id": {"type": "string"}, "status": {"type": "string"}, "started_at": {"type": "string"}}
                    }
                }
            }
        },
        "handlers.SetOverrideRequest": {
            "type": "object",
            "required": ["permission_code", "level", "reason"],
            "properties": {
                "permission_code": {"type": "string"},
                "level": {"type": "string", "enum": ["granted", "denied"]},
                "reason": {"type": "string"},
                "effective_from": {"type": "string"},
                "effective_to": {"type": "string"}
            }
        },
        "handlers.AssignDesignationRequest": {
            "type": "object",
            "required": ["designation_id"],
            "properties": {
                "designation_id": {"type": "string"},
                "effective_from": {"type": "string"},
                "effective_to": {"type": "string"},
                "is_primary": {"type": "boolean"}
            }
        },
        "handlers.EnrollGroupRequest": {
            "type": "object",
            "required": ["group_id"],
            "properties": {"group_id": {"type": "string"}, "expires_at": {"type": "string"}}
        },
        "handlers.PermissionActivationRequest": {
            "type": "object",
            "required": ["is_active"],
            "properties": {"is_active": {"type": "boolean"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Tenant RBAC Service API",
	Description:      "Effective permission resolution, diagnostics and assignment management for tenant user profiles.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
