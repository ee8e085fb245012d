package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	"github.com/Reportify/teleopsold-sub002/internal/repository"
)

func permissionRowValues(id, tenantID, code string, active bool, at time.Time) []any {
	return []any{id, tenantID, code, code, "site", nil, "HIGH", false, false, "Allow", true, active, at, at}
}

func TestPermissionRegistryRepository_GetByCode(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPermissionRegistryRepository(mock)
	now := time.Now().UTC()

	rows := pgxmock.NewRows(permissionColumns).
		AddRow(permissionRowValues("perm-1", "tenant-a", "site.delete", false, now)...)

	mock.ExpectQuery(`SELECT .+ FROM rbac\.permission_registry WHERE permission_code = \$1 AND tenant_id = \$2`).
		WithArgs("site.delete", "tenant-a").
		WillReturnRows(rows)

	entry, err := repo.GetByCode(context.Background(), "tenant-a", "site.delete")
	if err != nil {
		t.Fatalf("GetByCode returned error: %v", err)
	}
	if entry.Code != "site.delete" || entry.IsActive {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.RiskLevel != domain.RiskHigh || entry.Effect != domain.EffectAllow {
		t.Fatalf("expected normalised enums, got %s/%s", entry.RiskLevel, entry.Effect)
	}
	if entry.Description != nil {
		t.Fatal("expected nil description")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPermissionRegistryRepository_GetByCodeNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPermissionRegistryRepository(mock)

	mock.ExpectQuery(`SELECT .+ FROM rbac\.permission_registry`).
		WithArgs("missing", "tenant-a").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByCode(context.Background(), "tenant-a", "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPermissionRegistryRepository_ListActiveByTenant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPermissionRegistryRepository(mock)
	now := time.Now().UTC()

	rows := pgxmock.NewRows(permissionColumns).
		AddRow(permissionRowValues("perm-1", "tenant-a", "site.read", true, now)...).
		AddRow(permissionRowValues("perm-2", "tenant-a", "task.read", true, now)...)

	mock.ExpectQuery(`SELECT .+ FROM rbac\.permission_registry WHERE is_active = \$1 AND tenant_id = \$2 ORDER BY permission_code ASC`).
		WithArgs(true, "tenant-a").
		WillReturnRows(rows)

	entries, err := repo.ListActiveByTenant(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("ListActiveByTenant returned error: %v", err)
	}
	if len(entries) != 2 || entries[1].Code != "task.read" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPermissionRegistryRepository_SetActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPermissionRegistryRepository(mock)

	mock.ExpectExec(`UPDATE rbac\.permission_registry SET is_active = \$1, updated_at = \$2`).
		WithArgs(false, pgxmock.AnyArg(), "site.delete", "tenant-a").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE rbac\.permission_registry`).
		WithArgs(true, pgxmock.AnyArg(), "ghost", "tenant-a").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.SetActive(context.Background(), "tenant-a", "site.delete", false); err != nil {
		t.Fatalf("SetActive returned error: %v", err)
	}
	if err := repo.SetActive(context.Background(), "tenant-a", "ghost", true); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPermissionRegistryRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPermissionRegistryRepository(mock)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	description := "Decommission a site"

	entry := domain.PermissionRegistryEntry{
		ID:          "perm-1",
		TenantID:    "tenant-a",
		Code:        "site.delete",
		Name:        "Delete site",
		Category:    "site",
		Description: &description,
		RiskLevel:   domain.RiskCritical,
		Effect:      domain.EffectAllow,
		IsAuditable: true,
		IsActive:    true,
		CreatedAt:   now,
	}

	mock.ExpectExec(`INSERT INTO rbac\.permission_registry`).
		WithArgs("perm-1", "tenant-a", "site.delete", "Delete site", "site", description, "critical",
			false, false, "allow", true, true, now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), entry); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := repo.Create(context.Background(), domain.PermissionRegistryEntry{ID: "x"}); err == nil {
		t.Fatal("expected validation error for missing tenant and code")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPermissionRegistryRepository_CreateDuplicateCode(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewPermissionRegistryRepository(mock)
	mock.ExpectExec(`INSERT INTO rbac\.permission_registry`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "permission_registry_tenant_id_permission_code_key"})

	err = repo.Create(context.Background(), domain.PermissionRegistryEntry{ID: "perm-2", TenantID: "tenant-a", Code: "site.delete"})
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
