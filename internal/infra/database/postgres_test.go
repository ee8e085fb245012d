package database

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/Reportify/teleopsold-sub002/migrations"
)

func TestVerifySchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT to_regclass`).
		WithArgs("rbac.permission_registry").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	if err := VerifySchema(context.Background(), mock); err != nil {
		t.Fatalf("VerifySchema returned error: %v", err)
	}

	mock.ExpectQuery(`SELECT to_regclass`).
		WithArgs("rbac.permission_registry").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	if err := VerifySchema(context.Background(), mock); !errors.Is(err, ErrSchemaMissing) {
		t.Fatalf("expected ErrSchemaMissing, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMigrationsTargetProbedSchema(t *testing.T) {
	files, err := fs.Glob(migrations.EmbedMigrations, "*.sql")
	if err != nil || len(files) == 0 {
		t.Fatalf("expected embedded migrations, got %v (%v)", files, err)
	}

	raw, err := fs.ReadFile(migrations.EmbedMigrations, files[0])
	if err != nil {
		t.Fatalf("read %s: %v", files[0], err)
	}
	sql := string(raw)

	if !strings.Contains(sql, "CREATE SCHEMA IF NOT EXISTS "+Schema+";") {
		t.Fatalf("first migration must create schema %q", Schema)
	}
	if !strings.Contains(sql, "CREATE TABLE "+Schema+"."+schemaProbe+" (") {
		t.Fatalf("first migration must create %s.%s", Schema, schemaProbe)
	}
}
