package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	"github.com/Reportify/teleopsold-sub002/internal/repository"
)

const uniqueViolation = "23505"

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func newBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

var permissionColumns = []string{
	"id",
	"tenant_id",
	"permission_code",
	"permission_name",
	"permission_category",
	"description",
	"risk_level",
	"requires_scope",
	"is_delegatable",
	"permission_type",
	"is_auditable",
	"is_active",
	"created_at",
	"updated_at",
}

// qualified prefixes each column with alias.
func qualified(alias string, columns []string) []string {
	out := make([]string, len(columns))
	for i, column := range columns {
		out[i] = alias + "." + column
	}
	return out
}

// scanPermission reads the permissionColumns set, optionally preceded by extra destinations.
func scanPermission(row rowScanner, extra ...any) (*domain.PermissionRegistryEntry, error) {
	var (
		entry       domain.PermissionRegistryEntry
		description sql.NullString
		riskLevel   string
		effect      string
	)

	dest := append(extra,
		&entry.ID,
		&entry.TenantID,
		&entry.Code,
		&entry.Name,
		&entry.Category,
		&description,
		&riskLevel,
		&entry.RequiresScope,
		&entry.IsDelegatable,
		&effect,
		&entry.IsAuditable,
		&entry.IsActive,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if description.Valid {
		entry.Description = &description.String
	}
	entry.RiskLevel = domain.RiskLevel(strings.ToLower(riskLevel))
	entry.Effect = domain.PermissionEffect(strings.ToLower(effect))

	return &entry, nil
}

// writeError wraps err with op and maps unique violations to repository.ErrConflict.
func writeError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, repository.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func cleanIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
