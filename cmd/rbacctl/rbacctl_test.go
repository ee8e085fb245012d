package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	"github.com/Reportify/teleopsold-sub002/internal/infra/config"
	"github.com/Reportify/teleopsold-sub002/internal/infra/security"
)

func TestMigrateArgs(t *testing.T) {
	cmd := newMigrateCmd()

	valid := [][]string{nil, {"up"}, {"down"}, {"down", "3"}, {"status"}, {"check"}}
	for _, args := range valid {
		assert.NoError(t, migrateArgs(cmd, args), "args %v", args)
	}

	invalid := [][]string{{"sideways"}, {"up", "3"}, {"down", "-1"}, {"down", "x"}, {"down", "1", "2"}}
	for _, args := range invalid {
		assert.Error(t, migrateArgs(cmd, args), "args %v", args)
	}
}

func TestTokenCommandSignsVerifiableToken(t *testing.T) {
	auth := config.AuthSettings{
		JWTSecret: "0123456789abcdef0123456789abcdef",
		Issuer:    "teleops-identity",
		Audience:  "teleops-api",
		TokenTTL:  time.Minute,
	}
	original := loadConfig
	loadConfig = func() (*config.AppConfig, error) { return &config.AppConfig{Auth: auth}, nil }
	t.Cleanup(func() { loadConfig = original })

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--tenant", "circle-north", "--profile", "p-7"})
	require.NoError(t, root.Execute())

	verifier, err := security.NewTokenVerifier(auth)
	require.NoError(t, err)
	claims, err := verifier.Verify(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "circle-north", claims.TenantID)
	assert.Equal(t, "p-7", claims.ProfileID)
}

func TestTokenCommandRequiresProfile(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"token", "--tenant", "circle-north"})
	assert.Error(t, root.Execute())
}

func TestRenderExplanation(t *testing.T) {
	explanation := &domain.PermissionExplanation{
		Effective: domain.EffectivePermissions{
			TenantID:      "circle-north",
			UserProfileID: "p-7",
			Permissions: domain.PermissionMap{
				"team.read": {Code: "team.read", Level: domain.PermissionDenied, Source: domain.SourceOverride},
				"site.read": {Code: "site.read", Level: domain.PermissionGranted, Source: domain.SourceDesignation},
			},
			Metadata: domain.ResolutionMetadata{DesignationCount: 1, OverrideCount: 1},
		},
		Contributions: map[string][]domain.Contribution{
			"team.read": {
				{Source: domain.SourceGroup, SourceID: "g-1", SourceName: "Field Team", Level: domain.PermissionGranted},
				{Source: domain.SourceOverride, SourceID: "o-1", Level: domain.PermissionDenied, Reason: "audit finding"},
			},
		},
	}

	var out bytes.Buffer
	require.NoError(t, renderExplanation(&out, explanation))

	text := out.String()
	assert.Contains(t, text, "profile p-7 in tenant circle-north")
	assert.Less(t, strings.Index(text, "site.read"), strings.Index(text, "team.read"), "codes are sorted")
	assert.Contains(t, text, "group Field Team=granted; override o-1=denied (audit finding)")
}
