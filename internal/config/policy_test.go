package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

const samplePolicy = `
defaults:
  block_reapply_after_reject: false
kinds:
  event:
    block_reapply_after_reject: true
groups:
  g-open-event:
    block_reapply_after_reject: false
  g-strict-intent:
    block_reapply_after_reject: true
`

func TestMembershipPolicy_Layers(t *testing.T) {
	p, err := ParsePolicy([]byte(samplePolicy))
	require.NoError(t, err)

	tests := []struct {
		name  string
		group *domain.Group
		want  bool
	}{
		{"intent uses defaults", &domain.Group{ID: "g1", Kind: domain.FlavorIntent}, false},
		{"event uses kind rule", &domain.Group{ID: "g2", Kind: domain.FlavorEvent}, true},
		{"group override beats kind", &domain.Group{ID: "g-open-event", Kind: domain.FlavorEvent}, false},
		{"group override beats defaults", &domain.Group{ID: "g-strict-intent", Kind: domain.FlavorIntent}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.BlocksReapplyAfterReject(tt.group))
		})
	}
}

func TestParsePolicy_Empty(t *testing.T) {
	p, err := ParsePolicy(nil)
	require.NoError(t, err)
	assert.False(t, p.BlocksReapplyAfterReject(&domain.Group{ID: "g", Kind: domain.FlavorEvent}))
}

func TestParsePolicy_Rejects(t *testing.T) {
	_, err := ParsePolicy([]byte("kinds:\n  MEETUP:\n    block_reapply_after_reject: true\n"))
	require.Error(t, err, "unknown kind")

	_, err = ParsePolicy([]byte("defaults:\n  block_everything: true\n"))
	require.Error(t, err, "unknown field")
}

func TestLoadPolicy(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.False(t, p.BlocksReapplyAfterReject(&domain.Group{ID: "g", Kind: domain.FlavorIntent}))

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(samplePolicy), 0o600))
	p, err = LoadPolicy(path)
	require.NoError(t, err)
	assert.True(t, p.BlocksReapplyAfterReject(&domain.Group{ID: "g", Kind: domain.FlavorEvent}))

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
