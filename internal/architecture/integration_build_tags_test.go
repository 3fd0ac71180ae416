package architecture_test

import (
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Tests that need external services (Redis, Kafka) live in
// *_integration_test.go files and must be excluded from the default build.
func TestIntegrationTestsRequireBuildTag(t *testing.T) {
	t.Helper()

	files, err := collectGoFiles(internalRootDir())
	require.NoError(t, err)

	violations := make([]string, 0)
	for _, file := range files {
		if !strings.HasSuffix(filepath.Base(file), "_integration_test.go") {
			continue
		}
		if hasIntegrationBuildTag(file) {
			continue
		}
		violations = append(violations, "governance: missing //go:build integration in "+relToRepoRoot(file))
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		t.Fatalf("%s", strings.Join(violations, "\n"))
	}
}
