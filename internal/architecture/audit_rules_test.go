package architecture_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var facadeMutationPrefixes = []string{
	"Create",
	"Cancel",
	"Delete",
	"Request",
	"Invite",
	"Accept",
	"Approve",
	"Reject",
	"Leave",
	"Kick",
	"Change",
	"Ban",
}

// Membership facade mutations must leave a log line, either directly or via
// finish, which logs the committed transition.
func TestServiceMutations_AreLogged(t *testing.T) {
	t.Helper()

	serviceRoot := filepath.Join(repoRootDir(), "internal", "service")
	files, err := collectGoFiles(serviceRoot)
	require.NoError(t, err)

	violations := make([]string, 0)
	for _, file := range files {
		if shouldSkipProductionGovernanceFile(file) {
			continue
		}

		fset := token.NewFileSet()
		parsed, parseErr := parser.ParseFile(fset, file, nil, 0)
		require.NoErrorf(t, parseErr, "parse file for logging rules: %s", file)

		relPath := relToRepoRoot(file)
		for _, decl := range parsed.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv == nil || fn.Body == nil {
				continue
			}
			if receiverTypeName(fn) != "Service" || !isMutatingMethod(fn.Name.Name) || !hasContextParam(fn) {
				continue
			}
			if !containsCall(fn.Body, "finish", "Info") {
				violations = append(violations, relPath+":Service."+fn.Name.Name)
			}
		}
	}

	sort.Strings(violations)
	require.Empty(t, violations,
		"service mutating methods must log (call s.finish or s.logger.Info):\n%s",
		strings.Join(violations, "\n"),
	)
}

// Membership rows are written only by the transactional store, and the store
// is driven only by the transition engine.
func TestMembershipWrites_GoThroughEngine(t *testing.T) {
	t.Helper()

	allowed := map[string][]string{
		"InsertMembership": {"internal/db/repository/membership_store.go", "internal/db/repository/group.go"},
		"UpdateMembership": {"internal/db/repository/membership_store.go"},
		"UpsertMembership": {"internal/service/membership/engine.go"},
		"InTx":             {"internal/service/membership/engine.go"},
	}

	files, err := collectGoFiles(internalRootDir())
	require.NoError(t, err)

	violations := make([]string, 0)
	for _, file := range files {
		if shouldSkipProductionGovernanceFile(file) {
			continue
		}
		relPath := relToRepoRoot(file)

		fset := token.NewFileSet()
		parsed, parseErr := parser.ParseFile(fset, file, nil, 0)
		require.NoErrorf(t, parseErr, "parse file for write rules: %s", file)

		ast.Inspect(parsed, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			permitted, guarded := allowed[sel.Sel.Name]
			if !guarded {
				return true
			}
			for _, f := range permitted {
				if f == relPath {
					return true
				}
			}
			violations = append(violations, relPath+" calls "+sel.Sel.Name)
			return true
		})
	}

	sort.Strings(violations)
	require.Empty(t, violations,
		"membership writes must go through the transition engine:\n%s",
		strings.Join(violations, "\n"),
	)
}

func receiverTypeName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}

	switch rt := fn.Recv.List[0].Type.(type) {
	case *ast.StarExpr:
		if id, ok := rt.X.(*ast.Ident); ok {
			return id.Name
		}
	case *ast.Ident:
		return rt.Name
	}

	return ""
}

func isMutatingMethod(name string) bool {
	for _, prefix := range facadeMutationPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func hasContextParam(fn *ast.FuncDecl) bool {
	if fn.Type == nil || fn.Type.Params == nil {
		return false
	}

	for _, field := range fn.Type.Params.List {
		t, ok := field.Type.(*ast.SelectorExpr)
		if !ok {
			continue
		}

		pkg, ok := t.X.(*ast.Ident)
		if ok && pkg.Name == "context" && t.Sel.Name == "Context" {
			return true
		}
	}

	return false
}

// containsCall reports whether body calls a function or method with one of names.
func containsCall(body *ast.BlockStmt, names ...string) bool {
	found := false
	ast.Inspect(body, func(n ast.Node) bool {
		if found {
			return false
		}

		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}

		var name string
		switch fun := call.Fun.(type) {
		case *ast.Ident:
			name = fun.Name
		case *ast.SelectorExpr:
			name = fun.Sel.Name
		}
		for _, want := range names {
			if name == want {
				found = true
				return false
			}
		}
		return true
	})

	return found
}
