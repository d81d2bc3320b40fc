// Package wallclock reports reads of the wall clock outside the packages
// allowed to make them. Everything else takes a clock.Clock, so expiry
// decisions can be driven by a fixed clock in tests.
package wallclock

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Allowed lists package path suffixes that may call time.Now.
// Request logging measures latency and is not part of any expiry decision.
var Allowed = []string{
	"internal/clock",
	"internal/middleware",
	"internal/intercepters",
}

// Analyzer forbids time.Now outside Allowed.
var Analyzer = &analysis.Analyzer{
	Name:     "wallclock",
	Doc:      "reports time.Now calls outside the clock package",
	Run:      run,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
}

func allowed(path string) bool {
	for _, suffix := range Allowed {
		if path == suffix || strings.HasSuffix(path, "/"+suffix) {
			return true
		}
	}
	return false
}

func run(pass *analysis.Pass) (any, error) {
	if allowed(pass.Pkg.Path()) {
		return nil, nil
	}

	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	insp.Preorder([]ast.Node{(*ast.SelectorExpr)(nil)}, func(n ast.Node) {
		sel := n.(*ast.SelectorExpr)
		if sel.Sel.Name != "Now" {
			return
		}

		fn, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
		if !ok || fn.Pkg() == nil || fn.Pkg().Path() != "time" {
			return
		}

		if strings.HasSuffix(pass.Fset.File(sel.Pos()).Name(), "_test.go") {
			return
		}

		pass.Reportf(sel.Pos(), "time.Now is forbidden here; take a clock.Clock instead")
	})

	return nil, nil
}
