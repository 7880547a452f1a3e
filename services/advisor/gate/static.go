// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gate

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
)

const advisorImportPrefix = "github.com/elliot-backbone/backbone-v9-sub002/services/advisor"

// layerOf assigns each advisory package a level. An import is legal only
// when the imported package sits strictly below the importer.
var layerOf = map[string]int{
	"domain":      0,
	"scan":        0,
	"config":      0,
	"dag":         0,
	"telemetry":   0,
	"derive":      1,
	"eventlog":    1,
	"detect":      2,
	"forecast":    3,
	"opportunity": 3,
	"action":      4,
	"impact":      5,
	"patterns":    6,
	"rank":        7,
	"":            8, // the advisor root package
	"gate":        9,
}

// checkLayering parses every advisory source file and verifies the
// import graph only points downward through the layer table.
func checkLayering(sourceRoot string) CheckResult {
	res := CheckResult{Name: "layering", Passed: true}
	if sourceRoot == "" {
		res.Passed = false
		res.Diagnostic = "no source root provided"
		return res
	}

	err := walkAdvisorSources(sourceRoot, func(pkg string, path string, file *ast.File) error {
		fromLevel, known := layerOf[pkg]
		if !known {
			return fmt.Errorf("%s: package %q missing from layer table", path, pkg)
		}
		for _, imp := range file.Imports {
			target, ok := advisorPackage(imp)
			if !ok {
				continue
			}
			toLevel, known := layerOf[target]
			if !known {
				return fmt.Errorf("%s: imported package %q missing from layer table", path, target)
			}
			if toLevel >= fromLevel {
				return fmt.Errorf("%s: layer %d package imports layer %d package %q",
					path, fromLevel, toLevel, target)
			}
		}
		return nil
	})
	if err != nil {
		res.Passed = false
		res.Diagnostic = err.Error()
	}
	return res
}

// checkSingleRankingSurface verifies no package outside rank sorts by
// RankScore. The published ordering has exactly one producer.
func checkSingleRankingSurface(sourceRoot string) CheckResult {
	res := CheckResult{Name: "single_ranking_surface", Passed: true}
	if sourceRoot == "" {
		res.Passed = false
		res.Diagnostic = "no source root provided"
		return res
	}

	err := walkAdvisorSources(sourceRoot, func(pkg string, path string, file *ast.File) error {
		if pkg == "rank" {
			return nil
		}
		var found error
		ast.Inspect(file, func(n ast.Node) bool {
			if found != nil {
				return false
			}
			call, ok := n.(*ast.CallExpr)
			if !ok || !isSortCall(call) {
				return true
			}
			if referencesRankScore(call) {
				found = fmt.Errorf("%s: package %q sorts by RankScore outside the ranking engine",
					path, pkg)
				return false
			}
			return true
		})
		return found
	})
	if err != nil {
		res.Passed = false
		res.Diagnostic = err.Error()
	}
	return res
}

// walkAdvisorSources parses every non-test .go file under
// services/advisor and invokes fn with the file's package directory
// relative to the advisor root ("" for the root itself).
func walkAdvisorSources(sourceRoot string, fn func(pkg, path string, file *ast.File) error) error {
	base := filepath.Join(sourceRoot, "services", "advisor")
	fset := token.NewFileSet()

	return filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		rel, err := filepath.Rel(base, filepath.Dir(path))
		if err != nil {
			return err
		}
		pkg := filepath.ToSlash(rel)
		if pkg == "." {
			pkg = ""
		}

		file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly|parser.ParseComments)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		// The sort-call scan needs full bodies; re-parse when needed.
		full, err := parser.ParseFile(token.NewFileSet(), path, nil, 0)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		full.Imports = file.Imports
		return fn(pkg, path, full)
	})
}

// advisorPackage extracts the advisory package path from an import, or
// false for external imports.
func advisorPackage(imp *ast.ImportSpec) (string, bool) {
	val, err := strconv.Unquote(imp.Path.Value)
	if err != nil {
		return "", false
	}
	if val == advisorImportPrefix {
		return "", true
	}
	rest, ok := strings.CutPrefix(val, advisorImportPrefix+"/")
	if !ok {
		return "", false
	}
	return rest, true
}

// isSortCall recognizes sort.Slice, sort.SliceStable, sort.Sort, and the
// slices package sort family.
func isSortCall(call *ast.CallExpr) bool {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	ident, ok := sel.X.(*ast.Ident)
	if !ok {
		return false
	}
	switch ident.Name {
	case "sort":
		return strings.HasPrefix(sel.Sel.Name, "Slice") || sel.Sel.Name == "Sort" ||
			sel.Sel.Name == "Stable"
	case "slices":
		return strings.HasPrefix(sel.Sel.Name, "Sort")
	}
	return false
}

// referencesRankScore reports whether any argument of the call touches a
// RankScore field.
func referencesRankScore(call *ast.CallExpr) bool {
	found := false
	for _, arg := range call.Args {
		ast.Inspect(arg, func(n ast.Node) bool {
			if sel, ok := n.(*ast.SelectorExpr); ok && sel.Sel.Name == "RankScore" {
				found = true
				return false
			}
			return true
		})
	}
	return found
}
