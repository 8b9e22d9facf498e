package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerPolicy describes which module-local packages a layer may import.
// Own is a list of path suffixes relative to the service module prefix,
// Shared lists absolute prefixes usable from any service. StdlibOnly
// marks layers that carry wire DTOs and nothing else.
type layerPolicy struct {
	Own        []string
	Shared     []string
	StdlibOnly bool
}

var layerPolicies = map[string]layerPolicy{
	"domain":      {Own: []string{"/domain"}},
	"ports":       {Own: []string{"/domain", "/ports"}, Shared: []string{"pressroom/contracts"}},
	"application": {Own: []string{"/domain", "/ports", "/application"}, Shared: []string{"pressroom/contracts"}},
	"transport":   {StdlibOnly: true},
}

func main() {
	violations := collectViolations("contexts")
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File == violations[j].File {
			if violations[i].Line == violations[j].Line {
				return violations[i].Import < violations[j].Import
			}
			return violations[i].Line < violations[j].Line
		}
		return violations[i].File < violations[j].File
	})

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func collectViolations(root string) []violation {
	var violations []violation

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		normalized := filepath.ToSlash(path)
		parts := strings.Split(normalized, "/")
		if len(parts) < 4 || parts[0] != "contexts" {
			return nil
		}

		contextName := parts[1]
		serviceName := parts[2]
		layer := parts[3]
		modulePrefix := fmt.Sprintf("pressroom/contexts/%s/%s", contextName, serviceName)

		violations = append(violations, validateFile(path, normalized, layer, modulePrefix)...)
		return nil
	})

	return violations
}

func validateFile(path string, normalizedPath string, layer string, modulePrefix string) []violation {
	var violations []violation

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return append(violations, violation{
			File: normalizedPath,
			Line: 1,
			Rule: "file must parse",
		})
	}

	policy, hasPolicy := layerPolicies[layer]

	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		line := fset.Position(imp.Pos()).Line

		if strings.HasPrefix(importPath, "pressroom/contexts/") && !hasPrefix(importPath, modulePrefix) {
			violations = append(violations, violation{
				File:   normalizedPath,
				Line:   line,
				Import: importPath,
				Rule:   "cross-service imports are forbidden",
			})
		}

		// Runtime wiring lives in internal/app and internal/platform.
		// Context packages stay assemblable without it.
		if strings.HasPrefix(importPath, "pressroom/internal/") {
			violations = append(violations, violation{
				File:   normalizedPath,
				Line:   line,
				Import: importPath,
				Rule:   "contexts must not import runtime infrastructure",
			})
		}

		if !hasPolicy || isStdlib(importPath) {
			continue
		}

		if policy.StdlibOnly {
			violations = append(violations, violation{
				File:   normalizedPath,
				Line:   line,
				Import: importPath,
				Rule:   fmt.Sprintf("%s packages may only import the standard library", layer),
			})
			continue
		}

		if !isLayerImport(importPath, modulePrefix, policy) {
			violations = append(violations, violation{
				File:   normalizedPath,
				Line:   line,
				Import: importPath,
				Rule:   fmt.Sprintf("%s import is outside its layer allowlist", layer),
			})
		}
	}

	return violations
}

func isLayerImport(importPath string, modulePrefix string, policy layerPolicy) bool {
	for _, suffix := range policy.Own {
		if hasPrefix(importPath, modulePrefix+suffix) {
			return true
		}
	}
	for _, prefix := range policy.Shared {
		if hasPrefix(importPath, prefix) {
			return true
		}
	}
	return false
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isStdlib(importPath string) bool {
	if strings.HasPrefix(importPath, "pressroom/") {
		return false
	}
	first := importPath
	if idx := strings.Index(first, "/"); idx != -1 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}
