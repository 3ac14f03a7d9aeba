// Command quarantine-check enforces the governed/ungoverned namespace
// boundary at build time: code outside a configured "ungoverned" segment
// must never import a package path that runs through that segment.
//
// Exit codes:
//
//	0 - no violations found
//	1 - violations found (build should fail)
//	2 - scanner error
package main

import (
	"flag"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type violation struct {
	file       string
	line       int
	importPath string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("quarantine-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	root := fs.String("root", ".", "project tree to scan")
	segment := fs.String("segment", "ungoverned", "import path segment that marks quarantined code")
	strict := fs.Bool("strict", false, "treat scanner warnings (e.g. unparsable files) as violations")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: quarantine-check [--root DIR] [--segment NAME] [--strict]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	violations, warnings, err := scan(*root, *segment)
	if err != nil {
		fmt.Fprintf(stderr, "quarantine-check: scanner error: %v\n", err)
		return 2
	}

	for _, w := range warnings {
		fmt.Fprintf(stderr, "quarantine-check: warning: %s\n", w)
	}

	if len(violations) == 0 {
		if *strict && len(warnings) > 0 {
			fmt.Fprintf(stdout, "quarantine-check: %d warning(s) treated as failure under --strict\n", len(warnings))
			return 1
		}
		fmt.Fprintln(stdout, "quarantine-check: no violations found")
		return 0
	}

	fmt.Fprintf(stdout, "quarantine-check: %d violation(s) found\n", len(violations))
	for _, v := range violations {
		fmt.Fprintf(stdout, "  %s:%d: forbidden import %q (file is outside the %q namespace)\n",
			v.file, v.line, v.importPath, *segment)
	}
	return 1
}

// scan walks root for .go files, parsing each and flagging any import whose
// path contains segment as a path element, when the importing file itself
// lies outside segment. Files that fail to parse are reported as warnings,
// not violations — a malformed file is a scanner concern, not a boundary
// breach.
func scan(root, segment string) ([]violation, []string, error) {
	var violations []violation
	var warnings []string

	fset := token.NewFileSet()

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" || strings.HasPrefix(d.Name(), "_") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		if pathInSegment(path, segment) {
			return nil
		}

		src, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", path, err))
			return nil
		}

		for _, imp := range src.Imports {
			importPath, convErr := strconv.Unquote(imp.Path.Value)
			if convErr != nil {
				continue
			}
			if importPathInSegment(importPath, segment) {
				violations = append(violations, violation{
					file:       path,
					line:       fset.Position(imp.Pos()).Line,
					importPath: importPath,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return violations, warnings, nil
}

func pathInSegment(path, segment string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == segment {
			return true
		}
	}
	return false
}

func importPathInSegment(importPath, segment string) bool {
	for _, part := range strings.Split(importPath, "/") {
		if part == segment {
			return true
		}
	}
	return false
}
