package include

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestGraphPathsTransitiveClang(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "main.cpp")
	a := filepath.Join(dir, "a.h")
	b := filepath.Join(dir, "sub", "b.h")

	writeFile(t, root, `#include "a.h"`)
	writeFile(t, a, `#include "sub/b.h"`)
	writeFile(t, b, `int x;`)

	resolver := NewResolver(PolicyClang)
	g := NewGraph(resolver, nil)

	paths, err := g.Paths(root)
	if err != nil {
		t.Fatalf("Paths: %v", err)
	}
	sort.Strings(paths)
	want := []string{a, b}
	sort.Strings(want)
	if !equalDirs(paths, want) {
		t.Errorf("Paths = %v, want %v", paths, want)
	}
}

func TestGraphPathsMemoizesEachFileOnce(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "main.cpp")
	shared := filepath.Join(dir, "shared.h")

	writeFile(t, root, "#include \"shared.h\"\n#include \"shared.h\"\n")
	writeFile(t, shared, "int x;")

	resolver := NewResolver(PolicyClang)
	g := NewGraph(resolver, nil)

	if _, err := g.Paths(root); err != nil {
		t.Fatalf("Paths: %v", err)
	}
	if len(g.lexed) != 2 { // root + shared.h, each lexed exactly once
		t.Errorf("lexed %d files, want 2 (memoized)", len(g.lexed))
	}
}

func TestGraphPathsSkipsUnresolvableSystemHeaders(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "main.cpp")
	writeFile(t, root, `#include <does_not_exist.h>`)

	resolver := NewResolver(PolicyClang)
	g := NewGraph(resolver, nil)

	paths, err := g.Paths(root)
	if err != nil {
		t.Fatalf("Paths: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("paths = %v, want none", paths)
	}
}
