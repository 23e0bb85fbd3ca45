package orchestrate

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"ccdispatch/internal/arg"
	"ccdispatch/internal/cache"
	"ccdispatch/internal/task"
	"ccdispatch/internal/toolchain"
)

// fakeToolchain is a stand-in Toolchain whose Path() is a shell script that
// plays both compiler roles this package drives: with "-E" on argv it prints
// a two-source #line-delimited preprocessor stream; otherwise it's the
// compile step, writing a recognizable marker to its -o output.
type fakeToolchain struct {
	path string
	kind toolchain.Kind
}

func (f *fakeToolchain) Kind() toolchain.Kind       { return f.kind }
func (f *fakeToolchain) Path() string               { return f.path }
func (f *fakeToolchain) ID() string                 { return "fake-toolchain" }
func (f *fakeToolchain) Classifier() arg.Classifier { return arg.NewClangClassifier() }

// writeFakeCompiler installs a shell script at dir/fakecc that demuxes into
// two sources a.c/b.c when given -E, and otherwise consumes stdin and writes
// it to whatever -o names.
func writeFakeCompiler(t *testing.T, dir string) string {
	t.Helper()
	script := `#!/bin/sh
for arg in "$@"; do
  if [ "$arg" = "-E" ]; then
    printf '#line 1 "a.c"\nint a;\n#line 1 "b.c"\nint b;\n'
    exit 0
  fi
done
out=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "-o" ]; then
    out="$arg"
  fi
  prev="$arg"
done
cat > "$out"
exit 0
`
	path := filepath.Join(dir, "fakecc")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func buildTasks(t *testing.T, cwd string) []*task.CompilationTask {
	t.Helper()
	classified := &arg.Classified{}
	env := task.CommandEnv{ProgramPath: "fakecc", Cwd: cwd}
	return []*task.CompilationTask{
		{
			ToolchainID:  "fake-toolchain",
			Env:          env,
			Classified:   classified,
			Language:     arg.LangC,
			InputSource:  "a.c",
			OutputObject: filepath.Join(cwd, "a.obj"),
		},
		{
			ToolchainID:  "fake-toolchain",
			Env:          env,
			Classified:   classified,
			Language:     arg.LangC,
			InputSource:  "b.c",
			OutputObject: filepath.Join(cwd, "b.obj"),
		},
	}
}

func TestOrchestratorRunSplitsCompilesAndCaches(t *testing.T) {
	dir := t.TempDir()
	compiler := writeFakeCompiler(t, dir)
	tc := &fakeToolchain{path: compiler, kind: toolchain.KindClang}

	c, err := cache.Open(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	o := New(c)

	tasks := buildTasks(t, dir)
	results, err := o.Run(context.Background(), tc, tasks)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	// Submission order preserved regardless of completion order.
	if results[0].Task.InputSource != "a.c" || results[1].Task.InputSource != "b.c" {
		t.Fatalf("results out of submission order: %v, %v", results[0].Task.InputSource, results[1].Task.InputSource)
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("%s: %v", r.Task.InputSource, r.Err)
		}
	}

	aObj, err := os.ReadFile(filepath.Join(dir, "a.obj"))
	if err != nil {
		t.Fatalf("reading a.obj: %v", err)
	}
	if !bytes.Contains(aObj, []byte("int a;")) {
		t.Errorf("a.obj = %q, want it to contain the a.c preprocessed body", aObj)
	}
	bObj, err := os.ReadFile(filepath.Join(dir, "b.obj"))
	if err != nil {
		t.Fatalf("reading b.obj: %v", err)
	}
	if !bytes.Contains(bObj, []byte("int b;")) {
		t.Errorf("b.obj = %q, want it to contain the b.c preprocessed body", bObj)
	}
	if bytes.Contains(aObj, []byte("int b;")) || bytes.Contains(bObj, []byte("int a;")) {
		t.Fatalf("cross-contamination between sources: a.obj=%q b.obj=%q", aObj, bObj)
	}

	entries, err := c.IterEntries()
	if err != nil {
		t.Fatalf("IterEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("cache holds %d entries, want 2 (one per source)", len(entries))
	}
}

func TestOrchestratorRunEmptyTasksIsNoop(t *testing.T) {
	dir := t.TempDir()
	c, err := cache.Open(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	o := New(c)
	tc := &fakeToolchain{path: "fakecc", kind: toolchain.KindClang}

	results, err := o.Run(context.Background(), tc, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results != nil {
		t.Fatalf("results = %v, want nil", results)
	}
}

func TestPreprocessArgvUsesDashECaseForClang(t *testing.T) {
	tasks := []*task.CompilationTask{
		{Classified: &arg.Classified{}, InputSource: "a.c"},
	}
	argv := preprocessArgv(toolchain.KindClang, tasks)
	if !contains(argv, "-E") {
		t.Errorf("argv = %v, want -E", argv)
	}
}

func TestPreprocessArgvUsesSlashEForMSVC(t *testing.T) {
	tasks := []*task.CompilationTask{
		{Classified: &arg.Classified{}, InputSource: "a.cpp"},
	}
	argv := preprocessArgv(toolchain.KindMSVC, tasks)
	if !contains(argv, "/E") {
		t.Errorf("argv = %v, want /E", argv)
	}
}

func TestPreprocessArgvDoesNotDuplicateSharedScopeFlags(t *testing.T) {
	c := arg.NewClangClassifier()
	cl, err := c.Classify([]string{"-c", "-O2", "-I", "include", "-o", "a.o", "a.c"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	tasks := []*task.CompilationTask{{Classified: cl, InputSource: "a.c"}}

	argv := preprocessArgv(toolchain.KindClang, tasks)
	count := 0
	for _, tok := range argv {
		if tok == "-O2" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("argv = %v, want exactly one -O2 (ForScope already folds ScopeShared in)", argv)
	}
}

func TestPchMarkerFindsFirstTaskWithOne(t *testing.T) {
	tasks := []*task.CompilationTask{
		{InputSource: "a.cpp"},
		{InputSource: "stdafx.cpp", MarkerPrecompiled: "stdafx.h"},
	}
	if got := pchMarker(tasks); got != "stdafx.h" {
		t.Errorf("pchMarker = %q, want stdafx.h", got)
	}
}

func TestPchMarkerEmptyWhenNoneSet(t *testing.T) {
	tasks := []*task.CompilationTask{{InputSource: "a.cpp"}}
	if got := pchMarker(tasks); got != "" {
		t.Errorf("pchMarker = %q, want empty", got)
	}
}

func TestClangCppOutputLang(t *testing.T) {
	if got := clangCppOutputLang(arg.LangC); got != "cpp-output" {
		t.Errorf("LangC => %q", got)
	}
	if got := clangCppOutputLang(arg.LangCPP); got != "c++-cpp-output" {
		t.Errorf("LangCPP => %q", got)
	}
}

func contains(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}
