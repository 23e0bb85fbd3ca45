package daemon

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"ccdispatch/internal/cache"
	"ccdispatch/internal/common"
)

// writeFakeClang emulates just enough of clang's CLI surface for
// toolchain.Registry.Resolve/Classifier and a single-source compile to work
// end to end: --version for identification, -E for preprocessing (fixed
// output regardless of input), anything else for the compile step.
func writeFakeClang(t *testing.T, dir string) string {
	t.Helper()
	script := `#!/bin/sh
for arg in "$@"; do
  if [ "$arg" = "--version" ]; then
    echo "clang version 17.0.0"
    echo "Target: x86_64-pc-linux-gnu"
    exit 0
  fi
done
for arg in "$@"; do
  if [ "$arg" = "-E" ]; then
    echo '#line 1 "a.cpp"'
    echo 'int a;'
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
	path := filepath.Join(dir, "clang")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHandleInvocationCompilesThroughFullPipeline(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler is a shell script")
	}
	binDir := t.TempDir()
	writeFakeClang(t, binDir)
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	cwd := t.TempDir()
	cacheDir := t.TempDir()
	c, err := cache.Open(cacheDir)
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	logger, err := common.MakeLogger("stderr", -1)
	if err != nil {
		t.Fatalf("MakeLogger: %v", err)
	}

	d := MakeDaemon(Config{Logger: logger, Workers: 1}, c)

	req := Request{
		Cwd:      cwd,
		Compiler: "clang",
		CmdLine:  []string{"-c", "a.cpp", "-o", filepath.Join(cwd, "a.o")},
	}
	resp := d.HandleInvocation(req)
	if resp.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0 (stderr=%s)", resp.ExitCode, resp.Stderr)
	}
	if _, err := os.Stat(filepath.Join(cwd, "a.o")); err != nil {
		t.Errorf("expected a.o to exist: %v", err)
	}
}

func TestHandleInvocationFallsBackLocallyOnUnknownCompiler(t *testing.T) {
	binDir := t.TempDir()
	path := filepath.Join(binDir, "true-ish")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	cacheDir := t.TempDir()
	c, err := cache.Open(cacheDir)
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	logger, err := common.MakeLogger("stderr", -1)
	if err != nil {
		t.Fatalf("MakeLogger: %v", err)
	}
	d := MakeDaemon(Config{Logger: logger}, c)

	resp := d.HandleInvocation(Request{Cwd: t.TempDir(), Compiler: "true-ish", CmdLine: []string{}})
	if resp.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0 from local fallback", resp.ExitCode)
	}
}
