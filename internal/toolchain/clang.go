package toolchain

import (
	"fmt"
	"os/exec"
	"strings"

	"ccdispatch/internal/arg"
)

type clangToolchain struct {
	path string
	id   string
}

func newClangToolchain(path string) (Toolchain, error) {
	id, err := clangIdentifier(path)
	if err != nil {
		return nil, err
	}
	return &clangToolchain{path: path, id: id}, nil
}

// clangIdentifier builds `"<base-name> <release-tag> <target-triple>"`
// (§4.9) by parsing `clang --version`, e.g.:
//
//	clang version 14.0.0-1ubuntu1.1
//	Target: x86_64-pc-linux-gnu
//	Thread model: posix
func clangIdentifier(path string) (string, error) {
	out, err := exec.Command(path, "--version").Output()
	if err != nil {
		return "", err
	}
	release, target, ok := parseClangVersion(string(out))
	if !ok {
		return "", fmt.Errorf("toolchain: could not parse %q --version output", path)
	}
	return fmt.Sprintf("%s %s %s", trimExeSuffix(baseName(path)), release, target), nil
}

// parseClangVersion extracts the release tag and target triple from
// `clang --version` output, split out from clangIdentifier for testing
// without spawning a real compiler.
func parseClangVersion(out string) (release, target string, ok bool) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if release == "" {
			if idx := strings.Index(line, "version "); idx >= 0 {
				rest := strings.Fields(line[idx+len("version "):])
				if len(rest) > 0 {
					release = rest[0]
				}
			}
		}
		if t, hasPrefix := strings.CutPrefix(line, "Target:"); hasPrefix {
			target = strings.TrimSpace(t)
		}
	}
	return release, target, release != "" && target != ""
}

func (t *clangToolchain) Kind() Kind                 { return KindClang }
func (t *clangToolchain) Path() string               { return t.path }
func (t *clangToolchain) ID() string                 { return t.id }
func (t *clangToolchain) Classifier() arg.Classifier { return arg.NewClangClassifier() }

func trimExeSuffix(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name[:len(name)-len(".exe")]
	}
	return name
}
