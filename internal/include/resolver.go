package include

import (
	"os"
	"path/filepath"
)

// Policy selects the context-stacking behavior for resolving Quote includes
// (§4.2). Grounded on original_source/src/direct/scanner.rs's IncludeCombine
// trait (Clang vs. VisualStudio variants).
type Policy int

const (
	PolicyClang Policy = iota
	PolicyMSVC
)

// Context is the per-file search-path stack threaded through IncludeGraph
// traversal. The zero value is the empty context (top-level source file).
type Context struct {
	dirs []string
}

// Combine derives the context a file's own includes should be resolved
// against, per the context-stacking policy for filePath (§4.2).
//
//   - Clang: context = [parent_dir(filePath)] — no history carried forward.
//   - MSVC: context = previous context with filePath's parent promoted to the
//     end, duplicates removed. The top of stack (searched first) is therefore
//     always the most recently visited file's directory.
func (p Policy) Combine(prev Context, filePath string) Context {
	dir := filepath.Dir(filePath)
	switch p {
	case PolicyClang:
		return Context{dirs: []string{dir}}
	default:
		if len(prev.dirs) > 0 && prev.dirs[len(prev.dirs)-1] == dir {
			return prev
		}
		next := make([]string, 0, len(prev.dirs)+1)
		for _, d := range prev.dirs {
			if d != dir {
				next = append(next, d)
			}
		}
		next = append(next, dir)
		return Context{dirs: next}
	}
}

// SearchList is the ordered system include-path list (-I / /I dirs, in
// command-line order).
type SearchList []string

// NotFoundError reports that an include directive could not be resolved.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string { return "include not found: " + e.Name }

// StatFunc abstracts filesystem existence checks so Resolver tests can run
// against an in-memory fixture instead of real files.
type StatFunc func(path string) bool

func osExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Resolver resolves #include directives to canonical absolute paths (§4.2).
type Resolver struct {
	Policy Policy
	Exists StatFunc
}

func NewResolver(policy Policy) *Resolver {
	return &Resolver{Policy: policy, Exists: osExists}
}

// Resolve returns the canonical absolute path for inc, searching ctx (Quote
// only, reverse order) then system, or *NotFoundError.
func (r *Resolver) Resolve(inc Include, ctx Context, system SearchList) (string, error) {
	if filepath.IsAbs(inc.Name) {
		return canonicalize(inc.Name), nil
	}

	var dirs []string
	if inc.Kind == Quote {
		for i := len(ctx.dirs) - 1; i >= 0; i-- {
			dirs = append(dirs, ctx.dirs[i])
		}
	}
	dirs = append(dirs, system...)

	exists := r.Exists
	if exists == nil {
		exists = osExists
	}
	for _, dir := range dirs {
		candidate := filepath.Join(dir, inc.Name)
		if exists(candidate) {
			return canonicalize(candidate), nil
		}
	}
	return "", &NotFoundError{Name: inc.Name}
}

// canonicalize normalizes "." / ".." and redundant separators; idempotent.
func canonicalize(path string) string {
	return filepath.Clean(path)
}
