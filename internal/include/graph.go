package include

import (
	"os"
	"sync"
)

// fileIncludes caches a file's own directive list, as in
// original_source/src/direct/scanner.rs's IncludeCacher::cache_include.
// Grounded on teacher's IncludesCache (internal/client/includes-cache.go)
// RWMutex-guarded map idiom for per-file memoization.
type fileIncludes struct {
	bom      bool
	includes []Include
}

// Graph is the transitive closure of #include directives reachable from a
// root source, with per-path memoization so each file is lexed at most once
// per Graph (§4.3).
type Graph struct {
	resolver *Resolver
	system   SearchList

	mu      sync.RWMutex
	lexed   map[string]fileIncludes
	visited map[string]bool
}

func NewGraph(resolver *Resolver, system SearchList) *Graph {
	return &Graph{
		resolver: resolver,
		system:   system,
		lexed:    make(map[string]fileIncludes),
		visited:  make(map[string]bool),
	}
}

// Paths returns every transitively included canonical file path reachable
// from root (root itself is not included). Traversal is a worklist: pop
// (path, context), lex if not already cached, resolve each include with the
// policy-derived context, push resolved files with their derived context
// (§4.3).
func (g *Graph) Paths(root string) ([]string, error) {
	type task struct {
		path string
		ctx  Context
	}

	rootCtx := g.resolver.Policy.Combine(Context{}, root)
	queue := []task{{path: root, ctx: rootCtx}}
	seen := map[string]bool{root: true}
	var result []string

	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]

		fi, err := g.lex(t.path)
		if err != nil {
			return nil, err
		}

		for _, inc := range fi.includes {
			resolved, err := g.resolver.Resolve(inc, t.ctx, g.system)
			if err != nil {
				if _, ok := err.(*NotFoundError); ok {
					continue // unresolvable system headers are skipped, not fatal
				}
				return nil, err
			}
			if seen[resolved] {
				continue
			}
			seen[resolved] = true
			result = append(result, resolved)
			queue = append(queue, task{path: resolved, ctx: g.resolver.Policy.Combine(t.ctx, resolved)})
		}
	}
	return result, nil
}

// lex returns the memoized directive list for path, reading and lexing the
// file at most once.
func (g *Graph) lex(path string) (fileIncludes, error) {
	g.mu.RLock()
	fi, ok := g.lexed[path]
	g.mu.RUnlock()
	if ok {
		return fi, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fileIncludes{}, err
	}
	bom, includes, err := Lex(data)
	if err != nil {
		return fileIncludes{}, err
	}
	fi = fileIncludes{bom: bom, includes: includes}

	g.mu.Lock()
	g.lexed[path] = fi
	g.mu.Unlock()
	return fi, nil
}
