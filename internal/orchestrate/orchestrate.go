// Package orchestrate implements the Orchestrator (§5, C8): given the
// CompilationTasks of one invocation, launches a single preprocessor backend
// process for all of them, demultiplexes its stdout by source, and runs a
// worker pool that takes each completed PreprocessedSource through
// fingerprint → cache lookup → compile backend → cache insert.
//
// Grounded on the teacher's daemon.go (localCompilerThrottle as a
// channel-as-semaphore worker pool, activeInvocations tracking) and
// cxx-launcher.go's serverCompilerThrottle, generalized from "one throttle
// gating every invocation on the process" to "one worker pool per
// invocation, sized ncpu, draining a channel of demuxed sources."
package orchestrate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"ccdispatch/internal/arg"
	"ccdispatch/internal/cache"
	"ccdispatch/internal/common"
	"ccdispatch/internal/demux"
	"ccdispatch/internal/process"
	"ccdispatch/internal/task"
	"ccdispatch/internal/toolchain"
)

// Result is one task's outcome, gathered in submission order once Run returns
// (§5 "the aggregated stderr presented to the user is ordered by task
// submission").
type Result struct {
	Task *task.CompilationTask
	Info cache.OutputInfo
	Err  error
}

// Orchestrator runs the tasks of one invocation against one toolchain.
type Orchestrator struct {
	Cache   *cache.Cache
	Hook    ObservabilityHook
	Workers int // 0 means runtime.NumCPU()
}

func New(c *cache.Cache) *Orchestrator {
	return &Orchestrator{Cache: c, Hook: NopHook{}}
}

// Run implements §5's pipeline. An empty tasks launches no preprocessor and
// returns immediately (§4.5 edge case "empty source set ⇒ wrapper exits 0").
func (o *Orchestrator) Run(ctx context.Context, tc toolchain.Toolchain, tasks []*task.CompilationTask) ([]Result, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	byPath := make(map[string]*task.CompilationTask, len(tasks))
	order := make([]string, 0, len(tasks))
	for _, t := range tasks {
		byPath[t.InputSource] = t
		order = append(order, t.InputSource)
	}

	done := make(chan string, len(tasks))
	router := newSourceRouter(order, done)

	preArgv := preprocessArgv(tc.Kind(), tasks)
	stream, err := process.RunStreaming(ctx, process.Options{
		Program: tc.Path(),
		Args:    preArgv,
		Dir:     tasks[0].Env.Cwd,
	})
	if err != nil {
		return nil, fmt.Errorf("launching preprocessor: %w", err)
	}

	demuxErrCh := make(chan error, 1)
	go func() {
		defer router.finish()
		demuxErrCh <- demux.Run(stream.Stdout, router, demux.Options{
			Marker:      pchMarker(tasks),
			KeepHeaders: true,
		})
	}()

	results := make(map[string]Result, len(tasks))
	var resultsMu sync.Mutex

	workers := o.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range done {
				t := byPath[path]
				if t == nil {
					continue
				}
				r := o.runOne(ctx, tc, t, router.bufferFor(path))
				resultsMu.Lock()
				results[path] = r
				resultsMu.Unlock()
			}
		}()
	}
	wg.Wait()

	preErr := <-demuxErrCh
	preRes, waitErr := stream.Wait()
	if preErr != nil {
		return nil, fmt.Errorf("demultiplexing preprocessor output: %w", preErr)
	}
	if waitErr != nil {
		return nil, fmt.Errorf("running preprocessor: %w", waitErr)
	}
	if preRes.ExitCode != 0 {
		return nil, fmt.Errorf("preprocessor exited %d: %s", preRes.ExitCode, preRes.Stderr)
	}

	out := make([]Result, 0, len(tasks))
	for _, t := range tasks {
		r, ok := results[t.InputSource]
		if !ok {
			r = Result{Task: t, Err: fmt.Errorf("source %s was never demultiplexed from the preprocessor output", t.InputSource)}
		}
		out = append(out, r)
	}
	return out, nil
}

// runOne is one worker's fingerprint → cache lookup → compile → cache insert
// step for a single already-preprocessed source.
func (o *Orchestrator) runOne(ctx context.Context, tc toolchain.Toolchain, t *task.CompilationTask, preprocessed *bytes.Buffer) Result {
	start := time.Now()

	key := cache.Key{
		ToolchainID: t.ToolchainID,
		ArgsHash:    common.CalcSHA256OfBytes([]byte(joinArgs(t.Classified.ForScope(arg.ScopeCompiler)))),
		PreprocHash: common.CalcSHA256OfBytes(preprocessed.Bytes()),
	}
	if t.InputPrecompiled != "" {
		if h, err := common.GetFileSHA256(t.InputPrecompiled); err == nil {
			key.PCHHash = h
		}
	}

	artifacts := o.artifactsFor(t)

	missed := false
	info, err := o.Cache.RunCached(key, artifacts, func() (cache.OutputInfo, error) {
		missed = true
		o.Hook.OnCacheMiss(t)
		return o.compile(ctx, tc, t, preprocessed)
	})
	if err == nil && !missed {
		o.Hook.OnCacheHit(t)
	}
	o.Hook.OnTaskDone(t, time.Since(start), err)

	// A BackendFailure still has stdout/stderr/exit worth surfacing, even
	// though RunCached discarded its OutputInfo along with the error (§7:
	// nothing is cached, but diagnostics are surfaced verbatim).
	if bf, ok := err.(*BackendFailureError); ok {
		info = bf.Info
	}
	return Result{Task: t, Info: info, Err: err}
}

func (o *Orchestrator) artifactsFor(t *task.CompilationTask) []cache.Artifact {
	artifacts := []cache.Artifact{{Name: "obj", Path: t.OutputObject, Mode: 0o644}}
	if t.IsPCHGenerate() {
		artifacts = append(artifacts, cache.Artifact{Name: "pch", Path: t.OutputPrecompiled, Mode: 0o644})
	}
	return artifacts
}

// compile runs the backend compile step (§4.8): preprocessed content piped to
// stdin for Clang, spilled to a temp file for MSVC.
func (o *Orchestrator) compile(ctx context.Context, tc toolchain.Toolchain, t *task.CompilationTask, preprocessed *bytes.Buffer) (cache.OutputInfo, error) {
	var res process.Result
	var err error

	switch tc.Kind() {
	case toolchain.KindClang:
		argv := append([]string{"-x", clangCppOutputLang(t.Language)}, t.Classified.ForScope(arg.ScopeCompiler)...)
		argv = append(argv, "-c", "-o", t.OutputObject, "-")
		res, err = process.Run(ctx, process.Options{
			Program: tc.Path(),
			Args:    argv,
			Dir:     t.Env.Cwd,
			Stdin:   bytes.NewReader(preprocessed.Bytes()),
		})

	default: // KindMSVC
		tmp, tmpName, tmpErr := common.OpenTempFile(t.OutputObject + ".i")
		if tmpErr != nil {
			return cache.OutputInfo{}, tmpErr
		}
		_, writeErr := tmp.Write(preprocessed.Bytes())
		closeErr := tmp.Close()
		defer os.Remove(tmpName)
		if writeErr != nil {
			return cache.OutputInfo{}, writeErr
		}
		if closeErr != nil {
			return cache.OutputInfo{}, closeErr
		}

		argv := append([]string{}, t.Classified.ForScope(arg.ScopeCompiler)...)
		argv = append(argv, "/c", "/Fo"+t.OutputObject, tmpName)
		res, err = process.Run(ctx, process.Options{
			Program: tc.Path(),
			Args:    argv,
			Dir:     t.Env.Cwd,
		})
	}

	if err != nil {
		// A non-zero backend exit is not an error from process.Run; err here
		// means the backend never produced a usable result at all (deadline,
		// exec failure).
		return cache.OutputInfo{}, err
	}

	stdout := toolchain.FilterOutput(tc.Kind(), res.Stdout)
	stderr := toolchain.FilterOutput(tc.Kind(), res.Stderr)

	info := cache.OutputInfo{Exit: res.ExitCode}
	if len(stdout) > 0 {
		if hex, putErr := o.Cache.PutBytes(stdout); putErr == nil {
			info.StdoutBlob = hex
		}
	}
	if len(stderr) > 0 {
		if hex, putErr := o.Cache.PutBytes(stderr); putErr == nil {
			info.StderrBlob = hex
		}
	}
	if res.ExitCode != 0 {
		return info, &BackendFailureError{Program: tc.Path(), ExitCode: res.ExitCode, Stderr: stderr, Info: info}
	}
	return info, nil
}

// BackendFailureError is §7's BackendFailure: a non-zero backend exit, which
// propagates as the wrapper's own exit code with diagnostics surfaced
// verbatim and nothing cached (the caller is expected not to call
// cache.Insert when this is returned from build()). Info carries the
// OutputInfo compile() already built (stdout/stderr blobs, exit code) so the
// caller can still report it despite the cache never seeing it.
type BackendFailureError struct {
	Program  string
	ExitCode int
	Stderr   []byte
	Info     cache.OutputInfo
}

func (e *BackendFailureError) Error() string {
	return fmt.Sprintf("%s exited %d", e.Program, e.ExitCode)
}

func clangCppOutputLang(lang arg.Language) string {
	if lang == arg.LangC {
		return "cpp-output"
	}
	return "c++-cpp-output"
}

// preprocessArgv builds the single shared preprocessor invocation covering
// every source of the invocation (§4.8 "one preprocessor backend process is
// launched with all sources").
func preprocessArgv(kind toolchain.Kind, tasks []*task.CompilationTask) []string {
	cl := tasks[0].Classified
	argv := append([]string{}, cl.ForScope(arg.ScopePreprocessor)...)
	if kind == toolchain.KindClang {
		argv = append(argv, "-E")
	} else {
		argv = append(argv, "/E")
	}
	sources := make([]string, 0, len(tasks))
	for _, t := range tasks {
		sources = append(sources, t.InputSource)
	}
	sort.Strings(sources) // deterministic argv, order doesn't affect demux correctness
	return append(argv, sources...)
}

// pchMarker returns the input or output PCH marker header shared by the
// invocation's tasks, if any (§4.5: at most one /Yc or /Yu per invocation).
func pchMarker(tasks []*task.CompilationTask) string {
	for _, t := range tasks {
		if t.MarkerPrecompiled != "" {
			return t.MarkerPrecompiled
		}
	}
	return ""
}

func joinArgs(argv []string) string {
	var b bytes.Buffer
	for _, a := range argv {
		b.WriteString(a)
		b.WriteByte(0)
	}
	return b.String()
}
