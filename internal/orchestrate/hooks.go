package orchestrate

import (
	"time"

	"ccdispatch/internal/task"
)

// ObservabilityHook is the optional collaborator named in §4.9/§9's open
// question about the c2.dll FileTracker interception path: "any implementation
// must treat it as an optional observability hook." Nothing in this package
// depends on a hook being wired; NopHook satisfies the interface with no-ops
// for callers that don't need one.
type ObservabilityHook interface {
	OnCacheHit(t *task.CompilationTask)
	OnCacheMiss(t *task.CompilationTask)
	OnTaskDone(t *task.CompilationTask, dur time.Duration, err error)
}

type NopHook struct{}

func (NopHook) OnCacheHit(*task.CompilationTask)                     {}
func (NopHook) OnCacheMiss(*task.CompilationTask)                    {}
func (NopHook) OnTaskDone(*task.CompilationTask, time.Duration, error) {}
