package daemon

import (
	"context"
	"fmt"
	"time"

	"ccdispatch/internal/cache"
	"ccdispatch/internal/common"
	"ccdispatch/internal/orchestrate"
	"ccdispatch/internal/process"
	"ccdispatch/internal/task"
	"ccdispatch/internal/toolchain"
)

// Config is what MakeDaemon needs to start serving.
type Config struct {
	SockPath    string
	IdleTimeout time.Duration
	Workers     int // passed straight through to orchestrate.Orchestrator.Workers
	Logger      *common.LoggerWrapper
}

// Daemon is the long-running process behind the unix socket: one
// toolchain.Registry, one cache.Cache and one orchestrate.Orchestrator shared
// across every wrapper invocation it serves. Grounded on the teacher's Daemon
// (daemon.go), generalized from "owns grpc connections to remote build
// servers" to "owns the local cache/orchestrator state that must survive
// between one-shot wrapper calls."
type Daemon struct {
	Logger *common.LoggerWrapper

	listener    *SockListener
	quit        chan struct{}
	idleTimeout time.Duration

	registry     *toolchain.Registry
	cache        *cache.Cache
	orchestrator *orchestrate.Orchestrator
}

func MakeDaemon(cfg Config, c *cache.Cache) *Daemon {
	orch := orchestrate.New(c)
	orch.Workers = cfg.Workers
	return &Daemon{
		Logger:       cfg.Logger,
		quit:         make(chan struct{}),
		idleTimeout:  cfg.IdleTimeout,
		registry:     toolchain.NewRegistry(),
		cache:        c,
		orchestrator: orch,
	}
}

func (d *Daemon) Listen(sockPath string) error {
	d.listener = NewSockListener()
	return d.listener.Listen(sockPath)
}

// Serve blocks until the daemon decides to quit (idle timeout) or QuitGracefully
// is called from elsewhere (e.g. a signal handler in cmd/ccd-daemon).
func (d *Daemon) Serve() {
	d.Logger.Info(0, "ccd-daemon started")
	go d.listener.Accept(d, d.quit)
	d.listener.IdleLoop(d, d.quit, d.idleTimeout)
}

func (d *Daemon) QuitGracefully(reason string) {
	d.Logger.Info(0, "daemon quit:", reason)
	defer func() { _ = recover() }()
	close(d.quit)
}

// HandleInvocation runs one wrapper invocation's command line through the
// classify → task-build → orchestrate pipeline, falling back to a
// pass-through local execution on anything the classifier can't handle (§7
// UnknownArgs: "fall back to a pass-through invocation, no caching").
func (d *Daemon) HandleInvocation(req Request) Response {
	tc, err := d.registry.Resolve(req.Compiler)
	if err != nil {
		return d.runLocally(req, err)
	}

	cl, err := tc.Classifier().Classify(req.CmdLine)
	if err != nil {
		return d.runLocally(req, err)
	}

	tasks, err := task.Build(tc.ID(), tc.Classifier(), cl, task.CommandEnv{ProgramPath: tc.Path(), Cwd: req.Cwd})
	if err != nil {
		return d.runLocally(req, err)
	}

	ctx := context.Background()
	results, err := d.orchestrator.Run(ctx, tc, tasks)
	if err != nil {
		return d.runLocally(req, err)
	}
	return d.aggregate(results)
}

// aggregate folds per-source Results into one Response: stderr/stdout
// concatenated in submission order (§5), exit code the first non-zero one
// encountered (a BackendFailure on any source fails the whole invocation,
// matching a real /MP cl.exe run).
func (d *Daemon) aggregate(results []orchestrate.Result) Response {
	var resp Response
	for _, r := range results {
		if r.Info.StdoutBlob != "" {
			if blob, err := d.cache.GetBytes(r.Info.StdoutBlob); err == nil {
				resp.Stdout = append(resp.Stdout, blob...)
			}
		}
		if r.Info.StderrBlob != "" {
			if blob, err := d.cache.GetBytes(r.Info.StderrBlob); err == nil {
				resp.Stderr = append(resp.Stderr, blob...)
			}
		}
		if r.Err != nil && resp.ExitCode == 0 {
			if bf, ok := r.Err.(*orchestrate.BackendFailureError); ok {
				resp.ExitCode = bf.ExitCode
			} else {
				resp.ExitCode = 1
				resp.Stderr = append(resp.Stderr, []byte(r.Err.Error()+"\n")...)
			}
		}
	}
	return resp
}

// runLocally is the UnknownArgs/BackendFailure-unreachable fallback: run the
// compiler directly with no caching, per §7's "degrade gracefully" policy.
func (d *Daemon) runLocally(req Request, reason error) Response {
	if reason != nil {
		d.Logger.Info(1, "falling back to local compilation:", reason)
	}
	res, err := process.Run(context.Background(), process.Options{
		Program: req.Compiler,
		Args:    req.CmdLine,
		Dir:     req.Cwd,
	})
	if err != nil {
		return Response{ExitCode: 1, Stderr: fmt.Appendf(nil, "[ccd] %v\n", err)}
	}
	return Response{ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}
}
