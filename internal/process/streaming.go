package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync/atomic"
	"time"
)

// Streaming is a subprocess whose stdout is read live by the caller instead
// of captured whole, for the one place §5 needs that: the preprocessor
// backend, "streamed through PreprocessorDemux" as it runs rather than read
// back after the fact. RunStreaming and Run share the same process-group
// deadline-kill machinery; Run is for everything else (compile steps, whose
// output is small and wanted only after exit).
type Streaming struct {
	Stdout io.ReadCloser

	cmd         *exec.Cmd
	stderr      bytes.Buffer
	start       time.Time
	program     string
	stopWatch   chan struct{}
	deadlineHit atomic.Bool
}

// RunStreaming starts opts.Program and returns once it is running, handing
// back its stdout pipe for the caller to read incrementally. Call Wait when
// done reading to reap the process and get its Result.
func RunStreaming(ctx context.Context, opts Options) (*Streaming, error) {
	cmd := exec.Command(opts.Program, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Stdin = opts.Stdin
	if opts.Env != nil {
		cmd.Env = opts.Env
	}

	s := &Streaming{cmd: cmd, program: opts.Program, stopWatch: make(chan struct{})}
	cmd.Stderr = &s.stderr
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	s.Stdout = stdout

	s.start = time.Now()
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	joinProcessGroup(cmd)

	go func() {
		select {
		case <-ctx.Done():
			s.deadlineHit.Store(true)
			_ = killProcessGroup(cmd)
		case <-s.stopWatch:
		}
	}()

	return s, nil
}

// Wait reaps the process. Call it only after fully draining (or abandoning)
// Stdout — per os/exec's StdoutPipe docs, calling Wait before the pipe is
// drained can deadlock the child on a full pipe buffer.
func (s *Streaming) Wait() (Result, error) {
	waitErr := s.cmd.Wait()
	close(s.stopWatch)

	res := Result{
		Stderr:   s.stderr.Bytes(),
		Duration: time.Since(s.start),
	}
	if s.cmd.ProcessState != nil {
		res.ExitCode = s.cmd.ProcessState.ExitCode()
	}
	if s.deadlineHit.Load() {
		return res, &DeadlineExceededError{Program: s.program}
	}
	if waitErr != nil && s.cmd.ProcessState == nil {
		if len(res.Stderr) == 0 {
			res.Stderr = fmt.Appendln(nil, waitErr)
		}
		return res, waitErr
	}
	return res, nil
}
