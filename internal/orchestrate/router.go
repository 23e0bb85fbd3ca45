package orchestrate

import (
	"bytes"
	"io"
)

// sourceRouter is the demux.SourceResolver that feeds the worker pool: each
// task gets its own in-memory sink, and every time the demuxer swaps to a new
// sink (§4.6's "#line 1" boundary) the one it just finished with is handed
// off on done, mirroring §5's "a bounded channel per worker to hand off
// completed PreprocessedSources".
type sourceRouter struct {
	bufs   map[string]*bytes.Buffer
	active string
	done   chan<- string
}

func newSourceRouter(sources []string, done chan<- string) *sourceRouter {
	bufs := make(map[string]*bytes.Buffer, len(sources))
	for _, s := range sources {
		bufs[s] = &bytes.Buffer{}
	}
	return &sourceRouter{bufs: bufs, done: done}
}

func (r *sourceRouter) Sink(path string) (io.Writer, bool) {
	buf, ok := r.bufs[path]
	if !ok {
		return nil, false
	}
	if r.active != "" && r.active != path {
		r.done <- r.active
	}
	r.active = path
	return buf, true
}

// finish hands off whichever source was active when the demuxer hit EOF; the
// last source in a run never triggers another sink swap to flush it.
func (r *sourceRouter) finish() {
	if r.active != "" {
		r.done <- r.active
	}
	close(r.done)
}

func (r *sourceRouter) bufferFor(path string) *bytes.Buffer {
	return r.bufs[path]
}
