// Package demux implements the streaming multi-source preprocessor
// demultiplexer (§4.6, C6 — "the hard part"): it scans a toolchain's combined
// preprocessor stdout byte by byte, recognizes #line source transitions, and
// routes each source's slice of the stream to its own sink, synthesizing a
// "#pragma hdrstop" directive at the precompiled-header cut point.
//
// Ported from original_source/src/vs/postprocess.rs's ScannerState, which
// does the same thing for a single source; this version generalizes source
// transitions to many sinks selected by a caller-supplied SourceResolver.
package demux

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// SourceResolver maps a #line path to the sink it should be demultiplexed
// into. Only paths for which ok is true are treated as source-separator
// boundaries (§4.6: "the caller's test returning true exactly for the
// sources being demultiplexed").
type SourceResolver interface {
	Sink(path string) (io.Writer, bool)
}

// Options configures one Run.
type Options struct {
	// Marker, if non-empty, is the precompiled-header file name whose
	// traversal (anywhere in the path, matched as a '/'-bounded suffix)
	// starts header-skipping mode for the source currently active.
	Marker string
	// KeepHeaders, when false, discards everything written to a source's
	// sink before its PCH cut point instead of preserving it.
	KeepHeaders bool
	// BufSize overrides the ring buffer capacity (for tests); 0 means 64KiB.
	BufSize int
}

type demuxer struct {
	buf *ringBuffer
	opt Options

	sources SourceResolver

	utf8   bool
	marker []byte // encoded per utf8/local-codepage, nil if none configured

	headerFound  bool
	entryFile    []byte
	entryFileSet bool
	done         bool

	currentSinkSet bool
}

// Run demultiplexes r's bytes across the sinks sources resolves, per §4.6.
func Run(r io.Reader, sources SourceResolver, opt Options) error {
	d := &demuxer{
		buf:     newRingBuffer(r, opt.BufSize),
		opt:     opt,
		sources: sources,
	}
	d.buf.writeEnabled = func() bool { return d.opt.KeepHeaders || d.done }

	if err := d.parseBOM(); err != nil {
		return err
	}
	if opt.Marker != "" {
		d.marker = encodeMarker(opt.Marker, d.utf8)
	}

	for {
		_, ok, err := d.buf.peek()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := d.parseLine(); err != nil {
			return err
		}
	}

	if err := d.buf.flush(); err != nil {
		return err
	}
	if d.marker != nil && d.currentSinkSet && !d.done {
		return &MarkerNotFoundError{}
	}
	return nil
}

func encodeMarker(marker string, utf8 bool) []byte {
	normalized := strings.ReplaceAll(marker, "\\", "/")
	if utf8 {
		return []byte(normalized)
	}
	encoded, err := charmap.Windows1252.NewEncoder().Bytes([]byte(normalized))
	if err != nil {
		return []byte(normalized)
	}
	return encoded
}

func (d *demuxer) parseBOM() error {
	bom := [3]byte{0xEF, 0xBB, 0xBF}
	for _, want := range bom {
		c, ok, err := d.buf.peek()
		if err != nil {
			return err
		}
		if !ok || c != want {
			return nil
		}
		d.buf.advance()
	}
	d.utf8 = true
	return nil
}

func (d *demuxer) parseLine() error {
	if err := d.parseEmpty(); err != nil {
		return err
	}
	c, ok, err := d.buf.peek()
	if err != nil || !ok {
		return err
	}
	if c == '#' {
		return d.parseDirective()
	}
	return d.nextLine()
}

func (d *demuxer) parseDirective() error {
	d.buf.advance() // consume '#'
	if err := d.parseSpaces(); err != nil {
		return err
	}
	keyword, err := d.parseToken(16)
	if err != nil {
		return err
	}
	switch string(keyword) {
	case "line":
		return d.parseDirectiveLine()
	case "pragma":
		return d.parseDirectivePragma()
	default:
		return d.nextLine()
	}
}

func (d *demuxer) parseDirectiveLine() error {
	if err := d.parseSpaces(); err != nil {
		return err
	}
	line, err := d.parseToken(16)
	if err != nil {
		return err
	}
	if err := d.parseSpaces(); err != nil {
		return err
	}
	file, raw, err := d.parsePath()
	if err != nil {
		return err
	}
	eol, err := d.nextLineEOL()
	if err != nil {
		return err
	}

	if string(line) == "1" {
		if sink, ok := d.sources.Sink(string(file)); ok {
			if d.opt.KeepHeaders {
				// Flush the pending run to the outgoing sink before swapping,
				// so content scanned while it was active is routed correctly.
				if err := d.buf.flush(); err != nil {
					return err
				}
				d.buf.sink = sink
			} else {
				// Discard the just-scanned "#line 1" directive itself.
				d.buf.sink = sink
				d.buf.copy = d.buf.pos
			}
			d.currentSinkSet = true
			d.done = false
			d.headerFound = false
			d.entryFileSet = false
		}
	}

	if d.entryFileSet {
		if d.headerFound && bytes.Equal(d.entryFile, file) {
			marker := make([]byte, 0, len(file)+len(line)+len(raw)+32)
			marker = append(marker, "#pragma hdrstop"...)
			marker = append(marker, eol...)
			marker = append(marker, "#line "...)
			marker = append(marker, line...)
			marker = append(marker, ' ')
			marker = append(marker, raw...)
			marker = append(marker, eol...)
			if err := d.buf.writeDirect(marker); err != nil {
				return err
			}
			d.done = true
		}
		if d.marker != nil && isSubpath(file, d.marker) {
			d.headerFound = true
		}
	} else {
		d.entryFile = append([]byte(nil), file...)
		d.entryFileSet = true
	}
	return nil
}

func (d *demuxer) parseDirectivePragma() error {
	if err := d.parseSpaces(); err != nil {
		return err
	}
	token, err := d.parseToken(32)
	if err != nil {
		return err
	}
	if string(token) != "hdrstop" {
		return d.nextLine()
	}
	if !d.done {
		if err := d.buf.flush(); err != nil {
			return err
		}
		if !d.opt.KeepHeaders {
			if err := d.buf.writeDirect([]byte("#pragma hdrstop")); err != nil {
				return err
			}
		}
		d.done = true
	}
	return nil
}

func (d *demuxer) parseSpaces() error {
	for {
		c, ok, err := d.buf.peek()
		if err != nil || !ok {
			return err
		}
		if c == ' ' || c == '\t' || c == '\x0C' {
			d.buf.advance()
			continue
		}
		return nil
	}
}

func (d *demuxer) parseEmpty() error {
	for {
		c, ok, err := d.buf.peek()
		if err != nil || !ok {
			return err
		}
		switch c {
		case ' ', '\t', '\x0C', '\n', '\r':
			d.buf.advance()
		default:
			return nil
		}
	}
}

func (d *demuxer) parseToken(maxLen int) ([]byte, error) {
	var token []byte
	for {
		c, ok, err := d.buf.peek()
		if err != nil {
			return nil, err
		}
		if !ok {
			return token, nil
		}
		if isTokenByte(c) {
			if len(token) >= maxLen {
				return nil, &TokenTooLongError{}
			}
			token = append(token, c)
			d.buf.advance()
			continue
		}
		return token, nil
	}
}

func isTokenByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (d *demuxer) nextLine() error {
	for {
		c, ok, err := d.buf.peek()
		if err != nil || !ok {
			return err
		}
		d.buf.advance()
		if c == '\n' {
			return nil
		}
	}
}

// nextLineEOL is like nextLine but returns the consumed terminator bytes
// ("\n" or "\r\n"), needed to reproduce the stream's own line endings in the
// synthesized hdrstop marker.
func (d *demuxer) nextLineEOL() ([]byte, error) {
	var last byte
	for {
		c, ok, err := d.buf.peek()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		d.buf.advance()
		if c == '\n' {
			if last == '\r' {
				return []byte("\r\n"), nil
			}
			return []byte("\n"), nil
		}
		last = c
	}
}

const pathTokenBudget = 0x400

// parsePath reads a quoted #line path literal, honoring backslash escapes.
// Returns the decoded path (backslash sequences normalized to forward
// slashes, per §4.6) and the raw literal bytes including quotes (used to
// reproduce the original text verbatim in the synthesized marker).
func (d *demuxer) parsePath() (file, raw []byte, err error) {
	quote, ok, err := d.buf.peek()
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, &LiteralEofError{}
	}
	d.buf.advance()
	raw = append(raw, quote)

	for {
		c, ok, err := d.buf.peek()
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, &LiteralEofError{}
		}
		switch c {
		case '\n', '\r':
			return nil, nil, &LiteralEolError{}
		case '\\':
			d.buf.advance()
			raw = append(raw, '\\')
			escaped, err := d.parseEscape()
			if err != nil {
				return nil, nil, err
			}
			raw = append(raw, escaped.rawTail...)
			if escaped.value == '\\' {
				file = append(file, '/')
			} else {
				file = append(file, escaped.value)
			}
		default:
			d.buf.advance()
			raw = append(raw, c)
			if c == quote {
				return file, raw, checkPathBudget(file, raw)
			}
			file = append(file, c)
		}
		if err := checkPathBudget(file, raw); err != nil {
			return nil, nil, err
		}
	}
}

func checkPathBudget(file, raw []byte) error {
	if len(file) >= pathTokenBudget || len(raw) >= pathTokenBudget {
		return &LiteralTooLongError{}
	}
	return nil
}

type escapeResult struct {
	value   byte
	rawTail []byte // the escaped char as it appeared in the source, for raw reproduction
}

func (d *demuxer) parseEscape() (escapeResult, error) {
	c, ok, err := d.buf.peek()
	if err != nil {
		return escapeResult{}, err
	}
	if !ok {
		return escapeResult{}, &EscapeEofError{}
	}
	d.buf.advance()
	switch c {
	case 'n':
		return escapeResult{value: '\n', rawTail: []byte{c}}, nil
	case 'r':
		return escapeResult{value: '\r', rawTail: []byte{c}}, nil
	case 't':
		return escapeResult{value: '\t', rawTail: []byte{c}}, nil
	default:
		return escapeResult{value: c, rawTail: []byte{c}}, nil
	}
}

// isSubpath reports whether child names a '/'-bounded suffix of parent,
// case-insensitively (§4.6's marker match).
func isSubpath(parent, child []byte) bool {
	if len(parent) < len(child) {
		return false
	}
	if len(parent) != len(child) && parent[len(parent)-len(child)-1] != '/' {
		return false
	}
	suffix := parent[len(parent)-len(child):]
	return bytes.EqualFold(suffix, child)
}
