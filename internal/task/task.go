// Package task builds CompilationTasks from a classified argv (§3, §4.5):
// exactly one per Input(Source), carrying everything the rest of the
// pipeline needs to preprocess, cache, and compile that source in isolation.
package task

import (
	"fmt"
	"path/filepath"
	"strings"

	"ccdispatch/internal/arg"
	"ccdispatch/internal/common"
)

// CommandEnv is the program path and working directory a CompilationTask's
// backend processes are launched with.
type CommandEnv struct {
	ProgramPath string
	Cwd         string
}

// CompilationTask is one source file to compile (§3).
type CompilationTask struct {
	ToolchainID string
	Env         CommandEnv
	Classified  *arg.Classified
	Language    arg.Language

	InputSource      string
	InputPrecompiled string // "" if none
	OutputObject     string
	OutputPrecompiled string // "" unless Yc mode
	MarkerPrecompiled string // header name that triggered Yc/Yu, "" if neither
}

// IsPCHGenerate reports whether this task creates a precompiled header (Yc).
func (t *CompilationTask) IsPCHGenerate() bool { return t.OutputPrecompiled != "" }

// IsPCHConsume reports whether this task consumes a precompiled header (Yu).
func (t *CompilationTask) IsPCHConsume() bool { return t.InputPrecompiled != "" && t.MarkerPrecompiled != "" }

// Build constructs one CompilationTask per Input(Source) in cl (§4.5).
// toolchainID and classifier identify the toolchain the caller already
// resolved (see internal/toolchain); env is shared across all tasks of one
// invocation.
func Build(toolchainID string, classifier arg.Classifier, cl *arg.Classified, env CommandEnv) ([]*CompilationTask, error) {
	sources := cl.Sources()
	if len(sources) == 0 {
		return nil, fmt.Errorf("no input source file in command line")
	}

	if n := countOutputs(cl, arg.OutputMarker); n > 1 {
		return nil, fmt.Errorf("multiple /Yc markers in command line")
	}
	if n := countInputs(cl, arg.InputMarker); n > 1 {
		return nil, fmt.Errorf("multiple /Yu markers in command line")
	}
	if n := countInputs(cl, arg.InputPrecompiled); n > 1 {
		return nil, fmt.Errorf("multiple /Fp outputs in command line")
	}

	outMarker, hasOutMarker := cl.FindOutput(arg.OutputMarker)
	inMarker, hasInMarker := cl.FindInput(arg.InputMarker)
	if hasOutMarker && hasInMarker {
		return nil, fmt.Errorf("/Yc and /Yu are mutually exclusive")
	}

	precompiled, hasPrecompiled := cl.FindInput(arg.InputPrecompiled)
	outObj, hasOutObj := cl.FindOutput(arg.OutputObject)
	if n := countOutputs(cl, arg.OutputObject); n > 1 {
		return nil, fmt.Errorf("multiple /Fo outputs in command line")
	}

	if len(sources) > 1 && hasOutObj {
		return nil, fmt.Errorf("explicit output object is not compatible with multiple input sources")
	}

	tasks := make([]*CompilationTask, 0, len(sources))
	for _, src := range sources {
		objOut, err := resolveOutputObject(outObj, hasOutObj, src.File, env.Cwd)
		if err != nil {
			return nil, err
		}

		t := &CompilationTask{
			ToolchainID:  toolchainID,
			Env:          env,
			Classified:   cl,
			Language:     inferLanguage(classifier, cl, src.File),
			InputSource:  src.File,
			OutputObject: objOut,
		}

		// With /Yc the /Fp file is the PCH this task produces, not an input.
		if hasPrecompiled && !hasOutMarker {
			t.InputPrecompiled = precompiled.File
		}
		if hasOutMarker {
			t.MarkerPrecompiled = outMarker.File
			t.OutputPrecompiled = precompiledFileFor(outMarker.File, precompiled, hasPrecompiled)
		} else if hasInMarker {
			t.MarkerPrecompiled = inMarker.File
		}

		tasks = append(tasks, t)
	}
	return tasks, nil
}

// resolveOutputObject applies §4.5's "if /Fo is a directory, the task's
// output is dir/basename(source).obj" rule. A /Fo value counts as a directory
// only when it ends in a path separator; the file system is not consulted.
func resolveOutputObject(outObj arg.Arg, has bool, sourceFile, cwd string) (string, error) {
	defaultName := func() string {
		base := filepath.Base(sourceFile)
		return common.ReplaceFileExt(base, ".obj")
	}

	if !has {
		return filepath.Join(cwd, defaultName()), nil
	}
	if strings.HasSuffix(outObj.File, "/") || strings.HasSuffix(outObj.File, string(filepath.Separator)) {
		return filepath.Join(outObj.File, defaultName()), nil
	}
	return outObj.File, nil
}

// precompiledFileFor implements "Yc implies output role and /Fp names the
// file (default: <marker>.pch)".
func precompiledFileFor(marker string, fp arg.Arg, hasFp bool) string {
	if hasFp {
		return fp.File
	}
	return common.ReplaceFileExt(marker, ".pch")
}

func countOutputs(cl *arg.Classified, kind arg.OutputKind) int {
	n := 0
	for _, a := range cl.Args {
		if a.Kind == arg.KindOutput && a.OutputKind == kind {
			n++
		}
	}
	return n
}

func countInputs(cl *arg.Classified, kind arg.InputKind) int {
	n := 0
	for _, a := range cl.Inputs() {
		if a.InputKind == kind {
			n++
		}
	}
	return n
}

func inferLanguage(classifier arg.Classifier, cl *arg.Classified, sourceFile string) arg.Language {
	for _, a := range cl.Args {
		if a.Kind == arg.KindParam && a.Flag == "T" {
			if a.Value == "P" {
				return arg.LangCPP
			}
			return arg.LangC
		}
		if a.Kind == arg.KindParam && a.Flag == "x" {
			if strings.HasPrefix(a.Value, "c++") {
				return arg.LangCPP
			}
			return arg.LangC
		}
	}
	return classifier.InferLanguage(sourceFile)
}
