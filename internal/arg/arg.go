// Package arg implements the command-line classification model (§3, §4.4):
// every token of a cl.exe/clang invocation is tagged with which compilation
// phase it influences.
package arg

// Scope tells which phase of a split invocation an Arg feeds.
type Scope int

const (
	// ScopeIgnore args influence neither preprocessing nor compilation (e.g. /c, /nologo).
	ScopeIgnore Scope = iota
	// ScopePreprocessor args are passed only to the preprocess step.
	ScopePreprocessor
	// ScopeCompiler args are passed only to the compile step.
	ScopeCompiler
	// ScopeShared args are passed to both steps.
	ScopeShared
)

func (s Scope) String() string {
	switch s {
	case ScopePreprocessor:
		return "Preprocessor"
	case ScopeCompiler:
		return "Compiler"
	case ScopeShared:
		return "Shared"
	default:
		return "Ignore"
	}
}

// Kind discriminates the four shapes of Arg described in §3.
type Kind int

const (
	KindFlag Kind = iota
	KindParam
	KindInput
	KindOutput
)

// InputKind discriminates Input args.
type InputKind int

const (
	InputSource InputKind = iota
	InputPrecompiled
	InputMarker
)

// OutputKind discriminates Output args.
type OutputKind int

const (
	OutputObject OutputKind = iota
	OutputMarker
)

// Arg is the tagged union from §3: Flag / Param / Input / Output.
//
// Only the fields relevant to Kind are meaningful:
//   - KindFlag:   Scope, Switch, Flag
//   - KindParam:  Scope, Switch, Flag, Value, Joined
//   - KindInput:  InputKind, Flag, File
//   - KindOutput: OutputKind, Flag, File
type Arg struct {
	Kind   Kind
	Scope  Scope
	Switch byte // the leading switch character as seen in argv ('/' or '-')
	Flag   string
	// Joined reports whether Value was joined onto Flag in the original token
	// (e.g. "/Ifoo") rather than spaced as its own argv slot (e.g. "/I" "foo").
	// asTokens uses it to reconstruct the same shape rather than always one or
	// the other.
	Joined     bool
	Value      string
	InputKind  InputKind
	OutputKind OutputKind
	File       string
}

func Flag(scope Scope, sw byte, flag string) Arg {
	return Arg{Kind: KindFlag, Scope: scope, Switch: sw, Flag: flag}
}

func Param(scope Scope, sw byte, flag, value string, joined bool) Arg {
	return Arg{Kind: KindParam, Scope: scope, Switch: sw, Flag: flag, Value: value, Joined: joined}
}

func Input(kind InputKind, flag, file string) Arg {
	return Arg{Kind: KindInput, InputKind: kind, Flag: flag, File: file}
}

func Output(kind OutputKind, flag, file string) Arg {
	return Arg{Kind: KindOutput, OutputKind: kind, Flag: flag, File: file}
}

// Classified is the result of classifying one invocation's argv: the tagged
// args, in argv order.
type Classified struct {
	Args []Arg
}

// ForScope returns, in order, the string tokens of every arg that feeds phase.
// ScopeShared args are included for both Preprocessor and Compiler queries.
func (c *Classified) ForScope(phase Scope) []string {
	out := make([]string, 0, len(c.Args)*2)
	for _, a := range c.Args {
		if a.Kind != KindFlag && a.Kind != KindParam {
			continue
		}
		if a.Scope != phase && a.Scope != ScopeShared {
			continue
		}
		out = append(out, a.asTokens()...)
	}
	return out
}

// asTokens reconstructs the real argv token(s) this Arg came from — the
// switch char retained (never the bare "I"/"O2" with no prefix), a joined
// param as one token ("/DFOO=1"), a spaced param as two ("/I" "include").
func (a Arg) asTokens() []string {
	switch a.Kind {
	case KindFlag:
		return []string{string(a.Switch) + a.Flag}
	case KindParam:
		if a.Value == "" {
			return []string{string(a.Switch) + a.Flag}
		}
		if a.Joined {
			return []string{string(a.Switch) + a.Flag + a.Value}
		}
		return []string{string(a.Switch) + a.Flag, a.Value}
	default:
		return nil
	}
}

// Inputs returns every Input arg, in encounter order.
func (c *Classified) Inputs() []Arg {
	var out []Arg
	for _, a := range c.Args {
		if a.Kind == KindInput {
			out = append(out, a)
		}
	}
	return out
}

// Sources returns every Input(Source) arg, in encounter order — one per
// CompilationTask to build (§4.5).
func (c *Classified) Sources() []Arg {
	var out []Arg
	for _, a := range c.Inputs() {
		if a.InputKind == InputSource {
			out = append(out, a)
		}
	}
	return out
}

// FindOutput returns the first Output arg of the given kind, if any.
func (c *Classified) FindOutput(kind OutputKind) (Arg, bool) {
	for _, a := range c.Args {
		if a.Kind == KindOutput && a.OutputKind == kind {
			return a, true
		}
	}
	return Arg{}, false
}

// FindInput returns the first Input arg of the given kind, if any.
func (c *Classified) FindInput(kind InputKind) (Arg, bool) {
	for _, a := range c.Inputs() {
		if a.InputKind == kind {
			return a, true
		}
	}
	return Arg{}, false
}
