package arg

import (
	"fmt"
	"strings"
)

// Language is the CompilationTask.language field from §3: C or C++ ("P", the
// MSVC /TP convention this spec borrows for both toolchains' task model).
type Language string

const (
	LangC   Language = "C"
	LangCPP Language = "P"
)

// UnknownArgsError is returned when the classifier sees an unmapped "/" or "-"
// flag (§4.4, §7 UnknownArgs): the caller should fall back to pass-through
// execution without caching.
type UnknownArgsError struct {
	Tokens []string
}

func (e *UnknownArgsError) Error() string {
	return fmt.Sprintf("unknown compiler args: %s", strings.Join(e.Tokens, " "))
}

// Classifier turns a raw (response-file-expanded) argv into a Classified arg
// list, per one of the toolchain-specific tables in §4.4.
type Classifier interface {
	// Classify returns the tagged args. If any token cannot be mapped, it
	// returns *UnknownArgsError listing every offending token (classification
	// continues past the first miss so all offenders are reported at once).
	Classify(argv []string) (*Classified, error)
	// InferLanguage derives the source language from a file extension when no
	// explicit language switch was present in argv.
	InferLanguage(sourceFile string) Language
}

// joinedOrSpaced checks whether argv[i] (with its leading switch char already
// stripped into rest) carries key either joined ("Ifoo") or needs the next
// token as a spaced value ("I" "foo"). Returns the value and how many argv
// slots were consumed (1 or 2), or ok=false if rest doesn't start with key.
func joinedOrSpaced(argv []string, i int, rest string, key string) (value string, consumed int, ok bool) {
	if !strings.HasPrefix(rest, key) {
		return "", 0, false
	}
	if rest == key {
		if i+1 >= len(argv) {
			return "", 0, false
		}
		return argv[i+1], 2, true
	}
	return rest[len(key):], 1, true
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// MSVC

type msvcClassifier struct{}

func NewMSVCClassifier() Classifier { return msvcClassifier{} }

func (msvcClassifier) InferLanguage(sourceFile string) Language {
	lower := strings.ToLower(sourceFile)
	if strings.HasSuffix(lower, ".c") {
		return LangC
	}
	return LangCPP
}

func (msvcClassifier) Classify(argv []string) (*Classified, error) {
	result := &Classified{}
	var unknown []string

	for i := 0; i < len(argv); i++ {
		tok := argv[i]
		if tok == "" {
			continue
		}
		if tok[0] != '/' && tok[0] != '-' {
			result.Args = append(result.Args, Input(InputSource, "", tok))
			continue
		}
		rest := tok[1:]
		consumed := 1

		switch {
		case rest == "c" || rest == "nologo":
			result.Args = append(result.Args, Flag(ScopeIgnore, tok[0], rest))

		case rest == "bigobj":
			result.Args = append(result.Args, Flag(ScopeCompiler, tok[0], rest))

		case len(rest) == 2 && rest[0] == 'T' && (rest[1] == 'P' || rest[1] == 'C'):
			result.Args = append(result.Args, Param(ScopeIgnore, tok[0], "T", rest[1:], true))

		case hasAnyPrefix(rest, "O", "G", "RTC", "Z", "MD", "MT", "EH", "fp:", "arch:", "errorReport:", "Yl"):
			result.Args = append(result.Args, Flag(ScopeShared, tok[0], rest))

		default:
			if value, n, ok := joinedOrSpaced(argv, i, rest, "D"); ok {
				result.Args = append(result.Args, Param(ScopeShared, tok[0], "D", value, n == 1))
				consumed = n
			} else if value, n, ok := joinedOrSpaced(argv, i, rest, "I"); ok {
				result.Args = append(result.Args, Param(ScopePreprocessor, tok[0], "I", value, n == 1))
				consumed = n
			} else if value, ok := msvcWarningValue(rest); ok {
				key, joined := warningKeyOf(rest), true
				if value == "" && (key == "W" || key == "wd" || key == "we" || key == "wo") && i+1 < len(argv) {
					value, joined, consumed = argv[i+1], false, 2
				}
				result.Args = append(result.Args, Param(ScopeCompiler, tok[0], key, value, joined))
			} else if value, n, ok := joinedOrSpaced(argv, i, rest, "Fo"); ok {
				result.Args = append(result.Args, Output(OutputObject, "Fo", value))
				consumed = n
			} else if value, n, ok := joinedOrSpaced(argv, i, rest, "Fp"); ok {
				result.Args = append(result.Args, Input(InputPrecompiled, "Fp", value))
				consumed = n
			} else if value, n, ok := joinedOrSpaced(argv, i, rest, "Yc"); ok {
				result.Args = append(result.Args, Output(OutputMarker, "Yc", value))
				consumed = n
			} else if value, n, ok := joinedOrSpaced(argv, i, rest, "Yu"); ok {
				result.Args = append(result.Args, Input(InputMarker, "Yu", value))
				consumed = n
			} else if value, n, ok := joinedOrSpaced(argv, i, rest, "FI"); ok {
				result.Args = append(result.Args, Param(ScopePreprocessor, tok[0], "FI", value, n == 1))
				consumed = n
			} else {
				unknown = append(unknown, tok)
			}
		}

		i += consumed - 1
	}

	if len(unknown) > 0 {
		return nil, &UnknownArgsError{Tokens: unknown}
	}
	return result, nil
}

// msvcWarningValue matches /W0../W4, /Wall, /WX, /wd####, /we####, /wo####, and
// bare /w (§4.4 "W*, wd*, we*, wo*, w (spaceable)").
func msvcWarningValue(rest string) (string, bool) {
	if rest == "w" {
		return "", true
	}
	for _, key := range []string{"Wall", "WX", "W", "wd", "we", "wo"} {
		if strings.HasPrefix(rest, key) {
			return rest[len(key):], true
		}
	}
	return "", false
}

func warningKeyOf(rest string) string {
	for _, key := range []string{"Wall", "WX", "W", "wd", "we", "wo", "w"} {
		if strings.HasPrefix(rest, key) {
			return key
		}
	}
	return "w"
}

// ---------------------------------------------------------------------------
// Clang

type clangClassifier struct{}

func NewClangClassifier() Classifier { return clangClassifier{} }

func (clangClassifier) InferLanguage(sourceFile string) Language {
	lower := strings.ToLower(sourceFile)
	if strings.HasSuffix(lower, ".c") {
		return LangC
	}
	return LangCPP
}

func (clangClassifier) Classify(argv []string) (*Classified, error) {
	result := &Classified{}
	var unknown []string

	for i := 0; i < len(argv); i++ {
		tok := argv[i]
		if tok == "" {
			continue
		}
		if tok[0] != '-' {
			result.Args = append(result.Args, Input(InputSource, "", tok))
			continue
		}
		rest := tok[1:]
		consumed := 1

		switch {
		case rest == "c" || rest == "pipe" || rest == "v":
			result.Args = append(result.Args, Flag(ScopeIgnore, tok[0], rest))

		case rest == "frewrite-includes":
			result.Args = append(result.Args, Flag(ScopePreprocessor, tok[0], rest))

		case rest == "x":
			if i+1 >= len(argv) {
				unknown = append(unknown, tok)
				break
			}
			result.Args = append(result.Args, Param(ScopeIgnore, tok[0], "x", argv[i+1], false))
			consumed = 2

		case rest == "o":
			if i+1 >= len(argv) {
				unknown = append(unknown, tok)
				break
			}
			result.Args = append(result.Args, Output(OutputObject, "o", argv[i+1]))
			consumed = 2

		case hasAnyPrefix(rest, "O", "g", "fPIC", "fpic", "march=", "mtune=", "std="):
			result.Args = append(result.Args, Flag(ScopeShared, tok[0], rest))

		default:
			if value, n, ok := joinedOrSpaced(argv, i, rest, "D"); ok {
				result.Args = append(result.Args, Param(ScopeShared, tok[0], "D", value, n == 1))
				consumed = n
			} else if value, n, ok := joinedOrSpaced(argv, i, rest, "isystem"); ok {
				result.Args = append(result.Args, Param(ScopePreprocessor, tok[0], "isystem", value, n == 1))
				consumed = n
			} else if value, n, ok := joinedOrSpaced(argv, i, rest, "iquote"); ok {
				result.Args = append(result.Args, Param(ScopePreprocessor, tok[0], "iquote", value, n == 1))
				consumed = n
			} else if value, n, ok := joinedOrSpaced(argv, i, rest, "I"); ok {
				result.Args = append(result.Args, Param(ScopePreprocessor, tok[0], "I", value, n == 1))
				consumed = n
			} else if value, n, ok := joinedOrSpaced(argv, i, rest, "include"); ok {
				result.Args = append(result.Args, Param(ScopePreprocessor, tok[0], "include", value, n == 1))
				consumed = n
			} else if strings.HasPrefix(rest, "W") {
				result.Args = append(result.Args, Param(ScopeCompiler, tok[0], "W", rest[1:], true))
			} else {
				unknown = append(unknown, tok)
			}
		}

		i += consumed - 1
	}

	if len(unknown) > 0 {
		return nil, &UnknownArgsError{Tokens: unknown}
	}
	return result, nil
}
