package toolchain

import "bytes"

// FilterOutput post-filters a backend's captured stdout per the per-Toolchain
// rule the §3 "OutputInfo.stdout is post-filtered" language leaves
// unspecified. MSVC echoes noise worth dropping before it's cached or shown
// to the user: a bare-basename line per /MP source (the translation-unit echo)
// and the "Generating Code..."/"Compiling..." progress banners. Clang prints
// neither, so its output passes through unchanged.
//
// Grounded on the teacher's patchStdoutDropServerPaths (cxx-launcher.go),
// which performs the analogous "strip something the compiler prints that the
// reader doesn't want to see" rewrite on captured stdout/stderr.
func FilterOutput(kind Kind, out []byte) []byte {
	if kind != KindMSVC || len(out) == 0 {
		return out
	}
	lines := bytes.Split(out, []byte("\n"))
	kept := make([][]byte, 0, len(lines))
	for _, line := range lines {
		trimmed := bytes.TrimSpace(line)
		switch {
		case bytes.Equal(trimmed, []byte("Generating Code...")):
		case bytes.Equal(trimmed, []byte("Compiling...")):
		case isBareSourceBasename(trimmed):
		default:
			kept = append(kept, line)
		}
	}
	return bytes.Join(kept, []byte("\n"))
}

// isBareSourceBasename reports whether line is nothing but a source file
// name — the per-/MP-input echo cl.exe prints with no other punctuation, as
// opposed to a diagnostic line (which always carries ": error"/"warning"/a
// line number in parentheses).
func isBareSourceBasename(line []byte) bool {
	if len(line) == 0 || bytes.ContainsAny(line, " :()") {
		return false
	}
	for _, ext := range [][]byte{[]byte(".c"), []byte(".cc"), []byte(".cpp"), []byte(".cxx")} {
		if bytes.HasSuffix(line, ext) {
			return true
		}
	}
	return false
}
