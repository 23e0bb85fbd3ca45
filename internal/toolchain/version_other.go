//go:build !windows

package toolchain

// productVersion is unavailable off Windows: MSVC's VERSIONINFO resource can
// only be read through the Win32 version API. Mirrors octobuild's
// `#[cfg(unix)] fn vs_identifier(_: &Path) -> Option<String> { None }`
// (original_source/src/vs/compiler.rs) — resolving an MSVC toolchain off
// Windows always fails identification, which ToolchainRegistry surfaces as
// ToolchainNotFound.
func productVersion(path string) (string, bool) {
	return "", false
}
