//go:build windows

package toolchain

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modversion                  = windows.NewLazySystemDLL("version.dll")
	procGetFileVersionInfoSizeW = modversion.NewProc("GetFileVersionInfoSizeW")
	procGetFileVersionInfoW     = modversion.NewProc("GetFileVersionInfoW")
	procVerQueryValueW          = modversion.NewProc("VerQueryValueW")
)

type langAndCodePage struct {
	language uint16
	codePage uint16
}

// productVersion reads cl.exe's VERSIONINFO resource, the first half of the
// MSVC identifier in §4.9. Ported from octobuild's vs_identifier
// (original_source/src/vs/compiler.rs), which makes the identical three-call
// sequence against version.dll via raw FFI; here via golang.org/x/sys/windows
// LazyDLL/NewProc instead of winapi-rs bindings.
func productVersion(path string) (string, bool) {
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return "", false
	}

	size, _, _ := procGetFileVersionInfoSizeW.Call(uintptr(unsafe.Pointer(pathPtr)), 0)
	if size == 0 {
		return "", false
	}

	data := make([]byte, size)
	ret, _, _ := procGetFileVersionInfoW.Call(
		uintptr(unsafe.Pointer(pathPtr)), 0, size, uintptr(unsafe.Pointer(&data[0])))
	if ret == 0 {
		return "", false
	}

	transKey, err := windows.UTF16PtrFromString(`\VarFileInfo\Translation`)
	if err != nil {
		return "", false
	}
	var translationPtr uintptr
	var translationLen uint32
	ret, _, _ = procVerQueryValueW.Call(
		uintptr(unsafe.Pointer(&data[0])),
		uintptr(unsafe.Pointer(transKey)),
		uintptr(unsafe.Pointer(&translationPtr)),
		uintptr(unsafe.Pointer(&translationLen)))
	if ret == 0 || translationLen == 0 {
		return "", false
	}
	lcp := (*langAndCodePage)(unsafe.Pointer(translationPtr))

	queryPath := fmt.Sprintf(`\StringFileInfo\%04x%04x\ProductVersion`, lcp.language, lcp.codePage)
	queryPtr, err := windows.UTF16PtrFromString(queryPath)
	if err != nil {
		return "", false
	}
	var valuePtr uintptr
	var valueLen uint32
	ret, _, _ = procVerQueryValueW.Call(
		uintptr(unsafe.Pointer(&data[0])),
		uintptr(unsafe.Pointer(queryPtr)),
		uintptr(unsafe.Pointer(&valuePtr)),
		uintptr(unsafe.Pointer(&valueLen)))
	if ret == 0 || valueLen == 0 {
		return "", false
	}

	u16 := unsafe.Slice((*uint16)(unsafe.Pointer(valuePtr)), valueLen)
	return windows.UTF16ToString(u16), true
}
