package toolchain

import (
	"encoding/binary"
	"fmt"
	"os"
)

// peImageID reads cl.exe's PE header and returns "<timestamp-hex><size-hex>"
// (lowercase, no separator), the second half of the MSVC identifier in §4.9.
// Ported byte-for-byte from octobuild's read_executable_id in
// original_source/src/vs/compiler.rs: MZ signature at 0x00, the PE header
// offset at 0x3C, PE signature at the resolved offset, COFF TimeDateStamp at
// +0x08 and Optional Header SizeOfImage at +0x50, all little-endian.
func peImageID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var mz [0x40]byte
	if _, err := readFull(f, mz[:]); err != nil {
		return "", err
	}
	if mz[0] != 'M' || mz[1] != 'Z' {
		return "", fmt.Errorf("toolchain: %s: missing MZ header signature", path)
	}
	peOffset := binary.LittleEndian.Uint32(mz[0x3C:0x40])

	if _, err := f.Seek(int64(peOffset), 0); err != nil {
		return "", err
	}
	var pe [0x54]byte
	if _, err := readFull(f, pe[:]); err != nil {
		return "", err
	}
	if pe[0] != 'P' || pe[1] != 'E' || pe[2] != 0 || pe[3] != 0 {
		return "", fmt.Errorf("toolchain: %s: missing PE header signature", path)
	}
	timeDateStamp := binary.LittleEndian.Uint32(pe[0x08:0x0C])
	sizeOfImage := binary.LittleEndian.Uint32(pe[0x50:0x54])

	return fmt.Sprintf("%x%x", timeDateStamp, sizeOfImage), nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
