package cache

import (
	"os"
	"path/filepath"

	"ccdispatch/internal/common"
)

// blobStore is the `<root>/<aa>/<bb>/<rest>.blob` content-addressed layout
// from §6. Grounded on FileCache's directory-sharded blob storage, which was
// filtered out of the retrieved teacher pack (DESIGN.md); the sharding scheme
// itself is rebuilt directly from the spec's own path description, and writes
// reuse common.WriteFileAtomic (teacher's OpenTempFile+rename idiom in
// filesystem.go) for the crash-safety invariant in §7.
//
// Blobs are addressed by the fixed-width hex form (fixedHex), not
// SHA256.ToLongHexString — that format omits leading zeros per word and so
// varies in length, which breaks the [0:2]/[2:4] directory sharding.
type blobStore struct {
	root string
}

func newBlobStore(root string) *blobStore {
	return &blobStore{root: root}
}

func (s *blobStore) pathFor(hex string) string {
	return filepath.Join(s.root, hex[0:2], hex[2:4], hex+".blob")
}

// put stores data under its content hash, idempotently, and returns the hash
// as a fixed-width hex string.
func (s *blobStore) put(data []byte) (string, error) {
	hex := fixedHex(common.CalcSHA256OfBytes(data))
	path := s.pathFor(hex)
	if _, err := os.Stat(path); err == nil {
		return hex, nil
	}
	if err := common.WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return hex, nil
}

// putFile hashes and stores the contents of srcPath, returning the hash.
func (s *blobStore) putFile(srcPath string) (string, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return "", err
	}
	return s.put(data)
}

// restore writes the blob named by hex to destPath with the given mode.
func (s *blobStore) restore(hex string, destPath string, mode os.FileMode) error {
	data, err := os.ReadFile(s.pathFor(hex))
	if err != nil {
		return err
	}
	if err := common.MkdirForFile(destPath); err != nil {
		return err
	}
	return os.WriteFile(destPath, data, mode)
}
