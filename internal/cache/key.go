package cache

import (
	"crypto/sha256"
	"fmt"

	"ccdispatch/internal/common"
)

// Key is the fingerprint described in §4.7: toolchain id concatenated with the
// hash of compiler-scope args, the hash of the preprocessed bytes, and the
// hash of the input PCH file (zero if the task has none). Grounded on
// ObjFileCache.MakeObjCacheKey in obj-cache.go, generalized from a single
// combined sha256 over (compilerName, args, sessionFiles) into the spec's
// explicit four-part fingerprint.
type Key struct {
	ToolchainID string
	ArgsHash    common.SHA256
	PreprocHash common.SHA256
	PCHHash     common.SHA256 // zero value (IsEmpty()) when the task has no input PCH
}

// digest folds Key down to a single SHA256, used to name manifest files and
// as the in-flight lock table's map key. A CacheKey is required to be stable
// across runs on the same platform (§4.4 invariant I1); digest only combines
// fields already individually stable, so it inherits that property.
func (k Key) digest() common.SHA256 {
	hasher := sha256.New()
	hasher.Write([]byte(k.ToolchainID))
	writeHash(hasher, k.ArgsHash)
	writeHash(hasher, k.PreprocHash)
	writeHash(hasher, k.PCHHash)
	return common.MakeSHA256Struct(hasher)
}

func writeHash(hasher interface{ Write([]byte) (int, error) }, h common.SHA256) {
	hasher.Write([]byte(fixedHex(h)))
}

// fixedHex renders h as a zero-padded 64-char hex string. SHA256.ToLongHexString
// uses %x on each word without zero-padding, so its width varies with leading
// zero bytes — unsuitable for path sharding (blobstore/manifest directory
// names need a stable prefix length).
func fixedHex(h common.SHA256) string {
	return fmt.Sprintf("%016x%016x%016x%016x", h.B0_7, h.B8_15, h.B16_23, h.B24_31)
}

// hex is the manifest/lock-table identifier for k: a fixed-length hex string
// safe to use as a path component and as a map key.
func (k Key) hex() string {
	return fixedHex(k.digest())
}
