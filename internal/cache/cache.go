// Package cache implements the content-addressed ArtifactCache (§4.7, C7):
// a blob store keyed by content hash, a JSON manifest keyed by Key, and an
// intra-process lock table enforcing at-most-one in-flight build per key.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ccdispatch/internal/common"
)

// Artifact names one file a CompilationTask produces or consumes as part of a
// cache entry (the object file, or a generated/consumed PCH). Path is read
// from on insert and written to on a lookup hit.
type Artifact struct {
	Name string
	Path string
	Mode os.FileMode
}

// Entry is an opaque handle returned by IterEntries, for the external
// eviction policy described in §4.7/§5 ("delegated out of scope here").
// ModTime is the manifest file's modification time, the recency signal an
// LRU eviction policy orders on.
type Entry struct {
	ID      string
	Info    OutputInfo
	ModTime time.Time
}

// Cache is the ArtifactCache described in §4.7.
type Cache struct {
	blobs        *blobStore
	manifestRoot string
	locks        *lockTable
}

// Open roots a Cache at dir, laid out per §6:
// dir/<aa>/<bb>/<rest>.blob and dir/index/<key-prefix>/<key>.meta.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	indexRoot := filepath.Join(dir, "index")
	if err := os.MkdirAll(indexRoot, os.ModePerm); err != nil {
		return nil, err
	}
	return &Cache{
		blobs:        newBlobStore(dir),
		manifestRoot: indexRoot,
		locks:        newLockTable(),
	}, nil
}

func (c *Cache) manifestPath(key Key) string {
	id := key.hex()
	return filepath.Join(c.manifestRoot, id[0:2], id+".meta")
}

// Lookup restores artifacts' Path from the cache entry for key, if present.
// ok is false on a cold cache (a miss), not an error.
func (c *Cache) Lookup(key Key, artifacts []Artifact) (info OutputInfo, ok bool, err error) {
	record, found, err := c.readManifest(key)
	if err != nil || !found {
		return OutputInfo{}, false, err
	}
	if err := c.restoreArtifacts(record.Outputs, artifacts); err != nil {
		return OutputInfo{}, false, err
	}
	return record.outputInfo(), true, nil
}

// Insert snapshots the current contents of artifacts' Path into the blob
// store and writes the manifest record for key. Idempotent: re-inserting the
// same key overwrites its manifest with (presumably identical) content.
func (c *Cache) Insert(key Key, artifacts []Artifact, info OutputInfo) error {
	outputs := make([]ManifestOutput, 0, len(artifacts))
	for _, a := range artifacts {
		hex, err := c.blobs.putFile(a.Path)
		if err != nil {
			return err
		}
		outputs = append(outputs, ManifestOutput{
			Name: a.Name,
			Blob: hex,
			Mode: uint32(a.Mode),
		})
	}
	info.Outputs = outputs
	return c.writeManifest(key, info)
}

// RunCached is the composite operation from §4.7: on a hit, restores
// artifacts and returns; on a miss, runs build (which is expected to leave
// artifacts' Path populated on disk), inserts the result, and returns it. At
// most one build per key runs at a time within this process; a second
// concurrent caller for the same key blocks until the first finishes and then
// observes its result as a hit, without re-running build.
func (c *Cache) RunCached(key Key, artifacts []Artifact, build func() (OutputInfo, error)) (OutputInfo, error) {
	id := key.hex()
	lock := c.locks.acquire(id)
	defer c.locks.release(id, lock)

	if info, ok, err := c.Lookup(key, artifacts); err != nil {
		return OutputInfo{}, err
	} else if ok {
		return info, nil
	}

	info, err := build()
	if err != nil {
		return OutputInfo{}, err
	}
	if err := c.Insert(key, artifacts, info); err != nil {
		return OutputInfo{}, err
	}
	return info, nil
}

// PutBytes stores data in the blob store and returns its content hash, for
// callers (the orchestrator) that want to cache raw stdout/stderr bytes
// alongside the artifact files named in an OutputInfo.
func (c *Cache) PutBytes(data []byte) (string, error) {
	return c.blobs.put(data)
}

// GetBytes returns the blob stored under hex, as produced by PutBytes.
func (c *Cache) GetBytes(hex string) ([]byte, error) {
	return os.ReadFile(c.blobs.pathFor(hex))
}

// IterEntries lists every manifest record currently in the cache, for an
// external eviction policy (§4.7 "iter_entries()/delete(key)").
func (c *Cache) IterEntries() ([]Entry, error) {
	var entries []Entry
	err := filepath.Walk(c.manifestRoot, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() || filepath.Ext(path) != ".meta" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var record manifestRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return err
		}
		id := strings.TrimSuffix(filepath.Base(path), ".meta")
		entries = append(entries, Entry{ID: id, Info: record.outputInfo(), ModTime: fi.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete removes the manifest record named by id (as returned by
// IterEntries). Blob garbage collection across remaining entries is the
// eviction policy's responsibility, per §4.7.
func (c *Cache) Delete(id string) error {
	matches, err := filepath.Glob(filepath.Join(c.manifestRoot, id[0:2], id+".meta"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (c *Cache) readManifest(key Key) (manifestRecord, bool, error) {
	data, err := os.ReadFile(c.manifestPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return manifestRecord{}, false, nil
		}
		return manifestRecord{}, false, err
	}
	var record manifestRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return manifestRecord{}, false, err
	}
	return record, true, nil
}

func (c *Cache) writeManifest(key Key, info OutputInfo) error {
	record := newManifestRecord(key, info)
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return common.WriteFileAtomic(c.manifestPath(key), data)
}

func (c *Cache) restoreArtifacts(outputs []ManifestOutput, artifacts []Artifact) error {
	byName := make(map[string]ManifestOutput, len(outputs))
	for _, o := range outputs {
		byName[o.Name] = o
	}
	for _, a := range artifacts {
		o, ok := byName[a.Name]
		if !ok {
			continue
		}
		if err := c.blobs.restore(o.Blob, a.Path, a.Mode); err != nil {
			return err
		}
	}
	return nil
}
