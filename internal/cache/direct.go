package cache

import (
	"encoding/json"

	"ccdispatch/internal/common"
)

// graphEntry is one file of a direct-mode cache entry's captured include
// graph: its canonical path and the content hash recorded at insert time.
type graphEntry struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// InsertDirect is Insert's direct-mode counterpart (GLOSSARY "Direct mode":
// "cache lookup based on scanning include graph file hashes instead of
// running the preprocessor"). key.PreprocHash should be the hash of the raw
// (unpreprocessed) source file rather than preprocessed bytes — direct mode
// never runs the preprocessor, so that hash is all there is to fingerprint
// the source itself. includePaths is every file transitively reachable from
// it (as collected by internal/include.Graph), hashed and captured alongside
// so a later TryDirectModeHit, given the include paths again, can check that
// none of them changed on disk.
//
// Grounded on direct/scanner.rs's collect_includes/file_include_paths
// transitive-closure walk (already ported as internal/include.Graph.Paths):
// scanner.rs has no dedicated hashing step of its own, but hashing the source
// plus the closure that walk finds, and trusting an entry only while every
// one of those hashes still matches what's on disk, is the natural Go
// expression of what the walk exists to support.
func (c *Cache) InsertDirect(key Key, includePaths []string, artifacts []Artifact, info OutputInfo) error {
	graph, err := hashIncludeGraph(includePaths)
	if err != nil {
		return err
	}
	outputs := make([]ManifestOutput, 0, len(artifacts))
	for _, a := range artifacts {
		hex, err := c.blobs.putFile(a.Path)
		if err != nil {
			return err
		}
		outputs = append(outputs, ManifestOutput{Name: a.Name, Blob: hex, Mode: uint32(a.Mode)})
	}
	info.Outputs = outputs
	record := newManifestRecord(key, info)
	record.IncludeGraph = graph
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return common.WriteFileAtomic(c.manifestPath(key), data)
}

// TryDirectModeHit reports a hit only if key has a direct-mode entry (one
// with a captured include graph) and every file in that graph still hashes
// the same as when it was captured — i.e. neither the source nor anything it
// transitively includes has changed since. A changed file, a missing file, or
// no entry at all are all treated as a miss, not an error, so the caller can
// fall back to the full preprocess-and-compile path.
func (c *Cache) TryDirectModeHit(key Key, includePaths []string, artifacts []Artifact) (OutputInfo, bool, error) {
	record, found, err := c.readManifest(key)
	if err != nil || !found || len(record.IncludeGraph) == 0 {
		return OutputInfo{}, false, err
	}

	current, err := hashIncludeGraph(includePaths)
	if err != nil {
		return OutputInfo{}, false, nil
	}
	if !sameGraph(record.IncludeGraph, current) {
		return OutputInfo{}, false, nil
	}

	if err := c.restoreArtifacts(record.Outputs, artifacts); err != nil {
		return OutputInfo{}, false, err
	}
	return record.outputInfo(), true, nil
}

func hashIncludeGraph(paths []string) ([]graphEntry, error) {
	entries := make([]graphEntry, 0, len(paths))
	for _, p := range paths {
		h, err := common.GetFileSHA256(p)
		if err != nil {
			return nil, err
		}
		entries = append(entries, graphEntry{Path: p, Hash: fixedHex(h)})
	}
	return entries, nil
}

func sameGraph(a, b []graphEntry) bool {
	if len(a) != len(b) {
		return false
	}
	byPath := make(map[string]string, len(a))
	for _, e := range a {
		byPath[e.Path] = e.Hash
	}
	for _, e := range b {
		if byPath[e.Path] != e.Hash {
			return false
		}
	}
	return true
}
