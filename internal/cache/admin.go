package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// DiskUsageBytes sums the size of every blob and manifest file currently on
// disk, for an admin CLI's "stats" command.
func (c *Cache) DiskUsageBytes() (int64, error) {
	var total int64
	root := filepath.Dir(c.manifestRoot) // manifestRoot is <dir>/index; blobs live directly under <dir>
	err := filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			total += fi.Size()
		}
		return nil
	})
	return total, err
}

// referencedBlobs returns the set of blob hashes named by every manifest
// record currently on disk.
func (c *Cache) referencedBlobs() (map[string]bool, error) {
	refs := make(map[string]bool)
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
		for _, o := range record.Outputs {
			refs[o.Blob] = true
		}
		if record.StdoutBlob != "" {
			refs[record.StdoutBlob] = true
		}
		if record.StderrBlob != "" {
			refs[record.StderrBlob] = true
		}
		return nil
	})
	return refs, err
}

// SweepUnreferencedBlobs deletes every blob not named by any remaining
// manifest record, the blob-garbage-collection half of the out-of-scope
// evict(target_bytes) policy (§4.7, §5): Delete only ever removes a manifest
// record, never the blobs it referenced (other entries may share them), so
// an admin CLI calls this afterwards to reclaim the space.
func (c *Cache) SweepUnreferencedBlobs() (removed int, freed int64, err error) {
	refs, err := c.referencedBlobs()
	if err != nil {
		return 0, 0, err
	}
	blobRoot := filepath.Dir(c.manifestRoot)
	err = filepath.Walk(blobRoot, func(path string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if fi.IsDir() {
			if path == c.manifestRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".blob" {
			return nil
		}
		hex := fi.Name()[:len(fi.Name())-len(".blob")]
		if refs[hex] {
			return nil
		}
		size := fi.Size()
		if err := os.Remove(path); err != nil {
			return err
		}
		removed++
		freed += size
		return nil
	})
	return removed, freed, err
}
