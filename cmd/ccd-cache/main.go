// ccd-cache is the cache administration CLI (§6 CLI surface): "stats" reports
// disk usage and entry count, "evict" deletes manifest entries oldest-written
// first (a cache hit does not refresh an entry's age) until the cache is back under its configured size and
// sweeps the blobs they left unreferenced — the out-of-scope
// evict(target_bytes) collaborator §4.7/§5 delegate, given a concrete home
// here rather than in internal/cache itself.
//
// Grounded on the teacher's cmd/nocc-server/main.go+configuration.go for the
// TOML-config CLI shape (ParseConfiguration, CmdEnvBool for -version).
package main

import (
	"fmt"
	"os"
	"sort"

	"ccdispatch/internal/cache"
	"ccdispatch/internal/common"
)

func failedStart(message string, err error) {
	fmt.Fprintln(os.Stderr, "failed to start ccd-cache:", message+":", err)
	os.Exit(1)
}

func main() {
	showVersionAndExit := common.CmdEnvBool("Show version and exit.", false, "version", "")

	configuration, err := ParseConfiguration("/etc/ccd/cache.conf")
	if err != nil {
		failedStart("failed to parse configuration", err)
	}

	common.ParseCmdFlagsCombiningWithEnv()

	if *showVersionAndExit {
		fmt.Println("ccd-cache 0.1.0")
		os.Exit(0)
	}

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: ccd-cache <stats|evict>")
		os.Exit(1)
	}

	c, err := cache.Open(configuration.CacheDir)
	if err != nil {
		failedStart("failed to open cache", err)
	}

	switch os.Args[1] {
	case "stats":
		runStats(c)
	case "evict":
		runEvict(c, configuration.MaxSizeBytes)
	default:
		fmt.Fprintln(os.Stderr, "usage: ccd-cache <stats|evict>")
		os.Exit(1)
	}
}

func runStats(c *cache.Cache) {
	entries, err := c.IterEntries()
	if err != nil {
		failedStart("failed to list entries", err)
	}
	usage, err := c.DiskUsageBytes()
	if err != nil {
		failedStart("failed to compute disk usage", err)
	}
	fmt.Printf("entries: %d\n", len(entries))
	fmt.Printf("disk usage: %d bytes\n", usage)
}

// runEvict deletes manifest entries oldest-first, sweeping the blobs they
// leave unreferenced after every batch, until disk usage is at or under
// targetBytes or there is nothing left to delete.
func runEvict(c *cache.Cache, targetBytes int64) {
	entries, err := c.IterEntries()
	if err != nil {
		failedStart("failed to list entries", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ModTime.Before(entries[j].ModTime) })

	const batchSize = 64
	deleted, removed := 0, 0
	var freed int64

	for i := 0; i < len(entries); i += batchSize {
		usage, err := c.DiskUsageBytes()
		if err != nil {
			failedStart("failed to compute disk usage", err)
		}
		if usage <= targetBytes {
			break
		}

		batch := entries[i:min(i+batchSize, len(entries))]
		for _, e := range batch {
			if err := c.Delete(e.ID); err != nil {
				failedStart("failed to delete entry "+e.ID, err)
			}
			deleted++
		}

		batchRemoved, batchFreed, err := c.SweepUnreferencedBlobs()
		if err != nil {
			failedStart("failed to sweep unreferenced blobs", err)
		}
		removed += batchRemoved
		freed += batchFreed
	}

	fmt.Printf("evicted %d entries, swept %d orphan blobs (%d bytes freed)\n", deleted, removed, freed)
}
