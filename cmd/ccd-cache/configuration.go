package main

import "github.com/BurntSushi/toml"

// Configuration is ccd-cache's TOML-file config (§6 CLI surface, cache admin
// CLI). Grounded on the teacher's cmd/nocc-server/configuration.go: same
// defaults-struct-then-toml.DecodeFile-overrides pattern.
type Configuration struct {
	CacheDir     string
	MaxSizeBytes int64
}

func ParseConfiguration(filePath string) (*Configuration, error) {
	config := Configuration{
		CacheDir:     "/var/tmp/ccd/cache",
		MaxSizeBytes: 8 * 1024 * 1024 * 1024,
	}
	if _, err := toml.DecodeFile(filePath, &config); err != nil {
		return nil, err
	}
	return &config, nil
}
