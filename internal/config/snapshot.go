package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// WriteSnapshot persists the run configuration to the data root.
// Written exactly once at run start; workers and the offline analysis treat
// it as read-only afterwards, so a run can never drift mid-flight.
func (c *Config) WriteSnapshot() error {
	if err := os.MkdirAll(c.DataRoot, 0750); err != nil {
		return fmt.Errorf("create data root: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal run snapshot: %w", err)
	}
	if err := os.WriteFile(c.SnapshotPath(), data, 0600); err != nil {
		return fmt.Errorf("write run snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the run configuration back from a data root.
// Flags that are process-local (Verbose) are not part of the snapshot.
func LoadSnapshot(dataRoot string) (*Config, error) {
	cfg := New()
	cfg.DataRoot = dataRoot

	data, err := os.ReadFile(cfg.SnapshotPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("read run snapshot: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse run snapshot: %w", err)
	}
	// The snapshot records where the run lived when it was written; the
	// data root it was actually loaded from wins, so runs stay portable
	// across machines sharing a filesystem.
	cfg.DataRoot = dataRoot
	return cfg, nil
}

// LoadSiteList reads a newline-separated site list.
// Blank lines and #-comments are skipped; entries are returned in file
// order because the queue preserves it.
func LoadSiteList(path string) ([]string, error) {
	file, err := os.Open(path) //nolint:gosec // User-provided site list path is intentional
	if err != nil {
		return nil, fmt.Errorf("open site list: %w", err)
	}
	defer file.Close()

	var sites []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sites = append(sites, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read site list %s: %w", path, err)
	}
	return sites, nil
}
