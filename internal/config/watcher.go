package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chbridge/internal/logger"
)

// Watcher polls a directory of JSON config files on an interval and delivers
// fully rebuilt config maps. It is intentionally simple: directory-watching
// mechanisms (inotify and friends) stay out of scope; this is the concrete
// stand-in the bridge needs to drive reload() in tests and in cmd/bridge.
type Watcher struct {
	dir      string
	interval time.Duration
	log      logger.Logger
}

// NewWatcher builds a Watcher over dir, scanning every interval.
func NewWatcher(dir string, interval time.Duration, log logger.Logger) *Watcher {
	if log == nil {
		log = logger.Discard
	}
	return &Watcher{dir: dir, interval: interval, log: log}
}

// DataSources reads every *.json file in the watcher's directory and decodes
// each as a map[id]DataSourceConfig, merging them into one map. Malformed
// files are logged and skipped, not fatal.
func (w *Watcher) DataSources() map[string]DataSourceConfig {
	out := map[string]DataSourceConfig{}
	w.forEachJSONFile(func(path string, data []byte) {
		var batch map[string]DataSourceConfig
		if err := json.Unmarshal(data, &batch); err != nil {
			w.log.Warn("config: skipping malformed datasource file %s: %v", path, err)
			return
		}
		for id, cfg := range batch {
			cfg.ID = id
			out[id] = cfg
		}
	})
	return out
}

// NamedQueries reads every *.json file in the watcher's directory and decodes
// each as a map[id]NamedQueryConfig.
func (w *Watcher) NamedQueries() map[string]NamedQueryConfig {
	out := map[string]NamedQueryConfig{}
	w.forEachJSONFile(func(path string, data []byte) {
		var batch map[string]NamedQueryConfig
		if err := json.Unmarshal(data, &batch); err != nil {
			w.log.Warn("config: skipping malformed query file %s: %v", path, err)
			return
		}
		for id, cfg := range batch {
			cfg.ID = id
			out[id] = cfg
		}
	})
	return out
}

func (w *Watcher) forEachJSONFile(fn func(path string, data []byte)) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Warn("config: cannot read %s: %v", w.dir, err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			w.log.Warn("config: cannot read %s: %v", path, err)
			continue
		}
		fn(path, data)
	}
}

// Run scans on every tick and invokes onReload with the rebuilt maps, until
// ctx is canceled. Scans happen synchronously relative to the ticker so two
// scans never overlap.
func (w *Watcher) Run(ctx context.Context, onReload func(datasources map[string]DataSourceConfig, queries map[string]NamedQueryConfig)) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			onReload(w.DataSources(), w.NamedQueries())
		}
	}
}

// LoadServerConfig reads config/server.json under home, applying defaults
// for any field the file leaves out (an explicit zero in the file is kept).
// A missing file yields the defaults.
func LoadServerConfig(home string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	path := filepath.Join(home, "config", "server.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return ServerConfig{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
