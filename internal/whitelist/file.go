package whitelist

import (
	"os"

	"github.com/elo-graph/elo/internal/logging"
	"github.com/elo-graph/elo/internal/schema"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FileConfig is the optional on-disk whitelist seed file format: a plain
// yaml.v3 unmarshal, no viper involved, since this file may be read before
// (or independent of) process startup.
type FileConfig struct {
	Node []string `yaml:"node"`
	Edge []string `yaml:"edge"`
}

// LoadFile reads a whitelist seed file. A missing file is not an error —
// it returns a nil FileConfig, which Apply ignores, leaving the whitelist
// unchanged.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path) // #nosec G304 - operator-provided config path
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Apply installs a FileConfig's entries into w and invokes onChange so the
// caller can rebuild the graph cache under the new whitelist.
func (w *Whitelist) Apply(cfg *FileConfig, onChange func()) {
	if cfg == nil {
		return
	}
	if cfg.Node != nil {
		w.Set(schema.EntityNode, cfg.Node)
	}
	if cfg.Edge != nil {
		w.Set(schema.EntityEdge, cfg.Edge)
	}
	if onChange != nil {
		onChange()
	}
}

// WatchFile watches path for changes and re-applies it to w on every write,
// invoking onChange after each reload. The returned watcher must be closed
// by the caller at shutdown.
func WatchFile(path string, w *Whitelist, onChange func()) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := LoadFile(path)
				if err != nil {
					logging.Warnf("whitelist: reloading %s: %v", path, err)
					continue
				}
				w.Apply(cfg, onChange)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warnf("whitelist: watch error: %v", err)
			}
		}
	}()

	return watcher, nil
}
