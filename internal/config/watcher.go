package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// ConfigWatcher monitors the env file and applies credential changes to the
// running process without a restart.
type ConfigWatcher struct {
	config       *Config
	envPath      string
	watcher      *fsnotify.Watcher
	stopChan     chan struct{}
	stopOnce     sync.Once
	lastModTime  time.Time
	pollInterval time.Duration
	debounce     time.Duration
	mu           sync.RWMutex
	onToken      func(token string)
}

// NewConfigWatcher creates a watcher for config.EnvFile.
func NewConfigWatcher(config *Config) (*ConfigWatcher, error) {
	envPath := config.EnvFile
	if envPath == "" {
		envPath = DefaultEnvFile
	}
	if abs, err := filepath.Abs(envPath); err == nil {
		envPath = abs
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	cw := &ConfigWatcher{
		config:       config,
		envPath:      envPath,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		pollInterval: 5 * time.Second,
		debounce:     100 * time.Millisecond,
	}

	if stat, err := os.Stat(envPath); err == nil {
		cw.lastModTime = stat.ModTime()
	}

	return cw, nil
}

// OnTokenChange registers the callback invoked with the new API token
// whenever a reload changes it.
func (cw *ConfigWatcher) OnTokenChange(callback func(token string)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.onToken = callback
}

// Start begins watching the env file's directory, falling back to polling
// when the directory cannot be watched.
func (cw *ConfigWatcher) Start() error {
	dir := filepath.Dir(cw.envPath)
	if err := cw.watcher.Add(dir); err != nil {
		log.Warn().Err(err).Str("path", dir).Msg("Failed to watch config directory")
		log.Warn().Msg("Falling back to polling for config changes")
		go cw.pollForChanges()
		return nil
	}

	go cw.watchForChanges()
	log.Info().Str("env_path", cw.envPath).Msg("Started watching env file for changes")
	return nil
}

// Stop stops the watcher. Safe to call more than once.
func (cw *ConfigWatcher) Stop() {
	cw.stopOnce.Do(func() {
		close(cw.stopChan)
		cw.watcher.Close()
	})
}

// ReloadConfig manually triggers a reload (e.g. from SIGHUP).
func (cw *ConfigWatcher) ReloadConfig() {
	cw.reloadConfig()
}

// APIToken returns the current token under the watcher lock.
func (cw *ConfigWatcher) APIToken() string {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.config.APIToken
}

func (cw *ConfigWatcher) watchForChanges() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Name != cw.envPath && filepath.Base(event.Name) != filepath.Base(cw.envPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			// Wait for the writer to finish
			time.Sleep(cw.debounce)
			log.Info().Str("event", event.Op.String()).Msg("Detected env file change")
			cw.reloadConfig()

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Config watcher error")

		case <-cw.stopChan:
			return
		}
	}
}

func (cw *ConfigWatcher) pollForChanges() {
	ticker := time.NewTicker(cw.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stat, err := os.Stat(cw.envPath)
			if err != nil || !stat.ModTime().After(cw.lastModTime) {
				continue
			}
			log.Info().Msg("Detected env file change via polling")
			cw.lastModTime = stat.ModTime()
			cw.reloadConfig()

		case <-cw.stopChan:
			return
		}
	}
}

func (cw *ConfigWatcher) reloadConfig() {
	envMap, err := godotenv.Read(cw.envPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Error().Err(err).Msg("Failed to read env file")
			return
		}
		envMap = make(map[string]string)
	}

	cw.mu.Lock()
	var changes []string

	oldToken := cw.config.APIToken
	newToken := strings.TrimSpace(strings.Trim(envMap["MC_API_TOKEN"], "'\""))
	tokenChanged := newToken != oldToken
	if tokenChanged {
		cw.config.APIToken = newToken
		switch {
		case newToken == "":
			changes = append(changes, "API token removed")
		case oldToken == "":
			changes = append(changes, "API token added")
		default:
			changes = append(changes, "API token updated")
		}
	}

	newID := strings.TrimSpace(strings.Trim(envMap["MC_CF_CLIENT_ID"], "'\""))
	newSecret := strings.TrimSpace(strings.Trim(envMap["MC_CF_CLIENT_SECRET"], "'\""))
	if newID != cw.config.AccessClientID || newSecret != cw.config.AccessClientSecret {
		// Service token credentials are bound to the HTTP client at startup.
		changes = append(changes, "access service token changed (restart required)")
	}

	callback := cw.onToken
	cw.mu.Unlock()

	if len(changes) == 0 {
		log.Debug().Msg("No relevant changes detected in env file")
		return
	}

	log.Info().
		Strs("changes", changes).
		Bool("has_token", newToken != "").
		Msg("Applied env file changes to runtime config")

	if tokenChanged && callback != nil {
		callback(newToken)
	}
}
