package vehicle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// PresetLibrary holds the named vehicle configurations available for spawning.
type PresetLibrary struct {
	mu      sync.RWMutex
	presets map[string]Config
}

// NewPresetLibrary seeds a library with the embedded default preset.
func NewPresetLibrary() *PresetLibrary {
	lib := &PresetLibrary{presets: make(map[string]Config)}
	def := GT86()
	lib.presets[def.Name] = def
	return lib
}

// Default returns the preset used when spawn requests do not name one.
func (l *PresetLibrary) Default() Config {
	return GT86()
}

// Get resolves a preset by name, falling back to the default when unknown.
func (l *PresetLibrary) Get(name string) Config {
	if l == nil {
		return GT86()
	}
	l.mu.RLock()
	preset, ok := l.presets[strings.ToLower(strings.TrimSpace(name))]
	l.mu.RUnlock()
	if !ok {
		return l.Default()
	}
	return preset
}

// LoadFile parses a single YAML preset and registers it under its name.
func (l *PresetLibrary) LoadFile(path string) (Config, error) {
	if l == nil {
		return Config{}, fmt.Errorf("preset library not initialised")
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	//1.- Start from the default so partial presets inherit sane values.
	cfg := GT86()
	if err := yaml.Unmarshal(payload, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse preset %s: %w", path, err)
	}
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	cfg.Name = strings.ToLower(strings.TrimSpace(cfg.Name))

	//2.- Clamp every field into its documented range before registration.
	cfg.clampLoaded()

	l.mu.Lock()
	l.presets[cfg.Name] = cfg
	l.mu.Unlock()
	return cfg, nil
}

// LoadDir registers every *.yaml and *.yml preset found in the directory.
// A missing directory is not an error; parse failures abort the scan.
func (l *PresetLibrary) LoadDir(dir string) (int, error) {
	if l == nil || strings.TrimSpace(dir) == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if _, err := l.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}

// Names lists the registered preset names for diagnostics.
func (l *PresetLibrary) Names() []string {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	names := make([]string, 0, len(l.presets))
	for name := range l.presets {
		names = append(names, name)
	}
	l.mu.RUnlock()
	return names
}
