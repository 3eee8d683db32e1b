package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/game2048/game/engine"
	"github.com/wricardo/game2048/game/service"
)

// DefaultVariant is always available
const DefaultVariant = "classic"

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = errors.New("invalid configuration")
)

var variantExtensions = []string{".yaml", ".yml", ".json"}

// validateVariant checks a rule preset loaded or saved by the manager
func validateVariant(v *engine.Config) error {
	if v.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if err := engine.ValidateConfig(*v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func classicVariant() *engine.Config {
	c := engine.DefaultConfig()
	return &c
}

// Manager handles variant loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.Config
	configs       map[string]*engine.Config
	mu            sync.RWMutex
}

// NewManager creates a variant manager. An empty directory serves only the
// built-in classic variant.
func NewManager(configDir string) (*Manager, error) {
	if configDir != "" {
		if _, err := os.Stat(configDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("config directory does not exist: %s", configDir)
		}
	}

	m := &Manager{
		configDir: configDir,
		configs:   map[string]*engine.Config{DefaultVariant: classicVariant()},
	}
	m.defaultConfig = m.configs[DefaultVariant]
	return m, nil
}

// LoadConfig loads a variant by id
func (m *Manager) LoadConfig(name string) (*engine.Config, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	m.mu.RLock()
	if v, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return v, nil
	}
	m.mu.RUnlock()

	if m.configDir == "" {
		return nil, ErrConfigNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if v, exists := m.configs[name]; exists {
		return v, nil
	}

	path, err := m.findFile(name)
	if err != nil {
		return nil, err
	}

	variant, err := ReadVariant(path)
	if err != nil {
		return nil, err
	}

	m.configs[name] = variant
	return variant, nil
}

func (m *Manager) findFile(name string) (string, error) {
	for _, ext := range variantExtensions {
		path := filepath.Join(m.configDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrConfigNotFound
}

// ReadVariant reads and validates a single variant file (YAML or JSON)
func ReadVariant(path string) (*engine.Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	variant := engine.DefaultConfig()
	variant.Description = ""
	if err := v.Unmarshal(&variant); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validateVariant(&variant); err != nil {
		return nil, err
	}
	return &variant, nil
}

// ListConfigs returns information about every available variant
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	ids := map[string]string{DefaultVariant: ""}

	if m.configDir != "" {
		entries, err := os.ReadDir(m.configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read config directory: %w", err)
		}
		for _, entry := range entries {
			ext := filepath.Ext(entry.Name())
			if entry.IsDir() || !isVariantExt(ext) {
				continue
			}
			ids[strings.TrimSuffix(entry.Name(), ext)] = entry.Name()
		}
	}

	names := make([]string, 0, len(ids))
	for id := range ids {
		names = append(names, id)
	}
	sort.Strings(names)

	var configs []*service.ConfigInfo
	for _, id := range names {
		variant, err := m.LoadConfig(id)
		if err != nil {
			// Skip invalid variants
			continue
		}
		configs = append(configs, &service.ConfigInfo{
			Filename:        ids[id],
			ConfigID:        id,
			Name:            variant.Name,
			Description:     variant.Description,
			Size:            variant.Size,
			StartTiles:      variant.StartTiles,
			FourProbability: variant.FourProbability,
		})
	}
	return configs, nil
}

func isVariantExt(ext string) bool {
	for _, e := range variantExtensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// GetDefault returns the default variant
func (m *Manager) GetDefault() *engine.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default variant by id
func (m *Manager) SetDefault(name string) error {
	variant, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = variant
	return nil
}

// RefreshCache drops everything loaded from disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs = map[string]*engine.Config{DefaultVariant: classicVariant()}
	m.defaultConfig = m.configs[DefaultVariant]
}

// SaveConfig writes a variant to the directory as YAML
func (m *Manager) SaveConfig(name string, variant *engine.Config) error {
	if m.configDir == "" {
		return fmt.Errorf("no config directory configured")
	}
	if err := validateVariant(variant); err != nil {
		return err
	}

	data, err := yaml.Marshal(variant)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	name = strings.ToLower(name)
	path := filepath.Join(m.configDir, name+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[name] = variant
	m.mu.Unlock()
	return nil
}
