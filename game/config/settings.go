package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/wricardo/game2048/game/i18n"
)

// Storage backends
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Settings holds process-wide options
type Settings struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	DataDir        string        `mapstructure:"data_dir"`
	VariantsDir    string        `mapstructure:"variants_dir"`
	Storage        string        `mapstructure:"storage"`
	SQLitePath     string        `mapstructure:"sqlite_path"`
	UndoDepth      int           `mapstructure:"undo_depth"`
	DefaultLang    string        `mapstructure:"default_lang"`
	DefaultVariant string        `mapstructure:"default_variant"`
	NATSURL        string        `mapstructure:"nats_url"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	StoreRetention time.Duration `mapstructure:"store_retention"`
	SaveRetries    uint          `mapstructure:"save_retries"`
	Debug          bool          `mapstructure:"debug"`
	Ngrok          bool          `mapstructure:"ngrok"`
	NgrokDomain    string        `mapstructure:"ngrok_domain"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 8080)
	v.SetDefault("data_dir", "sessions")
	v.SetDefault("variants_dir", "")
	v.SetDefault("storage", StorageFile)
	v.SetDefault("sqlite_path", "game2048.db")
	v.SetDefault("undo_depth", 6)
	v.SetDefault("default_lang", "fr")
	v.SetDefault("default_variant", DefaultVariant)
	v.SetDefault("nats_url", "")
	v.SetDefault("session_ttl", 24*time.Hour)
	v.SetDefault("store_retention", 30*24*time.Hour)
	v.SetDefault("save_retries", 3)
	v.SetDefault("debug", false)
	v.SetDefault("ngrok", false)
	v.SetDefault("ngrok_domain", "")
}

// Load reads settings. An empty path searches for game2048.yaml in the
// working directory and $HOME/.game2048; a missing file is not an error in
// that case.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GAME2048")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("game2048")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.game2048")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks value ranges
func (s *Settings) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, s.Port)
	}
	switch s.Storage {
	case StorageFile, StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("%w: unknown storage %q", ErrInvalidConfig, s.Storage)
	}
	if s.UndoDepth <= 0 {
		return fmt.Errorf("%w: undo_depth must be positive", ErrInvalidConfig)
	}
	if _, err := language.Parse(s.DefaultLang); err != nil {
		return fmt.Errorf("%w: default_lang: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Addr returns host:port
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Language returns the negotiated default language
func (s *Settings) Language() language.Tag {
	return i18n.Match(s.DefaultLang)
}
