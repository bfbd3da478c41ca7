// Package config loads application configuration from defaults, an optional
// YAML or JSON file, and environment variable overrides, in that order.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Playback PlaybackConfig `yaml:"playback" json:"playback"`
	SyncPlay SyncPlayConfig `yaml:"syncplay" json:"syncplay"`
	Watch    WatchConfig    `yaml:"watch" json:"watch"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" json:"host" env:"KINETRA_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" json:"port" env:"KINETRA_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout" env:"KINETRA_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout" env:"KINETRA_WRITE_TIMEOUT" default:"30s"`
	EnableCORS   bool          `yaml:"enable_cors" json:"enable_cors" env:"KINETRA_ENABLE_CORS" default:"true"`
}

// DatabaseConfig holds the sqlite store location.
type DatabaseConfig struct {
	DataDir      string `yaml:"data_dir" json:"data_dir" env:"KINETRA_DATA_DIR" default:"./data"`
	DatabasePath string `yaml:"database_path" json:"database_path" env:"KINETRA_DATABASE_PATH"`
}

// PlaybackConfig holds player behavior settings.
type PlaybackConfig struct {
	ServerURL               string `yaml:"server_url" json:"server_url" env:"KINETRA_SERVER_URL" default:"http://localhost:8096"`
	PreferOverlaySubtitles  bool   `yaml:"prefer_overlay_subtitles" json:"prefer_overlay_subtitles" env:"KINETRA_OVERLAY_SUBTITLES" default:"false"`
	DisableVideoSizeChecks  bool   `yaml:"disable_video_size_checks" json:"disable_video_size_checks" env:"KINETRA_DISABLE_SIZE_CHECKS" default:"false"`
	PreferredAudioLanguages []string `yaml:"preferred_audio_languages" json:"preferred_audio_languages" env:"KINETRA_AUDIO_LANGUAGES"`
}

// SyncPlayConfig holds group playback settings.
type SyncPlayConfig struct {
	Enabled        bool   `yaml:"enabled" json:"enabled" env:"KINETRA_SYNCPLAY_ENABLED" default:"true"`
	CoordinatorURL string `yaml:"coordinator_url" json:"coordinator_url" env:"KINETRA_SYNCPLAY_URL"`
}

// WatchConfig holds still-watching monitor settings.
type WatchConfig struct {
	MaxEpisodes   int           `yaml:"max_episodes" json:"max_episodes" env:"KINETRA_WATCH_MAX_EPISODES" default:"3"`
	MaxWatchTime  time.Duration `yaml:"max_watch_time" json:"max_watch_time" env:"KINETRA_WATCH_MAX_TIME" default:"4h"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level        string `yaml:"level" json:"level" env:"KINETRA_LOG_LEVEL" default:"info"`
	Format       string `yaml:"format" json:"format" env:"KINETRA_LOG_FORMAT" default:"text"`
	EnableColors bool   `yaml:"enable_colors" json:"enable_colors" env:"KINETRA_LOG_COLORS" default:"true"`
}

// Watcher is called when configuration changes.
type Watcher func(oldConfig, newConfig *Config)

// Manager manages application configuration with hot-reload support.
type Manager struct {
	config     *Config
	configPath string
	watchers   []Watcher
	mu         sync.RWMutex
}

// NewManager creates a manager holding the default configuration.
func NewManager() *Manager {
	return &Manager{config: Default()}
}

// Default returns the default application configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			EnableCORS:   true,
		},
		Database: DatabaseConfig{
			DataDir: "./data",
		},
		Playback: PlaybackConfig{
			ServerURL: "http://localhost:8096",
		},
		SyncPlay: SyncPlayConfig{
			Enabled: true,
		},
		Watch: WatchConfig{
			MaxEpisodes:  3,
			MaxWatchTime: 4 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "text",
			EnableColors: true,
		},
	}
}

// Load builds the effective configuration: defaults, then the file at
// configPath when one exists, then environment variables. Watchers are
// notified when the result differs from the previous configuration.
func (m *Manager) Load(configPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldConfig := *m.config
	m.configPath = configPath

	newConfig := Default()

	if configPath != "" && fileExists(configPath) {
		if err := loadFromFile(configPath, newConfig); err != nil {
			return fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(newConfig).Elem()); err != nil {
		return fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := validate(newConfig); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	applyDerived(newConfig)
	m.config = newConfig

	for _, watcher := range m.watchers {
		go watcher(&oldConfig, newConfig)
	}
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	configCopy := *m.config
	return &configCopy
}

// AddWatcher adds a configuration change watcher.
func (m *Manager) AddWatcher(watcher Watcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, watcher)
}

// Path returns the file the configuration was loaded from, empty when none.
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configPath
}

// Save writes the current configuration back to its file.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.configPath == "" {
		return fmt.Errorf("no config path set")
	}
	return saveToFile(m.configPath, m.config)
}

func loadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	case ".json":
		return json.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
}

func saveToFile(path string, config *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var data []byte
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	case ".json":
		data, err = json.MarshalIndent(config, "", "  ")
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func loadStructFromEnv(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}
		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s: %w", fieldType.Name, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(duration))
		} else {
			intVal, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(intVal)
		}
	case reflect.Float32, reflect.Float64:
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatVal)
	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolVal)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			values := strings.Split(value, ",")
			for i, v := range values {
				values[i] = strings.TrimSpace(v)
			}
			field.Set(reflect.ValueOf(values))
		}
	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}
	return nil
}

func validate(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Watch.MaxEpisodes < 0 {
		return fmt.Errorf("invalid max episodes: %d", config.Watch.MaxEpisodes)
	}
	switch config.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}
	return nil
}

func applyDerived(config *Config) {
	if config.Database.DatabasePath == "" {
		config.Database.DatabasePath = filepath.Join(config.Database.DataDir, "kinetra.db")
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
