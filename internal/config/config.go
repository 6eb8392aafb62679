package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bryanchriswhite/framerelay/internal/logger"
	"gopkg.in/yaml.v3"
)

// TransportConfig holds the output transport parameters
type TransportConfig struct {
	AudioOutEnabled    bool `json:"audio_out_enabled" yaml:"audio_out_enabled"`
	AudioOutSampleRate int  `json:"audio_out_sample_rate" yaml:"audio_out_sample_rate"`
	AudioOutChannels   int  `json:"audio_out_channels" yaml:"audio_out_channels"`
	CameraOutEnabled   bool `json:"camera_out_enabled" yaml:"camera_out_enabled"`
	CameraOutIsLive    bool `json:"camera_out_is_live" yaml:"camera_out_is_live"`
	CameraOutWidth     int  `json:"camera_out_width" yaml:"camera_out_width"`
	CameraOutHeight    int  `json:"camera_out_height" yaml:"camera_out_height"`
	CameraOutFramerate int  `json:"camera_out_framerate" yaml:"camera_out_framerate"`
	AllowInterruptions bool `json:"allow_interruptions" yaml:"allow_interruptions"`
}

// Config represents the application configuration
type Config struct {
	ServerPort int             `json:"server_port" yaml:"server_port"`
	LogLevel   string          `json:"log_level" yaml:"log_level"`
	Transport  TransportConfig `json:"transport" yaml:"transport"`
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager. If configFile is empty
// the default path under ~/.config/framerelay is used, creating the file
// with defaults when it does not exist yet.
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "framerelay")
	actualConfigPath := filepath.Join(configDir, "config.yaml")
	if configFile != "" {
		actualConfigPath = configFile
		configDir = filepath.Dir(configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Msg("Config loaded")

	return m, nil
}

// Defaults returns the default configuration: 16 kHz mono audio out and a
// non-live 1280x720 camera at 10 FPS.
func Defaults() *Config {
	return &Config{
		ServerPort: 8080,
		LogLevel:   "info",
		Transport: TransportConfig{
			AudioOutEnabled:    true,
			AudioOutSampleRate: 16000,
			AudioOutChannels:   1,
			CameraOutEnabled:   true,
			CameraOutIsLive:    false,
			CameraOutWidth:     1280,
			CameraOutHeight:    720,
			CameraOutFramerate: 10,
			AllowInterruptions: true,
		},
	}
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := yaml.Marshal(m.config)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.config
}

// Update applies fn to the configuration under the write lock
func (m *Manager) Update(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.config)
}

// GetConfigPath returns the path of the loaded config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// SetPort overrides the server port
func (m *Manager) SetPort(port int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.ServerPort = port
}

// SetLogLevel overrides the log level
func (m *Manager) SetLogLevel(level string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.LogLevel = level
}
