// Package config provides configuration management for the gesture server.
package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration. It is read-mostly: the pipeline
// re-reads tunables (smoothing, prediction) per command, so live updates
// through the Manager take effect between commands.
type Config struct {
	Version     string            `yaml:"version" json:"version"`
	Network     NetworkConfig     `yaml:"network" json:"network"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Security    SecurityConfig    `yaml:"security" json:"security"`
}

// NetworkConfig holds ports and socket tuning.
type NetworkConfig struct {
	// Host is the bind address for all listeners
	Host string `yaml:"host" json:"host"`

	// WebSocketPort serves the persistent bidirectional message transport
	WebSocketPort int `yaml:"websocket_port" json:"websocket_port"`

	// UDPPort serves the datagram transport
	UDPPort int `yaml:"udp_port" json:"udp_port"`

	// TCPPort serves the streaming transport
	TCPPort int `yaml:"tcp_port" json:"tcp_port"`

	// DashboardPort serves the status/config REST API
	DashboardPort int `yaml:"dashboard_port" json:"dashboard_port"`

	// MaxConnections caps concurrent stream/message connections
	MaxConnections int `yaml:"max_connections" json:"max_connections"`

	// BufferSize bounds datagram reads, stream frames and WS messages
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`

	// HeartbeatInterval is the application heartbeat period in seconds
	HeartbeatInterval float64 `yaml:"heartbeat_interval" json:"heartbeat_interval"`
}

// PerformanceConfig holds pipeline tuning.
type PerformanceConfig struct {
	// ThreadPoolSize bounds concurrent blocking injection calls
	ThreadPoolSize int `yaml:"thread_pool_size" json:"thread_pool_size"`

	// QueueCapacity bounds the command queue (overflow is dropped)
	QueueCapacity int `yaml:"queue_capacity" json:"queue_capacity"`

	// EnablePrediction turns trajectory prediction on for move commands
	EnablePrediction bool `yaml:"enable_prediction" json:"enable_prediction"`

	// GestureSmoothing is the exponential filter factor in [0,1);
	// 0 disables smoothing
	GestureSmoothing float64 `yaml:"gesture_smoothing" json:"gesture_smoothing"`

	// PerformanceLogging enables the periodic stats log line
	PerformanceLogging bool `yaml:"performance_logging" json:"performance_logging"`

	// CommandTimeout is the nominal per-command latency target in seconds
	CommandTimeout float64 `yaml:"command_timeout" json:"command_timeout"`
}

// SecurityConfig holds the optional shared secret and TLS settings.
type SecurityConfig struct {
	// SecretToken, when set, is required as a bearer token on the REST API
	// and at WebSocket connection time
	SecretToken string `yaml:"secret_token" json:"secret_token"`

	TLS TLSConfig `yaml:"tls" json:"tls"`
}

// TLSConfig enables TLS on the WebSocket and dashboard listeners.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	CertPath string `yaml:"cert_path" json:"cert_path"`
	KeyPath  string `yaml:"key_path" json:"key_path"`
}

// Default returns a Config with the stock defaults.
func Default() Config {
	return Config{
		Version: "1.0.0",
		Network: NetworkConfig{
			Host:              "0.0.0.0",
			WebSocketPort:     8081,
			UDPPort:           9090,
			TCPPort:           7070,
			DashboardPort:     8000,
			MaxConnections:    10,
			BufferSize:        8192,
			HeartbeatInterval: 1.0,
		},
		Performance: PerformanceConfig{
			ThreadPoolSize:     4,
			QueueCapacity:      100,
			EnablePrediction:   true,
			GestureSmoothing:   0.7,
			PerformanceLogging: true,
			CommandTimeout:     0.001,
		},
		Security: SecurityConfig{
			TLS: TLSConfig{
				CertPath: "certs/cert.pem",
				KeyPath:  "certs/key.pem",
			},
		},
	}
}

// Validate performs basic sanity checks on the loaded configuration.
func (c *Config) Validate() error {
	for _, p := range []struct {
		name string
		port int
	}{
		{"websocket_port", c.Network.WebSocketPort},
		{"udp_port", c.Network.UDPPort},
		{"tcp_port", c.Network.TCPPort},
		{"dashboard_port", c.Network.DashboardPort},
	} {
		if p.port <= 0 || p.port > 65535 {
			return fmt.Errorf("invalid %s: %d", p.name, p.port)
		}
	}
	if c.Network.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive, got %d", c.Network.BufferSize)
	}
	if c.Performance.QueueCapacity <= 0 {
		return fmt.Errorf("queue_capacity must be positive, got %d", c.Performance.QueueCapacity)
	}
	if s := c.Performance.GestureSmoothing; s < 0 || s >= 1 {
		return fmt.Errorf("gesture_smoothing must be in [0,1), got %v", s)
	}
	if c.Performance.ThreadPoolSize <= 0 {
		return fmt.Errorf("thread_pool_size must be positive, got %d", c.Performance.ThreadPoolSize)
	}
	return nil
}

// Manager handles loading, saving and live updates of the configuration.
type Manager struct {
	mu        sync.Mutex
	path      string
	config    Config
	onChanged func()
}

// NewManager creates a manager bound to the given YAML file path.
func NewManager(path string) *Manager {
	return &Manager{
		path:   path,
		config: Default(),
	}
}

// Load reads the configuration file, layering it over the defaults. A missing
// file is not an error: defaults apply.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config from YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	m.config = cfg
	if m.onChanged != nil {
		m.onChanged()
	}
	return nil
}

// Save persists the current configuration back to the YAML file.
func (m *Manager) Save() error {
	m.mu.Lock()
	cfg := m.config
	path := m.path
	m.mu.Unlock()

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to '%s': %w", path, err)
	}
	return nil
}

// Get returns a snapshot of the current configuration.
func (m *Manager) Get() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Update applies fn to the configuration under the lock and rejects the
// change if the result fails validation.
func (m *Manager) Update(fn func(*Config)) error {
	m.mu.Lock()
	cfg := m.config
	fn(&cfg)
	if err := cfg.Validate(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.config = cfg
	cb := m.onChanged
	m.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

// RegisterChangeCallback registers a function invoked after config changes.
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}
