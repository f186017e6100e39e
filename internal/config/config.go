package config

import (
	"flag"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Device    string          `yaml:"device"`
	Backend   BackendConfig   `yaml:"backend"`
	Upload    UploadConfig    `yaml:"upload"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Map       MapConfig       `yaml:"map"`
	Logging   LoggingConfig   `yaml:"logging"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Store     StoreConfig     `yaml:"store"`
}

type BackendConfig struct {
	URL               string        `yaml:"url"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

type UploadConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type TelemetryConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type MapConfig struct {
	ViewportWidth  int `yaml:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height"`
	HistoryLimit   int `yaml:"history_limit"`
}

type LoggingConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	Verbose    bool   `yaml:"verbose"`
}

type MQTTConfig struct {
	Broker         string `yaml:"broker"`
	ClientID       string `yaml:"client_id"`
	PrivateKeyPath string `yaml:"private_key"`
	Algorithm      string `yaml:"algorithm"`
	Audience       string `yaml:"audience"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

func Default() Config {
	return Config{
		Device: "groundcontrol",
		Backend: BackendConfig{
			URL:               "ws://127.0.0.1:4237/socket",
			ReconnectInterval: 2 * time.Second,
		},
		Upload:    UploadConfig{Timeout: 30 * time.Second},
		Telemetry: TelemetryConfig{Interval: 100 * time.Millisecond},
		Map: MapConfig{
			ViewportWidth:  1280,
			ViewportHeight: 720,
			HistoryLimit:   50,
		},
		Logging: LoggingConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		MQTT: MQTTConfig{Algorithm: "RS256"},
		Store: StoreConfig{
			Path: "groundcontrol.db",
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.WithMessage(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.WithMessagef(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Backend.URL == "" {
		return errors.New("backend.url is required")
	}
	if c.Upload.Timeout < 0 {
		return errors.New("upload.timeout must not be negative")
	}
	if c.Map.ViewportWidth < 0 || c.Map.ViewportHeight < 0 {
		return errors.New("map viewport must not be negative")
	}
	switch c.MQTT.Algorithm {
	case "", "RS256", "ES256":
	default:
		return errors.Errorf("mqtt.algorithm %s is not supported", c.MQTT.Algorithm)
	}
	return nil
}

// Parse handles the command line: -config selects the file, the other flags
// override values read from it
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("groundcontrol", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	deviceID := fs.String("device_id", "", "The provisioned device id")
	backend := fs.String("backend", "", "Backend websocket URL")
	mqttBroker := fs.String("mqtt_broker", "", "MQTT broker protocol, address and port")
	verbose := fs.Bool("verbose", false, "Log high-rate telemetry messages too")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg, err := Load(*configPath)
	if err != nil {
		return cfg, err
	}
	if *deviceID != "" {
		cfg.Device = *deviceID
	}
	if *backend != "" {
		cfg.Backend.URL = *backend
	}
	if *mqttBroker != "" {
		cfg.MQTT.Broker = *mqttBroker
	}
	if *verbose {
		cfg.Logging.Verbose = true
	}
	return cfg, cfg.Validate()
}
