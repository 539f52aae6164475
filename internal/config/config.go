package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "config/config.yaml"

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"prod"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Radio     RadioConfig     `yaml:"radio"`
	Link      LinkConfig      `yaml:"link"`
	Forwarder ForwarderConfig `yaml:"forwarder"`
	Journal   JournalConfig   `yaml:"journal"`
	Health    HealthConfig    `yaml:"health"`
	Log       LogConfig       `yaml:"log"`
}

type GatewayConfig struct {
	// ID overrides the hardware address of Interface.
	ID        string `yaml:"id" env:"GATEWAY_ID"`
	Interface string `yaml:"interface" env:"GATEWAY_INTERFACE" env-default:"wlan0"`
}

type RadioConfig struct {
	Source string            `yaml:"source" env:"RADIO_SOURCE" env-default:"serial"`
	Serial SerialRadioConfig `yaml:"serial"`
	MQTT   MQTTRadioConfig   `yaml:"mqtt"`

	// Reconnect backoff for a radio source that dropped after startup.
	ReconnectInitialDelay time.Duration `yaml:"reconnect_initial_delay" env-default:"1s"`
	ReconnectMaxDelay     time.Duration `yaml:"reconnect_max_delay" env-default:"15s"`
}

type SerialRadioConfig struct {
	Port string `yaml:"port" env:"RADIO_SERIAL_PORT" env-default:"/dev/ttyUSB0"`
	Baud int    `yaml:"baud" env-default:"115200"`
}

type MQTTRadioConfig struct {
	Broker   string `yaml:"broker" env:"RADIO_MQTT_BROKER" env-default:"tcp://localhost:1883"`
	ClientID string `yaml:"client_id" env:"RADIO_MQTT_CLIENT_ID"`
	Username string `yaml:"username" env:"RADIO_MQTT_USERNAME"`
	Password string `yaml:"password" env:"RADIO_MQTT_PASSWORD"`
	Topic    string `yaml:"topic" env-default:"lora/uplink"`
	QoS      byte   `yaml:"qos" env-default:"0"`
}

type LinkConfig struct {
	Mode string `yaml:"mode" env:"LINK_MODE" env-default:"probe"`

	// ProbeAddress is dialed in probe mode; empty means the forwarder URL host.
	ProbeAddress string        `yaml:"probe_address" env:"LINK_PROBE_ADDRESS"`
	ProbeTimeout time.Duration `yaml:"probe_timeout" env-default:"2s"`
	Interface    string        `yaml:"interface" env:"LINK_INTERFACE" env-default:"wlan0"`
	Attempts     int           `yaml:"attempts" env-default:"20"`
	AttemptDelay time.Duration `yaml:"attempt_delay" env-default:"500ms"`
	PollInterval time.Duration `yaml:"poll_interval" env-default:"1s"`
}

type ForwarderConfig struct {
	URL     string        `yaml:"url" env:"FORWARDER_URL" env-default:"http://localhost:3000/api/sensor-data"`
	Token   string        `yaml:"token" env:"FORWARDER_TOKEN"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

type JournalConfig struct {
	Enabled      bool          `yaml:"enabled" env-default:"true"`
	Path         string        `yaml:"path" env-default:"/var/lib/loragw/journal.db"`
	MaxAge       time.Duration `yaml:"max_age" env-default:"24h"`
	// Window used by the health checker when judging recent failures.
	HealthWindow time.Duration `yaml:"health_window" env-default:"5m"`
}

type HealthConfig struct {
	Address string `yaml:"address" env-default:":8080"`
}

type LogConfig struct {
	Level  string `yaml:"level" env-default:"info"`
	Format string `yaml:"format" env-default:"json"`
}

func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}

	return cfg
}

// Load reads the YAML file when present and falls back to environment
// variables and defaults otherwise.
func Load(configPath string) (*Config, error) {
	explicit := configPath != ""
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
		explicit = configPath != ""
	}

	if configPath == "" {
		configPath = defaultConfigPath
	}

	var cfg Config
	if _, err := os.Stat(configPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from env: %w", err)
		}
	} else if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Radio.Source {
	case "serial":
		if c.Radio.Serial.Port == "" {
			return errors.New("radio.serial.port is required")
		}
		if c.Radio.Serial.Baud <= 0 {
			return fmt.Errorf("invalid radio.serial.baud: %d", c.Radio.Serial.Baud)
		}
	case "mqtt":
		if c.Radio.MQTT.Broker == "" {
			return errors.New("radio.mqtt.broker is required")
		}
		if c.Radio.MQTT.Topic == "" {
			return errors.New("radio.mqtt.topic is required")
		}
	default:
		return fmt.Errorf("unknown radio source: %q", c.Radio.Source)
	}

	switch c.Link.Mode {
	case "probe", "interface":
	default:
		return fmt.Errorf("unknown link mode: %q", c.Link.Mode)
	}

	if c.Link.Attempts <= 0 {
		return fmt.Errorf("invalid link.attempts: %d", c.Link.Attempts)
	}
	if c.Link.PollInterval <= 0 {
		return fmt.Errorf("invalid link.poll_interval: %s", c.Link.PollInterval)
	}
	if c.Forwarder.URL == "" {
		return errors.New("forwarder.url is required")
	}

	return nil
}
