package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tv-bridge/internal/domain"
)

type Config struct {
	Devices DevicesConfig `yaml:"devices"`
	Hue     HueConfig     `yaml:"hue"`
	IR      IRConfig      `yaml:"ir"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Log     LogConfig     `yaml:"log"`
}

// DevicesConfig holds the names the assistant shows for each virtual device.
type DevicesConfig struct {
	TV     string `yaml:"tv"`
	Source string `yaml:"source"`
	Sound  string `yaml:"sound"`
}

type HueConfig struct {
	Addr         string `yaml:"addr"`
	AdvertiseIP  string `yaml:"advertise_ip"`
	Serial       string `yaml:"serial"`
	Username     string `yaml:"username"`
	PollInterval string `yaml:"poll_interval"`
	QueueSize    int    `yaml:"queue_size"`
	RateLimit    int    `yaml:"rate_limit"`
	RateWindow   string `yaml:"rate_window"`
	SSDP         *bool  `yaml:"ssdp"`
}

type IRConfig struct {
	Backend    string            `yaml:"backend"`
	Socket     string            `yaml:"socket"`
	Address    string            `yaml:"address"`
	Remote     string            `yaml:"remote"`
	PressDelay string            `yaml:"press_delay"`
	Verify     bool              `yaml:"verify"`
	Codes      map[string]uint16 `yaml:"codes"`
	Buttons    map[string]string `yaml:"buttons"`
}

type MQTTConfig struct {
	Mode        string `yaml:"mode"`
	Addr        string `yaml:"addr"`
	URL         string `yaml:"url"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a YAML document after expanding ${VAR} references.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (c *Config) setDefaults() {
	defaults := domain.DefaultDeviceNames()
	if c.Devices.TV == "" {
		c.Devices.TV = defaults.TV
	}
	if c.Devices.Source == "" {
		c.Devices.Source = defaults.Source
	}
	if c.Devices.Sound == "" {
		c.Devices.Sound = defaults.Sound
	}
	if c.Hue.Addr == "" {
		c.Hue.Addr = ":80"
	}
	if c.Hue.Username == "" {
		c.Hue.Username = "tvbridge"
	}
	if c.Hue.PollInterval == "" {
		c.Hue.PollInterval = "50ms"
	}
	if c.Hue.QueueSize == 0 {
		c.Hue.QueueSize = 16
	}
	if c.Hue.RateLimit == 0 {
		c.Hue.RateLimit = 60
	}
	if c.Hue.RateWindow == "" {
		c.Hue.RateWindow = "1m"
	}
	if c.Hue.SSDP == nil {
		enabled := true
		c.Hue.SSDP = &enabled
	}
	if c.IR.Backend == "" {
		c.IR.Backend = "lirc"
	}
	if c.IR.Socket == "" {
		c.IR.Socket = "/run/lirc/lircd"
	}
	if c.IR.Remote == "" {
		c.IR.Remote = "philips_tv"
	}
	if c.IR.PressDelay == "" {
		c.IR.PressDelay = "150ms"
	}
	if c.MQTT.Mode == "" {
		c.MQTT.Mode = "off"
	}
	if c.MQTT.Addr == "" {
		c.MQTT.Addr = ":1883"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "tv-bridge"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "tv-bridge"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	switch c.IR.Backend {
	case "lirc", "log":
	default:
		return fmt.Errorf("unknown ir backend %q", c.IR.Backend)
	}

	switch c.MQTT.Mode {
	case "off", "embedded":
	case "external":
		if c.MQTT.URL == "" {
			return fmt.Errorf("mqtt mode external needs mqtt.url")
		}
	default:
		return fmt.Errorf("unknown mqtt mode %q", c.MQTT.Mode)
	}

	names := c.DeviceNames()
	seen := make(map[string]bool)
	for _, name := range names.All() {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate device name %q", name)
		}
		seen[name] = true
	}

	for fn := range c.IR.Codes {
		if !domain.IsFunction(fn) {
			return fmt.Errorf("unknown ir function %q in codes", fn)
		}
	}
	for fn := range c.IR.Buttons {
		if !domain.IsFunction(fn) {
			return fmt.Errorf("unknown ir function %q in buttons", fn)
		}
	}

	return nil
}

func (c *Config) DeviceNames() domain.DeviceNames {
	return domain.DeviceNames{
		TV:     c.Devices.TV,
		Source: c.Devices.Source,
		Sound:  c.Devices.Sound,
	}
}

// CodeTable returns the default IR codes with any configured overrides.
func (c *Config) CodeTable() domain.CodeTable {
	codes := domain.DefaultCodes()
	for fn, value := range c.IR.Codes {
		codes[domain.Function(fn)] = value
	}
	return codes
}

// Buttons merges configured lircd button names over the given defaults.
func (c *Config) Buttons(defaults map[domain.Function]string) map[domain.Function]string {
	buttons := make(map[domain.Function]string, len(defaults))
	for fn, name := range defaults {
		buttons[fn] = name
	}
	for fn, name := range c.IR.Buttons {
		buttons[domain.Function(fn)] = name
	}
	return buttons
}
