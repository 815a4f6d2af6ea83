package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/gbaagent/mgba/mgbaprotocol"
)

// defaultConfigFile is read from the working directory when --config is not
// given. Its absence is not an error.
const defaultConfigFile = "mgba.yaml"

// Config is the on-disk configuration of the CLI.
//
//	emulator:
//	  host: localhost
//	  port: 8888
//	  dial_timeout: 5s
//	  timeout: 0s
//	  policy: per-operation
//	input:
//	  hold: 100ms
//	  gap: 50ms
//	screenshots:
//	  dir: screenshots
//	log:
//	  level: info
type Config struct {
	Emulator    EmulatorConfig   `yaml:"emulator"`
	Input       InputConfig      `yaml:"input"`
	Screenshots ScreenshotConfig `yaml:"screenshots"`
	Log         LogConfig        `yaml:"log"`
}

// EmulatorConfig locates the control script and sets connection behavior.
type EmulatorConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// Timeout bounds each request/response exchange. Zero waits forever.
	Timeout time.Duration `yaml:"timeout"`

	// Policy is "per-operation" or "session".
	Policy string `yaml:"policy"`
}

// InputConfig holds key press timing.
type InputConfig struct {
	Hold time.Duration `yaml:"hold"`
	Gap  time.Duration `yaml:"gap"`
}

// ScreenshotConfig holds where captures are written.
type ScreenshotConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Emulator: EmulatorConfig{
			Host:        mgbaprotocol.DefaultHost,
			Port:        mgbaprotocol.DefaultPort,
			DialTimeout: mgbaprotocol.DefaultDialTimeout,
			Policy:      mgbaprotocol.PerOperation.String(),
		},
		Input: InputConfig{
			Hold: 100 * time.Millisecond,
			Gap:  50 * time.Millisecond,
		},
		Screenshots: ScreenshotConfig{
			Dir: "screenshots",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads the configuration at path. When explicit is false a
// missing file yields the defaults; when the user named the file it must
// exist.
func LoadConfig(path string, explicit bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig parses YAML on top of the defaults. Unknown keys are rejected
// so typos do not silently fall back to defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the client cannot use.
func (c *Config) Validate() error {
	if c.Emulator.Host == "" {
		return errors.New("emulator.host must not be empty")
	}
	if c.Emulator.Port < 1 || c.Emulator.Port > 65535 {
		return fmt.Errorf("emulator.port %d out of range 1-65535", c.Emulator.Port)
	}
	if c.Emulator.DialTimeout < 0 {
		return errors.New("emulator.dial_timeout must not be negative")
	}
	if c.Emulator.Timeout < 0 {
		return errors.New("emulator.timeout must not be negative")
	}
	if _, err := mgbaprotocol.ParseConnectionPolicy(c.Emulator.Policy); err != nil {
		return fmt.Errorf("emulator.policy: %w", err)
	}
	if c.Input.Hold < 0 || c.Input.Gap < 0 {
		return errors.New("input.hold and input.gap must not be negative")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ApplyFlags overrides configuration values with flags the user set
// explicitly. Flags that are not defined on fs are ignored.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	changed := func(name string) bool {
		f := fs.Lookup(name)
		return f != nil && f.Changed
	}

	if changed("host") {
		c.Emulator.Host, err = fs.GetString("host")
		if err != nil {
			return err
		}
	}
	if changed("port") {
		c.Emulator.Port, err = fs.GetInt("port")
		if err != nil {
			return err
		}
	}
	if changed("timeout") {
		c.Emulator.Timeout, err = fs.GetDuration("timeout")
		if err != nil {
			return err
		}
	}
	if changed("dial-timeout") {
		c.Emulator.DialTimeout, err = fs.GetDuration("dial-timeout")
		if err != nil {
			return err
		}
	}
	if changed("policy") {
		c.Emulator.Policy, err = fs.GetString("policy")
		if err != nil {
			return err
		}
	}
	if changed("hold") {
		c.Input.Hold, err = fs.GetDuration("hold")
		if err != nil {
			return err
		}
	}
	if changed("gap") {
		c.Input.Gap, err = fs.GetDuration("gap")
		if err != nil {
			return err
		}
	}
	if changed("dir") {
		c.Screenshots.Dir, err = fs.GetString("dir")
		if err != nil {
			return err
		}
	}
	if changed("log-level") {
		c.Log.Level, err = fs.GetString("log-level")
		if err != nil {
			return err
		}
	}
	if changed("verbose") {
		if verbose, _ := fs.GetBool("verbose"); verbose {
			c.Log.Level = "debug"
		}
	}
	return nil
}

// Address returns the dialable address of the control script.
func (c *Config) Address() string {
	return mgbaprotocol.Address(c.Emulator.Host, c.Emulator.Port)
}

// ClientOptions converts the emulator settings into client options.
func (c *Config) ClientOptions(logger *slog.Logger) []mgbaprotocol.Option {
	return []mgbaprotocol.Option{
		mgbaprotocol.WithAddress(c.Emulator.Host, c.Emulator.Port),
		mgbaprotocol.WithDialTimeout(c.Emulator.DialTimeout),
		mgbaprotocol.WithTimeout(c.Emulator.Timeout),
		mgbaprotocol.WithLogger(logger),
	}
}

// NewController builds a controller from the configuration. The config must
// have passed Validate.
func (c *Config) NewController(logger *slog.Logger) (*mgbaprotocol.Controller, error) {
	policy, err := mgbaprotocol.ParseConnectionPolicy(c.Emulator.Policy)
	if err != nil {
		return nil, err
	}
	return mgbaprotocol.NewController(policy, c.ClientOptions(logger)...), nil
}
