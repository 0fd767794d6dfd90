package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// Notifier kinds.
const (
	NotifierLog  = "log"
	NotifierSMTP = "smtp"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Journal  JournalConfig  `koanf:"journal"`
	Notifier NotifierConfig `koanf:"notifier"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

type JournalConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

type NotifierConfig struct {
	Kind string     `koanf:"kind"`
	SMTP SMTPConfig `koanf:"smtp"`
}

type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// Load builds the configuration from defaults, then the optional YAML file
// at configPath, then REMINDD_* environment variables. Later layers win.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	// REMINDD_NOTIFIER_SMTP_HOST -> notifier.smtp.host
	if err := k.Load(env.Provider("REMINDD_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "REMINDD_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal path is required when the journal is enabled")
	}

	switch c.Notifier.Kind {
	case NotifierLog:
	case NotifierSMTP:
		if c.Notifier.SMTP.Host == "" {
			return fmt.Errorf("smtp host is required for the smtp notifier")
		}
		if c.Notifier.SMTP.From == "" {
			return fmt.Errorf("smtp from address is required for the smtp notifier")
		}
		if c.Notifier.SMTP.Port <= 0 || c.Notifier.SMTP.Port > 65535 {
			return fmt.Errorf("smtp port must be between 1 and 65535, got %d", c.Notifier.SMTP.Port)
		}
	default:
		return fmt.Errorf("unknown notifier kind: %s (supported: %s, %s)",
			c.Notifier.Kind, NotifierLog, NotifierSMTP)
	}

	return nil
}
