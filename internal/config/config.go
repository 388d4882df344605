// Package config loads the xui configuration file.
package config

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/xui/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvEncryptionKey overrides store.encryption_key when set.
const EnvEncryptionKey = "XUI_ENCRYPTION_KEY"

// Config is the root of the configuration file.
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Session   SessionConfig   `mapstructure:"session"`
	Transport TransportConfig `mapstructure:"transport"`
}

// StoreConfig selects the durable backend of the session slot.
type StoreConfig struct {
	Driver        string      `mapstructure:"driver"` // memory, file or redis
	Path          string      `mapstructure:"path"`
	Redis         RedisConfig `mapstructure:"redis"`
	EncryptionKey string      `mapstructure:"encryption_key"`
	FallbackKeys  []string    `mapstructure:"fallback_keys"`
}

// RedisConfig holds the connection settings shared by the store and pub/sub.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// SessionConfig holds the flat defaults surface.
//
//	session:
//	  fields:
//	    theme: light
//	    lastSeen: 2024-01-01T00:00:00Z
//	    localStorageKey: app-session
//	  dates: [lastSeen]
type SessionConfig struct {
	Fields map[string]any `mapstructure:"fields"`
	// Dates lists the fields whose default is a timestamp.
	Dates []string `mapstructure:"dates"`
}

// TransportConfig selects how collections are streamed.
type TransportConfig struct {
	Kind    string `mapstructure:"kind"` // redis, sse or ws
	URL     string `mapstructure:"url"`
	Listen  string `mapstructure:"listen"`
	IDField string `mapstructure:"id_field"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: "file",
			Path:   ".xui/storage",
			Redis:  RedisConfig{Addr: "localhost:6379"},
		},
		Session: SessionConfig{
			Fields: map[string]any{domain.ReservedKey: "xui-session"},
		},
		Transport: TransportConfig{
			Kind:    "sse",
			URL:     "http://localhost:8080",
			Listen:  ":8080",
			IDField: domain.DefaultIDField,
		},
	}
}

// Load reads path and overlays it on Default. An empty path uses Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML data on top of Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}

	// A session block replaces the default fields instead of merging into them.
	if s, ok := raw["session"].(map[string]any); ok {
		if _, ok := s["fields"]; ok {
			c.Session.Fields = nil
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result:           c,
		ErrorUnused:      true,
		WeaklyTypedInput: false,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

func (c *Config) applyEnv() {
	if key := os.Getenv(EnvEncryptionKey); key != "" {
		c.Store.EncryptionKey = key
	}
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("%w: unknown store driver %q", domain.ErrConfiguration, c.Store.Driver)
	}
	switch c.Transport.Kind {
	case "redis", "sse", "ws":
	default:
		return fmt.Errorf("%w: unknown transport kind %q", domain.ErrConfiguration, c.Transport.Kind)
	}
	if _, _, err := c.Store.Keys(); err != nil {
		return err
	}
	return nil
}

// Defaults builds the session defaults. Fields listed in Dates are
// converted to time.Time.
func (c *Config) Defaults() (domain.Defaults, error) {
	fields := make(map[string]any, len(c.Session.Fields))
	for k, v := range c.Session.Fields {
		fields[k] = v
	}
	for _, name := range c.Session.Dates {
		v, ok := fields[name]
		if !ok {
			return domain.Defaults{}, fmt.Errorf("%w: date field %q is not declared", domain.ErrConfiguration, name)
		}
		ts, err := toTime(v)
		if err != nil {
			return domain.Defaults{}, fmt.Errorf("%w: field %q: %w", domain.ErrConfiguration, name, err)
		}
		fields[name] = ts
	}
	return domain.ParseDefaults(fields)
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid date %q", t)
	default:
		return time.Time{}, fmt.Errorf("expected a date, got %T", v)
	}
}

// Keys decodes the encryption keys. A key is 32 bytes given as hex or
// standard base64. No active key means encryption is off.
func (s StoreConfig) Keys() (active []byte, fallbacks [][]byte, err error) {
	if s.EncryptionKey == "" {
		if len(s.FallbackKeys) > 0 {
			return nil, nil, fmt.Errorf("%w: fallback keys need an encryption key", domain.ErrConfiguration)
		}
		return nil, nil, nil
	}
	if active, err = decodeKey(s.EncryptionKey); err != nil {
		return nil, nil, fmt.Errorf("%w: encryption_key: %w", domain.ErrConfiguration, err)
	}
	for i, k := range s.FallbackKeys {
		fk, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: fallback_keys[%d]: %w", domain.ErrConfiguration, i, err)
		}
		fallbacks = append(fallbacks, fk)
	}
	return active, fallbacks, nil
}

var errKeySize = errors.New("key must be 32 bytes")

func decodeKey(s string) ([]byte, error) {
	if b, err := hex.DecodeString(s); err == nil {
		if len(b) != 32 {
			return nil, errKeySize
		}
		return b, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.New("key is neither hex nor base64")
	}
	if len(b) != 32 {
		return nil, errKeySize
	}
	return b, nil
}
