package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config for config files. Nil fields were not set.
type FileConfig struct {
	Command         *string  `json:"command" yaml:"command" toml:"command"`
	Inline          *bool    `json:"inline" yaml:"inline" toml:"inline"`
	Detach          *bool    `json:"detach" yaml:"detach" toml:"detach"`
	ShutdownTimeout *string  `json:"shutdown_timeout" yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	OnNew           []string `json:"on_new" yaml:"on_new" toml:"on_new"`
	OnLost          []string `json:"on_lost" yaml:"on_lost" toml:"on_lost"`
	HookTimeout     *string  `json:"hook_timeout" yaml:"hook_timeout" toml:"hook_timeout"`
	API             *bool    `json:"api" yaml:"api" toml:"api"`
	Host            *string  `json:"host" yaml:"host" toml:"host"`
	Port            *int     `json:"port" yaml:"port" toml:"port"`
	LogLevel        *string  `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// LoadFile reads a config file, picking the format from its extension.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &fc)
	case ".json":
		err = json.Unmarshal(b, &fc)
	case ".toml":
		err = toml.Unmarshal(b, &fc)
	default:
		return fc, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// apply copies the values set in the file into cfg, skipping those whose
// flag was given explicitly.
func (fc FileConfig) apply(cfg *Config, changed func(flag string) bool) error {
	setString := func(flag string, src *string, dst *string) {
		if src != nil && !changed(flag) {
			*dst = *src
		}
	}
	setBool := func(flag string, src *bool, dst *bool) {
		if src != nil && !changed(flag) {
			*dst = *src
		}
	}
	setDuration := func(flag string, src *string, dst *time.Duration) error {
		if src == nil || changed(flag) {
			return nil
		}
		d, err := time.ParseDuration(*src)
		if err != nil {
			return fmt.Errorf("%s: %w", flag, err)
		}
		*dst = d
		return nil
	}

	setString("command", fc.Command, &cfg.Command)
	setBool("inline", fc.Inline, &cfg.Inline)
	setBool("detach", fc.Detach, &cfg.Detach)
	setBool("api", fc.API, &cfg.API)
	setString("host", fc.Host, &cfg.Host)
	setString("log-level", fc.LogLevel, &cfg.LogLevel)
	if fc.Port != nil && !changed("port") {
		cfg.Port = *fc.Port
	}
	if fc.OnNew != nil && !changed("on-new") {
		cfg.OnNew = fc.OnNew
	}
	if fc.OnLost != nil && !changed("on-lost") {
		cfg.OnLost = fc.OnLost
	}
	if err := setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}
	return setDuration("hook-timeout", fc.HookTimeout, &cfg.HookTimeout)
}
