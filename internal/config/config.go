package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/stoker/internal/logger"
	"github.com/loykin/stoker/internal/runtimes"
)

// FileConfig represents the top-level TOML structure of a stoker config file.
//
// Example:
//
//	output_root = "/var/cache/stoker"
//	addr = "127.0.0.1:0"
//	idle_timeout = "3h"
//	history_dsn = "sqlite:///var/cache/stoker/history.db"
//
//	[log]
//	level = "info"
//
//	[[runtimes]]
//	name = "jdk"
//	env_var = "STOKER_JAVA_HOME"
//	tool = "javac"
type FileConfig struct {
	OutputRoot  string          `toml:"output_root" mapstructure:"output_root"`
	Addr        string          `toml:"addr" mapstructure:"addr"`
	BasePath    string          `toml:"base_path" mapstructure:"base_path"`
	IdleTimeout time.Duration   `toml:"idle_timeout" mapstructure:"idle_timeout"`
	HistoryDSN  string          `toml:"history_dsn" mapstructure:"history_dsn"`
	Env         []string        `toml:"env" mapstructure:"env"`
	EnvFiles    []string        `toml:"env_files" mapstructure:"env_files"`
	UseOSEnv    bool            `toml:"use_os_env" mapstructure:"use_os_env"`
	Log         *LogConfig      `toml:"log" mapstructure:"log"`
	Runtimes    []RuntimeConfig `toml:"runtimes" mapstructure:"runtimes"`
}

type LogConfig struct {
	Level      string `toml:"level" mapstructure:"level"`
	Color      bool   `toml:"color" mapstructure:"color"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

// RuntimeConfig declares one runtime the worker should locate at startup.
type RuntimeConfig struct {
	Name   string `toml:"name" mapstructure:"name"`
	EnvVar string `toml:"env_var" mapstructure:"env_var"`
	Tool   string `toml:"tool" mapstructure:"tool"`
}

// Load parses a TOML config file and applies defaults.
func Load(path string) (*FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, err
	}
	fc.applyDefaults()
	if err := fc.validate(); err != nil {
		return nil, err
	}
	return &fc, nil
}

// Default returns the configuration used when no config file exists.
func Default() *FileConfig {
	fc := &FileConfig{}
	fc.applyDefaults()
	return fc
}

func (fc *FileConfig) applyDefaults() {
	if fc.Addr == "" {
		fc.Addr = "127.0.0.1:0"
	}
	if fc.IdleTimeout == 0 {
		fc.IdleTimeout = 3 * time.Hour
	}
}

func (fc *FileConfig) validate() error {
	for _, rc := range fc.Runtimes {
		if rc.Name == "" {
			return fmt.Errorf("runtime entry requires name")
		}
		if rc.EnvVar == "" && rc.Tool == "" {
			return fmt.Errorf("runtime %s requires env_var or tool", rc.Name)
		}
	}
	return nil
}

// LoggerConfig converts the TOML log section into a logger.Config.
func (fc *FileConfig) LoggerConfig() logger.Config {
	if fc.Log == nil {
		return logger.Config{}
	}
	return logger.Config{
		Level:      fc.Log.Level,
		Color:      fc.Log.Color,
		MaxSizeMB:  fc.Log.MaxSizeMB,
		MaxBackups: fc.Log.MaxBackups,
		MaxAgeDays: fc.Log.MaxAgeDays,
		Compress:   fc.Log.Compress,
	}
}

// Discoveries returns the configured runtime discoveries keyed by name.
func (fc *FileConfig) Discoveries() map[string]runtimes.Discovery {
	out := make(map[string]runtimes.Discovery, len(fc.Runtimes))
	for _, rc := range fc.Runtimes {
		out[rc.Name] = runtimes.Discovery{EnvVar: rc.EnvVar, Tool: rc.Tool}
	}
	return out
}

// WorkerEnv merges the environment handed to a spawned worker: optionally the
// OS env as base, then env_files contents in order, then the top-level env
// list overrides last.
func (fc *FileConfig) WorkerEnv() ([]string, error) {
	m := make(map[string]string)
	if fc.UseOSEnv {
		for _, kv := range os.Environ() {
			if i := strings.IndexByte(kv, '='); i >= 0 {
				m[kv[:i]] = kv[i+1:]
			}
		}
	}
	for _, p := range fc.EnvFiles {
		pairs, err := loadEnvFile(p)
		if err != nil {
			return nil, err
		}
		for k, v := range pairs {
			m[k] = v
		}
	}
	for _, kv := range fc.Env {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out, nil
}

// loadEnvFile parses a simple .env file with KEY=VALUE lines (no export, no quotes). Lines starting with # are ignored.
func loadEnvFile(path string) (map[string]string, error) {
	clean := filepath.Clean(path)
	b, err := os.ReadFile(clean)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string)
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexByte(line, '='); i >= 0 {
			k := strings.TrimSpace(line[:i])
			v := strings.TrimSpace(line[i+1:])
			m[k] = v
		}
	}
	return m, nil
}
