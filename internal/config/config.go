// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v2"

	"github.com/sevir/runnerhost/pkg/models"
)

const appDirName = ".oriphim"

// Config holds the application configuration.
type Config struct {
	Server ServerConfig `json:"server" yaml:"server" toml:"server"`
	Worker WorkerConfig `json:"worker" yaml:"worker" toml:"worker"`
	Host   HostConfig   `json:"host" yaml:"host" toml:"host"`
}

// ServerConfig holds HTTP control API configuration.
type ServerConfig struct {
	Host string `json:"host" yaml:"host" toml:"host"`
	Port int    `json:"port" yaml:"port" toml:"port"`
}

// WorkerConfig describes how the worker process is launched.
type WorkerConfig struct {
	Command string   `json:"command" yaml:"command" toml:"command"`
	Args    []string `json:"args" yaml:"args" toml:"args"`
	WorkDir string   `json:"work_dir" yaml:"work_dir" toml:"work_dir"`
	Env     []string `json:"env,omitempty" yaml:"env,omitempty" toml:"env,omitempty"`
	LogFile string   `json:"log_file" yaml:"log_file" toml:"log_file"`
}

// HostConfig holds lifecycle settings of the host application.
type HostConfig struct {
	LogsDir        string          `json:"logs_dir" yaml:"logs_dir" toml:"logs_dir"`
	AutoStart      bool            `json:"auto_start" yaml:"auto_start" toml:"auto_start"`
	AutoStartDelay models.Duration `json:"auto_start_delay" yaml:"auto_start_delay" toml:"auto_start_delay"`
	JournalSize    int             `json:"journal_size" yaml:"journal_size" toml:"journal_size"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	logsDir := filepath.Join(home, appDirName, "logs")

	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8766,
		},
		Worker: WorkerConfig{
			Command: "python",
			Args:    []string{"main.py"},
			WorkDir: "src",
			LogFile: filepath.Join(logsDir, "worker.log"),
		},
		Host: HostConfig{
			LogsDir:        logsDir,
			AutoStart:      true,
			AutoStartDelay: models.Duration(2 * time.Second),
			JournalSize:    200,
		},
	}
}

// Load loads configuration from a file (supports JSON, YAML and TOML).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	baseDir := ""

	if path == "" {
		home, _ := os.UserHomeDir()
		found := ""
		for _, name := range []string{"runner.yaml", "runner.toml", "runner.json"} {
			candidate := filepath.Join(home, appDirName, name)
			if _, err := os.Stat(candidate); err == nil {
				found = candidate
				break
			}
		}
		if found == "" {
			// No config file found, return defaults
			return cfg, nil
		}
		path = found
	}
	baseDir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	switch formatOf(path) {
	case "yaml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case "toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	}

	// LogsDir/LogFile resolve against the config file directory. The worker
	// WorkDir is kept relative: it is interpreted by the launcher against the
	// host's own working directory.
	cfg.Host.LogsDir = resolvePath(cfg.Host.LogsDir, baseDir)
	cfg.Worker.LogFile = resolvePath(cfg.Worker.LogFile, baseDir)
	cfg.Worker.WorkDir = expandHome(cfg.Worker.WorkDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a file, using the extension to pick the format.
func (c *Config) Save(path string) error {
	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, appDirName, "runner.yaml")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	switch formatOf(path) {
	case "yaml":
		data, err = yaml.Marshal(c)
	case "toml":
		data, err = toml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks fields that would make the host unusable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Worker.Command) == "" {
		return fmt.Errorf("invalid config: worker.command is empty")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port %d out of range", c.Server.Port)
	}
	if c.Host.AutoStartDelay < 0 {
		return fmt.Errorf("invalid config: host.auto_start_delay must not be negative")
	}
	return nil
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return "json"
	}
}

// expandHome expands ~ to home directory in paths.
func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return path
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	// Support "~/..." (and Windows separators just in case)
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~\\") {
		home, _ := os.UserHomeDir()
		rest := path[2:]
		return filepath.Join(home, rest)
	}
	return path
}

// resolvePath expands ~ and resolves relative paths against baseDir.
// If baseDir is empty, relative paths are returned unchanged.
func resolvePath(value, baseDir string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	p := expandHome(value)
	if filepath.IsAbs(p) {
		return p
	}
	if baseDir == "" {
		return p
	}
	return filepath.Clean(filepath.Join(baseDir, p))
}
