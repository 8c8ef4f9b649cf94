package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sigreer/disklayer/internal/failure"
	"github.com/sigreer/disklayer/internal/journal"
	"github.com/sigreer/disklayer/internal/settle"
)

type Config struct {
	// Host selects <layouts_dir>/<host>.in.json; defaults to the hostname
	Host       string `yaml:"host,omitempty"`
	LayoutsDir string `yaml:"layouts_dir"`
	// MountRoot is where the target system's root is mounted
	MountRoot string `yaml:"mount_root"`
	// KeyFile is enrolled into new LUKS containers and installed as a secret
	KeyFile     string `yaml:"key_file"`
	KeyFilename string `yaml:"key_filename"`
	// SecretsDir is relative to the target root
	SecretsDir string        `yaml:"secrets_dir"`
	Database   string        `yaml:"database"`
	Settle     settle.Policy `yaml:"settle"`
	Log        Log           `yaml:"log"`
	Installer  Installer     `yaml:"installer"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Installer struct {
	// Command is run with the target root as its last argument
	Command []string `yaml:"command,omitempty"`
}

// defaultConfig provides baseline settings
var defaultConfig = Config{
	LayoutsDir:  "layouts",
	MountRoot:   "/mnt/root",
	KeyFile:     "/etc/disklayer/keyfile",
	KeyFilename: "keyfile",
	SecretsDir:  "etc/secrets/disks",
	Database:    journal.DefaultPath,
	Settle:      settle.Default(),
	Log: Log{
		Level:  "info",
		Format: "text",
	},
}

// Load reads the config at path, or the first default location that
// exists. Missing settings take their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		// Try default locations
		candidates := []string{
			"/etc/disklayer/config.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/disklayer/config.yaml"),
			"config.yaml",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, failure.Path(path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, failure.New(failure.Invalid, path, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		if name, err := os.Hostname(); err == nil {
			c.Host = name
		}
	}
	if c.LayoutsDir == "" {
		c.LayoutsDir = defaultConfig.LayoutsDir
	}
	if c.MountRoot == "" {
		c.MountRoot = defaultConfig.MountRoot
	}
	if c.KeyFile == "" {
		c.KeyFile = defaultConfig.KeyFile
	}
	if c.KeyFilename == "" {
		c.KeyFilename = defaultConfig.KeyFilename
	}
	if c.SecretsDir == "" {
		c.SecretsDir = defaultConfig.SecretsDir
	}
	if c.Database == "" {
		c.Database = defaultConfig.Database
	}
	if c.Settle.Timeout == 0 {
		c.Settle.Timeout = defaultConfig.Settle.Timeout
	}
	if c.Settle.InitialInterval == 0 {
		c.Settle.InitialInterval = defaultConfig.Settle.InitialInterval
	}
	if c.Settle.MaxInterval == 0 {
		c.Settle.MaxInterval = defaultConfig.Settle.MaxInterval
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultConfig.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultConfig.Log.Format
	}
}

// Validate checks the values that cannot be defaulted
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return failure.InvalidValue("log.level", err.Error())
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return failure.InvalidValue("log.format", fmt.Sprintf("unknown format %q, want text or json", c.Log.Format))
	}
	if filepath.IsAbs(c.SecretsDir) {
		return failure.InvalidValue("secrets_dir", "must be relative to the target root")
	}
	if c.Settle.Timeout < 0 || c.Settle.InitialInterval < 0 || c.Settle.MaxInterval < 0 {
		return failure.InvalidValue("settle", "durations must not be negative")
	}
	return nil
}

// SecretsPath is where the key file is installed below root
func (c *Config) SecretsPath(root string) string {
	return filepath.Join(root, c.SecretsDir, c.KeyFilename)
}
