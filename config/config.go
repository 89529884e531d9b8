package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"insurecast/ml"
)

// EnvConfigPath overrides the default config file location.
const EnvConfigPath = "INSURECAST_CONFIG"

// Config is the insurecast config file.
type Config struct {
	Http struct {
		Port            int           `yaml:"port"`
		Timeout         time.Duration `yaml:"timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Log     LogConfig `yaml:"log"`
	Display struct {
		Currency string `yaml:"currency"`
	} `yaml:"display"`
	DefaultDeployment string              `yaml:"default_deployment"`
	Deployments       []ml.DeploymentSpec `yaml:"deployments"`
}

// LogConfig selects the log level, encoding and optional rotated file.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load decodes the YAML file at path, applies defaults and validates.
// Relative model and manifest paths are resolved against the file's directory.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	config.applyDefaults()
	config.resolvePaths(filepath.Dir(path))
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &config, nil
}

// Path picks the config file: the explicit flag value, then the environment,
// then config.yaml in the working directory.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return "config.yaml"
}

func (c *Config) applyDefaults() {
	if c.Http.Port == 0 {
		c.Http.Port = 8080
	}
	if c.Http.Timeout == 0 {
		c.Http.Timeout = 30 * time.Second
	}
	if c.Http.ShutdownTimeout == 0 {
		c.Http.ShutdownTimeout = 5 * time.Second
	}
	if c.Http.MaxBodyBytes == 0 {
		c.Http.MaxBodyBytes = 64 << 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Display.Currency == "" {
		c.Display.Currency = "Rs"
	}
}

func (c *Config) resolvePaths(base string) {
	for i := range c.Deployments {
		d := &c.Deployments[i]
		if d.Model != "" && !filepath.IsAbs(d.Model) {
			d.Model = filepath.Join(base, d.Model)
		}
		if d.Manifest != "" && !filepath.IsAbs(d.Manifest) {
			d.Manifest = filepath.Join(base, d.Manifest)
		}
	}
}

// Validate checks the listener and every deployment entry.
func (c *Config) Validate() error {
	if c.Http.Port < 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if len(c.Deployments) == 0 {
		return errors.New("at least one deployment is required")
	}
	seen := make(map[string]bool, len(c.Deployments))
	for i, d := range c.Deployments {
		if d.Name == "" {
			return fmt.Errorf("deployments[%d]: name is required", i)
		}
		if seen[d.Name] {
			return fmt.Errorf("deployments[%d]: duplicate name %q", i, d.Name)
		}
		seen[d.Name] = true
		if d.Model == "" {
			return fmt.Errorf("deployment %s: model path is required", d.Name)
		}
		if _, err := ml.ParseScheme(d.Scheme); err != nil {
			return fmt.Errorf("deployment %s: scheme must be declared: %w", d.Name, err)
		}
	}
	if c.DefaultDeployment != "" && !seen[c.DefaultDeployment] {
		return fmt.Errorf("default_deployment %q is not configured", c.DefaultDeployment)
	}
	return nil
}
