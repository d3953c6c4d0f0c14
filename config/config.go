// Package config loads pdk settings from pdk.yaml and the environment.
//
// Priority: environment > YAML > defaults. Relative file names in the
// configuration are resolved under the pdk home directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

const (
	dirName  = "pdk"
	FileName = "pdk.yaml"
)

// Config is the root configuration.
type Config struct {
	Spell SpellConfig `yaml:"spell"`
	Index IndexConfig `yaml:"index"`
	Log   LogConfig   `yaml:"log"`

	// HomeDir is the directory relative paths are resolved against.
	HomeDir string `yaml:"-"`
}

// SpellConfig holds the spell check service settings.
type SpellConfig struct {
	URI      string        `yaml:"uri"      env:"PDK_SPELL_URI"`
	Field    string        `yaml:"field"    env:"PDK_SPELL_FIELD"    env-default:"text1"`
	Interval time.Duration `yaml:"interval" env:"PDK_SPELL_INTERVAL" env-default:"5s"`
	Timeout  time.Duration `yaml:"timeout"  env:"PDK_SPELL_TIMEOUT"  env-default:"5s"`
	Proxy    string        `yaml:"proxy"    env:"PDK_SPELL_PROXY"`
	Cache    string        `yaml:"cache"    env:"PDK_SPELL_CACHE"    env-default:"spell.cache"`
	Report   string        `yaml:"report"   env:"PDK_SPELL_REPORT"   env-default:"spell.txt"`
}

// IndexConfig holds the coverage index settings.
type IndexConfig struct {
	File string `yaml:"file" env:"PDK_INDEX_FILE" env-default:"index.csv"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"PDK_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"PDK_LOG_FORMAT" env-default:"console"`
}

// Home returns the pdk home directory. An explicit flag value wins, then
// $PDK_HOME, then $XDG_DATA_HOME/pdk, then ~/.local/share/pdk.
func Home(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if h := os.Getenv("PDK_HOME"); h != "" {
		return h, nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dirName), nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(userHome, ".local", "share", dirName), nil
}

// Load reads the configuration for home. If path is empty, $PDK_CONFIG is
// used, falling back to <home>/pdk.yaml. A missing fallback file means
// environment and defaults only; a missing explicit file is an error.
func Load(home, path string) (*Config, error) {
	cfg := Config{HomeDir: home}

	if path == "" {
		path = os.Getenv("PDK_CONFIG")
	}
	explicitPath := path != ""
	if !explicitPath {
		path = filepath.Join(home, FileName)
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicitPath || !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks the loaded values. The service URI is only required by
// commands that contact it; see SpellConfig.Endpoint.
func (c *Config) Validate() error {
	var errs []error
	if c.Spell.Field == "" {
		errs = append(errs, errors.New("spell.field must not be empty"))
	}
	if c.Spell.Interval <= 0 {
		errs = append(errs, fmt.Errorf("spell.interval must be positive, got %s", c.Spell.Interval))
	}
	if c.Spell.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("spell.timeout must be positive, got %s", c.Spell.Timeout))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Endpoint returns the spell check service URI, or an error when it is not
// configured.
func (s SpellConfig) Endpoint() (string, error) {
	if s.URI == "" {
		return "", errors.New("spell.uri is not set (set it in pdk.yaml or PDK_SPELL_URI)")
	}
	return s.URI, nil
}

// CachePath returns the spell cache database location.
func (c *Config) CachePath() string { return c.resolve(c.Spell.Cache) }

// ReportPath returns the spell report location.
func (c *Config) ReportPath() string { return c.resolve(c.Spell.Report) }

// IndexPath returns the coverage index location.
func (c *Config) IndexPath() string { return c.resolve(c.Index.File) }

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) || c.HomeDir == "" {
		return name
	}
	return filepath.Join(c.HomeDir, name)
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

const defaultHeader = `# pdk configuration.
# Every key can be overridden by the PDK_* environment variable noted
# next to it. Relative file names are resolved under the pdk home.
`

// WriteDefault writes a default pdk.yaml to path. An existing file is left
// untouched and reported as fs.ErrExist.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w", path, fs.ErrExist)
	}

	var doc yaml.Node
	if err := doc.Encode(defaults()); err != nil {
		return err
	}
	annotate(&doc, map[string]string{
		"uri":      "PDK_SPELL_URI (required)",
		"field":    "PDK_SPELL_FIELD",
		"interval": "PDK_SPELL_INTERVAL",
		"timeout":  "PDK_SPELL_TIMEOUT",
		"proxy":    "PDK_SPELL_PROXY",
		"cache":    "PDK_SPELL_CACHE",
		"report":   "PDK_SPELL_REPORT",
		"file":     "PDK_INDEX_FILE",
		"level":    "PDK_LOG_LEVEL",
		"format":   "PDK_LOG_FORMAT (console or json)",
	})

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte(defaultHeader), data...), 0644)
}

func defaults() Config {
	return Config{
		Spell: SpellConfig{
			Field:    "text1",
			Interval: 5 * time.Second,
			Timeout:  5 * time.Second,
			Cache:    "spell.cache",
			Report:   "spell.txt",
		},
		Index: IndexConfig{File: "index.csv"},
		Log:   LogConfig{Level: "info", Format: "console"},
	}
}

// annotate sets line comments on mapping keys found in comments.
func annotate(n *yaml.Node, comments map[string]string) {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			if c, ok := comments[n.Content[i].Value]; ok && n.Content[i+1].Kind == yaml.ScalarNode {
				n.Content[i+1].LineComment = c
			}
		}
	}
	for _, child := range n.Content {
		annotate(child, comments)
	}
}
