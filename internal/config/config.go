// Package config loads termcheck configuration from layered YAML files.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/termcheck/internal/catalogue"
	"github.com/dshills/termcheck/internal/llm"
	"github.com/dshills/termcheck/internal/teamwork"
)

// ProjectFile is the per-project config file name searched for from the
// working directory upwards.
const ProjectFile = "termcheck.yaml"

// Config is the complete termcheck configuration.
type Config struct {
	LLM       LLMConfig        `yaml:"llm"`
	Catalogue CatalogueConfig  `yaml:"catalogue"`
	Policy    catalogue.Policy `yaml:"policy"`
	History   HistoryConfig    `yaml:"history"`
	Teamwork  TeamworkConfig   `yaml:"teamwork"`
	Batch     BatchConfig      `yaml:"batch"`

	// Sources lists the files applied, lowest precedence first.
	Sources []string `yaml:"-"`
}

// LLMConfig configures candidate generation.
type LLMConfig struct {
	// Provider is anthropic, openai or google.
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// CatalogueConfig points at an optional catalogue override file.
type CatalogueConfig struct {
	Path string `yaml:"path"`
}

// HistoryConfig configures the SQLite history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TeamworkConfig configures the Teamwork collaborator. The API key is read
// from the environment only.
type TeamworkConfig struct {
	Domain    string `yaml:"domain"`
	ProjectID string `yaml:"project_id"`
}

// BatchConfig configures batch evaluation.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "anthropic",
			Temperature: 0.2,
			MaxTokens:   1024,
		},
		Policy: catalogue.DefaultPolicy(),
		History: HistoryConfig{
			Path: defaultHistoryPath(),
		},
		Teamwork: TeamworkConfig{
			Domain: teamwork.DefaultDomain,
		},
		Batch: BatchConfig{
			Concurrency: 4,
		},
	}
}

func defaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "termcheck-history.db"
	}
	return filepath.Join(dir, "termcheck", "history.db")
}

// LoadOptions controls where Load looks for files.
type LoadOptions struct {
	// Explicit is a --config path. It must exist when set.
	Explicit string
	// UserDir holds the user config file. Empty means os.UserConfigDir.
	UserDir string
	// WorkDir is where the project file search starts. Empty means the
	// current directory.
	WorkDir string
	Logger  *slog.Logger
}

// Load applies, in increasing precedence: built-in defaults, the user file
// (<UserDir>/termcheck/config.yaml), the nearest termcheck.yaml at or above
// WorkDir, and the explicit file. Missing optional files are skipped. The
// result is validated.
func Load(opts LoadOptions) (*Config, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	cfg := Default()

	var paths []string
	if p := userFile(opts.UserDir); p != "" {
		paths = append(paths, p)
	}
	if p := findProjectFile(opts.WorkDir); p != "" {
		paths = append(paths, p)
	}
	for _, p := range paths {
		err := cfg.mergeFile(p)
		switch {
		case errors.Is(err, os.ErrNotExist):
			continue
		case err != nil:
			return nil, err
		}
		log.Debug("config file applied", "path", p)
	}

	if opts.Explicit != "" {
		if err := cfg.mergeFile(opts.Explicit); err != nil {
			return nil, err
		}
		log.Debug("config file applied", "path", opts.Explicit)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func userFile(dir string) string {
	if dir == "" {
		var err error
		if dir, err = os.UserConfigDir(); err != nil {
			return ""
		}
	}
	return filepath.Join(dir, "termcheck", "config.yaml")
}

// findProjectFile returns the nearest ProjectFile at or above dir.
func findProjectFile(dir string) string {
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return ""
		}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		p := filepath.Join(dir, ProjectFile)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// mergeFile decodes path over c. Keys absent from the file keep their
// current values; unknown keys are an error.
func (c *Config) mergeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.Sources = append(c.Sources, path)
	return nil
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	var errs []error
	provider := strings.ToLower(c.LLM.Provider)
	if llm.DefaultModel(provider) == "" {
		errs = append(errs, fmt.Errorf("llm.provider %q is not one of anthropic, openai, google", c.LLM.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature %.2f out of range [0,2]", c.LLM.Temperature))
	}
	if c.LLM.MaxTokens < 1 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must be positive"))
	}
	if err := c.Policy.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, fmt.Errorf("history.path is required when history is enabled"))
	}
	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64 {
		errs = append(errs, fmt.Errorf("batch.concurrency %d out of range [1,64]", c.Batch.Concurrency))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// LoadCatalogue returns the built-in catalogue, or the override file applied to
// it when catalogue.path is set.
func (c *Config) LoadCatalogue() (*catalogue.Catalogue, error) {
	if c.Catalogue.Path == "" {
		return catalogue.Default(), nil
	}
	return catalogue.LoadFile(c.Catalogue.Path)
}

// LLMOptions converts the llm section to generation options.
func (c *Config) LLMOptions() llm.Options {
	return llm.Options{
		Provider:    strings.ToLower(c.LLM.Provider),
		Model:       c.LLM.Model,
		MaxTokens:   c.LLM.MaxTokens,
		Temperature: c.LLM.Temperature,
	}
}
