package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"specpilot/internal/feedback"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "specpilot.yaml"

type Config struct {
	Project struct {
		Root   string `yaml:"root"`
		Routes string `yaml:"routes"` // optional routes manifest
	} `yaml:"project"`
	Output struct {
		ReportDir  string `yaml:"report_dir"`
		FixtureDir string `yaml:"fixture_dir"`
		Database   string `yaml:"database"`
	} `yaml:"output"`
	Analysis struct {
		TTL      time.Duration `yaml:"ttl"`
		MaxDepth int           `yaml:"max_depth"`
	} `yaml:"analysis"`
	Policy struct {
		SensitivePaths []string `yaml:"sensitive_paths"`
		PublicMetaKeys []string `yaml:"public_meta_keys"`
	} `yaml:"policy"`
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	cfg.Project.Root = "."
	cfg.Output.ReportDir = feedback.DefaultReportDir
	cfg.Output.FixtureDir = feedback.DefaultFixtureDir
	cfg.Output.Database = ".specpilot/specpilot.db"
	cfg.Analysis.TTL = 15 * time.Second
	cfg.Analysis.MaxDepth = 3
	cfg.Policy.SensitivePaths = append([]string(nil), feedback.DefaultSensitivePaths...)
	cfg.Policy.PublicMetaKeys = append([]string(nil), feedback.DefaultPublicMetaKeys...)
	return &cfg
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	// 3. Override with Environment Variables if present
	if root := os.Getenv("SPECPILOT_ROOT"); root != "" {
		cfg.Project.Root = root
	}
	if db := os.Getenv("SPECPILOT_DB"); db != "" {
		cfg.Output.Database = db
	}
	if dir := os.Getenv("SPECPILOT_REPORT_DIR"); dir != "" {
		cfg.Output.ReportDir = dir
	}

	return cfg, nil
}

// FeedbackPolicy returns the access rule policy.
func (c *Config) FeedbackPolicy() feedback.Policy {
	return feedback.Policy{
		SensitivePaths: c.Policy.SensitivePaths,
		PublicMetaKeys: c.Policy.PublicMetaKeys,
	}
}
