// Package config loads the pipeline configuration from YAML with
// defaults applied before validation, so a minimal file that only sets
// the database URL is a complete configuration.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development production"`
	Season      string `yaml:"season" validate:"required"`

	Database struct {
		URL string `yaml:"url" validate:"required"`
	} `yaml:"database"`

	Redis struct {
		Enabled  bool   `yaml:"enabled" default:"false"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" default:"0"`
	} `yaml:"redis"`

	Models struct {
		Dir string `yaml:"dir" default:"trained_models"`
	} `yaml:"models"`

	Training struct {
		ValDays            int     `yaml:"val_days" default:"3" validate:"gte=1"`
		TestDays           int     `yaml:"test_days" default:"7" validate:"gte=1"`
		HistoricalValDays  int     `yaml:"historical_val_days" default:"15" validate:"gte=1"`
		HistoricalTestDays int     `yaml:"historical_test_days" default:"30" validate:"gte=1"`
		MinMinutes         float64 `yaml:"min_minutes" default:"10"`
		MinSamples         int     `yaml:"min_samples" default:"100" validate:"gte=1"`
	} `yaml:"training"`

	Policy struct {
		MinConfidence float64 `yaml:"min_confidence" default:"0.55" validate:"gt=0.5,lt=1"`
		MinEdgePct    float64 `yaml:"min_edge_pct" default:"2.0" validate:"gte=0"`
	} `yaml:"policy"`

	Backtest struct {
		Days    int `yaml:"days" default:"14" validate:"gte=1"`
		Buckets int `yaml:"buckets" default:"5" validate:"gte=1"`
	} `yaml:"backtest"`

	Logging struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Pretty bool   `yaml:"pretty" default:"false"`
	} `yaml:"logging"`
}

// Load reads a YAML configuration file, applies defaults, overlays
// environment variables, and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	c.applyEnv()

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// applyEnv overlays deployment-specific secrets that never belong in
// the checked-in YAML file.
func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
	if v := os.Getenv("SEASON"); v != "" {
		c.Season = v
	}
}
