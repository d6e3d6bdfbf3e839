// Package config loads config.yml, applies defaults and environment overrides
// and validates the result.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"blocosrj/internal/env"
)

type Dataset struct {
	// Source is a file path, an http(s) URL or s3://bucket/key.
	Source string `yaml:"source" validate:"required"`
}

type Stations struct {
	// Source of the metro station JSON list. Empty uses the embedded Rio list.
	Source string `yaml:"source"`
}

type Geocoder struct {
	BaseURL        string        `yaml:"base_url" validate:"required,url"`
	UserAgent      string        `yaml:"user_agent" validate:"required"`
	Timeout        time.Duration `yaml:"timeout" validate:"gt=0"`
	City           string        `yaml:"city"`
	Attempts       int           `yaml:"attempts" validate:"min=1,max=10"`
	InitialBackoff time.Duration `yaml:"initial_backoff" validate:"gt=0"`
}

type Matching struct {
	RadiusKm float64       `yaml:"radius_km" validate:"gt=0"`
	Window   time.Duration `yaml:"window" validate:"gt=0"`
	TimeZone string        `yaml:"time_zone" validate:"required"`
}

type Storage struct {
	Backend     string `yaml:"backend" validate:"oneof=memory file s3 postgres"`
	Dir         string `yaml:"dir" validate:"required_if=Backend file"`
	Bucket      string `yaml:"bucket" validate:"required_if=Backend s3"`
	Prefix      string `yaml:"prefix"`
	DatabaseURL string `yaml:"database_url" validate:"required_if=Backend postgres"`
}

type Kafka struct {
	Broker  string `yaml:"broker"`
	Topic   string `yaml:"topic"`
	GroupID string `yaml:"group_id"`
}

type Metrics struct {
	Listen string `yaml:"listen"`
}

type Config struct {
	Dataset  Dataset  `yaml:"dataset"`
	Stations Stations `yaml:"stations"`
	Geocoder Geocoder `yaml:"geocoder"`
	Matching Matching `yaml:"matching"`
	Storage  Storage  `yaml:"storage"`
	Kafka    Kafka    `yaml:"kafka"`
	Metrics  Metrics  `yaml:"metrics"`
}

// Load reads path (skipped when empty), then applies defaults and environment
// overrides before validating.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}
	c.applyDefaults()
	c.applyEnv()
	if err := validator.New().Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Dataset.Source == "" {
		c.Dataset.Source = "blocos.csv"
	}
	if c.Geocoder.BaseURL == "" {
		c.Geocoder.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if c.Geocoder.UserAgent == "" {
		c.Geocoder.UserAgent = "blocosrj/1.0"
	}
	if c.Geocoder.Timeout == 0 {
		c.Geocoder.Timeout = 10 * time.Second
	}
	if c.Geocoder.City == "" {
		c.Geocoder.City = "Rio de Janeiro"
	}
	if c.Geocoder.Attempts == 0 {
		c.Geocoder.Attempts = 3
	}
	if c.Geocoder.InitialBackoff == 0 {
		c.Geocoder.InitialBackoff = time.Second
	}
	if c.Matching.RadiusKm == 0 {
		c.Matching.RadiusKm = 2
	}
	if c.Matching.Window == 0 {
		c.Matching.Window = 3 * time.Hour
	}
	if c.Matching.TimeZone == "" {
		c.Matching.TimeZone = "America/Sao_Paulo"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "file"
	}
	if c.Storage.Backend == "file" && c.Storage.Dir == "" {
		c.Storage.Dir = ".blocosrj"
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9110"
	}
}

func (c *Config) applyEnv() {
	c.Storage.DatabaseURL = env.Get("DATABASE_URL", c.Storage.DatabaseURL)
	c.Kafka.Broker = env.Get("KAFKA_BROKER", c.Kafka.Broker)
	c.Kafka.Topic = env.Get("KAFKA_TOPIC", c.Kafka.Topic)
	c.Kafka.GroupID = env.Get("KAFKA_GROUP_ID", c.Kafka.GroupID)
	if v := env.Get("BLOCOS_STORAGE", ""); v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Matching.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", c.Matching.TimeZone, err)
	}
	return loc, nil
}
