// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quixsi/rsvp/internal/auth"
	"github.com/quixsi/rsvp/internal/model"
)

const (
	EnvPassword     = "PARTY_PASSWORD"
	EnvPasswordHash = "PARTY_PASSWORD_HASH"
)

type Config struct {
	Event          model.Event `yaml:"event"`
	ExportFilename string      `yaml:"export_filename"`

	// admin credentials only come from the environment
	AdminPassword     string `yaml:"-"`
	AdminPasswordHash string `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Event: model.Event{
			Title:    "You're Invited!",
			Subtitle: "Please RSVP for my Graduation Ceremony & Celebration.",
			Greeting: "Please reach out to me if you have any questions or concerns about attending. I can't wait to see you!",
			Date:     time.Date(2025, 11, 1, 14, 0, 0, 0, time.Local),

			StartedMessage: "The graduation has begun! Congratulations!",
		},
		ExportFilename: "graduation_rsvps.csv",
	}
}

// Load reads the YAML file at path on top of the defaults. An empty path
// yields the defaults; a path that cannot be read is an error.
// Environment variables are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	if cfg.ExportFilename == "" {
		cfg.ExportFilename = Default().ExportFilename
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v, ok := os.LookupEnv(EnvPassword); ok {
		c.AdminPassword = v
	}
	if v, ok := os.LookupEnv(EnvPasswordHash); ok {
		c.AdminPasswordHash = v
	}
}

// Checker builds the admin credential check. A bcrypt hash wins over a
// plaintext password; with neither set the admin view stays closed.
func (c *Config) Checker() (auth.Checker, error) {
	switch {
	case c.AdminPasswordHash != "":
		return auth.NewBcrypt(c.AdminPasswordHash)
	case c.AdminPassword != "":
		return auth.NewPlain(c.AdminPassword), nil
	default:
		return auth.Deny{}, nil
	}
}
