package main

import (
	"fmt"
	"os"

	"github.com/Spidey0819/Container-1/calc"
	"github.com/Spidey0819/Container-1/gateway"
	"github.com/caarlos0/env/v11"
	"github.com/rogpeppe/rjson"
)

type config struct {
	Address string `json:"address" env:"GATEWAY_ADDRESS"`
	Debug   bool   `json:"debug" env:"GATEWAY_DEBUG"`

	Storage struct {
		Type string `json:"type" env:"GATEWAY_STORAGE_TYPE"`

		// Properties for "disk" type.
		Root string `json:"root" env:"GATEWAY_STORAGE_ROOT"`

		// Properties for "bolt" type.
		BoltPath string `json:"bolt_path" env:"GATEWAY_STORAGE_BOLT_PATH"`

		// Properties for "s3" type.
		Profile string `json:"profile" env:"GATEWAY_STORAGE_PROFILE"`
		Region  string `json:"region" env:"GATEWAY_STORAGE_REGION"`
		Bucket  string `json:"bucket" env:"GATEWAY_STORAGE_BUCKET"`
		Prefix  string `json:"prefix" env:"GATEWAY_STORAGE_PREFIX"`
	} `json:"storage"`

	Calculator struct {
		URL            string  `json:"url" env:"GATEWAY_CALCULATOR_URL"`
		TimeoutSeconds int     `json:"timeout_seconds" env:"GATEWAY_CALCULATOR_TIMEOUT_SECONDS"`
		RateLimit      float64 `json:"rate_limit" env:"GATEWAY_CALCULATOR_RATE_LIMIT"`
	} `json:"calculator"`
}

// loadConfig reads the configuration file, if any, then applies overrides
// from the environment and defaults for whatever is still missing.
func loadConfig(pathname string) (*config, error) {
	c := new(config)
	if pathname != "" {
		f, err := os.Open(pathname)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = f.Close()
		}()
		if err := rjson.NewDecoder(f).Decode(c); err != nil {
			return nil, fmt.Errorf("decode %q: %w", pathname, err)
		}
	}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	c.applyDefaultsForMissingProperties()
	return c, c.validate()
}

func (c *config) applyDefaultsForMissingProperties() {
	if c.Address == "" {
		c.Address = gateway.DefaultAddress
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "disk"
	}
	if c.Storage.Root == "" {
		c.Storage.Root = gateway.DefaultRoot
	}
	if c.Storage.BoltPath == "" {
		c.Storage.BoltPath = "$HOME/lib/gateway/files.db"
	}
	if c.Calculator.URL == "" {
		c.Calculator.URL = calc.DefaultURL
	}
	if c.Calculator.TimeoutSeconds <= 0 {
		c.Calculator.TimeoutSeconds = int(calc.DefaultTimeout.Seconds())
	}
}

func (c *config) validate() error {
	switch c.Storage.Type {
	case "disk", "bolt":
	case "s3":
		if c.Storage.Bucket == "" || c.Storage.Region == "" {
			return fmt.Errorf("storage type %q requires region and bucket", c.Storage.Type)
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	if c.Calculator.RateLimit < 0 {
		return fmt.Errorf("negative calculator rate limit: %v", c.Calculator.RateLimit)
	}
	return nil
}
