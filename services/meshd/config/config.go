// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads meshd configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full meshd runtime configuration.
type Config struct {
	Port            string        `env:"MESHD_PORT" envDefault:"8080"`
	DBPath          string        `env:"MESHD_DB_PATH" envDefault:"meshd.db"`
	JWTSecret       string        `env:"MESHD_JWT_SECRET" envDefault:"dev-secret-change-in-production"`
	TokenTTL        time.Duration `env:"MESHD_TOKEN_TTL" envDefault:"24h"`
	AccrualInterval time.Duration `env:"MESHD_ACCRUAL_INTERVAL" envDefault:"5s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
