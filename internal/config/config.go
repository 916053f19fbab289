// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Anamnesis Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	auroraerr "github.com/anamnesis-dev/aurora/pkg/errors"
)

// Config is the top-level Aurora service configuration.
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Models    ModelsConfig              `mapstructure:"models"`
	Sessions  SessionsConfig            `mapstructure:"sessions"`
	Storage   StorageConfig             `mapstructure:"storage"`
	Cases     CasesConfig               `mapstructure:"cases"`
	Agent     AgentConfig               `mapstructure:"agent"`
}

// ServerConfig controls how the HTTP surface listens.
type ServerConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// ProviderConfig holds credentials and endpoint for an LLM provider.
type ProviderConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// ModelsConfig controls model selection.
type ModelsConfig struct {
	Default   string `mapstructure:"default"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// SessionsConfig controls conversation session lifetime.
type SessionsConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// StorageConfig selects the session storage backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// CasesConfig points at the platform's case database. An empty URL runs the
// service on the built-in fixture store.
type CasesConfig struct {
	DatabaseURL string `mapstructure:"database_url"`
}

// AgentConfig bounds the conversation loop.
type AgentConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix AURORA_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.listen", "127.0.0.1:8790")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("sessions.ttl", time.Hour)
	v.SetDefault("models.default", "anthropic/claude-sonnet-4-5")
	v.SetDefault("models.max_tokens", 4096)
	v.SetDefault("agent.max_iterations", 8)

	// Environment
	v.SetEnvPrefix("AURORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, auroraerr.Errorf(auroraerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, auroraerr.Errorf(auroraerr.CodeConfigLoadReadFailure, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, auroraerr.Errorf(auroraerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns all
// validation errors found rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateModels()...)
	errs = append(errs, c.validateSessions()...)
	errs = append(errs, c.validateAgent()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, auroraerr.Errorf(auroraerr.CodeConfigValidateInvalidValue, "config: server.listen must not be empty"))
	} else {
		_, portStr, err := net.SplitHostPort(c.Server.Listen)
		if err != nil {
			errs = append(errs, auroraerr.Errorf(auroraerr.CodeConfigValidateInvalidValue,
				"config: server.listen must be a valid host:port address, got %q: %w",
				c.Server.Listen, err,
			))
		} else {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				errs = append(errs, auroraerr.Errorf(auroraerr.CodeConfigValidateInvalidValue,
					"config: server.listen port must be a number, got %q",
					portStr,
				))
			} else if port < 1 || port > 65535 {
				errs = append(errs, auroraerr.Errorf(auroraerr.CodeConfigValidateInvalidValue,
					"config: server.listen port must be between 1 and 65535, got %d",
					port,
				))
			}
		}
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, auroraerr.Errorf(auroraerr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [memory, sqlite], got %q",
			c.Storage.Backend,
		))
	}

	if c.Storage.Backend == "sqlite" && c.Storage.Path == "" {
		errs = append(errs, auroraerr.Errorf(auroraerr.CodeConfigValidateInvalidValue,
			"config: storage.path must be set when storage.backend is sqlite"))
	}

	return errs
}

func (c *Config) validateModels() []error {
	var errs []error

	if c.Models.Default == "" {
		errs = append(errs, auroraerr.Errorf(auroraerr.CodeConfigValidateInvalidValue, "config: models.default must not be empty"))
	} else if !strings.Contains(c.Models.Default, "/") {
		errs = append(errs, auroraerr.Errorf(auroraerr.CodeConfigValidateInvalidValue,
			"config: models.default must be in \"provider/model\" format, got %q",
			c.Models.Default,
		))
	} else if c.Providers != nil {
		// Cross-reference only when a providers section exists. A nil map
		// means defaults only, which is valid until a chat is attempted.
		providerName := providerFromModel(c.Models.Default)
		if _, ok := c.Providers[providerName]; !ok {
			errs = append(errs, auroraerr.Errorf(auroraerr.CodeConfigValidateInvalidValue,
				"config: models.default %q references provider %q which is not configured",
				c.Models.Default, providerName,
			))
		}
	}

	if c.Models.MaxTokens <= 0 {
		errs = append(errs, auroraerr.Errorf(auroraerr.CodeConfigValidateInvalidValue,
			"config: models.max_tokens must be greater than 0, got %d",
			c.Models.MaxTokens,
		))
	}

	return errs
}

func (c *Config) validateSessions() []error {
	var errs []error

	if c.Sessions.TTL <= 0 {
		errs = append(errs, auroraerr.Errorf(auroraerr.CodeConfigValidateInvalidValue,
			"config: sessions.ttl must be greater than 0, got %s",
			c.Sessions.TTL,
		))
	}

	return errs
}

func (c *Config) validateAgent() []error {
	var errs []error

	if c.Agent.MaxIterations <= 0 {
		errs = append(errs, auroraerr.Errorf(auroraerr.CodeConfigValidateInvalidValue,
			"config: agent.max_iterations must be greater than 0, got %d",
			c.Agent.MaxIterations,
		))
	}

	return errs
}

// providerFromModel extracts the provider prefix from a "provider/model" string.
func providerFromModel(model string) string {
	if idx := strings.Index(model, "/"); idx > 0 {
		return model[:idx]
	}
	return model
}
