// Package config reads raw configuration values from an optional config file
// and the environment.
package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/goliatone/go-event-registrations/core"
)

// EnvBindings maps config keys to the environment variables that override
// them.
var EnvBindings = map[string]string{
	"preferred_providers":      "PREFERRED_PROVIDERS",
	"actual_state":             "EVENTS_ACTUAL_STATE",
	"required_capability":      "EVENTS_REQUIRED_CAPABILITY",
	"registration_name_prefix": "EVENTS_REGISTRATION_NAME_PREFIX",
	"registry.base_url":        "EVENTS_REGISTRY_BASE_URL",
	"registry.timeout_seconds": "EVENTS_REGISTRY_TIMEOUT_SECONDS",
	"runtime.api_version":      "EVENTS_RUNTIME_API_VERSION",
	"ledger.driver":            "EVENTS_LEDGER_DRIVER",
	"ledger.dsn":               "EVENTS_LEDGER_DSN",
}

// ViperLoader implements core.RawConfigLoader. File is optional; when set
// it must exist.
type ViperLoader struct {
	File string
}

func NewViperLoader(file string) *ViperLoader {
	return &ViperLoader{File: strings.TrimSpace(file)}
}

func (l *ViperLoader) LoadRaw(context.Context) (map[string]any, error) {
	v := viper.New()
	if l != nil && l.File != "" {
		v.SetConfigFile(l.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", l.File, err)
		}
	}
	for key, env := range EnvBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", env, err)
		}
	}
	return v.AllSettings(), nil
}

var _ core.RawConfigLoader = (*ViperLoader)(nil)
