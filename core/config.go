package core

import (
	"fmt"
	"strings"
)

const (
	ActualStateRemote = "remote"
	ActualStateLedger = "ledger"
)

type RoutingConfig struct {
	HandlerTemplate      string `koanf:"handler_template" mapstructure:"handler_template"`
	BoundPackage         string `koanf:"bound_package" mapstructure:"bound_package"`
	DispatchPackage      string `koanf:"dispatch_package" mapstructure:"dispatch_package"`
	SyncHandler          string `koanf:"sync_handler" mapstructure:"sync_handler"`
	HandlerAction        string `koanf:"handler_action" mapstructure:"handler_action"`
	ValidateAction       string `koanf:"validate_action" mapstructure:"validate_action"`
	CustomSequencePrefix string `koanf:"custom_sequence_prefix" mapstructure:"custom_sequence_prefix"`
	ClientIDParam        string `koanf:"client_id_param" mapstructure:"client_id_param"`
}

type RegistryConfig struct {
	BaseURL        string `koanf:"base_url" mapstructure:"base_url"`
	TimeoutSeconds int    `koanf:"timeout_seconds" mapstructure:"timeout_seconds"`
}

type RuntimeConfig struct {
	APIVersion string `koanf:"api_version" mapstructure:"api_version"`
}

type LedgerConfig struct {
	Driver string `koanf:"driver" mapstructure:"driver"`
	DSN    string `koanf:"dsn" mapstructure:"dsn"`
}

type Config struct {
	ServiceName            string         `koanf:"service_name" mapstructure:"service_name"`
	PreferredProviders     []string       `koanf:"preferred_providers" mapstructure:"preferred_providers"`
	ActualState            string         `koanf:"actual_state" mapstructure:"actual_state"`
	RequiredCapability     string         `koanf:"required_capability" mapstructure:"required_capability"`
	RegistrationNamePrefix string         `koanf:"registration_name_prefix" mapstructure:"registration_name_prefix"`
	Routing                RoutingConfig  `koanf:"routing" mapstructure:"routing"`
	Registry               RegistryConfig `koanf:"registry" mapstructure:"registry"`
	Runtime                RuntimeConfig  `koanf:"runtime" mapstructure:"runtime"`
	Ledger                 LedgerConfig   `koanf:"ledger" mapstructure:"ledger"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:            "events",
		ActualState:            ActualStateRemote,
		RequiredCapability:     "AdobeIOManagementAPISDK",
		RegistrationNamePrefix: "extension auto registration",
		Routing: RoutingConfig{
			HandlerTemplate:      "/adobe/acp-event-handler-3.0.0",
			BoundPackage:         "bound_package",
			DispatchPackage:      "acp",
			SyncHandler:          "sync_event_handler",
			HandlerAction:        "handler",
			ValidateAction:       "validate_action",
			CustomSequencePrefix: "3rd_party_custom_events",
			ClientIDParam:        "recipient_client_id",
		},
		Registry: RegistryConfig{
			BaseURL:        "https://api.adobe.io",
			TimeoutSeconds: 30,
		},
		Runtime: RuntimeConfig{APIVersion: "v1"},
		Ledger:  LedgerConfig{Driver: "sqlite3"},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	switch strings.TrimSpace(c.ActualState) {
	case ActualStateRemote, ActualStateLedger:
	default:
		return fmt.Errorf("core: actual_state must be %q or %q, got %q", ActualStateRemote, ActualStateLedger, c.ActualState)
	}
	if err := c.Routing.Validate(); err != nil {
		return err
	}
	if c.Registry.TimeoutSeconds < 0 {
		return fmt.Errorf("core: registry.timeout_seconds must be >= 0")
	}
	return nil
}

func (c RoutingConfig) Validate() error {
	required := map[string]string{
		"routing.handler_template":       c.HandlerTemplate,
		"routing.bound_package":          c.BoundPackage,
		"routing.dispatch_package":       c.DispatchPackage,
		"routing.sync_handler":           c.SyncHandler,
		"routing.handler_action":         c.HandlerAction,
		"routing.validate_action":        c.ValidateAction,
		"routing.custom_sequence_prefix": c.CustomSequencePrefix,
		"routing.client_id_param":        c.ClientIDParam,
	}
	for _, key := range []string{
		"routing.handler_template",
		"routing.bound_package",
		"routing.dispatch_package",
		"routing.sync_handler",
		"routing.handler_action",
		"routing.validate_action",
		"routing.custom_sequence_prefix",
		"routing.client_id_param",
	} {
		if strings.TrimSpace(required[key]) == "" {
			return fmt.Errorf("core: %s is required", key)
		}
	}
	return nil
}

// ParsePreferredProviders splits a comma separated provider id list,
// dropping blanks and keeping order.
func ParsePreferredProviders(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if value := strings.TrimSpace(part); value != "" {
			out = append(out, value)
		}
	}
	return out
}
