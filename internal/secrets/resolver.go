package secrets

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// ErrConfigurationMissing indicates a credential the process needs is not
// configured. This is fatal for the request that needed it: retrying cannot
// help until an operator fixes the environment.
var ErrConfigurationMissing = errors.New("configuration missing")

// MissingError names the credential that was absent.
type MissingError struct {
	Name string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("configuration missing: %s", e.Name)
}

func (e *MissingError) Unwrap() error { return ErrConfigurationMissing }

// Credential names resolvable through Config.Resolve.
const (
	CredentialMarketplaceToken = "MARKETPLACE_API_TOKEN"
	CredentialVerifierKey      = "VERIFIER_API_KEY"
	CredentialAutomationKey    = "AUTOMATION_API_KEY"
)

// Config holds the full environment surface, resolved once in main and
// passed explicitly to component constructors.
type Config struct {
	MarketplaceBaseURL string `mapstructure:"MARKETPLACE_BASE_URL"`
	MarketplaceToken   string `mapstructure:"MARKETPLACE_API_TOKEN"`
	VerifierBaseURL    string `mapstructure:"VERIFIER_BASE_URL"`
	VerifierKey        string `mapstructure:"VERIFIER_API_KEY"`
	AutomationKey      string `mapstructure:"AUTOMATION_API_KEY"`
	LeadImportsTable   string `mapstructure:"LEAD_IMPORTS_TABLE"`
	QuoteRequestsTable string `mapstructure:"QUOTE_REQUESTS_TABLE"`
	IntakeQueueURL     string `mapstructure:"INTAKE_QUEUE_URL"`
	RunLocal           bool   `mapstructure:"RUN_LOCAL"`
	Port               string `mapstructure:"PORT"`
}

// Load reads the environment once via viper and returns the config object.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	// viper only unmarshals keys it has seen; bind the full surface explicitly.
	for _, key := range []string{
		"MARKETPLACE_BASE_URL", "MARKETPLACE_API_TOKEN",
		"VERIFIER_BASE_URL", "VERIFIER_API_KEY",
		"AUTOMATION_API_KEY",
		"LEAD_IMPORTS_TABLE", "QUOTE_REQUESTS_TABLE", "INTAKE_QUEUE_URL",
		"RUN_LOCAL", "PORT",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetDefault("PORT", "8080")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Resolve returns the named credential, or a MissingError if it is absent.
func (c *Config) Resolve(name string) (string, error) {
	var val string
	switch name {
	case CredentialMarketplaceToken:
		val = c.MarketplaceToken
	case CredentialVerifierKey:
		val = c.VerifierKey
	case CredentialAutomationKey:
		val = c.AutomationKey
	default:
		return "", &MissingError{Name: name}
	}
	if val == "" {
		return "", &MissingError{Name: name}
	}
	return val, nil
}
