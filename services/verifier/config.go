package verifier

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"dustchain/crypto"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := value.Value
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures the runtime configuration for the verification worker.
type Config struct {
	NodeURL      string     `yaml:"node_url"`
	Environment  string     `yaml:"environment"`
	PollInterval Duration   `yaml:"poll_interval"`
	BatchSize    int        `yaml:"batch_size"`
	Tron         TronConfig `yaml:"tron"`
	Auth         AuthConfig `yaml:"auth"`
	Submit       RateConfig `yaml:"submit"`
}

// TronConfig points the worker at a TronGrid compatible HTTP API.
type TronConfig struct {
	Endpoint      string   `yaml:"endpoint"`
	APIKey        string   `yaml:"api_key"`
	APIKeyEnv     string   `yaml:"api_key_env"`
	USDTContract  string   `yaml:"usdt_contract"`
	OnlyConfirmed bool     `yaml:"only_confirmed"`
	Timeout       Duration `yaml:"timeout"`
}

// AuthConfig holds the shared secret used to sign oracle tokens.
type AuthConfig struct {
	HMACSecret    string   `yaml:"hmac_secret"`
	HMACSecretEnv string   `yaml:"hmac_secret_env"`
	Subject       string   `yaml:"subject"`
	Issuer        string   `yaml:"issuer"`
	Audience      string   `yaml:"audience"`
	TokenTTL      Duration `yaml:"token_ttl"`
}

// RateConfig paces verdict submission to the node.
type RateConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// Secret resolves the signing secret, preferring the environment variable.
func (a AuthConfig) Secret() string {
	if env := strings.TrimSpace(a.HMACSecretEnv); env != "" {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return strings.TrimSpace(a.HMACSecret)
}

// Key resolves the TronGrid API key, preferring the environment variable.
func (t TronConfig) Key() string {
	if env := strings.TrimSpace(t.APIKeyEnv); env != "" {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return strings.TrimSpace(t.APIKey)
}

// Load reads configuration from the supplied path.
func Load(path string) (Config, error) {
	cfg := Config{}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.NodeURL == "" {
		cfg.NodeURL = "http://127.0.0.1:8545"
	}
	if cfg.PollInterval.Duration == 0 {
		cfg.PollInterval.Duration = 6 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	if cfg.Tron.Endpoint == "" {
		cfg.Tron.Endpoint = "https://api.trongrid.io"
	}
	if cfg.Tron.USDTContract == "" {
		cfg.Tron.USDTContract = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
	}
	if cfg.Tron.Timeout.Duration == 0 {
		cfg.Tron.Timeout.Duration = 10 * time.Second
	}
	if cfg.Auth.Subject == "" {
		cfg.Auth.Subject = "dust-verifierd"
	}
	if cfg.Auth.TokenTTL.Duration == 0 {
		cfg.Auth.TokenTTL.Duration = 10 * time.Minute
	}
	if cfg.Submit.PerSecond <= 0 {
		cfg.Submit.PerSecond = 2
	}
	if cfg.Submit.Burst <= 0 {
		cfg.Submit.Burst = 4
	}
}

func validate(cfg Config) error {
	if cfg.Auth.Secret() == "" {
		return fmt.Errorf("auth.hmac_secret or auth.hmac_secret_env must be configured")
	}
	if _, err := crypto.ParseTronAddress(cfg.Tron.USDTContract); err != nil {
		return fmt.Errorf("tron.usdt_contract: %w", err)
	}
	if cfg.BatchSize > 100 {
		return fmt.Errorf("batch_size must not exceed 100")
	}
	return nil
}
