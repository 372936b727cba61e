package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dustchain/crypto"

	"github.com/BurntSushi/toml"
)

// GenesisBalance seeds an account at genesis. Amount is in base units.
type GenesisBalance struct {
	Address string `toml:"Address"`
	Amount  string `toml:"Amount"`
}

// RPCAuth configures bearer tokens for oracle and admin calls.
type RPCAuth struct {
	HMACSecret    string `toml:"HMACSecret"`
	HMACSecretEnv string `toml:"HMACSecretEnv"`
	Issuer        string `toml:"Issuer"`
	Audience      string `toml:"Audience"`
}

// Secret resolves the HMAC secret, preferring the environment variable.
func (a RPCAuth) Secret() string {
	if env := strings.TrimSpace(a.HMACSecretEnv); env != "" {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return strings.TrimSpace(a.HMACSecret)
}

// RateLimit bounds requests per client on the JSON-RPC endpoint.
type RateLimit struct {
	PerSecond float64 `toml:"PerSecond"`
	Burst     int     `toml:"Burst"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	OTLPEndpoint string `toml:"OTLPEndpoint"`
	Insecure     bool   `toml:"Insecure"`
	Metrics      bool   `toml:"Metrics"`
	Traces       bool   `toml:"Traces"`
}

type Config struct {
	DataDir             string           `toml:"DataDir"`
	RPCAddress          string           `toml:"RPCAddress"`
	MetricsAddress      string           `toml:"MetricsAddress"`
	Environment         string           `toml:"Environment"`
	LogFile             string           `toml:"LogFile"`
	BlockTimeSeconds    uint64           `toml:"BlockTimeSeconds"`
	ProducerKeystore    string           `toml:"ProducerKeystorePath"`
	ProducerPassphrase  string           `toml:"-"`
	Treasury            string           `toml:"Treasury"`
	StorageAccount      string           `toml:"StorageAccount"`
	Oracles             []string         `toml:"Oracles"`
	CommitteeSize       uint32           `toml:"CommitteeSize"`
	GenesisBalances     []GenesisBalance `toml:"GenesisBalances"`
	InitialDustUSDPrice string           `toml:"InitialDustUSDPrice"`
	IndexerDSN          string           `toml:"IndexerDSN"`
	RPCAuth             RPCAuth          `toml:"rpc_auth"`
	RPCRateLimit        RateLimit        `toml:"rpc_rate_limit"`
	Telemetry           Telemetry        `toml:"telemetry"`
	Global              Global           `toml:"global"`
}

// Load loads the configuration from the given path, creating a default file
// and producer keystore when none exists. The passphrase protects the
// producer keystore.
func Load(path, passphrase string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path, passphrase)
	}
	cfg := &Config{Global: DefaultGlobal()}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.ProducerPassphrase = passphrase
	applyDefaults(cfg)
	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg.Global); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Treasury and storage accounts fall back to the module accounts derived
// by the runtime when left empty.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./dust-data"
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8545"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
	if cfg.BlockTimeSeconds == 0 {
		cfg.BlockTimeSeconds = 6
	}
	if cfg.CommitteeSize == 0 {
		cfg.CommitteeSize = 3
	}
	if cfg.RPCRateLimit.PerSecond <= 0 {
		cfg.RPCRateLimit.PerSecond = 20
	}
	if cfg.RPCRateLimit.Burst <= 0 {
		cfg.RPCRateLimit.Burst = 40
	}
	if cfg.Oracles == nil {
		cfg.Oracles = []string{}
	}
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.ProducerKeystore
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}
	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		if strings.TrimSpace(cfg.ProducerPassphrase) == "" {
			return fmt.Errorf("producer keystore %s missing and no passphrase supplied", keystorePath)
		}
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, cfg.ProducerPassphrase); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	if cfg.ProducerKeystore != keystorePath {
		cfg.ProducerKeystore = keystorePath
		return persist(configPath, cfg)
	}
	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path, passphrase string) (*Config, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, fmt.Errorf("a keystore passphrase is required to create %s", path)
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, passphrase); err != nil {
		return nil, err
	}
	cfg := &Config{
		DataDir:          "./dust-data",
		RPCAddress:       ":8545",
		MetricsAddress:   ":9100",
		Environment:      "local",
		BlockTimeSeconds: 6,
		ProducerKeystore: keystorePath,
		Global:           DefaultGlobal(),
	}
	applyDefaults(cfg)
	cfg.ProducerPassphrase = passphrase
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "producer.keystore")
}
