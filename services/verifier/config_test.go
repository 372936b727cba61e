package verifier

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "verifier.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
node_url: http://node:8080
poll_interval: 3s
auth:
  hmac_secret: s3cret
  issuer: dust
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PollInterval.Duration != 3*time.Second {
		t.Fatalf("unexpected poll interval %v", cfg.PollInterval.Duration)
	}
	if cfg.BatchSize != 25 || cfg.Submit.PerSecond != 2 || cfg.Submit.Burst != 4 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Tron.Endpoint != "https://api.trongrid.io" {
		t.Fatalf("unexpected tron endpoint %q", cfg.Tron.Endpoint)
	}
	if cfg.Auth.Subject != "dust-verifierd" || cfg.Auth.TokenTTL.Duration != 10*time.Minute {
		t.Fatalf("unexpected auth defaults: %+v", cfg.Auth)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"missing secret": "node_url: http://node\n",
		"bad contract":   "auth:\n  hmac_secret: x\ntron:\n  usdt_contract: nope\n",
		"bad duration":   "poll_interval: soon\nauth:\n  hmac_secret: x\n",
		"unknown field":  "auth:\n  hmac_secret: x\nbogus: 1\n",
		"large batch":    "batch_size: 500\nauth:\n  hmac_secret: x\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestSecretPrefersEnvironment(t *testing.T) {
	t.Setenv("VERIFIER_SECRET", "from-env")
	auth := AuthConfig{HMACSecret: "inline", HMACSecretEnv: "VERIFIER_SECRET"}
	if got := auth.Secret(); got != "from-env" {
		t.Fatalf("expected env secret, got %q", got)
	}
	auth.HMACSecretEnv = "VERIFIER_SECRET_UNSET"
	if got := auth.Secret(); got != "inline" {
		t.Fatalf("expected inline secret, got %q", got)
	}
}

func TestSampleConfigLoads(t *testing.T) {
	t.Setenv("DUST_RPC_HMAC_SECRET", "from-env")
	cfg, err := Load("config.yaml")
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if cfg.Auth.Secret() != "from-env" || !cfg.Tron.OnlyConfirmed {
		t.Fatalf("unexpected sample config %+v", cfg)
	}
}
