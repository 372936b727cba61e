package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMaskField(t *testing.T) {
	if got := MaskField("hmac_secret", "s3cret").Value.String(); got != RedactedValue {
		t.Fatalf("expected secret redacted, got %q", got)
	}
	if got := MaskField("service", "dustd").Value.String(); got != "dustd" {
		t.Fatalf("expected allowlisted key kept, got %q", got)
	}
	if got := MaskField(" Swap_ID", "4").Value.String(); got != "4" {
		t.Fatalf("expected key match to ignore case, got %q", got)
	}
	if got := MaskField("token", "").Value.String(); got != "" {
		t.Fatalf("expected empty value untouched, got %q", got)
	}
}

func TestMaskAddress(t *testing.T) {
	got := MaskAddress("tron", "TXYZabcdefghijklmnopqrstuv1234").Value.String()
	if got != "TXYZ...1234" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := MaskAddress("tron", "short").Value.String(); got != RedactedValue {
		t.Fatalf("expected short values fully redacted, got %q", got)
	}
}

func TestSetupWithFileWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dustd.log")
	logger, closer := SetupWithFile("dustd", "test", FileOptions{Path: path})
	logger.Info("block produced", "height", 7)
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	for _, want := range []string{`"message":"block produced"`, `"severity":"INFO"`, `"service":"dustd"`, `"height":7`} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line %q missing %s", line, want)
		}
	}
}
