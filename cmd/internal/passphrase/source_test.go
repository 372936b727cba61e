package passphrase

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const testEnv = "DUST_TEST_PRODUCER_PASS"

func TestSourcePrefersEnvironment(t *testing.T) {
	t.Setenv(testEnv, "from-env")
	s := NewSource(testEnv)
	s.prompt = func() (string, error) { return "", errors.New("prompted") }
	got, err := s.Get()
	if err != nil || got != "from-env" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestSourceReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pass")
	if err := os.WriteFile(path, []byte("from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(testEnv, "")
	os.Unsetenv(testEnv)
	t.Setenv(testEnv+"_FILE", path)
	s := NewSource(testEnv)
	got, err := s.Get()
	if err != nil || got != "from-file" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestSourceRejectsBlankAndCaches(t *testing.T) {
	calls := 0
	s := NewSource("")
	s.prompt = func() (string, error) {
		calls++
		return "   ", nil
	}
	if _, err := s.Get(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, err := s.Get(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected cached ErrEmpty, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("prompted %d times", calls)
	}
}
