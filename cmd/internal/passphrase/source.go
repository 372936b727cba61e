package passphrase

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrEmpty is returned when the resolved passphrase is blank.
var ErrEmpty = errors.New("producer keystore passphrase cannot be empty")

// Source resolves the producer keystore passphrase once and caches it. It
// checks, in order, the environment variable, a file named by the same
// variable with a _FILE suffix, and finally an interactive terminal prompt.
type Source struct {
	envVar string
	prompt func() (string, error)

	once  sync.Once
	value string
	err   error
}

// NewSource builds a source keyed on envVar.
func NewSource(envVar string) *Source {
	return &Source{envVar: strings.TrimSpace(envVar), prompt: promptTerminal}
}

// Get returns the passphrase, resolving it on first use.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		s.value, s.err = s.resolve()
		if s.err == nil && strings.TrimSpace(s.value) == "" {
			s.value, s.err = "", ErrEmpty
		}
	})
	return s.value, s.err
}

func (s *Source) resolve() (string, error) {
	if s.envVar != "" {
		if value, ok := os.LookupEnv(s.envVar); ok {
			return value, nil
		}
		if path := strings.TrimSpace(os.Getenv(s.envVar + "_FILE")); path != "" {
			raw, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("read %s_FILE: %w", s.envVar, err)
			}
			return strings.TrimRight(string(raw), "\r\n"), nil
		}
	}
	value, err := s.prompt()
	if err != nil && s.envVar != "" {
		return "", fmt.Errorf("%w; set %s or %s_FILE", err, s.envVar, s.envVar)
	}
	return value, err
}

func promptTerminal() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("producer keystore passphrase required and no terminal available")
	}
	fmt.Fprint(os.Stderr, "Enter producer keystore passphrase: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(raw), nil
}
