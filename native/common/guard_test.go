package common

import (
	"errors"
	"strings"
	"testing"
)

type pauseSet map[string]bool

func (p pauseSet) IsPaused(module string) bool { return p[module] }

func TestGuard(t *testing.T) {
	if err := Guard(nil, ModuleSwap); err != nil {
		t.Fatalf("nil view blocked: %v", err)
	}
	view := pauseSet{ModuleEvidence: true}
	for _, module := range Modules() {
		err := Guard(view, module)
		if module == ModuleEvidence {
			if !errors.Is(err, ErrModulePaused) || !strings.Contains(err.Error(), module) {
				t.Fatalf("expected paused error naming %s, got %v", module, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s unexpectedly paused: %v", module, err)
		}
	}
}
