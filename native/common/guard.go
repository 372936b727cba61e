package common

import (
	"errors"
	"fmt"
)

var ErrModulePaused = errors.New("module paused")

// Module names recognised by the pause view.
const (
	ModuleSwap        = "swap"
	ModuleEvidence    = "evidence"
	ModuleArbitration = "arbitration"
	ModuleAffiliate   = "affiliate"
	ModuleGovernance  = "governance"
)

// Modules lists every pausable module in a stable order.
func Modules() []string {
	return []string{ModuleSwap, ModuleEvidence, ModuleArbitration, ModuleAffiliate, ModuleGovernance}
}

type PauseView interface {
	IsPaused(module string) bool
}

// Guard fails with ErrModulePaused, wrapped with the module name, while the
// module is switched off. A nil view never blocks.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" || !p.IsPaused(module) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrModulePaused, module)
}
