package common

import "errors"

// ErrModulePaused is returned when a guarded entry point is invoked while the
// lifecycle switch for its module is engaged.
var ErrModulePaused = errors.New("module paused")

// PauseView exposes the global lifecycle switch. Engines consult it at the top
// of origination-side entry points only; exit paths (repay, claim, redeem,
// withdraw) are deliberately left unguarded so counterparties can always close
// a position during a security response.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the module is paused. A nil view or empty module
// name disables the check.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
