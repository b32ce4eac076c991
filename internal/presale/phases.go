package presale

import "github.com/ryfenlabs/presale-cli/internal/config"

// PhaseTarget returns the cumulative USD raise target for a phase.
// Phases outside the static mapping have no target and the progress bar
// stays hidden.
func PhaseTarget(phaseID int) (float64, bool) {
	target, ok := config.PhaseTargets[phaseID]
	return target, ok
}

// Progress returns the percentage of target covered by usdValue, capped at
// 100. Non-positive inputs yield 0.
func Progress(usdValue, target float64) float64 {
	if target <= 0 || usdValue <= 0 {
		return 0
	}
	pct := usdValue / target * 100
	if pct > 100 {
		return 100
	}
	return pct
}
