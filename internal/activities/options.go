package activities

import (
	"automata/internal/config"
	"automata/internal/types"
)

func censorGate(ac config.ActivityConfig) types.ProbabilityGate {
	g, _ := ac.Censor.Gate()
	return g
}

// alpha samples the opacity percentage; an unset range is fully opaque.
func alpha(ac config.ActivityConfig, rnd *types.Rand) int {
	r, _ := ac.Alpha.Range()
	if r.IsZero() {
		return 100
	}
	return r.Sample(rnd)
}

func mistakes(ac config.ActivityConfig) types.Range {
	r, _ := ac.Mistakes.Range()
	return r
}

func trackGate(ac config.ActivityConfig) types.ProbabilityGate {
	g, _ := ac.Track.Gate()
	return g
}

func privateGate(ac config.ActivityConfig) types.ProbabilityGate {
	g, _ := ac.Private.Gate()
	return g
}
