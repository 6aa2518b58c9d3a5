package config

import (
	"fmt"
	"strings"
)

// ApplyRolloutPhase applies a staged rollout preset to the config.
// Supported phases:
// - paper:       paper mode, registrations booked in memory
// - shadow:      live mode, dry-run only (payloads built, nothing sent on-chain)
// - live-small:  live mode with a tight request budget on the API
// - live:        live mode using configured values
func ApplyRolloutPhase(cfg *Config, phase string) error {
	p := strings.ToLower(strings.TrimSpace(phase))
	if p == "" {
		return nil
	}

	switch p {
	case "paper":
		cfg.Mode = "paper"
		cfg.DryRun = false
	case "shadow", "live-dryrun", "live-dry-run":
		cfg.Mode = "live"
		cfg.DryRun = true
	case "live-small", "small":
		cfg.Mode = "live"
		cfg.DryRun = false

		clampMaxFloat(&cfg.API.RateLimit, 2)
		clampMaxInt(&cfg.API.Burst, 5)
		clampMaxInt(&cfg.Market.ListLimit, 20)
	case "live":
		cfg.Mode = "live"
		cfg.DryRun = false
	default:
		return fmt.Errorf("unknown rollout phase %q (supported: paper|shadow|live-small|live)", phase)
	}

	return nil
}

func clampMaxFloat(v *float64, max float64) {
	if max <= 0 {
		return
	}
	if *v <= 0 || *v > max {
		*v = max
	}
}

func clampMaxInt(v *int, max int) {
	if max <= 0 {
		return
	}
	if *v <= 0 || *v > max {
		*v = max
	}
}
