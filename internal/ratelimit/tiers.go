// Package ratelimit implements multi-window sliding-log rate limiting backed
// by a shared counter store. A Limiter evaluates a caller key against the
// minute, hour, and day ceilings of its tier and produces an admission
// decision plus header-ready metadata. State lives in the Store (Redis in
// production, memory for tests and single-instance deployments), so many
// service replicas enforce one global budget per key.
package ratelimit

import "fmt"

// Tier identifies a pricing/policy tier. The set is closed; tier assignment
// itself happens upstream (billing/auth) and arrives here as an input.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// TierLimits bundles the per-window ceilings for one tier. Values are fixed
// at startup; nothing mutates a TierLimits after the catalog is built.
type TierLimits struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int `yaml:"requests_per_hour" json:"requests_per_hour"`
	RequestsPerDay    int `yaml:"requests_per_day" json:"requests_per_day"`

	// BurstAllowance widens the minute ceiling only: a caller may briefly
	// exceed RequestsPerMinute by this many requests. Hour and day ceilings
	// are unaffected.
	BurstAllowance int `yaml:"burst_allowance" json:"burst_allowance"`
}

// Catalog maps tiers to their limits. Built once at startup, read-only after.
type Catalog map[Tier]TierLimits

// DefaultCatalog returns the built-in tier table.
func DefaultCatalog() Catalog {
	return Catalog{
		TierFree:       {RequestsPerMinute: 60, RequestsPerHour: 1000, RequestsPerDay: 10000, BurstAllowance: 0},
		TierPro:        {RequestsPerMinute: 600, RequestsPerHour: 10000, RequestsPerDay: 100000, BurstAllowance: 50},
		TierEnterprise: {RequestsPerMinute: 6000, RequestsPerHour: 100000, RequestsPerDay: 1000000, BurstAllowance: 500},
	}
}

// NewCatalog returns the default catalog with per-tier overrides applied.
// Overriding an unknown tier is a configuration error.
func NewCatalog(overrides map[string]TierLimits) (Catalog, error) {
	catalog := DefaultCatalog()
	for name, limits := range overrides {
		tier, err := ParseTier(name)
		if err != nil {
			return nil, err
		}
		if err := validateLimits(tier, limits); err != nil {
			return nil, err
		}
		catalog[tier] = limits
	}
	return catalog, nil
}

// Limits returns the limits for tier. Asking for a tier outside the closed
// set is a programmer error, so it panics rather than returning a zero value
// that would silently admit everything.
func (c Catalog) Limits(tier Tier) TierLimits {
	limits, ok := c[tier]
	if !ok {
		panic(fmt.Sprintf("ratelimit: unknown tier %q", tier))
	}
	return limits
}

// Tiers returns the tiers present in the catalog.
func (c Catalog) Tiers() []Tier {
	tiers := make([]Tier, 0, len(c))
	for tier := range c {
		tiers = append(tiers, tier)
	}
	return tiers
}

// ParseTier validates a tier name from config or request input.
func ParseTier(name string) (Tier, error) {
	switch Tier(name) {
	case TierFree, TierPro, TierEnterprise:
		return Tier(name), nil
	default:
		return "", fmt.Errorf("unknown tier: %s", name)
	}
}

func validateLimits(tier Tier, limits TierLimits) error {
	if limits.RequestsPerMinute <= 0 || limits.RequestsPerHour <= 0 || limits.RequestsPerDay <= 0 {
		return fmt.Errorf("tier %s: window limits must be positive", tier)
	}
	if limits.BurstAllowance < 0 {
		return fmt.Errorf("tier %s: burst allowance must not be negative", tier)
	}
	return nil
}
