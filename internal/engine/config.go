package engine

import "fmt"

// FreezePolicy says who decides when a freeze gets consumed.
type FreezePolicy int

const (
	// FreezeAuto lets the walk consume freezes to patch gaps.
	FreezeAuto FreezePolicy = iota
	// FreezeManual keeps freezes untouched by the walk; the user spends
	// them explicitly.
	FreezeManual
	// FreezeOff disables freezes entirely.
	FreezeOff
)

// String returns the policy's config-file spelling.
func (p FreezePolicy) String() string {
	switch p {
	case FreezeAuto:
		return "auto"
	case FreezeManual:
		return "manual"
	case FreezeOff:
		return "off"
	}
	return fmt.Sprintf("FreezePolicy(%d)", int(p))
}

// ParseFreezePolicy parses the config-file spelling of a policy.
func ParseFreezePolicy(s string) (FreezePolicy, error) {
	switch s {
	case "auto", "":
		return FreezeAuto, nil
	case "manual":
		return FreezeManual, nil
	case "off":
		return FreezeOff, nil
	}
	return FreezeAuto, fmt.Errorf("unknown freeze policy %q (want auto, manual, or off)", s)
}

// Authority says which side's computation is trusted for this streak.
type Authority int

const (
	// AuthorityLocal runs the engine here.
	AuthorityLocal Authority = iota
	// AuthorityRemote means an external recomputation supplies snapshots
	// and the local engine is bypassed.
	AuthorityRemote
)

// Config carries the per-streak calculation rules. Construct with
// NewConfig; a zero Config is not valid.
type Config struct {
	StreakID     string
	EventsPerDay int // daily goal; >1 enables goal mode
	LeewayHours  int // grace hours past midnight, 0..24
	FreezePolicy FreezePolicy
	Authority    Authority
}

// NewConfig validates and builds a Config. This is the only place malformed
// rules are rejected — the engine itself assumes a valid Config and has no
// error paths.
func NewConfig(streakID string, eventsPerDay, leewayHours int, policy FreezePolicy, authority Authority) (Config, error) {
	if eventsPerDay < 1 {
		return Config{}, fmt.Errorf("events per day must be >= 1, got %d", eventsPerDay)
	}
	if leewayHours < 0 || leewayHours > 24 {
		return Config{}, fmt.Errorf("leeway hours must be within [0, 24], got %d", leewayHours)
	}
	return Config{
		StreakID:     streakID,
		EventsPerDay: eventsPerDay,
		LeewayHours:  leewayHours,
		FreezePolicy: policy,
		Authority:    authority,
	}, nil
}
