package manager

import "time"

// Config holds the manager's tunable intervals and thresholds, all with
// the spec's stated defaults.
type Config struct {
	OriginationInterval     time.Duration
	OriginationInitialDelay time.Duration
	PingInterval            time.Duration
	PingTimeout             time.Duration
	LostNodeThreshold       time.Duration
	SweepInterval           time.Duration
	MaxHops                 uint8
}

// DefaultConfig returns the manager's documented defaults.
func DefaultConfig() Config {
	return Config{
		OriginationInterval:     3 * time.Second,
		OriginationInitialDelay: 1 * time.Second,
		PingInterval:            10 * time.Second,
		PingTimeout:             15 * time.Second,
		LostNodeThreshold:       10 * time.Second,
		SweepInterval:           1 * time.Second,
		MaxHops:                 7,
	}
}
