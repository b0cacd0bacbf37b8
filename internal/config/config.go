// Package config loads and validates the mesh node's configuration: the
// tunables that govern origination timing, liveness detection, TTL, and
// role/gateway policy.
package config

import "time"

// CurrentConfigVersion is the latest configuration schema version.
// Bump this when adding fields that require migration.
const CurrentConfigVersion = 1

// Config is the unified mesh node configuration.
type Config struct {
	Version  int            `yaml:"version,omitempty"`
	Identity IdentityConfig `yaml:"identity"`
	Routing  RoutingConfig  `yaml:"routing"`
	Roles    RolesConfig    `yaml:"roles,omitempty"`
	Metrics  MetricsConfig  `yaml:"metrics,omitempty"`
}

// IdentityConfig names this node on the mesh.
type IdentityConfig struct {
	NodeID      string `yaml:"node_id,omitempty"`
	VirtualAddr uint32 `yaml:"virtual_addr"`
}

// RoutingConfig holds the OriginatingMessageManager/VirtualRouter
// tunables: origination cadence, liveness ping cadence, lost-node
// detection, and the mesh-wide TTL ceiling.
type RoutingConfig struct {
	MaxHops uint8 `yaml:"max_hops"`

	OriginationInterval     string `yaml:"origination_interval"`
	OriginationInitialDelay string `yaml:"origination_initial_delay"`
	PingInterval            string `yaml:"ping_interval"`
	PingTimeout             string `yaml:"ping_timeout"`
	LostNodeThreshold       string `yaml:"lost_node_threshold"`
	SweepInterval           string `yaml:"sweep_interval"`
}

// RolesConfig holds the EmergentRoleManager's user-facing policy knobs.
type RolesConfig struct {
	AllowedRoles     []string `yaml:"allowed_roles,omitempty"`
	PreferredGateway string   `yaml:"preferred_gateway,omitempty"`
	AllowsTorProxy   bool     `yaml:"allows_tor_proxy,omitempty"`
}

// MetricsConfig controls Prometheus metrics exposure.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address,omitempty"` // default: "127.0.0.1:9091"
}

// DefaultRoutingConfig returns the spec-documented default tunables, as
// duration strings ready for YAML round-tripping.
func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		MaxHops:                 7,
		OriginationInterval:     "3s",
		OriginationInitialDelay: "1s",
		PingInterval:            "10s",
		PingTimeout:             "15s",
		LostNodeThreshold:       "10s",
		SweepInterval:           "1s",
	}
}

// DefaultConfig returns a complete Config with every tunable at its
// documented default.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Routing: DefaultRoutingConfig(),
		Metrics: MetricsConfig{ListenAddress: "127.0.0.1:9091"},
	}
}

// ResolvedRouting is RoutingConfig with every duration string parsed.
type ResolvedRouting struct {
	MaxHops                 uint8
	OriginationInterval     time.Duration
	OriginationInitialDelay time.Duration
	PingInterval            time.Duration
	PingTimeout             time.Duration
	LostNodeThreshold       time.Duration
	SweepInterval           time.Duration
}
