package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// checkConfigFilePermissions returns an error if a config file has any
// group or world permission bit set (anything beyond 0600). Config files
// may carry a node's virtual address and routing policy. A file that
// cannot be stat'ed is not reported here.
func checkConfigFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return nil // file access errors are handled by the caller
	}
	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		return fmt.Errorf("config file %s has overly permissive mode %04o; expected 0600 — fix with: chmod 600 %s", path, mode, path)
	}
	return nil
}

// LoadConfig loads and validates mesh node configuration from a YAML
// file at path, applying defaults for any zero-valued routing tunable.
func LoadConfig(path string) (*Config, error) {
	if err := checkConfigFilePermissions(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.Version > CurrentConfigVersion {
		return nil, fmt.Errorf("%w: version %d is newer than supported version %d", ErrConfigVersionTooNew, cfg.Version, CurrentConfigVersion)
	}

	applyRoutingDefaults(&cfg.Routing)

	if _, err := ResolveRouting(cfg.Routing); err != nil {
		return nil, fmt.Errorf("invalid routing config: %w", err)
	}

	return cfg, nil
}

// applyRoutingDefaults fills zero-valued routing fields with the
// documented defaults, so a config file only needs to override what it
// actually cares about.
func applyRoutingDefaults(rc *RoutingConfig) {
	d := DefaultRoutingConfig()
	if rc.MaxHops == 0 {
		rc.MaxHops = d.MaxHops
	}
	if rc.OriginationInterval == "" {
		rc.OriginationInterval = d.OriginationInterval
	}
	if rc.OriginationInitialDelay == "" {
		rc.OriginationInitialDelay = d.OriginationInitialDelay
	}
	if rc.PingInterval == "" {
		rc.PingInterval = d.PingInterval
	}
	if rc.PingTimeout == "" {
		rc.PingTimeout = d.PingTimeout
	}
	if rc.LostNodeThreshold == "" {
		rc.LostNodeThreshold = d.LostNodeThreshold
	}
	if rc.SweepInterval == "" {
		rc.SweepInterval = d.SweepInterval
	}
}

// ResolveRouting parses every duration string in rc, failing on the
// first malformed value.
func ResolveRouting(rc RoutingConfig) (ResolvedRouting, error) {
	var out ResolvedRouting
	var err error

	out.MaxHops = rc.MaxHops
	if out.OriginationInterval, err = time.ParseDuration(rc.OriginationInterval); err != nil {
		return out, fmt.Errorf("origination_interval: %w", err)
	}
	if out.OriginationInitialDelay, err = time.ParseDuration(rc.OriginationInitialDelay); err != nil {
		return out, fmt.Errorf("origination_initial_delay: %w", err)
	}
	if out.PingInterval, err = time.ParseDuration(rc.PingInterval); err != nil {
		return out, fmt.Errorf("ping_interval: %w", err)
	}
	if out.PingTimeout, err = time.ParseDuration(rc.PingTimeout); err != nil {
		return out, fmt.Errorf("ping_timeout: %w", err)
	}
	if out.LostNodeThreshold, err = time.ParseDuration(rc.LostNodeThreshold); err != nil {
		return out, fmt.Errorf("lost_node_threshold: %w", err)
	}
	if out.SweepInterval, err = time.ParseDuration(rc.SweepInterval); err != nil {
		return out, fmt.Errorf("sweep_interval: %w", err)
	}
	return out, nil
}

// FindConfigFile searches for a mesh node config file in standard
// locations. Search order: explicitPath (if given), ./meshnode.yaml,
// ~/.config/meshnode/config.yaml, /etc/meshnode/config.yaml.
func FindConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("%w: %s", ErrConfigNotFound, explicitPath)
		}
		return explicitPath, nil
	}

	searchPaths := []string{"meshnode.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "meshnode", "config.yaml"))
	}
	searchPaths = append(searchPaths, filepath.Join("/etc", "meshnode", "config.yaml"))

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w; searched %v", ErrConfigNotFound, searchPaths)
}
