// Package role implements the EmergentRoleManager: fitness scoring,
// per-role eligibility predicates, transition planning between a current
// and target role set, and the per-role Absent/Announced/Active/
// Deactivating state machine that paces how those transitions actually
// take effect.
package role

import (
	"github.com/dreadstar/meshrabiya-core/pkg/capability"
	"github.com/dreadstar/meshrabiya-core/pkg/mmcp"
)

func clamp01(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Fitness computes the node's overall fitness score in [0,1]: the
// weighted sum of battery-score (0.3), thermal-score (0.2),
// networkQuality (0.3) and stability (0.2).
func Fitness(snap capability.Snapshot) float32 {
	f := 0.3*batteryScore(snap.Battery) +
		0.2*thermalScore(snap.Thermal) +
		0.3*snap.NetworkQuality +
		0.2*snap.Stability
	return clamp01(f)
}

func batteryScore(b mmcp.BatteryInfo) float32 {
	if b.IsCharging {
		return 1.0
	}
	switch {
	case b.Level > 70:
		return 0.9
	case b.Level > 30:
		return 0.6
	default:
		return 0.3
	}
}

func thermalScore(t mmcp.ThermalState) float32 {
	switch t {
	case mmcp.ThermalCool:
		return 1.0
	case mmcp.ThermalWarm:
		return 0.8
	case mmcp.ThermalHot:
		return 0.5
	case mmcp.ThermalThrottling:
		return 0.2
	case mmcp.ThermalCritical:
		return 0.1
	default:
		return 0.5
	}
}

// bandwidthMbps converts the snapshot's availableBandwidth (bytes/sec)
// into megabits/sec for the gateway bandwidth threshold.
func bandwidthMbps(snap capability.Snapshot) float32 {
	return float32(snap.Resources.AvailableBandwidth) * 8 / (1024 * 1024)
}
