// Package capability builds the NodeCapabilitySnapshot the role manager
// reads each planning pass: the node's current resources, battery,
// thermal state, and derived quality scores, queried from a platform
// CapabilityPort that must never fail loudly — only ever fall back.
package capability

import (
	"github.com/google/uuid"

	"github.com/dreadstar/meshrabiya-core/pkg/mmcp"
)

// Storage describes spare storage a node could offer.
type Storage struct {
	CapacityBytes int64
	UsedBytes     int64
}

// Port is the platform capability source. Implementations must not
// panic; return the documented fallback values instead.
type Port interface {
	CPUUtilization() float32
	AvailableMemory() int64
	TotalMemory() int64
	BatteryInfo() mmcp.BatteryInfo
	ThermalState() mmcp.ThermalState
	EstimatedBandwidth() int64
	NetworkInterfaces() []mmcp.NetworkInterfaceInfo
	StorageCapabilities() Storage
	StabilityScore() float32
	// CapabilitySnapshot lets a platform report an authoritative,
	// already-computed snapshot (including networkQuality) directly,
	// skipping the field-by-field fallback path below. ok is false when
	// the platform has no such shortcut.
	CapabilitySnapshot(nodeID string) (Snapshot, bool)
}

// Snapshot is the immutable NodeCapabilitySnapshot value type.
type Snapshot struct {
	NodeID         string
	Resources      mmcp.ResourceSnapshot
	Battery        mmcp.BatteryInfo
	Thermal        mmcp.ThermalState
	NetworkQuality float32
	Stability      float32
	Timestamp      int64
}

// HasStableConnection reports the gateway/coordinator eligibility
// predicate shared across role rules.
func (s Snapshot) HasStableConnection() bool {
	return s.NetworkQuality > 0.7 && s.Stability > 0.6
}

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

// Clock-like source for the builder's timestamp; kept minimal to avoid a
// circular import on ports.Clock.
type clock interface{ WallNowMillis() int64 }

// Builder constructs Snapshots. port may be nil: every field then takes
// its sandbox/test fallback.
type Builder struct {
	port  Port
	clock clock
}

// NewBuilder constructs a Builder. port may be nil.
func NewBuilder(port Port, clk clock) *Builder {
	return &Builder{port: port, clock: clk}
}

// Build produces a Snapshot for nodeID, using sensible fallbacks for any
// field the platform can't supply: CPU=0.5, battery=50, thermal=COOL,
// stability=0.8, networkQuality=0.5.
func (b *Builder) Build(nodeID string) Snapshot {
	if nodeID == "" {
		nodeID = uuid.NewString()
	}

	if b.port != nil {
		if snap, ok := b.port.CapabilitySnapshot(nodeID); ok {
			return clampSnapshot(snap)
		}
	}

	now := int64(0)
	if b.clock != nil {
		now = b.clock.WallNowMillis()
	}

	snap := Snapshot{
		NodeID:         nodeID,
		Thermal:        mmcp.ThermalCool,
		NetworkQuality: 0.5,
		Stability:      0.8,
		Timestamp:      now,
		Battery: mmcp.BatteryInfo{
			Level:             50,
			Health:            mmcp.BatteryGood,
			HasChargingSource: false,
		},
		Resources: mmcp.ResourceSnapshot{
			AvailableCPU: 0.5,
			BatteryLevel: 50,
			PowerState:   mmcp.PowerBatteryMedium,
		},
	}

	if b.port == nil {
		return snap
	}

	snap.Resources.AvailableCPU = 1 - clamp01(b.port.CPUUtilization())
	snap.Resources.AvailableRAM = b.port.AvailableMemory()
	snap.Resources.AvailableBandwidth = b.port.EstimatedBandwidth()
	snap.Resources.NetworkInterfaces = b.port.NetworkInterfaces()
	storage := b.port.StorageCapabilities()
	snap.Resources.StorageOffered = storage.CapacityBytes - storage.UsedBytes

	battery := b.port.BatteryInfo()
	snap.Battery = battery
	snap.Resources.BatteryLevel = battery.Level
	snap.Thermal = b.port.ThermalState()
	snap.Resources.ThermalThrottling = snap.Thermal == mmcp.ThermalThrottling

	snap.Stability = clamp01(b.port.StabilityScore())
	// No direct networkQuality getter on Port; approximate it from
	// available bandwidth, capped at 10 Mbps == full quality.
	bwMbps := float32(b.port.EstimatedBandwidth()) / (1024 * 1024 / 8)
	snap.NetworkQuality = clamp01(bwMbps / 10)

	return clampSnapshot(snap)
}

func clampSnapshot(s Snapshot) Snapshot {
	s.NetworkQuality = clamp01(s.NetworkQuality)
	s.Stability = clamp01(s.Stability)
	if s.Battery.Level < 0 {
		s.Battery.Level = 0
	} else if s.Battery.Level > 100 {
		s.Battery.Level = 100
	}
	return s
}
