// Package mmcp implements the Mesh-Control Protocol wire codec: a
// discriminated union of fixed-layout messages, each framed as
// what:u8 | messageId:u32 | body. All multi-byte integers are big-endian;
// strings are 4-byte length-prefixed UTF-8; booleans are a single 0x00/0x01
// byte; enumerations are 4-byte big-endian ordinals in declaration order.
package mmcp

// What discriminates the MMCP message kinds on the wire.
type What uint8

const (
	WhatOriginator What = iota + 1
	WhatPing
	WhatPong
	WhatHeartbeat
	WhatNodeAnnouncement
	WhatGatewayAnnouncement
	WhatServiceAdvertisement
	WhatStorageAdvertisement
	WhatComputeTaskRequest
	WhatI2PRouterAdvertisement
	WhatQuorumProposal
	WhatNetworkMetrics
	WhatEmergencyBroadcast
)

func (w What) valid() bool {
	return w >= WhatOriginator && w <= WhatEmergencyBroadcast
}

// Message is the common interface every MMCP body satisfies.
type Message interface {
	What() What
	MessageID() uint32
}

// base carries the framing fields shared by every message kind.
type base struct {
	ID uint32
}

func (b base) MessageID() uint32 { return b.ID }

// SetID assigns the frame's messageId. Promoted onto every concrete
// message type via the embedded base, so callers outside this package
// (which cannot name the unexported base type directly) still have a way
// to stamp a message with a messageId after constructing it with a
// struct literal.
func (b *base) SetID(id uint32) { b.ID = id }

// OriginatorMessage is the periodic announcement a node emits so its
// existence and freshness propagate across the mesh.
//
// neighborCount, neighbors and centralityScore are trailing-optional:
// a decoder that receives a frame truncated right after sentTime still
// produces a valid OriginatorMessage with those fields zeroed, so a
// future encoder can append more optional fields without breaking this
// decoder.
type OriginatorMessage struct {
	base
	FitnessScore    int32
	NodeRole        uint8
	SentTime        int64
	NeighborCount   int32
	Neighbors       []int32
	CentralityScore float32
}

func (OriginatorMessage) What() What { return WhatOriginator }

// PingMessage carries no body beyond the frame header.
type PingMessage struct {
	base
}

func (PingMessage) What() What { return WhatPing }

// PongMessage answers a PingMessage by echoing its messageId.
type PongMessage struct {
	base
	ReplyToMessageID int32
}

func (PongMessage) What() What { return WhatPong }

// HeartbeatMessage is a liveness announcement distinct from ORIGINATOR,
// used by the role state machine to detect Announced->Active transitions.
type HeartbeatMessage struct {
	base
	NodeID    string
	Timestamp int64
}

func (HeartbeatMessage) What() What { return WhatHeartbeat }

// NetworkInterfaceInfo names one of a node's local network interfaces.
type NetworkInterfaceInfo struct {
	Name string
}

// ResourceSnapshot is the resources sub-body of NODE_ANNOUNCEMENT.
type ResourceSnapshot struct {
	AvailableCPU        float32
	AvailableRAM        int64
	AvailableBandwidth  int64
	StorageOffered      int64
	BatteryLevel        int32
	ThermalThrottling   bool
	PowerState          PowerState
	NetworkInterfaces   []NetworkInterfaceInfo
}

// BatteryInfo is the battery sub-body of NODE_ANNOUNCEMENT.
type BatteryInfo struct {
	Level             int32
	IsCharging        bool
	TemperatureCelsius int32
	Health            BatteryHealth
	ChargingSource    ChargingSource
	HasChargingSource bool
}

// NodeAnnouncementMessage shares a node's aggregate capabilities and
// claimed roles with the mesh; it is the input to the gossip
// intelligence aggregator.
type NodeAnnouncementMessage struct {
	base
	NodeID     string
	NodeType   NodeType
	Fitness    float32
	Centrality float32
	Roles      []Role
	Resources  ResourceSnapshot
	Battery    BatteryInfo
	Thermal    ThermalState
	Timestamp  int64
	SentTime   int64
	Neighbors  []string
}

func (NodeAnnouncementMessage) What() What { return WhatNodeAnnouncement }

// GatewayAnnouncementMessage advertises (or retracts, via IsActive=false)
// a node's willingness to route traffic to an external network.
type GatewayAnnouncementMessage struct {
	base
	NodeID       string
	GatewayType  GatewayType
	UploadMbps   float32
	DownloadMbps float32
	AvgLatencyMs int32
	JitterMs     int32
	IsActive     bool
	Protocols    string // comma-joined
	Timestamp    int64
}

func (GatewayAnnouncementMessage) What() What { return WhatGatewayAnnouncement }

// StorageAdvertisementMessage advertises spare storage capacity.
type StorageAdvertisementMessage struct {
	base
	NodeID            string
	CapacityBytes     int64
	UsedBytes         int64
	ReplicationFactor int32
	Timestamp         int64
}

func (StorageAdvertisementMessage) What() What { return WhatStorageAdvertisement }

// ServiceAdvertisementMessage advertises a named service a node hosts.
type ServiceAdvertisementMessage struct {
	base
	NodeID       string
	ServiceName  string
	ServiceRole  Role
	EndpointPort int32
	Timestamp    int64
}

func (ServiceAdvertisementMessage) What() What { return WhatServiceAdvertisement }

// ComputeTaskRequestMessage asks the mesh for spare compute capacity.
type ComputeTaskRequestMessage struct {
	base
	NodeID           string
	TaskID           string
	RequiredCPU      float32
	RequiredRAMBytes int64
	DeadlineMs       int64
	Timestamp        int64
}

func (ComputeTaskRequestMessage) What() What { return WhatComputeTaskRequest }

// I2PRouterAdvertisementMessage advertises I2P tunnel availability.
type I2PRouterAdvertisementMessage struct {
	base
	NodeID             string
	RouterIdentityHash string
	TunnelsAvailable   int32
	Timestamp          int64
}

func (I2PRouterAdvertisementMessage) What() What { return WhatI2PRouterAdvertisement }

// QuorumProposalMessage starts a mesh-wide vote.
type QuorumProposalMessage struct {
	base
	ProposerID    string
	ProposalID    string
	Topic         string
	VotesRequired int32
	Deadline      int64
	Timestamp     int64
}

func (QuorumProposalMessage) What() What { return WhatQuorumProposal }

// NetworkMetricsMessage carries a node's view of mesh-wide role
// populations, feeding the gossip intelligence aggregator.
type NetworkMetricsMessage struct {
	base
	NodeID              string
	ActiveGateways      int32
	ActiveStorageNodes  int32
	ActiveComputeNodes  int32
	TotalNodes          int32
	NetworkLoad         float32
	Timestamp           int64
}

func (NetworkMetricsMessage) What() What { return WhatNetworkMetrics }

// EmergencyBroadcastMessage carries a high-priority, mesh-wide alert.
type EmergencyBroadcastMessage struct {
	base
	NodeID    string
	Severity  uint8
	Message   string
	Timestamp int64
}

func (EmergencyBroadcastMessage) What() What { return WhatEmergencyBroadcast }
