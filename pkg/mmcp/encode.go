package mmcp

// Encode serializes msg to its wire frame: what:u8 | messageId:u32 | body.
// Encode is total over every Message implementation declared in this
// package; there is no invalid in-memory value that fails to encode.
func Encode(msg Message) []byte {
	w := newWriter()
	w.u8(uint8(msg.What()))
	w.u32(msg.MessageID())
	encodeBody(w, msg)
	return w.bytes()
}

func encodeBody(w *writer, msg Message) {
	switch m := msg.(type) {
	case *OriginatorMessage:
		w.i32(m.FitnessScore)
		w.u8(m.NodeRole)
		w.i64(m.SentTime)
		w.i32(m.NeighborCount)
		w.i32Slice(m.Neighbors)
		w.f32(m.CentralityScore)

	case *PingMessage:
		// empty body

	case *PongMessage:
		w.i32(m.ReplyToMessageID)

	case *HeartbeatMessage:
		w.str(m.NodeID)
		w.i64(m.Timestamp)

	case *NodeAnnouncementMessage:
		w.str(m.NodeID)
		w.enum32(int32(m.NodeType))
		w.f32(m.Fitness)
		w.f32(m.Centrality)
		roleOrdinals := make([]int32, len(m.Roles))
		for i, r := range m.Roles {
			roleOrdinals[i] = int32(r)
		}
		w.enum32Slice(roleOrdinals)
		encodeResources(w, m.Resources)
		encodeBattery(w, m.Battery)
		w.enum32(int32(m.Thermal))
		w.i64(m.Timestamp)
		w.i64(m.SentTime)
		w.strSlice(m.Neighbors)

	case *GatewayAnnouncementMessage:
		w.str(m.NodeID)
		w.u8(uint8(m.GatewayType))
		w.f32(m.UploadMbps)
		w.f32(m.DownloadMbps)
		w.i32(m.AvgLatencyMs)
		w.i32(m.JitterMs)
		w.bool(m.IsActive)
		w.str(m.Protocols)
		w.i64(m.Timestamp)

	case *StorageAdvertisementMessage:
		w.str(m.NodeID)
		w.i64(m.CapacityBytes)
		w.i64(m.UsedBytes)
		w.i32(m.ReplicationFactor)
		w.i64(m.Timestamp)

	case *ServiceAdvertisementMessage:
		w.str(m.NodeID)
		w.str(m.ServiceName)
		w.enum32(int32(m.ServiceRole))
		w.i32(m.EndpointPort)
		w.i64(m.Timestamp)

	case *ComputeTaskRequestMessage:
		w.str(m.NodeID)
		w.str(m.TaskID)
		w.f32(m.RequiredCPU)
		w.i64(m.RequiredRAMBytes)
		w.i64(m.DeadlineMs)
		w.i64(m.Timestamp)

	case *I2PRouterAdvertisementMessage:
		w.str(m.NodeID)
		w.str(m.RouterIdentityHash)
		w.i32(m.TunnelsAvailable)
		w.i64(m.Timestamp)

	case *QuorumProposalMessage:
		w.str(m.ProposerID)
		w.str(m.ProposalID)
		w.str(m.Topic)
		w.i32(m.VotesRequired)
		w.i64(m.Deadline)
		w.i64(m.Timestamp)

	case *NetworkMetricsMessage:
		w.str(m.NodeID)
		w.i32(m.ActiveGateways)
		w.i32(m.ActiveStorageNodes)
		w.i32(m.ActiveComputeNodes)
		w.i32(m.TotalNodes)
		w.f32(m.NetworkLoad)
		w.i64(m.Timestamp)

	case *EmergencyBroadcastMessage:
		w.str(m.NodeID)
		w.u8(m.Severity)
		w.str(m.Message)
		w.i64(m.Timestamp)

	default:
		// Unreachable for the closed set of Message implementations this
		// package declares; a nil/empty body is still well-formed.
	}
}

func encodeResources(w *writer, r ResourceSnapshot) {
	w.f32(r.AvailableCPU)
	w.i64(r.AvailableRAM)
	w.i64(r.AvailableBandwidth)
	w.i64(r.StorageOffered)
	w.i32(r.BatteryLevel)
	w.bool(r.ThermalThrottling)
	w.enum32(int32(r.PowerState))
	w.u32(uint32(len(r.NetworkInterfaces)))
	for _, iface := range r.NetworkInterfaces {
		w.str(iface.Name)
	}
}

func encodeBattery(w *writer, b BatteryInfo) {
	w.i32(b.Level)
	w.bool(b.IsCharging)
	w.i32(b.TemperatureCelsius)
	w.enum32(int32(b.Health))
	w.enumOrNone32(int32(b.ChargingSource), b.HasChargingSource)
}
