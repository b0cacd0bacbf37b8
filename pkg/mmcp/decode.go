package mmcp

import "fmt"

// Decode parses a wire frame into a Message, or a wrapped CodecError
// sentinel (ErrUnknownTag, ErrTruncated, ErrBadUTF8, ErrEnumOutOfRange)
// on malformed input. An unknown What tag is reported without attempting
// to read a body, since its layout is by definition unknown.
func Decode(data []byte) (Message, error) {
	r := newReader(data)

	whatByte, err := r.u8()
	if err != nil {
		return nil, fmt.Errorf("%w: missing what byte", ErrTruncated)
	}
	what := What(whatByte)
	if !what.valid() {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownTag, whatByte)
	}

	id, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("%w: missing messageId", ErrTruncated)
	}
	b := base{ID: id}

	switch what {
	case WhatOriginator:
		return decodeOriginator(r, b)
	case WhatPing:
		return &PingMessage{base: b}, nil
	case WhatPong:
		return decodePong(r, b)
	case WhatHeartbeat:
		return decodeHeartbeat(r, b)
	case WhatNodeAnnouncement:
		return decodeNodeAnnouncement(r, b)
	case WhatGatewayAnnouncement:
		return decodeGatewayAnnouncement(r, b)
	case WhatStorageAdvertisement:
		return decodeStorageAdvertisement(r, b)
	case WhatServiceAdvertisement:
		return decodeServiceAdvertisement(r, b)
	case WhatComputeTaskRequest:
		return decodeComputeTaskRequest(r, b)
	case WhatI2PRouterAdvertisement:
		return decodeI2PRouterAdvertisement(r, b)
	case WhatQuorumProposal:
		return decodeQuorumProposal(r, b)
	case WhatNetworkMetrics:
		return decodeNetworkMetrics(r, b)
	case WhatEmergencyBroadcast:
		return decodeEmergencyBroadcast(r, b)
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownTag, whatByte)
	}
}

// decodeOriginator treats everything after sentTime as optional trailing
// fields: a truncated buffer yields zero/empty values rather than an
// error, so a future encoder can append fields without breaking old
// decoders.
func decodeOriginator(r *reader, b base) (Message, error) {
	m := &OriginatorMessage{base: b}

	fitness, err := r.i32()
	if err != nil {
		return nil, err
	}
	m.FitnessScore = fitness

	role, err := r.u8()
	if err != nil {
		return nil, err
	}
	m.NodeRole = role

	sentTime, err := r.i64()
	if err != nil {
		return nil, err
	}
	m.SentTime = sentTime

	if r.remaining() == 0 {
		return m, nil
	}
	neighborCount, err := r.i32()
	if err != nil {
		return nil, err
	}
	m.NeighborCount = neighborCount

	if r.remaining() == 0 {
		return m, nil
	}
	neighbors, err := r.i32Slice()
	if err != nil {
		return nil, err
	}
	m.Neighbors = neighbors

	if r.remaining() == 0 {
		return m, nil
	}
	centrality, err := r.f32()
	if err != nil {
		return nil, err
	}
	m.CentralityScore = centrality

	return m, nil
}

func decodePong(r *reader, b base) (Message, error) {
	replyTo, err := r.i32()
	if err != nil {
		return nil, err
	}
	return &PongMessage{base: b, ReplyToMessageID: replyTo}, nil
}

func decodeHeartbeat(r *reader, b base) (Message, error) {
	nodeID, err := r.str()
	if err != nil {
		return nil, err
	}
	ts, err := r.i64()
	if err != nil {
		return nil, err
	}
	return &HeartbeatMessage{base: b, NodeID: nodeID, Timestamp: ts}, nil
}

func decodeResources(r *reader) (ResourceSnapshot, error) {
	var res ResourceSnapshot
	var err error

	if res.AvailableCPU, err = r.f32(); err != nil {
		return res, err
	}
	if res.AvailableRAM, err = r.i64(); err != nil {
		return res, err
	}
	if res.AvailableBandwidth, err = r.i64(); err != nil {
		return res, err
	}
	if res.StorageOffered, err = r.i64(); err != nil {
		return res, err
	}
	if res.BatteryLevel, err = r.i32(); err != nil {
		return res, err
	}
	if res.ThermalThrottling, err = r.boolean(); err != nil {
		return res, err
	}
	powerState, err := r.enum32(int32(PowerSaveMode))
	if err != nil {
		return res, err
	}
	res.PowerState = PowerState(powerState)

	n, err := r.u32()
	if err != nil {
		return res, err
	}
	if n > 0 {
		res.NetworkInterfaces = make([]NetworkInterfaceInfo, 0, n)
	}
	for i := uint32(0); i < n; i++ {
		name, err := r.str()
		if err != nil {
			return res, err
		}
		res.NetworkInterfaces = append(res.NetworkInterfaces, NetworkInterfaceInfo{Name: name})
	}
	return res, nil
}

func decodeBattery(r *reader) (BatteryInfo, error) {
	var bat BatteryInfo
	var err error

	if bat.Level, err = r.i32(); err != nil {
		return bat, err
	}
	if bat.IsCharging, err = r.boolean(); err != nil {
		return bat, err
	}
	if bat.TemperatureCelsius, err = r.i32(); err != nil {
		return bat, err
	}
	health, err := r.enum32(int32(BatteryPoor))
	if err != nil {
		return bat, err
	}
	bat.Health = BatteryHealth(health)

	source, present, err := r.enumOrNone32(int32(ChargingUnknown))
	if err != nil {
		return bat, err
	}
	bat.HasChargingSource = present
	if present {
		bat.ChargingSource = ChargingSource(source)
	}
	return bat, nil
}

func decodeNodeAnnouncement(r *reader, b base) (Message, error) {
	m := &NodeAnnouncementMessage{base: b}
	var err error

	if m.NodeID, err = r.str(); err != nil {
		return nil, err
	}
	nodeType, err := r.enum32(int32(NodeTypeComputer))
	if err != nil {
		return nil, err
	}
	m.NodeType = NodeType(nodeType)

	if m.Fitness, err = r.f32(); err != nil {
		return nil, err
	}
	if m.Centrality, err = r.f32(); err != nil {
		return nil, err
	}

	roleOrdinals, err := r.i32Slice()
	if err != nil {
		return nil, err
	}
	if len(roleOrdinals) > 0 {
		m.Roles = make([]Role, 0, len(roleOrdinals))
	}
	for _, ord := range roleOrdinals {
		if ord < 0 || ord > int32(RoleServiceRegistry) {
			return nil, fmt.Errorf("%w: role %d", ErrEnumOutOfRange, ord)
		}
		m.Roles = append(m.Roles, Role(ord))
	}

	if m.Resources, err = decodeResources(r); err != nil {
		return nil, err
	}
	if m.Battery, err = decodeBattery(r); err != nil {
		return nil, err
	}

	thermal, err := r.enum32(int32(ThermalCritical))
	if err != nil {
		return nil, err
	}
	m.Thermal = ThermalState(thermal)

	if m.Timestamp, err = r.i64(); err != nil {
		return nil, err
	}
	if m.SentTime, err = r.i64(); err != nil {
		return nil, err
	}
	if m.Neighbors, err = r.strSlice(); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeGatewayAnnouncement(r *reader, b base) (Message, error) {
	m := &GatewayAnnouncementMessage{base: b}
	var err error

	if m.NodeID, err = r.str(); err != nil {
		return nil, err
	}
	gt, err := r.u8()
	if err != nil {
		return nil, err
	}
	gatewayType := GatewayType(gt)
	if !gatewayType.valid() {
		return nil, fmt.Errorf("%w: gateway type %d", ErrEnumOutOfRange, gt)
	}
	m.GatewayType = gatewayType

	if m.UploadMbps, err = r.f32(); err != nil {
		return nil, err
	}
	if m.DownloadMbps, err = r.f32(); err != nil {
		return nil, err
	}
	if m.AvgLatencyMs, err = r.i32(); err != nil {
		return nil, err
	}
	if m.JitterMs, err = r.i32(); err != nil {
		return nil, err
	}
	if m.IsActive, err = r.boolean(); err != nil {
		return nil, err
	}
	if m.Protocols, err = r.str(); err != nil {
		return nil, err
	}
	if m.Timestamp, err = r.i64(); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeStorageAdvertisement(r *reader, b base) (Message, error) {
	m := &StorageAdvertisementMessage{base: b}
	var err error
	if m.NodeID, err = r.str(); err != nil {
		return nil, err
	}
	if m.CapacityBytes, err = r.i64(); err != nil {
		return nil, err
	}
	if m.UsedBytes, err = r.i64(); err != nil {
		return nil, err
	}
	if m.ReplicationFactor, err = r.i32(); err != nil {
		return nil, err
	}
	if m.Timestamp, err = r.i64(); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeServiceAdvertisement(r *reader, b base) (Message, error) {
	m := &ServiceAdvertisementMessage{base: b}
	var err error
	if m.NodeID, err = r.str(); err != nil {
		return nil, err
	}
	if m.ServiceName, err = r.str(); err != nil {
		return nil, err
	}
	role, err := r.enum32(int32(RoleServiceRegistry))
	if err != nil {
		return nil, err
	}
	m.ServiceRole = Role(role)
	if m.EndpointPort, err = r.i32(); err != nil {
		return nil, err
	}
	if m.Timestamp, err = r.i64(); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeComputeTaskRequest(r *reader, b base) (Message, error) {
	m := &ComputeTaskRequestMessage{base: b}
	var err error
	if m.NodeID, err = r.str(); err != nil {
		return nil, err
	}
	if m.TaskID, err = r.str(); err != nil {
		return nil, err
	}
	if m.RequiredCPU, err = r.f32(); err != nil {
		return nil, err
	}
	if m.RequiredRAMBytes, err = r.i64(); err != nil {
		return nil, err
	}
	if m.DeadlineMs, err = r.i64(); err != nil {
		return nil, err
	}
	if m.Timestamp, err = r.i64(); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeI2PRouterAdvertisement(r *reader, b base) (Message, error) {
	m := &I2PRouterAdvertisementMessage{base: b}
	var err error
	if m.NodeID, err = r.str(); err != nil {
		return nil, err
	}
	if m.RouterIdentityHash, err = r.str(); err != nil {
		return nil, err
	}
	if m.TunnelsAvailable, err = r.i32(); err != nil {
		return nil, err
	}
	if m.Timestamp, err = r.i64(); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeQuorumProposal(r *reader, b base) (Message, error) {
	m := &QuorumProposalMessage{base: b}
	var err error
	if m.ProposerID, err = r.str(); err != nil {
		return nil, err
	}
	if m.ProposalID, err = r.str(); err != nil {
		return nil, err
	}
	if m.Topic, err = r.str(); err != nil {
		return nil, err
	}
	if m.VotesRequired, err = r.i32(); err != nil {
		return nil, err
	}
	if m.Deadline, err = r.i64(); err != nil {
		return nil, err
	}
	if m.Timestamp, err = r.i64(); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeNetworkMetrics(r *reader, b base) (Message, error) {
	m := &NetworkMetricsMessage{base: b}
	var err error
	if m.NodeID, err = r.str(); err != nil {
		return nil, err
	}
	if m.ActiveGateways, err = r.i32(); err != nil {
		return nil, err
	}
	if m.ActiveStorageNodes, err = r.i32(); err != nil {
		return nil, err
	}
	if m.ActiveComputeNodes, err = r.i32(); err != nil {
		return nil, err
	}
	if m.TotalNodes, err = r.i32(); err != nil {
		return nil, err
	}
	if m.NetworkLoad, err = r.f32(); err != nil {
		return nil, err
	}
	if m.Timestamp, err = r.i64(); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeEmergencyBroadcast(r *reader, b base) (Message, error) {
	m := &EmergencyBroadcastMessage{base: b}
	var err error
	if m.NodeID, err = r.str(); err != nil {
		return nil, err
	}
	sev, err := r.u8()
	if err != nil {
		return nil, err
	}
	m.Severity = sev
	if m.Message, err = r.str(); err != nil {
		return nil, err
	}
	if m.Timestamp, err = r.i64(); err != nil {
		return nil, err
	}
	return m, nil
}
