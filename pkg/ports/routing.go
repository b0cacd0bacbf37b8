package ports

// RouteLookup is exposed to external collaborators (socket-factory shims)
// that need to know the next hop toward a virtual address without
// depending on the full routing table implementation.
type RouteLookup interface {
	// FindRoute returns the next-hop virtual address for dst, and false
	// if no route is currently known.
	FindRoute(dst uint32) (nextHop uint32, ok bool)
}

// GatewayMode names how a node routes traffic destined outside the mesh.
type GatewayMode string

const (
	GatewayModeClearnet GatewayMode = "clearnet"
	GatewayModeTor      GatewayMode = "tor"
	GatewayModeI2P      GatewayMode = "i2p"
)

// GatewayPort lets the role manager enable or disable gateway-style
// traffic routing without depending on whichever concrete gateway
// implementation a deployment wires in. A nil GatewayPort means no
// gateway routing is available; role transitions that add a gateway role
// still complete, but only the GATEWAY_ANNOUNCEMENT send path is taken,
// not the local routing enable/disable.
type GatewayPort interface {
	EnableGatewayRouting(mode GatewayMode) error
	DisableGatewayRouting() error
}
