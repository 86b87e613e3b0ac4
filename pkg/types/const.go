package types

import "time"

const (
	// NeutronPrefix is prepended to network and router ids to build the
	// logical switch and logical router names
	NeutronPrefix = "neutron-"

	// LocalnetPortPrefix names the localnet port that attaches a
	// provider network switch to its physical network
	LocalnetPortPrefix = "provnet-"
	// RouterPortPrefix names the logical router port backing a router interface
	RouterPortPrefix = "lrp-"

	// AddressSetPrefix prefixes every security group address set name
	AddressSetPrefix = "as"

	// OVSDB timeout used for all transactions
	OVSDBTimeout     = 10 * time.Second
	OVSDBWaitTimeout = 0
)

// external_ids keys
const (
	NetworkNameExtIDKey       = "neutron:network_name"
	PortNameExtIDKey          = "neutron:port_name"
	RouterNameExtIDKey        = "neutron:router_name"
	SecurityGroupNameExtIDKey = "neutron:security_group_name"
	LPortExtIDKey             = "neutron:lport"
	SubnetIDExtIDKey          = "subnet_id"
	PortIDExtIDKey            = "port_id"

	// BridgeMappingsExtIDKey is the southbound Chassis external_ids key
	// listing physnet:bridge pairs
	BridgeMappingsExtIDKey = "ovn-bridge-mappings"
)

// Network types
const (
	NetworkTypeLocal  = "local"
	NetworkTypeFlat   = "flat"
	NetworkTypeVLAN   = "vlan"
	NetworkTypeGeneve = "geneve"
	NetworkTypeVXLAN  = "vxlan"
	NetworkTypeGRE    = "gre"

	MinVLANTag = 1
	MaxVLANTag = 4094
)

// Port binding
const (
	VNICTypeNormal   = "normal"
	VIFTypeOVS       = "ovs"
	VIFTypeVhostUser = "vhostuser"

	CapPortFilter = "port_filter"

	PortStatusActive = "ACTIVE"
	PortStatusDown   = "DOWN"

	// ProvisioningEntityL2 is the provisioning block owner for layer 2 wiring
	ProvisioningEntityL2 = "L2"

	BindingProfileParentName         = "parent_name"
	BindingProfileTag                = "tag"
	BindingProfileVTEPPhysicalSwitch = "vtep-physical-switch"
	BindingProfileVTEPLogicalSwitch  = "vtep-logical-switch"

	// MaxContainerTag bounds the tag of a port nested in a parent port
	MaxContainerTag = 4095
)

// Logical switch port types and options
const (
	LSPTypeRouter   = "router"
	LSPTypeLocalnet = "localnet"
	LSPTypeVTEP     = "vtep"

	LSPAddressRouter  = "router"
	LSPAddressUnknown = "unknown"

	LSPOptionRouterPort   = "router-port"
	LSPOptionNetworkName  = "network_name"
	LSPOptionVTEPPhysical = "vtep-physical-switch"
	LSPOptionVTEPLogical  = "vtep-logical-switch"
)

// Device owners
const (
	DeviceOwnerRouterInterface = "network:router_interface"
	DeviceOwnerRouterGateway   = "network:router_gateway"
)

// DeviceOwnerPrefixes identify ports owned by network services
var DeviceOwnerPrefixes = []string{"network:", "neutron:"}

// ACL priorities and directions
const (
	ACLPriorityAllow = 1002
	ACLPriorityDrop  = 1001

	SecurityGroupRuleIngress = "ingress"
	SecurityGroupRuleEgress  = "egress"

	EtherTypeIPv4 = "IPv4"
	EtherTypeIPv6 = "IPv6"
)

// DHCP
const (
	DHCPDefaultLeaseTime = 43200
	DHCPDisabledOptName  = "dhcp_disabled"

	IPv6ModeSLAAC            = "slaac"
	IPv6ModeDHCPv6Stateful   = "dhcpv6-stateful"
	IPv6ModeDHCPv6Stateless  = "dhcpv6-stateless"
	DHCPv6StatelessOptionKey = "dhcpv6_stateless"

	DefaultBaseMAC = "fa:16:3e:00:00:00"
)
