package neutron

import "github.com/netgroup-polito/ovn-networking/pkg/types"

// Segment is a network segment of a (possibly multi-provider) network
type Segment struct {
	ID              string `json:"id"`
	NetworkID       string `json:"network_id,omitempty"`
	NetworkType     string `json:"network_type"`
	PhysicalNetwork string `json:"physical_network,omitempty"`
	SegmentationID  int    `json:"segmentation_id,omitempty"`
}

// Network is an L2 network, backed by one logical switch
type Network struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	MTU      int       `json:"mtu"`
	Segments []Segment `json:"segments,omitempty"`
}

type HostRoute struct {
	Destination string `json:"destination"`
	Nexthop     string `json:"nexthop"`
}

// Subnet is an IP subnet of a network
type Subnet struct {
	ID              string      `json:"id"`
	NetworkID       string      `json:"network_id"`
	CIDR            string      `json:"cidr"`
	IPVersion       int         `json:"ip_version"`
	EnableDHCP      bool        `json:"enable_dhcp"`
	GatewayIP       string      `json:"gateway_ip,omitempty"`
	DNSNameservers  []string    `json:"dns_nameservers,omitempty"`
	HostRoutes      []HostRoute `json:"host_routes,omitempty"`
	IPv6AddressMode string      `json:"ipv6_address_mode,omitempty"`
}

type FixedIP struct {
	SubnetID  string `json:"subnet_id"`
	IPAddress string `json:"ip_address"`
}

type AllowedAddressPair struct {
	IPAddress  string `json:"ip_address"`
	MACAddress string `json:"mac_address,omitempty"`
}

// ExtraDHCPOpt is a per port DHCP option override. IPVersion is 4 when
// not set.
type ExtraDHCPOpt struct {
	OptName   string `json:"opt_name"`
	OptValue  string `json:"opt_value"`
	IPVersion int    `json:"ip_version,omitempty"`
}

// Port is a network port. PortSecurityEnabled is true when not set.
type Port struct {
	ID                  string                 `json:"id"`
	Name                string                 `json:"name"`
	NetworkID           string                 `json:"network_id"`
	MACAddress          string                 `json:"mac_address"`
	AdminStateUp        *bool                  `json:"admin_state_up,omitempty"`
	Status              string                 `json:"status,omitempty"`
	FixedIPs            []FixedIP              `json:"fixed_ips,omitempty"`
	SecurityGroups      []string               `json:"security_groups,omitempty"`
	PortSecurityEnabled *bool                  `json:"port_security_enabled,omitempty"`
	AllowedAddressPairs []AllowedAddressPair   `json:"allowed_address_pairs,omitempty"`
	ExtraDHCPOpts       []ExtraDHCPOpt         `json:"extra_dhcp_opts,omitempty"`
	DeviceOwner         string                 `json:"device_owner,omitempty"`
	DeviceID            string                 `json:"device_id,omitempty"`
	HostID              string                 `json:"binding:host_id,omitempty"`
	VNICType            string                 `json:"binding:vnic_type,omitempty"`
	Profile             map[string]interface{} `json:"binding:profile,omitempty"`
}

// SecurityGroupRule is a rule of a security group. A nil or -1 port range
// bound, and an empty protocol, ethertype or remote, match anything.
type SecurityGroupRule struct {
	ID              string `json:"id"`
	SecurityGroupID string `json:"security_group_id"`
	Direction       string `json:"direction"`
	EtherType       string `json:"ethertype,omitempty"`
	Protocol        string `json:"protocol,omitempty"`
	PortRangeMin    *int   `json:"port_range_min,omitempty"`
	PortRangeMax    *int   `json:"port_range_max,omitempty"`
	RemoteIPPrefix  string `json:"remote_ip_prefix,omitempty"`
	RemoteGroupID   string `json:"remote_group_id,omitempty"`
}

type SecurityGroup struct {
	ID    string              `json:"id"`
	Name  string              `json:"name"`
	Rules []SecurityGroupRule `json:"security_group_rules,omitempty"`
}

// Router is an L3 router, backed by one logical router
type Router struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	AdminStateUp *bool       `json:"admin_state_up,omitempty"`
	Routes       []HostRoute `json:"routes,omitempty"`
}

// IsAdminStateUp reports the administrative state of the port, up when
// not set
func (p *Port) IsAdminStateUp() bool {
	return p.AdminStateUp == nil || *p.AdminStateUp
}

// IsPortSecurityEnabled reports whether port security applies to the
// port, true when not set
func (p *Port) IsPortSecurityEnabled() bool {
	return p.PortSecurityEnabled == nil || *p.PortSecurityEnabled
}

// GetVNICType returns the requested vnic type, normal when not set
func (p *Port) GetVNICType() string {
	if p.VNICType == "" {
		return types.VNICTypeNormal
	}
	return p.VNICType
}

func (r *Router) IsAdminStateUp() bool {
	return r.AdminStateUp == nil || *r.AdminStateUp
}
