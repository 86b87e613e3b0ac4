package server

import (
	"github.com/netgroup-polito/ovn-networking/pkg/nbdb"
	"github.com/netgroup-polito/ovn-networking/pkg/neutron"
)

// Request is the body of an API call. It carries the resources the call
// works on, plus the orchestrator state the driver may look up while
// serving it: known ports, security groups and subnets (Caches) and
// segments.
type Request struct {
	Network           *neutron.Network           `json:"network,omitempty"`
	Subnet            *neutron.Subnet            `json:"subnet,omitempty"`
	Port              *neutron.Port              `json:"port,omitempty"`
	OriginalPort      *neutron.Port              `json:"original_port,omitempty"`
	SecurityGroup     *neutron.SecurityGroup     `json:"security_group,omitempty"`
	SecurityGroupRule *neutron.SecurityGroupRule `json:"security_group_rule,omitempty"`
	Router            *neutron.Router            `json:"router,omitempty"`
	OriginalRouter    *neutron.Router            `json:"original_router,omitempty"`

	// Host and OriginalHost are the binding hosts of Port and OriginalPort
	Host         string `json:"host,omitempty"`
	OriginalHost string `json:"original_host,omitempty"`
	// Status is the port status to report, ACTIVE or DOWN
	Status string `json:"status,omitempty"`
	// IPVersion selects the DHCP options of a port lookup
	IPVersion int `json:"ip_version,omitempty"`
	// Physnets are the physical networks reachable by a host
	Physnets []string `json:"physnets,omitempty"`
	// Segment is a segment to map to the hosts reaching it
	Segment *neutron.Segment `json:"segment,omitempty"`

	Ports    []*neutron.Port   `json:"ports,omitempty"`
	Segments []neutron.Segment `json:"segments,omitempty"`
	Caches   *neutron.Caches   `json:"caches,omitempty"`
}

// Binding is the binding the driver chose for a port
type Binding struct {
	SegmentID  string                 `json:"segment_id"`
	VIFType    string                 `json:"vif_type"`
	VIFDetails map[string]interface{} `json:"vif_details,omitempty"`
}

// ProvisioningEvent is a provisioning block the driver added, or removed
// when Complete is set
type ProvisioningEvent struct {
	PortID   string `json:"port_id"`
	Entity   string `json:"entity"`
	Complete bool   `json:"complete"`
}

// DHCPOptions is a DHCP_Options row
type DHCPOptions struct {
	UUID        string            `json:"uuid"`
	CIDR        string            `json:"cidr"`
	Options     map[string]string `json:"options"`
	ExternalIDs map[string]string `json:"external_ids"`
}

func newDHCPOptions(row *nbdb.DHCPOptions) *DHCPOptions {
	if row == nil {
		return nil
	}
	return &DHCPOptions{
		UUID:        row.UUID,
		CIDR:        row.Cidr,
		Options:     row.Options,
		ExternalIDs: row.ExternalIDs,
	}
}

// SubnetDHCPOptions are the DHCP_Options rows of a subnet and its ports
type SubnetDHCPOptions struct {
	Subnet *DHCPOptions   `json:"subnet,omitempty"`
	Ports  []*DHCPOptions `json:"ports"`
}

// PortDHCPOptions is the DHCP options a port links to. UUID is empty when
// the port would get a row of its own, whose options are then in Options.
type PortDHCPOptions struct {
	UUID    string            `json:"uuid,omitempty"`
	Options map[string]string `json:"options,omitempty"`
}

// Response is the body of an API reply: the decisions the driver took
// while serving the call
type Response struct {
	RequestID            string              `json:"request_id"`
	Error                string              `json:"error,omitempty"`
	Binding              *Binding            `json:"binding,omitempty"`
	Provisioning         []ProvisioningEvent `json:"provisioning,omitempty"`
	ProvisioningRequired *bool               `json:"provisioning_required,omitempty"`
	HostSegments         map[string][]string `json:"host_segments,omitempty"`
	SegmentHosts         map[string][]string `json:"segment_hosts,omitempty"`
	SubnetDHCPOptions    *SubnetDHCPOptions  `json:"subnet_dhcp_options,omitempty"`
	PortDHCPOptions      *PortDHCPOptions    `json:"port_dhcp_options,omitempty"`
}
