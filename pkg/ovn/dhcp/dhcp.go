package dhcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	libovsdbclient "github.com/ovn-kubernetes/libovsdb/client"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/netgroup-polito/ovn-networking/pkg/config"
	"github.com/netgroup-polito/ovn-networking/pkg/cryptorand"
	"github.com/netgroup-polito/ovn-networking/pkg/libovsdb/ops"
	"github.com/netgroup-polito/ovn-networking/pkg/nbdb"
	"github.com/netgroup-polito/ovn-networking/pkg/neutron"
	"github.com/netgroup-polito/ovn-networking/pkg/types"
	"github.com/netgroup-polito/ovn-networking/pkg/util"
)

// MACGenerator returns a new MAC address for a DHCP server
type MACGenerator func() (string, error)

// RandomMAC generates MAC addresses within the configured base MAC
func RandomMAC() (string, error) {
	return cryptorand.MAC(config.OVN.BaseMAC)
}

// Composer builds the DHCP_Options rows of subnets and ports
type Composer struct {
	generateMAC MACGenerator
}

// NewComposer returns a Composer generating server MAC addresses with
// generateMAC, RandomMAC when nil
func NewComposer(generateMAC MACGenerator) *Composer {
	if generateMAC == nil {
		generateMAC = RandomMAC
	}
	return &Composer{generateMAC: generateMAC}
}

// SubnetOptions returns the DHCP_Options row of the subnet. The server MAC
// of existing, the current row of the subnet if any, is kept. A subnet
// without DHCP, IPv4 gateway or DHCPv6 server gets no options.
func (c *Composer) SubnetOptions(subnet *neutron.Subnet, network *neutron.Network, existing *nbdb.DHCPOptions) (*nbdb.DHCPOptions, error) {
	row := &nbdb.DHCPOptions{
		Cidr:        subnet.CIDR,
		Options:     map[string]string{},
		ExternalIDs: map[string]string{types.SubnetIDExtIDKey: subnet.ID},
	}
	if !subnet.EnableDHCP {
		return row, nil
	}
	var err error
	if subnet.IPVersion == 6 {
		row.Options, err = c.dhcpv6Options(subnet, existing)
	} else {
		row.Options, err = c.dhcpv4Options(subnet, network, existing)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compose DHCP options of subnet %s", subnet.ID)
	}
	return row, nil
}

func existingOption(existing *nbdb.DHCPOptions, key string) string {
	if existing == nil {
		return ""
	}
	return existing.Options[key]
}

func (c *Composer) serverMAC(existing *nbdb.DHCPOptions, key string) (string, error) {
	if mac := existingOption(existing, key); mac != "" {
		return mac, nil
	}
	return c.generateMAC()
}

func braceList(values []string) string {
	return "{" + strings.Join(values, ", ") + "}"
}

func (c *Composer) dhcpv4Options(subnet *neutron.Subnet, network *neutron.Network, existing *nbdb.DHCPOptions) (map[string]string, error) {
	if subnet.GatewayIP == "" {
		return map[string]string{}, nil
	}
	mac, err := c.serverMAC(existing, "server_mac")
	if err != nil {
		return nil, err
	}
	options := map[string]string{
		"server_id":  subnet.GatewayIP,
		"server_mac": mac,
		"lease_time": strconv.Itoa(config.OVN.DHCPDefaultLeaseTime),
		"router":     subnet.GatewayIP,
	}
	if network != nil && network.MTU > 0 {
		options["mtu"] = strconv.Itoa(network.MTU)
	}
	if len(subnet.DNSNameservers) > 0 {
		options["dns_server"] = braceList(subnet.DNSNameservers)
	}
	if len(subnet.HostRoutes) > 0 {
		routes := make([]string, 0, len(subnet.HostRoutes)+1)
		for _, route := range subnet.HostRoutes {
			routes = append(routes, route.Destination+","+route.Nexthop)
		}
		routes = append(routes, "0.0.0.0/0,"+subnet.GatewayIP)
		options["classless_static_route"] = braceList(routes)
	}
	return options, nil
}

func (c *Composer) dhcpv6Options(subnet *neutron.Subnet, existing *nbdb.DHCPOptions) (map[string]string, error) {
	if subnet.IPv6AddressMode == types.IPv6ModeSLAAC {
		return map[string]string{}, nil
	}
	serverID, err := c.serverMAC(existing, "server_id")
	if err != nil {
		return nil, err
	}
	options := map[string]string{"server_id": serverID}
	if len(subnet.DNSNameservers) > 0 {
		options["dns_server"] = braceList(subnet.DNSNameservers)
	}
	if subnet.IPv6AddressMode == types.IPv6ModeDHCPv6Stateless {
		options[types.DHCPv6StatelessOptionKey] = "true"
	}
	return options, nil
}

// ExtraOptions are the extra DHCP options of a port for one IP version
type ExtraOptions struct {
	Options  map[string]string
	Disabled bool
}

// ValidateExtraDHCPOpts checks the extra DHCP options of a port
func ValidateExtraDHCPOpts(opts []neutron.ExtraDHCPOpt) error {
	for _, opt := range opts {
		if strings.TrimSpace(opt.OptName) == "" {
			return errors.Wrap(ops.ErrInvalidInput, "extra DHCP option without name")
		}
		if opt.OptValue == "" {
			return errors.Wrapf(ops.ErrInvalidInput, "extra DHCP option %s without value", opt.OptName)
		}
		switch opt.IPVersion {
		case 0, 4, 6:
		default:
			return errors.Wrapf(ops.ErrInvalidInput, "extra DHCP option %s with IP version %d", opt.OptName, opt.IPVersion)
		}
	}
	return nil
}

// ParseExtraDHCPOpts returns the extra DHCP options of the IP version.
// Dashes in option names become underscores. A true dhcp_disabled option
// disables DHCP for the IP version and drops the other options.
func ParseExtraDHCPOpts(opts []neutron.ExtraDHCPOpt, ipVersion int) (*ExtraOptions, error) {
	if err := ValidateExtraDHCPOpts(opts); err != nil {
		return nil, err
	}
	extra := &ExtraOptions{Options: map[string]string{}}
	for _, opt := range opts {
		version := opt.IPVersion
		if version == 0 {
			version = 4
		}
		if version != ipVersion {
			continue
		}
		name := strings.ReplaceAll(strings.TrimSpace(opt.OptName), "-", "_")
		if name == types.DHCPDisabledOptName {
			if strings.EqualFold(opt.OptValue, "true") {
				return &ExtraOptions{Options: map[string]string{}, Disabled: true}, nil
			}
			continue
		}
		extra.Options[name] = opt.OptValue
	}
	return extra, nil
}

// PortOptions is the DHCP_Options row a port links to for one IP version:
// either the row of its subnet, or a row of its own staged by Add
type PortOptions struct {
	UUID string
	Add  *ops.AddDHCPOptions
}

// Ref returns the UUID the port links to. For a row of its own the UUID is
// known once Add is staged.
func (o *PortOptions) Ref() string {
	if o.Add != nil {
		return o.Add.UUID()
	}
	return o.UUID
}

// PortOptions returns the DHCP options the port links to for the IP
// version, nil when it gets none: network device ports, ports with DHCP
// disabled for the version and ports without a subnet serving DHCP.
// A port without extra options links to its subnet row; otherwise a row
// merging the subnet options with the extra ones is created for it.
func (c *Composer) PortOptions(ctx context.Context, nbClient libovsdbclient.Client, port *neutron.Port, ipVersion int) (*PortOptions, error) {
	if util.IsNetworkDevicePort(port.DeviceOwner) {
		return nil, nil
	}
	extra, err := ParseExtraDHCPOpts(port.ExtraDHCPOpts, ipVersion)
	if err != nil {
		return nil, err
	}
	if extra.Disabled {
		klog.V(5).Infof("DHCPv%d disabled on port %s", ipVersion, port.ID)
		return nil, nil
	}
	subnetOpts, err := subnetOptionsForPort(ctx, nbClient, port, ipVersion)
	if err != nil {
		return nil, err
	}
	if subnetOpts == nil {
		return nil, nil
	}
	if len(extra.Options) == 0 {
		return &PortOptions{UUID: subnetOpts.UUID}, nil
	}

	options := map[string]string{}
	for k, v := range subnetOpts.Options {
		options[k] = v
	}
	for k, v := range extra.Options {
		options[k] = v
	}
	externalIDs := map[string]string{}
	for k, v := range subnetOpts.ExternalIDs {
		externalIDs[k] = v
	}
	return &PortOptions{
		Add: &ops.AddDHCPOptions{
			SubnetID:    subnetOpts.ExternalIDs[types.SubnetIDExtIDKey],
			PortID:      port.ID,
			MayExist:    true,
			CIDR:        subnetOpts.Cidr,
			Options:     options,
			ExternalIDs: externalIDs,
		},
	}, nil
}

// subnetOptionsForPort returns the subnet row serving DHCP of the IP
// version to the port. IPv4 takes the row of the first fixed IP subnet
// having one; IPv6 prefers a stateful row over a stateless one.
func subnetOptionsForPort(ctx context.Context, nbClient libovsdbclient.Client, port *neutron.Port, ipVersion int) (*nbdb.DHCPOptions, error) {
	var found []*nbdb.DHCPOptions
	seen := map[string]bool{}
	for _, ip := range port.FixedIPs {
		if util.IPVersion(ip.IPAddress) != ipVersion || seen[ip.SubnetID] {
			continue
		}
		seen[ip.SubnetID] = true
		opts, err := ops.GetSubnetDHCPOptions(ctx, nbClient, ip.SubnetID, false)
		if err != nil {
			return nil, fmt.Errorf("failed to get DHCP options of subnet %s: %w", ip.SubnetID, err)
		}
		// rows without options belong to subnets not serving DHCP
		if opts.Subnet == nil || len(opts.Subnet.Options) == 0 {
			continue
		}
		found = append(found, opts.Subnet)
	}
	if len(found) == 0 {
		return nil, nil
	}
	if ipVersion == 6 {
		for _, opts := range found {
			if opts.Options[types.DHCPv6StatelessOptionKey] != "true" {
				return opts, nil
			}
		}
	}
	return found[0], nil
}
