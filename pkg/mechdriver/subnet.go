package mechdriver

import (
	"context"

	pkgerrors "github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/netgroup-polito/ovn-networking/pkg/config"
	"github.com/netgroup-polito/ovn-networking/pkg/libovsdb/ops"
	"github.com/netgroup-polito/ovn-networking/pkg/nbdb"
	"github.com/netgroup-polito/ovn-networking/pkg/neutron"
	"github.com/netgroup-polito/ovn-networking/pkg/ovn/dhcp"
	"github.com/netgroup-polito/ovn-networking/pkg/types"
)

// GetOVNDHCPOptions returns the DHCP_Options rows of the subnet, with
// the rows of its ports
func (d *Driver) GetOVNDHCPOptions(ctx context.Context, subnetID string) (*ops.SubnetDHCPOptions, error) {
	opts, err := ops.GetSubnetDHCPOptions(ctx, d.nbClient, subnetID, true)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get DHCP options of subnet %s", subnetID)
	}
	return opts, nil
}

// GetPortDHCPOptions returns the DHCP options the port links to for the
// IP version, nil if none
func (d *Driver) GetPortDHCPOptions(ctx context.Context, port *neutron.Port, ipVersion int) (*dhcp.PortOptions, error) {
	return d.dhcp.PortOptions(ctx, d.nbClient, port, ipVersion)
}

// portExtraOptions returns the options of a port row overriding the
// options of the subnet row it was derived from
func portExtraOptions(port, subnet *nbdb.DHCPOptions) map[string]string {
	extra := map[string]string{}
	for k, v := range port.Options {
		if subnet == nil || subnet.Options[k] != v {
			extra[k] = v
		}
	}
	return extra
}

// subnetDHCPCommands returns the commands writing the DHCP options of the
// subnet. The port rows derived from the subnet row are rebased on the new
// subnet options, keeping their own overrides.
func (d *Driver) subnetDHCPCommands(ctx context.Context, subnet *neutron.Subnet, network *neutron.Network) ([]ops.Command, error) {
	existing, err := ops.GetSubnetDHCPOptions(ctx, d.nbClient, subnet.ID, true)
	if err != nil {
		return nil, err
	}
	row, err := d.dhcp.SubnetOptions(subnet, network, existing.Subnet)
	if err != nil {
		return nil, err
	}
	cmds := []ops.Command{
		&ops.AddDHCPOptions{
			SubnetID:    subnet.ID,
			MayExist:    true,
			CIDR:        row.Cidr,
			Options:     row.Options,
			ExternalIDs: row.ExternalIDs,
		},
	}
	for _, portRow := range existing.Ports {
		options := map[string]string{}
		for k, v := range row.Options {
			options[k] = v
		}
		for k, v := range portExtraOptions(portRow, existing.Subnet) {
			options[k] = v
		}
		cmds = append(cmds, &ops.AddDHCPOptions{
			SubnetID:    subnet.ID,
			PortID:      portRow.ExternalIDs[types.PortIDExtIDKey],
			MayExist:    true,
			CIDR:        row.Cidr,
			Options:     options,
			ExternalIDs: portRow.ExternalIDs,
		})
	}
	return cmds, nil
}

// CreateSubnetPostcommit creates the DHCP options of the subnet when OVN
// serves DHCP
func (d *Driver) CreateSubnetPostcommit(ctx context.Context, subnet *neutron.Subnet, network *neutron.Network) error {
	if !config.OVN.NativeDHCP {
		return nil
	}
	cmds, err := d.subnetDHCPCommands(ctx, subnet, network)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to compose DHCP options of subnet %s", subnet.ID)
	}
	if err := d.execute(ctx, "create_subnet", cmds...); err != nil {
		return pkgerrors.Wrapf(err, "failed to create subnet %s", subnet.ID)
	}
	klog.Infof("Created DHCP options of subnet %s", subnet.ID)
	return nil
}

// UpdateSubnetPostcommit rewrites the DHCP options of the subnet and of
// the ports overriding them
func (d *Driver) UpdateSubnetPostcommit(ctx context.Context, subnet *neutron.Subnet, network *neutron.Network) error {
	if !config.OVN.NativeDHCP {
		return nil
	}
	cmds, err := d.subnetDHCPCommands(ctx, subnet, network)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to compose DHCP options of subnet %s", subnet.ID)
	}
	if err := d.execute(ctx, "update_subnet", cmds...); err != nil {
		return pkgerrors.Wrapf(err, "failed to update subnet %s", subnet.ID)
	}
	return nil
}

// DeleteSubnetPostcommit deletes the DHCP options of the subnet and of its
// ports
func (d *Driver) DeleteSubnetPostcommit(ctx context.Context, subnetID string) error {
	if !config.OVN.NativeDHCP {
		return nil
	}
	existing, err := ops.GetSubnetDHCPOptions(ctx, d.nbClient, subnetID, true)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to get DHCP options of subnet %s", subnetID)
	}
	var cmds []ops.Command
	if existing.Subnet != nil {
		cmds = append(cmds, &ops.DelDHCPOptions{UUID: existing.Subnet.UUID, IfExists: true})
	}
	for _, row := range existing.Ports {
		cmds = append(cmds, &ops.DelDHCPOptions{UUID: row.UUID, IfExists: true})
	}
	if err := d.execute(ctx, "delete_subnet", cmds...); err != nil {
		return pkgerrors.Wrapf(err, "failed to delete subnet %s", subnetID)
	}
	return nil
}
