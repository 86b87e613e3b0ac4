package mechdriver

import (
	"context"

	"github.com/pkg/errors"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"

	"github.com/netgroup-polito/ovn-networking/pkg/libovsdb/ops"
	"github.com/netgroup-polito/ovn-networking/pkg/neutron"
	"github.com/netgroup-polito/ovn-networking/pkg/types"
	"github.com/netgroup-polito/ovn-networking/pkg/util"
)

func validateSegment(segment neutron.Segment) error {
	switch segment.NetworkType {
	case types.NetworkTypeLocal, types.NetworkTypeGeneve:
		return nil
	case types.NetworkTypeFlat:
		if segment.PhysicalNetwork == "" {
			return errors.Wrapf(ErrInvalidInput, "flat segment %s without physical network", segment.ID)
		}
		return nil
	case types.NetworkTypeVLAN:
		if segment.PhysicalNetwork == "" {
			return errors.Wrapf(ErrInvalidInput, "vlan segment %s without physical network", segment.ID)
		}
		if segment.SegmentationID < types.MinVLANTag || segment.SegmentationID > types.MaxVLANTag {
			return errors.Wrapf(ErrInvalidInput, "vlan segment %s with segmentation id %d out of range %d-%d",
				segment.ID, segment.SegmentationID, types.MinVLANTag, types.MaxVLANTag)
		}
		return nil
	}
	return errors.Wrapf(ErrInvalidInput, "unsupported network type %q of segment %s", segment.NetworkType, segment.ID)
}

// validateNetwork checks every segment of the network. The error
// aggregates the failure of each invalid segment.
func validateNetwork(network *neutron.Network) error {
	var errs []error
	for _, segment := range network.Segments {
		if err := validateSegment(segment); err != nil {
			errs = append(errs, err)
		}
	}
	return utilerrors.NewAggregate(errs)
}

// CreateNetworkPrecommit rejects networks with unsupported segments
func (d *Driver) CreateNetworkPrecommit(network *neutron.Network) error {
	return validateNetwork(network)
}

// UpdateNetworkPrecommit rejects networks with unsupported segments
func (d *Driver) UpdateNetworkPrecommit(network *neutron.Network) error {
	return validateNetwork(network)
}

// physicalSegment returns the segment attaching the network to a
// physical network, nil for overlay networks
func physicalSegment(network *neutron.Network) *neutron.Segment {
	for i := range network.Segments {
		segment := &network.Segments[i]
		if segment.PhysicalNetwork != "" &&
			(segment.NetworkType == types.NetworkTypeFlat || segment.NetworkType == types.NetworkTypeVLAN) {
			return segment
		}
	}
	return nil
}

func localnetPortColumns(segment *neutron.Segment) ops.LSPColumns {
	columns := ops.LSPColumns{
		Type:      ptr.To(types.LSPTypeLocalnet),
		Addresses: ptr.To([]string{types.LSPAddressUnknown}),
		Options:   ptr.To(map[string]string{types.LSPOptionNetworkName: segment.PhysicalNetwork}),
	}
	if segment.NetworkType == types.NetworkTypeVLAN {
		columns.TagRequest = ptr.To(segment.SegmentationID)
	}
	return columns
}

// CreateNetworkPostcommit creates the logical switch of the network and,
// for provider networks, the localnet port attaching it to the physical
// network
func (d *Driver) CreateNetworkPostcommit(ctx context.Context, network *neutron.Network) error {
	lswitch := util.OVNName(network.ID)
	cmds := []ops.Command{
		&ops.AddLSwitch{
			Name:        lswitch,
			ExternalIDs: map[string]string{types.NetworkNameExtIDKey: network.Name},
		},
	}
	if segment := physicalSegment(network); segment != nil {
		cmds = append(cmds, &ops.AddLSwitchPort{
			Name:    util.LocalnetPortName(network.ID),
			LSwitch: lswitch,
			Columns: localnetPortColumns(segment),
		})
	}
	if err := d.execute(ctx, "create_network", cmds...); err != nil {
		return errors.Wrapf(err, "failed to create network %s", network.ID)
	}
	klog.Infof("Created logical switch %s for network %s", lswitch, network.ID)
	return nil
}

// UpdateNetworkPostcommit updates the network name of the logical switch
// and the physical network attachment of the localnet port
func (d *Driver) UpdateNetworkPostcommit(ctx context.Context, network *neutron.Network) error {
	cmds := []ops.Command{
		&ops.SetLSwitchExtIDs{
			Name:        util.OVNName(network.ID),
			ExternalIDs: map[string]string{types.NetworkNameExtIDKey: network.Name},
		},
	}
	if segment := physicalSegment(network); segment != nil {
		cmds = append(cmds, &ops.SetLSwitchPort{
			Name:     util.LocalnetPortName(network.ID),
			IfExists: true,
			Columns:  localnetPortColumns(segment),
		})
	}
	if err := d.execute(ctx, "update_network", cmds...); err != nil {
		return errors.Wrapf(err, "failed to update network %s", network.ID)
	}
	return nil
}

// DeleteNetworkPostcommit deletes the logical switch of the network with
// its ports and ACLs
func (d *Driver) DeleteNetworkPostcommit(ctx context.Context, networkID string) error {
	err := d.execute(ctx, "delete_network", &ops.DelLSwitch{Name: util.OVNName(networkID), IfExists: true})
	if err != nil {
		return errors.Wrapf(err, "failed to delete network %s", networkID)
	}
	klog.Infof("Deleted logical switch of network %s", networkID)
	return nil
}
