package mechdriver

import (
	"context"

	pkgerrors "github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog/v2"

	"github.com/netgroup-polito/ovn-networking/pkg/config"
	"github.com/netgroup-polito/ovn-networking/pkg/libovsdb/ops"
	"github.com/netgroup-polito/ovn-networking/pkg/metrics"
	"github.com/netgroup-polito/ovn-networking/pkg/neutron"
	"github.com/netgroup-polito/ovn-networking/pkg/types"
)

var bindableNetworkTypes = sets.New(
	types.NetworkTypeLocal,
	types.NetworkTypeFlat,
	types.NetworkTypeVLAN,
	types.NetworkTypeGeneve,
)

func isPhysicalNetworkType(networkType string) bool {
	return networkType == types.NetworkTypeFlat || networkType == types.NetworkTypeVLAN
}

// BindPort binds the port to the first segment the chassis of its host can
// reach. Physical segments need the host bridge mappings to carry their
// physical network. A port left unbound is retried by the caller with
// other drivers.
func (d *Driver) BindPort(ctx context.Context, portContext neutron.PortContext) {
	defer observe("bind_port")()
	port := portContext.Current()
	if vnicType := port.GetVNICType(); vnicType != types.VNICTypeNormal {
		klog.V(5).Infof("Refusing to bind port %s with unsupported vnic type %s", port.ID, vnicType)
		metrics.MetricPortBindings.WithLabelValues(metrics.BindUnsupportedVNIC).Inc()
		return
	}

	host := portContext.Host()
	chassis, err := ops.GetChassisByHostname(ctx, d.sbClient, host)
	if err != nil {
		klog.Warningf("Refusing to bind port %s: no chassis for host %s: %v", port.ID, host, err)
		metrics.MetricPortBindings.WithLabelValues(metrics.BindNoChassis).Inc()
		return
	}
	bridgeMappings := ops.GetBridgeMappings(chassis)

	for _, segment := range portContext.SegmentsToBind() {
		if !bindableNetworkTypes.Has(segment.NetworkType) {
			klog.V(5).Infof("Skipping segment %s of unsupported type %s", segment.ID, segment.NetworkType)
			continue
		}
		if isPhysicalNetworkType(segment.NetworkType) {
			if _, ok := bridgeMappings[segment.PhysicalNetwork]; !ok {
				klog.V(5).Infof("Skipping segment %s: host %s has no bridge mapping for %s",
					segment.ID, host, segment.PhysicalNetwork)
				continue
			}
		}
		portContext.SetBinding(segment.ID, config.OVN.VIFType, map[string]interface{}{types.CapPortFilter: true})
		klog.Infof("Bound port %s to segment %s on host %s", port.ID, segment.ID, host)
		metrics.MetricPortBindings.WithLabelValues(metrics.BindBound).Inc()
		return
	}
	klog.Warningf("Refusing to bind port %s: no segment reachable from host %s", port.ID, host)
	metrics.MetricPortBindings.WithLabelValues(metrics.BindNoSegment).Inc()
}

// UpdateSegmentHostMapping maps the host to every physical segment on one
// of physnets
func (d *Driver) UpdateSegmentHostMapping(ctx context.Context, host string, physnets []string) error {
	if host == "" {
		return nil
	}
	segments, err := d.plugin.GetSegmentsWithPhysnets(ctx, physnets)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to get segments of host %s", host)
	}
	ids := []string{}
	for _, segment := range segments {
		if isPhysicalNetworkType(segment.NetworkType) {
			ids = append(ids, segment.ID)
		}
	}
	klog.V(5).Infof("Mapping host %s to segments %v", host, ids)
	return d.plugin.UpdateSegmentHostMapping(ctx, host, ids)
}

// AddSegmentHostMappingForSegment maps a new segment to every host whose
// chassis reaches its physical network
func (d *Driver) AddSegmentHostMappingForSegment(ctx context.Context, segment *neutron.Segment) error {
	if segment.PhysicalNetwork == "" {
		return nil
	}
	hosts, err := ops.GetHostnamesForPhysnet(ctx, d.sbClient, segment.PhysicalNetwork)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to get hosts of physical network %s", segment.PhysicalNetwork)
	}
	if len(hosts) == 0 {
		return nil
	}
	return d.plugin.MapSegmentToHosts(ctx, segment.ID, hosts)
}

// SyncSegmentHostMappings maps every host with a chassis to the physical
// segments it reaches
func (d *Driver) SyncSegmentHostMappings(ctx context.Context) error {
	physnets, err := ops.GetChassisPhysnets(ctx, d.sbClient)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to get chassis physical networks")
	}
	for host, nets := range physnets {
		if err := d.UpdateSegmentHostMapping(ctx, host, sets.List(nets)); err != nil {
			return err
		}
	}
	return nil
}
