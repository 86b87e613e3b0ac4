package mechdriver

import (
	"context"

	pkgerrors "github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog/v2"
	"k8s.io/utils/ptr"

	"github.com/netgroup-polito/ovn-networking/pkg/libovsdb/ops"
	"github.com/netgroup-polito/ovn-networking/pkg/neutron"
	"github.com/netgroup-polito/ovn-networking/pkg/types"
	"github.com/netgroup-polito/ovn-networking/pkg/util"
)

func routerExtIDs(router *neutron.Router) map[string]string {
	return map[string]string{types.RouterNameExtIDKey: router.Name}
}

func staticRoutes(routes []neutron.HostRoute) sets.Set[ops.StaticRoute] {
	result := sets.New[ops.StaticRoute]()
	for _, route := range routes {
		result.Insert(ops.StaticRoute{IPPrefix: route.Destination, Nexthop: route.Nexthop})
	}
	return result
}

// sortedRoutes returns the routes ordered by prefix, then nexthop
func sortedRoutes(routes sets.Set[ops.StaticRoute]) []ops.StaticRoute {
	keys := sets.New[string]()
	byKey := map[string]ops.StaticRoute{}
	for route := range routes {
		key := route.IPPrefix + " " + route.Nexthop
		keys.Insert(key)
		byKey[key] = route
	}
	result := make([]ops.StaticRoute, 0, len(routes))
	for _, key := range sets.List(keys) {
		result = append(result, byKey[key])
	}
	return result
}

// CreateRouter creates the logical router of the router with its static
// routes
func (d *Driver) CreateRouter(ctx context.Context, router *neutron.Router) error {
	lrouter := util.OVNName(router.ID)
	cmds := []ops.Command{
		&ops.AddLRouter{
			Name:        lrouter,
			Enabled:     ptr.To(router.IsAdminStateUp()),
			ExternalIDs: routerExtIDs(router),
		},
	}
	for _, route := range sortedRoutes(staticRoutes(router.Routes)) {
		cmds = append(cmds, &ops.AddStaticRoute{LRouter: lrouter, IPPrefix: route.IPPrefix, Nexthop: route.Nexthop})
	}
	if err := d.execute(ctx, "create_router", cmds...); err != nil {
		return pkgerrors.Wrapf(err, "failed to create router %s", router.ID)
	}
	klog.Infof("Created logical router %s", lrouter)
	return nil
}

// UpdateRouter updates the name and state of the logical router and
// applies the difference between the original and current static routes
func (d *Driver) UpdateRouter(ctx context.Context, router, original *neutron.Router) error {
	lrouter := util.OVNName(router.ID)
	cmds := []ops.Command{
		&ops.UpdateLRouter{
			Name:        lrouter,
			Enabled:     ptr.To(router.IsAdminStateUp()),
			ExternalIDs: routerExtIDs(router),
		},
	}
	current := staticRoutes(router.Routes)
	previous := sets.New[ops.StaticRoute]()
	if original != nil {
		previous = staticRoutes(original.Routes)
	}
	add, remove := current.Difference(previous), previous.Difference(current)
	if add.Len() > 0 || remove.Len() > 0 {
		cmds = append(cmds, &ops.UpdateStaticRoutes{
			LRouter: lrouter,
			Add:     sortedRoutes(add),
			Remove:  sortedRoutes(remove),
		})
	}
	if err := d.execute(ctx, "update_router", cmds...); err != nil {
		return pkgerrors.Wrapf(err, "failed to update router %s", router.ID)
	}
	return nil
}

// DeleteRouter deletes the logical router with its ports and routes
func (d *Driver) DeleteRouter(ctx context.Context, routerID string) error {
	if err := d.execute(ctx, "delete_router", &ops.DelLRouter{Name: util.OVNName(routerID), IfExists: true}); err != nil {
		return pkgerrors.Wrapf(err, "failed to delete router %s", routerID)
	}
	klog.Infof("Deleted logical router of router %s", routerID)
	return nil
}

// routerPortNetworks returns the fixed IPs of the port with the prefix
// length of their subnet
func (d *Driver) routerPortNetworks(ctx context.Context, port *neutron.Port, caches *neutron.Caches) ([]string, error) {
	networks := make([]string, 0, len(port.FixedIPs))
	for _, ip := range port.FixedIPs {
		subnet, err := caches.GetSubnet(ctx, d.plugin, ip.SubnetID)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to get subnet %s", ip.SubnetID)
		}
		network, err := util.IPWithPrefixLen(ip.IPAddress, subnet.CIDR)
		if err != nil {
			return nil, pkgerrors.Wrapf(ErrInvalidInput, "fixed IP of port %s: %v", port.ID, err)
		}
		networks = append(networks, network)
	}
	return networks, nil
}

// AddRouterInterface connects the router to the network of port: a new
// router port peers with the logical switch port
func (d *Driver) AddRouterInterface(ctx context.Context, routerID string, port *neutron.Port, caches *neutron.Caches) error {
	if caches == nil {
		caches = neutron.NewCaches()
	}
	networks, err := d.routerPortNetworks(ctx, port, caches)
	if err != nil {
		return err
	}
	lrp := util.RouterPortName(port.ID)
	err = d.execute(ctx, "add_router_interface",
		&ops.AddLRouterPort{
			Name:     lrp,
			LRouter:  util.OVNName(routerID),
			MayExist: true,
			MAC:      port.MACAddress,
			Networks: networks,
		},
		&ops.SetLRouterPortInLSwitchPort{LSwitchPort: port.ID, LRouterPort: lrp},
	)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to add interface %s to router %s", port.ID, routerID)
	}
	klog.Infof("Added router port %s to router %s", lrp, routerID)
	return nil
}

// RemoveRouterInterface deletes the router port peering with port
func (d *Driver) RemoveRouterInterface(ctx context.Context, routerID, portID string) error {
	err := d.execute(ctx, "remove_router_interface", &ops.DelLRouterPort{
		Name:     util.RouterPortName(portID),
		LRouter:  util.OVNName(routerID),
		IfExists: true,
	})
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to remove interface %s from router %s", portID, routerID)
	}
	return nil
}
