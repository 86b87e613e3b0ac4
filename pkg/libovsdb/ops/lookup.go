package ops

import (
	"context"
	"errors"
	"fmt"

	"github.com/ovn-kubernetes/libovsdb/client"

	"github.com/netgroup-polito/ovn-networking/pkg/nbdb"
)

// lookupError tells a row that is definitely absent apart from a cache or
// connection failure
func lookupError(table, name string, err error) error {
	if errors.Is(err, client.ErrNotFound) {
		return fmt.Errorf("%s %q: %w", table, name, ErrNotFound)
	}
	return fmt.Errorf("%w: failed to look up %s %q: %v", ErrDatabaseUnavailable, table, name, err)
}

// GetLogicalSwitch looks up a logical switch by name in the cache
func GetLogicalSwitch(ctx context.Context, nbClient client.Client, name string) (*nbdb.LogicalSwitch, error) {
	switches := []nbdb.LogicalSwitch{}
	err := nbClient.WhereCache(func(item *nbdb.LogicalSwitch) bool {
		return item.Name == name
	}).List(ctx, &switches)
	if err != nil {
		return nil, lookupError(nbdb.LogicalSwitchTable, name, err)
	}
	if len(switches) > 1 {
		return nil, fmt.Errorf("unexpectedly found multiple logical switches named %q: %+v", name, switches)
	}
	if len(switches) == 0 {
		return nil, lookupError(nbdb.LogicalSwitchTable, name, client.ErrNotFound)
	}
	return &switches[0], nil
}

// GetLogicalRouter looks up a logical router by name in the cache
func GetLogicalRouter(ctx context.Context, nbClient client.Client, name string) (*nbdb.LogicalRouter, error) {
	routers := []nbdb.LogicalRouter{}
	err := nbClient.WhereCache(func(item *nbdb.LogicalRouter) bool {
		return item.Name == name
	}).List(ctx, &routers)
	if err != nil {
		return nil, lookupError(nbdb.LogicalRouterTable, name, err)
	}
	if len(routers) > 1 {
		return nil, fmt.Errorf("unexpectedly found multiple logical routers named %q: %+v", name, routers)
	}
	if len(routers) == 0 {
		return nil, lookupError(nbdb.LogicalRouterTable, name, client.ErrNotFound)
	}
	return &routers[0], nil
}

// GetLogicalSwitchPort looks up a logical switch port through its name index
func GetLogicalSwitchPort(ctx context.Context, nbClient client.Client, name string) (*nbdb.LogicalSwitchPort, error) {
	lsp := copyIndexes(&nbdb.LogicalSwitchPort{Name: name}).(*nbdb.LogicalSwitchPort)
	if err := nbClient.Get(ctx, lsp); err != nil {
		return nil, lookupError(nbdb.LogicalSwitchPortTable, name, err)
	}
	return lsp, nil
}

// GetLogicalRouterPort looks up a logical router port through its name index
func GetLogicalRouterPort(ctx context.Context, nbClient client.Client, name string) (*nbdb.LogicalRouterPort, error) {
	lrp := copyIndexes(&nbdb.LogicalRouterPort{Name: name}).(*nbdb.LogicalRouterPort)
	if err := nbClient.Get(ctx, lrp); err != nil {
		return nil, lookupError(nbdb.LogicalRouterPortTable, name, err)
	}
	return lrp, nil
}

// GetAddressSet looks up an address set through its name index
func GetAddressSet(ctx context.Context, nbClient client.Client, name string) (*nbdb.AddressSet, error) {
	as := copyIndexes(&nbdb.AddressSet{Name: name}).(*nbdb.AddressSet)
	if err := nbClient.Get(ctx, as); err != nil {
		return nil, lookupError(nbdb.AddressSetTable, name, err)
	}
	return as, nil
}

// GetACL returns the ACL with the given UUID
func GetACL(ctx context.Context, nbClient client.Client, uuid string) (*nbdb.ACL, error) {
	acl := &nbdb.ACL{UUID: uuid}
	if err := nbClient.Get(ctx, acl); err != nil {
		return nil, lookupError(nbdb.ACLTable, uuid, err)
	}
	return acl, nil
}

// GetStaticRoute returns the static route with the given UUID
func GetStaticRoute(ctx context.Context, nbClient client.Client, uuid string) (*nbdb.LogicalRouterStaticRoute, error) {
	route := &nbdb.LogicalRouterStaticRoute{UUID: uuid}
	if err := nbClient.Get(ctx, route); err != nil {
		return nil, lookupError(nbdb.LogicalRouterStaticRouteTable, uuid, err)
	}
	return route, nil
}

// GetDHCPOptions returns the DHCP_Options row with the given UUID
func GetDHCPOptions(ctx context.Context, nbClient client.Client, uuid string) (*nbdb.DHCPOptions, error) {
	opts := &nbdb.DHCPOptions{UUID: uuid}
	if err := nbClient.Get(ctx, opts); err != nil {
		return nil, lookupError(nbdb.DHCPOptionsTable, uuid, err)
	}
	return opts, nil
}

// The Transaction variants below resolve names against rows inserted
// earlier in the same transaction before falling back to the cache, and
// return the copy tracked by the transaction.

func (t *Transaction) lookupLSwitch(ctx context.Context, name string) (*nbdb.LogicalSwitch, error) {
	for _, m := range t.inserted {
		if ls, ok := m.(*nbdb.LogicalSwitch); ok && ls.Name == name {
			return ls, nil
		}
	}
	ls, err := GetLogicalSwitch(ctx, t.client, name)
	if err != nil {
		return nil, err
	}
	return t.track(ls).(*nbdb.LogicalSwitch), nil
}

func (t *Transaction) lookupLRouter(ctx context.Context, name string) (*nbdb.LogicalRouter, error) {
	for _, m := range t.inserted {
		if lr, ok := m.(*nbdb.LogicalRouter); ok && lr.Name == name {
			return lr, nil
		}
	}
	lr, err := GetLogicalRouter(ctx, t.client, name)
	if err != nil {
		return nil, err
	}
	return t.track(lr).(*nbdb.LogicalRouter), nil
}

func (t *Transaction) lookupLSwitchPort(ctx context.Context, name string) (*nbdb.LogicalSwitchPort, error) {
	for _, m := range t.inserted {
		if lsp, ok := m.(*nbdb.LogicalSwitchPort); ok && lsp.Name == name {
			return lsp, nil
		}
	}
	lsp, err := GetLogicalSwitchPort(ctx, t.client, name)
	if err != nil {
		return nil, err
	}
	return t.track(lsp).(*nbdb.LogicalSwitchPort), nil
}

func (t *Transaction) lookupLRouterPort(ctx context.Context, name string) (*nbdb.LogicalRouterPort, error) {
	for _, m := range t.inserted {
		if lrp, ok := m.(*nbdb.LogicalRouterPort); ok && lrp.Name == name {
			return lrp, nil
		}
	}
	lrp, err := GetLogicalRouterPort(ctx, t.client, name)
	if err != nil {
		return nil, err
	}
	return t.track(lrp).(*nbdb.LogicalRouterPort), nil
}

func (t *Transaction) lookupAddressSet(ctx context.Context, name string) (*nbdb.AddressSet, error) {
	for _, m := range t.inserted {
		if as, ok := m.(*nbdb.AddressSet); ok && as.Name == name {
			return as, nil
		}
	}
	as, err := GetAddressSet(ctx, t.client, name)
	if err != nil {
		return nil, err
	}
	return t.track(as).(*nbdb.AddressSet), nil
}
