package ops

import (
	"context"
	"errors"
	"fmt"

	"github.com/netgroup-polito/ovn-networking/pkg/nbdb"
)

// StaticRoute identifies a static route of a router
type StaticRoute struct {
	IPPrefix string
	Nexthop  string
}

// AddStaticRoute adds a static route to a logical router
type AddStaticRoute struct {
	LRouter     string
	IPPrefix    string
	Nexthop     string
	ExternalIDs map[string]string
}

func (c *AddStaticRoute) String() string {
	return fmt.Sprintf("AddStaticRoute(%s, %s via %s)", c.LRouter, c.IPPrefix, c.Nexthop)
}

func (c *AddStaticRoute) Stage(ctx context.Context, txn *Transaction) error {
	lr, err := txn.lookupLRouter(ctx, c.LRouter)
	if err != nil {
		return err
	}
	uuid := txn.Insert(&nbdb.LogicalRouterStaticRoute{
		IPPrefix:    c.IPPrefix,
		Nexthop:     c.Nexthop,
		ExternalIDs: copyMap(c.ExternalIDs),
	})
	return txn.AddValues(lr, &lr.StaticRoutes, uuid)
}

// DelStaticRoute removes the route matching (IPPrefix, Nexthop) from a
// router. No matching route is a no-op that registers no verify, so an
// insertion of a matching route racing with the command is not detected.
type DelStaticRoute struct {
	LRouter  string
	IPPrefix string
	Nexthop  string
	IfExists bool
}

func (c *DelStaticRoute) String() string {
	return fmt.Sprintf("DelStaticRoute(%s, %s via %s)", c.LRouter, c.IPPrefix, c.Nexthop)
}

func (c *DelStaticRoute) Stage(ctx context.Context, txn *Transaction) error {
	lr, err := txn.lookupLRouter(ctx, c.LRouter)
	if err != nil {
		return ignoreNotFound(err, c.IfExists)
	}
	route, err := findStaticRoute(ctx, txn, lr, StaticRoute{IPPrefix: c.IPPrefix, Nexthop: c.Nexthop})
	if err != nil || route == nil {
		return err
	}
	if err := txn.DelValues(lr, &lr.StaticRoutes, route.UUID); err != nil {
		return err
	}
	return txn.Delete(route)
}

// UpdateStaticRoutes adds and removes routes of a router in one command
type UpdateStaticRoutes struct {
	LRouter  string
	IfExists bool
	Add      []StaticRoute
	Remove   []StaticRoute
}

func (c *UpdateStaticRoutes) String() string {
	return fmt.Sprintf("UpdateStaticRoutes(%s, +%d -%d)", c.LRouter, len(c.Add), len(c.Remove))
}

func (c *UpdateStaticRoutes) Stage(ctx context.Context, txn *Transaction) error {
	_, err := txn.lookupLRouter(ctx, c.LRouter)
	if err != nil {
		return ignoreNotFound(err, c.IfExists)
	}
	for _, r := range c.Remove {
		del := &DelStaticRoute{LRouter: c.LRouter, IPPrefix: r.IPPrefix, Nexthop: r.Nexthop}
		if err := del.Stage(ctx, txn); err != nil {
			return err
		}
	}
	for _, r := range c.Add {
		add := &AddStaticRoute{LRouter: c.LRouter, IPPrefix: r.IPPrefix, Nexthop: r.Nexthop}
		if err := add.Stage(ctx, txn); err != nil {
			return err
		}
	}
	return nil
}

// findStaticRoute scans the static routes of the router for the one
// matching route. It returns nil when there is none.
func findStaticRoute(ctx context.Context, txn *Transaction, lr *nbdb.LogicalRouter, route StaticRoute) (*nbdb.LogicalRouterStaticRoute, error) {
	for _, uuid := range lr.StaticRoutes {
		if isNamedUUID(uuid) {
			continue
		}
		r, err := GetStaticRoute(ctx, txn.client, uuid)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if r.IPPrefix == route.IPPrefix && r.Nexthop == route.Nexthop {
			return txn.track(r).(*nbdb.LogicalRouterStaticRoute), nil
		}
	}
	return nil, nil
}
