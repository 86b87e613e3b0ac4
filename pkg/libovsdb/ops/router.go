package ops

import (
	"context"
	"errors"
	"fmt"

	"github.com/netgroup-polito/ovn-networking/pkg/nbdb"
	"github.com/netgroup-polito/ovn-networking/pkg/types"
)

// AddLRouter creates a logical router
type AddLRouter struct {
	Name        string
	MayExist    bool
	Enabled     *bool
	ExternalIDs map[string]string
	Options     map[string]string
}

func (c *AddLRouter) String() string {
	return fmt.Sprintf("AddLRouter(%s)", c.Name)
}

func (c *AddLRouter) Stage(ctx context.Context, txn *Transaction) error {
	_, err := txn.lookupLRouter(ctx, c.Name)
	switch {
	case err == nil && c.MayExist:
		return nil
	case err == nil:
		return fmt.Errorf("logical router %q: %w", c.Name, ErrAlreadyExists)
	case !errors.Is(err, ErrNotFound):
		return err
	}
	lr := &nbdb.LogicalRouter{
		Name:        c.Name,
		ExternalIDs: copyMap(c.ExternalIDs),
		Options:     copyMap(c.Options),
	}
	if c.Enabled != nil {
		enabled := *c.Enabled
		lr.Enabled = &enabled
	}
	txn.Insert(lr)
	return nil
}

// UpdateLRouter updates the enabled state and external_ids of a router.
// Nil fields are left untouched.
type UpdateLRouter struct {
	Name        string
	IfExists    bool
	Enabled     *bool
	ExternalIDs map[string]string
}

func (c *UpdateLRouter) String() string {
	return fmt.Sprintf("UpdateLRouter(%s)", c.Name)
}

func (c *UpdateLRouter) Stage(ctx context.Context, txn *Transaction) error {
	lr, err := txn.lookupLRouter(ctx, c.Name)
	if err != nil {
		return ignoreNotFound(err, c.IfExists)
	}
	fields := []interface{}{}
	if c.Enabled != nil {
		enabled := *c.Enabled
		lr.Enabled = &enabled
		fields = append(fields, &lr.Enabled)
	}
	if c.ExternalIDs != nil {
		lr.ExternalIDs = mergeMaps(lr.ExternalIDs, c.ExternalIDs)
		fields = append(fields, &lr.ExternalIDs)
	}
	if len(fields) == 0 {
		return nil
	}
	return txn.Update(lr, fields...)
}

// DelLRouter deletes a logical router with its ports and static routes
type DelLRouter struct {
	Name     string
	IfExists bool
}

func (c *DelLRouter) String() string {
	return fmt.Sprintf("DelLRouter(%s)", c.Name)
}

func (c *DelLRouter) Stage(ctx context.Context, txn *Transaction) error {
	lr, err := txn.lookupLRouter(ctx, c.Name)
	if err != nil {
		return ignoreNotFound(err, c.IfExists)
	}
	return txn.Delete(lr)
}

// AddLRouterPort creates a port on an existing logical router
type AddLRouterPort struct {
	Name        string
	LRouter     string
	MayExist    bool
	MAC         string
	Networks    []string
	ExternalIDs map[string]string
}

func (c *AddLRouterPort) String() string {
	return fmt.Sprintf("AddLRouterPort(%s, %s)", c.LRouter, c.Name)
}

func (c *AddLRouterPort) Stage(ctx context.Context, txn *Transaction) error {
	lr, err := txn.lookupLRouter(ctx, c.LRouter)
	if err != nil {
		return err
	}
	_, err = txn.lookupLRouterPort(ctx, c.Name)
	switch {
	case err == nil && c.MayExist:
		return nil
	case err == nil:
		return fmt.Errorf("logical router port %q: %w", c.Name, ErrAlreadyExists)
	case !errors.Is(err, ErrNotFound):
		return err
	}
	uuid := txn.Insert(&nbdb.LogicalRouterPort{
		Name:        c.Name,
		MAC:         c.MAC,
		Networks:    append([]string{}, c.Networks...),
		ExternalIDs: copyMap(c.ExternalIDs),
	})
	return txn.AddValues(lr, &lr.Ports, uuid)
}

// UpdateLRouterPort rewrites the MAC and networks of a router port. Empty
// fields are left untouched.
type UpdateLRouterPort struct {
	Name     string
	IfExists bool
	MAC      string
	Networks []string
}

func (c *UpdateLRouterPort) String() string {
	return fmt.Sprintf("UpdateLRouterPort(%s)", c.Name)
}

func (c *UpdateLRouterPort) Stage(ctx context.Context, txn *Transaction) error {
	lrp, err := txn.lookupLRouterPort(ctx, c.Name)
	if err != nil {
		return ignoreNotFound(err, c.IfExists)
	}
	fields := []interface{}{}
	if c.MAC != "" {
		lrp.MAC = c.MAC
		fields = append(fields, &lrp.MAC)
	}
	if len(c.Networks) > 0 {
		lrp.Networks = append([]string{}, c.Networks...)
		fields = append(fields, &lrp.Networks)
	}
	if len(fields) == 0 {
		return nil
	}
	return txn.Update(lrp, fields...)
}

// DelLRouterPort removes a port from its router and deletes it
type DelLRouterPort struct {
	Name     string
	LRouter  string
	IfExists bool
}

func (c *DelLRouterPort) String() string {
	return fmt.Sprintf("DelLRouterPort(%s, %s)", c.LRouter, c.Name)
}

func (c *DelLRouterPort) Stage(ctx context.Context, txn *Transaction) error {
	lrp, err := txn.lookupLRouterPort(ctx, c.Name)
	if err != nil {
		return ignoreNotFound(err, c.IfExists)
	}
	lr, err := txn.lookupLRouter(ctx, c.LRouter)
	if err != nil {
		return err
	}
	if !contains(lr.Ports, lrp.UUID) {
		return fmt.Errorf("logical router port %q is not on router %q: %w", c.Name, c.LRouter, ErrNotFound)
	}
	if err := txn.DelValues(lr, &lr.Ports, lrp.UUID); err != nil {
		return err
	}
	return txn.Delete(lrp)
}

// SetLRouterPortInLSwitchPort turns a logical switch port into the peer of
// a logical router port
type SetLRouterPortInLSwitchPort struct {
	LSwitchPort string
	LRouterPort string
}

func (c *SetLRouterPortInLSwitchPort) String() string {
	return fmt.Sprintf("SetLRouterPortInLSwitchPort(%s, %s)", c.LSwitchPort, c.LRouterPort)
}

func (c *SetLRouterPortInLSwitchPort) Stage(ctx context.Context, txn *Transaction) error {
	lsp, err := txn.lookupLSwitchPort(ctx, c.LSwitchPort)
	if err != nil {
		return err
	}
	lsp.Type = types.LSPTypeRouter
	lsp.Addresses = []string{types.LSPAddressRouter}
	lsp.Options = map[string]string{types.LSPOptionRouterPort: c.LRouterPort}
	return txn.Update(lsp, &lsp.Type, &lsp.Addresses, &lsp.Options)
}
