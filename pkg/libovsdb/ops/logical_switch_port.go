package ops

import (
	"context"
	"errors"
	"fmt"

	"github.com/ovn-kubernetes/libovsdb/client"
	"k8s.io/klog/v2"

	"github.com/netgroup-polito/ovn-networking/pkg/nbdb"
	"github.com/netgroup-polito/ovn-networking/pkg/types"
)

// LSPColumns holds the logical switch port columns a command writes. A nil
// field leaves the column untouched.
type LSPColumns struct {
	Type         *string
	Addresses    *[]string
	PortSecurity *[]string
	Options      *map[string]string
	ExternalIDs  *map[string]string
	ParentName   *string
	TagRequest   *int
	Enabled      *bool
	// DHCPv4Options and DHCPv6Options link the port to a DHCP_Options row;
	// an empty string clears the link
	DHCPv4Options *string
	DHCPv6Options *string
}

// apply writes the set columns into lsp and returns the pointers to the
// written fields
func (c *LSPColumns) apply(lsp *nbdb.LogicalSwitchPort) []interface{} {
	fields := []interface{}{}
	if c.Type != nil {
		lsp.Type = *c.Type
		fields = append(fields, &lsp.Type)
	}
	if c.Addresses != nil {
		lsp.Addresses = append([]string{}, (*c.Addresses)...)
		fields = append(fields, &lsp.Addresses)
	}
	if c.PortSecurity != nil {
		lsp.PortSecurity = append([]string{}, (*c.PortSecurity)...)
		fields = append(fields, &lsp.PortSecurity)
	}
	if c.Options != nil {
		lsp.Options = copyMap(*c.Options)
		fields = append(fields, &lsp.Options)
	}
	if c.ExternalIDs != nil {
		lsp.ExternalIDs = copyMap(*c.ExternalIDs)
		fields = append(fields, &lsp.ExternalIDs)
	}
	if c.ParentName != nil {
		lsp.ParentName = optionalString(*c.ParentName)
		fields = append(fields, &lsp.ParentName)
	}
	if c.TagRequest != nil {
		tag := *c.TagRequest
		lsp.TagRequest = &tag
		fields = append(fields, &lsp.TagRequest)
	}
	if c.Enabled != nil {
		enabled := *c.Enabled
		lsp.Enabled = &enabled
		fields = append(fields, &lsp.Enabled)
	}
	if c.DHCPv4Options != nil {
		lsp.Dhcpv4Options = optionalString(*c.DHCPv4Options)
		fields = append(fields, &lsp.Dhcpv4Options)
	}
	if c.DHCPv6Options != nil {
		lsp.Dhcpv6Options = optionalString(*c.DHCPv6Options)
		fields = append(fields, &lsp.Dhcpv6Options)
	}
	return fields
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// AddLSwitchPort creates a port on an existing logical switch and adds it
// to the switch ports
type AddLSwitchPort struct {
	Name     string
	LSwitch  string
	MayExist bool
	Columns  LSPColumns
}

func (c *AddLSwitchPort) String() string {
	return fmt.Sprintf("AddLSwitchPort(%s, %s)", c.LSwitch, c.Name)
}

func (c *AddLSwitchPort) Stage(ctx context.Context, txn *Transaction) error {
	ls, err := txn.lookupLSwitch(ctx, c.LSwitch)
	if err != nil {
		return err
	}
	_, err = txn.lookupLSwitchPort(ctx, c.Name)
	switch {
	case err == nil && c.MayExist:
		return nil
	case err == nil:
		return fmt.Errorf("logical switch port %q: %w", c.Name, ErrAlreadyExists)
	case !errors.Is(err, ErrNotFound):
		return err
	}
	lsp := &nbdb.LogicalSwitchPort{Name: c.Name}
	c.Columns.apply(lsp)
	uuid := txn.Insert(lsp)
	return txn.AddValues(ls, &ls.Ports, uuid)
}

// SetLSwitchPort updates columns of a logical switch port. Port scoped
// DHCP_Options rows the port no longer refers to are deleted.
type SetLSwitchPort struct {
	Name     string
	IfExists bool
	Columns  LSPColumns
}

func (c *SetLSwitchPort) String() string {
	return fmt.Sprintf("SetLSwitchPort(%s)", c.Name)
}

func (c *SetLSwitchPort) Stage(ctx context.Context, txn *Transaction) error {
	lsp, err := txn.lookupLSwitchPort(ctx, c.Name)
	if err != nil {
		return ignoreNotFound(err, c.IfExists)
	}
	current, err := portScopedDHCPOptions(ctx, txn, lsp)
	if err != nil {
		return err
	}
	if fields := c.Columns.apply(lsp); len(fields) > 0 {
		if err := txn.Update(lsp, fields...); err != nil {
			return err
		}
	}
	for _, opts := range current {
		if referencesDHCPOptions(lsp, opts.UUID) {
			continue
		}
		if err := txn.Delete(opts); err != nil {
			return err
		}
	}
	return nil
}

// DelLSwitchPort removes a port from its logical switch and deletes it
// together with its port scoped DHCP_Options rows. When LSwitch is empty
// the switch holding the port is searched.
type DelLSwitchPort struct {
	Name     string
	LSwitch  string
	IfExists bool
}

func (c *DelLSwitchPort) String() string {
	return fmt.Sprintf("DelLSwitchPort(%s, %s)", c.LSwitch, c.Name)
}

func (c *DelLSwitchPort) Stage(ctx context.Context, txn *Transaction) error {
	lsp, err := txn.lookupLSwitchPort(ctx, c.Name)
	if err != nil {
		return ignoreNotFound(err, c.IfExists)
	}
	var ls *nbdb.LogicalSwitch
	if c.LSwitch != "" {
		ls, err = txn.lookupLSwitch(ctx, c.LSwitch)
	} else {
		ls, err = txn.lookupPortSwitch(ctx, lsp.UUID)
	}
	if err != nil {
		return ignoreNotFound(err, c.IfExists)
	}
	current, err := portScopedDHCPOptions(ctx, txn, lsp)
	if err != nil {
		return err
	}
	for _, opts := range current {
		if err := txn.Delete(opts); err != nil {
			return err
		}
	}
	if err := txn.DelValues(ls, &ls.Ports, lsp.UUID); err != nil {
		return err
	}
	return txn.Delete(lsp)
}

// lookupPortSwitch finds the logical switch whose ports hold the port UUID
func (t *Transaction) lookupPortSwitch(ctx context.Context, lspUUID string) (*nbdb.LogicalSwitch, error) {
	switches := []nbdb.LogicalSwitch{}
	err := t.client.WhereCache(func(item *nbdb.LogicalSwitch) bool {
		return contains(item.Ports, lspUUID)
	}).List(ctx, &switches)
	if err != nil {
		return nil, lookupError(nbdb.LogicalSwitchTable, "of port "+lspUUID, err)
	}
	if len(switches) == 0 {
		return nil, lookupError(nbdb.LogicalSwitchTable, "of port "+lspUUID, client.ErrNotFound)
	}
	return t.track(&switches[0]).(*nbdb.LogicalSwitch), nil
}

// portScopedDHCPOptions returns the DHCP_Options rows referenced by the
// port that were created for that port only
func portScopedDHCPOptions(ctx context.Context, txn *Transaction, lsp *nbdb.LogicalSwitchPort) ([]*nbdb.DHCPOptions, error) {
	var found []*nbdb.DHCPOptions
	for _, ref := range []*string{lsp.Dhcpv4Options, lsp.Dhcpv6Options} {
		if ref == nil || isNamedUUID(*ref) {
			continue
		}
		if len(found) > 0 && found[0].UUID == *ref {
			continue
		}
		opts, err := GetDHCPOptions(ctx, txn.client, *ref)
		if errors.Is(err, ErrNotFound) {
			klog.V(5).Infof("DHCP options %s referenced by port %s are gone", *ref, lsp.Name)
			continue
		}
		if err != nil {
			return nil, err
		}
		if opts.ExternalIDs[types.PortIDExtIDKey] == lsp.Name {
			found = append(found, txn.track(opts).(*nbdb.DHCPOptions))
		}
	}
	return found, nil
}

func referencesDHCPOptions(lsp *nbdb.LogicalSwitchPort, uuid string) bool {
	return (lsp.Dhcpv4Options != nil && *lsp.Dhcpv4Options == uuid) ||
		(lsp.Dhcpv6Options != nil && *lsp.Dhcpv6Options == uuid)
}
