package ops

import (
	"context"
	"fmt"
	"sort"

	"github.com/ovn-kubernetes/libovsdb/client"

	"github.com/netgroup-polito/ovn-networking/pkg/nbdb"
	"github.com/netgroup-polito/ovn-networking/pkg/types"
)

type dhcpOptionsPredicate func(*nbdb.DHCPOptions) bool

// FindDHCPOptionsWithPredicate looks up DHCP_Options rows from the cache
// based on a given predicate. Rows are sorted by UUID.
func FindDHCPOptionsWithPredicate(ctx context.Context, nbClient client.Client, p dhcpOptionsPredicate) ([]*nbdb.DHCPOptions, error) {
	found := []*nbdb.DHCPOptions{}
	if err := nbClient.WhereCache(p).List(ctx, &found); err != nil {
		return nil, lookupError(nbdb.DHCPOptionsTable, "by predicate", err)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].UUID < found[j].UUID })
	return found, nil
}

// isDHCPOptionsOf reports whether the row is the one of the subnet, or of
// the port within the subnet when portID is not empty
func isDHCPOptionsOf(opts *nbdb.DHCPOptions, subnetID, portID string) bool {
	return opts.ExternalIDs[types.SubnetIDExtIDKey] == subnetID &&
		opts.ExternalIDs[types.PortIDExtIDKey] == portID
}

// SubnetDHCPOptions holds the DHCP_Options rows of a subnet
type SubnetDHCPOptions struct {
	// Subnet is the subnet wide row, nil if there is none
	Subnet *nbdb.DHCPOptions
	// Ports are the rows overriding the subnet options for single ports
	Ports []*nbdb.DHCPOptions
}

// GetSubnetDHCPOptions returns the DHCP_Options rows of a subnet. The port
// scoped rows are only returned withPorts.
func GetSubnetDHCPOptions(ctx context.Context, nbClient client.Client, subnetID string, withPorts bool) (*SubnetDHCPOptions, error) {
	rows, err := FindDHCPOptionsWithPredicate(ctx, nbClient, func(item *nbdb.DHCPOptions) bool {
		return item.ExternalIDs[types.SubnetIDExtIDKey] == subnetID
	})
	if err != nil {
		return nil, err
	}
	result := &SubnetDHCPOptions{}
	for _, row := range rows {
		if _, ok := row.ExternalIDs[types.PortIDExtIDKey]; !ok {
			if result.Subnet == nil {
				result.Subnet = row
			}
			continue
		}
		if withPorts {
			result.Ports = append(result.Ports, row)
		}
	}
	return result, nil
}

// GetPortDHCPOptions returns the row created for the port within the
// subnet, ErrNotFound if there is none
func GetPortDHCPOptions(ctx context.Context, nbClient client.Client, subnetID, portID string) (*nbdb.DHCPOptions, error) {
	rows, err := FindDHCPOptionsWithPredicate(ctx, nbClient, func(item *nbdb.DHCPOptions) bool {
		return isDHCPOptionsOf(item, subnetID, portID)
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, lookupError(nbdb.DHCPOptionsTable, subnetID+"/"+portID, client.ErrNotFound)
	}
	return rows[0], nil
}

// AddDHCPOptions creates the DHCP_Options row of a subnet, or of a port of
// the subnet when PortID is set. The row is identified by its subnet_id and
// port_id external ids; with MayExist an existing row is overwritten in
// place instead.
type AddDHCPOptions struct {
	SubnetID    string
	PortID      string
	MayExist    bool
	CIDR        string
	Options     map[string]string
	ExternalIDs map[string]string

	row *nbdb.DHCPOptions
}

func (c *AddDHCPOptions) String() string {
	if c.PortID != "" {
		return fmt.Sprintf("AddDHCPOptions(%s, %s)", c.SubnetID, c.PortID)
	}
	return fmt.Sprintf("AddDHCPOptions(%s)", c.SubnetID)
}

// UUID returns the UUID of the staged row: a named UUID other commands of
// the transaction can refer to until the transaction is committed, the
// real one afterwards
func (c *AddDHCPOptions) UUID() string {
	if c.row == nil {
		return ""
	}
	return c.row.UUID
}

func (c *AddDHCPOptions) externalIDs() map[string]string {
	ids := copyMap(c.ExternalIDs)
	if ids == nil {
		ids = map[string]string{}
	}
	ids[types.SubnetIDExtIDKey] = c.SubnetID
	if c.PortID != "" {
		ids[types.PortIDExtIDKey] = c.PortID
	} else {
		delete(ids, types.PortIDExtIDKey)
	}
	return ids
}

func (c *AddDHCPOptions) Stage(ctx context.Context, txn *Transaction) error {
	if c.SubnetID == "" {
		return fmt.Errorf("DHCP options without subnet id: %w", ErrInvalidInput)
	}
	existing, err := c.find(ctx, txn)
	if err != nil {
		return err
	}
	if existing != nil && !c.MayExist {
		return fmt.Errorf("DHCP options %s: %w", existing.UUID, ErrAlreadyExists)
	}
	if existing == nil {
		c.row = &nbdb.DHCPOptions{
			Cidr:        c.CIDR,
			Options:     copyMap(c.Options),
			ExternalIDs: c.externalIDs(),
		}
		txn.Insert(c.row)
		return nil
	}
	c.row = existing
	existing.Cidr = c.CIDR
	existing.Options = copyMap(c.Options)
	existing.ExternalIDs = c.externalIDs()
	return txn.Update(existing, &existing.Cidr, &existing.Options, &existing.ExternalIDs)
}

func (c *AddDHCPOptions) find(ctx context.Context, txn *Transaction) (*nbdb.DHCPOptions, error) {
	for _, m := range txn.inserted {
		if opts, ok := m.(*nbdb.DHCPOptions); ok && isDHCPOptionsOf(opts, c.SubnetID, c.PortID) {
			return opts, nil
		}
	}
	rows, err := FindDHCPOptionsWithPredicate(ctx, txn.client, func(item *nbdb.DHCPOptions) bool {
		return isDHCPOptionsOf(item, c.SubnetID, c.PortID)
	})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return txn.track(rows[0]).(*nbdb.DHCPOptions), nil
}

// DelDHCPOptions deletes a DHCP_Options row by UUID
type DelDHCPOptions struct {
	UUID     string
	IfExists bool
}

func (c *DelDHCPOptions) String() string {
	return fmt.Sprintf("DelDHCPOptions(%s)", c.UUID)
}

func (c *DelDHCPOptions) Stage(ctx context.Context, txn *Transaction) error {
	opts, err := GetDHCPOptions(ctx, txn.client, c.UUID)
	if err != nil {
		return ignoreNotFound(err, c.IfExists)
	}
	return txn.Delete(txn.track(opts))
}
