package ops

import (
	"context"
	"errors"
	"fmt"

	"github.com/netgroup-polito/ovn-networking/pkg/nbdb"
)

// AddAddressSet creates an address set
type AddAddressSet struct {
	Name        string
	MayExist    bool
	Addresses   []string
	ExternalIDs map[string]string
}

func (c *AddAddressSet) String() string {
	return fmt.Sprintf("AddAddressSet(%s)", c.Name)
}

func (c *AddAddressSet) Stage(ctx context.Context, txn *Transaction) error {
	_, err := txn.lookupAddressSet(ctx, c.Name)
	switch {
	case err == nil && c.MayExist:
		return nil
	case err == nil:
		return fmt.Errorf("address set %q: %w", c.Name, ErrAlreadyExists)
	case !errors.Is(err, ErrNotFound):
		return err
	}
	txn.Insert(&nbdb.AddressSet{
		Name:        c.Name,
		Addresses:   append([]string{}, c.Addresses...),
		ExternalIDs: copyMap(c.ExternalIDs),
	})
	return nil
}

// DelAddressSet deletes an address set
type DelAddressSet struct {
	Name     string
	IfExists bool
}

func (c *DelAddressSet) String() string {
	return fmt.Sprintf("DelAddressSet(%s)", c.Name)
}

func (c *DelAddressSet) Stage(ctx context.Context, txn *Transaction) error {
	as, err := txn.lookupAddressSet(ctx, c.Name)
	if err != nil {
		return ignoreNotFound(err, c.IfExists)
	}
	return txn.Delete(as)
}

// UpdateAddressSet adds and removes addresses of an address set
type UpdateAddressSet struct {
	Name        string
	IfExists    bool
	AddAddrs    []string
	RemoveAddrs []string
}

func (c *UpdateAddressSet) String() string {
	return fmt.Sprintf("UpdateAddressSet(%s, +%v -%v)", c.Name, c.AddAddrs, c.RemoveAddrs)
}

func (c *UpdateAddressSet) Stage(ctx context.Context, txn *Transaction) error {
	as, err := txn.lookupAddressSet(ctx, c.Name)
	if err != nil {
		return ignoreNotFound(err, c.IfExists)
	}
	if err := txn.DelValues(as, &as.Addresses, c.RemoveAddrs...); err != nil {
		return err
	}
	return txn.AddValues(as, &as.Addresses, c.AddAddrs...)
}

// UpdateAddressSetExtIDs sets keys of the external_ids of an address set
type UpdateAddressSetExtIDs struct {
	Name        string
	IfExists    bool
	ExternalIDs map[string]string
}

func (c *UpdateAddressSetExtIDs) String() string {
	return fmt.Sprintf("UpdateAddressSetExtIDs(%s)", c.Name)
}

func (c *UpdateAddressSetExtIDs) Stage(ctx context.Context, txn *Transaction) error {
	as, err := txn.lookupAddressSet(ctx, c.Name)
	if err != nil {
		return ignoreNotFound(err, c.IfExists)
	}
	return txn.SetMapKeys(as, &as.ExternalIDs, c.ExternalIDs)
}
