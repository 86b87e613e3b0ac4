package ops

import (
	"context"
	"errors"
	"fmt"

	"github.com/netgroup-polito/ovn-networking/pkg/nbdb"
)

// AddLSwitch creates a logical switch
type AddLSwitch struct {
	Name        string
	MayExist    bool
	ExternalIDs map[string]string
	OtherConfig map[string]string
}

func (c *AddLSwitch) String() string {
	return fmt.Sprintf("AddLSwitch(%s)", c.Name)
}

func (c *AddLSwitch) Stage(ctx context.Context, txn *Transaction) error {
	_, err := txn.lookupLSwitch(ctx, c.Name)
	switch {
	case err == nil && c.MayExist:
		return nil
	case err == nil:
		return fmt.Errorf("logical switch %q: %w", c.Name, ErrAlreadyExists)
	case !errors.Is(err, ErrNotFound):
		return err
	}
	txn.Insert(&nbdb.LogicalSwitch{
		Name:        c.Name,
		ExternalIDs: copyMap(c.ExternalIDs),
		OtherConfig: copyMap(c.OtherConfig),
	})
	return nil
}

// DelLSwitch deletes a logical switch. Its ports and ACLs are strongly
// referenced by the switch and go with it.
type DelLSwitch struct {
	Name     string
	IfExists bool
}

func (c *DelLSwitch) String() string {
	return fmt.Sprintf("DelLSwitch(%s)", c.Name)
}

func (c *DelLSwitch) Stage(ctx context.Context, txn *Transaction) error {
	ls, err := txn.lookupLSwitch(ctx, c.Name)
	if err != nil {
		return ignoreNotFound(err, c.IfExists)
	}
	return txn.Delete(ls)
}

// SetLSwitchExtIDs sets keys of the external_ids of a logical switch,
// leaving the other keys untouched
type SetLSwitchExtIDs struct {
	Name        string
	IfExists    bool
	ExternalIDs map[string]string
}

func (c *SetLSwitchExtIDs) String() string {
	return fmt.Sprintf("SetLSwitchExtIDs(%s)", c.Name)
}

func (c *SetLSwitchExtIDs) Stage(ctx context.Context, txn *Transaction) error {
	ls, err := txn.lookupLSwitch(ctx, c.Name)
	if err != nil {
		return ignoreNotFound(err, c.IfExists)
	}
	return txn.SetMapKeys(ls, &ls.ExternalIDs, c.ExternalIDs)
}

// ignoreNotFound implements the if-exists policy: an absent target is a
// successful no-op when tolerated
func ignoreNotFound(err error, ifExists bool) error {
	if ifExists && errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func mergeMaps(current, update map[string]string) map[string]string {
	merged := copyMap(current)
	if merged == nil {
		merged = map[string]string{}
	}
	for k, v := range update {
		merged[k] = v
	}
	return merged
}
