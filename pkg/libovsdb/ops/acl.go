package ops

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog/v2"

	"github.com/netgroup-polito/ovn-networking/pkg/nbdb"
	"github.com/netgroup-polito/ovn-networking/pkg/types"
)

// GetACLName returns the ACL name if it has one otherwise returns
// an empty string.
func GetACLName(acl *nbdb.ACL) string {
	if acl.Name != nil {
		return *acl.Name
	}
	return ""
}

// GetACLPort returns the logical port owning the ACL
func GetACLPort(acl *nbdb.ACL) string {
	return acl.ExternalIDs[types.LPortExtIDKey]
}

// BuildACL builds an ACL owned by the logical port lport
func BuildACL(lport string, direction nbdb.ACLDirection, priority int, match string, action nbdb.ACLAction) *nbdb.ACL {
	return &nbdb.ACL{
		Direction:   direction,
		Priority:    priority,
		Match:       match,
		Action:      action,
		ExternalIDs: map[string]string{types.LPortExtIDKey: lport},
	}
}

// aclKey is the identity of an ACL within the ACLs of a port
type aclKey struct {
	direction nbdb.ACLDirection
	priority  int
	action    nbdb.ACLAction
	match     string
	log       bool
}

func keyOfACL(acl *nbdb.ACL) aclKey {
	return aclKey{
		direction: acl.Direction,
		priority:  acl.Priority,
		action:    acl.Action,
		match:     acl.Match,
		log:       acl.Log,
	}
}

// copyACLFor returns a copy of acl owned by lport, ready to be inserted
func copyACLFor(acl *nbdb.ACL, lport string) *nbdb.ACL {
	c := acl.DeepCopy()
	c.UUID = ""
	c.ExternalIDs = mergeMaps(c.ExternalIDs, map[string]string{types.LPortExtIDKey: lport})
	return c
}

// switchACLs returns the ACLs of the switch as found in the cache. ACLs
// inserted by the transaction are skipped.
func switchACLs(ctx context.Context, txn *Transaction, ls *nbdb.LogicalSwitch) ([]*nbdb.ACL, error) {
	acls := make([]*nbdb.ACL, 0, len(ls.ACLs))
	for _, uuid := range ls.ACLs {
		if isNamedUUID(uuid) {
			continue
		}
		acl, err := GetACL(ctx, txn.client, uuid)
		if errors.Is(err, ErrNotFound) {
			klog.V(5).Infof("ACL %s of logical switch %s is gone", uuid, ls.Name)
			continue
		}
		if err != nil {
			return nil, err
		}
		acls = append(acls, txn.track(acl).(*nbdb.ACL))
	}
	return acls, nil
}

// AddACL adds an ACL owned by LPort to a logical switch
type AddACL struct {
	LSwitch string
	LPort   string
	ACL     *nbdb.ACL
}

func (c *AddACL) String() string {
	return fmt.Sprintf("AddACL(%s, %s, %s)", c.LSwitch, c.LPort, c.ACL.Match)
}

func (c *AddACL) Stage(ctx context.Context, txn *Transaction) error {
	ls, err := txn.lookupLSwitch(ctx, c.LSwitch)
	if err != nil {
		return err
	}
	uuid := txn.Insert(copyACLFor(c.ACL, c.LPort))
	return txn.AddValues(ls, &ls.ACLs, uuid)
}

// DelACL removes every ACL owned by LPort from a logical switch. ACLs
// owned by other ports are left untouched.
type DelACL struct {
	LSwitch  string
	LPort    string
	IfExists bool
}

func (c *DelACL) String() string {
	return fmt.Sprintf("DelACL(%s, %s)", c.LSwitch, c.LPort)
}

func (c *DelACL) Stage(ctx context.Context, txn *Transaction) error {
	ls, err := txn.lookupLSwitch(ctx, c.LSwitch)
	if err != nil {
		return ignoreNotFound(err, c.IfExists)
	}
	acls, err := switchACLs(ctx, txn, ls)
	if err != nil {
		return err
	}
	owned := []*nbdb.ACL{}
	for _, acl := range acls {
		if GetACLPort(acl) == c.LPort {
			owned = append(owned, acl)
		}
	}
	return removeACLs(txn, ls, owned)
}

func removeACLs(txn *Transaction, ls *nbdb.LogicalSwitch, acls []*nbdb.ACL) error {
	if len(acls) == 0 {
		return nil
	}
	uuids := make([]string, 0, len(acls))
	for _, acl := range acls {
		uuids = append(uuids, acl.UUID)
	}
	if err := txn.DelValues(ls, &ls.ACLs, uuids...); err != nil {
		return err
	}
	for _, acl := range acls {
		if err := txn.Delete(acl); err != nil {
			return err
		}
	}
	return nil
}

// ACLPort is a logical port whose ACLs are reconciled, with the logical
// switch it sits on
type ACLPort struct {
	Name    string
	LSwitch string
}

// UpdateACLs reconciles the ACLs of ports on a set of logical switches.
//
// With NeedCompare the installed ACLs of each port are diffed against
// ACLs[port]: missing ACLs are inserted and ACLs no longer desired are
// removed. A port listed in Ports without an entry in ACLs loses all its
// ACLs. Without NeedCompare, IsAddACL inserts every ACL of ACLs as is and
// !IsAddACL removes the installed ACLs of each port whose match equals the
// match of one of ACLs[port].
//
// When Ports is nil, the ports are the keys of ACLs and the switch of each
// port is the switch holding a logical switch port of the same name.
// Switches that do not exist are skipped, and a switch whose ACLs do not
// change is neither verified nor written.
type UpdateACLs struct {
	LSwitches   []string
	Ports       []ACLPort
	ACLs        map[string][]*nbdb.ACL
	NeedCompare bool
	IsAddACL    bool
}

func (c *UpdateACLs) String() string {
	return fmt.Sprintf("UpdateACLs(%v, compare=%t, add=%t)", c.LSwitches, c.NeedCompare, c.IsAddACL)
}

func (c *UpdateACLs) Stage(ctx context.Context, txn *Transaction) error {
	for _, name := range c.LSwitches {
		ls, err := txn.lookupLSwitch(ctx, name)
		if errors.Is(err, ErrNotFound) {
			klog.V(5).Infof("Skipping ACL update of missing logical switch %s", name)
			continue
		}
		if err != nil {
			return err
		}
		ports, err := c.switchPorts(ctx, txn, ls)
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			continue
		}
		installed, err := switchACLs(ctx, txn, ls)
		if err != nil {
			return err
		}
		var add, del []*nbdb.ACL
		if c.NeedCompare {
			add, del = c.compare(ports, installed)
		} else {
			add, del = c.withoutCompare(ports, installed)
		}
		if len(add) == 0 && len(del) == 0 {
			continue
		}
		// the diff was computed from the acls read above
		if err := txn.Verify(ls, &ls.ACLs); err != nil {
			return err
		}
		if err := removeACLs(txn, ls, del); err != nil {
			return err
		}
		uuids := make([]string, 0, len(add))
		for _, acl := range add {
			uuids = append(uuids, txn.Insert(acl))
		}
		if err := txn.AddValues(ls, &ls.ACLs, uuids...); err != nil {
			return err
		}
	}
	return nil
}

// switchPorts returns, in a stable order, the ports of the command that
// sit on the switch
func (c *UpdateACLs) switchPorts(ctx context.Context, txn *Transaction, ls *nbdb.LogicalSwitch) ([]string, error) {
	ports := sets.New[string]()
	if c.Ports != nil {
		for _, p := range c.Ports {
			if p.LSwitch == ls.Name {
				ports.Insert(p.Name)
			}
		}
		return sets.List(ports), nil
	}
	for port := range c.ACLs {
		lsp, err := txn.lookupLSwitchPort(ctx, port)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if contains(ls.Ports, lsp.UUID) {
			ports.Insert(port)
		}
	}
	return sets.List(ports), nil
}

func (c *UpdateACLs) compare(ports []string, installed []*nbdb.ACL) (add, del []*nbdb.ACL) {
	for _, port := range ports {
		current := map[aclKey]*nbdb.ACL{}
		for _, acl := range installed {
			if GetACLPort(acl) != port {
				continue
			}
			key := keyOfACL(acl)
			if _, ok := current[key]; ok {
				// duplicated rule, keep a single copy
				del = append(del, acl)
				continue
			}
			current[key] = acl
		}
		desired := sets.New[aclKey]()
		for _, acl := range c.ACLs[port] {
			key := keyOfACL(acl)
			if desired.Has(key) {
				continue
			}
			desired.Insert(key)
			if _, ok := current[key]; !ok {
				add = append(add, copyACLFor(acl, port))
			}
		}
		stale := []*nbdb.ACL{}
		for key, acl := range current {
			if !desired.Has(key) {
				stale = append(stale, acl)
			}
		}
		sort.Slice(stale, func(i, j int) bool { return stale[i].UUID < stale[j].UUID })
		del = append(del, stale...)
	}
	return add, del
}

func (c *UpdateACLs) withoutCompare(ports []string, installed []*nbdb.ACL) (add, del []*nbdb.ACL) {
	for _, port := range ports {
		if c.IsAddACL {
			for _, acl := range c.ACLs[port] {
				add = append(add, copyACLFor(acl, port))
			}
			continue
		}
		matches := sets.New[string]()
		for _, acl := range c.ACLs[port] {
			matches.Insert(acl.Match)
		}
		for _, acl := range installed {
			if GetACLPort(acl) == port && matches.Has(acl.Match) {
				del = append(del, acl)
			}
		}
	}
	return add, del
}
