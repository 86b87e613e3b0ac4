package acl

import (
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/netgroup-polito/ovn-networking/pkg/config"
	"github.com/netgroup-polito/ovn-networking/pkg/libovsdb/ops"
	"github.com/netgroup-polito/ovn-networking/pkg/neutron"
	"github.com/netgroup-polito/ovn-networking/pkg/types"
	"github.com/netgroup-polito/ovn-networking/pkg/util"
)

var ipFamilies = []string{util.IPv4, util.IPv6}

func securityGroupExtIDs(sg *neutron.SecurityGroup) map[string]string {
	return map[string]string{types.SecurityGroupNameExtIDKey: sg.Name}
}

// CreateAddressSets returns the commands creating the IPv4 and IPv6
// address sets of a security group
func CreateAddressSets(sg *neutron.SecurityGroup) []ops.Command {
	cmds := make([]ops.Command, 0, len(ipFamilies))
	for _, family := range ipFamilies {
		cmds = append(cmds, &ops.AddAddressSet{
			Name:        util.AddressSetName(sg.ID, family),
			MayExist:    true,
			ExternalIDs: securityGroupExtIDs(sg),
		})
	}
	return cmds
}

// UpdateAddressSetsName returns the commands updating the security group
// name stored in its address sets
func UpdateAddressSetsName(sg *neutron.SecurityGroup) []ops.Command {
	cmds := make([]ops.Command, 0, len(ipFamilies))
	for _, family := range ipFamilies {
		cmds = append(cmds, &ops.UpdateAddressSetExtIDs{
			Name:        util.AddressSetName(sg.ID, family),
			IfExists:    true,
			ExternalIDs: securityGroupExtIDs(sg),
		})
	}
	return cmds
}

// DeleteAddressSets returns the commands deleting the address sets of a
// security group
func DeleteAddressSets(securityGroupID string) []ops.Command {
	cmds := make([]ops.Command, 0, len(ipFamilies))
	for _, family := range ipFamilies {
		cmds = append(cmds, &ops.DelAddressSet{
			Name:     util.AddressSetName(securityGroupID, family),
			IfExists: true,
		})
	}
	return cmds
}

// portAddresses returns the fixed IPs of the port by family
func portAddresses(port *neutron.Port) map[string]sets.Set[string] {
	addrs := map[string]sets.Set[string]{
		util.IPv4: sets.New[string](),
		util.IPv6: sets.New[string](),
	}
	if port == nil {
		return addrs
	}
	for _, ip := range port.FixedIPs {
		if family := util.IPFamily(ip.IPAddress); family != "" {
			addrs[family].Insert(ip.IPAddress)
		}
	}
	return addrs
}

func portSecurityGroups(port *neutron.Port) sets.Set[string] {
	if port == nil {
		return sets.New[string]()
	}
	return sets.New(port.SecurityGroups...)
}

// UpdatePortAddressSets returns the commands moving the port addresses
// between the address sets of its security groups when the port changes
// from original to current. original is nil for a created port and current
// is nil for a deleted one. Address sets with nothing to add or remove are
// not touched.
func UpdatePortAddressSets(original, current *neutron.Port) []ops.Command {
	if !config.OVN.EnableSecurityGroups {
		return nil
	}
	oldSGs, newSGs := portSecurityGroups(original), portSecurityGroups(current)
	oldAddrs, newAddrs := portAddresses(original), portAddresses(current)

	var cmds []ops.Command
	for _, sg := range sets.List(oldSGs.Union(newSGs)) {
		for _, family := range ipFamilies {
			var add, remove sets.Set[string]
			switch {
			case oldSGs.Has(sg) && newSGs.Has(sg):
				add = newAddrs[family].Difference(oldAddrs[family])
				remove = oldAddrs[family].Difference(newAddrs[family])
			case newSGs.Has(sg):
				add = newAddrs[family]
			default:
				remove = oldAddrs[family]
			}
			if add.Len() == 0 && remove.Len() == 0 {
				continue
			}
			cmds = append(cmds, &ops.UpdateAddressSet{
				Name:        util.AddressSetName(sg, family),
				IfExists:    true,
				AddAddrs:    sets.List(add),
				RemoveAddrs: sets.List(remove),
			})
		}
	}
	return cmds
}
