package acl

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog/v2"

	"github.com/netgroup-polito/ovn-networking/pkg/config"
	"github.com/netgroup-polito/ovn-networking/pkg/libovsdb/ops"
	"github.com/netgroup-polito/ovn-networking/pkg/nbdb"
	"github.com/netgroup-polito/ovn-networking/pkg/neutron"
	"github.com/netgroup-polito/ovn-networking/pkg/types"
	"github.com/netgroup-polito/ovn-networking/pkg/util"
)

// DropAllIPTrafficForPort returns the ACLs dropping all IP traffic from
// and to the port. SG rule ACLs have a higher priority.
func DropAllIPTrafficForPort(port *neutron.Port) []*nbdb.ACL {
	return []*nbdb.ACL{
		ops.BuildACL(port.ID, nbdb.ACLDirectionFromLport, types.ACLPriorityDrop,
			fmt.Sprintf("inport == %q && ip", port.ID), nbdb.ACLActionDrop),
		ops.BuildACL(port.ID, nbdb.ACLDirectionToLport, types.ACLPriorityDrop,
			fmt.Sprintf("outport == %q && ip", port.ID), nbdb.ACLActionDrop),
	}
}

// DHCPForPort returns the ACLs letting DHCPv4 requests and replies of an
// external DHCP server on the subnet through
func DHCPForPort(port *neutron.Port, subnet *neutron.Subnet) []*nbdb.ACL {
	return []*nbdb.ACL{
		ops.BuildACL(port.ID, nbdb.ACLDirectionToLport, types.ACLPriorityAllow,
			fmt.Sprintf("outport == %q && ip4 && ip4.src == %s && udp && udp.src == 67 && udp.dst == 68", port.ID, subnet.CIDR),
			nbdb.ACLActionAllow),
		ops.BuildACL(port.ID, nbdb.ACLDirectionFromLport, types.ACLPriorityAllow,
			fmt.Sprintf("inport == %q && ip4 && ip4.dst == {255.255.255.255, %s} && udp && udp.src == 68 && udp.dst == 67", port.ID, subnet.CIDR),
			nbdb.ACLActionAllow),
	}
}

// ForSecurityGroupRule returns the ACL implementing the security group rule
// for the port
func ForSecurityGroupRule(port *neutron.Port, rule *neutron.SecurityGroupRule) *nbdb.ACL {
	direction := nbdb.ACLDirectionFromLport
	if rule.Direction == types.SecurityGroupRuleIngress {
		direction = nbdb.ACLDirectionToLport
	}
	return ops.BuildACL(port.ID, direction, types.ACLPriorityAllow, RuleMatch(port, rule), nbdb.ACLActionAllowRelated)
}

// RuleMatch returns the OVN match expression of a security group rule
// applied to the port. Ingress rules match traffic to the port on its
// source, egress rules traffic from the port on its destination.
func RuleMatch(port *neutron.Port, rule *neutron.SecurityGroupRule) string {
	portDir, remoteDir := "inport", "dst"
	if rule.Direction == types.SecurityGroupRuleIngress {
		portDir, remoteDir = "outport", "src"
	}
	match := fmt.Sprintf("%s == %q", portDir, port.ID)

	ipVersion, icmp := "", ""
	switch rule.EtherType {
	case types.EtherTypeIPv4:
		ipVersion, icmp = util.IPv4, "icmp4"
	case types.EtherTypeIPv6:
		ipVersion, icmp = util.IPv6, "icmp6"
	}
	if ipVersion != "" {
		match += " && " + ipVersion
		if rule.RemoteIPPrefix != "" {
			match += fmt.Sprintf(" && %s.%s == %s", ipVersion, remoteDir, rule.RemoteIPPrefix)
		}
		if rule.RemoteGroupID != "" {
			match += fmt.Sprintf(" && %s.%s == $%s", ipVersion, remoteDir, util.AddressSetName(rule.RemoteGroupID, ipVersion))
		}
	}
	return match + protocolMatch(rule, icmp)
}

func portValue(p *int) (int, bool) {
	if p == nil || *p < 0 {
		return 0, false
	}
	return *p, true
}

func protocolMatch(rule *neutron.SecurityGroupRule, icmp string) string {
	min, hasMin := portValue(rule.PortRangeMin)
	max, hasMax := portValue(rule.PortRangeMax)

	switch rule.Protocol {
	case "tcp", "6", "udp", "17":
		protocol := rule.Protocol
		switch protocol {
		case "6":
			protocol = "tcp"
		case "17":
			protocol = "udp"
		}
		match := " && " + protocol
		field := protocol + ".dst"
		switch {
		case hasMin && hasMax && min == max:
			match += fmt.Sprintf(" && %s == %d", field, min)
		default:
			if hasMin {
				match += fmt.Sprintf(" && %s >= %d", field, min)
			}
			if hasMax {
				match += fmt.Sprintf(" && %s <= %d", field, max)
			}
		}
		return match
	case "icmp", "1", "ipv6-icmp", "icmpv6", "58":
		if icmp == "" {
			icmp = "icmp4"
			if rule.Protocol == "ipv6-icmp" || rule.Protocol == "icmpv6" || rule.Protocol == "58" {
				icmp = "icmp6"
			}
		}
		match := " && " + icmp
		// for ICMP the range bounds are the type and the code
		if hasMin {
			match += fmt.Sprintf(" && %s.type == %d", icmp, min)
			if hasMax {
				match += fmt.Sprintf(" && %s.code == %d", icmp, max)
			}
		}
		return match
	case "":
		return ""
	}
	if _, err := strconv.Atoi(rule.Protocol); err == nil {
		return " && ip.proto == " + rule.Protocol
	}
	klog.Warningf("Ignoring unknown protocol %q of security group rule %s", rule.Protocol, rule.ID)
	return ""
}

func containsACL(acls []*nbdb.ACL, acl *nbdb.ACL) bool {
	for _, a := range acls {
		if a.Direction == acl.Direction && a.Priority == acl.Priority &&
			a.Action == acl.Action && a.Match == acl.Match {
			return true
		}
	}
	return false
}

// AddACLs returns the ACLs of the port: drop all IP traffic, allow DHCP
// unless OVN serves it, then one ACL per rule of the port security groups.
// A port without security groups, or with security groups disabled, gets
// no ACLs. Security groups and subnets missing from caches are fetched
// through plugin.
func AddACLs(ctx context.Context, plugin neutron.Plugin, port *neutron.Port, caches *neutron.Caches) ([]*nbdb.ACL, error) {
	if !config.OVN.EnableSecurityGroups || len(port.SecurityGroups) == 0 {
		return []*nbdb.ACL{}, nil
	}
	if caches == nil {
		caches = neutron.NewCaches()
	}

	acls := DropAllIPTrafficForPort(port)

	if !config.OVN.NativeDHCP {
		subnetIDs := sets.New[string]()
		for _, ip := range port.FixedIPs {
			if util.IPVersion(ip.IPAddress) != 4 || subnetIDs.Has(ip.SubnetID) {
				continue
			}
			subnet, err := caches.GetSubnet(ctx, plugin, ip.SubnetID)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to get subnet %s of port %s", ip.SubnetID, port.ID)
			}
			subnetIDs.Insert(ip.SubnetID)
			acls = append(acls, DHCPForPort(port, subnet)...)
		}
	}

	for _, sgID := range port.SecurityGroups {
		sg, err := caches.GetSecurityGroup(ctx, plugin, sgID)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get security group %s of port %s", sgID, port.ID)
		}
		for i := range sg.Rules {
			acl := ForSecurityGroupRule(port, &sg.Rules[i])
			if !containsACL(acls, acl) {
				acls = append(acls, acl)
			}
		}
	}
	return acls, nil
}

// UpdateACLsForSecurityGroup returns the command adding (or removing) the
// ACL of a security group rule on every port of the group. It returns nil
// when security groups are disabled or the group has no ports.
func UpdateACLsForSecurityGroup(ctx context.Context, plugin neutron.Plugin, rule *neutron.SecurityGroupRule, isAdd bool) (ops.Command, error) {
	if !config.OVN.EnableSecurityGroups {
		return nil, nil
	}
	ports, err := plugin.GetSecurityGroupPorts(ctx, rule.SecurityGroupID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get the ports of security group %s", rule.SecurityGroupID)
	}
	if len(ports) == 0 {
		return nil, nil
	}

	switches := sets.New[string]()
	cmd := &ops.UpdateACLs{
		ACLs:        map[string][]*nbdb.ACL{},
		NeedCompare: false,
		IsAddACL:    isAdd,
	}
	for _, port := range ports {
		if _, ok := cmd.ACLs[port.ID]; ok {
			continue
		}
		lswitch := util.OVNName(port.NetworkID)
		switches.Insert(lswitch)
		cmd.Ports = append(cmd.Ports, ops.ACLPort{Name: port.ID, LSwitch: lswitch})
		cmd.ACLs[port.ID] = []*nbdb.ACL{ForSecurityGroupRule(port, rule)}
	}
	cmd.LSwitches = sets.List(switches)
	return cmd, nil
}
