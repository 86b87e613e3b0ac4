package mechdriver

import (
	"context"

	pkgerrors "github.com/pkg/errors"

	"github.com/netgroup-polito/ovn-networking/pkg/config"
	"github.com/netgroup-polito/ovn-networking/pkg/neutron"
	"github.com/netgroup-polito/ovn-networking/pkg/ovn/acl"
)

// CreateSecurityGroup creates the address sets of the security group
func (d *Driver) CreateSecurityGroup(ctx context.Context, sg *neutron.SecurityGroup) error {
	if !config.OVN.EnableSecurityGroups {
		return nil
	}
	if err := d.execute(ctx, "create_security_group", acl.CreateAddressSets(sg)...); err != nil {
		return pkgerrors.Wrapf(err, "failed to create security group %s", sg.ID)
	}
	return nil
}

// UpdateSecurityGroup updates the name of the security group stored in
// its address sets
func (d *Driver) UpdateSecurityGroup(ctx context.Context, sg *neutron.SecurityGroup) error {
	if !config.OVN.EnableSecurityGroups {
		return nil
	}
	if err := d.execute(ctx, "update_security_group", acl.UpdateAddressSetsName(sg)...); err != nil {
		return pkgerrors.Wrapf(err, "failed to update security group %s", sg.ID)
	}
	return nil
}

// DeleteSecurityGroup deletes the address sets of the security group
func (d *Driver) DeleteSecurityGroup(ctx context.Context, securityGroupID string) error {
	if !config.OVN.EnableSecurityGroups {
		return nil
	}
	if err := d.execute(ctx, "delete_security_group", acl.DeleteAddressSets(securityGroupID)...); err != nil {
		return pkgerrors.Wrapf(err, "failed to delete security group %s", securityGroupID)
	}
	return nil
}

func (d *Driver) updateSecurityGroupRule(ctx context.Context, rule *neutron.SecurityGroupRule, isAdd bool) error {
	cmd, err := acl.UpdateACLsForSecurityGroup(ctx, d.plugin, rule, isAdd)
	if err != nil {
		return err
	}
	if cmd == nil {
		return nil
	}
	operation := "delete_security_group_rule"
	if isAdd {
		operation = "create_security_group_rule"
	}
	return d.execute(ctx, operation, cmd)
}

// CreateSecurityGroupRule installs the ACL of the rule on every port of
// its security group
func (d *Driver) CreateSecurityGroupRule(ctx context.Context, rule *neutron.SecurityGroupRule) error {
	if err := d.updateSecurityGroupRule(ctx, rule, true); err != nil {
		return pkgerrors.Wrapf(err, "failed to create security group rule %s", rule.ID)
	}
	return nil
}

// DeleteSecurityGroupRule removes the ACL of the rule from every port of
// its security group
func (d *Driver) DeleteSecurityGroupRule(ctx context.Context, rule *neutron.SecurityGroupRule) error {
	if err := d.updateSecurityGroupRule(ctx, rule, false); err != nil {
		return pkgerrors.Wrapf(err, "failed to delete security group rule %s", rule.ID)
	}
	return nil
}
