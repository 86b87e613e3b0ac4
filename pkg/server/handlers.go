package server

import (
	"fmt"

	"github.com/netgroup-polito/ovn-networking/pkg/mechdriver"
	"github.com/netgroup-polito/ovn-networking/pkg/types"
)

func missing(what string) error {
	return fmt.Errorf("%w: request has no %s", mechdriver.ErrInvalidInput, what)
}

// matchingID checks that the resource id in the path is the one of the
// resource in the body
func matchingID(c *call, id string) error {
	if c.vars["id"] != id {
		return fmt.Errorf("%w: path id %q does not match body id %q", mechdriver.ErrInvalidInput, c.vars["id"], id)
	}
	return nil
}

func createNetworkPrecommit(c *call) error {
	if c.req.Network == nil {
		return missing("network")
	}
	return c.driver.CreateNetworkPrecommit(c.req.Network)
}

func updateNetworkPrecommit(c *call) error {
	if c.req.Network == nil {
		return missing("network")
	}
	return c.driver.UpdateNetworkPrecommit(c.req.Network)
}

func createNetwork(c *call) error {
	if c.req.Network == nil {
		return missing("network")
	}
	return c.driver.CreateNetworkPostcommit(c.ctx, c.req.Network)
}

func updateNetwork(c *call) error {
	if c.req.Network == nil {
		return missing("network")
	}
	return c.driver.UpdateNetworkPostcommit(c.ctx, c.req.Network)
}

func deleteNetwork(c *call) error {
	return c.driver.DeleteNetworkPostcommit(c.ctx, c.vars["id"])
}

func createSubnet(c *call) error {
	if c.req.Subnet == nil {
		return missing("subnet")
	}
	return c.driver.CreateSubnetPostcommit(c.ctx, c.req.Subnet, c.req.Network)
}

func updateSubnet(c *call) error {
	if c.req.Subnet == nil {
		return missing("subnet")
	}
	return c.driver.UpdateSubnetPostcommit(c.ctx, c.req.Subnet, c.req.Network)
}

func deleteSubnet(c *call) error {
	return c.driver.DeleteSubnetPostcommit(c.ctx, c.vars["id"])
}

func getSubnetDHCPOptions(c *call) error {
	opts, err := c.driver.GetOVNDHCPOptions(c.ctx, c.vars["id"])
	if err != nil {
		return err
	}
	result := &SubnetDHCPOptions{
		Subnet: newDHCPOptions(opts.Subnet),
		Ports:  make([]*DHCPOptions, 0, len(opts.Ports)),
	}
	for _, row := range opts.Ports {
		result.Ports = append(result.Ports, newDHCPOptions(row))
	}
	c.resp.SubnetDHCPOptions = result
	return nil
}

// validatePort checks the port and reports whether binding it to Host
// blocks it until the L2 agent reports it up
func validatePort(c *call) error {
	if c.req.Port == nil {
		return missing("port")
	}
	if _, err := c.driver.ValidatePort(c.ctx, c.req.Port); err != nil {
		return err
	}
	required := c.driver.IsPortProvisioningRequired(c.ctx, c.req.Port, c.req.Host, c.req.OriginalHost)
	c.resp.ProvisioningRequired = &required
	return nil
}

func createPortPrecommit(c *call) error {
	if c.req.Port == nil {
		return missing("port")
	}
	return c.driver.CreatePortPrecommit(c.ctx, c.req.Port)
}

func updatePortPrecommit(c *call) error {
	if c.req.Port == nil {
		return missing("port")
	}
	return c.driver.UpdatePortPrecommit(c.ctx, c.req.Port, c.req.OriginalPort)
}

func bindPort(c *call) error {
	if c.req.Port == nil {
		return missing("port")
	}
	host := c.req.Host
	if host == "" {
		host = c.req.Port.HostID
	}
	portContext := &portContext{
		port:     c.req.Port,
		host:     host,
		segments: c.req.Segments,
	}
	c.driver.BindPort(c.ctx, portContext)
	c.resp.Binding = portContext.binding
	return nil
}

func getPortDHCPOptions(c *call) error {
	if c.req.Port == nil {
		return missing("port")
	}
	ipVersion := c.req.IPVersion
	if ipVersion == 0 {
		ipVersion = 4
	}
	if ipVersion != 4 && ipVersion != 6 {
		return fmt.Errorf("%w: unknown IP version %d", mechdriver.ErrInvalidInput, ipVersion)
	}
	opts, err := c.driver.GetPortDHCPOptions(c.ctx, c.req.Port, ipVersion)
	if err != nil || opts == nil {
		return err
	}
	c.resp.PortDHCPOptions = &PortDHCPOptions{UUID: opts.UUID}
	if opts.Add != nil {
		c.resp.PortDHCPOptions.Options = opts.Add.Options
	}
	return nil
}

func createPort(c *call) error {
	if c.req.Port == nil {
		return missing("port")
	}
	return c.driver.CreatePortPostcommit(c.ctx, c.req.Port, c.req.Caches)
}

func updatePort(c *call) error {
	if c.req.Port == nil {
		return missing("port")
	}
	return c.driver.UpdatePortPostcommit(c.ctx, c.req.Port, c.req.OriginalPort, c.req.Caches)
}

func deletePort(c *call) error {
	if c.req.Port == nil {
		return missing("port")
	}
	if err := matchingID(c, c.req.Port.ID); err != nil {
		return err
	}
	return c.driver.DeletePortPostcommit(c.ctx, c.req.Port)
}

func setPortStatus(c *call) error {
	switch c.req.Status {
	case types.PortStatusActive:
		return c.driver.SetPortStatusUp(c.ctx, c.vars["id"])
	case types.PortStatusDown:
		return c.driver.SetPortStatusDown(c.ctx, c.vars["id"])
	default:
		return fmt.Errorf("%w: unknown port status %q", mechdriver.ErrInvalidInput, c.req.Status)
	}
}

func createSecurityGroup(c *call) error {
	if c.req.SecurityGroup == nil {
		return missing("security group")
	}
	return c.driver.CreateSecurityGroup(c.ctx, c.req.SecurityGroup)
}

func updateSecurityGroup(c *call) error {
	if c.req.SecurityGroup == nil {
		return missing("security group")
	}
	return c.driver.UpdateSecurityGroup(c.ctx, c.req.SecurityGroup)
}

func deleteSecurityGroup(c *call) error {
	return c.driver.DeleteSecurityGroup(c.ctx, c.vars["id"])
}

func createSecurityGroupRule(c *call) error {
	if c.req.SecurityGroupRule == nil {
		return missing("security group rule")
	}
	return c.driver.CreateSecurityGroupRule(c.ctx, c.req.SecurityGroupRule)
}

func deleteSecurityGroupRule(c *call) error {
	if c.req.SecurityGroupRule == nil {
		return missing("security group rule")
	}
	if err := matchingID(c, c.req.SecurityGroupRule.ID); err != nil {
		return err
	}
	return c.driver.DeleteSecurityGroupRule(c.ctx, c.req.SecurityGroupRule)
}

func createRouter(c *call) error {
	if c.req.Router == nil {
		return missing("router")
	}
	return c.driver.CreateRouter(c.ctx, c.req.Router)
}

func updateRouter(c *call) error {
	if c.req.Router == nil {
		return missing("router")
	}
	return c.driver.UpdateRouter(c.ctx, c.req.Router, c.req.OriginalRouter)
}

func deleteRouter(c *call) error {
	return c.driver.DeleteRouter(c.ctx, c.vars["id"])
}

func addRouterInterface(c *call) error {
	if c.req.Port == nil {
		return missing("port")
	}
	return c.driver.AddRouterInterface(c.ctx, c.vars["id"], c.req.Port, c.req.Caches)
}

func removeRouterInterface(c *call) error {
	return c.driver.RemoveRouterInterface(c.ctx, c.vars["id"], c.vars["port_id"])
}

func updateSegmentHostMapping(c *call) error {
	return c.driver.UpdateSegmentHostMapping(c.ctx, c.vars["host"], c.req.Physnets)
}

func syncSegmentHostMappings(c *call) error {
	return c.driver.SyncSegmentHostMappings(c.ctx)
}

func addSegmentHostMapping(c *call) error {
	if c.req.Segment == nil {
		return missing("segment")
	}
	return c.driver.AddSegmentHostMappingForSegment(c.ctx, c.req.Segment)
}
