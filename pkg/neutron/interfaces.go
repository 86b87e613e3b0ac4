package neutron

import (
	"context"
	"errors"
)

var (
	// ErrPortNotFound is returned by a Plugin when the port is gone
	ErrPortNotFound = errors.New("port not found")
	// ErrReferenceGone is returned by a Plugin when a row referenced by
	// the call was deleted concurrently
	ErrReferenceGone = errors.New("referenced object deleted concurrently")
)

// Plugin is the orchestrator side the driver calls back into
type Plugin interface {
	GetPort(ctx context.Context, id string) (*Port, error)
	GetSubnet(ctx context.Context, id string) (*Subnet, error)
	GetSecurityGroup(ctx context.Context, id string) (*SecurityGroup, error)
	// GetSecurityGroupPorts returns the ports using the security group
	GetSecurityGroupPorts(ctx context.Context, securityGroupID string) ([]*Port, error)
	// GetSegmentsWithPhysnets returns the segments on any of physnets
	GetSegmentsWithPhysnets(ctx context.Context, physnets []string) ([]Segment, error)

	// AddProvisioningComponent blocks the port from going ACTIVE until
	// entity reports it done
	AddProvisioningComponent(ctx context.Context, portID, entity string) error
	ProvisioningComplete(ctx context.Context, portID, entity string) error

	// UpdateSegmentHostMapping replaces the segments reachable by host
	UpdateSegmentHostMapping(ctx context.Context, host string, segmentIDs []string) error
	// MapSegmentToHosts adds hosts to the hosts reaching a segment
	MapSegmentToHosts(ctx context.Context, segmentID string, hosts []string) error
}

// PortContext is a port binding request
type PortContext interface {
	Current() *Port
	Host() string
	SegmentsToBind() []Segment
	SetBinding(segmentID, vifType string, vifDetails map[string]interface{})
}

// Caches holds the security groups and subnets a caller already fetched.
// Missing entries are fetched through the Plugin and added.
type Caches struct {
	SecurityGroups map[string]*SecurityGroup `json:"security_groups,omitempty"`
	Subnets        map[string]*Subnet        `json:"subnets,omitempty"`
}

// NewCaches returns empty caches
func NewCaches() *Caches {
	return &Caches{
		SecurityGroups: map[string]*SecurityGroup{},
		Subnets:        map[string]*Subnet{},
	}
}

// GetSecurityGroup returns the security group from the cache, fetching it
// from plugin on a miss
func (c *Caches) GetSecurityGroup(ctx context.Context, plugin Plugin, id string) (*SecurityGroup, error) {
	if sg, ok := c.SecurityGroups[id]; ok {
		return sg, nil
	}
	sg, err := plugin.GetSecurityGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.SecurityGroups == nil {
		c.SecurityGroups = map[string]*SecurityGroup{}
	}
	c.SecurityGroups[id] = sg
	return sg, nil
}

// GetSubnet returns the subnet from the cache, fetching it from plugin on
// a miss
func (c *Caches) GetSubnet(ctx context.Context, plugin Plugin, id string) (*Subnet, error) {
	if subnet, ok := c.Subnets[id]; ok {
		return subnet, nil
	}
	subnet, err := plugin.GetSubnet(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Subnets == nil {
		c.Subnets = map[string]*Subnet{}
	}
	c.Subnets[id] = subnet
	return subnet, nil
}
