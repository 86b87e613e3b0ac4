package testing

import (
	"context"
	"sort"
	"sync"

	"github.com/netgroup-polito/ovn-networking/pkg/neutron"
)

// ProvisioningEvent is a provisioning block added or completed through a
// FakePlugin
type ProvisioningEvent struct {
	PortID   string
	Entity   string
	Complete bool
}

// FakePlugin is an in-memory neutron.Plugin recording the calls the
// driver makes
type FakePlugin struct {
	sync.Mutex

	Ports          map[string]*neutron.Port
	Subnets        map[string]*neutron.Subnet
	SecurityGroups map[string]*neutron.SecurityGroup
	Segments       []neutron.Segment

	// Err, when set, is returned by the provisioning calls
	Err error

	Provisioning   []ProvisioningEvent
	HostSegments   map[string][]string
	SegmentHosts   map[string][]string
	SubnetLookups  int
	SGLookups      int
	SGPortsLookups int
}

var _ neutron.Plugin = &FakePlugin{}

// NewFakePlugin returns an empty FakePlugin
func NewFakePlugin() *FakePlugin {
	return &FakePlugin{
		Ports:          map[string]*neutron.Port{},
		Subnets:        map[string]*neutron.Subnet{},
		SecurityGroups: map[string]*neutron.SecurityGroup{},
		HostSegments:   map[string][]string{},
		SegmentHosts:   map[string][]string{},
	}
}

func (p *FakePlugin) GetPort(ctx context.Context, id string) (*neutron.Port, error) {
	p.Lock()
	defer p.Unlock()
	port, ok := p.Ports[id]
	if !ok {
		return nil, neutron.ErrPortNotFound
	}
	return port, nil
}

func (p *FakePlugin) GetSubnet(ctx context.Context, id string) (*neutron.Subnet, error) {
	p.Lock()
	defer p.Unlock()
	p.SubnetLookups++
	subnet, ok := p.Subnets[id]
	if !ok {
		return nil, neutron.ErrReferenceGone
	}
	return subnet, nil
}

func (p *FakePlugin) GetSecurityGroup(ctx context.Context, id string) (*neutron.SecurityGroup, error) {
	p.Lock()
	defer p.Unlock()
	p.SGLookups++
	sg, ok := p.SecurityGroups[id]
	if !ok {
		return nil, neutron.ErrReferenceGone
	}
	return sg, nil
}

func (p *FakePlugin) GetSecurityGroupPorts(ctx context.Context, securityGroupID string) ([]*neutron.Port, error) {
	p.Lock()
	defer p.Unlock()
	p.SGPortsLookups++
	ports := []*neutron.Port{}
	for _, port := range p.Ports {
		for _, sg := range port.SecurityGroups {
			if sg == securityGroupID {
				ports = append(ports, port)
				break
			}
		}
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].ID < ports[j].ID })
	return ports, nil
}

func (p *FakePlugin) GetSegmentsWithPhysnets(ctx context.Context, physnets []string) ([]neutron.Segment, error) {
	p.Lock()
	defer p.Unlock()
	segments := []neutron.Segment{}
	for _, segment := range p.Segments {
		for _, physnet := range physnets {
			if segment.PhysicalNetwork == physnet {
				segments = append(segments, segment)
				break
			}
		}
	}
	return segments, nil
}

func (p *FakePlugin) AddProvisioningComponent(ctx context.Context, portID, entity string) error {
	p.Lock()
	defer p.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Provisioning = append(p.Provisioning, ProvisioningEvent{PortID: portID, Entity: entity})
	return nil
}

func (p *FakePlugin) ProvisioningComplete(ctx context.Context, portID, entity string) error {
	p.Lock()
	defer p.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Provisioning = append(p.Provisioning, ProvisioningEvent{PortID: portID, Entity: entity, Complete: true})
	return nil
}

func (p *FakePlugin) UpdateSegmentHostMapping(ctx context.Context, host string, segmentIDs []string) error {
	p.Lock()
	defer p.Unlock()
	p.HostSegments[host] = segmentIDs
	return nil
}

func (p *FakePlugin) MapSegmentToHosts(ctx context.Context, segmentID string, hosts []string) error {
	p.Lock()
	defer p.Unlock()
	p.SegmentHosts[segmentID] = append(p.SegmentHosts[segmentID], hosts...)
	return nil
}

// Binding is the binding set through a FakePortContext
type Binding struct {
	SegmentID  string
	VIFType    string
	VIFDetails map[string]interface{}
}

// FakePortContext is a neutron.PortContext recording the binding
type FakePortContext struct {
	Port     *neutron.Port
	HostName string
	Segments []neutron.Segment
	Binding  *Binding
}

var _ neutron.PortContext = &FakePortContext{}

func (c *FakePortContext) Current() *neutron.Port {
	return c.Port
}

func (c *FakePortContext) Host() string {
	return c.HostName
}

func (c *FakePortContext) SegmentsToBind() []neutron.Segment {
	return c.Segments
}

func (c *FakePortContext) SetBinding(segmentID, vifType string, vifDetails map[string]interface{}) {
	c.Binding = &Binding{SegmentID: segmentID, VIFType: vifType, VIFDetails: vifDetails}
}
