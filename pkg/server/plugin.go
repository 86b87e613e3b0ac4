package server

import (
	"context"
	"fmt"
	"sync"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/netgroup-polito/ovn-networking/pkg/libovsdb/ops"
	"github.com/netgroup-polito/ovn-networking/pkg/neutron"
)

// requestPlugin serves the driver callbacks of one request from the state
// the request carries, and records the decisions taken through them
type requestPlugin struct {
	sync.Mutex

	ports          map[string]*neutron.Port
	subnets        map[string]*neutron.Subnet
	securityGroups map[string]*neutron.SecurityGroup
	segments       []neutron.Segment

	provisioning []ProvisioningEvent
	hostSegments map[string][]string
	segmentHosts map[string][]string
}

var _ neutron.Plugin = &requestPlugin{}

func newRequestPlugin(req *Request) *requestPlugin {
	p := &requestPlugin{
		ports:          map[string]*neutron.Port{},
		subnets:        map[string]*neutron.Subnet{},
		securityGroups: map[string]*neutron.SecurityGroup{},
		segments:       req.Segments,
	}
	for _, port := range req.Ports {
		p.ports[port.ID] = port
	}
	if req.Port != nil {
		p.ports[req.Port.ID] = req.Port
	}
	if req.Caches != nil {
		for id, subnet := range req.Caches.Subnets {
			p.subnets[id] = subnet
		}
		for id, sg := range req.Caches.SecurityGroups {
			p.securityGroups[id] = sg
		}
	}
	if req.Subnet != nil {
		p.subnets[req.Subnet.ID] = req.Subnet
	}
	if req.SecurityGroup != nil {
		p.securityGroups[req.SecurityGroup.ID] = req.SecurityGroup
	}
	return p
}

func (p *requestPlugin) GetPort(ctx context.Context, id string) (*neutron.Port, error) {
	p.Lock()
	defer p.Unlock()
	if port, ok := p.ports[id]; ok {
		return port, nil
	}
	return nil, neutron.ErrPortNotFound
}

func (p *requestPlugin) GetSubnet(ctx context.Context, id string) (*neutron.Subnet, error) {
	p.Lock()
	defer p.Unlock()
	if subnet, ok := p.subnets[id]; ok {
		return subnet, nil
	}
	return nil, fmt.Errorf("subnet %s is not in the request: %w", id, ops.ErrNotFound)
}

func (p *requestPlugin) GetSecurityGroup(ctx context.Context, id string) (*neutron.SecurityGroup, error) {
	p.Lock()
	defer p.Unlock()
	if sg, ok := p.securityGroups[id]; ok {
		return sg, nil
	}
	return nil, fmt.Errorf("security group %s is not in the request: %w", id, ops.ErrNotFound)
}

// GetSecurityGroupPorts returns the ports of the request in the security
// group
func (p *requestPlugin) GetSecurityGroupPorts(ctx context.Context, securityGroupID string) ([]*neutron.Port, error) {
	p.Lock()
	defer p.Unlock()
	ids := sets.New[string]()
	for id, port := range p.ports {
		for _, sg := range port.SecurityGroups {
			if sg == securityGroupID {
				ids.Insert(id)
				break
			}
		}
	}
	ports := make([]*neutron.Port, 0, ids.Len())
	for _, id := range sets.List(ids) {
		ports = append(ports, p.ports[id])
	}
	return ports, nil
}

func (p *requestPlugin) GetSegmentsWithPhysnets(ctx context.Context, physnets []string) ([]neutron.Segment, error) {
	wanted := sets.New(physnets...)
	segments := []neutron.Segment{}
	for _, segment := range p.segments {
		if wanted.Has(segment.PhysicalNetwork) {
			segments = append(segments, segment)
		}
	}
	return segments, nil
}

func (p *requestPlugin) AddProvisioningComponent(ctx context.Context, portID, entity string) error {
	p.Lock()
	defer p.Unlock()
	p.provisioning = append(p.provisioning, ProvisioningEvent{PortID: portID, Entity: entity})
	return nil
}

func (p *requestPlugin) ProvisioningComplete(ctx context.Context, portID, entity string) error {
	p.Lock()
	defer p.Unlock()
	p.provisioning = append(p.provisioning, ProvisioningEvent{PortID: portID, Entity: entity, Complete: true})
	return nil
}

func (p *requestPlugin) UpdateSegmentHostMapping(ctx context.Context, host string, segmentIDs []string) error {
	p.Lock()
	defer p.Unlock()
	if p.hostSegments == nil {
		p.hostSegments = map[string][]string{}
	}
	p.hostSegments[host] = segmentIDs
	return nil
}

func (p *requestPlugin) MapSegmentToHosts(ctx context.Context, segmentID string, hosts []string) error {
	p.Lock()
	defer p.Unlock()
	if p.segmentHosts == nil {
		p.segmentHosts = map[string][]string{}
	}
	p.segmentHosts[segmentID] = append(p.segmentHosts[segmentID], hosts...)
	return nil
}

// record copies the decisions taken through the plugin into resp
func (p *requestPlugin) record(resp *Response) {
	p.Lock()
	defer p.Unlock()
	resp.Provisioning = p.provisioning
	resp.HostSegments = p.hostSegments
	resp.SegmentHosts = p.segmentHosts
}

// portContext is the binding request of a port
type portContext struct {
	port     *neutron.Port
	host     string
	segments []neutron.Segment
	binding  *Binding
}

var _ neutron.PortContext = &portContext{}

func (c *portContext) Current() *neutron.Port {
	return c.port
}

func (c *portContext) Host() string {
	return c.host
}

func (c *portContext) SegmentsToBind() []neutron.Segment {
	return c.segments
}

func (c *portContext) SetBinding(segmentID, vifType string, vifDetails map[string]interface{}) {
	c.binding = &Binding{SegmentID: segmentID, VIFType: vifType, VIFDetails: vifDetails}
}
