package mechdriver

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/netgroup-polito/ovn-networking/pkg/config"
	"github.com/netgroup-polito/ovn-networking/pkg/metrics"
	"github.com/netgroup-polito/ovn-networking/pkg/neutron"
	ovntest "github.com/netgroup-polito/ovn-networking/pkg/testing"
	libovsdbtest "github.com/netgroup-polito/ovn-networking/pkg/testing/libovsdb"
)

var (
	flatSegment   = neutron.Segment{ID: "flat1", NetworkType: "flat", PhysicalNetwork: "physnet1"}
	vlanSegment   = neutron.Segment{ID: "vlan1", NetworkType: "vlan", PhysicalNetwork: "physnet1", SegmentationID: 100}
	vlanSegment2  = neutron.Segment{ID: "vlan2", NetworkType: "vlan", PhysicalNetwork: "physnet2", SegmentationID: 200}
	geneveSegment = neutron.Segment{ID: "geneve1", NetworkType: "geneve", SegmentationID: 1000}
	vxlanSegment  = neutron.Segment{ID: "vxlan1", NetworkType: "vxlan", SegmentationID: 10}
)

var _ = Describe("Port binding", func() {
	var (
		ctx context.Context
		td  *testDriver
	)

	BeforeEach(func() {
		config.PrepareTestConfig()
		ctx = context.Background()
		td = newTestDriver(libovsdbtest.TestSetup{
			SBData: []libovsdbtest.TestData{
				libovsdbtest.NewChassis("chassis1", "host1", map[string]string{"physnet1": "br-ex"}),
				libovsdbtest.NewChassis("chassis2", "host2", map[string]string{"physnet1": "br-ex", "physnet2": "br-vlan"}),
				libovsdbtest.NewChassis("chassis3", "host3", nil),
			},
		})
	})

	AfterEach(func() {
		td.cleanup()
		td = nil
	})

	DescribeTable("binds a port",
		func(vnicType, host string, segments []neutron.Segment, expected *ovntest.Binding) {
			portContext := &ovntest.FakePortContext{
				Port:     &neutron.Port{ID: portID, VNICType: vnicType},
				HostName: host,
				Segments: segments,
			}
			td.BindPort(ctx, portContext)
			Expect(portContext.Binding).To(Equal(expected))
		},
		Entry("to a mapped flat segment", "", "host1", []neutron.Segment{flatSegment},
			&ovntest.Binding{SegmentID: "flat1", VIFType: "ovs", VIFDetails: map[string]interface{}{"port_filter": true}}),
		Entry("to an overlay segment on a host without mappings", "normal", "host3", []neutron.Segment{geneveSegment},
			&ovntest.Binding{SegmentID: "geneve1", VIFType: "ovs", VIFDetails: map[string]interface{}{"port_filter": true}}),
		Entry("to the first reachable segment", "", "host1", []neutron.Segment{vxlanSegment, vlanSegment2, vlanSegment, geneveSegment},
			&ovntest.Binding{SegmentID: "vlan1", VIFType: "ovs", VIFDetails: map[string]interface{}{"port_filter": true}}),
		Entry("to a segment mapped on the second host", "", "host2", []neutron.Segment{vlanSegment2},
			&ovntest.Binding{SegmentID: "vlan2", VIFType: "ovs", VIFDetails: map[string]interface{}{"port_filter": true}}),
		Entry("not to an unmapped physical network", "", "host1", []neutron.Segment{vlanSegment2}, nil),
		Entry("not to an unsupported segment type", "", "host1", []neutron.Segment{vxlanSegment}, nil),
		Entry("not on a host without chassis", "", "host4", []neutron.Segment{geneveSegment}, nil),
		Entry("not with an unsupported vnic type", "direct", "host1", []neutron.Segment{geneveSegment}, nil),
	)

	It("binds with the configured vif type", func() {
		config.OVN.VIFType = "vhostuser"
		portContext := &ovntest.FakePortContext{
			Port:     &neutron.Port{ID: portID},
			HostName: "host1",
			Segments: []neutron.Segment{geneveSegment},
		}
		td.BindPort(ctx, portContext)
		Expect(portContext.Binding.VIFType).To(Equal("vhostuser"))
	})

	It("counts the binding outcomes", func() {
		bound := testutil.ToFloat64(metrics.MetricPortBindings.WithLabelValues(metrics.BindBound))
		noChassis := testutil.ToFloat64(metrics.MetricPortBindings.WithLabelValues(metrics.BindNoChassis))
		unsupported := testutil.ToFloat64(metrics.MetricPortBindings.WithLabelValues(metrics.BindUnsupportedVNIC))
		noSegment := testutil.ToFloat64(metrics.MetricPortBindings.WithLabelValues(metrics.BindNoSegment))

		td.BindPort(ctx, &ovntest.FakePortContext{Port: &neutron.Port{ID: portID}, HostName: "host1", Segments: []neutron.Segment{geneveSegment}})
		td.BindPort(ctx, &ovntest.FakePortContext{Port: &neutron.Port{ID: portID}, HostName: "host4", Segments: []neutron.Segment{geneveSegment}})
		td.BindPort(ctx, &ovntest.FakePortContext{Port: &neutron.Port{ID: portID, VNICType: "direct"}, HostName: "host1"})
		td.BindPort(ctx, &ovntest.FakePortContext{Port: &neutron.Port{ID: portID}, HostName: "host1", Segments: []neutron.Segment{vxlanSegment}})

		Expect(testutil.ToFloat64(metrics.MetricPortBindings.WithLabelValues(metrics.BindBound))).To(Equal(bound + 1))
		Expect(testutil.ToFloat64(metrics.MetricPortBindings.WithLabelValues(metrics.BindNoChassis))).To(Equal(noChassis + 1))
		Expect(testutil.ToFloat64(metrics.MetricPortBindings.WithLabelValues(metrics.BindUnsupportedVNIC))).To(Equal(unsupported + 1))
		Expect(testutil.ToFloat64(metrics.MetricPortBindings.WithLabelValues(metrics.BindNoSegment))).To(Equal(noSegment + 1))
	})

	Context("mapping segments to hosts", func() {
		BeforeEach(func() {
			td.plugin.Segments = []neutron.Segment{
				flatSegment,
				vlanSegment,
				vlanSegment2,
				{ID: "local1", NetworkType: "local", PhysicalNetwork: "physnet1"},
			}
		})

		It("maps a host to the physical segments it reaches", func() {
			Expect(td.UpdateSegmentHostMapping(ctx, "host1", []string{"physnet1"})).To(Succeed())
			Expect(td.plugin.HostSegments).To(Equal(map[string][]string{
				"host1": {"flat1", "vlan1"},
			}))
		})

		It("maps a host without physical networks to no segment", func() {
			Expect(td.UpdateSegmentHostMapping(ctx, "host3", nil)).To(Succeed())
			Expect(td.plugin.HostSegments).To(Equal(map[string][]string{"host3": {}}))
		})

		It("ignores an empty host", func() {
			Expect(td.UpdateSegmentHostMapping(ctx, "", []string{"physnet1"})).To(Succeed())
			Expect(td.plugin.HostSegments).To(BeEmpty())
		})

		It("maps a new segment to every host reaching its physical network", func() {
			Expect(td.AddSegmentHostMappingForSegment(ctx, &vlanSegment)).To(Succeed())
			Expect(td.AddSegmentHostMappingForSegment(ctx, &vlanSegment2)).To(Succeed())
			Expect(td.plugin.SegmentHosts).To(Equal(map[string][]string{
				"vlan1": {"host1", "host2"},
				"vlan2": {"host2"},
			}))
		})

		It("does not map an overlay segment", func() {
			Expect(td.AddSegmentHostMappingForSegment(ctx, &geneveSegment)).To(Succeed())
			Expect(td.plugin.SegmentHosts).To(BeEmpty())
		})

		It("maps every chassis host", func() {
			Expect(td.SyncSegmentHostMappings(ctx)).To(Succeed())
			Expect(td.plugin.HostSegments).To(Equal(map[string][]string{
				"host1": {"flat1", "vlan1"},
				"host2": {"flat1", "vlan1", "vlan2"},
				"host3": {},
			}))
		})
	})
})
