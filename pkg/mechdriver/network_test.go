package mechdriver

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netgroup-polito/ovn-networking/pkg/config"
	"github.com/netgroup-polito/ovn-networking/pkg/nbdb"
	"github.com/netgroup-polito/ovn-networking/pkg/neutron"
	ovntest "github.com/netgroup-polito/ovn-networking/pkg/testing"
	libovsdbtest "github.com/netgroup-polito/ovn-networking/pkg/testing/libovsdb"
)

var _ = Describe("Network operations", func() {
	var (
		ctx context.Context
		td  *testDriver
	)

	BeforeEach(func() {
		config.PrepareTestConfig()
		ctx = context.Background()
	})

	AfterEach(func() {
		td.cleanup()
		td = nil
	})

	DescribeTable("validates the segments of a network",
		func(segments []neutron.Segment, valid bool) {
			d := NewDriver(nil, nil, ovntest.NewFakePlugin(), nil)
			network := &neutron.Network{ID: "net1", Segments: segments}
			for _, err := range []error{d.CreateNetworkPrecommit(network), d.UpdateNetworkPrecommit(network)} {
				if valid {
					Expect(err).NotTo(HaveOccurred())
				} else {
					Expect(err).To(MatchError(ErrInvalidInput))
				}
			}
		},
		Entry("local", []neutron.Segment{{ID: "s1", NetworkType: "local"}}, true),
		Entry("geneve", []neutron.Segment{{ID: "s1", NetworkType: "geneve", SegmentationID: 1000}}, true),
		Entry("flat", []neutron.Segment{{ID: "s1", NetworkType: "flat", PhysicalNetwork: "physnet1"}}, true),
		Entry("vlan", []neutron.Segment{{ID: "s1", NetworkType: "vlan", PhysicalNetwork: "physnet1", SegmentationID: 4094}}, true),
		Entry("no segments", nil, true),
		Entry("flat without physical network", []neutron.Segment{{ID: "s1", NetworkType: "flat"}}, false),
		Entry("vlan without physical network", []neutron.Segment{{ID: "s1", NetworkType: "vlan", SegmentationID: 100}}, false),
		Entry("vlan without segmentation id", []neutron.Segment{{ID: "s1", NetworkType: "vlan", PhysicalNetwork: "physnet1"}}, false),
		Entry("vlan with segmentation id out of range", []neutron.Segment{{ID: "s1", NetworkType: "vlan", PhysicalNetwork: "physnet1", SegmentationID: 4095}}, false),
		Entry("vxlan", []neutron.Segment{{ID: "s1", NetworkType: "vxlan", SegmentationID: 10}}, false),
		Entry("gre", []neutron.Segment{{ID: "s1", NetworkType: "gre", SegmentationID: 10}}, false),
		Entry("one invalid segment among valid ones", []neutron.Segment{
			{ID: "s1", NetworkType: "geneve"},
			{ID: "s2", NetworkType: "vxlan"},
		}, false),
	)

	It("creates the logical switch of an overlay network", func() {
		td = newTestDriver(libovsdbtest.TestSetup{})
		network := &neutron.Network{
			ID:       "net1",
			Name:     "private",
			Segments: []neutron.Segment{{ID: "s1", NetworkType: "geneve", SegmentationID: 1000}},
		}
		Expect(td.CreateNetworkPostcommit(ctx, network)).To(Succeed())
		Eventually(td.nbClient).Should(libovsdbtest.HaveData(
			&nbdb.LogicalSwitch{
				UUID:        "ls-UUID",
				Name:        "neutron-net1",
				ExternalIDs: map[string]string{"neutron:network_name": "private"},
			},
		))
	})

	It("attaches a vlan network to its physical network", func() {
		td = newTestDriver(libovsdbtest.TestSetup{})
		network := &neutron.Network{
			ID:       "net1",
			Name:     "provider",
			Segments: []neutron.Segment{{ID: "s1", NetworkType: "vlan", PhysicalNetwork: "physnet1", SegmentationID: 100}},
		}
		Expect(td.CreateNetworkPostcommit(ctx, network)).To(Succeed())
		Eventually(td.nbClient).Should(libovsdbtest.HaveData(
			&nbdb.LogicalSwitch{
				UUID:        "ls-UUID",
				Name:        "neutron-net1",
				ExternalIDs: map[string]string{"neutron:network_name": "provider"},
				Ports:       []string{"provnet-UUID"},
			},
			&nbdb.LogicalSwitchPort{
				UUID:       "provnet-UUID",
				Name:       "provnet-net1",
				Type:       "localnet",
				Addresses:  []string{"unknown"},
				Options:    map[string]string{"network_name": "physnet1"},
				TagRequest: ovntest.IntPtr(100),
			},
		))
	})

	It("attaches a flat network without tag", func() {
		td = newTestDriver(libovsdbtest.TestSetup{})
		network := &neutron.Network{
			ID:       "net1",
			Name:     "provider",
			Segments: []neutron.Segment{{ID: "s1", NetworkType: "flat", PhysicalNetwork: "physnet1"}},
		}
		Expect(td.CreateNetworkPostcommit(ctx, network)).To(Succeed())
		Eventually(td.nbClient).Should(libovsdbtest.ContainData(
			&nbdb.LogicalSwitchPort{
				UUID:      "provnet-UUID",
				Name:      "provnet-net1",
				Type:      "localnet",
				Addresses: []string{"unknown"},
				Options:   map[string]string{"network_name": "physnet1"},
			},
		))
	})

	It("updates the network name", func() {
		td = newTestDriver(libovsdbtest.TestSetup{
			NBData: []libovsdbtest.TestData{
				&nbdb.LogicalSwitch{
					UUID:        "ls-UUID",
					Name:        "neutron-net1",
					ExternalIDs: map[string]string{"neutron:network_name": "private", "other": "value"},
				},
			},
		})
		Expect(td.UpdateNetworkPostcommit(ctx, &neutron.Network{ID: "net1", Name: "renamed"})).To(Succeed())
		Eventually(td.nbClient).Should(libovsdbtest.HaveData(
			&nbdb.LogicalSwitch{
				UUID:        "ls-UUID",
				Name:        "neutron-net1",
				ExternalIDs: map[string]string{"neutron:network_name": "renamed", "other": "value"},
			},
		))
	})

	It("fails to update a missing network", func() {
		td = newTestDriver(libovsdbtest.TestSetup{})
		err := td.UpdateNetworkPostcommit(ctx, &neutron.Network{ID: "net1", Name: "renamed"})
		Expect(err).To(HaveOccurred())
	})

	It("deletes the logical switch with its ports", func() {
		td = newTestDriver(libovsdbtest.TestSetup{
			NBData: []libovsdbtest.TestData{
				&nbdb.LogicalSwitch{UUID: "ls-UUID", Name: "neutron-net1", Ports: []string{"lsp-UUID"}},
				&nbdb.LogicalSwitchPort{UUID: "lsp-UUID", Name: "port1"},
			},
		})
		Expect(td.DeleteNetworkPostcommit(ctx, "net1")).To(Succeed())
		Eventually(td.nbClient).Should(libovsdbtest.HaveEmptyData())
		// deleting again is a no-op
		Expect(td.DeleteNetworkPostcommit(ctx, "net1")).To(Succeed())
	})
})
