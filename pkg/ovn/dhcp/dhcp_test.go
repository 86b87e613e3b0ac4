package dhcp

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libovsdbclient "github.com/ovn-kubernetes/libovsdb/client"

	"github.com/netgroup-polito/ovn-networking/pkg/config"
	"github.com/netgroup-polito/ovn-networking/pkg/libovsdb/ops"
	"github.com/netgroup-polito/ovn-networking/pkg/nbdb"
	"github.com/netgroup-polito/ovn-networking/pkg/neutron"
	libovsdbtest "github.com/netgroup-polito/ovn-networking/pkg/testing/libovsdb"
	"github.com/netgroup-polito/ovn-networking/pkg/types"
)

const serverMAC = "fa:16:3e:00:00:42"

func fixedMAC() (string, error) {
	return serverMAC, nil
}

func v4Subnet() *neutron.Subnet {
	return &neutron.Subnet{
		ID:             "v4-subnet",
		CIDR:           "10.0.0.0/24",
		IPVersion:      4,
		EnableDHCP:     true,
		GatewayIP:      "10.0.0.1",
		DNSNameservers: []string{"7.7.7.7", "8.8.8.8"},
		HostRoutes:     []neutron.HostRoute{{Destination: "20.0.0.4", Nexthop: "10.0.0.100"}},
	}
}

func v6Subnet(id, mode string) *neutron.Subnet {
	return &neutron.Subnet{
		ID:              id,
		CIDR:            "fd00::/64",
		IPVersion:       6,
		EnableDHCP:      true,
		GatewayIP:       "fd00::1",
		DNSNameservers:  []string{"fd00::53"},
		IPv6AddressMode: mode,
	}
}

var _ = Describe("DHCP options composer", func() {
	var (
		composer *Composer
		network  *neutron.Network
	)

	BeforeEach(func() {
		config.PrepareTestConfig()
		composer = NewComposer(fixedMAC)
		network = &neutron.Network{ID: "net1", MTU: 1400}
	})

	Context("composing subnet options", func() {
		It("builds the DHCPv4 options", func() {
			row, err := composer.SubnetOptions(v4Subnet(), network, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(row).To(Equal(&nbdb.DHCPOptions{
				Cidr: "10.0.0.0/24",
				Options: map[string]string{
					"server_id":              "10.0.0.1",
					"server_mac":             serverMAC,
					"lease_time":             "43200",
					"mtu":                    "1400",
					"router":                 "10.0.0.1",
					"dns_server":             "{7.7.7.7, 8.8.8.8}",
					"classless_static_route": "{20.0.0.4,10.0.0.100, 0.0.0.0/0,10.0.0.1}",
				},
				ExternalIDs: map[string]string{types.SubnetIDExtIDKey: "v4-subnet"},
			}))
		})

		It("omits the static routes and DNS servers the subnet does not have", func() {
			subnet := v4Subnet()
			subnet.HostRoutes = nil
			subnet.DNSNameservers = nil
			config.OVN.DHCPDefaultLeaseTime = 3600
			row, err := composer.SubnetOptions(subnet, network, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(row.Options).NotTo(HaveKey("classless_static_route"))
			Expect(row.Options).NotTo(HaveKey("dns_server"))
			Expect(row.Options).To(HaveKeyWithValue("lease_time", "3600"))
		})

		It("keeps the server MAC of the existing row", func() {
			existing := &nbdb.DHCPOptions{Options: map[string]string{"server_mac": "fa:16:3e:00:00:01"}}
			row, err := composer.SubnetOptions(v4Subnet(), network, existing)
			Expect(err).NotTo(HaveOccurred())
			Expect(row.Options).To(HaveKeyWithValue("server_mac", "fa:16:3e:00:00:01"))
		})

		It("generates the server MAC within the base MAC by default", func() {
			row, err := NewComposer(nil).SubnetOptions(v4Subnet(), network, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(row.Options["server_mac"]).To(HavePrefix("fa:16:3e:"))
		})

		It("fails when no MAC can be generated", func() {
			failing := NewComposer(func() (string, error) { return "", fmt.Errorf("no entropy") })
			_, err := failing.SubnetOptions(v4Subnet(), network, nil)
			Expect(err).To(MatchError(ContainSubstring("no entropy")))
		})

		DescribeTable("yields no options",
			func(subnet *neutron.Subnet) {
				row, err := composer.SubnetOptions(subnet, network, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(row.Options).To(BeEmpty())
				Expect(row.Cidr).To(Equal(subnet.CIDR))
				Expect(row.ExternalIDs).To(Equal(map[string]string{types.SubnetIDExtIDKey: subnet.ID}))
			},
			Entry("when DHCP is disabled", func() *neutron.Subnet {
				subnet := v4Subnet()
				subnet.EnableDHCP = false
				return subnet
			}()),
			Entry("without a gateway", func() *neutron.Subnet {
				subnet := v4Subnet()
				subnet.GatewayIP = ""
				return subnet
			}()),
			Entry("for SLAAC subnets", v6Subnet("v6-subnet", types.IPv6ModeSLAAC)),
		)

		It("builds the DHCPv6 options", func() {
			row, err := composer.SubnetOptions(v6Subnet("v6-subnet", types.IPv6ModeDHCPv6Stateful), network, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(row.Options).To(Equal(map[string]string{
				"server_id":  serverMAC,
				"dns_server": "{fd00::53}",
			}))

			row, err = composer.SubnetOptions(v6Subnet("v6-subnet", types.IPv6ModeDHCPv6Stateless), network,
				&nbdb.DHCPOptions{Options: map[string]string{"server_id": "fa:16:3e:00:00:01"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(row.Options).To(Equal(map[string]string{
				"server_id":                    "fa:16:3e:00:00:01",
				"dns_server":                   "{fd00::53}",
				types.DHCPv6StatelessOptionKey: "true",
			}))
		})
	})

	Context("resolving the options of a port", func() {
		var (
			ctx      context.Context
			nbClient libovsdbclient.Client
			cleanup  *libovsdbtest.Context
			port     *neutron.Port
			v4Opts   *nbdb.DHCPOptions
		)

		BeforeEach(func() {
			ctx = context.Background()
			v4Opts = &nbdb.DHCPOptions{
				UUID:        "v4-UUID",
				Cidr:        "10.0.0.0/24",
				Options:     map[string]string{"router": "10.0.0.1", "server_id": "10.0.0.1"},
				ExternalIDs: map[string]string{types.SubnetIDExtIDKey: "v4-subnet"},
			}
			statefulOpts := &nbdb.DHCPOptions{
				UUID:        "stateful-UUID",
				Cidr:        "fd00::/64",
				Options:     map[string]string{"server_id": serverMAC},
				ExternalIDs: map[string]string{types.SubnetIDExtIDKey: "v6-stateful"},
			}
			statelessOpts := &nbdb.DHCPOptions{
				UUID:        "stateless-UUID",
				Cidr:        "fd01::/64",
				Options:     map[string]string{"server_id": serverMAC, types.DHCPv6StatelessOptionKey: "true"},
				ExternalIDs: map[string]string{types.SubnetIDExtIDKey: "v6-stateless"},
			}
			disabledOpts := &nbdb.DHCPOptions{
				UUID:        "disabled-UUID",
				Cidr:        "10.1.0.0/24",
				Options:     map[string]string{},
				ExternalIDs: map[string]string{types.SubnetIDExtIDKey: "v4-disabled"},
			}
			slaacOpts := &nbdb.DHCPOptions{
				UUID:        "slaac-UUID",
				Cidr:        "fd02::/64",
				Options:     map[string]string{},
				ExternalIDs: map[string]string{types.SubnetIDExtIDKey: "v6-slaac"},
			}
			var err error
			nbClient, cleanup, err = libovsdbtest.NewNBTestHarness(libovsdbtest.TestSetup{
				NBData: []libovsdbtest.TestData{v4Opts, statefulOpts, statelessOpts, disabledOpts, slaacOpts},
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			port = &neutron.Port{
				ID:         "port1",
				NetworkID:  "net1",
				MACAddress: "fa:16:3e:00:00:01",
				FixedIPs: []neutron.FixedIP{
					{SubnetID: "v4-disabled", IPAddress: "10.1.0.10"},
					{SubnetID: "v4-subnet", IPAddress: "10.0.0.10"},
					{SubnetID: "v6-stateless", IPAddress: "fd01::10"},
					{SubnetID: "v6-stateful", IPAddress: "fd00::10"},
				},
			}
		})

		AfterEach(func() {
			cleanup.Cleanup()
		})

		subnetUUID := func(subnetID string) string {
			opts, err := ops.GetSubnetDHCPOptions(ctx, nbClient, subnetID, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts.Subnet).NotTo(BeNil())
			return opts.Subnet.UUID
		}

		It("links the port to the subnet rows", func() {
			opts, err := composer.PortOptions(ctx, nbClient, port, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts.Add).To(BeNil())
			Expect(opts.Ref()).To(Equal(subnetUUID("v4-subnet")))

			opts, err = composer.PortOptions(ctx, nbClient, port, 6)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts.Ref()).To(Equal(subnetUUID("v6-stateful")))
		})

		It("falls back to a stateless DHCPv6 row", func() {
			port.FixedIPs = port.FixedIPs[:3]
			opts, err := composer.PortOptions(ctx, nbClient, port, 6)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts.Ref()).To(Equal(subnetUUID("v6-stateless")))
		})

		It("prefers a stateless DHCPv6 row over a row without options", func() {
			port.FixedIPs = []neutron.FixedIP{
				{SubnetID: "v6-slaac", IPAddress: "fd02::10"},
				{SubnetID: "v6-stateless", IPAddress: "fd01::10"},
			}
			opts, err := composer.PortOptions(ctx, nbClient, port, 6)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts.Ref()).To(Equal(subnetUUID("v6-stateless")))

			port.FixedIPs = port.FixedIPs[:1]
			opts, err = composer.PortOptions(ctx, nbClient, port, 6)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts).To(BeNil())
		})

		It("returns nothing without a subnet serving DHCP", func() {
			port.FixedIPs = []neutron.FixedIP{
				{SubnetID: "v4-disabled", IPAddress: "10.1.0.10"},
				{SubnetID: "v4-unknown", IPAddress: "10.2.0.10"},
			}
			opts, err := composer.PortOptions(ctx, nbClient, port, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts).To(BeNil())
		})

		It("returns nothing for network device ports", func() {
			port.DeviceOwner = "neutron:router_interface"
			opts, err := composer.PortOptions(ctx, nbClient, port, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts).To(BeNil())
		})

		It("disables DHCP per IP version", func() {
			port.ExtraDHCPOpts = []neutron.ExtraDHCPOpt{
				{OptName: "dhcp_disabled", OptValue: "true", IPVersion: 4},
				{OptName: "dhcp_disabled", OptValue: "false", IPVersion: 6},
			}
			opts, err := composer.PortOptions(ctx, nbClient, port, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts).To(BeNil())

			opts, err = composer.PortOptions(ctx, nbClient, port, 6)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts.Ref()).To(Equal(subnetUUID("v6-stateful")))
		})

		It("creates a row of its own for a port with extra options", func() {
			port.ExtraDHCPOpts = []neutron.ExtraDHCPOpt{
				{OptName: "mtu", OptValue: "1200"},
				{OptName: "ntp-server", OptValue: "8.8.8.8", IPVersion: 4},
				{OptName: "dns-server", OptValue: "{fd00::53}", IPVersion: 6},
			}
			opts, err := composer.PortOptions(ctx, nbClient, port, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(opts.Add).To(Equal(&ops.AddDHCPOptions{
				SubnetID: "v4-subnet",
				PortID:   "port1",
				MayExist: true,
				CIDR:     "10.0.0.0/24",
				Options: map[string]string{
					"router":     "10.0.0.1",
					"server_id":  "10.0.0.1",
					"mtu":        "1200",
					"ntp_server": "8.8.8.8",
				},
				ExternalIDs: map[string]string{types.SubnetIDExtIDKey: "v4-subnet"},
			}))
			Expect(ops.Execute(ctx, nbClient, true, opts.Add)).To(Succeed())
			Expect(opts.Ref()).NotTo(BeEmpty())

			portOpts, err := ops.GetPortDHCPOptions(ctx, nbClient, "v4-subnet", "port1")
			Expect(err).NotTo(HaveOccurred())
			Expect(portOpts.UUID).To(Equal(opts.Ref()))
			Expect(portOpts.Options).To(HaveKeyWithValue("mtu", "1200"))

			Eventually(nbClient).Should(libovsdbtest.ContainData(v4Opts))
		})

		It("rejects malformed extra options", func() {
			port.ExtraDHCPOpts = []neutron.ExtraDHCPOpt{{OptName: "mtu"}}
			_, err := composer.PortOptions(ctx, nbClient, port, 4)
			Expect(err).To(MatchError(ops.ErrInvalidInput))
		})
	})
})
