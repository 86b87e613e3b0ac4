package mechdriver

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netgroup-polito/ovn-networking/pkg/config"
	"github.com/netgroup-polito/ovn-networking/pkg/nbdb"
	"github.com/netgroup-polito/ovn-networking/pkg/neutron"
	"github.com/netgroup-polito/ovn-networking/pkg/ovn/acl"
	ovntest "github.com/netgroup-polito/ovn-networking/pkg/testing"
	libovsdbtest "github.com/netgroup-polito/ovn-networking/pkg/testing/libovsdb"
	"github.com/netgroup-polito/ovn-networking/pkg/types"
)

const (
	portID   = "port1"
	portMAC  = "fa:16:3e:00:00:01"
	subnetID = "subnet1"
	sgID     = "sg1"
)

func newPort() *neutron.Port {
	return &neutron.Port{
		ID:         portID,
		Name:       "vm-port",
		NetworkID:  "net1",
		MACAddress: portMAC,
		Status:     types.PortStatusDown,
		FixedIPs:   []neutron.FixedIP{{SubnetID: subnetID, IPAddress: "10.0.0.10"}},
	}
}

func subnetDHCPOptions() *nbdb.DHCPOptions {
	return &nbdb.DHCPOptions{
		UUID: "dhcp-UUID",
		Cidr: "10.0.0.0/24",
		Options: map[string]string{
			"server_id":  "10.0.0.1",
			"server_mac": serverMAC,
			"lease_time": "43200",
			"router":     "10.0.0.1",
		},
		ExternalIDs: map[string]string{types.SubnetIDExtIDKey: subnetID},
	}
}

func sshSecurityGroup() *neutron.SecurityGroup {
	return &neutron.SecurityGroup{
		ID:   sgID,
		Name: "ssh",
		Rules: []neutron.SecurityGroupRule{
			{
				ID:              "rule1",
				SecurityGroupID: sgID,
				Direction:       types.SecurityGroupRuleIngress,
				EtherType:       types.EtherTypeIPv4,
				Protocol:        "tcp",
				PortRangeMin:    ovntest.IntPtr(22),
				PortRangeMax:    ovntest.IntPtr(22),
			},
		},
	}
}

func addressSets(v4 ...string) []libovsdbtest.TestData {
	return []libovsdbtest.TestData{
		&nbdb.AddressSet{
			UUID:        "as-v4-UUID",
			Name:        "as_ip4_sg1",
			Addresses:   v4,
			ExternalIDs: map[string]string{types.SecurityGroupNameExtIDKey: "ssh"},
		},
		&nbdb.AddressSet{
			UUID:        "as-v6-UUID",
			Name:        "as_ip6_sg1",
			ExternalIDs: map[string]string{types.SecurityGroupNameExtIDKey: "ssh"},
		},
	}
}

// namedACLs gives the ACLs distinct test UUIDs
func namedACLs(acls []*nbdb.ACL) ([]libovsdbtest.TestData, []string) {
	data := []libovsdbtest.TestData{}
	uuids := []string{}
	for i, a := range acls {
		a = a.DeepCopy()
		a.UUID = fmt.Sprintf("acl-%d-UUID", i)
		data = append(data, a)
		uuids = append(uuids, a.UUID)
	}
	return data, uuids
}

var _ = Describe("Port operations", func() {
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

	DescribeTable("validates the binding profile",
		func(profile map[string]interface{}, expected *BindingProfile) {
			result, err := ParseBindingProfile(profile)
			if expected == nil {
				Expect(err).To(MatchError(ErrInvalidInput))
				return
			}
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(expected))
		},
		Entry("empty", map[string]interface{}{}, &BindingProfile{}),
		Entry("parent and tag",
			map[string]interface{}{"parent_name": "parent", "tag": 42},
			&BindingProfile{ParentName: "parent", Tag: ovntest.IntPtr(42)}),
		Entry("tag decoded from JSON",
			map[string]interface{}{"parent_name": "parent", "tag": float64(4095)},
			&BindingProfile{ParentName: "parent", Tag: ovntest.IntPtr(4095)}),
		Entry("vtep",
			map[string]interface{}{"vtep-physical-switch": "psw", "vtep-logical-switch": "lsw"},
			&BindingProfile{VTEPPhysicalSwitch: "psw", VTEPLogicalSwitch: "lsw"}),
		Entry("unrelated keys", map[string]interface{}{"capabilities": []string{"switchdev"}}, &BindingProfile{}),
		Entry("parent without tag", map[string]interface{}{"parent_name": "parent"}, nil),
		Entry("tag without parent", map[string]interface{}{"tag": 42}, nil),
		Entry("tag out of range", map[string]interface{}{"parent_name": "parent", "tag": 4096}, nil),
		Entry("negative tag", map[string]interface{}{"parent_name": "parent", "tag": -1}, nil),
		Entry("fractional tag", map[string]interface{}{"parent_name": "parent", "tag": 4.5}, nil),
		Entry("tag as string", map[string]interface{}{"parent_name": "parent", "tag": "42"}, nil),
		Entry("parent not a string", map[string]interface{}{"parent_name": 1, "tag": 42}, nil),
		Entry("vtep physical switch only", map[string]interface{}{"vtep-physical-switch": "psw"}, nil),
		Entry("vtep logical switch not a string",
			map[string]interface{}{"vtep-physical-switch": "psw", "vtep-logical-switch": 1}, nil),
		Entry("vtep and parent",
			map[string]interface{}{
				"vtep-physical-switch": "psw", "vtep-logical-switch": "lsw",
				"parent_name": "parent", "tag": 42,
			}, nil),
	)

	DescribeTable("builds the port security of a port",
		func(modify func(*neutron.Port), expected []string) {
			port := newPort()
			modify(port)
			Expect(PortSecurity(port)).To(Equal(expected))
		},
		Entry("port addresses", func(*neutron.Port) {}, []string{portMAC + " 10.0.0.10"}),
		Entry("allowed address pairs",
			func(p *neutron.Port) {
				p.AllowedAddressPairs = []neutron.AllowedAddressPair{
					{IPAddress: "10.0.0.100"},
					{IPAddress: "10.0.0.101", MACAddress: portMAC},
					{IPAddress: "10.0.0.102", MACAddress: "fa:16:3e:00:00:02"},
					{IPAddress: "10.0.0.103", MACAddress: "fa:16:3e:00:00:02"},
					{IPAddress: "10.0.0.104", MACAddress: "fa:16:3e:00:00:03"},
				}
			},
			[]string{
				portMAC + " 10.0.0.10 10.0.0.100 10.0.0.101",
				"fa:16:3e:00:00:02 10.0.0.102 10.0.0.103",
				"fa:16:3e:00:00:03 10.0.0.104",
			}),
		Entry("port security disabled",
			func(p *neutron.Port) { p.PortSecurityEnabled = ovntest.BoolPtr(false) },
			[]string{}),
		Entry("network device port",
			func(p *neutron.Port) { p.DeviceOwner = types.DeviceOwnerRouterInterface },
			[]string{}),
	)

	Context("validating a port", func() {
		BeforeEach(func() {
			td = newTestDriver(libovsdbtest.TestSetup{})
			td.plugin.Ports["parent"] = &neutron.Port{ID: "parent"}
		})

		It("accepts a port nested in an existing parent", func() {
			port := newPort()
			port.Profile = map[string]interface{}{"parent_name": "parent", "tag": 10}
			profile, err := td.ValidatePort(ctx, port)
			Expect(err).NotTo(HaveOccurred())
			Expect(profile.ParentName).To(Equal("parent"))
		})

		It("rejects a port nested in a missing parent", func() {
			port := newPort()
			port.Profile = map[string]interface{}{"parent_name": "missing", "tag": 10}
			_, err := td.ValidatePort(ctx, port)
			Expect(err).To(MatchError(ErrInvalidInput))
		})

		It("rejects malformed extra DHCP options", func() {
			port := newPort()
			port.ExtraDHCPOpts = []neutron.ExtraDHCPOpt{{OptName: "mtu"}}
			_, err := td.ValidatePort(ctx, port)
			Expect(err).To(MatchError(ErrInvalidInput))
		})
	})

	Context("blocking the provisioning of a port", func() {
		BeforeEach(func() {
			td = newTestDriver(libovsdbtest.TestSetup{
				SBData: []libovsdbtest.TestData{
					libovsdbtest.NewChassis("chassis1", "host1", nil),
				},
			})
		})

		DescribeTable("requires provisioning",
			func(modify func(*neutron.Port), host, originalHost string, required bool) {
				port := newPort()
				modify(port)
				Eventually(func() bool {
					return td.IsPortProvisioningRequired(ctx, port, host, originalHost)
				}).Should(Equal(required))
			},
			Entry("for a port moving to a chassis", func(*neutron.Port) {}, "host1", "", true),
			Entry("for a port moving between chassis", func(*neutron.Port) {}, "host1", "host2", true),
			Entry("not for a port staying on its host", func(*neutron.Port) {}, "host1", "host1", false),
			Entry("not for an unbound port", func(*neutron.Port) {}, "", "host1", false),
			Entry("not for a host without chassis", func(*neutron.Port) {}, "host2", "", false),
			Entry("not for an active port",
				func(p *neutron.Port) { p.Status = types.PortStatusActive }, "host1", "", false),
			Entry("not for an unsupported vnic type",
				func(p *neutron.Port) { p.VNICType = "direct" }, "host1", "", false),
		)

		It("blocks a port bound to a chassis on create", func() {
			port := newPort()
			port.HostID = "host1"
			Eventually(func() bool {
				return td.IsPortProvisioningRequired(ctx, port, "host1", "")
			}).Should(BeTrue())
			Expect(td.CreatePortPrecommit(ctx, port)).To(Succeed())
			Expect(td.plugin.Provisioning).To(Equal([]ovntest.ProvisioningEvent{
				{PortID: portID, Entity: types.ProvisioningEntityL2},
			}))
		})

		It("does not block a port updated on the same host", func() {
			port := newPort()
			port.HostID = "host1"
			Expect(td.UpdatePortPrecommit(ctx, port, port)).To(Succeed())
			Expect(td.plugin.Provisioning).To(BeEmpty())
		})

		It("rejects an invalid port", func() {
			port := newPort()
			port.Profile = map[string]interface{}{"tag": 10}
			Expect(td.CreatePortPrecommit(ctx, port)).To(MatchError(ErrInvalidInput))
			Expect(td.plugin.Provisioning).To(BeEmpty())
		})
	})

	Context("creating a port", func() {
		var initial []libovsdbtest.TestData

		BeforeEach(func() {
			initial = append([]libovsdbtest.TestData{
				&nbdb.LogicalSwitch{UUID: "ls-UUID", Name: "neutron-net1"},
				subnetDHCPOptions(),
			}, addressSets()...)
			td = newTestDriver(libovsdbtest.TestSetup{NBData: initial})
			td.plugin.SecurityGroups[sgID] = sshSecurityGroup()
		})

		It("creates the logical port with its ACLs, address sets and DHCP options", func() {
			port := newPort()
			port.SecurityGroups = []string{sgID}
			acls, err := acl.AddACLs(ctx, td.plugin, port, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(acls).To(HaveLen(3))
			aclData, aclUUIDs := namedACLs(acls)

			Expect(td.CreatePortPostcommit(ctx, port, nil)).To(Succeed())

			expected := append([]libovsdbtest.TestData{
				&nbdb.LogicalSwitch{
					UUID:  "ls-UUID",
					Name:  "neutron-net1",
					Ports: []string{"lsp-UUID"},
					ACLs:  aclUUIDs,
				},
				&nbdb.LogicalSwitchPort{
					UUID:          "lsp-UUID",
					Name:          portID,
					Addresses:     []string{portMAC + " 10.0.0.10"},
					PortSecurity:  []string{portMAC + " 10.0.0.10"},
					ExternalIDs:   map[string]string{types.PortNameExtIDKey: "vm-port"},
					Enabled:       ovntest.BoolPtr(true),
					Dhcpv4Options: ovntest.StringPtr("dhcp-UUID"),
				},
				subnetDHCPOptions(),
			}, addressSets("10.0.0.10")...)
			Eventually(td.nbClient).Should(libovsdbtest.HaveData(append(expected, aclData...)))
			Expect(td.plugin.Provisioning).To(BeEmpty())
		})

		It("creates a DHCP options row for a port with extra options", func() {
			port := newPort()
			port.ExtraDHCPOpts = []neutron.ExtraDHCPOpt{{OptName: "mtu", OptValue: "1400"}}
			Expect(td.CreatePortPostcommit(ctx, port, nil)).To(Succeed())

			portOptions := subnetDHCPOptions()
			portOptions.UUID = "port-dhcp-UUID"
			portOptions.Options["mtu"] = "1400"
			portOptions.ExternalIDs[types.PortIDExtIDKey] = portID
			Eventually(td.nbClient).Should(libovsdbtest.ContainData(
				&nbdb.LogicalSwitchPort{
					UUID:          "lsp-UUID",
					Name:          portID,
					Addresses:     []string{portMAC + " 10.0.0.10"},
					PortSecurity:  []string{portMAC + " 10.0.0.10"},
					ExternalIDs:   map[string]string{types.PortNameExtIDKey: "vm-port"},
					Enabled:       ovntest.BoolPtr(true),
					Dhcpv4Options: ovntest.StringPtr("port-dhcp-UUID"),
				},
				portOptions,
				subnetDHCPOptions(),
			))
		})

		It("does not link DHCP options when DHCP is disabled for the port", func() {
			port := newPort()
			port.ExtraDHCPOpts = []neutron.ExtraDHCPOpt{{OptName: "dhcp_disabled", OptValue: "true"}}
			Expect(td.CreatePortPostcommit(ctx, port, nil)).To(Succeed())
			Eventually(td.nbClient).Should(libovsdbtest.ContainData(
				&nbdb.LogicalSwitchPort{
					UUID:         "lsp-UUID",
					Name:         portID,
					Addresses:    []string{portMAC + " 10.0.0.10"},
					PortSecurity: []string{portMAC + " 10.0.0.10"},
					ExternalIDs:  map[string]string{types.PortNameExtIDKey: "vm-port"},
					Enabled:      ovntest.BoolPtr(true),
				},
			))
		})

		It("creates a nested port", func() {
			port := newPort()
			port.Profile = map[string]interface{}{"parent_name": "parent", "tag": float64(10)}
			port.AdminStateUp = ovntest.BoolPtr(false)
			config.OVN.NativeDHCP = false
			Expect(td.CreatePortPostcommit(ctx, port, nil)).To(Succeed())
			Eventually(td.nbClient).Should(libovsdbtest.ContainData(
				&nbdb.LogicalSwitchPort{
					UUID:         "lsp-UUID",
					Name:         portID,
					Addresses:    []string{portMAC + " 10.0.0.10"},
					PortSecurity: []string{portMAC + " 10.0.0.10"},
					ExternalIDs:  map[string]string{types.PortNameExtIDKey: "vm-port"},
					Enabled:      ovntest.BoolPtr(false),
					ParentName:   ovntest.StringPtr("parent"),
					TagRequest:   ovntest.IntPtr(10),
				},
			))
		})

		It("creates a router interface port and completes its provisioning", func() {
			port := newPort()
			port.DeviceOwner = types.DeviceOwnerRouterInterface
			Expect(td.CreatePortPostcommit(ctx, port, nil)).To(Succeed())
			Eventually(td.nbClient).Should(libovsdbtest.ContainData(
				&nbdb.LogicalSwitchPort{
					UUID:        "lsp-UUID",
					Name:        portID,
					Type:        types.LSPTypeRouter,
					Addresses:   []string{types.LSPAddressRouter},
					Options:     map[string]string{types.LSPOptionRouterPort: "lrp-port1"},
					ExternalIDs: map[string]string{types.PortNameExtIDKey: "vm-port"},
					Enabled:     ovntest.BoolPtr(true),
				},
			))
			Expect(td.plugin.Provisioning).To(Equal([]ovntest.ProvisioningEvent{
				{PortID: portID, Entity: types.ProvisioningEntityL2, Complete: true},
			}))
		})

		It("creates a VTEP port", func() {
			port := newPort()
			port.Profile = map[string]interface{}{"vtep-physical-switch": "psw", "vtep-logical-switch": "lsw"}
			config.OVN.NativeDHCP = false
			Expect(td.CreatePortPostcommit(ctx, port, nil)).To(Succeed())
			Eventually(td.nbClient).Should(libovsdbtest.ContainData(
				&nbdb.LogicalSwitchPort{
					UUID:         "lsp-UUID",
					Name:         portID,
					Type:         types.LSPTypeVTEP,
					Addresses:    []string{types.LSPAddressUnknown},
					PortSecurity: []string{portMAC + " 10.0.0.10"},
					Options: map[string]string{
						types.LSPOptionVTEPPhysical: "psw",
						types.LSPOptionVTEPLogical:  "lsw",
					},
					ExternalIDs: map[string]string{types.PortNameExtIDKey: "vm-port"},
					Enabled:     ovntest.BoolPtr(true),
				},
			))
		})

		It("fails on a missing network without writing anything", func() {
			port := newPort()
			port.NetworkID = "missing"
			port.SecurityGroups = []string{sgID}
			Expect(td.CreatePortPostcommit(ctx, port, nil)).To(MatchError(ContainSubstring("neutron-missing")))
			Consistently(td.nbClient).Should(libovsdbtest.HaveData(initial))
		})
	})

	Context("updating a port", func() {
		var original *neutron.Port

		BeforeEach(func() {
			original = newPort()
			original.SecurityGroups = []string{sgID}
			original.HostID = "host1"
			plugin := ovntest.NewFakePlugin()
			plugin.SecurityGroups[sgID] = sshSecurityGroup()
			acls, err := acl.AddACLs(context.Background(), plugin, original, nil)
			Expect(err).NotTo(HaveOccurred())
			aclData, aclUUIDs := namedACLs(acls)

			initial := append([]libovsdbtest.TestData{
				&nbdb.LogicalSwitch{
					UUID:  "ls-UUID",
					Name:  "neutron-net1",
					Ports: []string{"lsp-UUID"},
					ACLs:  aclUUIDs,
				},
				&nbdb.LogicalSwitchPort{
					UUID:          "lsp-UUID",
					Name:          portID,
					Addresses:     []string{portMAC + " 10.0.0.10"},
					PortSecurity:  []string{portMAC + " 10.0.0.10"},
					ExternalIDs:   map[string]string{types.PortNameExtIDKey: "vm-port"},
					Enabled:       ovntest.BoolPtr(true),
					Dhcpv4Options: ovntest.StringPtr("dhcp-UUID"),
				},
				subnetDHCPOptions(),
			}, addressSets("10.0.0.10")...)
			td = newTestDriver(libovsdbtest.TestSetup{NBData: append(initial, aclData...)})
			td.plugin.SecurityGroups[sgID] = sshSecurityGroup()
		})

		It("leaves ACLs and address sets alone on a name change", func() {
			port := newPort()
			port.SecurityGroups = []string{sgID}
			port.HostID = "host1"
			port.Name = "renamed"
			Expect(td.UpdatePortPostcommit(ctx, port, original, nil)).To(Succeed())
			Eventually(td.nbClient).Should(libovsdbtest.ContainData(
				&nbdb.LogicalSwitchPort{
					UUID:          "lsp-UUID",
					Name:          portID,
					Addresses:     []string{portMAC + " 10.0.0.10"},
					PortSecurity:  []string{portMAC + " 10.0.0.10"},
					ExternalIDs:   map[string]string{types.PortNameExtIDKey: "renamed"},
					Enabled:       ovntest.BoolPtr(true),
					Dhcpv4Options: ovntest.StringPtr("dhcp-UUID"),
				},
			))
			Expect(td.plugin.SGLookups).To(Equal(0))
		})

		It("reconciles ACLs and address sets when the fixed IPs change", func() {
			port := newPort()
			port.SecurityGroups = []string{sgID}
			port.FixedIPs = []neutron.FixedIP{{SubnetID: subnetID, IPAddress: "10.0.0.20"}}
			acls, err := acl.AddACLs(ctx, td.plugin, port, nil)
			Expect(err).NotTo(HaveOccurred())
			aclData, aclUUIDs := namedACLs(acls)

			Expect(td.UpdatePortPostcommit(ctx, port, original, nil)).To(Succeed())
			expected := append([]libovsdbtest.TestData{
				&nbdb.LogicalSwitch{
					UUID:  "ls-UUID",
					Name:  "neutron-net1",
					Ports: []string{"lsp-UUID"},
					ACLs:  aclUUIDs,
				},
				&nbdb.LogicalSwitchPort{
					UUID:          "lsp-UUID",
					Name:          portID,
					Addresses:     []string{portMAC + " 10.0.0.20"},
					PortSecurity:  []string{portMAC + " 10.0.0.20"},
					ExternalIDs:   map[string]string{types.PortNameExtIDKey: "vm-port"},
					Enabled:       ovntest.BoolPtr(true),
					Dhcpv4Options: ovntest.StringPtr("dhcp-UUID"),
				},
				subnetDHCPOptions(),
			}, addressSets("10.0.0.20")...)
			Eventually(td.nbClient).Should(libovsdbtest.HaveData(append(expected, aclData...)))
		})

		It("removes the ACLs and addresses of a port leaving its security groups", func() {
			port := newPort()
			Expect(td.UpdatePortPostcommit(ctx, port, original, nil)).To(Succeed())
			Eventually(td.nbClient).Should(libovsdbtest.HaveData(append([]libovsdbtest.TestData{
				&nbdb.LogicalSwitch{
					UUID:  "ls-UUID",
					Name:  "neutron-net1",
					Ports: []string{"lsp-UUID"},
				},
				&nbdb.LogicalSwitchPort{
					UUID:          "lsp-UUID",
					Name:          portID,
					Addresses:     []string{portMAC + " 10.0.0.10"},
					PortSecurity:  []string{portMAC + " 10.0.0.10"},
					ExternalIDs:   map[string]string{types.PortNameExtIDKey: "vm-port"},
					Enabled:       ovntest.BoolPtr(true),
					Dhcpv4Options: ovntest.StringPtr("dhcp-UUID"),
				},
				subnetDHCPOptions(),
			}, addressSets()...)))
		})
	})

	Context("deleting a port", func() {
		It("deletes the logical port with its ACLs, addresses and DHCP options", func() {
			port := newPort()
			port.SecurityGroups = []string{sgID}
			portOptions := subnetDHCPOptions()
			portOptions.UUID = "port-dhcp-UUID"
			portOptions.ExternalIDs[types.PortIDExtIDKey] = portID
			dropACL := acl.DropAllIPTrafficForPort(port)[0]
			dropACL.UUID = "acl-UUID"
			otherACL := acl.DropAllIPTrafficForPort(&neutron.Port{ID: "port2"})[0]
			otherACL.UUID = "other-acl-UUID"

			td = newTestDriver(libovsdbtest.TestSetup{
				NBData: append([]libovsdbtest.TestData{
					&nbdb.LogicalSwitch{
						UUID:  "ls-UUID",
						Name:  "neutron-net1",
						Ports: []string{"lsp-UUID"},
						ACLs:  []string{dropACL.UUID, otherACL.UUID},
					},
					&nbdb.LogicalSwitchPort{
						UUID:          "lsp-UUID",
						Name:          portID,
						Dhcpv4Options: ovntest.StringPtr(portOptions.UUID),
					},
					dropACL,
					otherACL,
					portOptions,
					subnetDHCPOptions(),
				}, addressSets("10.0.0.10", "10.0.0.99")...),
			})

			Expect(td.DeletePortPostcommit(ctx, port)).To(Succeed())
			Eventually(td.nbClient).Should(libovsdbtest.HaveData(append([]libovsdbtest.TestData{
				&nbdb.LogicalSwitch{
					UUID: "ls-UUID",
					Name: "neutron-net1",
					ACLs: []string{otherACL.UUID},
				},
				otherACL,
				subnetDHCPOptions(),
			}, addressSets("10.0.0.99")...)))

			// a port already gone is not an error
			Expect(td.DeletePortPostcommit(ctx, port)).To(Succeed())
		})
	})

	Context("reporting the port status", func() {
		BeforeEach(func() {
			td = newTestDriver(libovsdbtest.TestSetup{})
			td.plugin.Ports[portID] = newPort()
		})

		It("completes the provisioning of a port going up", func() {
			Expect(td.SetPortStatusUp(ctx, portID)).To(Succeed())
			Expect(td.plugin.Provisioning).To(Equal([]ovntest.ProvisioningEvent{
				{PortID: portID, Entity: types.ProvisioningEntityL2, Complete: true},
			}))
		})

		It("blocks the provisioning of a port going down", func() {
			Expect(td.SetPortStatusDown(ctx, portID)).To(Succeed())
			Expect(td.plugin.Provisioning).To(Equal([]ovntest.ProvisioningEvent{
				{PortID: portID, Entity: types.ProvisioningEntityL2},
			}))
		})

		It("ignores a port deleted before going down", func() {
			Expect(td.SetPortStatusDown(ctx, "missing")).To(Succeed())
			Expect(td.plugin.Provisioning).To(BeEmpty())
		})

		It("swallows concurrent deletes", func() {
			td.plugin.Err = neutron.ErrReferenceGone
			Expect(td.SetPortStatusUp(ctx, portID)).To(Succeed())
			Expect(td.SetPortStatusDown(ctx, portID)).To(Succeed())
		})

		It("returns other errors", func() {
			td.plugin.Err = fmt.Errorf("boom")
			Expect(td.SetPortStatusUp(ctx, portID)).To(MatchError("boom"))
		})
	})
})
