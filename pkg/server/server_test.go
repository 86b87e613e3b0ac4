package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	libovsdbclient "github.com/ovn-kubernetes/libovsdb/client"

	"github.com/netgroup-polito/ovn-networking/pkg/config"
	"github.com/netgroup-polito/ovn-networking/pkg/libovsdb/ops"
	"github.com/netgroup-polito/ovn-networking/pkg/mechdriver"
	"github.com/netgroup-polito/ovn-networking/pkg/nbdb"
	"github.com/netgroup-polito/ovn-networking/pkg/neutron"
	"github.com/netgroup-polito/ovn-networking/pkg/ovn/dhcp"
	ovntest "github.com/netgroup-polito/ovn-networking/pkg/testing"
	libovsdbtest "github.com/netgroup-polito/ovn-networking/pkg/testing/libovsdb"
	"github.com/netgroup-polito/ovn-networking/pkg/types"
)

const serverMAC = "fa:16:3e:aa:bb:cc"

type testServer struct {
	*httptest.Server
	nbClient libovsdbclient.Client
	testCtx  *libovsdbtest.Context
}

func newTestServer(setup libovsdbtest.TestSetup) *testServer {
	nbClient, sbClient, testCtx, err := libovsdbtest.NewNBSBTestHarness(setup)
	Expect(err).NotTo(HaveOccurred())
	composer := dhcp.NewComposer(func() (string, error) { return serverMAC, nil })
	driver := mechdriver.NewDriver(nbClient, sbClient, ovntest.NewFakePlugin(), composer)
	s := NewServer(driver, nbClient, sbClient)
	return &testServer{
		Server:   httptest.NewServer(s.Handler),
		nbClient: nbClient,
		testCtx:  testCtx,
	}
}

func (s *testServer) cleanup() {
	if s == nil {
		return
	}
	s.Close()
	s.testCtx.Cleanup()
}

// do sends body as JSON and decodes the response
func (s *testServer) do(method, path string, body interface{}) (int, *Response) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	result := &Response{}
	Expect(json.NewDecoder(resp.Body).Decode(result)).To(Succeed())
	Expect(result.RequestID).To(Equal(resp.Header.Get(RequestIDHeader)))
	return resp.StatusCode, result
}

var _ = Describe("API server", func() {
	var ts *testServer

	BeforeEach(func() {
		config.PrepareTestConfig()
	})

	AfterEach(func() {
		ts.cleanup()
		ts = nil
	})

	It("reports healthy when connected", func() {
		ts = newTestServer(libovsdbtest.TestSetup{})
		resp, err := http.Get(ts.URL + "/healthz")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("answers unknown routes with not found", func() {
		ts = newTestServer(libovsdbtest.TestSetup{})
		resp, err := http.Get(ts.URL + "/v1/unknown")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("keeps the request id of the caller", func() {
		ts = newTestServer(libovsdbtest.TestSetup{})
		req, err := http.NewRequest("DELETE", ts.URL+"/v1/networks/net1", nil)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set(RequestIDHeader, "req-1")
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.Header.Get(RequestIDHeader)).To(Equal("req-1"))
	})

	Context("networks", func() {
		It("creates, renames and deletes a network", func() {
			ts = newTestServer(libovsdbtest.TestSetup{})
			network := &neutron.Network{ID: "net1", Name: "private"}

			code, _ := ts.do("POST", "/v1/networks/precommit", &Request{Network: network})
			Expect(code).To(Equal(http.StatusOK))
			code, _ = ts.do("POST", "/v1/networks", &Request{Network: network})
			Expect(code).To(Equal(http.StatusOK))
			Eventually(ts.nbClient).Should(libovsdbtest.HaveData(
				&nbdb.LogicalSwitch{
					UUID:        "ls-UUID",
					Name:        "neutron-net1",
					ExternalIDs: map[string]string{types.NetworkNameExtIDKey: "private"},
				},
			))

			network.Name = "renamed"
			code, _ = ts.do("PUT", "/v1/networks", &Request{Network: network})
			Expect(code).To(Equal(http.StatusOK))
			Eventually(ts.nbClient).Should(libovsdbtest.HaveData(
				&nbdb.LogicalSwitch{
					UUID:        "ls-UUID",
					Name:        "neutron-net1",
					ExternalIDs: map[string]string{types.NetworkNameExtIDKey: "renamed"},
				},
			))

			code, _ = ts.do("DELETE", "/v1/networks/net1", nil)
			Expect(code).To(Equal(http.StatusOK))
			Eventually(ts.nbClient).Should(libovsdbtest.HaveEmptyData())
		})

		DescribeTable("reports failures with their status",
			func(method, path string, body interface{}, expected int) {
				ts = newTestServer(libovsdbtest.TestSetup{})
				code, resp := ts.do(method, path, body)
				Expect(code).To(Equal(expected))
				Expect(resp.Error).NotTo(BeEmpty())
			},
			Entry("an unsupported network type", "POST", "/v1/networks/precommit",
				&Request{Network: &neutron.Network{ID: "net1", Segments: []neutron.Segment{{ID: "s1", NetworkType: "vxlan"}}}},
				http.StatusBadRequest),
			Entry("a request without network", "POST", "/v1/networks", &Request{}, http.StatusBadRequest),
			Entry("a malformed body", "POST", "/v1/networks", "not a request", http.StatusBadRequest),
			Entry("the update of a missing network", "PUT", "/v1/networks",
				&Request{Network: &neutron.Network{ID: "net1"}}, http.StatusNotFound),
			Entry("an unknown port status", "PUT", "/v1/ports/port1/status", &Request{Status: "BUILD"}, http.StatusBadRequest),
			Entry("a port deleted under another id", "DELETE", "/v1/ports/port1",
				&Request{Port: &neutron.Port{ID: "port2"}}, http.StatusBadRequest),
		)
	})

	Context("ports", func() {
		var port *neutron.Port

		BeforeEach(func() {
			ts = newTestServer(libovsdbtest.TestSetup{
				NBData: []libovsdbtest.TestData{
					&nbdb.LogicalSwitch{UUID: "ls-UUID", Name: "neutron-net1"},
				},
				SBData: []libovsdbtest.TestData{
					libovsdbtest.NewChassis("chassis1", "host1", map[string]string{"physnet1": "br-ex"}),
				},
			})
			port = &neutron.Port{
				ID:         "port1",
				Name:       "vm-port",
				NetworkID:  "net1",
				MACAddress: "fa:16:3e:11:22:33",
				Status:     types.PortStatusDown,
				HostID:     "host1",
			}
		})

		It("validates a port and reports the provisioning it needs", func() {
			code, resp := ts.do("POST", "/v1/ports/validate", &Request{Port: port, Host: "host1"})
			Expect(code).To(Equal(http.StatusOK))
			Expect(resp.ProvisioningRequired).To(Equal(ovntest.BoolPtr(true)))

			code, resp = ts.do("POST", "/v1/ports/validate", &Request{Port: port, Host: "host2"})
			Expect(code).To(Equal(http.StatusOK))
			Expect(resp.ProvisioningRequired).To(Equal(ovntest.BoolPtr(false)))
		})

		It("checks the parent of a nested port against the request ports", func() {
			port.Profile = map[string]interface{}{"parent_name": "parent1", "tag": 10}
			code, _ := ts.do("POST", "/v1/ports/validate", &Request{Port: port})
			Expect(code).To(Equal(http.StatusBadRequest))

			parent := &neutron.Port{ID: "parent1", NetworkID: "net1"}
			code, _ = ts.do("POST", "/v1/ports/validate", &Request{Port: port, Ports: []*neutron.Port{parent}})
			Expect(code).To(Equal(http.StatusOK))
		})

		It("returns the provisioning block added at precommit", func() {
			code, resp := ts.do("POST", "/v1/ports/precommit", &Request{Port: port})
			Expect(code).To(Equal(http.StatusOK))
			Expect(resp.Provisioning).To(Equal([]ProvisioningEvent{
				{PortID: "port1", Entity: types.ProvisioningEntityL2},
			}))
		})

		It("creates and deletes the logical port", func() {
			code, _ := ts.do("POST", "/v1/ports", &Request{Port: port})
			Expect(code).To(Equal(http.StatusOK))
			Eventually(ts.nbClient).Should(libovsdbtest.HaveData(
				&nbdb.LogicalSwitch{UUID: "ls-UUID", Name: "neutron-net1", Ports: []string{"lsp-UUID"}},
				&nbdb.LogicalSwitchPort{
					UUID:         "lsp-UUID",
					Name:         "port1",
					Addresses:    []string{"fa:16:3e:11:22:33"},
					PortSecurity: []string{"fa:16:3e:11:22:33"},
					ExternalIDs:  map[string]string{types.PortNameExtIDKey: "vm-port"},
					Enabled:      ovntest.BoolPtr(true),
				},
			))

			code, _ = ts.do("DELETE", "/v1/ports/port1", &Request{Port: port})
			Expect(code).To(Equal(http.StatusOK))
			Eventually(ts.nbClient).Should(libovsdbtest.HaveData(
				&nbdb.LogicalSwitch{UUID: "ls-UUID", Name: "neutron-net1"},
			))
		})

		It("reports the port status", func() {
			code, resp := ts.do("PUT", "/v1/ports/port1/status", &Request{Status: types.PortStatusActive})
			Expect(code).To(Equal(http.StatusOK))
			Expect(resp.Provisioning).To(Equal([]ProvisioningEvent{
				{PortID: "port1", Entity: types.ProvisioningEntityL2, Complete: true},
			}))

			// a port the request does not know of is gone
			code, resp = ts.do("PUT", "/v1/ports/port1/status", &Request{Status: types.PortStatusDown})
			Expect(code).To(Equal(http.StatusOK))
			Expect(resp.Provisioning).To(BeEmpty())

			code, resp = ts.do("PUT", "/v1/ports/port1/status", &Request{Status: types.PortStatusDown, Ports: []*neutron.Port{port}})
			Expect(code).To(Equal(http.StatusOK))
			Expect(resp.Provisioning).To(Equal([]ProvisioningEvent{
				{PortID: "port1", Entity: types.ProvisioningEntityL2},
			}))
		})

		It("binds the port on its host", func() {
			segments := []neutron.Segment{
				{ID: "vlan2", NetworkType: "vlan", PhysicalNetwork: "physnet2", SegmentationID: 200},
				{ID: "vlan1", NetworkType: "vlan", PhysicalNetwork: "physnet1", SegmentationID: 100},
			}
			code, resp := ts.do("POST", "/v1/ports/bind", &Request{Port: port, Segments: segments})
			Expect(code).To(Equal(http.StatusOK))
			Expect(resp.Binding).To(Equal(&Binding{
				SegmentID:  "vlan1",
				VIFType:    types.VIFTypeOVS,
				VIFDetails: map[string]interface{}{"port_filter": true},
			}))

			code, resp = ts.do("POST", "/v1/ports/bind", &Request{Port: port, Host: "host2", Segments: segments})
			Expect(code).To(Equal(http.StatusOK))
			Expect(resp.Binding).To(BeNil())
		})

		It("maps a host to its segments", func() {
			segments := []neutron.Segment{
				{ID: "flat1", NetworkType: "flat", PhysicalNetwork: "physnet1"},
				{ID: "vlan2", NetworkType: "vlan", PhysicalNetwork: "physnet2", SegmentationID: 200},
			}
			code, resp := ts.do("PUT", "/v1/hosts/host1/segments", &Request{Physnets: []string{"physnet1"}, Segments: segments})
			Expect(code).To(Equal(http.StatusOK))
			Expect(resp.HostSegments).To(Equal(map[string][]string{"host1": {"flat1"}}))

			code, resp = ts.do("POST", "/v1/segments", &Request{Segment: &segments[0]})
			Expect(code).To(Equal(http.StatusOK))
			Expect(resp.SegmentHosts).To(Equal(map[string][]string{"flat1": {"host1"}}))
		})
	})

	It("returns the DHCP options of a subnet", func() {
		ts = newTestServer(libovsdbtest.TestSetup{})
		subnet := &neutron.Subnet{
			ID:         "subnet1",
			NetworkID:  "net1",
			CIDR:       "10.0.0.0/24",
			IPVersion:  4,
			EnableDHCP: true,
			GatewayIP:  "10.0.0.1",
		}
		code, _ := ts.do("POST", "/v1/subnets", &Request{Subnet: subnet, Network: &neutron.Network{ID: "net1"}})
		Expect(code).To(Equal(http.StatusOK))

		Eventually(func() *SubnetDHCPOptions {
			_, resp := ts.do("GET", "/v1/subnets/subnet1/dhcp-options", nil)
			return resp.SubnetDHCPOptions
		}).Should(And(
			Not(BeNil()),
			HaveField("Subnet.Options", HaveKeyWithValue("server_mac", serverMAC)),
			HaveField("Ports", BeEmpty()),
		))
	})

	DescribeTable("maps errors to HTTP status",
		func(err error, expected int) {
			Expect(StatusForError(err)).To(Equal(expected))
		},
		Entry("invalid input", fmt.Errorf("wrapped: %w", mechdriver.ErrInvalidInput), http.StatusBadRequest),
		Entry("not found", fmt.Errorf("wrapped: %w", ops.ErrNotFound), http.StatusNotFound),
		Entry("missing port", neutron.ErrPortNotFound, http.StatusNotFound),
		Entry("already exists", ops.ErrAlreadyExists, http.StatusConflict),
		Entry("conflict", fmt.Errorf("wrapped: %w", ops.ErrConflict), http.StatusConflict),
		Entry("database unavailable", ops.ErrDatabaseUnavailable, http.StatusServiceUnavailable),
		Entry("timeout", context.DeadlineExceeded, http.StatusServiceUnavailable),
		Entry("anything else", fmt.Errorf("boom"), http.StatusInternalServerError),
	)
})
