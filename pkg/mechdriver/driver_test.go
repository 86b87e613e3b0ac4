package mechdriver

import (
	. "github.com/onsi/gomega"
	libovsdbclient "github.com/ovn-kubernetes/libovsdb/client"

	"github.com/netgroup-polito/ovn-networking/pkg/ovn/dhcp"
	ovntest "github.com/netgroup-polito/ovn-networking/pkg/testing"
	libovsdbtest "github.com/netgroup-polito/ovn-networking/pkg/testing/libovsdb"
)

const serverMAC = "fa:16:3e:aa:bb:cc"

func fixedMAC() (string, error) {
	return serverMAC, nil
}

type testDriver struct {
	*Driver
	plugin   *ovntest.FakePlugin
	nbClient libovsdbclient.Client
	sbClient libovsdbclient.Client
	testCtx  *libovsdbtest.Context
}

// newTestDriver runs NB and SB servers holding the setup data and returns
// a driver connected to them
func newTestDriver(setup libovsdbtest.TestSetup) *testDriver {
	nbClient, sbClient, testCtx, err := libovsdbtest.NewNBSBTestHarness(setup)
	Expect(err).NotTo(HaveOccurred())
	plugin := ovntest.NewFakePlugin()
	return &testDriver{
		Driver:   NewDriver(nbClient, sbClient, plugin, dhcp.NewComposer(fixedMAC)),
		plugin:   plugin,
		nbClient: nbClient,
		sbClient: sbClient,
		testCtx:  testCtx,
	}
}

func (t *testDriver) cleanup() {
	if t != nil && t.testCtx != nil {
		t.testCtx.Cleanup()
	}
}
