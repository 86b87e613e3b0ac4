package mechdriver

import (
	"context"
	"time"

	libovsdbclient "github.com/ovn-kubernetes/libovsdb/client"
	"k8s.io/klog/v2"

	"github.com/netgroup-polito/ovn-networking/pkg/config"
	"github.com/netgroup-polito/ovn-networking/pkg/libovsdb/ops"
	"github.com/netgroup-polito/ovn-networking/pkg/metrics"
	"github.com/netgroup-polito/ovn-networking/pkg/neutron"
	"github.com/netgroup-polito/ovn-networking/pkg/ovn/dhcp"
)

// ErrInvalidInput is returned for requests rejected before any
// transaction is built: unsupported network types, malformed binding
// profiles and extra DHCP options.
var ErrInvalidInput = ops.ErrInvalidInput

// Driver maps the orchestrator resources to the OVN northbound topology.
// Every operation builds the commands of the change, stages them into a
// single transaction and commits it.
type Driver struct {
	nbClient libovsdbclient.Client
	sbClient libovsdbclient.Client
	plugin   neutron.Plugin
	dhcp     *dhcp.Composer
}

// NewDriver returns a Driver. composer defaults to a Composer generating
// random server MAC addresses.
func NewDriver(nbClient, sbClient libovsdbclient.Client, plugin neutron.Plugin, composer *dhcp.Composer) *Driver {
	if composer == nil {
		composer = dhcp.NewComposer(nil)
	}
	return &Driver{
		nbClient: nbClient,
		sbClient: sbClient,
		plugin:   plugin,
		dhcp:     composer,
	}
}

// WithPlugin returns a copy of the driver calling back into plugin
func (d *Driver) WithPlugin(plugin neutron.Plugin) *Driver {
	c := *d
	c.plugin = plugin
	return &c
}

// observe records the latency of a driver operation
func observe(operation string) func() {
	start := time.Now()
	return func() {
		metrics.MetricOperationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// execute stages cmds into one transaction and commits it
func (d *Driver) execute(ctx context.Context, operation string, cmds ...ops.Command) error {
	return d.transact(ctx, operation, func(txn *ops.Transaction) error {
		return ops.Stage(ctx, txn, cmds...)
	})
}

// transact runs stage against a new transaction and commits it
func (d *Driver) transact(ctx context.Context, operation string, stage func(txn *ops.Transaction) error) error {
	defer observe(operation)()
	txn := ops.NewTransaction(d.nbClient, config.OVN.OVSDBMutate)
	if err := stage(txn); err != nil {
		return err
	}
	if err := txn.Commit(ctx); err != nil {
		return err
	}
	klog.V(5).Infof("Committed %s", operation)
	return nil
}
