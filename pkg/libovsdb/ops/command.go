package ops

import (
	"context"
	"fmt"
	"reflect"

	"github.com/ovn-kubernetes/libovsdb/client"

	"github.com/netgroup-polito/ovn-networking/pkg/metrics"
)

// Command is one northbound topology change. Stage resolves the rows the
// command refers to, applies the if-exists/may-exist policy of the command
// and stages its mutations into the transaction without committing it.
type Command interface {
	Stage(ctx context.Context, txn *Transaction) error
	fmt.Stringer
}

// Stage stages every command into txn, stopping at the first failure
func Stage(ctx context.Context, txn *Transaction, cmds ...Command) error {
	for _, cmd := range cmds {
		if err := cmd.Stage(ctx, txn); err != nil {
			return fmt.Errorf("%s: %w", cmd, err)
		}
		txn.recordCommand(cmd.String())
		metrics.MetricCommandsStaged.WithLabelValues(commandKind(cmd)).Inc()
	}
	return nil
}

// Execute stages the commands into a new transaction and commits it.
// Either every command is applied or none is.
func Execute(ctx context.Context, c client.Client, mutate bool, cmds ...Command) error {
	txn := NewTransaction(c, mutate)
	if err := Stage(ctx, txn, cmds...); err != nil {
		return err
	}
	return txn.Commit(ctx)
}

func commandKind(cmd Command) string {
	t := reflect.TypeOf(cmd)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
