package ops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ovn-kubernetes/libovsdb/client"
	"github.com/ovn-kubernetes/libovsdb/ovsdb"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"

	"github.com/netgroup-polito/ovn-networking/pkg/config"
	"github.com/netgroup-polito/ovn-networking/pkg/metrics"
)

// TransactWithRetry will attempt a transaction several times if it receives an error indicating that the client
// was not connected when the transaction occurred.
func TransactWithRetry(ctx context.Context, c client.Client, ops []ovsdb.Operation) ([]ovsdb.OperationResult, error) {
	var results []ovsdb.OperationResult
	resultErr := wait.PollUntilContextCancel(ctx, 200*time.Millisecond, true, func(ctx context.Context) (bool, error) {
		var err error
		results, err = c.Transact(ctx, ops...)
		if err == nil {
			return true, nil
		}
		if errors.Is(err, client.ErrNotConnected) {
			klog.V(5).Infof("Unable to execute transaction: %+v. Client is disconnected, will retry...", ops)
			return false, nil
		}
		return false, err
	})
	if resultErr != nil && !c.Connected() {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseUnavailable, resultErr)
	}
	return results, resultErr
}

// TransactAndCheck sends ops in one transaction and checks every result.
// A failed wait operation means a verified column changed and is reported
// as ErrConflict.
func TransactAndCheck(ctx context.Context, c client.Client, ops []ovsdb.Operation) ([]ovsdb.OperationResult, error) {
	if len(ops) <= 0 {
		return []ovsdb.OperationResult{{}}, nil
	}

	klog.V(5).Infof("Configuring OVN: %+v", ops)

	ctx, cancel := context.WithTimeout(ctx, config.Default.OVSDBTxnTimeout)
	defer cancel()

	start := time.Now()
	results, err := TransactWithRetry(ctx, c, ops)
	metrics.MetricTransactionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MetricTransactions.WithLabelValues(metrics.TransactionFailed).Inc()
		return nil, fmt.Errorf("error in transact with ops %+v: %w", ops, err)
	}

	opErrors, err := ovsdb.CheckOperationResults(results, ops)
	if err != nil {
		if failedWait(results, ops) {
			metrics.MetricTransactions.WithLabelValues(metrics.TransactionAborted).Inc()
			klog.V(5).Infof("Transaction aborted on verify: %+v", opErrors)
			return nil, ErrConflict
		}
		metrics.MetricTransactions.WithLabelValues(metrics.TransactionFailed).Inc()
		return nil, fmt.Errorf("error in transact with ops %+v results %+v and errors %+v: %v", ops, results, opErrors, err)
	}

	metrics.MetricTransactions.WithLabelValues(metrics.TransactionCommitted).Inc()
	return results, nil
}

// failedWait reports whether one of the wait operations did not hold
func failedWait(results []ovsdb.OperationResult, ops []ovsdb.Operation) bool {
	for i, result := range results {
		if i >= len(ops) {
			break
		}
		if ops[i].Op == ovsdb.OperationWait && result.Error != "" {
			return true
		}
	}
	return false
}
