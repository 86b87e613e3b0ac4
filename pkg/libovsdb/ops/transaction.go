package ops

import (
	"context"
	"fmt"
	"reflect"

	"github.com/ovn-kubernetes/libovsdb/client"
	"github.com/ovn-kubernetes/libovsdb/model"
	"github.com/ovn-kubernetes/libovsdb/ovsdb"
	"k8s.io/klog/v2"

	"github.com/netgroup-polito/ovn-networking/pkg/types"
)

// VerifiedColumn identifies a column registered in the read-set of a
// transaction
type VerifiedColumn struct {
	Table  string
	UUID   string
	Column string
}

// stagedOp is either an already built operation or the insertion of a
// model whose operation is built at commit time, so that set and column
// edits staged after the insertion end up in the inserted row.
type stagedOp struct {
	op     *ovsdb.Operation
	insert model.Model
}

// Transaction collects the operations of one logical change so they are
// committed to the database in a single transact call, all or nothing.
//
// Columns read from the cache and relied on by a mutation are registered
// with Verify; each verified column becomes an OVSDB wait operation placed
// ahead of the mutations, which aborts the transaction if another writer
// changed the column in between.
type Transaction struct {
	client client.Client
	// mutate selects native mutate operations for set columns. When
	// false set columns are rewritten as a whole after being verified.
	mutate bool

	waits   []ovsdb.Operation
	staged  []stagedOp
	readSet []VerifiedColumn
	seen    map[VerifiedColumn]bool
	// rows tracks every row fetched or inserted through this transaction
	// so that successive rewrites of the same row build on each other.
	// Native mutations leave the tracked copy untouched, which keeps it
	// equal to the value verified at commit time.
	rows     map[string]model.Model
	inserted []model.Model
	commands []string
}

// NewTransaction returns an empty transaction against the client
func NewTransaction(c client.Client, mutate bool) *Transaction {
	return &Transaction{
		client: c,
		mutate: mutate,
		seen:   map[VerifiedColumn]bool{},
		rows:   map[string]model.Model{},
	}
}

// Client returns the database client the transaction is built against
func (t *Transaction) Client() client.Client {
	return t.client
}

// Mutate reports whether set columns are edited with native mutations
func (t *Transaction) Mutate() bool {
	return t.mutate
}

func rowKey(m model.Model) string {
	return getTable(m) + "/" + getUUID(m)
}

// track returns the copy of the row already known to the transaction, or
// registers m as that copy
func (t *Transaction) track(m model.Model) model.Model {
	key := rowKey(m)
	if existing, ok := t.rows[key]; ok {
		return existing
	}
	t.rows[key] = m
	return m
}

// isInserted reports whether m is inserted by this transaction
func isInserted(m model.Model) bool {
	return isNamedUUID(getUUID(m))
}

// Insert stages the creation of m. m gets a named UUID that other
// operations of the same transaction can reference, and the real UUID
// once the transaction is committed.
func (t *Transaction) Insert(m model.Model) string {
	uuid := BuildNamedUUID()
	setUUID(m, uuid)
	t.rows[rowKey(m)] = m
	t.inserted = append(t.inserted, m)
	t.staged = append(t.staged, stagedOp{insert: m})
	return uuid
}

// Update stages writing the given fields of m. Fields are pointers to the
// model struct fields, as taken by libovsdb.
func (t *Transaction) Update(m model.Model, fields ...interface{}) error {
	if isInserted(m) {
		return nil
	}
	ops, err := t.client.Where(m).Update(m, fields...)
	if err != nil {
		return fmt.Errorf("failed to build update of %s %s: %w", getTable(m), getUUID(m), err)
	}
	t.appendOps(ops)
	return nil
}

// Delete stages the deletion of m
func (t *Transaction) Delete(m model.Model) error {
	if isInserted(m) {
		return fmt.Errorf("cannot delete %s %s inserted in the same transaction", getTable(m), getUUID(m))
	}
	ops, err := t.client.Where(m).Delete()
	if err != nil {
		return fmt.Errorf("failed to build delete of %s %s: %w", getTable(m), getUUID(m), err)
	}
	t.appendOps(ops)
	delete(t.rows, rowKey(m))
	return nil
}

// Verify registers field of m in the read-set of the transaction. The
// value cached when Verify is called is the value the database must still
// hold at commit time. Rows inserted by the transaction are not verified
// and each column is registered once.
func (t *Transaction) Verify(m model.Model, field interface{}) error {
	if isInserted(m) {
		return nil
	}
	info, err := t.client.Cache().DatabaseModel().NewModelInfo(m)
	if err != nil {
		return err
	}
	column, err := info.ColumnByPtr(field)
	if err != nil {
		return err
	}
	key := VerifiedColumn{Table: getTable(m), UUID: getUUID(m), Column: column}
	if t.seen[key] {
		return nil
	}
	timeout := types.OVSDBWaitTimeout
	ops, err := t.client.Where(m).Wait(ovsdb.WaitConditionEqual, &timeout, m, field)
	if err != nil {
		return fmt.Errorf("failed to build verify of %s %s %s: %w", key.Table, key.UUID, key.Column, err)
	}
	t.waits = append(t.waits, ops...)
	t.seen[key] = true
	t.readSet = append(t.readSet, key)
	return nil
}

// AddValues stages adding values to the set column field of m
func (t *Transaction) AddValues(m model.Model, field *[]string, values ...string) error {
	return t.editSet(m, field, ovsdb.MutateOperationInsert, values)
}

// DelValues stages removing values from the set column field of m
func (t *Transaction) DelValues(m model.Model, field *[]string, values ...string) error {
	return t.editSet(m, field, ovsdb.MutateOperationDelete, values)
}

func (t *Transaction) editSet(m model.Model, field *[]string, mutator ovsdb.Mutator, values []string) error {
	if len(values) == 0 {
		return nil
	}
	if isInserted(m) {
		*field = applySetEdit(*field, mutator, values)
		return nil
	}
	if t.mutate {
		ops, err := t.client.Where(m).Mutate(m, model.Mutation{
			Field:   field,
			Mutator: mutator,
			Value:   values,
		})
		if err != nil {
			return fmt.Errorf("failed to build mutation of %s %s: %w", getTable(m), getUUID(m), err)
		}
		t.appendOps(ops)
		return nil
	}

	// the whole column is rewritten: it must not have changed since read
	if err := t.Verify(m, field); err != nil {
		return err
	}
	*field = applySetEdit(*field, mutator, values)
	ops, err := t.client.Where(m).Update(m, field)
	if err != nil {
		return fmt.Errorf("failed to build update of %s %s: %w", getTable(m), getUUID(m), err)
	}
	t.appendOps(ops)
	return nil
}

// SetMapKeys stages setting keys of the map column field of m, leaving
// the other keys untouched
func (t *Transaction) SetMapKeys(m model.Model, field *map[string]string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	if isInserted(m) {
		*field = mergeMaps(*field, values)
		return nil
	}
	if t.mutate {
		// a map insert mutation never overwrites an existing key, so the
		// keys are deleted first
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		ops, err := t.client.Where(m).Mutate(m,
			model.Mutation{Field: field, Mutator: ovsdb.MutateOperationDelete, Value: keys},
			model.Mutation{Field: field, Mutator: ovsdb.MutateOperationInsert, Value: copyMap(values)},
		)
		if err != nil {
			return fmt.Errorf("failed to build mutation of %s %s: %w", getTable(m), getUUID(m), err)
		}
		t.appendOps(ops)
		return nil
	}
	if err := t.Verify(m, field); err != nil {
		return err
	}
	*field = mergeMaps(*field, values)
	return t.Update(m, field)
}

// DelMapKeys stages removing keys from the map column field of m
func (t *Transaction) DelMapKeys(m model.Model, field *map[string]string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if isInserted(m) {
		for _, k := range keys {
			delete(*field, k)
		}
		return nil
	}
	if t.mutate {
		ops, err := t.client.Where(m).Mutate(m, model.Mutation{
			Field:   field,
			Mutator: ovsdb.MutateOperationDelete,
			Value:   keys,
		})
		if err != nil {
			return fmt.Errorf("failed to build mutation of %s %s: %w", getTable(m), getUUID(m), err)
		}
		t.appendOps(ops)
		return nil
	}
	if err := t.Verify(m, field); err != nil {
		return err
	}
	updated := copyMap(*field)
	for _, k := range keys {
		delete(updated, k)
	}
	*field = updated
	return t.Update(m, field)
}

func applySetEdit(current []string, mutator ovsdb.Mutator, values []string) []string {
	result := make([]string, 0, len(current)+len(values))
	switch mutator {
	case ovsdb.MutateOperationInsert:
		result = append(result, current...)
		for _, v := range values {
			if !contains(result, v) {
				result = append(result, v)
			}
		}
	case ovsdb.MutateOperationDelete:
		for _, v := range current {
			if !contains(values, v) {
				result = append(result, v)
			}
		}
	}
	return result
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

func (t *Transaction) appendOps(ops []ovsdb.Operation) {
	for i := range ops {
		op := ops[i]
		t.staged = append(t.staged, stagedOp{op: &op})
	}
}

func (t *Transaction) recordCommand(name string) {
	t.commands = append(t.commands, name)
}

// Verified returns the read-set of the transaction in registration order
func (t *Transaction) Verified() []VerifiedColumn {
	return append([]VerifiedColumn{}, t.readSet...)
}

// Empty reports whether the transaction has no mutation staged
func (t *Transaction) Empty() bool {
	return len(t.staged) == 0
}

// Ops builds the operations sent on commit: the verify waits followed by
// the staged mutations in staging order.
func (t *Transaction) Ops() ([]ovsdb.Operation, error) {
	if t.Empty() {
		return nil, nil
	}
	ops := make([]ovsdb.Operation, 0, len(t.waits)+len(t.staged))
	ops = append(ops, t.waits...)
	// inserted rows go first, each after the inserted rows it references
	for _, m := range orderInserts(t.inserted) {
		createOps, err := t.client.Create(m)
		if err != nil {
			return nil, fmt.Errorf("failed to build insert into %s: %w", getTable(m), err)
		}
		ops = append(ops, createOps...)
	}
	for _, s := range t.staged {
		if s.op != nil {
			ops = append(ops, *s.op)
		}
	}
	return ops, nil
}

// orderInserts sorts the inserted models so that a model referencing the
// named UUID of another inserted model comes after it
func orderInserts(models []model.Model) []model.Model {
	byUUID := make(map[string]model.Model, len(models))
	for _, m := range models {
		byUUID[getUUID(m)] = m
	}
	ordered := make([]model.Model, 0, len(models))
	visited := map[string]bool{}
	var visit func(m model.Model)
	visit = func(m model.Model) {
		uuid := getUUID(m)
		if visited[uuid] {
			return
		}
		visited[uuid] = true
		for _, ref := range namedReferences(m) {
			if dep, ok := byUUID[ref]; ok {
				visit(dep)
			}
		}
		ordered = append(ordered, m)
	}
	for _, m := range models {
		visit(m)
	}
	return ordered
}

// namedReferences returns the named UUIDs held by the string, optional
// string and string set fields of m, its own UUID excluded
func namedReferences(m model.Model) []string {
	var refs []string
	v := reflect.ValueOf(m).Elem()
	for i := 0; i < v.NumField(); i++ {
		if v.Type().Field(i).Tag.Get("ovsdb") == "_uuid" {
			continue
		}
		f := v.Field(i)
		switch f.Kind() {
		case reflect.String:
			refs = append(refs, f.String())
		case reflect.Ptr:
			if !f.IsNil() && f.Elem().Kind() == reflect.String {
				refs = append(refs, f.Elem().String())
			}
		case reflect.Slice:
			if f.Type().Elem().Kind() == reflect.String {
				for j := 0; j < f.Len(); j++ {
					refs = append(refs, f.Index(j).String())
				}
			}
		}
	}
	named := refs[:0]
	for _, ref := range refs {
		if isNamedUUID(ref) {
			named = append(named, ref)
		}
	}
	return named
}

// Commit sends the transaction. A transaction with no staged mutation is
// not sent at all, so its read-set can never cause an abort. A changed
// verified column fails the commit with ErrConflict.
func (t *Transaction) Commit(ctx context.Context) error {
	ops, err := t.Ops()
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		klog.V(5).Infof("Skipping empty transaction (commands: %v)", t.commands)
		return nil
	}
	results, err := TransactAndCheck(ctx, t.client, ops)
	if err != nil {
		return err
	}
	for i, op := range ops {
		if op.Op != ovsdb.OperationInsert || !isNamedUUID(op.UUIDName) {
			continue
		}
		if m, ok := t.rows[op.Table+"/"+op.UUIDName]; ok && i < len(results) {
			setUUID(m, results[i].UUID.GoUUID)
		}
	}
	return nil
}
