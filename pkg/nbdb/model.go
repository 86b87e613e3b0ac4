// Package nbdb holds the OVN_Northbound row models managed by the driver.
// Only the tables and columns the driver reads or writes are modelled; the
// embedded schema is the matching subset of the OVN northbound schema.
package nbdb

import (
	_ "embed"
	"encoding/json"

	"github.com/ovn-kubernetes/libovsdb/model"
	"github.com/ovn-kubernetes/libovsdb/ovsdb"
)

const DatabaseName = "OVN_Northbound"

//go:embed schema.json
var schema []byte

// FullDatabaseModel returns the DatabaseModel object to be used in libovsdb
func FullDatabaseModel() (model.ClientDBModel, error) {
	return model.NewClientDBModel(DatabaseName, map[string]model.Model{
		ACLTable:                      &ACL{},
		AddressSetTable:               &AddressSet{},
		DHCPOptionsTable:              &DHCPOptions{},
		LogicalRouterTable:            &LogicalRouter{},
		LogicalRouterPortTable:        &LogicalRouterPort{},
		LogicalRouterStaticRouteTable: &LogicalRouterStaticRoute{},
		LogicalSwitchTable:            &LogicalSwitch{},
		LogicalSwitchPortTable:        &LogicalSwitchPort{},
	})
}

// Schema returns the schema of the modelled northbound subset
func Schema() ovsdb.DatabaseSchema {
	var s ovsdb.DatabaseSchema
	if err := json.Unmarshal(schema, &s); err != nil {
		panic(err)
	}
	return s
}

func equalStringSets(a, b []string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if b[i] != v {
			return false
		}
	}
	return true
}

func equalStringMaps(a, b map[string]string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || v != w {
			return false
		}
	}
	return true
}

func equalOptionalString(a, b *string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func equalOptionalInt(a, b *int) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func equalOptionalBool(a, b *bool) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}
