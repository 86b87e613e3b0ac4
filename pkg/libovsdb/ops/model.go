package ops

import (
	"fmt"

	"github.com/ovn-kubernetes/libovsdb/model"

	"github.com/netgroup-polito/ovn-networking/pkg/nbdb"
	"github.com/netgroup-polito/ovn-networking/pkg/sbdb"
)

func getUUID(model model.Model) string {
	switch t := model.(type) {
	case *nbdb.ACL:
		return t.UUID
	case *nbdb.AddressSet:
		return t.UUID
	case *nbdb.DHCPOptions:
		return t.UUID
	case *nbdb.LogicalRouter:
		return t.UUID
	case *nbdb.LogicalRouterPort:
		return t.UUID
	case *nbdb.LogicalRouterStaticRoute:
		return t.UUID
	case *nbdb.LogicalSwitch:
		return t.UUID
	case *nbdb.LogicalSwitchPort:
		return t.UUID
	case *sbdb.Chassis:
		return t.UUID
	default:
		panic(fmt.Sprintf("getUUID: unknown model %T", t))
	}
}

func setUUID(model model.Model, uuid string) {
	switch t := model.(type) {
	case *nbdb.ACL:
		t.UUID = uuid
	case *nbdb.AddressSet:
		t.UUID = uuid
	case *nbdb.DHCPOptions:
		t.UUID = uuid
	case *nbdb.LogicalRouter:
		t.UUID = uuid
	case *nbdb.LogicalRouterPort:
		t.UUID = uuid
	case *nbdb.LogicalRouterStaticRoute:
		t.UUID = uuid
	case *nbdb.LogicalSwitch:
		t.UUID = uuid
	case *nbdb.LogicalSwitchPort:
		t.UUID = uuid
	case *sbdb.Chassis:
		t.UUID = uuid
	default:
		panic(fmt.Sprintf("setUUID: unknown model %T", t))
	}
}

// getTable returns the name of the table the model belongs to
func getTable(model model.Model) string {
	switch t := model.(type) {
	case *nbdb.ACL:
		return t.Table()
	case *nbdb.AddressSet:
		return t.Table()
	case *nbdb.DHCPOptions:
		return t.Table()
	case *nbdb.LogicalRouter:
		return t.Table()
	case *nbdb.LogicalRouterPort:
		return t.Table()
	case *nbdb.LogicalRouterStaticRoute:
		return t.Table()
	case *nbdb.LogicalSwitch:
		return t.Table()
	case *nbdb.LogicalSwitchPort:
		return t.Table()
	case *sbdb.Chassis:
		return t.Table()
	default:
		panic(fmt.Sprintf("getTable: unknown model %T", t))
	}
}

// copyIndexes returns a model holding only the columns a row can be found
// by in the cache
func copyIndexes(model model.Model) model.Model {
	switch t := model.(type) {
	case *nbdb.AddressSet:
		return &nbdb.AddressSet{
			UUID: t.UUID,
			Name: t.Name,
		}
	case *nbdb.LogicalRouterPort:
		return &nbdb.LogicalRouterPort{
			UUID: t.UUID,
			Name: t.Name,
		}
	case *nbdb.LogicalSwitchPort:
		return &nbdb.LogicalSwitchPort{
			UUID: t.UUID,
			Name: t.Name,
		}
	case *sbdb.Chassis:
		return &sbdb.Chassis{
			UUID: t.UUID,
			Name: t.Name,
		}
	default:
		panic(fmt.Sprintf("copyIndexes: unsupported model %T", t))
	}
}
