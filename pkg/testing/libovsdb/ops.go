package libovsdb

import (
	"sort"
	"strings"

	"github.com/netgroup-polito/ovn-networking/pkg/sbdb"
	"github.com/netgroup-polito/ovn-networking/pkg/types"
)

// NewChassis builds a southbound chassis for hostname bridged to the given
// physnet:bridge mappings
func NewChassis(name, hostname string, bridgeMappings map[string]string) *sbdb.Chassis {
	mappings := make([]string, 0, len(bridgeMappings))
	for physnet, bridge := range bridgeMappings {
		mappings = append(mappings, physnet+":"+bridge)
	}
	sort.Strings(mappings)
	chassis := &sbdb.Chassis{
		UUID:     name + "-UUID",
		Name:     name,
		Hostname: hostname,
	}
	if len(mappings) > 0 {
		chassis.ExternalIDs = map[string]string{
			types.BridgeMappingsExtIDKey: strings.Join(mappings, ","),
		}
	}
	return chassis
}
