package ops

import (
	"context"
	"sort"
	"strings"

	"github.com/ovn-kubernetes/libovsdb/client"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/netgroup-polito/ovn-networking/pkg/sbdb"
	"github.com/netgroup-polito/ovn-networking/pkg/types"
)

// ListChassis looks up all chassis from the cache
func ListChassis(ctx context.Context, sbClient client.Client) ([]*sbdb.Chassis, error) {
	searchedChassis := []*sbdb.Chassis{}
	if err := sbClient.List(ctx, &searchedChassis); err != nil {
		return nil, lookupError(sbdb.ChassisTable, "all", err)
	}
	sort.Slice(searchedChassis, func(i, j int) bool { return searchedChassis[i].Name < searchedChassis[j].Name })
	return searchedChassis, nil
}

// GetChassis looks up a chassis from the cache using the 'Name' column which is an indexed
// column.
func GetChassis(ctx context.Context, sbClient client.Client, name string) (*sbdb.Chassis, error) {
	chassis := copyIndexes(&sbdb.Chassis{Name: name}).(*sbdb.Chassis)
	if err := sbClient.Get(ctx, chassis); err != nil {
		return nil, lookupError(sbdb.ChassisTable, name, err)
	}
	return chassis, nil
}

// GetChassisByHostname looks up the chassis registered by a host
func GetChassisByHostname(ctx context.Context, sbClient client.Client, hostname string) (*sbdb.Chassis, error) {
	found := []*sbdb.Chassis{}
	err := sbClient.WhereCache(func(item *sbdb.Chassis) bool {
		return item.Hostname == hostname
	}).List(ctx, &found)
	if err != nil {
		return nil, lookupError(sbdb.ChassisTable, hostname, err)
	}
	if len(found) == 0 {
		return nil, lookupError(sbdb.ChassisTable, hostname, client.ErrNotFound)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	return found[0], nil
}

// GetBridgeMappings parses the "physnet:bridge,..." bridge mappings of a
// chassis into a physnet to bridge map. Malformed entries are skipped.
func GetBridgeMappings(chassis *sbdb.Chassis) map[string]string {
	mappings := map[string]string{}
	value := chassis.ExternalIDs[types.BridgeMappingsExtIDKey]
	if value == "" {
		value = chassis.OtherConfig[types.BridgeMappingsExtIDKey]
	}
	for _, mapping := range strings.Split(value, ",") {
		parts := strings.SplitN(strings.TrimSpace(mapping), ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		mappings[parts[0]] = parts[1]
	}
	return mappings
}

// GetChassisPhysnets returns the physical networks every host with a
// chassis is connected to
func GetChassisPhysnets(ctx context.Context, sbClient client.Client) (map[string]sets.Set[string], error) {
	chassis, err := ListChassis(ctx, sbClient)
	if err != nil {
		return nil, err
	}
	physnets := map[string]sets.Set[string]{}
	for _, ch := range chassis {
		if ch.Hostname == "" {
			continue
		}
		if _, ok := physnets[ch.Hostname]; !ok {
			physnets[ch.Hostname] = sets.New[string]()
		}
		for physnet := range GetBridgeMappings(ch) {
			physnets[ch.Hostname].Insert(physnet)
		}
	}
	return physnets, nil
}

// GetHostnamesForPhysnet returns the hosts whose chassis bridge mappings
// carry the physical network
func GetHostnamesForPhysnet(ctx context.Context, sbClient client.Client, physnet string) ([]string, error) {
	physnets, err := GetChassisPhysnets(ctx, sbClient)
	if err != nil {
		return nil, err
	}
	hosts := sets.New[string]()
	for host, nets := range physnets {
		if nets.Has(physnet) {
			hosts.Insert(host)
		}
	}
	return sets.List(hosts), nil
}
