package util

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/netgroup-polito/ovn-networking/pkg/types"
)

// StringArg gets the named command-line argument or returns an error if it is empty
func StringArg(context *cli.Context, name string) (string, error) {
	val := context.String(name)
	if val == "" {
		return "", fmt.Errorf("argument --%s should be non-null", name)
	}
	return val, nil
}

// OVNName returns the name of the logical switch or router backing the
// network or router id
func OVNName(id string) string {
	return types.NeutronPrefix + id
}

// LocalnetPortName returns the name of the localnet port of a provider network
func LocalnetPortName(networkID string) string {
	return types.LocalnetPortPrefix + networkID
}

// RouterPortName returns the name of the logical router port backing the
// router interface port
func RouterPortName(portID string) string {
	return types.RouterPortPrefix + portID
}

// AddressSetName returns the name of the address set holding the
// addresses of one IP family ("ip4" or "ip6") of a security group. OVN
// names can not contain '-'.
func AddressSetName(securityGroupID, ipVersion string) string {
	name := fmt.Sprintf("%s_%s_%s", types.AddressSetPrefix, ipVersion, securityGroupID)
	return strings.ReplaceAll(name, "-", "_")
}

// IsNetworkDevicePort reports whether the device owner is a network
// service (router interface, DHCP agent, ...) rather than a workload
func IsNetworkDevicePort(deviceOwner string) bool {
	for _, prefix := range types.DeviceOwnerPrefixes {
		if strings.HasPrefix(deviceOwner, prefix) {
			return true
		}
	}
	return false
}
