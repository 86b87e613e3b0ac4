package mechdriver

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog/v2"

	"github.com/netgroup-polito/ovn-networking/pkg/config"
	"github.com/netgroup-polito/ovn-networking/pkg/libovsdb/ops"
	"github.com/netgroup-polito/ovn-networking/pkg/metrics"
	"github.com/netgroup-polito/ovn-networking/pkg/nbdb"
	"github.com/netgroup-polito/ovn-networking/pkg/neutron"
	"github.com/netgroup-polito/ovn-networking/pkg/ovn/acl"
	"github.com/netgroup-polito/ovn-networking/pkg/ovn/dhcp"
	"github.com/netgroup-polito/ovn-networking/pkg/types"
	"github.com/netgroup-polito/ovn-networking/pkg/util"
)

// BindingProfile is the validated binding:profile of a port
type BindingProfile struct {
	ParentName         string
	Tag                *int
	VTEPPhysicalSwitch string
	VTEPLogicalSwitch  string
}

func profileString(profile map[string]interface{}, key string) (string, bool, error) {
	value, ok := profile[key]
	if !ok {
		return "", false, nil
	}
	s, isString := value.(string)
	if !isString {
		return "", true, pkgerrors.Wrapf(ErrInvalidInput, "binding profile %s must be a string", key)
	}
	return s, true, nil
}

func profileTag(profile map[string]interface{}) (*int, bool, error) {
	value, ok := profile[types.BindingProfileTag]
	if !ok {
		return nil, false, nil
	}
	var tag int
	switch v := value.(type) {
	case int:
		tag = v
	case int64:
		tag = int(v)
	case float64:
		// JSON numbers decode as float64
		if v != math.Trunc(v) {
			return nil, true, pkgerrors.Wrapf(ErrInvalidInput, "binding profile tag %v is not an integer", v)
		}
		tag = int(v)
	default:
		return nil, true, pkgerrors.Wrapf(ErrInvalidInput, "binding profile tag %v is not an integer", value)
	}
	if tag < 0 || tag > types.MaxContainerTag {
		return nil, true, pkgerrors.Wrapf(ErrInvalidInput, "binding profile tag %d out of range 0-%d", tag, types.MaxContainerTag)
	}
	return &tag, true, nil
}

// ParseBindingProfile validates the binding profile of a port. parent_name
// and tag nest the port in a parent port and must be given together, as
// must vtep-physical-switch and vtep-logical-switch, which attach the port
// to a VTEP gateway. The two attachments exclude each other.
func ParseBindingProfile(profile map[string]interface{}) (*BindingProfile, error) {
	result := &BindingProfile{}
	if len(profile) == 0 {
		return result, nil
	}
	parent, hasParent, err := profileString(profile, types.BindingProfileParentName)
	if err != nil {
		return nil, err
	}
	tag, hasTag, err := profileTag(profile)
	if err != nil {
		return nil, err
	}
	physical, hasPhysical, err := profileString(profile, types.BindingProfileVTEPPhysicalSwitch)
	if err != nil {
		return nil, err
	}
	logical, hasLogical, err := profileString(profile, types.BindingProfileVTEPLogicalSwitch)
	if err != nil {
		return nil, err
	}

	if hasParent != hasTag {
		return nil, pkgerrors.Wrapf(ErrInvalidInput, "binding profile requires both %s and %s",
			types.BindingProfileParentName, types.BindingProfileTag)
	}
	if hasPhysical != hasLogical {
		return nil, pkgerrors.Wrapf(ErrInvalidInput, "binding profile requires both %s and %s",
			types.BindingProfileVTEPPhysicalSwitch, types.BindingProfileVTEPLogicalSwitch)
	}
	if hasParent && hasPhysical {
		return nil, pkgerrors.Wrap(ErrInvalidInput, "binding profile can not set both a parent port and a VTEP gateway")
	}
	result.ParentName = parent
	result.Tag = tag
	result.VTEPPhysicalSwitch = physical
	result.VTEPLogicalSwitch = logical
	return result, nil
}

// ValidatePort checks the binding profile and extra DHCP options of a
// port. The parent port of a nested port must exist.
func (d *Driver) ValidatePort(ctx context.Context, port *neutron.Port) (*BindingProfile, error) {
	profile, err := ParseBindingProfile(port.Profile)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "invalid port %s", port.ID)
	}
	if profile.ParentName != "" {
		_, err := d.plugin.GetPort(ctx, profile.ParentName)
		if errors.Is(err, neutron.ErrPortNotFound) {
			return nil, pkgerrors.Wrapf(ErrInvalidInput, "parent port %s of port %s does not exist", profile.ParentName, port.ID)
		}
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to get parent port %s", profile.ParentName)
		}
	}
	if err := dhcp.ValidateExtraDHCPOpts(port.ExtraDHCPOpts); err != nil {
		return nil, pkgerrors.Wrapf(err, "invalid port %s", port.ID)
	}
	return profile, nil
}

func portIPs(port *neutron.Port) []string {
	ips := make([]string, 0, len(port.FixedIPs))
	for _, ip := range port.FixedIPs {
		ips = append(ips, ip.IPAddress)
	}
	return ips
}

// PortAddresses returns the addresses column of the port: its MAC
// followed by its fixed IPs
func PortAddresses(port *neutron.Port) []string {
	return []string{strings.Join(append([]string{port.MACAddress}, portIPs(port)...), " ")}
}

// PortSecurity returns the port_security column of the port. The port MAC
// and fixed IPs form the first entry. Allowed address pairs without MAC or
// with the port MAC add their IP to it; the other pairs get an entry per
// MAC. Network device ports and ports with port security disabled get
// none.
func PortSecurity(port *neutron.Port) []string {
	if !port.IsPortSecurityEnabled() || util.IsNetworkDevicePort(port.DeviceOwner) {
		return []string{}
	}
	own := append([]string{port.MACAddress}, portIPs(port)...)
	others := map[string][]string{}
	var macs []string
	for _, pair := range port.AllowedAddressPairs {
		if pair.MACAddress == "" || strings.EqualFold(pair.MACAddress, port.MACAddress) {
			own = append(own, pair.IPAddress)
			continue
		}
		if _, ok := others[pair.MACAddress]; !ok {
			macs = append(macs, pair.MACAddress)
		}
		others[pair.MACAddress] = append(others[pair.MACAddress], pair.IPAddress)
	}
	result := []string{strings.Join(own, " ")}
	for _, mac := range macs {
		result = append(result, strings.Join(append([]string{mac}, others[mac]...), " "))
	}
	return result
}

// portColumns builds the logical switch port columns of the port. The
// DHCP links are filled by the caller.
func portColumns(port *neutron.Port, profile *BindingProfile) ops.LSPColumns {
	lspType := ""
	addresses := PortAddresses(port)
	portSecurity := PortSecurity(port)
	options := map[string]string{}
	externalIDs := map[string]string{types.PortNameExtIDKey: port.Name}
	enabled := port.IsAdminStateUp()
	parentName := profile.ParentName

	switch {
	case profile.VTEPPhysicalSwitch != "":
		lspType = types.LSPTypeVTEP
		addresses = []string{types.LSPAddressUnknown}
		options[types.LSPOptionVTEPPhysical] = profile.VTEPPhysicalSwitch
		options[types.LSPOptionVTEPLogical] = profile.VTEPLogicalSwitch
	case port.DeviceOwner == types.DeviceOwnerRouterInterface:
		lspType = types.LSPTypeRouter
		addresses = []string{types.LSPAddressRouter}
		options[types.LSPOptionRouterPort] = util.RouterPortName(port.ID)
	}

	columns := ops.LSPColumns{
		Type:         &lspType,
		Addresses:    &addresses,
		PortSecurity: &portSecurity,
		Options:      &options,
		ExternalIDs:  &externalIDs,
		ParentName:   &parentName,
		Enabled:      &enabled,
	}
	if profile.Tag != nil {
		tag := *profile.Tag
		columns.TagRequest = &tag
	}
	return columns
}

// portDHCPOptions returns the DHCP options the port links to for IPv4 and
// IPv6, nil entries when DHCP is not native
func (d *Driver) portDHCPOptions(ctx context.Context, port *neutron.Port) (v4, v6 *dhcp.PortOptions, err error) {
	if !config.OVN.NativeDHCP {
		return nil, nil, nil
	}
	if v4, err = d.dhcp.PortOptions(ctx, d.nbClient, port, 4); err != nil {
		return nil, nil, err
	}
	if v6, err = d.dhcp.PortOptions(ctx, d.nbClient, port, 6); err != nil {
		return nil, nil, err
	}
	return v4, v6, nil
}

// stageDHCPOptions stages the DHCP rows of the port and links columns to
// the options it gets. A nil options clears the link.
func stageDHCPOptions(ctx context.Context, txn *ops.Transaction, columns *ops.LSPColumns, v4, v6 *dhcp.PortOptions) error {
	refs := make([]string, 2)
	for i, opts := range []*dhcp.PortOptions{v4, v6} {
		if opts == nil {
			continue
		}
		if opts.Add != nil {
			if err := opts.Add.Stage(ctx, txn); err != nil {
				return err
			}
		}
		refs[i] = opts.Ref()
	}
	columns.DHCPv4Options = &refs[0]
	columns.DHCPv6Options = &refs[1]
	return nil
}

// IsPortProvisioningRequired reports whether the port has to wait for its
// logical port to come up before going ACTIVE: a normal port still DOWN
// that moved to a host running an OVN chassis
func (d *Driver) IsPortProvisioningRequired(ctx context.Context, port *neutron.Port, host, originalHost string) bool {
	if port.GetVNICType() != types.VNICTypeNormal {
		return false
	}
	if port.Status != types.PortStatusDown {
		return false
	}
	if host == "" || host == originalHost {
		return false
	}
	if _, err := ops.GetChassisByHostname(ctx, d.sbClient, host); err != nil {
		if !errors.Is(err, ops.ErrNotFound) {
			klog.Warningf("Failed to look up chassis of host %s: %v", host, err)
		}
		return false
	}
	return true
}

func (d *Driver) portPrecommit(ctx context.Context, port *neutron.Port, originalHost string) error {
	if _, err := d.ValidatePort(ctx, port); err != nil {
		return err
	}
	if !d.IsPortProvisioningRequired(ctx, port, port.HostID, originalHost) {
		return nil
	}
	if err := d.plugin.AddProvisioningComponent(ctx, port.ID, types.ProvisioningEntityL2); err != nil {
		return pkgerrors.Wrapf(err, "failed to block provisioning of port %s", port.ID)
	}
	metrics.MetricProvisioningEvents.WithLabelValues(metrics.ProvisioningBlocked).Inc()
	return nil
}

// CreatePortPrecommit validates the port and blocks its provisioning when
// it is bound to an OVN chassis
func (d *Driver) CreatePortPrecommit(ctx context.Context, port *neutron.Port) error {
	return d.portPrecommit(ctx, port, "")
}

// UpdatePortPrecommit validates the port and blocks its provisioning when
// it moved to an OVN chassis
func (d *Driver) UpdatePortPrecommit(ctx context.Context, port, original *neutron.Port) error {
	originalHost := ""
	if original != nil {
		originalHost = original.HostID
	}
	return d.portPrecommit(ctx, port, originalHost)
}

// CreatePortPostcommit creates the logical switch port with its DHCP
// options, ACLs and address set entries in a single transaction
func (d *Driver) CreatePortPostcommit(ctx context.Context, port *neutron.Port, caches *neutron.Caches) error {
	profile, err := ParseBindingProfile(port.Profile)
	if err != nil {
		return pkgerrors.Wrapf(err, "invalid port %s", port.ID)
	}
	if caches == nil {
		caches = neutron.NewCaches()
	}
	acls, err := acl.AddACLs(ctx, d.plugin, port, caches)
	if err != nil {
		return err
	}
	v4, v6, err := d.portDHCPOptions(ctx, port)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to get DHCP options of port %s", port.ID)
	}

	lswitch := util.OVNName(port.NetworkID)
	err = d.transact(ctx, "create_port", func(txn *ops.Transaction) error {
		columns := portColumns(port, profile)
		if err := stageDHCPOptions(ctx, txn, &columns, v4, v6); err != nil {
			return err
		}
		cmds := []ops.Command{
			&ops.AddLSwitchPort{Name: port.ID, LSwitch: lswitch, Columns: columns},
		}
		for _, a := range acls {
			cmds = append(cmds, &ops.AddACL{LSwitch: lswitch, LPort: port.ID, ACL: a})
		}
		cmds = append(cmds, acl.UpdatePortAddressSets(nil, port)...)
		return ops.Stage(ctx, txn, cmds...)
	})
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to create port %s", port.ID)
	}
	klog.Infof("Created logical switch port %s on %s", port.ID, lswitch)

	// network device ports never report up through a chassis
	if util.IsNetworkDevicePort(port.DeviceOwner) {
		if err := d.plugin.ProvisioningComplete(ctx, port.ID, types.ProvisioningEntityL2); err != nil {
			return pkgerrors.Wrapf(err, "failed to complete provisioning of port %s", port.ID)
		}
	}
	return nil
}

func securityGroupsChanged(port, original *neutron.Port) bool {
	return !sets.New(port.SecurityGroups...).Equal(sets.New(original.SecurityGroups...))
}

func fixedIPsChanged(port, original *neutron.Port) bool {
	current := portIPs(port)
	previous := portIPs(original)
	sort.Strings(current)
	sort.Strings(previous)
	if len(current) != len(previous) {
		return true
	}
	for i := range current {
		if current[i] != previous[i] {
			return true
		}
	}
	return false
}

// UpdatePortPostcommit rewrites the logical switch port. The ACLs and
// address set entries of the port are only reconciled when its security
// groups or fixed IPs changed.
func (d *Driver) UpdatePortPostcommit(ctx context.Context, port, original *neutron.Port, caches *neutron.Caches) error {
	profile, err := ParseBindingProfile(port.Profile)
	if err != nil {
		return pkgerrors.Wrapf(err, "invalid port %s", port.ID)
	}
	if caches == nil {
		caches = neutron.NewCaches()
	}
	v4, v6, err := d.portDHCPOptions(ctx, port)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to get DHCP options of port %s", port.ID)
	}

	lswitch := util.OVNName(port.NetworkID)
	var aclCmds []ops.Command
	if original == nil || securityGroupsChanged(port, original) || fixedIPsChanged(port, original) {
		acls, err := acl.AddACLs(ctx, d.plugin, port, caches)
		if err != nil {
			return err
		}
		aclCmds = append(aclCmds, &ops.UpdateACLs{
			LSwitches:   []string{lswitch},
			Ports:       []ops.ACLPort{{Name: port.ID, LSwitch: lswitch}},
			ACLs:        map[string][]*nbdb.ACL{port.ID: acls},
			NeedCompare: true,
		})
		aclCmds = append(aclCmds, acl.UpdatePortAddressSets(original, port)...)
	}

	err = d.transact(ctx, "update_port", func(txn *ops.Transaction) error {
		columns := portColumns(port, profile)
		// a tag request can not be cleared
		if columns.TagRequest == nil {
			columns.ParentName = nil
		}
		if err := stageDHCPOptions(ctx, txn, &columns, v4, v6); err != nil {
			return err
		}
		cmds := append([]ops.Command{
			&ops.SetLSwitchPort{Name: port.ID, Columns: columns},
		}, aclCmds...)
		return ops.Stage(ctx, txn, cmds...)
	})
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to update port %s", port.ID)
	}
	return nil
}

// DeletePortPostcommit deletes the logical switch port with its ACLs,
// DHCP options and address set entries
func (d *Driver) DeletePortPostcommit(ctx context.Context, port *neutron.Port) error {
	lswitch := util.OVNName(port.NetworkID)
	cmds := []ops.Command{
		&ops.DelLSwitchPort{Name: port.ID, LSwitch: lswitch, IfExists: true},
		&ops.DelACL{LSwitch: lswitch, LPort: port.ID, IfExists: true},
	}
	cmds = append(cmds, acl.UpdatePortAddressSets(port, nil)...)
	if err := d.execute(ctx, "delete_port", cmds...); err != nil {
		return pkgerrors.Wrapf(err, "failed to delete port %s", port.ID)
	}
	klog.Infof("Deleted logical switch port %s", port.ID)
	return nil
}

// SetPortStatusUp lifts the L2 provisioning block of the port once its
// logical port is up
func (d *Driver) SetPortStatusUp(ctx context.Context, portID string) error {
	klog.V(5).Infof("Logical port %s is up", portID)
	err := d.plugin.ProvisioningComplete(ctx, portID, types.ProvisioningEntityL2)
	if errors.Is(err, neutron.ErrReferenceGone) || errors.Is(err, neutron.ErrPortNotFound) {
		klog.V(5).Infof("Port %s deleted while going up", portID)
		return nil
	}
	if err != nil {
		return err
	}
	metrics.MetricProvisioningEvents.WithLabelValues(metrics.ProvisioningCompleted).Inc()
	return nil
}

// SetPortStatusDown blocks the provisioning of the port again once its
// logical port is down. A port deleted meanwhile is ignored.
func (d *Driver) SetPortStatusDown(ctx context.Context, portID string) error {
	klog.V(5).Infof("Logical port %s is down", portID)
	if _, err := d.plugin.GetPort(ctx, portID); err != nil {
		if errors.Is(err, neutron.ErrPortNotFound) {
			return nil
		}
		return err
	}
	err := d.plugin.AddProvisioningComponent(ctx, portID, types.ProvisioningEntityL2)
	if errors.Is(err, neutron.ErrReferenceGone) {
		klog.V(5).Infof("Port %s deleted while going down", portID)
		return nil
	}
	if err != nil {
		return err
	}
	metrics.MetricProvisioningEvents.WithLabelValues(metrics.ProvisioningBlocked).Inc()
	return nil
}
