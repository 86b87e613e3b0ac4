package nbdb

import "github.com/ovn-kubernetes/libovsdb/model"

const LogicalSwitchPortTable = "Logical_Switch_Port"

// LogicalSwitchPort defines an object in Logical_Switch_Port table
type LogicalSwitchPort struct {
	UUID          string            `ovsdb:"_uuid"`
	Addresses     []string          `ovsdb:"addresses"`
	Dhcpv4Options *string           `ovsdb:"dhcpv4_options"`
	Dhcpv6Options *string           `ovsdb:"dhcpv6_options"`
	Enabled       *bool             `ovsdb:"enabled"`
	ExternalIDs   map[string]string `ovsdb:"external_ids"`
	Name          string            `ovsdb:"name"`
	Options       map[string]string `ovsdb:"options"`
	ParentName    *string           `ovsdb:"parent_name"`
	PortSecurity  []string          `ovsdb:"port_security"`
	Tag           *int              `ovsdb:"tag"`
	TagRequest    *int              `ovsdb:"tag_request"`
	Type          string            `ovsdb:"type"`
	Up            *bool             `ovsdb:"up"`
}

func (l *LogicalSwitchPort) Table() string {
	return LogicalSwitchPortTable
}

func (l *LogicalSwitchPort) GetUUID() string {
	return l.UUID
}

func (l *LogicalSwitchPort) DeepCopyInto(b *LogicalSwitchPort) {
	*b = *l
	if l.Addresses != nil {
		b.Addresses = make([]string, len(l.Addresses))
		copy(b.Addresses, l.Addresses)
	}
	if l.Dhcpv4Options != nil {
		v := *l.Dhcpv4Options
		b.Dhcpv4Options = &v
	}
	if l.Dhcpv6Options != nil {
		v := *l.Dhcpv6Options
		b.Dhcpv6Options = &v
	}
	if l.Enabled != nil {
		v := *l.Enabled
		b.Enabled = &v
	}
	if l.ExternalIDs != nil {
		b.ExternalIDs = make(map[string]string, len(l.ExternalIDs))
		for k, v := range l.ExternalIDs {
			b.ExternalIDs[k] = v
		}
	}
	if l.Options != nil {
		b.Options = make(map[string]string, len(l.Options))
		for k, v := range l.Options {
			b.Options[k] = v
		}
	}
	if l.ParentName != nil {
		v := *l.ParentName
		b.ParentName = &v
	}
	if l.PortSecurity != nil {
		b.PortSecurity = make([]string, len(l.PortSecurity))
		copy(b.PortSecurity, l.PortSecurity)
	}
	if l.Tag != nil {
		v := *l.Tag
		b.Tag = &v
	}
	if l.TagRequest != nil {
		v := *l.TagRequest
		b.TagRequest = &v
	}
	if l.Up != nil {
		v := *l.Up
		b.Up = &v
	}
}

func (l *LogicalSwitchPort) DeepCopy() *LogicalSwitchPort {
	b := new(LogicalSwitchPort)
	l.DeepCopyInto(b)
	return b
}

func (l *LogicalSwitchPort) CloneModelInto(b model.Model) {
	m := b.(*LogicalSwitchPort)
	l.DeepCopyInto(m)
}

func (l *LogicalSwitchPort) CloneModel() model.Model {
	return l.DeepCopy()
}

func (l *LogicalSwitchPort) Equals(b *LogicalSwitchPort) bool {
	return l.UUID == b.UUID &&
		equalStringSets(l.Addresses, b.Addresses) &&
		equalOptionalString(l.Dhcpv4Options, b.Dhcpv4Options) &&
		equalOptionalString(l.Dhcpv6Options, b.Dhcpv6Options) &&
		equalOptionalBool(l.Enabled, b.Enabled) &&
		equalStringMaps(l.ExternalIDs, b.ExternalIDs) &&
		l.Name == b.Name &&
		equalStringMaps(l.Options, b.Options) &&
		equalOptionalString(l.ParentName, b.ParentName) &&
		equalStringSets(l.PortSecurity, b.PortSecurity) &&
		equalOptionalInt(l.Tag, b.Tag) &&
		equalOptionalInt(l.TagRequest, b.TagRequest) &&
		l.Type == b.Type &&
		equalOptionalBool(l.Up, b.Up)
}

func (l *LogicalSwitchPort) EqualsModel(b model.Model) bool {
	m := b.(*LogicalSwitchPort)
	return l.Equals(m)
}

var _ model.CloneableModel = &LogicalSwitchPort{}
var _ model.ComparableModel = &LogicalSwitchPort{}
