package nbdb

import "github.com/ovn-kubernetes/libovsdb/model"

const LogicalSwitchTable = "Logical_Switch"

// LogicalSwitch defines an object in Logical_Switch table
type LogicalSwitch struct {
	UUID        string            `ovsdb:"_uuid"`
	ACLs        []string          `ovsdb:"acls"`
	ExternalIDs map[string]string `ovsdb:"external_ids"`
	Name        string            `ovsdb:"name"`
	OtherConfig map[string]string `ovsdb:"other_config"`
	Ports       []string          `ovsdb:"ports"`
}

func (l *LogicalSwitch) Table() string {
	return LogicalSwitchTable
}

func (l *LogicalSwitch) GetUUID() string {
	return l.UUID
}

func (l *LogicalSwitch) DeepCopyInto(b *LogicalSwitch) {
	*b = *l
	if l.ACLs != nil {
		b.ACLs = make([]string, len(l.ACLs))
		copy(b.ACLs, l.ACLs)
	}
	if l.ExternalIDs != nil {
		b.ExternalIDs = make(map[string]string, len(l.ExternalIDs))
		for k, v := range l.ExternalIDs {
			b.ExternalIDs[k] = v
		}
	}
	if l.OtherConfig != nil {
		b.OtherConfig = make(map[string]string, len(l.OtherConfig))
		for k, v := range l.OtherConfig {
			b.OtherConfig[k] = v
		}
	}
	if l.Ports != nil {
		b.Ports = make([]string, len(l.Ports))
		copy(b.Ports, l.Ports)
	}
}

func (l *LogicalSwitch) DeepCopy() *LogicalSwitch {
	b := new(LogicalSwitch)
	l.DeepCopyInto(b)
	return b
}

func (l *LogicalSwitch) CloneModelInto(b model.Model) {
	m := b.(*LogicalSwitch)
	l.DeepCopyInto(m)
}

func (l *LogicalSwitch) CloneModel() model.Model {
	return l.DeepCopy()
}

func (l *LogicalSwitch) Equals(b *LogicalSwitch) bool {
	return l.UUID == b.UUID &&
		equalStringSets(l.ACLs, b.ACLs) &&
		equalStringMaps(l.ExternalIDs, b.ExternalIDs) &&
		l.Name == b.Name &&
		equalStringMaps(l.OtherConfig, b.OtherConfig) &&
		equalStringSets(l.Ports, b.Ports)
}

func (l *LogicalSwitch) EqualsModel(b model.Model) bool {
	m := b.(*LogicalSwitch)
	return l.Equals(m)
}

var _ model.CloneableModel = &LogicalSwitch{}
var _ model.ComparableModel = &LogicalSwitch{}
