package nbdb

import "github.com/ovn-kubernetes/libovsdb/model"

const LogicalRouterPortTable = "Logical_Router_Port"

// LogicalRouterPort defines an object in Logical_Router_Port table
type LogicalRouterPort struct {
	UUID        string            `ovsdb:"_uuid"`
	Enabled     *bool             `ovsdb:"enabled"`
	ExternalIDs map[string]string `ovsdb:"external_ids"`
	MAC         string            `ovsdb:"mac"`
	Name        string            `ovsdb:"name"`
	Networks    []string          `ovsdb:"networks"`
	Options     map[string]string `ovsdb:"options"`
	Peer        *string           `ovsdb:"peer"`
}

func (l *LogicalRouterPort) Table() string {
	return LogicalRouterPortTable
}

func (l *LogicalRouterPort) GetUUID() string {
	return l.UUID
}

func (l *LogicalRouterPort) DeepCopyInto(b *LogicalRouterPort) {
	*b = *l
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
	if l.Networks != nil {
		b.Networks = make([]string, len(l.Networks))
		copy(b.Networks, l.Networks)
	}
	if l.Options != nil {
		b.Options = make(map[string]string, len(l.Options))
		for k, v := range l.Options {
			b.Options[k] = v
		}
	}
	if l.Peer != nil {
		v := *l.Peer
		b.Peer = &v
	}
}

func (l *LogicalRouterPort) DeepCopy() *LogicalRouterPort {
	b := new(LogicalRouterPort)
	l.DeepCopyInto(b)
	return b
}

func (l *LogicalRouterPort) CloneModelInto(b model.Model) {
	m := b.(*LogicalRouterPort)
	l.DeepCopyInto(m)
}

func (l *LogicalRouterPort) CloneModel() model.Model {
	return l.DeepCopy()
}

func (l *LogicalRouterPort) Equals(b *LogicalRouterPort) bool {
	return l.UUID == b.UUID &&
		equalOptionalBool(l.Enabled, b.Enabled) &&
		equalStringMaps(l.ExternalIDs, b.ExternalIDs) &&
		l.MAC == b.MAC &&
		l.Name == b.Name &&
		equalStringSets(l.Networks, b.Networks) &&
		equalStringMaps(l.Options, b.Options) &&
		equalOptionalString(l.Peer, b.Peer)
}

func (l *LogicalRouterPort) EqualsModel(b model.Model) bool {
	m := b.(*LogicalRouterPort)
	return l.Equals(m)
}

var _ model.CloneableModel = &LogicalRouterPort{}
var _ model.ComparableModel = &LogicalRouterPort{}
