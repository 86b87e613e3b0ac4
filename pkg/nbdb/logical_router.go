package nbdb

import "github.com/ovn-kubernetes/libovsdb/model"

const LogicalRouterTable = "Logical_Router"

// LogicalRouter defines an object in Logical_Router table
type LogicalRouter struct {
	UUID         string            `ovsdb:"_uuid"`
	Enabled      *bool             `ovsdb:"enabled"`
	ExternalIDs  map[string]string `ovsdb:"external_ids"`
	Name         string            `ovsdb:"name"`
	Options      map[string]string `ovsdb:"options"`
	Ports        []string          `ovsdb:"ports"`
	StaticRoutes []string          `ovsdb:"static_routes"`
}

func (l *LogicalRouter) Table() string {
	return LogicalRouterTable
}

func (l *LogicalRouter) GetUUID() string {
	return l.UUID
}

func (l *LogicalRouter) DeepCopyInto(b *LogicalRouter) {
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
	if l.Options != nil {
		b.Options = make(map[string]string, len(l.Options))
		for k, v := range l.Options {
			b.Options[k] = v
		}
	}
	if l.Ports != nil {
		b.Ports = make([]string, len(l.Ports))
		copy(b.Ports, l.Ports)
	}
	if l.StaticRoutes != nil {
		b.StaticRoutes = make([]string, len(l.StaticRoutes))
		copy(b.StaticRoutes, l.StaticRoutes)
	}
}

func (l *LogicalRouter) DeepCopy() *LogicalRouter {
	b := new(LogicalRouter)
	l.DeepCopyInto(b)
	return b
}

func (l *LogicalRouter) CloneModelInto(b model.Model) {
	m := b.(*LogicalRouter)
	l.DeepCopyInto(m)
}

func (l *LogicalRouter) CloneModel() model.Model {
	return l.DeepCopy()
}

func (l *LogicalRouter) Equals(b *LogicalRouter) bool {
	return l.UUID == b.UUID &&
		equalOptionalBool(l.Enabled, b.Enabled) &&
		equalStringMaps(l.ExternalIDs, b.ExternalIDs) &&
		l.Name == b.Name &&
		equalStringMaps(l.Options, b.Options) &&
		equalStringSets(l.Ports, b.Ports) &&
		equalStringSets(l.StaticRoutes, b.StaticRoutes)
}

func (l *LogicalRouter) EqualsModel(b model.Model) bool {
	m := b.(*LogicalRouter)
	return l.Equals(m)
}

var _ model.CloneableModel = &LogicalRouter{}
var _ model.ComparableModel = &LogicalRouter{}
