package nbdb

import "github.com/ovn-kubernetes/libovsdb/model"

const LogicalRouterStaticRouteTable = "Logical_Router_Static_Route"

// LogicalRouterStaticRoute defines an object in Logical_Router_Static_Route table
type LogicalRouterStaticRoute struct {
	UUID        string            `ovsdb:"_uuid"`
	ExternalIDs map[string]string `ovsdb:"external_ids"`
	IPPrefix    string            `ovsdb:"ip_prefix"`
	Nexthop     string            `ovsdb:"nexthop"`
	OutputPort  *string           `ovsdb:"output_port"`
}

func (l *LogicalRouterStaticRoute) Table() string {
	return LogicalRouterStaticRouteTable
}

func (l *LogicalRouterStaticRoute) GetUUID() string {
	return l.UUID
}

func (l *LogicalRouterStaticRoute) DeepCopyInto(b *LogicalRouterStaticRoute) {
	*b = *l
	if l.ExternalIDs != nil {
		b.ExternalIDs = make(map[string]string, len(l.ExternalIDs))
		for k, v := range l.ExternalIDs {
			b.ExternalIDs[k] = v
		}
	}
	if l.OutputPort != nil {
		v := *l.OutputPort
		b.OutputPort = &v
	}
}

func (l *LogicalRouterStaticRoute) DeepCopy() *LogicalRouterStaticRoute {
	b := new(LogicalRouterStaticRoute)
	l.DeepCopyInto(b)
	return b
}

func (l *LogicalRouterStaticRoute) CloneModelInto(b model.Model) {
	m := b.(*LogicalRouterStaticRoute)
	l.DeepCopyInto(m)
}

func (l *LogicalRouterStaticRoute) CloneModel() model.Model {
	return l.DeepCopy()
}

func (l *LogicalRouterStaticRoute) Equals(b *LogicalRouterStaticRoute) bool {
	return l.UUID == b.UUID &&
		equalStringMaps(l.ExternalIDs, b.ExternalIDs) &&
		l.IPPrefix == b.IPPrefix &&
		l.Nexthop == b.Nexthop &&
		equalOptionalString(l.OutputPort, b.OutputPort)
}

func (l *LogicalRouterStaticRoute) EqualsModel(b model.Model) bool {
	m := b.(*LogicalRouterStaticRoute)
	return l.Equals(m)
}

var _ model.CloneableModel = &LogicalRouterStaticRoute{}
var _ model.ComparableModel = &LogicalRouterStaticRoute{}
