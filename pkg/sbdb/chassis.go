package sbdb

import "github.com/ovn-kubernetes/libovsdb/model"

const ChassisTable = "Chassis"

// Chassis defines an object in Chassis table
type Chassis struct {
	UUID        string            `ovsdb:"_uuid"`
	ExternalIDs map[string]string `ovsdb:"external_ids"`
	Hostname    string            `ovsdb:"hostname"`
	Name        string            `ovsdb:"name"`
	OtherConfig map[string]string `ovsdb:"other_config"`
}

func (c *Chassis) Table() string {
	return ChassisTable
}

func (c *Chassis) GetUUID() string {
	return c.UUID
}

func (c *Chassis) DeepCopyInto(b *Chassis) {
	*b = *c
	if c.ExternalIDs != nil {
		b.ExternalIDs = make(map[string]string, len(c.ExternalIDs))
		for k, v := range c.ExternalIDs {
			b.ExternalIDs[k] = v
		}
	}
	if c.OtherConfig != nil {
		b.OtherConfig = make(map[string]string, len(c.OtherConfig))
		for k, v := range c.OtherConfig {
			b.OtherConfig[k] = v
		}
	}
}

func (c *Chassis) DeepCopy() *Chassis {
	b := new(Chassis)
	c.DeepCopyInto(b)
	return b
}

func (c *Chassis) CloneModelInto(b model.Model) {
	m := b.(*Chassis)
	c.DeepCopyInto(m)
}

func (c *Chassis) CloneModel() model.Model {
	return c.DeepCopy()
}

func (c *Chassis) Equals(b *Chassis) bool {
	return c.UUID == b.UUID &&
		equalStringMaps(c.ExternalIDs, b.ExternalIDs) &&
		c.Hostname == b.Hostname &&
		c.Name == b.Name &&
		equalStringMaps(c.OtherConfig, b.OtherConfig)
}

func (c *Chassis) EqualsModel(b model.Model) bool {
	m := b.(*Chassis)
	return c.Equals(m)
}

var _ model.CloneableModel = &Chassis{}
var _ model.ComparableModel = &Chassis{}
