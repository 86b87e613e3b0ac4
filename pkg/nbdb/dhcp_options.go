package nbdb

import "github.com/ovn-kubernetes/libovsdb/model"

const DHCPOptionsTable = "DHCP_Options"

// DHCPOptions defines an object in DHCP_Options table
type DHCPOptions struct {
	UUID        string            `ovsdb:"_uuid"`
	Cidr        string            `ovsdb:"cidr"`
	ExternalIDs map[string]string `ovsdb:"external_ids"`
	Options     map[string]string `ovsdb:"options"`
}

func (d *DHCPOptions) Table() string {
	return DHCPOptionsTable
}

func (d *DHCPOptions) GetUUID() string {
	return d.UUID
}

func (d *DHCPOptions) DeepCopyInto(b *DHCPOptions) {
	*b = *d
	if d.ExternalIDs != nil {
		b.ExternalIDs = make(map[string]string, len(d.ExternalIDs))
		for k, v := range d.ExternalIDs {
			b.ExternalIDs[k] = v
		}
	}
	if d.Options != nil {
		b.Options = make(map[string]string, len(d.Options))
		for k, v := range d.Options {
			b.Options[k] = v
		}
	}
}

func (d *DHCPOptions) DeepCopy() *DHCPOptions {
	b := new(DHCPOptions)
	d.DeepCopyInto(b)
	return b
}

func (d *DHCPOptions) CloneModelInto(b model.Model) {
	m := b.(*DHCPOptions)
	d.DeepCopyInto(m)
}

func (d *DHCPOptions) CloneModel() model.Model {
	return d.DeepCopy()
}

func (d *DHCPOptions) Equals(b *DHCPOptions) bool {
	return d.UUID == b.UUID &&
		d.Cidr == b.Cidr &&
		equalStringMaps(d.ExternalIDs, b.ExternalIDs) &&
		equalStringMaps(d.Options, b.Options)
}

func (d *DHCPOptions) EqualsModel(b model.Model) bool {
	m := b.(*DHCPOptions)
	return d.Equals(m)
}

var _ model.CloneableModel = &DHCPOptions{}
var _ model.ComparableModel = &DHCPOptions{}
