package nbdb

import "github.com/ovn-kubernetes/libovsdb/model"

const AddressSetTable = "Address_Set"

// AddressSet defines an object in Address_Set table
type AddressSet struct {
	UUID        string            `ovsdb:"_uuid"`
	Addresses   []string          `ovsdb:"addresses"`
	ExternalIDs map[string]string `ovsdb:"external_ids"`
	Name        string            `ovsdb:"name"`
}

func (a *AddressSet) Table() string {
	return AddressSetTable
}

func (a *AddressSet) GetUUID() string {
	return a.UUID
}

func (a *AddressSet) DeepCopyInto(b *AddressSet) {
	*b = *a
	if a.Addresses != nil {
		b.Addresses = make([]string, len(a.Addresses))
		copy(b.Addresses, a.Addresses)
	}
	if a.ExternalIDs != nil {
		b.ExternalIDs = make(map[string]string, len(a.ExternalIDs))
		for k, v := range a.ExternalIDs {
			b.ExternalIDs[k] = v
		}
	}
}

func (a *AddressSet) DeepCopy() *AddressSet {
	b := new(AddressSet)
	a.DeepCopyInto(b)
	return b
}

func (a *AddressSet) CloneModelInto(b model.Model) {
	m := b.(*AddressSet)
	a.DeepCopyInto(m)
}

func (a *AddressSet) CloneModel() model.Model {
	return a.DeepCopy()
}

func (a *AddressSet) Equals(b *AddressSet) bool {
	return a.UUID == b.UUID &&
		equalStringSets(a.Addresses, b.Addresses) &&
		equalStringMaps(a.ExternalIDs, b.ExternalIDs) &&
		a.Name == b.Name
}

func (a *AddressSet) EqualsModel(b model.Model) bool {
	m := b.(*AddressSet)
	return a.Equals(m)
}

var _ model.CloneableModel = &AddressSet{}
var _ model.ComparableModel = &AddressSet{}
