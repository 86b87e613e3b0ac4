package nbdb

import "github.com/ovn-kubernetes/libovsdb/model"

const ACLTable = "ACL"

type (
	ACLAction    = string
	ACLDirection = string
	ACLSeverity  = string
)

var (
	ACLActionAllow        ACLAction = "allow"
	ACLActionAllowRelated ACLAction = "allow-related"
	ACLActionDrop         ACLAction = "drop"
	ACLActionReject       ACLAction = "reject"
	ACLDirectionFromLport ACLDirection = "from-lport"
	ACLDirectionToLport   ACLDirection = "to-lport"
	ACLSeverityAlert      ACLSeverity = "alert"
	ACLSeverityWarning    ACLSeverity = "warning"
	ACLSeverityNotice     ACLSeverity = "notice"
	ACLSeverityInfo       ACLSeverity = "info"
	ACLSeverityDebug      ACLSeverity = "debug"
)

// ACL defines an object in ACL table
type ACL struct {
	UUID        string            `ovsdb:"_uuid"`
	Action      ACLAction         `ovsdb:"action"`
	Direction   ACLDirection      `ovsdb:"direction"`
	ExternalIDs map[string]string `ovsdb:"external_ids"`
	Log         bool              `ovsdb:"log"`
	Match       string            `ovsdb:"match"`
	Name        *string           `ovsdb:"name"`
	Priority    int               `ovsdb:"priority"`
	Severity    *ACLSeverity      `ovsdb:"severity"`
}

func (a *ACL) Table() string {
	return ACLTable
}

func (a *ACL) GetUUID() string {
	return a.UUID
}

func (a *ACL) DeepCopyInto(b *ACL) {
	*b = *a
	if a.ExternalIDs != nil {
		b.ExternalIDs = make(map[string]string, len(a.ExternalIDs))
		for k, v := range a.ExternalIDs {
			b.ExternalIDs[k] = v
		}
	}
	if a.Name != nil {
		v := *a.Name
		b.Name = &v
	}
	if a.Severity != nil {
		v := *a.Severity
		b.Severity = &v
	}
}

func (a *ACL) DeepCopy() *ACL {
	b := new(ACL)
	a.DeepCopyInto(b)
	return b
}

func (a *ACL) CloneModelInto(b model.Model) {
	m := b.(*ACL)
	a.DeepCopyInto(m)
}

func (a *ACL) CloneModel() model.Model {
	return a.DeepCopy()
}

func (a *ACL) Equals(b *ACL) bool {
	return a.UUID == b.UUID &&
		a.Action == b.Action &&
		a.Direction == b.Direction &&
		equalStringMaps(a.ExternalIDs, b.ExternalIDs) &&
		a.Log == b.Log &&
		a.Match == b.Match &&
		equalOptionalString(a.Name, b.Name) &&
		a.Priority == b.Priority &&
		equalOptionalString(a.Severity, b.Severity)
}

func (a *ACL) EqualsModel(b model.Model) bool {
	m := b.(*ACL)
	return a.Equals(m)
}

var _ model.CloneableModel = &ACL{}
var _ model.ComparableModel = &ACL{}
