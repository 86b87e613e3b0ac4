package ops

import (
	"fmt"
	"sync/atomic"

	"github.com/netgroup-polito/ovn-networking/pkg/cryptorand"
)

const (
	namedUUIDPrefix = 'u'
)

var (
	namedUUIDCounter = cryptorand.Uint32()
)

// isNamedUUID checks if the passed id is a named-uuid built with
// BuildNamedUUID
func isNamedUUID(id string) bool {
	return id != "" && id[0] == namedUUIDPrefix
}

// BuildNamedUUID builds an id that can be used as a named-uuid
// as per OVSDB rfc 7047 section 5.1
func BuildNamedUUID() string {
	return fmt.Sprintf("%c%010d", namedUUIDPrefix, atomic.AddUint32(&namedUUIDCounter, 1))
}
