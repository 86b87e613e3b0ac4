package cryptorand

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	"net"

	"k8s.io/klog/v2"
)

func Intn(n int64) uint64 {
	val := new(big.Int).SetInt64(n)
	randNum, err := rand.Int(rand.Reader, val)
	if err != nil {
		klog.Errorf("Error generating random number using crypto/rand : %v", err)
		return 0
	}
	return randNum.Uint64()
}

func Uint32() uint32 {
	b := make([]byte, 8)
	_, err := rand.Read(b)
	if err != nil {
		klog.Errorf("Error reading bytes for random number generation using crypto/rand: %v", err)
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func Read(randBytes []byte) []byte {
	_, err := rand.Read(randBytes)
	if err != nil {
		klog.Errorf("Error reading bytes using crypto/rand: %v", err)
		return nil
	}
	return randBytes
}

// MAC returns a random unicast MAC address within base. The first three
// octets of base are kept, as is the fourth when it is not zero; the other
// octets are random.
func MAC(base string) (string, error) {
	hw, err := net.ParseMAC(base)
	if err != nil {
		return "", fmt.Errorf("invalid base MAC %q: %w", base, err)
	}
	if len(hw) != 6 {
		return "", fmt.Errorf("invalid base MAC %q: not an EUI-48 address", base)
	}
	if hw[0]&0x01 != 0 {
		return "", fmt.Errorf("invalid base MAC %q: multicast address", base)
	}
	fixed := 3
	if hw[3] != 0 {
		fixed = 4
	}
	random := Read(make([]byte, 6-fixed))
	if random == nil {
		return "", fmt.Errorf("failed to read random bytes for MAC within %q", base)
	}
	mac := make(net.HardwareAddr, 6)
	copy(mac, hw[:fixed])
	copy(mac[fixed:], random)
	return mac.String(), nil
}
