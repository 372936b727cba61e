package crypto

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"strings"

	"github.com/btcsuite/btcutil/base58"
)

// TronAddressPrefix is the version byte of TRON mainnet addresses.
const TronAddressPrefix = 0x41

var ErrInvalidTronAddress = errors.New("invalid tron address")

// TronAddress is the 20-byte payload of a TRON account.
type TronAddress [20]byte

func tronChecksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:4]
}

// ParseTronAddress decodes a base58check "T..." address, verifying the
// version byte, length and checksum.
func ParseTronAddress(value string) (TronAddress, error) {
	var out TronAddress
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return out, ErrInvalidTronAddress
	}
	decoded := base58.Decode(trimmed)
	if len(decoded) != 25 {
		return out, ErrInvalidTronAddress
	}
	payload, checksum := decoded[:21], decoded[21:]
	if payload[0] != TronAddressPrefix {
		return out, ErrInvalidTronAddress
	}
	if !bytes.Equal(tronChecksum(payload), checksum) {
		return out, ErrInvalidTronAddress
	}
	copy(out[:], payload[1:])
	return out, nil
}

// String renders the base58check form.
func (a TronAddress) String() string {
	payload := make([]byte, 0, 25)
	payload = append(payload, TronAddressPrefix)
	payload = append(payload, a[:]...)
	payload = append(payload, tronChecksum(payload)...)
	return base58.Encode(payload)
}

// IsZero reports whether the address is unset.
func (a TronAddress) IsZero() bool { return a == TronAddress{} }
