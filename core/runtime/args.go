package runtime

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"dustchain/core/types"
	"dustchain/crypto"
)

// Account decodes a bech32 "dust1..." or 0x-hex account id.
type Account [20]byte

func (a *Account) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := crypto.ParseAccount(s)
	if err != nil {
		return err
	}
	*a = raw
	return nil
}

func (a Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(crypto.AccountAddress(a).String())
}

// Amount decodes a non-negative base-unit integer given as a JSON number or a
// decimal string.
type Amount struct {
	*big.Int
}

func NewAmount(v *big.Int) Amount { return Amount{Int: new(big.Int).Set(v)} }

func (a *Amount) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	v, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || v.Sign() < 0 {
		return fmt.Errorf("invalid amount %q", trimmed)
	}
	a.Int = v
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if a.Int == nil {
		return []byte(`"0"`), nil
	}
	return json.Marshal(a.Int.String())
}

// Big returns the amount or zero when unset.
func (a Amount) Big() *big.Int {
	if a.Int == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(a.Int)
}

// Domain decodes an arbitration domain or evidence namespace name.
type Domain types.DomainTag

func (d *Domain) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" || len(s) > len(types.DomainTag{}) {
		return fmt.Errorf("invalid domain %q", s)
	}
	*d = Domain(types.NewDomainTag(s))
	return nil
}

func (d Domain) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.TrimRight(types.DomainTag(d).String(), "_\x00"))
}

func (d Domain) Tag() types.DomainTag { return types.DomainTag(d) }

// Hash32 decodes a 0x-prefixed 32 byte hex value.
type Hash32 [32]byte

func (h *Hash32) UnmarshalJSON(data []byte) error {
	b, err := decodeHexString(data)
	if err != nil {
		return err
	}
	if len(b) != 32 {
		return fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	copy(h[:], b)
	return nil
}

func (h Hash32) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + hex.EncodeToString(h[:]))
}

// HexBytes decodes 0x-prefixed hex into opaque bytes.
type HexBytes []byte

func (h *HexBytes) UnmarshalJSON(data []byte) error {
	b, err := decodeHexString(data)
	if err != nil {
		return err
	}
	*h = b
	return nil
}

func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + hex.EncodeToString(h))
}

func decodeHexString(data []byte) ([]byte, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}

func decodeArgs(raw json.RawMessage, out interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return nil
}

// EncodeArgs marshals call arguments for submission.
func EncodeArgs(v interface{}) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
