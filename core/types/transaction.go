package types

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// ErrUnsignedCall is returned when a sender is requested from an unsigned call.
var ErrUnsignedCall = errors.New("types: call is unsigned")

// Call is the extrinsic envelope submitted to the runtime. Name selects the
// dispatchable (e.g. "swap.maker_swap") and Args carries its JSON payload.
type Call struct {
	Name  string          `json:"name"`
	Nonce uint64          `json:"nonce"`
	Args  json.RawMessage `json:"args"`

	// Signatures
	R *big.Int `json:"r,omitempty"`
	S *big.Int `json:"s,omitempty"`
	V *big.Int `json:"v,omitempty"`

	from []byte
}

// Hash covers the dispatch name, nonce and arguments.
func (c *Call) Hash() ([]byte, error) {
	payload := struct {
		Name  string
		Nonce uint64
		Args  json.RawMessage
	}{c.Name, c.Nonce, c.Args}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(b)
	return hash[:], nil
}

// Signed reports whether the call carries a signature.
func (c *Call) Signed() bool {
	return c != nil && c.R != nil && c.S != nil && c.V != nil
}

func (c *Call) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := c.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	c.R = new(big.Int).SetBytes(sig[:32])
	c.S = new(big.Int).SetBytes(sig[32:64])
	c.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	c.from = nil
	return nil
}

// From recovers the 20-byte signer address.
func (c *Call) From() ([20]byte, error) {
	var addr [20]byte
	if !c.Signed() {
		return addr, ErrUnsignedCall
	}
	if c.from != nil {
		copy(addr[:], c.from)
		return addr, nil
	}
	hash, err := c.Hash()
	if err != nil {
		return addr, err
	}
	if c.V.Uint64() < 27 {
		return addr, errors.New("types: invalid signature recovery id")
	}
	sig := make([]byte, 65)
	copy(sig[32-len(c.R.Bytes()):32], c.R.Bytes())
	copy(sig[64-len(c.S.Bytes()):64], c.S.Bytes())
	sig[64] = byte(c.V.Uint64() - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return addr, err
	}
	c.from = crypto.PubkeyToAddress(*pubKey).Bytes()
	copy(addr[:], c.from)
	return addr, nil
}
