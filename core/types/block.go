package types

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
)

// BlockHeader captures the metadata of a produced block.
type BlockHeader struct {
	Height    uint64   `json:"height"`
	Timestamp int64    `json:"timestamp"`
	PrevHash  []byte   `json:"prevHash"`
	CallsRoot []byte   `json:"callsRoot"`
	Producer  [20]byte `json:"producer"`
	Signature []byte   `json:"signature,omitempty"`
}

// Block represents a produced block and the calls it applied.
type Block struct {
	Header *BlockHeader
	Calls  []*Call
}

// NewBlock creates a new block from a header and a set of calls.
func NewBlock(header *BlockHeader, calls []*Call) *Block {
	return &Block{
		Header: header,
		Calls:  calls,
	}
}

// Hash calculates and returns the SHA-256 hash of the block header. The
// producer signature is not part of the hash.
func (h *BlockHeader) Hash() ([]byte, error) {
	unsigned := *h
	unsigned.Signature = nil
	b, err := json.Marshal(&unsigned)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(b)
	return hash[:], nil
}

// Sign records the producer address and its signature over the header hash.
func (h *BlockHeader) Sign(key *ecdsa.PrivateKey) error {
	h.Producer = crypto.PubkeyToAddress(key.PublicKey)
	hash, err := h.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return err
	}
	h.Signature = sig
	return nil
}

// VerifySignature checks that the header was signed by its producer.
func (h *BlockHeader) VerifySignature() error {
	if len(h.Signature) != crypto.SignatureLength {
		return errors.New("types: block header unsigned")
	}
	hash, err := h.Hash()
	if err != nil {
		return err
	}
	pub, err := crypto.SigToPub(hash, h.Signature)
	if err != nil {
		return err
	}
	if crypto.PubkeyToAddress(*pub) != h.Producer {
		return errors.New("types: block signer mismatch")
	}
	return nil
}

// ComputeCallsRoot hashes the ordered call hashes.
func ComputeCallsRoot(calls []*Call) ([]byte, error) {
	h := sha256.New()
	for _, call := range calls {
		ch, err := call.Hash()
		if err != nil {
			return nil, err
		}
		h.Write(ch)
	}
	return h.Sum(nil), nil
}
