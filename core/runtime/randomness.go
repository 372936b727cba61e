package runtime

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Randomness derives per-block entropy as keccak(parent hash ‖ height ‖ salt).
// Values are predictable to the block producer and must only be used for
// identifiers and salts.
type Randomness struct {
	rt *Runtime
}

// Random implements evidence.Randomness.
func (r Randomness) Random(salt []byte) [32]byte {
	var (
		parent [32]byte
		height uint64
	)
	if r.rt != nil {
		parent = r.rt.block.ParentHash
		height = r.rt.block.Height
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(parent[:], buf[:], salt))
	return out
}
