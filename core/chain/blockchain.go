package chain

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"dustchain/core/types"
	"dustchain/storage"
)

var (
	tipKey          = []byte("chain/tip")
	blockPrefix     = []byte("chain/block/")
	heightPrefix    = []byte("chain/height/")
	ErrBlockMissing = errors.New("chain: block not found")
	ErrPrevMismatch = errors.New("chain: block prevhash mismatch")
)

// Blockchain stores produced blocks by hash and height and tracks the tip.
type Blockchain struct {
	db     storage.Database
	mu     sync.RWMutex
	tip    []byte
	height uint64
	has    bool
}

// NewBlockchain opens the block store in db, restoring the tip when one was
// persisted.
func NewBlockchain(db storage.Database) (*Blockchain, error) {
	if db == nil {
		return nil, fmt.Errorf("chain: database required")
	}
	bc := &Blockchain{db: db}
	tip, err := db.Get(tipKey)
	if errors.Is(err, storage.ErrNotFound) {
		return bc, nil
	}
	if err != nil {
		return nil, err
	}
	block, err := bc.GetBlockByHash(tip)
	if err != nil {
		return nil, fmt.Errorf("chain: load tip: %w", err)
	}
	bc.tip = tip
	bc.height = block.Header.Height
	bc.has = true
	return bc, nil
}

func heightKey(height uint64) []byte {
	out := make([]byte, len(heightPrefix)+8)
	copy(out, heightPrefix)
	binary.BigEndian.PutUint64(out[len(heightPrefix):], height)
	return out
}

func blockKey(hash []byte) []byte {
	return append(append([]byte(nil), blockPrefix...), hash...)
}

// Empty reports whether no block, not even genesis, has been stored.
func (bc *Blockchain) Empty() bool {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return !bc.has
}

// AddBlock links b onto the tip and persists it atomically.
func (bc *Blockchain) AddBlock(b *types.Block) ([]byte, error) {
	if b == nil || b.Header == nil {
		return nil, fmt.Errorf("chain: nil block")
	}
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if bc.has {
		if string(b.Header.PrevHash) != string(bc.tip) {
			return nil, ErrPrevMismatch
		}
		if b.Header.Height != bc.height+1 {
			return nil, fmt.Errorf("chain: expected height %d, got %d", bc.height+1, b.Header.Height)
		}
	}
	blockBytes, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	hash, err := b.Header.Hash()
	if err != nil {
		return nil, err
	}
	batch := storage.NewBatch()
	batch.Put(blockKey(hash), blockBytes)
	batch.Put(heightKey(b.Header.Height), hash)
	batch.Put(tipKey, hash)
	if err := bc.db.Write(batch); err != nil {
		return nil, err
	}
	bc.tip = hash
	bc.height = b.Header.Height
	bc.has = true
	return hash, nil
}

// GetBlockByHash retrieves a block from the database by its hash.
func (bc *Blockchain) GetBlockByHash(hash []byte) (*types.Block, error) {
	blockBytes, err := bc.db.Get(blockKey(hash))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrBlockMissing
	}
	if err != nil {
		return nil, err
	}
	var block types.Block
	if err := json.Unmarshal(blockBytes, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// GetBlockByHeight retrieves a block by its height.
func (bc *Blockchain) GetBlockByHeight(height uint64) (*types.Block, error) {
	hash, err := bc.db.Get(heightKey(height))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrBlockMissing
	}
	if err != nil {
		return nil, err
	}
	return bc.GetBlockByHash(hash)
}

// Tip returns the hash and height of the latest block.
func (bc *Blockchain) Tip() ([]byte, uint64) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return append([]byte(nil), bc.tip...), bc.height
}

func (bc *Blockchain) GetHeight() uint64 {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.height
}
