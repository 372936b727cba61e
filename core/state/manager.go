package state

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"dustchain/storage"
)

// ErrInvalidSnapshot is returned when reverting to a snapshot that no longer
// exists in the journal.
var ErrInvalidSnapshot = errors.New("state: invalid snapshot id")

type dirtyEntry struct {
	value   []byte
	deleted bool
}

type journalEntry struct {
	key     string
	prev    dirtyEntry
	hadPrev bool
}

// Manager provides RLP encoded key-value access to the chain state. Writes are
// buffered in memory until Commit so callers can revert partially applied
// extrinsics through Snapshot and RevertToSnapshot.
type Manager struct {
	mu      sync.RWMutex
	db      storage.Database
	dirty   map[string]dirtyEntry
	journal []journalEntry
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	if db == nil {
		db = storage.NewMemDB()
	}
	return &Manager{db: db, dirty: make(map[string]dirtyEntry)}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (m *Manager) read(hashed []byte) ([]byte, error) {
	if entry, ok := m.dirty[string(hashed)]; ok {
		if entry.deleted {
			return nil, nil
		}
		return entry.value, nil
	}
	data, err := m.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

func (m *Manager) write(hashed []byte, value []byte, deleted bool) {
	key := string(hashed)
	prev, had := m.dirty[key]
	m.journal = append(m.journal, journalEntry{key: key, prev: prev, hadPrev: had})
	m.dirty[key] = dirtyEntry{value: value, deleted: deleted}
}

// KVPut stores the RLP encoding of value under the supplied key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.write(kvKey(key), encoded, false)
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	m.mu.RLock()
	data, err := m.read(kvKey(key))
	m.mu.RUnlock()
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the value stored under key. Missing keys are ignored.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.write(kvKey(key), nil, true)
	return nil
}

func (m *Manager) loadList(hashed []byte) ([][]byte, error) {
	data, err := m.read(hashed)
	if err != nil {
		return nil, err
	}
	var list [][]byte
	if len(data) > 0 {
		if err := rlp.DecodeBytes(data, &list); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (m *Manager) storeList(hashed []byte, list [][]byte) error {
	if len(list) == 0 {
		m.write(hashed, nil, true)
		return nil
	}
	encoded, err := rlp.EncodeToBytes(list)
	if err != nil {
		return err
	}
	m.write(hashed, encoded, false)
	return nil
}

// KVAppend appends the provided value to the RLP-encoded byte slice list stored
// under the supplied key. Duplicate values are ignored to keep the index
// deterministic.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	hashed := kvKey(key)
	list, err := m.loadList(hashed)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return m.storeList(hashed, list)
}

// KVRemove drops value from the list stored under key. The boolean reports
// whether the value was present.
func (m *Manager) KVRemove(key []byte, value []byte) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	hashed := kvKey(key)
	list, err := m.loadList(hashed)
	if err != nil {
		return false, err
	}
	for i, existing := range list {
		if bytes.Equal(existing, value) {
			list = append(list[:i], list[i+1:]...)
			return true, m.storeList(hashed, list)
		}
	}
	return false, nil
}

// KVGetList retrieves an RLP-encoded slice stored under the provided key and
// decodes it into the supplied destination slice pointer. When no value is
// present the destination is initialised with an empty slice to avoid nil
// surprises for callers.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	m.mu.RLock()
	data, err := m.read(kvKey(key))
	m.mu.RUnlock()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		val := reflect.ValueOf(out)
		if val.Kind() != reflect.Ptr || val.IsNil() {
			return fmt.Errorf("kv: destination must be a non-nil pointer")
		}
		elem := val.Elem()
		if elem.Kind() != reflect.Slice {
			return fmt.Errorf("kv: destination must point to a slice")
		}
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
		return nil
	}
	return rlp.DecodeBytes(data, out)
}

// Snapshot returns an identifier for the current journal position.
func (m *Manager) Snapshot() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.journal)
}

// RevertToSnapshot undoes every write recorded after the snapshot was taken.
func (m *Manager) RevertToSnapshot(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 0 || id > len(m.journal) {
		return ErrInvalidSnapshot
	}
	for i := len(m.journal) - 1; i >= id; i-- {
		entry := m.journal[i]
		if entry.hadPrev {
			m.dirty[entry.key] = entry.prev
		} else {
			delete(m.dirty, entry.key)
		}
	}
	m.journal = m.journal[:id]
	return nil
}

// Pending reports how many keys carry uncommitted writes.
func (m *Manager) Pending() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.dirty)
}

// Commit flushes buffered writes to the backing database and clears the
// journal. Outstanding snapshot ids become invalid.
func (m *Manager) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.dirty) == 0 {
		m.journal = m.journal[:0]
		return nil
	}
	batch := storage.NewBatch()
	for key, entry := range m.dirty {
		if entry.deleted {
			batch.Delete([]byte(key))
			continue
		}
		batch.Put([]byte(key), entry.value)
	}
	if err := m.db.Write(batch); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	m.dirty = make(map[string]dirtyEntry)
	m.journal = m.journal[:0]
	return nil
}

// Discard drops all uncommitted writes.
func (m *Manager) Discard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty = make(map[string]dirtyEntry)
	m.journal = m.journal[:0]
}
