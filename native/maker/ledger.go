package maker

import (
	"errors"
	"fmt"
	"math/big"
)

// Storage abstracts the subset of state manager functionality required by the
// maker ledger.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var (
	nextMakerIDKey = []byte("maker/next-id")
	makerPrefix    = "maker/app/"
	ownerPrefix    = "maker/owner/"
	creditPrefix   = "maker/credit/"
)

func makerKey(id uint64) []byte { return []byte(fmt.Sprintf("%s%d", makerPrefix, id)) }

func ownerKey(owner [20]byte) []byte { return []byte(fmt.Sprintf("%s%x", ownerPrefix, owner[:])) }

func creditKey(id uint64) []byte { return []byte(fmt.Sprintf("%s%d", creditPrefix, id)) }

// Ledger persists maker applications and credit records.
type Ledger struct {
	store Storage
}

// NewLedger constructs a ledger bound to the provided storage backend.
func NewLedger(store Storage) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) ready() error {
	if l == nil || l.store == nil {
		return errors.New("maker: storage unavailable")
	}
	return nil
}

// NextID reserves the next maker id.
func (l *Ledger) NextID() (uint64, error) {
	if err := l.ready(); err != nil {
		return 0, err
	}
	var next uint64
	if _, err := l.store.KVGet(nextMakerIDKey, &next); err != nil {
		return 0, err
	}
	if next == 0 {
		next = 1
	}
	if err := l.store.KVPut(nextMakerIDKey, next+1); err != nil {
		return 0, err
	}
	return next, nil
}

// Application loads maker id.
func (l *Ledger) Application(id uint64) (*Application, bool, error) {
	if err := l.ready(); err != nil {
		return nil, false, err
	}
	var app Application
	ok, err := l.store.KVGet(makerKey(id), &app)
	if err != nil || !ok {
		return nil, ok, err
	}
	if app.Deposit == nil {
		app.Deposit = big.NewInt(0)
	}
	return &app, true, nil
}

// PutApplication stores app and indexes its owner.
func (l *Ledger) PutApplication(app *Application) error {
	if err := l.ready(); err != nil {
		return err
	}
	if app == nil {
		return errors.New("maker: application required")
	}
	if err := l.store.KVPut(makerKey(app.ID), app); err != nil {
		return err
	}
	return l.store.KVPut(ownerKey(app.Owner), app.ID)
}

// IDByOwner resolves the maker id registered by owner.
func (l *Ledger) IDByOwner(owner [20]byte) (uint64, bool, error) {
	if err := l.ready(); err != nil {
		return 0, false, err
	}
	var id uint64
	ok, err := l.store.KVGet(ownerKey(owner), &id)
	return id, ok, err
}

// Credit loads the credit record of id, returning nil when absent.
func (l *Ledger) Credit(id uint64) (*Credit, bool, error) {
	if err := l.ready(); err != nil {
		return nil, false, err
	}
	var c Credit
	ok, err := l.store.KVGet(creditKey(id), &c)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &c, true, nil
}

// PutCredit stores the credit record of id.
func (l *Ledger) PutCredit(id uint64, c *Credit) error {
	if err := l.ready(); err != nil {
		return err
	}
	return l.store.KVPut(creditKey(id), c)
}
