package bank

import (
	"math/big"

	"dustchain/core/events"
	"dustchain/core/types"
)

// Storage is the subset of the state manager used by the ledger.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

type storedHold struct {
	Amount *big.Int
}

// Ledger implements the Currency and fungible hold capabilities over state.
type Ledger struct {
	store       Storage
	emitter     events.Emitter
	existential *big.Int
}

// NewLedger constructs a ledger backed by store.
func NewLedger(store Storage) *Ledger {
	return &Ledger{store: store, emitter: events.NoopEmitter{}, existential: big.NewInt(0)}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// SetExistentialDeposit configures the minimum balance a fresh recipient must
// reach. Zero disables the check.
func (l *Ledger) SetExistentialDeposit(amount *big.Int) {
	if amount == nil || amount.Sign() < 0 {
		l.existential = big.NewInt(0)
		return
	}
	l.existential = new(big.Int).Set(amount)
}

func (l *Ledger) emit(evt *types.Event) {
	if l == nil || l.emitter == nil || evt == nil {
		return
	}
	l.emitter.Emit(bankEvent{evt: evt})
}

// Account loads the account record, returning an empty account when absent.
func (l *Ledger) Account(addr [20]byte) (*types.Account, error) {
	if l == nil || l.store == nil {
		return nil, ErrNilStore
	}
	var acc types.Account
	ok, err := l.store.KVGet(accountKey(addr), &acc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.EnsureAccount(nil), nil
	}
	return types.EnsureAccount(&acc), nil
}

func (l *Ledger) putAccount(addr [20]byte, acc *types.Account) error {
	acc = types.EnsureAccount(acc)
	if acc.Free.Sign() == 0 && acc.Nonce == 0 {
		return l.store.KVDelete(accountKey(addr))
	}
	return l.store.KVPut(accountKey(addr), acc)
}

// FreeBalance returns the spendable balance of addr.
func (l *Ledger) FreeBalance(addr [20]byte) (*big.Int, error) {
	acc, err := l.Account(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.Free), nil
}

// Nonce returns the next expected call nonce of addr.
func (l *Ledger) Nonce(addr [20]byte) (uint64, error) {
	acc, err := l.Account(addr)
	if err != nil {
		return 0, err
	}
	return acc.Nonce, nil
}

// IncrementNonce bumps the call nonce of addr.
func (l *Ledger) IncrementNonce(addr [20]byte) error {
	acc, err := l.Account(addr)
	if err != nil {
		return err
	}
	acc.Nonce++
	return l.putAccount(addr, acc)
}

// TotalIssuance returns the total DUST supply.
func (l *Ledger) TotalIssuance() (*big.Int, error) {
	if l == nil || l.store == nil {
		return nil, ErrNilStore
	}
	var total big.Int
	ok, err := l.store.KVGet(issuanceKey, &total)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return &total, nil
}

func (l *Ledger) adjustIssuance(delta *big.Int) error {
	total, err := l.TotalIssuance()
	if err != nil {
		return err
	}
	total.Add(total, delta)
	if total.Sign() < 0 {
		total.SetInt64(0)
	}
	return l.store.KVPut(issuanceKey, total)
}

func validAmount(amount *big.Int) bool {
	return amount != nil && amount.Sign() >= 0
}

// Transfer moves amount from the free balance of from to to.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	fromAcc, err := l.Account(from)
	if err != nil {
		return err
	}
	if fromAcc.Free.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toAcc, err := l.Account(to)
	if err != nil {
		return err
	}
	if toAcc.Free.Sign() == 0 && l.existential.Sign() > 0 && amount.Cmp(l.existential) < 0 {
		return ErrBelowExistential
	}
	fromAcc.Free = new(big.Int).Sub(fromAcc.Free, amount)
	toAcc.Free = new(big.Int).Add(toAcc.Free, amount)
	if err := l.putAccount(from, fromAcc); err != nil {
		return err
	}
	if err := l.putAccount(to, toAcc); err != nil {
		return err
	}
	l.emit(newTransferEvent(EventTypeTransfer, from, to, amount))
	return nil
}

// Mint credits new supply to to.
func (l *Ledger) Mint(to [20]byte, amount *big.Int) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	acc, err := l.Account(to)
	if err != nil {
		return err
	}
	acc.Free = new(big.Int).Add(acc.Free, amount)
	if err := l.putAccount(to, acc); err != nil {
		return err
	}
	if err := l.adjustIssuance(amount); err != nil {
		return err
	}
	l.emit(newTransferEvent(EventTypeMinted, [20]byte{}, to, amount))
	return nil
}

// Burn destroys amount from the free balance of from.
func (l *Ledger) Burn(from [20]byte, amount *big.Int) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	acc, err := l.Account(from)
	if err != nil {
		return err
	}
	if acc.Free.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	acc.Free = new(big.Int).Sub(acc.Free, amount)
	if err := l.putAccount(from, acc); err != nil {
		return err
	}
	if err := l.adjustIssuance(new(big.Int).Neg(amount)); err != nil {
		return err
	}
	l.emit(newTransferEvent(EventTypeBurned, from, [20]byte{}, amount))
	return nil
}

// HeldBalance returns the amount held on who under reason.
func (l *Ledger) HeldBalance(reason HoldReason, who [20]byte) (*big.Int, error) {
	if l == nil || l.store == nil {
		return nil, ErrNilStore
	}
	var rec storedHold
	ok, err := l.store.KVGet(holdKey(reason, who), &rec)
	if err != nil {
		return nil, err
	}
	if !ok || rec.Amount == nil {
		return big.NewInt(0), nil
	}
	return rec.Amount, nil
}

// TotalHeld returns the sum of all holds placed on who.
func (l *Ledger) TotalHeld(who [20]byte) (*big.Int, error) {
	var rec storedHold
	ok, err := l.store.KVGet(holdTotalKey(who), &rec)
	if err != nil {
		return nil, err
	}
	if !ok || rec.Amount == nil {
		return big.NewInt(0), nil
	}
	return rec.Amount, nil
}

func (l *Ledger) putHeld(reason HoldReason, who [20]byte, amount, delta *big.Int) error {
	if amount.Sign() == 0 {
		if err := l.store.KVDelete(holdKey(reason, who)); err != nil {
			return err
		}
	} else if err := l.store.KVPut(holdKey(reason, who), storedHold{Amount: amount}); err != nil {
		return err
	}
	total, err := l.TotalHeld(who)
	if err != nil {
		return err
	}
	total = new(big.Int).Add(total, delta)
	if total.Sign() <= 0 {
		return l.store.KVDelete(holdTotalKey(who))
	}
	return l.store.KVPut(holdTotalKey(who), storedHold{Amount: total})
}

// Hold moves amount from the free balance of who into the hold tagged reason.
func (l *Ledger) Hold(reason HoldReason, who [20]byte, amount *big.Int) error {
	if !reason.Valid() {
		return ErrUnknownHoldReason
	}
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	acc, err := l.Account(who)
	if err != nil {
		return err
	}
	if acc.Free.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	held, err := l.HeldBalance(reason, who)
	if err != nil {
		return err
	}
	acc.Free = new(big.Int).Sub(acc.Free, amount)
	if err := l.putAccount(who, acc); err != nil {
		return err
	}
	if err := l.putHeld(reason, who, new(big.Int).Add(held, amount), amount); err != nil {
		return err
	}
	l.emit(newHoldEvent(EventTypeHeld, reason, who, amount))
	return nil
}

// Release returns amount from the hold tagged reason to the free balance of
// who.
func (l *Ledger) Release(reason HoldReason, who [20]byte, amount *big.Int) error {
	if !reason.Valid() {
		return ErrUnknownHoldReason
	}
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	held, err := l.HeldBalance(reason, who)
	if err != nil {
		return err
	}
	if held.Cmp(amount) < 0 {
		return ErrInsufficientHeld
	}
	acc, err := l.Account(who)
	if err != nil {
		return err
	}
	acc.Free = new(big.Int).Add(acc.Free, amount)
	if err := l.putHeld(reason, who, new(big.Int).Sub(held, amount), new(big.Int).Neg(amount)); err != nil {
		return err
	}
	if err := l.putAccount(who, acc); err != nil {
		return err
	}
	l.emit(newHoldEvent(EventTypeReleased, reason, who, amount))
	return nil
}

// TransferOnHold moves amount out of the hold of from into the free balance
// of to. Used for slashing collateral.
func (l *Ledger) TransferOnHold(reason HoldReason, from, to [20]byte, amount *big.Int) error {
	if !reason.Valid() {
		return ErrUnknownHoldReason
	}
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	held, err := l.HeldBalance(reason, from)
	if err != nil {
		return err
	}
	if held.Cmp(amount) < 0 {
		return ErrInsufficientHeld
	}
	if err := l.putHeld(reason, from, new(big.Int).Sub(held, amount), new(big.Int).Neg(amount)); err != nil {
		return err
	}
	toAcc, err := l.Account(to)
	if err != nil {
		return err
	}
	toAcc.Free = new(big.Int).Add(toAcc.Free, amount)
	if err := l.putAccount(to, toAcc); err != nil {
		return err
	}
	evt := newHoldEvent(EventTypeHoldMoved, reason, from, amount)
	evt.WithHex("to", to[:])
	l.emit(evt)
	return nil
}
