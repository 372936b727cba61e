package affiliate

import (
	"math/big"

	"dustchain/core/events"
	"dustchain/core/types"
	"dustchain/native/bank"
	"dustchain/native/common"
)

// Storage is the persistence subset used by the affiliate engine.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVRemove(key []byte, value []byte) (bool, error)
	KVGetList(key []byte, out interface{}) error
}

// Currency moves DUST for distributions and settlements.
type Currency interface {
	Transfer(from, to [20]byte, amount *big.Int) error
	Burn(from [20]byte, amount *big.Int) error
}

// Prices quotes DUST in USD for membership purchases.
type Prices interface {
	DustToUSDRate() (*big.Int, bool)
}

// MembershipProvider answers whether an account holds a membership.
type MembershipProvider interface {
	IsMember(who [20]byte) (bool, error)
}

// Engine maintains the referral graph and distributes rewards along it.
type Engine struct {
	store      Storage
	currency   Currency
	prices     Prices
	membership MembershipProvider
	admin      common.OriginCheck
	pauses     common.PauseView
	residual   ResidualPolicy
	emitter    events.Emitter
	params     Params
	pot        [20]byte
	treasury   [20]byte
	blockFn    func() uint64
}

// NewEngine constructs an affiliate engine. Weekly entitlements are parked on
// the "affiliate" module account until settled.
func NewEngine(store Storage, currency Currency, prices Prices) *Engine {
	return &Engine{
		store:    store,
		currency: currency,
		prices:   prices,
		admin:    common.RootOnly{},
		emitter:  events.NoopEmitter{},
		params:   DefaultParams(),
		pot:      bank.ModuleAccount("affiliate"),
		treasury: bank.ModuleAccount("treasury"),
		blockFn:  func() uint64 { return 0 },
	}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }
func (e *Engine) SetParams(p Params) { e.params = p }
func (e *Engine) Params() Params { return e.params }
func (e *Engine) SetTreasury(addr [20]byte) { e.treasury = addr }
func (e *Engine) PotAddress() [20]byte { return e.pot }

// SetMembershipProvider overrides the membership source used when binding
// sponsors. Nil falls back to purchased memberships.
func (e *Engine) SetMembershipProvider(p MembershipProvider) { e.membership = p }

// SetResidualPolicy configures where undistributed remainders go. Nil sends
// them to the treasury.
func (e *Engine) SetResidualPolicy(p ResidualPolicy) { e.residual = p }

// SetAdminOrigin configures who may change the settlement configuration.
func (e *Engine) SetAdminOrigin(check common.OriginCheck) {
	if check != nil {
		e.admin = check
	}
}

// SetBlockFunc overrides the block height source.
func (e *Engine) SetBlockFunc(fn func() uint64) {
	if fn == nil {
		e.blockFn = func() uint64 { return 0 }
		return
	}
	e.blockFn = fn
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(affiliateEvent{evt: evt})
}

func (e *Engine) guard() error {
	if e == nil || e.store == nil {
		return errNilState
	}
	return common.Guard(e.pauses, common.ModuleAffiliate)
}

func (e *Engine) residualPolicy() ResidualPolicy {
	if e.residual != nil {
		return e.residual
	}
	return TreasuryResidual{Treasury: e.treasury}
}

// Config returns the live configuration, falling back to the defaults.
func (e *Engine) Config() (*Config, error) {
	if e == nil || e.store == nil {
		return nil, errNilState
	}
	var cfg Config
	ok, err := e.store.KVGet(configKey, &cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return e.params.Defaults.clone(), nil
	}
	return cfg.clone(), nil
}

func (e *Engine) putConfig(cfg *Config) error {
	return e.store.KVPut(configKey, cfg)
}

// CurrentCycle returns the settlement cycle of the current block.
func (e *Engine) CurrentCycle() (uint32, error) {
	cfg, err := e.Config()
	if err != nil {
		return 0, err
	}
	return cycleAt(e.blockFn(), cfg.BlocksPerWeek), nil
}

func cycleAt(height, blocksPerWeek uint64) uint32 {
	if blocksPerWeek == 0 {
		return 0
	}
	return uint32(height / blocksPerWeek)
}

func (e *Engine) updateConfig(origin common.Origin, fn func(cfg *Config) error) error {
	if err := e.guard(); err != nil {
		return err
	}
	if err := e.admin.EnsureOrigin(origin); err != nil {
		return ErrNotAuthorized
	}
	cfg, err := e.Config()
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	return e.putConfig(cfg)
}

// SetSettlementMode switches between weekly, instant and hybrid payouts.
func (e *Engine) SetSettlementMode(origin common.Origin, mode SettlementMode) error {
	if err := mode.Validate(); err != nil {
		return err
	}
	err := e.updateConfig(origin, func(cfg *Config) error {
		cfg.Mode = mode
		return nil
	})
	if err != nil {
		return err
	}
	e.emit(types.NewEvent(EventTypeModeChanged).
		With("mode", ModeKind(mode.Kind).String()).
		WithUint("instantLevels", uint64(mode.InstantLevels)).
		WithUint("weeklyLevels", uint64(mode.WeeklyLevels)))
	return nil
}

// SetInstantPercents replaces the instant split. Governance executes passed
// proposals through this call with the root origin.
func (e *Engine) SetInstantPercents(origin common.Origin, p Percents) error {
	if err := ValidatePercents(p); err != nil {
		return err
	}
	err := e.updateConfig(origin, func(cfg *Config) error {
		cfg.InstantPercents = p
		return nil
	})
	if err != nil {
		return err
	}
	e.emit(newPercentsEvent("instant", p))
	return nil
}

func (e *Engine) SetWeeklyPercents(origin common.Origin, p Percents) error {
	if err := ValidatePercents(p); err != nil {
		return err
	}
	err := e.updateConfig(origin, func(cfg *Config) error {
		cfg.WeeklyPercents = p
		return nil
	})
	if err != nil {
		return err
	}
	e.emit(newPercentsEvent("weekly", p))
	return nil
}

// SetBlocksPerWeek changes the cycle length. Open cycles keep their number
// space, so changes are expected only between settlement runs.
func (e *Engine) SetBlocksPerWeek(origin common.Origin, blocks uint64) error {
	if blocks == 0 {
		return ErrInvalidBlocksPerWeek
	}
	err := e.updateConfig(origin, func(cfg *Config) error {
		cfg.BlocksPerWeek = blocks
		return nil
	})
	if err != nil {
		return err
	}
	e.emit(types.NewEvent(EventTypeBlocksPerWeekUpdated).WithUint("blocksPerWeek", blocks))
	return nil
}

// SetMembershipPrices replaces the USDT price of each membership tier.
func (e *Engine) SetMembershipPrices(origin common.Origin, prices []*big.Int) error {
	if err := ValidateMembershipPrices(prices); err != nil {
		return err
	}
	err := e.updateConfig(origin, func(cfg *Config) error {
		cfg.MembershipPrices = make([]*big.Int, len(prices))
		for i, p := range prices {
			cfg.MembershipPrices[i] = new(big.Int).Set(p)
		}
		return nil
	})
	if err != nil {
		return err
	}
	evt := types.NewEvent(EventTypePricesUpdated)
	for i, p := range prices {
		evt = evt.WithAmount("tier"+string(rune('0'+i)), p)
	}
	e.emit(evt)
	return nil
}

// InstantPercents returns the live instant split.
func (e *Engine) InstantPercents() (Percents, error) {
	cfg, err := e.Config()
	if err != nil {
		return Percents{}, err
	}
	return cfg.InstantPercents, nil
}

// MembershipPrices returns the live tier prices in USDT base units.
func (e *Engine) MembershipPrices() ([]*big.Int, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	return cfg.MembershipPrices, nil
}
