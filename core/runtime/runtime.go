package runtime

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"sync/atomic"

	"dustchain/config"
	"dustchain/core/events"
	"dustchain/core/pricing"
	"dustchain/core/state"
	"dustchain/native/affiliate"
	"dustchain/native/arbitration"
	"dustchain/native/bank"
	"dustchain/native/common"
	"dustchain/native/escrow"
	"dustchain/native/evidence"
	"dustchain/native/governance"
	"dustchain/native/maker"
	"dustchain/native/params"
	"dustchain/native/swap"
	"dustchain/observability/metrics"
)

// Options configures a Runtime.
type Options struct {
	Global        config.Global
	Treasury      [20]byte
	Oracles       [][20]byte
	CommitteeSize uint32
	// AllowUnsignedVerification admits off-chain worker verdicts submitted
	// without a signature.
	AllowUnsignedVerification bool
	Logger                    *slog.Logger
}

// BlockContext describes the block currently being executed.
type BlockContext struct {
	Height     uint64
	Timestamp  int64
	ParentHash [32]byte
}

// Runtime owns every engine of the chain and executes calls and block hooks
// against a single state manager.
type Runtime struct {
	mu sync.Mutex

	state   *state.Manager
	logger  *slog.Logger
	metrics *metrics.RuntimeMetrics

	buffer *events.Buffer
	sinks  events.Multi

	block  BlockContext
	height atomic.Uint64

	pauses      *params.Store
	bank        *bank.Ledger
	prices      *pricing.Feed
	escrow      *escrow.Engine
	evidence    *evidence.Engine
	pins        *evidence.PinQueue
	arbitration *arbitration.Engine
	makers      *maker.Engine
	swap        *swap.Engine
	affiliate   *affiliate.Engine
	governance  *governance.Engine

	committee uint32
	handlers  map[string]handler
}

// New builds a runtime over mgr using the supplied options.
func New(mgr *state.Manager, opts Options) (*Runtime, error) {
	if mgr == nil {
		return nil, fmt.Errorf("runtime: state manager required")
	}
	if err := config.ValidateConfig(opts.Global); err != nil {
		return nil, err
	}
	swapParams, err := opts.Global.SwapParams()
	if err != nil {
		return nil, err
	}
	arbParams, err := opts.Global.ArbitrationParams()
	if err != nil {
		return nil, err
	}
	govParams, err := opts.Global.GovernanceParams()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	committee := opts.CommitteeSize
	if committee == 0 {
		committee = 3
	}
	treasury := opts.Treasury
	if treasury == ([20]byte{}) {
		treasury = bank.ModuleAccount("treasury")
	}

	r := &Runtime{
		state:     mgr,
		logger:    logger.With("component", "runtime"),
		metrics:   metrics.Runtime(),
		buffer:    &events.Buffer{},
		committee: committee,
	}
	blockFn := func() uint64 { return r.block.Height }
	nowFn := func() int64 { return r.block.Timestamp }
	oracles := common.NewOracleSet(opts.AllowUnsignedVerification, opts.Oracles...)
	committeeCheck := common.RootOrCommittee{Num: 2, Den: 3}

	r.pauses = params.NewStore(mgr)
	r.bank = bank.NewLedger(mgr)
	r.bank.SetEmitter(r.buffer)

	r.prices = pricing.NewFeed(mgr, common.NewOracleSet(false, opts.Oracles...))
	r.prices.SetGuard(opts.Global.PricingGuard())
	r.prices.SetEmitter(r.buffer)
	r.prices.SetNowFunc(nowFn)
	r.prices.SetBlockFunc(blockFn)

	r.escrow = escrow.NewEngine(mgr, r.bank)
	r.escrow.SetEmitter(r.buffer)
	r.escrow.SetTreasury(treasury)
	r.escrow.SetFailurePolicy(escrow.FailurePolicyTreasury)
	r.escrow.SetBlockFunc(blockFn)

	r.pins = evidence.NewPinQueue(mgr, blockFn)
	r.evidence = evidence.NewEngine(mgr)
	r.evidence.SetEmitter(r.buffer)
	r.evidence.SetPinner(r.pins)
	r.evidence.SetRandomness(Randomness{rt: r})
	r.evidence.SetPauses(r.pauses)
	r.evidence.SetParams(opts.Global.EvidenceParams())
	r.evidence.SetBlockFunc(blockFn)
	r.evidence.SetNowFunc(nowFn)

	r.makers = maker.NewEngine(mgr, r.bank)
	r.makers.SetEmitter(r.buffer)
	r.makers.SetAdminOrigin(committeeCheck)
	r.makers.SetBlockFunc(blockFn)

	r.affiliate = affiliate.NewEngine(mgr, r.bank, r.prices)
	r.affiliate.SetEmitter(r.buffer)
	r.affiliate.SetPauses(r.pauses)
	r.affiliate.SetParams(opts.Global.AffiliateParams())
	r.affiliate.SetTreasury(treasury)
	r.affiliate.SetAdminOrigin(committeeCheck)
	r.affiliate.SetBlockFunc(blockFn)

	r.swap = swap.NewEngine(mgr, r.escrow, r.makers, r.makers, r.prices)
	r.swap.SetEmitter(r.buffer)
	r.swap.SetPauses(r.pauses)
	r.swap.SetParams(swapParams)
	r.swap.SetVerificationOrigin(oracles)
	r.swap.SetCompletionHook(activityHook{affiliate: r.affiliate})
	r.swap.SetBlockFunc(blockFn)
	r.swap.SetNowFunc(nowFn)

	r.arbitration = arbitration.NewEngine(mgr, r.bank)
	r.arbitration.SetEmitter(r.buffer)
	r.arbitration.SetEvidence(r.evidence)
	r.arbitration.SetCIDLocker(r.evidence)
	r.arbitration.SetPriceProvider(r.prices)
	r.arbitration.SetPauses(r.pauses)
	r.arbitration.SetParams(arbParams)
	r.arbitration.SetTreasury(treasury)
	r.arbitration.SetDecisionOrigin(committeeCheck)
	r.arbitration.SetBlockFunc(blockFn)
	if err := r.arbitration.Register(swap.DomainTag, r.swap.DisputeHandler()); err != nil {
		return nil, err
	}

	r.governance = governance.NewEngine(mgr, r.bank, r.prices, r.affiliate)
	r.governance.SetEmitter(r.buffer)
	r.governance.SetPauses(r.pauses)
	r.governance.SetParams(govParams)
	r.governance.SetTreasury(treasury)
	r.governance.SetAdminOrigin(committeeCheck)
	r.governance.SetBlockFunc(blockFn)

	r.handlers = buildHandlers()
	r.sinks = events.Multi{metricsObserver{}}
	return r, nil
}

// Genesis seeds balances, the initial pause toggles and the opening price at
// block ctx. It commits the resulting state.
func (r *Runtime) Genesis(ctx BlockContext, balances map[[20]byte]*big.Int, pauses config.Pauses, price *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.block = ctx
	r.height.Store(ctx.Height)
	for addr, amount := range balances {
		if amount == nil || amount.Sign() <= 0 {
			continue
		}
		if err := r.bank.Mint(addr, amount); err != nil {
			return fmt.Errorf("runtime: genesis mint: %w", err)
		}
	}
	if err := r.pauses.SetPauses(pauses); err != nil {
		return err
	}
	if price != nil && price.Sign() > 0 {
		if err := r.prices.SetRate(common.Root(), price); err != nil {
			return fmt.Errorf("runtime: genesis price: %w", err)
		}
	}
	r.flush()
	return r.state.Commit()
}

// Subscribe adds an emitter that receives the events of successful calls and
// hooks.
func (r *Runtime) Subscribe(sink events.Emitter) {
	if sink == nil {
		return
	}
	r.mu.Lock()
	r.sinks = append(r.sinks, sink)
	r.mu.Unlock()
}

// Block returns the context of the block being executed.
func (r *Runtime) Block() BlockContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.block
}

// Height returns the height of the block being executed without taking the
// runtime lock, so event sinks may call it while an extrinsic runs.
func (r *Runtime) Height() uint64 { return r.height.Load() }

// Commit flushes the state of the finished block to the database.
func (r *Runtime) Commit() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Commit()
}

// View runs fn while no call or hook is executing. Read-only queries against
// the engine accessors must go through it.
func (r *Runtime) View(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn()
}

func (r *Runtime) flush() {
	for _, evt := range r.buffer.Drain() {
		r.sinks.Emit(evt)
	}
}

func (r *Runtime) Bank() *bank.Ledger { return r.bank }
func (r *Runtime) Prices() *pricing.Feed { return r.prices }
func (r *Runtime) Escrow() *escrow.Engine { return r.escrow }
func (r *Runtime) Evidence() *evidence.Engine { return r.evidence }
func (r *Runtime) Arbitration() *arbitration.Engine { return r.arbitration }
func (r *Runtime) Makers() *maker.Engine { return r.makers }
func (r *Runtime) Swap() *swap.Engine { return r.swap }
func (r *Runtime) Affiliate() *affiliate.Engine { return r.affiliate }
func (r *Runtime) Governance() *governance.Engine { return r.governance }
func (r *Runtime) Pauses() *params.Store { return r.pauses }
func (r *Runtime) State() *state.Manager { return r.state }

// activityHook marks the user of a verified swap active for the current week.
type activityHook struct {
	affiliate *affiliate.Engine
}

func (h activityHook) OnSwapCompleted(s *swap.Swap) error {
	if h.affiliate == nil || s == nil {
		return nil
	}
	return h.affiliate.MarkActive(s.User, 1)
}
