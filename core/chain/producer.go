package chain

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"dustchain/config"
	"dustchain/core/runtime"
	"dustchain/core/types"
	"dustchain/crypto"
	"dustchain/observability/metrics"
	"dustchain/observability/otel"
)

// ProducerOptions tunes block production.
type ProducerOptions struct {
	BlockTime  time.Duration
	MaxCalls   int
	IdleWeight int
	Logger     *slog.Logger
	Now        func() time.Time
}

// Producer is the single local block producer. Every tick it opens a block,
// applies the pooled calls, runs the block hooks and commits.
type Producer struct {
	rt     *runtime.Runtime
	pool   *Pool
	chain  *Blockchain
	key    *crypto.PrivateKey
	opts   ProducerOptions
	logger *slog.Logger
}

// NewProducer wires a producer signing blocks with key.
func NewProducer(rt *runtime.Runtime, pool *Pool, chain *Blockchain, key *crypto.PrivateKey, opts ProducerOptions) (*Producer, error) {
	if rt == nil || pool == nil || chain == nil {
		return nil, fmt.Errorf("chain: runtime, pool and blockchain required")
	}
	if key == nil {
		return nil, fmt.Errorf("chain: producer key required")
	}
	if opts.BlockTime <= 0 {
		opts.BlockTime = 6 * time.Second
	}
	if opts.MaxCalls <= 0 {
		opts.MaxCalls = 512
	}
	if opts.IdleWeight <= 0 {
		opts.IdleWeight = 8
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{rt: rt, pool: pool, chain: chain, key: key, opts: opts, logger: logger.With("component", "producer")}, nil
}

// Genesis is the initial state applied before the first block.
type Genesis struct {
	Timestamp int64
	Balances  map[[20]byte]*big.Int
	Pauses    config.Pauses
	Price     *big.Int
}

// GenesisFromConfig reads the genesis balances and opening price of cfg.
func GenesisFromConfig(cfg *config.Config) (Genesis, error) {
	g := Genesis{Balances: make(map[[20]byte]*big.Int), Pauses: cfg.Global.Pauses}
	for _, entry := range cfg.GenesisBalances {
		addr, err := crypto.ParseAccount(strings.TrimSpace(entry.Address))
		if err != nil {
			return Genesis{}, fmt.Errorf("genesis balance %q: %w", entry.Address, err)
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(entry.Amount), 10)
		if !ok || amount.Sign() < 0 {
			return Genesis{}, fmt.Errorf("genesis balance %q: invalid amount %q", entry.Address, entry.Amount)
		}
		if prev, dup := g.Balances[addr]; dup {
			amount = new(big.Int).Add(prev, amount)
		}
		g.Balances[addr] = amount
	}
	if raw := strings.TrimSpace(cfg.InitialDustUSDPrice); raw != "" {
		price, ok := new(big.Int).SetString(raw, 10)
		if !ok || price.Sign() <= 0 {
			return Genesis{}, fmt.Errorf("invalid InitialDustUSDPrice %q", raw)
		}
		g.Price = price
	}
	return g, nil
}

// Bootstrap applies g and stores the genesis block when the chain is empty.
// It reports whether genesis ran.
func (p *Producer) Bootstrap(g Genesis) (bool, error) {
	if !p.chain.Empty() {
		return false, nil
	}
	ts := g.Timestamp
	if ts == 0 {
		ts = p.opts.Now().Unix()
	}
	if err := p.rt.Genesis(runtime.BlockContext{Height: 0, Timestamp: ts}, g.Balances, g.Pauses, g.Price); err != nil {
		return false, err
	}
	if _, err := p.seal(0, ts, nil, nil); err != nil {
		return false, err
	}
	p.logger.Info("genesis applied", "accounts", len(g.Balances), "timestamp", ts)
	return true, nil
}

// Run produces a block every BlockTime until ctx is cancelled.
func (p *Producer) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.opts.BlockTime)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := p.ProduceBlock(ctx); err != nil {
				p.logger.Error("block production failed", "error", err)
			}
		}
	}
}

// ProduceBlock executes and seals the next block.
func (p *Producer) ProduceBlock(ctx context.Context) (*types.Block, error) {
	_, span := otel.Tracer("chain").Start(ctx, "chain.produce_block")
	defer span.End()
	start := time.Now()

	parent, tipHeight := p.chain.Tip()
	height := tipHeight + 1
	ts := p.opts.Now().Unix()
	var parentHash [32]byte
	copy(parentHash[:], parent)

	failures := p.rt.OnInitialize(runtime.BlockContext{Height: height, Timestamp: ts, ParentHash: parentHash}).Failures
	included := make([]*types.Call, 0)
	for _, call := range p.pool.Drain(p.opts.MaxCalls) {
		if p.apply(call) {
			included = append(included, call)
		}
	}
	failures += p.rt.OnFinalize(height).Failures
	failures += p.rt.OnIdle(height, p.opts.IdleWeight).Failures
	if err := p.rt.Commit(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("chain: commit height %d: %w", height, err)
	}
	block, err := p.seal(height, ts, parent, included)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.Runtime().ObserveBlock(height, len(included))
	metrics.Runtime().SetPoolSize(p.pool.Len())
	span.SetAttributes(
		attribute.Int64("block.height", int64(height)),
		attribute.Int("block.calls", len(included)),
	)
	hash, _ := block.Header.Hash()
	p.logger.Info("block produced",
		"height", height,
		"hash", hex.EncodeToString(hash),
		"calls", len(included),
		"hook_failures", failures,
		"duration", time.Since(start))
	return block, nil
}

// apply runs one pooled call and reports whether it belongs in the block.
// Calls that executed, successfully or not, are included; calls rejected
// before execution are dropped.
func (p *Producer) apply(call *types.Call) bool {
	if !call.Signed() {
		if _, err := p.rt.ValidateUnsigned(call); err != nil {
			p.logger.Debug("unsigned call dropped", "call", call.Name, "error", err)
			return false
		}
	}
	err := p.rt.Apply(call)
	if err == nil {
		return true
	}
	var dispatchErr *runtime.DispatchError
	if errors.As(err, &dispatchErr) {
		p.logger.Debug("call failed", "call", call.Name, "error_name", dispatchErr.Name, "error", dispatchErr.Err)
		return true
	}
	p.logger.Debug("call dropped", "call", call.Name, "error", err)
	return false
}

func (p *Producer) seal(height uint64, ts int64, parent []byte, calls []*types.Call) (*types.Block, error) {
	root, err := types.ComputeCallsRoot(calls)
	if err != nil {
		return nil, err
	}
	header := &types.BlockHeader{Height: height, Timestamp: ts, PrevHash: parent, CallsRoot: root}
	if err := header.Sign(p.key.PrivateKey); err != nil {
		return nil, err
	}
	block := types.NewBlock(header, calls)
	if _, err := p.chain.AddBlock(block); err != nil {
		return nil, err
	}
	return block, nil
}

// Pool returns the call pool feeding the producer.
func (p *Producer) Pool() *Pool { return p.pool }

// Chain returns the block store.
func (p *Producer) Chain() *Blockchain { return p.chain }
