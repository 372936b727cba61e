package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"dustchain/config"
	"dustchain/core/runtime"
	"dustchain/core/state"
	"dustchain/core/types"
	"dustchain/crypto"
	"dustchain/storage"
)

type tagValidator struct {
	err error
}

func (v tagValidator) ValidateUnsigned(call *types.Call) (string, error) {
	if v.err != nil {
		return "", v.err
	}
	return "verify/" + string(call.Args), nil
}

func mustKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func signedCall(t *testing.T, key *crypto.PrivateKey, nonce uint64, name, args string) *types.Call {
	t.Helper()
	call := &types.Call{Name: name, Nonce: nonce, Args: []byte(args)}
	if err := call.Sign(key.PrivateKey); err != nil {
		t.Fatalf("sign: %v", err)
	}
	return call
}

func TestBlockchainRestoresTip(t *testing.T) {
	db := storage.NewMemDB()
	bc, err := NewBlockchain(db)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bc.Empty() {
		t.Fatalf("expected empty chain")
	}
	genesis := types.NewBlock(&types.BlockHeader{Height: 0, Timestamp: 1}, nil)
	hash, err := bc.AddBlock(genesis)
	if err != nil {
		t.Fatalf("add genesis: %v", err)
	}
	if _, err := bc.AddBlock(types.NewBlock(&types.BlockHeader{Height: 1, PrevHash: []byte("bogus")}, nil)); !errors.Is(err, ErrPrevMismatch) {
		t.Fatalf("expected prev mismatch, got %v", err)
	}
	if _, err := bc.AddBlock(types.NewBlock(&types.BlockHeader{Height: 1, Timestamp: 7, PrevHash: hash}, nil)); err != nil {
		t.Fatalf("add block 1: %v", err)
	}

	reopened, err := NewBlockchain(db)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Empty() || reopened.GetHeight() != 1 {
		t.Fatalf("expected restored height 1, got %d", reopened.GetHeight())
	}
	block, err := reopened.GetBlockByHeight(1)
	if err != nil {
		t.Fatalf("get block: %v", err)
	}
	if block.Header.Timestamp != 7 {
		t.Fatalf("unexpected block %+v", block.Header)
	}
	if _, err := reopened.GetBlockByHeight(9); !errors.Is(err, ErrBlockMissing) {
		t.Fatalf("expected missing block, got %v", err)
	}
}

func TestPoolDeduplicatesByKey(t *testing.T) {
	pool := NewPool(tagValidator{}, 3)
	key := mustKey(t)

	tag, err := pool.Add(&types.Call{Name: "swap.ocw_submit_verification", Args: []byte("7")})
	if err != nil || tag != "verify/7" {
		t.Fatalf("unexpected add result %q %v", tag, err)
	}
	if _, err := pool.Add(&types.Call{Name: "swap.ocw_submit_verification", Args: []byte("7")}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate tag, got %v", err)
	}
	call := signedCall(t, key, 0, "maker.retire", "{}")
	if _, err := pool.Add(call); err != nil {
		t.Fatalf("add signed: %v", err)
	}
	if _, err := pool.Add(call); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate hash, got %v", err)
	}
	if _, err := pool.Add(signedCall(t, key, 1, "maker.retire", "{}")); err != nil {
		t.Fatalf("add second signed: %v", err)
	}
	if _, err := pool.Add(&types.Call{Name: "swap.ocw_submit_verification", Args: []byte("8")}); !errors.Is(err, ErrPoolFull) {
		t.Fatalf("expected full pool, got %v", err)
	}

	drained := pool.Drain(1)
	if len(drained) != 1 || drained[0].Name != "swap.ocw_submit_verification" || pool.Len() != 2 {
		t.Fatalf("unexpected drain %d, remaining %d", len(drained), pool.Len())
	}
	if _, err := pool.Add(&types.Call{Name: "swap.ocw_submit_verification", Args: []byte("7")}); err != nil {
		t.Fatalf("expected drained tag to be reusable: %v", err)
	}
}

func TestPoolRejectsInvalidUnsigned(t *testing.T) {
	pool := NewPool(tagValidator{err: errors.New("stale")}, 0)
	if _, err := pool.Add(&types.Call{Name: "swap.ocw_submit_verification"}); err == nil {
		t.Fatalf("expected validator rejection")
	}
	if pool.Len() != 0 {
		t.Fatalf("expected empty pool")
	}
}

func TestProducerProducesSignedBlocks(t *testing.T) {
	db := storage.NewMemDB()
	rt, err := runtime.New(state.NewManager(db), runtime.Options{Global: config.DefaultGlobal()})
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	bc, err := NewBlockchain(db)
	if err != nil {
		t.Fatalf("blockchain: %v", err)
	}
	now := time.Unix(1_700_000_000, 0)
	producerKey := mustKey(t)
	pool := NewPool(rt, 16)
	p, err := NewProducer(rt, pool, bc, producerKey, ProducerOptions{Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("producer: %v", err)
	}

	user := mustKey(t)
	userAddr := user.PubKey().Address().Raw()
	ran, err := p.Bootstrap(Genesis{
		Balances: map[[20]byte]*big.Int{userAddr: big.NewInt(5_000_000_000_000)},
		Price:    big.NewInt(1_000_000),
	})
	if err != nil || !ran {
		t.Fatalf("bootstrap: %v %v", ran, err)
	}
	if ran, err := p.Bootstrap(Genesis{}); err != nil || ran {
		t.Fatalf("expected second bootstrap to be skipped: %v %v", ran, err)
	}

	register := signedCall(t, user, 0, "maker.register", `{"tronAddress":"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t","deposit":"0"}`)
	if _, err := pool.Add(register); err != nil {
		t.Fatalf("pool add: %v", err)
	}
	stale := signedCall(t, user, 9, "maker.retire", "{}")
	if _, err := pool.Add(stale); err != nil {
		t.Fatalf("pool add stale: %v", err)
	}

	now = now.Add(6 * time.Second)
	block, err := p.ProduceBlock(context.Background())
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	if block.Header.Height != 1 || len(block.Calls) != 1 {
		t.Fatalf("expected height 1 with one call, got %d/%d", block.Header.Height, len(block.Calls))
	}
	if err := block.Header.VerifySignature(); err != nil {
		t.Fatalf("verify signature: %v", err)
	}
	if block.Header.Producer != producerKey.PubKey().Address().Raw() {
		t.Fatalf("unexpected producer")
	}
	if _, ok, err := rt.Makers().AccountToMakerID(userAddr); err != nil || !ok {
		t.Fatalf("expected maker registered: %v %v", ok, err)
	}
	if pool.Len() != 0 {
		t.Fatalf("expected drained pool")
	}
	if rt.Block().Height != 1 {
		t.Fatalf("expected runtime at height 1, got %d", rt.Block().Height)
	}
}

func TestGenesisFromConfig(t *testing.T) {
	key := mustKey(t)
	addr := key.PubKey().Address()
	cfg := &config.Config{
		GenesisBalances: []config.GenesisBalance{
			{Address: addr.String(), Amount: "10"},
			{Address: addr.String(), Amount: "5"},
		},
		InitialDustUSDPrice: "1000000",
	}
	g, err := GenesisFromConfig(cfg)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	if g.Balances[addr.Raw()].String() != "15" || g.Price.String() != "1000000" {
		t.Fatalf("unexpected genesis %+v", g)
	}
	cfg.GenesisBalances[0].Amount = "-1"
	if _, err := GenesisFromConfig(cfg); err == nil {
		t.Fatalf("expected negative amount to fail")
	}
}
