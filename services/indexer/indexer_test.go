package indexer

import (
	"context"
	"encoding/json"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dustchain/config"
	"dustchain/core/runtime"
	"dustchain/core/state"
	"dustchain/core/types"
	"dustchain/crypto"
	"dustchain/storage"
)

type payload struct{ evt *types.Event }

func (p payload) EventType() string    { return p.evt.Type }
func (p payload) Event() *types.Event { return p.evt }

func openTestIndexer(t *testing.T, opts ...Option) *Indexer {
	t.Helper()
	dsn, err := FileDSN(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	ix, err := Open(dsn, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func swapEvent(kind string, id uint64, status, dust, usdt string) payload {
	evt := types.NewEvent(kind).
		WithUint("swapId", id).
		WithUint("makerId", 1).
		WithHex("maker", make([]byte, 20)).
		WithHex("user", make([]byte, 20)).
		With("dust", dust).
		With("usdt", usdt).
		With("status", status)
	return payload{evt}
}

func TestFileDSN(t *testing.T) {
	_, err := FileDSN("  ")
	require.ErrorIs(t, err, ErrPathRequired)

	dsn, err := FileDSN("file:custom.db?mode=memory")
	require.NoError(t, err)
	require.Equal(t, "file:custom.db?mode=memory", dsn)

	dsn, err = FileDSN(":memory:")
	require.NoError(t, err)
	require.Contains(t, dsn, "mode=memory")

	dsn, err = FileDSN("index.db")
	require.NoError(t, err)
	require.Contains(t, dsn, "index.db?mode=rwc")
}

func TestRecordEventsAndQuery(t *testing.T) {
	height := uint64(7)
	ix := openTestIndexer(t, WithBlockFunc(func() uint64 { return height }))
	ctx := context.Background()

	ix.Emit(payload{types.NewEvent("evidence.committed").WithUint("id", 3)})
	height = 8
	ix.Emit(swapEvent("swap.created", 0, "pending", "10000000000000", "10000000"))
	ix.Emit(payload{types.NewEvent("evidence.revealed").WithUint("id", 3)})
	require.Zero(t, ix.Failed())

	all, err := ix.Events(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "evidence.revealed", all[0].Type)
	require.Equal(t, "evidence", all[0].Module)
	require.Equal(t, uint64(8), all[0].Height)

	committed, err := ix.Events(ctx, "evidence.committed", 10)
	require.NoError(t, err)
	require.Len(t, committed, 1)
	require.Equal(t, uint64(7), committed[0].Height)
	require.Equal(t, "3", committed[0].Attributes["id"])
}

func TestSwapRowFollowsLatestStatus(t *testing.T) {
	ix := openTestIndexer(t)
	ctx := context.Background()

	_, err := ix.Swap(ctx, 0)
	require.ErrorIs(t, err, ErrSwapNotFound)

	ix.Emit(swapEvent("swap.created", 0, "pending", "10000000000000", "10000000"))
	ix.Emit(swapEvent("swap.completed", 0, "completed", "10000000000000", "10000000"))
	ix.Emit(payload{types.NewEvent("swap.archived").WithUint("swapId", 0).WithUint("level", 2)})

	rec, err := ix.Swap(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "completed", rec.Status)
	require.True(t, rec.Archived)
	require.Equal(t, "10", rec.Dust.String())
	require.Equal(t, "10", rec.Usdt.String())
	require.Equal(t, crypto.AccountAddress([20]byte{}).String(), rec.User)
}

func TestSwapVolume(t *testing.T) {
	ix := openTestIndexer(t)
	ctx := context.Background()
	ix.Emit(swapEvent("swap.completed", 0, "completed", "1500000000000", "1500000"))
	ix.Emit(swapEvent("swap.completed", 1, "completed", "250000000000", "250000"))
	ix.Emit(swapEvent("swap.refunded", 2, "refunded", "9000000000000", "9000000"))

	vol, err := ix.SwapVolume(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 2, vol.Swaps)
	require.Equal(t, "1.750000000000", vol.DustString())
	require.Equal(t, "1.750000", vol.UsdtString())

	refunded, err := ix.SwapVolume(ctx, "refunded")
	require.NoError(t, err)
	require.Equal(t, 1, refunded.Swaps)
	require.Equal(t, "9.000000", refunded.UsdtString())
}

func TestIndexerSubscribedToRuntime(t *testing.T) {
	rt, err := runtime.New(state.NewManager(storage.NewMemDB()), runtime.Options{
		Global:                    config.DefaultGlobal(),
		AllowUnsignedVerification: true,
	})
	require.NoError(t, err)
	makerKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	userKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	maker, user := makerKey.PubKey().Address().Raw(), userKey.PubKey().Address().Raw()
	hundred := new(big.Int).Mul(big.NewInt(100), big.NewInt(1_000_000_000_000))
	require.NoError(t, rt.Genesis(runtime.BlockContext{Height: 1, Timestamp: 1_700_000_000}, map[[20]byte]*big.Int{
		maker: hundred,
		user:  new(big.Int).Set(hundred),
	}, config.Pauses{}, big.NewInt(1_000_000)))

	ix := openTestIndexer(t,
		WithBlockFunc(rt.Height),
		WithNowFunc(func() time.Time { return time.Unix(1_700_000_006, 0) }))
	rt.Subscribe(ix)
	rt.OnInitialize(runtime.BlockContext{Height: 2, Timestamp: 1_700_000_006})

	apply := func(key *crypto.PrivateKey, name string, args interface{}) {
		raw, err := runtime.EncodeArgs(args)
		require.NoError(t, err)
		nonce, err := rt.Bank().Nonce(key.PubKey().Address().Raw())
		require.NoError(t, err)
		call := &types.Call{Name: name, Nonce: nonce, Args: raw}
		require.NoError(t, call.Sign(key.PrivateKey))
		require.NoError(t, rt.Apply(call))
	}
	const tron = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
	apply(makerKey, "maker.register", map[string]interface{}{"tronAddress": tron, "deposit": "0"})
	apply(userKey, "swap.maker_swap", map[string]interface{}{
		"makerId":     1,
		"amount":      "10000000000000",
		"tronAddress": tron,
	})
	apply(makerKey, "swap.mark_swap_complete", map[string]interface{}{"swapId": 0, "txHash": "0xABC123"})
	verdict, err := json.Marshal(map[string]interface{}{"swapId": 0, "verified": true})
	require.NoError(t, err)
	require.NoError(t, rt.Apply(&types.Call{Name: "swap.ocw_submit_verification", Args: verdict}))
	require.Zero(t, ix.Failed())

	ctx := context.Background()
	rec, err := ix.Swap(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "completed", rec.Status)
	require.Equal(t, crypto.AccountAddress(user).String(), rec.User)
	require.Equal(t, uint64(2), rec.UpdatedHeight)

	vol, err := ix.SwapVolume(ctx, "completed")
	require.NoError(t, err)
	require.Equal(t, 1, vol.Swaps)
	require.Equal(t, "10.000000000000", vol.DustString())

	created, err := ix.Events(ctx, "swap.created", 5)
	require.NoError(t, err)
	require.Len(t, created, 1)
}
