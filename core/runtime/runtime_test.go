package runtime

import (
	"encoding/json"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"dustchain/config"
	"dustchain/core/events"
	"dustchain/core/state"
	"dustchain/core/types"
	"dustchain/crypto"
	"dustchain/native/bank"
	"dustchain/native/common"
	"dustchain/native/governance"
	"dustchain/native/swap"
	"dustchain/storage"
)

const (
	genesisTs  = int64(1_700_000_000)
	tronTarget = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
)

var oneDust = big.NewInt(1_000_000_000_000)

func dust(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), oneDust) }

type recorder struct {
	kinds []string
}

func (r *recorder) Emit(evt events.Event) { r.kinds = append(r.kinds, evt.EventType()) }

func (r *recorder) has(kind string) bool {
	for _, k := range r.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

type account struct {
	key  *crypto.PrivateKey
	addr [20]byte
}

func newAccount(t *testing.T) account {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return account{key: key, addr: key.PubKey().Address().Raw()}
}

type fixture struct {
	rt    *Runtime
	rec   *recorder
	maker account
	user  account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{maker: newAccount(t), user: newAccount(t), rec: &recorder{}}
	rt, err := New(state.NewManager(storage.NewMemDB()), Options{
		Global:                    config.DefaultGlobal(),
		AllowUnsignedVerification: true,
	})
	require.NoError(t, err)
	require.NoError(t, rt.Genesis(BlockContext{Height: 1, Timestamp: genesisTs}, map[[20]byte]*big.Int{
		f.maker.addr: dust(100),
		f.user.addr:  dust(100),
	}, config.Pauses{}, big.NewInt(1_000_000)))
	rt.Subscribe(f.rec)
	rt.OnInitialize(BlockContext{Height: 2, Timestamp: genesisTs + 6})
	f.rt = rt
	return f
}

func (f *fixture) call(t *testing.T, from account, name string, args interface{}) error {
	t.Helper()
	raw, err := EncodeArgs(args)
	require.NoError(t, err)
	nonce, err := f.rt.Bank().Nonce(from.addr)
	require.NoError(t, err)
	call := &types.Call{Name: name, Nonce: nonce, Args: raw}
	require.NoError(t, call.Sign(from.key.PrivateKey))
	return f.rt.Apply(call)
}

func (f *fixture) openSwap(t *testing.T) {
	t.Helper()
	require.NoError(t, f.call(t, f.maker, "maker.register", map[string]interface{}{
		"tronAddress": tronTarget,
		"deposit":     "0",
	}))
	require.NoError(t, f.call(t, f.user, "swap.maker_swap", map[string]interface{}{
		"makerId":     1,
		"amount":      dust(10).String(),
		"tronAddress": tronTarget,
	}))
}

func verification(id uint64, verified bool) *types.Call {
	args, _ := json.Marshal(map[string]interface{}{"swapId": id, "verified": verified})
	return &types.Call{Name: "swap.ocw_submit_verification", Args: args}
}

func TestSwapLifecycleThroughCalls(t *testing.T) {
	f := newFixture(t)
	f.openSwap(t)

	s, err := f.rt.Swap().Swap(0)
	require.NoError(t, err)
	require.Equal(t, uint8(swap.StatusPending), s.Status)
	require.Equal(t, f.maker.addr, s.Maker)

	_, err = f.rt.ValidateUnsigned(verification(0, true))
	require.ErrorIs(t, err, swap.ErrInvalidStatus)

	require.NoError(t, f.call(t, f.maker, "swap.mark_swap_complete", map[string]interface{}{
		"swapId": 0,
		"txHash": "0xABC123",
	}))
	tag, err := f.rt.ValidateUnsigned(verification(0, true))
	require.NoError(t, err)
	require.Equal(t, UnsignedTag(0), tag)

	require.NoError(t, f.rt.Apply(verification(0, true)))
	s, err = f.rt.Swap().Swap(0)
	require.NoError(t, err)
	require.Equal(t, uint8(swap.StatusCompleted), s.Status)

	makerBal, err := f.rt.Bank().FreeBalance(f.maker.addr)
	require.NoError(t, err)
	require.Equal(t, dust(110).String(), makerBal.String())
	userBal, err := f.rt.Bank().FreeBalance(f.user.addr)
	require.NoError(t, err)
	require.Equal(t, dust(90).String(), userBal.String())

	active, err := f.rt.Affiliate().IsActive(f.user.addr)
	require.NoError(t, err)
	require.True(t, active)
	require.True(t, f.rec.has(swap.EventTypeSwapCompleted))
}

func TestFailedCallRevertsAndConsumesNonce(t *testing.T) {
	f := newFixture(t)
	before := len(f.rec.kinds)

	err := f.call(t, f.user, "maker.register", map[string]interface{}{
		"tronAddress": tronTarget,
		"deposit":     dust(1_000).String(),
	})
	require.ErrorIs(t, err, bank.ErrInsufficientBalance)
	require.Equal(t, "Balances.InsufficientBalance", ErrorName(err))

	var dispatchErr *DispatchError
	require.ErrorAs(t, err, &dispatchErr)
	require.Equal(t, "maker.register", dispatchErr.Call)

	nonce, err := f.rt.Bank().Nonce(f.user.addr)
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)

	_, registered, err := f.rt.Makers().AccountToMakerID(f.user.addr)
	require.NoError(t, err)
	require.False(t, registered)
	require.Len(t, f.rec.kinds, before)
}

func TestApplyRejectsStaleNonce(t *testing.T) {
	f := newFixture(t)
	raw, err := EncodeArgs(map[string]interface{}{"tronAddress": tronTarget, "deposit": "0"})
	require.NoError(t, err)
	call := &types.Call{Name: "maker.register", Nonce: 5, Args: raw}
	require.NoError(t, call.Sign(f.maker.key.PrivateKey))
	require.ErrorIs(t, f.rt.Apply(call), ErrBadNonce)

	nonce, err := f.rt.Bank().Nonce(f.maker.addr)
	require.NoError(t, err)
	require.Zero(t, nonce)
}

func TestGovernanceErrorNames(t *testing.T) {
	wrapped := fmt.Errorf("affiliate.vote_on_percentage_proposal: %w", governance.ErrInvalidConviction)
	require.Equal(t, "Governance.InvalidConvictionType", ErrorName(wrapped))
	require.Equal(t, "Governance.VoteLocked", ErrorName(governance.ErrVoteLocked))
	require.Equal(t, "Other", ErrorName(fmt.Errorf("unrelated")))
}

func TestDispatchOriginRules(t *testing.T) {
	f := newFixture(t)

	err := f.rt.Dispatch(common.Root(), "swap.no_such_call", nil)
	require.ErrorIs(t, err, ErrUnknownCall)
	require.Equal(t, "Runtime.UnknownCall", ErrorName(err))

	err = f.rt.Dispatch(common.Root(), "maker.retire", nil)
	require.ErrorIs(t, err, ErrSignedRequired)

	raw, err := EncodeArgs(map[string]interface{}{"price": "2000000"})
	require.NoError(t, err)
	err = f.rt.Apply(&types.Call{Name: "pricing.set_rate", Args: raw})
	require.ErrorIs(t, err, ErrUnsignedNotAllowed)

	require.NoError(t, f.rt.Dispatch(common.Root(), "pricing.set_rate", raw))
	price, ok := f.rt.Prices().DustToUSDRate()
	require.True(t, ok)
	require.Equal(t, "2000000", price.String())

	_, err = f.rt.ValidateUnsigned(&types.Call{Name: "maker.retire"})
	require.ErrorIs(t, err, ErrUnsignedNotAllowed)
}

func TestCommitteePauseBlocksSwaps(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.call(t, f.maker, "maker.register", map[string]interface{}{
		"tronAddress": tronTarget,
		"deposit":     "0",
	}))
	raw, err := EncodeArgs(map[string]interface{}{"module": common.ModuleSwap, "paused": true})
	require.NoError(t, err)

	err = f.rt.Dispatch(f.rt.CommitteeOrigin(1), "system.set_pause", raw)
	require.ErrorIs(t, err, common.ErrBadOrigin)
	require.NoError(t, f.rt.Dispatch(f.rt.CommitteeOrigin(2), "system.set_pause", raw))

	err = f.call(t, f.user, "swap.maker_swap", map[string]interface{}{
		"makerId":     1,
		"amount":      dust(10).String(),
		"tronAddress": tronTarget,
	})
	require.ErrorIs(t, err, common.ErrModulePaused)
	require.Equal(t, "System.ModulePaused", ErrorName(err))

	_, err = f.rt.ValidateUnsigned(verification(0, true))
	require.ErrorIs(t, err, common.ErrModulePaused)
}

func TestTimeoutSweepRefundsPendingSwap(t *testing.T) {
	f := newFixture(t)
	f.openSwap(t)
	params := f.rt.Swap().Params()

	report := f.rt.OnInitialize(BlockContext{Height: params.SweepInterval * 2, Timestamp: genesisTs + 600})
	require.Zero(t, report.Refunded)

	height := 2 + params.OcwSwapTimeoutBlocks
	height += params.SweepInterval - height%params.SweepInterval
	report = f.rt.OnInitialize(BlockContext{Height: height, Timestamp: genesisTs + int64(height)*6})
	require.Equal(t, 1, report.Refunded)
	require.Zero(t, report.Failures)

	s, err := f.rt.Swap().Swap(0)
	require.NoError(t, err)
	require.Equal(t, uint8(swap.StatusRefunded), s.Status)
	bal, err := f.rt.Bank().FreeBalance(f.user.addr)
	require.NoError(t, err)
	require.Equal(t, dust(100).String(), bal.String())
}

func TestOnIdleRespectsWeight(t *testing.T) {
	f := newFixture(t)
	before := len(f.rec.kinds)
	require.Equal(t, HookReport{}, f.rt.OnIdle(2, 0))
	require.Len(t, f.rec.kinds, before)

	report := f.rt.OnIdle(2, 100)
	require.Zero(t, report.Failures)
}

func TestRandomnessIsDeterministicPerBlock(t *testing.T) {
	f := newFixture(t)
	rnd := Randomness{rt: f.rt}
	a := rnd.Random([]byte("salt"))
	require.Equal(t, a, rnd.Random([]byte("salt")))
	require.NotEqual(t, a, rnd.Random([]byte("other")))

	f.rt.OnInitialize(BlockContext{Height: 3, Timestamp: genesisTs + 12})
	require.NotEqual(t, a, rnd.Random([]byte("salt")))
}

func TestCallsAreSorted(t *testing.T) {
	f := newFixture(t)
	calls := f.rt.Calls()
	require.NotEmpty(t, calls)
	for i := 1; i < len(calls); i++ {
		require.Less(t, calls[i-1], calls[i])
	}
	require.Contains(t, calls, "swap.ocw_submit_verification")
}
