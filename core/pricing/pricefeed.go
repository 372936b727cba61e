package pricing

import (
	"errors"
	"math"
	"math/big"
	"time"

	"dustchain/core/events"
	"dustchain/core/types"
	"dustchain/native/common"
)

// PriceStatus captures the health classification assigned to an oracle quote.
type PriceStatus string

const (
	// PriceStatusOK indicates the quote passed all configured guardrails.
	PriceStatusOK PriceStatus = "ok"
	// PriceStatusStale signals the quote exceeded the configured freshness window.
	PriceStatusStale PriceStatus = "stale"
	// PriceStatusDeviant indicates the quote deviated from the trade average
	// beyond the configured threshold.
	PriceStatusDeviant PriceStatus = "deviant"
	// PriceStatusMissing indicates no oracle has published a price yet.
	PriceStatusMissing PriceStatus = "missing"
)

// USDPrecision is the fixed-point scale of USD (USDT) amounts.
const USDPrecision = 1_000_000

// DustPrecision is the fixed-point scale of DUST amounts.
const DustPrecision = 1_000_000_000_000

const (
	EventTypeRateUpdated   = "pricing.rate_updated"
	EventTypeTradeReported = "pricing.trade_reported"
)

var (
	ErrInvalidPrice = errors.New("pricing: price must be positive")
	ErrNotOracle    = errors.New("pricing: origin is not an oracle")
)

// Storage is the persistence subset used by the feed.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var (
	quoteKey  = []byte("pricing/dust-usd/quote")
	tradesKey = []byte("pricing/dust-usd/trades")
)

// Quote is the stored oracle observation. Price is USD (10^6) per whole DUST.
type Quote struct {
	Price     *big.Int
	UpdatedAt uint64
	Height    uint64
}

// Trade is a settled swap reported back to the feed.
type Trade struct {
	Timestamp uint64
	Price     *big.Int
	Quantity  *big.Int
}

type tradeRing struct {
	Next    uint64
	Entries []Trade
}

// Guard configures quote health checks.
type Guard struct {
	MaxAgeSeconds   uint64
	WindowSeconds   uint64
	MaxDeviationBps uint32
	MaxTrades       int
}

// DefaultGuard returns the production guardrails.
func DefaultGuard() Guard {
	return Guard{MaxAgeSeconds: 3_600, WindowSeconds: 86_400, MaxDeviationBps: 2_000, MaxTrades: 256}
}

// Status summarises the feed response.
type Status struct {
	Price      *big.Int
	Average    *big.Int
	AgeSeconds uint32
	Status     PriceStatus
}

type pricingEvent struct {
	evt *types.Event
}

func (e pricingEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e pricingEvent) Event() *types.Event { return e.evt }

// Feed is the oracle-updated DUST/USD price provider.
type Feed struct {
	store   Storage
	oracles common.OriginCheck
	guard   Guard
	emitter events.Emitter
	nowFn   func() int64
	blockFn func() uint64
}

// NewFeed constructs a feed persisted in store.
func NewFeed(store Storage, oracles common.OriginCheck) *Feed {
	if oracles == nil {
		oracles = common.RootOnly{}
	}
	return &Feed{
		store:   store,
		oracles: oracles,
		guard:   DefaultGuard(),
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
		blockFn: func() uint64 { return 0 },
	}
}

func (f *Feed) SetGuard(g Guard) { f.guard = g }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (f *Feed) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		f.emitter = events.NoopEmitter{}
		return
	}
	f.emitter = emitter
}

// SetNowFunc overrides the wall clock used for freshness checks.
func (f *Feed) SetNowFunc(fn func() int64) {
	if fn == nil {
		f.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	f.nowFn = fn
}

// SetBlockFunc overrides the block height source.
func (f *Feed) SetBlockFunc(fn func() uint64) {
	if fn == nil {
		f.blockFn = func() uint64 { return 0 }
		return
	}
	f.blockFn = fn
}

func (f *Feed) emit(evt *types.Event) {
	if f == nil || f.emitter == nil || evt == nil {
		return
	}
	f.emitter.Emit(pricingEvent{evt: evt})
}

func (f *Feed) now() uint64 {
	ts := f.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// SetRate publishes a new DUST/USD price.
func (f *Feed) SetRate(origin common.Origin, price *big.Int) error {
	if err := f.oracles.EnsureOrigin(origin); err != nil {
		return ErrNotOracle
	}
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	q := Quote{Price: new(big.Int).Set(price), UpdatedAt: f.now(), Height: f.blockFn()}
	if err := f.store.KVPut(quoteKey, q); err != nil {
		return err
	}
	f.emit(types.NewEvent(EventTypeRateUpdated).
		WithAmount("price", q.Price).
		WithUint("updatedAt", q.UpdatedAt))
	return nil
}

func (f *Feed) quote() (*Quote, bool, error) {
	var q Quote
	ok, err := f.store.KVGet(quoteKey, &q)
	if err != nil || !ok || q.Price == nil {
		return nil, false, err
	}
	return &q, true, nil
}

// Status evaluates the current quote against the guardrails.
func (f *Feed) Status() (Status, error) {
	q, ok, err := f.quote()
	if err != nil {
		return Status{}, err
	}
	if !ok {
		return Status{Status: PriceStatusMissing, AgeSeconds: math.MaxUint32}, nil
	}
	now := f.now()
	out := Status{Price: new(big.Int).Set(q.Price), Status: PriceStatusOK, AgeSeconds: ageSeconds(q.UpdatedAt, now)}
	if f.guard.MaxAgeSeconds > 0 && uint64(out.AgeSeconds) > f.guard.MaxAgeSeconds {
		out.Status = PriceStatusStale
		return out, nil
	}
	avg, err := f.Average()
	if err != nil {
		return Status{}, err
	}
	out.Average = avg
	if avg != nil && f.guard.MaxDeviationBps > 0 && deviatesBeyondThreshold(q.Price, avg, f.guard.MaxDeviationBps) {
		out.Status = PriceStatusDeviant
	}
	return out, nil
}

// DustToUSDRate returns the USD (10^6) value of one whole DUST when a
// healthy quote is available.
func (f *Feed) DustToUSDRate() (*big.Int, bool) {
	if f == nil || f.store == nil {
		return nil, false
	}
	st, err := f.Status()
	if err != nil || st.Status != PriceStatusOK {
		return nil, false
	}
	return st.Price, true
}

// ReportSwapOrder records a settled trade. The ring keeps the most recent
// MaxTrades entries.
func (f *Feed) ReportSwapOrder(ts int64, price, qty *big.Int) error {
	if price == nil || price.Sign() <= 0 || qty == nil || qty.Sign() <= 0 {
		return ErrInvalidPrice
	}
	if ts < 0 {
		ts = 0
	}
	var ring tradeRing
	if _, err := f.store.KVGet(tradesKey, &ring); err != nil {
		return err
	}
	max := f.guard.MaxTrades
	if max <= 0 {
		max = 256
	}
	trade := Trade{Timestamp: uint64(ts), Price: new(big.Int).Set(price), Quantity: new(big.Int).Set(qty)}
	if len(ring.Entries) < max {
		ring.Entries = append(ring.Entries, trade)
	} else {
		ring.Entries[ring.Next%uint64(len(ring.Entries))] = trade
	}
	ring.Next++
	if err := f.store.KVPut(tradesKey, ring); err != nil {
		return err
	}
	f.emit(types.NewEvent(EventTypeTradeReported).
		WithAmount("price", price).
		WithAmount("quantity", qty).
		WithUint("timestamp", uint64(ts)))
	return nil
}

// Average returns the quantity-weighted average price of trades within the
// guard window, or nil when none qualify.
func (f *Feed) Average() (*big.Int, error) {
	var ring tradeRing
	if _, err := f.store.KVGet(tradesKey, &ring); err != nil {
		return nil, err
	}
	now := f.now()
	notional := big.NewInt(0)
	volume := big.NewInt(0)
	for _, tr := range ring.Entries {
		if tr.Price == nil || tr.Quantity == nil {
			continue
		}
		if f.guard.WindowSeconds > 0 && tr.Timestamp+f.guard.WindowSeconds < now {
			continue
		}
		notional.Add(notional, new(big.Int).Mul(tr.Price, tr.Quantity))
		volume.Add(volume, tr.Quantity)
	}
	if volume.Sign() == 0 {
		return nil, nil
	}
	return notional.Quo(notional, volume), nil
}

// DustToUSD converts a DUST amount (10^12) into USD (10^6) at price.
func DustToUSD(dust, price *big.Int) (*big.Int, error) {
	return common.CheckedMulDiv(dust, price, big.NewInt(DustPrecision))
}

// USDToDust converts a USD amount (10^6) into DUST (10^12) at price.
func USDToDust(usd, price *big.Int) (*big.Int, error) {
	if price == nil || price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	return common.CheckedMulDiv(usd, big.NewInt(DustPrecision), price)
}

func ageSeconds(observed, now uint64) uint32 {
	if observed >= now {
		return 0
	}
	delta := now - observed
	if delta > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(delta)
}

func deviatesBeyondThreshold(spot, average *big.Int, thresholdBps uint32) bool {
	if spot == nil || average == nil || average.Sign() <= 0 {
		return false
	}
	diff := new(big.Int).Sub(spot, average)
	diff.Abs(diff)
	if diff.Sign() == 0 {
		return false
	}
	scaled := new(big.Int).Mul(diff, big.NewInt(common.BpsDenominator))
	limit := new(big.Int).Mul(average, big.NewInt(int64(thresholdBps)))
	return scaled.Cmp(limit) > 0
}
