package indexer

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"

	"dustchain/core/events"
	"dustchain/crypto"
	"dustchain/native/swap"
)

const (
	dustDecimals = 12
	usdtDecimals = 6
)

var (
	// ErrPathRequired is returned when no DSN is configured.
	ErrPathRequired = errors.New("indexer: database path must be configured")
	// ErrSwapNotFound is returned when a swap has not been indexed.
	ErrSwapNotFound = errors.New("indexer: swap not found")
)

// Indexer persists runtime events into SQLite and maintains a denormalised
// swap table for volume queries. It implements events.Emitter so the node can
// subscribe it to the runtime directly.
type Indexer struct {
	db      *sql.DB
	logger  *slog.Logger
	blockFn func() uint64
	nowFn   func() time.Time
	failed  atomic.Uint64
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger installs a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Indexer) {
		if l != nil {
			ix.logger = l
		}
	}
}

// WithBlockFunc sets the source of the height recorded against each event.
func WithBlockFunc(fn func() uint64) Option {
	return func(ix *Indexer) {
		ix.blockFn = fn
	}
}

// WithNowFunc overrides the wall clock.
func WithNowFunc(fn func() time.Time) Option {
	return func(ix *Indexer) {
		if fn != nil {
			ix.nowFn = fn
		}
	}
}

// Open initialises the backing store using a sqlite DSN.
func Open(dsn string, opts ...Option) (*Indexer, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, ErrPathRequired
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("indexer: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("indexer: apply schema: %w", err)
	}
	ix := &Indexer{
		db:      db,
		logger:  slog.Default(),
		blockFn: func() uint64 { return 0 },
		nowFn:   time.Now,
	}
	for _, opt := range opts {
		opt(ix)
	}
	ix.logger = ix.logger.With("component", "indexer")
	return ix, nil
}

// Close releases database resources.
func (ix *Indexer) Close() error {
	if ix == nil || ix.db == nil {
		return nil
	}
	return ix.db.Close()
}

// Failed returns the number of events that could not be persisted.
func (ix *Indexer) Failed() uint64 { return ix.failed.Load() }

// Emit implements events.Emitter. Storage failures are logged and counted;
// they never propagate into block execution.
func (ix *Indexer) Emit(evt events.Event) {
	if ix == nil || evt == nil {
		return
	}
	if err := ix.Record(context.Background(), evt); err != nil {
		ix.failed.Add(1)
		ix.logger.Warn("index event failed", "type", evt.EventType(), "error", err)
	}
}

// Record persists evt and, for swap events, refreshes the swap row.
func (ix *Indexer) Record(ctx context.Context, evt events.Event) error {
	attrs := map[string]string{}
	if inner, ok := events.Unwrap(evt); ok && inner.Attributes != nil {
		attrs = inner.Attributes
	}
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}
	kind := evt.EventType()
	height := ix.blockFn()
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO events(height, module, type, attributes, recorded_at)
        VALUES(?, ?, ?, ?, ?)
    `, height, moduleOf(kind), kind, string(encoded), ix.nowFn().UTC()); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	if strings.HasPrefix(kind, "swap.") {
		if err := upsertSwap(ctx, tx, kind, attrs, height); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func upsertSwap(ctx context.Context, tx *sql.Tx, kind string, attrs map[string]string, height uint64) error {
	rawID, ok := attrs["swapId"]
	if !ok {
		return nil
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("parse swap id %q: %w", rawID, err)
	}
	if kind == swap.EventTypeSwapArchived {
		_, err := tx.ExecContext(ctx, `UPDATE swaps SET archived = 1, updated_height = ? WHERE swap_id = ?`, height, id)
		if err != nil {
			return fmt.Errorf("archive swap: %w", err)
		}
		return nil
	}
	status := attrs["status"]
	if status == "" {
		return nil
	}
	makerID, _ := strconv.ParseUint(attrs["makerId"], 10, 64)
	_, err = tx.ExecContext(ctx, `
        INSERT INTO swaps(swap_id, maker_id, maker, user, dust, usdt, status, archived, created_height, updated_height)
        VALUES(?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
        ON CONFLICT(swap_id) DO UPDATE SET
            status = excluded.status,
            dust = excluded.dust,
            usdt = excluded.usdt,
            updated_height = excluded.updated_height
    `, id, makerID, accountFromHex(attrs["maker"]), accountFromHex(attrs["user"]),
		amountOrZero(attrs["dust"]), amountOrZero(attrs["usdt"]), status, height, height)
	if err != nil {
		return fmt.Errorf("upsert swap: %w", err)
	}
	return nil
}

// EventRecord is a stored runtime event.
type EventRecord struct {
	ID         int64
	Height     uint64
	Module     string
	Type       string
	Attributes map[string]string
	RecordedAt time.Time
}

// Events returns the most recent events of the given type, newest first. An
// empty type matches every event.
func (ix *Indexer) Events(ctx context.Context, kind string, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, height, module, type, attributes, recorded_at FROM events`
	args := []interface{}{}
	if kind != "" {
		query += ` WHERE type = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("indexer: query events: %w", err)
	}
	defer rows.Close()
	var out []EventRecord
	for rows.Next() {
		var (
			rec   EventRecord
			attrs string
		)
		if err := rows.Scan(&rec.ID, &rec.Height, &rec.Module, &rec.Type, &attrs, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("indexer: scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(attrs), &rec.Attributes); err != nil {
			return nil, fmt.Errorf("indexer: decode attributes: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SwapRecord is the latest indexed view of a swap.
type SwapRecord struct {
	ID            uint64
	MakerID       uint64
	Maker         string
	User          string
	Dust          decimal.Decimal
	Usdt          decimal.Decimal
	Status        string
	Archived      bool
	CreatedHeight uint64
	UpdatedHeight uint64
}

// Swap returns the indexed view of swap id.
func (ix *Indexer) Swap(ctx context.Context, id uint64) (SwapRecord, error) {
	row := ix.db.QueryRowContext(ctx, `
        SELECT swap_id, maker_id, maker, user, dust, usdt, status, archived, created_height, updated_height
        FROM swaps WHERE swap_id = ?
    `, id)
	var (
		rec        SwapRecord
		dust, usdt string
	)
	err := row.Scan(&rec.ID, &rec.MakerID, &rec.Maker, &rec.User, &dust, &usdt, &rec.Status, &rec.Archived, &rec.CreatedHeight, &rec.UpdatedHeight)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrSwapNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("indexer: query swap: %w", err)
	}
	if rec.Dust, err = baseUnits(dust, dustDecimals); err != nil {
		return rec, err
	}
	if rec.Usdt, err = baseUnits(usdt, usdtDecimals); err != nil {
		return rec, err
	}
	return rec, nil
}

// Volume aggregates indexed swaps.
type Volume struct {
	Swaps int
	Dust  decimal.Decimal
	Usdt  decimal.Decimal
}

// DustString renders the DUST total with twelve decimals.
func (v Volume) DustString() string { return v.Dust.StringFixed(dustDecimals) }

// UsdtString renders the USDT total with six decimals.
func (v Volume) UsdtString() string { return v.Usdt.StringFixed(usdtDecimals) }

// SwapVolume sums the amounts of every indexed swap in status. An empty
// status sums completed swaps.
func (ix *Indexer) SwapVolume(ctx context.Context, status string) (Volume, error) {
	if status == "" {
		status = swap.StatusCompleted.String()
	}
	out := Volume{Dust: decimal.Zero, Usdt: decimal.Zero}
	rows, err := ix.db.QueryContext(ctx, `SELECT dust, usdt FROM swaps WHERE status = ?`, status)
	if err != nil {
		return out, fmt.Errorf("indexer: query volume: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var dust, usdt string
		if err := rows.Scan(&dust, &usdt); err != nil {
			return out, fmt.Errorf("indexer: scan volume: %w", err)
		}
		d, err := baseUnits(dust, dustDecimals)
		if err != nil {
			return out, err
		}
		u, err := baseUnits(usdt, usdtDecimals)
		if err != nil {
			return out, err
		}
		out.Swaps++
		out.Dust = out.Dust.Add(d)
		out.Usdt = out.Usdt.Add(u)
	}
	return out, rows.Err()
}

func baseUnits(raw string, decimals int32) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("indexer: parse amount %q: %w", raw, err)
	}
	return v.Shift(-decimals), nil
}

func amountOrZero(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "0"
	}
	return raw
}

func accountFromHex(raw string) string {
	decoded, err := hex.DecodeString(raw)
	if err != nil || len(decoded) != 20 {
		return raw
	}
	var addr [20]byte
	copy(addr[:], decoded)
	return crypto.AccountAddress(addr).String()
}

func moduleOf(kind string) string {
	if idx := strings.IndexByte(kind, '.'); idx > 0 {
		return kind[:idx]
	}
	return kind
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    height INTEGER NOT NULL,
    module TEXT NOT NULL,
    type TEXT NOT NULL,
    attributes TEXT NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(type, id);
CREATE INDEX IF NOT EXISTS idx_events_height ON events(height);

CREATE TABLE IF NOT EXISTS swaps (
    swap_id INTEGER PRIMARY KEY,
    maker_id INTEGER NOT NULL,
    maker TEXT NOT NULL,
    user TEXT NOT NULL,
    dust TEXT NOT NULL,
    usdt TEXT NOT NULL,
    status TEXT NOT NULL,
    archived INTEGER NOT NULL DEFAULT 0,
    created_height INTEGER NOT NULL,
    updated_height INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_swaps_status ON swaps(status);
`
