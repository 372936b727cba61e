package evidence

import (
	"errors"
	"fmt"
	"time"

	"dustchain/core/events"
	"dustchain/core/types"
	"dustchain/native/common"
)

// Storage is the persistence subset used by the evidence store.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVRemove(key []byte, value []byte) (bool, error)
	KVGetList(key []byte, out interface{}) error
}

// Pinner retains content on IPFS. Failures never revert a commit.
type Pinner interface {
	PinCIDForSubject(owner [20]byte, subjectType string, subjectID uint64, cid []byte, tier uint8) error
	UnpinCID(owner [20]byte, cid []byte) error
}

// Randomness supplies on-chain entropy.
type Randomness interface {
	Random(salt []byte) [32]byte
}

// Engine anchors off-chain content to the chain.
type Engine struct {
	store   Storage
	emitter events.Emitter
	pinner  Pinner
	random  Randomness
	pauses  common.PauseView
	params  Params
	blockFn func() uint64
	nowFn   func() int64
}

// NewEngine constructs an evidence store with default parameters.
func NewEngine(store Storage) *Engine {
	return &Engine{
		store:   store,
		emitter: events.NoopEmitter{},
		params:  DefaultParams(),
		blockFn: func() uint64 { return 0 },
		nowFn:   func() int64 { return time.Now().Unix() },
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

func (e *Engine) SetPinner(p Pinner) { e.pinner = p }
func (e *Engine) SetRandomness(r Randomness) { e.random = r }
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }
func (e *Engine) SetParams(p Params) { e.params = p }
func (e *Engine) Params() Params { return e.params }

// SetBlockFunc overrides the block height source.
func (e *Engine) SetBlockFunc(fn func() uint64) {
	if fn == nil {
		e.blockFn = func() uint64 { return 0 }
		return
	}
	e.blockFn = fn
}

// SetNowFunc overrides the wall clock used for archive year-month buckets.
func (e *Engine) SetNowFunc(fn func() int64) {
	if fn == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = fn
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evidenceEvent{evt: evt})
}

func (e *Engine) now() uint64 {
	ts := e.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) guard() error {
	if e == nil || e.store == nil {
		return errNilState
	}
	return common.Guard(e.pauses, common.ModuleEvidence)
}

// Record loads an evidence record.
func (e *Engine) Record(id uint64) (*Record, bool, error) {
	if e == nil || e.store == nil {
		return nil, false, errNilState
	}
	var rec Record
	ok, err := e.store.KVGet(recordKey(id), &rec)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &rec, true, nil
}

func (e *Engine) mustRecord(id uint64) (*Record, error) {
	rec, ok, err := e.Record(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Archived loads the archive summary of id.
func (e *Engine) Archived(id uint64) (*ArchivedEvidence, bool, error) {
	if e == nil || e.store == nil {
		return nil, false, errNilState
	}
	var raw []byte
	ok, err := e.store.KVGet(archivedKey(id), &raw)
	if err != nil || !ok {
		return nil, ok, err
	}
	summary, err := decodeArchived(raw)
	if err != nil {
		return nil, false, err
	}
	return summary, true, nil
}

func (e *Engine) nextID(key []byte) (uint64, error) {
	var next uint64
	if _, err := e.store.KVGet(key, &next); err != nil {
		return 0, err
	}
	if err := e.store.KVPut(key, next+1); err != nil {
		return 0, err
	}
	return next, nil
}

func (e *Engine) listIDs(key []byte) ([]uint64, error) {
	var raw [][]byte
	if err := e.store.KVGetList(key, &raw); err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(raw))
	for _, item := range raw {
		if id, ok := decodeID(item); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (e *Engine) appendBounded(key []byte, id uint64, max uint32, full error) error {
	ids, err := e.listIDs(key)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return ErrAlreadyLinked
		}
	}
	if max > 0 && uint32(len(ids)) >= max {
		return full
	}
	return e.store.KVAppend(key, encodeID(id))
}

func (e *Engine) consumeWindow(owner [20]byte) error {
	var window common.Window
	if _, err := e.store.KVGet(windowKey(owner), &window); err != nil {
		return err
	}
	next, err := common.CheckWindow(e.params.Window, e.blockFn(), window)
	if err != nil {
		if errors.Is(err, common.ErrWindowLimitExceeded) {
			return ErrRateLimited
		}
		return err
	}
	return e.store.KVPut(windowKey(owner), next)
}

// ByTarget returns the evidence ids linked to (domain, target).
func (e *Engine) ByTarget(domain types.DomainTag, target uint64) ([]uint64, error) {
	if e == nil || e.store == nil {
		return nil, errNilState
	}
	return e.listIDs(targetIndexKey(domain, target))
}

// ByNamespace returns the evidence ids linked to (ns, subject).
func (e *Engine) ByNamespace(ns types.DomainTag, subject uint64) ([]uint64, error) {
	if e == nil || e.store == nil {
		return nil, errNilState
	}
	return e.listIDs(nsIndexKey(ns, subject))
}

// Commit anchors a plain evidence CID to (domain, target). Editable
// submissions start Pending and are pinned once their edit window closes.
func (e *Engine) Commit(req CommitRequest) (uint64, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	if err := ValidateCID(req.ContentCID, e.params.MaxCIDLen); err != nil {
		return 0, err
	}
	if !req.ContentType.Valid() {
		return 0, ErrInvalidContentType
	}
	rec, err := e.insert(req.Owner, req, nil)
	if err != nil {
		return 0, err
	}
	e.emit(recordEvent(EventTypeCommitted, rec))
	if rec.Status == uint8(StatusCommitted) {
		e.requestPin(rec)
	}
	return rec.ID, nil
}

func (e *Engine) insert(owner [20]byte, req CommitRequest, parent *Record) (*Record, error) {
	if err := e.consumeWindow(owner); err != nil {
		return nil, err
	}
	cidBytes := []byte(req.ContentCID)
	if e.params.GlobalCIDDedup {
		hash := CIDHash(cidBytes)
		ok, err := e.store.KVGet(cidIndexKey(hash), nil)
		if err != nil {
			return nil, err
		}
		if ok {
			return nil, ErrDuplicateCid
		}
	}
	id, err := e.nextID(nextIDKey)
	if err != nil {
		return nil, err
	}
	if err := e.appendBounded(targetIndexKey(req.Domain, req.TargetID), id, e.params.MaxPerSubjectTarget, ErrTooManyForSubject); err != nil {
		return nil, err
	}
	height := e.blockFn()
	rec := &Record{
		ID:          id,
		Owner:       owner,
		Domain:      req.Domain,
		TargetID:    req.TargetID,
		ContentCID:  cidBytes,
		ContentType: uint8(req.ContentType),
		CreatedAt:   height,
		CreatedTs:   e.now(),
		Encrypted:   req.Encrypted,
		Status:      uint8(StatusCommitted),
	}
	if parent != nil {
		rec.HasParent = true
		rec.Parent = parent.ID
	}
	if req.Editable && e.params.EditWindowBlocks > 0 {
		rec.Status = uint8(StatusPending)
		rec.EditDeadline = height + e.params.EditWindowBlocks
		if err := e.store.KVAppend(pendingQueueKey, encodeID(id)); err != nil {
			return nil, err
		}
	}
	if e.params.GlobalCIDDedup {
		if err := e.store.KVPut(cidIndexKey(CIDHash(cidBytes)), id); err != nil {
			return nil, err
		}
	}
	if err := e.store.KVPut(recordKey(id), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// CommitHash records a commitment to a hidden CID under (ns, subject). The
// commit hash is unique across all evidence.
func (e *Engine) CommitHash(owner [20]byte, ns types.DomainTag, subjectID uint64, commitHash [32]byte, memo []byte) (uint64, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	if commitHash == ([32]byte{}) {
		return 0, ErrInvalidCommitHash
	}
	if e.params.MaxMemoLen > 0 && len(memo) > e.params.MaxMemoLen {
		return 0, ErrMemoTooLong
	}
	ok, err := e.store.KVGet(commitIndexKey(commitHash), nil)
	if err != nil {
		return 0, err
	}
	if ok {
		return 0, ErrCommitAlreadyExists
	}
	if err := e.consumeWindow(owner); err != nil {
		return 0, err
	}
	id, err := e.nextID(nextIDKey)
	if err != nil {
		return 0, err
	}
	if err := e.appendBounded(nsIndexKey(ns, subjectID), id, e.params.MaxPerSubjectNs, ErrTooManyForSubject); err != nil {
		return 0, err
	}
	rec := &Record{
		ID:           id,
		Owner:        owner,
		TargetID:     subjectID,
		CreatedAt:    e.blockFn(),
		CreatedTs:    e.now(),
		HasCommit:    true,
		CommitHash:   commitHash,
		HasNamespace: true,
		Namespace:    ns,
		Memo:         append([]byte(nil), memo...),
		Status:       uint8(StatusCommitted),
	}
	if err := e.store.KVPut(commitIndexKey(commitHash), id); err != nil {
		return 0, err
	}
	if err := e.store.KVPut(recordKey(id), rec); err != nil {
		return 0, err
	}
	e.emit(recordEvent(EventTypeCommitHash, rec))
	return id, nil
}

// SuggestCommitSalt derives a salt for ComputeCommitHash from chain
// randomness.
func (e *Engine) SuggestCommitSalt(owner [20]byte, subjectID uint64) ([32]byte, error) {
	if e == nil || e.random == nil {
		return [32]byte{}, fmt.Errorf("evidence: randomness not configured")
	}
	seed := append([]byte{}, owner[:]...)
	seed = append(seed, encodeID(subjectID)...)
	return e.random.Random(seed), nil
}

func (e *Engine) authorize(origin common.Origin, rec *Record) error {
	if origin.Kind == common.OriginRoot {
		return nil
	}
	signer, err := origin.EnsureSigned()
	if err != nil {
		return ErrNotAuthorized
	}
	if signer != rec.Owner {
		return ErrNotAuthorized
	}
	return nil
}

// Link attaches an existing evidence record to another (domain, target).
func (e *Engine) Link(origin common.Origin, domain types.DomainTag, target, id uint64) error {
	if err := e.guard(); err != nil {
		return err
	}
	rec, err := e.mustRecord(id)
	if err != nil {
		return err
	}
	if err := e.authorize(origin, rec); err != nil {
		return err
	}
	if err := e.appendBounded(targetIndexKey(domain, target), id, e.params.MaxPerSubjectTarget, ErrTooManyForSubject); err != nil {
		return err
	}
	e.emit(linkEvent(EventTypeLinked, "target", domain, target, id))
	return nil
}

// Unlink detaches id from (domain, target).
func (e *Engine) Unlink(origin common.Origin, domain types.DomainTag, target, id uint64) error {
	if err := e.guard(); err != nil {
		return err
	}
	rec, err := e.mustRecord(id)
	if err != nil {
		return err
	}
	if err := e.authorize(origin, rec); err != nil {
		return err
	}
	removed, err := e.store.KVRemove(targetIndexKey(domain, target), encodeID(id))
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotLinked
	}
	e.emit(linkEvent(EventTypeUnlinked, "target", domain, target, id))
	return nil
}

// LinkByNs attaches id to (ns, subject).
func (e *Engine) LinkByNs(origin common.Origin, ns types.DomainTag, subject, id uint64) error {
	if err := e.guard(); err != nil {
		return err
	}
	rec, err := e.mustRecord(id)
	if err != nil {
		return err
	}
	if err := e.authorize(origin, rec); err != nil {
		return err
	}
	if err := e.appendBounded(nsIndexKey(ns, subject), id, e.params.MaxPerSubjectNs, ErrTooManyForSubject); err != nil {
		return err
	}
	e.emit(linkEvent(EventTypeLinked, "namespace", ns, subject, id))
	return nil
}

// UnlinkByNs detaches id from (ns, subject).
func (e *Engine) UnlinkByNs(origin common.Origin, ns types.DomainTag, subject, id uint64) error {
	if err := e.guard(); err != nil {
		return err
	}
	rec, err := e.mustRecord(id)
	if err != nil {
		return err
	}
	if err := e.authorize(origin, rec); err != nil {
		return err
	}
	removed, err := e.store.KVRemove(nsIndexKey(ns, subject), encodeID(id))
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotLinked
	}
	e.emit(linkEvent(EventTypeUnlinked, "namespace", ns, subject, id))
	return nil
}

// AppendEvidence commits a supplement to parentID, inheriting its domain and
// target.
func (e *Engine) AppendEvidence(owner [20]byte, parentID uint64, contentCID string, contentType ContentType, encrypted bool) (uint64, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	parent, ok, err := e.Record(parentID)
	if err != nil {
		return 0, err
	}
	if !ok {
		archived, err := e.store.KVGet(archivedKey(parentID), nil)
		if err != nil {
			return 0, err
		}
		if archived {
			return 0, ErrParentArchived
		}
		return 0, ErrNotFound
	}
	if parent.HasCommit {
		return 0, ErrInvalidStatus
	}
	if err := ValidateCID(contentCID, e.params.MaxCIDLen); err != nil {
		return 0, err
	}
	if !contentType.Valid() {
		return 0, ErrInvalidContentType
	}
	children, err := e.listIDs(childrenKey(parentID))
	if err != nil {
		return 0, err
	}
	if e.params.MaxChildren > 0 && uint32(len(children)) >= e.params.MaxChildren {
		return 0, ErrTooManyChildren
	}
	rec, err := e.insert(owner, CommitRequest{
		Owner:       owner,
		Domain:      parent.Domain,
		TargetID:    parent.TargetID,
		ContentCID:  contentCID,
		ContentType: contentType,
		Encrypted:   encrypted,
	}, parent)
	if err != nil {
		return 0, err
	}
	if err := e.store.KVAppend(childrenKey(parentID), encodeID(rec.ID)); err != nil {
		return 0, err
	}
	evt := recordEvent(EventTypeAppended, rec)
	evt.WithUint("parentId", parentID)
	e.emit(evt)
	e.requestPin(rec)
	return rec.ID, nil
}

// Children returns the supplement ids appended to parentID.
func (e *Engine) Children(parentID uint64) ([]uint64, error) {
	if e == nil || e.store == nil {
		return nil, errNilState
	}
	return e.listIDs(childrenKey(parentID))
}

func (e *Engine) requestPin(rec *Record) {
	if rec == nil || rec.HasCommit || len(rec.ContentCID) == 0 {
		return
	}
	evt := types.NewEvent(EventTypePinRequested).
		WithUint("id", rec.ID).
		With("domain", rec.Domain.String()).
		WithUint("targetId", rec.TargetID)
	if e.pinner != nil {
		if err := e.pinner.PinCIDForSubject(rec.Owner, rec.Domain.String(), rec.TargetID, rec.ContentCID, 0); err != nil {
			evt.With("error", err.Error())
		}
	}
	e.emit(evt)
}
