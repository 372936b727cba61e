package evidence

import (
	"time"

	"github.com/fxamacker/cbor/v2"
)

func encodeArchived(summary *ArchivedEvidence) ([]byte, error) {
	return cbor.Marshal(summary)
}

func decodeArchived(raw []byte) (*ArchivedEvidence, error) {
	var out ArchivedEvidence
	if err := cbor.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func yearMonth(ts uint64) uint32 {
	t := time.Unix(int64(ts), 0).UTC()
	return uint32(t.Year())*100 + uint32(t.Month())
}

// ArchiveStats returns the archival counters.
func (e *Engine) ArchiveStats() (ArchiveStats, error) {
	var stats ArchiveStats
	if e == nil || e.store == nil {
		return stats, errNilState
	}
	_, err := e.store.KVGet(archiveStatsKey, &stats)
	return stats, err
}

func (e *Engine) archivable(rec *Record) (bool, error) {
	if rec.Status != uint8(StatusCommitted) {
		return false, nil
	}
	locked, err := e.IsCIDLocked(rec.LockHash())
	if err != nil {
		return false, err
	}
	return !locked, nil
}

func (e *Engine) archive(rec *Record) error {
	digestSource := rec.ContentCID
	if rec.HasCommit {
		digestSource = rec.CommitHash[:]
	}
	summary := &ArchivedEvidence{
		ID:            rec.ID,
		Domain:        rec.Domain,
		TargetID:      rec.TargetID,
		ContentDigest: ContentDigest(digestSource),
		ContentType:   rec.ContentType,
		CreatedAt:     rec.CreatedAt,
		YearMonth:     yearMonth(rec.CreatedTs),
	}
	if rec.HasCommit {
		summary.Domain = rec.Namespace
	}
	raw, err := encodeArchived(summary)
	if err != nil {
		return err
	}
	if err := e.store.KVPut(archivedKey(rec.ID), raw); err != nil {
		return err
	}
	if err := e.store.KVDelete(recordKey(rec.ID)); err != nil {
		return err
	}
	if e.pinner != nil && !rec.HasCommit {
		// Unpin failures leave the content pinned; the summary is still written.
		_ = e.pinner.UnpinCID(rec.Owner, rec.ContentCID)
	}
	e.emit(recordEvent(EventTypeArchived, rec).
		WithHex("digest", summary.ContentDigest[:]).
		WithUint("yearMonth", uint64(summary.YearMonth)))
	return nil
}

// ArchiveOld replaces up to limit records older than ArchiveAfterBlocks with
// compact summaries. Records that are still Pending or CID-locked are deferred
// to a retry list and revisited first on later calls.
func (e *Engine) ArchiveOld(limit int) (int, error) {
	if e == nil || e.store == nil {
		return 0, errNilState
	}
	if limit <= 0 || e.params.ArchiveAfterBlocks == 0 {
		return 0, nil
	}
	var stats ArchiveStats
	if _, err := e.store.KVGet(archiveStatsKey, &stats); err != nil {
		return 0, err
	}
	now := e.blockFn()
	processed, archived := 0, 0

	retry, err := e.listIDs(archiveRetryKey)
	if err != nil {
		return 0, err
	}
	for _, id := range retry {
		if processed >= limit {
			break
		}
		processed++
		rec, ok, err := e.Record(id)
		if err != nil {
			return archived, err
		}
		if !ok {
			if _, err := e.store.KVRemove(archiveRetryKey, encodeID(id)); err != nil {
				return archived, err
			}
			continue
		}
		eligible, err := e.archivable(rec)
		if err != nil {
			return archived, err
		}
		if !eligible {
			continue
		}
		if err := e.archive(rec); err != nil {
			return archived, err
		}
		if _, err := e.store.KVRemove(archiveRetryKey, encodeID(id)); err != nil {
			return archived, err
		}
		archived++
		if stats.Deferred > 0 {
			stats.Deferred--
		}
	}

	var cursor, next uint64
	if _, err := e.store.KVGet(archiveCursorKey, &cursor); err != nil {
		return archived, err
	}
	if _, err := e.store.KVGet(nextIDKey, &next); err != nil {
		return archived, err
	}
	for processed < limit && cursor < next {
		rec, ok, err := e.Record(cursor)
		if err != nil {
			return archived, err
		}
		if !ok {
			cursor++
			continue
		}
		if rec.CreatedAt+e.params.ArchiveAfterBlocks > now {
			break
		}
		processed++
		eligible, err := e.archivable(rec)
		if err != nil {
			return archived, err
		}
		if eligible {
			if err := e.archive(rec); err != nil {
				return archived, err
			}
			archived++
		} else {
			if err := e.store.KVAppend(archiveRetryKey, encodeID(rec.ID)); err != nil {
				return archived, err
			}
			stats.Deferred++
		}
		cursor++
	}
	if err := e.store.KVPut(archiveCursorKey, cursor); err != nil {
		return archived, err
	}
	stats.Archived += uint64(archived)
	stats.LastHeight = now
	if err := e.store.KVPut(archiveStatsKey, stats); err != nil {
		return archived, err
	}
	return archived, nil
}
