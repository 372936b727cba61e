package evidence

import (
	"strconv"

	"dustchain/core/types"
)

const (
	EventTypeCommitted       = "evidence.committed"
	EventTypeCommitHash      = "evidence.commit_hash"
	EventTypeLinked          = "evidence.linked"
	EventTypeUnlinked        = "evidence.unlinked"
	EventTypeAppended        = "evidence.appended"
	EventTypeManifestUpdated = "evidence.manifest_updated"
	EventTypeFrozen          = "evidence.frozen"
	EventTypeArchived        = "evidence.archived"
	EventTypePinRequested    = "evidence.pin_requested"
	EventTypePublicKey       = "evidence.public_key_registered"
	EventTypePrivateStored   = "evidence.private_stored"
	EventTypeAccessGranted   = "evidence.access_granted"
	EventTypeAccessRevoked   = "evidence.access_revoked"
	EventTypeKeysRotated     = "evidence.keys_rotated"
	EventTypeCIDLocked       = "evidence.cid_locked"
	EventTypeCIDUnlocked     = "evidence.cid_unlocked"
)

type evidenceEvent struct {
	evt *types.Event
}

func (e evidenceEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e evidenceEvent) Event() *types.Event { return e.evt }

// recordEvent never exposes the CID of encrypted or commit-only records.
func recordEvent(kind string, rec *Record) *types.Event {
	evt := types.NewEvent(kind).
		With("id", strconv.FormatUint(rec.ID, 10)).
		WithHex("owner", rec.Owner[:]).
		WithUint("status", uint64(rec.Status))
	if rec.HasCommit {
		evt.WithHex("commitHash", rec.CommitHash[:]).
			With("namespace", rec.Namespace.String()).
			WithUint("subjectId", rec.TargetID)
		return evt
	}
	evt.With("domain", rec.Domain.String()).
		WithUint("targetId", rec.TargetID).
		WithUint("contentType", uint64(rec.ContentType)).
		WithBool("encrypted", rec.Encrypted)
	if rec.Encrypted {
		digest := CIDHash(rec.ContentCID)
		evt.WithHex("contentHash", digest[:])
	} else {
		evt.With("cid", string(rec.ContentCID))
	}
	return evt
}

func linkEvent(kind string, scope string, tag types.DomainTag, subject, id uint64) *types.Event {
	return types.NewEvent(kind).
		With("scope", scope).
		With("tag", tag.String()).
		WithUint("subjectId", subject).
		WithUint("id", id)
}

func privateEvent(kind string, content *PrivateContent) *types.Event {
	return types.NewEvent(kind).
		WithUint("contentId", content.ID).
		WithHex("owner", content.Owner[:]).
		WithHex("contentHash", content.ContentHash[:]).
		WithUint("keyVersion", uint64(content.KeyVersion)).
		WithUint("grantees", uint64(len(content.Keys)))
}

func lockEvent(kind string, hash [32]byte, reason string, holders int) *types.Event {
	return types.NewEvent(kind).
		WithHex("hash", hash[:]).
		With("reason", reason).
		WithUint("holders", uint64(holders))
}
