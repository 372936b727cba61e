package common

import "errors"

var (
	ErrBadOrigin      = errors.New("origin: not authorized")
	ErrUnsignedOrigin = errors.New("origin: signed origin required")
)

// OriginKind classifies the authority a call was dispatched with.
type OriginKind uint8

const (
	OriginNone OriginKind = iota
	OriginSigned
	OriginRoot
	OriginCommittee
	OriginUnsigned
)

// Origin describes who dispatched a call. Committee origins carry the number
// of approving members out of the committee size.
type Origin struct {
	Kind      OriginKind
	Signer    [20]byte
	Approvals uint32
	Members   uint32
}

func Signed(addr [20]byte) Origin { return Origin{Kind: OriginSigned, Signer: addr} }

func Root() Origin { return Origin{Kind: OriginRoot} }

func Unsigned() Origin { return Origin{Kind: OriginUnsigned} }

func Committee(approvals, members uint32) Origin {
	return Origin{Kind: OriginCommittee, Approvals: approvals, Members: members}
}

// EnsureSigned returns the signer for signed origins.
func (o Origin) EnsureSigned() ([20]byte, error) {
	if o.Kind != OriginSigned {
		return [20]byte{}, ErrUnsignedOrigin
	}
	return o.Signer, nil
}

// OriginCheck gates privileged dispatchables.
type OriginCheck interface {
	EnsureOrigin(o Origin) error
}

// RootOnly accepts only the root origin.
type RootOnly struct{}

func (RootOnly) EnsureOrigin(o Origin) error {
	if o.Kind == OriginRoot {
		return nil
	}
	return ErrBadOrigin
}

// RootOrCommittee accepts root or a committee whose approvals reach Num/Den of
// its members.
type RootOrCommittee struct {
	Num uint32
	Den uint32
}

func (r RootOrCommittee) EnsureOrigin(o Origin) error {
	switch o.Kind {
	case OriginRoot:
		return nil
	case OriginCommittee:
		if o.Members == 0 || r.Den == 0 || o.Approvals > o.Members {
			return ErrBadOrigin
		}
		if uint64(o.Approvals)*uint64(r.Den) >= uint64(o.Members)*uint64(r.Num) {
			return nil
		}
	}
	return ErrBadOrigin
}

// OracleSet accepts unsigned oracle submissions, root, and signed calls from a
// fixed member set.
type OracleSet struct {
	Members       map[[20]byte]struct{}
	AllowUnsigned bool
}

func NewOracleSet(allowUnsigned bool, members ...[20]byte) OracleSet {
	set := OracleSet{Members: make(map[[20]byte]struct{}, len(members)), AllowUnsigned: allowUnsigned}
	for _, m := range members {
		set.Members[m] = struct{}{}
	}
	return set
}

func (s OracleSet) EnsureOrigin(o Origin) error {
	switch o.Kind {
	case OriginRoot:
		return nil
	case OriginUnsigned:
		if s.AllowUnsigned {
			return nil
		}
	case OriginSigned:
		if _, ok := s.Members[o.Signer]; ok {
			return nil
		}
	}
	return ErrBadOrigin
}
