package affiliate

import "dustchain/core/types"

func (e *Engine) validCode(code string) bool {
	if len(code) < e.params.MinCodeLen || len(code) > e.params.MaxCodeLen {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

// ClaimCode reserves code for who. Codes are case-sensitive and each account
// holds at most one.
func (e *Engine) ClaimCode(who [20]byte, code string) error {
	if err := e.guard(); err != nil {
		return err
	}
	if !e.validCode(code) {
		return ErrInvalidCode
	}
	has, err := e.store.KVGet(codeOfKey(who), nil)
	if err != nil {
		return err
	}
	if has {
		return ErrAlreadyHasCode
	}
	taken, err := e.store.KVGet(codeKey(code), nil)
	if err != nil {
		return err
	}
	if taken {
		return ErrCodeAlreadyTaken
	}
	if err := e.store.KVPut(codeKey(code), who); err != nil {
		return err
	}
	if err := e.store.KVPut(codeOfKey(who), code); err != nil {
		return err
	}
	e.emit(types.NewEvent(EventTypeCodeClaimed).WithHex("account", who[:]).With("code", code))
	return nil
}

// CodeOf returns the code claimed by who.
func (e *Engine) CodeOf(who [20]byte) (string, bool, error) {
	if e == nil || e.store == nil {
		return "", false, errNilState
	}
	var code string
	ok, err := e.store.KVGet(codeOfKey(who), &code)
	return code, ok, err
}

// ResolveCode returns the owner of code.
func (e *Engine) ResolveCode(code string) ([20]byte, bool, error) {
	if e == nil || e.store == nil {
		return [20]byte{}, false, errNilState
	}
	var owner [20]byte
	ok, err := e.store.KVGet(codeKey(code), &owner)
	return owner, ok, err
}

// SponsorOf returns the sponsor bound to who.
func (e *Engine) SponsorOf(who [20]byte) ([20]byte, bool, error) {
	if e == nil || e.store == nil {
		return [20]byte{}, false, errNilState
	}
	var sponsor [20]byte
	ok, err := e.store.KVGet(sponsorKey(who), &sponsor)
	return sponsor, ok, err
}

// BindSponsor binds who to the owner of code. Bindings are write-once.
func (e *Engine) BindSponsor(who [20]byte, code string) error {
	if err := e.guard(); err != nil {
		return err
	}
	sponsor, ok, err := e.ResolveCode(code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCodeNotFound
	}
	if _, bound, err := e.SponsorOf(who); err != nil {
		return err
	} else if bound {
		return ErrAlreadyBound
	}
	if sponsor == who {
		return ErrSelfSponsor
	}
	if e.params.RequireMemberSponsor {
		member, err := e.isMember(sponsor)
		if err != nil {
			return err
		}
		if !member {
			return ErrSponsorNotMember
		}
	}
	upline, err := e.Chain(sponsor)
	if err != nil {
		return err
	}
	for _, anc := range upline {
		if anc == who {
			return ErrCycleDetected
		}
	}
	if err := e.store.KVPut(sponsorKey(who), sponsor); err != nil {
		return err
	}
	if err := e.creditExistingActivity(who, sponsor); err != nil {
		return err
	}
	e.emit(types.NewEvent(EventTypeSponsorBound).
		WithHex("account", who[:]).
		WithHex("sponsor", sponsor[:]).
		With("code", code))
	return nil
}

// Chain walks the sponsors of who, nearest first, stopping after MaxLevels
// ancestors, at an unbound account, or at a repeated account.
func (e *Engine) Chain(who [20]byte) ([][20]byte, error) {
	out := make([][20]byte, 0, MaxLevels)
	seen := map[[20]byte]struct{}{who: {}}
	cur := who
	for len(out) < MaxLevels {
		sponsor, ok, err := e.SponsorOf(cur)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if _, dup := seen[sponsor]; dup {
			break
		}
		seen[sponsor] = struct{}{}
		out = append(out, sponsor)
		cur = sponsor
	}
	return out, nil
}

func (e *Engine) isMember(who [20]byte) (bool, error) {
	if e.membership != nil {
		return e.membership.IsMember(who)
	}
	return e.IsMember(who)
}
