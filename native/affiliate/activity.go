package affiliate

import "dustchain/core/types"

// directRing counts active direct referrals per week in a fixed number of
// slots indexed by week modulo the slot count.
type directRing struct {
	Weeks  []uint64
	Counts []uint32
}

func (r *directRing) slot(week uint64) int {
	return int(week % uint64(len(r.Weeks)))
}

func (r *directRing) count(week uint64) uint32 {
	if len(r.Weeks) == 0 {
		return 0
	}
	i := r.slot(week)
	if r.Weeks[i] != week {
		return 0
	}
	return r.Counts[i]
}

func (r *directRing) incr(week uint64, size int) {
	if len(r.Weeks) != size {
		r.Weeks = make([]uint64, size)
		r.Counts = make([]uint32, size)
	}
	i := r.slot(week)
	if r.Weeks[i] != week {
		r.Weeks[i] = week
		r.Counts[i] = 0
	}
	r.Counts[i]++
}

func (e *Engine) ringSize() int {
	if e.params.MaxActiveWeeks == 0 {
		return 1
	}
	return int(e.params.MaxActiveWeeks)
}

// ActiveUntilWeek returns the last week in which who is eligible for rewards.
func (e *Engine) ActiveUntilWeek(who [20]byte) (uint64, bool, error) {
	if e == nil || e.store == nil {
		return 0, false, errNilState
	}
	var until uint64
	ok, err := e.store.KVGet(activeKey(who), &until)
	return until, ok, err
}

// IsActive reports whether who is eligible in the current week.
func (e *Engine) IsActive(who [20]byte) (bool, error) {
	until, ok, err := e.ActiveUntilWeek(who)
	if err != nil || !ok {
		return false, err
	}
	week, err := e.CurrentCycle()
	if err != nil {
		return false, err
	}
	return until >= uint64(week), nil
}

// DirectActiveCount returns how many direct referrals of who are active in
// the current week.
func (e *Engine) DirectActiveCount(who [20]byte) (uint32, error) {
	week, err := e.CurrentCycle()
	if err != nil {
		return 0, err
	}
	return e.directActiveAt(who, uint64(week))
}

func (e *Engine) directActiveAt(who [20]byte, week uint64) (uint32, error) {
	var ring directRing
	if _, err := e.store.KVGet(directActiveKey(who), &ring); err != nil {
		return 0, err
	}
	return ring.count(week), nil
}

func (e *Engine) creditSponsor(sponsor [20]byte, from, to uint64) error {
	if from > to {
		return nil
	}
	var ring directRing
	if _, err := e.store.KVGet(directActiveKey(sponsor), &ring); err != nil {
		return err
	}
	size := e.ringSize()
	for w := from; w <= to; w++ {
		ring.incr(w, size)
	}
	return e.store.KVPut(directActiveKey(sponsor), &ring)
}

// MarkActive extends who's eligibility to cover the next weeks weeks,
// including the current one. Extensions are capped at MaxActiveWeeks and never
// shorten an existing window.
func (e *Engine) MarkActive(who [20]byte, weeks uint32) error {
	if e == nil || e.store == nil {
		return errNilState
	}
	if weeks == 0 {
		return nil
	}
	if e.params.MaxActiveWeeks > 0 && weeks > e.params.MaxActiveWeeks {
		weeks = e.params.MaxActiveWeeks
	}
	cycle, err := e.CurrentCycle()
	if err != nil {
		return err
	}
	current := uint64(cycle)
	target := current + uint64(weeks) - 1
	prev, ok, err := e.ActiveUntilWeek(who)
	if err != nil {
		return err
	}
	if ok && prev >= target {
		return nil
	}
	start := current
	if ok && prev+1 > start {
		start = prev + 1
	}
	if err := e.store.KVPut(activeKey(who), target); err != nil {
		return err
	}
	if sponsor, bound, err := e.SponsorOf(who); err != nil {
		return err
	} else if bound {
		if err := e.creditSponsor(sponsor, start, target); err != nil {
			return err
		}
	}
	e.emit(types.NewEvent(EventTypeMarkedActive).
		WithHex("account", who[:]).
		WithUint("untilWeek", target))
	return nil
}

// creditExistingActivity counts an already active account towards a sponsor
// it binds to later.
func (e *Engine) creditExistingActivity(who, sponsor [20]byte) error {
	until, ok, err := e.ActiveUntilWeek(who)
	if err != nil || !ok {
		return err
	}
	cycle, err := e.CurrentCycle()
	if err != nil {
		return err
	}
	return e.creditSponsor(sponsor, uint64(cycle), until)
}

// eligible applies activity gating for an ancestor at level.
func (e *Engine) eligible(acc [20]byte, level int, week uint64) (bool, error) {
	if e.params.RequireActive {
		until, ok, err := e.ActiveUntilWeek(acc)
		if err != nil {
			return false, err
		}
		if !ok || until < week {
			return false, nil
		}
	}
	if required := e.params.MinDirectActive[level]; required > 0 {
		n, err := e.directActiveAt(acc, week)
		if err != nil {
			return false, err
		}
		if n < required {
			return false, nil
		}
	}
	return true, nil
}
