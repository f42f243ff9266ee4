package botdb

import (
	"container/list"
	"sync"

	"github.com/yndnr/botvault/internal/core/domain"
)

// tier is one priority level of the redemption queue: an insertion-ordered,
// case-insensitive key -> name map. All methods except newTier require mu.
type tier struct {
	mu    sync.Mutex
	order *list.List // of domain.RedeemItem
	index map[string]*list.Element
}

func (t *tier) init() {
	t.order = list.New()
	t.index = make(map[string]*list.Element)
}

// upsert appends item, or renames an existing key in place.
func (t *tier) upsert(item domain.RedeemItem) {
	norm := domain.NormalizeCDKey(item.Key)
	if e, ok := t.index[norm]; ok {
		cur := e.Value.(domain.RedeemItem)
		cur.Name = item.Name
		e.Value = cur
		return
	}
	t.index[norm] = t.order.PushBack(item)
}

func (t *tier) front() (domain.RedeemItem, bool) {
	e := t.order.Front()
	if e == nil {
		return domain.RedeemItem{}, false
	}
	return e.Value.(domain.RedeemItem), true
}

func (t *tier) remove(key string) bool {
	norm := domain.NormalizeCDKey(key)
	e, ok := t.index[norm]
	if !ok {
		return false
	}
	t.order.Remove(e)
	delete(t.index, norm)
	return true
}

func (t *tier) clear() int {
	n := t.order.Len()
	if n > 0 {
		t.init()
	}
	return n
}

func (t *tier) len() int {
	return t.order.Len()
}

func (t *tier) items() []domain.RedeemItem {
	out := make([]domain.RedeemItem, 0, t.order.Len())
	for e := t.order.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(domain.RedeemItem))
	}
	return out
}

// redeemQueue is the three-tier background redemption queue.
type redeemQueue struct {
	high   tier
	normal tier
	low    tier
}

func (q *redeemQueue) init() {
	q.high.init()
	q.normal.init()
	q.low.init()
}

func (q *redeemQueue) tier(p domain.Priority) *tier {
	switch p {
	case domain.PriorityHigh:
		return &q.high
	case domain.PriorityLow:
		return &q.low
	default:
		return &q.normal
	}
}

// locker returns the helper every multi-tier operation must lock through.
func (q *redeemQueue) locker() tierLocker {
	return tierLocker{&q.high, &q.normal, &q.low}
}

// tierLocker holds the tiers in drain order. lockAll acquires them in that
// order and unlockAll releases them in reverse.
type tierLocker [3]*tier

func (l tierLocker) lockAll() {
	for _, t := range l {
		t.mu.Lock()
	}
}

func (l tierLocker) unlockAll() {
	for i := len(l) - 1; i >= 0; i-- {
		l[i].mu.Unlock()
	}
}

// Enqueue adds items to the default (normal) tier.
func (d *Database) Enqueue(items []domain.RedeemItem) error {
	return d.EnqueueRedeem(items, domain.DefaultPriority)
}

// EnqueueRedeem adds items to the tier for p. The whole batch is validated
// first; on any invalid item nothing is inserted. Re-adding a key already in
// the tier updates its name and keeps its position.
//
// A zero Priority selects the low tier. Callers without a preference should
// use Enqueue.
func (d *Database) EnqueueRedeem(items []domain.RedeemItem, p domain.Priority) error {
	if len(items) == 0 {
		return domain.ErrInvalidArgument.WithDetails("empty redeem batch")
	}
	if !p.Valid() {
		return domain.ErrInvalidArgument.WithDetails("unknown priority " + p.String())
	}
	if d.Closed() {
		return domain.ErrDatabaseClosed
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
	}

	t := d.queue.tier(p)
	t.mu.Lock()
	for _, item := range items {
		t.upsert(item)
	}
	t.mu.Unlock()

	d.scheduleSave()
	return nil
}

// NextRedeem returns the head of the highest non-empty tier without removing
// it. Tiers are locked one at a time.
func (d *Database) NextRedeem() (domain.RedeemItem, domain.Priority, bool) {
	for _, p := range domain.Priorities {
		t := d.queue.tier(p)
		t.mu.Lock()
		item, ok := t.front()
		t.mu.Unlock()
		if ok {
			return item, p, true
		}
	}
	return domain.RedeemItem{}, 0, false
}

// RemoveRedeem removes key from the highest tier holding it. A key queued in
// several tiers stays in the lower ones.
func (d *Database) RemoveRedeem(key string) (bool, error) {
	if key == "" {
		return false, domain.ErrInvalidArgument.WithDetails("empty redeem key")
	}
	if d.Closed() {
		return false, domain.ErrDatabaseClosed
	}

	for _, p := range domain.Priorities {
		t := d.queue.tier(p)
		t.mu.Lock()
		removed := t.remove(key)
		t.mu.Unlock()
		if removed {
			d.scheduleSave()
			return true, nil
		}
	}
	return false, nil
}

// ClearRedeem empties every tier and reports whether anything was removed.
func (d *Database) ClearRedeem() bool {
	l := d.queue.locker()
	l.lockAll()
	var n int
	for _, t := range l {
		n += t.clear()
	}
	l.unlockAll()

	if n == 0 {
		return false
	}
	d.scheduleSave()
	return true
}

// RedeemCount returns the number of queued items across all tiers.
func (d *Database) RedeemCount() int {
	var n int
	for _, depth := range d.RedeemDepths() {
		n += depth
	}
	return n
}

// RedeemDepths returns the size of each tier, indexed by Priority, taken
// under all three tier locks.
func (d *Database) RedeemDepths() [3]int {
	l := d.queue.locker()
	l.lockAll()
	defer l.unlockAll()

	var depths [3]int
	for _, p := range domain.Priorities {
		depths[p] = d.queue.tier(p).len()
	}
	return depths
}

// RedeemItems returns the items of one tier in queue order.
func (d *Database) RedeemItems(p domain.Priority) []domain.RedeemItem {
	t := d.queue.tier(p)
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.items()
}
