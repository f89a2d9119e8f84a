package application

import (
	"sort"
	"sync"

	"github.com/ark-network/wager/internal/core/domain"
)

// TrackedPool is a registry entry for a pool awaiting an automatic action.
// A zero Deadline means the pool waits for an external action, like an
// administrator resolving a dispute.
type TrackedPool struct {
	PoolId    uint64
	Deadline  int64
	Phase     domain.Phase
	Scheduled bool
	InFlight  bool
	Attempts  int
	LastError string
}

// poolRegistry is the single place where tracking state is mutated.
type poolRegistry struct {
	lock    sync.Mutex
	entries map[uint64]*TrackedPool
}

func newPoolRegistry() *poolRegistry {
	return &poolRegistry{entries: make(map[uint64]*TrackedPool)}
}

// track upserts the entry and reports whether a timer must be armed for it.
func (r *poolRegistry) track(id uint64, deadline int64, phase domain.Phase) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		entry = &TrackedPool{PoolId: id}
		r.entries[id] = entry
	}
	entry.Phase = phase

	if ok && entry.Deadline == deadline && (entry.Scheduled || entry.InFlight) {
		return false
	}
	entry.Deadline = deadline
	if deadline <= 0 || entry.InFlight {
		entry.Scheduled = false
		return false
	}
	entry.Scheduled = true
	return true
}

// unschedule clears the scheduled flag after a timer could not be armed.
func (r *poolRegistry) unschedule(id uint64) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if entry, ok := r.entries[id]; ok {
		entry.Scheduled = false
	}
}

// fire consumes the timer armed for deadline. Timers armed for a deadline
// that has since changed are stale and must not run.
func (r *poolRegistry) fire(id uint64, deadline int64) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	entry, ok := r.entries[id]
	if !ok || !entry.Scheduled || entry.Deadline != deadline {
		return false
	}
	entry.Scheduled = false
	return true
}

func (r *poolRegistry) begin(id uint64) {
	r.lock.Lock()
	defer r.lock.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		entry = &TrackedPool{PoolId: id}
		r.entries[id] = entry
	}
	entry.InFlight = true
	entry.Attempts++
}

func (r *poolRegistry) finish(id uint64, err error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return
	}
	entry.InFlight = false
	entry.LastError = ""
	if err != nil {
		entry.LastError = err.Error()
	}
}

func (r *poolRegistry) remove(id uint64) {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.entries, id)
}

// prune drops idle entries of pools missing from open.
func (r *poolRegistry) prune(open map[uint64]struct{}) []uint64 {
	r.lock.Lock()
	defer r.lock.Unlock()

	removed := make([]uint64, 0)
	for id, entry := range r.entries {
		if _, ok := open[id]; ok || entry.InFlight {
			continue
		}
		delete(r.entries, id)
		removed = append(removed, id)
	}
	return removed
}

func (r *poolRegistry) get(id uint64) (TrackedPool, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return TrackedPool{}, false
	}
	return *entry, true
}

func (r *poolRegistry) list() []TrackedPool {
	r.lock.Lock()
	defer r.lock.Unlock()

	list := make([]TrackedPool, 0, len(r.entries))
	for _, entry := range r.entries {
		list = append(list, *entry)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Deadline == list[j].Deadline {
			return list[i].PoolId < list[j].PoolId
		}
		return list[i].Deadline < list[j].Deadline
	})
	return list
}
