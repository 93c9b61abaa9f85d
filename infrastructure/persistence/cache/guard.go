package cache

import "sync"

// maxTrackedWrites bounds the write table while readers stay in flight.
const maxTrackedWrites = 1024

// populateGuard closes the window between a read's store query and its
// cache populate. Writers stamp each identity they touch with a new epoch
// after committing. A reader snapshots the epoch before querying the store
// and may only populate if none of its identities were stamped after that
// snapshot.
//
// A nil *populateGuard allows every populate.
type populateGuard struct {
	mu       sync.Mutex
	epoch    uint64
	inflight map[uint64]int
	writes   map[string]uint64
}

func newPopulateGuard() *populateGuard {
	return &populateGuard{
		inflight: make(map[uint64]int),
		writes:   make(map[string]uint64),
	}
}

// begin registers a reader and returns its snapshot. Every begin must be
// paired with end.
func (g *populateGuard) begin() uint64 {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inflight[g.epoch]++
	return g.epoch
}

func (g *populateGuard) end(snapshot uint64) {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inflight[snapshot] <= 1 {
		delete(g.inflight, snapshot)
	} else {
		g.inflight[snapshot]--
	}
	// Nobody can be stale relative to past writes once no reader is in flight.
	if len(g.inflight) == 0 && len(g.writes) > 0 {
		g.writes = make(map[string]uint64)
	}
}

// recordWrite stamps identities with a fresh epoch. Call it after the store
// commit and before invalidating.
func (g *populateGuard) recordWrite(identities ...string) {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.epoch++
	if len(g.inflight) == 0 {
		return
	}
	for _, id := range identities {
		g.writes[id] = g.epoch
	}
	if len(g.writes) > maxTrackedWrites {
		g.prune()
	}
}

// allowed reports whether a reader holding snapshot may populate entries
// derived from identities.
func (g *populateGuard) allowed(snapshot uint64, identities ...string) bool {
	if g == nil {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range identities {
		if g.writes[id] > snapshot {
			return false
		}
	}
	return true
}

// prune drops stamps no in-flight reader can be blocked by. Must be called
// with the lock held.
func (g *populateGuard) prune() {
	oldest := g.epoch
	for snapshot := range g.inflight {
		if snapshot < oldest {
			oldest = snapshot
		}
	}
	for id, stamped := range g.writes {
		if stamped <= oldest {
			delete(g.writes, id)
		}
	}
}

func orderIdentity(id string) string {
	return "order:" + id
}

func customerIdentity(customerID string) string {
	return "customer:" + customerID
}
