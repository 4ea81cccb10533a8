package inbox

import "time"

// Clock injects time into the gate so tests are deterministic.
type Clock func() time.Time

// Gate guarantees each distinct event id is applied at most once per
// session, even though the same underlying action can arrive from two
// sources (the subscribed feed and the local broadcast).
//
// Entries expire after a fixed window. The window bounds memory over a
// long-lived session and only has to exceed the skew between the two
// delivery paths; a duplicate arriving after the window is not caught.
// This is a best-effort, session-local gate, not exactly-once delivery.
type Gate struct {
	window time.Duration
	clock  Clock
	seen   map[int64]time.Time // id -> expiry
}

const DefaultDedupWindow = 5 * time.Second

func NewGate(window time.Duration, clock Clock) *Gate {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	if clock == nil {
		clock = time.Now
	}
	return &Gate{
		window: window,
		clock:  clock,
		seen:   make(map[int64]time.Time),
	}
}

// Admit reports whether the event id should be processed. The first
// sighting within the window admits and records the id; repeats are
// rejected until the entry expires.
func (g *Gate) Admit(id int64) bool {
	now := g.clock()
	g.sweep(now)

	if _, dup := g.seen[id]; dup {
		return false
	}
	g.seen[id] = now.Add(g.window)
	return true
}

// Len returns the number of live entries, sweeping expired ones first.
func (g *Gate) Len() int {
	g.sweep(g.clock())
	return len(g.seen)
}

// Lazy sweep instead of a timer per entry: the map never outgrows the
// events seen inside one window, so a full scan per admit is cheap.
func (g *Gate) sweep(now time.Time) {
	for id, expiry := range g.seen {
		if !expiry.After(now) {
			delete(g.seen, id)
		}
	}
}
