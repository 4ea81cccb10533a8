package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bebusy.app/inbox/common/logger"
	"bebusy.app/inbox/internal/bus"
	"bebusy.app/inbox/internal/model"
)

// ThreadLoader fetches the full thread-summary snapshot once, on
// session start.
type ThreadLoader interface {
	LoadThreads(ctx context.Context, userID int64) ([]model.ThreadSummary, error)
}

// Feed is the external change-feed subscription. The returned func
// unsubscribes; it must be safe to call once the session closes.
type Feed interface {
	Subscribe(ctx context.Context, onEvent func(RawEvent)) (func(), error)
}

// SessionConfig tunes one live inbox session.
type SessionConfig struct {
	UserID      int64
	DedupWindow time.Duration
	Buffer      int
	Clock       Clock
}

// Session hosts the reconciliation pipeline for one live inbox view:
// snapshot load, feed subscription, local broadcast subscription, and
// read acknowledgements, all funnelled through a single event loop.
//
// Every pipeline error is contained here: logged, never propagated.
// An escaped panic or error inside the loop would desynchronize the
// view with no way to recover short of a reload. Only the initial
// snapshot load reports failure to the caller.
type Session struct {
	userID  int64
	adapter *Adapter
	gate    *Gate
	rec     *Reconciler
	logger  *slog.Logger

	intake  chan intake
	updates chan []model.ThreadSummary
	done    chan struct{}
	stopped chan struct{}

	unsubFeed func()
	unsubBus  func()

	mu     sync.RWMutex
	latest []model.ThreadSummary

	closeOnce sync.Once
}

type intake struct {
	raw *RawEvent
	ack *ReadAck
}

// NewSession loads the snapshot and wires the pipeline. A load failure
// is returned to the caller (surfaced once, no retry loop); after that,
// the session runs until Close.
func NewSession(ctx context.Context, cfg SessionConfig, loader ThreadLoader, feed Feed, fetcher RecordFetcher, b *bus.Bus) (*Session, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		UserID:    logger.Ptr(cfg.UserID),
		Component: "inbox.session",
	})
	log := slog.Default()

	snapshot, err := loader.LoadThreads(ctx, cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading threads: %w", err)
	}

	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = 16
	}

	s := &Session{
		userID:  cfg.UserID,
		adapter: NewAdapter(fetcher, log),
		gate:    NewGate(cfg.DedupWindow, cfg.Clock),
		rec:     NewReconciler(cfg.UserID, snapshot),
		logger:  log,
		intake:  make(chan intake, buffer),
		updates: make(chan []model.ThreadSummary, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	s.latest = s.rec.Snapshot()

	unsubFeed, err := feed.Subscribe(ctx, func(raw RawEvent) {
		s.enqueue(intake{raw: &raw})
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to feed: %w", err)
	}
	s.unsubFeed = unsubFeed

	busCh, unsubBus := b.Subscribe()
	s.unsubBus = unsubBus
	go s.forwardBus(busCh)

	go s.run(ctx)

	return s, nil
}

// Snapshot returns the latest reconciled collection.
func (s *Session) Snapshot() []model.ThreadSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ThreadSummary, len(s.latest))
	copy(out, s.latest)
	return out
}

// Updates signals a new snapshot after each applied event. The channel
// is conflated: a slow consumer sees only the most recent state.
func (s *Session) Updates() <-chan []model.ThreadSummary {
	return s.updates
}

// Close tears the pipeline down: feed unsubscribed, bus subscription
// removed, event loop stopped. In-flight reconciliation cannot straddle
// teardown since each application runs to completion.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.unsubFeed != nil {
			s.unsubFeed()
		}
		if s.unsubBus != nil {
			s.unsubBus()
		}
		<-s.stopped
	})
}

func (s *Session) enqueue(in intake) {
	select {
	case s.intake <- in:
	case <-s.done:
	default:
		// Shed load rather than block a delivery path; the feed is
		// best-effort and a reload recovers.
		s.logger.Warn("inbox session intake full, dropping event")
	}
}

func (s *Session) forwardBus(ch <-chan bus.Envelope) {
	for {
		select {
		case <-s.done:
			return
		case env, ok := <-ch:
			if !ok {
				return
			}
			switch env.Name {
			case bus.MessageInserted:
				if raw, ok := env.Payload.(RawEvent); ok {
					s.enqueue(intake{raw: &raw})
				}
			case bus.MessagesRead:
				if ack, ok := env.Payload.(ReadAck); ok {
					s.enqueue(intake{ack: &ack})
				}
			}
		}
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case in := <-s.intake:
			s.handleSafe(ctx, in)
		}
	}
}

// handleSafe keeps the loop alive no matter what a single event does.
func (s *Session) handleSafe(ctx context.Context, in intake) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "panic recovered in inbox pipeline", "panic", r)
		}
	}()
	s.handle(ctx, in)
}

func (s *Session) handle(ctx context.Context, in intake) {
	switch {
	case in.ack != nil:
		// Read acks bypass the gate: they are always applied.
		s.rec.ApplyRead(*in.ack)

	case in.raw != nil:
		ev, ok := s.adapter.Normalize(ctx, *in.raw)
		if !ok {
			return
		}
		if !s.gate.Admit(ev.ID) {
			s.logger.DebugContext(ctx, "duplicate event suppressed",
				"event_id", ev.ID, "thread_id", ev.ThreadID)
			return
		}
		s.rec.Apply(ev)

	default:
		return
	}

	s.publish()
}

func (s *Session) publish() {
	snap := s.rec.Snapshot()

	s.mu.Lock()
	s.latest = snap
	s.mu.Unlock()

	// Conflate: replace a pending update instead of blocking.
	select {
	case s.updates <- snap:
	default:
		select {
		case <-s.updates:
		default:
		}
		select {
		case s.updates <- snap:
		default:
		}
	}
}
