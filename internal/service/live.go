package service

import (
	"context"
	"time"

	"bebusy.app/inbox/internal/bus"
	"bebusy.app/inbox/internal/inbox"
	"bebusy.app/inbox/internal/model"
)

// LiveService opens reconciling inbox sessions and serves one-shot
// snapshot views.
type LiveService struct {
	threads     inbox.ThreadLoader
	feed        inbox.Feed
	fetcher     inbox.RecordFetcher
	bus         *bus.Bus
	dedupWindow time.Duration
	buffer      int
}

type LiveConfig struct {
	DedupWindow time.Duration
	Buffer      int
}

func NewLiveService(threads inbox.ThreadLoader, feed inbox.Feed, fetcher inbox.RecordFetcher, b *bus.Bus, cfg LiveConfig) *LiveService {
	return &LiveService{
		threads:     threads,
		feed:        feed,
		fetcher:     fetcher,
		bus:         b,
		dedupWindow: cfg.DedupWindow,
		buffer:      cfg.Buffer,
	}
}

// Open starts a live session for one connected client. The caller owns
// the session and must Close it when the connection ends.
func (s *LiveService) Open(ctx context.Context, userID int64) (*inbox.Session, error) {
	return inbox.NewSession(ctx, inbox.SessionConfig{
		UserID:      userID,
		DedupWindow: s.dedupWindow,
		Buffer:      s.buffer,
	}, s.threads, s.feed, s.fetcher, s.bus)
}

// View loads a one-shot filtered snapshot, for clients that poll
// instead of streaming.
func (s *LiveService) View(ctx context.Context, userID int64, tab inbox.Tab) (inbox.View, error) {
	threads, err := s.threads.LoadThreads(ctx, userID)
	if err != nil {
		return inbox.View{}, err
	}
	return inbox.Project(threads, tab), nil
}

// MessageFetcher adapts a message store to the re-fetch hook partial
// feed payloads need.
type MessageFetcher struct {
	Messages interface {
		GetByID(ctx context.Context, msgID int64) (*model.Message, error)
	}
}

func (f MessageFetcher) FetchMessage(ctx context.Context, msgID int64) (*model.Message, error) {
	return f.Messages.GetByID(ctx, msgID)
}
