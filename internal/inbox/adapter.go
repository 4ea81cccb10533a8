package inbox

import (
	"context"
	"log/slog"

	"bebusy.app/inbox/internal/model"
)

// RecordFetcher completes partial feed payloads by re-fetching the full
// message row by id.
type RecordFetcher interface {
	FetchMessage(ctx context.Context, id int64) (*model.Message, error)
}

// Adapter normalizes raw change-feed payloads (from the subscription or
// the local broadcast bus) into Events. Inputs it cannot complete are
// dropped, never surfaced.
type Adapter struct {
	fetcher RecordFetcher
	logger  *slog.Logger
}

func NewAdapter(fetcher RecordFetcher, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{fetcher: fetcher, logger: logger}
}

// Normalize turns a raw payload into an Event. The second return is
// false when the input was discarded (unknown type, malformed record,
// or a partial record whose re-fetch failed).
func (a *Adapter) Normalize(ctx context.Context, raw RawEvent) (Event, bool) {
	if raw.Type != ChangeInsert && raw.Type != ChangeUpdate {
		return Event{}, false
	}

	rec := raw.Record
	if rec == nil || rec.ID == 0 {
		a.logger.DebugContext(ctx, "dropping malformed feed payload", "event_type", raw.Type)
		return Event{}, false
	}

	// Some realtime payloads arrive without sender_id. Decisions
	// (increment vs. decrement) must be made on real data, so fetch the
	// row; if that fails, skip the event rather than guess.
	if rec.Partial() {
		full, err := a.fetcher.FetchMessage(ctx, rec.ID)
		if err != nil || full == nil {
			a.logger.DebugContext(ctx, "skipping incomplete feed payload",
				"record_id", rec.ID, "error", err)
			return Event{}, false
		}
		rec = recordFromMessage(full)
	}

	threadID, threadKind := threadOf(rec)
	if threadID == 0 {
		a.logger.DebugContext(ctx, "dropping feed payload without thread", "record_id", rec.ID)
		return Event{}, false
	}

	ev := Event{
		ID:         rec.ID,
		ThreadID:   threadID,
		ThreadKind: threadKind,
		SenderID:   *rec.SenderID,
		CreatedAt:  *rec.CreatedAt,
		Content:    rec.Content,
		FileType:   rec.FileType,
	}

	switch raw.Type {
	case ChangeInsert:
		ev.Kind = EventInsert
	case ChangeUpdate:
		ev.Kind = EventUpdateRead
		if rec.IsRead != nil {
			ev.IsRead = *rec.IsRead
		}
	}

	return ev, true
}

func recordFromMessage(m *model.Message) *RawRecord {
	isRead := m.IsRead
	senderID := m.SenderID
	createdAt := m.CreatedAt
	return &RawRecord{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		GroupID:        m.GroupID,
		SenderID:       &senderID,
		IsRead:         &isRead,
		CreatedAt:      &createdAt,
		Content:        m.Content,
		FileType:       m.FileType,
	}
}

func threadOf(rec *RawRecord) (int64, model.ThreadKind) {
	if rec.GroupID != nil {
		return *rec.GroupID, model.ThreadGroup
	}
	if rec.ConversationID != nil {
		return *rec.ConversationID, model.ThreadDirect
	}
	return 0, ""
}
