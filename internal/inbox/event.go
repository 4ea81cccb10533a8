package inbox

import (
	"time"

	"bebusy.app/inbox/internal/model"
)

// EventKind classifies a normalized inbound event.
type EventKind string

const (
	// EventInsert is a newly delivered message.
	EventInsert EventKind = "insert"
	// EventUpdateRead is an update flipping a message's read flag.
	EventUpdateRead EventKind = "update_read"
)

// Event is the single normalized shape every input source is adapted
// into before it reaches the dedup gate and the reconciler.
type Event struct {
	ID         int64
	ThreadID   int64
	ThreadKind model.ThreadKind
	Kind       EventKind
	SenderID   int64
	IsRead     bool
	CreatedAt  time.Time
	Content    string
	FileType   *string
}

// ReadAck is emitted by a thread-detail view when it marks messages
// read. It bypasses the dedup gate and is always applied.
type ReadAck struct {
	ThreadID         int64            `json:"thread_id"`
	ThreadKind       model.ThreadKind `json:"thread_kind"`
	CountDecremented int              `json:"count_decremented"`
}

// Change-feed event types, matching the platform's row-change payloads.
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
)

// RawEvent is a change-feed payload before normalization. Record may be
// partial: some delivery paths omit sender_id (and friends), in which
// case the adapter re-fetches the full row before deciding anything.
type RawEvent struct {
	Type   string     `json:"event_type"`
	Record *RawRecord `json:"record"`
}

// RawRecord mirrors a messages row as delivered by the feed. Pointer
// fields are the ones partial payloads drop.
type RawRecord struct {
	ID             int64      `json:"id"`
	ConversationID *int64     `json:"conversation_id,omitempty"`
	GroupID        *int64     `json:"group_id,omitempty"`
	SenderID       *int64     `json:"sender_id,omitempty"`
	IsRead         *bool      `json:"is_read,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	Content        string     `json:"content,omitempty"`
	FileType       *string    `json:"file_type,omitempty"`
}

// Partial reports whether the record is missing the fields the
// reconciler's decisions depend on.
func (r *RawRecord) Partial() bool {
	return r.SenderID == nil || r.CreatedAt == nil
}
