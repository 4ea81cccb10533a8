package inbox

import (
	"sort"

	"bebusy.app/inbox/internal/model"
)

// Reconciler applies accepted events to the in-memory thread list. It
// never creates threads: an event for a thread that is not loaded is a
// no-op, because discovering new threads requires a full reload.
//
// Application is synchronous and total; every accepted event leaves the
// collection fully sorted before the next one is looked at. The
// reconciler is not safe for concurrent use; a session drives it from
// a single goroutine.
type Reconciler struct {
	currentUserID int64
	threads       []model.ThreadSummary
}

func NewReconciler(currentUserID int64, snapshot []model.ThreadSummary) *Reconciler {
	r := &Reconciler{
		currentUserID: currentUserID,
		threads:       append([]model.ThreadSummary(nil), snapshot...),
	}
	r.resort()
	return r
}

// Apply mutates the collection with one accepted event.
func (r *Reconciler) Apply(ev Event) {
	idx := r.find(ev.ThreadID, ev.ThreadKind)
	if idx < 0 {
		return
	}
	t := &r.threads[idx]

	switch ev.Kind {
	case EventInsert:
		if ev.SenderID != r.currentUserID {
			t.UnreadCount++
		}
		// Idempotence guard: a second delivery path that slipped past
		// the gate must not clobber the snapshot it already wrote.
		if t.LastMessage == nil || t.LastMessage.ID != ev.ID {
			t.LastMessage = &model.MessageSnapshot{
				ID:        ev.ID,
				SenderID:  ev.SenderID,
				CreatedAt: ev.CreatedAt,
				Content:   ev.Content,
				FileType:  ev.FileType,
			}
		}
		t.UpdatedAt = ev.CreatedAt

	case EventUpdateRead:
		if ev.IsRead && t.UnreadCount > 0 {
			t.UnreadCount--
		}
	}

	r.resort()
}

// ApplyRead applies a read acknowledgement, clamping unread at zero.
func (r *Reconciler) ApplyRead(ack ReadAck) {
	idx := r.find(ack.ThreadID, ack.ThreadKind)
	if idx < 0 {
		return
	}
	t := &r.threads[idx]

	t.UnreadCount -= ack.CountDecremented
	if t.UnreadCount < 0 {
		t.UnreadCount = 0
	}

	r.resort()
}

// Snapshot returns a copy of the collection for projection.
func (r *Reconciler) Snapshot() []model.ThreadSummary {
	out := make([]model.ThreadSummary, len(r.threads))
	copy(out, r.threads)
	return out
}

func (r *Reconciler) find(threadID int64, kind model.ThreadKind) int {
	for i := range r.threads {
		if r.threads[i].ID == threadID && r.threads[i].Kind == kind {
			return i
		}
	}
	return -1
}

func (r *Reconciler) resort() {
	sort.SliceStable(r.threads, func(i, j int) bool {
		return r.threads[i].UpdatedAt.After(r.threads[j].UpdatedAt)
	})
}
