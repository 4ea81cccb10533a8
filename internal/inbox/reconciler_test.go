package inbox_test

import (
	"sort"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"bebusy.app/inbox/internal/inbox"
	"bebusy.app/inbox/internal/model"
)

var _ = Describe("Reconciler", func() {
	const me int64 = 100

	var (
		rec *inbox.Reconciler
		t0  time.Time
	)

	snapshot := func() []model.ThreadSummary { return rec.Snapshot() }

	byID := func(id int64, kind model.ThreadKind) *model.ThreadSummary {
		for _, t := range rec.Snapshot() {
			if t.ID == id && t.Kind == kind {
				cp := t
				return &cp
			}
		}
		return nil
	}

	BeforeEach(func() {
		t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		rec = inbox.NewReconciler(me, []model.ThreadSummary{
			{ID: 1, Kind: model.ThreadDirect, UnreadCount: 0, UpdatedAt: t0},
			{ID: 2, Kind: model.ThreadDirect, UnreadCount: 3, UpdatedAt: t0.Add(-time.Hour)},
			{ID: 7, Kind: model.ThreadGroup, UnreadCount: 1, UpdatedAt: t0.Add(-2 * time.Hour)},
		})
	})

	Describe("insert events", func() {
		It("increments unread, updates the preview, and moves the thread to the top", func() {
			t1 := t0.Add(time.Minute)
			rec.Apply(inbox.Event{
				ID: 500, ThreadID: 2, ThreadKind: model.ThreadDirect,
				Kind: inbox.EventInsert, SenderID: 200, CreatedAt: t1, Content: "hey",
			})

			t2 := byID(2, model.ThreadDirect)
			Expect(t2.UnreadCount).To(Equal(4))
			Expect(t2.LastMessage).NotTo(BeNil())
			Expect(t2.LastMessage.ID).To(Equal(int64(500)))
			Expect(t2.UpdatedAt).To(Equal(t1))
			Expect(snapshot()[0].ID).To(Equal(int64(2)))
		})

		It("leaves unread untouched for the user's own message", func() {
			rec.Apply(inbox.Event{
				ID: 501, ThreadID: 1, ThreadKind: model.ThreadDirect,
				Kind: inbox.EventInsert, SenderID: me, CreatedAt: t0.Add(time.Minute),
			})
			Expect(byID(1, model.ThreadDirect).UnreadCount).To(Equal(0))
		})

		It("still bumps recency for the user's own message", func() {
			t1 := t0.Add(time.Minute)
			rec.Apply(inbox.Event{
				ID: 502, ThreadID: 7, ThreadKind: model.ThreadGroup,
				Kind: inbox.EventInsert, SenderID: me, CreatedAt: t1,
			})
			Expect(byID(7, model.ThreadGroup).UpdatedAt).To(Equal(t1))
			Expect(snapshot()[0].ID).To(Equal(int64(7)))
		})

		It("does not overwrite a preview already holding the same message id", func() {
			t1 := t0.Add(time.Minute)
			ev := inbox.Event{
				ID: 503, ThreadID: 1, ThreadKind: model.ThreadDirect,
				Kind: inbox.EventInsert, SenderID: 200, CreatedAt: t1, Content: "first",
			}
			rec.Apply(ev)

			// Same id through a second path that evaded the gate.
			ev.Content = "second copy"
			rec.Apply(ev)

			t := byID(1, model.ThreadDirect)
			Expect(t.LastMessage.Content).To(Equal("first"))
			// The unread increment is not idempotent by itself; that is
			// the gate's job. Here the second apply counts again.
			Expect(t.UnreadCount).To(Equal(2))
		})

		It("ignores events for threads that are not loaded", func() {
			before := snapshot()
			rec.Apply(inbox.Event{
				ID: 504, ThreadID: 999, ThreadKind: model.ThreadDirect,
				Kind: inbox.EventInsert, SenderID: 200, CreatedAt: t0.Add(time.Minute),
			})
			Expect(snapshot()).To(Equal(before))
		})

		It("does not confuse a group id with a direct id", func() {
			rec.Apply(inbox.Event{
				ID: 505, ThreadID: 1, ThreadKind: model.ThreadGroup,
				Kind: inbox.EventInsert, SenderID: 200, CreatedAt: t0.Add(time.Minute),
			})
			Expect(byID(1, model.ThreadDirect).UnreadCount).To(Equal(0))
		})
	})

	Describe("update-read events", func() {
		It("decrements unread when the message became read", func() {
			rec.Apply(inbox.Event{
				ID: 510, ThreadID: 2, ThreadKind: model.ThreadDirect,
				Kind: inbox.EventUpdateRead, SenderID: me, IsRead: true,
			})
			Expect(byID(2, model.ThreadDirect).UnreadCount).To(Equal(2))
		})

		It("never drives unread below zero", func() {
			for i := 0; i < 5; i++ {
				rec.Apply(inbox.Event{
					ID: int64(520 + i), ThreadID: 1, ThreadKind: model.ThreadDirect,
					Kind: inbox.EventUpdateRead, SenderID: me, IsRead: true,
				})
			}
			Expect(byID(1, model.ThreadDirect).UnreadCount).To(Equal(0))
		})

		It("ignores updates where the message is still unread", func() {
			rec.Apply(inbox.Event{
				ID: 530, ThreadID: 2, ThreadKind: model.ThreadDirect,
				Kind: inbox.EventUpdateRead, SenderID: me, IsRead: false,
			})
			Expect(byID(2, model.ThreadDirect).UnreadCount).To(Equal(3))
		})
	})

	Describe("read acknowledgements", func() {
		It("decrements by the acknowledged count", func() {
			rec.ApplyRead(inbox.ReadAck{ThreadID: 2, ThreadKind: model.ThreadDirect, CountDecremented: 3})
			Expect(byID(2, model.ThreadDirect).UnreadCount).To(Equal(0))
		})

		It("clamps at zero when the ack overshoots", func() {
			rec.ApplyRead(inbox.ReadAck{ThreadID: 2, ThreadKind: model.ThreadDirect, CountDecremented: 5})
			Expect(byID(2, model.ThreadDirect).UnreadCount).To(Equal(0))
		})

		It("is a no-op for unknown threads", func() {
			before := snapshot()
			rec.ApplyRead(inbox.ReadAck{ThreadID: 999, ThreadKind: model.ThreadGroup, CountDecremented: 1})
			Expect(snapshot()).To(Equal(before))
		})
	})

	Describe("sort invariant", func() {
		It("keeps the collection sorted descending by recency after every event", func() {
			times := []time.Duration{5 * time.Minute, time.Minute, 3 * time.Minute}
			targets := []int64{7, 1, 2}
			kinds := []model.ThreadKind{model.ThreadGroup, model.ThreadDirect, model.ThreadDirect}

			for i := range times {
				rec.Apply(inbox.Event{
					ID: int64(540 + i), ThreadID: targets[i], ThreadKind: kinds[i],
					Kind: inbox.EventInsert, SenderID: 200, CreatedAt: t0.Add(times[i]),
				})
				snap := snapshot()
				Expect(sort.SliceIsSorted(snap, func(a, b int) bool {
					return snap[a].UpdatedAt.After(snap[b].UpdatedAt)
				})).To(BeTrue(), "collection out of order after event %d", i)
			}

			Expect(snapshot()[0].ID).To(Equal(int64(7)))
		})
	})

	Describe("snapshot isolation", func() {
		It("hands out copies the caller cannot use to mutate internal state", func() {
			snap := rec.Snapshot()
			snap[0].UnreadCount = 999
			Expect(rec.Snapshot()[0].UnreadCount).NotTo(Equal(999))
		})
	})
})
