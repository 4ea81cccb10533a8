package handler_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"bebusy.app/inbox/internal/bus"
	"bebusy.app/inbox/internal/http/handler"
	"bebusy.app/inbox/internal/http/middleware"
	"bebusy.app/inbox/internal/inbox"
	"bebusy.app/inbox/internal/model"
	"bebusy.app/inbox/internal/service"
)

var _ = Describe("InboxHandler", func() {
	var (
		router *gin.Engine
		live   *mockLive
		marker *mockMarker
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		router.Use(middleware.RequireUser())

		live = &mockLive{}
		marker = &mockMarker{}
		h := handler.NewInboxHandler(live, marker)
		router.GET("/inbox", h.List)
		router.GET("/inbox/live", h.Live)
		router.POST("/inbox/read", h.MarkRead)
	})

	Describe("List", func() {
		It("returns the filtered snapshot", func() {
			live.viewFn = func(_ context.Context, userID int64, tab inbox.Tab) (inbox.View, error) {
				Expect(userID).To(Equal(int64(100)))
				Expect(tab).To(Equal(inbox.TabDirect))
				return inbox.View{
					Tab: tab,
					Threads: []model.ThreadSummary{
						{ID: 1, Kind: model.ThreadDirect, UnreadCount: 2, UpdatedAt: time.Now()},
					},
				}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/inbox?tab=direct", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["tab"]).To(Equal("direct"))
			Expect(resp["threads"]).To(HaveLen(1))
		})

		It("signals an empty collection", func() {
			live.viewFn = func(_ context.Context, _ int64, tab inbox.Tab) (inbox.View, error) {
				return inbox.View{Tab: tab, Threads: []model.ThreadSummary{}, Empty: true}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/inbox", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["empty"]).To(BeTrue())
		})

		It("requires authentication", func() {
			req := httptest.NewRequest(http.MethodGet, "/inbox", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("returns 500 when loading fails", func() {
			live.viewFn = func(_ context.Context, _ int64, _ inbox.Tab) (inbox.View, error) {
				return inbox.View{}, errors.New("db down")
			}

			req := httptest.NewRequest(http.MethodGet, "/inbox", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Live", func() {
		It("streams the snapshot first, then reconciled updates", func() {
			b := bus.New(16)
			defer b.Close()
			feed := &sseFeed{}
			loader := &sseLoader{threads: []model.ThreadSummary{
				{ID: 55, Kind: model.ThreadDirect, UnreadCount: 0, UpdatedAt: time.Now().UTC()},
			}}
			live.openFn = func(ctx context.Context, userID int64) (*inbox.Session, error) {
				Expect(userID).To(Equal(int64(100)))
				return inbox.NewSession(ctx, inbox.SessionConfig{UserID: userID}, loader, feed, &sseFetcher{}, b)
			}

			srv := httptest.NewServer(router)
			defer srv.Close()

			req, err := http.NewRequest(http.MethodGet, srv.URL+"/inbox/live", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("X-User-ID", "100")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))

			reader := bufio.NewReader(resp.Body)

			var snapshot map[string]any
			Expect(json.Unmarshal(readSSEFrame(reader), &snapshot)).To(Succeed())
			threads := snapshot["threads"].([]any)
			Expect(threads).To(HaveLen(1))
			Expect(threads[0].(map[string]any)["unread_count"]).To(BeEquivalentTo(0))

			Eventually(feed.subscribed).Should(BeTrue())
			conv, sender, created := int64(55), int64(200), time.Now().UTC()
			feed.emit(inbox.RawEvent{
				Type: inbox.ChangeInsert,
				Record: &inbox.RawRecord{
					ID: 900, ConversationID: &conv, SenderID: &sender,
					CreatedAt: &created, Content: "hello",
				},
			})

			var update map[string]any
			Expect(json.Unmarshal(readSSEFrame(reader), &update)).To(Succeed())
			thread := update["threads"].([]any)[0].(map[string]any)
			Expect(thread["unread_count"]).To(BeEquivalentTo(1))
			Expect(thread["last_message"].(map[string]any)["id"]).To(Equal("900"))
		})

		It("returns 500 when the session cannot open", func() {
			live.openFn = func(context.Context, int64) (*inbox.Session, error) {
				return nil, errors.New("db down")
			}

			req := httptest.NewRequest(http.MethodGet, "/inbox/live", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("MarkRead", func() {
		It("marks the thread and reports the count", func() {
			marker.markFn = func(_ context.Context, userID, threadID int64, kind model.ThreadKind) (int, error) {
				Expect(userID).To(Equal(int64(100)))
				Expect(threadID).To(Equal(int64(55)))
				Expect(kind).To(Equal(model.ThreadDirect))
				return 3, nil
			}

			body, _ := json.Marshal(map[string]string{
				"thread_id":   "55",
				"thread_kind": "direct",
			})
			req := httptest.NewRequest(http.MethodPost, "/inbox/read", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["marked_read"]).To(BeEquivalentTo(3))
		})

		It("rejects an invalid thread kind", func() {
			body, _ := json.Marshal(map[string]string{
				"thread_id":   "55",
				"thread_kind": "broadcast",
			})
			req := httptest.NewRequest(http.MethodPost, "/inbox/read", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 403 for an outsider", func() {
			marker.markFn = func(_ context.Context, _, _ int64, _ model.ThreadKind) (int, error) {
				return 0, service.ErrNotAMember
			}

			body, _ := json.Marshal(map[string]string{
				"thread_id":   "55",
				"thread_kind": "direct",
			})
			req := httptest.NewRequest(http.MethodPost, "/inbox/read", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusForbidden))
		})
	})
})

type sseLoader struct {
	threads []model.ThreadSummary
}

func (l *sseLoader) LoadThreads(context.Context, int64) ([]model.ThreadSummary, error) {
	return l.threads, nil
}

type sseFeed struct {
	mu      sync.Mutex
	onEvent func(inbox.RawEvent)
}

func (f *sseFeed) Subscribe(_ context.Context, onEvent func(inbox.RawEvent)) (func(), error) {
	f.mu.Lock()
	f.onEvent = onEvent
	f.mu.Unlock()
	return func() {}, nil
}

func (f *sseFeed) subscribed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onEvent != nil
}

func (f *sseFeed) emit(ev inbox.RawEvent) {
	f.mu.Lock()
	fn := f.onEvent
	f.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

type sseFetcher struct{}

func (sseFetcher) FetchMessage(context.Context, int64) (*model.Message, error) {
	return nil, errors.New("unexpected fetch")
}

// readSSEFrame consumes one server-sent event and returns its data
// payload.
func readSSEFrame(r *bufio.Reader) []byte {
	var data []byte
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return data
		}
		line = strings.TrimRight(line, "\n")
		if line == "" {
			if len(data) > 0 {
				return data
			}
			continue
		}
		if strings.HasPrefix(line, "data: ") {
			data = []byte(strings.TrimPrefix(line, "data: "))
		}
	}
}
