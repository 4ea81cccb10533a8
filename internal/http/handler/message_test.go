package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"bebusy.app/inbox/internal/http/handler"
	"bebusy.app/inbox/internal/http/middleware"
	"bebusy.app/inbox/internal/model"
	"bebusy.app/inbox/internal/search"
	"bebusy.app/inbox/internal/service"
	"bebusy.app/inbox/internal/store"
)

var _ = Describe("MessageHandler", func() {
	var (
		router   *gin.Engine
		sender   *mockSender
		searcher *mockSearcher
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		router.Use(middleware.RequireUser())

		sender = &mockSender{}
		searcher = &mockSearcher{}
		h := handler.NewMessageHandler(sender, searcher)
		router.POST("/messages", h.Send)
		router.GET("/messages", h.History)
		router.DELETE("/messages/:id", h.Delete)
		router.GET("/messages/search", h.Search)
		router.POST("/conversations", h.OpenConversation)
		router.GET("/groups/:id", h.GetGroup)
	})

	Describe("Send", func() {
		It("creates a message for the authenticated sender", func() {
			sender.sendFn = func(_ context.Context, req service.SendRequest) (*model.Message, error) {
				Expect(req.SenderID).To(Equal(int64(100)))
				Expect(req.RecipientID).To(HaveValue(Equal(int64(200))))
				convID := int64(55)
				return &model.Message{
					ID: 900, ConversationID: &convID, SenderID: req.SenderID,
					Content: req.Content, CreatedAt: time.Now().UTC(),
				}, nil
			}

			body, _ := json.Marshal(map[string]string{
				"recipient_id": "200",
				"content":      "hello",
			})
			req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusCreated))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["id"]).To(Equal("900"))
			Expect(resp["content"]).To(Equal("hello"))
		})

		It("returns 400 for an empty message", func() {
			sender.sendFn = func(_ context.Context, _ service.SendRequest) (*model.Message, error) {
				return nil, service.ErrEmptyMessage
			}

			body, _ := json.Marshal(map[string]string{"recipient_id": "200"})
			req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 403 for a non-member group send", func() {
			sender.sendFn = func(_ context.Context, _ service.SendRequest) (*model.Message, error) {
				return nil, service.ErrNotAMember
			}

			body, _ := json.Marshal(map[string]string{
				"group_id": "7",
				"content":  "hey",
			})
			req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusForbidden))
		})

		It("returns 400 on a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString(`{`))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Delete", func() {
		It("deletes the caller's message", func() {
			sender.deleteFn = func(_ context.Context, msgID, ownerID int64) error {
				Expect(msgID).To(Equal(int64(900)))
				Expect(ownerID).To(Equal(int64(100)))
				return nil
			}

			req := httptest.NewRequest(http.MethodDelete, "/messages/900", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNoContent))
		})

		It("returns 404 for someone else's message", func() {
			sender.deleteFn = func(_ context.Context, _, _ int64) error {
				return store.ErrNotFound
			}

			req := httptest.NewRequest(http.MethodDelete, "/messages/900", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("rejects a non-numeric id", func() {
			req := httptest.NewRequest(http.MethodDelete, "/messages/abc", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Search", func() {
		It("returns the caller's hits", func() {
			searcher.queryFn = func(_ context.Context, userID int64, query string, limit int) ([]search.Hit, error) {
				Expect(userID).To(Equal(int64(100)))
				Expect(query).To(Equal("deadline"))
				return []search.Hit{
					{MessageID: 900, ThreadID: 55, ThreadKind: model.ThreadDirect, SenderID: 200, Content: "deadline moved"},
				}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/messages/search?q=deadline", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["hits"]).To(HaveLen(1))
		})

		It("requires a query", func() {
			req := httptest.NewRequest(http.MethodGet, "/messages/search", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 500 when the index is unavailable", func() {
			searcher.queryFn = func(_ context.Context, _ int64, _ string, _ int) ([]search.Hit, error) {
				return nil, errors.New("typesense down")
			}

			req := httptest.NewRequest(http.MethodGet, "/messages/search?q=x", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("OpenConversation", func() {
		It("resolves the pair's conversation", func() {
			sender.openFn = func(_ context.Context, userID, otherID int64) (*model.Conversation, error) {
				Expect(userID).To(Equal(int64(100)))
				Expect(otherID).To(Equal(int64(200)))
				return &model.Conversation{ID: 55, User1ID: userID, User2ID: otherID}, nil
			}

			body, _ := json.Marshal(map[string]string{"user_id": "200"})
			req := httptest.NewRequest(http.MethodPost, "/conversations", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["id"]).To(Equal("55"))
		})
	})

	Describe("History", func() {
		It("lists a thread's messages", func() {
			sender.historyFn = func(_ context.Context, userID, threadID int64, kind model.ThreadKind, limit int32) ([]model.Message, error) {
				Expect(userID).To(Equal(int64(100)))
				Expect(threadID).To(Equal(int64(55)))
				Expect(kind).To(Equal(model.ThreadDirect))
				convID := threadID
				return []model.Message{
					{ID: 900, ConversationID: &convID, SenderID: 200, Content: "hello", CreatedAt: time.Now().UTC()},
				}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/messages?thread_id=55&thread_kind=direct", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			messages := resp["messages"].([]any)
			Expect(messages).To(HaveLen(1))
			Expect(messages[0].(map[string]any)["id"]).To(Equal("900"))
		})

		It("rejects an unknown thread kind", func() {
			req := httptest.NewRequest(http.MethodGet, "/messages?thread_id=55&thread_kind=channel", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("maps membership refusal to 403", func() {
			sender.historyFn = func(context.Context, int64, int64, model.ThreadKind, int32) ([]model.Message, error) {
				return nil, service.ErrNotAMember
			}

			req := httptest.NewRequest(http.MethodGet, "/messages?thread_id=7&thread_kind=group", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusForbidden))
		})
	})

	Describe("GetGroup", func() {
		It("returns group metadata to a member", func() {
			sender.groupFn = func(_ context.Context, userID, groupID int64) (*model.Group, error) {
				Expect(userID).To(Equal(int64(100)))
				Expect(groupID).To(Equal(int64(7)))
				return &model.Group{ID: 7, Name: "design", MembersCount: 4}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/groups/7", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["name"]).To(Equal("design"))
			Expect(resp["members_count"]).To(Equal(float64(4)))
		})

		It("maps a missing group to 404", func() {
			sender.groupFn = func(context.Context, int64, int64) (*model.Group, error) {
				return nil, store.ErrNotFound
			}

			req := httptest.NewRequest(http.MethodGet, "/groups/999", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})
})
