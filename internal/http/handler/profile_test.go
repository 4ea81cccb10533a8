package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"bebusy.app/inbox/internal/http/handler"
	"bebusy.app/inbox/internal/http/middleware"
	"bebusy.app/inbox/internal/model"
	"bebusy.app/inbox/internal/store"
)

var _ = Describe("ProfileHandler", func() {
	var (
		router   *gin.Engine
		profiles *mockProfiles
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		router.Use(middleware.RequireUser())

		profiles = &mockProfiles{}
		h := handler.NewProfileHandler(profiles)
		router.GET("/profiles/search", h.Search)
		router.GET("/profiles/:id", h.Get)
	})

	Describe("Search", func() {
		It("returns matching profiles excluding the caller", func() {
			fullName := "Ada Lovelace"
			profiles.searchFn = func(_ context.Context, userID int64, query string, limit int32) ([]model.Profile, error) {
				Expect(userID).To(Equal(int64(100)))
				Expect(query).To(Equal("ada"))
				Expect(limit).To(Equal(int32(20)))
				return []model.Profile{{ID: 7, Username: "ada", FullName: &fullName}}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/profiles/search?q=ada", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var body map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
			results := body["profiles"].([]any)
			Expect(results).To(HaveLen(1))
			first := results[0].(map[string]any)
			Expect(first["id"]).To(Equal("7"))
			Expect(first["username"]).To(Equal("ada"))
		})

		It("rejects a missing query", func() {
			req := httptest.NewRequest(http.MethodGet, "/profiles/search", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("surfaces store failures as 500", func() {
			profiles.searchFn = func(context.Context, int64, string, int32) ([]model.Profile, error) {
				return nil, errors.New("db down")
			}

			req := httptest.NewRequest(http.MethodGet, "/profiles/search?q=ada", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("Get", func() {
		It("returns the profile", func() {
			profiles.getFn = func(_ context.Context, userID int64) (*model.Profile, error) {
				Expect(userID).To(Equal(int64(7)))
				return &model.Profile{ID: 7, Username: "ada"}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/profiles/7", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var body map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
			Expect(body["username"]).To(Equal("ada"))
		})

		It("maps a missing profile to 404", func() {
			profiles.getFn = func(context.Context, int64) (*model.Profile, error) {
				return nil, store.ErrNotFound
			}

			req := httptest.NewRequest(http.MethodGet, "/profiles/999", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("rejects a malformed id", func() {
			req := httptest.NewRequest(http.MethodGet, "/profiles/abc", nil)
			req.Header.Set("X-User-ID", "100")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
