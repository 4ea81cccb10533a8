package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"bebusy.app/inbox/internal/http/dto"
	"bebusy.app/inbox/internal/http/middleware"
	"bebusy.app/inbox/internal/inbox"
	"bebusy.app/inbox/internal/model"
	"bebusy.app/inbox/internal/service"
	"bebusy.app/inbox/internal/store"
)

// LiveOpener mirrors service.LiveService.
type LiveOpener interface {
	Open(ctx context.Context, userID int64) (*inbox.Session, error)
	View(ctx context.Context, userID int64, tab inbox.Tab) (inbox.View, error)
}

// ThreadMarker mirrors the read path of service.MessageService.
type ThreadMarker interface {
	MarkThreadRead(ctx context.Context, userID, threadID int64, kind model.ThreadKind) (int, error)
}

type InboxHandler struct {
	live   LiveOpener
	marker ThreadMarker
}

func NewInboxHandler(live LiveOpener, marker ThreadMarker) *InboxHandler {
	return &InboxHandler{live: live, marker: marker}
}

// List returns a one-shot snapshot of the caller's threads, filtered
// by the tab query param.
func (h *InboxHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(ctx)
	tab := inbox.ParseTab(c.Query("tab"))

	view, err := h.live.View(ctx, userID, tab)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load threads", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load threads"})
		return
	}

	c.JSON(http.StatusOK, dto.ToThreadListResponse(view))
}

// Live streams the reconciled thread list over SSE. The first event is
// the current snapshot; each applied change emits a fresh one.
func (h *InboxHandler) Live(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(ctx)
	tab := inbox.ParseTab(c.Query("tab"))

	session, err := h.live.Open(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open live session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open live session"})
		return
	}
	defer session.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	writeView(c.Writer, tab, session.Snapshot())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case threads, ok := <-session.Updates():
			if !ok {
				return false
			}
			writeView(c.Writer, tab, threads)
			return true
		}
	})
}

func writeView(w io.Writer, tab inbox.Tab, threads []model.ThreadSummary) {
	payload, err := json.Marshal(dto.ToThreadListResponse(inbox.Project(threads, tab)))
	if err != nil {
		return
	}
	io.WriteString(w, "event: threads\ndata: ")
	w.Write(payload)
	io.WriteString(w, "\n\n")
}

// MarkRead flips a thread's unread messages for the caller.
func (h *InboxHandler) MarkRead(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(ctx)

	var req dto.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	count, err := h.marker.MarkThreadRead(ctx, userID, req.ThreadID, req.ThreadKind)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotAMember):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this thread"})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		default:
			slog.ErrorContext(ctx, "failed to mark thread read", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark thread read"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.MarkReadResponse{MarkedRead: count})
}
