package handler_test

import (
	"context"

	"bebusy.app/inbox/internal/inbox"
	"bebusy.app/inbox/internal/model"
	"bebusy.app/inbox/internal/search"
	"bebusy.app/inbox/internal/service"
)

type mockLive struct {
	openFn func(ctx context.Context, userID int64) (*inbox.Session, error)
	viewFn func(ctx context.Context, userID int64, tab inbox.Tab) (inbox.View, error)
}

func (m *mockLive) Open(ctx context.Context, userID int64) (*inbox.Session, error) {
	return m.openFn(ctx, userID)
}

func (m *mockLive) View(ctx context.Context, userID int64, tab inbox.Tab) (inbox.View, error) {
	return m.viewFn(ctx, userID, tab)
}

type mockMarker struct {
	markFn func(ctx context.Context, userID, threadID int64, kind model.ThreadKind) (int, error)
}

func (m *mockMarker) MarkThreadRead(ctx context.Context, userID, threadID int64, kind model.ThreadKind) (int, error) {
	return m.markFn(ctx, userID, threadID, kind)
}

type mockSender struct {
	sendFn    func(ctx context.Context, req service.SendRequest) (*model.Message, error)
	deleteFn  func(ctx context.Context, msgID, ownerID int64) error
	historyFn func(ctx context.Context, userID, threadID int64, kind model.ThreadKind, limit int32) ([]model.Message, error)
	groupFn   func(ctx context.Context, userID, groupID int64) (*model.Group, error)
	openFn    func(ctx context.Context, userID, otherID int64) (*model.Conversation, error)
}

func (m *mockSender) Send(ctx context.Context, req service.SendRequest) (*model.Message, error) {
	return m.sendFn(ctx, req)
}

func (m *mockSender) Delete(ctx context.Context, msgID, ownerID int64) error {
	return m.deleteFn(ctx, msgID, ownerID)
}

func (m *mockSender) History(ctx context.Context, userID, threadID int64, kind model.ThreadKind, limit int32) ([]model.Message, error) {
	return m.historyFn(ctx, userID, threadID, kind, limit)
}

func (m *mockSender) GetGroup(ctx context.Context, userID, groupID int64) (*model.Group, error) {
	return m.groupFn(ctx, userID, groupID)
}

func (m *mockSender) GetOrCreateConversation(ctx context.Context, userID, otherID int64) (*model.Conversation, error) {
	return m.openFn(ctx, userID, otherID)
}

type mockSearcher struct {
	queryFn func(ctx context.Context, userID int64, query string, limit int) ([]search.Hit, error)
}

func (m *mockSearcher) Query(ctx context.Context, userID int64, query string, limit int) ([]search.Hit, error) {
	return m.queryFn(ctx, userID, query, limit)
}

type mockNotifications struct {
	listFn        func(ctx context.Context, userID int64, limit int32) ([]model.Notification, error)
	countFn       func(ctx context.Context, userID int64) (int, error)
	markReadFn    func(ctx context.Context, notifID, userID int64) error
	markAllReadFn func(ctx context.Context, userID int64) error
	deleteFn      func(ctx context.Context, notifID, userID int64) error
}

func (m *mockNotifications) List(ctx context.Context, userID int64, limit int32) ([]model.Notification, error) {
	return m.listFn(ctx, userID, limit)
}

func (m *mockNotifications) CountUnread(ctx context.Context, userID int64) (int, error) {
	return m.countFn(ctx, userID)
}

func (m *mockNotifications) MarkRead(ctx context.Context, notifID, userID int64) error {
	return m.markReadFn(ctx, notifID, userID)
}

func (m *mockNotifications) MarkAllRead(ctx context.Context, userID int64) error {
	return m.markAllReadFn(ctx, userID)
}

func (m *mockNotifications) Delete(ctx context.Context, notifID, userID int64) error {
	return m.deleteFn(ctx, notifID, userID)
}

type mockProfiles struct {
	getFn    func(ctx context.Context, userID int64) (*model.Profile, error)
	searchFn func(ctx context.Context, userID int64, query string, limit int32) ([]model.Profile, error)
}

func (m *mockProfiles) Get(ctx context.Context, userID int64) (*model.Profile, error) {
	return m.getFn(ctx, userID)
}

func (m *mockProfiles) Search(ctx context.Context, userID int64, query string, limit int32) ([]model.Profile, error) {
	return m.searchFn(ctx, userID, query, limit)
}
