// Package search indexes message content in Typesense so users can
// full-text search their history. Indexing is best-effort: a search
// outage never blocks message delivery.
package search

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/typesense/typesense-go/v4/typesense"
	"github.com/typesense/typesense-go/v4/typesense/api"
	"github.com/typesense/typesense-go/v4/typesense/api/pointer"

	"bebusy.app/inbox/internal/model"
)

// Hit is one search result.
type Hit struct {
	MessageID  int64            `json:"message_id"`
	ThreadID   int64            `json:"thread_id"`
	ThreadKind model.ThreadKind `json:"thread_kind"`
	SenderID   int64            `json:"sender_id"`
	Content    string           `json:"content"`
	CreatedAt  time.Time        `json:"created_at"`
}

type Index struct {
	client     *typesense.Client
	collection string
}

func New(serverURL, apiKey, collection string) *Index {
	client := typesense.NewClient(
		typesense.WithServer(serverURL),
		typesense.WithAPIKey(apiKey),
	)
	return &Index{client: client, collection: collection}
}

// EnsureCollection creates the messages collection if it does not
// exist yet.
func (i *Index) EnsureCollection(ctx context.Context) error {
	_, err := i.client.Collection(i.collection).Retrieve(ctx)
	if err == nil {
		return nil
	}

	schema := &api.CollectionSchema{
		Name: i.collection,
		Fields: []api.Field{
			{Name: "content", Type: "string"},
			{Name: "thread_id", Type: "int64", Facet: pointer.True()},
			{Name: "thread_kind", Type: "string", Facet: pointer.True()},
			{Name: "sender_id", Type: "int64", Facet: pointer.True()},
			{Name: "recipient_ids", Type: "int64[]"},
			{Name: "created_at", Type: "int64", Sort: pointer.True()},
		},
		DefaultSortingField: pointer.String("created_at"),
	}
	if _, err := i.client.Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("creating collection %s: %w", i.collection, err)
	}
	return nil
}

// IndexMessage upserts one message document. recipientIDs scopes who
// may find it, the sender included.
func (i *Index) IndexMessage(ctx context.Context, msg *model.Message, recipientIDs []int64) error {
	threadID, kind := msg.ThreadID()
	doc := map[string]any{
		"id":            strconv.FormatInt(msg.ID, 10),
		"content":       msg.Content,
		"thread_id":     threadID,
		"thread_kind":   string(kind),
		"sender_id":     msg.SenderID,
		"recipient_ids": recipientIDs,
		"created_at":    msg.CreatedAt.Unix(),
	}

	if _, err := i.client.Collection(i.collection).Documents().Upsert(ctx, doc, &api.DocumentIndexParameters{}); err != nil {
		return fmt.Errorf("indexing message %d: %w", msg.ID, err)
	}
	return nil
}

// Remove deletes a message document after the message was deleted.
func (i *Index) Remove(ctx context.Context, messageID int64) error {
	_, err := i.client.Collection(i.collection).Document(strconv.FormatInt(messageID, 10)).Delete(ctx)
	if err != nil {
		return fmt.Errorf("removing message %d from index: %w", messageID, err)
	}
	return nil
}

// Query searches the user's visible messages, newest first.
func (i *Index) Query(ctx context.Context, userID int64, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 20
	}

	result, err := i.client.Collection(i.collection).Documents().Search(ctx, &api.SearchCollectionParams{
		Q:        pointer.String(query),
		QueryBy:  pointer.String("content"),
		FilterBy: pointer.String(fmt.Sprintf("recipient_ids:=%d", userID)),
		SortBy:   pointer.String("created_at:desc"),
		PerPage:  pointer.Int(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	if result.Hits == nil {
		return []Hit{}, nil
	}

	hits := make([]Hit, 0, len(*result.Hits))
	for _, h := range *result.Hits {
		if h.Document == nil {
			continue
		}
		hits = append(hits, hitFromDocument(*h.Document))
	}
	return hits, nil
}

func hitFromDocument(doc map[string]any) Hit {
	hit := Hit{
		ThreadID:   docInt64(doc, "thread_id"),
		SenderID:   docInt64(doc, "sender_id"),
		CreatedAt:  time.Unix(docInt64(doc, "created_at"), 0).UTC(),
		ThreadKind: model.ThreadKind(docString(doc, "thread_kind")),
		Content:    docString(doc, "content"),
	}
	if id, err := strconv.ParseInt(docString(doc, "id"), 10, 64); err == nil {
		hit.MessageID = id
	}
	return hit
}

func docInt64(doc map[string]any, key string) int64 {
	switch v := doc[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func docString(doc map[string]any, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}
