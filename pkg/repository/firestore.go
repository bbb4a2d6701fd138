package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"genstudio/pkg/adapter"
	"genstudio/pkg/model"
)

const (
	itemCollection  = "histories"
	stateCollection = "state"
	activeDocID     = "active"
)

// Firestore implements Repository using Firestore for item metadata and the
// storage adapter for serialized payloads. Generated media is far beyond the
// Firestore document size limit, so only id/type/title/timestamps live in
// documents; the full item JSON goes to storage under histories/<id>.json.
type Firestore struct {
	client  *firestore.Client
	storage adapter.Storage
}

// NewFirestore creates a Firestore-backed repository
func NewFirestore(ctx context.Context, projectID, databaseID string, storage adapter.Storage) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}

	return &Firestore{
		client:  client,
		storage: storage,
	}, nil
}

// Close releases the underlying Firestore client
func (r *Firestore) Close() error {
	return r.client.Close()
}

func payloadKey(id model.HistoryID) string {
	return "histories/" + string(id) + ".json"
}

func (r *Firestore) PutItem(ctx context.Context, item *model.HistoryItem) error {
	if err := item.Validate(); err != nil {
		return err
	}

	// Save full item JSON to storage first so a metadata document never
	// points at a missing payload
	writer, err := r.storage.Put(ctx, payloadKey(item.ID))
	if err != nil {
		return goerr.Wrap(err, "failed to create payload writer")
	}

	data, err := json.Marshal(item)
	if err != nil {
		writer.Close()
		return goerr.Wrap(err, "failed to marshal history item")
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return goerr.Wrap(err, "failed to write payload", goerr.V("id", item.ID))
	}
	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to close payload writer")
	}

	doc := r.client.Collection(itemCollection).Doc(string(item.ID))
	if _, err := doc.Set(ctx, item); err != nil {
		return goerr.Wrap(err, "failed to put history item", goerr.V("id", item.ID))
	}
	return nil
}

func (r *Firestore) loadPayload(ctx context.Context, id model.HistoryID) (*model.HistoryItem, error) {
	reader, err := r.storage.Get(ctx, payloadKey(id))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get payload", goerr.V("id", id))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read payload", goerr.V("id", id))
	}

	var item model.HistoryItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal payload", goerr.V("id", id))
	}
	return &item, nil
}

func (r *Firestore) GetItem(ctx context.Context, id model.HistoryID) (*model.HistoryItem, error) {
	_, err := r.client.Collection(itemCollection).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrItemNotFound, "no such item", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get history item", goerr.V("id", id))
	}

	return r.loadPayload(ctx, id)
}

func (r *Firestore) ListItems(ctx context.Context) ([]*model.HistoryItem, error) {
	iter := r.client.Collection(itemCollection).
		OrderBy("updatedAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var items []*model.HistoryItem
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate history items")
		}

		item, err := r.loadPayload(ctx, model.HistoryID(doc.Ref.ID))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Firestore) RenameItem(ctx context.Context, id model.HistoryID, title string) error {
	item, err := r.GetItem(ctx, id)
	if err != nil {
		return err
	}
	item.Title = title
	return r.PutItem(ctx, item)
}

func (r *Firestore) DeleteItem(ctx context.Context, id model.HistoryID) error {
	doc := r.client.Collection(itemCollection).Doc(string(id))
	if _, err := doc.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(model.ErrItemNotFound, "no such item", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to get history item", goerr.V("id", id))
	}

	if _, err := doc.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete history item", goerr.V("id", id))
	}
	if err := r.storage.Delete(ctx, payloadKey(id)); err != nil {
		return err
	}

	// Clear the active selection if it pointed at the deleted item
	stateDoc := r.client.Collection(stateCollection).Doc(activeDocID)
	snap, err := stateDoc.Get(ctx)
	if err == nil {
		var state struct {
			ItemID string `firestore:"itemId"`
		}
		if err := snap.DataTo(&state); err == nil && state.ItemID == string(id) {
			if _, err := stateDoc.Delete(ctx); err != nil {
				return goerr.Wrap(err, "failed to clear active selection")
			}
		}
	}
	return nil
}

func (r *Firestore) SetActive(ctx context.Context, id model.HistoryID) error {
	if _, err := r.client.Collection(itemCollection).Doc(string(id)).Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(model.ErrItemNotFound, "no such item", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to get history item", goerr.V("id", id))
	}

	doc := r.client.Collection(stateCollection).Doc(activeDocID)
	if _, err := doc.Set(ctx, map[string]any{"itemId": string(id)}); err != nil {
		return goerr.Wrap(err, "failed to set active item", goerr.V("id", id))
	}
	return nil
}

func (r *Firestore) ActiveItem(ctx context.Context) (*model.HistoryItem, error) {
	snap, err := r.client.Collection(stateCollection).Doc(activeDocID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get active selection")
	}

	var state struct {
		ItemID string `firestore:"itemId"`
	}
	if err := snap.DataTo(&state); err != nil {
		return nil, goerr.Wrap(err, "failed to decode active selection")
	}
	if state.ItemID == "" {
		return nil, nil
	}

	item, err := r.GetItem(ctx, model.HistoryID(state.ItemID))
	if errors.Is(err, model.ErrItemNotFound) {
		return nil, nil
	}
	return item, err
}
