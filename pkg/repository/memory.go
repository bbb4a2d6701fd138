package repository

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"genstudio/pkg/model"
)

// Memory is an in-memory Repository. Items are deep-copied on the way in and
// out so callers can never mutate stored state except through the store.
type Memory struct {
	mu       sync.RWMutex
	items    map[model.HistoryID]*model.HistoryItem
	activeID model.HistoryID
}

func NewMemory() *Memory {
	return &Memory{
		items: make(map[model.HistoryID]*model.HistoryItem),
	}
}

func cloneItem(item *model.HistoryItem) (*model.HistoryItem, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal history item")
	}
	var clone model.HistoryItem
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal history item")
	}
	return &clone, nil
}

func (r *Memory) PutItem(ctx context.Context, item *model.HistoryItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	clone, err := cloneItem(item)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[clone.ID] = clone
	return nil
}

func (r *Memory) GetItem(ctx context.Context, id model.HistoryID) (*model.HistoryItem, error) {
	// clone while holding the lock: writers mutate stored items in place
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrItemNotFound, "no such item", goerr.V("id", id))
	}
	return cloneItem(item)
}

func (r *Memory) ListItems(ctx context.Context) ([]*model.HistoryItem, error) {
	r.mu.RLock()
	cloned := make([]*model.HistoryItem, 0, len(r.items))
	for _, item := range r.items {
		clone, err := cloneItem(item)
		if err != nil {
			r.mu.RUnlock()
			return nil, err
		}
		cloned = append(cloned, clone)
	}
	r.mu.RUnlock()

	sort.Slice(cloned, func(i, j int) bool {
		return cloned[i].UpdatedAt.After(cloned[j].UpdatedAt)
	})
	return cloned, nil
}

func (r *Memory) RenameItem(ctx context.Context, id model.HistoryID, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return goerr.Wrap(model.ErrItemNotFound, "no such item", goerr.V("id", id))
	}
	item.Title = title
	return nil
}

func (r *Memory) DeleteItem(ctx context.Context, id model.HistoryID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return goerr.Wrap(model.ErrItemNotFound, "no such item", goerr.V("id", id))
	}
	delete(r.items, id)
	if r.activeID == id {
		r.activeID = ""
	}
	return nil
}

func (r *Memory) SetActive(ctx context.Context, id model.HistoryID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return goerr.Wrap(model.ErrItemNotFound, "no such item", goerr.V("id", id))
	}
	r.activeID = id
	return nil
}

func (r *Memory) ActiveItem(ctx context.Context) (*model.HistoryItem, error) {
	r.mu.RLock()
	id := r.activeID
	r.mu.RUnlock()

	if id == "" {
		return nil, nil
	}
	return r.GetItem(ctx, id)
}
