package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"genstudio/pkg/model"
)

// localFile is the serialized form of the store: the ordered item sequence
// plus the id of the currently selected item
type localFile struct {
	Items    []*model.HistoryItem `json:"items"`
	ActiveID model.HistoryID      `json:"activeId,omitempty"`
}

// Local is a Repository backed by a single JSON file. Writes go through a
// temp file and rename so a crash never leaves a half-written store.
type Local struct {
	path string

	mu       sync.Mutex
	items    []*model.HistoryItem
	activeID model.HistoryID
}

// NewLocal opens or creates a file-backed store at the given path
func NewLocal(path string) (*Local, error) {
	r := &Local{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, goerr.Wrap(err, "failed to read history file", goerr.V("path", path))
	}

	var file localFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to decode history file", goerr.V("path", path))
	}

	r.items = file.Items
	r.activeID = file.ActiveID
	return r, nil
}

// flushLocked writes the current state to disk. Callers hold r.mu.
func (r *Local) flushLocked() error {
	data, err := json.MarshalIndent(&localFile{Items: r.items, ActiveID: r.activeID}, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to encode history file")
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return goerr.Wrap(err, "failed to create history directory")
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return goerr.Wrap(err, "failed to write history file", goerr.V("path", tmp))
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return goerr.Wrap(err, "failed to replace history file", goerr.V("path", r.path))
	}
	return nil
}

func (r *Local) indexLocked(id model.HistoryID) int {
	for i, item := range r.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (r *Local) PutItem(ctx context.Context, item *model.HistoryItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	clone, err := cloneItem(item)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexLocked(clone.ID); i >= 0 {
		r.items[i] = clone
	} else {
		r.items = append(r.items, clone)
	}
	return r.flushLocked()
}

func (r *Local) GetItem(ctx context.Context, id model.HistoryID) (*model.HistoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return nil, goerr.Wrap(model.ErrItemNotFound, "no such item", goerr.V("id", id))
	}
	return cloneItem(r.items[i])
}

func (r *Local) ListItems(ctx context.Context) ([]*model.HistoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]*model.HistoryItem, 0, len(r.items))
	for _, item := range r.items {
		clone, err := cloneItem(item)
		if err != nil {
			return nil, err
		}
		items = append(items, clone)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
	return items, nil
}

func (r *Local) RenameItem(ctx context.Context, id model.HistoryID, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return goerr.Wrap(model.ErrItemNotFound, "no such item", goerr.V("id", id))
	}
	r.items[i].Title = title
	return r.flushLocked()
}

func (r *Local) DeleteItem(ctx context.Context, id model.HistoryID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return goerr.Wrap(model.ErrItemNotFound, "no such item", goerr.V("id", id))
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	if r.activeID == id {
		r.activeID = ""
	}
	return r.flushLocked()
}

func (r *Local) SetActive(ctx context.Context, id model.HistoryID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexLocked(id) < 0 {
		return goerr.Wrap(model.ErrItemNotFound, "no such item", goerr.V("id", id))
	}
	r.activeID = id
	return r.flushLocked()
}

func (r *Local) ActiveItem(ctx context.Context) (*model.HistoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeID == "" {
		return nil, nil
	}
	i := r.indexLocked(r.activeID)
	if i < 0 {
		return nil, nil
	}
	return cloneItem(r.items[i])
}
