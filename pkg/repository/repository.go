// Package repository persists heterogeneous tool sessions as HistoryItem
// records. The store exclusively owns the collection; tools submit new
// payloads and the store performs the update.
package repository

import (
	"context"

	"genstudio/pkg/model"
)

// Repository defines the interface for history item persistence
type Repository interface {
	// PutItem creates the item or updates it in place by id
	PutItem(ctx context.Context, item *model.HistoryItem) error

	// GetItem retrieves an item by ID; model.ErrItemNotFound if absent
	GetItem(ctx context.Context, id model.HistoryID) (*model.HistoryItem, error)

	// ListItems retrieves all items, most recently updated first
	ListItems(ctx context.Context) ([]*model.HistoryItem, error)

	// RenameItem changes only the display title of an item
	RenameItem(ctx context.Context, id model.HistoryID, title string) error

	// DeleteItem removes exactly the item with the given id
	DeleteItem(ctx context.Context, id model.HistoryID) error

	// SetActive marks the item currently open in the UI;
	// model.ErrItemNotFound if the id does not exist
	SetActive(ctx context.Context, id model.HistoryID) error

	// ActiveItem returns the currently open item, or (nil, nil) when none
	// is selected
	ActiveItem(ctx context.Context) (*model.HistoryItem, error)
}
