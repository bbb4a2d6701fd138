// Package history implements management of stored tool sessions: listing,
// renaming, deleting, and reopening an item with its media made playable
// again.
package history

import (
	"context"

	"genstudio/pkg/media"
	"genstudio/pkg/model"
	"genstudio/pkg/repository"
)

// List returns all stored items, most recently updated first
func List(ctx context.Context, repo repository.Repository) ([]*model.HistoryItem, error) {
	return repo.ListItems(ctx)
}

// Rename changes the display title of an item and nothing else
func Rename(ctx context.Context, repo repository.Repository, id model.HistoryID, title string) error {
	return repo.RenameItem(ctx, id, title)
}

// Delete removes an item permanently
func Delete(ctx context.Context, repo repository.Repository, id model.HistoryID) error {
	return repo.DeleteItem(ctx, id)
}

// Select marks an item active and returns it. Unknown ids fail with
// model.ErrItemNotFound rather than clearing the current selection.
func Select(ctx context.Context, repo repository.Repository, id model.HistoryID) (*model.HistoryItem, error) {
	if err := repo.SetActive(ctx, id); err != nil {
		return nil, err
	}
	return repo.GetItem(ctx, id)
}

// Active returns the currently selected item, nil when none is selected
func Active(ctx context.Context, repo repository.Repository) (*model.HistoryItem, error) {
	return repo.ActiveItem(ctx)
}

// Opened is a history item with its stored media decoded back into
// playable resources. Release must be called when done.
type Opened struct {
	Item *model.HistoryItem

	// Audio is a WAV file handle for voice items
	Audio *media.Resource

	// Video is an MP4 file handle for video items
	Video *media.Resource
}

// Release drops the temp files behind the resources
func (o *Opened) Release() {
	if o.Audio != nil {
		o.Audio.Release()
	}
	if o.Video != nil {
		o.Video.Release()
	}
}

// Open loads an item and rebuilds playable resources from its stored
// encodings. Items without media come back with no resources.
func Open(ctx context.Context, repo repository.Repository, id model.HistoryID) (*Opened, error) {
	item, err := repo.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	opened := &Opened{Item: item}

	switch item.Type {
	case model.ToolVoice:
		pcm, err := media.Decode(item.Voice.AudioBase64)
		if err != nil {
			return nil, err
		}
		// stored audio is raw PCM; older items predate the recorded rate
		rate := item.Voice.SampleRate
		if rate == 0 {
			rate = 24000
		}
		wav := media.WriteWAV(pcm, rate, 1)
		opened.Audio, err = media.NewResource(wav)
		if err != nil {
			return nil, err
		}

	case model.ToolVideo:
		blob, err := media.BlobFromBase64(item.Video.VideoBase64, "video/mp4")
		if err != nil {
			return nil, err
		}
		opened.Video, err = media.NewResource(blob)
		if err != nil {
			return nil, err
		}
	}

	return opened, nil
}
