package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"genstudio/pkg/model"
	"genstudio/pkg/repository"
)

func newVoiceItem(t *testing.T, title string) *model.HistoryItem {
	t.Helper()
	item, err := model.NewHistoryItem(title, &model.VoiceData{
		Text:        "Hello",
		Voice:       "Kore",
		Speed:       1.0,
		AudioBase64: "WA==",
	})
	gt.NoError(t, err)
	return item
}

func testRepository(t *testing.T, repo repository.Repository) {
	ctx := context.Background()

	first := newVoiceItem(t, "first")
	second := newVoiceItem(t, "second")
	gt.NoError(t, repo.PutItem(ctx, first))
	gt.NoError(t, repo.PutItem(ctx, second))

	t.Run("get returns the stored item", func(t *testing.T) {
		got, err := repo.GetItem(ctx, first.ID)
		gt.NoError(t, err)
		gt.V(t, got.ID).Equal(first.ID)
		gt.V(t, got.Voice.AudioBase64).Equal("WA==")
	})

	t.Run("get unknown id fails with not found", func(t *testing.T) {
		_, err := repo.GetItem(ctx, model.NewHistoryID())
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrItemNotFound))
	})

	t.Run("returned items are copies", func(t *testing.T) {
		got, err := repo.GetItem(ctx, first.ID)
		gt.NoError(t, err)
		got.Voice.AudioBase64 = "tampered"

		again, err := repo.GetItem(ctx, first.ID)
		gt.NoError(t, err)
		gt.V(t, again.Voice.AudioBase64).Equal("WA==")
	})

	t.Run("rename changes only the title", func(t *testing.T) {
		gt.NoError(t, repo.RenameItem(ctx, first.ID, "renamed"))
		got, err := repo.GetItem(ctx, first.ID)
		gt.NoError(t, err)
		gt.V(t, got.Title).Equal("renamed")
		gt.V(t, got.Type).Equal(model.ToolVoice)
		gt.V(t, got.Voice.Text).Equal("Hello")
	})

	t.Run("update in place keeps the id", func(t *testing.T) {
		item, err := repo.GetItem(ctx, second.ID)
		gt.NoError(t, err)
		gt.NoError(t, item.SetData(&model.VoiceData{
			Text: "Goodbye", Voice: "Puck", Speed: 1.2, AudioBase64: "WQ==",
		}))
		gt.NoError(t, repo.PutItem(ctx, item))

		got, err := repo.GetItem(ctx, second.ID)
		gt.NoError(t, err)
		gt.V(t, got.Voice.Text).Equal("Goodbye")
	})

	t.Run("list is ordered by recency", func(t *testing.T) {
		third := newVoiceItem(t, "third")
		third.UpdatedAt = time.Now().Add(time.Hour)
		gt.NoError(t, repo.PutItem(ctx, third))

		items, err := repo.ListItems(ctx)
		gt.NoError(t, err)
		gt.V(t, len(items)).Equal(3)
		gt.V(t, items[0].ID).Equal(third.ID)

		gt.NoError(t, repo.DeleteItem(ctx, third.ID))
	})

	t.Run("select active", func(t *testing.T) {
		none, err := repo.ActiveItem(ctx)
		gt.NoError(t, err)
		gt.V(t, none).Nil()

		gt.NoError(t, repo.SetActive(ctx, first.ID))
		active, err := repo.ActiveItem(ctx)
		gt.NoError(t, err)
		gt.V(t, active.ID).Equal(first.ID)
	})

	t.Run("select unknown id is an explicit not-found", func(t *testing.T) {
		err := repo.SetActive(ctx, model.NewHistoryID())
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrItemNotFound))
	})

	t.Run("delete removes exactly one item", func(t *testing.T) {
		gt.NoError(t, repo.DeleteItem(ctx, first.ID))

		_, err := repo.GetItem(ctx, first.ID)
		gt.True(t, errors.Is(err, model.ErrItemNotFound))

		// others untouched
		_, err = repo.GetItem(ctx, second.ID)
		gt.NoError(t, err)

		// deleted item was active; selection is cleared
		active, err := repo.ActiveItem(ctx)
		gt.NoError(t, err)
		gt.V(t, active).Nil()

		gt.True(t, errors.Is(repo.DeleteItem(ctx, first.ID), model.ErrItemNotFound))
	})
}

func TestMemoryRepository(t *testing.T) {
	testRepository(t, repository.NewMemory())
}

func TestMemoryConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	item := newVoiceItem(t, "shared")
	gt.NoError(t, repo.PutItem(ctx, item))

	// readers clone items that writers rename in place; run them together
	// so the race detector can see an unlocked overlap if one exists
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			gt.NoError(t, repo.RenameItem(ctx, item.ID, fmt.Sprintf("title-%d", n)))
		}(i)

		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := repo.GetItem(ctx, item.ID)
			gt.NoError(t, err)
			gt.V(t, got.ID).Equal(item.ID)
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			items, err := repo.ListItems(ctx)
			gt.NoError(t, err)
			gt.V(t, len(items)).Equal(1)
		}()
	}
	wg.Wait()

	got, err := repo.GetItem(ctx, item.ID)
	gt.NoError(t, err)
	gt.V(t, got.Voice.Text).Equal("Hello")
}
