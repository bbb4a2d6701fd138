// Package todo implements the task-list tool. Unlike the generative tools
// it never talks to a remote model; every operation is a store mutation.
package todo

import (
	"context"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"genstudio/pkg/model"
	"genstudio/pkg/repository"
)

// ErrTaskNotFound means the referenced task id is not in the list
var ErrTaskNotFound = goerr.New("task not found")

// Session edits one todo list
type Session struct {
	repo   repository.Repository
	itemID model.HistoryID
}

// New creates a session over an existing todo list
func New(ctx context.Context, repo repository.Repository, itemID model.HistoryID) (*Session, error) {
	item, err := repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Type != model.ToolTodo {
		return nil, goerr.Wrap(model.ErrInvalidItem, "item is not a todo list", goerr.V("type", item.Type))
	}
	return &Session{repo: repo, itemID: itemID}, nil
}

// Create stores a new empty todo list and returns a session over it
func Create(ctx context.Context, repo repository.Repository, title string) (*Session, error) {
	if title == "" {
		title = "Todo"
	}
	item, err := model.NewHistoryItem(title, &model.TodoData{Tasks: []*model.TodoItem{}})
	if err != nil {
		return nil, err
	}
	if err := repo.PutItem(ctx, item); err != nil {
		return nil, err
	}
	return &Session{repo: repo, itemID: item.ID}, nil
}

// Add appends a task to the end of the list
func (s *Session) Add(ctx context.Context, text string) (*model.TodoItem, error) {
	if text == "" {
		return nil, goerr.Wrap(model.ErrInvalidItem, "task text is empty")
	}

	task := &model.TodoItem{ID: uuid.New().String(), Text: text}
	err := s.update(ctx, func(data *model.TodoData) error {
		data.Tasks = append(data.Tasks, task)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Toggle flips the completion state of a task
func (s *Session) Toggle(ctx context.Context, taskID string) error {
	return s.update(ctx, func(data *model.TodoData) error {
		task, err := find(data, taskID)
		if err != nil {
			return err
		}
		task.Completed = !task.Completed
		return nil
	})
}

// Edit replaces the text of a task, keeping its position and state
func (s *Session) Edit(ctx context.Context, taskID, text string) error {
	if text == "" {
		return goerr.Wrap(model.ErrInvalidItem, "task text is empty")
	}
	return s.update(ctx, func(data *model.TodoData) error {
		task, err := find(data, taskID)
		if err != nil {
			return err
		}
		task.Text = text
		return nil
	})
}

// Remove deletes a task from the list
func (s *Session) Remove(ctx context.Context, taskID string) error {
	return s.update(ctx, func(data *model.TodoData) error {
		for i, task := range data.Tasks {
			if task.ID == taskID {
				data.Tasks = append(data.Tasks[:i], data.Tasks[i+1:]...)
				return nil
			}
		}
		return goerr.Wrap(ErrTaskNotFound, "cannot remove task", goerr.V("task_id", taskID))
	})
}

// Tasks returns the current list in insertion order
func (s *Session) Tasks(ctx context.Context) ([]*model.TodoItem, error) {
	item, err := s.repo.GetItem(ctx, s.itemID)
	if err != nil {
		return nil, err
	}
	return item.Todo.Tasks, nil
}

func (s *Session) ItemID() model.HistoryID {
	return s.itemID
}

func (s *Session) update(ctx context.Context, fn func(data *model.TodoData) error) error {
	item, err := s.repo.GetItem(ctx, s.itemID)
	if err != nil {
		return err
	}
	if err := fn(item.Todo); err != nil {
		return err
	}
	if err := item.SetData(item.Todo); err != nil {
		return err
	}
	return s.repo.PutItem(ctx, item)
}

func find(data *model.TodoData, taskID string) (*model.TodoItem, error) {
	for _, task := range data.Tasks {
		if task.ID == taskID {
			return task, nil
		}
	}
	return nil, goerr.Wrap(ErrTaskNotFound, "no such task", goerr.V("task_id", taskID))
}
