// Package image implements the prompt-to-image tool session.
package image

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"genstudio/pkg/adapter"
	"genstudio/pkg/media"
	"genstudio/pkg/model"
	"genstudio/pkg/repository"
	"genstudio/pkg/retry"
	"genstudio/pkg/usecase"
	"genstudio/pkg/utils/logging"
)

// Session drives one image tool instance
type Session struct {
	repo   repository.Repository
	gemini adapter.Gemini
	gate   *usecase.Gate

	itemID model.HistoryID
}

type NewInput struct {
	Repo   repository.Repository
	Gemini adapter.Gemini

	// ItemID continues an existing image session when set
	ItemID *model.HistoryID

	GateOptions []retry.Option
}

func New(ctx context.Context, input NewInput) (*Session, error) {
	s := &Session{
		repo:   input.Repo,
		gemini: input.Gemini,
		gate:   usecase.NewGate(input.GateOptions...),
	}

	if input.ItemID != nil {
		item, err := input.Repo.GetItem(ctx, *input.ItemID)
		if err != nil {
			return nil, err
		}
		if item.Type != model.ToolImage {
			return nil, goerr.Wrap(model.ErrInvalidItem, "item is not an image session", goerr.V("type", item.Type))
		}
		s.itemID = item.ID
	}

	return s, nil
}

type GenerateInput struct {
	Prompt      string
	AspectRatio string
	Title       string
}

type Result struct {
	Item *model.HistoryItem

	// ImageURL is a data URI ready for display
	ImageURL string
}

// Generate renders the prompt as an image and stores it in the history
// item owned by this session, creating it on first success.
func (s *Session) Generate(ctx context.Context, input GenerateInput) (*Result, error) {
	if input.Prompt == "" {
		return nil, goerr.Wrap(model.ErrInvalidItem, "prompt is empty")
	}
	aspectRatio := input.AspectRatio
	if aspectRatio == "" {
		aspectRatio = "1:1"
	}

	if err := s.gate.Begin(); err != nil {
		return nil, err
	}
	defer s.gate.End()

	img, err := s.gemini.GenerateImage(ctx, input.Prompt, aspectRatio)
	if err != nil {
		logging.From(ctx).Warn("image generation failed", "error", err)
		return nil, s.gate.HandleFailure(err, nil, nil)
	}

	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	imageURL := media.DataURI(&media.Blob{MIMEType: mimeType, Data: img.ImageBytes})

	payload := &model.ImageData{
		Prompt:      input.Prompt,
		AspectRatio: aspectRatio,
		ImageURL:    imageURL,
	}

	item, err := s.saveItem(ctx, input.Title, payload)
	if err != nil {
		return nil, err
	}

	return &Result{Item: item, ImageURL: imageURL}, nil
}

func (s *Session) saveItem(ctx context.Context, title string, payload *model.ImageData) (*model.HistoryItem, error) {
	if s.itemID == "" {
		if title == "" {
			title = payload.Prompt
		}
		item, err := model.NewHistoryItem(title, payload)
		if err != nil {
			return nil, err
		}
		if err := s.repo.PutItem(ctx, item); err != nil {
			return nil, err
		}
		s.itemID = item.ID
		return item, nil
	}

	item, err := s.repo.GetItem(ctx, s.itemID)
	if err != nil {
		return nil, err
	}
	if err := item.SetData(payload); err != nil {
		return nil, err
	}
	if title != "" {
		item.Title = title
	}
	if err := s.repo.PutItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Session) ItemID() model.HistoryID {
	return s.itemID
}

func (s *Session) Gate() *usecase.Gate {
	return s.gate
}

func (s *Session) Close() {
	s.gate.Close()
}
