// Package video implements the prompt-to-video tool session. Video jobs
// are asynchronous on the remote side, so a generation starts an operation
// and polls it to completion before the artifact is fetched and stored.
package video

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"

	"genstudio/pkg/adapter"
	"genstudio/pkg/media"
	"genstudio/pkg/model"
	"genstudio/pkg/poll"
	"genstudio/pkg/repository"
	"genstudio/pkg/retry"
	"genstudio/pkg/usecase"
	"genstudio/pkg/utils/logging"
)

// ErrNoArtifact means the operation finished without producing a video
var ErrNoArtifact = goerr.New("video operation completed without a video")

// Session drives one video tool instance
type Session struct {
	repo    repository.Repository
	gemini  adapter.Gemini
	fetcher adapter.Fetcher
	gate    *usecase.Gate

	pollOptions []poll.Option
	itemID      model.HistoryID
}

type NewInput struct {
	Repo    repository.Repository
	Gemini  adapter.Gemini
	Fetcher adapter.Fetcher

	// ItemID continues an existing video session when set
	ItemID *model.HistoryID

	GateOptions []retry.Option
	PollOptions []poll.Option
}

func New(ctx context.Context, input NewInput) (*Session, error) {
	s := &Session{
		repo:        input.Repo,
		gemini:      input.Gemini,
		fetcher:     input.Fetcher,
		gate:        usecase.NewGate(input.GateOptions...),
		pollOptions: input.PollOptions,
	}

	if input.ItemID != nil {
		item, err := input.Repo.GetItem(ctx, *input.ItemID)
		if err != nil {
			return nil, err
		}
		if item.Type != model.ToolVideo {
			return nil, goerr.Wrap(model.ErrInvalidItem, "item is not a video session", goerr.V("type", item.Type))
		}
		s.itemID = item.ID
	}

	return s, nil
}

type GenerateInput struct {
	Prompt      string
	AspectRatio string
	Title       string

	// Progress receives rotating status messages while the job runs
	Progress func(message string)
}

type Result struct {
	Item *model.HistoryItem

	// VideoBase64 is the fetched MP4, base64 encoded
	VideoBase64 string
}

// Generate starts a video job, polls it to completion, downloads the
// artifact and stores it in the history item owned by this session.
func (s *Session) Generate(ctx context.Context, input GenerateInput) (*Result, error) {
	if input.Prompt == "" {
		return nil, goerr.Wrap(model.ErrInvalidItem, "prompt is empty")
	}
	aspectRatio := input.AspectRatio
	if aspectRatio == "" {
		aspectRatio = "16:9"
	}

	if err := s.gate.Begin(); err != nil {
		return nil, err
	}
	defer s.gate.End()

	op, err := s.gemini.StartVideo(ctx, input.Prompt, aspectRatio)
	if err != nil {
		logging.From(ctx).Warn("video generation failed to start", "error", err)
		return nil, s.gate.HandleFailure(err, nil, nil)
	}

	opts := s.pollOptions
	if input.Progress != nil {
		opts = append(opts[:len(opts):len(opts)], poll.WithProgress(input.Progress))
	}
	op, err = poll.Until(ctx, op,
		func(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
			return s.gemini.PollVideo(ctx, op)
		},
		func(op *genai.GenerateVideosOperation) bool { return op.Done },
		opts...)
	if err != nil {
		return nil, err
	}

	data, err := s.artifact(ctx, op)
	if err != nil {
		if errors.Is(err, ErrNoArtifact) || errors.Is(err, adapter.ErrDownloadFailed) {
			return nil, err
		}
		return nil, s.gate.HandleFailure(err, nil, nil)
	}

	payload := &model.VideoData{
		Prompt:      input.Prompt,
		AspectRatio: aspectRatio,
		VideoBase64: media.Encode(data),
	}

	item, err := s.saveItem(ctx, input.Title, payload)
	if err != nil {
		return nil, err
	}

	return &Result{Item: item, VideoBase64: payload.VideoBase64}, nil
}

// artifact extracts the video bytes from a finished operation, downloading
// by URI when the payload is not inline
func (s *Session) artifact(ctx context.Context, op *genai.GenerateVideosOperation) ([]byte, error) {
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return nil, goerr.Wrap(ErrNoArtifact, "empty response")
	}
	video := op.Response.GeneratedVideos[0].Video
	if video == nil {
		return nil, goerr.Wrap(ErrNoArtifact, "no video in response")
	}
	if len(video.VideoBytes) > 0 {
		return video.VideoBytes, nil
	}
	if video.URI == "" {
		return nil, goerr.Wrap(ErrNoArtifact, "video has neither bytes nor URI")
	}
	return s.fetcher.Fetch(ctx, video.URI)
}

func (s *Session) saveItem(ctx context.Context, title string, payload *model.VideoData) (*model.HistoryItem, error) {
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
