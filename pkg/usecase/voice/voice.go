// Package voice implements the text-to-speech tool session.
package voice

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"

	"genstudio/pkg/adapter"
	"genstudio/pkg/media"
	"genstudio/pkg/model"
	"genstudio/pkg/repository"
	"genstudio/pkg/retry"
	"genstudio/pkg/usecase"
	"genstudio/pkg/utils/logging"
)

const speechChannels = 1

// Session drives one voice tool instance. All submissions for the session
// are serialized through its gate; the session mutates only the history
// item it owns.
type Session struct {
	repo   repository.Repository
	gemini adapter.Gemini
	gate   *usecase.Gate

	itemID   model.HistoryID
	playback *media.Resource
}

type NewInput struct {
	Repo   repository.Repository
	Gemini adapter.Gemini

	// ItemID continues an existing voice session when set
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
		if item.Type != model.ToolVoice {
			return nil, goerr.Wrap(model.ErrInvalidItem, "item is not a voice session", goerr.V("type", item.Type))
		}
		s.itemID = item.ID
	}

	return s, nil
}

// GenerateInput is one text-to-speech submission
type GenerateInput struct {
	Text  string
	Voice string
	Speed float64
	Title string
}

// Result carries the stored item and a playable WAV resource. The resource
// stays valid until the next generation or Close.
type Result struct {
	Item     *model.HistoryItem
	Playback *media.Resource
}

// Generate renders the text as speech, stores the result in the history
// item owned by this session (creating it on first success) and returns a
// playable resource.
func (s *Session) Generate(ctx context.Context, input GenerateInput) (*Result, error) {
	payload := &model.VoiceData{
		Text:  input.Text,
		Voice: input.Voice,
		Speed: input.Speed,
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	if err := s.gate.Begin(); err != nil {
		return nil, err
	}
	defer s.gate.End()

	audio, err := s.gemini.GenerateSpeech(ctx, speechPrompt(input.Text, input.Speed), input.Voice)
	if err != nil {
		logging.From(ctx).Warn("speech generation failed", "error", err)
		return nil, s.gate.HandleFailure(err, nil, nil)
	}

	payload.AudioBase64 = media.Encode(audio.Data)
	payload.SampleRate = media.PCMRateFromMIME(audio.MIMEType)

	item, err := s.saveItem(ctx, input.Title, payload)
	if err != nil {
		return nil, err
	}

	wav := media.WriteWAV(audio.Data, payload.SampleRate, speechChannels)
	playback, err := media.NewResource(wav)
	if err != nil {
		return nil, err
	}

	// drop the superseded playback before handing out the new one
	if s.playback != nil {
		s.playback.Release()
	}
	s.playback = playback

	return &Result{Item: item, Playback: playback}, nil
}

func (s *Session) saveItem(ctx context.Context, title string, payload *model.VoiceData) (*model.HistoryItem, error) {
	if s.itemID == "" {
		if title == "" {
			title = defaultTitle(payload.Text)
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

// ItemID returns the id of the history item owned by the session, empty
// before the first successful generation
func (s *Session) ItemID() model.HistoryID {
	return s.itemID
}

// Gate exposes submission state for the UI (isLoading, countdown,
// credential flag)
func (s *Session) Gate() *usecase.Gate {
	return s.gate
}

// Close releases the playback resource and stops the countdown
func (s *Session) Close() {
	if s.playback != nil {
		s.playback.Release()
		s.playback = nil
	}
	s.gate.Close()
}

func speechPrompt(text string, speed float64) string {
	switch {
	case speed < 0.95:
		return fmt.Sprintf("Read the following slowly: %s", text)
	case speed > 1.05:
		return fmt.Sprintf("Read the following quickly: %s", text)
	default:
		return text
	}
}

func defaultTitle(text string) string {
	const maxTitle = 40
	runes := []rune(text)
	if len(runes) <= maxTitle {
		return text
	}
	return string(runes[:maxTitle]) + "..."
}
