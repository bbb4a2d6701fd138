package voice_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"google.golang.org/genai"

	"genstudio/pkg/media"
	"genstudio/pkg/model"
	"genstudio/pkg/repository"
	"genstudio/pkg/retry"
	"genstudio/pkg/usecase"
	"genstudio/pkg/usecase/voice"
)

type mockGemini struct {
	speech    *genai.Blob
	speechErr error
	calls     int
	lastText  string
	lastVoice string
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return nil, errors.New("not implemented")
}

func (m *mockGemini) GenerateSpeech(ctx context.Context, text, voice string) (*genai.Blob, error) {
	m.calls++
	m.lastText = text
	m.lastVoice = voice
	if m.speechErr != nil {
		return nil, m.speechErr
	}
	return m.speech, nil
}

func (m *mockGemini) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*genai.Image, error) {
	return nil, errors.New("not implemented")
}

func (m *mockGemini) StartVideo(ctx context.Context, prompt, aspectRatio string) (*genai.GenerateVideosOperation, error) {
	return nil, errors.New("not implemented")
}

func (m *mockGemini) PollVideo(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return nil, errors.New("not implemented")
}

func TestGenerateStoresAudio(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	gemini := &mockGemini{
		speech: &genai.Blob{Data: []byte("X"), MIMEType: "audio/L16;codec=pcm;rate=24000"},
	}

	s := gt.R1(voice.New(ctx, voice.NewInput{Repo: repo, Gemini: gemini})).NoError(t)
	defer s.Close()

	result := gt.R1(s.Generate(ctx, voice.GenerateInput{
		Text:  "Hello",
		Voice: "Zephyr",
		Speed: 1.0,
	})).NoError(t)

	gt.V(t, gemini.lastText).Equal("Hello")
	gt.V(t, gemini.lastVoice).Equal("Zephyr")

	stored := gt.R1(repo.GetItem(ctx, result.Item.ID)).NoError(t)
	gt.V(t, stored.Type).Equal(model.ToolVoice)
	gt.V(t, stored.Voice.Text).Equal("Hello")
	gt.V(t, stored.Voice.AudioBase64).Equal(media.Encode([]byte("X")))
	gt.V(t, stored.Voice.SampleRate).Equal(24000)

	data := gt.R1(os.ReadFile(result.Playback.Path())).NoError(t)
	gt.S(t, string(data[:4])).Equal("RIFF")
	header := gt.R1(media.ParseWAVHeader(data)).NoError(t)
	gt.V(t, header.SampleRate).Equal(24000)
}

func TestGenerateKeepsModelSampleRate(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	gemini := &mockGemini{
		speech: &genai.Blob{Data: []byte("Y"), MIMEType: "audio/L16;codec=pcm;rate=16000"},
	}

	s := gt.R1(voice.New(ctx, voice.NewInput{Repo: repo, Gemini: gemini})).NoError(t)
	defer s.Close()

	result := gt.R1(s.Generate(ctx, voice.GenerateInput{
		Text:  "Hello",
		Voice: "Kore",
		Speed: 1.0,
	})).NoError(t)

	stored := gt.R1(repo.GetItem(ctx, result.Item.ID)).NoError(t)
	gt.V(t, stored.Voice.SampleRate).Equal(16000)

	data := gt.R1(os.ReadFile(result.Playback.Path())).NoError(t)
	header := gt.R1(media.ParseWAVHeader(data)).NoError(t)
	gt.V(t, header.SampleRate).Equal(16000)
}

func TestGenerateRejectsBadSpeed(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	gemini := &mockGemini{}

	s := gt.R1(voice.New(ctx, voice.NewInput{Repo: repo, Gemini: gemini})).NoError(t)
	defer s.Close()

	_, err := s.Generate(ctx, voice.GenerateInput{Text: "hi", Voice: "Kore", Speed: 2.0})
	gt.True(t, errors.Is(err, model.ErrInvalidSpeed))
	gt.V(t, gemini.calls).Equal(0)
}

func TestGenerateUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	gemini := &mockGemini{
		speech: &genai.Blob{Data: []byte("first"), MIMEType: "audio/L16;rate=24000"},
	}

	s := gt.R1(voice.New(ctx, voice.NewInput{Repo: repo, Gemini: gemini})).NoError(t)
	defer s.Close()

	first := gt.R1(s.Generate(ctx, voice.GenerateInput{Text: "one", Voice: "Kore", Speed: 1.0})).NoError(t)

	gemini.speech = &genai.Blob{Data: []byte("second"), MIMEType: "audio/L16;rate=24000"}
	second := gt.R1(s.Generate(ctx, voice.GenerateInput{Text: "two", Voice: "Kore", Speed: 1.0})).NoError(t)

	gt.V(t, second.Item.ID).Equal(first.Item.ID)

	items := gt.R1(repo.ListItems(ctx)).NoError(t)
	gt.A(t, items).Length(1)
	gt.V(t, items[0].Voice.Text).Equal("two")
	gt.V(t, items[0].Voice.AudioBase64).Equal(media.Encode([]byte("second")))
}

func TestGenerateFailureArmsCountdown(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	gemini := &mockGemini{
		speechErr: genai.APIError{
			Code:    429,
			Status:  "RESOURCE_EXHAUSTED",
			Message: "quota exceeded",
			Details: []map[string]any{
				{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "2s"},
			},
		},
	}

	s := gt.R1(voice.New(ctx, voice.NewInput{
		Repo:        repo,
		Gemini:      gemini,
		GateOptions: []retry.Option{retry.WithInterval(time.Millisecond)},
	})).NoError(t)
	defer s.Close()

	_, err := s.Generate(ctx, voice.GenerateInput{Text: "hi", Voice: "Kore", Speed: 1.0})
	gt.Error(t, err)

	var failure *usecase.Failure
	gt.True(t, errors.As(err, &failure))
	gt.S(t, failure.Outcome.Message).Contains("Retry in 2 seconds")

	// nothing persisted on failure
	items := gt.R1(repo.ListItems(ctx)).NoError(t)
	gt.A(t, items).Length(0)

	// the countdown blocks the next submission
	_, err = s.Generate(ctx, voice.GenerateInput{Text: "again", Voice: "Kore", Speed: 1.0})
	gt.True(t, errors.Is(err, usecase.ErrRetryPending))
}

func TestGenerateNotProvisionedBlocksUntilReselect(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	gemini := &mockGemini{
		speechErr: genai.APIError{Code: 404, Status: "NOT_FOUND", Message: "model not found"},
	}

	s := gt.R1(voice.New(ctx, voice.NewInput{Repo: repo, Gemini: gemini})).NoError(t)
	defer s.Close()

	_, err := s.Generate(ctx, voice.GenerateInput{Text: "hi", Voice: "Kore", Speed: 1.0})
	gt.Error(t, err)
	gt.True(t, s.Gate().NeedsCredential())

	_, err = s.Generate(ctx, voice.GenerateInput{Text: "hi", Voice: "Kore", Speed: 1.0})
	gt.True(t, errors.Is(err, usecase.ErrNoCredential))

	s.Gate().CredentialSelected()
	gemini.speechErr = nil
	gemini.speech = &genai.Blob{Data: []byte("ok"), MIMEType: "audio/L16;rate=24000"}
	gt.R1(s.Generate(ctx, voice.GenerateInput{Text: "hi", Voice: "Kore", Speed: 1.0})).NoError(t)
}
