package image_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"google.golang.org/genai"

	"genstudio/pkg/model"
	"genstudio/pkg/repository"
	"genstudio/pkg/usecase"
	"genstudio/pkg/usecase/image"
)

type mockGemini struct {
	image    *genai.Image
	imageErr error
	lastAR   string
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return nil, errors.New("not implemented")
}

func (m *mockGemini) GenerateSpeech(ctx context.Context, text, voice string) (*genai.Blob, error) {
	return nil, errors.New("not implemented")
}

func (m *mockGemini) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*genai.Image, error) {
	m.lastAR = aspectRatio
	if m.imageErr != nil {
		return nil, m.imageErr
	}
	return m.image, nil
}

func (m *mockGemini) StartVideo(ctx context.Context, prompt, aspectRatio string) (*genai.GenerateVideosOperation, error) {
	return nil, errors.New("not implemented")
}

func (m *mockGemini) PollVideo(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return nil, errors.New("not implemented")
}

func TestGenerateStoresDataURI(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	gemini := &mockGemini{
		image: &genai.Image{ImageBytes: []byte{0x89, 0x50, 0x4e, 0x47}, MIMEType: "image/png"},
	}

	s := gt.R1(image.New(ctx, image.NewInput{Repo: repo, Gemini: gemini})).NoError(t)
	defer s.Close()

	result := gt.R1(s.Generate(ctx, image.GenerateInput{
		Prompt:      "a lighthouse at dusk",
		AspectRatio: "16:9",
	})).NoError(t)

	gt.V(t, gemini.lastAR).Equal("16:9")
	gt.True(t, strings.HasPrefix(result.ImageURL, "data:image/png;base64,"))

	stored := gt.R1(repo.GetItem(ctx, result.Item.ID)).NoError(t)
	gt.V(t, stored.Type).Equal(model.ToolImage)
	gt.V(t, stored.Title).Equal("a lighthouse at dusk")
	gt.V(t, stored.Image.Prompt).Equal("a lighthouse at dusk")
	gt.V(t, stored.Image.AspectRatio).Equal("16:9")
	gt.V(t, stored.Image.ImageURL).Equal(result.ImageURL)
}

func TestGenerateDefaultsAspectRatio(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	gemini := &mockGemini{image: &genai.Image{ImageBytes: []byte("img")}}

	s := gt.R1(image.New(ctx, image.NewInput{Repo: repo, Gemini: gemini})).NoError(t)
	defer s.Close()

	gt.R1(s.Generate(ctx, image.GenerateInput{Prompt: "p"})).NoError(t)
	gt.V(t, gemini.lastAR).Equal("1:1")
}

func TestGenerateEmptyPrompt(t *testing.T) {
	ctx := context.Background()
	s := gt.R1(image.New(ctx, image.NewInput{Repo: repository.NewMemory(), Gemini: &mockGemini{}})).NoError(t)
	defer s.Close()

	_, err := s.Generate(ctx, image.GenerateInput{Prompt: ""})
	gt.True(t, errors.Is(err, model.ErrInvalidItem))
}

func TestGenerateReplacesImageInPlace(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	gemini := &mockGemini{image: &genai.Image{ImageBytes: []byte("one"), MIMEType: "image/png"}}

	s := gt.R1(image.New(ctx, image.NewInput{Repo: repo, Gemini: gemini})).NoError(t)
	defer s.Close()

	first := gt.R1(s.Generate(ctx, image.GenerateInput{Prompt: "one"})).NoError(t)

	gemini.image = &genai.Image{ImageBytes: []byte("two"), MIMEType: "image/png"}
	second := gt.R1(s.Generate(ctx, image.GenerateInput{Prompt: "two"})).NoError(t)

	gt.V(t, second.Item.ID).Equal(first.Item.ID)
	items := gt.R1(repo.ListItems(ctx)).NoError(t)
	gt.A(t, items).Length(1)
	gt.V(t, items[0].Image.Prompt).Equal("two")
}

func TestGenerateBillingFailure(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	gemini := &mockGemini{
		imageErr: genai.APIError{Code: 400, Status: "FAILED_PRECONDITION", Message: "Imagen API is only accessible to billed users at this time."},
	}

	s := gt.R1(image.New(ctx, image.NewInput{Repo: repo, Gemini: gemini})).NoError(t)
	defer s.Close()

	_, err := s.Generate(ctx, image.GenerateInput{Prompt: "p"})
	var failure *usecase.Failure
	gt.True(t, errors.As(err, &failure))
	gt.False(t, failure.Outcome.Retryable())

	items := gt.R1(repo.ListItems(ctx)).NoError(t)
	gt.A(t, items).Length(0)
}
