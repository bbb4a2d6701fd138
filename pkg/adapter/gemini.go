package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

var ErrEmptyResponse = goerr.New("generation returned no content")

// Gemini is the remote generation capability shared by all tools
type Gemini interface {
	// GenerateContent runs one chat turn over the full transcript
	GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

	// GenerateSpeech renders text as raw 16-bit PCM audio
	GenerateSpeech(ctx context.Context, text, voice string) (*genai.Blob, error)

	// GenerateImage renders a prompt as a single image
	GenerateImage(ctx context.Context, prompt, aspectRatio string) (*genai.Image, error)

	// StartVideo begins an asynchronous video generation job
	StartVideo(ctx context.Context, prompt, aspectRatio string) (*genai.GenerateVideosOperation, error)

	// PollVideo refreshes the state of a running video job
	PollVideo(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
}

type GeminiClient struct {
	client      *genai.Client
	chatModel   string
	speechModel string
	imageModel  string
	videoModel  string
}

type GeminiOption func(*GeminiClient)

func WithChatModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.chatModel = model
	}
}

func WithSpeechModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.speechModel = model
	}
}

func WithImageModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.imageModel = model
	}
}

func WithVideoModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.videoModel = model
	}
}

// NewGemini creates a Gemini client authorized by an API key
func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GeminiClient{
		client:      client,
		chatModel:   "gemini-2.5-flash",
		speechModel: "gemini-2.5-flash-preview-tts",
		imageModel:  "imagen-4.0-generate-001",
		videoModel:  "veo-3.0-generate-001",
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

func (g *GeminiClient) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.chatModel, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content")
	}
	return resp, nil
}

func (g *GeminiClient) GenerateSpeech(ctx context.Context, text, voice string) (*genai.Blob, error) {
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.speechModel, genai.Text(text), config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate speech")
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData, nil
			}
		}
	}
	return nil, goerr.Wrap(ErrEmptyResponse, "no audio in speech response")
}

func (g *GeminiClient) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*genai.Image, error) {
	resp, err := g.client.Models.GenerateImages(ctx, g.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    aspectRatio,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate image")
	}

	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, goerr.Wrap(ErrEmptyResponse, "no image in response")
	}
	return resp.GeneratedImages[0].Image, nil
}

func (g *GeminiClient) StartVideo(ctx context.Context, prompt, aspectRatio string) (*genai.GenerateVideosOperation, error) {
	op, err := g.client.Models.GenerateVideos(ctx, g.videoModel, prompt, nil, &genai.GenerateVideosConfig{
		AspectRatio: aspectRatio,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to start video generation")
	}
	return op, nil
}

func (g *GeminiClient) PollVideo(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	next, err := g.client.Operations.GetVideosOperation(ctx, op, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to poll video operation")
	}
	return next, nil
}
