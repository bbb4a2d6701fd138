package adapter_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"
	"google.golang.org/genai"

	"genstudio/pkg/adapter"
)

func setupGemini(t *testing.T) *adapter.GeminiClient {
	t.Helper()
	apiKey := os.Getenv("TEST_GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("TEST_GEMINI_API_KEY is not set")
	}

	client, err := adapter.NewGemini(context.Background(), apiKey)
	gt.NoError(t, err)
	return client
}

func TestGenerateContent(t *testing.T) {
	client := setupGemini(t)
	ctx := context.Background()

	contents := []*genai.Content{
		genai.NewContentFromText("What is the capital of France? Answer in one word.", genai.RoleUser),
	}

	resp, err := client.GenerateContent(ctx, contents, nil)
	gt.NoError(t, err)
	gt.V(t, resp).NotNil()
	gt.A(t, resp.Candidates).Longer(0)
	gt.S(t, resp.Candidates[0].Content.Parts[0].Text).Contains("Paris")
}

func TestGenerateSpeech(t *testing.T) {
	client := setupGemini(t)

	blob, err := client.GenerateSpeech(context.Background(), "Hello", "Zephyr")
	gt.NoError(t, err)
	gt.V(t, blob).NotNil()
	gt.True(t, len(blob.Data) > 0)
	gt.S(t, blob.MIMEType).Contains("audio")
}

func TestGenerateImage(t *testing.T) {
	client := setupGemini(t)

	img, err := client.GenerateImage(context.Background(), "a red circle on white background", "1:1")
	gt.NoError(t, err)
	gt.V(t, img).NotNil()
	gt.True(t, len(img.ImageBytes) > 0)
}
