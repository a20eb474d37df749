package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dmitrijs2005/containertracker/internal/imagex"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini extracts text with a Google Gemini model.
type Gemini struct {
	client   *genai.Client
	generate func(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	model := client.GenerativeModel(modelName)
	return &Gemini{client: client, generate: model.GenerateContent}, nil
}

func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *Gemini) Extract(ctx context.Context, kind, image string) (string, error) {
	prompt, err := Prompt(kind)
	if err != nil {
		return "", err
	}
	if err := ValidateImageData(image); err != nil {
		return "", err
	}
	mime, data, err := imagex.ParseDataURL(image)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	resp, err := g.generate(ctx, genai.Text(prompt), genai.ImageData(strings.TrimPrefix(mime, "image/"), data))
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}

	var answer strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				answer.WriteString(string(txt))
			}
		}
	}
	return Normalize(answer.String()), nil
}
