package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/chatq/assist-backend/internal/core"
)

type GeminiLLM struct {
	client    *genai.Client
	modelName string
}

func NewGeminiLLM(ctx context.Context, apiKey, modelName string) (*GeminiLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiLLM{client: cl, modelName: modelName}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiLLM) model(systemPrompt string) *genai.GenerativeModel {
	m := g.client.GenerativeModel(g.modelName)
	if systemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}
	return m
}

func (g *GeminiLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m := g.model(systemPrompt)

	resp, err := m.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("%w: gemini generate: %v", core.ErrGeneration, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

// GenerateStream relays model fragments onto a channel as they arrive.
// The channel is closed after the final fragment or after one terminal
// error delta.
func (g *GeminiLLM) GenerateStream(ctx context.Context, systemPrompt, userPrompt string) (<-chan core.StreamDelta, error) {
	m := g.model(systemPrompt)
	iter := m.GenerateContentStream(ctx, genai.Text(userPrompt))

	out := make(chan core.StreamDelta, 8)
	go func() {
		defer close(out)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				out <- core.StreamDelta{Err: fmt.Errorf("%w: gemini stream: %v", core.ErrGeneration, err)}
				return
			}
			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, p := range cand.Content.Parts {
					t, ok := p.(genai.Text)
					if !ok || len(t) == 0 {
						continue
					}
					select {
					case out <- core.StreamDelta{Text: string(t)}:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}

var _ core.LLMProvider = (*GeminiLLM)(nil)
