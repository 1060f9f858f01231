package core

import "context"

// EmbeddingProvider wraps an external embedding model. Implementations
// return one fixed-length vector per input text, in input order.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// StreamDelta is one incremental fragment of a streamed generation. A
// non-nil Err terminates the stream; the channel is closed afterwards.
type StreamDelta struct {
	Text string
	Err  error
}

// LLMProvider wraps the generative model in batch and streaming modes.
// GenerateStream pushes fragments onto the returned channel as the model
// produces them and closes it when generation completes or fails;
// cancelling ctx abandons the stream.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	GenerateStream(ctx context.Context, systemPrompt, userPrompt string) (<-chan StreamDelta, error)
}
