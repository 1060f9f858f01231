package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chatq/assist-backend/internal/core"
	"github.com/chatq/assist-backend/internal/models"
)

// systemPrompt frames the assistant. Answers come from the provided
// knowledge base context only; tone is friendly and professional.
const systemPrompt = "Du bist ein hilfreicher Kundenservice-Assistent. " +
	"Beantworte Fragen basierend auf den bereitgestellten FAQ-Informationen. " +
	"Sei freundlich, professionell und präzise. " +
	"Wenn die Informationen nicht ausreichen, sage das ehrlich."

// Synthesizer builds the grounded prompt from retrieval output and recent
// conversation history and hands it to the language model, in batch or
// streaming form.
type Synthesizer struct {
	llm          core.LLMProvider
	historyLimit int
	log          *slog.Logger
}

func NewSynthesizer(llm core.LLMProvider, historyLimit int, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{llm: llm, historyLimit: historyLimit, log: logger}
}

// Synthesize produces the complete answer in one call.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, res models.RetrievalResult, history []models.Message) (string, error) {
	prompt := s.BuildPrompt(question, res, history)
	answer, err := s.llm.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("synthesize answer: %w", err)
	}
	return answer, nil
}

// SynthesizeStream produces the answer as a delta channel. The channel is
// closed after the final delta or after a delta carrying a non-nil Err.
func (s *Synthesizer) SynthesizeStream(ctx context.Context, question string, res models.RetrievalResult, history []models.Message) (<-chan core.StreamDelta, error) {
	prompt := s.BuildPrompt(question, res, history)
	return s.llm.GenerateStream(ctx, systemPrompt, prompt)
}

// BuildPrompt assembles the user prompt: retrieved FAQ entries first,
// then document excerpts, then the recent history window, then the
// question itself. history holds prior turns only, oldest first.
func (s *Synthesizer) BuildPrompt(question string, res models.RetrievalResult, history []models.Message) string {
	var b strings.Builder

	if len(res.Faqs) > 0 {
		b.WriteString("Relevante FAQ-Einträge aus unserer Wissensdatenbank:\n\n")
		for i, m := range res.Faqs {
			fmt.Fprintf(&b, "%d. Frage: %s\n   Antwort: %s\n\n", i+1, m.Entry.Question, m.Entry.Answer)
		}
	}

	if len(res.Chunks) > 0 {
		b.WriteString("Relevante Informationen aus unseren Dokumenten:\n\n")
		for i, m := range res.Chunks {
			fmt.Fprintf(&b, "%d. Aus Dokument '%s':\n   %s\n\n", i+1, m.DocumentTitle, m.Chunk.Content)
		}
	}

	if window := s.historyWindow(history); len(window) > 0 {
		b.WriteString("Bisheriger Gesprächsverlauf:\n")
		for _, msg := range window {
			speaker := "Kunde"
			if msg.Role == models.RoleAssistant {
				speaker = "Assistent"
			}
			fmt.Fprintf(&b, "%s: %s\n", speaker, msg.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Aktuelle Frage des Kunden: %s\n\nDeine Antwort:", question)
	return b.String()
}

func (s *Synthesizer) historyWindow(history []models.Message) []models.Message {
	if s.historyLimit <= 0 || len(history) <= s.historyLimit {
		return history
	}
	return history[len(history)-s.historyLimit:]
}
