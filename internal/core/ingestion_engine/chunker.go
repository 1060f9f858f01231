package ingestion_engine

import "strings"

// SplitIntoChunks splits text into segments of at most size characters,
// preferring to end each segment at the last sentence boundary (., ?, !)
// before the limit and falling back to a hard cut when none exists.
// Consecutive segments overlap by overlap characters so retrieval keeps
// cross-boundary context. Chunk edges are whitespace-trimmed. Size and
// overlap count runes, never bytes, so cuts cannot land inside a
// multibyte character.
func SplitIntoChunks(text string, size, overlap int) []string {
	var chunks []string

	if text == "" || size <= 0 {
		return chunks
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)

	start := 0
	for start < len(runes) {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}

		// Prefer a sentence boundary inside the window.
		if end < len(runes) {
			if i := lastSentenceEnd(runes[start:end]); i >= 0 {
				end = start + i + 1
			}
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := end - overlap
		if next <= start {
			// Overlap would stall or rewind; advance past the segment.
			next = end
		}
		start = next
	}

	return chunks
}

func lastSentenceEnd(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		switch rs[i] {
		case '.', '?', '!':
			return i
		}
	}
	return -1
}

// EstimateTokens is a cheap token estimate (~4 chars per token).
func EstimateTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}
