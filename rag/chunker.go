package rag

import (
	"errors"
	"strings"
	"unicode"
)

// Chunk is a sentence-aligned segment of a document, sized for embedding.
// Chunks are transient: once embedded and stored they live on as vector
// entries, not as chunks.
type Chunk struct {
	Text      string
	Index     int
	WordCount int
	CharCount int
	Metadata  map[string]any
}

type Chunker struct {
	options Options
}

// Chunk splits text into overlapping chunks. Sentences are never split;
// consecutive chunks share trailing sentences up to the overlap word budget
// so context survives the boundary. A trailing chunk below MinChunkSize is
// dropped unless it is the only one.
func (c *Chunker) Chunk(text string, metadata map[string]any) ([]Chunk, error) {
	normalized := normalizeText(text)
	if len(normalized) == 0 {
		return nil, errors.New("no text to chunk")
	}

	sentences := splitSentences(normalized)

	var groups [][]string

	var current []string
	currentWords := 0

	for _, sentence := range sentences {
		words := countWords(sentence)

		if currentWords+words > c.options.ChunkSize && len(current) > 0 {
			groups = append(groups, current)

			seed := c.overlapSeed(current)
			current = append(seed, sentence)
			currentWords = 0
			for _, s := range current {
				currentWords += countWords(s)
			}

			continue
		}

		current = append(current, sentence)
		currentWords += words
	}

	if len(current) > 0 {
		if currentWords >= c.options.MinChunkSize || len(groups) == 0 {
			groups = append(groups, current)
		}
	}

	chunks := make([]Chunk, 0, len(groups))

	for i, group := range groups {
		joined := strings.Join(group, " ")

		chunks = append(chunks, Chunk{
			Text:      joined,
			Index:     i,
			WordCount: countWords(joined),
			CharCount: len(joined),
			Metadata:  metadata,
		})
	}

	return chunks, nil
}

// overlapSeed walks the closed chunk's sentences backward, re-including
// trailing sentences while their combined word count stays within the
// overlap budget.
func (c *Chunker) overlapSeed(closed []string) []string {
	var seed []string
	seedWords := 0

	for i := len(closed) - 1; i >= 0; i-- {
		words := countWords(closed[i])
		if seedWords+words > c.options.Overlap {
			break
		}
		seed = append([]string{closed[i]}, seed...)
		seedWords += words
	}

	return seed
}

// normalizeText collapses whitespace runs to single spaces and drops
// non-printable runes.
func normalizeText(text string) string {
	var b strings.Builder

	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case unicode.IsPrint(r):
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// splitSentences treats whitespace after '.', '!', or '?' as a sentence
// boundary. Text after the last terminator forms a final sentence.
func splitSentences(text string) []string {
	words := strings.Fields(text)

	var sentences []string
	var current []string

	for _, word := range words {
		current = append(current, word)

		if strings.HasSuffix(word, ".") || strings.HasSuffix(word, "!") || strings.HasSuffix(word, "?") {
			sentences = append(sentences, strings.Join(current, " "))
			current = nil
		}
	}

	if len(current) > 0 {
		sentences = append(sentences, strings.Join(current, " "))
	}

	return sentences
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

func NewChunker(opts ...Option) *Chunker {
	options := NewOptions(opts...)

	return &Chunker{
		options: options,
	}
}
