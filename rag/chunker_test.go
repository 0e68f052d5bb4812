package rag

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildText(sentenceCount int, wordsPerSentence int) string {
	var b strings.Builder

	for i := 0; i < sentenceCount; i++ {
		for j := 0; j < wordsPerSentence; j++ {
			if j > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "word%d_%d", i, j)
		}
		b.WriteString(". ")
	}

	return b.String()
}

func TestChunker_SingleChunk(t *testing.T) {
	chunker := NewChunker()

	metadata := map[string]any{"topic": "test"}

	chunks, err := chunker.Chunk("One sentence. Another sentence here.", metadata)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	require.Equal(t, 0, chunks[0].Index)
	require.Equal(t, "One sentence. Another sentence here.", chunks[0].Text)
	require.Equal(t, 5, chunks[0].WordCount)
	require.Equal(t, len(chunks[0].Text), chunks[0].CharCount)
	require.Equal(t, metadata, chunks[0].Metadata)
}

func TestChunker_NineHundredWordDocument(t *testing.T) {
	chunker := NewChunker(
		WithChunkSize(400),
		WithOverlap(80),
		WithMinChunkSize(50),
	)

	// 45 sentences of 20 words each
	text := buildText(45, 20)

	chunks, err := chunker.Chunk(text, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, chunk := range chunks {
		require.LessOrEqual(t, chunk.WordCount, 400)
		require.Equal(t, i, chunk.Index)
	}

	// each chunk opens with the 80-word tail of the previous one
	for i := 0; i < len(chunks)-1; i++ {
		tail := strings.Fields(chunks[i].Text)
		head := strings.Fields(chunks[i+1].Text)

		require.Equal(t, tail[len(tail)-80:], head[:80])
	}
}

func TestChunker_Deterministic(t *testing.T) {
	chunker := NewChunker(
		WithChunkSize(100),
		WithOverlap(20),
		WithMinChunkSize(10),
	)

	text := buildText(30, 12)

	first, err := chunker.Chunk(text, nil)
	require.NoError(t, err)

	second, err := chunker.Chunk(text, nil)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestChunker_DropsShortTail(t *testing.T) {
	chunker := NewChunker(
		WithChunkSize(100),
		WithOverlap(0),
		WithMinChunkSize(50),
	)

	// 6 sentences of 20 words: one full chunk of 5, then a 20-word tail
	text := buildText(6, 20)

	chunks, err := chunker.Chunk(text, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, 100, chunks[0].WordCount)
}

func TestChunker_KeepsSoleShortChunk(t *testing.T) {
	chunker := NewChunker(
		WithMinChunkSize(50),
	)

	chunks, err := chunker.Chunk("Just a few words here.", nil)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
}

func TestChunker_NormalizesWhitespaceAndControlCharacters(t *testing.T) {
	chunker := NewChunker()

	chunks, err := chunker.Chunk("Hello\tthere.\n\nSe\acond  line.", nil)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, "Hello there. Second line.", chunks[0].Text)
}

func TestChunker_EmptyTextIsAnError(t *testing.T) {
	chunker := NewChunker()

	_, err := chunker.Chunk("", nil)
	require.Error(t, err)

	_, err = chunker.Chunk("   \n\t  ", nil)
	require.Error(t, err)
}
