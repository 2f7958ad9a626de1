package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithConfigDefaults(t *testing.T) {
	c, err := NewWithConfig(ChunkerConfig{})
	require.NoError(t, err)

	assert.Equal(t, DefaultChunkSize, c.config.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, c.config.ChunkOverlap)
}

func TestChunkEmptyText(t *testing.T) {
	c, err := NewWithConfig(ChunkerConfig{})
	require.NoError(t, err)

	chunks, err := c.Chunk("")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkShortTextSingleChunk(t *testing.T) {
	c, err := NewWithConfig(ChunkerConfig{})
	require.NoError(t, err)

	chunks, err := c.Chunk("a short paragraph that fits in one chunk")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short paragraph that fits in one chunk", chunks[0])
}

func TestChunkRespectsTokenBudget(t *testing.T) {
	c, err := NewWithConfig(ChunkerConfig{ChunkSize: 20, ChunkOverlap: 5})
	require.NoError(t, err)

	paragraphs := make([]string, 10)
	for i := range paragraphs {
		paragraphs[i] = strings.Repeat("the quick brown fox jumps over the lazy dog ", 3)
	}
	text := strings.Join(paragraphs, "\n\n")

	chunks, err := c.Chunk(text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, c.CountTokens(chunk), 20)
	}
}

func TestChunkDeterministic(t *testing.T) {
	c, err := NewWithConfig(ChunkerConfig{ChunkSize: 30, ChunkOverlap: 5})
	require.NoError(t, err)

	text := strings.Repeat("alpha beta gamma delta epsilon zeta eta theta. ", 20)

	first, err := c.Chunk(text)
	require.NoError(t, err)
	second, err := c.Chunk(text)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCountTokens(t *testing.T) {
	c, err := NewWithConfig(ChunkerConfig{})
	require.NoError(t, err)

	assert.Equal(t, 0, c.CountTokens(""))
	assert.Greater(t, c.CountTokens("hello world"), 0)

	short := c.CountTokens("hello")
	long := c.CountTokens(strings.Repeat("hello world ", 50))
	assert.Greater(t, long, short)
}
