package chat

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgrd/docstack/internal/models"
	"github.com/mgrd/docstack/pkg/repo"
)

func newTestManager(t *testing.T) *HistoryManager {
	t.Helper()
	db, err := repo.OpenSQLite(":memory:")
	require.NoError(t, err)
	return NewHistoryManager(db)
}

func TestStartConversationFormat(t *testing.T) {
	m := newTestManager(t)

	id := m.StartConversation(3, 11)
	assert.True(t, strings.HasPrefix(id, "conv_3_11_"), id)
}

func TestAddAndReadMessages(t *testing.T) {
	m := newTestManager(t)
	conv := m.StartConversation(1, 2)

	_, err := m.AddUserMessage(1, 2, conv, "what does the contract say about renewal?")
	require.NoError(t, err)

	reply, err := m.AddAssistantMessage(1, 2, conv, "The contract renews annually.", 120, "mistral", 800*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(800), reply.ResponseTimeMs)
	assert.Equal(t, "mistral", reply.LLMModel)

	history, err := m.History(1, conv, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, models.MessageTypeUser, history[0].MessageType)
	assert.Equal(t, models.MessageTypeAssistant, history[1].MessageType)
	assert.Equal(t, 120, history[1].TokensUsed)
}

func TestHistoryScopedToUser(t *testing.T) {
	m := newTestManager(t)

	_, err := m.AddUserMessage(1, 1, "conv_1_1_0", "mine")
	require.NoError(t, err)
	_, err = m.AddUserMessage(2, 2, "conv_2_2_0", "theirs")
	require.NoError(t, err)

	history, err := m.History(1, "", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "mine", history[0].Content)
}

func TestHistoryFilterByConversation(t *testing.T) {
	m := newTestManager(t)

	_, err := m.AddUserMessage(1, 1, "conv_1_1_100", "first topic")
	require.NoError(t, err)
	_, err = m.AddUserMessage(1, 1, "conv_1_1_200", "second topic")
	require.NoError(t, err)

	history, err := m.History(1, "conv_1_1_200", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "second topic", history[0].Content)
}

func TestHistoryLimitKeepsNewest(t *testing.T) {
	m := newTestManager(t)

	for i := 0; i < 10; i++ {
		_, err := m.AddUserMessage(1, 1, "conv_1_1_0", fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	history, err := m.History(1, "", 3)
	require.NoError(t, err)
	require.Len(t, history, 3)

	// Newest three, oldest of them first.
	assert.Equal(t, "message 7", history[0].Content)
	assert.Equal(t, "message 9", history[2].Content)
}
