package chat_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pickmecinime/cinime/backend/internal/model/chat"
)

func TestConversationAllPreservesAppendOrder(t *testing.T) {
	conv := chat.NewConversation()

	var want []chat.Turn
	for i := 0; i < 6; i++ {
		turn := chat.Turn{
			ID:        fmt.Sprintf("turn-%d", i),
			Role:      chat.RoleUser,
			Text:      fmt.Sprintf("message %d", i),
			CreatedAt: time.Date(2025, 1, 1, 0, 0, i, 0, time.UTC),
		}
		if i%2 == 1 {
			turn.Role = chat.RoleAssistant
			turn.Sources = []chat.Source{{Title: "IMDb", URI: "https://www.imdb.com"}}
		}
		_, err := conv.Append(turn)
		require.NoError(t, err)
		want = append(want, turn)
	}

	assert.Equal(t, want, conv.All())
	assert.Equal(t, len(want), conv.Len())
}

func TestConversationAppendAssignsIDAndTimestamp(t *testing.T) {
	conv := chat.NewConversation()

	stored, err := conv.Append(chat.Turn{Role: chat.RoleUser, Text: "hi"})
	require.NoError(t, err)

	assert.NotEmpty(t, stored.ID)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestConversationTurnsAreImmutable(t *testing.T) {
	conv := chat.NewConversation()
	sources := []chat.Source{{Title: "A", URI: "https://a.example"}}

	_, err := conv.Append(chat.Turn{Role: chat.RoleAssistant, Text: "answer", Sources: sources})
	require.NoError(t, err)

	sources[0].Title = "mutated"
	got := conv.All()
	got[0].Sources[0].URI = "https://mutated.example"
	got[0].Text = "mutated"

	again := conv.All()
	assert.Equal(t, "answer", again[0].Text)
	assert.Equal(t, chat.Source{Title: "A", URI: "https://a.example"}, again[0].Sources[0])
}

func TestConversationDropsSourcesOnUserTurns(t *testing.T) {
	conv := chat.NewConversation()

	stored, err := conv.Append(chat.Turn{
		Role:    chat.RoleUser,
		Text:    "hello",
		Sources: []chat.Source{{Title: "x", URI: "https://x.example"}},
	})
	require.NoError(t, err)
	assert.Empty(t, stored.Sources)
}

func TestConversationRejectsInvalidTurns(t *testing.T) {
	conv := chat.NewConversation()

	_, err := conv.Append(chat.Turn{Role: chat.RoleUser})
	assert.ErrorIs(t, err, chat.ErrInvalidTurn)

	_, err = conv.Append(chat.Turn{Role: "system", Text: "x"})
	assert.ErrorIs(t, err, chat.ErrInvalidTurn)

	assert.Zero(t, conv.Len())
}

func TestNewSource(t *testing.T) {
	src, ok := chat.NewSource("", "https://example.com")
	require.True(t, ok)
	assert.Equal(t, chat.UntitledSource, src.Title)

	_, ok = chat.NewSource("Title", "")
	assert.False(t, ok)
}
