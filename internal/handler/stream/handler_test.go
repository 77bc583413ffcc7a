package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pickmecinime/cinime/backend/internal/model/mood"
	"github.com/pickmecinime/cinime/backend/internal/model/persona"
	"github.com/pickmecinime/cinime/backend/internal/service/ai"
	chatservice "github.com/pickmecinime/cinime/backend/internal/service/chat"
	"github.com/pickmecinime/cinime/backend/internal/service/interaction"
)

func newHandler(t *testing.T) (*Handler, *chatservice.State) {
	t.Helper()
	chatSvc := chatservice.NewService(time.Hour, nil)
	personas := persona.NewMemoryStore(persona.Seed())
	interactionSvc := interaction.NewService(ai.NewMockClient(), personas, mood.NewMemoryStore(mood.Seed()), nil, interaction.Options{SearchGrounding: true}, nil)

	state, err := chatSvc.CreateSession(context.Background(), persona.DefaultID)
	require.NoError(t, err)
	return New(chatSvc, interactionSvc, nil), state
}

func readEvents(t *testing.T, body string) []StreamResponse {
	t.Helper()
	var events []StreamResponse
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev StreamResponse
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}
	return events
}

func TestHandleStreamRequestEmitsTurn(t *testing.T) {
	handler, state := newHandler(t)
	rec := httptest.NewRecorder()

	err := handler.HandleStreamRequest(context.Background(), rec, state.Session.ID, interaction.Input{MoodID: "thrilling"})
	require.NoError(t, err)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event: thinking\n")

	events := readEvents(t, rec.Body.String())
	require.Len(t, events, 3)
	assert.Equal(t, "thinking", events[0].Event)
	assert.Equal(t, "I want something thrilling and suspenseful. What movies or series should I watch?", events[0].Content)
	assert.Equal(t, "message", events[1].Event)
	require.NotNil(t, events[1].Turn)
	assert.Contains(t, events[1].Turn.Text, "Prisoners")
	assert.NotEmpty(t, events[1].Turn.Sources)
	assert.Equal(t, "end", events[2].Event)
	assert.True(t, events[2].Finished)

	assert.Len(t, state.Transcript(), 2)
}

func TestHandleStreamRequestUnknownSession(t *testing.T) {
	handler, _ := newHandler(t)

	err := handler.HandleStreamRequest(context.Background(), httptest.NewRecorder(), "missing", interaction.Input{Text: "hi"})
	assert.ErrorIs(t, err, chatservice.ErrSessionNotFound)
}

func TestHandleStreamRequestUnknownMood(t *testing.T) {
	handler, state := newHandler(t)
	rec := httptest.NewRecorder()

	err := handler.HandleStreamRequest(context.Background(), rec, state.Session.ID, interaction.Input{MoodID: "sleepy"})
	assert.ErrorIs(t, err, interaction.ErrUnknownMood)
	assert.Empty(t, rec.Body.String())
	assert.Empty(t, state.Transcript())
}
