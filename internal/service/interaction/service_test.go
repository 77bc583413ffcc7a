package interaction

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pickmecinime/cinime/backend/internal/model/chat"
	"github.com/pickmecinime/cinime/backend/internal/model/mood"
	"github.com/pickmecinime/cinime/backend/internal/model/persona"
	"github.com/pickmecinime/cinime/backend/internal/service/ai"
	chatservice "github.com/pickmecinime/cinime/backend/internal/service/chat"
	"github.com/pickmecinime/cinime/backend/internal/service/grounding"
)

type fakeClient struct {
	mu       sync.Mutex
	startErr error
	sendErr  error
	reply    string
	starts   []ai.ChatOptions
	sent     []string
}

func (f *fakeClient) StartChat(_ context.Context, opts ai.ChatOptions) (ai.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, opts)
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &fakeChat{client: f}, nil
}

type fakeChat struct {
	client *fakeClient
}

func (c *fakeChat) Send(_ context.Context, text string) (*ai.Response, error) {
	c.client.mu.Lock()
	defer c.client.mu.Unlock()
	c.client.sent = append(c.client.sent, text)
	if c.client.sendErr != nil {
		return nil, c.client.sendErr
	}
	return &ai.Response{Provider: "fake", Raw: []byte(c.client.reply)}, nil
}

const groundedReply = `{
  "candidates": [{
    "content": {"role": "model", "parts": [{"text": "Try **Prisoners** (2013)."}]},
    "groundingMetadata": {
      "groundingChunks": [
        {"web": {"uri": "https://www.imdb.com/title/tt1392214/", "title": "Prisoners (2013) - IMDb"}},
        {"web": {"title": "no link"}}
      ]
    }
  }]
}`

func newTestService(t *testing.T, client ai.Client, opts Options) (*Service, *chatservice.State) {
	t.Helper()
	sessions := chatservice.NewService(time.Hour, nil)
	state, err := sessions.CreateSession(context.Background(), persona.DefaultID)
	require.NoError(t, err)

	svc := NewService(
		client,
		persona.NewMemoryStore(persona.Seed()),
		mood.NewMemoryStore(mood.Seed()),
		grounding.NewNormalizer(nil),
		opts,
		nil,
	)
	return svc, state
}

func TestSubmitRecommendSomethingThrilling(t *testing.T) {
	client := &fakeClient{reply: groundedReply}
	svc, state := newTestService(t, client, Options{SearchGrounding: true})

	ex, err := svc.Submit(context.Background(), state, Input{Text: "Recommend something thrilling"})
	require.NoError(t, err)

	assert.Equal(t, chat.RoleUser, ex.User.Role)
	assert.Equal(t, "Recommend something thrilling", ex.User.Text)
	assert.Equal(t, chat.RoleAssistant, ex.Assistant.Role)
	assert.Equal(t, "Try **Prisoners** (2013).", ex.Assistant.Text)
	assert.Contains(t, ex.Assistant.HTML, "<strong>Prisoners</strong>")
	assert.Equal(t, []chat.Source{{Title: "Prisoners (2013) - IMDb", URI: "https://www.imdb.com/title/tt1392214/"}}, ex.Assistant.Sources)
	assert.Empty(t, state.Location())

	require.Len(t, client.starts, 1)
	assert.True(t, client.starts[0].SearchGrounding)
	assert.Contains(t, client.starts[0].SystemInstruction, "Pickme Cinime")

	turns := state.Transcript()
	require.Len(t, turns, 2)
	assert.Equal(t, ex.User, turns[0])
	assert.Equal(t, ex.Assistant, turns[1])
}

func TestSubmitEveryMoodUsesPresetText(t *testing.T) {
	for _, preset := range mood.Seed() {
		t.Run(preset.ID, func(t *testing.T) {
			client := &fakeClient{reply: groundedReply}
			svc, state := newTestService(t, client, Options{})

			ex, err := svc.Submit(context.Background(), state, Input{MoodID: preset.ID})
			require.NoError(t, err)

			assert.Equal(t, preset.Prompt, ex.User.Text)
			assert.Equal(t, []string{preset.Prompt}, client.sent)
		})
	}
}

func TestSubmitFunnyMood(t *testing.T) {
	svc, state := newTestService(t, &fakeClient{reply: groundedReply}, Options{})

	ex, err := svc.Submit(context.Background(), state, Input{MoodID: "funny"})
	require.NoError(t, err)
	assert.Equal(t, "I need a good laugh! What are some funny movies or series?", ex.User.Text)
}

func TestSubmitRejectsBadInput(t *testing.T) {
	client := &fakeClient{reply: groundedReply}
	svc, state := newTestService(t, client, Options{})

	_, err := svc.Submit(context.Background(), state, Input{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = svc.Submit(context.Background(), state, Input{MoodID: "sleepy"})
	assert.ErrorIs(t, err, ErrUnknownMood)

	assert.Empty(t, state.Transcript())
	assert.Empty(t, client.starts)
}

func TestSubmitSendFailureBecomesAssistantTurn(t *testing.T) {
	client := &fakeClient{sendErr: errors.New("quota exceeded")}
	svc, state := newTestService(t, client, Options{SearchGrounding: true})

	ex, err := svc.Submit(context.Background(), state, Input{Text: "anything good?"})
	require.NoError(t, err)

	assert.Equal(t, "Sorry, I encountered an error: quota exceeded.", ex.Assistant.Text)
	assert.Empty(t, ex.Assistant.Sources)

	client.sendErr = nil
	client.reply = groundedReply
	ex, err = svc.Submit(context.Background(), state, Input{Text: "try again"})
	require.NoError(t, err)
	assert.Equal(t, "Try **Prisoners** (2013).", ex.Assistant.Text)

	assert.Len(t, state.Transcript(), 4)
	assert.Len(t, client.starts, 1)
}

func TestSubmitStartFailureRetriesNextTurn(t *testing.T) {
	client := &fakeClient{startErr: errors.New("invalid api key"), reply: groundedReply}
	svc, state := newTestService(t, client, Options{})

	ex, err := svc.Submit(context.Background(), state, Input{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Sorry, I encountered an error: invalid api key.", ex.Assistant.Text)
	assert.Nil(t, state.Chat())

	client.startErr = nil
	ex, err = svc.Submit(context.Background(), state, Input{Text: "hello again"})
	require.NoError(t, err)
	assert.Equal(t, "Try **Prisoners** (2013).", ex.Assistant.Text)
	assert.Len(t, client.starts, 2)
}

func TestSubmitUnreadableReplyFallsBack(t *testing.T) {
	svc, state := newTestService(t, &fakeClient{reply: `{"candidates": "oops"}`}, Options{})

	ex, err := svc.Submit(context.Background(), state, Input{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, grounding.FallbackText, ex.Assistant.Text)
	assert.Empty(t, ex.Assistant.Sources)
}

func TestSubmitRemembersLocationForListings(t *testing.T) {
	svc, state := newTestService(t, &fakeClient{reply: groundedReply}, Options{MockListings: true})

	ex, err := svc.Submit(context.Background(), state, Input{Text: "any movie to watch?"})
	require.NoError(t, err)
	assert.Contains(t, ex.Assistant.Text, "Please provide your city")

	_, err = svc.Submit(context.Background(), state, Input{Text: "I live in Austin"})
	require.NoError(t, err)
	assert.Equal(t, "Austin", state.Location())

	ex, err = svc.Submit(context.Background(), state, Input{Text: "a movie at the cinema then"})
	require.NoError(t, err)
	assert.Contains(t, ex.Assistant.Text, "Cinema Recommendation")
	assert.True(t, strings.Contains(ex.Assistant.Text, "Austin"))

	var titles []string
	for _, src := range ex.Assistant.Sources {
		titles = append(titles, src.Title)
	}
	assert.Equal(t, []string{"Prisoners (2013) - IMDb", "IMDb", "Rotten Tomatoes"}, titles)
}

func TestSubmitSerializesPerSession(t *testing.T) {
	client := &fakeClient{reply: groundedReply}
	svc, state := newTestService(t, client, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), state, Input{Text: "hi"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	turns := state.Transcript()
	require.Len(t, turns, 16)
	for i, turn := range turns {
		if i%2 == 0 {
			assert.Equal(t, chat.RoleUser, turn.Role)
		} else {
			assert.Equal(t, chat.RoleAssistant, turn.Role)
		}
	}
	assert.Len(t, client.starts, 1)
}
