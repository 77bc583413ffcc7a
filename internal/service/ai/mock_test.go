package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pickmecinime/cinime/backend/internal/config"
	"github.com/pickmecinime/cinime/backend/internal/model/persona"
	"github.com/pickmecinime/cinime/backend/internal/service/grounding"
)

func TestMockChatProducesCandidatesPayload(t *testing.T) {
	ctx := context.Background()

	session, err := NewMockClient().StartChat(ctx, ChatOptions{SearchGrounding: true})
	require.NoError(t, err)

	resp, err := session.Send(ctx, "I want something thrilling and suspenseful.")
	require.NoError(t, err)

	res := grounding.Decode(resp.Raw)
	assert.Equal(t, grounding.VariantCandidates, res.Variant)
	assert.Contains(t, res.Text, "Prisoners")
	assert.Len(t, res.Sources, 1)
}

func TestMockChatWithoutGroundingHasNoSources(t *testing.T) {
	ctx := context.Background()

	session, err := NewMockClient().StartChat(ctx, ChatOptions{})
	require.NoError(t, err)
	resp, err := session.Send(ctx, "hello")
	require.NoError(t, err)

	assert.Empty(t, grounding.Decode(resp.Raw).Sources)
}

func TestNewClientSelectsProvider(t *testing.T) {
	client, err := NewClient(context.Background(), config.AIConfig{Provider: config.ProviderMock}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, client)

	_, err = NewClient(context.Background(), config.AIConfig{Provider: "other"}, nil)
	assert.Error(t, err)

	_, err = NewClient(context.Background(), config.AIConfig{Provider: config.ProviderGemini}, nil)
	assert.ErrorIs(t, err, config.ErrMissingCredential)
}

func TestBuildSystemInstruction(t *testing.T) {
	got := BuildSystemInstruction(persona.Seed()[0])

	assert.Contains(t, got, "You are Pickme Cinime, an expert movie and OTT recommendation assistant.")
	assert.Contains(t, got, "1. **Understand User Needs**:")
	assert.Contains(t, got, "coming soon")
	assert.Contains(t, got, "**Funny**: comedies, satirical series.")
}
