package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const providerMock = "mock"

// MockClient answers offline with a Gemini-shaped payload. Used for local
// development without credentials.
type MockClient struct{}

// NewMockClient returns a MockClient.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// StartChat implements Client.
func (m *MockClient) StartChat(_ context.Context, opts ChatOptions) (Chat, error) {
	return &mockChat{grounding: opts.SearchGrounding}, nil
}

type mockChat struct {
	grounding bool
	turns     int
}

type mockPart struct {
	Text string `json:"text"`
}

type mockContent struct {
	Role  string     `json:"role"`
	Parts []mockPart `json:"parts"`
}

type mockWeb struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type mockChunk struct {
	Web mockWeb `json:"web"`
}

type mockMetadata struct {
	WebSearchQueries []string    `json:"webSearchQueries,omitempty"`
	GroundingChunks  []mockChunk `json:"groundingChunks,omitempty"`
}

type mockCandidate struct {
	Content           mockContent   `json:"content"`
	FinishReason      string        `json:"finishReason"`
	GroundingMetadata *mockMetadata `json:"groundingMetadata,omitempty"`
}

type mockResponse struct {
	Candidates []mockCandidate `json:"candidates"`
}

// Send implements Chat.
func (c *mockChat) Send(_ context.Context, text string) (*Response, error) {
	c.turns++

	pick := "**Paddington 2** (2017): warm, funny and endlessly kind."
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "thrill"), strings.Contains(lower, "suspense"):
		pick = "**Prisoners** (2013): a tense, twisty thriller that never lets go."
	case strings.Contains(lower, "laugh"), strings.Contains(lower, "funny"):
		pick = "**What We Do in the Shadows** (series): deadpan vampire comedy."
	case strings.Contains(lower, "thoughtful"), strings.Contains(lower, "intriguing"):
		pick = "**Arrival** (2016): quiet, cerebral science fiction."
	case strings.Contains(lower, "relax"), strings.Contains(lower, "chill"):
		pick = "**My Neighbor Totoro** (1988): gentle and soothing."
	}

	candidate := mockCandidate{
		Content: mockContent{
			Role:  "model",
			Parts: []mockPart{{Text: fmt.Sprintf("Here's my pick for you (#%d):\n\n- %s", c.turns, pick)}},
		},
		FinishReason: "STOP",
	}
	if c.grounding {
		candidate.GroundingMetadata = &mockMetadata{
			WebSearchQueries: []string{text},
			GroundingChunks:  []mockChunk{{Web: mockWeb{Title: "imdb.com", URI: "https://www.imdb.com"}}},
		}
	}

	raw, err := json.Marshal(mockResponse{Candidates: []mockCandidate{candidate}})
	if err != nil {
		return nil, err
	}
	return &Response{Provider: providerMock, Raw: raw}, nil
}
