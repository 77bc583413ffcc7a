package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/pickmecinime/cinime/backend/internal/config"
)

// ChatOptions configures a new multi-turn chat.
type ChatOptions struct {
	SystemInstruction string
	// SearchGrounding asks the provider to ground answers in web search.
	SearchGrounding bool
}

// Response is the provider payload as received. Its shape differs between
// providers and API versions; see the grounding package for decoding.
type Response struct {
	Provider string
	Raw      json.RawMessage
}

// Chat is one stateful conversation with the model.
type Chat interface {
	Send(ctx context.Context, text string) (*Response, error)
}

// Client opens chats against a chat-completion provider.
type Client interface {
	StartChat(ctx context.Context, opts ChatOptions) (Chat, error)
}

// NewClient builds the client for the configured provider.
func NewClient(ctx context.Context, cfg config.AIConfig, log *zap.Logger) (Client, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg.Gemini, log)
	case config.ProviderArk:
		chatModel, err := cfg.Ark.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		return NewArkClient(ctx, chatModel, log)
	case config.ProviderMock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}
