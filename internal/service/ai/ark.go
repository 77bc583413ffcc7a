package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/pickmecinime/cinime/backend/internal/pkg/logger"
)

const (
	providerArk = "ark"

	historyLimit = 10
)

// ArkClient runs chats through an eino chain: prompt template, then model.
type ArkClient struct {
	chain compose.Runnable[map[string]any, *schema.Message]
	log   *zap.Logger
}

// NewArkClient compiles the chat chain around chatModel.
func NewArkClient(ctx context.Context, chatModel model.ChatModel, log *zap.Logger) (*ArkClient, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ArkClient{chain: runnable, log: logger.Module(log, "ark")}, nil
}

// StartChat implements Client. Ark has no search tool, so grounding is
// ignored and answers carry no sources.
func (a *ArkClient) StartChat(_ context.Context, opts ChatOptions) (Chat, error) {
	if opts.SearchGrounding {
		a.log.Info("search grounding not supported by ark, continuing without it")
	}
	return &arkChat{client: a, system: opts.SystemInstruction}, nil
}

type arkChat struct {
	client  *ArkClient
	system  string
	history []*schema.Message
}

// Send implements Chat.
func (c *arkChat) Send(ctx context.Context, text string) (*Response, error) {
	input := map[string]any{
		"system":  c.system,
		"history": c.recentHistory(),
		"query":   text,
	}

	response, err := c.client.chain.Invoke(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to run AI chain: %w", err)
	}

	c.history = append(c.history, schema.UserMessage(text), response)

	raw, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("ark encode response: %w", err)
	}

	c.client.log.Debug("generated response", zap.Int("length", len(response.Content)), zap.Int("history", len(c.history)))
	return &Response{Provider: providerArk, Raw: raw}, nil
}

func (c *arkChat) recentHistory() []*schema.Message {
	if len(c.history) <= historyLimit {
		return c.history
	}
	return c.history[len(c.history)-historyLimit:]
}
