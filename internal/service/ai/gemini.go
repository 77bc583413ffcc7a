package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/pickmecinime/cinime/backend/internal/config"
	"github.com/pickmecinime/cinime/backend/internal/pkg/logger"
)

const providerGemini = "gemini"

// GeminiClient opens chats on the Gemini API.
type GeminiClient struct {
	client     *genai.Client
	modelName  string
	searchTool string
	log        *zap.Logger
}

// NewGeminiClient configures the process-wide Gemini credential.
func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig, log *zap.Logger) (*GeminiClient, error) {
	return newGeminiClient(ctx, cfg, genai.HTTPOptions{}, log)
}

func newGeminiClient(ctx context.Context, cfg config.GeminiConfig, httpOpts genai.HTTPOptions, log *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", config.ErrMissingCredential)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	return &GeminiClient{
		client:     client,
		modelName:  modelName,
		searchTool: cfg.SearchTool,
		log:        logger.Module(log, "gemini"),
	}, nil
}

// StartChat implements Client.
func (g *GeminiClient) StartChat(ctx context.Context, opts ChatOptions) (Chat, error) {
	cfg := &genai.GenerateContentConfig{}
	if opts.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(opts.SystemInstruction, genai.RoleUser)
	}
	if opts.SearchGrounding {
		cfg.Tools = []*genai.Tool{g.groundingTool()}
	}

	session, err := g.client.Chats.Create(ctx, g.modelName, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini create chat: %w", err)
	}

	g.log.Info("chat started", zap.String("model", g.modelName), zap.Bool("grounding", opts.SearchGrounding))
	return &geminiChat{session: session}, nil
}

func (g *GeminiClient) groundingTool() *genai.Tool {
	if g.searchTool == config.SearchToolRetrieval {
		return &genai.Tool{GoogleSearchRetrieval: &genai.GoogleSearchRetrieval{}}
	}
	return &genai.Tool{GoogleSearch: &genai.GoogleSearch{}}
}

type geminiChat struct {
	session *genai.Chat
}

// Send implements Chat.
func (c *geminiChat) Send(ctx context.Context, text string) (*Response, error) {
	res, err := c.session.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return nil, fmt.Errorf("gemini send message: %w", err)
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("gemini encode response: %w", err)
	}
	return &Response{Provider: providerGemini, Raw: raw}, nil
}
