// Package interaction runs one user turn end to end: it records the input,
// asks the chat collaborator, normalises the answer and records the reply.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pickmecinime/cinime/backend/internal/model/chat"
	"github.com/pickmecinime/cinime/backend/internal/model/mood"
	"github.com/pickmecinime/cinime/backend/internal/model/persona"
	"github.com/pickmecinime/cinime/backend/internal/pkg/logger"
	"github.com/pickmecinime/cinime/backend/internal/service/ai"
	chatservice "github.com/pickmecinime/cinime/backend/internal/service/chat"
	"github.com/pickmecinime/cinime/backend/internal/service/grounding"
	"github.com/pickmecinime/cinime/backend/internal/service/listing"
	"github.com/pickmecinime/cinime/backend/pkg/markup"
)

var (
	ErrEmptyInput  = errors.New("message text is required")
	ErrUnknownMood = errors.New("unknown mood preset")
)

// Input is either free text or a mood preset id. MoodID wins when both are set.
type Input struct {
	Text   string
	MoodID string
}

// Exchange is the pair of turns one interaction appends.
type Exchange struct {
	User      chat.Turn `json:"user"`
	Assistant chat.Turn `json:"assistant"`
}

// Options toggles optional behaviour.
type Options struct {
	SearchGrounding bool
	MockListings    bool
}

// Service 负责单轮对话流程。
type Service struct {
	client     ai.Client
	personas   persona.Store
	moods      mood.Store
	normalizer *grounding.Normalizer
	opts       Options
	log        *zap.Logger
}

// NewService wires the interaction flow.
func NewService(client ai.Client, personas persona.Store, moods mood.Store, normalizer *grounding.Normalizer, opts Options, log *zap.Logger) *Service {
	if normalizer == nil {
		normalizer = grounding.NewNormalizer(log)
	}
	return &Service{
		client:     client,
		personas:   personas,
		moods:      moods,
		normalizer: normalizer,
		opts:       opts,
		log:        logger.Module(log, "interaction"),
	}
}

// ResolveText returns the text a user turn will carry for input.
func (s *Service) ResolveText(input Input) (string, error) {
	if input.MoodID != "" {
		preset, ok := s.moods.FindByID(input.MoodID)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownMood, input.MoodID)
		}
		return preset.Prompt, nil
	}

	text := strings.TrimSpace(input.Text)
	if text == "" {
		return "", ErrEmptyInput
	}
	return text, nil
}

// Submit appends the user turn and the assistant reply to the session.
// Only input errors are returned; provider failures become an assistant turn.
func (s *Service) Submit(ctx context.Context, state *chatservice.State, input Input) (Exchange, error) {
	text, err := s.ResolveText(input)
	if err != nil {
		return Exchange{}, err
	}

	state.Lock()
	defer state.Unlock()

	user, err := state.Append(chat.Turn{Role: chat.RoleUser, Text: text})
	if err != nil {
		return Exchange{}, err
	}

	if location, ok := listing.ExtractLocation(text); ok {
		state.SetLocation(location)
	}

	reply := s.reply(ctx, state, text)

	assistant, err := state.Append(reply)
	if err != nil {
		return Exchange{}, err
	}

	return Exchange{User: user, Assistant: assistant}, nil
}

func (s *Service) reply(ctx context.Context, state *chatservice.State, text string) chat.Turn {
	log := s.log.With(zap.String("session_id", state.Session.ID))

	session, err := s.chatFor(ctx, state)
	if err != nil {
		log.Error("failed to start chat", zap.Error(err))
		return errorTurn(err)
	}

	resp, err := session.Send(ctx, text)
	if err != nil {
		log.Error("failed to send message", zap.Error(err))
		return errorTurn(err)
	}

	res := s.normalizer.Normalize(resp.Raw)
	answer := res.Text
	sources := res.Sources

	if s.opts.MockListings {
		appendix, extra := listing.Augment(text, state.Location())
		answer += appendix
		sources = append(sources, extra...)
	}

	rendered, err := markup.MarkdownToHTML(answer)
	if err != nil {
		log.Warn("failed to render markdown", zap.Error(err))
	}

	log.Debug("assistant reply",
		zap.String("provider", resp.Provider),
		zap.String("variant", string(res.Variant)),
		zap.Int("sources", len(sources)),
	)

	return chat.Turn{Role: chat.RoleAssistant, Text: answer, HTML: rendered, Sources: sources}
}

// chatFor opens the collaborator chat on first use.
func (s *Service) chatFor(ctx context.Context, state *chatservice.State) (ai.Chat, error) {
	if existing := state.Chat(); existing != nil {
		return existing, nil
	}

	p, ok := s.personas.FindByID(state.Session.PersonaID)
	if !ok {
		p = s.personas.Default()
	}

	session, err := s.client.StartChat(ctx, ai.ChatOptions{
		SystemInstruction: ai.BuildSystemInstruction(p),
		SearchGrounding:   s.opts.SearchGrounding,
	})
	if err != nil {
		return nil, err
	}
	state.SetChat(session)
	return session, nil
}

// ErrorText is the assistant reply recorded when the collaborator fails.
func ErrorText(err error) string {
	return fmt.Sprintf("Sorry, I encountered an error: %v.", err)
}

func errorTurn(err error) chat.Turn {
	text := ErrorText(err)
	rendered, _ := markup.MarkdownToHTML(text)
	return chat.Turn{Role: chat.RoleAssistant, Text: text, HTML: rendered}
}
