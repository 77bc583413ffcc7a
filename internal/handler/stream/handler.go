package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/pickmecinime/cinime/backend/internal/model/chat"
	"github.com/pickmecinime/cinime/backend/internal/pkg/logger"
	chatService "github.com/pickmecinime/cinime/backend/internal/service/chat"
	"github.com/pickmecinime/cinime/backend/internal/service/interaction"
	"github.com/pickmecinime/cinime/backend/pkg/utils"
)

var errStreamingUnsupported = errors.New("streaming unsupported")

// Handler delivers one interaction as Server-Sent Events.
type Handler struct {
	chatSvc        *chatService.Service
	interactionSvc *interaction.Service
	log            *zap.Logger
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, interactionSvc *interaction.Service, log *zap.Logger) *Handler {
	return &Handler{
		chatSvc:        chatSvc,
		interactionSvc: interactionSvc,
		log:            logger.Module(log, "stream"),
	}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string     `json:"event"`
	SessionID string     `json:"sessionId,omitempty"`
	Content   string     `json:"content,omitempty"`
	Turn      *chat.Turn `json:"turn,omitempty"`
	Finished  bool       `json:"finished,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// HandleStreamRequest runs input against the session: "thinking" is sent
// before the model is asked, "message" carries the assistant turn and "end"
// closes the stream.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID string, input interaction.Input) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return errStreamingUnsupported
	}

	state, err := h.chatSvc.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	text, err := h.interactionSvc.ResolveText(input)
	if err != nil {
		return err
	}

	utils.SetupSSEHeaders(w)

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "thinking",
		SessionID: sessionID,
		Content:   text,
	})

	exchange, err := h.interactionSvc.Submit(ctx, state, input)
	if err != nil {
		h.sendSSE(w, flusher, StreamResponse{
			Event:     "error",
			SessionID: sessionID,
			Error:     fmt.Sprintf("interaction failed: %v", err),
		})
		return nil
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Turn:      &exchange.Assistant,
	})

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	h.log.Info("completed response",
		zap.String("session_id", sessionID),
		zap.Int("sources", len(exchange.Assistant.Sources)),
	)
	return nil
}

func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEEvent(w, flusher, response.Event, response)
}
