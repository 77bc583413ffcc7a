package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pickmecinime/cinime/backend/internal/model/mood"
	"github.com/pickmecinime/cinime/backend/internal/model/persona"
	"github.com/pickmecinime/cinime/backend/internal/pkg/logger"
	chatService "github.com/pickmecinime/cinime/backend/internal/service/chat"
	"github.com/pickmecinime/cinime/backend/internal/service/interaction"
	"github.com/pickmecinime/cinime/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc        *chatService.Service
	interactionSvc *interaction.Service
	personaStore   persona.Store
	moods          mood.Store
	log            *zap.Logger
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, interactionSvc *interaction.Service, personaStore persona.Store, moods mood.Store, log *zap.Logger) *Handler {
	return &Handler{
		chatSvc:        chatSvc,
		interactionSvc: interactionSvc,
		personaStore:   personaStore,
		moods:          moods,
		log:            logger.Module(log, "chat-handler"),
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/moods", h.handleListMoods)
	r.Post("/session", h.handleCreateSession)
	r.Route("/session/{sessionID}", func(r chi.Router) {
		r.Get("/turns", h.handleListTurns)
		r.Post("/messages", h.handleSendMessage)
		r.Post("/moods/{moodID}", h.handleSendMood)
		r.Delete("/", h.handleEndSession)
	})
}

type sessionResponse struct {
	ID          string    `json:"id"`
	PersonaID   string    `json:"personaId"`
	OpeningLine string    `json:"openingLine"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (h *Handler) handleListMoods(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.moods.List())
}

// handleCreateSession 创建会话；personaId 为空时使用默认角色
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaID string `json:"personaId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := h.personaStore.Default()
	if payload.PersonaID != "" {
		found, ok := h.personaStore.FindByID(payload.PersonaID)
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "persona not found")
			return
		}
		p = found
	}

	state, err := h.chatSvc.CreateSession(r.Context(), p.ID)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, sessionResponse{
		ID:          state.Session.ID,
		PersonaID:   state.Session.PersonaID,
		OpeningLine: p.OpeningLine,
		CreatedAt:   state.Session.CreatedAt,
	})
}

func (h *Handler) handleListTurns(w http.ResponseWriter, r *http.Request) {
	turns, err := h.chatSvc.LoadTranscript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, turns)
}

// handleSendMessage 提交一条文本消息并返回本轮对话
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.submit(w, r, interaction.Input{Text: payload.Text})
}

func (h *Handler) handleSendMood(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, interaction.Input{MoodID: chi.URLParam(r, "moodID")})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, input interaction.Input) {
	state, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	exchange, err := h.interactionSvc.Submit(r.Context(), state, input)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, exchange)
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.EndSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound), errors.Is(err, interaction.ErrUnknownMood):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, interaction.ErrEmptyInput):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("request failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
