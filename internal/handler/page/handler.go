// Package page serves the server-rendered chat page. Each browser gets its
// own session through a cookie; every form post redirects back to the page.
package page

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pickmecinime/cinime/backend/internal/model/chat"
	"github.com/pickmecinime/cinime/backend/internal/model/mood"
	"github.com/pickmecinime/cinime/backend/internal/model/persona"
	"github.com/pickmecinime/cinime/backend/internal/pkg/logger"
	chatservice "github.com/pickmecinime/cinime/backend/internal/service/chat"
	"github.com/pickmecinime/cinime/backend/internal/service/interaction"
)

// CookieName holds the session id of the browser.
const CookieName = "cinime_session"

//go:embed templates/index.html
var templates embed.FS

var indexTemplate = template.Must(template.ParseFS(templates, "templates/index.html"))

// Handler 页面处理器
type Handler struct {
	chatSvc        *chatservice.Service
	interactionSvc *interaction.Service
	personas       persona.Store
	moods          mood.Store
	log            *zap.Logger
}

// New 创建页面处理器
func New(chatSvc *chatservice.Service, interactionSvc *interaction.Service, personas persona.Store, moods mood.Store, log *zap.Logger) *Handler {
	return &Handler{
		chatSvc:        chatSvc,
		interactionSvc: interactionSvc,
		personas:       personas,
		moods:          moods,
		log:            logger.Module(log, "page"),
	}
}

// RegisterRoutes 注册页面路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Post("/chat", h.handleChat)
	r.Post("/mood", h.handleMood)
}

type turnView struct {
	Role    string
	Text    string
	HTML    template.HTML
	Sources []chat.Source
}

type pageView struct {
	Persona persona.Persona
	Moods   []mood.Preset
	Turns   []turnView
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	state, err := h.session(w, r)
	if err != nil {
		h.log.Error("failed to open session", zap.Error(err))
		http.Error(w, "failed to open session", http.StatusInternalServerError)
		return
	}

	p, ok := h.personas.FindByID(state.Session.PersonaID)
	if !ok {
		p = h.personas.Default()
	}

	turns := state.Transcript()
	view := pageView{Persona: p, Moods: h.moods.List(), Turns: make([]turnView, 0, len(turns))}
	for _, t := range turns {
		view.Turns = append(view.Turns, turnView{
			Role: string(t.Role),
			Text: t.Text,
			// assistant HTML comes from the markdown renderer, which drops raw HTML
			HTML:    template.HTML(t.HTML),
			Sources: t.Sources,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, view); err != nil {
		h.log.Error("failed to render page", zap.Error(err))
	}
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, interaction.Input{Text: r.FormValue("message")})
}

// handleMood accepts the preset id or its button label.
func (h *Handler) handleMood(w http.ResponseWriter, r *http.Request) {
	value := r.FormValue("mood")
	if preset, ok := h.moods.FindByLabel(value); ok {
		value = preset.ID
	}
	h.submit(w, r, interaction.Input{MoodID: value})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, input interaction.Input) {
	state, err := h.session(w, r)
	if err != nil {
		h.log.Error("failed to open session", zap.Error(err))
		http.Error(w, "failed to open session", http.StatusInternalServerError)
		return
	}

	if _, err := h.interactionSvc.Submit(r.Context(), state, input); err != nil {
		if !errors.Is(err, interaction.ErrEmptyInput) && !errors.Is(err, interaction.ErrUnknownMood) {
			h.log.Error("interaction failed", zap.Error(err))
		}
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// session returns the browser's session, starting a new one when the cookie
// is missing or the session has expired.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*chatservice.State, error) {
	if cookie, err := r.Cookie(CookieName); err == nil {
		if state, err := h.chatSvc.GetSession(r.Context(), cookie.Value); err == nil {
			return state, nil
		}
	}

	state, err := h.chatSvc.CreateSession(r.Context(), h.personas.Default().ID)
	if err != nil {
		return nil, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    state.Session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return state, nil
}
