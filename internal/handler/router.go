package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pickmecinime/cinime/backend/internal/handler/chat"
	"github.com/pickmecinime/cinime/backend/internal/handler/page"
	"github.com/pickmecinime/cinime/backend/internal/handler/persona"
	"github.com/pickmecinime/cinime/backend/internal/handler/stream"
	"github.com/pickmecinime/cinime/backend/internal/handler/ws"
	middlewarePkg "github.com/pickmecinime/cinime/backend/internal/middleware"
	moodModel "github.com/pickmecinime/cinime/backend/internal/model/mood"
	personaModel "github.com/pickmecinime/cinime/backend/internal/model/persona"
	chatService "github.com/pickmecinime/cinime/backend/internal/service/chat"
	"github.com/pickmecinime/cinime/backend/internal/service/interaction"
	"github.com/pickmecinime/cinime/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(personas personaModel.Store, moods moodModel.Store, chatSvc *chatService.Service, interactionSvc *interaction.Service, allowedOrigins []string, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	// Create handlers
	pageHandler := page.New(chatSvc, interactionSvc, personas, moods, log)
	personaHandler := persona.New(personas)
	chatHandler := chat.New(chatSvc, interactionSvc, personas, moods, log)
	streamHandler := stream.New(chatSvc, interactionSvc, log)
	wsHandler := ws.New(chatSvc, interactionSvc, log)

	pageHandler.RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			input := interaction.Input{
				Text:   r.URL.Query().Get("message"),
				MoodID: r.URL.Query().Get("mood"),
			}

			err := streamHandler.HandleStreamRequest(r.Context(), w, chi.URLParam(r, "sessionID"), input)
			switch {
			case err == nil:
			case errors.Is(err, chatService.ErrSessionNotFound), errors.Is(err, interaction.ErrUnknownMood):
				utils.RespondError(w, http.StatusNotFound, err.Error())
			case errors.Is(err, interaction.ErrEmptyInput):
				utils.RespondError(w, http.StatusBadRequest, "message or mood query parameter is required")
			default:
				log.Error("stream request failed", zap.Error(err))
				utils.RespondError(w, http.StatusInternalServerError, "streaming failed")
			}
		})
	})

	return r
}
