package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pickmecinime/cinime/backend/internal/config"
	"github.com/pickmecinime/cinime/backend/internal/handler"
	"github.com/pickmecinime/cinime/backend/internal/model/mood"
	"github.com/pickmecinime/cinime/backend/internal/model/persona"
	"github.com/pickmecinime/cinime/backend/internal/pkg/logger"
	"github.com/pickmecinime/cinime/backend/internal/service/ai"
	"github.com/pickmecinime/cinime/backend/internal/service/chat"
	"github.com/pickmecinime/cinime/backend/internal/service/grounding"
	"github.com/pickmecinime/cinime/backend/internal/service/interaction"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootLog := logger.New(logger.Options{})

	// Load .env file
	if err := godotenv.Load(); err != nil {
		bootLog.Info("no .env file loaded, continuing with system environment variables only", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrMissingCredential) {
			bootLog.Fatal("API key not found: set it in the environment or the secrets file", zap.Error(err))
		}
		bootLog.Fatal("failed to load configuration", zap.Error(err))
	}

	log := logger.New(logger.Options{Production: cfg.Log.Production, FilePath: cfg.Log.FilePath})
	defer log.Sync()
	zap.ReplaceGlobals(log)

	router, err := buildRouter(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize chat provider", zap.String("provider", cfg.AI.Provider), zap.Error(err))
	}

	startServer(ctx, cfg.Server, router, log)
}

// buildRouter wires stores and services for cfg.
func buildRouter(ctx context.Context, cfg *config.Config, log *zap.Logger) (http.Handler, error) {
	client, err := ai.NewClient(ctx, cfg.AI, log)
	if err != nil {
		return nil, err
	}
	log.Info("chat provider initialized",
		zap.String("provider", cfg.AI.Provider),
		zap.Bool("search_grounding", cfg.AI.SearchGrounding),
		zap.Bool("mock_listings", cfg.AI.MockListings),
	)

	personaStore := persona.NewMemoryStore(persona.Seed())
	moodStore := mood.NewMemoryStore(mood.Seed())
	chatService := chat.NewService(cfg.Session.TTL, log)
	interactionService := interaction.NewService(
		client,
		personaStore,
		moodStore,
		grounding.NewNormalizer(log),
		interaction.Options{
			SearchGrounding: cfg.AI.SearchGrounding,
			MockListings:    cfg.AI.MockListings,
		},
		log,
	)

	return handler.NewRouter(personaStore, moodStore, chatService, interactionService, cfg.Server.AllowedOrigins, log), nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("Pickme Cinime backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
