package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/pickmecinime/cinime/backend/internal/model/chat"
	"github.com/pickmecinime/cinime/backend/internal/pkg/logger"
)

var (
	ErrPersonaRequired = errors.New("persona id is required")
	ErrSessionNotFound = errors.New("session not found")
)

const defaultSessionTTL = time.Hour

// Service keeps session state in memory. Sessions end explicitly or after
// the TTL passes without activity.
type Service struct {
	sessions *cache.Cache
	log      *zap.Logger
}

// NewService creates the registry. A non-positive ttl uses one hour.
func NewService(ttl time.Duration, log *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}

	cleanup := ttl / 2
	if cleanup < time.Minute {
		cleanup = time.Minute
	}

	s := &Service{
		sessions: cache.New(ttl, cleanup),
		log:      logger.Module(log, "session"),
	}
	s.sessions.OnEvicted(func(id string, _ interface{}) {
		s.log.Info("session discarded", zap.String("session_id", id))
	})
	return s
}

// CreateSession provisions an anonymous session bound to a persona.
func (s *Service) CreateSession(_ context.Context, personaID string) (*State, error) {
	if personaID == "" {
		return nil, ErrPersonaRequired
	}

	state := newState(chat.Session{
		ID:        uuid.NewString(),
		PersonaID: personaID,
		CreatedAt: time.Now().UTC(),
	})

	s.sessions.Set(state.Session.ID, state, cache.DefaultExpiration)
	s.log.Info("session created", zap.String("session_id", state.Session.ID))
	return state, nil
}

// GetSession retrieves a session and extends its lifetime.
func (s *Service) GetSession(_ context.Context, sessionID string) (*State, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	item, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	state := item.(*State)

	s.sessions.Set(sessionID, state, cache.DefaultExpiration)
	return state, nil
}

// EndSession discards the session and everything it holds.
func (s *Service) EndSession(_ context.Context, sessionID string) error {
	if _, ok := s.sessions.Get(sessionID); !ok {
		return ErrSessionNotFound
	}
	s.sessions.Delete(sessionID)
	return nil
}

// LoadTranscript returns stored turns for the provided session.
func (s *Service) LoadTranscript(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	state, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return state.Transcript(), nil
}

// Count reports the number of live sessions.
func (s *Service) Count() int {
	return s.sessions.ItemCount()
}
