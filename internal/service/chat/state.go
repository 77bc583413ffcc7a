package chat

import (
	"sync"

	"github.com/pickmecinime/cinime/backend/internal/model/chat"
	"github.com/pickmecinime/cinime/backend/internal/service/ai"
)

// State is everything one session owns: its transcript, the open model chat
// and the remembered location hint. It lives until the session ends.
type State struct {
	Session chat.Session

	// interact serializes whole interactions; mu guards the fields below.
	interact sync.Mutex
	mu       sync.RWMutex

	conversation *chat.Conversation
	chat         ai.Chat
	location     string
}

func newState(session chat.Session) *State {
	return &State{Session: session, conversation: chat.NewConversation()}
}

// Lock reserves the session for one interaction.
func (s *State) Lock() { s.interact.Lock() }

// Unlock releases the reservation taken by Lock.
func (s *State) Unlock() { s.interact.Unlock() }

// Append adds a turn to the transcript.
func (s *State) Append(turn chat.Turn) (chat.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversation.Append(turn)
}

// Transcript returns every turn in order.
func (s *State) Transcript() []chat.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversation.All()
}

// Location returns the remembered location hint, if any.
func (s *State) Location() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location
}

// SetLocation overwrites the location hint.
func (s *State) SetLocation(location string) {
	s.mu.Lock()
	s.location = location
	s.mu.Unlock()
}

// Chat returns the open model chat, nil before the first interaction.
func (s *State) Chat() ai.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chat
}

// SetChat stores the model chat opened for this session.
func (s *State) SetChat(c ai.Chat) {
	s.mu.Lock()
	s.chat = c
	s.mu.Unlock()
}
