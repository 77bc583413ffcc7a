package chat

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidTurn is returned when a turn has no role or no text.
var ErrInvalidTurn = errors.New("turn requires a role and text")

// Conversation is the append-only, ordered turn log of one session.
// Turns are copied on the way in and out, so stored turns never change.
type Conversation struct {
	turns []Turn
	now   func() time.Time
}

// NewConversation returns an empty log.
func NewConversation() *Conversation {
	return &Conversation{
		turns: make([]Turn, 0, 16),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Append adds turn to the end of the log and returns the stored copy.
func (c *Conversation) Append(turn Turn) (Turn, error) {
	if !turn.Role.Valid() || turn.Text == "" {
		return Turn{}, ErrInvalidTurn
	}

	stored := turn.clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = c.now()
	}
	if stored.Role == RoleUser {
		stored.Sources = nil
	}

	c.turns = append(c.turns, stored)
	return stored.clone(), nil
}

// All returns every turn in append order.
func (c *Conversation) All() []Turn {
	out := make([]Turn, len(c.turns))
	for i, t := range c.turns {
		out[i] = t.clone()
	}
	return out
}

// Len reports the number of turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}
