package chat

import "time"

// Role tags who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// UntitledSource is shown when the provider cites a page without a title.
const UntitledSource = "Untitled"

// Source is a single web citation surfaced by search grounding.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// NewSource builds a Source, substituting the placeholder title. The boolean
// is false when uri is empty, in which case the source must not be recorded.
func NewSource(title, uri string) (Source, bool) {
	if uri == "" {
		return Source{}, false
	}
	if title == "" {
		title = UntitledSource
	}
	return Source{Title: title, URI: uri}, true
}

// Turn is one entry of the conversation log.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	HTML      string    `json:"html,omitempty"`
	Sources   []Source  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (t Turn) clone() Turn {
	if t.Sources != nil {
		t.Sources = append([]Source(nil), t.Sources...)
	}
	return t
}
