package mood

// Preset maps a mood button to the request it stands for.
type Preset struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

// Seed returns the quick-pick moods in display order.
func Seed() []Preset {
	return []Preset{
		{ID: "happy", Label: "😄 Happy", Prompt: "I'm in the mood for something happy and uplifting! What movies or series do you recommend?"},
		{ID: "thrilling", Label: "😨 Thrilling", Prompt: "I want something thrilling and suspenseful. What movies or series should I watch?"},
		{ID: "thoughtful", Label: "🤔 Thoughtful", Prompt: "I'd like a thoughtful or intriguing movie or series. What do you suggest?"},
		{ID: "relaxing", Label: "😌 Relaxing", Prompt: "Recommend some relaxing, chill movies or series for a quiet evening."},
		{ID: "funny", Label: "😂 Funny", Prompt: "I need a good laugh! What are some funny movies or series?"},
	}
}

// Store exposes the preset table.
type Store interface {
	List() []Preset
	FindByID(id string) (Preset, bool)
	FindByLabel(label string) (Preset, bool)
}

// MemoryStore implements Store over a fixed slice.
type MemoryStore struct {
	items []Preset
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied presets.
func NewMemoryStore(items []Preset) *MemoryStore {
	return &MemoryStore{items: append([]Preset(nil), items...)}
}

// List returns the presets in display order.
func (s *MemoryStore) List() []Preset {
	return append([]Preset(nil), s.items...)
}

// FindByID looks up a preset by identifier.
func (s *MemoryStore) FindByID(id string) (Preset, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Preset{}, false
}

// FindByLabel looks up a preset by its button label.
func (s *MemoryStore) FindByLabel(label string) (Preset, bool) {
	for _, item := range s.items {
		if item.Label == label {
			return item, true
		}
	}
	return Preset{}, false
}
