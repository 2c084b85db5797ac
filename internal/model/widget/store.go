package widget

// Store exposes widget retrieval for HTTP handlers.
type Store interface {
	List() []Widget
	FindByID(id string) (Widget, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Widget
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied widgets.
func NewMemoryStore(items []Widget) *MemoryStore {
	return &MemoryStore{items: append([]Widget(nil), items...)}
}

// List returns the configured widgets.
func (s *MemoryStore) List() []Widget {
	return append([]Widget(nil), s.items...)
}

// FindByID looks up a widget by identifier.
func (s *MemoryStore) FindByID(id string) (Widget, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Widget{}, false
}
