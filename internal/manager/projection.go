package manager

import (
	"sort"
	"strings"

	"nota/internal/domain"
)

type SortMode string

const (
	// SortUpdatedDesc keeps pinned notes first, then most recently updated.
	SortUpdatedDesc SortMode = "updated_desc"
	SortCreatedDesc SortMode = "created_desc"
	SortTitleAsc    SortMode = "title_asc"
)

func (m *Manager) SetSearch(term string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchTerm = term
}

func (m *Manager) SetSort(mode SortMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sortMode = mode
}

// Visible recomputes the filtered, ordered view of the note set. It is a pure
// projection: the underlying notes are never reordered or mutated.
func (m *Manager) Visible() []*domain.Note {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(m.searchTerm))

	visible := make([]*domain.Note, 0, len(m.notes))
	for _, n := range m.notes {
		if q == "" || matches(n, q) {
			visible = append(visible, n)
		}
	}

	switch m.sortMode {
	case SortCreatedDesc:
		sort.SliceStable(visible, func(i, j int) bool {
			return visible[i].CreatedAt.After(visible[j].CreatedAt)
		})
	case SortTitleAsc:
		sort.SliceStable(visible, func(i, j int) bool {
			return strings.ToLower(visible[i].Title) < strings.ToLower(visible[j].Title)
		})
	default:
		sort.SliceStable(visible, func(i, j int) bool {
			if visible[i].IsPinned != visible[j].IsPinned {
				return visible[i].IsPinned
			}
			return visible[i].UpdatedAt.After(visible[j].UpdatedAt)
		})
	}

	return visible
}

func matches(n *domain.Note, q string) bool {
	tags := ""
	if n.Tags != nil {
		tags = *n.Tags
	}
	hay := strings.ToLower(n.Title + "\n" + tags + "\n" + n.Content)
	return strings.Contains(hay, q)
}
