package models

import (
	"sort"
	"strings"
)

// Preferences is the listener's taste profile. It is a value object that
// is replaced as a unit on save; there is no partial-field merge.
type Preferences struct {
	Genres     []string `json:"genres"`
	Energy     float64  `json:"energy"`     // [0.0, 1.0]
	Popularity int      `json:"popularity"` // [0, 100]
	Mood       string   `json:"mood,omitempty"`
}

// Normalize returns a copy with genres trimmed, lowercased, deduplicated
// and sorted. The receiver is not modified.
func (p Preferences) Normalize() Preferences {
	seen := make(map[string]bool, len(p.Genres))
	genres := make([]string, 0, len(p.Genres))
	for _, g := range p.Genres {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		genres = append(genres, g)
	}
	sort.Strings(genres)

	p.Genres = genres
	p.Mood = strings.TrimSpace(p.Mood)
	return p
}
