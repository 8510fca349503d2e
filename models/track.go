package models

// Source identifies which provider a track came from.
type Source string

const (
	SourcePrimary   Source = "primary"   // Spotify
	SourceSecondary Source = "secondary" // YouTube
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	return s == SourcePrimary || s == SourceSecondary
}

// TrackKey is the identity of a track: provider tag plus the provider's
// own id. Title or artist equality never implies identity, titles collide
// across distinct recordings.
type TrackKey struct {
	Source Source `json:"source"`
	ID     string `json:"id"`
}

// Track is the normalized representation of a track, independent of which
// provider produced it. Provider-specific field names never leave the
// adapter that translated them.
type Track struct {
	ID       string   `json:"id"`
	Source   Source   `json:"source"`
	Title    string   `json:"title"`
	Artists  []Artist `json:"artists"`
	Album    string   `json:"album,omitempty"`
	EmbedRef string   `json:"embedRef,omitempty"`
}

// Key returns the track's provider-qualified identity.
func (t Track) Key() TrackKey {
	return TrackKey{Source: t.Source, ID: t.ID}
}

type Artist struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ImageURL  string `json:"imageUrl,omitempty"`
	Followers int    `json:"followers,omitempty"`
}
