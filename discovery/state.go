package discovery

import "github.com/sparks-fm/sparks/models"

// Defaults are the documented values a fresh session starts from.
type Defaults struct {
	Location   string
	Source     models.Source
	Energy     float64
	Popularity int
	PageSize   int
}

const (
	defaultLocation   = "Washington, DC"
	defaultEnergy     = 0.5
	defaultPopularity = 50
	defaultPageSize   = 10
)

// withFallbacks fills zero-valued fields with the documented defaults so
// a partially configured Defaults still yields a usable session.
func (d Defaults) withFallbacks() Defaults {
	if d.Location == "" {
		d.Location = defaultLocation
	}
	if !d.Source.Valid() {
		d.Source = models.SourcePrimary
	}
	if d.Energy == 0 {
		d.Energy = defaultEnergy
	}
	if d.Popularity == 0 {
		d.Popularity = defaultPopularity
	}
	if d.PageSize <= 0 {
		d.PageSize = defaultPageSize
	}
	return d
}

// State is the mutable aggregate owned by one Store for the lifetime of
// one interactive session. It is only ever mutated through the Store's
// transition operations.
type State struct {
	// TrackList is the current top-tracks page. Lazily populated on first
	// access and immutable once fetched until explicitly refreshed.
	TrackList []models.Track `json:"trackList"`

	// Cursor indexes the currently displayed track. Holds
	// 0 <= Cursor < len(TrackList) whenever TrackList is non-empty.
	Cursor int `json:"cursor"`

	// SavedTracks is append-only except for explicit removal by position.
	// No two entries share a (source, id) identity.
	SavedTracks []models.Track `json:"savedTracks"`

	// ActiveSource selects which provider backs subsequent search and
	// recommendation calls.
	ActiveSource models.Source `json:"activeSource"`

	// Recommendations is replaced wholesale by each successful fetch.
	Recommendations []models.Track `json:"recommendations"`

	// Events is the last fetched live-event batch, replaced wholesale.
	Events []models.Event `json:"events"`

	Preferences models.Preferences `json:"preferences"`

	// Location is the free-text place descriptor used for event queries.
	Location string `json:"location"`

	// CurrentEmbed is the playable reference pinned by an explicit Play.
	// It is cleared whenever the cursor moves or the track list is
	// refreshed; switching sources leaves it alone.
	CurrentEmbed string `json:"currentEmbed,omitempty"`
}

// clone returns a copy that shares no mutable backing arrays with s.
func (s State) clone() State {
	out := s
	out.TrackList = append([]models.Track(nil), s.TrackList...)
	out.SavedTracks = append([]models.Track(nil), s.SavedTracks...)
	out.Recommendations = append([]models.Track(nil), s.Recommendations...)
	out.Events = append([]models.Event(nil), s.Events...)
	out.Preferences.Genres = append([]string(nil), s.Preferences.Genres...)
	return out
}
