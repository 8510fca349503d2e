// Package discovery owns the per-session browsing state: navigation
// cursor, saved tracks, preference profile, active source and the last
// fetched recommendation and event batches. The Store's transition
// methods are the only legal way to mutate that state; each one is
// either pure or wraps exactly one adapter call with snapshot/commit
// semantics, so a failed call leaves the state exactly as it was.
package discovery

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/sparks-fm/sparks/catalog"
	"github.com/sparks-fm/sparks/models"
)

// Direction moves the cursor through the track list.
type Direction int

const (
	Next Direction = iota
	Previous
)

// TopTracksFunc fetches a top-tracks page, limit entries at most.
type TopTracksFunc func(ctx context.Context, limit int) ([]models.Track, error)

// RecommendFunc fetches a recommendation batch for a seed set.
type RecommendFunc func(ctx context.Context, seeds catalog.SeedSet, prefs models.Preferences, limit int) ([]models.Track, error)

// EventsFunc fetches live events near a location.
type EventsFunc func(ctx context.Context, location, artistFilter string) ([]models.Event, error)

// CreatePlaylistFunc creates an external playlist and returns its URL.
type CreatePlaylistFunc func(ctx context.Context, name string, trackIDs []string) (string, error)

// SaveResult reports the outcome of SaveCurrentTrack. AlreadySaved is an
// informational success, not an error.
type SaveResult struct {
	Track        models.Track `json:"track"`
	AlreadySaved bool         `json:"alreadySaved"`
}

// Store owns one session's State. Transitions are strictly sequential in
// the order the caller issues them; the mutex only guards against the
// HTTP layer's accidental overlap, it is not a concurrency contract.
type Store struct {
	mu       sync.Mutex
	state    State
	pageSize int
}

// NewStore creates the session state at its documented defaults.
func NewStore(d Defaults) *Store {
	d = d.withFallbacks()
	return &Store{
		state: State{
			SavedTracks:     []models.Track{},
			Recommendations: []models.Track{},
			ActiveSource:    d.Source,
			Location:        d.Location,
			Preferences: models.Preferences{
				Genres:     []string{},
				Energy:     d.Energy,
				Popularity: d.Popularity,
			},
		},
		pageSize: d.PageSize,
	}
}

// Snapshot returns a copy of the current state for rendering. The caller
// re-renders from the snapshot; nothing re-executes on mutation.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// LoadTopTracks populates the track list on first access. A no-op when
// the list is already populated; on failure the list stays empty and the
// caller decides whether to retry.
func (s *Store) LoadTopTracks(ctx context.Context, fetch TopTracksFunc) error {
	s.mu.Lock()
	if len(s.state.TrackList) > 0 {
		s.mu.Unlock()
		return nil
	}
	limit := s.pageSize
	s.mu.Unlock()

	tracks, err := fetch(ctx, limit)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.state.TrackList) > 0 {
		// Populated while the fetch was in flight; the list is immutable
		// until explicitly refreshed, so keep the first result.
		return nil
	}
	s.state.TrackList = tracks
	s.state.Cursor = 0
	return nil
}

// RefreshTopTracks discards the current page and fetches a new one. The
// cursor resets and any pinned embed is dropped with the old list.
func (s *Store) RefreshTopTracks(ctx context.Context, fetch TopTracksFunc) error {
	s.mu.Lock()
	limit := s.pageSize
	s.mu.Unlock()

	tracks, err := fetch(ctx, limit)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TrackList = tracks
	s.state.Cursor = 0
	s.state.CurrentEmbed = ""
	return nil
}

// Advance moves the cursor one step. The list wraps around in both
// directions. Moving the cursor drops any pinned embed.
func (s *Store) Advance(dir Direction) (models.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.state.TrackList)
	if n == 0 {
		return models.Track{}, preconditionf("advance", "track list is empty")
	}

	switch dir {
	case Next:
		s.state.Cursor = (s.state.Cursor + 1) % n
	case Previous:
		s.state.Cursor = (s.state.Cursor - 1 + n) % n
	default:
		return models.Track{}, invalidf("direction", "unknown direction %d", dir)
	}
	s.state.CurrentEmbed = ""
	return s.state.TrackList[s.state.Cursor], nil
}

// CurrentTrack returns the track under the cursor, or false when the
// track list has not been populated.
func (s *Store) CurrentTrack() (models.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.state.TrackList) == 0 {
		return models.Track{}, false
	}
	return s.state.TrackList[s.state.Cursor], true
}

// SaveCurrentTrack appends the track under the cursor to the saved set.
// Saving a track that is already saved is an informational no-op.
func (s *Store) SaveCurrentTrack() (SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.state.TrackList) == 0 {
		return SaveResult{}, preconditionf("save", "track list is empty")
	}

	track := s.state.TrackList[s.state.Cursor]
	for _, saved := range s.state.SavedTracks {
		if saved.Key() == track.Key() {
			return SaveResult{Track: track, AlreadySaved: true}, nil
		}
	}
	s.state.SavedTracks = append(s.state.SavedTracks, track)
	return SaveResult{Track: track}, nil
}

// RemoveSaved removes the saved track at position, shifting later
// entries down by one.
func (s *Store) RemoveSaved(position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if position < 0 || position >= len(s.state.SavedTracks) {
		return invalidf("position", "%d out of range [0, %d)", position, len(s.state.SavedTracks))
	}
	s.state.SavedTracks = append(s.state.SavedTracks[:position], s.state.SavedTracks[position+1:]...)
	return nil
}

// SetActiveSource selects which provider backs subsequent search and
// recommendation calls. Recommendations from the previous source stay
// visible until the next fetch.
func (s *Store) SetActiveSource(src models.Source) error {
	if !src.Valid() {
		return invalidf("source", "unknown source %q", src)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ActiveSource = src
	return nil
}

// ActiveSource returns the current provider selection.
func (s *Store) ActiveSource() models.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveSource
}

// FetchRecommendations replaces the recommendation batch wholesale. The
// seed set is drawn from the head of the track list: up to five track
// seeds, with artist seeds filling whatever remains of the combined
// budget. On failure the previous batch is untouched.
func (s *Store) FetchRecommendations(ctx context.Context, fetch RecommendFunc) error {
	s.mu.Lock()
	seeds := seedsFromTracks(s.state.TrackList)
	prefs := s.state.Preferences.Normalize()
	limit := s.pageSize
	s.mu.Unlock()

	recs, err := fetch(ctx, seeds, prefs, limit)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Recommendations = recs
	return nil
}

// seedsFromTracks builds the seed set from the first entries of the
// track list. Track seeds take priority; artist seeds are capped at
// MaxSeeds minus the track-seed count so the combined total stays within
// the provider's budget.
func seedsFromTracks(tracks []models.Track) catalog.SeedSet {
	var seeds catalog.SeedSet
	for _, t := range tracks {
		if len(seeds.TrackIDs) == catalog.MaxSeeds {
			break
		}
		seeds.TrackIDs = append(seeds.TrackIDs, t.ID)
	}

	budget := catalog.MaxSeeds - len(seeds.TrackIDs)
	seen := make(map[string]bool)
	for _, t := range tracks {
		if budget == 0 {
			break
		}
		for _, a := range t.Artists {
			if budget == 0 {
				break
			}
			if a.ID == "" || seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			seeds.ArtistIDs = append(seeds.ArtistIDs, a.ID)
			budget--
		}
	}
	return seeds
}

// SavePreferences replaces the preference profile wholesale. Out-of-range
// targets are rejected, never clamped silently.
func (s *Store) SavePreferences(next models.Preferences) error {
	if math.IsNaN(next.Energy) || next.Energy < 0 || next.Energy > 1 {
		return invalidf("energy", "%v outside [0.0, 1.0]", next.Energy)
	}
	if next.Popularity < 0 || next.Popularity > 100 {
		return invalidf("popularity", "%d outside [0, 100]", next.Popularity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Preferences = next.Normalize()
	return nil
}

// SetLocation changes the place descriptor used by event queries.
func (s *Store) SetLocation(location string) error {
	location = strings.TrimSpace(location)
	if location == "" {
		return invalidf("location", "must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Location = location
	return nil
}

// LoadEvents fetches live shows near the session's location, optionally
// filtered by artist, and commits the batch wholesale. An empty batch is
// a valid "no events" result.
func (s *Store) LoadEvents(ctx context.Context, artistFilter string, fetch EventsFunc) ([]models.Event, error) {
	s.mu.Lock()
	location := s.state.Location
	s.mu.Unlock()

	events, err := fetch(ctx, location, artistFilter)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Events = events
	var out []models.Event
	if events != nil {
		out = make([]models.Event, len(events))
		copy(out, events)
	}
	return out, nil
}

// Play pins the playable reference of the track under the cursor.
func (s *Store) Play() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.state.TrackList) == 0 {
		return "", preconditionf("play", "track list is empty")
	}
	track := s.state.TrackList[s.state.Cursor]
	if track.EmbedRef == "" {
		return "", preconditionf("play", "track %q has no playable reference", track.Title)
	}
	s.state.CurrentEmbed = track.EmbedRef
	return track.EmbedRef, nil
}

// CreatePlaylistFromSaved exports the primary-provider saved tracks as an
// external playlist. Playlist export is a primary-provider capability, so
// the active source must be primary and at least one saved track must
// carry the primary tag. A timeout after the provider has created the
// playlist server-side is not rolled back; retrying creates a duplicate.
func (s *Store) CreatePlaylistFromSaved(ctx context.Context, name string, create CreatePlaylistFunc) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalidf("name", "must not be empty")
	}

	s.mu.Lock()
	if s.state.ActiveSource != models.SourcePrimary {
		s.mu.Unlock()
		return "", preconditionf("create-playlist", "active source is %q, playlist export requires primary", s.state.ActiveSource)
	}
	var trackIDs []string
	for _, t := range s.state.SavedTracks {
		if t.Source == models.SourcePrimary {
			trackIDs = append(trackIDs, t.ID)
		}
	}
	s.mu.Unlock()

	if len(trackIDs) == 0 {
		return "", preconditionf("create-playlist", "no saved tracks from the primary provider")
	}

	return create(ctx, name, trackIDs)
}
