// Package catalog defines the contracts the discovery core consumes from
// provider adapters. Concrete adapters live under service/ and translate
// their wire formats into the normalized models at this boundary.
package catalog

import (
	"context"

	"github.com/sparks-fm/sparks/models"
)

// MaxSeeds is the combined seed budget per recommendation call, a limit
// documented by the upstream provider.
const MaxSeeds = 5

// SeedSet carries the track and artist identities that bias a
// recommendation call. The combined count never exceeds MaxSeeds.
type SeedSet struct {
	TrackIDs  []string
	ArtistIDs []string
}

// Empty reports whether the seed set carries no seeds at all.
func (s SeedSet) Empty() bool {
	return len(s.TrackIDs) == 0 && len(s.ArtistIDs) == 0
}

// TrackCatalog is the capability contract for a streaming/search provider.
// Implementations are stateless and safe to share across sessions;
// per-user credentials are resolved from the request context.
type TrackCatalog interface {
	// TopTracks returns the listener's most played tracks, most played first.
	TopTracks(ctx context.Context, limit int) ([]models.Track, error)

	// Search returns tracks matching the free-text query.
	Search(ctx context.Context, query string, limit int) ([]models.Track, error)

	// Artist looks up a single artist by its provider-qualified id.
	Artist(ctx context.Context, artistID string) (models.Artist, error)

	// Recommendations returns tracks biased by the seed set and the
	// listener's preference targets.
	Recommendations(ctx context.Context, seeds SeedSet, prefs models.Preferences, limit int) ([]models.Track, error)

	// CreatePlaylist creates a playlist holding trackIDs and returns its
	// external URL. Not every provider supports playlist mutation.
	CreatePlaylist(ctx context.Context, name string, trackIDs []string) (string, error)

	// Source identifies which provider tag this catalog produces.
	Source() models.Source
}

// EventCatalog lists live shows near a location. An empty result is a
// valid "no events" answer, distinct from failure.
type EventCatalog interface {
	Events(ctx context.Context, location, artistFilter string) ([]models.Event, error)
}
