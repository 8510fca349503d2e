package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sparks-fm/sparks/catalog"
	"github.com/sparks-fm/sparks/models"
	"github.com/sparks-fm/sparks/session"
)

const testToken = "test-access-token"

// newTestService points a Service at a fake API and seeds a token for
// user 1.
func newTestService(handler http.Handler) (*Service, *httptest.Server, context.Context) {
	server := httptest.NewServer(handler)

	svc := NewService(nil)
	svc.apiBaseURL = server.URL
	svc.userTokens[1] = testToken
	svc.spotifyIDs[1] = "spotify-user-1"

	ctx := session.WithUserID(context.Background(), 1)
	return svc, server, ctx
}

func TestTopTracks(t *testing.T) {
	var gotPath, gotAuth, gotLimit string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotLimit = r.URL.Query().Get("limit")

		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{
					"id":   "track1",
					"name": "Midnight City",
					"artists": []map[string]any{
						{"id": "artist1", "name": "M83"},
					},
					"album": map[string]any{"name": "Hurry Up, We're Dreaming"},
				},
			},
		})
	})

	svc, server, ctx := newTestService(handler)
	defer server.Close()

	tracks, err := svc.TopTracks(ctx, 10)
	if err != nil {
		t.Fatalf("TopTracks returned error: %v", err)
	}

	if gotPath != "/me/top/tracks" {
		t.Errorf("expected path /me/top/tracks, got %s", gotPath)
	}
	if gotAuth != "Bearer "+testToken {
		t.Errorf("expected bearer token header, got %q", gotAuth)
	}
	if gotLimit != "10" {
		t.Errorf("expected limit=10, got %q", gotLimit)
	}

	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
	track := tracks[0]
	if track.ID != "track1" || track.Title != "Midnight City" {
		t.Errorf("unexpected track mapping: %+v", track)
	}
	if track.Source != models.SourcePrimary {
		t.Errorf("expected primary source tag, got %q", track.Source)
	}
	if track.EmbedRef != "https://open.spotify.com/embed/track/track1" {
		t.Errorf("unexpected embed ref: %s", track.EmbedRef)
	}
	if len(track.Artists) != 1 || track.Artists[0].Name != "M83" {
		t.Errorf("unexpected artists: %+v", track.Artists)
	}
}

func TestSearch(t *testing.T) {
	var gotQuery, gotType string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotType = r.URL.Query().Get("type")

		json.NewEncoder(w).Encode(map[string]any{
			"tracks": map[string]any{
				"items": []map[string]any{
					{"id": "t1", "name": "Result", "artists": []map[string]any{{"id": "a1", "name": "Someone"}}},
				},
			},
		})
	})

	svc, server, ctx := newTestService(handler)
	defer server.Close()

	tracks, err := svc.Search(ctx, "dream pop", 5)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	if gotQuery != "dream pop" {
		t.Errorf("expected q=%q, got %q", "dream pop", gotQuery)
	}
	if gotType != "track" {
		t.Errorf("expected type=track, got %q", gotType)
	}
	if len(tracks) != 1 || tracks[0].ID != "t1" {
		t.Errorf("unexpected search results: %+v", tracks)
	}
}

func TestArtist(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/artists/artist1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":   "artist1",
			"name": "M83",
			"images": []map[string]any{
				{"url": "https://img.example/m83-large.jpg"},
				{"url": "https://img.example/m83-small.jpg"},
			},
			"followers": map[string]any{"total": 1200000},
		})
	})

	svc, server, ctx := newTestService(handler)
	defer server.Close()

	artist, err := svc.Artist(ctx, "artist1")
	if err != nil {
		t.Fatalf("Artist returned error: %v", err)
	}
	if artist.Name != "M83" || artist.Followers != 1200000 {
		t.Errorf("unexpected artist: %+v", artist)
	}
	if artist.ImageURL != "https://img.example/m83-large.jpg" {
		t.Errorf("expected first image, got %s", artist.ImageURL)
	}
}

func TestRecommendationsParams(t *testing.T) {
	var gotParams map[string]string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotParams = map[string]string{}
		for key := range r.URL.Query() {
			gotParams[key] = r.URL.Query().Get(key)
		}
		json.NewEncoder(w).Encode(map[string]any{"tracks": []any{}})
	})

	svc, server, ctx := newTestService(handler)
	defer server.Close()

	seeds := catalog.SeedSet{
		TrackIDs:  []string{"t1", "t2"},
		ArtistIDs: []string{"a1"},
	}
	prefs := models.Preferences{Genres: []string{"indie"}, Energy: 0.7, Popularity: 60}

	if _, err := svc.Recommendations(ctx, seeds, prefs, 20); err != nil {
		t.Fatalf("Recommendations returned error: %v", err)
	}

	if gotParams["seed_tracks"] != "t1,t2" {
		t.Errorf("expected seed_tracks=t1,t2, got %q", gotParams["seed_tracks"])
	}
	if gotParams["seed_artists"] != "a1" {
		t.Errorf("expected seed_artists=a1, got %q", gotParams["seed_artists"])
	}
	if _, present := gotParams["seed_genres"]; present {
		t.Error("seed_genres should be omitted when track/artist seeds exist")
	}
	if gotParams["target_energy"] != "0.70" {
		t.Errorf("expected target_energy=0.70, got %q", gotParams["target_energy"])
	}
	if gotParams["target_popularity"] != "60" {
		t.Errorf("expected target_popularity=60, got %q", gotParams["target_popularity"])
	}
}

func TestRecommendationsGenreFallback(t *testing.T) {
	var gotGenres string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotGenres = r.URL.Query().Get("seed_genres")
		json.NewEncoder(w).Encode(map[string]any{"tracks": []any{}})
	})

	svc, server, ctx := newTestService(handler)
	defer server.Close()

	prefs := models.Preferences{Genres: []string{"ambient", "idm"}}
	if _, err := svc.Recommendations(ctx, catalog.SeedSet{}, prefs, 20); err != nil {
		t.Fatalf("Recommendations returned error: %v", err)
	}

	if gotGenres != "ambient,idm" {
		t.Errorf("expected seed_genres=ambient,idm, got %q", gotGenres)
	}
}

func TestRecommendationsRequiresSeeds(t *testing.T) {
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	svc, server, ctx := newTestService(handler)
	defer server.Close()

	_, err := svc.Recommendations(ctx, catalog.SeedSet{}, models.Preferences{}, 20)
	if err == nil {
		t.Fatal("expected error with no seeds and no genres")
	}
	if called {
		t.Error("no HTTP call should be made without seeds")
	}
}

func TestProviderErrorMapping(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantTemporary bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"not found", http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"message":"nope"}}`))
			})

			svc, server, ctx := newTestService(handler)
			defer server.Close()

			_, err := svc.TopTracks(ctx, 10)
			if err == nil {
				t.Fatal("expected error")
			}

			var provErr *catalog.ProviderError
			if !errors.As(err, &provErr) {
				t.Fatalf("expected ProviderError, got %T", err)
			}
			if provErr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, provErr.StatusCode)
			}
			if provErr.Temporary() != tt.wantTemporary {
				t.Errorf("Temporary() = %v, want %v", provErr.Temporary(), tt.wantTemporary)
			}
		})
	}
}

func TestUnauthorizedDropsToken(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	svc, server, ctx := newTestService(handler)
	defer server.Close()

	if _, err := svc.TopTracks(ctx, 10); err == nil {
		t.Fatal("expected error on 401")
	}

	svc.mu.RLock()
	_, exists := svc.userTokens[1]
	svc.mu.RUnlock()
	if exists {
		t.Error("expected token to be dropped after 401")
	}
}

func TestNoUserOnContext(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no HTTP call should be made without a user")
	})

	svc, server, _ := newTestService(handler)
	defer server.Close()

	_, err := svc.TopTracks(context.Background(), 10)
	if err == nil {
		t.Fatal("expected error without user on context")
	}
	var provErr *catalog.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
}

func TestCreatePlaylist(t *testing.T) {
	var createdName string
	var addedURIs []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/users/spotify-user-1/playlists":
			var body struct {
				Name string `json:"name"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			createdName = body.Name
			json.NewEncoder(w).Encode(map[string]any{
				"id": "pl1",
				"external_urls": map[string]any{
					"spotify": "https://open.spotify.com/playlist/pl1",
				},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/playlists/pl1/tracks":
			var body struct {
				URIs []string `json:"uris"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			addedURIs = body.URIs
			w.WriteHeader(http.StatusCreated)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	svc, server, ctx := newTestService(handler)
	defer server.Close()

	url, err := svc.CreatePlaylist(ctx, "Road Trip", []string{"t1", "t2"})
	if err != nil {
		t.Fatalf("CreatePlaylist returned error: %v", err)
	}

	if url != "https://open.spotify.com/playlist/pl1" {
		t.Errorf("unexpected playlist URL: %s", url)
	}
	if createdName != "Road Trip" {
		t.Errorf("expected playlist name %q, got %q", "Road Trip", createdName)
	}
	if len(addedURIs) != 2 || !strings.HasPrefix(addedURIs[0], "spotify:track:") {
		t.Errorf("unexpected track URIs: %v", addedURIs)
	}
}

func TestCreatePlaylistFailsAfterCreate(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users/spotify-user-1/playlists" {
			json.NewEncoder(w).Encode(map[string]any{"id": "pl1"})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	svc, server, ctx := newTestService(handler)
	defer server.Close()

	_, err := svc.CreatePlaylist(ctx, "Doomed", []string{"t1"})
	if err == nil {
		t.Fatal("expected error when adding tracks fails")
	}
	var provErr *catalog.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if provErr.Op != "add-playlist-tracks" {
		t.Errorf("expected failure in add-playlist-tracks, got %q", provErr.Op)
	}
}
