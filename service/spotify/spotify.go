package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sparks-fm/sparks/catalog"
	"github.com/sparks-fm/sparks/db"
	"github.com/sparks-fm/sparks/models"
	"github.com/sparks-fm/sparks/session"
)

const defaultAPIBaseURL = "https://api.spotify.com/v1"

// Service is the primary TrackCatalog: the listener's streaming history,
// search, recommendations and playlist export all go through Spotify.
// One instance is shared by every session; per-user tokens are resolved
// from the request context.
type Service struct {
	DB         *db.DB
	apiBaseURL string
	httpClient *http.Client
	limiter    *rate.Limiter
	userTokens map[int64]string
	spotifyIDs map[int64]string // local user id -> spotify user id, for playlist ownership
	logger     *log.Logger
	mu         sync.RWMutex
}

func NewService(database *db.DB) *Service {
	return &Service{
		DB:         database,
		apiBaseURL: defaultAPIBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		// Spotify's documented guidance is a rolling window; ~10 rps keeps
		// well inside it.
		limiter:    rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
		userTokens: make(map[int64]string),
		spotifyIDs: make(map[int64]string),
		logger:     log.New(os.Stdout, "spotify: ", log.LstdFlags|log.Lmsgprefix),
	}
}

// Source identifies this catalog's provider tag.
func (s *Service) Source() models.Source {
	return models.SourcePrimary
}

// SetAccessToken implements oauth.TokenReceiver: it identifies the user
// behind the token, creates or updates the local account, and caches the
// token for subsequent catalog calls.
func (s *Service) SetAccessToken(token string, expiresIn int64) (int64, error) {
	profile, err := s.fetchProfile(token)
	if err != nil {
		s.logger.Printf("Error fetching Spotify profile: %v", err)
		return 0, err
	}

	if expiresIn <= 0 {
		expiresIn = 3600 // Spotify tokens last ~1 hour
	}
	tokenExpiry := time.Now().Add(time.Duration(expiresIn) * time.Second)

	user, err := s.DB.GetUserBySpotifyID(profile.ID)
	if err != nil {
		s.logger.Printf("Error checking for user by Spotify ID %s: %v", profile.ID, err)
		return 0, err
	}

	if user == nil {
		userID, err := s.DB.CreateUser(&models.User{
			Username:    profile.DisplayName,
			Email:       &profile.Email,
			SpotifyID:   &profile.ID,
			AccessToken: &token,
			TokenExpiry: &tokenExpiry,
		})
		if err != nil {
			s.logger.Printf("Error creating user for Spotify ID %s: %v", profile.ID, err)
			return 0, err
		}
		user = &models.User{ID: userID, Username: profile.DisplayName, SpotifyID: &profile.ID}
		s.logger.Printf("Created user %d for Spotify account %s", userID, profile.ID)
	} else {
		if err := s.DB.UpdateUserToken(user.ID, token, "", tokenExpiry); err != nil {
			s.logger.Printf("Error updating user token for user ID %d: %v", user.ID, err)
		}
	}

	s.mu.Lock()
	s.userTokens[user.ID] = token
	s.spotifyIDs[user.ID] = profile.ID
	s.mu.Unlock()

	s.logger.Printf("User authenticated via Spotify: %s (ID: %d)", user.Username, user.ID)
	return user.ID, nil
}

type spotifyProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

func (s *Service) fetchProfile(token string) (*spotifyProfile, error) {
	req, err := http.NewRequest("GET", s.apiBaseURL+"/me", nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("spotify API error (%d): %s", resp.StatusCode, body)
	}

	var profile spotifyProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}

	return &profile, nil
}

// LoadAllUsers preloads tokens for users whose Spotify token is still
// valid, so a restart does not force everyone back through login.
func (s *Service) LoadAllUsers() error {
	rows, err := s.DB.Query(`
	SELECT id, spotify_id, access_token, token_expiry FROM users
	WHERE access_token IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("error loading users: %w", err)
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for rows.Next() {
		var (
			id        int64
			spotifyID *string
			token     *string
			expiry    *time.Time
		)
		if err := rows.Scan(&id, &spotifyID, &token, &expiry); err != nil {
			return err
		}
		if token == nil || expiry == nil || expiry.Before(time.Now()) {
			continue
		}
		s.userTokens[id] = *token
		if spotifyID != nil {
			s.spotifyIDs[id] = *spotifyID
		}
		count++
	}

	s.logger.Printf("Loaded %d active users with valid tokens", count)
	return rows.Err()
}

// tokenFromContext resolves the calling user's token. The session
// middleware put the user id on the context.
func (s *Service) tokenFromContext(ctx context.Context, op string) (string, int64, error) {
	userID, ok := session.GetUserID(ctx)
	if !ok {
		return "", 0, &catalog.ProviderError{Provider: "spotify", Op: op, Err: fmt.Errorf("no user on request context")}
	}

	s.mu.RLock()
	token, exists := s.userTokens[userID]
	s.mu.RUnlock()

	if !exists || token == "" {
		return "", 0, &catalog.ProviderError{Provider: "spotify", Op: op, Err: fmt.Errorf("no access token for user %d", userID)}
	}
	return token, userID, nil
}

// doJSON runs one authenticated API call and decodes the response into
// out. Every failure comes back as a ProviderError so the store's
// transition boundary can treat it uniformly.
func (s *Service) doJSON(ctx context.Context, op, method, endpoint string, body io.Reader, out any) error {
	token, userID, err := s.tokenFromContext(ctx, op)
	if err != nil {
		return err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return &catalog.ProviderError{Provider: "spotify", Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &catalog.ProviderError{Provider: "spotify", Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &catalog.ProviderError{Provider: "spotify", Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// Token expired; drop it so the next call forces a re-login.
		s.mu.Lock()
		delete(s.userTokens, userID)
		s.mu.Unlock()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return &catalog.ProviderError{
			Provider:   "spotify",
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(respBody))),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &catalog.ProviderError{Provider: "spotify", Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// trackItem is the slice of Spotify's track object this service consumes.
type trackItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name string `json:"name"`
	} `json:"album"`
}

func toTrack(item trackItem) models.Track {
	var artists []models.Artist
	for _, a := range item.Artists {
		artists = append(artists, models.Artist{ID: a.ID, Name: a.Name})
	}
	return models.Track{
		ID:       item.ID,
		Source:   models.SourcePrimary,
		Title:    item.Name,
		Artists:  artists,
		Album:    item.Album.Name,
		EmbedRef: "https://open.spotify.com/embed/track/" + item.ID,
	}
}

// TopTracks returns the listener's most played tracks.
func (s *Service) TopTracks(ctx context.Context, limit int) ([]models.Track, error) {
	var response struct {
		Items []trackItem `json:"items"`
	}
	endpoint := fmt.Sprintf("%s/me/top/tracks?limit=%d", s.apiBaseURL, limit)
	if err := s.doJSON(ctx, "top-tracks", http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Items))
	for _, item := range response.Items {
		tracks = append(tracks, toTrack(item))
	}
	return tracks, nil
}

// Search returns tracks matching the free-text query.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.Track, error) {
	var response struct {
		Tracks struct {
			Items []trackItem `json:"items"`
		} `json:"tracks"`
	}
	endpoint := fmt.Sprintf("%s/search?q=%s&type=track&limit=%d", s.apiBaseURL, url.QueryEscape(query), limit)
	if err := s.doJSON(ctx, "search", http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Tracks.Items))
	for _, item := range response.Tracks.Items {
		tracks = append(tracks, toTrack(item))
	}
	return tracks, nil
}

// Artist looks up a single artist.
func (s *Service) Artist(ctx context.Context, artistID string) (models.Artist, error) {
	var response struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Images    []struct {
			URL string `json:"url"`
		} `json:"images"`
		Followers struct {
			Total int `json:"total"`
		} `json:"followers"`
	}
	endpoint := fmt.Sprintf("%s/artists/%s", s.apiBaseURL, url.PathEscape(artistID))
	if err := s.doJSON(ctx, "artist", http.MethodGet, endpoint, nil, &response); err != nil {
		return models.Artist{}, err
	}

	artist := models.Artist{
		ID:        response.ID,
		Name:      response.Name,
		Followers: response.Followers.Total,
	}
	if len(response.Images) > 0 {
		artist.ImageURL = response.Images[0].URL
	}
	return artist, nil
}

// Recommendations returns tracks biased by the seed set and the
// listener's preference targets.
func (s *Service) Recommendations(ctx context.Context, seeds catalog.SeedSet, prefs models.Preferences, limit int) ([]models.Track, error) {
	if seeds.Empty() && len(prefs.Genres) == 0 {
		return nil, &catalog.ProviderError{Provider: "spotify", Op: "recommendations", Err: fmt.Errorf("at least one seed is required")}
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if len(seeds.TrackIDs) > 0 {
		params.Set("seed_tracks", strings.Join(seeds.TrackIDs, ","))
	}
	if len(seeds.ArtistIDs) > 0 {
		params.Set("seed_artists", strings.Join(seeds.ArtistIDs, ","))
	}
	if len(prefs.Genres) > 0 && seeds.Empty() {
		params.Set("seed_genres", strings.Join(prefs.Genres, ","))
	}
	params.Set("target_energy", strconv.FormatFloat(prefs.Energy, 'f', 2, 64))
	params.Set("target_popularity", strconv.Itoa(prefs.Popularity))

	var response struct {
		Tracks []trackItem `json:"tracks"`
	}
	endpoint := fmt.Sprintf("%s/recommendations?%s", s.apiBaseURL, params.Encode())
	if err := s.doJSON(ctx, "recommendations", http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Tracks))
	for _, item := range response.Tracks {
		tracks = append(tracks, toTrack(item))
	}
	return tracks, nil
}

// CreatePlaylist creates a playlist on the listener's account and fills
// it with trackIDs, returning the playlist's public URL. The two calls
// are not atomic: a failure after the create leaves an empty playlist
// behind, and a timeout after the create is not rolled back.
func (s *Service) CreatePlaylist(ctx context.Context, name string, trackIDs []string) (string, error) {
	userID, ok := session.GetUserID(ctx)
	if !ok {
		return "", &catalog.ProviderError{Provider: "spotify", Op: "create-playlist", Err: fmt.Errorf("no user on request context")}
	}

	s.mu.RLock()
	spotifyID, exists := s.spotifyIDs[userID]
	s.mu.RUnlock()
	if !exists {
		return "", &catalog.ProviderError{Provider: "spotify", Op: "create-playlist", Err: fmt.Errorf("no spotify account for user %d", userID)}
	}

	createBody, err := json.Marshal(map[string]any{
		"name":        name,
		"description": "Curated with Sparks",
		"public":      true,
	})
	if err != nil {
		return "", &catalog.ProviderError{Provider: "spotify", Op: "create-playlist", Err: err}
	}

	var created struct {
		ID           string `json:"id"`
		ExternalURLs struct {
			Spotify string `json:"spotify"`
		} `json:"external_urls"`
	}
	endpoint := fmt.Sprintf("%s/users/%s/playlists", s.apiBaseURL, url.PathEscape(spotifyID))
	if err := s.doJSON(ctx, "create-playlist", http.MethodPost, endpoint, bytes.NewReader(createBody), &created); err != nil {
		return "", err
	}

	uris := make([]string, len(trackIDs))
	for i, id := range trackIDs {
		uris[i] = "spotify:track:" + id
	}
	addBody, err := json.Marshal(map[string]any{"uris": uris})
	if err != nil {
		return "", &catalog.ProviderError{Provider: "spotify", Op: "add-playlist-tracks", Err: err}
	}

	endpoint = fmt.Sprintf("%s/playlists/%s/tracks", s.apiBaseURL, url.PathEscape(created.ID))
	if err := s.doJSON(ctx, "add-playlist-tracks", http.MethodPost, endpoint, bytes.NewReader(addBody), nil); err != nil {
		return "", err
	}

	playlistURL := created.ExternalURLs.Spotify
	if playlistURL == "" {
		playlistURL = "https://open.spotify.com/playlist/" + created.ID
	}

	s.logger.Printf("Created playlist %q (%d tracks) for user %d", name, len(trackIDs), userID)
	return playlistURL, nil
}
