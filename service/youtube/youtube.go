package youtube

import (
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
	"time"

	"golang.org/x/time/rate"

	"github.com/sparks-fm/sparks/catalog"
	"github.com/sparks-fm/sparks/models"
)

const (
	defaultAPIBaseURL = "https://www.googleapis.com/youtube/v3"
	musicCategoryID   = "10"
)

// Service is the secondary TrackCatalog, backed by YouTube video search.
// It covers search and preference-seeded recommendations; top tracks and
// playlist mutation are primary-provider capabilities it does not offer.
type Service struct {
	apiKey     string
	apiBaseURL string
	httpClient *http.Client
	limiter    *rate.Limiter
	cleaner    *TitleCleaner
	logger     *log.Logger
}

func NewService(apiKey string) *Service {
	return &Service{
		apiKey:     apiKey,
		apiBaseURL: defaultAPIBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		// Data API quota is daily, not per-second; a small limiter keeps
		// bursts from burning it.
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
		cleaner: NewTitleCleaner(),
		logger:  log.New(os.Stdout, "youtube: ", log.LstdFlags|log.Lmsgprefix),
	}
}

// Source identifies this catalog's provider tag.
func (s *Service) Source() models.Source {
	return models.SourceSecondary
}

func (s *Service) doJSON(ctx context.Context, op, endpoint string, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return &catalog.ProviderError{Provider: "youtube", Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &catalog.ProviderError{Provider: "youtube", Op: op, Err: err}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &catalog.ProviderError{Provider: "youtube", Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &catalog.ProviderError{
			Provider:   "youtube",
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &catalog.ProviderError{Provider: "youtube", Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelID    string `json:"channelId"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

func (s *Service) searchVideos(ctx context.Context, op, query string, limit int) ([]models.Track, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("videoCategoryId", musicCategoryID)
	params.Set("maxResults", strconv.Itoa(limit))
	params.Set("q", query)
	params.Set("key", s.apiKey)

	var response searchResponse
	endpoint := fmt.Sprintf("%s/search?%s", s.apiBaseURL, params.Encode())
	if err := s.doJSON(ctx, op, endpoint, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Items))
	for _, item := range response.Items {
		if item.ID.VideoID == "" {
			continue
		}
		// Video titles carry upload guff ("(Official Video)", "feat. ...")
		// that the normalized model should not.
		tracks = append(tracks, models.Track{
			ID:     item.ID.VideoID,
			Source: models.SourceSecondary,
			Title:  s.cleaner.Clean(item.Snippet.Title),
			Artists: []models.Artist{
				{ID: item.Snippet.ChannelID, Name: item.Snippet.ChannelTitle},
			},
			EmbedRef: "https://www.youtube.com/embed/" + item.ID.VideoID,
		})
	}
	return tracks, nil
}

// Search returns music videos matching the free-text query.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.Track, error) {
	return s.searchVideos(ctx, "search", query, limit)
}

// TopTracks is a primary-provider capability; YouTube has no notion of
// the listener's streaming history.
func (s *Service) TopTracks(ctx context.Context, limit int) ([]models.Track, error) {
	return nil, catalog.Unsupported("youtube", "top-tracks")
}

// Artist resolves a channel as an artist.
func (s *Service) Artist(ctx context.Context, artistID string) (models.Artist, error) {
	params := url.Values{}
	params.Set("part", "snippet,statistics")
	params.Set("id", artistID)
	params.Set("key", s.apiKey)

	var response struct {
		Items []struct {
			ID      string `json:"id"`
			Snippet struct {
				Title      string `json:"title"`
				Thumbnails struct {
					Default struct {
						URL string `json:"url"`
					} `json:"default"`
				} `json:"thumbnails"`
			} `json:"snippet"`
			Statistics struct {
				SubscriberCount string `json:"subscriberCount"`
			} `json:"statistics"`
		} `json:"items"`
	}
	endpoint := fmt.Sprintf("%s/channels?%s", s.apiBaseURL, params.Encode())
	if err := s.doJSON(ctx, "artist", endpoint, &response); err != nil {
		return models.Artist{}, err
	}

	if len(response.Items) == 0 {
		return models.Artist{}, &catalog.ProviderError{Provider: "youtube", Op: "artist", Err: fmt.Errorf("channel %s not found", artistID)}
	}

	item := response.Items[0]
	followers, _ := strconv.Atoi(item.Statistics.SubscriberCount)
	return models.Artist{
		ID:        item.ID,
		Name:      item.Snippet.Title,
		ImageURL:  item.Snippet.Thumbnails.Default.URL,
		Followers: followers,
	}, nil
}

// Recommendations has no seed-id counterpart on YouTube; seeds from the
// primary provider's namespace mean nothing here. The preference profile
// drives a music search instead.
func (s *Service) Recommendations(ctx context.Context, seeds catalog.SeedSet, prefs models.Preferences, limit int) ([]models.Track, error) {
	var parts []string
	parts = append(parts, prefs.Genres...)
	if prefs.Mood != "" {
		parts = append(parts, prefs.Mood)
	}
	if len(parts) == 0 {
		return nil, &catalog.ProviderError{Provider: "youtube", Op: "recommendations", Err: fmt.Errorf("preference profile is empty, nothing to seed a search with")}
	}
	parts = append(parts, "music")

	return s.searchVideos(ctx, "recommendations", strings.Join(parts, " "), limit)
}

// CreatePlaylist is not offered; playlist export is a primary-provider
// capability and the store's preconditions keep this unreachable in
// normal flows.
func (s *Service) CreatePlaylist(ctx context.Context, name string, trackIDs []string) (string, error) {
	return "", catalog.Unsupported("youtube", "create-playlist")
}
