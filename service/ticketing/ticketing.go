package ticketing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sparks-fm/sparks/catalog"
	"github.com/sparks-fm/sparks/models"
)

const defaultAPIBaseURL = "https://app.ticketmaster.com/discovery/v2"

// Service lists live music events near a location via a Discovery-style
// API. It is stateless and shared across sessions.
type Service struct {
	apiKey     string
	apiBaseURL string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

func NewService(apiKey, apiBaseURL string) *Service {
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}
	return &Service{
		apiKey:     apiKey,
		apiBaseURL: apiBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		// Discovery API allows 5 requests per second
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		logger:  log.New(os.Stdout, "ticketing: ", log.LstdFlags|log.Lmsgprefix),
	}
}

type eventsResponse struct {
	Embedded struct {
		Events []struct {
			Name  string `json:"name"`
			URL   string `json:"url"`
			Dates struct {
				Start struct {
					LocalDate string `json:"localDate"`
				} `json:"start"`
			} `json:"dates"`
			Embedded struct {
				Venues []struct {
					Name string `json:"name"`
				} `json:"venues"`
				Attractions []struct {
					Name string `json:"name"`
				} `json:"attractions"`
			} `json:"_embedded"`
		} `json:"events"`
	} `json:"_embedded"`
}

// Events returns upcoming music events near location, optionally
// filtered by artist keyword. A response with no listings is a valid
// empty result, not a failure.
func (s *Service) Events(ctx context.Context, location, artistFilter string) ([]models.Event, error) {
	params := url.Values{}
	params.Set("classificationName", "music")
	params.Set("city", cityFromLocation(location))
	params.Set("sort", "date,asc")
	params.Set("apikey", s.apiKey)
	if artistFilter != "" {
		params.Set("keyword", artistFilter)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &catalog.ProviderError{Provider: "ticketing", Op: "events", Err: err}
	}

	endpoint := fmt.Sprintf("%s/events.json?%s", s.apiBaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &catalog.ProviderError{Provider: "ticketing", Op: "events", Err: err}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &catalog.ProviderError{Provider: "ticketing", Op: "events", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &catalog.ProviderError{
			Provider:   "ticketing",
			Op:         "events",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(body))),
		}
	}

	var response eventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, &catalog.ProviderError{Provider: "ticketing", Op: "events", Err: fmt.Errorf("decoding response: %w", err)}
	}

	events := make([]models.Event, 0, len(response.Embedded.Events))
	for _, e := range response.Embedded.Events {
		artist := e.Name
		if len(e.Embedded.Attractions) > 0 && e.Embedded.Attractions[0].Name != "" {
			artist = e.Embedded.Attractions[0].Name
		}

		venue := ""
		if len(e.Embedded.Venues) > 0 {
			venue = e.Embedded.Venues[0].Name
		}

		date, err := time.Parse("2006-01-02", e.Dates.Start.LocalDate)
		if err != nil {
			s.logger.Printf("Skipping event %q with unparseable date %q", e.Name, e.Dates.Start.LocalDate)
			continue
		}

		ticketURL := e.URL
		if ticketURL == "" {
			ticketURL = models.PlaceholderTicketURL
		}

		events = append(events, models.Event{
			Artist:    artist,
			Venue:     venue,
			Date:      date,
			TicketURL: ticketURL,
		})
	}

	return events, nil
}

// cityFromLocation reduces a free-text place descriptor to the city
// component the API expects: "Washington, DC" queries as "Washington".
func cityFromLocation(location string) string {
	city, _, found := strings.Cut(location, ",")
	if !found {
		return strings.TrimSpace(location)
	}
	return strings.TrimSpace(city)
}
