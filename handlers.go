package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sparks-fm/sparks/catalog"
	"github.com/sparks-fm/sparks/discovery"
	"github.com/sparks-fm/sparks/models"
	"github.com/sparks-fm/sparks/session"
)

// adapterTimeout bounds every provider call issued on behalf of a
// gesture. A timeout behaves like any other provider failure: session
// state is unchanged and the user can retry.
const adapterTimeout = 15 * time.Second

// jsonResponse returns a JSON response
func jsonResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// jsonError maps the error taxonomy onto HTTP statuses: validation
// failures are the caller's fault, failed preconditions mean the session
// is not in the right state, and provider failures are retryable.
func jsonError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var ve *discovery.ValidationError
	var pe *discovery.PreconditionError
	var provErr *catalog.ProviderError
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
	case errors.As(err, &pe):
		status = http.StatusPreconditionFailed
	case errors.As(err, &provErr):
		status = http.StatusBadGateway
	}

	jsonResponse(w, status, map[string]string{"error": err.Error()})
}

// storeFor returns the discovery store bound to the request's session.
func (app *application) storeFor(r *http.Request) (*discovery.Store, bool) {
	sessionID, ok := session.GetSessionID(r.Context())
	if !ok {
		return nil, false
	}
	return app.sessions.ForSession(sessionID), true
}

// trackCatalogFor selects the adapter behind a source tag.
func (app *application) trackCatalogFor(source models.Source) catalog.TrackCatalog {
	if source == models.SourceSecondary {
		return app.youtubeService
	}
	return app.spotifyService
}

func withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), adapterTimeout)
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")

	isLoggedIn := session.IsAuthenticated(r.Context())

	html := `
		<html>
		<head>
			<title>Sparks - Music Discovery &amp; Live</title>
			<style>
				body {
					font-family: Arial, sans-serif;
					max-width: 800px;
					margin: 0 auto;
					padding: 20px;
					line-height: 1.6;
				}
				h1 {
					color: #ff5c35;
				}
				.nav {
					display: flex;
					margin-bottom: 20px;
				}
				.nav a {
					margin-right: 15px;
					text-decoration: none;
					color: #ff5c35;
					font-weight: bold;
				}
				.card {
					border: 1px solid #ddd;
					border-radius: 8px;
					padding: 20px;
					margin-bottom: 20px;
				}
			</style>
		</head>
		<body>
			<h1>Sparks: Music Discovery</h1>
			<div class="nav">
				<a href="/">Home</a>`

	if isLoggedIn {
		html += `
				<a href="/api/v1/tracks">Top Tracks</a>
				<a href="/api/v1/saved">Saved</a>
				<a href="/api/v1/recommendations">Recommendations</a>
				<a href="/api/v1/events">Live Shows</a>
				<a href="/logout">Logout</a>`
	} else {
		html += `
				<a href="/login/spotify">Login with Spotify</a>`
	}

	html += `
			</div>

			<div class="card">
				<h2>Welcome to Sparks</h2>
				<p>Sparks pulls your top tracks, taste-seeded recommendations and nearby live shows into one place, and lets you export what you curate back to Spotify.</p>`

	if !isLoggedIn {
		html += `
				<p><a href="/login/spotify">Login with Spotify</a> to get started!</p>`
	} else {
		html += `
				<p>You're logged in! Page through your <a href="/api/v1/tracks">top tracks</a>, check the <a href="/api/v1/events">live shows</a> near you, or fetch <a href="/api/v1/recommendations">recommendations</a> seeded from your taste.</p>`
	}

	html += `
		</body>
		</html>
	`

	w.Write([]byte(html))
}

func (app *application) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("session")
	if err == nil {
		// Session state lives only as long as the session.
		app.sessions.Drop(cookie.Value)
		app.sessionManager.DeleteSession(cookie.Value)
	}

	app.sessionManager.ClearSessionCookie(w)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ===== Session browsing API =====

func (app *application) apiSessionState(w http.ResponseWriter, r *http.Request) {
	store, ok := app.storeFor(r)
	if !ok {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}
	jsonResponse(w, http.StatusOK, store.Snapshot())
}

// apiTracks lazily loads the top-tracks page on first access and returns
// it with the cursor position.
func (app *application) apiTracks(w http.ResponseWriter, r *http.Request) {
	store, ok := app.storeFor(r)
	if !ok {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	if err := store.LoadTopTracks(ctx, app.spotifyService.TopTracks); err != nil {
		jsonError(w, err)
		return
	}

	state := store.Snapshot()
	current, _ := store.CurrentTrack()
	jsonResponse(w, http.StatusOK, map[string]any{
		"trackList": state.TrackList,
		"cursor":    state.Cursor,
		"current":   current,
	})
}

func (app *application) apiTracksRefresh(w http.ResponseWriter, r *http.Request) {
	store, ok := app.storeFor(r)
	if !ok {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	if err := store.RefreshTopTracks(ctx, app.spotifyService.TopTracks); err != nil {
		jsonError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, store.Snapshot())
}

func (app *application) advanceHandler(dir discovery.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := app.storeFor(r)
		if !ok {
			jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
			return
		}

		track, err := store.Advance(dir)
		if err != nil {
			jsonError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, map[string]any{
			"cursor":  store.Snapshot().Cursor,
			"current": track,
		})
	}
}

func (app *application) apiNextTrack(w http.ResponseWriter, r *http.Request) {
	app.advanceHandler(discovery.Next)(w, r)
}

func (app *application) apiPreviousTrack(w http.ResponseWriter, r *http.Request) {
	app.advanceHandler(discovery.Previous)(w, r)
}

func (app *application) apiSaveTrack(w http.ResponseWriter, r *http.Request) {
	store, ok := app.storeFor(r)
	if !ok {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}

	result, err := store.SaveCurrentTrack()
	if err != nil {
		jsonError(w, err)
		return
	}

	status := "saved"
	if result.AlreadySaved {
		status = "already_saved"
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"status": status,
		"track":  result.Track,
	})
}

func (app *application) apiPlayTrack(w http.ResponseWriter, r *http.Request) {
	store, ok := app.storeFor(r)
	if !ok {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}

	embed, err := store.Play()
	if err != nil {
		jsonError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"embed": embed})
}

func (app *application) apiSavedTracks(w http.ResponseWriter, r *http.Request) {
	store, ok := app.storeFor(r)
	if !ok {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}
	jsonResponse(w, http.StatusOK, store.Snapshot().SavedTracks)
}

func (app *application) apiRemoveSaved(w http.ResponseWriter, r *http.Request) {
	store, ok := app.storeFor(r)
	if !ok {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}

	position, err := strconv.Atoi(r.URL.Query().Get("position"))
	if err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "position must be an integer"})
		return
	}

	if err := store.RemoveSaved(position); err != nil {
		jsonError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, store.Snapshot().SavedTracks)
}

func (app *application) apiSetSource(w http.ResponseWriter, r *http.Request) {
	store, ok := app.storeFor(r)
	if !ok {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}

	var body struct {
		Source models.Source `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := store.SetActiveSource(body.Source); err != nil {
		jsonError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{"activeSource": body.Source})
}

func (app *application) apiRecommendations(w http.ResponseWriter, r *http.Request) {
	store, ok := app.storeFor(r)
	if !ok {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}
	jsonResponse(w, http.StatusOK, store.Snapshot().Recommendations)
}

func (app *application) apiFetchRecommendations(w http.ResponseWriter, r *http.Request) {
	store, ok := app.storeFor(r)
	if !ok {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	source := app.trackCatalogFor(store.ActiveSource())
	if err := store.FetchRecommendations(ctx, source.Recommendations); err != nil {
		jsonError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, store.Snapshot().Recommendations)
}

func (app *application) apiPreferences(w http.ResponseWriter, r *http.Request) {
	store, ok := app.storeFor(r)
	if !ok {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}
	jsonResponse(w, http.StatusOK, store.Snapshot().Preferences)
}

func (app *application) apiSavePreferences(w http.ResponseWriter, r *http.Request) {
	store, ok := app.storeFor(r)
	if !ok {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}

	var prefs models.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := store.SavePreferences(prefs); err != nil {
		jsonError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, store.Snapshot().Preferences)
}

func (app *application) apiSearch(w http.ResponseWriter, r *http.Request) {
	store, ok := app.storeFor(r)
	if !ok {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "missing query parameter q"})
		return
	}

	limit := 10
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 50 {
		limit = l
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	tracks, err := app.trackCatalogFor(store.ActiveSource()).Search(ctx, query, limit)
	if err != nil {
		jsonError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, tracks)
}

func (app *application) apiArtist(w http.ResponseWriter, r *http.Request) {
	store, ok := app.storeFor(r)
	if !ok {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}

	artistID := r.URL.Query().Get("id")
	if artistID == "" {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "missing query parameter id"})
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	artist, err := app.trackCatalogFor(store.ActiveSource()).Artist(ctx, artistID)
	if err != nil {
		jsonError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, artist)
}

func (app *application) apiEvents(w http.ResponseWriter, r *http.Request) {
	store, ok := app.storeFor(r)
	if !ok {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	events, err := store.LoadEvents(ctx, r.URL.Query().Get("artist"), app.ticketingService.Events)
	if err != nil {
		jsonError(w, err)
		return
	}

	// An empty batch is "no events found", a success with nothing in it.
	jsonResponse(w, http.StatusOK, map[string]any{
		"location": store.Snapshot().Location,
		"events":   events,
	})
}

func (app *application) apiSetLocation(w http.ResponseWriter, r *http.Request) {
	store, ok := app.storeFor(r)
	if !ok {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}

	var body struct {
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := store.SetLocation(body.Location); err != nil {
		jsonError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"location": body.Location})
}

func (app *application) apiCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	store, ok := app.storeFor(r)
	if !ok {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()

	url, err := store.CreatePlaylistFromSaved(ctx, body.Name, app.spotifyService.CreatePlaylist)
	if err != nil {
		jsonError(w, err)
		return
	}

	if userID, ok := session.GetUserID(r.Context()); ok {
		count := 0
		for _, t := range store.Snapshot().SavedTracks {
			if t.Source == models.SourcePrimary {
				count++
			}
		}
		if err := app.database.RecordPlaylistExport(userID, body.Name, url, count); err != nil {
			// The playlist exists on the provider; a failed log entry is
			// not worth failing the request over.
			jsonResponse(w, http.StatusOK, map[string]string{"url": url})
			return
		}
	}

	jsonResponse(w, http.StatusOK, map[string]string{"url": url})
}

func (app *application) apiPlaylists(w http.ResponseWriter, r *http.Request) {
	userID, ok := session.GetUserID(r.Context())
	if !ok {
		jsonResponse(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}

	playlists, err := app.database.GetExportedPlaylists(userID, 50)
	if err != nil {
		jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	jsonResponse(w, http.StatusOK, playlists)
}
