package main

import (
	"log"
	"net/http"

	"github.com/justinas/alice"

	"github.com/sparks-fm/sparks/session"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", session.WithPossibleAuth(app.home, app.sessionManager))

	// OAuth routes
	mux.HandleFunc("/login/spotify", app.oauthManager.HandleLogin("spotify"))
	mux.HandleFunc("/callback/spotify", app.oauthManager.HandleCallback("spotify"))
	mux.HandleFunc("/logout", app.handleLogout)

	// Session browsing API
	mux.HandleFunc("GET /api/v1/session", session.WithAuth(app.apiSessionState, app.sessionManager))
	mux.HandleFunc("GET /api/v1/tracks", session.WithAuth(app.apiTracks, app.sessionManager))
	mux.HandleFunc("POST /api/v1/tracks/refresh", session.WithAuth(app.apiTracksRefresh, app.sessionManager))
	mux.HandleFunc("POST /api/v1/tracks/next", session.WithAuth(app.apiNextTrack, app.sessionManager))
	mux.HandleFunc("POST /api/v1/tracks/previous", session.WithAuth(app.apiPreviousTrack, app.sessionManager))
	mux.HandleFunc("POST /api/v1/tracks/save", session.WithAuth(app.apiSaveTrack, app.sessionManager))
	mux.HandleFunc("POST /api/v1/tracks/play", session.WithAuth(app.apiPlayTrack, app.sessionManager))
	mux.HandleFunc("GET /api/v1/saved", session.WithAuth(app.apiSavedTracks, app.sessionManager))
	mux.HandleFunc("POST /api/v1/saved/remove", session.WithAuth(app.apiRemoveSaved, app.sessionManager))
	mux.HandleFunc("POST /api/v1/source", session.WithAuth(app.apiSetSource, app.sessionManager))
	mux.HandleFunc("GET /api/v1/recommendations", session.WithAuth(app.apiRecommendations, app.sessionManager))
	mux.HandleFunc("POST /api/v1/recommendations/refresh", session.WithAuth(app.apiFetchRecommendations, app.sessionManager))
	mux.HandleFunc("GET /api/v1/preferences", session.WithAuth(app.apiPreferences, app.sessionManager))
	mux.HandleFunc("POST /api/v1/preferences", session.WithAuth(app.apiSavePreferences, app.sessionManager))
	mux.HandleFunc("GET /api/v1/search", session.WithAuth(app.apiSearch, app.sessionManager))
	mux.HandleFunc("GET /api/v1/artist", session.WithAuth(app.apiArtist, app.sessionManager))
	mux.HandleFunc("GET /api/v1/events", session.WithAuth(app.apiEvents, app.sessionManager))
	mux.HandleFunc("POST /api/v1/location", session.WithAuth(app.apiSetLocation, app.sessionManager))
	mux.HandleFunc("POST /api/v1/playlist", session.WithAuth(app.apiCreatePlaylist, app.sessionManager))
	mux.HandleFunc("GET /api/v1/playlists", session.WithAuth(app.apiPlaylists, app.sessionManager))

	standard := alice.New(app.recoverPanic, app.logRequest)
	return standard.Then(mux)
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s %s", r.RemoteAddr, r.Method, r.URL.RequestURI())
		next.ServeHTTP(w, r)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				log.Printf("panic serving %s: %v", r.URL.Path, err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
