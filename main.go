package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sparks-fm/sparks/config"
	"github.com/sparks-fm/sparks/db"
	"github.com/sparks-fm/sparks/discovery"
	"github.com/sparks-fm/sparks/models"
	"github.com/sparks-fm/sparks/oauth"
	"github.com/sparks-fm/sparks/service/spotify"
	"github.com/sparks-fm/sparks/service/ticketing"
	"github.com/sparks-fm/sparks/service/youtube"
	"github.com/sparks-fm/sparks/session"
)

type application struct {
	database         *db.DB
	sessionManager   *session.SessionManager
	oauthManager     *oauth.OAuthServiceManager
	spotifyService   *spotify.Service
	youtubeService   *youtube.Service
	ticketingService *ticketing.Service
	sessions         *discovery.Registry
}

func main() {
	config.Load()

	// create data folder if not exists with proper perms
	os.MkdirAll("./data", 0755)

	database, err := db.New(viper.GetString("db.path"))
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}

	if err := database.Initialize(); err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	sessionManager := session.NewSessionManager(database)

	spotifyService := spotify.NewService(database)
	youtubeService := youtube.NewService(viper.GetString("youtube.api_key"))
	ticketingService := ticketing.NewService(
		viper.GetString("ticketing.api_key"),
		viper.GetString("ticketing.api_url"),
	)

	oauthManager := oauth.NewOAuthServiceManager(sessionManager)
	spotifyOAuth := oauth.NewOAuth2Service(
		viper.GetString("spotify.client_id"),
		viper.GetString("spotify.client_secret"),
		viper.GetString("callback.spotify"),
		strings.Fields(viper.GetString("spotify.scopes")),
		"spotify",
		spotifyService,
	)
	oauthManager.RegisterService("spotify", spotifyOAuth)

	registry := discovery.NewRegistry(discovery.Defaults{
		Location:   viper.GetString("discovery.default_location"),
		Source:     models.Source(viper.GetString("discovery.default_source")),
		Energy:     viper.GetFloat64("discovery.default_energy"),
		Popularity: viper.GetInt("discovery.default_popularity"),
		PageSize:   viper.GetInt("discovery.page_size"),
	})

	app := &application{
		database:         database,
		sessionManager:   sessionManager,
		oauthManager:     oauthManager,
		spotifyService:   spotifyService,
		youtubeService:   youtubeService,
		ticketingService: ticketingService,
		sessions:         registry,
	}

	if err := spotifyService.LoadAllUsers(); err != nil {
		log.Printf("Warning: Failed to preload users: %v", err)
	}

	serverAddr := fmt.Sprintf("%s:%s", viper.GetString("server.host"), viper.GetString("server.port"))
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	fmt.Printf("Server running at: http://%s\n", serverAddr)
	log.Fatal(server.ListenAndServe())
}
