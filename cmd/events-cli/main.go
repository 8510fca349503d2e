package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/sparks-fm/sparks/service/ticketing"
)

func main() {
	var (
		location = flag.String("location", "Washington, DC", "City to search, e.g. \"Austin, TX\"")
		artist   = flag.String("artist", "", "Optional artist keyword filter")
		apiKey   = flag.String("apikey", os.Getenv("TICKETING_API_KEY"), "Discovery API key")
		apiURL   = flag.String("url", "", "API base URL override")
	)
	flag.Parse()

	if *apiKey == "" {
		log.Fatal("no API key: pass -apikey or set TICKETING_API_KEY")
	}

	svc := ticketing.NewService(*apiKey, *apiURL)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	events, err := svc.Events(ctx, *location, *artist)
	if err != nil {
		log.Fatalf("Error fetching events: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "\t")
	enc.Encode(events)
}
