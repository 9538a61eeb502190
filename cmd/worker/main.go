package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ItsAltus/Worshipify/internal/classify"
	"github.com/ItsAltus/Worshipify/internal/client"
	"github.com/ItsAltus/Worshipify/internal/config"
	"github.com/ItsAltus/Worshipify/internal/store"
	"github.com/ItsAltus/Worshipify/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open the database; refuse to start polling against a dead store
	st, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := st.AutoMigrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// External clients, constructed once and passed in explicitly
	spotifyClient := client.NewSpotifyClient(&cfg.Spotify)
	lastfmClient := client.NewLastfmClient(&cfg.Lastfm)
	reccoClient := client.NewReccoBeatsClient(&cfg.ReccoBeats)
	audioFetcher := client.NewAudioFetcher(&cfg.Audio)
	classifier := classify.New()

	if !spotifyClient.IsConfigured() {
		log.Println("Warning: Spotify credentials not configured, lookups will fail")
	}
	if !lastfmClient.IsConfigured() {
		log.Println("Warning: Last.fm API key not configured, tag retrieval will fail")
	}

	count := cfg.Worker.Count
	if count < 1 {
		count = 1
	}

	var wg sync.WaitGroup
	for i := 1; i <= count; i++ {
		w := worker.NewSeedWorker(
			i, st,
			spotifyClient, audioFetcher, reccoClient, lastfmClient,
			classifier, &cfg.Worker, cfg.Audio.TempDir,
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Worker stopped: %v", err)
			}
		}()
	}

	<-ctx.Done()
	log.Println("Interrupt received, waiting for workers to roll back...")
	wg.Wait()
	log.Println("All workers stopped")
}
