// Command tracker receives EntityState telemetry over UDP, maintains the
// live track picture, and serves it over HTTP and WebSocket. An optional
// sqlite recorder samples the snapshot feed for post-run analysis.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/api"
	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/config"
	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/db"
	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/network"
	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/timeutil"
	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/track"
)

var (
	listen        = flag.String("listen", ":8080", "HTTP listen address")
	udpAddr       = flag.String("udp", "", "UDP telemetry address (overrides config)")
	configPath    = flag.String("config", "", "Path to JSON tuning config")
	dbPath        = flag.String("db", "", "sqlite file for observation recording (empty disables)")
	migrationsDir = flag.String("migrations", "migrations", "Directory with recorder schema migrations")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	tuning := &config.TuningConfig{}
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}

	udpAddress := tuning.GetUDPAddress()
	if *udpAddr != "" {
		udpAddress = *udpAddr
	}

	store := track.NewStore(tuning.GetHistoryMax())
	producer := track.NewProducer(store, timeutil.RealClock{}, track.ProducerConfig{
		StaleThreshold: tuning.GetStaleThreshold(),
		TickInterval:   tuning.GetTickInterval(),
	})

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// UDP receiver. Start binds synchronously so a busy port fails fast.
	listener := network.NewListener(network.ListenerConfig{
		Address:     udpAddress,
		RcvBuf:      tuning.GetUDPRcvBuf(),
		LogInterval: tuning.GetStatsInterval(),
	}, store)
	if err := listener.Start(ctx); err != nil {
		log.Fatalf("Failed to start UDP listener: %v", err)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		if err := listener.Stop(); err != nil {
			log.Printf("UDP listener stop error: %v", err)
		}
		log.Print("receiver routine terminated")
	}()

	// Snapshot producer loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := producer.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("snapshot producer error: %v", err)
		}
		log.Print("snapshot routine terminated")
	}()

	// Janitor: evict tracks idle past the TTL. Disabled when the TTL is 0.
	if ttl := tuning.GetTrackTTL(); ttl > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(ttl / 2)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					log.Print("janitor routine terminated")
					return
				case now := <-ticker.C:
					if n := store.EvictIdle(now, ttl); n > 0 {
						log.Printf("Evicted %d idle tracks", n)
					}
				}
			}
		}()
	}

	// Optional observation recorder
	if *dbPath != "" {
		database, err := db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer database.Close()

		if err := database.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}

		sessionID, err := database.CreateSession(time.Now(), udpAddress)
		if err != nil {
			log.Fatalf("Failed to create recording session: %v", err)
		}
		log.Printf("Recording session %s to %s", sessionID, *dbPath)

		recorder := db.NewRecorder(database, producer, sessionID, tuning.GetRecordInterval())
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := recorder.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("recorder error: %v", err)
			}
			log.Print("recorder routine terminated")
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(producer, tuning).ServeMux()
		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("HTTP server listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
