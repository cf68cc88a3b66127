// Command sender simulates radar contacts and streams EntityState datagrams
// at a fixed rate to a tracker.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/sim"
)

var (
	target   = flag.String("target", "127.0.0.1:30001", "Tracker UDP address")
	hz       = flag.Int("hz", 20, "Datagrams per contact per second")
	contacts = flag.Int("contacts", 1, "Number of simulated contacts")
	speed    = flag.Float64("speed", 1.5, "Contact speed in world units per step")
	jitter   = flag.Float64("jitter", 0, "Max random heading change per step in degrees")
)

func main() {
	flag.Parse()

	if *contacts < 1 {
		log.Fatal("At least one contact is required")
	}
	if *hz < 1 {
		log.Fatal("Rate must be at least 1 Hz")
	}

	engine := sim.NewEngine(sim.EngineConfig{JitterDeg: *jitter}, *contacts, *speed,
		rand.New(rand.NewSource(time.Now().UnixNano())))

	sender, err := sim.NewSender(engine, *target, *hz)
	if err != nil {
		log.Fatalf("Failed to create sender: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sender.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Sender error: %v", err)
	}
	log.Print("Sender stopped")
}
