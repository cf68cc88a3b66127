// Package sim drives simulated radar contacts across a bounded world.
//
// Conventions match the wire schema: 0 degrees points up (north), headings
// increase clockwise, and y grows downward in world space.
package sim

import (
	"math"
	"math/rand"

	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/project"
)

// Contact is one simulated entity moving inside the margin box.
type Contact struct {
	EntityID   int64
	EntityType string
	X          float64
	Y          float64
	HeadingDeg float64
	Speed      float64
	Status     string
}

// EngineConfig bounds the world the contacts move in.
type EngineConfig struct {
	WorldWidth  float64 // zero selects 800
	WorldHeight float64 // zero selects 600
	Margin      float64 // zero selects 50
	JitterDeg   float64 // max random heading perturbation per step; zero disables
}

// Engine steps a set of contacts with bounce kinematics. Hitting the top or
// bottom wall mirrors the heading as 180-h, the left or right wall as
// 360-h; the contact is then nudged one unit off the wall so it cannot
// re-trigger on the next step.
type Engine struct {
	cfg      EngineConfig
	contacts []*Contact
	rng      *rand.Rand
}

// NewEngine creates an engine with n contacts spread around the world
// center, each with a distinct starting heading.
func NewEngine(cfg EngineConfig, n int, speed float64, rng *rand.Rand) *Engine {
	if cfg.WorldWidth == 0 {
		cfg.WorldWidth = 800
	}
	if cfg.WorldHeight == 0 {
		cfg.WorldHeight = 600
	}
	if cfg.Margin == 0 {
		cfg.Margin = 50
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	e := &Engine{cfg: cfg, rng: rng}
	for i := 0; i < n; i++ {
		e.contacts = append(e.contacts, &Contact{
			EntityID:   1001 + int64(i),
			EntityType: "CONTACT",
			X:          cfg.WorldWidth/2 + float64(i*7),
			Y:          cfg.WorldHeight/2 + float64(i*5),
			HeadingDeg: project.WrapHeading(float64(i) * 360 / float64(n)),
			Speed:      speed,
			Status:     "OK",
		})
	}
	return e
}

// Contacts returns the live contact set. Callers must not retain the
// pointers across Step calls if they need a stable view.
func (e *Engine) Contacts() []*Contact {
	return e.contacts
}

// Step advances every contact by one tick.
func (e *Engine) Step() {
	for _, c := range e.contacts {
		e.stepContact(c)
	}
}

func (e *Engine) stepContact(c *Contact) {
	rad := c.HeadingDeg * math.Pi / 180
	c.X += math.Sin(rad) * c.Speed
	c.Y -= math.Cos(rad) * c.Speed

	left := e.cfg.Margin
	right := e.cfg.WorldWidth - e.cfg.Margin
	top := e.cfg.Margin
	bottom := e.cfg.WorldHeight - e.cfg.Margin

	// Bounce top/bottom (invert the Y velocity component)
	if c.Y <= top || c.Y >= bottom {
		c.HeadingDeg = project.WrapHeading(180 - c.HeadingDeg)
		if c.Y <= top {
			c.Y = top + 1
		} else {
			c.Y = bottom - 1
		}
	}

	// Bounce left/right (invert the X velocity component)
	if c.X <= left || c.X >= right {
		c.HeadingDeg = project.WrapHeading(360 - c.HeadingDeg)
		if c.X <= left {
			c.X = left + 1
		} else {
			c.X = right - 1
		}
	}

	if e.cfg.JitterDeg > 0 {
		c.HeadingDeg += (e.rng.Float64()*2 - 1) * e.cfg.JitterDeg
	}

	c.HeadingDeg = project.WrapHeading(c.HeadingDeg)
}
