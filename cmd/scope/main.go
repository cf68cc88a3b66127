// Command scope renders the tracker's live snapshot feed as a full-screen
// terminal radar scope. Tab cycles the selected track, q quits.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"

	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/project"
	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/track"
)

var (
	feedURL = flag.String("url", "ws://127.0.0.1:8080/ws", "Tracker WebSocket feed URL")
	worldW  = flag.Float64("world-w", 800, "World width in world units")
	worldH  = flag.Float64("world-h", 600, "World height in world units")
)

type scopeState struct {
	snapshots []track.Snapshot
	selected  int // index into snapshots; -1 when nothing selected
	connected bool
}

func main() {
	flag.Parse()

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing screen: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	screen.SetStyle(tcell.StyleDefault.
		Background(tcell.ColorReset).
		Foreground(tcell.ColorReset))

	frames := make(chan []track.Snapshot, 1)
	connState := make(chan bool, 1)
	go readFeed(*feedURL, frames, connState)

	events := make(chan tcell.Event)
	go func() {
		for {
			events <- screen.PollEvent()
		}
	}()

	state := &scopeState{selected: -1}
	for {
		render(screen, state)
		screen.Show()

		select {
		case snaps := <-frames:
			state.snapshots = snaps
			if state.selected >= len(snaps) {
				state.selected = len(snaps) - 1
			}
		case up := <-connState:
			state.connected = up
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape, ev.Rune() == 'q':
					return
				case ev.Key() == tcell.KeyTab:
					if len(state.snapshots) > 0 {
						state.selected = (state.selected + 1) % len(state.snapshots)
					}
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		}
	}
}

// readFeed keeps a feed connection alive, redialing with backoff. Frames
// are pushed to the channel with stale-frame replacement so a slow redraw
// never builds a queue. The channel must be bidirectional: replacement
// receives the superseded frame back before sending the newest one.
func readFeed(url string, frames chan []track.Snapshot, connState chan<- bool) {
	for {
		conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			connState <- false
			time.Sleep(time.Second)
			continue
		}
		if resp != nil {
			resp.Body.Close()
		}
		connState <- true

		for {
			var snaps []track.Snapshot
			if err := conn.ReadJSON(&snaps); err != nil {
				conn.Close()
				connState <- false
				break
			}
			pushFrame(frames, snaps)
		}
	}
}

// pushFrame delivers a frame without blocking. When the consumer has not
// drained the previous frame it is dropped in favor of the newest one.
func pushFrame(frames chan []track.Snapshot, snaps []track.Snapshot) {
	select {
	case frames <- snaps:
	default:
		select {
		case <-frames:
		default:
		}
		select {
		case frames <- snaps:
		default:
		}
	}
}

func render(screen tcell.Screen, state *scopeState) {
	screen.Clear()
	width, height := screen.Size()
	if height < 3 || width < 10 {
		return
	}
	// Bottom row is the status line; everything above is the plot.
	plotH := height - 1

	drawBorder(screen, width, plotH)

	for i, s := range state.snapshots {
		x, y := project.WorldToDisplay(s.X, s.Y, *worldW, *worldH, float64(width), float64(plotH))
		col, row := int(math.Round(x)), int(math.Round(y))
		if col < 0 || col >= width || row < 0 || row >= plotH {
			continue
		}

		style := tcell.StyleDefault.Foreground(tcell.ColorGreen)
		if s.IsStale {
			style = tcell.StyleDefault.Foreground(tcell.ColorGray)
		}
		symbol := 'o'
		if i == state.selected {
			symbol = '@'
			style = style.Bold(true)
		}
		screen.SetContent(col, row, symbol, nil, style)

		// Heading tick one cell out from the symbol
		vx, vy := project.HeadingVector(s.HeadingDeg, 1.5)
		tc, tr := col+int(math.Round(vx)), row+int(math.Round(vy))
		if tc >= 0 && tc < width && tr >= 0 && tr < plotH && (tc != col || tr != row) {
			screen.SetContent(tc, tr, '.', nil, style)
		}

		label := fmt.Sprintf("%d", s.EntityID)
		if s.IsStale {
			label += " STALE"
		}
		drawText(screen, col+2, row, style, label)
	}

	drawStatusLine(screen, state, width, height-1)
}

func drawBorder(screen tcell.Screen, width, height int) {
	style := tcell.StyleDefault.Foreground(tcell.ColorDarkGreen)
	for col := 0; col < width; col++ {
		screen.SetContent(col, 0, '-', nil, style)
		screen.SetContent(col, height-1, '-', nil, style)
	}
	for row := 0; row < height; row++ {
		screen.SetContent(0, row, '|', nil, style)
		screen.SetContent(width-1, row, '|', nil, style)
	}
}

func drawStatusLine(screen tcell.Screen, state *scopeState, width, row int) {
	style := tcell.StyleDefault.Reverse(true)
	for col := 0; col < width; col++ {
		screen.SetContent(col, row, ' ', nil, style)
	}

	link := "LINK DOWN"
	if state.connected {
		link = "LINK UP"
	}
	text := fmt.Sprintf(" %s | %d tracks | Tab select, q quit", link, len(state.snapshots))
	if state.selected >= 0 && state.selected < len(state.snapshots) {
		s := state.snapshots[state.selected]
		text += fmt.Sprintf(" | #%d %s pos=(%.1f, %.1f) hdg=%.1f spd=%.2f %s",
			s.EntityID, s.EntityType, s.X, s.Y, s.HeadingDeg, s.Speed, s.Status)
	}
	drawText(screen, 0, row, style, text)
}

func drawText(screen tcell.Screen, x, y int, style tcell.Style, text string) {
	width, _ := screen.Size()
	col := x
	for _, r := range text {
		if col >= width {
			return
		}
		screen.SetContent(col, y, r, nil, style)
		col++
	}
}
