package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/config"
	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/telemetry"
	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/timeutil"
	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/track"
)

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }

func seedStore(t *testing.T, ids ...int64) *track.Store {
	t.Helper()
	store := track.NewStore(0)
	for _, id := range ids {
		store.ApplyUpdate(&telemetry.Message{
			MsgType:  telemetry.MsgTypeEntityState,
			EntityID: i64(id),
			X:        f64(float64(id) * 10),
			Y:        f64(float64(id) * 10),
		}, time.Now())
	}
	return store
}

func newTestServer(store *track.Store) (*Server, *track.Producer) {
	producer := track.NewProducer(store, timeutil.RealClock{}, track.ProducerConfig{})
	return NewServer(producer, &config.TuningConfig{}), producer
}

func TestListTracksSorted(t *testing.T) {
	store := seedStore(t, 5, 1, 3)
	srv, _ := newTestServer(store)

	req := httptest.NewRequest(http.MethodGet, "/api/tracks", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var snaps []track.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snaps); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("got %d snapshots, want 3", len(snaps))
	}
	for i, want := range []int64{1, 3, 5} {
		if snaps[i].EntityID != want {
			t.Errorf("snaps[%d].EntityID = %d, want %d", i, snaps[i].EntityID, want)
		}
	}
	for _, s := range snaps {
		if s.IsStale {
			t.Errorf("entity %d stale immediately after update", s.EntityID)
		}
	}
}

func TestListTracksEmptyStore(t *testing.T) {
	srv, _ := newTestServer(track.NewStore(0))

	req := httptest.NewRequest(http.MethodGet, "/api/tracks", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestListTracksMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(track.NewStore(0))

	req := httptest.NewRequest(http.MethodPost, "/api/tracks", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
	var errResp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errResp["error"] == "" {
		t.Error("expected error message in body")
	}
}

func TestShowConfigDefaults(t *testing.T) {
	srv, _ := newTestServer(track.NewStore(0))

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var cfg map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg["stale_threshold"] != "2s" {
		t.Errorf("stale_threshold = %v, want 2s", cfg["stale_threshold"])
	}
	if cfg["history_max"] != float64(25) {
		t.Errorf("history_max = %v, want 25", cfg["history_max"])
	}
	if cfg["udp_address"] != "127.0.0.1:30001" {
		t.Errorf("udp_address = %v, want 127.0.0.1:30001", cfg["udp_address"])
	}
}

func TestFeedStreamsTicks(t *testing.T) {
	store := seedStore(t, 42)
	mock := timeutil.NewMockClock(time.Now())
	producer := track.NewProducer(store, mock, track.ProducerConfig{})
	srv := NewServer(producer, &config.TuningConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go producer.Run(ctx)

	ts := httptest.NewServer(srv.ServeMux())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	// Drive ticks until the subscription registered by the handler catches
	// one. Advancing repeatedly covers the handshake race.
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				mock.Advance(track.DefaultTickInterval)
				time.Sleep(time.Millisecond)
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snaps []track.Snapshot
	if err := conn.ReadJSON(&snaps); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if len(snaps) != 1 || snaps[0].EntityID != 42 {
		t.Fatalf("frame = %+v, want single entity 42", snaps)
	}
}
