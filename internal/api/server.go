package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/config"
	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/track"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	producer *track.Producer
	tuning   *config.TuningConfig
}

func NewServer(producer *track.Producer, tuning *config.TuningConfig) *Server {
	if tuning == nil {
		tuning = &config.TuningConfig{}
	}
	return &Server{
		producer: producer,
		tuning:   tuning,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tracks", s.listTracks)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/ws", s.serveFeed)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// listTracks serves the current snapshot set, sorted by entity ID. The
// snapshots are produced on demand so a client polling this endpoint sees
// the same staleness evaluation the feed would.
func (s *Server) listTracks(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snapshots := s.producer.Tick(time.Now())
	if snapshots == nil {
		snapshots = []track.Snapshot{}
	}

	if err := json.NewEncoder(w).Encode(snapshots); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write tracks")
		return
	}
}

// showConfig reports the effective tuning values after defaulting.
func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	cfg := map[string]interface{}{
		"udp_address":     s.tuning.GetUDPAddress(),
		"stale_threshold": s.tuning.GetStaleThreshold().String(),
		"tick_interval":   s.tuning.GetTickInterval().String(),
		"history_max":     s.tuning.GetHistoryMax(),
		"track_ttl":       s.tuning.GetTrackTTL().String(),
		"world_width":     s.tuning.GetWorldWidth(),
		"world_height":    s.tuning.GetWorldHeight(),
	}

	if err := json.NewEncoder(w).Encode(cfg); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write config")
		return
	}
}
