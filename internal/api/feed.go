package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const feedWriteTimeout = 5 * time.Second

// serveFeed streams the snapshot feed over a WebSocket. Each producer tick
// arrives as one JSON array. A client that cannot keep up sees frames
// skipped, never queued: the producer supersedes undelivered frames.
func (s *Server) serveFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	id, frames := s.producer.Subscribe()
	defer s.producer.Unsubscribe(id)

	// Discard client reads so pings and close frames are processed. Exit of
	// the read pump tears down the write loop through readDone.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-readDone:
			return
		case <-r.Context().Done():
			return
		case snapshots, ok := <-frames:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := conn.WriteJSON(snapshots); err != nil {
				log.Printf("websocket write error: %v", err)
				return
			}
		}
	}
}
