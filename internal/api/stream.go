package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/motion.report/internal/httputil"
)

const liveWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamLive sends the current state, then one message per confirmed change
// until the client goes away or the recording stops.
func (s *Server) streamLive(w http.ResponseWriter, r *http.Request) {
	if s.live == nil {
		httputil.ServiceUnavailable(w, "no live recording attached")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("live: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	id, changes := s.live.Subscribe()
	defer s.live.Unsubscribe(id)

	// Reads are only used to notice the client closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("live: websocket error: %v", err)
				}
				return
			}
		}
	}()

	if err := writeState(conn, s.live.State()); err != nil {
		log.Printf("live: write error: %v", err)
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case state, ok := <-changes:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "recording stopped"),
					time.Now().Add(liveWriteTimeout))
				return
			}
			if err := writeState(conn, state); err != nil {
				log.Printf("live: write error: %v", err)
				return
			}
		}
	}
}

func writeState(conn *websocket.Conn, state LiveState) error {
	if err := conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(state)
}
