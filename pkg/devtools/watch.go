package devtools

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/vango-dev/viewmodel"
)

// handleWatch streams the changes at one keypath as JSON text messages
// until the client goes away. Changes are encoded while the runtime is
// locked, so the stream never observes a half-applied write.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	guid := r.URL.Query().Get("guid")
	kp := r.URL.Query().Get("keypath")
	log := s.cfg.Logger.With("request_id", middleware.GetReqID(r.Context()), "guid", guid, "keypath", kp)

	// The watch is registered before the handshake completes, so a client
	// sees every change made after its dial returns.
	out := make(chan []byte, s.cfg.WatchBuffer)
	var dropped atomic.Int64
	cancel, err := s.rt.Watch(guid, kp, func(c viewmodel.Change) {
		data, err := json.Marshal(c)
		if err != nil {
			return
		}
		select {
		case out <- data:
		default:
			dropped.Add(1)
		}
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	log.Debug("watch started")

	// Keep reading so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			log.Debug("watch ended", "dropped", dropped.Load())
			return
		case data := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug("watch write failed", "error", err)
				return
			}
		}
	}
}
