package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/iwmon/internal/metrics"
)

const writeTimeout = 5 * time.Second

func accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
}

// handleEvents streams association events to a websocket client until the
// client goes away or the service shuts down.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.src == nil {
		http.Error(w, "association service not attached", http.StatusServiceUnavailable)
		return
	}

	c, err := accept(w, r)
	if err != nil {
		log.WithError(err).Warn("Failed to accept websocket client")
		return
	}
	defer c.CloseNow()

	events, unsub := s.src.Subscribe()
	defer unsub()

	metrics.Subscribers.Inc()
	defer metrics.Subscribers.Dec()

	remote := r.RemoteAddr
	log.WithField("remote", remote).Debug("Event stream client connected")

	// Incoming messages are ignored; CloseRead cancels ctx when the peer
	// closes the connection.
	ctx := c.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			log.WithField("remote", remote).Debug("Event stream client disconnected")
			return
		case ev, ok := <-events:
			if !ok {
				c.Close(websocket.StatusGoingAway, "shutting down")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c, ev)
			cancel()
			if err != nil {
				log.WithError(err).WithField("remote", remote).Debug("Failed to write event to client")
				return
			}
		}
	}
}
