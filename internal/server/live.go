package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	liveWriteWait  = 10 * time.Second
	livePingPeriod = 30 * time.Second
)

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r, s.opts.CORSOrigins)
		},
	}
}

// liveTables reads the optional ?tables=a,b filter.
func liveTables(r *http.Request) []string {
	var tables []string
	for _, t := range strings.Split(r.URL.Query().Get("tables"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tables = append(tables, t)
		}
	}
	return tables
}

func (s *Server) liveUnavailable(w http.ResponseWriter) bool {
	if s.hub == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "live updates disabled"})
		return true
	}
	return false
}

// handleLive streams committed changes over a websocket as JSON text messages.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	if s.liveUnavailable(w) {
		return
	}
	// Subscribe before the handshake completes so no change is missed.
	sub := s.hub.Subscribe(liveTables(r)...)
	defer s.hub.Unsubscribe(sub.ID)

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.metrics.LiveConnected()
	defer s.metrics.LiveDisconnected()
	s.log.Debug("live subscriber connected", "id", sub.ID)

	// Reads only detect the peer closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		case change, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(change)
			if err != nil {
				s.log.Error("encoding live change", "error", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.log.Debug("live write failed", "id", sub.ID, "error", err)
				return
			}
		}
	}
}

// handleLiveEvents is the server-sent events variant of handleLive.
func (s *Server) handleLiveEvents(w http.ResponseWriter, r *http.Request) {
	if s.liveUnavailable(w) {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	sub := s.hub.Subscribe(liveTables(r)...)
	defer s.hub.Unsubscribe(sub.ID)
	s.metrics.LiveConnected()
	defer s.metrics.LiveDisconnected()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case change, ok := <-sub.C:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", mustJSON(change))
			flusher.Flush()
		}
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{}`
	}
	return string(b)
}
