// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

const (
	liveSendBuffer = 16
	liveWriteWait  = 5 * time.Second
)

// LiveMessage is pushed to every websocket client.
type LiveMessage struct {
	Type string `json:"type"` // prediction, sample, label
	Data any    `json:"data"`
}

type liveClient struct {
	conn *websocket.Conn
	send chan []byte
}

// liveHub fans bus messages out to connected browsers. Slow clients drop
// messages rather than stall the MQTT callback.
type liveHub struct {
	mu      sync.Mutex
	clients map[*liveClient]struct{}
}

func newLiveHub() *liveHub {
	return &liveHub{clients: make(map[*liveClient]struct{})}
}

func (h *liveHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *liveHub) broadcast(msg LiveMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("live: marshal %s: %v", msg.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			log.Debugf("live: client %s lagging, dropped %s", c.conn.RemoteAddr(), msg.Type)
		}
	}
}

// HandleWS upgrades the connection and streams LiveMessages until the
// client goes away.
func (h *liveHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("live: websocket upgrade error: %v", err)
		return
	}

	c := &liveClient{conn: conn, send: make(chan []byte, liveSendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	log.Infof("live: client connected from %s", conn.RemoteAddr())

	go c.writeLoop()

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	log.Infof("live: client %s disconnected", conn.RemoteAddr())
}

func (c *liveClient) writeLoop() {
	defer c.conn.Close()
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Debugf("live: write to %s: %v", c.conn.RemoteAddr(), err)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
