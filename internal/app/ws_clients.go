// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// clientSet tracks the connected websocket clients of the live heading
// stream. A per-connection read loop services close frames, so a client that
// goes away is pruned immediately rather than on the next failed broadcast.
type clientSet struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newClientSet() *clientSet {
	return &clientSet{conns: map[*websocket.Conn]struct{}{}}
}

func (s *clientSet) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	s.add(conn)
	log.Printf("websocket client connected from %s", r.RemoteAddr)

	// The stream is one-way, but reading is what processes control frames
	// and detects a closed peer.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		s.remove(conn)
		log.Printf("websocket client disconnected from %s", r.RemoteAddr)
	}()
}

func (s *clientSet) broadcast(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(s.conns, conn)
		}
	}
}

func (s *clientSet) add(conn *websocket.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *clientSet) remove(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
}

func (s *clientSet) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
