// Copyright 2025, Ripplekit Authors.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ripplekit/ripple/dom"
	"github.com/ripplekit/ripple/util"
)

const wsReadWaitTimeout = 15 * time.Second
const wsWriteWaitTimeout = 10 * time.Second
const wsPingPeriodTickTime = 10 * time.Second

var WebSocketUpgrader = websocket.Upgrader{
	ReadBufferSize:   4 * 1024,
	WriteBufferSize:  32 * 1024,
	HandshakeTimeout: 1 * time.Second,
	CheckOrigin:      func(r *http.Request) bool { return true },
}

// wsEventMessage mirrors the /api/event payload; patch batches flow
// back over the same socket.
type wsEventMessage struct {
	Type  string     `json:"type"`
	Event *dom.Event `json:"event,omitempty"`
}

type wsPatchMessage struct {
	Type    string      `json:"type"`
	Patches []dom.Patch `json:"patches"`
}

func (h *HTTPHandlers[S]) handleWs(w http.ResponseWriter, r *http.Request) {
	conn, err := WebSocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own error response
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	log.Printf("websocket connected from %s", r.RemoteAddr)

	writeCh := make(chan any, 32)
	doneCh := make(chan struct{})

	go h.wsWriteLoop(conn, writeCh, doneCh)
	h.wsReadLoop(conn, writeCh)
	close(doneCh)
}

func (h *HTTPHandlers[S]) wsReadLoop(conn *websocket.Conn, writeCh chan any) {
	defer func() {
		util.PanicHandler("wsReadLoop", recover())
	}()
	conn.SetReadDeadline(time.Now().Add(wsReadWaitTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadWaitTimeout))
		return nil
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("websocket read error: %v", err)
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsReadWaitTimeout))
		var msg wsEventMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("websocket bad message: %v", err)
			continue
		}
		if msg.Type != "event" || msg.Event == nil {
			continue
		}
		patches := h.dispatchAndFlush(func() {
			h.App.DispatchEvent(*msg.Event)
		})
		if len(patches) > 0 {
			select {
			case writeCh <- wsPatchMessage{Type: "patch", Patches: patches}:
			default:
				log.Printf("websocket write channel full, dropping patches")
			}
		}
	}
}

func (h *HTTPHandlers[S]) wsWriteLoop(conn *websocket.Conn, writeCh chan any, doneCh chan struct{}) {
	defer func() {
		util.PanicHandler("wsWriteLoop", recover())
	}()
	pingTicker := time.NewTicker(wsPingPeriodTickTime)
	defer pingTicker.Stop()
	for {
		select {
		case <-doneCh:
			return
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWaitTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("websocket ping error: %v", err)
				return
			}
		case msg := <-writeCh:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWaitTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("websocket write error: %v", err)
				return
			}
		}
	}
}
