package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"reelstream/utils"
)

const (
	streamWriteWait    = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

func newUpgrader(policy utils.OriginPolicy) *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || policy.Allows(origin)
		},
	}
}

// streamSnapshots upgrades the request and writes every snapshot from updates
// as a JSON text frame until the client goes away or the channel closes.
// Snapshots are latest-wins, so a slow client skips states instead of queueing them.
func streamSnapshots[T any](w http.ResponseWriter, r *http.Request, upgrader *websocket.Upgrader, updates <-chan T, unsubscribe func(), render func(T) any) {
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[http] websocket upgrade failed for %s: %v", r.URL.Path, err)
		return
	}
	defer conn.Close()

	// Reads only serve to notice the client hanging up and to process control frames.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case snapshot, ok := <-updates:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed")
				conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(render(snapshot)); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}
