package hub

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Peer is one connected websocket client. The send channel decouples the
// broadcast fan-out from slow writers; frames to a full peer are dropped
// rather than blocking the hub.
type Peer struct {
	Name string

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewPeer(conn *websocket.Conn, username string) *Peer {
	return &Peer{
		Name: username,
		conn: conn,
		send: make(chan []byte, 64),
		done: make(chan struct{}),
	}
}

// Listen drains the send channel into the connection until the peer closes.
func (p *Peer) Listen() {
	for {
		select {
		case frame := <-p.send:
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Printf("failed to send frame to %q: %s\n", p.Name, err)
				return
			}
		case <-p.done:
			return
		}
	}
}

// Close is idempotent; it stops the write loop and closes the connection.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.conn.Close()
	})
}
