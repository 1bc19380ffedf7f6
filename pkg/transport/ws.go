package transport

import (
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hirotachi/ws-cli-chat/pkg/chat"
	"github.com/hirotachi/ws-cli-chat/pkg/utils"
)

// WSChannel implements chat.Channel over a single websocket connection.
// Frames are text messages in "topic>payload" form; inbound frames are
// dispatched to the handler subscribed for their topic on the read loop
// goroutine.
type WSChannel struct {
	url string

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string]chat.Handler

	done      chan struct{}
	closeOnce sync.Once
}

func NewWSChannel(url string) *WSChannel {
	return &WSChannel{
		url:      url,
		handlers: map[string]chat.Handler{},
		done:     make(chan struct{}),
	}
}

// Connect dials the server and starts the read loop. Headers are sent with
// the upgrade request.
func (ws *WSChannel) Connect(headers map[string]string) error {
	header := http.Header{}
	for key, value := range headers {
		header.Set(key, value)
	}
	conn, _, err := websocket.DefaultDialer.Dial(ws.url, header)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %s", ws.url, err)
	}
	ws.mu.Lock()
	ws.conn = conn
	ws.mu.Unlock()

	go ws.readLoop(conn)
	return nil
}

func (ws *WSChannel) Subscribe(topic string, handler chat.Handler) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.handlers[topic] = handler
}

// Publish writes one frame. Writes are serialized; gorilla allows only one
// concurrent writer.
func (ws *WSChannel) Publish(destination string, data interface{}) error {
	frame, err := utils.BuildFrame(destination, data)
	if err != nil {
		return err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.conn == nil {
		return fmt.Errorf("channel is not connected")
	}
	return ws.conn.WriteMessage(websocket.TextMessage, frame)
}

// Disconnect closes the connection and stops the read loop. Idempotent.
func (ws *WSChannel) Disconnect() {
	ws.closeOnce.Do(func() {
		close(ws.done)
		ws.mu.Lock()
		if ws.conn != nil {
			ws.conn.Close()
			ws.conn = nil
		}
		ws.mu.Unlock()
	})
}

func (ws *WSChannel) readLoop(conn *websocket.Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ws.done:
			default:
				log.Printf("channel read failed: %s\n", err)
			}
			return
		}
		topic, payload, err := utils.ParseFrame(frame)
		if err != nil {
			log.Printf("dropping frame: %s\n", err)
			continue
		}
		ws.mu.Lock()
		handler := ws.handlers[topic]
		ws.mu.Unlock()
		if handler != nil {
			handler(payload)
		}
	}
}
