package hub

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"github.com/hirotachi/ws-cli-chat/pkg/chat"
	"github.com/hirotachi/ws-cli-chat/pkg/utils"
)

// Hub is the reference chat server: it accepts websocket peers, assigns
// message ids, persists history and roster through Store and fans every
// event out to all connected peers. It also serves the REST api the client's
// directory talks to.
type Hub struct {
	store *Store

	upgrader      websocket.Upgrader
	mu            sync.Mutex
	peers         map[*Peer]struct{}
	BroadcastChan chan []byte
}

func NewHub(rdb *redis.Client) *Hub {
	h := &Hub{
		store: NewStore(rdb),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		peers:         map[*Peer]struct{}{},
		BroadcastChan: make(chan []byte, 64),
	}
	go h.ListenToBroadcast()
	return h
}

// Router wires the websocket endpoint and the REST api.
func (h *Hub) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/chat", h.ServeWS)
	router.HandleFunc("/api/messages", h.handleGetMessages).Methods(http.MethodGet)
	router.HandleFunc("/api/online-users", h.handleOnlineUsers).Methods(http.MethodGet)
	router.HandleFunc("/api/check-username/{username}", h.handleCheckUsername).Methods(http.MethodGet)
	router.HandleFunc("/api/messages/{id}", h.handleEditMessage).Methods(http.MethodPut)
	router.HandleFunc("/api/messages/{id}", h.handleDeleteMessage).Methods(http.MethodDelete)
	return router
}

// ServeWS upgrades the connection and joins the peer. The username arrives
// as a header on the upgrade request; names already online are rejected, the
// login flow is expected to have checked availability first.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	username := r.Header.Get(utils.UsernameHeader)
	if username == "" {
		username = r.URL.Query().Get("username")
	}
	if err := chat.ValidateUsername(username); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	online, err := h.store.IsOnline(ctx, username)
	if err != nil {
		http.Error(w, "roster lookup failed", http.StatusInternalServerError)
		return
	}
	if online {
		http.Error(w, "username already taken", http.StatusConflict)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("failed to upgrade connection for %q: %s\n", username, err)
		return
	}
	peer := NewPeer(conn, username)
	h.Join(peer)
}

func (h *Hub) Join(peer *Peer) {
	h.mu.Lock()
	h.peers[peer] = struct{}{}
	h.mu.Unlock()

	ctx := context.Background()
	if err := h.store.AddUser(ctx, peer.Name); err != nil {
		log.Printf("failed to save user %q to roster: %s\n", peer.Name, err)
	}
	h.BroadcastRoster(ctx)
	log.Printf("client %q connected\n", peer.Name)

	go peer.Listen()
	go h.readLoop(peer)
}

func (h *Hub) Leave(peer *Peer) {
	h.mu.Lock()
	_, ok := h.peers[peer]
	delete(h.peers, peer)
	h.mu.Unlock()
	if !ok {
		return
	}
	peer.Close()

	ctx := context.Background()
	if err := h.store.RemoveUser(ctx, peer.Name); err != nil {
		log.Printf("failed to remove user %q from roster: %s\n", peer.Name, err)
	}
	h.BroadcastRoster(ctx)
	log.Printf("client %q disconnected\n", peer.Name)
}

func (h *Hub) readLoop(peer *Peer) {
	defer h.Leave(peer)
	for {
		_, frame, err := peer.conn.ReadMessage()
		if err != nil {
			return
		}
		topic, payload, err := utils.ParseFrame(frame)
		if err != nil {
			log.Printf("dropping frame from %q: %s\n", peer.Name, err)
			continue
		}
		switch topic {
		case utils.SendMessageDestination:
			h.acceptMessage(peer, payload)
		case utils.SendTypingDestination:
			h.Broadcast(utils.TopicTyping, string(payload))
		default:
			log.Printf("unknown destination %q from %q\n", topic, peer.Name)
		}
	}
}

// acceptMessage assigns id and timestamp, persists and broadcasts one new
// message.
func (h *Hub) acceptMessage(peer *Peer, payload []byte) {
	var outgoing chat.Outgoing
	if err := unmarshal(payload, &outgoing); err != nil {
		log.Printf("failed to unmarshal message from %q: %s\n", peer.Name, err)
		return
	}
	if outgoing.Text == "" || len(outgoing.Text) > chat.MaxMessageLength {
		return
	}
	if outgoing.Sender == "" {
		outgoing.Sender = peer.Name
	}

	msg := chat.Message{
		ID:        xid.New().String(),
		Sender:    outgoing.Sender,
		Text:      outgoing.Text,
		Timestamp: time.Now().UTC(),
	}
	if err := h.store.Append(context.Background(), msg); err != nil {
		log.Printf("failed to persist message %s: %s\n", msg.ID, err)
		return
	}
	h.Broadcast(utils.TopicMessages, msg)
}

// Broadcast frames data for a topic and queues it for every peer.
func (h *Hub) Broadcast(topic string, data interface{}) {
	frame, err := utils.BuildFrame(topic, data)
	if err != nil {
		log.Printf("failed to build %s frame: %s\n", topic, err)
		return
	}
	h.BroadcastChan <- frame
}

func (h *Hub) BroadcastRoster(ctx context.Context) {
	names, err := h.store.OnlineUsers(ctx)
	if err != nil {
		log.Printf("failed to fetch roster: %s\n", err)
		return
	}
	h.Broadcast(utils.TopicOnlineUsers, names)
}

func (h *Hub) ListenToBroadcast() {
	for frame := range h.BroadcastChan {
		h.mu.Lock()
		for peer := range h.peers {
			select {
			case peer.send <- frame:
			default:
				log.Printf("dropping frame for slow peer %q\n", peer.Name)
			}
		}
		h.mu.Unlock()
	}
}
