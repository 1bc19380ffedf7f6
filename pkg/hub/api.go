package hub

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hirotachi/ws-cli-chat/pkg/chat"
	"github.com/hirotachi/ws-cli-chat/pkg/utils"
)

func (h *Hub) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	history, err := h.store.History(r.Context())
	if err != nil {
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, history)
}

func (h *Hub) handleOnlineUsers(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.OnlineUsers(r.Context())
	if err != nil {
		http.Error(w, "failed to load roster", http.StatusInternalServerError)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, names)
}

func (h *Hub) handleCheckUsername(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	if err := chat.ValidateUsername(username); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	online, err := h.store.IsOnline(r.Context(), username)
	if err != nil {
		http.Error(w, "roster lookup failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]bool{"available": !online})
}

type mutationInput struct {
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

func (h *Hub) handleEditMessage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var input mutationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if input.Text == "" || len(input.Text) > chat.MaxMessageLength {
		http.Error(w, "invalid message text", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	msg, ok, err := h.store.Get(ctx, id)
	if err != nil {
		http.Error(w, "message lookup failed", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	if msg.Sender != input.Sender {
		http.Error(w, "only the sender can edit a message", http.StatusForbidden)
		return
	}
	if msg.Deleted {
		http.Error(w, "cannot edit a deleted message", http.StatusBadRequest)
		return
	}

	msg.Text = input.Text
	msg.Edited = true
	if err := h.store.Save(ctx, msg); err != nil {
		http.Error(w, "failed to save message", http.StatusInternalServerError)
		return
	}
	h.Broadcast(utils.TopicMessages, msg)
	writeJSON(w, msg)
}

func (h *Hub) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var input mutationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		input.Sender = r.URL.Query().Get("sender")
	}

	ctx := r.Context()
	msg, ok, err := h.store.Get(ctx, id)
	if err != nil {
		http.Error(w, "message lookup failed", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	if msg.Sender != input.Sender {
		http.Error(w, "only the sender can delete a message", http.StatusForbidden)
		return
	}
	if msg.Deleted {
		// replayed delete, nothing left to do
		writeJSON(w, msg)
		return
	}

	msg.Deleted = true
	if err := h.store.Save(ctx, msg); err != nil {
		http.Error(w, "failed to save message", http.StatusInternalServerError)
		return
	}
	h.Broadcast(utils.TopicMessages, msg)
	writeJSON(w, msg)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to write response: %s\n", err)
	}
}

func unmarshal(data []byte, target interface{}) error {
	return json.Unmarshal(data, target)
}
