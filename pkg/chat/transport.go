package chat

import "context"

// Handler receives the raw payload of one frame on a subscribed topic.
type Handler func(payload []byte)

// Channel is the persistent bidirectional transport the client lives on.
// Publish is fire-and-forget; delivery ordering is whatever the server
// provides, the reconciler does not depend on it.
type Channel interface {
	Connect(headers map[string]string) error
	Subscribe(topic string, handler Handler)
	Publish(destination string, data interface{}) error
	Disconnect()
}

// Directory is the request/response side channel used for hydration and for
// the mutations that need a server verdict before they take effect locally.
type Directory interface {
	MessageHistory(ctx context.Context) ([]Message, error)
	OnlineUsers(ctx context.Context) ([]string, error)
	CheckUsername(ctx context.Context, username string) (bool, error)
	EditMessage(ctx context.Context, id string, text string, sender string) (Message, error)
	DeleteMessage(ctx context.Context, id string, sender string) error
}
