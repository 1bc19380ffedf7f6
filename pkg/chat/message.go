package chat

import "time"

const (
	// Tombstone replaces the body of a deleted message everywhere it is shown.
	Tombstone = "This message was deleted"

	MaxMessageLength  = 300
	MaxUsernameLength = 20
)

// Message is the canonical record exchanged with the server. The id is
// assigned server side and opaque to the client. Edited and Deleted are
// monotonic flags; creation broadcasts may omit them.
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Edited    bool      `json:"edited,omitempty"`
	Deleted   bool      `json:"deleted,omitempty"`
}

// Outgoing is the payload of a locally composed message. The server fills in
// id and timestamp before broadcasting it back.
type Outgoing struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}
