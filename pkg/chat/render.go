package chat

import "time"

// MessageView is the declarative render instruction for one message. Text is
// already resolved against the tombstone rule; presentation layers only have
// to escape and decorate it.
type MessageView struct {
	ID        string
	Sender    string
	Text      string
	Timestamp time.Time
	Edited    bool
	Deleted   bool
	Own       bool
	// CanModify gates the edit/delete affordances: only the sender's own,
	// not yet deleted messages expose them.
	CanModify bool
}

// Renderer consumes the engine's render instructions. Implementations are
// presentation only and must not call back into the engine while handling an
// instruction.
type Renderer interface {
	AppendMessage(view MessageView)
	UpdateMessage(view MessageView)
	SetRoster(names []string)
	ShowTyping(name string)
	HideTyping()
	ShowBanner(text string)
	HideBanner()
	SetInputEnabled(enabled bool)
}

func (c *Client) viewFor(msg Message) MessageView {
	view := MessageView{
		ID:        msg.ID,
		Sender:    msg.Sender,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
		Edited:    msg.Edited,
		Deleted:   msg.Deleted,
		Own:       msg.Sender == c.session.Username,
	}
	if view.Deleted {
		view.Text = Tombstone
	}
	view.CanModify = view.Own && !view.Deleted
	return view
}
