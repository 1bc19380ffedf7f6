package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/hirotachi/ws-cli-chat/pkg/utils"
)

// BannerAutoHide is how long a transient error banner stays visible.
const BannerAutoHide = 5000 * time.Millisecond

// Client is the synchronization engine for one chat session. It owns the
// message store, the roster and the typing state exclusively; the transport
// delivers events into it and the renderer receives declarative instructions
// out of it. Handlers are idempotent, so duplicated or out-of-order events
// from the channel collapse into no-ops.
type Client struct {
	mu        sync.Mutex
	session   *Session
	channel   Channel
	directory Directory
	renderer  Renderer
	clock     clock.Clock

	store     *Store
	roster    *Roster
	emitter   *TypingEmitter
	indicator *TypingIndicator
	banner    *clock.Timer
}

func NewClient(session *Session, channel Channel, directory Directory, renderer Renderer, c clock.Clock) *Client {
	client := &Client{
		session:   session,
		channel:   channel,
		directory: directory,
		renderer:  renderer,
		clock:     c,
		store:     NewStore(),
		roster:    NewRoster(),
	}
	client.emitter = NewTypingEmitter(c, client.announceTyping)
	client.indicator = NewTypingIndicator(c, session.Username, renderer.ShowTyping, renderer.HideTyping)
	return client
}

// Connect establishes the channel, hydrates history and roster from the
// directory and subscribes to the live topics, in that order, so no live
// event is handled before the baseline state exists. Failure is terminal:
// input stays disabled and there is no retry.
func (c *Client) Connect(ctx context.Context) error {
	headers := map[string]string{utils.UsernameHeader: c.session.Username}
	if err := c.channel.Connect(headers); err != nil {
		c.renderer.SetInputEnabled(false)
		c.showBanner("failed to connect, make sure the server is running", false)
		return &ConnectionError{Err: err}
	}

	history, err := c.directory.MessageHistory(ctx)
	if err != nil {
		c.channel.Disconnect()
		c.renderer.SetInputEnabled(false)
		c.showBanner("failed to load message history", false)
		return &ConnectionError{Err: err}
	}
	names, err := c.directory.OnlineUsers(ctx)
	if err != nil {
		c.channel.Disconnect()
		c.renderer.SetInputEnabled(false)
		c.showBanner("failed to load online users", false)
		return &ConnectionError{Err: err}
	}

	c.mu.Lock()
	for _, msg := range history {
		if c.store.ApplyCreate(msg) {
			c.renderer.AppendMessage(c.viewFor(msg))
		}
	}
	c.roster.Replace(names)
	c.renderer.SetRoster(c.roster.Snapshot())
	c.session.Connected = true
	c.mu.Unlock()

	c.channel.Subscribe(utils.TopicMessages, c.handleMessageEvent)
	c.channel.Subscribe(utils.TopicOnlineUsers, c.handleRosterEvent)
	c.channel.Subscribe(utils.TopicTyping, c.handleTypingEvent)

	c.renderer.SetInputEnabled(true)
	return nil
}

// Disconnect tears the session down: every timer is canceled, the channel is
// closed and the identity is cleared. Safe to call when already disconnected,
// and no timer fires afterwards.
func (c *Client) Disconnect() {
	c.emitter.Stop()
	c.indicator.Stop()

	c.mu.Lock()
	if c.banner != nil {
		c.banner.Stop()
		c.banner = nil
	}
	wasConnected := c.session.Connected
	c.session.Clear()
	c.mu.Unlock()

	if wasConnected {
		c.channel.Disconnect()
	}
	c.renderer.SetInputEnabled(false)
}

// SendMessage validates and publishes a new message. The store is not touched
// here; the server broadcast carrying the assigned id is the create event.
func (c *Client) SendMessage(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return &ValidationError{Reason: "message is empty"}
	}
	if len(text) > MaxMessageLength {
		return &ValidationError{Reason: fmt.Sprintf("message exceeds %d characters", MaxMessageLength)}
	}
	c.emitter.Stop()
	outgoing := Outgoing{Sender: c.session.Username, Text: text}
	if err := c.channel.Publish(utils.SendMessageDestination, outgoing); err != nil {
		c.showBanner("failed to send message", true)
		return &RequestError{Op: "send message", Err: err}
	}
	return nil
}

// InputChanged records one local keystroke for the typing protocol.
func (c *Client) InputChanged() {
	c.emitter.Input()
}

// SubmitEdit sends an edit to the directory and applies the server's
// canonical text on success. Only the sender's own messages may be edited;
// unchanged text is a silent cancel.
func (c *Client) SubmitEdit(ctx context.Context, id string, newText string) error {
	newText = strings.TrimSpace(newText)
	if newText == "" {
		return &ValidationError{Reason: "edited message is empty"}
	}
	if len(newText) > MaxMessageLength {
		return &ValidationError{Reason: fmt.Sprintf("message exceeds %d characters", MaxMessageLength)}
	}

	c.mu.Lock()
	current, ok := c.store.Get(id)
	c.mu.Unlock()
	if !ok {
		return &ValidationError{Reason: "unknown message"}
	}
	if current.Sender != c.session.Username {
		return &ValidationError{Reason: "only your own messages can be edited"}
	}
	if current.Deleted {
		return &ValidationError{Reason: "deleted messages cannot be edited"}
	}
	if current.Text == newText {
		return nil
	}

	saved, err := c.directory.EditMessage(ctx, id, newText, c.session.Username)
	if err != nil {
		c.showBanner("failed to edit message", true)
		return &RequestError{Op: "edit message", Err: err}
	}

	// the server response is authoritative over the locally typed value; the
	// broadcast echo later collapses into a duplicate edit
	c.mu.Lock()
	if msg, changed := c.store.ApplyEdit(id, saved.Text); changed {
		c.renderer.UpdateMessage(c.viewFor(msg))
	}
	c.mu.Unlock()
	return nil
}

// SubmitDelete asks confirm before issuing the delete and applies the
// tombstone locally on success without waiting for the broadcast echo.
func (c *Client) SubmitDelete(ctx context.Context, id string, confirm func() bool) error {
	c.mu.Lock()
	current, ok := c.store.Get(id)
	c.mu.Unlock()
	if !ok {
		return &ValidationError{Reason: "unknown message"}
	}
	if current.Sender != c.session.Username {
		return &ValidationError{Reason: "only your own messages can be deleted"}
	}
	if current.Deleted {
		return nil
	}
	if confirm != nil && !confirm() {
		return nil
	}

	if err := c.directory.DeleteMessage(ctx, id, c.session.Username); err != nil {
		c.showBanner("failed to delete message", true)
		return &RequestError{Op: "delete message", Err: err}
	}

	c.mu.Lock()
	if msg, changed := c.store.ApplyDelete(id); changed {
		c.renderer.UpdateMessage(c.viewFor(msg))
	}
	c.mu.Unlock()
	return nil
}

// Messages returns the current log in insertion order.
func (c *Client) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Messages()
}

func (c *Client) Username() string {
	return c.session.Username
}

func (c *Client) announceTyping() {
	if err := c.channel.Publish(utils.SendTypingDestination, c.session.Username); err != nil {
		log.Printf("failed to publish typing announcement: %s\n", err)
	}
}

// handleMessageEvent reconciles one inbound message broadcast. The topic
// carries creates, edits and deletes in one payload shape; the flags and the
// store decide which transition applies. Every branch is a no-op when
// replayed, so echoes of locally applied mutations are absorbed silently.
func (c *Client) handleMessageEvent(payload []byte) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Printf("failed to unmarshal message event: %s\n", err)
		return
	}
	if msg.ID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, known := c.store.Get(msg.ID)
	switch {
	case msg.Deleted:
		if updated, changed := c.store.ApplyDelete(msg.ID); changed {
			c.renderer.UpdateMessage(c.viewFor(updated))
		}
	case msg.Edited:
		if updated, changed := c.store.ApplyEdit(msg.ID, msg.Text); changed {
			c.renderer.UpdateMessage(c.viewFor(updated))
		}
	case !known:
		if c.store.ApplyCreate(msg) {
			c.renderer.AppendMessage(c.viewFor(msg))
			c.indicator.MessageFrom(msg.Sender)
		}
	}
}

func (c *Client) handleRosterEvent(payload []byte) {
	var names []string
	if err := json.Unmarshal(payload, &names); err != nil {
		log.Printf("failed to unmarshal roster event: %s\n", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roster.Replace(names)
	c.renderer.SetRoster(c.roster.Snapshot())
}

func (c *Client) handleTypingEvent(payload []byte) {
	c.indicator.Announce(strings.TrimSpace(string(payload)))
}

// showBanner surfaces a user-visible notice. Transient banners are hidden
// again after BannerAutoHide; connection failures stay until reload.
func (c *Client) showBanner(text string, transient bool) {
	c.renderer.ShowBanner(text)
	if !transient {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.banner != nil {
		c.banner.Stop()
	}
	c.banner = c.clock.AfterFunc(BannerAutoHide, c.renderer.HideBanner)
}
