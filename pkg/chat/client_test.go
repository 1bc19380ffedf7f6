package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirotachi/ws-cli-chat/pkg/utils"
)

type publishedFrame struct {
	Destination string
	Data        interface{}
}

type fakeChannel struct {
	connectErr  error
	headers     map[string]string
	handlers    map[string]Handler
	published   []publishedFrame
	disconnects int
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: map[string]Handler{}}
}

func (f *fakeChannel) Connect(headers map[string]string) error {
	f.headers = headers
	return f.connectErr
}

func (f *fakeChannel) Subscribe(topic string, handler Handler) {
	f.handlers[topic] = handler
}

func (f *fakeChannel) Publish(destination string, data interface{}) error {
	f.published = append(f.published, publishedFrame{Destination: destination, Data: data})
	return nil
}

func (f *fakeChannel) Disconnect() {
	f.disconnects++
}

func (f *fakeChannel) deliver(t *testing.T, topic string, data interface{}) {
	handler, ok := f.handlers[topic]
	require.True(t, ok, "no handler subscribed for %s", topic)
	switch v := data.(type) {
	case string:
		handler([]byte(v))
	default:
		payload, err := json.Marshal(data)
		require.NoError(t, err)
		handler(payload)
	}
}

type fakeDirectory struct {
	history    []Message
	users      []string
	historyErr error
	usersErr   error

	editResult Message
	editErr    error
	edits      []publishedFrame
	deleteErr  error
	deletes    []string
}

func (f *fakeDirectory) MessageHistory(context.Context) ([]Message, error) {
	return f.history, f.historyErr
}

func (f *fakeDirectory) OnlineUsers(context.Context) ([]string, error) {
	return f.users, f.usersErr
}

func (f *fakeDirectory) CheckUsername(context.Context, string) (bool, error) {
	return true, nil
}

func (f *fakeDirectory) EditMessage(_ context.Context, id string, text string, sender string) (Message, error) {
	f.edits = append(f.edits, publishedFrame{Destination: id, Data: text})
	if f.editErr != nil {
		return Message{}, f.editErr
	}
	if f.editResult.ID != "" {
		return f.editResult, nil
	}
	return Message{ID: id, Sender: sender, Text: text, Edited: true}, nil
}

func (f *fakeDirectory) DeleteMessage(_ context.Context, id string, _ string) error {
	f.deletes = append(f.deletes, id)
	return f.deleteErr
}

type recordingRenderer struct {
	appended     []MessageView
	updated      []MessageView
	rosters      [][]string
	typingShown  []string
	typingHidden int
	banners      []string
	bannersHid   int
	inputEnabled []bool
}

func (r *recordingRenderer) AppendMessage(view MessageView) { r.appended = append(r.appended, view) }
func (r *recordingRenderer) UpdateMessage(view MessageView) { r.updated = append(r.updated, view) }
func (r *recordingRenderer) SetRoster(names []string)       { r.rosters = append(r.rosters, names) }
func (r *recordingRenderer) ShowTyping(name string)         { r.typingShown = append(r.typingShown, name) }
func (r *recordingRenderer) HideTyping()                    { r.typingHidden++ }
func (r *recordingRenderer) ShowBanner(text string)         { r.banners = append(r.banners, text) }
func (r *recordingRenderer) HideBanner()                    { r.bannersHid++ }
func (r *recordingRenderer) SetInputEnabled(enabled bool) {
	r.inputEnabled = append(r.inputEnabled, enabled)
}

func newTestClient(t *testing.T, directory *fakeDirectory) (*Client, *fakeChannel, *recordingRenderer, *clock.Mock) {
	t.Helper()
	channel := newFakeChannel()
	renderer := &recordingRenderer{}
	mock := clock.NewMock()
	client := NewClient(NewSession("alice"), channel, directory, renderer, mock)
	return client, channel, renderer, mock
}

func connectTestClient(t *testing.T, directory *fakeDirectory) (*Client, *fakeChannel, *recordingRenderer, *clock.Mock) {
	t.Helper()
	client, channel, renderer, mock := newTestClient(t, directory)
	require.NoError(t, client.Connect(context.Background()))
	return client, channel, renderer, mock
}

func TestClient_Connect(t *testing.T) {
	directory := &fakeDirectory{
		history: []Message{testMessage("1", "bob", "hello"), testMessage("2", "alice", "hi")},
		users:   []string{"bob", "alice"},
	}
	client, channel, renderer, _ := connectTestClient(t, directory)

	assert.Equal(t, "alice", channel.headers[utils.UsernameHeader])
	assert.Len(t, renderer.appended, 2)
	assert.Equal(t, []string{"alice", "bob"}, renderer.rosters[0])
	assert.Equal(t, []bool{true}, renderer.inputEnabled)
	assert.Equal(t, 2, client.store.Len())
	for _, topic := range []string{utils.TopicMessages, utils.TopicOnlineUsers, utils.TopicTyping} {
		assert.Contains(t, channel.handlers, topic)
	}
}

func TestClient_ConnectFailure(t *testing.T) {
	client, channel, renderer, _ := newTestClient(t, &fakeDirectory{})
	channel.connectErr = errors.New("refused")

	err := client.Connect(context.Background())

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, []bool{false}, renderer.inputEnabled)
	assert.NotEmpty(t, renderer.banners)
	assert.Empty(t, channel.handlers, "no subscription on a failed connect")
}

func TestClient_HydrationFailure(t *testing.T) {
	directory := &fakeDirectory{historyErr: errors.New("boom")}
	client, channel, renderer, _ := newTestClient(t, directory)

	err := client.Connect(context.Background())

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, 1, channel.disconnects, "channel is torn down when hydration fails")
	assert.Equal(t, []bool{false}, renderer.inputEnabled)
}

func TestClient_DuplicateCreateDiscarded(t *testing.T) {
	_, channel, renderer, _ := connectTestClient(t, &fakeDirectory{})

	msg := testMessage("1", "bob", "hello")
	channel.deliver(t, utils.TopicMessages, msg)
	channel.deliver(t, utils.TopicMessages, msg)

	assert.Len(t, renderer.appended, 1, "echo of a known message renders nothing")
}

func TestClient_EditAndDeleteEvents(t *testing.T) {
	client, channel, renderer, _ := connectTestClient(t, &fakeDirectory{})

	channel.deliver(t, utils.TopicMessages, testMessage("1", "bob", "hi"))

	edited := testMessage("1", "bob", "hello")
	edited.Edited = true
	channel.deliver(t, utils.TopicMessages, edited)

	require.Len(t, renderer.updated, 1)
	assert.Equal(t, "hello", renderer.updated[0].Text)
	assert.True(t, renderer.updated[0].Edited)

	t.Run("replayed edit converges to the same state", func(t *testing.T) {
		before, _ := client.store.Get("1")
		channel.deliver(t, utils.TopicMessages, edited)
		after, _ := client.store.Get("1")
		assert.Equal(t, before, after)
	})

	deleted := edited
	deleted.Deleted = true
	channel.deliver(t, utils.TopicMessages, deleted)

	last := renderer.updated[len(renderer.updated)-1]
	assert.True(t, last.Deleted)
	assert.Equal(t, Tombstone, last.Text)
	assert.False(t, last.CanModify)

	t.Run("edit after delete keeps the tombstone", func(t *testing.T) {
		revived := testMessage("1", "bob", "back")
		revived.Edited = true
		channel.deliver(t, utils.TopicMessages, revived)
		stored, _ := client.store.Get("1")
		assert.True(t, stored.Deleted)
		assert.NotEqual(t, "back", stored.Text)
	})
}

func TestClient_UnknownIDEventsDiscarded(t *testing.T) {
	client, channel, renderer, _ := connectTestClient(t, &fakeDirectory{})

	edited := testMessage("99", "bob", "hello")
	edited.Edited = true
	channel.deliver(t, utils.TopicMessages, edited)

	deleted := testMessage("98", "bob", "gone")
	deleted.Deleted = true
	channel.deliver(t, utils.TopicMessages, deleted)

	assert.Equal(t, 0, client.store.Len())
	assert.Empty(t, renderer.updated)
}

func TestClient_SendMessage(t *testing.T) {
	client, channel, _, _ := connectTestClient(t, &fakeDirectory{})

	require.NoError(t, client.SendMessage("  hi there  "))
	require.Len(t, channel.published, 1)
	assert.Equal(t, utils.SendMessageDestination, channel.published[0].Destination)
	assert.Equal(t, Outgoing{Sender: "alice", Text: "hi there"}, channel.published[0].Data)

	t.Run("empty message never reaches the transport", func(t *testing.T) {
		err := client.SendMessage("   ")
		var validation *ValidationError
		assert.ErrorAs(t, err, &validation)
		assert.Len(t, channel.published, 1)
	})

	t.Run("overlong message never reaches the transport", func(t *testing.T) {
		long := make([]byte, MaxMessageLength+1)
		for i := range long {
			long[i] = 'a'
		}
		err := client.SendMessage(string(long))
		var validation *ValidationError
		assert.ErrorAs(t, err, &validation)
		assert.Len(t, channel.published, 1)
	})
}

func TestClient_SubmitEdit(t *testing.T) {
	directory := &fakeDirectory{}
	client, channel, renderer, _ := connectTestClient(t, directory)
	channel.deliver(t, utils.TopicMessages, testMessage("1", "alice", "hi"))
	channel.deliver(t, utils.TopicMessages, testMessage("2", "bob", "hey"))

	t.Run("server text is authoritative", func(t *testing.T) {
		directory.editResult = Message{ID: "1", Sender: "alice", Text: "hello (normalized)", Edited: true}
		require.NoError(t, client.SubmitEdit(context.Background(), "1", "hello"))
		stored, _ := client.store.Get("1")
		assert.Equal(t, "hello (normalized)", stored.Text)
		assert.True(t, stored.Edited)
		require.NotEmpty(t, renderer.updated)
	})

	t.Run("unchanged text is a silent cancel", func(t *testing.T) {
		calls := len(directory.edits)
		require.NoError(t, client.SubmitEdit(context.Background(), "1", "hello (normalized)"))
		assert.Len(t, directory.edits, calls)
	})

	t.Run("empty text is rejected locally", func(t *testing.T) {
		err := client.SubmitEdit(context.Background(), "1", "   ")
		var validation *ValidationError
		assert.ErrorAs(t, err, &validation)
	})

	t.Run("someone else's message cannot be edited", func(t *testing.T) {
		err := client.SubmitEdit(context.Background(), "2", "hijack")
		var validation *ValidationError
		assert.ErrorAs(t, err, &validation)
	})

	t.Run("request failure leaves state untouched", func(t *testing.T) {
		directory.editErr = errors.New("500")
		before, _ := client.store.Get("1")
		err := client.SubmitEdit(context.Background(), "1", "changed again")
		var reqErr *RequestError
		assert.ErrorAs(t, err, &reqErr)
		after, _ := client.store.Get("1")
		assert.Equal(t, before, after)
		assert.NotEmpty(t, renderer.banners)
	})
}

func TestClient_SubmitDelete(t *testing.T) {
	directory := &fakeDirectory{}
	client, channel, renderer, _ := connectTestClient(t, directory)
	channel.deliver(t, utils.TopicMessages, testMessage("1", "alice", "hi"))

	t.Run("declined confirmation sends nothing", func(t *testing.T) {
		require.NoError(t, client.SubmitDelete(context.Background(), "1", func() bool { return false }))
		assert.Empty(t, directory.deletes)
	})

	require.NoError(t, client.SubmitDelete(context.Background(), "1", func() bool { return true }))
	assert.Equal(t, []string{"1"}, directory.deletes)
	stored, _ := client.store.Get("1")
	assert.True(t, stored.Deleted)

	t.Run("local view shows the tombstone before the echo", func(t *testing.T) {
		last := renderer.updated[len(renderer.updated)-1]
		assert.Equal(t, Tombstone, last.Text)
	})

	t.Run("second delete is a no-op", func(t *testing.T) {
		require.NoError(t, client.SubmitDelete(context.Background(), "1", func() bool { return true }))
		assert.Len(t, directory.deletes, 1)
	})

	t.Run("broadcast echo is absorbed", func(t *testing.T) {
		updates := len(renderer.updated)
		echo := testMessage("1", "alice", "hi")
		echo.Deleted = true
		channel.deliver(t, utils.TopicMessages, echo)
		assert.Len(t, renderer.updated, updates)
	})
}

func TestClient_TypingFlow(t *testing.T) {
	client, channel, renderer, mock := connectTestClient(t, &fakeDirectory{})

	client.InputChanged()
	require.Len(t, channel.published, 1)
	assert.Equal(t, utils.SendTypingDestination, channel.published[0].Destination)
	assert.Equal(t, "alice", channel.published[0].Data)

	t.Run("sending the message stops the emitter", func(t *testing.T) {
		require.NoError(t, client.SendMessage("done"))
		mock.Add(10 * time.Second)
		// one typing announcement plus the message itself
		assert.Len(t, channel.published, 2)
	})

	t.Run("remote announcements drive the indicator", func(t *testing.T) {
		channel.deliver(t, utils.TopicTyping, "bob")
		assert.Equal(t, []string{"bob"}, renderer.typingShown)

		channel.deliver(t, utils.TopicMessages, testMessage("5", "bob", "sent it"))
		assert.Equal(t, 1, renderer.typingHidden, "a delivered message clears the indicator")
	})

	t.Run("own announcements are ignored", func(t *testing.T) {
		channel.deliver(t, utils.TopicTyping, "alice")
		assert.Equal(t, []string{"bob"}, renderer.typingShown)
	})
}

func TestClient_BannerAutoHide(t *testing.T) {
	directory := &fakeDirectory{deleteErr: errors.New("503")}
	client, channel, renderer, mock := connectTestClient(t, directory)
	channel.deliver(t, utils.TopicMessages, testMessage("1", "alice", "hi"))

	err := client.SubmitDelete(context.Background(), "1", nil)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	require.NotEmpty(t, renderer.banners)

	assert.Equal(t, 0, renderer.bannersHid)
	mock.Add(BannerAutoHide)
	assert.Equal(t, 1, renderer.bannersHid)
}

func TestClient_Disconnect(t *testing.T) {
	client, channel, renderer, mock := connectTestClient(t, &fakeDirectory{})

	client.InputChanged()
	channel.deliver(t, utils.TopicTyping, "bob")
	published := len(channel.published)

	client.Disconnect()
	client.Disconnect()

	assert.Equal(t, 1, channel.disconnects, "disconnect is idempotent")
	assert.False(t, client.session.Connected)
	assert.Equal(t, "", client.session.Username)

	mock.Add(time.Minute)
	assert.Len(t, channel.published, published, "no timer fires after disconnect")
	assert.Equal(t, 0, renderer.typingHidden, "expiry was canceled, not fired")
}

func TestClient_RosterEvent(t *testing.T) {
	_, channel, renderer, _ := connectTestClient(t, &fakeDirectory{})

	channel.deliver(t, utils.TopicMessages, testMessage("1", "bob", "hi"))
	channel.deliver(t, utils.TopicOnlineUsers, []string{"alice", "carol", "bob"})

	require.NotEmpty(t, renderer.rosters)
	assert.Equal(t, []string{"alice", "bob", "carol"}, renderer.rosters[len(renderer.rosters)-1])
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("alice_99"))

	for name, input := range map[string]string{
		"empty":        "",
		"blank":        "   ",
		"too long":     "abcdefghijklmnopqrstu",
		"bad charset":  "alice!",
		"with spaces":  "a b",
		"unicode dash": fmt.Sprintf("alice%c", '—'),
	} {
		t.Run(name, func(t *testing.T) {
			var validation *ValidationError
			assert.ErrorAs(t, ValidateUsername(input), &validation)
		})
	}
}
