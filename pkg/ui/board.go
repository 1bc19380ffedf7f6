package ui

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/rivo/tview"

	"github.com/hirotachi/ws-cli-chat/pkg/chat"
)

var mentionPattern = regexp.MustCompile(`@[a-zA-Z0-9_]+`)

// Board renders the message log. It keeps its own copy of the view models so
// an update can rewrite the whole text view; the engine stays the source of
// truth for state, the board only formats.
type Board struct {
	View  *tview.TextView
	Frame *tview.Frame

	app   *tview.Application
	mu    sync.Mutex
	order []string
	views map[string]chat.MessageView
}

func NewBoard(app *tview.Application) *Board {
	messageView := tview.NewTextView().SetChangedFunc(func() {
		app.Draw()
	})
	messageView.SetDynamicColors(true).SetScrollable(true).SetRegions(true)

	messageFrame := tview.NewFrame(messageView)
	messageFrame.SetTitle("[#Chat]").SetBorder(true).SetTitleAlign(0)

	return &Board{
		View:  messageView,
		Frame: messageFrame,
		app:   app,
		order: make([]string, 0),
		views: map[string]chat.MessageView{},
	}
}

func (b *Board) Append(view chat.MessageView) {
	b.mu.Lock()
	b.order = append(b.order, view.ID)
	b.views[view.ID] = view
	b.mu.Unlock()

	if _, err := fmt.Fprint(b.View, b.FormatMessage(view)); err != nil {
		return
	}
	b.View.ScrollToEnd()
}

func (b *Board) Update(view chat.MessageView) {
	b.mu.Lock()
	if _, ok := b.views[view.ID]; !ok {
		b.mu.Unlock()
		return
	}
	b.views[view.ID] = view
	text := ""
	for _, id := range b.order {
		text += b.FormatMessage(b.views[id])
	}
	b.mu.Unlock()

	b.View.SetText(text)
	b.View.ScrollToEnd()
}

// FormatMessage renders one message with tview markup. The body is escaped
// exactly once, from the raw stored value, then @name tokens are highlighted;
// deleted messages already carry the tombstone text and get no decoration.
func (b *Board) FormatMessage(view chat.MessageView) string {
	date := view.Timestamp.Format("Jan 2 15:04:05")
	info := fmt.Sprintf("[grey]%s[::-]", date)
	if view.Edited && !view.Deleted {
		info += " [grey](edited)[::-]"
	}

	authorName := view.Sender
	if view.Own {
		authorName = fmt.Sprintf("[blue::b]%s[::-]", authorName)
	}

	if view.Deleted {
		return fmt.Sprintf("%s %s\n  [grey::d]%s[::-]\n\n", authorName, info, view.Text)
	}

	body := tview.Escape(view.Text)
	body = mentionPattern.ReplaceAllString(body, "[yellow::b]$0[-::-]")
	idLine := fmt.Sprintf("[grey]#%s[::-]", view.ID)
	return fmt.Sprintf("%s %s %s\n  [white]%s[::-]\n\n", authorName, info, idLine, body)
}
