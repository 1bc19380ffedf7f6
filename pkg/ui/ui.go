package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/hirotachi/ws-cli-chat/pkg/chat"
)

// UI assembles the terminal layout and implements chat.Renderer. Render
// instructions arrive from transport and timer goroutines; they are pushed
// through a serialized update queue so tview only ever sees one mutation at
// a time, in arrival order.
type UI struct {
	App    *tview.Application
	Client *chat.Client
	Board  *Board
	Input  *InputSection

	rosterView *tview.TextView
	typingView *tview.TextView
	bannerView *tview.TextView
	root       tview.Primitive

	updates      chan func()
	inputEnabled bool
	self         string
}

func NewUI(self string) *UI {
	app := tview.NewApplication()
	u := &UI{
		App:     app,
		Board:   NewBoard(app),
		updates: make(chan func(), 256),
		self:    self,
	}

	u.rosterView = tview.NewTextView().SetDynamicColors(true)
	u.rosterView.SetBorder(true).SetTitle("[Online]")

	u.typingView = tview.NewTextView().SetDynamicColors(true)
	u.bannerView = tview.NewTextView().SetDynamicColors(true)

	u.Input = NewInputSection(u)
	u.Input.View.SetAcceptanceFunc(func(string, rune) bool {
		return u.inputEnabled
	})

	left := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(u.bannerView, 1, 0, false).
		AddItem(u.Board.Frame, 0, 1, false).
		AddItem(u.typingView, 1, 0, false).
		AddItem(u.Input.View, 1, 0, true)
	u.root = tview.NewFlex().
		AddItem(left, 0, 3, true).
		AddItem(u.rosterView, 24, 0, false)
	app.SetRoot(u.root, true)

	go u.pump()
	return u
}

// Run blocks on the tview event loop.
func (u *UI) Run() error {
	return u.App.Run()
}

func (u *UI) pump() {
	for update := range u.updates {
		u.App.QueueUpdateDraw(update)
	}
}

func (u *UI) post(update func()) {
	u.updates <- update
}

func (u *UI) AppendMessage(view chat.MessageView) {
	u.post(func() { u.Board.Append(view) })
}

func (u *UI) UpdateMessage(view chat.MessageView) {
	u.post(func() { u.Board.Update(view) })
}

func (u *UI) SetRoster(names []string) {
	u.post(func() {
		text := ""
		for _, name := range names {
			if name == u.self {
				text += fmt.Sprintf("[blue::b]%s (you)[::-]\n", tview.Escape(name))
				continue
			}
			text += tview.Escape(name) + "\n"
		}
		u.rosterView.SetText(text)
	})
}

func (u *UI) ShowTyping(name string) {
	u.post(func() {
		u.typingView.SetText(fmt.Sprintf("[grey::d]%s is typing...[::-]", tview.Escape(name)))
	})
}

func (u *UI) HideTyping() {
	u.post(func() { u.typingView.SetText("") })
}

func (u *UI) ShowBanner(text string) {
	u.post(func() {
		u.bannerView.SetText(fmt.Sprintf("[red::b]%s[::-]", tview.Escape(text)))
	})
}

func (u *UI) HideBanner() {
	u.post(func() { u.bannerView.SetText("") })
}

func (u *UI) SetInputEnabled(enabled bool) {
	u.post(func() { u.inputEnabled = enabled })
}

// Confirm shows a modal and returns a blocking gate for SubmitDelete. Must
// not be called from the tview event loop goroutine.
func (u *UI) Confirm(text string) func() bool {
	return func() bool {
		result := make(chan bool, 1)
		u.App.QueueUpdateDraw(func() {
			modal := tview.NewModal().
				SetText(text).
				AddButtons([]string{"Delete", "Cancel"}).
				SetDoneFunc(func(_ int, label string) {
					u.App.SetRoot(u.root, true)
					result <- label == "Delete"
				})
			u.App.SetRoot(modal, true)
		})
		return <-result
	}
}

func (u *UI) showValidation(err error) {
	u.ShowBanner(err.Error())
	time.AfterFunc(chat.BannerAutoHide, u.HideBanner)
}

type option struct {
	Prefix      string
	Action      string
	Description string
}

func (u *UI) ListCommands() {
	optionsList := []option{
		{Prefix: "/", Action: "help", Description: "Shows this commands list."},
		{Prefix: "/", Action: "edit <id> <text>", Description: "Edits one of your messages."},
		{Prefix: "/", Action: "delete <id>", Description: "Deletes one of your messages."},
		{Prefix: "/", Action: "disconnect", Description: "Disconnects you and exits the program."},
	}
	text := "[lightgrey::b]Commands[::-] \n"
	for _, opt := range optionsList {
		text += fmt.Sprintf("  [blue]%s[::-][white::b]%s[::-] [lightgrey]%s[::-]\n", opt.Prefix, opt.Action, opt.Description)
	}
	u.post(func() {
		fmt.Fprint(u.Board.View, text, "\n")
	})
}
