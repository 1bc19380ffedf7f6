package ui

import (
	"context"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/hirotachi/ws-cli-chat/pkg/chat"
)

// InputSection is the compose field. Every text change feeds the typing
// protocol; Enter dispatches commands or sends the message.
type InputSection struct {
	View *tview.InputField
	ui   *UI
}

func NewInputSection(ui *UI) *InputSection {
	inputView := tview.NewInputField()
	inputView.SetPlaceholder("Send a message or /help to list commands").
		SetPlaceholderTextColor(tcell.ColorDeepSkyBlue)
	inputView.SetLabel(">").SetLabelColor(tcell.ColorDeepSkyBlue).SetLabelWidth(2)
	inputView.SetFieldTextColor(tcell.ColorWhite).SetFieldBackgroundColor(tcell.ColorGrey)

	section := &InputSection{View: inputView, ui: ui}
	inputView.SetChangedFunc(func(text string) {
		if text != "" {
			ui.Client.InputChanged()
		}
	})
	inputView.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		text := strings.TrimSpace(inputView.GetText())
		if text == "" {
			return
		}
		inputView.SetText("")
		section.HandleInput(text)
	})
	return section
}

func (section *InputSection) HandleInput(text string) {
	switch {
	case text == "/help":
		section.ui.ListCommands()
	case text == "/disconnect":
		section.ui.Client.Disconnect()
		section.ui.App.Stop()
	case strings.HasPrefix(text, "/edit "):
		section.submitEdit(strings.TrimPrefix(text, "/edit "))
	case strings.HasPrefix(text, "/delete "):
		section.submitDelete(strings.TrimPrefix(text, "/delete "))
	default:
		if err := section.ui.Client.SendMessage(text); err != nil {
			section.ui.showValidation(err)
		}
	}
}

func (section *InputSection) submitEdit(args string) {
	split := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if len(split) != 2 {
		section.ui.showValidation(&chat.ValidationError{Reason: "usage: /edit <id> <new text>"})
		return
	}
	id, newText := split[0], split[1]
	go func() {
		if err := section.ui.Client.SubmitEdit(context.Background(), id, newText); err != nil {
			section.ui.showValidation(err)
		}
	}()
}

func (section *InputSection) submitDelete(args string) {
	id := strings.TrimSpace(args)
	if id == "" {
		section.ui.showValidation(&chat.ValidationError{Reason: "usage: /delete <id>"})
		return
	}
	go func() {
		confirm := section.ui.Confirm("Delete this message?")
		if err := section.ui.Client.SubmitDelete(context.Background(), id, confirm); err != nil {
			section.ui.showValidation(err)
		}
	}()
}
