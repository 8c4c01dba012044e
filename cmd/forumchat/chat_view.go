package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"

	"github.com/Brace1000/forum-client-go/forum"
	"github.com/Brace1000/forum-client-go/forum/rest"
)

const historyPage = 50

// chatView is the private-message sidebar: a roster of users, the open
// conversation transcript and a send field.
type chatView struct {
	app        *App
	layout     tview.Primitive
	roster     *tview.List
	transcript *tview.TextView
	input      *tview.InputField
	notify     *tview.TextView

	chat    *forum.Client
	entries []forum.UserEntry
	unread  map[int]int

	openID   int
	openName string
	lines    []string

	historyGen    int
	historyCancel context.CancelFunc
	historyOffset int
	historyDone   bool
}

func newChatView(a *App) *chatView {
	v := &chatView{app: a, unread: map[int]int{}}

	v.roster = tview.NewList().ShowSecondaryText(false)
	v.roster.SetBorder(true)
	v.roster.SetTitle(" Users ")
	v.roster.SetSelectedFunc(func(index int, _, _ string, _ rune) { v.openConversation(index) })

	v.transcript = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	v.transcript.SetBorder(true)
	v.transcript.SetTitle(" Messages ")

	v.input = tview.NewInputField().SetLabel("> ")
	v.input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			v.sendCurrent()
		}
	})

	v.notify = tview.NewTextView().SetDynamicColors(true)

	capture := func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlR:
			v.reconnect()
			return nil
		case tcell.KeyCtrlO:
			v.loadOlder()
			return nil
		}
		return event
	}
	v.roster.SetInputCapture(capture)
	v.input.SetInputCapture(capture)

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(v.transcript, 0, 1, false).
		AddItem(v.input, 1, 0, true)
	v.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(v.notify, 1, 0, false).
		AddItem(tview.NewFlex().
			AddItem(v.roster, 24, 0, true).
			AddItem(right, 0, 1, false), 0, 1, true)
	return v
}

// attach binds the view to a connected chat client. Callbacks arrive on the
// client's dispatch goroutine, so every UI touch goes through QueueUpdateDraw.
func (v *chatView) attach(chat *forum.Client) {
	v.chat = chat
	if chat == nil {
		return
	}
	chat.OnMessage(func(ev forum.MessageEvent) {
		v.app.ui.QueueUpdateDraw(func() { v.handleMessage(ev) })
	})
	chat.OnUserStatus(func(forum.UserStatusEvent) {
		v.app.ui.QueueUpdateDraw(func() { v.refreshRoster() })
	})
	chat.OnUsersList(func(forum.UsersListEvent) {
		v.app.ui.QueueUpdateDraw(func() { v.refreshRoster() })
	})
	chat.OnStateChange(func(ev forum.StateEvent) {
		v.app.ui.QueueUpdateDraw(func() { v.handleState(ev) })
	})
	chat.OnError(func(err error) {
		log.Warn().Err(err).Msg("chat error")
	})
	v.refreshRoster()
}

func (v *chatView) detach() {
	v.chat = nil
	v.entries = nil
	v.unread = map[int]int{}
	v.openID = 0
	v.openName = ""
	v.lines = nil
	v.roster.Clear()
	v.transcript.Clear()
	v.notify.Clear()
	v.input.SetText("")
}

func (v *chatView) reconnect() {
	chat := v.chat
	if chat == nil || chat.State() != forum.StateGaveUp {
		return
	}
	v.notify.SetText("reconnecting...")
	go func() {
		if err := chat.Reconnect(v.app.ctx); err != nil {
			log.Warn().Err(err).Msg("reconnect failed")
		}
	}()
}

func (v *chatView) handleState(ev forum.StateEvent) {
	switch ev.New {
	case forum.StateAuthenticated:
		v.notify.Clear()
	case forum.StateGaveUp:
		v.notify.SetText("[red]Connection lost.[-] Press Ctrl-R to reconnect.")
	case forum.StateConnecting:
		v.notify.SetText("connecting...")
	}
}

func (v *chatView) refreshRoster() {
	if v.chat == nil {
		return
	}
	current := v.roster.GetCurrentItem()
	v.entries = v.chat.Roster().Snapshot()
	v.roster.Clear()
	for _, u := range v.entries {
		marker := "[gray]o[-]"
		if u.IsOnline {
			marker = "[green]*[-]"
		}
		label := fmt.Sprintf("%s %s", marker, escapeContent(u.Username))
		if n := v.unread[u.ID]; n > 0 {
			label += fmt.Sprintf(" [red](%d)[-]", n)
		}
		v.roster.AddItem(label, "", 0, nil)
	}
	if current >= 0 && current < v.roster.GetItemCount() {
		v.roster.SetCurrentItem(current)
	}
}

func (v *chatView) username(userID int) string {
	for _, u := range v.entries {
		if u.ID == userID {
			return u.Username
		}
	}
	return fmt.Sprintf("user %d", userID)
}

func (v *chatView) handleMessage(ev forum.MessageEvent) {
	self := v.app.ctrl.Session().User.ID
	peer := ev.From
	if ev.From == self {
		peer = ev.To
	}
	if peer == v.openID && v.openID != 0 {
		v.appendLine(formatLine(v.username(ev.From), ev.Time(), ev.Content))
	} else {
		v.unread[peer]++
		v.notify.SetText("[yellow]New message from " + escapeContent(v.username(peer)) + "[-]")
	}
	v.refreshRoster()
}

func (v *chatView) openConversation(index int) {
	if index < 0 || index >= len(v.entries) {
		return
	}
	u := v.entries[index]
	v.openID = u.ID
	v.openName = u.Username
	delete(v.unread, u.ID)
	v.lines = nil
	v.historyOffset = 0
	v.historyDone = false
	v.transcript.SetTitle(" " + escapeContent(u.Username) + " ")
	v.transcript.SetText("loading history...")
	v.refreshRoster()
	v.loadHistory(0, false)
	v.app.ui.SetFocus(v.input)
}

// loadHistory fetches one page of the open conversation. Selecting another
// user supersedes any fetch still in flight.
func (v *chatView) loadHistory(offset int, prepend bool) {
	v.historyGen++
	gen := v.historyGen
	if v.historyCancel != nil {
		v.historyCancel()
	}
	ctx, cancel := context.WithCancel(v.app.ctx)
	v.historyCancel = cancel
	peer := v.openID

	go func() {
		defer cancel()
		msgs, err := v.app.api.MessageHistory(ctx, peer, offset)
		v.app.ui.QueueUpdateDraw(func() {
			if gen != v.historyGen || peer != v.openID {
				return
			}
			if err != nil {
				v.transcript.SetText("[red]Failed to load history.[-]")
				log.Warn().Err(err).Msg("load history failed")
				return
			}
			if len(msgs) < historyPage {
				v.historyDone = true
			}
			v.historyOffset = offset + len(msgs)
			lines := make([]string, 0, len(msgs))
			// newest first on the wire, render oldest first
			for i := len(msgs) - 1; i >= 0; i-- {
				lines = append(lines, v.historyLine(msgs[i]))
			}
			if prepend {
				v.lines = append(lines, v.lines...)
			} else {
				v.lines = lines
			}
			v.renderTranscript(!prepend)
		})
	}()
}

func (v *chatView) loadOlder() {
	if v.openID == 0 || v.historyDone {
		return
	}
	v.loadHistory(v.historyOffset, true)
}

func (v *chatView) historyLine(m rest.HistoryMessage) string {
	self := v.app.ctrl.Session().User
	name := v.openName
	if m.SenderID == self.ID {
		name = self.Username
	}
	ts, err := time.Parse(time.RFC3339, m.CreatedAt)
	if err != nil {
		ts = time.Time{}
	}
	return formatLine(name, ts, m.Content)
}

func formatLine(name string, ts time.Time, content string) string {
	clock := "--:--"
	if !ts.IsZero() {
		clock = ts.Local().Format("15:04")
	}
	return fmt.Sprintf("[yellow]%s[-] [gray]%s[-]  %s", escapeContent(name), clock, escapeContent(content))
}

func (v *chatView) appendLine(line string) {
	v.lines = append(v.lines, line)
	v.renderTranscript(true)
}

func (v *chatView) renderTranscript(scrollToEnd bool) {
	v.transcript.SetText(strings.Join(v.lines, "\n"))
	if scrollToEnd {
		v.transcript.ScrollToEnd()
	}
}

func (v *chatView) sendCurrent() {
	chat := v.chat
	content := strings.TrimSpace(v.input.GetText())
	if chat == nil || v.openID == 0 || content == "" {
		return
	}
	v.input.SetText("")
	self := v.app.ctrl.Session().User
	v.appendLine(formatLine(self.Username, time.Now(), content))

	to := v.openID
	go func() {
		sent, err := chat.SendPrivateMessage(v.app.ctx, to, content)
		if err == nil && sent {
			return
		}
		v.app.ui.QueueUpdateDraw(func() {
			if err != nil {
				v.appendLine("[red]send failed: " + escapeContent(err.Error()) + "[-]")
				return
			}
			v.appendLine("[gray](queued, will send when reconnected)[-]")
		})
	}()
}

func (v *chatView) focusNext() {
	switch v.app.ui.GetFocus() {
	case v.roster:
		v.app.ui.SetFocus(v.input)
	case v.input:
		v.app.ui.SetFocus(v.app.feed.list)
	default:
		v.app.ui.SetFocus(v.roster)
	}
}
