package main

import (
	"context"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"

	"github.com/Brace1000/forum-client-go/forum/rest"
	"github.com/Brace1000/forum-client-go/forum/session"
)

// Page names. The Pages widget guarantees exactly one is visible at a time;
// switching to home triggers a feed refresh.
const (
	pageHome       = "home"
	pageLogin      = "login"
	pageRegister   = "register"
	pageCreatePost = "create-post"
)

// App glues the session controller, the REST API and the tview widgets
// together.
type App struct {
	ctx   context.Context
	ui    *tview.Application
	pages *tview.Pages
	ctrl  *session.Controller
	api   *rest.Client

	feed     *feedView
	chat     *chatView
	status   *tview.TextView
	homeFlex *tview.Flex

	login    *loginPage
	register *registerPage
	create   *createPostPage
}

func newApp(ctx context.Context, ctrl *session.Controller, api *rest.Client) *App {
	a := &App{
		ctx:  ctx,
		ui:   tview.NewApplication(),
		ctrl: ctrl,
		api:  api,
	}

	a.status = tview.NewTextView().SetDynamicColors(true)
	a.feed = newFeedView(a)
	a.chat = newChatView(a)
	a.login = newLoginPage(a)
	a.register = newRegisterPage(a)
	a.create = newCreatePostPage(a)

	a.homeFlex = tview.NewFlex().
		AddItem(a.feed.layout, 0, 3, true).
		AddItem(a.chat.layout, 0, 0, false)

	home := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.homeFlex, 0, 1, true).
		AddItem(a.status, 1, 0, false)

	a.pages = tview.NewPages().
		AddPage(pageHome, home, true, true).
		AddPage(pageLogin, a.login.layout, true, false).
		AddPage(pageRegister, a.register.layout, true, false).
		AddPage(pageCreatePost, a.create.layout, true, false)

	a.ui.SetInputCapture(a.handleGlobalKeys)

	ctrl.OnChatReady = func() {
		a.ui.QueueUpdateDraw(func() { a.chat.refreshRoster() })
	}
	ctrl.OnForcedLogout = func(message string) {
		a.ui.QueueUpdateDraw(func() {
			a.chat.detach()
			a.login.setError("password", message)
			a.showPage(pageLogin)
		})
	}

	return a
}

// Run restores any persisted session and enters the UI loop.
func (a *App) Run() error {
	if ok, err := a.ctrl.Resume(a.ctx); err != nil {
		log.Warn().Err(err).Msg("session resume failed")
	} else if ok {
		a.chat.attach(a.ctrl.Chat())
	}
	a.showPage(pageHome)
	return a.ui.SetRoot(a.pages, true).Run()
}

// showPage is the whole navigation state machine: switch the visible
// section, refresh the feed when entering home, and re-apply the
// auth-dependent parts of the chrome.
func (a *App) showPage(name string) {
	a.pages.SwitchToPage(name)
	if name == pageHome {
		a.feed.reload()
	}
	a.updateAuthUI()
}

// updateAuthUI shows or hides the chat sidebar and rewrites the status bar
// according to the session state.
func (a *App) updateAuthUI() {
	sess := a.ctrl.Session()
	if sess.Authenticated {
		a.homeFlex.ResizeItem(a.chat.layout, 0, 1)
		a.status.SetText("[yellow]" + tview.Escape(sess.User.Username) + "[-]" +
			"  F1 feed  F4 new post  F8 logout  Tab chat  Ctrl-C quit")
	} else {
		a.homeFlex.ResizeItem(a.chat.layout, 0, 0)
		a.status.SetText("not logged in  F1 feed  F2 login  F3 register  Ctrl-C quit")
	}
}

func (a *App) handleGlobalKeys(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyF1:
		a.showPage(pageHome)
		return nil
	case tcell.KeyF2:
		a.showPage(pageLogin)
		return nil
	case tcell.KeyF3:
		a.showPage(pageRegister)
		return nil
	case tcell.KeyF4:
		if a.ctrl.Session().Authenticated {
			a.create.reloadCategories()
			a.showPage(pageCreatePost)
		} else {
			a.login.setError("identifier", "Please login to create posts")
			a.showPage(pageLogin)
		}
		return nil
	case tcell.KeyF8:
		a.logout()
		return nil
	case tcell.KeyTab:
		if name, _ := a.pages.GetFrontPage(); name == pageHome && a.ctrl.Session().Authenticated {
			a.chat.focusNext()
			return nil
		}
	}
	return event
}

// onLoggedIn runs on the UI goroutine after a successful login.
func (a *App) onLoggedIn() {
	a.chat.attach(a.ctrl.Chat())
	a.showPage(pageHome)
}

func (a *App) logout() {
	a.chat.detach()
	go func() {
		if err := a.ctrl.Logout(a.ctx); err != nil {
			log.Warn().Err(err).Msg("logout failed")
		}
		a.ui.QueueUpdateDraw(func() { a.showPage(pageHome) })
	}()
}
