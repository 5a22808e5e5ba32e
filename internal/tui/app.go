// Package tui is the terminal search browser. It talks to a running daemon
// over the control plane and never touches the search engine directly.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/tgsearch/internal/rpc"
	"github.com/matheus3301/tgsearch/internal/tui/keys"
	"github.com/matheus3301/tgsearch/internal/tui/model"
	"github.com/matheus3301/tgsearch/internal/tui/ui"
	"github.com/matheus3301/tgsearch/internal/tui/views"
	"github.com/rivo/tview"
)

// Page names.
const (
	PageSearch = "search"
	PageHit    = "hit"
	PageHelp   = "help"
)

const (
	refreshInterval = 5 * time.Second
	callTimeout     = 10 * time.Second
)

// Options configures the browser.
type Options struct {
	Instance string
	ChatID   int64
}

// App is the browser shell.
type App struct {
	app      *tview.Application
	root     *tview.Flex
	pages    *ui.Pages
	theme    *ui.Theme
	browser  *model.Browser
	registry *keys.Registry
	flash    *ui.FlashModel

	info     *ui.DaemonInfo
	menu     *ui.Menu
	prompt   *ui.Prompt
	flashBar *ui.FlashBar
	results  *views.ResultsView
	hit      *views.HitView
	help     *views.HelpView

	instance string
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewApp builds the browser over backend.
func NewApp(backend model.Backend, opts Options) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		pages:    ui.NewPages(),
		theme:    theme,
		browser:  model.NewBrowser(backend, opts.ChatID),
		registry: keys.NewRegistry(),
		flash:    ui.NewFlashModel(),
		info:     ui.NewDaemonInfo(theme),
		menu:     ui.NewMenu(theme),
		prompt:   ui.NewPrompt(theme),
		flashBar: ui.NewFlashBar(theme),
		results:  views.NewResultsView(theme),
		hit:      views.NewHitView(theme),
		help:     views.NewHelpView(theme),
		instance: opts.Instance,
		ctx:      ctx,
		cancel:   cancel,
	}
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':', Label: ":", Help: "Command", Visible: true,
		Handler: a.showPrompt,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?', Label: "?", Help: "Help", Visible: true,
		Handler: func() { a.pages.Push(PageHelp) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'r', Label: "r", Help: "Refresh", Visible: true,
		Handler: func() { go a.refreshStatus() },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyEscape, Label: "esc", Help: "Back", Visible: true,
		Handler: a.back,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Label: "q", Help: "Back / quit", Visible: true,
		Handler: func() {
			if a.pages.Depth() <= 1 {
				a.Stop()
				return
			}
			a.back()
		},
	})

	a.registry.AddPage(PageSearch, &keys.Action{
		Key: tcell.KeyRune, Rune: '/', Label: "/", Help: "Keyword", Visible: true,
		Handler: func() { a.app.SetFocus(a.results.Input()) },
	})
	a.registry.AddPage(PageSearch, &keys.Action{
		Key: tcell.KeyEnter, Label: "enter", Help: "Open hit", Visible: true,
		Handler: a.openSelected,
	})
}

func (a *App) setupCallbacks() {
	a.results.SetOnQuery(func(keyword string) { go a.runSearch(keyword) })
	a.results.SetSelectedFunc(func(hit rpc.HitInfo) { a.openHit(hit) })

	a.prompt.SetOnSubmit(func(text string) {
		a.hidePrompt()
		a.execute(ParseCommand(text))
	})
	a.prompt.SetOnCancel(a.hidePrompt)

	a.pages.SetOnChange(a.onPageChange)
}

func (a *App) setupLayout() {
	header := tview.NewFlex().
		AddItem(a.info, 0, 1, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 30, 0, false)

	a.pages.AddPage(PageSearch, a.results, true, false)
	a.pages.AddPage(PageHit, a.hit, true, false)
	a.pages.AddPage(PageHelp, a.help, true, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.flashBar, 1, 0, false)

	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(a.capture)
	a.pages.Reset(PageSearch)
	a.app.SetFocus(a.results.Input())
}

func (a *App) capture(event *tcell.EventKey) *tcell.EventKey {
	focused := a.app.GetFocus()
	if focused == a.prompt.InputField {
		return event
	}
	if focused == a.results.Input() {
		if event.Key() == tcell.KeyEscape || event.Key() == tcell.KeyDown {
			a.app.SetFocus(a.results.Results())
			return nil
		}
		return event
	}
	if a.registry.HandleEvent(a.pages.Current(), event) {
		return nil
	}
	return event
}

func (a *App) execute(cmd Command) {
	switch cmd.Name {
	case "search":
		a.pages.Reset(PageSearch)
		a.results.Input().SetText(cmd.Args)
		go a.runSearch(cmd.Args)
	case "chat":
		id, err := ParseChatID(cmd.Args)
		if err != nil {
			a.flash.Err(err)
			a.drawFlash()
			return
		}
		a.browser.SetChat(id)
		a.results.Update(nil)
		a.pages.Reset(PageSearch)
		a.app.SetFocus(a.results.Input())
		a.flash.Info(fmt.Sprintf("Chat %d", id))
		a.drawHeader()
		a.drawFlash()
	case "help":
		a.pages.Push(PageHelp)
	case "quit":
		a.Stop()
	default:
		a.flash.Warn(fmt.Sprintf("Unknown command %q", cmd.Name))
		a.drawFlash()
	}
}

func (a *App) showPrompt() {
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	a.onPageChange(a.pages.Current())
}

// onPageChange refreshes the menu and moves focus to the top page.
func (a *App) onPageChange(top string) {
	a.menu.Update(a.registry.Hints(top))
	switch top {
	case PageSearch:
		a.app.SetFocus(a.results.Results())
	case PageHit:
		a.app.SetFocus(a.hit)
	case PageHelp:
		a.app.SetFocus(a.help)
	}
}

func (a *App) back() {
	a.pages.Pop()
}

func (a *App) openSelected() {
	if hit, ok := a.results.Selected(); ok {
		a.openHit(hit)
	}
}

func (a *App) openHit(hit rpc.HitInfo) {
	a.hit.Show(hit)
	a.pages.Push(PageHit)
}

func (a *App) runSearch(keyword string) {
	a.flash.Info("Searching...")
	a.app.QueueUpdateDraw(a.drawFlash)

	ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
	defer cancel()
	resp, err := a.browser.Search(ctx, keyword)
	if err != nil {
		a.flash.Err(fmt.Errorf("search failed: %w", err))
		a.app.QueueUpdateDraw(a.drawFlash)
		return
	}

	if len(resp.Hits) == 0 {
		a.flash.Warn(resp.Reply)
	} else {
		a.flash.Info(fmt.Sprintf("%d hits in %s", len(resp.Hits), resp.Took))
	}
	a.app.QueueUpdateDraw(func() {
		a.results.Update(resp)
		a.drawFlash()
		if a.pages.Current() == PageSearch {
			a.app.SetFocus(a.results.Results())
		}
	})
}

func (a *App) refreshStatus() {
	ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
	defer cancel()
	if err := a.browser.RefreshStatus(ctx); err != nil && a.ctx.Err() == nil {
		a.flash.Err(fmt.Errorf("daemon status: %w", err))
	}
	a.app.QueueUpdateDraw(func() {
		a.drawHeader()
		a.drawFlash()
	})
}

func (a *App) drawHeader() {
	st := a.browser.Status()
	if st == nil {
		a.info.Update(nil)
		return
	}
	a.info.Update(&ui.DaemonData{
		Instance: st.Instance,
		Bot:      st.Username,
		State:    st.State,
		ChatID:   a.browser.ChatID(),
		Indexed:  st.Indexed,
		Failed:   st.Failed,
		Uptime:   st.Uptime,
	})
}

func (a *App) drawFlash() {
	a.flashBar.Update(a.flash.Current())
}

func (a *App) refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.refreshStatus()
		case <-a.ctx.Done():
			return
		}
	}
}

// Run starts the browser and blocks until it quits.
func (a *App) Run() error {
	a.menu.Update(a.registry.Hints(a.pages.Current()))
	a.info.Update(&ui.DaemonData{Instance: a.instance, State: "CONNECTING", ChatID: a.browser.ChatID()})
	if a.browser.ChatID() == 0 {
		a.flash.Warn("No chat selected, use :chat <id>")
		a.drawFlash()
	}
	go func() {
		a.refreshStatus()
		a.refreshLoop()
	}()
	defer a.cancel()
	return a.app.Run()
}

// Stop shuts the browser down.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
