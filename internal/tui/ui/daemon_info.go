package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rivo/tview"
)

// DaemonData is the header summary of the connected daemon.
type DaemonData struct {
	Instance string
	Bot      string
	State    string
	ChatID   int64
	Indexed  int64
	Failed   int64
	Uptime   time.Duration
}

// DaemonInfo renders DaemonData in the header.
type DaemonInfo struct {
	*tview.TextView
	theme *Theme
}

// NewDaemonInfo creates the header panel.
func NewDaemonInfo(theme *Theme) *DaemonInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)
	return &DaemonInfo{TextView: tv, theme: theme}
}

// Update renders data. A nil data shows the daemon as unreachable.
func (di *DaemonInfo) Update(data *DaemonData) {
	di.Clear()
	fg := ColorName(di.theme.FgColor)
	counter := ColorName(di.theme.CounterColor)

	if data == nil {
		_, _ = fmt.Fprintf(di, "[%s::b]Daemon:[-:-:-]   [%s]unreachable[-]",
			fg, ColorName(di.theme.StateBadColor))
		return
	}

	state := ColorName(di.theme.StateBadColor)
	if data.State == "READY" {
		state = ColorName(di.theme.StateOKColor)
	}
	bot := "-"
	if data.Bot != "" {
		bot = "@" + data.Bot
	}
	chat := "-"
	if data.ChatID != 0 {
		chat = strconv.FormatInt(data.ChatID, 10)
	}

	_, _ = fmt.Fprintf(di,
		"[%s::b]Instance:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]Bot:[-:-:-]      [%s]%s[-]\n"+
			"[%s::b]State:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]Chat:[-:-:-]     [%s]%s[-]\n"+
			"[%s::b]Indexed:[-:-:-]  [%s]%d[-] (%d failed)\n"+
			"[%s::b]Uptime:[-:-:-]   [%s]%s[-]",
		fg, counter, tview.Escape(data.Instance),
		fg, counter, tview.Escape(bot),
		fg, state, data.State,
		fg, counter, chat,
		fg, counter, data.Indexed, data.Failed,
		fg, counter, FormatUptime(data.Uptime),
	)
}

// FormatUptime renders d as "1h2m" or "3m".
func FormatUptime(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
