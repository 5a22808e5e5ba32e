package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/tgsearch/internal/rpc"
	"github.com/matheus3301/tgsearch/internal/tui/ui"
	"github.com/rivo/tview"
)

// HitView shows one hit in full.
type HitView struct {
	*tview.TextView
	theme *ui.Theme
	link  string
}

// NewHitView creates the detail page.
func NewHitView(theme *ui.Theme) *HitView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Message ")
	tv.SetTitleColor(theme.TitleColor)
	return &HitView{TextView: tv, theme: theme}
}

// Show renders hit.
func (hv *HitView) Show(hit rpc.HitInfo) {
	hv.Clear()
	hv.link = hit.Link
	hv.SetTitle(fmt.Sprintf(" Message %d ", hit.ID))

	key := ui.ColorName(hv.theme.MenuKeyColor)
	counter := ui.ColorName(hv.theme.CounterColor)
	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		_, _ = fmt.Fprintf(hv, "[%s::b]%-9s[-:-:-] [%s]%s[-]\n", key, label, counter, tview.Escape(value))
	}

	row("From:", senderLabel(hit))
	row("Sender:", hit.SenderID)
	row("Date:", longDate(hit.Date))
	row("Score:", formatScore(hit.Score))
	row("Link:", hit.Link)

	body := sanitizeForTerminal(hit.Message)
	_, _ = fmt.Fprintf(hv, "\n%s\n", tview.Escape(strings.TrimRight(body, "\n")))

	if hit.Highlighted {
		hl := ui.ColorName(hv.theme.HighlightColor)
		_, _ = fmt.Fprintf(hv, "\n[::d]match:[-:-:-] %s\n", renderFragment(hit.Fragment, true, hl))
	}
	hv.ScrollToBeginning()
}

// Link returns the deep link of the shown hit.
func (hv *HitView) Link() string { return hv.link }

func longDate(raw string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.Local().Format("Mon 2006-01-02 15:04:05")
}
