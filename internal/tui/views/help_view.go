package views

import (
	"fmt"

	"github.com/matheus3301/tgsearch/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView lists the key bindings and prompt commands.
type HelpView struct {
	*tview.TextView
}

// NewHelpView creates the help page.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	kc := ui.ColorName(theme.MenuKeyColor)
	_, _ = fmt.Fprintf(tv, `
  [::b]Global[-:-:-]

  [%[1]s]:[-:-:-]      Command mode        [%[1]s]Esc[-:-:-]    Back
  [%[1]s]?[-:-:-]      Help                [%[1]s]q[-:-:-]      Back / quit
  [%[1]s]Ctrl-C[-:-:-] Quit                [%[1]s]r[-:-:-]      Refresh daemon status

  [::b]Search[-:-:-]

  [%[1]s]/[-:-:-]      Focus the keyword   [%[1]s]Enter[-:-:-]  Run search / open hit
  [%[1]s]j/Down[-:-:-] Next hit            [%[1]s]k/Up[-:-:-]   Previous hit

  [::b]Commands (: mode)[-:-:-]

  [%[1]s]:search <keyword>[-:-:-]   Search the current chat
  [%[1]s]:chat <id>[-:-:-]          Switch chat, e.g. :chat -1001234567890
  [%[1]s]:help[-:-:-] / [%[1]s]:h[-:-:-]         Show this help
  [%[1]s]:quit[-:-:-] / [%[1]s]:q[-:-:-]         Quit
`, kc)

	return &HelpView{TextView: tv}
}
