package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/tgsearch/internal/rpc"
	"github.com/matheus3301/tgsearch/internal/tui/ui"
	"github.com/rivo/tview"
)

// ResultsView is the keyword input over the hit table.
type ResultsView struct {
	*tview.Flex
	theme   *ui.Theme
	input   *tview.InputField
	results *tview.Table
	onQuery func(keyword string)
	hits    []rpc.HitInfo
}

// NewResultsView creates the search page.
func NewResultsView(theme *ui.Theme) *ResultsView {
	input := tview.NewInputField().
		SetLabel(" Search: ").
		SetFieldWidth(0)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.BorderColor)
	results.SetBackgroundColor(theme.BgColor)
	results.SetTitle(" Results ")
	results.SetTitleColor(theme.TitleColor)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	rv := &ResultsView{
		Flex: tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(input, 1, 0, true).
			AddItem(results, 0, 1, false),
		theme:   theme,
		input:   input,
		results: results,
	}
	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && rv.onQuery != nil {
			rv.onQuery(rv.input.GetText())
		}
	})
	rv.Update(nil)
	return rv
}

// SetOnQuery sets the callback run when a keyword is submitted.
func (rv *ResultsView) SetOnQuery(fn func(keyword string)) {
	rv.onQuery = fn
}

// Update replaces the table with resp's hits. A nil resp clears it.
func (rv *ResultsView) Update(resp *rpc.SearchResponse) {
	rv.results.Clear()
	rv.hits = nil

	headers := []string{" #", " SENDER", " MESSAGE", " DATE", " SCORE"}
	for col, h := range headers {
		rv.results.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(rv.theme.TableHeaderFg).
			SetBackgroundColor(rv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold))
	}

	if resp == nil {
		rv.results.SetTitle(" Results ")
		return
	}
	rv.hits = resp.Hits
	rv.results.SetTitle(resultsTitle(resp))

	hl := ui.ColorName(rv.theme.HighlightColor)
	for i, h := range resp.Hits {
		row := i + 1
		rv.results.SetCell(row, 0, tview.NewTableCell(fmt.Sprintf(" %d", h.ID)).SetTextColor(rv.theme.CounterColor))
		rv.results.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(senderLabel(h)))).
			SetMaxWidth(24).SetTextColor(rv.theme.FgColor))
		rv.results.SetCell(row, 2, tview.NewTableCell(" "+renderFragment(flatten(h.Fragment), h.Highlighted, hl)).
			SetExpansion(1).SetTextColor(rv.theme.FgColor))
		rv.results.SetCell(row, 3, tview.NewTableCell(" "+formatDate(h.Date, time.Now())).SetTextColor(rv.theme.FgColor))
		rv.results.SetCell(row, 4, tview.NewTableCell(" "+formatScore(h.Score)).SetTextColor(rv.theme.FgColor))
	}
	if len(resp.Hits) > 0 {
		rv.results.Select(1, 0)
	}
}

// Selected returns the highlighted hit.
func (rv *ResultsView) Selected() (rpc.HitInfo, bool) {
	row, _ := rv.results.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(rv.hits) {
		return rpc.HitInfo{}, false
	}
	return rv.hits[idx], true
}

// SetSelectedFunc sets the callback run when a row is opened.
func (rv *ResultsView) SetSelectedFunc(fn func(hit rpc.HitInfo)) {
	rv.results.SetSelectedFunc(func(row, _ int) {
		if hit, ok := rv.Selected(); ok {
			fn(hit)
		}
	})
}

// Input returns the keyword field.
func (rv *ResultsView) Input() *tview.InputField { return rv.input }

// Results returns the hit table.
func (rv *ResultsView) Results() *tview.Table { return rv.results }

func resultsTitle(resp *rpc.SearchResponse) string {
	total := fmt.Sprintf("%d", resp.Total)
	if resp.Relation == "gte" {
		total += "+"
	}
	title := fmt.Sprintf(" Results [%d of %s, %s] ", len(resp.Hits), total, resp.Took)
	if resp.TimedOut {
		title += "(timed out) "
	}
	return tview.Escape(title)
}

func senderLabel(h rpc.HitInfo) string {
	switch {
	case h.SenderName != "" && h.SenderUsername != "":
		return h.SenderName + " @" + h.SenderUsername
	case h.SenderName != "":
		return h.SenderName
	case h.SenderUsername != "":
		return "@" + h.SenderUsername
	}
	return h.SenderID
}

func formatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *score)
}

// formatDate shows today's messages by time and older ones by date.
func formatDate(raw string, now time.Time) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	t = t.In(now.Location())
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	if t.Year() == now.Year() {
		return t.Format("01/02 15:04")
	}
	return t.Format("2006-01-02")
}
