// Package keys maps key events to browser actions.
package keys

import (
	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/tgsearch/internal/tui/ui"
)

// Action is a key binding.
type Action struct {
	Key     tcell.Key
	Rune    rune
	Label   string
	Help    string
	Handler func()
	Visible bool
}

// Matches reports whether ev triggers a.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Registry holds global and per-page bindings in registration order.
type Registry struct {
	global []*Action
	pages  map[string][]*Action
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pages: make(map[string][]*Action)}
}

// AddGlobal registers a binding active on every page.
func (r *Registry) AddGlobal(a *Action) {
	r.global = append(r.global, a)
}

// AddPage registers a binding active on page only.
func (r *Registry) AddPage(page string, a *Action) {
	r.pages[page] = append(r.pages[page], a)
}

// Hints returns the visible bindings for page: page bindings first.
func (r *Registry) Hints(page string) []ui.MenuHint {
	var hints []ui.MenuHint
	for _, set := range [][]*Action{r.pages[page], r.global} {
		for _, a := range set {
			if a.Visible {
				hints = append(hints, ui.MenuHint{Key: a.Label, Description: a.Help})
			}
		}
	}
	return hints
}

// HandleEvent runs the first binding on page, then global, matching ev.
// It reports whether one ran.
func (r *Registry) HandleEvent(page string, ev *tcell.EventKey) bool {
	for _, set := range [][]*Action{r.pages[page], r.global} {
		for _, a := range set {
			if a.Matches(ev) {
				a.Handler()
				return true
			}
		}
	}
	return false
}
