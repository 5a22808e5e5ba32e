package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/rivo/tview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlashExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	f := NewFlashModel()
	f.now = func() time.Time { return now }

	assert.Nil(t, f.Current())

	f.Info("searching")
	require.NotNil(t, f.Current())
	assert.Equal(t, "searching", f.Current().Text)
	assert.Equal(t, FlashInfo, f.Current().Level)

	now = now.Add(6 * time.Second)
	assert.Nil(t, f.Current())

	f.Err(errors.New("boom"))
	require.NotNil(t, f.Current())
	assert.Equal(t, FlashErr, f.Current().Level)
	now = now.Add(9 * time.Second)
	assert.NotNil(t, f.Current(), "errors stay longer than info")
}

func TestPagesStack(t *testing.T) {
	p := NewPages()
	p.AddPage("search", tview.NewBox(), true, false)
	p.AddPage("hit", tview.NewBox(), true, false)
	p.AddPage("help", tview.NewBox(), true, false)

	var tops []string
	p.SetOnChange(func(top string) { tops = append(tops, top) })

	p.Reset("search")
	p.Push("hit")
	p.Push("hit")
	assert.Equal(t, 2, p.Depth())
	p.Push("help")
	assert.Equal(t, "help", p.Current())

	assert.Equal(t, "hit", p.Pop())
	assert.Equal(t, "search", p.Pop())
	assert.Equal(t, "search", p.Pop(), "the root page is never popped")
	assert.Equal(t, 1, p.Depth())

	assert.Equal(t, []string{"search", "hit", "help", "hit", "search"}, tops)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "0m", FormatUptime(0))
	assert.Equal(t, "59m", FormatUptime(59*time.Minute+30*time.Second))
	assert.Equal(t, "2h5m", FormatUptime(2*time.Hour+5*time.Minute))
}
