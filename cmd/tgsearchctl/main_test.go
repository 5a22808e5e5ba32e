package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"testing"

	"github.com/matheus3301/tgsearch/internal/bus"
	"github.com/matheus3301/tgsearch/internal/config"
	"github.com/matheus3301/tgsearch/internal/instance"
	"github.com/matheus3301/tgsearch/internal/rpc"
	"github.com/matheus3301/tgsearch/internal/search"
	"github.com/matheus3301/tgsearch/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	res *search.Result
}

func (s stubSearcher) Search(context.Context, int64, string) (*search.Result, error) {
	return s.res, nil
}

type stubStats search.IndexStats

func (s stubStats) Stats() search.IndexStats { return search.IndexStats(s) }

type stubBot string

func (s stubBot) Username() string { return string(s) }

func testHome(t *testing.T) {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "tgs-ctl-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	t.Setenv(instance.HomeEnv, dir)
}

// serveControl serves the control plane for instance "main" under the test home.
func serveControl(t *testing.T, res *search.Result) {
	t.Helper()
	require.NoError(t, instance.EnsureDir("main"))

	b := bus.New()
	machine := status.NewMachine(b)
	require.NoError(t, machine.Transition(status.Connecting))
	require.NoError(t, machine.Transition(status.Ready))

	control := rpc.NewControlService("main", machine, stubSearcher{res: res},
		stubStats{Indexed: 5, Skipped: 2, Failed: 1}, stubBot("tgsearch_bot"))
	health := rpc.NewHealthReporter(machine, b)
	health.Start(context.Background())

	srv, err := rpc.NewServer(instance.SocketPath("main"), nil, control, health)
	require.NoError(t, err)
	go func() { _ = srv.Start() }()
	t.Cleanup(func() {
		srv.Stop(context.Background())
		health.Stop()
	})
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"tgsearchctl"}, args...))
	return out.String(), err
}

func TestUseWritesDefaultInstance(t *testing.T) {
	testHome(t)

	out, err := run(t, "use", "work")
	require.NoError(t, err)
	assert.Contains(t, out, `"work"`)

	cfg, err := config.Load(instance.ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, "work", cfg.DefaultInstance)
	assert.Equal(t, "work", instance.Resolve(""))
	assert.Equal(t, "other", instance.Resolve("other"))
}

func TestUseRejectsBadName(t *testing.T) {
	testHome(t)

	_, err := run(t, "use", "Not Valid")
	require.Error(t, err)
	_, err = run(t, "use")
	require.Error(t, err)

	_, statErr := os.Stat(instance.ConfigPath())
	assert.True(t, os.IsNotExist(statErr), "nothing written on error")
}

func TestStatusCommand(t *testing.T) {
	testHome(t)
	serveControl(t, &search.Result{})

	out, err := run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Bot:      @tgsearch_bot")
	assert.Contains(t, out, "State:    READY")
	assert.Contains(t, out, "Health:   SERVING")
	assert.Contains(t, out, "Indexed:  5 (skipped 2, failed 1)")

	out, err = run(t, "--json", "status")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "READY", decoded["state"])
	assert.Equal(t, "tgsearch_bot", decoded["username"])
}

func TestStatusWithoutDaemon(t *testing.T) {
	testHome(t)

	_, err := run(t, "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}

func TestSearchCommand(t *testing.T) {
	testHome(t)
	handle := "ann"
	serveControl(t, &search.Result{
		Hits: search.Hits{
			Total: search.Total{Value: 1, Relation: "eq"},
			Hits: []search.Hit{{
				Source: search.Document{ID: 42, SenderID: 7, SenderName: "Ann", SenderUsername: &handle,
					Date: "2024-05-10T09:30:00Z", Message: "a needle\nin a haystack"},
			}},
		},
	})

	out, err := run(t, "search", "--chat=-1001234567890", "needle")
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 1 hits")
	assert.Contains(t, out, "#42  2024-05-10T09:30:00Z  Ann @ann")
	assert.Contains(t, out, "a needle in a haystack")
	assert.Contains(t, out, "https://t.me/c/1234567890/42")
}

func TestSearchCommandNoHits(t *testing.T) {
	testHome(t)
	serveControl(t, &search.Result{})

	out, err := run(t, "search", "--chat=-1001", "needle")
	require.NoError(t, err)
	assert.Equal(t, "No results found.\n", out)
}

func TestSearchCommandNeedsKeyword(t *testing.T) {
	testHome(t)

	_, err := run(t, "search", "--chat=-1001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage")
}

func TestInviteCommand(t *testing.T) {
	testHome(t)
	serveControl(t, &search.Result{})

	out, err := run(t, "invite")
	require.NoError(t, err)
	assert.Contains(t, out, "Add @tgsearch_bot to a group")
	assert.Contains(t, out, "https://t.me/tgsearch_bot?startgroup=true")

	out, err = run(t, "--json", "invite")
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"tgsearch_bot","link":"https://t.me/tgsearch_bot?startgroup=true"}`, out)
}

func TestProbeDaemon(t *testing.T) {
	testHome(t)
	assert.False(t, probeDaemon(instance.SocketPath("main")))

	serveControl(t, &search.Result{})
	assert.True(t, probeDaemon(instance.SocketPath("main")))
}
