package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/matheus3301/tgsearch/internal/config"
	"github.com/matheus3301/tgsearch/internal/instance"
	"github.com/matheus3301/tgsearch/internal/rpc"
	"github.com/matheus3301/tgsearch/internal/tui"
	"github.com/skip2/go-qrcode"
	"github.com/urfave/cli/v2"
)

const callTimeout = 10 * time.Second

func instanceName(c *cli.Context) (string, error) {
	name := instance.Resolve(c.String("instance"))
	if err := instance.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

func dial(c *cli.Context) (string, *rpc.Client, error) {
	name, err := instanceName(c)
	if err != nil {
		return "", nil, err
	}
	client, err := rpc.Dial(instance.SocketPath(name))
	if err != nil {
		return "", nil, fmt.Errorf("cannot connect to daemon for instance %q: %w", name, err)
	}
	return name, client, nil
}

func statusCommand(c *cli.Context) error {
	name, client, err := dial(c)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(c.Context, callTimeout)
	defer cancel()

	health, err := client.Check(ctx)
	if err != nil {
		return fmt.Errorf("daemon for instance %q is not running: %w", name, err)
	}
	st, err := client.Status(ctx)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return writeJSON(c.App.Writer, map[string]any{
			"health":      health.String(),
			"instance":    st.Instance,
			"state":       st.State,
			"state_since": st.StateSince,
			"username":    st.Username,
			"uptime_ms":   st.Uptime.Milliseconds(),
			"indexed":     st.Indexed,
			"skipped":     st.Skipped,
			"failed":      st.Failed,
		})
	}
	printStatus(c.App.Writer, health.String(), st)
	return nil
}

func printStatus(w io.Writer, health string, st *rpc.StatusInfo) {
	bot := "-"
	if st.Username != "" {
		bot = "@" + st.Username
	}
	_, _ = fmt.Fprintf(w, "Instance: %s\n", st.Instance)
	_, _ = fmt.Fprintf(w, "Bot:      %s\n", bot)
	_, _ = fmt.Fprintf(w, "State:    %s (since %s)\n", st.State, st.StateSince)
	_, _ = fmt.Fprintf(w, "Health:   %s\n", health)
	_, _ = fmt.Fprintf(w, "Uptime:   %s\n", st.Uptime.Round(time.Second))
	_, _ = fmt.Fprintf(w, "Indexed:  %d (skipped %d, failed %d)\n", st.Indexed, st.Skipped, st.Failed)
}

func searchCommand(c *cli.Context) error {
	keyword := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if keyword == "" {
		return errors.New("usage: tgsearchctl search --chat=ID KEYWORD...")
	}
	_, client, err := dial(c)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(c.Context, callTimeout)
	defer cancel()

	resp, err := client.Search(ctx, c.Int64("chat"), keyword)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, resp)
	}
	printSearch(c.App.Writer, resp)
	return nil
}

func printSearch(w io.Writer, resp *rpc.SearchResponse) {
	if len(resp.Hits) == 0 {
		_, _ = fmt.Fprintln(w, resp.Reply)
		return
	}
	total := fmt.Sprintf("%d", resp.Total)
	if resp.Relation == "gte" {
		total += "+"
	}
	_, _ = fmt.Fprintf(w, "%d of %s hits in %s\n\n", len(resp.Hits), total, resp.Took)
	for _, h := range resp.Hits {
		sender := h.SenderName
		if h.SenderUsername != "" {
			sender = strings.TrimSpace(sender + " @" + h.SenderUsername)
		}
		if sender == "" {
			sender = h.SenderID
		}
		_, _ = fmt.Fprintf(w, "#%d  %s  %s\n", h.ID, h.Date, sender)
		_, _ = fmt.Fprintf(w, "    %s\n", strings.Join(strings.Fields(h.Message), " "))
		if h.Link != "" {
			_, _ = fmt.Fprintf(w, "    %s\n", h.Link)
		}
	}
}

func browseCommand(c *cli.Context) error {
	name, err := instanceName(c)
	if err != nil {
		return err
	}
	socket := instance.SocketPath(name)
	if !probeDaemon(socket) {
		if c.Bool("no-start") {
			return fmt.Errorf("daemon for instance %q is not running", name)
		}
		_, _ = fmt.Fprintf(c.App.ErrWriter, "daemon not running for instance %q, starting...\n", name)
		if err := startDaemon(name); err != nil {
			return fmt.Errorf("start daemon: %w", err)
		}
		if !waitForDaemon(socket, 15*time.Second) {
			return errors.New("daemon did not become ready, see its log in " + instance.LogPath(name))
		}
	}

	client, err := rpc.Dial(socket)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	return tui.NewApp(client, tui.Options{Instance: name, ChatID: c.Int64("chat")}).Run()
}

// inviteLink opens Telegram's add-to-group flow for the bot.
func inviteLink(username string) string {
	return "https://t.me/" + username + "?startgroup=true"
}

func inviteCommand(c *cli.Context) error {
	_, client, err := dial(c)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(c.Context, callTimeout)
	defer cancel()

	st, err := client.Status(ctx)
	if err != nil {
		return err
	}
	if st.Username == "" {
		return fmt.Errorf("bot is not connected yet (state %s)", st.State)
	}

	link := inviteLink(st.Username)
	if c.Bool("json") {
		return writeJSON(c.App.Writer, map[string]string{"username": st.Username, "link": link})
	}
	qr, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("render qr code: %w", err)
	}
	_, _ = fmt.Fprintf(c.App.Writer, "Add @%s to a group:\n\n%s\n%s\n", st.Username, qr.ToSmallString(false), link)
	return nil
}

func useCommand(c *cli.Context) error {
	name := c.Args().First()
	if name == "" || c.NArg() > 1 {
		return errors.New("usage: tgsearchctl use NAME")
	}
	if err := instance.ValidateName(name); err != nil {
		return err
	}

	path := instance.ConfigPath()
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	cfg.DefaultInstance = name
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	_, _ = fmt.Fprintf(c.App.Writer, "Default instance set to %q\n", name)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
