package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "tgsearchctl",
		Usage: "Control a tgsearchd instance and search its chats",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "instance",
				Aliases: []string{"i"},
				Usage:   "instance name (overrides config default)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "output in JSON format",
			},
		},
		HideHelpCommand: true,
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show daemon health and status",
				Action: statusCommand,
			},
			{
				Name:      "search",
				Usage:     "Search a chat's messages",
				ArgsUsage: "KEYWORD...",
				Flags:     []cli.Flag{chatFlag()},
				Action:    searchCommand,
			},
			{
				Name:  "browse",
				Usage: "Open the terminal search browser",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:  "chat",
						Usage: "chat id to search, e.g. --chat=-1001234567890",
					},
					&cli.BoolFlag{
						Name:  "no-start",
						Usage: "fail instead of starting the daemon when it is not running",
					},
				},
				Action: browseCommand,
			},
			{
				Name:   "invite",
				Usage:  "Print the link and QR code that add the bot to a group",
				Action: inviteCommand,
			},
			{
				Name:      "use",
				Usage:     "Set the default instance",
				ArgsUsage: "NAME",
				Action:    useCommand,
			},
		},
	}
}

func chatFlag() cli.Flag {
	return &cli.Int64Flag{
		Name:     "chat",
		Usage:    "chat id, e.g. --chat=-1001234567890",
		Required: true,
	}
}
