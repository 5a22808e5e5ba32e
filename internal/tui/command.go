package tui

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is a parsed ":" prompt line.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a prompt line without its leading ':'. Short aliases
// are expanded to their full name.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	switch cmd.Name {
	case "s":
		cmd.Name = "search"
	case "c":
		cmd.Name = "chat"
	case "h", "?":
		cmd.Name = "help"
	case "q", "q!", "exit":
		cmd.Name = "quit"
	}
	return cmd
}

// ParseChatID parses a chat identifier argument.
func ParseChatID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid chat id %q", arg)
	}
	return id, nil
}
