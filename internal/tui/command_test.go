package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"search hello world", Command{Name: "search", Args: "hello world"}},
		{"  S   needle  ", Command{Name: "search", Args: "needle"}},
		{"chat -1001234", Command{Name: "chat", Args: "-1001234"}},
		{"c 42", Command{Name: "chat", Args: "42"}},
		{"h", Command{Name: "help"}},
		{"q", Command{Name: "quit"}},
		{"quit", Command{Name: "quit"}},
		{"bogus arg", Command{Name: "bogus", Args: "arg"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCommand(tt.in))
		})
	}
}

func TestParseChatID(t *testing.T) {
	id, err := ParseChatID(" -1001234567890 ")
	require.NoError(t, err)
	assert.Equal(t, int64(-1001234567890), id)

	for _, bad := range []string{"", "0", "abc", "12x"} {
		_, err := ParseChatID(bad)
		assert.Error(t, err, bad)
	}
}
