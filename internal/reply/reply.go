// Package reply renders the bot's chat replies.
package reply

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/matheus3301/tgsearch/internal/search"
)

// Fixed reply texts.
const (
	UsageHint = "Usage: /search <keyword>"
	NoResults = "No results found."
)

// Command describes one bot command for the help text.
type Command struct {
	Name        string
	Description string
}

// Commands lists the commands the bot answers, in help order.
var Commands = []Command{
	{Name: "help", Description: "display this text."},
	{Name: "start", Description: "display this text."},
	{Name: "search", Description: "search for message."},
}

// Message is an outbound chat reply.
type Message struct {
	ChatID  int64
	ReplyTo int
	Text    string
	HTML    bool
}

// Help returns the command list.
func Help() string {
	var b strings.Builder
	b.WriteString("These commands are supported:")
	for _, c := range Commands {
		fmt.Fprintf(&b, "\n/%s — %s", c.Name, c.Description)
	}
	return b.String()
}

// Failure is the reply for a search the engine could not answer.
func Failure(err error) string {
	return fmt.Sprintf("Search failed: %v", err)
}

// Link returns the public link to message id in chatID. Supergroup ids carry
// a -100 prefix that t.me/c links omit.
func Link(chatID int64, id string) string {
	chat := strings.TrimPrefix(strconv.FormatInt(chatID, 10), "-100")
	return fmt.Sprintf("https://t.me/c/%s/%s", chat, id)
}

// Line renders one hit. Highlight fragments already carry engine markup and
// are kept as is; the raw message fallback is escaped.
func Line(chatID int64, hit *search.Hit) string {
	fragment, highlighted := hit.Fragment()
	if !highlighted {
		fragment = html.EscapeString(fragment)
	}
	id := hit.DocID()
	return fmt.Sprintf(`<a href="%s">%s</a> %s:`+"\n  %s",
		Link(chatID, id),
		html.EscapeString(id),
		html.EscapeString(hit.Source.SenderName),
		fragment,
	)
}

// Format renders a search result for chatID: one line per hit in engine
// order separated by blank lines, or NoResults.
func Format(chatID int64, res *search.Result) string {
	if res == nil || res.Empty() {
		return NoResults
	}
	lines := make([]string, 0, len(res.Hits.Hits))
	for i := range res.Hits.Hits {
		lines = append(lines, Line(chatID, &res.Hits.Hits[i]))
	}
	return strings.Join(lines, "\n\n")
}

// ForSearch builds the reply to a /search command. A nil error with a nil
// result is treated as zero hits.
func ForSearch(chatID int64, replyTo int, res *search.Result, err error) Message {
	if err != nil {
		return Message{ChatID: chatID, ReplyTo: replyTo, Text: Failure(err)}
	}
	if res == nil || res.Empty() {
		return Message{ChatID: chatID, ReplyTo: replyTo, Text: NoResults}
	}
	return Message{ChatID: chatID, ReplyTo: replyTo, Text: Format(chatID, res), HTML: true}
}
