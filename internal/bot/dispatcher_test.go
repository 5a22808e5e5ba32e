package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matheus3301/tgsearch/internal/bus"
	"github.com/matheus3301/tgsearch/internal/reply"
	"github.com/matheus3301/tgsearch/internal/search"
	"github.com/matheus3301/tgsearch/internal/status"
	"github.com/matheus3301/tgsearch/internal/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndexer struct {
	mu   sync.Mutex
	msgs []*search.ChatMessage
}

func (f *fakeIndexer) Index(_ context.Context, msg *search.ChatMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

type fakeSearcher struct {
	mu    sync.Mutex
	calls int
	res   *search.Result
	err   error
}

func (f *fakeSearcher) Search(_ context.Context, _ int64, _ string) (*search.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.res, f.err
}

type fakeSender struct {
	sent chan reply.Message
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(chan reply.Message, 10)}
}

func (f *fakeSender) Send(_ context.Context, m reply.Message) error {
	f.sent <- m
	return nil
}

func (f *fakeSender) next(t *testing.T) reply.Message {
	t.Helper()
	select {
	case m := <-f.sent:
		return m
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for reply")
		return reply.Message{}
	}
}

type harness struct {
	d        *Dispatcher
	bus      *bus.Bus
	indexer  *fakeIndexer
	searcher *fakeSearcher
	sender   *fakeSender
	machine  *status.Machine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		bus:      bus.New(),
		indexer:  &fakeIndexer{},
		searcher: &fakeSearcher{res: &search.Result{}},
		sender:   newFakeSender(),
	}
	h.machine = status.NewMachine(h.bus)
	require.NoError(t, h.machine.Transition(status.Connecting))
	require.NoError(t, h.machine.Transition(status.Ready))

	d, err := NewDispatcher(Deps{
		Bus:      h.bus,
		Indexer:  h.indexer,
		Searcher: h.searcher,
		Sender:   h.sender,
		Machine:  h.machine,
	}, 0)
	require.NoError(t, err)
	t.Cleanup(func() { d.Stop(time.Second) })
	h.d = d
	return h
}

func searchCmd(args string) *telegram.Command {
	return &telegram.Command{Name: telegram.CmdSearch, Args: args, ChatID: -1001234567890, MessageID: 10}
}

func TestMessageEventIsIndexed(t *testing.T) {
	h := newHarness(t)
	msg := &search.ChatMessage{ChatID: -1001, ID: 1, Text: "hi"}

	h.d.HandleEvent(context.Background(), bus.Event{Kind: bus.KindMessage, Payload: msg})

	require.Len(t, h.indexer.msgs, 1)
	assert.Same(t, msg, h.indexer.msgs[0])
}

func TestEmptyKeywordNeverReachesEngine(t *testing.T) {
	for _, args := range []string{"", "   "} {
		h := newHarness(t)
		h.d.HandleCommand(context.Background(), searchCmd(args))

		m := h.sender.next(t)
		assert.Equal(t, reply.UsageHint, m.Text)
		assert.Equal(t, 10, m.ReplyTo)
		assert.False(t, m.HTML)
		assert.Zero(t, h.searcher.calls)
	}
}

func TestSearchNoResults(t *testing.T) {
	h := newHarness(t)
	h.d.HandleCommand(context.Background(), searchCmd("needle"))

	m := h.sender.next(t)
	assert.Equal(t, reply.NoResults, m.Text)
	assert.Equal(t, 1, h.searcher.calls)
}

func TestSearchWithHits(t *testing.T) {
	h := newHarness(t)
	h.searcher.res = &search.Result{Hits: search.Hits{Hits: []search.Hit{{
		Source:    search.Document{ID: 42, SenderName: "Ann", Message: "a needle"},
		Highlight: &search.Highlight{Message: []string{"a <b>needle</b>"}},
	}}}}

	h.d.HandleCommand(context.Background(), searchCmd("needle"))

	m := h.sender.next(t)
	assert.True(t, m.HTML)
	assert.Equal(t, int64(-1001234567890), m.ChatID)
	assert.Equal(t, `<a href="https://t.me/c/1234567890/42">42</a> Ann:`+"\n  a <b>needle</b>", m.Text)
}

func TestSearchFailureDegradesAndRecovers(t *testing.T) {
	h := newHarness(t)
	h.searcher.err = &search.EngineError{Op: search.OpSearch, Err: errors.New("connection refused")}

	h.d.HandleCommand(context.Background(), searchCmd("needle"))
	m := h.sender.next(t)
	assert.Contains(t, m.Text, "Search failed:")
	assert.Contains(t, m.Text, "connection refused")
	assert.Equal(t, status.Degraded, h.machine.Current())

	h.searcher.err = nil
	h.d.HandleCommand(context.Background(), searchCmd("needle"))
	h.sender.next(t)
	assert.Equal(t, status.Ready, h.machine.Current())
}

func TestSearchReturnsEngineError(t *testing.T) {
	h := newHarness(t)
	engineErr := &search.EngineError{Op: search.OpSearch, Status: 500, Body: "boom"}
	h.searcher.err = engineErr

	_, err := h.d.Search(context.Background(), -1001, "needle")
	var got *search.EngineError
	require.ErrorAs(t, err, &got)
	assert.Same(t, engineErr, got)

	_, err = h.d.Search(context.Background(), -1001, " ")
	assert.ErrorIs(t, err, ErrEmptyKeyword)
}

func TestHelpAndStart(t *testing.T) {
	for _, name := range []string{telegram.CmdHelp, telegram.CmdStart} {
		h := newHarness(t)
		h.d.HandleCommand(context.Background(), &telegram.Command{Name: name, ChatID: 5, MessageID: 3})

		m := h.sender.next(t)
		assert.Equal(t, reply.Help(), m.Text)
		assert.Equal(t, 3, m.ReplyTo)
	}
}

func TestStartConsumesBus(t *testing.T) {
	h := newHarness(t)
	h.d.Start(context.Background())

	// Subscription happens synchronously in Start.
	h.bus.Publish(bus.Event{Kind: bus.KindCommand, Payload: searchCmd("")})

	m := h.sender.next(t)
	assert.Equal(t, reply.UsageHint, m.Text)
}

func TestIgnoresUnknownPayloads(t *testing.T) {
	h := newHarness(t)
	assert.NotPanics(t, func() {
		h.d.HandleEvent(context.Background(), bus.Event{Kind: bus.KindMessage, Payload: "nope"})
		h.d.HandleEvent(context.Background(), bus.Event{Kind: bus.KindCommand, Payload: 42})
		h.d.HandleEvent(context.Background(), bus.Event{Kind: "tg.other"})
	})
	assert.Empty(t, h.indexer.msgs)
}

// gatedIndexer blocks every Index call until release is closed.
type gatedIndexer struct {
	release chan struct{}
	entered chan struct{}
	count   atomic.Int64
	errs    chan error
}

func newGatedIndexer() *gatedIndexer {
	return &gatedIndexer{
		release: make(chan struct{}),
		entered: make(chan struct{}, 1),
		errs:    make(chan error, 1),
	}
}

func (g *gatedIndexer) Index(ctx context.Context, _ *search.ChatMessage) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	select {
	case g.errs <- ctx.Err():
	default:
	}
	g.count.Add(1)
}

func TestBurstIsIndexedInFull(t *testing.T) {
	for _, workers := range []int{0, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			b := bus.New()
			var dropped atomic.Int64
			b.OnDrop(func(string, bus.Event) { dropped.Add(1) })
			indexer := newGatedIndexer()

			d, err := NewDispatcher(Deps{Bus: b, Indexer: indexer, Searcher: &fakeSearcher{}, Sender: newFakeSender()}, workers)
			require.NoError(t, err)
			d.Start(context.Background())
			t.Cleanup(func() { d.Stop(5 * time.Second) })

			const n = 1000
			published := make(chan struct{})
			go func() {
				defer close(published)
				for i := 0; i < n; i++ {
					b.Publish(bus.Event{Kind: bus.KindMessage, Payload: &search.ChatMessage{ChatID: -1001, ID: uint32(i + 1), Text: "m"}})
				}
			}()

			<-indexer.entered
			close(indexer.release)

			select {
			case <-published:
			case <-time.After(5 * time.Second):
				t.Fatal("publisher stuck")
			}
			require.Eventually(t, func() bool { return indexer.count.Load() == n },
				5*time.Second, 10*time.Millisecond)
			assert.Zero(t, dropped.Load())
		})
	}
}

func TestStopLetsRunningTasksFinish(t *testing.T) {
	b := bus.New()
	indexer := newGatedIndexer()
	d, err := NewDispatcher(Deps{Bus: b, Indexer: indexer, Searcher: &fakeSearcher{}, Sender: newFakeSender()}, 0)
	require.NoError(t, err)
	d.Start(context.Background())

	b.Publish(bus.Event{Kind: bus.KindMessage, Payload: &search.ChatMessage{ChatID: -1001, ID: 1, Text: "m"}})
	<-indexer.entered

	stopped := make(chan struct{})
	go func() {
		d.Stop(5 * time.Second)
		close(stopped)
	}()

	time.Sleep(50 * time.Millisecond)
	close(indexer.release)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.NoError(t, <-indexer.errs, "task context cancelled while the task was running")
	assert.Equal(t, int64(1), indexer.count.Load())
}
