package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/leonardotrapani/hyprlive/internal/recording"
	"github.com/leonardotrapani/hyprlive/internal/session"
	"github.com/leonardotrapani/hyprlive/internal/transcript"
)

type fakeConversation struct {
	mu       sync.Mutex
	startErr error
	started  int
	stopped  int
}

func (f *fakeConversation) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	return f.startErr
}

func (f *fakeConversation) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func update(t *testing.T, m talkModel, msg tea.Msg) (talkModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(talkModel), cmd
}

func TestTalkShowsTranscriptUpdates(t *testing.T) {
	m := newTalkModel(&fakeConversation{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = update(t, m, stateMsg{state: session.Connecting})
	if !strings.Contains(m.View(), "Connecting") {
		t.Errorf("view should show connecting:\n%s", m.View())
	}

	m, _ = update(t, m, stateMsg{state: session.Connected})
	m, _ = update(t, m, itemMsg{ID: "a", Role: transcript.RoleModel, Text: "Hel", Open: true})
	m, _ = update(t, m, itemMsg{ID: "a", Role: transcript.RoleModel, Text: "Hello world", Open: true})

	if len(m.items) != 1 {
		t.Fatalf("items = %d, want 1 (same ID updates in place)", len(m.items))
	}
	view := m.View()
	if !strings.Contains(view, "Listening") || !strings.Contains(view, "Hello world") {
		t.Errorf("unexpected view:\n%s", view)
	}

	m, _ = update(t, m, degradedMsg{err: errors.New("no sink")})
	if !strings.Contains(m.View(), "transcript only") {
		t.Error("degraded playback should be shown")
	}
}

func TestTalkCtrlCStopsOnce(t *testing.T) {
	conv := &fakeConversation{}
	m := newTalkModel(conv)
	m, _ = update(t, m, stateMsg{state: session.Connected})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should return a stop command")
	}
	if _, ok := cmd().(stoppedMsg); !ok {
		t.Error("stop command should report stoppedMsg")
	}
	if conv.stopped != 1 {
		t.Errorf("Stop called %d times, want 1", conv.stopped)
	}

	// a second key while stopping does nothing
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd != nil {
		t.Error("second ctrl+c should be ignored while stopping")
	}

	_, cmd = update(t, m, stoppedMsg{})
	if cmd == nil {
		t.Fatal("stopped should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("stopped should produce tea.QuitMsg")
	}
}

func TestTalkRemoteHangupStops(t *testing.T) {
	conv := &fakeConversation{}
	m := newTalkModel(conv)
	m, _ = update(t, m, stateMsg{state: session.Connected})

	m, cmd := update(t, m, stateMsg{state: session.Idle})
	if cmd == nil || !m.stopping {
		t.Fatal("idle after connected should end the view")
	}
	cmd()
	if conv.stopped != 1 {
		t.Errorf("Stop called %d times, want 1", conv.stopped)
	}
}

func TestTalkErrorIsExplained(t *testing.T) {
	m := newTalkModel(&fakeConversation{})
	m, _ = update(t, m, stateMsg{state: session.Connecting})
	m, _ = update(t, m, stateMsg{state: session.Error, err: recording.ErrPermissionDenied})

	view := m.View()
	if !strings.Contains(view, "Microphone access was denied") {
		t.Errorf("error should be explained:\n%s", view)
	}
	if !strings.Contains(view, "r to retry") || !strings.Contains(view, "any other key to exit") {
		t.Errorf("error view should offer retry and exit:\n%s", view)
	}

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	if cmd == nil {
		t.Error("any key should exit from error")
	}
}

func TestTalkStartFailure(t *testing.T) {
	conv := &fakeConversation{startErr: session.ErrNotConfigured}
	m := newTalkModel(conv)

	cmd := m.Init()
	if cmd == nil {
		t.Fatal("Init should start the conversation")
	}
	m, _ = update(t, m, startedMsg{err: conv.Start(context.Background())})
	if m.state != session.Error {
		t.Errorf("state = %s, want error", m.state)
	}
	if !strings.Contains(m.View(), "hyprlive configure") {
		t.Errorf("view should explain the failure:\n%s", m.View())
	}
}

func TestTalkRetryFromError(t *testing.T) {
	conv := &fakeConversation{}
	m := newTalkModel(conv)
	m, _ = update(t, m, stateMsg{state: session.Connected})
	m, _ = update(t, m, itemMsg{ID: "a", Role: transcript.RoleUser, Text: "hello"})
	m, _ = update(t, m, stateMsg{state: session.Error, err: recording.ErrDeviceUnavailable})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if cmd == nil {
		t.Fatal("r should retry from error")
	}
	if m.stopping {
		t.Error("retry should not end the view")
	}
	if m.err != nil || m.connected || len(m.items) != 0 {
		t.Errorf("retry should reset the view, got err=%v connected=%v items=%d", m.err, m.connected, len(m.items))
	}
	if !strings.Contains(m.View(), "Connecting") {
		t.Errorf("view should show connecting:\n%s", m.View())
	}

	msg := cmd()
	if conv.stopped != 1 || conv.started != 1 {
		t.Errorf("retry called Stop %d and Start %d times, want 1 and 1", conv.stopped, conv.started)
	}
	started, ok := msg.(startedMsg)
	if !ok || started.err != nil {
		t.Fatalf("retry should report a successful start, got %#v", msg)
	}

	// the Idle reported by Stop must not end the view
	m, cmd = update(t, m, stateMsg{state: session.Idle})
	if cmd != nil || m.stopping {
		t.Error("idle from the retry's Stop should not quit")
	}
	m, _ = update(t, m, started)
	m, _ = update(t, m, stateMsg{state: session.Connected})
	if !strings.Contains(m.View(), "Listening") {
		t.Errorf("view should be listening again:\n%s", m.View())
	}
}
