package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/leonardotrapani/hyprlive/internal/session"
	"github.com/leonardotrapani/hyprlive/internal/transcript"
)

// conversation is the part of session.Controller the talk view drives.
type conversation interface {
	Start(ctx context.Context) error
	Stop()
}

type stateMsg struct {
	state session.State
	err   error
}

type itemMsg transcript.Item

type degradedMsg struct{ err error }

type startedMsg struct{ err error }

type stoppedMsg struct{}

type talkModel struct {
	conv    conversation
	spinner spinner.Model

	state     session.State
	err       error
	degraded  bool
	connected bool
	stopping  bool
	items     []transcript.Item
	width     int
}

func newTalkModel(conv conversation) talkModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StyleHighlight
	return talkModel{conv: conv, spinner: s, state: session.Idle}
}

func (m talkModel) Init() tea.Cmd {
	conv := m.conv
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return startedMsg{err: conv.Start(context.Background())}
	})
}

func (m talkModel) stop() (talkModel, tea.Cmd) {
	if m.stopping {
		return m, nil
	}
	m.stopping = true
	conv := m.conv
	// Stop waits for teardown, so it must not run on the update loop
	return m, func() tea.Msg {
		conv.Stop()
		return stoppedMsg{}
	}
}

// retry ends the failed conversation and starts a new one. Like stop, the
// controller calls run in a command, off the update loop.
func (m talkModel) retry() (talkModel, tea.Cmd) {
	if m.stopping {
		return m, nil
	}
	m.state = session.Connecting
	m.err = nil
	m.connected = false
	m.degraded = false
	m.items = nil
	conv := m.conv
	return m, func() tea.Msg {
		conv.Stop()
		return startedMsg{err: conv.Start(context.Background())}
	}
}

func (m talkModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m.stop()
		}
		if m.state == session.Error {
			if msg.String() == "r" {
				return m.retry()
			}
			return m.stop()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case startedMsg:
		if msg.err != nil {
			m.state = session.Error
			m.err = msg.err
		}

	case stateMsg:
		m.state = msg.state
		switch msg.state {
		case session.Connected:
			m.connected = true
		case session.Error:
			m.err = msg.err
		case session.Idle:
			// the service hung up
			if m.connected && !m.stopping {
				return m.stop()
			}
		}

	case itemMsg:
		m.upsert(transcript.Item(msg))

	case degradedMsg:
		m.degraded = true

	case stoppedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *talkModel) upsert(item transcript.Item) {
	for i := range m.items {
		if m.items[i].ID == item.ID {
			m.items[i] = item
			return
		}
	}
	m.items = append(m.items, item)
}

func (m talkModel) View() string {
	var b strings.Builder

	b.WriteString(m.statusLine())
	b.WriteString("\n\n")
	b.WriteString(RenderTranscript(m.items, m.width))
	b.WriteString("\n\n")

	switch {
	case m.stopping:
		b.WriteString(StyleMuted.Render("Ending conversation..."))
	case m.state == session.Error:
		b.WriteString(StyleMuted.Render("r to retry, any other key to exit"))
	default:
		b.WriteString(StyleMuted.Render("ctrl+c / q to end the conversation"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m talkModel) statusLine() string {
	switch m.state {
	case session.Connecting:
		return m.spinner.View() + " " + StyleHighlight.Render("Connecting...")
	case session.Connected:
		line := StyleSuccess.Render("● Listening")
		if m.degraded {
			line += "  " + StyleWarning.Render("no audio output - transcript only")
		}
		return line
	case session.Error:
		return StyleError.Render("Conversation stopped") + "\n" + StyleWarning.Render(session.Explain(m.err))
	default:
		if m.connected {
			return StyleMuted.Render("Conversation ended")
		}
		return m.spinner.View() + " " + StyleMuted.Render("Starting...")
	}
}

// Talk runs one conversation in the foreground and draws the transcript as
// it arrives. It returns when the user or the service ends the conversation,
// with the error that stopped it, if any.
func Talk(deps session.Deps, opts session.Options) error {
	var p *tea.Program

	opts.OnStateChange = func(state session.State, err error) {
		p.Send(stateMsg{state: state, err: err})
	}
	opts.OnTranscript = func(item transcript.Item) {
		p.Send(itemMsg(item))
	}
	opts.OnDegraded = func(err error) {
		p.Send(degradedMsg{err: err})
	}

	c := session.New(deps, opts)
	p = tea.NewProgram(newTalkModel(c))

	_, err := p.Run()
	c.Stop()
	if err != nil {
		return err
	}
	return c.Err()
}
