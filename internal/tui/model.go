package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"httpdiff/internal/httpdiff"
	"httpdiff/internal/state"
)

// tickRate is how often the UI flushes time-driven state; the 200 ms
// application tick is derived from it inside AppState.
const tickRate = 60 * time.Millisecond

type (
	actionMsg struct{ action httpdiff.Action }
	tickMsg   time.Time
)

// Model is the bubbletea model wrapping AppState. All mutation goes through
// the reducer; the model itself only holds rendering concerns.
type Model struct {
	State *state.AppState

	bus      *httpdiff.Bus
	sub      *httpdiff.Subscription
	viewport viewport.Model
	width    int
	height   int
}

// New builds the TUI model and attaches it to the action bus.
func New(appState *state.AppState, bus *httpdiff.Bus) Model {
	return Model{
		State:    appState,
		bus:      bus,
		sub:      bus.Subscribe(),
		viewport: viewport.New(0, 0),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForAction(), tick())
}

func (m Model) waitForAction() tea.Cmd {
	sub := m.sub
	return func() tea.Msg {
		return actionMsg{action: <-sub.C}
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 10
		return m, nil

	case tea.KeyMsg:
		if action := keyToAction(msg, m.State); action != nil {
			m.bus.Send(action)
		}
		return m, nil

	case tea.MouseMsg:
		if action := mouseToAction(msg, m.State); action != nil {
			m.bus.Send(action)
		}
		return m, nil

	case actionMsg:
		state.RunActionChain(m.State, msg.action, m.bus.Send)
		if m.State.ShouldQuit {
			return m, tea.Quit
		}
		return m, m.waitForAction()

	case tickMsg:
		state.Tick(m.State, time.Time(msg))
		if m.State.ShouldQuit {
			return m, tea.Quit
		}
		return m, tick()
	}

	return m, nil
}

// Run starts the TUI program and blocks until quit.
func Run(appState *state.AppState, bus *httpdiff.Bus) error {
	program := tea.NewProgram(
		New(appState, bus),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := program.Run()
	return err
}
