// Package preview is a terminal stand-in for the keypad: it loads the macro
// directory, runs the device loop against simulated hardware and shows what
// the display and HID output would be.
package preview

import (
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/macropad/internal/device"
	"github.com/marcus/macropad/internal/models"
	"github.com/marcus/macropad/internal/profile"
	"github.com/marcus/macropad/internal/store"
)

// MinWidth is the minimum terminal width for proper display
const MinWidth = 40

// DefaultRefreshInterval is how often the macro directory is re-read.
const DefaultRefreshInterval = 2 * time.Second

// TickMsg triggers a reload of the macro directory
type TickMsg time.Time

// ReloadMsg carries a freshly loaded store
type ReloadMsg struct {
	Store     *store.Store
	Err       error
	Timestamp time.Time
}

// Model is the Bubble Tea model for the preview TUI
type Model struct {
	Dir     string
	Options profile.Options

	// Window dimensions
	Width  int
	Height int

	store *store.Store
	loop  *device.Loop
	sink  *sink

	// UI state
	Cursor      int
	Help        help.Model
	LastRefresh time.Time
	Err         error

	RefreshInterval time.Duration
	brightness      float64
	keys            keyMap
	logger          *slog.Logger
}

// NewModel creates a preview over an already loaded store.
func NewModel(st *store.Store, interval time.Duration, brightness float64) Model {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	m := Model{
		Dir:             st.Dir(),
		Options:         st.Options(),
		RefreshInterval: interval,
		Help:            help.New(),
		LastRefresh:     time.Now(),
		brightness:      brightness,
		keys:            defaultKeys,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	m.attach(st, "")
	return m
}

// attach builds a device loop over st, keeping the named profile selected
// when it still exists.
func (m *Model) attach(st *store.Store, keep string) {
	if m.sink != nil {
		m.brightness = m.sink.brightness
	}
	m.store = st
	m.sink = &sink{}
	m.loop = device.New(st, nil,
		device.WithEncoder(m.sink),
		device.WithDisplay(m.sink),
		device.WithHID(m.sink),
		device.WithAudio(m.sink),
		device.WithBrightness(m.brightness),
		device.WithLogger(m.logger))
	if keep != "" {
		m.loop.Selection().SelectName(st, keep)
	}
	m.sink.position = m.loop.Selection().Index(st)
	m.loop.Step()
}

// Current returns the selected profile, or nil.
func (m Model) Current() *profile.Profile { return m.loop.Current() }

// Activity returns the HID and audio events triggered so far, oldest first.
func (m Model) Activity() []string { return m.sink.activity }

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return m.scheduleTick()
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Help.Width = msg.Width
		return m, nil

	case TickMsg:
		return m, tea.Batch(m.reload(), m.scheduleTick())

	case ReloadMsg:
		m.LastRefresh = msg.Timestamp
		m.Err = msg.Err
		if msg.Err == nil && msg.Store != nil {
			activity := m.sink.activity
			m.attach(msg.Store, m.loop.Selection().CurrentName(m.store))
			m.sink.activity = activity
		}
		return m, nil
	}

	return m, nil
}

// handleKey processes key input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.Help.ShowAll = !m.Help.ShowAll

	case key.Matches(msg, m.keys.Left):
		if m.Cursor%3 > 0 {
			m.Cursor--
		}

	case key.Matches(msg, m.keys.Right):
		if m.Cursor%3 < 2 {
			m.Cursor++
		}

	case key.Matches(msg, m.keys.Up):
		if m.Cursor >= 3 {
			m.Cursor -= 3
		}

	case key.Matches(msg, m.keys.Down):
		if m.Cursor+3 < models.NumKeys {
			m.Cursor += 3
		}

	case key.Matches(msg, m.keys.Press):
		m.sink.log("── key%d ──", m.Cursor+1)
		m.loop.HandleKey(device.KeyEvent{Index: m.Cursor, Pressed: true})
		m.loop.HandleKey(device.KeyEvent{Index: m.Cursor})

	case key.Matches(msg, m.keys.NextProfile):
		m.sink.position++
		m.loop.Step()

	case key.Matches(msg, m.keys.PrevProfile):
		m.sink.position--
		m.loop.Step()

	case key.Matches(msg, m.keys.Brightness):
		m.sink.clicks++
		m.loop.Step()

	case key.Matches(msg, m.keys.Reload):
		return m, m.reload()
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}

// scheduleTick returns a command that sends a TickMsg after the refresh interval
func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.RefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// reload returns a command that re-reads the macro directory
func (m Model) reload() tea.Cmd {
	dir, opts, logger := m.Dir, m.Options, m.logger
	return func() tea.Msg {
		st, err := store.Load(dir, store.WithOptions(opts), store.WithLogger(logger))
		return ReloadMsg{Store: st, Err: err, Timestamp: time.Now()}
	}
}
