// Package tui provides a Bubble Tea terminal user interface for rp.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/handiism/track-reconciler/internal/config"
	ioutils "github.com/handiism/track-reconciler/internal/io"
	"github.com/handiism/track-reconciler/internal/library"
	"github.com/handiism/track-reconciler/internal/logging"
	"github.com/handiism/track-reconciler/internal/model"
	"github.com/handiism/track-reconciler/internal/transfer"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	trackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// State represents the current UI state.
type State int

const (
	StateScanning State = iota
	StateReview
	StateTransferring
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   library.ProgressLevel
}

const (
	fieldNone = iota
	fieldAlbum
	fieldGenre
)

// maxListed caps the new tracks shown on the review screen.
const maxListed = 8

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state    State
	album    textinput.Model
	genre    textinput.Model
	editing  int
	spinner  spinner.Model
	progress progress.Model
	settings *config.Settings
	logs     []LogEntry
	err      error

	source string
	target string

	// Run context
	ctx    context.Context
	cancel context.CancelFunc

	manager *library.Manager
	events  chan library.ProgressEvent
	report  *transfer.Report

	// Transfer progress
	done  int
	total int

	width  int
	height int
}

// NewModel creates a new TUI model for one source and target. settings
// must already be validated; opts are passed to the library.Manager.
func NewModel(settings *config.Settings, source, target string, opts ...library.Option) Model {
	album := textinput.New()
	album.Placeholder = "album"
	album.CharLimit = 200
	album.Width = 40
	album.SetValue(settings.Album)

	genre := textinput.New()
	genre.Placeholder = "genre"
	genre.CharLimit = 100
	genre.Width = 40
	genre.SetValue(settings.Genre)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan library.ProgressEvent, 64)

	manager := library.NewManager(settings, source, target, logging.Discard(), func(event library.ProgressEvent) {
		select {
		case events <- event:
		default:
			// The view only keeps the latest lines.
		}
	}, opts...)

	return Model{
		state:    StateScanning,
		album:    album,
		genre:    genre,
		spinner:  sp,
		progress: prog,
		settings: settings,
		logs:     make([]LogEntry, 0),
		source:   source,
		target:   target,
		ctx:      ctx,
		cancel:   cancel,
		manager:  manager,
		events:   events,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.initialize(), m.waitForEvent())
}

// Message types
type (
	// ProgressMsg is sent when the pipeline reports progress.
	ProgressMsg struct {
		Event library.ProgressEvent
	}

	// InitDoneMsg is sent when scanning and reconciliation complete.
	InitDoneMsg struct {
		Err error
	}

	// TransferDoneMsg is sent when the transfer batch completes.
	TransferDoneMsg struct {
		Report *transfer.Report
		Err    error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}
		if m.editing != fieldNone {
			return m.updateEditing(msg)
		}

		switch msg.String() {
		case "esc", "q":
			if m.state == StateTransferring {
				// The candidate in progress still finishes.
				m.cancel()
				return m, nil
			}
			m.cancel()
			return m, tea.Quit

		case "a":
			if m.state == StateReview {
				m.editing = fieldAlbum
				return m, m.album.Focus()
			}

		case "g":
			if m.state == StateReview {
				m.editing = fieldGenre
				return m, m.genre.Focus()
			}

		case "c":
			if m.state == StateReview {
				m.settings.Mode = model.ModeCopy.String()
			}

		case "m":
			if m.state == StateReview {
				m.settings.Mode = model.ModeMove.String()
			}

		case "enter":
			if m.state == StateReview && m.manager.CandidateCount() > 0 {
				m.settings.Album = strings.TrimSpace(m.album.Value())
				m.settings.Genre = strings.TrimSpace(m.genre.Value())
				m.state = StateTransferring
				m.total = m.manager.CandidateCount()
				cmds = append(cmds, m.startTransfer(), m.tickProgress())
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		if msg.Event.Level != library.LevelVerbose {
			m.logs = append(m.logs, LogEntry{
				Message: msg.Event.Message,
				Level:   msg.Event.Level,
			})
			// Keep only last 10 logs
			if len(m.logs) > 10 {
				m.logs = m.logs[len(m.logs)-10:]
			}
		}
		cmds = append(cmds, m.waitForEvent())

	case InitDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.state = StateReview
		}

	case TransferDoneMsg:
		m.report = msg.Report
		m.done, m.total = m.manager.GetProgress()
		switch {
		case errors.Is(msg.Err, context.Canceled):
			m.state = StateError
			m.err = fmt.Errorf("cancelled after %d of %d tracks", m.done, m.total)
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.state == StateTransferring {
			m.done, m.total = m.manager.GetProgress()

			var percent float64
			if m.total > 0 {
				percent = float64(m.done) / float64(m.total)
			}
			cmds = append(cmds, m.progress.SetPercent(percent), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc", "tab":
		m.album.Blur()
		m.genre.Blur()
		m.editing = fieldNone
		return m, nil
	}

	var cmd tea.Cmd
	if m.editing == fieldAlbum {
		m.album, cmd = m.album.Update(msg)
	} else {
		m.genre, cmd = m.genre.Update(msg)
	}
	return m, cmd
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// waitForEvent delivers the next pipeline event.
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return ProgressMsg{Event: <-m.events}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("♫ rp"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s → %s", m.source, m.target)))
	b.WriteString("\n\n")

	switch m.state {
	case StateScanning:
		b.WriteString(m.viewScanning())
	case StateReview:
		b.WriteString(m.viewReview())
	case StateTransferring:
		b.WriteString(m.viewTransferring())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewScanning() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Scanning..."))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewReview() string {
	var b strings.Builder

	res := m.manager.Result()
	sum := res.Summary
	ignored := m.manager.Source().Ignored

	b.WriteString(successStyle.Render(fmt.Sprintf(
		"%d files, %d unique tracks: %d new, %d already in library",
		sum.TotalTracks, sum.UniqueTracks, sum.NewTracks, sum.ExistingTracks,
	)))
	b.WriteString("\n")
	if ignored.Total() > 0 {
		b.WriteString(warningStyle.Render(fmt.Sprintf(
			"%d ignored (%d without identity, %d by title)",
			ignored.Total(), ignored.NoIdentity, ignored.IgnoredByTitle,
		)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	listed := 0
	for _, st := range res.Candidates(m.settings.OverwritePolicy()) {
		if listed == maxListed {
			b.WriteString(dimStyle.Render("  ..."))
			b.WriteString("\n")
			break
		}
		b.WriteString(trackStyle.Render(fmt.Sprintf("  ♪ %s (%s)", st.Key, st.Class)))
		b.WriteString("\n")
		listed++
	}
	b.WriteString("\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  Overwrite: %s\n", m.settings.OverwritePolicy()))
	b.WriteString(fmt.Sprintf("  Mode:      %s (c: copy, m: move)\n", m.settings.TransferMode()))
	b.WriteString(fmt.Sprintf("  Album (a): %s\n", m.album.View()))
	b.WriteString(fmt.Sprintf("  Genre (g): %s\n", m.genre.View()))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d tracks selected", m.manager.CandidateCount())))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewTransferring() string {
	var b strings.Builder

	var percent float64
	if m.total > 0 {
		percent = float64(m.done) / float64(m.total)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf("Tracks: %d/%d", m.done, m.total)))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	var transferred, failed int
	if m.report != nil {
		transferred, failed = len(m.report.Transferred), len(m.report.Errors)
	}

	box := boxStyle.Render(fmt.Sprintf(
		"✨ Transfer Complete!\n\n"+
			"Transferred: %d\n"+
			"Failed: %d",
		transferred,
		failed,
	))
	b.WriteString(box)
	b.WriteString("\n")

	if failed > 0 {
		b.WriteString("\n")
		for _, key := range m.report.ErrorKeys() {
			b.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %v", key, m.report.Errors[key])))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("❌ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case library.LevelError:
			style = errorStyle
			prefix = "✗"
		case library.LevelWarning:
			style = warningStyle
			prefix = "!"
		case library.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case library.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateScanning:
		return "esc: quit"
	case StateReview:
		if m.editing != fieldNone {
			return "enter: done"
		}
		return "enter: transfer • a: album • g: genre • c/m: copy/move • q: quit"
	case StateTransferring:
		return "esc: stop after current track"
	case StateComplete, StateError:
		return "q: quit"
	}
	return ""
}

// initialize scans and reconciles in the background.
func (m Model) initialize() tea.Cmd {
	return func() tea.Msg {
		return InitDoneMsg{Err: m.manager.Initialize(m.ctx)}
	}
}

// startTransfer locks the target and runs the transfer in the background.
func (m Model) startTransfer() tea.Cmd {
	return func() tea.Msg {
		lock, err := ioutils.LockTarget(m.target)
		if err != nil {
			return TransferDoneMsg{Err: err}
		}
		defer lock.Release()

		rep, err := m.manager.StartTransfers(m.ctx)
		return TransferDoneMsg{Report: rep, Err: err}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings, source, target string, opts ...library.Option) error {
	p := tea.NewProgram(NewModel(settings, source, target, opts...), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
