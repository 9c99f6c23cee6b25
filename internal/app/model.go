package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jwulff/orient/internal/db"
	"github.com/jwulff/orient/internal/export"
	"github.com/jwulff/orient/internal/sampler"
	"github.com/jwulff/orient/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// Screen selects what the main panel shows.
type Screen int

const (
	ScreenLive Screen = iota
	ScreenHistory
)

const (
	// LiveRefresh is how often the live screen re-reads the latest sample.
	LiveRefresh = 100 * time.Millisecond

	// panStep is how many points one pan key press moves the history view.
	panStep = 10
)

// Options wires the model to the running session.
type Options struct {
	Store     *db.Store
	Latest    *sampler.Latest
	ExportDir string
	Source    string // shown in the header
	StoreErr  error  // set when the store could not be opened
}

// Model is the root bubbletea model for the orient TUI.
type Model struct {
	ctx       context.Context
	store     *db.Store
	latest    *sampler.Latest
	historyCh <-chan []db.Reading

	// Live state
	source string
	live   db.Reading
	seen   bool

	// History
	history       []db.Reading
	historyClosed bool
	pan           int // points hidden to the right of the view

	// Export
	exportDir  string
	exporting  bool
	lastExport string

	// UI state
	screen Screen
	width  int
	height int

	// Errors
	errorMessage   string
	errorTransient bool
	storeErr       string
	sensorErr      string
}

// New creates a Model and subscribes to the store's history. The
// subscription lives until ctx is done or the store is closed.
func New(ctx context.Context, opts Options) Model {
	store := opts.Store
	if store == nil {
		store = db.Unavailable()
	}
	latest := opts.Latest
	if latest == nil {
		latest = &sampler.Latest{}
	}
	dir := opts.ExportDir
	if dir == "" {
		dir = export.DefaultDir()
	}

	m := Model{
		ctx:       ctx,
		store:     store,
		latest:    latest,
		historyCh: store.Subscribe(ctx),
		source:    opts.Source,
		exportDir: dir,
		screen:    ScreenLive,
	}
	if opts.StoreErr != nil {
		m.storeErr = opts.StoreErr.Error()
	}
	return m
}

// Init starts the live refresh and the history subscription.
func (m Model) Init() tea.Cmd {
	return tea.Batch(liveTickCmd(m.latest), waitHistoryCmd(m.historyCh))
}

// liveTickCmd samples the latest holder after LiveRefresh.
func liveTickCmd(latest *sampler.Latest) tea.Cmd {
	return tea.Tick(LiveRefresh, func(time.Time) tea.Msg {
		return LiveTickMsg{Reading: latest.Get(), Seen: latest.Seen()}
	})
}

// waitHistoryCmd waits for the next history snapshot.
func waitHistoryCmd(ch <-chan []db.Reading) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return HistoryClosedMsg{}
		}
		return HistoryMsg{Readings: snap}
	}
}

// exportCmd writes the stored history to dir.
func exportCmd(ctx context.Context, store *db.Store, dir string) tea.Cmd {
	return func() tea.Msg {
		path, rows, err := export.Snapshot(ctx, store, dir)
		if err != nil {
			return ExportErrorMsg{Err: err}
		}
		return ExportDoneMsg{Path: path, Rows: rows}
	}
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.pan = min(m.pan, m.maxPan())
		return m, nil

	case LiveTickMsg:
		m.live = msg.Reading
		m.seen = msg.Seen
		return m, liveTickCmd(m.latest)

	case HistoryMsg:
		// Keep a panned view anchored on the same points as history grows.
		if m.pan > 0 {
			m.pan += max(0, len(msg.Readings)-len(m.history))
		}
		m.history = msg.Readings
		m.pan = min(m.pan, m.maxPan())
		return m, waitHistoryCmd(m.historyCh)

	case HistoryClosedMsg:
		m.historyClosed = true
		return m, nil

	case ExportDoneMsg:
		m.exporting = false
		m.lastExport = fmt.Sprintf("Exported %d readings to %s", msg.Rows, msg.Path)
		return m, nil

	case ExportErrorMsg:
		m.exporting = false
		m.errorMessage = "export failed: " + msg.Err.Error()
		m.errorTransient = true
		return m, clearTransientErrorCmd()

	case SensorErrorMsg:
		m.sensorErr = msg.Err.Error()
		return m, nil

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		return m, tea.Quit

	case KeyExport, KeyExportUpper:
		if m.exporting {
			return m, nil
		}
		m.exporting = true
		m.lastExport = ""
		return m, exportCmd(m.ctx, m.store, m.exportDir)

	case KeyHistory, KeyHistoryUpper:
		m.screen = ScreenHistory
		return m, nil

	case KeyBack, KeyEsc:
		m.screen = ScreenLive
		return m, nil
	}

	if m.screen != ScreenHistory {
		return m, nil
	}

	switch msg.String() {
	case KeyLeft, KeyPanBack:
		m.pan = min(m.pan+panStep, m.maxPan())
	case KeyRight, KeyPanForward:
		m.pan = max(m.pan-panStep, 0)
	case KeyHome:
		m.pan = m.maxPan()
	case KeyEnd:
		m.pan = 0
	}
	return m, nil
}

func (m Model) chartWidth() int {
	return max(1, m.width-ui.ScaleWidth-1)
}

func (m Model) maxPan() int {
	return max(0, len(m.history)-m.chartWidth())
}

// chartHeight splits the space between header and footer across three
// charts, each with a title line.
func (m Model) chartHeight() int {
	fixed := 6 + len(m.errorLines()) // header, status, two dividers, footer, history title
	if m.lastExport != "" || m.exporting {
		fixed++
	}
	return max(1, (m.height-fixed-3)/3)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.screen == ScreenHistory {
		sections = append(sections, m.renderHistory())
	} else {
		sections = append(sections, m.renderLive())
	}

	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	for _, msg := range m.errorLines() {
		sections = append(sections, m.renderErrorBar(msg))
	}
	if m.exporting {
		sections = append(sections, ui.SpinnerStyle.Render("⟳ Exporting..."))
	} else if m.lastExport != "" {
		sections = append(sections, ui.SuccessStyle.Render(truncateToWidth(m.lastExport, m.width)))
	}

	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("ORIENT")

	var source string
	if m.source != "" {
		source = ui.DimStyle.Render(" · " + m.source)
	}

	return title + source
}

func (m Model) renderStatusBar() string {
	var dot string
	switch {
	case m.sensorErr != "":
		dot = ui.ErrorStyle.Render("● NO SENSOR")
	case m.seen:
		dot = ui.SamplingDotStyle.Render("● SAMPLING")
	default:
		dot = ui.IdleDotStyle.Render("○ WAITING")
	}

	count := ui.DimStyle.Render(fmt.Sprintf("  readings: %d", len(m.history)))

	var store string
	if m.store.Available() {
		store = ui.DimStyle.Render("  store: ok")
	} else {
		store = ui.ErrorTextStyle.Render("  store: unavailable")
	}

	var history string
	if m.historyClosed {
		history = ui.ErrorTextStyle.Render("  history: closed")
	}

	return dot + count + store + history
}

func (m Model) renderLive() string {
	lines := []string{
		"",
		"  " + ui.PanelTitleStyle.Render("ACCELEROMETER (m/s²)"),
		"",
		renderAxis("X", m.live.X),
		renderAxis("Y", m.live.Y),
		renderAxis("Z", m.live.Z),
		"",
	}

	if n := len(m.history); n > 0 {
		last := m.history[n-1]
		lines = append(lines, ui.DimStyle.Render(fmt.Sprintf("  last stored #%d  %s, %s, %s",
			last.ID, export.FormatValue(last.X), export.FormatValue(last.Y), export.FormatValue(last.Z))))
	} else {
		lines = append(lines, ui.DimStyle.Render("  nothing stored yet"))
	}
	return strings.Join(lines, "\n")
}

func renderAxis(label string, v float64) string {
	return "  " + ui.AxisLabelStyle.Render(label) + "  " + ui.AxisValueStyle.Render(fmt.Sprintf("%10.4f", v))
}

func (m Model) renderHistory() string {
	start, end := ui.Window(len(m.history), m.chartWidth(), m.pan)
	visible := m.history[start:end]

	var badge string
	if m.pan == 0 {
		badge = ui.LiveBadgeStyle.Render("LIVE")
	} else {
		badge = ui.ScrollBadgeStyle.Render(fmt.Sprintf("◀ %d", m.pan))
	}

	var span string
	if len(visible) > 0 {
		span = fmt.Sprintf("  #%d-#%d of %d", visible[0].ID, visible[len(visible)-1].ID, len(m.history))
	}

	sections := []string{
		ui.PanelTitleStyle.Render("HISTORY - ACCELEROMETER DATA") + "  " + badge + ui.DimStyle.Render(span),
	}

	axes := []struct {
		title string
		value func(db.Reading) float64
	}{
		{"X vs Time", func(r db.Reading) float64 { return r.X }},
		{"Y vs Time", func(r db.Reading) float64 { return r.Y }},
		{"Z vs Time", func(r db.Reading) float64 { return r.Z }},
	}

	height := m.chartHeight()
	for _, axis := range axes {
		values := make([]float64, len(visible))
		for i, r := range visible {
			values[i] = axis.value(r)
		}

		sections = append(sections, ui.AxisLabelStyle.Render(axis.title))
		for _, line := range ui.Chart(values, height) {
			scale, bars, _ := strings.Cut(line, "│")
			sections = append(sections, ui.ScaleStyle.Render(scale+"│")+ui.ChartStyle.Render(bars))
		}
	}

	return strings.Join(sections, "\n")
}

// errorLines lists the lasting store and sensor failures, then any transient
// error.
func (m Model) errorLines() []string {
	var out []string
	if m.storeErr != "" {
		out = append(out, "store unavailable: "+m.storeErr)
	}
	if m.sensorErr != "" {
		out = append(out, "sensor: "+m.sensorErr)
	}
	if m.errorMessage != "" {
		out = append(out, m.errorMessage)
	}
	return out
}

func (m Model) renderErrorBar(msg string) string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(truncateToWidth(msg, m.width-7))
}

func (m Model) renderFooter() string {
	var parts []string

	parts = append(parts, ui.FooterKeyStyle.Render("e")+ui.FooterDescStyle.Render(" Export"))
	if m.screen == ScreenHistory {
		parts = append(parts, ui.FooterKeyStyle.Render("←→")+ui.FooterDescStyle.Render(" Pan"))
		parts = append(parts, ui.FooterKeyStyle.Render("End")+ui.FooterDescStyle.Render(" Live"))
		parts = append(parts, ui.FooterKeyStyle.Render("b")+ui.FooterDescStyle.Render(" Back"))
	} else {
		parts = append(parts, ui.FooterKeyStyle.Render("h")+ui.FooterDescStyle.Render(" History"))
	}
	parts = append(parts, ui.FooterKeyStyle.Render("q")+ui.FooterDescStyle.Render(" Quit"))

	return padRight(strings.Join(parts, "  "), m.width)
}

// Helpers

func padRight(s string, width int) string {
	// Get visible length (ignoring ANSI codes)
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	if width < 1 {
		return ""
	}
	visible := lipgloss.Width(s)
	if visible <= width {
		return s
	}
	// Simple truncation for non-styled strings
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}
