// Package tui is an interactive terminal viewer for a folded document.
package tui

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/foldkit/internal/controller"
	"github.com/fyrsmithlabs/foldkit/internal/folding"
)

const (
	sparklineWidth  = 24
	sparklineHeight = 1
	historySize     = 24
	defaultHeight   = 24
	defaultWidth    = 80
	// header, status and help rows.
	chromeRows = 3
)

// updateMsg carries a controller update into the event loop.
type updateMsg controller.UpdateEvent

// Model is the bubbletea model of the fold viewer.
type Model struct {
	ctrl    *controller.Controller
	updates chan controller.UpdateEvent
	unsub   func()

	keys      keyMap
	help      help.Model
	hiddenBar progress.Model

	cursor int
	top    int
	width  int
	height int

	history  []float64
	status   string
	err      error
	quitting bool
}

// NewModel creates a viewer over an enabled controller.
func NewModel(ctrl *controller.Controller) Model {
	updates := make(chan controller.UpdateEvent, 16)
	unsub := ctrl.OnDidUpdate(func(e controller.UpdateEvent) {
		select {
		case updates <- e:
		default:
		}
	})
	return Model{
		ctrl:    ctrl,
		updates: updates,
		unsub:   unsub,
		keys:    defaultKeyMap(),
		help:    help.New(),
		hiddenBar: progress.New(
			progress.WithGradient("#00ff00", "#ff0000"),
			progress.WithWidth(20),
		),
		cursor:  1,
		width:   defaultWidth,
		height:  defaultHeight,
		history: appendToHistory(make([]float64, 0, historySize), float64(len(ctrl.Regions()))),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

func waitForUpdate(ch <-chan controller.UpdateEvent) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return updateMsg(e)
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.clamp()
		return m, nil

	case updateMsg:
		if msg.Failed {
			m.status = warningStyle.Render(fmt.Sprintf("computation failed at version %d", msg.Version))
		} else {
			m.history = appendToHistory(m.history, float64(msg.Regions))
			m.status = ""
		}
		m.clamp()
		return m, waitForUpdate(m.updates)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if m.unsub != nil {
			m.unsub()
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.PageUp):
		m.move(-m.bodyRows())
	case key.Matches(msg, m.keys.PageDown):
		m.move(m.bodyRows())
	case key.Matches(msg, m.keys.Toggle):
		m.run(controller.CmdToggleFold, controller.Args{Lines: []int{m.cursor}})
	case key.Matches(msg, m.keys.Recursive):
		m.run(controller.CmdToggleFoldRecursively, controller.Args{Lines: []int{m.cursor}})
	case key.Matches(msg, m.keys.Fold):
		m.run(controller.CmdFold, controller.Args{Lines: []int{m.cursor}})
	case key.Matches(msg, m.keys.Unfold):
		m.run(controller.CmdUnfold, controller.Args{Lines: []int{m.cursor}})
	case key.Matches(msg, m.keys.FoldAll):
		m.run(controller.CmdFoldAll, controller.Args{})
	case key.Matches(msg, m.keys.UnfoldAll):
		m.run(controller.CmdUnfoldAll, controller.Args{})
	case key.Matches(msg, m.keys.Level):
		level := int(msg.Runes[0] - '0')
		m.run(controller.CmdFoldLevel, controller.Args{Level: level, Lines: []int{m.cursor}})
	case key.Matches(msg, m.keys.Parent):
		m.jump(controller.CmdGotoParentFold)
	case key.Matches(msg, m.keys.Next):
		m.jump(controller.CmdGotoNextFold)
	case key.Matches(msg, m.keys.Previous):
		m.jump(controller.CmdGotoPreviousFold)
	}
	return m, nil
}

func (m *Model) run(name string, args controller.Args) controller.Result {
	res, err := m.ctrl.Execute(context.Background(), name, args)
	if err != nil {
		m.err = err
		m.status = errorStyle.Render(err.Error())
		return res
	}
	m.err = nil
	m.status = dimStyle.Render(fmt.Sprintf("%s: %d toggled", name, res.Toggled))
	m.clamp()
	return res
}

func (m *Model) jump(name string) {
	res := m.run(name, controller.Args{Lines: []int{m.cursor}})
	if m.err == nil && res.Line > 0 {
		m.cursor = res.Line
		m.status = ""
		m.clamp()
	}
}

// visible returns the line numbers currently shown.
func (m Model) visible() []int {
	return folding.VisibleLines(m.ctrl.Document().LineCount(), m.ctrl.HiddenRanges())
}

func (m Model) bodyRows() int {
	rows := m.height - chromeRows
	if rows < 1 {
		rows = 1
	}
	return rows
}

// move shifts the cursor by delta visible lines.
func (m *Model) move(delta int) {
	vis := m.visible()
	i := indexOf(vis, m.cursor) + delta
	i = max(0, min(i, len(vis)-1))
	m.cursor = vis[i]
	m.scrollTo(i)
}

// clamp moves the cursor to the closest visible line at or above it and
// keeps it on screen.
func (m *Model) clamp() {
	vis := m.visible()
	i := indexOf(vis, m.cursor)
	m.cursor = vis[i]
	m.scrollTo(i)
}

func (m *Model) scrollTo(i int) {
	rows := m.bodyRows()
	if i < m.top {
		m.top = i
	}
	if i >= m.top+rows {
		m.top = i - rows + 1
	}
	if m.top < 0 {
		m.top = 0
	}
}

// indexOf returns the index of the last visible line not after line.
func indexOf(vis []int, line int) int {
	idx := 0
	for i, l := range vis {
		if l > line {
			break
		}
		idx = i
	}
	return idx
}

// Cursor returns the line under the cursor.
func (m Model) Cursor() int { return m.cursor }

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderBody(),
		m.renderStatus(),
		m.help.View(m.keys),
	)
}

func (m Model) renderHeader() string {
	doc := m.ctrl.Document()
	title := headerStyle.Render("foldkit")
	info := fmt.Sprintf(" %s %s %s %s",
		valueStyle.Render(doc.URI()),
		dimStyle.Render(doc.LanguageID()),
		labelStyle.Render("provider"),
		valueStyle.Render(m.ctrl.ProviderID()),
	)
	return title + info
}

func (m Model) renderBody() string {
	doc := m.ctrl.Document()
	vis := m.visible()
	markers := MarkerIndex(m.ctrl.GutterMarkers())
	numWidth := len(fmt.Sprint(doc.LineCount()))

	rows := make([]string, 0, m.bodyRows())
	end := min(m.top+m.bodyRows(), len(vis))
	for _, line := range vis[m.top:end] {
		marker := markers[line]
		text := truncate(doc.LineContent(line), m.width-numWidth-4)
		row := fmt.Sprintf("%s %s %s",
			dimStyle.Render(fmt.Sprintf("%*d", numWidth, line)),
			gutterStyle.Render(Glyph(marker)),
			text,
		)
		if IsCollapsed(marker) {
			row += " " + dimStyle.Render(Ellipsis)
		}
		if line == m.cursor {
			row = cursorStyle.Render(row)
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderStatus() string {
	doc := m.ctrl.Document()
	total := doc.LineCount()
	hidden := 0
	for _, r := range m.ctrl.HiddenRanges() {
		hidden += r.Len()
	}
	ratio := float64(hidden) / float64(total)

	parts := []string{
		labelStyle.Render("regions ") + valueStyle.Render(fmt.Sprint(len(m.ctrl.Regions()))),
		createSparkline(m.history),
		labelStyle.Render("hidden ") + m.hiddenBar.ViewAs(ratio) + " " + dimStyle.Render(FormatPercentage(ratio)),
	}
	if lr := m.ctrl.LimitReporter(); lr != nil && lr.Limited() > 0 {
		parts = append(parts, warningStyle.Render(fmt.Sprintf("limited to %d of %d", lr.Limited(), lr.Computed())))
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	return footerStyle.Render(strings.Join(parts, "  "))
}

// appendToHistory appends a value to history, maintaining max size
func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}

// createSparkline creates a sparkline chart from historical data
func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}
	spark.Draw()

	return sparklineStyle.Render(spark.View())
}

func truncate(s string, width int) string {
	if width <= 0 || utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-1]) + "…"
}
