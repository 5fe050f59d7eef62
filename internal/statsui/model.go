// Package statsui provides the Bubble Tea stats dashboard.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tabhero/internal/model"
	"github.com/verte-zerg/tabhero/internal/stats"
)

const (
	tabOverview = iota
	tabRanks
	tabHistory
)

const (
	historyLimit = 200
	chartHeight  = 5
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4CAF50"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardHeadingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true).Underline(true)
	cardLabelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

var rankColors = map[string]lipgloss.Color{
	"Roadie":        lipgloss.Color("#666666"),
	"Rhythm Rookie": lipgloss.Color("#00ff00"),
	"Tab Warrior":   lipgloss.Color("#ffff00"),
	"Expert":        lipgloss.Color("#ff0000"),
	"Combo King":    lipgloss.Color("#ff00ff"),
	"Shredder":      lipgloss.Color("#ffd700"),
	"Tab Hero":      lipgloss.Color("#ffffff"),
	"Tab Legend":    lipgloss.Color("#ffffff"),
}

// RankColor returns the display colour of a rank.
func RankColor(rank string) lipgloss.Color {
	if c, ok := rankColors[rank]; ok {
		return c
	}
	return rankColors[stats.BaseRank()]
}

// RankStyle renders rank in its colour.
func RankStyle(rank string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(RankColor(rank)).Bold(true)
}

// Model implements the Bubble Tea stats dashboard.
type Model struct {
	history stats.HistoryReader

	session model.SessionStats
	allTime model.AllTimeStats
	report  stats.Report
	errMsg  string

	tabs         []string
	activeTab    int
	viewports    []viewport.Model
	historyTable table.Model
	progress     progress.Model

	width  int
	height int
}

// NewModel constructs a dashboard over the given counters. history may be nil.
func NewModel(session model.SessionStats, allTime model.AllTimeStats, history stats.HistoryReader) *Model {
	m := &Model{
		history:  history,
		session:  session,
		allTime:  allTime,
		tabs:     []string{"Overview", "Ranks", "History"},
		progress: progress.New(progress.WithGradient("#666666", "#4CAF50"), progress.WithoutPercentage()),
	}
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.historyTable = table.New(table.WithColumns(historyColumns()), table.WithFocused(true))
	m.historyTable.SetStyles(historyTableStyles())
	m.Refresh()
	return m
}

// SetStats replaces the displayed counters.
func (m *Model) SetStats(session model.SessionStats, allTime model.AllTimeStats) {
	m.session = session
	m.allTime = allTime
	m.renderTabContents()
}

// Refresh reloads the acceptance history.
func (m *Model) Refresh() {
	if m.history != nil {
		report, err := stats.BuildReport(context.Background(), m.history, historyLimit)
		if err != nil {
			m.errMsg = err.Error()
		} else {
			m.errMsg = ""
			m.report = report
		}
	}
	m.historyTable.SetRows(historyRows(m.report.Recent))
	m.historyTable.GotoBottom()
	m.renderTabContents()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, nil
		case "right", "l":
			m.moveTab(1)
			return m, nil
		case "R":
			m.Refresh()
			return m, nil
		case "g", "home":
			if m.activeTab == tabHistory {
				m.historyTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabHistory {
				m.historyTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabHistory {
				var cmd tea.Cmd
				m.historyTable, cmd = m.historyTable.Update(msg)
				return m, cmd
			}
			var cmd tea.Cmd
			m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderTabs(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = max(1, lipgloss.Height(activeNavStyle.Render("X")))
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.historyTable.SetWidth(m.width)
	m.historyTable.SetHeight(max(1, bodyHeight-4))
	m.progress.Width = min(40, max(10, m.width-4))
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	m.activeTab = (m.activeTab + delta + count) % count
	if m.activeTab == tabHistory {
		m.historyTable.Focus()
	} else {
		m.historyTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderFooter() string {
	help := headerStyle.Render("Nav: left/right  Scroll: up/down  Reload: R  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func (m *Model) renderBody() string {
	if m.activeTab == tabHistory {
		if len(m.report.Recent) == 0 {
			return "No completions recorded yet."
		}
		return tableMutedStyle.Render(m.historyTable.View()) + "\n\n" + m.renderSparklines()
	}
	return m.viewports[m.activeTab].View()
}

func (m *Model) renderTabContents() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(m.renderOverview(width))
	m.viewports[tabRanks].SetContent(m.renderRanks())
}

func (m *Model) renderOverview(width int) string {
	sessionCard := statCard("Session", [][2]string{
		{"Rank", RankStyle(m.session.Rank).Render(m.session.Rank)},
		{"Score", fmt.Sprintf("%d", m.session.Score)},
		{"Tabs", fmt.Sprintf("%d", m.session.Tabs)},
		{"TPM", fmt.Sprintf("%.1f", m.session.TPM)},
	})
	allTimeCard := statCard("All Time", [][2]string{
		{"Highest Rank", RankStyle(m.allTime.HighestRank).Render(m.allTime.HighestRank)},
		{"Total Score", fmt.Sprintf("%d", m.allTime.Score)},
		{"Total Tabs", fmt.Sprintf("%d", m.allTime.Tabs)},
		{"Highest TPM", fmt.Sprintf("%.1f", m.allTime.HighestTPM)},
	})

	var cards string
	if width < 60 {
		cards = lipgloss.JoinVertical(lipgloss.Left, sessionCard, allTimeCard)
	} else {
		cards = lipgloss.JoinHorizontal(lipgloss.Top, sessionCard, allTimeCard)
	}

	sections := []string{cards, m.renderNextRank()}
	if len(m.report.Recent) > 1 {
		var buf bytes.Buffer
		series := stats.Series{Name: "Score per completion", Values: stats.ScoreSeries(m.report.Recent)}
		chartWidth := stats.ChartWidthFor(width, series.Values)
		if err := stats.PlotSeries(&buf, series, chartWidth, chartHeight); err != nil {
			sections = append(sections, fmt.Sprintf("Failed to render chart: %v", err))
		} else {
			sections = append(sections, strings.TrimRight(buf.String(), "\n"))
		}
	}
	return strings.Join(sections, "\n\n")
}

func (m *Model) renderNextRank() string {
	next, ok := stats.NextRank(m.session.Score)
	if !ok {
		return RankStyle(m.session.Rank).Render("Top rank reached")
	}
	label := fmt.Sprintf("Next: %s at %d (%d to go)", RankStyle(next.Name).Render(next.Name), next.MinScore, next.MinScore-m.session.Score)
	return label + "\n" + m.progress.ViewAs(stats.RankProgress(m.session.Score))
}

func (m *Model) renderRanks() string {
	var buf bytes.Buffer
	if err := stats.RenderRankTable(&buf, m.session.Rank, m.allTime.HighestRank); err != nil {
		return fmt.Sprintf("Failed to render ranks: %v", err)
	}
	legend := headerStyle.Render("* current session   + highest ever")
	return strings.TrimRight(buf.String(), "\n") + "\n\n" + legend
}

func (m *Model) renderSparklines() string {
	scores := stats.ScoreSeries(m.report.Recent)
	tpm := stats.TPMSeries(m.report.Sessions)
	lines := []string{
		cardLabelStyle.Render("Scores ") + stats.Sparkline(stats.MovingAverage(scores, 3)),
		cardLabelStyle.Render("TPM    ") + stats.Sparkline(tpm),
	}
	return strings.Join(lines, "\n")
}

func statCard(title string, rows [][2]string) string {
	lines := []string{cardHeadingStyle.Render(title)}
	labelWidth := 0
	for _, r := range rows {
		labelWidth = max(labelWidth, runewidth.StringWidth(r[0]))
	}
	for _, r := range rows {
		label := r[0] + ":" + strings.Repeat(" ", labelWidth-runewidth.StringWidth(r[0])+1)
		lines = append(lines, cardLabelStyle.Render(label)+cardValueStyle.Render(r[1]))
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func historyColumns() []table.Column {
	return []table.Column{
		{Title: "Time", Width: 8},
		{Title: "Document", Width: 24},
		{Title: "Chars", Width: 5},
		{Title: "Lines", Width: 5},
		{Title: "Score", Width: 5},
		{Title: "Method", Width: 7},
	}
}

func historyRows(acceptances []model.Acceptance) []table.Row {
	rows := make([]table.Row, 0, len(acceptances))
	for _, a := range acceptances {
		rows = append(rows, table.Row{
			a.AcceptedAt.Local().Format("15:04:05"),
			runewidth.Truncate(path.Base(a.DocumentURI), 24, "…"),
			fmt.Sprintf("%d", a.Chars),
			fmt.Sprintf("%d", a.Lines),
			fmt.Sprintf("%d", a.Score),
			string(a.Method),
		})
	}
	return rows
}

func historyTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}
