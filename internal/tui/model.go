// Package tui provides the Bubble Tea live view: score popups, a running
// footer and the embedded stats dashboard.
package tui

import (
	"fmt"
	"path"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tabhero/internal/config"
	"github.com/verte-zerg/tabhero/internal/engine"
	"github.com/verte-zerg/tabhero/internal/logging"
	"github.com/verte-zerg/tabhero/internal/model"
	"github.com/verte-zerg/tabhero/internal/stats"
	"github.com/verte-zerg/tabhero/internal/statsui"
)

const recentLimit = 5

// ScoreMsg delivers a scored acceptance to the view.
type ScoreMsg struct {
	Event engine.ScoreEvent
}

// StatsMsg delivers fresh counters to the view.
type StatsMsg struct {
	Session model.SessionStats
	AllTime model.AllTimeStats
}

// ConfigReloadedMsg reports that the config file changed on disk.
type ConfigReloadedMsg struct{}

// FeedDoneMsg reports that the edit feed ended.
type FeedDoneMsg struct {
	Err error
}

type frameMsg time.Time

type recentItem struct {
	at    time.Time
	uri   string
	pos   model.Position
	text  string
	score int
}

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	recentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// Options configures a live view.
type Options struct {
	Config  config.Source
	History stats.HistoryReader
	// OnReset is called when the user asks for a new session.
	OnReset func()
	Source  string
	Logger  *log.Logger
	Now     func() time.Time
}

// Model implements the Bubble Tea live view.
type Model struct {
	cfg     config.Source
	onReset func()
	source  string
	logger  *log.Logger
	now     func() time.Time

	session model.SessionStats
	allTime model.AllTimeStats

	popups  []popup
	ticking bool
	recent  []recentItem
	status  string

	dash     *statsui.Model
	showDash bool

	width  int
	height int
}

// NewModel constructs a live view starting from the given counters.
func NewModel(session model.SessionStats, allTime model.AllTimeStats, opts Options) *Model {
	m := &Model{
		cfg:     opts.Config,
		onReset: opts.OnReset,
		source:  opts.Source,
		logger:  logging.OrDiscard(opts.Logger),
		now:     opts.Now,
		session: session,
		allTime: allTime,
		dash:    statsui.NewModel(session, allTime, opts.History),
	}
	if m.cfg == nil {
		m.cfg = config.Static(config.Defaults())
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.source == "" {
		m.source = "stdin"
	}
	m.status = "Waiting for completions from " + m.source
	return m
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
		m.dash.Update(msg)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			m.showDash = !m.showDash
			if m.showDash {
				m.dash.Refresh()
			}
			return m, tea.ClearScreen
		case "r":
			if m.onReset != nil {
				m.onReset()
			}
			m.status = "Session reset"
			return m, nil
		}
		if m.showDash {
			_, cmd := m.dash.Update(msg)
			return m, cmd
		}
		return m, nil
	case ScoreMsg:
		return m, m.handleScore(msg.Event)
	case StatsMsg:
		m.session = msg.Session
		m.allTime = msg.AllTime
		m.dash.SetStats(msg.Session, msg.AllTime)
		return m, nil
	case ConfigReloadedMsg:
		m.logger.Info("config reloaded")
		m.status = "Config reloaded at " + m.now().Format("15:04:05")
		return m, nil
	case FeedDoneMsg:
		if msg.Err != nil {
			m.logger.Error("feed stopped", "err", msg.Err)
			m.status = "Feed stopped: " + msg.Err.Error()
		} else {
			m.status = "Feed closed; press q to quit"
		}
		return m, nil
	case frameMsg:
		return m, m.advance()
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.showDash {
		return m.dash.View()
	}
	if m.width == 0 || m.height == 0 {
		return m.renderFooter()
	}

	header := titleStyle.Render("Tab Hero") + "  " + statusStyle.Render(truncate(m.status, m.width-10))
	recent := m.renderRecent()
	footer := m.renderFooter()
	help := footerStyle.Render("tab: dashboard  r: reset session  q: quit")

	stageHeight := m.height - 3 - lipgloss.Height(recent)
	parts := []string{header}
	if stageHeight > 0 {
		parts = append(parts, renderStage(m.popups, m.width, stageHeight, m.now()))
	}
	parts = append(parts, recent, footer, help)
	return strings.Join(parts, "\n")
}

func (m *Model) handleScore(ev engine.ScoreEvent) tea.Cmd {
	now := m.now()
	m.recent = append(m.recent, recentItem{
		at:    now,
		uri:   ev.Acceptance.Document.URI,
		pos:   ev.Acceptance.Position,
		text:  ev.Acceptance.Text,
		score: ev.Result.Score,
	})
	if len(m.recent) > recentLimit {
		m.recent = m.recent[len(m.recent)-recentLimit:]
	}

	cfg := m.cfg.Current()
	if !cfg.ShowAnimation {
		return nil
	}
	m.popups = append(m.popups, newPopup(ev.Acceptance.Position, ev.Result.Score, cfg, now))
	if m.ticking {
		return nil
	}
	m.ticking = true
	return frameTick()
}

// advance steps every popup, drops expired ones and schedules the next frame
// while any remain.
func (m *Model) advance() tea.Cmd {
	now := m.now()
	alive := m.popups[:0]
	for _, p := range m.popups {
		if !p.alive(now) {
			continue
		}
		p.step()
		alive = append(alive, p)
	}
	m.popups = alive
	if len(m.popups) == 0 {
		m.ticking = false
		return nil
	}
	return frameTick()
}

func frameTick() tea.Cmd {
	return tea.Tick(time.Second/fps, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m *Model) renderRecent() string {
	if len(m.recent) == 0 {
		return recentStyle.Render("No completions yet.")
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	lines := make([]string, 0, len(m.recent))
	for i := len(m.recent) - 1; i >= 0; i-- {
		r := m.recent[i]
		where := fmt.Sprintf("%s:%d", path.Base(r.uri), r.pos.Line+1)
		prefix := fmt.Sprintf("%s %5s  %-20s ", r.at.Format("15:04:05"), fmt.Sprintf("+%d", r.score), runewidth.Truncate(where, 20, "…"))
		preview := strings.ReplaceAll(r.text, "\n", "⏎")
		preview = runewidth.Truncate(preview, max(0, width-runewidth.StringWidth(prefix)), "…")
		lines = append(lines, recentStyle.Render(prefix)+scoreStyle.Render(preview))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	rank := statsui.RankStyle(m.session.Rank).Render(m.session.Rank)
	segments := []string{
		fmt.Sprintf("Score %d", m.session.Score),
		fmt.Sprintf("Tabs %d", m.session.Tabs),
		fmt.Sprintf("TPM %.1f", m.session.TPM),
	}
	footer := footerStyle.Render(strings.Join(segments, " · ")+" · Rank ") + rank
	best := footerStyle.Render(fmt.Sprintf("  All-time %d pts · best %s", m.allTime.Score, m.allTime.HighestRank))
	return footer + best
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
