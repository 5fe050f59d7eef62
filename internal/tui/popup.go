package tui

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tabhero/internal/model"
)

const fps = 30

// fadeTarget is the colour popups fade into.
var fadeTarget = colorful.Color{R: 0.08, G: 0.08, B: 0.08}

var fallbackColor, _ = colorful.Hex("#4CAF50")

type popup struct {
	text  string
	line  int
	col   int
	born  time.Time
	ttl   time.Duration
	style model.AnimationStyle
	color colorful.Color

	spring  harmonica.Spring
	rise    float64
	riseVel float64
}

func newPopup(pos model.Position, score int, cfg model.Config, now time.Time) popup {
	c, err := colorful.Hex(cfg.ScoreColor)
	if err != nil {
		c = fallbackColor
	}
	return popup{
		text:   popupText(cfg.ScoreDecoration, score),
		line:   pos.Line,
		col:    pos.Character,
		born:   now,
		ttl:    cfg.AnimationDuration,
		style:  cfg.AnimationStyle,
		color:  c,
		spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 0.6),
	}
}

func popupText(decoration string, score int) string {
	if decoration == "" {
		return fmt.Sprintf("+%d", score)
	}
	return fmt.Sprintf("%s +%d", decoration, score)
}

// step advances the rise animation by one frame.
func (p *popup) step() {
	if p.style != model.AnimationFloating {
		return
	}
	p.rise, p.riseVel = p.spring.Update(p.rise, p.riseVel, 1)
}

func (p popup) progress(now time.Time) float64 {
	if p.ttl <= 0 {
		return 1
	}
	return math.Max(0, math.Min(1, float64(now.Sub(p.born))/float64(p.ttl)))
}

func (p popup) alive(now time.Time) bool {
	return p.progress(now) < 1
}

// colorAt blends from the score colour toward the background as the popup ages.
func (p popup) colorAt(now time.Time) colorful.Color {
	return p.color.BlendLab(fadeTarget, p.progress(now)).Clamped()
}

func (p popup) render(now time.Time) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(p.colorAt(now).Hex())).
		Bold(true).
		Render(p.text)
}

type placed struct {
	col  int
	text string
	p    popup
}

// renderStage lays popups out on a width x height grid. Document lines wrap
// into the stage and floating popups move up by their current rise.
func renderStage(popups []popup, width, height int, now time.Time) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	rows := make([][]placed, height)
	for _, p := range popups {
		row := p.line % height
		if p.style == model.AnimationFloating {
			row -= int(math.Round(p.rise))
		}
		row = max(0, row)
		textWidth := runewidth.StringWidth(p.text)
		col := max(0, min(p.col, width-textWidth))
		rows[row] = append(rows[row], placed{col: col, text: p.text, p: p})
	}

	lines := make([]string, height)
	for i, items := range rows {
		sort.SliceStable(items, func(a, b int) bool { return items[a].col < items[b].col })
		var b strings.Builder
		cursor := 0
		for _, it := range items {
			if it.col < cursor {
				// Overlaps the previous popup on this row.
				continue
			}
			w := runewidth.StringWidth(it.text)
			if it.col+w > width {
				continue
			}
			b.WriteString(strings.Repeat(" ", it.col-cursor))
			b.WriteString(it.p.render(now))
			cursor = it.col + w
		}
		b.WriteString(strings.Repeat(" ", width-cursor))
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n")
}
