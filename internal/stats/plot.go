package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series is a named sequence of values to chart.
type Series struct {
	Name   string
	Values []float64
	// Color is an ANSI SGR code such as "32". Empty means no color.
	Color string
}

const (
	defaultChartHeight = 6
	minChartWidth      = 8
	fallbackTermWidth  = 80
	chartSeparator     = " ┤"
)

// ChartWidthFor returns the plot area that fits next to the axis labels of
// values within totalWidth columns.
func ChartWidthFor(totalWidth int, values []float64) int {
	if totalWidth <= 0 {
		totalWidth = fallbackTermWidth
	}
	lo, hi := seriesBounds(values)
	axis := max(runewidth.StringWidth(formatAxis(lo)), runewidth.StringWidth(formatAxis(hi)))
	return max(minChartWidth, totalWidth-axis-runewidth.StringWidth(chartSeparator))
}

// TerminalWidth returns the width of stdout, or a fallback when it is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackTermWidth
	}
	return width
}

// PlotSeries draws s as a braille line chart. A width of zero sizes the chart
// to the terminal and a height of zero uses the default.
func PlotSeries(w io.Writer, s Series, width, height int) error {
	if len(s.Values) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultChartHeight
	}
	if width <= 0 {
		width = ChartWidthFor(TerminalWidth(), s.Values)
	}
	width = max(width, minChartWidth)

	lo, hi := seriesBounds(s.Values)
	span := hi - lo
	if span < 1e-9 {
		span = 1
	}

	// Two dots per column and four per row.
	values := resample(s.Values, width*2)
	cells := make([][]uint8, height)
	for y := range cells {
		cells[y] = make([]uint8, width)
	}
	dotRows := height * 4
	prevX, prevY := -1, -1
	for x, v := range values {
		y := int(math.Round((1 - (v-lo)/span) * float64(dotRows-1)))
		if prevX >= 0 {
			line(prevX, prevY, x, y, func(px, py int) {
				setDot(cells, px, py)
			})
		} else {
			setDot(cells, x, y)
		}
		prevX, prevY = x, y
	}

	useColor := s.Color != "" && colorEnabled(w)
	top, bottom := formatAxis(hi), formatAxis(lo)
	axisWidth := max(runewidth.StringWidth(top), runewidth.StringWidth(bottom))

	if s.Name != "" {
		if _, err := fmt.Fprintln(w, s.Name); err != nil {
			return err
		}
	}
	for y, row := range cells {
		label := ""
		switch y {
		case 0:
			label = top
		case height - 1:
			label = bottom
		}
		var b strings.Builder
		b.WriteString(strings.Repeat(" ", axisWidth-runewidth.StringWidth(label)))
		b.WriteString(label)
		b.WriteString(chartSeparator)
		if useColor {
			b.WriteString("\x1b[" + s.Color + "m")
		}
		for _, mask := range row {
			b.WriteRune(rune(0x2800 + int(mask)))
		}
		if useColor {
			b.WriteString("\x1b[0m")
		}
		if _, err := fmt.Fprintln(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func formatAxis(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func seriesBounds(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// resample stretches or averages values down to n points.
func resample(values []float64, n int) []float64 {
	out := make([]float64, n)
	if len(values) == 1 || n == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}
	if len(values) > n {
		for i := 0; i < n; i++ {
			start := i * len(values) / n
			end := max((i+1)*len(values)/n, start+1)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
		return out
	}
	for i := 0; i < n; i++ {
		pos := float64(i) * float64(len(values)-1) / float64(n-1)
		idx := int(pos)
		if idx >= len(values)-1 {
			out[i] = values[len(values)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = values[idx]*(1-frac) + values[idx+1]*frac
	}
	return out
}

// line walks the cells between two points (Bresenham).
func line(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := x1 - x0
	if dx < 0 {
		dx = -dx
	}
	dy := y1 - y0
	if dy > 0 {
		dy = -dy
	}
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

var dotBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func setDot(cells [][]uint8, x, y int) {
	cy, cx := y/4, x/2
	if x < 0 || y < 0 || cy >= len(cells) || cx >= len(cells[cy]) {
		return
	}
	cells[cy][cx] |= dotBits[x%2][y%4]
}
