package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/crazy3lf/colorconv"

	"github.com/cybre/vinylviz/internal/utils"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213")).
			Bold(true)
	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("246"))
	pointerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213"))
	inactivePointerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))
	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
	selectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("219")).
				Bold(true)
	instructionKeyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("213")).
				Bold(true)
	instructionTextStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))
	instructionDividerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))
	emptyStateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	containerStyle   = lipgloss.NewStyle().Padding(0, 2)
	metricLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	metricValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	waitingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	emptyBarStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	barLabelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Bold(true)
	playingMarkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("197")).Bold(true)
	pausedMarkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	inactiveRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

const barWidth = 32

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

func renderMetric(label, value string) string {
	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		metricLabelStyle.Render(label+":"),
		" ",
		metricValueStyle.Render(value),
	)
}

// renderBar draws a horizontal meter whose fill shades from dim to bright hex.
func renderBar(label string, value float64, hex string) string {
	clamped := utils.Clamp(value, 0.0, 1.0)
	filled := int(math.Round(clamped * barWidth))
	if clamped > 0 && filled == 0 {
		filled = 1
	}

	var b strings.Builder
	b.Grow(128)
	b.WriteString(barLabelStyle.Render(fmt.Sprintf("%-10s", label)))
	b.WriteString(" [")
	fill := lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
	b.WriteString(fill.Render(strings.Repeat("█", filled)))
	b.WriteString(emptyBarStyle.Render(strings.Repeat("░", barWidth-filled)))
	b.WriteString("] ")
	b.WriteString(metricValueStyle.Render(fmt.Sprintf("%3.0f%%", clamped*100)))
	return b.String()
}

// sparkline maps values onto block glyphs, scaled to their own range.
func sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	out := make([]rune, width)
	for i := range out {
		v := values[i*len(values)/width]
		level := len(sparkRunes) / 2
		if hi > lo {
			level = int((v - lo) / (hi - lo) * float64(len(sparkRunes)-1))
		}
		out[i] = sparkRunes[utils.ClampIndex(level, len(sparkRunes))]
	}
	return string(out)
}

func hexColorFromHSV(h, s, v float64) string {
	s = utils.Clamp(s, 0.0, 1.0)
	v = utils.Clamp(v, 0.0, 1.0)
	r, g, b, err := colorconv.HSVToRGB(math.Mod(h+360, 360), s, v)
	if err != nil {
		return "#FFFFFF"
	}
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func renderInstructions(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	var segments []string
	for i, part := range parts {
		if i > 0 {
			segments = append(segments, instructionDividerStyle.Render(" · "))
		}
		segments = append(segments, renderInstruction(part))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, segments...)
}

func renderInstruction(part string) string {
	tokens := strings.Fields(part)
	if len(tokens) == 0 {
		return ""
	}
	if len(tokens) == 1 {
		return instructionTextStyle.Render(tokens[0])
	}

	var segments []string
	keyTokens := tokens[:len(tokens)-1]
	for i, token := range keyTokens {
		if i > 0 {
			segments = append(segments, instructionTextStyle.Render(" "))
		}
		segments = append(segments, instructionKeyStyle.Render(token))
	}
	segments = append(segments, instructionTextStyle.Render(" "))
	segments = append(segments, instructionTextStyle.Render(tokens[len(tokens)-1]))
	return lipgloss.JoinHorizontal(lipgloss.Left, segments...)
}
