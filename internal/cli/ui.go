package cli

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mkruijt/linkmap/pkg/linkage"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorWhite  = lipgloss.Color("255")
	colorDim    = lipgloss.Color("240")
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleHeader  = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	iconSuccess = "✓"
	iconWarning = "!"
)

func printSuccess(format string, args ...any) {
	fmt.Println(styleSuccess.Render(iconSuccess), fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleWarning.Render(iconWarning), fmt.Sprintf(format, args...))
}

func printDetail(format string, args ...any) {
	fmt.Println(" ", styleDim.Render(fmt.Sprintf(format, args...)))
}

// renderMapTable formats a finished map as an aligned marker table:
// position, name, phase, recombination fraction, cumulative distance.
func renderMapTable(m *linkage.GlobalMap) string {
	var b strings.Builder
	b.WriteString(styleHeader.Render(fmt.Sprintf("%-4s %-16s %-8s %-8s %10s", "#", "marker", "phase", "rf", "cM")))
	b.WriteByte('\n')

	for i, idx := range m.Markers {
		name := fmt.Sprintf("M%d", idx)
		if i < len(m.Names) && m.Names[i] != "" {
			name = m.Names[i]
		}
		phase, rf := "", ""
		if i > 0 {
			phase = m.Phases[i-1].String()
			if math.IsNaN(m.RF[i-1]) {
				rf = "?"
			} else {
				rf = fmt.Sprintf("%.4f", m.RF[i-1])
			}
		}
		b.WriteString(fmt.Sprintf("%s %s %s %s %s\n",
			styleDim.Render(fmt.Sprintf("%-4d", i)),
			styleValue.Render(fmt.Sprintf("%-16s", name)),
			styleValue.Render(fmt.Sprintf("%-8s", phase)),
			styleValue.Render(fmt.Sprintf("%-8s", rf)),
			styleNumber.Render(fmt.Sprintf("%10.2f", m.CumDist[i])),
		))
	}
	return b.String()
}

// renderSummary formats the summary block shown after a build.
func renderSummary(sum linkage.Summary) string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("map summary"))
	b.WriteByte('\n')
	row := func(label string, value string) {
		b.WriteString(fmt.Sprintf("  %s %s\n", styleDim.Render(fmt.Sprintf("%-16s", label)), styleValue.Render(value)))
	}
	row("markers", fmt.Sprintf("%d", sum.Markers))
	row("length", fmt.Sprintf("%.2f cM", sum.LengthCM))
	row("mean interval", fmt.Sprintf("%.2f cM", sum.MeanIntervalCM))
	row("max interval", fmt.Sprintf("%.2f cM", sum.MaxIntervalCM))
	row("median rf", fmt.Sprintf("%.4f", sum.MedianRF))
	row("log-likelihood", fmt.Sprintf("%.3f", sum.LogLik))
	row("warnings", fmt.Sprintf("%d", sum.Warnings))
	return b.String()
}
