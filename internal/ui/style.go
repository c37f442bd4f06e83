package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Green       = color.New(color.FgGreen).SprintFunc()
	Red         = color.New(color.FgRed).SprintFunc()
	Yellow      = color.New(color.FgYellow).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen   = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed     = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
	BoldWhite   = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// SetColor forces color output on or off, e.g. for --no-color or tests.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

// PrintLogo renders the colored loomcast logo to w.
func PrintLogo(w io.Writer) {
	frame := color.New(color.FgCyan)
	bars := color.New(color.FgYellow)
	brand := color.New(color.Bold, color.FgMagenta)
	tag := color.New(color.Faint)

	fmt.Fprintln(w)
	frame.Fprintln(w, "   +--------------------------+")
	bars.Fprintln(w, "   |        .  :  |  :  .     |")
	bars.Fprintln(w, "   |     .  :  |  |  |  :  .  |")
	frame.Fprintln(w, "   |==========================|")
	brand.Fprintln(w, "   |  L  O  O  M  C  A  S  T  |")
	frame.Fprintln(w, "   +--------------------------+")
	tag.Fprintln(w, "   Monte Carlo delivery forecasts")
	fmt.Fprintln(w)
}

// packageColors is a palette of distinct bold colors for work package ids.
var packageColors = []func(a ...interface{}) string{
	BoldMagenta,
	BoldCyan,
	BoldYellow,
	BoldGreen,
	color.New(color.Bold, color.FgHiBlue).SprintFunc(),
	color.New(color.Bold, color.FgHiRed).SprintFunc(),
}

func packageColorIndex(id string) int {
	var h uint32
	for _, c := range id {
		h = h*31 + uint32(c)
	}
	return int(h % uint32(len(packageColors)))
}

// PackageID returns id in a color stable for that id.
func PackageID(id string) string {
	return packageColors[packageColorIndex(id)](id)
}

// Rank colors a percentile label by how much confidence it carries.
func Rank(rank int) string {
	label := fmt.Sprintf("p%d", rank)
	switch {
	case rank >= 85:
		return BoldGreen(label)
	case rank >= 50:
		return BoldYellow(label)
	default:
		return BoldRed(label)
	}
}

// CriticalityBar draws a fraction in [0,1] as a bar of width cells.
func CriticalityBar(fraction float64, width int) string {
	fraction = min(max(fraction, 0), 1)
	filled := int(fraction*float64(width) + 0.5)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case fraction >= 0.5:
		return Red(bar)
	case fraction > 0:
		return Yellow(bar)
	default:
		return Dim(bar)
	}
}

// StatusIcon returns a colored icon for a work package.
func StatusIcon(done, critical bool) string {
	switch {
	case done:
		return Green("✓")
	case critical:
		return BoldYellow("⚡")
	default:
		return Dim("◌")
	}
}
