package tui

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha, the subset the form uses.
const (
	colorRed      lipgloss.Color = "#f38ba8"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface1 lipgloss.Color = "#45475a"
	colorBase     lipgloss.Color = "#1e1e2e"
)

const (
	colorFocus   = colorLavender
	colorSuccess = colorGreen
	colorError   = colorRed
	colorWarning = colorYellow
	colorInfo    = colorTeal
)

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(colorText).Transform(titleCase)
	labelStyle      = lipgloss.NewStyle().Foreground(colorText)
	mutedStyle      = lipgloss.NewStyle().Foreground(colorSubtext0)
	fieldErrorStyle = lipgloss.NewStyle().Foreground(colorError).Faint(true)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorSurface1).Padding(0, 1)
	buttonStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorBase).Background(colorBlue).Padding(0, 2)
	busyButtonStyle = lipgloss.NewStyle().Foreground(colorText).Background(colorSurface1).Padding(0, 2)
	toastStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(toastWidth)
)

// inputBorder colours a field's border by focus and error state.
func inputBorder(focused, invalid bool) lipgloss.Style {
	switch {
	case focused && invalid:
		return inputStyle.BorderForeground(colorError)
	case focused:
		return inputStyle.BorderForeground(colorFocus)
	default:
		return inputStyle
	}
}

func titleCase(s string) string {
	out := []rune(s)
	up := true
	for i, r := range out {
		if up && r >= 'a' && r <= 'z' {
			out[i] = r - 'a' + 'A'
		}
		up = r == ' '
	}
	return string(out)
}
