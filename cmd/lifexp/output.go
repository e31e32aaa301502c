package main

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

var (
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	styleStep    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7dcfff"))
	styleBold    = lipgloss.NewStyle().Bold(true)
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
	styleXP      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#bb9af7"))
	styleCard    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3b4261")).
			Padding(0, 1)
)

func colorize(style lipgloss.Style, text string) string {
	if noColor {
		return text
	}
	return style.Render(text)
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(errOut, colorize(styleSuccess, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(errOut, colorize(styleError, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(errOut, colorize(styleWarning, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(styleBold, label+":")
	fmt.Fprintf(errOut, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(errOut, colorize(styleStep, "→ "+msg))
}

// card frames a block of text, or returns it unchanged without color.
func card(text string) string {
	if noColor {
		return text
	}
	return styleCard.Render(text)
}

// render writes v as JSON or YAML when --output asks for it, and otherwise
// calls text.
func render(v any, text func()) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	text()
	return nil
}
