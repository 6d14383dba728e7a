// Package ui holds the terminal styles shared by the CLI and the task list.
package ui

import (
	"os"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
)

// GetFangScheme returns the same light/dark-aware color scheme fang uses.
func GetFangScheme() fang.ColorScheme {
	isDark := lipgloss.HasDarkBackground(os.Stdin, os.Stdout)
	return fang.DefaultColorScheme(lipgloss.LightDark(isDark))
}

// TaskStyles returns the styles for a task name, its description and the
// marker shown next to composite tasks.
func TaskStyles() (lipgloss.Style, lipgloss.Style, lipgloss.Style) {
	colorScheme := GetFangScheme()

	name := lipgloss.NewStyle().Bold(true).Foreground(colorScheme.Command)
	desc := lipgloss.NewStyle().Foreground(colorScheme.Description)
	marker := lipgloss.NewStyle().Foreground(colorScheme.Flag)

	return name, desc, marker
}
