package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
)

var (
	// Color palette
	primaryColor = lipgloss.Color("#7D56F4")
	successColor = lipgloss.Color("#04B575")
	errorColor   = lipgloss.Color("#FF4B4B")
	mutedColor   = lipgloss.Color("#666666")
	borderColor  = lipgloss.Color("#383838")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(primaryColor).
				Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	okStyle   = lipgloss.NewStyle().Foreground(successColor)
	failStyle = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(mutedColor)
)

// applyColor switches lipgloss to plain output for --no-color. Otherwise
// lipgloss detects the terminal itself.
func applyColor() {
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// renderTable lays rows out under headers with a rounded border.
func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return cellStyle
		}).
		String()
}

func status(ok bool) string {
	if ok {
		return okStyle.Render("ok")
	}
	return failStyle.Render("FAIL")
}
