package ui

import "github.com/charmbracelet/lipgloss"

const (
	accent = lipgloss.Color("#2EC4B6")
	warm   = lipgloss.Color("#FFBF69")
	muted  = lipgloss.Color("#6B7280")
	danger = lipgloss.Color("#FF4757")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			MarginTop(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(muted).
			MarginBottom(1)

	PathStyle = lipgloss.NewStyle().
			Foreground(warm)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	OptionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	PreviewStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(muted).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(danger).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(warm)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(muted).
			MarginTop(1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 2)
)
