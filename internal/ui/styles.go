package ui

import "github.com/charmbracelet/lipgloss"

// Compass palette
var (
	ColorPanel        = lipgloss.Color("#162a4a")
	ColorAmber        = lipgloss.Color("#ff9f43")
	ColorWhite        = lipgloss.Color("#ffffff")
	ColorScaleText    = lipgloss.Color("#e0e0e0")
	ColorScaleLines   = lipgloss.Color("#8899aa")
	ColorBorderBright = lipgloss.Color("#ff9f43")
	ColorBorderNorm   = lipgloss.Color("#8899aa")
	ColorError        = lipgloss.Color("#ff6b6b")
	ColorWarning      = lipgloss.Color("#ffcc00")
	ColorOK           = lipgloss.Color("#2ecc71")
)

// Pre-built styles
var (
	StyleMenuBar = lipgloss.NewStyle().
			Background(ColorPanel).
			Foreground(ColorScaleText).
			Bold(true).
			Padding(0, 1)

	StyleMenuKey = lipgloss.NewStyle().
			Foreground(ColorAmber).
			Bold(true)

	StyleMenuLabel = lipgloss.NewStyle().
			Foreground(ColorScaleText)

	StyleStatusBar = lipgloss.NewStyle().
			Background(ColorPanel).
			Foreground(ColorScaleText).
			Padding(0, 1)

	StyleStatusLive = lipgloss.NewStyle().
			Foreground(ColorOK).
			Bold(true)

	StyleStatusWaiting = lipgloss.NewStyle().
				Foreground(ColorWarning).
				Bold(true)

	StyleStatusError = lipgloss.NewStyle().
				Foreground(ColorError).
				Bold(true)

	StylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderNorm)

	StylePanelActive = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderBright)

	StylePanelTitle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Bold(true).
			Padding(0, 1)

	StyleHeadingLabel = lipgloss.NewStyle().
				Foreground(ColorAmber).
				Bold(true)

	StyleHeadingValue = lipgloss.NewStyle().
				Foreground(ColorWhite).
				Bold(true)

	StyleStatLabel = lipgloss.NewStyle().
			Foreground(ColorScaleLines)

	StyleStatValue = lipgloss.NewStyle().
			Foreground(ColorAmber).
			Bold(true)

	StyleSection = lipgloss.NewStyle().
			Foreground(ColorAmber).
			Bold(true)

	StyleText = lipgloss.NewStyle().
			Foreground(ColorScaleText)

	StyleErrorTitle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorScaleLines)
)
