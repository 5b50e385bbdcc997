package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
	tint "github.com/lrstanley/bubbletint"
)

// Theme registry for the application
var Theme *tint.Registry

// Common style elements used across all views
var (
	TitleStyle            lipgloss.Style
	TitleWithPaddingStyle lipgloss.Style
	ActiveLabelStyle      lipgloss.Style
	InactiveLabelStyle    lipgloss.Style
	errorStyle            lipgloss.Style
	ErrorMessageStyle     lipgloss.Style
	SuccessMessageStyle   lipgloss.Style
	statusBarStyle        lipgloss.Style
	helpStyle             lipgloss.Style
	HelpTextSimpleStyle   lipgloss.Style
	ActiveButtonStyle     lipgloss.Style
	InactiveButtonStyle   lipgloss.Style

	UserMessageLabelStyle      lipgloss.Style
	AssistantMessageLabelStyle lipgloss.Style
	MessageContentStyle        lipgloss.Style
	TimestampStyle             lipgloss.Style
	MetadataStyle              lipgloss.Style
	SpinnerStyle               lipgloss.Style
	ViewportBorderStyle        lipgloss.Style
	ScrollIndicatorStyle       lipgloss.Style
	CharCountStyle             lipgloss.Style

	SidebarBorderStyle        lipgloss.Style
	SidebarFocusedBorderStyle lipgloss.Style

	// Quick actions overlay styles
	OverlayBorderStyle       lipgloss.Style
	OverlayTitleStyle        lipgloss.Style
	OverlaySelectedItemStyle lipgloss.Style
	OverlayNormalItemStyle   lipgloss.Style
)

func init() {
	// Initialize with Tint theme
	tint.NewDefaultRegistry()
	tint.SetTint(tint.TintChalk)
	Theme = tint.DefaultRegistry

	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(tint.Purple())

	TitleWithPaddingStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(tint.Purple()).
		Padding(0, 1)

	ActiveLabelStyle = lipgloss.NewStyle().
		Foreground(tint.White()).
		Bold(true)

	InactiveLabelStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack())

	errorStyle = lipgloss.NewStyle().
		Foreground(tint.Red()).
		Bold(true).
		Padding(1)

	ErrorMessageStyle = lipgloss.NewStyle().
		Foreground(tint.Red())

	SuccessMessageStyle = lipgloss.NewStyle().
		Foreground(tint.Green())

	statusBarStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(1, 0, 0, 1)

	HelpTextSimpleStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack())

	ActiveButtonStyle = lipgloss.NewStyle().
		Foreground(tint.Bg()).
		Background(tint.Purple()).
		Bold(true)

	InactiveButtonStyle = lipgloss.NewStyle().
		Foreground(tint.Purple())

	UserMessageLabelStyle = lipgloss.NewStyle().
		Foreground(tint.White()).
		Bold(true)

	AssistantMessageLabelStyle = lipgloss.NewStyle().
		Foreground(tint.Purple()).
		Bold(true)

	MessageContentStyle = lipgloss.NewStyle().
		Foreground(tint.Fg()).
		Padding(0, 1).
		MarginBottom(1)

	TimestampStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack())

	MetadataStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack())

	SpinnerStyle = lipgloss.NewStyle().
		Foreground(tint.Purple())

	ViewportBorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(tint.White()).
		Padding(0, 1)

	ScrollIndicatorStyle = lipgloss.NewStyle().
		Foreground(tint.White()).
		Bold(false)

	CharCountStyle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Align(lipgloss.Right)

	SidebarBorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(tint.BrightBlack()).
		Padding(0, 1)

	SidebarFocusedBorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(tint.Purple()).
		Padding(0, 1)

	OverlayBorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(tint.Yellow()).
		Padding(1, 2)

	OverlayTitleStyle = lipgloss.NewStyle().
		Foreground(tint.Yellow()).
		Bold(true)

	OverlaySelectedItemStyle = lipgloss.NewStyle().
		Foreground(tint.Purple()).
		Background(tint.BrightBlack()).
		Bold(true)

	OverlayNormalItemStyle = lipgloss.NewStyle().
		Foreground(tint.Fg())
}

// CreateThemedDelegate creates a themed list delegate with application colors
func CreateThemedDelegate() list.DefaultDelegate {
	d := list.NewDefaultDelegate()

	d.Styles.SelectedTitle = lipgloss.NewStyle().
		Foreground(tint.Purple()).
		Bold(true).
		BorderLeft(true).
		BorderForeground(tint.Purple()).
		Padding(0, 0, 0, 1)

	d.Styles.SelectedDesc = lipgloss.NewStyle().
		Foreground(tint.Yellow()).
		BorderLeft(true).
		BorderForeground(tint.Purple()).
		Padding(0, 0, 0, 1)

	d.Styles.NormalTitle = lipgloss.NewStyle().
		Foreground(tint.Fg()).
		Padding(0, 0, 0, 2)

	d.Styles.NormalDesc = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 0, 0, 2)

	d.Styles.DimmedTitle = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 0, 0, 2)

	d.Styles.DimmedDesc = lipgloss.NewStyle().
		Foreground(tint.BrightBlack()).
		Padding(0, 0, 0, 2)

	return d
}

// GetFieldLabelStyle returns the appropriate style for a field label based on whether it's active
func GetFieldLabelStyle(isActive bool) lipgloss.Style {
	if isActive {
		return ActiveLabelStyle
	}
	return InactiveLabelStyle
}

// RenderFieldLabel renders a field label with the appropriate style
func RenderFieldLabel(label string, isActive bool) string {
	return GetFieldLabelStyle(isActive).Render(label)
}

// RenderButton renders a button with the appropriate style
func RenderButton(label string, isActive bool) string {
	if isActive {
		return ActiveButtonStyle.Render(" " + label + " ")
	}
	return InactiveButtonStyle.Render("[ " + label + " ]")
}

// RenderError renders an error message
func RenderError(msg string) string {
	return ErrorMessageStyle.Render("  ✗ " + msg)
}

// RenderSuccess renders a success message
func RenderSuccess(msg string) string {
	return SuccessMessageStyle.Render("  ✓ " + msg)
}

// RenderViewportWithBorder renders content with a viewport border style
func RenderViewportWithBorder(content string) string {
	return ViewportBorderStyle.Render(content)
}
