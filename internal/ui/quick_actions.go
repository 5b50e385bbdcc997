package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	overlay "github.com/rmhubbert/bubbletea-overlay"
)

type quickAction struct {
	label  string
	prefix string
}

var quickActions = []quickAction{
	{label: "Explain", prefix: "Explain this concept to me: "},
	{label: "Code Help", prefix: "Help me write code for: "},
	{label: "Summarize", prefix: "Summarize this for me: "},
	{label: "Analyze", prefix: "What are the pros and cons of: "},
}

// QuickActionChosen carries the prompt prefix to prefill into the composer.
type QuickActionChosen struct {
	Prefix string
}

// QuickActionsClosed is sent when the overlay is dismissed without a choice.
type QuickActionsClosed struct{}

// QuickActionsModel is the overlay foreground listing prompt starters.
type QuickActionsModel struct {
	selectedIndex int
	width         int
	height        int
}

func NewQuickActionsModel() QuickActionsModel {
	return QuickActionsModel{}
}

func (m QuickActionsModel) Init() tea.Cmd {
	return nil
}

func (m QuickActionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
			}
			return m, nil

		case "down", "j":
			if m.selectedIndex < len(quickActions)-1 {
				m.selectedIndex++
			}
			return m, nil

		case "enter":
			chosen := quickActions[m.selectedIndex]
			return m, func() tea.Msg {
				return QuickActionChosen{Prefix: chosen.prefix}
			}

		case "esc":
			return m, func() tea.Msg {
				return QuickActionsClosed{}
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

func (m QuickActionsModel) View() string {
	overlayWidth := m.width / 3
	if overlayWidth < 36 {
		overlayWidth = 36
	}

	var content strings.Builder
	content.WriteString(OverlayTitleStyle.Render("Quick Actions"))
	content.WriteString("\n\n")

	for i, action := range quickActions {
		indicator := "  "
		style := OverlayNormalItemStyle
		if i == m.selectedIndex {
			indicator = "▶ "
			style = OverlaySelectedItemStyle
		}
		content.WriteString(style.Render(indicator + action.label))
		content.WriteString("\n")
		content.WriteString(OverlayNormalItemStyle.Render("    " + strings.TrimSuffix(action.prefix, " ")))
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(HelpTextSimpleStyle.Render("↑/↓: Navigate • Enter: Use prompt • Esc: Cancel"))

	return OverlayBorderStyle.Width(overlayWidth).Render(content.String())
}

// QuickActionsOverlayModel wraps the action list with the overlay library.
type QuickActionsOverlayModel struct {
	actions QuickActionsModel
	visible bool
}

func NewQuickActionsOverlayModel() QuickActionsOverlayModel {
	return QuickActionsOverlayModel{
		actions: NewQuickActionsModel(),
	}
}

func (m *QuickActionsOverlayModel) Show() {
	m.actions.selectedIndex = 0
	m.visible = true
}

func (m *QuickActionsOverlayModel) Hide() {
	m.visible = false
}

func (m *QuickActionsOverlayModel) IsVisible() bool {
	return m.visible
}

func (m *QuickActionsOverlayModel) UpdateSize(width, height int) {
	m.actions.width = width
	m.actions.height = height
}

func (m *QuickActionsOverlayModel) UpdateActions(msg tea.Msg) tea.Cmd {
	if !m.visible {
		return nil
	}

	var cmd tea.Cmd
	var mdl tea.Model
	mdl, cmd = m.actions.Update(msg)
	m.actions = mdl.(QuickActionsModel)
	return cmd
}

func (m QuickActionsOverlayModel) RenderOverlay(backgroundView string) string {
	if !m.visible {
		return backgroundView
	}

	overlayModel := overlay.New(
		m.actions,
		&staticViewModel{content: backgroundView},
		overlay.Center,
		overlay.Top,
		0,
		1,
	)

	return overlayModel.View()
}

// staticViewModel renders fixed content as the overlay background.
type staticViewModel struct {
	content string
}

func (m staticViewModel) Init() tea.Cmd {
	return nil
}

func (m staticViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

func (m staticViewModel) View() string {
	return m.content
}
