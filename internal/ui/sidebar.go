package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gryt-terminal/internal/chat"
)

// Messages emitted by the sidebar toward the chat view.
type (
	SessionSelected  struct{ SessionID string }
	CreateNewSession struct{}
	DeleteSession    struct{ SessionID string }
	RenameSession    struct {
		SessionID string
		Title     string
	}
)

type sessionItem struct {
	session chat.Session
}

func (i sessionItem) Title() string { return i.session.Title }
func (i sessionItem) Description() string {
	preview := i.session.LastMessage
	if preview == "" {
		preview = "No messages yet"
	}
	if len(preview) > 40 {
		preview = preview[:37] + "..."
	}
	return fmt.Sprintf("%s | %s", preview, formatRelativeTime(i.session.UpdatedAt))
}
func (i sessionItem) FilterValue() string { return i.session.Title }

// SidebarModel lists the chat sessions, newest first, with the current one
// highlighted. It also hosts the inline rename input.
type SidebarModel struct {
	list        list.Model
	sessions    []chat.Session
	currentID   string
	renaming    bool
	renameID    string
	renameInput textinput.Model
	width       int
	height      int
}

func NewSidebarModel(sessions []chat.Session, currentID string, width, height int) SidebarModel {
	items := sessionItems(sessions)

	l := list.New(items, CreateThemedDelegate(), width, height)
	l.Title = "Chats"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	// Disable all built-in key bindings except arrows
	l.KeyMap.CursorUp = key.NewBinding(key.WithKeys("up"))
	l.KeyMap.CursorDown = key.NewBinding(key.WithKeys("down"))
	l.KeyMap.NextPage = key.NewBinding()
	l.KeyMap.PrevPage = key.NewBinding()
	l.KeyMap.GoToStart = key.NewBinding()
	l.KeyMap.GoToEnd = key.NewBinding()
	l.KeyMap.Filter = key.NewBinding()
	l.KeyMap.ClearFilter = key.NewBinding()
	l.KeyMap.CancelWhileFiltering = key.NewBinding()
	l.KeyMap.AcceptWhileFiltering = key.NewBinding()
	l.KeyMap.ShowFullHelp = key.NewBinding()
	l.KeyMap.CloseFullHelp = key.NewBinding()
	l.KeyMap.Quit = key.NewBinding()
	l.KeyMap.ForceQuit = key.NewBinding()

	ti := textinput.New()
	ti.Placeholder = "Session title"
	ti.CharLimit = 100
	ti.Width = width - 4

	return SidebarModel{
		list:        l,
		sessions:    sessions,
		currentID:   currentID,
		renameInput: ti,
		width:       width,
		height:      height,
	}
}

func (m SidebarModel) Init() tea.Cmd {
	return nil
}

func (m SidebarModel) Update(msg tea.Msg) (SidebarModel, tea.Cmd) {
	if m.renaming {
		return m.updateRenaming(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			selected := m.selectedSession()
			if selected == nil {
				return m, nil
			}
			id := selected.ID
			return m, func() tea.Msg {
				return SessionSelected{SessionID: id}
			}

		case "ctrl+n":
			return m, func() tea.Msg {
				return CreateNewSession{}
			}

		case "ctrl+d":
			selected := m.selectedSession()
			if selected == nil {
				return m, nil
			}
			id := selected.ID
			return m, func() tea.Msg {
				return DeleteSession{SessionID: id}
			}

		case "ctrl+r":
			selected := m.selectedSession()
			if selected == nil {
				return m, nil
			}
			m.renaming = true
			m.renameID = selected.ID
			m.renameInput.SetValue(selected.Title)
			m.renameInput.CursorEnd()
			m.renameInput.Focus()
			return m, textinput.Blink
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m SidebarModel) updateRenaming(msg tea.Msg) (SidebarModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			id, title := m.renameID, m.renameInput.Value()
			m.renaming = false
			m.renameID = ""
			m.renameInput.Blur()
			return m, func() tea.Msg {
				return RenameSession{SessionID: id, Title: title}
			}

		case "esc":
			m.renaming = false
			m.renameID = ""
			m.renameInput.Blur()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	return m, cmd
}

func (m SidebarModel) View() string {
	if m.renaming {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.list.View(),
			RenderFieldLabel("Rename:", true),
			m.renameInput.View(),
		)
	}
	return m.list.View()
}

// Renaming reports whether the inline rename input is active.
func (m SidebarModel) Renaming() bool {
	return m.renaming
}

// Refresh replaces the session items and keeps the current session marked.
func (m *SidebarModel) Refresh(sessions []chat.Session, currentID string) {
	m.sessions = sessions
	m.currentID = currentID
	m.list.SetItems(sessionItems(sessions))

	for i, s := range sessions {
		if s.ID == currentID {
			m.list.Select(i)
			break
		}
	}
}

func (m *SidebarModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
	m.renameInput.Width = width - 4
}

func (m SidebarModel) selectedSession() *chat.Session {
	item := m.list.SelectedItem()
	if item == nil {
		return nil
	}
	s := item.(sessionItem).session
	return &s
}

func sessionItems(sessions []chat.Session) []list.Item {
	items := make([]list.Item, len(sessions))
	for i, s := range sessions {
		items[i] = sessionItem{session: s}
	}
	return items
}

// formatRelativeTime mirrors the web client's relative timestamps.
func formatRelativeTime(t time.Time) string {
	diff := time.Since(t)
	minutes := int(diff.Minutes())
	hours := int(diff.Hours())
	days := int(diff.Hours() / 24)

	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	case days < 7:
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("2006-01-02")
	}
}
