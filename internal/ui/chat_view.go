package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"gryt-terminal/internal/chat"
	"gryt-terminal/internal/logging"
)

const (
	titleHeight    = 3
	textareaHeight = 5
	helpHeight     = 2
	padding        = 2
	sidebarWidth   = 32

	composerPlaceholder = "Type your message..."
	thinkingPlaceholder = "AI is thinking..."
	messageCharLimit    = 2000
)

type focusArea int

const (
	focusComposer focusArea = iota
	focusSidebar
)

// ChatViewModel is the main chat screen: session sidebar on the left,
// transcript and composer on the right.
type ChatViewModel struct {
	manager        *chat.Manager
	sidebar        SidebarModel
	viewport       viewport.Model
	textarea       textarea.Model
	spinner        spinner.Model
	quickActions   QuickActionsOverlayModel
	messages       []chat.Message
	focus          focusArea
	awaiting       bool
	requestTimeout time.Duration
	errMsg         string
	width          int
	height         int
	mdRenderer     *glamour.TermRenderer
}

// ReplyReceived carries the assistant message for a settled exchange. The
// message keeps its session identity so replies for a background session
// never leak into the visible transcript.
type ReplyReceived struct {
	Message chat.Message
}

// TranscriptLoaded delivers a session's stored messages after a switch.
type TranscriptLoaded struct {
	SessionID string
	Messages  []chat.Message
}

// ChatError surfaces a storage failure on the chat screen.
type ChatError struct {
	Err error
}

// createMarkdownRenderer creates a markdown renderer with fallback handling
func createMarkdownRenderer(width int) *glamour.TermRenderer {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-10),
	)
	if err == nil {
		return renderer
	}

	logging.Error("failed to create markdown renderer with auto style, trying fallback", "error", err)

	renderer, err = glamour.NewTermRenderer(
		glamour.WithWordWrap(width - 10),
	)
	if err == nil {
		return renderer
	}

	logging.Error("failed to create markdown renderer with basic style, using no style", "error", err)

	renderer, err = glamour.NewTermRenderer()
	if err != nil {
		logging.Error("failed to create bare markdown renderer", "error", err)
		return nil
	}

	return renderer
}

// safeRenderMarkdown renders markdown with panic recovery and plain-text fallback.
func (m *ChatViewModel) safeRenderMarkdown(content string) string {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("panic in markdown rendering", "recovered", r)
		}
	}()

	if m.mdRenderer == nil || content == "" {
		return content
	}

	rendered, err := m.mdRenderer.Render(content)
	if err != nil {
		logging.Error("markdown rendering error, falling back to plain text", "error", err)
		return content
	}

	return strings.TrimRight(rendered, "\n")
}

func NewChatViewModel(manager *chat.Manager, requestTimeout time.Duration, width, height int) ChatViewModel {
	ta := textarea.New()
	ta.Placeholder = composerPlaceholder
	ta.Focus()
	ta.CharLimit = messageCharLimit
	ta.SetWidth(width - sidebarWidth - 6)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	// Keep only essential editing keys; plain Enter submits, Shift+Enter
	// inserts a line break.
	ta.KeyMap.CharacterForward = key.NewBinding(key.WithKeys("right"))
	ta.KeyMap.CharacterBackward = key.NewBinding(key.WithKeys("left"))
	ta.KeyMap.LineStart = key.NewBinding(key.WithKeys("home"))
	ta.KeyMap.LineEnd = key.NewBinding(key.WithKeys("end"))
	ta.KeyMap.DeleteCharacterBackward = key.NewBinding(key.WithKeys("backspace"))
	ta.KeyMap.DeleteCharacterForward = key.NewBinding(key.WithKeys("delete"))
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("shift+enter"))
	ta.KeyMap.LineNext = key.NewBinding(key.WithKeys("down"))
	ta.KeyMap.LinePrevious = key.NewBinding(key.WithKeys("up"))
	ta.KeyMap.WordForward = key.NewBinding()
	ta.KeyMap.WordBackward = key.NewBinding()
	ta.KeyMap.DeleteWordBackward = key.NewBinding()
	ta.KeyMap.DeleteWordForward = key.NewBinding()
	ta.KeyMap.DeleteAfterCursor = key.NewBinding()
	ta.KeyMap.DeleteBeforeCursor = key.NewBinding()

	viewportHeight := height - titleHeight - textareaHeight - helpHeight - padding
	vp := viewport.New(width-sidebarWidth-8, viewportHeight)
	vp.SetContent("")
	vp.MouseWheelDelta = 2

	vp.KeyMap.Down = key.NewBinding()
	vp.KeyMap.Up = key.NewBinding()
	vp.KeyMap.PageDown = key.NewBinding(key.WithKeys("pgdown"))
	vp.KeyMap.PageUp = key.NewBinding(key.WithKeys("pgup"))
	vp.KeyMap.HalfPageDown = key.NewBinding()
	vp.KeyMap.HalfPageUp = key.NewBinding()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	sb := NewSidebarModel(manager.Sessions(), manager.CurrentID(), sidebarWidth, height-padding)

	qa := NewQuickActionsOverlayModel()
	qa.UpdateSize(width, height)

	return ChatViewModel{
		manager:        manager,
		sidebar:        sb,
		viewport:       vp,
		textarea:       ta,
		spinner:        sp,
		quickActions:   qa,
		requestTimeout: requestTimeout,
		width:          width,
		height:         height,
		mdRenderer:     createMarkdownRenderer(width - sidebarWidth),
	}
}

func (m ChatViewModel) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.loadTranscript(m.manager.CurrentID()),
	)
}

func (m ChatViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case QuickActionChosen:
		m.textarea.SetValue(msg.Prefix)
		m.textarea.CursorEnd()
		m.quickActions.Hide()
		m.focus = focusComposer
		m.textarea.Focus()
		return m, nil

	case QuickActionsClosed:
		m.quickActions.Hide()
		m.textarea.Focus()
		return m, nil
	}

	if m.quickActions.IsVisible() {
		if cmd := m.quickActions.UpdateActions(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		viewportHeight := msg.Height - titleHeight - textareaHeight - helpHeight - padding
		m.viewport.Width = msg.Width - sidebarWidth - 8
		m.viewport.Height = viewportHeight
		m.textarea.SetWidth(msg.Width - sidebarWidth - 6)
		m.sidebar.SetSize(sidebarWidth, msg.Height-padding)
		m.quickActions.UpdateSize(msg.Width, msg.Height)
		m.mdRenderer = createMarkdownRenderer(msg.Width - sidebarWidth)
		m.renderMessages()
		return m, nil

	case tea.KeyMsg:
		if m.sidebar.Renaming() && m.focus == focusSidebar {
			var cmd tea.Cmd
			m.sidebar, cmd = m.sidebar.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+x":
			return m, tea.Quit

		case "tab":
			if m.focus == focusComposer {
				m.focus = focusSidebar
				m.textarea.Blur()
			} else {
				m.focus = focusComposer
				m.textarea.Focus()
			}
			return m, nil

		case "ctrl+p":
			if !m.awaiting {
				m.quickActions.Show()
				m.textarea.Blur()
			}
			return m, nil

		case "enter":
			if m.focus == focusComposer {
				return m.submit()
			}

		case "ctrl+n":
			return m.createSession()
		}

		if m.focus == focusSidebar {
			var cmd tea.Cmd
			m.sidebar, cmd = m.sidebar.Update(msg)
			return m, cmd
		}

	case SessionSelected:
		transcript, err := m.manager.SelectSession(context.Background(), msg.SessionID)
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.messages = transcript
		m.errMsg = ""
		m.sidebar.Refresh(m.manager.Sessions(), m.manager.CurrentID())
		m.renderMessages()
		m.viewport.GotoBottom()
		m.focus = focusComposer
		m.textarea.Focus()
		return m, nil

	case CreateNewSession:
		return m.createSession()

	case DeleteSession:
		if err := m.manager.DeleteSession(context.Background(), msg.SessionID); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.sidebar.Refresh(m.manager.Sessions(), m.manager.CurrentID())
		if current := m.manager.CurrentID(); current != "" {
			return m, m.loadTranscript(current)
		}
		m.messages = nil
		m.renderMessages()
		return m, nil

	case RenameSession:
		if err := m.manager.RenameSession(context.Background(), msg.SessionID, msg.Title); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.sidebar.Refresh(m.manager.Sessions(), m.manager.CurrentID())
		m.focus = focusComposer
		m.textarea.Focus()
		return m, nil

	case TranscriptLoaded:
		if msg.SessionID != m.manager.CurrentID() {
			return m, nil
		}
		m.messages = msg.Messages
		m.renderMessages()
		m.viewport.GotoBottom()
		return m, nil

	case ReplyReceived:
		m.awaiting = false
		m.textarea.Placeholder = composerPlaceholder
		m.sidebar.Refresh(m.manager.Sessions(), m.manager.CurrentID())
		// Only surface the reply if its session is still on screen.
		if msg.Message.SessionID == m.manager.CurrentID() {
			m.messages = append(m.messages, msg.Message)
			m.renderMessages()
			m.viewport.GotoBottom()
		}
		return m, nil

	case ChatError:
		m.errMsg = msg.Err.Error()
		m.awaiting = false
		m.textarea.Placeholder = composerPlaceholder
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.focus == focusComposer && !m.awaiting {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit validates the composer value and starts a single in-flight exchange.
func (m ChatViewModel) submit() (tea.Model, tea.Cmd) {
	if m.awaiting {
		return m, nil
	}
	if strings.TrimSpace(m.textarea.Value()) == "" {
		return m, nil
	}

	text := m.textarea.Value()
	userMsg, err := m.manager.AppendUser(context.Background(), text)
	if err != nil {
		m.errMsg = err.Error()
		return m, nil
	}

	m.textarea.Reset()
	m.errMsg = ""
	m.awaiting = true
	m.textarea.Placeholder = thinkingPlaceholder
	m.messages = append(m.messages, userMsg)
	m.sidebar.Refresh(m.manager.Sessions(), m.manager.CurrentID())
	m.renderMessages()
	m.viewport.GotoBottom()

	return m, tea.Batch(m.complete(userMsg.SessionID, userMsg.Content), m.spinner.Tick)
}

func (m ChatViewModel) createSession() (tea.Model, tea.Cmd) {
	if _, err := m.manager.CreateSession(context.Background()); err != nil {
		m.errMsg = err.Error()
		return m, nil
	}
	m.errMsg = ""
	m.messages = nil
	m.sidebar.Refresh(m.manager.Sessions(), m.manager.CurrentID())
	m.renderMessages()
	m.focus = focusComposer
	m.textarea.Focus()
	return m, nil
}

// complete runs the outbound call off the UI loop. The session identity is
// captured at issue time so the reply lands in the right log even if the
// user switches sessions while the call is in flight.
func (m ChatViewModel) complete(sessionID, text string) tea.Cmd {
	mgr := m.manager
	timeout := m.requestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		reply := mgr.Complete(ctx, sessionID, text)
		return ReplyReceived{Message: reply}
	}
}

func (m ChatViewModel) loadTranscript(sessionID string) tea.Cmd {
	if sessionID == "" {
		return nil
	}
	mgr := m.manager
	return func() tea.Msg {
		messages, err := mgr.Messages(context.Background(), sessionID)
		if err != nil {
			return ChatError{Err: err}
		}
		return TranscriptLoaded{SessionID: sessionID, Messages: messages}
	}
}

func (m *ChatViewModel) renderMessages() {
	var b strings.Builder

	for _, msg := range m.messages {
		label := AssistantMessageLabelStyle.Render("GRYT AI:")
		if msg.Role == chat.RoleUser {
			label = UserMessageLabelStyle.Render("You:")
		}

		rendered := m.safeRenderMarkdown(msg.Content)
		timestamp := TimestampStyle.Render(msg.Timestamp.Format("15:04"))

		b.WriteString(MessageContentStyle.Width(m.viewport.Width - 2).Render(label + " " + timestamp + "\n" + rendered))
		b.WriteString("\n\n")
	}

	m.viewport.SetContent(b.String())
}

func (m ChatViewModel) View() string {
	var b strings.Builder

	title := "GRYT AI"
	if current, ok := m.manager.CurrentSession(); ok {
		title = current.Title
	}
	b.WriteString(TitleWithPaddingStyle.Render(title) + "\n")

	statusLine := fmt.Sprintf("Sessions: %d", len(m.manager.Sessions()))
	if m.awaiting {
		statusLine += " | " + m.spinner.View() + " " + thinkingPlaceholder
	}
	b.WriteString(statusBarStyle.Render(statusLine) + "\n\n")

	b.WriteString(RenderViewportWithBorder(m.viewport.View()))
	b.WriteString("\n")

	if scrollInfo := m.renderScrollIndicator(); scrollInfo != "" {
		b.WriteString(scrollInfo)
	}
	b.WriteString("\n")

	b.WriteString(m.textarea.View() + "\n")
	b.WriteString(CharCountStyle.Render(fmt.Sprintf("%d/%d", len([]rune(m.textarea.Value())), messageCharLimit)))
	b.WriteString("\n")

	if m.errMsg != "" {
		b.WriteString(RenderError(m.errMsg) + "\n")
	}

	helpText := "Enter: Send • Shift+Enter: New line • PgUp/PgDn: Scroll • Tab: Sessions • Ctrl+N: New chat • Ctrl+P: Prompts • Ctrl+X: Exit"
	if m.focus == focusSidebar {
		helpText = "Enter: Open • Ctrl+N: New chat • Ctrl+D: Delete • Ctrl+R: Rename • Tab: Composer • Ctrl+X: Exit"
	}
	b.WriteString(helpStyle.Render(helpText))

	sidebarStyle := SidebarBorderStyle
	if m.focus == focusSidebar {
		sidebarStyle = SidebarFocusedBorderStyle
	}

	baseView := lipgloss.JoinHorizontal(lipgloss.Top,
		sidebarStyle.Render(m.sidebar.View()),
		b.String(),
	)

	return m.quickActions.RenderOverlay(baseView)
}

func (m ChatViewModel) renderScrollIndicator() string {
	if m.viewport.TotalLineCount() <= m.viewport.Height {
		return ""
	}

	scrollPercent := int(m.viewport.ScrollPercent() * 100)
	return ScrollIndicatorStyle.Render(fmt.Sprintf("Scroll: %d%% ↕", scrollPercent))
}
