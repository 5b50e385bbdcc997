package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gryt-terminal/internal/api"
	"gryt-terminal/internal/auth"
)

// redirectDelay is how long the success message stays on screen before the
// app moves to the chat view.
const redirectDelay = 2 * time.Second

// AccessGranted tells the root model to navigate to the chat view.
type AccessGranted struct {
	Token string
}

type keyValidated struct {
	Token string
}

type keyRejected struct {
	Message string
}

// AccessKeyModel is the gate screen: a single masked input for the
// admin-issued access key.
type AccessKeyModel struct {
	client     *api.Client
	keyInput   textinput.Model
	validating bool
	errMsg     string
	successMsg string
	width      int
	height     int
}

func NewAccessKeyModel(client *api.Client, width, height int) AccessKeyModel {
	ti := textinput.New()
	ti.Placeholder = "Enter your access key..."
	ti.EchoMode = textinput.EchoPassword
	ti.CharLimit = 128
	ti.Width = 48
	ti.Focus()

	return AccessKeyModel{
		client:   client,
		keyInput: ti,
		width:    width,
		height:   height,
	}
}

func (m AccessKeyModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m AccessKeyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+x":
			return m, tea.Quit

		case "enter":
			if m.validating || m.successMsg != "" {
				return m, nil
			}
			return m.submit()
		}

	case keyValidated:
		m.validating = false
		m.successMsg = "Access key validated successfully! Redirecting to chat..."
		m.keyInput.SetValue("")
		token := msg.Token
		return m, tea.Tick(redirectDelay, func(time.Time) tea.Msg {
			return AccessGranted{Token: token}
		})

	case keyRejected:
		m.validating = false
		m.errMsg = msg.Message
		return m, nil
	}

	if !m.validating && m.successMsg == "" {
		var cmd tea.Cmd
		m.keyInput, cmd = m.keyInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// submit runs the local format checks before anything touches the network;
// a short key never produces a request.
func (m AccessKeyModel) submit() (tea.Model, tea.Cmd) {
	key := strings.TrimSpace(m.keyInput.Value())

	if err := auth.ValidateAccessKeyFormat(key); err != nil {
		switch {
		case errors.Is(err, auth.ErrKeyRequired):
			m.errMsg = "Access key is required"
		case errors.Is(err, auth.ErrKeyTooShort):
			m.errMsg = "Invalid access key format"
		default:
			m.errMsg = err.Error()
		}
		return m, nil
	}

	m.errMsg = ""
	m.validating = true
	return m, m.validateKey(key)
}

func (m AccessKeyModel) validateKey(key string) tea.Cmd {
	return func() tea.Msg {
		token, err := m.client.ValidateAccessKey(context.Background(), key)
		if err != nil {
			var apiErr *api.Error
			if errors.As(err, &apiErr) && apiErr.Message != "" {
				return keyRejected{Message: apiErr.Message}
			}
			return keyRejected{Message: "Something went wrong. Please try again."}
		}
		return keyValidated{Token: token}
	}
}

func (m AccessKeyModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("GRYT AI Access Key"))
	b.WriteString("\n\n")
	b.WriteString(MetadataStyle.Render("Enter the access key provided by your administrator"))
	b.WriteString("\n\n")

	if m.errMsg != "" {
		b.WriteString(RenderError(m.errMsg) + "\n\n")
	}
	if m.successMsg != "" {
		b.WriteString(RenderSuccess(m.successMsg) + "\n\n")
	}

	b.WriteString(RenderFieldLabel("Access Key:", true) + "\n")
	b.WriteString(m.keyInput.View() + "\n\n")

	if m.validating {
		b.WriteString(MetadataStyle.Render("Validating...") + "\n\n")
	} else {
		b.WriteString(RenderButton("Access Chat", true) + "\n\n")
	}

	b.WriteString(MetadataStyle.Render("Contact your administrator if you don't have an access key"))
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("Enter: Submit • Ctrl+X: Exit"))

	content := b.String()
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	return fmt.Sprintf("\n%s\n", content)
}
