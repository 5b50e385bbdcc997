package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"gryt-terminal/internal/api"
	"gryt-terminal/internal/auth"
	"gryt-terminal/internal/chat"
	"gryt-terminal/internal/config"
	"gryt-terminal/internal/logging"
	"gryt-terminal/internal/store"
	"gryt-terminal/internal/ui"
)

type appState int

const (
	stateAccessKey appState = iota
	stateChat
)

type model struct {
	state   appState
	client  *api.Client
	manager *chat.Manager
	tokens  *auth.TokenStore
	cfg     *config.Config

	accessKeyModel ui.AccessKeyModel
	chatViewModel  ui.ChatViewModel

	width  int
	height int

	err error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dataDir, err := config.DataDir()
	if err != nil {
		log.Fatalf("Failed to resolve data directory: %v", err)
	}

	if err := logging.Init(filepath.Join(dataDir, "logs"), parseLevel(cfg.LogLevel)); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	dbPath := filepath.Join(dataDir, "db")
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	chatStore, err := store.NewBadgerStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to open chat store: %v", err)
	}
	defer chatStore.Close()

	client := api.New(
		api.WithBaseURL(cfg.ServerURL),
		api.WithTimeout(time.Duration(cfg.RequestTimeoutSeconds)*time.Second),
	)

	manager := chat.NewManager(chatStore, client)
	if err := manager.Load(context.Background()); err != nil {
		log.Fatalf("Failed to load sessions: %v", err)
	}

	tokens := auth.NewTokenStore(dataDir)

	initialModel := model{
		client:  client,
		manager: manager,
		tokens:  tokens,
		cfg:     cfg,
		width:   80,
		height:  24,
	}

	// A stored token from a previous run skips the access gate.
	if token, err := tokens.Load(); err == nil && token != "" {
		client.SetToken(token)
		initialModel.state = stateChat
		initialModel.chatViewModel = newChatView(manager, cfg, 80, 24)
	} else {
		initialModel.state = stateAccessKey
		initialModel.accessKeyModel = ui.NewAccessKeyModel(client, 80, 24)
	}

	p := tea.NewProgram(initialModel, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}

func newChatView(manager *chat.Manager, cfg *config.Config, width, height int) ui.ChatViewModel {
	if len(manager.Sessions()) == 0 {
		if _, err := manager.CreateSession(context.Background()); err != nil {
			logging.Error("failed to create initial session", "error", err)
		}
	}
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	return ui.NewChatViewModel(manager, timeout, width, height)
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (m model) Init() tea.Cmd {
	switch m.state {
	case stateAccessKey:
		return m.accessKeyModel.Init()
	case stateChat:
		return m.chatViewModel.Init()
	}
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case ui.AccessGranted:
		m.client.SetToken(msg.Token)
		if err := m.tokens.Save(msg.Token); err != nil {
			logging.Error("failed to persist token", "error", err)
		}

		m.state = stateChat
		m.chatViewModel = newChatView(m.manager, m.cfg, m.width, m.height)
		return m, m.chatViewModel.Init()
	}

	switch m.state {
	case stateAccessKey:
		newModel, cmd := m.accessKeyModel.Update(msg)
		m.accessKeyModel = newModel.(ui.AccessKeyModel)
		return m, cmd

	case stateChat:
		newModel, cmd := m.chatViewModel.Update(msg)
		m.chatViewModel = newModel.(ui.ChatViewModel)
		return m, cmd
	}

	return m, nil
}

func (m model) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress Ctrl+C to quit", m.err)
	}

	switch m.state {
	case stateAccessKey:
		return m.accessKeyModel.View()
	case stateChat:
		return m.chatViewModel.View()
	}

	return "Loading..."
}
