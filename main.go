// verniz TUI - a terminal chat client for the paint advisory assistant.
//
// Copyright (c) 2025-2026 Verniz Project
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/verniz/verniz-tui/internal/api"
	"github.com/verniz/verniz-tui/internal/auth"
	"github.com/verniz/verniz-tui/internal/chat"
	"github.com/verniz/verniz-tui/internal/config"
	"github.com/verniz/verniz-tui/internal/kvstore"
	"github.com/verniz/verniz-tui/internal/model"
	"github.com/verniz/verniz-tui/internal/ui/chatview"
	"github.com/verniz/verniz-tui/internal/ui/login"
	"github.com/verniz/verniz-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "print version and exit")
		loginOnly   = flag.Bool("login", false, "authenticate from the terminal and exit")
		configPath  = flag.String("config", "", "path to config file (default ~/.verniz/config.toml)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("verniz %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	client := api.NewClient(cfg.API.BackURL, cfg.API.AgentURL).
		WithTimeout(time.Duration(cfg.API.TimeoutSecs) * time.Second).
		WithMaxRetries(cfg.API.MaxRetries)

	authStore := auth.NewStore(store, client)
	client.WithTokenProvider(authStore.Token).
		WithSessionExpiredHandler(authStore.Purge)

	if *loginOnly {
		runLoginPrompt(authStore)
		return
	}

	chatState := chat.NewState(store, client)
	chatState.Restore()

	// The TUI owns the terminal; route log output to a file instead.
	// LogToFile does not create directories, so make sure ~/.verniz exists.
	if err := config.EnsureConfigDir(); err == nil {
		if dir, dirErr := config.ConfigDir(); dirErr == nil {
			if f, logErr := tea.LogToFile(filepath.Join(dir, "verniz.log"), "verniz"); logErr == nil {
				defer f.Close()
			}
		}
	}

	m := newAppModel(cfg, authStore, chatState)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running verniz: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads from an explicit path or the default location.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// openStore builds the key/value backend selected in config. The returned
// closer is a no-op for backends without resources to release.
func openStore(cfg *config.Config) (kvstore.Store, func(), error) {
	switch cfg.Storage.Backend {
	case "memory":
		return kvstore.NewMemoryStore(), func() {}, nil
	case "sqlite":
		store, err := kvstore.NewDefaultSQLiteStore()
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Printf("closing state store: %v", err)
			}
		}, nil
	default:
		store, err := kvstore.NewDefaultFileStore()
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

// runLoginPrompt performs a one-shot credential prompt without starting the
// TUI, for scripted setups and smoke tests.
func runLoginPrompt(authStore *auth.Store) {
	fmt.Print("Username: ")
	var username string
	if _, err := fmt.Scanln(&username); err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not read username\n")
		os.Exit(1)
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not read password\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session, err := authStore.Login(ctx, model.Credentials{
		Username: strings.TrimSpace(username),
		Password: string(password),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Login failed: %s\n", api.UserMessage(err))
		os.Exit(1)
	}
	fmt.Printf("Signed in as %s\n", session.User.Username)
}

// =============================================================================
// APPLICATION MODEL
// =============================================================================

// State represents the current application screen.
type State int

const (
	StateLogin State = iota
	StateChat
)

// appModel is the main Bubble Tea model switching between screens.
type appModel struct {
	state State
	theme *styles.Theme

	loginModel login.Model
	chatModel  chatview.Model

	width  int
	height int
}

func newAppModel(cfg *config.Config, authStore *auth.Store, chatState *chat.State) *appModel {
	theme := styles.NewTheme()

	state := StateLogin
	if _, ok := authStore.Restore(); ok {
		state = StateChat
	}

	return &appModel{
		state:      state,
		theme:      theme,
		loginModel: login.New(theme, authStore),
		chatModel:  chatview.New(theme, cfg.UI, chatState, authStore),
	}
}

// Init implements tea.Model.
func (m *appModel) Init() tea.Cmd {
	return tea.Batch(m.loginModel.Init(), m.chatModel.Init())
}

// Update implements tea.Model.
func (m *appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Both screens track the size so switching needs no resend.
		var loginCmd, chatCmd tea.Cmd
		m.loginModel, loginCmd = m.loginModel.Update(msg)
		m.chatModel, chatCmd = m.chatModel.Update(msg)
		return m, tea.Batch(loginCmd, chatCmd)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case login.SucceededMsg:
		m.state = StateChat
		return m, nil

	case chatview.SessionExpiredMsg:
		m.state = StateLogin
		m.loginModel.Reset()
		m.loginModel.SetError("Session expired. Please log in again.")
		return m, nil

	case chatview.LoggedOutMsg:
		m.state = StateLogin
		m.loginModel.Reset()
		return m, nil
	}

	var cmd tea.Cmd
	switch m.state {
	case StateLogin:
		m.loginModel, cmd = m.loginModel.Update(msg)
	case StateChat:
		m.chatModel, cmd = m.chatModel.Update(msg)
	}
	return m, cmd
}

// View implements tea.Model.
func (m *appModel) View() string {
	switch m.state {
	case StateChat:
		return m.chatModel.View()
	default:
		return m.loginModel.View()
	}
}
