package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/teamhub/internal/api"
	"github.com/nhle/teamhub/internal/app"
	"github.com/nhle/teamhub/internal/credential"
	"github.com/nhle/teamhub/internal/keys"
	"github.com/nhle/teamhub/internal/logging"
	"github.com/nhle/teamhub/internal/model"
	"github.com/nhle/teamhub/internal/realtime"
	"github.com/nhle/teamhub/internal/session"
	"github.com/nhle/teamhub/internal/store"
	"github.com/nhle/teamhub/internal/theme"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "teamhub: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := model.DefaultConfigPath()
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	logPath := filepath.Join(filepath.Dir(cfgPath), "teamhub.log")
	log, closeLog, err := logging.NewFileLogger(logPath, logging.ParseLevel(cfg.Log.Level))
	if err != nil {
		return err
	}
	defer closeLog()

	client := api.NewClient(
		cfg.Server.APIBaseURL,
		time.Duration(cfg.Server.RequestTimeoutSec)*time.Second,
		log,
	)

	creds := credential.NewKeyringStore()
	sess := session.New(client, creds, log)
	client.SetTokenFunc(sess.Token)
	client.SetSessionExpiredHook(sess.Expire)

	channel := realtime.New(
		cfg.Server.RealtimeURL,
		sess.Token,
		time.Duration(cfg.Server.ReconnectDelaySec)*time.Second,
		log,
	)
	channel.Start()
	defer channel.Close()

	stores := app.Stores{
		Session:       sess,
		Chat:          store.NewChatStore(client, log),
		Tasks:         store.NewTaskStore(client, log),
		Notifications: store.NewNotificationStore(client, log),
		Directory:     store.NewDirectoryStore(client, log),
	}

	theme.Apply(cfg.Display.Theme)
	saveTheme := func(mode string) error {
		cfg.Display.Theme = mode
		return model.SaveConfig(cfgPath, cfg)
	}

	root := app.New(keys.DefaultKeyMap(), stores, channel, cfg.Display.Theme, saveTheme, log)
	program := tea.NewProgram(root, tea.WithAltScreen())

	log.Info("starting teamhub",
		"api", cfg.Server.APIBaseURL, "realtime", cfg.Server.RealtimeURL)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}
