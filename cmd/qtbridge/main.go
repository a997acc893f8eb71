package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/zhufengning/qtbridge/pkg/bridge"
	"github.com/zhufengning/qtbridge/pkg/bus"
	"github.com/zhufengning/qtbridge/pkg/config"
	"github.com/zhufengning/qtbridge/pkg/logger"
	"github.com/zhufengning/qtbridge/pkg/onebot"
)

const version = "0.1.0"

var (
	flagConfig string
	flagDebug  bool
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qtbridge",
		Short: "Bidirectional bridge between OneBot backends and Telegram",
	}

	cmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file path (default ~/.qtbridge/config.json)")
	cmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "Enable debug logging")

	cmd.AddCommand(
		newOnboardCommand(),
		newRecvCommand(),
		newSentCommand(),
		newVersionCommand(),
	)

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("qtbridge v%s\n", version)
		},
	}
}

func newOnboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Write a starter config file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return onboard()
		},
	}
}

func newRecvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recv",
		Short: "Listen on all OneBot backends and forward events to Telegram",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return recvCmd()
		},
	}
}

func newSentCommand() *cobra.Command {
	var console bool

	cmd := &cobra.Command{
		Use:   "sent",
		Short: "Accept operator commands and dispatch OneBot actions",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return sentCmd(console)
		},
	}

	cmd.Flags().BoolVar(&console, "console", false, "Read commands from a local console instead of Telegram")

	return cmd
}

func onboard() error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists at %s\n", configPath)
		fmt.Print("Overwrite? (y/n): ")
		var response string
		fmt.Scanln(&response)
		if response != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if err := config.SaveConfig(configPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("qtbridge is ready! Config written to %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Fill in telegram.token and telegram.chat_id")
	fmt.Println("  2. Point onebot.backends at your OneBot servers")
	fmt.Println("  3. Run: qtbridge recv   (and in another terminal: qtbridge sent)")
	return nil
}

func recvCmd() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram token and chat_id must be configured for recv mode")
	}
	if len(cfg.OneBot.Backends) == 0 {
		return fmt.Errorf("no OneBot backends configured")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("connect to Telegram: %w", err)
	}

	logger.InfoCF("main", "Telegram authorized", map[string]interface{}{
		"username": bot.Self.UserName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tables := onebot.NewTables(cfg.OneBot.Faces, cfg.OneBot.BotNames)
	formatter := onebot.NewFormatter(tables, cfg.OneBot.Debug)
	ignore := onebot.NewIgnoreSet(cfg.OneBot.IgnoreMetaEvents)
	messageBus := bus.NewMessageBus()

	var wg sync.WaitGroup
	for _, backend := range cfg.OneBot.Backends {
		listener := bridge.NewListener(
			backend,
			formatter,
			ignore,
			messageBus,
			time.Duration(cfg.OneBot.ReconnectInterval)*time.Second,
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			listener.Run(ctx)
		}()
	}

	forwarder := bridge.NewForwarder(bot, cfg.Telegram.ChatID, messageBus)
	wg.Add(1)
	go func() {
		defer wg.Done()
		forwarder.Run(ctx)
	}()

	<-ctx.Done()
	messageBus.Close()
	wg.Wait()

	logger.InfoC("main", "Shutdown complete")
	return nil
}

func sentCmd(console bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if len(cfg.OneBot.Backends) == 0 {
		return fmt.Errorf("no OneBot backends configured")
	}

	dispatcher := bridge.NewDispatcher(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if console {
		return bridge.NewConsole(dispatcher).Run(ctx)
	}

	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram token and chat_id must be configured (or use --console)")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("connect to Telegram: %w", err)
	}

	logger.InfoCF("main", "Telegram authorized", map[string]interface{}{
		"username": bot.Self.UserName,
	})

	bridge.NewCommandBot(bot, cfg.Telegram.ChatID, dispatcher).Run(ctx)
	return nil
}

func getConfigPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".qtbridge", "config.json")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, err
	}

	if flagDebug || cfg.OneBot.Debug {
		logger.SetLevel(logger.DEBUG)
		cfg.OneBot.Debug = true
	}

	return cfg, nil
}
