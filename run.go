package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"eve-intel/internal/config"
	"eve-intel/internal/logger"
	"eve-intel/internal/pipeline"
	"eve-intel/internal/sde"
)

var (
	runChatLogs    string
	runUniverse    string
	runPlayers     []string
	runChannels    []string
	runCatchUp     bool
	runTick        time.Duration
	runMetricsAddr string
	runWebhook     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch chat logs and raise intel alerts",
	Long: `Follow the chat log directory, track every watched pilot through Local
and report intel lines from the watched channels until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runChatLogs, "chatlogs", "", "Chat log directory")
	f.StringVar(&runUniverse, "universe", "", "Universe snapshot (SQLite file or SDE directory)")
	f.StringSliceVarP(&runPlayers, "player", "p", nil, "Pilot to watch (repeatable)")
	f.StringSliceVarP(&runChannels, "channel", "c", nil, "Intel channel to watch (repeatable)")
	f.BoolVar(&runCatchUp, "catch-up", false, "Replay existing log content on start")
	f.DurationVar(&runTick, "tick", 0, "Alert flush interval")
	f.StringVar(&runMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	f.StringVar(&runWebhook, "discord-webhook", "", "Also post alerts to this Discord webhook")
	rootCmd.AddCommand(runCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Banner(version)
	logger.Section("Config")
	logger.Stats("Chat logs", cfg.ChatLogs)
	logger.Stats("Players", cfg.Players)
	logger.Stats("Channels", cfg.Channels)
	logger.Stats("Catch up", cfg.CatchUp)

	u, err := sde.Load(cfg.Universe)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := pipeline.Run(ctx, cfg, u); err != nil {
		logger.Error("MAIN", err.Error())
		return err
	}
	logger.Info("MAIN", "Stopped")
	return nil
}

// applyRunFlags copies explicitly set flags over the loaded config.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("chatlogs") {
		cfg.ChatLogs = runChatLogs
	}
	if f.Changed("universe") {
		cfg.Universe = runUniverse
	}
	if f.Changed("player") {
		cfg.Players = runPlayers
	}
	if f.Changed("channel") {
		cfg.Channels = runChannels
	}
	if f.Changed("catch-up") {
		cfg.CatchUp = runCatchUp
	}
	if f.Changed("tick") {
		cfg.Tick = runTick
	}
	if f.Changed("metrics-addr") {
		cfg.MetricsAddr = runMetricsAddr
	}
	if f.Changed("discord-webhook") {
		cfg.DiscordWebhook = runWebhook
	}
	cfg.Normalize()
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with the current settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := config.FileName + ".yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
