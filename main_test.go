package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/encoding/unicode"

	"eve-intel/internal/config"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute %v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	got := execute(t, "version")
	if !strings.Contains(got, "eve-intel "+version) {
		t.Errorf("version output = %q", got)
	}
}

func TestHeaderCommand(t *testing.T) {
	text := "\ufeff\r\n" +
		"  ---------------------------------------------------------------\r\n" +
		"  Channel ID:      -12345\r\n" +
		"  Channel Name:    Intel\r\n" +
		"  Listener:        Alice\r\n" +
		"  Session started: 2024.03.01 18:00:00\r\n" +
		"  ---------------------------------------------------------------\r\n" +
		"\ufeff[ 2024.03.01 18:00:05 ] Bob > Jita red\r\n"
	data, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(text))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "Intel_20240301_180000.txt")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	got := execute(t, "header", path)
	for _, want := range []string{"Intel", "Alice", "2024.03.01 18:00:00", "[ 2024.03.01 18:00:05 ] Bob > Jita red"} {
		if !strings.Contains(got, want) {
			t.Errorf("header output missing %q:\n%s", want, got)
		}
	}
}

func TestApplyRunFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Players = []string{"Carol"}

	if err := runCmd.ParseFlags([]string{"--player", "Alice,Bob", "--channel", "Intel", "--tick", "1s"}); err != nil {
		t.Fatal(err)
	}
	applyRunFlags(runCmd, cfg)

	if len(cfg.Players) != 2 || cfg.Players[0] != "Alice" || cfg.Players[1] != "Bob" {
		t.Errorf("Players = %v, want [Alice Bob]", cfg.Players)
	}
	if len(cfg.Channels) != 2 || cfg.Channels[0] != config.LocalChannel || cfg.Channels[1] != "Intel" {
		t.Errorf("Channels = %v, want [Local Intel]", cfg.Channels)
	}
	if cfg.Tick != time.Second {
		t.Errorf("Tick = %v, want 1s", cfg.Tick)
	}
	if cfg.CatchUp {
		t.Error("CatchUp changed without the flag")
	}
}
