// Package logger prints tagged, coloured console lines.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Level orders log output by severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu    sync.Mutex
	level = LevelInfo

	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	tagStyle     = lipgloss.NewStyle().Bold(true).Width(8)
	debugStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
)

// ParseLevel maps debug|info|warn|error to a Level. Unknown names map to info.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetLevel drops every line below l.
func SetLevel(l Level) {
	mu.Lock()
	level = l
	mu.Unlock()
}

func write(l Level, style lipgloss.Style, tag, msg string) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}
	fmt.Fprintf(os.Stdout, "%s %s %s\n",
		timeStyle.Render(time.Now().Format("15:04:05")),
		style.Inherit(tagStyle).Render(tag),
		msg)
}

// Debug prints a low-level diagnostic line.
func Debug(tag, msg string) { write(LevelDebug, debugStyle, tag, msg) }

// Info prints an informational line.
func Info(tag, msg string) { write(LevelInfo, infoStyle, tag, msg) }

// Success prints a completed-step line.
func Success(tag, msg string) { write(LevelInfo, successStyle, tag, msg) }

// Warn prints a recoverable problem.
func Warn(tag, msg string) { write(LevelWarn, warnStyle, tag, msg) }

// Error prints a failure.
func Error(tag, msg string) { write(LevelError, errorStyle, tag, msg) }

// Banner prints the startup banner.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(os.Stdout, titleStyle.Render("EVE Intel "+version))
}

// Section prints a heading for a block of Stats lines.
func Section(title string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(os.Stdout, titleStyle.Render("── "+title+" ──"))
}

// Stats prints one aligned key/value line.
func Stats(key string, value interface{}) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(os.Stdout, "   %-20s %v\n", key+":", value)
}

// Server announces a listening address.
func Server(addr string) {
	Success("HTTP", fmt.Sprintf("Listening on http://%s", addr))
}
