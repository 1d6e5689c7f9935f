// Package notify turns intel reports into alerts and delivers them on a
// fixed tick.
package notify

import (
	"fmt"
	"strings"

	"eve-intel/internal/graph"
	"eve-intel/internal/intel"
	"eve-intel/internal/logger"
)

// Channel is how a notification reaches the pilot.
type Channel int

const (
	None Channel = iota
	Sound
	Desktop
)

func (c Channel) String() string {
	switch c {
	case Sound:
		return "sound"
	case Desktop:
		return "desktop"
	default:
		return "none"
	}
}

// Notification is the outward form of a report.
type Notification struct {
	Channel Channel
	Text    string
	// Detail is the raw chat line behind the notification.
	Detail string
	Kind   intel.Kind
}

// FromReport maps a report to a notification. Low alerts and status
// requests are logged as warnings, unknown reports as errors.
func FromReport(r intel.Report) Notification {
	n := Notification{Detail: r.Message, Kind: r.Threat.Kind}
	switch r.Threat.Kind {
	case intel.NoThreat:
		n.Channel = Sound
		n.Text = fmt.Sprintf("%s is clear", ShortName(systemName(r.Threat.System)))
	case intel.Critical:
		n.Channel = Sound
		n.Text = fmt.Sprintf("%s threat in local, dock immediately", r.Player)
	case intel.High:
		n.Channel = Sound
		n.Text = fmt.Sprintf("threat %d jumps from %s in %s", r.Threat.Jumps, r.Player, ShortName(systemName(r.Origin)))
	case intel.Low:
		n.Channel = Desktop
		n.Text = fmt.Sprintf("threat %d jumps from %s in %s", r.Threat.Jumps, r.Player, systemName(r.Origin))
		logger.Warn("NOTIFY", n.Text)
	case intel.StatusRequest:
		logger.Warn("NOTIFY", fmt.Sprintf("status request in %s", systemName(r.Threat.System)))
	case intel.Irrelevant:
	default:
		logger.Error("NOTIFY", fmt.Sprintf("Unable to assess threat level for %q", r.Message))
	}
	return n
}

func systemName(s *graph.System) string {
	if s == nil {
		return "unknown system"
	}
	return s.Name
}

// ShortName is the spoken form of a system name: its first three
// characters, or four when the name has a dash in third position, with
// the dash read out as "tac".
func ShortName(name string) string {
	n := 3
	if strings.Index(name, "-") == 2 {
		n = 4
	}
	if len(name) < n {
		n = len(name)
	}
	return strings.ReplaceAll(name[:n], "-", " tac ")
}
