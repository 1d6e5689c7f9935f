package chatlog

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// LocalChannel is the name of the per-system channel every pilot is in.
const LocalChannel = "Local"

// SystemSender is the sender of game-generated chat lines.
const SystemSender = "EVE System"

// ErrNotMessage means a line does not look like "[ time ] sender > text".
var ErrNotMessage = errors.New("not a chat message")

var messagePattern = regexp.MustCompile(`^\[ (\d{4}\.\d{2}\.\d{2} \d{2}:\d{2}:\d{2}) \] (.+?) > (.*)$`)

// Line is one message read from a chat log.
type Line struct {
	Time     time.Time
	Listener string
	Channel  string
	Local    bool
	Sender   string
	Message  string
}

// ParseLine splits a raw chat line into its timestamp, sender and text.
func ParseLine(h Header, raw string) (Line, error) {
	raw = strings.TrimSpace(strings.Trim(raw, "\ufeff"))
	m := messagePattern.FindStringSubmatch(raw)
	if m == nil {
		return Line{}, ErrNotMessage
	}
	ts, err := time.ParseInLocation(TimeLayout, m[1], time.Local)
	if err != nil {
		return Line{}, ErrNotMessage
	}
	return Line{
		Time:     ts,
		Listener: h.Listener,
		Channel:  h.ChannelName,
		Local:    h.IsLocal(),
		Sender:   strings.TrimSpace(m[2]),
		Message:  strings.TrimSpace(m[3]),
	}, nil
}

// FromSystem reports whether the game itself wrote the line.
func (l Line) FromSystem() bool {
	return l.Sender == SystemSender
}

// String renders the line in the chat log format.
func (l Line) String() string {
	return "[ " + l.Time.Format(TimeLayout) + " ] " + l.Sender + " > " + l.Message
}
