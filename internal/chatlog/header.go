// Package chatlog reads EVE chat log files: it parses their header, keeps a
// byte offset per channel and decodes newly appended lines.
package chatlog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Header field names.
const (
	FieldChannelID      = "Channel ID"
	FieldChannelName    = "Channel Name"
	FieldListener       = "Listener"
	FieldSessionStarted = "Session started"
)

// TimeLayout is the timestamp format used in headers and message lines.
const TimeLayout = "2006.01.02 15:04:05"

var (
	// ErrNoHeader means the header end marker was not found.
	ErrNoHeader = errors.New("header end marker not found")
	// ErrMissingField means a required header field is absent.
	ErrMissingField = errors.New("missing header field")
)

// Header is the parsed preamble of a chat log file.
type Header struct {
	ChannelID      string
	ChannelName    string
	Listener       string
	SessionStarted time.Time
	// Length is the byte length of the header region.
	Length int
}

// Version orders sessions of the same channel; later sessions win.
func (h Header) Version() time.Time { return h.SessionStarted }

// IsLocal reports whether this is the Local channel of its listener.
func (h Header) IsLocal() bool {
	return strings.EqualFold(h.ChannelID, "local") || h.ChannelName == LocalChannel
}

// markerState tracks progress through the 0xFF 0xFE 0x5B sequence that
// starts the first message line.
type markerState int

const (
	expectingFirst markerState = iota
	expectingSecond
	expectingThird
	markerFound
)

func (s markerState) next(c byte) markerState {
	switch c {
	case 0xFF:
		// A 0xFF always starts a fresh match, even in the middle of one.
		return expectingSecond
	case 0xFE:
		if s == expectingSecond {
			return expectingThird
		}
		return expectingFirst
	case 0x5B:
		if s == expectingThird {
			return markerFound
		}
		return expectingFirst
	default:
		return expectingFirst
	}
}

// HeaderLength returns the length of the header region: the offset of the
// byte-order mark that precedes the first "[" of the content.
func HeaderLength(buf []byte) (int, bool) {
	state := expectingFirst
	for i, c := range buf {
		state = state.next(c)
		if state == markerFound {
			return i - 2, true
		}
	}
	return 0, false
}

// fieldState is the line-oriented header parser state.
type fieldState struct {
	kind  fieldKind
	key   string
	value string
}

type fieldKind int

const (
	expectingSeparator fieldKind = iota
	expectingField
	field
	fieldsDone
)

func isSeparator(line string) bool {
	return strings.HasPrefix(line, "-")
}

func (s fieldState) next(line string) fieldState {
	switch s.kind {
	case expectingSeparator:
		if isSeparator(line) {
			return fieldState{kind: expectingField}
		}
		return s
	case expectingField, field:
		if isSeparator(line) {
			return fieldState{kind: fieldsDone}
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return fieldState{kind: expectingField}
		}
		return fieldState{kind: field, key: strings.TrimSpace(key), value: strings.TrimSpace(value)}
	default:
		return s
	}
}

// ParseFields extracts the "key: value" lines enclosed by the two dashed
// separator lines of a header.
func ParseFields(text string) map[string]string {
	fields := make(map[string]string)
	state := fieldState{kind: expectingSeparator}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "\ufeff\r"))
		if line == "" {
			continue
		}
		state = state.next(line)
		switch state.kind {
		case field:
			fields[state.key] = state.value
		case fieldsDone:
			return fields
		}
	}
	return fields
}

// ParseHeader locates and parses the header at the start of a chat log.
func ParseHeader(buf []byte) (Header, error) {
	n, ok := HeaderLength(buf)
	if !ok {
		return Header{}, ErrNoHeader
	}
	fields := ParseFields(decodeUTF16(buf[:n]))

	var missing []string
	for _, name := range []string{FieldChannelID, FieldChannelName, FieldListener, FieldSessionStarted} {
		if fields[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Header{}, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}

	started, err := time.ParseInLocation(TimeLayout, fields[FieldSessionStarted], time.Local)
	if err != nil {
		return Header{}, fmt.Errorf("parse %s: %w", FieldSessionStarted, err)
	}
	return Header{
		ChannelID:      fields[FieldChannelID],
		ChannelName:    fields[FieldChannelName],
		Listener:       fields[FieldListener],
		SessionStarted: started,
		Length:         n,
	}, nil
}

// decodeUTF16 decodes little-endian UTF-16, dropping invalid sequences and
// byte-order marks.
func decodeUTF16(buf []byte) string {
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out, _, err := transform.Bytes(dec, buf)
	if err != nil {
		return ""
	}
	return strings.NewReplacer("\ufffd", "", "\ufeff", "").Replace(string(out))
}
