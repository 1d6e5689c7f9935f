package chatlog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/mmap"

	"eve-intel/internal/logger"
)

// maxHeaderScan bounds how far into a file the header marker is searched.
const maxHeaderScan = 64 * 1024

// ErrTruncated means a file shrank below the bytes already consumed.
var ErrTruncated = errors.New("chat log truncated")

// Identity names a chat channel as seen by one listener. Two files with the
// same Identity are sessions of the same channel.
type Identity struct {
	Channel  string
	Listener string
}

// Handle is an open chat log session with a read offset.
// A Handle is owned by a single goroutine.
type Handle struct {
	Header
	Path   string
	offset int64
}

// Open parses the header of the chat log at path. The read offset starts
// right after the header, so the first ReadNew returns the whole content.
func Open(path string) (*Handle, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	buf := make([]byte, min(r.Len(), maxHeaderScan))
	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}
	h, err := ParseHeader(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Handle{Header: h, Path: path, offset: int64(h.Length)}, nil
}

// Identity returns the (channel, listener) pair of the session.
func (h *Handle) Identity() Identity {
	return Identity{Channel: h.ChannelName, Listener: h.Listener}
}

// Offset returns the number of bytes already consumed.
func (h *Handle) Offset() int64 { return h.offset }

// NewerThan reports whether h is a later session than other.
func (h *Handle) NewerThan(other *Handle) bool {
	return h.Version().After(other.Version())
}

// SameSession reports whether h and other carry the same session version.
func (h *Handle) SameSession(other *Handle) bool {
	return h.Version().Equal(other.Version())
}

// ReadNew decodes every complete line appended since the last call and
// advances the offset past the last newline. A line still being written
// stays unread until its newline arrives. Lines that are not chat messages
// are skipped.
func (h *Handle) ReadNew() ([]Line, error) {
	r, err := mmap.Open(h.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", h.Path, err)
	}
	defer r.Close()

	size := int64(r.Len())
	if size < h.offset {
		return nil, fmt.Errorf("%s: %w", h.Path, ErrTruncated)
	}
	end := size - (size-h.offset)%2
	if end == h.offset {
		return nil, nil
	}

	buf := make([]byte, end-h.offset)
	if _, err := r.ReadAt(buf, h.offset); err != nil {
		return nil, fmt.Errorf("read %s: %w", h.Path, err)
	}
	n := completeLines(buf)
	if n == 0 {
		return nil, nil
	}
	buf = buf[:n]
	h.offset += int64(n)

	var lines []Line
	for _, raw := range strings.Split(decodeUTF16(buf), "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		line, err := ParseLine(h.Header, raw)
		if err != nil {
			logger.Debug("CHAT", fmt.Sprintf("%s: skipping %q", h.ChannelName, raw))
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// completeLines returns the length of the longest prefix of buf that ends
// with a UTF-16LE newline unit.
func completeLines(buf []byte) int {
	for i := len(buf) - 2; i >= 0; i -= 2 {
		if buf[i] == '\n' && buf[i+1] == 0 {
			return i + 2
		}
	}
	return 0
}

// FastForward moves the offset to the current end of file without
// decoding anything.
func (h *Handle) FastForward() error {
	r, err := mmap.Open(h.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", h.Path, err)
	}
	defer r.Close()

	size := int64(r.Len())
	if size > h.offset {
		h.offset = size - (size-h.offset)%2
	}
	return nil
}

func (h *Handle) String() string {
	return fmt.Sprintf("%s/%s@%s", h.Listener, h.ChannelName, h.Version().Format(time.DateTime))
}
