package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"eve-intel/internal/logger"
)

// Sink renders notifications.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

// LogSink prints sound and desktop notifications to the console.
type LogSink struct{}

// Deliver implements Sink.
func (LogSink) Deliver(_ context.Context, n Notification) error {
	switch n.Channel {
	case Sound:
		logger.Warn("NOTIFY", fmt.Sprintf("[sound] %s", n.Text))
	case Desktop:
		logger.Info("NOTIFY", fmt.Sprintf("[desktop] %s | %s", n.Text, n.Detail))
	}
	return nil
}

// Discord allows five webhook posts per two seconds.
const (
	discordInterval = 400 * time.Millisecond
	discordBurst    = 5
)

// DiscordSink posts sound and desktop notifications to a Discord webhook.
type DiscordSink struct {
	webhook string
	http    *http.Client
	limiter *rate.Limiter
}

// NewDiscordSink creates a sink posting to webhook.
func NewDiscordSink(webhook string) *DiscordSink {
	return &DiscordSink{
		webhook: webhook,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(discordInterval), discordBurst),
	}
}

type discordMessage struct {
	Username string `json:"username,omitempty"`
	Content  string `json:"content"`
}

// Deliver implements Sink.
func (s *DiscordSink) Deliver(ctx context.Context, n Notification) error {
	if n.Channel == None {
		return nil
	}
	content := n.Text
	if n.Detail != "" {
		content += "\n> " + n.Detail
	}
	body, err := json.Marshal(discordMessage{Username: "EVE Intel", Content: content})
	if err != nil {
		return err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhook, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "eve-intel/1.0")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord webhook: %s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	return nil
}

// MultiSink delivers to every sink and joins their errors.
type MultiSink []Sink

// Deliver implements Sink.
func (m MultiSink) Deliver(ctx context.Context, n Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
