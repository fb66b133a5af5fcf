package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/readdigest/internal/domain"
	"github.com/kailas-cloud/readdigest/internal/domain/notify"
	"github.com/kailas-cloud/readdigest/internal/metrics"
)

// DefaultTimeout bounds one webhook POST.
const DefaultTimeout = 10 * time.Second

// maxContentLen is the webhook limit for the content field.
const maxContentLen = 2000

// Config holds webhook destinations per channel.
type Config struct {
	ResultsWebhook  string
	TokenWebhook    string
	ResultsThreadID string
	TokenThreadID   string
	Timeout         time.Duration
}

type target struct {
	webhook  string
	threadID string
}

// Sink posts messages to Discord webhooks.
type Sink struct {
	client  *http.Client
	targets map[notify.Channel]target
	logger  *zap.Logger
}

// New creates a webhook sink. A channel with no webhook logs instead of posting.
func New(cfg Config, logger *zap.Logger) *Sink {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		client: &http.Client{Timeout: timeout},
		targets: map[notify.Channel]target{
			notify.ChannelResults: {webhook: cfg.ResultsWebhook, threadID: cfg.ResultsThreadID},
			notify.ChannelToken:   {webhook: cfg.TokenWebhook, threadID: cfg.TokenThreadID},
		},
		logger: logger,
	}
}

type payload struct {
	Content string         `json:"content"`
	Embeds  []notify.Embed `json:"embeds,omitempty"`
}

// Send delivers msg to the channel's webhook. Errors are reported in the Delivery, never panicked.
func (s *Sink) Send(ctx context.Context, ch notify.Channel, msg notify.Message) notify.Delivery {
	t := s.targets[ch]
	if t.webhook == "" {
		s.logger.Info("no webhook", zap.String("channel", string(ch)), zap.String("message", msg.Content))
		metrics.NotificationsTotal.WithLabelValues(string(ch), string(notify.StatusSkipped)).Inc()
		return notify.Delivery{Status: notify.StatusSkipped}
	}

	if err := s.post(ctx, t, msg); err != nil {
		s.logger.Warn("notification failed", zap.String("channel", string(ch)), zap.Error(err))
		metrics.NotificationsTotal.WithLabelValues(string(ch), string(notify.StatusFailed)).Inc()
		return notify.Delivery{Status: notify.StatusFailed, Err: err}
	}

	metrics.NotificationsTotal.WithLabelValues(string(ch), string(notify.StatusSent)).Inc()
	return notify.Delivery{Status: notify.StatusSent}
}

func (s *Sink) post(ctx context.Context, t target, msg notify.Message) error {
	endpoint, err := webhookURL(t.webhook, t.threadID)
	if err != nil {
		return fmt.Errorf("webhook url: %w: %w", domain.ErrNotificationFailure, err)
	}

	p := payload{Content: truncate(msg.Content, maxContentLen)}
	if msg.Embed != nil {
		p.Embeds = []notify.Embed{*msg.Embed}
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w: %w", domain.ErrNotificationFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w: %w", domain.ErrNotificationFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w: %w", domain.ErrNotificationFailure, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook status %d: %s: %w", resp.StatusCode, bytes.TrimSpace(detail), domain.ErrNotificationFailure)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// webhookURL appends thread_id when the message targets a thread.
func webhookURL(webhook, threadID string) (string, error) {
	if threadID == "" {
		return webhook, nil
	}
	u, err := url.Parse(webhook)
	if err != nil {
		return "", fmt.Errorf("parse webhook: %w", err)
	}
	q := u.Query()
	q.Set("thread_id", threadID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
